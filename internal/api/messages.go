package api

import "encoding/json"

// Request represents an incoming request over the UNIX socket.
type Request struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// Response represents a response to a request.
type Response struct {
	Ok   bool        `json:"ok"`
	Err  string      `json:"err,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

// SpawnRequest is the data for a spawn action. An empty program spawns the
// auto-detected shell.
type SpawnRequest struct {
	Program string   `json:"program,omitempty"`
	Args    []string `json:"args,omitempty"`
}

// SpawnResponse is the data returned from a spawn action.
type SpawnResponse struct {
	ID  string `json:"id"`
	Pid int    `json:"pid"`
}

// WriteRequest is the data for a write action.
type WriteRequest struct {
	ID   string `json:"id"`
	Data string `json:"data"`
}

// ReadRequest is the data for a read action.
type ReadRequest struct {
	ID string `json:"id"`
}

// ReadResponse carries whatever child output was buffered since the last
// read. Data is empty when the child has produced nothing new.
type ReadResponse struct {
	Data string `json:"data"`
}

// StatusRequest is the data for a status action.
type StatusRequest struct {
	ID string `json:"id"`
}

// StatusResponse is the data returned from a status action. ExitCode is
// meaningful when State is "exited"; Signal when State is "signaled" or
// "stopped".
type StatusResponse struct {
	State    string `json:"state"`
	ExitCode int    `json:"exit_code,omitempty"`
	Signal   string `json:"signal,omitempty"`
}

// ResizeRequest is the data for a resize action.
type ResizeRequest struct {
	ID   string `json:"id"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
}

// ExitRequest is the data for an exit action.
type ExitRequest struct {
	ID string `json:"id"`
}

// ListResponse is the data returned from a list action.
type ListResponse struct {
	Sessions []SessionInfo `json:"sessions"`
	Count    int           `json:"count"`
}

// SessionInfo contains information about a session.
type SessionInfo struct {
	ID    string `json:"id"`
	Pid   int    `json:"pid"`
	State string `json:"state"`
}
