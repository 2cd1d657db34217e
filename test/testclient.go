package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const socketPath = "~/.ptyexpect/pty.sock"

// expandPath expands the tilde (~) character to the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) == 0 {
		return path, nil
	}

	if path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		if len(path) == 1 {
			return homeDir, nil
		}
		if path[1] == '/' || path[1] == '\\' {
			return filepath.Join(homeDir, path[2:]), nil
		}
	}

	return path, nil
}

type Request struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type Response struct {
	Ok   bool        `json:"ok"`
	Err  string      `json:"err,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

type SpawnResponse struct {
	ID  string `json:"id"`
	Pid int    `json:"pid"`
}

type ReadResponse struct {
	Data string `json:"data"`
}

type StatusResponse struct {
	State    string `json:"state"`
	ExitCode int    `json:"exit_code,omitempty"`
	Signal   string `json:"signal,omitempty"`
}

type ListResponse struct {
	Sessions []SessionInfo `json:"sessions"`
	Count    int           `json:"count"`
}

type SessionInfo struct {
	ID    string `json:"id"`
	Pid   int    `json:"pid"`
	State string `json:"state"`
}

type client struct {
	enc *json.Encoder
	dec *json.Decoder
}

func (c *client) do(action string, data interface{}) (Response, error) {
	var raw json.RawMessage
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return Response{}, err
		}
		raw = payload
	}
	if err := c.enc.Encode(Request{Action: action, Data: raw}); err != nil {
		return Response{}, err
	}
	var resp Response
	if err := c.dec.Decode(&resp); err != nil {
		return Response{}, err
	}
	if !resp.Ok {
		return resp, fmt.Errorf("%s failed: %s", action, resp.Err)
	}
	return resp, nil
}

func decodeData(resp Response, out interface{}) error {
	payload, err := json.Marshal(resp.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, out)
}

func main() {
	log.Println("[TestClient] Starting test client...")

	expandedSocketPath, err := expandPath(socketPath)
	if err != nil {
		log.Fatalf("[TestClient] Failed to expand socket path: %v", err)
	}

	conn, err := net.Dial("unix", expandedSocketPath)
	if err != nil {
		log.Fatalf("[TestClient] Failed to connect: %v", err)
	}
	defer conn.Close()

	log.Println("[TestClient] Connected to server")
	c := &client{enc: json.NewEncoder(conn), dec: json.NewDecoder(conn)}

	// Spawn cat: everything written comes straight back.
	resp, err := c.do("spawn", map[string]interface{}{"program": "cat"})
	if err != nil {
		log.Fatalf("[TestClient] %v", err)
	}
	var spawned SpawnResponse
	if err := decodeData(resp, &spawned); err != nil {
		log.Fatalf("[TestClient] Failed to parse spawn response: %v", err)
	}
	log.Printf("[TestClient] Spawned session %s (pid %d)", spawned.ID, spawned.Pid)

	lines := []string{"hans\n", "hello from the test client\n"}
	for _, line := range lines {
		log.Printf("[TestClient] Sending %q", line)
		if _, err := c.do("write", map[string]string{"id": spawned.ID, "data": line}); err != nil {
			log.Fatalf("[TestClient] %v", err)
		}

		var output strings.Builder
		deadline := time.Now().Add(3 * time.Second)
		for !strings.Contains(output.String(), strings.TrimSuffix(line, "\n")) {
			if time.Now().After(deadline) {
				log.Fatalf("[TestClient] Echo never arrived, got %q", output.String())
			}
			resp, err := c.do("read", map[string]string{"id": spawned.ID})
			if err != nil {
				log.Fatalf("[TestClient] %v", err)
			}
			var read ReadResponse
			if err := decodeData(resp, &read); err != nil {
				log.Fatalf("[TestClient] Failed to parse read response: %v", err)
			}
			output.WriteString(read.Data)
			time.Sleep(50 * time.Millisecond)
		}
		fmt.Print(output.String())
	}

	resp, err = c.do("status", map[string]string{"id": spawned.ID})
	if err != nil {
		log.Fatalf("[TestClient] %v", err)
	}
	var status StatusResponse
	if err := decodeData(resp, &status); err != nil {
		log.Fatalf("[TestClient] Failed to parse status response: %v", err)
	}
	log.Printf("[TestClient] Session state: %s", status.State)

	resp, err = c.do("list", nil)
	if err != nil {
		log.Fatalf("[TestClient] %v", err)
	}
	var list ListResponse
	if err := decodeData(resp, &list); err != nil {
		log.Fatalf("[TestClient] Failed to parse list response: %v", err)
	}
	log.Printf("[TestClient] Active sessions: %d", list.Count)
	for _, sess := range list.Sessions {
		log.Printf("  - %s pid=%d (%s)", sess.ID, sess.Pid, sess.State)
	}

	log.Printf("[TestClient] Exiting session %s...", spawned.ID)
	if _, err := c.do("exit", map[string]string{"id": spawned.ID}); err != nil {
		log.Fatalf("[TestClient] %v", err)
	}
	log.Println("[TestClient] Session exited successfully")

	log.Println("[TestClient] Test client exiting")
}
