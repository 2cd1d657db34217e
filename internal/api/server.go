package api

import (
	"encoding/json"
	"io"
	"net"
	"os"

	"go.uber.org/zap"

	"github.com/PiranhaCodes/ptyexpect/pty"
)

// Server handles UNIX socket connections and dispatches session actions to
// the manager. A single connection may carry any number of requests.
type Server struct {
	socketPath string
	log        *zap.Logger
	manager    *Manager
	listener   net.Listener
	stopChan   chan struct{}
}

// NewServer creates a new server instance.
func NewServer(socketPath string, manager *Manager, log *zap.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		log:        log,
		manager:    manager,
		stopChan:   make(chan struct{}),
	}
}

// Start starts the server and begins accepting connections. It blocks until
// Stop is called or the listener fails.
func (s *Server) Start() error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}

	s.listener = listener
	s.log.Info("server listening", zap.String("socket", s.socketPath))

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopChan:
				return nil
			default:
				return err
			}
		}
		go s.handleConn(conn)
	}
}

// Stop stops the server and closes the listener. Registered sessions are
// left to the caller to clean up via the manager.
func (s *Server) Stop() {
	close(s.stopChan)
	if s.listener != nil {
		s.listener.Close()
	}
	s.log.Info("server stopped")
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	for {
		var req Request
		if err := decoder.Decode(&req); err != nil {
			if err != io.EOF {
				encoder.Encode(Response{Ok: false, Err: "invalid request: " + err.Error()})
			}
			return
		}

		switch req.Action {
		case "spawn":
			s.handleSpawn(req.Data, encoder)
		case "write":
			s.handleWrite(req.Data, encoder)
		case "read":
			s.handleRead(req.Data, encoder)
		case "status":
			s.handleStatus(req.Data, encoder)
		case "resize":
			s.handleResize(req.Data, encoder)
		case "exit":
			s.handleExit(req.Data, encoder)
		case "list":
			s.handleList(encoder)
		default:
			encoder.Encode(Response{Ok: false, Err: "unknown action: " + req.Action})
		}
	}
}

func (s *Server) handleSpawn(data json.RawMessage, encoder *json.Encoder) {
	var req SpawnRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			encoder.Encode(Response{Ok: false, Err: "invalid spawn request: " + err.Error()})
			return
		}
	}

	ms, err := s.manager.Spawn(req.Program, req.Args)
	if err != nil {
		encoder.Encode(Response{Ok: false, Err: err.Error()})
		return
	}

	encoder.Encode(Response{
		Ok:   true,
		Data: SpawnResponse{ID: ms.ID, Pid: ms.Pid()},
	})
}

func (s *Server) handleWrite(data json.RawMessage, encoder *json.Encoder) {
	var req WriteRequest
	if err := json.Unmarshal(data, &req); err != nil {
		encoder.Encode(Response{Ok: false, Err: "invalid write request: " + err.Error()})
		return
	}

	ms, ok := s.lookup(req.ID, encoder)
	if !ok {
		return
	}

	if err := ms.Write([]byte(req.Data)); err != nil {
		encoder.Encode(Response{Ok: false, Err: err.Error()})
		return
	}

	encoder.Encode(Response{Ok: true})
}

func (s *Server) handleRead(data json.RawMessage, encoder *json.Encoder) {
	var req ReadRequest
	if err := json.Unmarshal(data, &req); err != nil {
		encoder.Encode(Response{Ok: false, Err: "invalid read request: " + err.Error()})
		return
	}

	ms, ok := s.lookup(req.ID, encoder)
	if !ok {
		return
	}

	encoder.Encode(Response{
		Ok:   true,
		Data: ReadResponse{Data: string(ms.Drain())},
	})
}

func (s *Server) handleStatus(data json.RawMessage, encoder *json.Encoder) {
	var req StatusRequest
	if err := json.Unmarshal(data, &req); err != nil {
		encoder.Encode(Response{Ok: false, Err: "invalid status request: " + err.Error()})
		return
	}

	ms, ok := s.lookup(req.ID, encoder)
	if !ok {
		return
	}

	st, err := ms.Status()
	if err != nil {
		encoder.Encode(Response{Ok: false, Err: err.Error()})
		return
	}

	encoder.Encode(Response{Ok: true, Data: statusResponse(st)})
}

func (s *Server) handleResize(data json.RawMessage, encoder *json.Encoder) {
	var req ResizeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		encoder.Encode(Response{Ok: false, Err: "invalid resize request: " + err.Error()})
		return
	}

	if req.Cols <= 0 || req.Rows <= 0 {
		encoder.Encode(Response{Ok: false, Err: "cols and rows must be positive"})
		return
	}

	ms, ok := s.lookup(req.ID, encoder)
	if !ok {
		return
	}

	if err := ms.Resize(uint16(req.Cols), uint16(req.Rows)); err != nil {
		encoder.Encode(Response{Ok: false, Err: err.Error()})
		return
	}

	encoder.Encode(Response{Ok: true})
}

func (s *Server) handleExit(data json.RawMessage, encoder *json.Encoder) {
	var req ExitRequest
	if err := json.Unmarshal(data, &req); err != nil {
		encoder.Encode(Response{Ok: false, Err: "invalid exit request: " + err.Error()})
		return
	}

	if req.ID == "" {
		encoder.Encode(Response{Ok: false, Err: "session ID is required"})
		return
	}

	if err := s.manager.Exit(req.ID); err != nil {
		encoder.Encode(Response{Ok: false, Err: err.Error()})
		return
	}

	encoder.Encode(Response{Ok: true})
}

func (s *Server) handleList(encoder *json.Encoder) {
	sessions := s.manager.List()
	infos := make([]SessionInfo, 0, len(sessions))
	for _, ms := range sessions {
		state := "unknown"
		if st, err := ms.Status(); err == nil {
			state = st.State.String()
		}
		infos = append(infos, SessionInfo{
			ID:    ms.ID,
			Pid:   ms.Pid(),
			State: state,
		})
	}

	encoder.Encode(Response{
		Ok: true,
		Data: ListResponse{
			Sessions: infos,
			Count:    len(infos),
		},
	})
}

// lookup resolves a session ID and writes the error response itself when
// the ID is missing or unknown.
func (s *Server) lookup(id string, encoder *json.Encoder) (*ManagedSession, bool) {
	if id == "" {
		encoder.Encode(Response{Ok: false, Err: "session ID is required"})
		return nil, false
	}
	ms := s.manager.Get(id)
	if ms == nil {
		encoder.Encode(Response{Ok: false, Err: "session not found"})
		return nil, false
	}
	return ms, true
}

func statusResponse(st pty.Status) StatusResponse {
	resp := StatusResponse{State: st.State.String()}
	switch st.State {
	case pty.Exited:
		resp.ExitCode = st.ExitCode
	case pty.Signaled, pty.Stopped:
		resp.Signal = st.Signal.String()
	}
	return resp
}
