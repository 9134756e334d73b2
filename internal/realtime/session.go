package realtime

import (
	"log"
	"sync"
)

// TextMessage is the websocket opcode for UTF-8 text frames.
const TextMessage = 1

var pongPayload = []byte(`{"message":"pong"}`)

// Conn is the subset of a websocket connection a session needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// State is the lifecycle stage of a session.
type State int

const (
	StateConnecting State = iota
	StateAuthenticated
	StateSubscribed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateSubscribed:
		return "subscribed"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session drives one connection from connect to close.
type Session struct {
	hub    *Hub
	conn   Conn
	userID string

	mu    sync.Mutex
	state State
}

// NewSession prepares a session for conn on behalf of userID.
func NewSession(hub *Hub, userID string, conn Conn) *Session {
	return &Session{hub: hub, conn: conn, userID: userID, state: StateConnecting}
}

// State returns the current lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run subscribes the connection and blocks until it closes. An anonymous
// session is closed immediately.
func (s *Session) Run() {
	if s.userID == "" {
		s.setState(StateClosed)
		_ = s.conn.Close()
		return
	}
	s.setState(StateAuthenticated)

	client := s.hub.Join(s.userID)
	s.setState(StateSubscribed)

	written := make(chan struct{})
	go func() {
		defer close(written)
		for payload := range client.Messages() {
			if err := s.conn.WriteMessage(TextMessage, payload); err != nil {
				log.Printf("realtime: write to user %s failed: %v", s.userID, err)
				_ = s.conn.Close()
				return
			}
		}
	}()

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			break
		}
		s.hub.enqueue(client, pongPayload)
	}

	s.hub.Leave(client)
	<-written
	_ = s.conn.Close()
	s.setState(StateClosed)
}

// Serve runs a session for conn and returns when it closes.
func (h *Hub) Serve(userID string, conn Conn) {
	NewSession(h, userID, conn).Run()
}
