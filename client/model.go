package client

import (
	"io"
	"net"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
)

type Config struct {
	ServerHost string
	ServerPort string
	Username   string
}

// URL is the server's websocket endpoint with the username attached.
func (c Config) URL() string {
	u := url.URL{
		Scheme:   "ws",
		Host:     net.JoinHostPort(c.ServerHost, c.ServerPort),
		Path:     "/ws",
		RawQuery: url.Values{"name": {c.Username}}.Encode(),
	}
	return u.String()
}

type Client struct {
	Config Config

	ws      *websocket.Conn
	writeMu sync.Mutex
	out     io.Writer

	mu        sync.Mutex
	connected bool
	opponent  string
	session   *Session
	done      chan struct{}
}

// Message is a lobby frame from the server.
type Message struct {
	Type    string         `json:"type"`
	Message map[string]any `json:"message"`
}

// request mirrors the server's lobby request.
type request struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	Opponent string `json:"opponent,omitempty"`
	AI       bool   `json:"ai,omitempty"`
}

const (
	typeRegistered = "registration_success"
	typePlayerList = "player_list"
	typeQueued     = "queued"
	typeMatchStart = "match_start"
	typeError      = "error"
)

// syncWriter serialises output from the reader and the input loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
