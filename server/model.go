package server

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/ross1116/pokebattle/internal/config"
	"github.com/ross1116/pokebattle/internal/host"
	"github.com/ross1116/pokebattle/internal/pokemon"
)

type Server struct {
	cfg    config.Config
	dex    *pokemon.Dex
	router *mux.Router
	lobby  *Lobby

	mu      sync.Mutex
	clients map[string]*Client
	rooms   map[string]*Room
	seed    uint64

	ctx    context.Context
	cancel context.CancelFunc
	games  sync.WaitGroup
}

// Client is one websocket connection. Until it is matched it speaks the
// lobby messages; while battle is set every frame is a protocol message for
// the host.
type Client struct {
	ID       string
	Username string

	ws      *websocket.Conn
	writeMu sync.Mutex

	mu     sync.Mutex
	battle *host.Conn
	room   string
}

// Room is a running battle as listed by /battles.
type Room struct {
	ID      string    `json:"id"`
	Players []string  `json:"players"`
	Seed    uint64    `json:"seed"`
	Started time.Time `json:"started"`
	State   string    `json:"state"`

	host *host.Host
}

// Response frames lobby traffic from the server. Battle traffic uses the
// protocol envelope instead.
type Response struct {
	Type    string         `json:"type"`
	Message map[string]any `json:"message,omitempty"`
}

// Request is a lobby message from a client.
type Request struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	// Opponent challenges a named player directly. Empty joins the queue.
	Opponent string `json:"opponent,omitempty"`
	// AI accepts a computer opponent when nobody turns up in time.
	AI bool `json:"ai,omitempty"`
}

const (
	TypeRegister  = "register"
	TypePlayers   = "get_players"
	TypeMatchmake = "matchmake"

	TypeRegistered = "registration_success"
	TypePlayerList = "player_list"
	TypeQueued     = "queued"
	TypeMatchStart = "match_start"
	TypeError      = "error"
)

func (c *Client) current() (*host.Conn, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.battle, c.room
}

func (c *Client) inGame() bool {
	conn, _ := c.current()
	return conn != nil
}

func (c *Client) join(room string, conn *host.Conn) {
	c.mu.Lock()
	c.battle, c.room = conn, room
	c.mu.Unlock()
}

func (c *Client) leave() {
	c.mu.Lock()
	c.battle, c.room = nil, ""
	c.mu.Unlock()
}
