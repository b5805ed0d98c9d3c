package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// handleWS upgrades the connection. A name query parameter registers the
// client straight away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	c := &Client{ID: uuid.NewString(), ws: ws}
	log.Info().Str("client", c.ID).Str("remote", r.RemoteAddr).Msg("client connected")
	if name := r.URL.Query().Get("name"); name != "" {
		s.handleRegistration(c, name)
	}
	s.HandleClient(c)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

func (s *Server) handleBattles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"battles": s.Rooms(),
		"waiting": s.lobby.Waiting(),
	})
}

func (s *Server) handleBattle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	room, ok := s.rooms[id]
	var snap Room
	if ok {
		snap = room.snapshot()
	}
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "battle not found"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRegistration(c *Client, username string) {
	username = strings.TrimSpace(username)
	if username == "" {
		s.SendResponse(c, errorResponse("username cannot be empty"))
		return
	}
	s.mu.Lock()
	other, taken := s.clients[username]
	if taken && other != c {
		s.mu.Unlock()
		s.SendResponse(c, errorResponse("username "+username+" is already taken"))
		return
	}
	if c.Username != "" && c.Username != username {
		delete(s.clients, c.Username)
	}
	c.Username = username
	s.clients[username] = c
	s.mu.Unlock()

	log.Info().Str("client", c.ID).Str("username", username).Msg("player registered")
	s.SendResponse(c, Response{Type: TypeRegistered, Message: map[string]any{"username": username, "id": c.ID}})
}

func (s *Server) handleGetPlayers(c *Client) {
	s.SendResponse(c, Response{Type: TypePlayerList, Message: map[string]any{"players": s.Players()}})
}

// handleMatchmake challenges req.Opponent directly, or queues c when no
// opponent is named.
func (s *Server) handleMatchmake(c *Client, req Request) {
	if req.Opponent == "" {
		s.lobby.Queue(c, req.AI, func() {
			s.SendResponse(c, Response{Type: TypeQueued, Message: map[string]any{"ai": req.AI}})
		})
		return
	}
	if req.Opponent == c.Username {
		s.SendResponse(c, errorResponse("cannot battle yourself"))
		return
	}
	s.mu.Lock()
	opp, ok := s.clients[req.Opponent]
	s.mu.Unlock()
	if !ok {
		s.SendResponse(c, errorResponse("opponent "+req.Opponent+" not found"))
		return
	}
	if opp.inGame() {
		s.SendResponse(c, errorResponse("opponent "+req.Opponent+" is already in a match"))
		return
	}
	s.lobby.Leave(c)
	s.lobby.Leave(opp)
	s.startGame(c, opp)
}

func errorResponse(msg string) Response {
	return Response{Type: TypeError, Message: map[string]any{"error": msg}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}
