package server

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ross1116/pokebattle/internal/host"
	"github.com/ross1116/pokebattle/internal/protocol"
	"github.com/rs/zerolog/log"
)

const writeWait = 10 * time.Second

// HandleClient reads frames until the socket closes. Frames are lobby
// requests until the client is matched, then protocol messages for its
// battle host until the battle ends.
func (s *Server) HandleClient(c *Client) {
	defer s.HandleDisconnection(c)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("client", c.ID).Msg("read failed")
			}
			return
		}
		if conn, room := c.current(); conn != nil {
			msg, err := protocol.DecodeClient(data)
			if err != nil {
				log.Warn().Err(err).Str("client", c.ID).Str("battle", room).Msg("dropped battle frame")
				continue
			}
			if err := conn.Send(msg); err != nil {
				log.Warn().Err(err).Str("client", c.ID).Str("battle", room).Msg("could not forward battle frame")
			}
			continue
		}
		s.handleLobby(c, data)
	}
}

func (s *Server) handleLobby(c *Client, data []byte) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		log.Warn().Err(err).Str("client", c.ID).Msg("invalid lobby message")
		s.SendResponse(c, errorResponse("invalid message"))
		return
	}
	if req.Type != TypeRegister && c.Username == "" {
		s.SendResponse(c, errorResponse("register first"))
		return
	}
	switch req.Type {
	case TypeRegister:
		s.handleRegistration(c, req.Username)
	case TypePlayers:
		s.handleGetPlayers(c)
	case TypeMatchmake:
		s.handleMatchmake(c, req)
	default:
		s.SendResponse(c, errorResponse("unknown message type "+req.Type))
	}
}

// pump forwards the host's messages for c to its socket. The client is back
// in the lobby as soon as End is on its way.
func (s *Server) pump(c *Client, conn *host.Conn) {
	for {
		msg, err := conn.Recv(s.ctx)
		if err != nil {
			c.leave()
			if !host.IsClosed(err) {
				log.Debug().Err(err).Str("client", c.ID).Msg("pump stopped")
			}
			return
		}
		if msg.Kind() == protocol.KindEnd {
			c.leave()
		}
		data, err := protocol.Encode(msg)
		if err != nil {
			log.Error().Err(err).Str("client", c.ID).Msg("encode battle message")
			continue
		}
		if err := c.write(data); err != nil {
			log.Warn().Err(err).Str("client", c.ID).Str("message", string(msg.Kind())).Msg("write failed")
		}
	}
}

func (s *Server) SendResponse(c *Client, response Response) {
	data, err := json.Marshal(response)
	if err != nil {
		log.Error().Err(err).Str("type", response.Type).Msg("marshal response")
		return
	}
	if err := c.write(data); err != nil {
		log.Warn().Err(err).Str("client", c.ID).Str("type", response.Type).Msg("failed to send response")
	}
}

// HandleDisconnection forfeits any battle c is in and forgets it.
func (s *Server) HandleDisconnection(c *Client) {
	s.lobby.Leave(c)
	if conn, room := c.current(); conn != nil {
		log.Info().Str("client", c.ID).Str("battle", room).Msg("player left mid battle")
		conn.Close()
	}
	s.mu.Lock()
	if s.clients[c.Username] == c {
		delete(s.clients, c.Username)
	}
	s.mu.Unlock()
	c.ws.Close()
	log.Info().Str("client", c.ID).Str("username", c.Username).Msg("client disconnected")
}

func (c *Client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}
