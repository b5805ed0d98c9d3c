package client

import (
	"encoding/json"
	"fmt"

	"github.com/ross1116/pokebattle/internal/protocol"
	"github.com/rs/zerolog/log"
)

// frame is either a lobby Message or a protocol envelope; only the latter
// carries data.
type frame struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Message map[string]any  `json:"message"`
}

// ProcessFrame routes one frame from the server.
func (c *Client) ProcessFrame(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		log.Warn().Err(err).Msg("undecodable frame")
		return
	}
	if len(f.Data) > 0 {
		m, err := protocol.DecodeServer(data)
		if err != nil {
			log.Warn().Err(err).Str("type", f.Type).Msg("bad battle message")
			return
		}
		c.handleBattleMessage(m)
		return
	}
	c.ProcessMessage(Message{Type: f.Type, Message: f.Message})
}

func (c *Client) ProcessMessage(msg Message) {
	switch msg.Type {
	case typeRegistered:
		fmt.Fprintf(c.out, "\nRegistered as %v\n> ", msg.Message["username"])
	case typePlayerList:
		c.processPlayerList(msg)
	case typeQueued:
		fmt.Fprint(c.out, "\nWaiting for an opponent...\n")
	case typeMatchStart:
		c.processMatchStart(msg)
	case typeError:
		fmt.Fprintf(c.out, "\nServer error: %v\n> ", msg.Message["error"])
	default:
		log.Debug().Str("type", msg.Type).Msg("unknown message type")
	}
}

func (c *Client) processPlayerList(msg Message) {
	players, _ := msg.Message["players"].([]any)
	fmt.Fprintln(c.out, "\nConnected players:")
	others := 0
	for _, p := range players {
		name, ok := p.(string)
		if !ok {
			continue
		}
		if name == c.Config.Username {
			fmt.Fprintf(c.out, "- %s (you)\n", name)
			continue
		}
		others++
		fmt.Fprintf(c.out, "- %s\n", name)
	}
	if others == 0 {
		fmt.Fprintln(c.out, "(No other players online)")
	}
	fmt.Fprint(c.out, "> ")
}

func (c *Client) processMatchStart(msg Message) {
	opponent, _ := msg.Message["opponent"].(string)
	c.mu.Lock()
	c.opponent = opponent
	c.session = NewSession(nil, c.out)
	c.mu.Unlock()
	fmt.Fprintf(c.out, "\nMatch found with %s! Waiting for the battle to start...\n", opponent)
}

func (c *Client) handleBattleMessage(m protocol.ServerMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		log.Warn().Str("message", string(m.Kind())).Msg("battle message outside a match")
		return
	}
	if err := c.session.Handle(m); err != nil {
		log.Warn().Err(err).Str("message", string(m.Kind())).Msg("could not apply battle message")
	}
	if _, ok := m.(protocol.End); ok {
		c.session = nil
		c.opponent = ""
		fmt.Fprint(c.out, "=== Exited Battle Mode ===\n> ")
	}
}
