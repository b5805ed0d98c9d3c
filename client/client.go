// Package client is the terminal front end: it speaks the lobby messages,
// prints battles from the protocol messages and turns typed commands into
// selections.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ross1116/pokebattle/internal/protocol"
	"github.com/rs/zerolog/log"
)

const writeWait = 10 * time.Second

func New(config Config, out io.Writer) *Client {
	return &Client{Config: config, out: &syncWriter{w: out}}
}

// Connect dials the server, which registers the username from the URL, and
// starts reading frames in the background.
func (c *Client) Connect(ctx context.Context) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.Config.URL(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to server %s: %w", c.Config.URL(), err)
	}
	c.mu.Lock()
	c.ws = ws
	c.connected = true
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()
	log.Debug().Str("url", c.Config.URL()).Msg("connected")
	go c.handleIncomingMessages(ws, done)
	return nil
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Done is closed when the connection drops.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Client) GetPlayers() error {
	return c.SendRequest(request{Type: "get_players"})
}

// Matchmake challenges opponent, or joins the queue when opponent is empty.
// ai accepts a computer opponent if nobody else turns up.
func (c *Client) Matchmake(opponent string, ai bool) error {
	return c.SendRequest(request{Type: "matchmake", Opponent: opponent, AI: ai})
}

func (c *Client) SendRequest(req request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.write(data)
}

// Send writes a battle message.
func (c *Client) Send(m protocol.ClientMessage) error {
	data, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return errors.New("not connected to server")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.Disconnect()
		return fmt.Errorf("failed to send: %w", err)
	}
	return nil
}

func (c *Client) handleIncomingMessages(ws *websocket.Conn, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		if c.ws == ws {
			c.ws = nil
			c.connected = false
		}
		c.mu.Unlock()
		ws.Close()
		close(done)
	}()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("connection lost")
			}
			return
		}
		c.ProcessFrame(data)
	}
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	c.connected = false
	c.session = nil
	c.mu.Unlock()
	if ws != nil {
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		ws.Close()
	}
}

// Run reads commands from in until it ends, ctx is cancelled or the
// connection drops.
func (c *Client) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprint(c.out, "Type 'help' for commands.\n> ")
	done := c.Done()
	for {
		select {
		case <-ctx.Done():
			c.Disconnect()
			return ctx.Err()
		case <-done:
			fmt.Fprintln(c.out, "\nDisconnected from server.")
			return nil
		case line, ok := <-lines:
			if !ok {
				c.Disconnect()
				return nil
			}
			if quit := c.handleLine(line); quit {
				c.Disconnect()
				return nil
			}
		}
	}
}

func (c *Client) handleLine(line string) (quit bool) {
	if line == "" {
		return false
	}
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s != nil {
		c.handleGameInput(s, line)
		return false
	}

	args := strings.Fields(line)
	var err error
	switch args[0] {
	case "help":
		fmt.Fprintln(c.out, "\nAvailable commands:")
		fmt.Fprintln(c.out, "  players          - List online players")
		fmt.Fprintln(c.out, "  match <username> - Challenge a player to a battle")
		fmt.Fprintln(c.out, "  queue [ai]       - Wait for any opponent, or the AI if nobody comes")
		fmt.Fprintln(c.out, "  quit             - Disconnect and exit")
		fmt.Fprintln(c.out, battleHelp)
		fmt.Fprint(c.out, "> ")
	case "quit", "exit":
		fmt.Fprintln(c.out, "Disconnecting and exiting...")
		return true
	case "players":
		err = c.GetPlayers()
	case "match":
		if len(args) < 2 {
			fmt.Fprint(c.out, "Usage: match <username>\n> ")
			return false
		}
		if args[1] == c.Config.Username {
			fmt.Fprint(c.out, "You cannot match with yourself.\n> ")
			return false
		}
		fmt.Fprintf(c.out, "Attempting to match with %s...\n", args[1])
		err = c.Matchmake(args[1], false)
	case "queue":
		err = c.Matchmake("", len(args) > 1 && args[1] == "ai")
	default:
		fmt.Fprint(c.out, "Unknown command. Type 'help' for a list of commands.\n> ")
	}
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n> ", err)
	}
	return false
}

func (c *Client) handleGameInput(s *Session, line string) {
	if line == "help" {
		fmt.Fprintln(c.out, battleHelp)
		return
	}
	c.mu.Lock()
	msg, err := s.Input(line)
	c.mu.Unlock()
	if err != nil {
		fmt.Fprintf(c.out, "%v\n", err)
		return
	}
	if err := c.Send(msg); err != nil {
		fmt.Fprintf(c.out, "Failed to send action: %v\n", err)
	}
}
