package host

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/looplab/fsm"
	"github.com/ross1116/pokebattle/internal/battle"
	"github.com/ross1116/pokebattle/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	StateIdle       = "idle"
	StateCollecting = "collecting"
	StateResolving  = "resolving"
	StateReporting  = "reporting"
	StateEnded      = "ended"
)

// TimeoutPolicy decides what happens to a side that misses the turn
// deadline.
type TimeoutPolicy uint8

const (
	// PolicyRepeat reuses the last move while it is legal, then the first
	// usable move, then the first legal switch.
	PolicyRepeat TimeoutPolicy = iota
	PolicyForfeit
)

func (p TimeoutPolicy) String() string {
	if p == PolicyForfeit {
		return "forfeit"
	}
	return "repeat"
}

func (p TimeoutPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *TimeoutPolicy) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "repeat", "":
		*p = PolicyRepeat
	case "forfeit":
		*p = PolicyForfeit
	default:
		return fmt.Errorf("unknown timeout policy %q", b)
	}
	return nil
}

type Options struct {
	// TurnTimeout of zero waits forever.
	TurnTimeout time.Duration
	Policy      TimeoutPolicy
	// Tick is how often Run polls when no message arrives.
	Tick time.Duration
}

// Host owns one battle. Participants talk to it only through their Conn;
// every call on Host must come from a single goroutine, normally Run.
type Host struct {
	b     *battle.Battle
	conns []*Conn
	opts  Options
	state *fsm.FSM

	deadline time.Time
	gone     []bool
	wake     chan struct{}
	log      zerolog.Logger
}

// New binds one Conn per side of b, in side order.
func New(b *battle.Battle, conns []*Conn, opts Options) (*Host, error) {
	if len(conns) != b.Sides() {
		return nil, fmt.Errorf("host: %d connections for %d sides", len(conns), b.Sides())
	}
	if opts.Tick <= 0 {
		opts.Tick = 50 * time.Millisecond
	}
	h := &Host{
		b:     b,
		conns: conns,
		opts:  opts,
		gone:  make([]bool, len(conns)),
		wake:  make(chan struct{}, 1),
		log:   log.With().Str("battle", b.ID).Logger(),
	}
	h.state = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: "start", Src: []string{StateIdle}, Dst: StateCollecting},
			{Name: "resolve", Src: []string{StateCollecting}, Dst: StateResolving},
			{Name: "report", Src: []string{StateResolving}, Dst: StateReporting},
			{Name: "collect", Src: []string{StateResolving, StateReporting}, Dst: StateCollecting},
			{Name: "finish", Src: []string{StateCollecting, StateReporting}, Dst: StateEnded},
			{Name: "abort", Src: []string{StateIdle, StateCollecting, StateResolving, StateReporting}, Dst: StateEnded},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				h.log.Debug().Str("from", e.Src).Str("to", e.Dst).Msg("host state")
			},
		},
	)
	for _, c := range conns {
		c.inbox.wakeWith(h.wake)
	}
	return h, nil
}

func (h *Host) State() string          { return h.state.Current() }
func (h *Host) Ended() bool            { return h.state.Current() == StateEnded }
func (h *Host) Battle() *battle.Battle { return h.b }

// Start sends every participant its own party, the opponents it faces and
// the first request.
func (h *Host) Start(now time.Time) {
	if h.State() != StateIdle {
		return
	}
	h.fire("start")
	for side, c := range h.conns {
		c.deliver(h.playerData(side))
		for other := range h.conns {
			if other == side {
				continue
			}
			p := h.b.Party(other)
			c.deliver(protocol.AddOpponent{
				Side: other, ID: p.ID, Name: p.Name, Size: len(p.Members), Active: p.ActiveIndices(),
			})
		}
	}
	h.broadcast(h.b.Start(), false)
	h.log.Info().Int("sides", len(h.conns)).Msg("battle started")
	h.nextTurn(now)
}

// Tick drains every inbox, applies deadlines and resolves the turn once all
// selections are in.
func (h *Host) Tick(now time.Time) {
	if h.State() != StateCollecting {
		return
	}
	for side, c := range h.conns {
		for _, m := range c.inbox.Drain() {
			h.handle(side, m)
		}
		if c.inbox.Closed() && !h.gone[side] {
			h.gone[side] = true
			h.log.Info().Int("side", side).Str("participant", c.Name).Msg("participant disconnected")
			h.broadcast(h.b.Forfeit(side), false)
		}
	}
	if h.b.Ended() {
		h.finish("finish")
		return
	}
	if !h.deadline.IsZero() && !now.Before(h.deadline) {
		h.timeout()
	}
	if h.b.Ended() {
		h.finish("finish")
		return
	}
	if h.b.Ready() {
		h.resolve(now)
	}
}

// Run drives the host until the battle ends. Cancelling ctx aborts the
// battle; participants still receive End.
func (h *Host) Run(ctx context.Context) error {
	h.Start(time.Now())
	ticker := time.NewTicker(h.opts.Tick)
	defer ticker.Stop()
	for !h.Ended() {
		select {
		case <-ctx.Done():
			h.Abort()
			return ctx.Err()
		case <-h.wake:
		case <-ticker.C:
		}
		h.Tick(time.Now())
	}
	return nil
}

// Abort ends the battle from outside.
func (h *Host) Abort() {
	if h.Ended() {
		return
	}
	h.broadcast(h.b.Abort(), false)
	h.finish("abort")
}

func (h *Host) handle(side int, m protocol.ClientMessage) {
	switch m := m.(type) {
	case protocol.Select:
		rep, err := h.b.Submit(side, m.Slot, m.Selection)
		if err != nil {
			h.reject(side, m.Slot, err)
			return
		}
		if rep != nil {
			h.broadcast(*rep, false)
			h.request(side)
		}
	case protocol.Forfeit:
		h.broadcast(h.b.Forfeit(side), false)
	default:
		h.log.Warn().Int("side", side).Msgf("unexpected message %T", m)
	}
}

func (h *Host) reject(side, slot int, err error) {
	c := h.conns[side]
	reason := err.Error()
	var se *battle.SelectionError
	if errors.As(err, &se) {
		reason = se.Reason
	}
	switch {
	case errors.Is(err, battle.ErrBattleEnded):
	case errors.Is(err, battle.ErrProtocolViolation):
		h.log.Warn().Err(err).Int("side", side).Msg("protocol violation")
	case errors.Is(err, battle.ErrDesync):
		h.log.Warn().Err(err).Int("side", side).Msg("participant out of sync")
		c.deliver(h.resync(side))
		c.deliver(protocol.Rejected{Slot: slot, Code: "desync", Reason: reason})
		h.request(side)
	default:
		h.log.Debug().Err(err).Int("side", side).Msg("selection rejected")
		c.deliver(protocol.Rejected{Slot: slot, Code: "invalid", Reason: reason})
	}
}

// timeout fills every missing selection according to the policy.
func (h *Host) timeout() {
	for side := range h.conns {
		if h.b.Lost(side) || (len(h.b.Owed(side)) == 0 && len(h.b.Pending(side)) == 0) {
			continue
		}
		h.log.Info().Int("side", side).Stringer("policy", h.opts.Policy).Msg("turn timed out")
		if h.opts.Policy == PolicyForfeit {
			h.broadcast(h.b.Forfeit(side), false)
			continue
		}
		for _, slot := range h.b.Owed(side) {
			h.fallback(side, slot)
		}
		for _, slot := range h.b.Pending(side) {
			h.fallback(side, slot)
		}
	}
}

func (h *Host) fallback(side, slot int) {
	sel := h.b.Fallback(side, slot, true)
	rep, err := h.b.Submit(side, slot, sel)
	if err != nil {
		h.log.Error().Err(err).Int("side", side).Int("slot", slot).Msg("fallback selection refused")
		h.broadcast(h.b.Forfeit(side), false)
		return
	}
	if rep != nil {
		h.broadcast(*rep, false)
	}
}

func (h *Host) resolve(now time.Time) {
	h.fire("resolve")
	rep, err := h.b.Resolve()
	if err != nil {
		h.log.Error().Err(err).Msg("resolve turn")
		h.fire("collect")
		return
	}
	h.fire("report")
	h.broadcast(rep, true)
	if rep.Ended {
		h.finish("finish")
		return
	}
	h.fire("collect")
	h.nextTurn(now)
}

func (h *Host) nextTurn(now time.Time) {
	h.deadline = time.Time{}
	if h.opts.TurnTimeout > 0 {
		h.deadline = now.Add(h.opts.TurnTimeout)
	}
	for side := range h.conns {
		h.request(side)
	}
}

func (h *Host) request(side int) {
	if h.b.Ended() || h.b.Lost(side) {
		return
	}
	if owed := h.b.Owed(side); len(owed) > 0 {
		h.conns[side].deliver(protocol.Request{Turn: h.b.Turn(), Slots: owed, Replace: true})
		return
	}
	if pending := h.b.Pending(side); len(pending) > 0 {
		h.conns[side].deliver(protocol.Request{Turn: h.b.Turn(), Slots: pending})
	}
}

// broadcast hands each participant its share of rep: results first, then
// reveals, then replacements.
func (h *Host) broadcast(rep battle.TurnReport, results bool) {
	for viewer, c := range h.conns {
		if results || len(rep.Results) > 0 {
			c.deliver(protocol.Results{Turn: rep.Turn, Results: battle.ForViewer(rep.Results, viewer)})
		}
		for _, rv := range rep.RevealsFor(viewer) {
			c.deliver(protocol.Reveal{Side: rv.Side, Index: rv.Index, Pokemon: rv.Pokemon})
		}
		for _, r := range rep.Replaces {
			c.deliver(protocol.Replace{Side: r.Side, Slot: r.Slot, Index: r.Index})
		}
	}
}

func (h *Host) finish(event string) {
	w, _ := h.b.Winner()
	for _, c := range h.conns {
		c.deliver(protocol.End{Winner: w})
		c.hangUp()
	}
	h.fire(event)
	h.log.Info().Int("winner", w).Int("turns", h.b.Turn()).Msg("battle ended")
}

func (h *Host) playerData(side int) protocol.PlayerData {
	p := h.b.Party(side)
	return protocol.PlayerData{
		Battle:      h.b.ID,
		Side:        side,
		Type:        h.b.Data.Type,
		ActiveSlots: h.b.Data.ActiveSlots,
		PartyID:     p.ID,
		Name:        p.Name,
		Party:       p.Save(),
		Active:      p.ActiveIndices(),
		Bag:         maps.Clone(p.Bag),
	}
}

func (h *Host) resync(side int) protocol.Resync {
	rs := protocol.Resync{Turn: h.b.Turn(), Player: h.playerData(side)}
	for other := range h.conns {
		if other != side {
			rs.Opponents = append(rs.Opponents, protocol.Opponent{Side: other, Party: h.b.Projection(side, other)})
		}
	}
	return rs
}

func (h *Host) fire(event string) {
	if err := h.state.Event(context.Background(), event); err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("host transition")
	}
}
