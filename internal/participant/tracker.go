// Package participant keeps what one side of a battle knows, built only from
// the messages the host sends it.
package participant

import (
	"fmt"
	"maps"
	"slices"

	"github.com/ross1116/pokebattle/internal/battle"
	"github.com/ross1116/pokebattle/internal/pokemon"
	"github.com/ross1116/pokebattle/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Tracker mirrors the participant's own party exactly and every opponent as
// far as it has been revealed.
type Tracker struct {
	Battle      string
	Side        int
	Type        battle.BattleType
	ActiveSlots []int

	Own       *battle.Party
	Opponents map[int]*battle.UnknownParty

	Turn         int
	Request      *protocol.Request
	LastRejected *protocol.Rejected
	Ended        bool
	Winner       int

	dex *pokemon.Dex
	log zerolog.Logger
}

func New(dex *pokemon.Dex) *Tracker {
	if dex == nil {
		dex = pokemon.Default()
	}
	return &Tracker{
		Side:      -1,
		Opponents: map[int]*battle.UnknownParty{},
		Winner:    battle.NoWinner,
		dex:       dex,
		log:       log.Logger,
	}
}

func (t *Tracker) Dex() *pokemon.Dex { return t.dex }

// Apply folds one server message into the tracked state. An error means the
// tracker can no longer trust its state and should wait for a resync.
func (t *Tracker) Apply(m protocol.ServerMessage) error {
	switch m := m.(type) {
	case protocol.PlayerData:
		return t.setPlayer(m)

	case protocol.AddOpponent:
		t.Opponents[m.Side] = battle.NewUnknownParty(m.ID, m.Name, m.Size, m.Active)

	case protocol.Request:
		req := m
		t.Request = &req
		t.Turn = m.Turn
		t.LastRejected = nil

	case protocol.Results:
		t.Turn = m.Turn
		for _, r := range m.Results {
			if err := t.apply(r); err != nil {
				return err
			}
		}

	case protocol.Reveal:
		if m.Side == t.Side {
			return nil
		}
		opp, err := t.opponent(m.Side)
		if err != nil {
			return err
		}
		return desync(opp.Reveal(m.Index, m.Pokemon))

	case protocol.Replace:
		view, ok := t.View(m.Side)
		if !ok {
			return fmt.Errorf("%w: replace on unknown side %d", battle.ErrDesync, m.Side)
		}
		return desync(view.Replace(m.Slot, m.Index))

	case protocol.Rejected:
		rej := m
		t.LastRejected = &rej
		t.log.Debug().Int("slot", m.Slot).Str("code", m.Code).Str("reason", m.Reason).Msg("selection rejected")

	case protocol.Resync:
		if err := t.setPlayer(m.Player); err != nil {
			return err
		}
		t.Turn = m.Turn
		t.Opponents = map[int]*battle.UnknownParty{}
		for _, o := range m.Opponents {
			if o.Party != nil {
				t.Opponents[o.Side] = o.Party
			}
		}

	case protocol.End:
		t.Ended = true
		t.Winner = m.Winner
		t.Request = nil
	}
	return nil
}

// View returns the party on side as this participant sees it.
func (t *Tracker) View(side int) (battle.PartyView, bool) {
	if side == t.Side && t.Own != nil {
		return battle.KnownParty{Party: t.Own}, true
	}
	opp, ok := t.Opponents[side]
	if !ok {
		return nil, false
	}
	return opp, true
}

// OpponentSides lists opposing sides in ascending order.
func (t *Tracker) OpponentSides() []int {
	return slices.Sorted(maps.Keys(t.Opponents))
}

func (t *Tracker) setPlayer(m protocol.PlayerData) error {
	p, err := battle.RestoreParty(t.dex, m.PartyID, m.Name, m.Party, m.Active, m.Bag)
	if err != nil {
		return fmt.Errorf("%w: %v", battle.ErrDesync, err)
	}
	t.Battle, t.Side, t.Type = m.Battle, m.Side, m.Type
	t.ActiveSlots = append([]int(nil), m.ActiveSlots...)
	t.Own = p
	t.log = log.With().Str("battle", m.Battle).Int("side", m.Side).Logger()
	return nil
}

func (t *Tracker) apply(r battle.ActionOutcome) error {
	if r.Kind == battle.ActionForfeit {
		return nil
	}
	if r.Side == t.Side {
		if err := t.applyOwnActor(r); err != nil {
			return err
		}
	} else if opp, ok := t.Opponents[r.Side]; ok {
		if m, ok := opp.Member(r.Index); ok {
			if r.Kind == battle.ActionMove && r.Skipped == "" {
				m.SawMove(r.Move)
			}
			if r.Woke {
				m.SetEffect(nil)
			}
			if r.SnappedOut {
				m.Confused = false
			}
			m.SetHP(r.Percent)
		}
	}
	for _, to := range r.Targets {
		if to.Kind == battle.NoTarget {
			continue
		}
		if to.Side == t.Side {
			m, err := t.own(to.Index)
			if err != nil {
				return err
			}
			m.SetHP(to.HP)
			if to.Cured {
				m.Cure()
			}
			if to.Inflicted != pokemon.NoStatus {
				m.Afflict(pokemon.Status{Kind: to.Inflicted})
			}
			// the host keeps the real count; the mirror only marks it
			if to.Confused {
				m.Confuse(1)
			}
			for _, sc := range to.Stages {
				m.ChangeStage(sc.Stat, sc.Delta)
			}
			continue
		}
		opp, err := t.opponent(to.Side)
		if err != nil {
			return err
		}
		m, ok := opp.Member(to.Index)
		if !ok {
			return fmt.Errorf("%w: side %d has no member %d", battle.ErrDesync, to.Side, to.Index)
		}
		if to.Cured {
			m.SetEffect(nil)
		}
		if to.Inflicted != pokemon.NoStatus {
			m.SetEffect(&pokemon.Status{Kind: to.Inflicted})
		}
		if to.Confused && m.Revealed() {
			m.Confused = true
		}
		m.SetHP(to.Percent)
	}
	return nil
}

func (t *Tracker) applyOwnActor(r battle.ActionOutcome) error {
	m, err := t.own(r.Index)
	if err != nil {
		return err
	}
	switch r.Kind {
	case battle.ActionMove:
		if r.Woke {
			m.Cure()
		}
		if r.Skipped == "" {
			if i := slices.IndexFunc(m.Moves, func(s pokemon.MoveSlot) bool { return s.Move.ID == r.Move }); i >= 0 {
				m.SpendPP(i)
			}
		} else if st := m.Status; st != nil && st.Timed() && st.Turns > 0 && r.Skipped == st.Kind.String() {
			st.Turns--
		}
		if r.SnappedOut {
			m.Volatile.Confused = 0
		}
		m.GainExperience(r.Experience)
	case battle.ActionStatus:
		if m.Status != nil && m.Status.Kind == pokemon.BadlyPoisoned {
			m.Status.Turns++
		}
	case battle.ActionItem:
		t.Own.Take(r.Item)
	}
	m.SetHP(r.HP)
	return nil
}

func (t *Tracker) own(index int) (*pokemon.Pokemon, error) {
	if t.Own == nil || index < 0 || index >= len(t.Own.Members) {
		return nil, fmt.Errorf("%w: no own member %d", battle.ErrDesync, index)
	}
	return t.Own.Members[index], nil
}

func (t *Tracker) opponent(side int) (*battle.UnknownParty, error) {
	opp, ok := t.Opponents[side]
	if !ok {
		return nil, fmt.Errorf("%w: unknown opponent side %d", battle.ErrDesync, side)
	}
	return opp, nil
}

func desync(err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", battle.ErrDesync, err)
	}
	return nil
}
