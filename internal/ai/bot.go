// Package ai is a computer participant. It plays through the same messages a
// human client receives and never sees more than they do.
package ai

import (
	"context"
	"slices"

	"github.com/ross1116/pokebattle/internal/battle"
	"github.com/ross1116/pokebattle/internal/participant"
	"github.com/ross1116/pokebattle/internal/pokemon"
	"github.com/ross1116/pokebattle/internal/protocol"
	"github.com/ross1116/pokebattle/internal/random"
	"github.com/ross1116/pokebattle/internal/stats"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Opponent stats are guessed from species base stats with these.
var neutralIVs = stats.Set{15, 15, 15, 15, 15, 15}

const maxRetries = 3

type Bot struct {
	Name string

	tracker  *participant.Tracker
	dex      *pokemon.Dex
	pipeline *battle.Pipeline
	rng      *random.Engine
	retries  int
	log      zerolog.Logger
}

// New makes a bot. Ties between equally good choices are broken by its own
// engine seeded with seed, so the host's stream is never touched.
func New(name string, dex *pokemon.Dex, seed uint64) *Bot {
	if dex == nil {
		dex = pokemon.Default()
	}
	return &Bot{
		Name:     name,
		tracker:  participant.New(dex),
		dex:      dex,
		pipeline: battle.NewPipeline(dex.Chart(), battle.DefaultScripts()),
		rng:      random.Seeded(seed),
		log:      log.With().Str("participant", name).Logger(),
	}
}

func (b *Bot) Tracker() *participant.Tracker { return b.tracker }

// Run plays until the battle ends or the endpoint fails.
func (b *Bot) Run(ctx context.Context, ep protocol.Endpoint) error {
	for {
		m, err := ep.Recv(ctx)
		if err != nil {
			return err
		}
		if err := b.tracker.Apply(m); err != nil {
			b.log.Warn().Err(err).Str("message", string(m.Kind())).Msg("could not apply message")
			continue
		}
		switch m := m.(type) {
		case protocol.Request:
			b.retries = 0
			if err := b.send(ep, b.Decide(m)); err != nil {
				return err
			}
		case protocol.Rejected:
			if err := b.retry(ep, m); err != nil {
				return err
			}
		case protocol.End:
			b.log.Debug().Int("winner", m.Winner).Msg("battle over")
			return nil
		}
	}
}

// send delivers the selections. A forfeit in any slot concedes at once
// instead of waiting for the turn.
func (b *Bot) send(ep protocol.Endpoint, sels []protocol.Select) error {
	for _, s := range sels {
		if s.Selection.Kind == battle.SelectForfeit {
			b.log.Info().Msg("no legal action left, forfeiting")
			return ep.Send(protocol.Forfeit{})
		}
	}
	for _, s := range sels {
		b.log.Debug().Int("slot", s.Slot).Stringer("selection", s.Selection).Msg("selected")
		if err := ep.Send(s); err != nil {
			return err
		}
	}
	return nil
}

// retry answers a rejected selection again, and forfeits when the host keeps
// refusing.
func (b *Bot) retry(ep protocol.Endpoint, rej protocol.Rejected) error {
	req := b.tracker.Request
	if req == nil || rej.Code == "desync" {
		return nil
	}
	b.retries++
	b.log.Warn().Int("slot", rej.Slot).Str("reason", rej.Reason).Int("retry", b.retries).Msg("selection rejected")
	if b.retries > maxRetries {
		return ep.Send(protocol.Forfeit{})
	}
	one := protocol.Request{Turn: req.Turn, Slots: []int{rej.Slot}, Replace: req.Replace}
	return b.send(ep, b.Decide(one))
}

type foe struct {
	ref battle.SlotRef
	mon *pokemon.Pokemon
}

// Decide answers a request from the tracked state. It reads the tracker but
// never changes it.
func (b *Bot) Decide(req protocol.Request) []protocol.Select {
	own := b.tracker.Own
	if own == nil {
		return nil
	}
	foes := b.foes()
	var out []protocol.Select
	var switching []int
	for _, slot := range req.Slots {
		var sel battle.Selection
		if req.Replace {
			sel = battle.Forfeit()
			if i := b.bestReplacement(foes, switching); i != battle.Empty {
				sel = battle.SwitchTo(i)
			}
		} else {
			sel = b.decideSlot(slot, foes, switching)
		}
		if sel.Kind == battle.SelectSwitch {
			switching = append(switching, sel.Index)
		}
		out = append(out, protocol.Select{Slot: slot, Selection: sel})
		if sel.Kind == battle.SelectForfeit {
			break
		}
	}
	return out
}

func (b *Bot) decideSlot(slot int, foes []foe, switching []int) battle.Selection {
	user, ok := b.tracker.Own.Active(slot)
	if !ok {
		return battle.Forfeit()
	}
	var usable []pokemon.MoveSlot
	best, bestScore := []battle.Selection(nil), 0.0
	for i, ms := range user.Moves {
		if !user.CanUse(i) {
			continue
		}
		usable = append(usable, ms)
		score, target := b.score(user, ms.Move, foes)
		if score <= 0 {
			continue
		}
		sel := battle.UseMove(i, target)
		switch {
		case score > bestScore+1e-9:
			best, bestScore = []battle.Selection{sel}, score
		case score > bestScore-1e-9:
			best = append(best, sel)
		}
	}
	if len(best) > 0 {
		return best[b.rng.Range(0, len(best))]
	}
	if len(usable) > 0 {
		// nothing is known to hurt, so prefer anything that deals damage
		pool := pokemon.FilterDamaging(usable)
		if len(pool) == 0 {
			pool = usable
		}
		pick := pool[b.rng.Range(0, len(pool))]
		i := slices.IndexFunc(user.Moves, func(ms pokemon.MoveSlot) bool { return ms.Move == pick.Move })
		return battle.UseMove(i, nil)
	}
	if i := b.bestReplacement(foes, switching); i != battle.Empty {
		return battle.SwitchTo(i)
	}
	return battle.Forfeit()
}

// score is the estimated damage of move. Spread moves add up over every foe;
// single target moves report the foe they hurt most.
func (b *Bot) score(user *pokemon.Pokemon, move *pokemon.Move, foes []foe) (float64, *battle.SlotRef) {
	switch move.Target {
	case pokemon.TargetSelf:
		return 0, nil
	case pokemon.TargetAllOpponents:
		var total float64
		for _, f := range foes {
			total += b.pipeline.Estimate(user, move, f.mon)
		}
		return total, nil
	}
	var best float64
	var target *battle.SlotRef
	for _, f := range foes {
		if e := b.pipeline.Estimate(user, move, f.mon); e > best {
			best = e
			ref := f.ref
			target = &ref
		}
	}
	return best, target
}

// bestReplacement picks the standing bench member with the best damage
// estimate against the known foes.
func (b *Bot) bestReplacement(foes []foe, exclude []int) int {
	own := b.tracker.Own
	var best []int
	bestScore := -1.0
	for i, m := range own.Members {
		if m.Fainted() || own.IsActive(i) || slices.Contains(exclude, i) {
			continue
		}
		var score float64
		for j, ms := range m.Moves {
			if m.CanUse(j) {
				s, _ := b.score(m, ms.Move, foes)
				score = max(score, s)
			}
		}
		switch {
		case score > bestScore+1e-9:
			best, bestScore = []int{i}, score
		case score > bestScore-1e-9:
			best = append(best, i)
		}
	}
	if len(best) == 0 {
		return battle.Empty
	}
	return best[b.rng.Range(0, len(best))]
}

// foes builds stand-ins for every revealed, standing opponent in an active
// slot. They exist only for estimates.
func (b *Bot) foes() []foe {
	var out []foe
	for _, side := range b.tracker.OpponentSides() {
		opp := b.tracker.Opponents[side]
		for slot, idx := range opp.Slots {
			u, ok := opp.Member(idx)
			if !ok || !u.Revealed() || u.Fainted() {
				continue
			}
			sp, err := b.dex.Species(u.Species)
			if err != nil {
				continue
			}
			m := pokemon.New(sp, max(u.Lvl, 1), neutralIVs, stats.Set{})
			m.SetHP(max(m.MaxHP()*u.Percent/100, 1))
			if u.Status != nil {
				st := *u.Status
				m.Status = &st
			}
			out = append(out, foe{ref: battle.SlotRef{Side: side, Slot: slot}, mon: m})
		}
	}
	return out
}
