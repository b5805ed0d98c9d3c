package participant_test

import (
	"fmt"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/ross1116/pokebattle/internal/battle"
	"github.com/ross1116/pokebattle/internal/host"
	"github.com/ross1116/pokebattle/internal/participant"
	"github.com/ross1116/pokebattle/internal/pokemon"
	"github.com/ross1116/pokebattle/internal/protocol"
	"github.com/ross1116/pokebattle/internal/random"
	"github.com/ross1116/pokebattle/internal/stats"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(m.Run())
}

var now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newHost(t require.TestingT, seed uint64, size, slots int) (*host.Host, []*host.Conn) {
	dex := pokemon.Default()
	gen := random.Seeded(seed)
	parties := make([]*battle.Party, 2)
	conns := make([]*host.Conn, 2)
	for side := range parties {
		squad, err := dex.RandomSquad(gen, size, 5, 40)
		require.NoError(t, err)
		parties[side], err = battle.NewParty(fmt.Sprintf("side-%d", side), squad, slots)
		require.NoError(t, err)
		parties[side].Bag["potion"] = 2
		parties[side].Bag["antidote"] = 1
		conns[side] = host.NewConn(parties[side].Name)
	}
	b, err := battle.New(battle.Setup{
		Data:    battle.NewBattleData(battle.Trainer, slots, slots),
		Parties: parties,
		RNG:     random.Seeded(seed + 1),
	})
	require.NoError(t, err)
	h, err := host.New(b, conns, host.Options{})
	require.NoError(t, err)
	return h, conns
}

// choose answers a request with legal selections, looking at the host's
// state directly.
func choose(b *battle.Battle, rng *random.Engine, side int, req protocol.Request) []protocol.Select {
	if req.Replace {
		slot := req.Slots[0]
		return []protocol.Select{{Slot: slot, Selection: b.Fallback(side, slot, true)}}
	}
	var out []protocol.Select
	var switching []int
	itemUsed := false
	for _, slot := range req.Slots {
		var options, switches []battle.Selection
		party := b.Party(side)
		for i := range party.Members {
			if sel := battle.SwitchTo(i); !slices.Contains(switching, i) && b.Validate(side, slot, sel) == nil {
				switches = append(switches, sel)
				if rng.Chance(1, 6) {
					options = append(options, sel)
				}
			}
			// one potion per turn keeps the bag check simple
			if sel := battle.UseItem("potion", i); !itemUsed && rng.Chance(1, 10) && b.Validate(side, slot, sel) == nil {
				options = append(options, sel)
			}
		}
		if user, ok := party.Active(slot); ok {
			for i := range user.Moves {
				if user.CanUse(i) {
					options = append(options, battle.UseMove(i, nil))
				}
			}
		}
		if len(options) == 0 {
			options = switches
		}
		sel := battle.Forfeit()
		if len(options) > 0 {
			sel = options[rng.Range(0, len(options))]
		}
		itemUsed = itemUsed || sel.Kind == battle.SelectItem
		if sel.Kind == battle.SelectSwitch {
			switching = append(switching, sel.Index)
		}
		out = append(out, protocol.Select{Slot: slot, Selection: sel})
	}
	return out
}

func requireMirrors(t require.TestingT, b *battle.Battle, tr *participant.Tracker) {
	side := tr.Side
	truth := b.Party(side)
	require.Equal(t, truth.ActiveIndices(), tr.Own.ActiveIndices())
	require.Equal(t, truth.Bag, tr.Own.Bag)
	for i, m := range truth.Members {
		o := tr.Own.Members[i]
		require.Equal(t, m.HP, o.HP, "member %d hp", i)
		require.Equal(t, m.Level, o.Level)
		require.Equal(t, m.Experience, o.Experience)
		require.Equal(t, m.Stages, o.Stages)
		require.Equal(t, m.Stats, o.Stats)
		for j := range m.Moves {
			require.Equal(t, m.Moves[j].PP, o.Moves[j].PP, "member %d move %d", i, j)
		}
		require.Equal(t, statusKind(m.Status), statusKind(o.Status), "member %d status", i)
		require.Equal(t, m.Volatile.Confused > 0, o.Volatile.Confused > 0, "member %d confusion", i)
	}

	for other := range b.Sides() {
		if other == side {
			continue
		}
		want := b.Projection(side, other)
		got, ok := tr.Opponents[other]
		require.True(t, ok)
		require.Equal(t, want.Slots, got.Slots)
		for i := range want.Members {
			w, g := want.Members[i], got.Members[i]
			require.Equal(t, w.Species, g.Species, "opponent %d", i)
			require.Equal(t, w.Percent, g.Percent, "opponent %d percent", i)
			require.Equal(t, w.Down, g.Down)
			require.Equal(t, statusKind(w.Status), statusKind(g.Status))
			require.Equal(t, w.Confused, g.Confused, "opponent %d confusion", i)
			require.ElementsMatch(t, w.Moves, g.Moves)
		}
	}
}

func statusKind(s *pokemon.Status) pokemon.StatusKind {
	if s == nil {
		return pokemon.NoStatus
	}
	return s.Kind
}

func TestTrackerMirrorsHost(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint64().Draw(t, "seed")
		size := rapid.IntRange(1, 4).Draw(t, "size")
		slots := rapid.IntRange(1, 2).Draw(t, "slots")

		h, conns := newHost(t, seed, size, slots)
		b := h.Battle()
		policy := random.Seeded(seed ^ 0xabc)
		trackers := []*participant.Tracker{participant.New(nil), participant.New(nil)}

		h.Start(now)
		for round := 0; round < 400; round++ {
			for side, c := range conns {
				tr := trackers[side]
				for _, m := range c.Pending() {
					require.NoError(t, tr.Apply(m), "%s", m.Kind())
				}
				require.Nil(t, tr.LastRejected)
				requireMirrors(t, b, tr)
				if tr.Request == nil || tr.Ended {
					continue
				}
				for _, sel := range choose(b, policy, side, *tr.Request) {
					require.NoError(t, c.Send(sel))
				}
				tr.Request = nil
			}
			if h.Ended() {
				break
			}
			h.Tick(now)
		}
		if !h.Ended() {
			return
		}
		w, _ := b.Winner()
		for side, c := range conns {
			for _, m := range c.Pending() {
				require.NoError(t, trackers[side].Apply(m))
			}
			assert.True(t, trackers[side].Ended)
			assert.Equal(t, w, trackers[side].Winner)
		}
	})
}

func TestTrackerBasics(t *testing.T) {
	dex := pokemon.Default()
	sp, err := dex.Species("pikachu")
	require.NoError(t, err)
	p := pokemon.New(sp, 20, stats.Set{}, stats.Set{})
	require.NoError(t, dex.LearnMoves(p))

	tr := participant.New(dex)
	require.NoError(t, tr.Apply(protocol.PlayerData{
		Battle: "b1", Side: 1, ActiveSlots: []int{1, 1}, PartyID: "me", Name: "ash",
		Party: []pokemon.Saved{p.Save()}, Active: []int{0}, Bag: map[string]int{"potion": 1},
	}))
	require.NoError(t, tr.Apply(protocol.AddOpponent{Side: 0, ID: "them", Name: "gary", Size: 2, Active: []int{0}}))
	assert.Equal(t, []int{0}, tr.OpponentSides())

	view, ok := tr.View(0)
	require.True(t, ok)
	mon, ok := view.Active(0)
	require.True(t, ok)
	assert.Equal(t, "Unknown", mon.Name())

	// an unrevealed member ignores updates
	mon.SetHP(10)
	assert.Zero(t, mon.HPPercent())

	require.NoError(t, tr.Apply(protocol.Reveal{Side: 0, Index: 0, Pokemon: battle.UnknownPokemon{Species: "gengar", Lvl: 30, Percent: 100}}))
	mon, _ = view.Active(0)
	assert.Equal(t, "Gengar", mon.Name())

	require.NoError(t, tr.Apply(protocol.Results{Turn: 0, Results: []battle.ActionOutcome{{
		Kind: battle.ActionMove, Side: 0, Slot: 0, Index: 0, Move: "shadow-ball", Percent: 100,
		Targets: []battle.TargetOutcome{{Side: 1, Slot: 0, Index: 0, Kind: battle.Hit, HP: 5, Percent: 10}},
	}}}))
	assert.Equal(t, 5, tr.Own.Members[0].HP)
	g, _ := tr.Opponents[0].Member(0)
	assert.Equal(t, []string{"shadow-ball"}, g.Moves)

	require.NoError(t, tr.Apply(protocol.Replace{Side: 0, Slot: 0, Index: 1}))
	assert.Equal(t, []int{1}, tr.Opponents[0].Slots)

	assert.ErrorIs(t, tr.Apply(protocol.Replace{Side: 3, Slot: 0, Index: 1}), battle.ErrDesync)
	assert.ErrorIs(t, tr.Apply(protocol.Reveal{Side: 0, Index: 9}), battle.ErrDesync)

	require.NoError(t, tr.Apply(protocol.Request{Turn: 1, Slots: []int{0}}))
	require.NotNil(t, tr.Request)
	require.NoError(t, tr.Apply(protocol.End{Winner: 0}))
	assert.True(t, tr.Ended)
	assert.Nil(t, tr.Request)
	assert.Equal(t, 0, tr.Winner)
}

func TestTrackerFollowsSwitchInThatFaints(t *testing.T) {
	dex := pokemon.Default()
	mon := func(species string, level int, move string) *pokemon.Pokemon {
		sp, err := dex.Species(species)
		require.NoError(t, err)
		p := pokemon.New(sp, level, stats.Set{15, 15, 15, 15, 15, 15}, stats.Set{})
		m, err := dex.Move(move)
		require.NoError(t, err)
		require.NoError(t, p.Learn(m))
		return p
	}
	mine, err := battle.NewParty("ash", []*pokemon.Pokemon{
		mon("snorlax", 50, "tackle"), mon("magnemite", 5, "tackle"), mon("pikachu", 20, "tackle"),
	}, 1)
	require.NoError(t, err)
	theirs, err := battle.NewParty("gary", []*pokemon.Pokemon{mon("golem", 100, "earthquake")}, 1)
	require.NoError(t, err)
	b, err := battle.New(battle.Setup{
		Data:    battle.NewBattleData(battle.Trainer, 1, 1),
		Parties: []*battle.Party{mine, theirs},
		RNG:     random.Seeded(3),
	})
	require.NoError(t, err)
	conns := []*host.Conn{host.NewConn("ash"), host.NewConn("gary")}
	h, err := host.New(b, conns, host.Options{})
	require.NoError(t, err)

	tr := participant.New(nil)
	h.Start(now)
	for _, m := range conns[0].Pending() {
		require.NoError(t, tr.Apply(m))
	}
	require.NoError(t, conns[0].Send(protocol.Select{Slot: 0, Selection: battle.SwitchTo(1)}))
	require.NoError(t, conns[1].Send(protocol.Select{Slot: 0, Selection: battle.UseMove(0, nil)}))
	h.Tick(now)

	for _, m := range conns[0].Pending() {
		require.NoError(t, tr.Apply(m), "%s", m.Kind())
	}
	require.True(t, b.Party(0).Members[1].Fainted())
	assert.True(t, tr.Own.Members[1].Fainted())
	assert.Equal(t, []int{battle.Empty}, tr.Own.ActiveIndices())
	requireMirrors(t, b, tr)
	require.NotNil(t, tr.Request)
	assert.True(t, tr.Request.Replace)
}
