package battle_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/ross1116/pokebattle/internal/battle"
	"github.com/ross1116/pokebattle/internal/pokemon"
	"github.com/ross1116/pokebattle/internal/random"
	"github.com/ross1116/pokebattle/internal/stats"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(m.Run())
}

func newBattle(t *testing.T, seed uint64, sides ...[]*pokemon.Pokemon) *battle.Battle {
	t.Helper()
	return newBattleSlots(t, seed, 1, sides...)
}

func newBattleSlots(t *testing.T, seed uint64, slots int, sides ...[]*pokemon.Pokemon) *battle.Battle {
	t.Helper()
	parties := make([]*battle.Party, len(sides))
	active := make([]int, len(sides))
	for i, members := range sides {
		p, err := battle.NewParty(fmt.Sprintf("side-%d", i), members, slots)
		require.NoError(t, err)
		parties[i] = p
		active[i] = slots
	}
	b, err := battle.New(battle.Setup{
		Data:    battle.NewBattleData(battle.Trainer, active...),
		Parties: parties,
		RNG:     random.Seeded(seed),
	})
	require.NoError(t, err)
	b.Start()
	return b
}

func submit(t *testing.T, b *battle.Battle, side int, sel battle.Selection) {
	t.Helper()
	rep, err := b.Submit(side, 0, sel)
	require.NoError(t, err)
	require.Nil(t, rep)
}

func moves(results []battle.ActionOutcome) []battle.ActionOutcome {
	var out []battle.ActionOutcome
	for _, r := range results {
		if r.Kind == battle.ActionMove {
			out = append(out, r)
		}
	}
	return out
}

func bySide(results []battle.ActionOutcome, side int) battle.ActionOutcome {
	for _, r := range results {
		if r.Side == side {
			return r
		}
	}
	return battle.ActionOutcome{Side: -1}
}

func TestCharizardAgainstBlastoise(t *testing.T) {
	charizard := monWith(t, "charizard", 30, stats.Set{15, 15, 15, 15, 15, 0}, stats.Set{}, "flamethrower")
	blastoise := monWith(t, "blastoise", 30, stats.Set{15, 15, 15, 15, 15, 31}, stats.Set{0, 0, 0, 0, 0, 52}, "tackle")
	require.Equal(t, 65, charizard.Stats[stats.Speed])
	require.Equal(t, 65, blastoise.Stats[stats.Speed])
	require.Equal(t, 91, charizard.MaxHP())
	require.Equal(t, 91, blastoise.MaxHP())

	run := func() battle.TurnReport {
		b := newBattle(t, 42, []*pokemon.Pokemon{charizard.Clone()}, []*pokemon.Pokemon{blastoise.Clone()})
		submit(t, b, 0, battle.UseMove(0, nil))
		submit(t, b, 1, battle.UseMove(0, nil))
		require.True(t, b.Ready())
		rep, err := b.Resolve()
		require.NoError(t, err)
		return rep
	}
	rep := run()
	used := moves(rep.Results)
	require.Len(t, used, 2)
	assert.False(t, rep.Ended)

	fire := bySide(used, 0)
	water := bySide(used, 1)
	require.Len(t, fire.Targets, 1)
	require.Len(t, water.Targets, 1)
	assert.Equal(t, "flamethrower", fire.Move)
	assert.Equal(t, pokemon.NotEffective, fire.Targets[0].Effectiveness)
	assert.Equal(t, pokemon.Effective, water.Targets[0].Effectiveness)
	assert.Positive(t, fire.Targets[0].Damage)
	assert.Positive(t, water.Targets[0].Damage)
	assert.False(t, fire.Targets[0].Fainted)
	assert.False(t, water.Targets[0].Fainted)
	if !fire.Targets[0].Critical && !water.Targets[0].Critical {
		assert.Less(t, water.Targets[0].Damage, fire.Targets[0].Damage)
	}

	again := run()
	a, _ := json.Marshal(rep)
	b, _ := json.Marshal(again)
	assert.JSONEq(t, string(a), string(b), "same seed, same turn")
}

func TestPriorityBeatsSpeed(t *testing.T) {
	slow := mon(t, "snorlax", 50, "quick-attack")
	fast := mon(t, "jolteon", 50, "tackle")
	b := newBattle(t, 1, []*pokemon.Pokemon{fast}, []*pokemon.Pokemon{slow})
	submit(t, b, 0, battle.UseMove(0, nil))
	submit(t, b, 1, battle.UseMove(0, nil))

	rep, err := b.Resolve()
	require.NoError(t, err)
	used := moves(rep.Results)
	require.Len(t, used, 2)
	assert.Equal(t, 1, used[0].Side)
	assert.Equal(t, "quick-attack", used[0].Move)
}

func TestFasterMovesFirst(t *testing.T) {
	b := newBattle(t, 1,
		[]*pokemon.Pokemon{mon(t, "snorlax", 50, "tackle")},
		[]*pokemon.Pokemon{mon(t, "jolteon", 50, "tackle")})
	submit(t, b, 0, battle.UseMove(0, nil))
	submit(t, b, 1, battle.UseMove(0, nil))

	rep, err := b.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 1, moves(rep.Results)[0].Side)
}

func TestSpeedTieFollowsSeed(t *testing.T) {
	first := func(seed uint64) int {
		b := newBattle(t, seed,
			[]*pokemon.Pokemon{mon(t, "pikachu", 20, "growl")},
			[]*pokemon.Pokemon{mon(t, "pikachu", 20, "growl")})
		submit(t, b, 0, battle.UseMove(0, nil))
		submit(t, b, 1, battle.UseMove(0, nil))
		rep, err := b.Resolve()
		require.NoError(t, err)
		return rep.Results[0].Side
	}
	seen := map[int]bool{}
	for seed := range uint64(40) {
		side := first(seed)
		assert.Equal(t, side, first(seed), "seed %d", seed)
		seen[side] = true
	}
	assert.Len(t, seen, 2, "both sides should win a tie for some seed")
}

func TestSwitchGoesBeforeMoves(t *testing.T) {
	b := newBattle(t, 3,
		[]*pokemon.Pokemon{mon(t, "pikachu", 30, "growl"), mon(t, "golem", 30, "tackle")},
		[]*pokemon.Pokemon{mon(t, "jolteon", 30, "thunder-shock")})
	submit(t, b, 0, battle.SwitchTo(1))
	submit(t, b, 1, battle.UseMove(0, nil))

	rep, err := b.Resolve()
	require.NoError(t, err)
	require.Len(t, rep.Results, 2)
	assert.Equal(t, battle.ActionSwitch, rep.Results[0].Kind)
	assert.Equal(t, battle.Immune, rep.Results[1].Targets[0].Kind, "ground type switched in")
	assert.Equal(t, 1, rep.Results[1].Targets[0].Index)
	assert.Contains(t, rep.Replaces, battle.Replacement{Side: 0, Slot: 0, Index: 1})

	reveals := rep.RevealsFor(1)
	require.Len(t, reveals, 1)
	assert.Equal(t, "golem", reveals[0].Pokemon.Species)
	assert.Empty(t, rep.RevealsFor(0))
}

func TestFaintedSlotMustBeReplaced(t *testing.T) {
	machamp := mon(t, "machamp", 100, "seismic-toss")
	b := newBattle(t, 9,
		[]*pokemon.Pokemon{machamp},
		[]*pokemon.Pokemon{mon(t, "pikachu", 1, "growl"), mon(t, "pikachu", 1, "growl")})
	submit(t, b, 0, battle.UseMove(0, nil))
	submit(t, b, 1, battle.UseMove(0, nil))

	rep, err := b.Resolve()
	require.NoError(t, err)
	require.Len(t, rep.Results, 1, "the fainted pikachu never acts")
	assert.True(t, rep.Results[0].Targets[0].Fainted)
	assert.Positive(t, rep.Results[0].Experience)
	assert.Contains(t, rep.Replaces, battle.Replacement{Side: 1, Slot: 0, Index: battle.Empty})
	assert.False(t, rep.Ended)

	assert.Equal(t, []int{0}, b.Owed(1))
	assert.Nil(t, b.Pending(1))
	assert.Equal(t, []int{0}, b.Pending(0))
	assert.False(t, b.Ready())

	_, err = b.Submit(1, 0, battle.UseMove(0, nil))
	assert.ErrorIs(t, err, battle.ErrInvalidSelection)
	_, err = b.Submit(1, 0, battle.SwitchTo(0))
	assert.ErrorIs(t, err, battle.ErrInvalidSelection)

	swap, err := b.Submit(1, 0, battle.SwitchTo(1))
	require.NoError(t, err)
	require.NotNil(t, swap)
	assert.Equal(t, []battle.Replacement{{Side: 1, Slot: 0, Index: 1}}, swap.Replaces)
	require.Len(t, swap.RevealsFor(0), 1)
	assert.Equal(t, 1, swap.RevealsFor(0)[0].Index)
	assert.Empty(t, b.Owed(1))
	assert.Equal(t, []int{0}, b.Pending(1))

	submit(t, b, 0, battle.UseMove(0, nil))
	submit(t, b, 1, battle.UseMove(0, nil))
	rep, err = b.Resolve()
	require.NoError(t, err)
	assert.True(t, rep.Ended)
	assert.Equal(t, 0, rep.Winner)
	assert.Empty(t, b.Owed(1), "no reserves left to owe")
	assert.Nil(t, b.Pending(0))

	_, err = b.Submit(0, 0, battle.UseMove(0, nil))
	assert.ErrorIs(t, err, battle.ErrBattleEnded)
	_, err = b.Resolve()
	assert.ErrorIs(t, err, battle.ErrBattleEnded)
}

func TestResolveBeforeReady(t *testing.T) {
	b := newBattle(t, 1, []*pokemon.Pokemon{mon(t, "pikachu", 20, "growl")}, []*pokemon.Pokemon{mon(t, "pikachu", 20, "growl")})
	submit(t, b, 0, battle.UseMove(0, nil))
	_, err := b.Resolve()
	assert.ErrorIs(t, err, battle.ErrNotReady)
	assert.Equal(t, 1, b.Turn())
}

func TestSelectionValidation(t *testing.T) {
	user := mon(t, "pikachu", 20, "growl", "tackle")
	user.Moves[0].PP = 0
	b := newBattle(t, 1,
		[]*pokemon.Pokemon{user, mon(t, "snorlax", 20, "tackle")},
		[]*pokemon.Pokemon{mon(t, "jolteon", 20, "tackle")})

	cases := []struct {
		name string
		side int
		sel  battle.Selection
		want error
	}{
		{"no pp", 0, battle.UseMove(0, nil), battle.ErrInvalidSelection},
		{"no such move", 0, battle.UseMove(3, nil), battle.ErrDesync},
		{"own side", 0, battle.UseMove(1, &battle.SlotRef{Side: 0, Slot: 0}), battle.ErrInvalidSelection},
		{"no such target slot", 0, battle.UseMove(1, &battle.SlotRef{Side: 1, Slot: 4}), battle.ErrDesync},
		{"switch to active", 0, battle.SwitchTo(0), battle.ErrInvalidSelection},
		{"switch out of range", 0, battle.SwitchTo(7), battle.ErrDesync},
		{"unknown item", 0, battle.UseItem("rare-candy", 0), battle.ErrInvalidSelection},
		{"empty bag", 0, battle.UseItem("potion", 0), battle.ErrInvalidSelection},
		{"unknown side", 4, battle.UseMove(1, nil), battle.ErrProtocolViolation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.Submit(tc.side, 0, tc.sel)
			require.ErrorIs(t, err, tc.want)
			var se *battle.SelectionError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tc.side, se.Side)
			assert.NotEmpty(t, se.Reason)
		})
	}

	_, err := b.Submit(0, 2, battle.UseMove(1, nil))
	assert.ErrorIs(t, err, battle.ErrDesync)

	submit(t, b, 0, battle.UseMove(1, &battle.SlotRef{Side: 1, Slot: 0}))
	_, err = b.Submit(0, 0, battle.UseMove(1, nil))
	assert.ErrorIs(t, err, battle.ErrInvalidSelection, "duplicate selection")
}

func TestItemUse(t *testing.T) {
	user := mon(t, "snorlax", 40, "tackle")
	user.Hurt(30)
	user.Afflict(pokemon.Status{Kind: pokemon.Poisoned})
	b := newBattle(t, 5, []*pokemon.Pokemon{user}, []*pokemon.Pokemon{mon(t, "pikachu", 20, "growl")})
	b.Party(0).Bag["potion"] = 1
	b.Party(0).Bag["antidote"] = 1

	submit(t, b, 0, battle.UseItem("potion", 0))
	submit(t, b, 1, battle.UseMove(0, nil))
	rep, err := b.Resolve()
	require.NoError(t, err)

	require.Equal(t, battle.ActionItem, rep.Results[0].Kind)
	assert.Equal(t, 20, rep.Results[0].Targets[0].Healed)
	assert.NotContains(t, b.Party(0).Bag, "potion")
	assert.Equal(t, battle.ActionStatus, rep.Results[len(rep.Results)-1].Kind, "poison ticks at end of turn")

	_, err = b.Submit(0, 0, battle.UseItem("potion", 0))
	assert.ErrorIs(t, err, battle.ErrInvalidSelection)

	submit(t, b, 0, battle.UseItem("antidote", 0))
	submit(t, b, 1, battle.UseMove(0, nil))
	rep, err = b.Resolve()
	require.NoError(t, err)
	assert.True(t, rep.Results[0].Targets[0].Cured)
	assert.Nil(t, user.Status)
}

func TestEndOfTurnEffects(t *testing.T) {
	burned := mon(t, "snorlax", 50, "growl")
	burned.Afflict(pokemon.Status{Kind: pokemon.Burned})
	holder := mon(t, "pikachu", 50, "growl")
	leftovers, err := pokemon.Default().Item("leftovers")
	require.NoError(t, err)
	holder.Item = leftovers
	holder.Hurt(40)

	b := newBattle(t, 2, []*pokemon.Pokemon{burned}, []*pokemon.Pokemon{holder})
	submit(t, b, 0, battle.UseMove(0, nil))
	submit(t, b, 1, battle.UseMove(0, nil))
	rep, err := b.Resolve()
	require.NoError(t, err)

	var tick, held *battle.ActionOutcome
	for i := range rep.Results {
		switch rep.Results[i].Kind {
		case battle.ActionStatus:
			tick = &rep.Results[i]
		case battle.ActionHeld:
			held = &rep.Results[i]
		}
	}
	require.NotNil(t, tick)
	require.NotNil(t, held)
	assert.Equal(t, burned.MaxHP()/16, tick.Targets[0].Damage)
	assert.Equal(t, pokemon.Burned, tick.Status)
	assert.Equal(t, holder.MaxHP()/16, held.Targets[0].Healed)
	assert.Equal(t, "leftovers", held.Item)

	hidden := battle.ForViewer(rep.Results, 0)
	for _, r := range hidden {
		if r.Kind == battle.ActionHeld {
			assert.Empty(t, r.Item)
			assert.Zero(t, r.Targets[0].Healed)
			assert.Equal(t, holder.HPPercent(), r.Targets[0].Percent)
		}
	}
}

func TestSleepSkipsThenWakes(t *testing.T) {
	sleeper := mon(t, "snorlax", 50, "growl")
	require.True(t, sleeper.Afflict(pokemon.Status{Kind: pokemon.Asleep, Turns: 2}))
	b := newBattle(t, 4, []*pokemon.Pokemon{sleeper}, []*pokemon.Pokemon{mon(t, "pikachu", 50, "growl")})

	var got []battle.ActionOutcome
	for range 3 {
		submit(t, b, 0, battle.UseMove(0, nil))
		submit(t, b, 1, battle.UseMove(0, nil))
		rep, err := b.Resolve()
		require.NoError(t, err)
		got = append(got, bySide(rep.Results, 0))
	}
	assert.Equal(t, "sleep", got[0].Skipped)
	assert.Equal(t, "sleep", got[1].Skipped)
	assert.Empty(t, got[2].Skipped)
	assert.True(t, got[2].Woke)
	assert.Nil(t, sleeper.Status)
	assert.Equal(t, 39, sleeper.Moves[0].PP, "skipped turns spend no PP")
}

func TestForfeitAndAbort(t *testing.T) {
	side := func() []*pokemon.Pokemon { return []*pokemon.Pokemon{mon(t, "pikachu", 20, "growl")} }

	b := newBattle(t, 1, side(), side())
	submit(t, b, 0, battle.Forfeit())
	submit(t, b, 1, battle.UseMove(0, nil))
	rep, err := b.Resolve()
	require.NoError(t, err)
	require.Len(t, rep.Results, 1)
	assert.Equal(t, battle.ActionForfeit, rep.Results[0].Kind)
	assert.True(t, rep.Ended)
	assert.Equal(t, 1, rep.Winner)

	b = newBattle(t, 1, side(), side())
	rep = b.Forfeit(1)
	assert.True(t, rep.Ended)
	assert.Equal(t, 0, rep.Winner)
	assert.True(t, b.Lost(1))

	b = newBattle(t, 1, side(), side())
	rep = b.Abort()
	assert.True(t, rep.Ended)
	assert.Equal(t, battle.NoWinner, rep.Winner)
	again := b.Forfeit(0)
	assert.Equal(t, battle.NoWinner, again.Winner, "the outcome is written once")
}

func TestFallback(t *testing.T) {
	user := mon(t, "pikachu", 20, "growl", "tackle")
	b := newBattle(t, 1,
		[]*pokemon.Pokemon{user, mon(t, "snorlax", 20, "tackle")},
		[]*pokemon.Pokemon{mon(t, "jolteon", 20, "tackle")})

	assert.Equal(t, battle.Forfeit(), b.Fallback(0, 0, false))
	assert.Equal(t, battle.UseMove(0, nil), b.Fallback(0, 0, true))

	submit(t, b, 0, battle.UseMove(1, nil))
	submit(t, b, 1, battle.UseMove(0, nil))
	_, err := b.Resolve()
	require.NoError(t, err)
	assert.Equal(t, battle.UseMove(1, nil), b.Fallback(0, 0, true), "repeats the last move")

	user.Moves[0].PP = 0
	user.Moves[1].PP = 0
	assert.Equal(t, battle.SwitchTo(1), b.Fallback(0, 0, true))
}

func TestDoubleBattleSpreadMove(t *testing.T) {
	b := newBattleSlots(t, 6, 2,
		[]*pokemon.Pokemon{mon(t, "lapras", 40, "surf"), mon(t, "clefable", 40, "growl")},
		[]*pokemon.Pokemon{mon(t, "charizard", 40, "growl"), mon(t, "golem", 40, "growl")})

	for side := range 2 {
		assert.Equal(t, []int{0, 1}, b.Pending(side))
		for slot := range 2 {
			_, err := b.Submit(side, slot, battle.UseMove(0, nil))
			require.NoError(t, err)
		}
	}
	rep, err := b.Resolve()
	require.NoError(t, err)

	var surf battle.ActionOutcome
	for _, r := range rep.Results {
		if r.Move == "surf" {
			surf = r
		}
	}
	require.Len(t, surf.Targets, 2)
	assert.Equal(t, battle.SlotRef{Side: 1, Slot: 0}, battle.SlotRef{Side: surf.Targets[0].Side, Slot: surf.Targets[0].Slot})
	assert.Equal(t, battle.SlotRef{Side: 1, Slot: 1}, battle.SlotRef{Side: surf.Targets[1].Side, Slot: surf.Targets[1].Slot})
	assert.Equal(t, pokemon.SuperEffective, surf.Targets[0].Effectiveness)
}

func TestForfeitStopsTheSideMidTurn(t *testing.T) {
	sides := [][]*pokemon.Pokemon{
		{mon(t, "snorlax", 50, "tackle"), mon(t, "machamp", 50, "tackle")},
		{mon(t, "pikachu", 50, "growl")},
		{mon(t, "jolteon", 50, "growl")},
	}
	slots := []int{2, 1, 1}
	parties := make([]*battle.Party, len(sides))
	for i, members := range sides {
		p, err := battle.NewParty(fmt.Sprintf("side-%d", i), members, slots[i])
		require.NoError(t, err)
		parties[i] = p
	}
	b, err := battle.New(battle.Setup{
		Data:    battle.NewBattleData(battle.Trainer, slots...),
		Parties: parties,
		RNG:     random.Seeded(4),
	})
	require.NoError(t, err)
	b.Start()

	for _, s := range []struct {
		side, slot int
		sel        battle.Selection
	}{
		{0, 0, battle.Forfeit()},
		{0, 1, battle.UseMove(0, nil)},
		{1, 0, battle.UseMove(0, nil)},
		{2, 0, battle.UseMove(0, nil)},
	} {
		rep, err := b.Submit(s.side, s.slot, s.sel)
		require.NoError(t, err)
		require.Nil(t, rep)
	}

	rep, err := b.Resolve()
	require.NoError(t, err)
	require.NotEmpty(t, rep.Results)
	assert.Equal(t, battle.ActionForfeit, rep.Results[0].Kind)
	for _, r := range rep.Results[1:] {
		assert.NotEqual(t, 0, r.Side, "side 0 acted after forfeiting: %+v", r)
	}
	assert.Len(t, moves(rep.Results), 2)
	assert.True(t, b.Lost(0))
	assert.False(t, b.Ended())
}

func TestToxicGrowsEachTurnAndResetsOnSwitch(t *testing.T) {
	toxic := mon(t, "snorlax", 50, "growl")
	require.True(t, toxic.Afflict(pokemon.Status{Kind: pokemon.BadlyPoisoned}))
	b := newBattle(t, 5,
		[]*pokemon.Pokemon{toxic, mon(t, "pikachu", 50, "growl")},
		[]*pokemon.Pokemon{mon(t, "machamp", 50, "growl")})

	tick := func(rep battle.TurnReport) int {
		for _, r := range rep.Results {
			if r.Kind == battle.ActionStatus && r.Side == 0 {
				assert.Equal(t, pokemon.BadlyPoisoned, r.Status)
				return r.Targets[0].Damage
			}
		}
		return 0
	}
	var ticks []int
	for range 2 {
		submit(t, b, 0, battle.UseMove(0, nil))
		submit(t, b, 1, battle.UseMove(0, nil))
		rep, err := b.Resolve()
		require.NoError(t, err)
		ticks = append(ticks, tick(rep))
	}
	assert.Equal(t, []int{toxic.MaxHP() / 16, toxic.MaxHP() * 2 / 16}, ticks)

	submit(t, b, 0, battle.SwitchTo(1))
	submit(t, b, 1, battle.UseMove(0, nil))
	rep, err := b.Resolve()
	require.NoError(t, err)
	assert.Zero(t, tick(rep), "the benched member takes no damage")
	assert.Zero(t, toxic.Status.Turns)
}

func TestFlinchStopsOnlyAnActionStillToCome(t *testing.T) {
	jab := func(priority int) *pokemon.Move {
		return &pokemon.Move{
			ID: "jab", Type: pokemon.Normal, Category: pokemon.Physical, Power: 40, PP: 10, Priority: priority,
			Uses: []pokemon.Use{pokemon.Damage(pokemon.Physical), pokemon.Flinch(10)},
		}
	}

	fast := mon(t, "jolteon", 50)
	require.NoError(t, fast.Learn(jab(1)))
	slow := mon(t, "snorlax", 50, "growl")
	b := newBattle(t, 6, []*pokemon.Pokemon{fast}, []*pokemon.Pokemon{slow})
	submit(t, b, 0, battle.UseMove(0, nil))
	submit(t, b, 1, battle.UseMove(0, nil))
	rep, err := b.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "flinch", bySide(rep.Results, 1).Skipped)
	assert.Equal(t, 40, slow.Moves[0].PP)
	assert.False(t, slow.Volatile.Flinched, "cleared at end of turn")

	submit(t, b, 0, battle.UseMove(0, nil))
	submit(t, b, 1, battle.UseMove(0, nil))
	rep, err = b.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "flinch", bySide(rep.Results, 1).Skipped)

	// flinching a pokemon that already moved does nothing
	quick := mon(t, "jolteon", 50, "growl")
	heavy := mon(t, "snorlax", 30)
	require.NoError(t, heavy.Learn(jab(0)))
	b = newBattle(t, 6, []*pokemon.Pokemon{quick}, []*pokemon.Pokemon{heavy})
	for range 2 {
		submit(t, b, 0, battle.UseMove(0, nil))
		submit(t, b, 1, battle.UseMove(0, nil))
		rep, err := b.Resolve()
		require.NoError(t, err)
		assert.Empty(t, bySide(rep.Results, 0).Skipped)
	}
	assert.Equal(t, 38, quick.Moves[0].PP)
}

func TestConfusionCountsDownAndMayHitSelf(t *testing.T) {
	const seeds = 30
	var selfHits int
	for seed := uint64(1); seed <= seeds; seed++ {
		confused := mon(t, "snorlax", 50, "growl")
		confused.Volatile.Confused = 2
		b := newBattle(t, seed, []*pokemon.Pokemon{confused}, []*pokemon.Pokemon{mon(t, "pikachu", 50, "growl")})

		submit(t, b, 0, battle.UseMove(0, nil))
		submit(t, b, 1, battle.UseMove(0, nil))
		rep, err := b.Resolve()
		require.NoError(t, err)
		first := bySide(rep.Results, 0)
		assert.Equal(t, 1, confused.Volatile.Confused)
		switch first.Skipped {
		case "confusion":
			selfHits++
			assert.Positive(t, first.SelfHit)
			assert.Equal(t, confused.MaxHP()-first.SelfHit, confused.HP)
			assert.Equal(t, 40, confused.Moves[0].PP)
			assert.Zero(t, bySide(battle.ForViewer(rep.Results, 1), 0).SelfHit)
		case "":
			assert.Equal(t, 39, confused.Moves[0].PP)
		default:
			t.Fatalf("seed %d: unexpected skip %q", seed, first.Skipped)
		}

		submit(t, b, 0, battle.UseMove(0, nil))
		submit(t, b, 1, battle.UseMove(0, nil))
		rep, err = b.Resolve()
		require.NoError(t, err)
		second := bySide(rep.Results, 0)
		assert.True(t, second.SnappedOut)
		assert.Empty(t, second.Skipped)
		assert.Zero(t, confused.Volatile.Confused)
	}
	assert.Positive(t, selfHits)
	assert.Less(t, selfHits, seeds)
}
