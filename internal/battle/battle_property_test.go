package battle_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/ross1116/pokebattle/internal/battle"
	"github.com/ross1116/pokebattle/internal/pokemon"
	"github.com/ross1116/pokebattle/internal/random"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// pick chooses a legal selection with a private engine so the battle's own
// stream is only touched by the battle.
func pick(b *battle.Battle, rng *random.Engine, side, slot int) battle.Selection {
	user, _ := b.Party(side).Active(slot)
	var options []battle.Selection
	if rng.Chance(1, 8) {
		for i := range b.Party(side).Members {
			if sel := battle.SwitchTo(i); b.Validate(side, slot, sel) == nil {
				options = append(options, sel)
			}
		}
	}
	if len(options) == 0 {
		for i := range user.Moves {
			if user.CanUse(i) {
				options = append(options, battle.UseMove(i, nil))
			}
		}
	}
	if len(options) == 0 {
		return b.Fallback(side, slot, true)
	}
	return options[rng.Range(0, len(options))]
}

func checkInvariants(t require.TestingT, b *battle.Battle) {
	for side := range b.Sides() {
		party := b.Party(side)
		for _, m := range party.Members {
			require.GreaterOrEqual(t, m.HP, 0)
			require.LessOrEqual(t, m.HP, m.MaxHP())
		}
		seen := map[int]bool{}
		for _, idx := range party.ActiveIndices() {
			if idx == battle.Empty {
				continue
			}
			require.False(t, seen[idx], "member %d in two slots", idx)
			seen[idx] = true
			require.False(t, party.Members[idx].Fainted(), "fainted member left active")
		}
	}
}

func simulate(t require.TestingT, seed uint64, size, slots int) ([]byte, [][]pokemon.Saved) {
	dex := pokemon.Default()
	gen := random.Seeded(seed)
	parties := make([]*battle.Party, 2)
	for side := range parties {
		squad, err := dex.RandomSquad(gen, size, 5, 40)
		require.NoError(t, err)
		parties[side], err = battle.NewParty(fmt.Sprintf("side-%d", side), squad, slots)
		require.NoError(t, err)
	}
	b, err := battle.New(battle.Setup{
		Data:    battle.NewBattleData(battle.Trainer, slots, slots),
		Parties: parties,
		RNG:     random.Seeded(seed + 1),
	})
	require.NoError(t, err)
	policy := random.Seeded(seed ^ 0x5eed)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	require.NoError(t, enc.Encode(b.Start()))
	for turn := 0; turn < 150 && !b.Ended(); turn++ {
		for side := range b.Sides() {
			for _, slot := range b.Owed(side) {
				rep, err := b.Submit(side, slot, b.Fallback(side, slot, true))
				require.NoError(t, err)
				require.NoError(t, enc.Encode(rep))
			}
		}
		if b.Ended() {
			break
		}
		for side := range b.Sides() {
			for _, slot := range b.Pending(side) {
				_, err := b.Submit(side, slot, pick(b, policy, side, slot))
				require.NoError(t, err)
			}
		}
		rep, err := b.Resolve()
		require.NoError(t, err)
		require.NoError(t, enc.Encode(rep))
		checkInvariants(t, b)
		if rep.Ended {
			w, ok := b.Winner()
			require.True(t, ok)
			require.Equal(t, w, rep.Winner)
		}
	}
	saved := make([][]pokemon.Saved, b.Sides())
	for side := range saved {
		saved[side] = b.Party(side).Save()
	}
	return buf.Bytes(), saved
}

func TestBattleIsReproducible(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint64().Draw(t, "seed")
		size := rapid.IntRange(1, 4).Draw(t, "size")
		slots := rapid.IntRange(1, 2).Draw(t, "slots")

		log1, end1 := simulate(t, seed, size, slots)
		log2, end2 := simulate(t, seed, size, slots)
		require.Equal(t, string(log1), string(log2))
		require.Equal(t, end1, end2)
	})
}
