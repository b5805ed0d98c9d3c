package client_test

import (
	"bytes"
	"testing"

	"github.com/ross1116/pokebattle/client"
	"github.com/ross1116/pokebattle/internal/battle"
	"github.com/ross1116/pokebattle/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startSession(t *testing.T) (*client.Session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	s := client.NewSession(nil, &out)
	require.NoError(t, s.Handle(playerData(t)))
	require.NoError(t, s.Handle(protocol.AddOpponent{Side: 1, ID: "theirs", Name: "gary", Size: 2, Active: []int{0}}))
	require.NoError(t, s.Handle(protocol.Reveal{Side: 1, Index: 0, Pokemon: battle.UnknownPokemon{Species: "gyarados", Lvl: 30, Percent: 100}}))
	require.NoError(t, s.Handle(protocol.Request{Turn: 1, Slots: []int{0}}))
	return s, &out
}

func TestSessionRendersBoardAndPrompts(t *testing.T) {
	s, out := startSession(t)
	assert.True(t, s.Waiting())

	text := out.String()
	assert.Contains(t, text, "gary wants to battle!")
	assert.Contains(t, text, "=== TURN 1 ===")
	assert.Contains(t, text, "-> 1. Pikachu")
	assert.Contains(t, text, "   2. Snorlax")
	assert.Contains(t, text, "[FNT]")
	assert.Contains(t, text, "-> 1. Gyarados")
	assert.Contains(t, text, "   2. Unknown")
	assert.Contains(t, text, "Thunder Shock")
	assert.Contains(t, text, "Bag: potion x2")
	assert.Contains(t, text, "What will Pikachu do?")
}

func TestSessionInput(t *testing.T) {
	s, _ := startSession(t)

	_, err := s.Input("move 2")
	assert.ErrorContains(t, err, "no PP")
	assert.True(t, s.Waiting())

	msg, err := s.Input("1")
	require.NoError(t, err)
	assert.Equal(t, protocol.Select{Slot: 0, Selection: battle.UseMove(0, nil)}, msg)
	assert.False(t, s.Waiting())

	_, err = s.Input("1")
	assert.Error(t, err)

	require.NoError(t, s.Handle(protocol.Rejected{Slot: 0, Code: "invalid", Reason: "nope"}))
	assert.True(t, s.Waiting())
	msg, err = s.Input("forfeit")
	require.NoError(t, err)
	assert.Equal(t, protocol.Forfeit{}, msg)
	assert.False(t, s.Waiting())
}

func TestSessionDescribesResultsAfterReveals(t *testing.T) {
	s, out := startSession(t)
	_, err := s.Input("1")
	require.NoError(t, err)
	pikachu := s.Tracker.Own.Members[0]
	pp := pikachu.Moves[0].PP
	out.Reset()

	require.NoError(t, s.Handle(protocol.Results{Turn: 1, Results: []battle.ActionOutcome{
		{
			Kind: battle.ActionMove, Side: 0, Slot: 0, Index: 0, Move: "thunder-shock", HP: pikachu.HP, Percent: 100,
			Targets: []battle.TargetOutcome{{Side: 1, Slot: 0, Index: 0, Kind: battle.Hit, Effectiveness: 4, Percent: 40}},
		},
		{Kind: battle.ActionSwitch, Side: 1, Slot: 0, Index: 1, Percent: 100},
	}}))
	assert.Empty(t, out.String())

	require.NoError(t, s.Handle(protocol.Reveal{Side: 1, Index: 1, Pokemon: battle.UnknownPokemon{Species: "jolteon", Lvl: 31, Percent: 100}}))
	require.NoError(t, s.Handle(protocol.Replace{Side: 1, Slot: 0, Index: 1}))

	text := out.String()
	assert.Contains(t, text, "=== TURN RESULT ===")
	assert.Contains(t, text, "Pikachu used Thunder Shock!")
	assert.Contains(t, text, "It's super effective!")
	assert.Contains(t, text, "The foe's Gyarados is at 40% HP.")
	assert.Contains(t, text, "gary sent out Jolteon!")
	assert.Equal(t, pp-1, pikachu.Moves[0].PP)

	opp := s.Tracker.Opponents[1]
	assert.Equal(t, []int{1}, opp.Slots)
	gyarados, _ := opp.Member(0)
	assert.Equal(t, 40, gyarados.Percent)
}

func TestSessionDescribesConfusionAndFlinch(t *testing.T) {
	s, out := startSession(t)
	_, err := s.Input("1")
	require.NoError(t, err)
	pikachu := s.Tracker.Own.Members[0]
	hp := pikachu.HP
	out.Reset()

	require.NoError(t, s.Handle(protocol.Results{Turn: 1, Results: []battle.ActionOutcome{
		{
			Kind: battle.ActionMove, Side: 1, Slot: 0, Index: 0, Move: "confuse-ray", Percent: 100,
			Targets: []battle.TargetOutcome{{Side: 0, Slot: 0, Index: 0, Kind: battle.Hit, Confused: true, HP: hp, Percent: 100}},
		},
		{Kind: battle.ActionMove, Side: 0, Slot: 0, Index: 0, Move: "thunder-shock", Skipped: "confusion", SelfHit: 3, HP: hp - 3, Percent: 50},
	}}))
	assert.Equal(t, 1, pikachu.Volatile.Confused)
	assert.Equal(t, hp-3, pikachu.HP)

	require.NoError(t, s.Handle(protocol.Results{Turn: 2, Results: []battle.ActionOutcome{
		{Kind: battle.ActionMove, Side: 1, Slot: 0, Index: 0, Move: "bite", Skipped: "flinch", Percent: 100},
		{Kind: battle.ActionMove, Side: 0, Slot: 0, Index: 0, Move: "thunder-shock", SnappedOut: true, HP: hp - 3, Percent: 50},
	}}))
	assert.Zero(t, pikachu.Volatile.Confused)
	require.NoError(t, s.Handle(protocol.Request{Turn: 3, Slots: []int{0}}))

	text := out.String()
	assert.Contains(t, text, "Pikachu became confused!")
	assert.Contains(t, text, "Pikachu is confused!")
	assert.Contains(t, text, "It hurt itself in its confusion!")
	assert.Contains(t, text, "Pikachu is at 50% HP.")
	assert.Contains(t, text, "The foe's Gyarados flinched and couldn't move!")
	assert.Contains(t, text, "Pikachu snapped out of its confusion!")
	assert.Contains(t, text, "Pikachu used Thunder Shock!")
}

func TestSessionEnd(t *testing.T) {
	s, out := startSession(t)
	require.NoError(t, s.Handle(protocol.End{Winner: 0}))
	assert.False(t, s.Waiting())
	assert.Contains(t, out.String(), "You won the battle!")

	s, out = startSession(t)
	require.NoError(t, s.Handle(protocol.End{Winner: battle.NoWinner}))
	assert.Contains(t, out.String(), "draw")
}
