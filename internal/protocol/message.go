package protocol

import (
	"context"

	"github.com/ross1116/pokebattle/internal/battle"
	"github.com/ross1116/pokebattle/internal/pokemon"
)

type Kind string

const (
	KindPlayerData  Kind = "player_data"
	KindAddOpponent Kind = "add_opponent"
	KindRequest     Kind = "request"
	KindResults     Kind = "results"
	KindReveal      Kind = "reveal"
	KindReplace     Kind = "replace"
	KindRejected    Kind = "rejected"
	KindResync      Kind = "resync"
	KindEnd         Kind = "end"

	KindSelect  Kind = "select"
	KindForfeit Kind = "forfeit"
)

// ServerMessage is anything the host sends to a participant.
type ServerMessage interface {
	Kind() Kind
	serverMessage()
}

// ClientMessage is anything a participant sends to the host.
type ClientMessage interface {
	Kind() Kind
	clientMessage()
}

// Endpoint is one participant's end of a battle connection, whatever carries
// it.
type Endpoint interface {
	Send(ClientMessage) error
	Recv(ctx context.Context) (ServerMessage, error)
}

// PlayerData gives a participant its own party in full together with the
// battle metadata.
type PlayerData struct {
	Battle      string            `json:"battle"`
	Side        int               `json:"side"`
	Type        battle.BattleType `json:"type"`
	ActiveSlots []int             `json:"active_slots"`
	PartyID     string            `json:"party_id"`
	Name        string            `json:"name"`
	Party       []pokemon.Saved   `json:"party"`
	Active      []int             `json:"active"`
	Bag         map[string]int    `json:"bag,omitempty"`
}

// AddOpponent announces an opposing party. Only its size and active slots
// are known at this point.
type AddOpponent struct {
	Side   int    `json:"side"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Size   int    `json:"size"`
	Active []int  `json:"active"`
}

// Request asks for selections. With Replace set the slots owe a forced
// switch and only Switch or Forfeit is accepted for them.
type Request struct {
	Turn    int   `json:"turn"`
	Slots   []int `json:"slots"`
	Replace bool  `json:"replace,omitempty"`
}

type Results struct {
	Turn    int                    `json:"turn"`
	Results []battle.ActionOutcome `json:"results"`
}

type Reveal struct {
	Side    int                   `json:"side"`
	Index   int                   `json:"index"`
	Pokemon battle.UnknownPokemon `json:"pokemon"`
}

type Replace struct {
	Side  int `json:"side"`
	Slot  int `json:"slot"`
	Index int `json:"index"`
}

// Rejected answers a selection the host refused. Code is "invalid" or
// "desync".
type Rejected struct {
	Slot   int    `json:"slot"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type Opponent struct {
	Side  int                  `json:"side"`
	Party *battle.UnknownParty `json:"party"`
}

// Resync replaces everything a participant knows after it fell out of step.
type Resync struct {
	Turn      int        `json:"turn"`
	Player    PlayerData `json:"player"`
	Opponents []Opponent `json:"opponents"`
}

// End closes the battle. Winner is battle.NoWinner for a draw.
type End struct {
	Winner int `json:"winner"`
}

type Select struct {
	Slot      int              `json:"slot"`
	Selection battle.Selection `json:"selection"`
}

// Forfeit concedes the whole battle for the sender's side.
type Forfeit struct{}

func (PlayerData) Kind() Kind  { return KindPlayerData }
func (AddOpponent) Kind() Kind { return KindAddOpponent }
func (Request) Kind() Kind     { return KindRequest }
func (Results) Kind() Kind     { return KindResults }
func (Reveal) Kind() Kind      { return KindReveal }
func (Replace) Kind() Kind     { return KindReplace }
func (Rejected) Kind() Kind    { return KindRejected }
func (Resync) Kind() Kind      { return KindResync }
func (End) Kind() Kind         { return KindEnd }
func (Select) Kind() Kind      { return KindSelect }
func (Forfeit) Kind() Kind     { return KindForfeit }

func (PlayerData) serverMessage()  {}
func (AddOpponent) serverMessage() {}
func (Request) serverMessage()     {}
func (Results) serverMessage()     {}
func (Reveal) serverMessage()      {}
func (Replace) serverMessage()     {}
func (Rejected) serverMessage()    {}
func (Resync) serverMessage()      {}
func (End) serverMessage()         {}

func (Select) clientMessage()  {}
func (Forfeit) clientMessage() {}
