package client

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ross1116/pokebattle/internal/battle"
	"github.com/ross1116/pokebattle/internal/participant"
	"github.com/ross1116/pokebattle/internal/protocol"
)

const battleHelp = `Battle commands:
  move <n> [side/slot]  use move n, optionally at a target (m <n>, or just <n>)
  switch <n>            send out party member n (s <n>)
  item <name> [n]       use an item on party member n, default the active one (i)
  forfeit               give up the battle (ff)`

var errUsage = errors.New("use 'move <n>', 'switch <n>', 'item <name> [n]' or 'forfeit'")

// ParseAction turns one line of input into the message answering slot.
// Numbers are 1-based as shown on screen. A forced replacement only takes
// switch or forfeit.
func ParseAction(input string, slot int, replace bool, t *participant.Tracker) (protocol.ClientMessage, error) {
	parts := strings.Fields(strings.ToLower(input))
	if len(parts) == 0 {
		return nil, errUsage
	}
	if n, err := strconv.Atoi(parts[0]); err == nil {
		parts = append([]string{"move", strconv.Itoa(n)}, parts[1:]...)
	}
	if t.Own == nil {
		return nil, errors.New("no party yet")
	}

	cmd := parts[0]
	if replace && cmd != "switch" && cmd != "s" && cmd != "forfeit" && cmd != "ff" {
		return nil, errors.New("choose a pokemon to send out with 'switch <n>'")
	}
	switch cmd {
	case "forfeit", "ff":
		return protocol.Forfeit{}, nil

	case "move", "m":
		if len(parts) < 2 || len(parts) > 3 {
			return nil, errUsage
		}
		p, ok := t.Own.Active(slot)
		if !ok {
			return nil, fmt.Errorf("slot %d is empty", slot+1)
		}
		n, err := number(parts[1], len(p.Moves))
		if err != nil {
			return nil, fmt.Errorf("move %w", err)
		}
		if p.Moves[n].PP == 0 {
			return nil, fmt.Errorf("%s has no PP left", p.Moves[n].Move.Name())
		}
		var target *battle.SlotRef
		if len(parts) == 3 {
			ref, err := parseTarget(parts[2])
			if err != nil {
				return nil, err
			}
			target = &ref
		}
		return protocol.Select{Slot: slot, Selection: battle.UseMove(n, target)}, nil

	case "switch", "s":
		if len(parts) != 2 {
			return nil, errUsage
		}
		n, err := number(parts[1], len(t.Own.Members))
		if err != nil {
			return nil, fmt.Errorf("party member %w", err)
		}
		switch {
		case t.Own.IsActive(n):
			return nil, fmt.Errorf("%s is already in battle", t.Own.Members[n].Name())
		case t.Own.Members[n].Fainted():
			return nil, fmt.Errorf("%s has fainted", t.Own.Members[n].Name())
		}
		return protocol.Select{Slot: slot, Selection: battle.SwitchTo(n)}, nil

	case "item", "i":
		if len(parts) < 2 || len(parts) > 3 {
			return nil, errUsage
		}
		item := parts[1]
		if t.Own.Bag[item] == 0 {
			return nil, fmt.Errorf("no %s in the bag", item)
		}
		index := t.Own.ActiveIndex(slot)
		if len(parts) == 3 {
			n, err := number(parts[2], len(t.Own.Members))
			if err != nil {
				return nil, fmt.Errorf("party member %w", err)
			}
			index = n
		}
		if index == battle.Empty {
			return nil, errUsage
		}
		return protocol.Select{Slot: slot, Selection: battle.UseItem(item, index)}, nil
	}
	return nil, errUsage
}

// number parses a 1-based choice out of n and returns it 0-based.
func number(s string, n int) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 || v > n {
		return 0, fmt.Errorf("must be between 1 and %d", n)
	}
	return v - 1, nil
}

// parseTarget reads "side/slot" as printed on the battle board, both 1-based.
func parseTarget(s string) (battle.SlotRef, error) {
	side, slot, ok := strings.Cut(s, "/")
	a, errA := strconv.Atoi(side)
	b, errB := strconv.Atoi(slot)
	if !ok || errA != nil || errB != nil || a < 1 || b < 1 {
		return battle.SlotRef{}, fmt.Errorf("target %q is not side/slot", s)
	}
	return battle.SlotRef{Side: a - 1, Slot: b - 1}, nil
}
