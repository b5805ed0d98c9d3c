package client

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/ross1116/pokebattle/internal/battle"
	"github.com/ross1116/pokebattle/internal/participant"
	"github.com/ross1116/pokebattle/internal/pokemon"
	"github.com/ross1116/pokebattle/internal/protocol"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var errNotYourTurn = errors.New("waiting for the other side")

// Session is one battle as seen from the terminal: the tracker plus the
// selections still owed for the current request.
type Session struct {
	Tracker *participant.Tracker

	out     io.Writer
	slots   []int
	replace bool
	// Results are printed once the reveals that follow them are applied, so
	// switched in opponents already have names.
	results []battle.ActionOutcome
}

func NewSession(dex *pokemon.Dex, out io.Writer) *Session {
	return &Session{Tracker: participant.New(dex), out: out}
}

// Waiting reports whether the session expects input.
func (s *Session) Waiting() bool { return len(s.slots) > 0 }

func (s *Session) Handle(m protocol.ServerMessage) error {
	if err := s.Tracker.Apply(m); err != nil {
		return err
	}
	switch m := m.(type) {
	case protocol.Results:
		s.results = append(s.results, m.Results...)
		return nil
	case protocol.Reveal:
		return nil
	}
	s.flush()

	t := s.Tracker
	switch m := m.(type) {
	case protocol.PlayerData:
		fmt.Fprintf(s.out, "\n=== Battle Start (%s) ===\n", t.Type)
	case protocol.AddOpponent:
		fmt.Fprintf(s.out, "%s wants to battle! (%d pokemon)\n", m.Name, m.Size)
	case protocol.Replace:
		if m.Index == battle.Empty {
			break
		}
		if m.Side == t.Side {
			fmt.Fprintf(s.out, "Go! %s!\n", t.Own.Members[m.Index].Name())
		} else if p, ok := t.Opponents[m.Side]; ok {
			if u, ok := p.Member(m.Index); ok {
				fmt.Fprintf(s.out, "%s sent out %s!\n", p.Name(), u.Name())
			}
		}
	case protocol.Request:
		s.slots = slices.Clone(m.Slots)
		s.replace = m.Replace
		s.Render()
		s.prompt()
	case protocol.Rejected:
		fmt.Fprintf(s.out, "Not allowed: %s\n", m.Reason)
		if m.Code != "desync" && !slices.Contains(s.slots, m.Slot) {
			s.slots = append([]int{m.Slot}, s.slots...)
			s.prompt()
		}
	case protocol.Resync:
		fmt.Fprintln(s.out, "(battle state refreshed)")
	case protocol.End:
		s.slots = nil
		switch {
		case m.Winner == battle.NoWinner:
			fmt.Fprintln(s.out, "\nThe battle ended in a draw.")
		case m.Winner == t.Side:
			fmt.Fprintln(s.out, "\nYou won the battle!")
		default:
			fmt.Fprintln(s.out, "\nYou lost the battle.")
		}
	}
	return nil
}

// Input answers the next owed slot. A forfeit answers all of them.
func (s *Session) Input(line string) (protocol.ClientMessage, error) {
	if len(s.slots) == 0 {
		return nil, errNotYourTurn
	}
	msg, err := ParseAction(line, s.slots[0], s.replace, s.Tracker)
	if err != nil {
		return nil, err
	}
	if _, ok := msg.(protocol.Forfeit); ok {
		s.slots = nil
		return msg, nil
	}
	s.slots = s.slots[1:]
	if len(s.slots) > 0 {
		s.prompt()
	}
	return msg, nil
}

func (s *Session) prompt() {
	if len(s.slots) == 0 {
		return
	}
	slot := s.slots[0]
	if s.replace {
		fmt.Fprintf(s.out, "Choose a pokemon to send out into slot %d (switch <n>): ", slot+1)
		return
	}
	name := "slot " + fmt.Sprint(slot+1)
	if p, ok := s.Tracker.Own.Active(slot); ok {
		name = p.Name()
	}
	fmt.Fprintf(s.out, "What will %s do? ", name)
}

// Render prints the battle board: own party in full, every opponent as far
// as it has been seen, then the moves of each active pokemon.
func (s *Session) Render() {
	t := s.Tracker
	if t.Own == nil {
		return
	}
	fmt.Fprintf(s.out, "\n=== TURN %d ===\n", t.Turn)
	fmt.Fprintf(s.out, "\nYour Squad (side %d):\n", t.Side+1)
	for i, p := range t.Own.Members {
		status := statusTag(p.Status, p.Fainted())
		fmt.Fprintf(s.out, "%s %d. %-12s Lv%-3d HP: %3d%% (%d/%d) %s\n",
			marker(t.Own.IsActive(i)), i+1, p.Name(), p.Level, p.HPPercent(), p.HP, p.MaxHP(), status)
	}
	for _, side := range t.OpponentSides() {
		opp := t.Opponents[side]
		fmt.Fprintf(s.out, "\n%s (side %d):\n", opp.Name(), side+1)
		for i := range opp.Members {
			u := &opp.Members[i]
			if !u.Revealed() {
				fmt.Fprintf(s.out, "%s %d. %s\n", marker(slices.Contains(opp.Slots, i)), i+1, u.Name())
				continue
			}
			fmt.Fprintf(s.out, "%s %d. %-12s Lv%-3d HP: %3d%% %s\n",
				marker(slices.Contains(opp.Slots, i)), i+1, u.Name(), u.Level(), u.Percent, statusTag(u.Status, u.Down))
		}
	}
	fmt.Fprintln(s.out, "-------------------------")
	for slot := range t.Own.ActiveLen() {
		p, ok := t.Own.Active(slot)
		if !ok {
			continue
		}
		fmt.Fprintf(s.out, "%s's moves:\n", p.Name())
		for i, m := range p.Moves {
			fmt.Fprintf(s.out, "%d. %-14s PP %2d/%-2d %s\n", i+1, m.Move.Name(), m.PP, m.Move.PP, m.Move.Type)
		}
	}
	if len(t.Own.Bag) > 0 {
		var items []string
		for _, id := range slices.Sorted(maps.Keys(t.Own.Bag)) {
			items = append(items, fmt.Sprintf("%s x%d", id, t.Own.Bag[id]))
		}
		fmt.Fprintf(s.out, "Bag: %s\n", strings.Join(items, ", "))
	}
	fmt.Fprintln(s.out, "-------------------------")
}

func (s *Session) flush() {
	if len(s.results) == 0 {
		return
	}
	fmt.Fprintln(s.out, "\n=== TURN RESULT ===")
	for _, r := range s.results {
		for _, line := range s.describe(r) {
			fmt.Fprintln(s.out, line)
		}
	}
	fmt.Fprintln(s.out, "===================")
	s.results = nil
}

// describe renders one outcome as battle text.
func (s *Session) describe(r battle.ActionOutcome) []string {
	actor := s.name(r.Side, r.Index)
	var lines []string
	switch r.Kind {
	case battle.ActionForfeit:
		return []string{fmt.Sprintf("%s forfeited the battle.", s.sideName(r.Side))}
	case battle.ActionSwitch:
		return []string{fmt.Sprintf("%s sent out %s!", s.sideName(r.Side), s.memberName(r.Side, r.Index))}
	case battle.ActionItem:
		lines = append(lines, fmt.Sprintf("%s used a %s.", s.sideName(r.Side), s.itemName(r.Item)))
	case battle.ActionStatus:
		what := r.Status.String()
		if r.Status == pokemon.BadlyPoisoned {
			what = "poison"
		}
		lines = append(lines, fmt.Sprintf("%s is hurt by its %s!", actor, what))
	case battle.ActionHeld:
		lines = append(lines, fmt.Sprintf("%s restored a little HP using its %s!", actor, s.itemName(r.Item)))
	case battle.ActionMove:
		if r.Woke {
			lines = append(lines, actor+" woke up!")
		}
		if r.SnappedOut {
			lines = append(lines, actor+" snapped out of its confusion!")
		}
		switch r.Skipped {
		case "":
		case "flinch":
			return append(lines, actor+" flinched and couldn't move!")
		case "confusion":
			lines = append(lines, actor+" is confused!", "It hurt itself in its confusion!", fmt.Sprintf("%s is at %d%% HP.", actor, r.Percent))
			if r.Percent == 0 {
				lines = append(lines, actor+" fainted!")
			}
			return lines
		default:
			return append(lines, fmt.Sprintf("%s can't move (%s)!", actor, r.Skipped))
		}
		lines = append(lines, fmt.Sprintf("%s used %s!", actor, s.moveName(r.Move)))
	}
	hurts := r.Kind == battle.ActionStatus
	if m, err := s.Tracker.Dex().Move(r.Move); err == nil && r.Kind == battle.ActionMove {
		hurts = m.Damaging()
	}
	for _, tg := range r.Targets {
		lines = append(lines, s.describeTarget(tg, hurts)...)
	}
	if r.Experience > 0 {
		lines = append(lines, fmt.Sprintf("%s gained %d experience.", actor, r.Experience))
	}
	for _, lvl := range r.Levels {
		lines = append(lines, fmt.Sprintf("%s grew to level %d!", actor, lvl))
	}
	return lines
}

// describeTarget renders what happened to one target. Exact damage is only
// known for own pokemon, so hurts says whether to report the HP left.
func (s *Session) describeTarget(tg battle.TargetOutcome, hurts bool) []string {
	name := s.name(tg.Side, tg.Index)
	switch tg.Kind {
	case battle.Missed:
		return []string{"The attack missed " + name + "!"}
	case battle.NoTarget:
		return []string{"But there was no target..."}
	case battle.Immune:
		return []string{"It doesn't affect " + name + "..."}
	case battle.Failed:
		return []string{"But it failed!"}
	}
	var lines []string
	if tg.Critical {
		lines = append(lines, "A critical hit!")
	}
	if hurts || tg.Damage > 0 {
		switch {
		case tg.Effectiveness > 1:
			lines = append(lines, "It's super effective!")
		case tg.Effectiveness > 0 && tg.Effectiveness < 1:
			lines = append(lines, "It's not very effective...")
		}
		lines = append(lines, fmt.Sprintf("%s is at %d%% HP.", name, tg.Percent))
	}
	if tg.Healed > 0 || tg.Drained > 0 {
		lines = append(lines, fmt.Sprintf("%s recovered HP (%d%%).", name, tg.Percent))
	}
	if tg.Inflicted != pokemon.NoStatus {
		lines = append(lines, fmt.Sprintf("%s is afflicted with %s!", name, tg.Inflicted))
	}
	if tg.Cured {
		lines = append(lines, name+" was cured!")
	}
	if tg.Confused {
		lines = append(lines, name+" became confused!")
	}
	for _, st := range tg.Stages {
		lines = append(lines, fmt.Sprintf("%s's %s %s!", name, title(st.Stat.String()), stageVerb(st.Delta)))
	}
	if tg.Fainted {
		lines = append(lines, name+" fainted!")
	}
	return lines
}

// name is how battle text refers to a pokemon; opponents get a prefix.
func (s *Session) name(side, index int) string {
	n := s.memberName(side, index)
	if side != s.Tracker.Side && n != "" {
		return "The foe's " + n
	}
	if n == "" {
		return "A pokemon"
	}
	return n
}

func (s *Session) memberName(side, index int) string {
	t := s.Tracker
	if side == t.Side && t.Own != nil && index >= 0 && index < len(t.Own.Members) {
		return t.Own.Members[index].Name()
	}
	if p, ok := t.Opponents[side]; ok {
		if u, ok := p.Member(index); ok {
			return u.Name()
		}
	}
	return ""
}

func (s *Session) sideName(side int) string {
	t := s.Tracker
	if side == t.Side {
		return "You"
	}
	if p, ok := t.Opponents[side]; ok {
		return p.Name()
	}
	return fmt.Sprintf("Side %d", side+1)
}

func (s *Session) moveName(id string) string {
	if m, err := s.Tracker.Dex().Move(id); err == nil {
		return m.Name()
	}
	return id
}

func (s *Session) itemName(id string) string {
	if it, err := s.Tracker.Dex().Item(id); err == nil {
		return it.Name()
	}
	return id
}

func marker(active bool) string {
	if active {
		return "->"
	}
	return "  "
}

func statusTag(st *pokemon.Status, fainted bool) string {
	switch {
	case fainted:
		return "[FNT]"
	case st != nil && st.Kind != pokemon.NoStatus:
		return "[" + strings.ToUpper(st.Kind.String()) + "]"
	}
	return ""
}

func stageVerb(delta int) string {
	switch {
	case delta >= 2:
		return "rose sharply"
	case delta > 0:
		return "rose"
	case delta <= -2:
		return "harshly fell"
	case delta < 0:
		return "fell"
	}
	return "won't go any further"
}

func title(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "-", " "))
}
