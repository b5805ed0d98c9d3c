package server

import (
	"fmt"
	"slices"
	"time"

	"github.com/ross1116/pokebattle/internal/ai"
	"github.com/ross1116/pokebattle/internal/battle"
	"github.com/ross1116/pokebattle/internal/host"
	"github.com/ross1116/pokebattle/internal/random"
	"github.com/rs/zerolog/log"
)

const aiName = "AI Opponent"

// Each room draws from seedsPerRoom consecutive seeds: squads, the battle
// engine, then one per AI side.
const seedsPerRoom = 4

func aiSeed(room uint64, side int) uint64 {
	return room + 2 + uint64(side)
}

// StarterBag is what every party carries into a server battle.
func StarterBag() map[string]int {
	return map[string]int{"potion": 2, "super-potion": 1, "antidote": 1, "paralyze-heal": 1}
}

// startGame builds a battle for players in side order and runs it in the
// background. A nil player is played by the AI.
func (s *Server) startGame(players ...*Client) {
	room, conns, err := s.newRoom(players)
	if err != nil {
		log.Error().Err(err).Msg("could not start battle")
		for _, c := range players {
			if c != nil {
				s.SendResponse(c, errorResponse("could not start battle: "+err.Error()))
			}
		}
		return
	}
	log.Info().Str("battle", room.ID).Strs("players", room.Players).Uint64("seed", room.Seed).Msg("match started")

	var bots []*ai.Bot
	for side, c := range players {
		if c == nil {
			bots = append(bots, ai.New(aiName, s.dex, aiSeed(room.Seed, side)))
			continue
		}
		opponents := slices.Clone(room.Players)
		opponents = slices.Delete(opponents, side, side+1)
		s.SendResponse(c, Response{Type: TypeMatchStart, Message: map[string]any{
			"battle":   room.ID,
			"side":     side,
			"opponent": opponents[0],
		}})
		go s.pump(c, conns[side])
	}

	s.games.Add(1 + len(bots))
	bot := 0
	for side, c := range players {
		if c != nil {
			continue
		}
		b := bots[bot]
		bot++
		go func() {
			defer s.games.Done()
			if err := b.Run(s.ctx, conns[side]); err != nil && !host.IsClosed(err) {
				log.Warn().Err(err).Str("battle", room.ID).Msg("ai stopped")
			}
		}()
	}
	go func() {
		defer s.games.Done()
		s.runGame(room)
	}()
}

func (s *Server) newRoom(players []*Client) (*Room, []*host.Conn, error) {
	s.mu.Lock()
	for _, c := range players {
		if c != nil && c.inGame() {
			s.mu.Unlock()
			return nil, nil, fmt.Errorf("%s is already in a match", c.Username)
		}
	}
	seed := s.seed
	s.seed += seedsPerRoom
	s.mu.Unlock()

	bc := s.cfg.Battle
	gen := random.Seeded(seed)
	parties := make([]*battle.Party, len(players))
	conns := make([]*host.Conn, len(players))
	names := make([]string, len(players))
	slots := make([]int, len(players))
	for side, c := range players {
		names[side] = aiName
		if c != nil {
			names[side] = c.Username
		}
		squad, err := s.dex.RandomSquad(gen, bc.PartySize, bc.MinLevel, bc.MaxLevel)
		if err != nil {
			return nil, nil, err
		}
		p, err := battle.NewParty(names[side], squad, 1)
		if err != nil {
			return nil, nil, err
		}
		p.Bag = StarterBag()
		parties[side] = p
		conns[side] = host.NewConn(names[side])
		slots[side] = 1
	}
	b, err := battle.New(battle.Setup{
		Data:    battle.NewBattleData(battle.Trainer, slots...),
		Parties: parties,
		Dex:     s.dex,
		RNG:     random.Seeded(seed + 1),
	})
	if err != nil {
		return nil, nil, err
	}
	h, err := host.New(b, conns, bc.HostOptions())
	if err != nil {
		return nil, nil, err
	}
	room := &Room{ID: b.ID, Players: names, Seed: seed, Started: time.Now(), host: h}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range players {
		if c != nil && c.inGame() {
			return nil, nil, fmt.Errorf("%s is already in a match", c.Username)
		}
	}
	for side, c := range players {
		if c != nil {
			c.join(room.ID, conns[side])
		}
	}
	s.rooms[room.ID] = room
	return room, conns, nil
}

func (s *Server) runGame(room *Room) {
	defer func() {
		s.mu.Lock()
		delete(s.rooms, room.ID)
		s.mu.Unlock()
	}()
	err := room.host.Run(s.ctx)
	if err != nil {
		log.Info().Err(err).Str("battle", room.ID).Msg("battle aborted")
		return
	}
	w, _ := room.host.Battle().Winner()
	winner := "nobody"
	if w != battle.NoWinner {
		winner = room.Players[w]
	}
	log.Info().Str("battle", room.ID).Str("winner", winner).Msg("battle finished")
}

func (r *Room) snapshot() Room {
	return Room{
		ID:      r.ID,
		Players: slices.Clone(r.Players),
		Seed:    r.Seed,
		Started: r.Started,
		State:   r.host.State(),
	}
}

func sortRooms(rooms []Room) {
	slices.SortFunc(rooms, func(a, b Room) int { return a.Started.Compare(b.Started) })
}
