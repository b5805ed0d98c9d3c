// Command pokebattle plays an offline battle in the terminal against the
// computer. The party is kept in a save file between runs.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ross1116/pokebattle/client"
	"github.com/ross1116/pokebattle/internal/ai"
	"github.com/ross1116/pokebattle/internal/battle"
	"github.com/ross1116/pokebattle/internal/config"
	"github.com/ross1116/pokebattle/internal/host"
	"github.com/ross1116/pokebattle/internal/logging"
	"github.com/ross1116/pokebattle/internal/pokemon"
	"github.com/ross1116/pokebattle/internal/protocol"
	"github.com/ross1116/pokebattle/internal/random"
	"github.com/rs/zerolog/log"
)

type options struct {
	Player   string
	SavePath string
	Battle   config.Battle
}

func main() {
	path := flag.String("config", "", "YAML config file")
	name := flag.String("name", "Player", "Your trainer name")
	save := flag.String("save", "pokebattle.yaml", "Save file for your party")
	seed := flag.Uint64("seed", 0, "Battle seed, 0 for a random one")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *seed != 0 {
		cfg.Battle.Seed = *seed
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Pretty, nil); err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	winner, err := play(ctx, options{Player: *name, SavePath: *save, Battle: cfg.Battle}, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("battle failed")
	}
	log.Info().Int("winner", winner).Dur("took", time.Since(start)).Msg("battle finished")
}

// play runs one battle with the human on side 0 and returns the winning
// side. The player's party is written back to the save file afterwards.
func play(ctx context.Context, opts options, in io.Reader, out io.Writer) (int, error) {
	dex := pokemon.Default()
	bc := opts.Battle
	seed := bc.SeedOr(uint64(time.Now().UnixNano()))
	gen := random.Seeded(seed)

	mine, err := loadParty(dex, gen, opts)
	if err != nil {
		return battle.NoWinner, err
	}
	squad, err := dex.RandomSquad(gen, bc.PartySize, bc.MinLevel, bc.MaxLevel)
	if err != nil {
		return battle.NoWinner, err
	}
	theirs, err := battle.NewParty("Rival", squad, 1)
	if err != nil {
		return battle.NoWinner, err
	}
	theirs.Bag = starterBag()

	b, err := battle.New(battle.Setup{
		Data:    battle.NewBattleData(battle.Trainer, 1, 1),
		Parties: []*battle.Party{mine, theirs},
		Dex:     dex,
		RNG:     random.Seeded(seed + 1),
	})
	if err != nil {
		return battle.NoWinner, err
	}
	conns := []*host.Conn{host.NewConn(mine.Name), host.NewConn(theirs.Name)}
	h, err := host.New(b, conns, bc.HostOptions())
	if err != nil {
		return battle.NoWinner, err
	}
	log.Debug().Str("battle", b.ID).Uint64("seed", seed).Msg("local battle")

	var wg sync.WaitGroup
	wg.Add(2)
	hostErr := make(chan error, 1)
	go func() {
		defer wg.Done()
		hostErr <- h.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		bot := ai.New(theirs.Name, dex, seed+2)
		if err := bot.Run(ctx, conns[1]); err != nil && !host.IsClosed(err) {
			log.Warn().Err(err).Msg("ai stopped")
		}
	}()

	human(ctx, conns[0], dex, in, out)
	wg.Wait()
	if err := <-hostErr; err != nil {
		return battle.NoWinner, err
	}

	winner, _ := b.Winner()
	p := b.Party(0)
	if err := pokemon.WriteSaveFile(opts.SavePath, &pokemon.SaveFile{Player: p.Name, Party: p.Save(), Bag: p.Bag}); err != nil {
		return winner, fmt.Errorf("save party: %w", err)
	}
	return winner, nil
}

// human plays conn from typed lines until the battle ends. Running out of
// input forfeits.
func human(ctx context.Context, conn *host.Conn, dex *pokemon.Dex, in io.Reader, out io.Writer) {
	var mu sync.Mutex
	session := client.NewSession(dex, out)

	ended := make(chan struct{})
	go func() {
		defer close(ended)
		for {
			m, err := conn.Recv(ctx)
			if err != nil {
				return
			}
			mu.Lock()
			if err := session.Handle(m); err != nil {
				log.Warn().Err(err).Str("message", string(m.Kind())).Msg("could not apply battle message")
			}
			mu.Unlock()
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ended:
				return
			}
		}
	}()

	for {
		select {
		case <-ended:
			return
		case line, ok := <-lines:
			if !ok {
				conn.Send(protocol.Forfeit{})
				lines = nil
				continue
			}
			if line == "" {
				continue
			}
			mu.Lock()
			msg, err := session.Input(line)
			mu.Unlock()
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if err := conn.Send(msg); err != nil {
				log.Warn().Err(err).Msg("could not send selection")
			}
		}
	}
}

// loadParty restores the saved party, or rolls a new one when there is no
// save yet. Either way the party starts fully healed.
func loadParty(dex *pokemon.Dex, gen *random.Engine, opts options) (*battle.Party, error) {
	bc := opts.Battle
	f, err := pokemon.ReadSaveFile(opts.SavePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		squad, err := dex.RandomSquad(gen, bc.PartySize, bc.MinLevel, bc.MaxLevel)
		if err != nil {
			return nil, err
		}
		f = &pokemon.SaveFile{Player: opts.Player, Bag: starterBag()}
		for _, p := range squad {
			f.Party = append(f.Party, p.Save())
		}
	case err != nil:
		return nil, err
	}

	members := make([]*pokemon.Pokemon, 0, len(f.Party))
	for _, s := range f.Party {
		p, err := dex.Restore(s)
		if err != nil {
			return nil, fmt.Errorf("save %s: %w", opts.SavePath, err)
		}
		heal(p)
		members = append(members, p)
	}
	name := f.Player
	if name == "" {
		name = opts.Player
	}
	party, err := battle.NewParty(name, members, 1)
	if err != nil {
		return nil, err
	}
	party.Bag = f.Bag
	if party.Bag == nil {
		party.Bag = map[string]int{}
	}
	return party, nil
}

func heal(p *pokemon.Pokemon) {
	p.SetHP(p.MaxHP())
	p.Cure()
	for i := range p.Moves {
		p.Moves[i].PP = p.Moves[i].Move.PP
	}
}

func starterBag() map[string]int {
	return map[string]int{"potion": 3, "super-potion": 1, "full-heal": 1}
}
