// Package server runs battles for websocket clients: a lobby for
// registration and matchmaking, then a bridge between each socket and its
// battle host.
package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/mux"
	"github.com/ross1116/pokebattle/internal/config"
	"github.com/ross1116/pokebattle/internal/pokemon"
	"github.com/rs/zerolog/log"
)

func New(cfg config.Config, dex *pokemon.Dex) *Server {
	if dex == nil {
		dex = pokemon.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		dex:     dex,
		clients: make(map[string]*Client),
		rooms:   make(map[string]*Room),
		seed:    cfg.Battle.SeedOr(uint64(time.Now().UnixNano())),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.lobby = NewLobby(cfg.Battle.AIWait, s.startGame)

	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/battles", s.handleBattles).Methods(http.MethodGet)
	r.HandleFunc("/battles/{id}", s.handleBattle).Methods(http.MethodGet)
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then aborts every running battle.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Addr(), Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info().Str("addr", s.cfg.Addr()).Msg("server started")

	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = srv.Shutdown(shutdown)
		cancel()
	}
	s.Close()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}

// Close aborts running battles, waits for them and drops every client.
func (s *Server) Close() {
	s.cancel()
	s.games.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		c.ws.Close()
	}
}

// Players lists registered usernames in order.
func (s *Server) Players() []string {
	s.mu.Lock()
	players := make([]string, 0, len(s.clients))
	for name := range s.clients {
		players = append(players, name)
	}
	s.mu.Unlock()
	slices.Sort(players)
	return players
}

// Rooms lists running battles, oldest first.
func (s *Server) Rooms() []Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r.snapshot())
	}
	sortRooms(out)
	return out
}
