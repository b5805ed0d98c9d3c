package server

import (
	"slices"
	"sync"
	"time"
)

// Lobby pairs queued clients in arrival order. A client that accepts an AI
// opponent gets one once it has waited wait without a human turning up.
type Lobby struct {
	mu      sync.Mutex
	waiting []*waiter
	wait    time.Duration
	match   func(players ...*Client)
}

type waiter struct {
	client *Client
	timer  *time.Timer
}

// NewLobby calls match with the paired clients; a nil client stands for an
// AI opponent.
func NewLobby(wait time.Duration, match func(players ...*Client)) *Lobby {
	return &Lobby{wait: wait, match: match}
}

// Queue pairs c with the longest waiting client, or adds it to the queue.
// queued runs before any AI match can be made for c.
func (l *Lobby) Queue(c *Client, wantsAI bool, queued func()) {
	l.mu.Lock()
	if l.indexOf(c) >= 0 {
		l.mu.Unlock()
		return
	}
	if len(l.waiting) > 0 {
		first := l.waiting[0]
		l.waiting = l.waiting[1:]
		if first.timer != nil {
			first.timer.Stop()
		}
		l.mu.Unlock()
		l.match(first.client, c)
		return
	}
	w := &waiter{client: c}
	l.waiting = append(l.waiting, w)
	if queued != nil {
		queued()
	}
	if wantsAI {
		w.timer = time.AfterFunc(l.wait, func() {
			if l.Leave(c) {
				l.match(c, nil)
			}
		})
	}
	l.mu.Unlock()
}

// Leave drops c from the queue and reports whether it was waiting.
func (l *Lobby) Leave(c *Client) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexOf(c)
	if i < 0 {
		return false
	}
	if t := l.waiting[i].timer; t != nil {
		t.Stop()
	}
	l.waiting = slices.Delete(l.waiting, i, i+1)
	return true
}

func (l *Lobby) Waiting() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, len(l.waiting))
	for i, w := range l.waiting {
		names[i] = w.client.Username
	}
	return names
}

func (l *Lobby) indexOf(c *Client) int {
	return slices.IndexFunc(l.waiting, func(w *waiter) bool { return w.client == c })
}
