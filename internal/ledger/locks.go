package ledger

import (
	"sort"
	"sync"

	"backoffice/internal/core"
)

// accountLocks serializes writers per account. Multi-account writes lock in
// sorted id order so two transfers over the same pair cannot deadlock.
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *accountLocks) get(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// lock acquires every account among ids; cash and empty ids are ignored.
// The returned func releases them.
func (l *accountLocks) lock(ids ...string) func() {
	seen := make(map[string]struct{}, len(ids))
	var ordered []string
	for _, id := range ids {
		if !core.UsesAccount(id) {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}
	sort.Strings(ordered)

	held := make([]*sync.Mutex, 0, len(ordered))
	for _, id := range ordered {
		m := l.get(id)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
