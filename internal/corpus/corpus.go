// Package corpus maintains the merged question/answer knowledge base used to
// shortcut common queries before paying for the generative fallback.
//
// Lookup is deliberately crude: a linear scan returning the first entry whose
// question appears as a case-insensitive substring of the prompt. That
// behavior is preserved for compatibility but hidden behind the Resolver
// interface so a ranked matcher can be substituted without touching the
// orchestrator.
package corpus

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Entry is a single question/answer pair. Entries are read-only to this
// package; ownership of the underlying data stays with the source.
type Entry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Source loads one corpus dataset. Merge order across sources determines
// scan order, and therefore lookup precedence under first-match-wins.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]Entry, error)
}

// Resolver answers a prompt from known entries, reporting a miss with false.
type Resolver interface {
	Lookup(prompt string) (string, bool)
}

// Snapshot is an immutable merged view of all sources. Readers always see a
// consistent snapshot; refresh builds a new one and swaps it in.
type Snapshot struct {
	entries []Entry
}

// NewSnapshot builds a snapshot over the given entries.
func NewSnapshot(entries []Entry) *Snapshot {
	return &Snapshot{entries: entries}
}

// Lookup scans entries in merge order and returns the answer of the first
// entry whose non-empty question is a case-insensitive substring of the
// prompt. No ranking, no scoring.
func (s *Snapshot) Lookup(prompt string) (string, bool) {
	lower := strings.ToLower(prompt)
	for _, e := range s.entries {
		if e.Question == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(e.Question)) {
			return e.Answer, true
		}
	}
	return "", false
}

// Len reports the number of merged entries.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Refresher owns the live snapshot and rebuilds it from its sources on
// demand. It implements Resolver by delegating to the current snapshot, so
// callers hold one reference for the lifetime of the process.
type Refresher struct {
	sources []Source
	current atomic.Pointer[Snapshot]
}

// NewRefresher creates a refresher over the given sources in merge order.
// The initial snapshot is empty until Refresh is called.
func NewRefresher(sources ...Source) *Refresher {
	r := &Refresher{sources: sources}
	r.current.Store(NewSnapshot(nil))
	return r
}

// Refresh reloads every source and atomically swaps in the merged snapshot.
// A failing source is logged and contributes nothing; the remaining sources
// still refresh so one broken file does not blind the whole corpus. The
// joined error is returned for callers that want to surface it.
func (r *Refresher) Refresh(ctx context.Context) error {
	var merged []Entry
	var errs []error

	for _, src := range r.sources {
		entries, err := src.Load(ctx)
		if err != nil {
			log.Error().Err(err).Str("source", src.Name()).Msg("corpus source load failed")
			errs = append(errs, err)
			continue
		}
		merged = append(merged, entries...)
	}

	r.current.Store(NewSnapshot(merged))
	log.Info().Int("entries", len(merged)).Msg("corpus refreshed")
	return errors.Join(errs...)
}

// Lookup resolves against the current snapshot.
func (r *Refresher) Lookup(prompt string) (string, bool) {
	return r.current.Load().Lookup(prompt)
}

// Snapshot returns the current snapshot for callers that need a stable view
// across multiple lookups.
func (r *Refresher) Snapshot() *Snapshot {
	return r.current.Load()
}
