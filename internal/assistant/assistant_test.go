package assistant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/pheoni/internal/corpus"
	"github.com/normanking/pheoni/internal/gateway"
	"github.com/normanking/pheoni/internal/meetings"
)

var testNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.Local)

type fixture struct {
	store *meetings.Store
	links *LinkStore
}

// newResponder wires a responder over temp stores, a fixed clock, the given
// corpus entries, and a shell one-liner as the generation process.
func newResponder(t *testing.T, entries []corpus.Entry, genScript string) (*Responder, *fixture) {
	t.Helper()

	store, err := meetings.Open(t.TempDir())
	require.NoError(t, err)
	store.SetClock(func() time.Time { return testNow })
	t.Cleanup(func() { store.Close() })

	links, err := OpenLinks(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { links.Close() })

	gen := gateway.New(gateway.Config{
		Command: "/bin/sh",
		Args:    []string{"-c", genScript},
		Budget:  500 * time.Millisecond,
	})

	r := New(store, corpus.NewSnapshot(entries), gen, links)
	return r, &fixture{store: store, links: links}
}

func TestResolveSchedule(t *testing.T) {
	r, fx := newResponder(t, nil, "cat")
	ctx := context.Background()

	t.Run("end to end on a fixed clock", func(t *testing.T) {
		resp, err := r.Resolve(ctx, "schedule a meeting tomorrow at 3:30 PM with Alice")
		require.NoError(t, err)
		assert.Contains(t, resp, "2025-03-11")
		assert.Contains(t, resp, "Alice")

		all, err := fx.store.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "2025-03-11", all[0].Date)
		assert.Equal(t, "3:30 PM", all[0].Time)
		assert.Equal(t, "Alice", all[0].Counterpart)
	})

	t.Run("bad date is a friendly message, not an error", func(t *testing.T) {
		resp, err := r.Resolve(ctx, "schedule a meeting someday soon with Bob")
		require.NoError(t, err)
		assert.Contains(t, resp, "couldn't understand the date")
		assert.Contains(t, resp, "someday soon")
	})
}

func TestResolveList(t *testing.T) {
	r, fx := newResponder(t, nil, "cat")
	ctx := context.Background()

	t.Run("empty store returns the fixed message", func(t *testing.T) {
		resp, err := r.Resolve(ctx, "what meetings do i have")
		require.NoError(t, err)
		assert.Equal(t, msgNoMeetings, resp)
	})

	t.Run("lists in store order", func(t *testing.T) {
		_, err := fx.store.Create(ctx, "2025-03-12", "10:00", "Alice")
		require.NoError(t, err)
		_, err = fx.store.Create(ctx, "2025-03-13", "", "Bob")
		require.NoError(t, err)

		resp, err := r.Resolve(ctx, "what meetings do i have")
		require.NoError(t, err)
		assert.Contains(t, resp, "2 meeting(s)")
		assert.Contains(t, resp, "on 2025-03-12 at 10:00 with Alice")
		assert.Contains(t, resp, "on 2025-03-13 at Not specified with Bob")
	})
}

func TestResolveCancel(t *testing.T) {
	r, fx := newResponder(t, nil, "cat")
	ctx := context.Background()

	_, err := fx.store.Create(ctx, "2025-03-12", "", "Alice")
	require.NoError(t, err)

	t.Run("no match", func(t *testing.T) {
		resp, err := r.Resolve(ctx, "cancel the meeting on 2025-03-12 with Carol")
		require.NoError(t, err)
		assert.Equal(t, msgNoMatch, resp)
	})

	t.Run("deletes and counts", func(t *testing.T) {
		resp, err := r.Resolve(ctx, "cancel the meeting on 2025-03-12 with alice")
		require.NoError(t, err)
		assert.Equal(t, "Deleted 1 meeting(s).", resp)
	})
}

func TestResolveCorpusHit(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "gateway-invoked")
	r, _ := newResponder(t,
		[]corpus.Entry{{Question: "what is your name", Answer: "I am Pheoni"}},
		fmt.Sprintf("touch %s", marker))

	resp, err := r.Resolve(context.Background(), "hey, what is your name?")
	require.NoError(t, err)
	assert.Equal(t, "I am Pheoni", resp)

	// The generative gateway was never invoked.
	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr))
}

func TestResolveFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("corpus miss delegates to the gateway", func(t *testing.T) {
		r, _ := newResponder(t, nil, "echo generated answer")
		resp, err := r.Resolve(ctx, "tell me something new")
		require.NoError(t, err)
		assert.Equal(t, "generated answer", resp)
	})

	t.Run("timeout resolves to the fixed apology", func(t *testing.T) {
		r, _ := newResponder(t, nil, "sleep 5")
		resp, err := r.Resolve(ctx, "tell me something slow")
		require.NoError(t, err)
		assert.Equal(t, msgTimeout, resp)
	})

	t.Run("process failure resolves to the fixed apology", func(t *testing.T) {
		r, _ := newResponder(t, nil, "exit 1")
		resp, err := r.Resolve(ctx, "tell me something broken")
		require.NoError(t, err)
		assert.Equal(t, msgProcessFailure, resp)
	})
}

func TestResolveOpenLink(t *testing.T) {
	r, fx := newResponder(t, nil, "cat")
	ctx := context.Background()

	t.Run("unknown link", func(t *testing.T) {
		resp, err := r.Resolve(ctx, "open github")
		require.NoError(t, err)
		assert.Equal(t, msgLinkNotFound, resp)
	})

	t.Run("saved link", func(t *testing.T) {
		require.NoError(t, fx.links.Add(ctx, "GitHub", "https://github.com"))
		resp, err := r.Resolve(ctx, "open github")
		require.NoError(t, err)
		assert.Contains(t, resp, "Opening GitHub")
		assert.Contains(t, resp, "https://github.com")
	})
}

func TestLinkStore(t *testing.T) {
	links, err := OpenLinks(t.TempDir())
	require.NoError(t, err)
	defer links.Close()
	ctx := context.Background()

	require.NoError(t, links.Add(ctx, "Docs", "https://docs.example.com"))

	t.Run("duplicate names rejected case-insensitively", func(t *testing.T) {
		err := links.Add(ctx, "docs", "https://elsewhere.example.com")
		assert.ErrorIs(t, err, ErrDuplicateLink)
	})

	t.Run("remove then find", func(t *testing.T) {
		require.NoError(t, links.Remove(ctx, "DOCS"))
		l, err := links.Find(ctx, "docs")
		require.NoError(t, err)
		assert.Nil(t, l)
	})
}
