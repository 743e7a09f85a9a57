// Package voice manages listening episodes. Speech capture and synthesis
// are external collaborators consumed through interfaces; this package owns
// only the session lifecycle, replacing the process-global recognition
// handle of earlier iterations with an explicitly owned object that has
// clear start/stop entry points.
package voice

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Transcriber captures audio and emits recognized utterances. The channel is
// closed when the episode ends on the capture side.
type Transcriber interface {
	Listen(ctx context.Context) (<-chan string, error)
}

// Synthesizer speaks a response aloud.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// ResolveFunc resolves one utterance to one response.
type ResolveFunc func(ctx context.Context, text string) (string, error)

// ErrAlreadyStarted is returned by Start on a running session.
var ErrAlreadyStarted = errors.New("listening session already started")

// Session is one listening episode: it owns its transcriber subscription
// from Start until Stop (or context cancellation) and feeds every utterance
// through the resolver, speaking the response when a synthesizer is present.
type Session struct {
	transcriber Transcriber
	synth       Synthesizer // optional
	resolve     ResolveFunc

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewSession creates a session. synth may be nil for text-only consumers.
func NewSession(t Transcriber, synth Synthesizer, resolve ResolveFunc) *Session {
	return &Session{transcriber: t, synth: synth, resolve: resolve}
}

// Start begins the listening episode. It returns once the transcriber is
// subscribed; resolution runs in the background until Stop is called, ctx is
// cancelled, or the transcriber closes its channel.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	transcripts, err := s.transcriber.Listen(runCtx)
	if err != nil {
		cancel()
		return err
	}

	s.started = true
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx, transcripts)
	log.Info().Msg("listening session started")
	return nil
}

// Stop ends the episode and waits for in-flight resolution to finish.
// Stopping a never-started or already-stopped session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.started = false
	s.mu.Unlock()

	cancel()
	<-done
	log.Info().Msg("listening session stopped")
}

func (s *Session) run(ctx context.Context, transcripts <-chan string) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-transcripts:
			if !ok {
				return
			}
			text := Preprocess(raw)
			if text == "" {
				continue
			}
			resp, err := s.resolve(ctx, text)
			if err != nil {
				log.Error().Err(err).Msg("utterance resolution failed")
				continue
			}
			if s.synth != nil {
				if err := s.synth.Speak(ctx, resp); err != nil {
					log.Warn().Err(err).Msg("speech synthesis failed")
				}
			}
		}
	}
}

// Preprocess cleans a raw transcript: trimmed, inner whitespace collapsed.
// Case is left intact so slot values like participant names survive.
func Preprocess(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
