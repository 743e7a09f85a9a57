// Package assistant implements the resolution pipeline: incoming text is
// matched against structured commands first, then against the corpus, and
// finally delegated to the generative fallback. Every request resolves to
// exactly one response string.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/normanking/pheoni/internal/corpus"
	"github.com/normanking/pheoni/internal/dates"
	"github.com/normanking/pheoni/internal/gateway"
	"github.com/normanking/pheoni/internal/intent"
	"github.com/normanking/pheoni/internal/meetings"
)

// DefaultRoleHint primes the generative fallback with the assistant persona.
const DefaultRoleHint = "You are Pheoni, a concise AI assistant."

// Fixed user-facing responses. Parsing and external-dependency failures are
// resolved into these here; raw errors never reach the caller.
const (
	msgNoMeetings     = "You have no meetings scheduled."
	msgNoMatch        = "No matching meetings found."
	msgLinkNotFound   = "Sorry, I couldn't find that link."
	msgTimeout        = "Response taking too long. Please try again."
	msgProcessFailure = "An error occurred. Please try again."
)

// listSeparator joins meeting lines in the listing response.
const listSeparator = "; "

// Responder sequences the resolution pipeline. It is stateless across
// requests apart from shared references to the store, corpus and gateway,
// so concurrent in-flight requests are fine.
type Responder struct {
	store    *meetings.Store
	corpus   corpus.Resolver
	gen      *gateway.Gateway
	links    *LinkStore // optional
	roleHint string
}

// New creates a responder. links may be nil, in which case open-link
// commands resolve to the not-found message.
func New(store *meetings.Store, resolver corpus.Resolver, gen *gateway.Gateway, links *LinkStore) *Responder {
	return &Responder{
		store:    store,
		corpus:   resolver,
		gen:      gen,
		links:    links,
		roleHint: DefaultRoleHint,
	}
}

// Resolve turns one request text into one response string. The only non-nil
// errors are store failures; everything else resolves locally into a
// friendly message.
func (r *Responder) Resolve(ctx context.Context, text string) (string, error) {
	in := intent.Classify(text)
	log.Debug().Stringer("intent", in.Kind).Str("text", text).Msg("request classified")

	switch in.Kind {
	case intent.KindListMeetings:
		return r.listMeetings(ctx)
	case intent.KindScheduleMeeting:
		return r.scheduleMeeting(ctx, in)
	case intent.KindCancelMeeting:
		return r.cancelMeeting(ctx, in)
	case intent.KindOpenLink:
		return r.openLink(ctx, in.LinkName)
	default:
		return r.answer(ctx, in.Text), nil
	}
}

func (r *Responder) listMeetings(ctx context.Context) (string, error) {
	all, err := r.store.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("list meetings: %w", err)
	}
	if len(all) == 0 {
		return msgNoMeetings, nil
	}

	lines := make([]string, len(all))
	for i, m := range all {
		lines[i] = fmt.Sprintf("on %s at %s with %s", m.Date, m.Time, m.Counterpart)
	}
	return fmt.Sprintf("You have %d meeting(s): %s.", len(all), strings.Join(lines, listSeparator)), nil
}

func (r *Responder) scheduleMeeting(ctx context.Context, in intent.Intent) (string, error) {
	m, err := r.store.Create(ctx, in.DateText, in.TimeText, in.Counterpart)
	if errors.Is(err, dates.ErrUnparseable) {
		return badDate(in.DateText), nil
	}
	if err != nil {
		return "", fmt.Errorf("create meeting: %w", err)
	}
	return fmt.Sprintf("Meeting scheduled on %s at %s with %s.", m.Date, m.Time, m.Counterpart), nil
}

func (r *Responder) cancelMeeting(ctx context.Context, in intent.Intent) (string, error) {
	n, err := r.store.Cancel(ctx, in.DateText, in.Counterpart)
	if errors.Is(err, dates.ErrUnparseable) {
		return badDate(in.DateText), nil
	}
	if err != nil {
		return "", fmt.Errorf("cancel meetings: %w", err)
	}
	if n == 0 {
		return msgNoMatch, nil
	}
	return fmt.Sprintf("Deleted %d meeting(s).", n), nil
}

func (r *Responder) openLink(ctx context.Context, name string) (string, error) {
	if r.links == nil {
		return msgLinkNotFound, nil
	}
	l, err := r.links.Find(ctx, name)
	if err != nil {
		return "", fmt.Errorf("find link: %w", err)
	}
	if l == nil {
		return msgLinkNotFound, nil
	}
	return fmt.Sprintf("Opening %s: %s", l.Name, l.URL), nil
}

// answer resolves unclassified text: corpus first, generative fallback on a
// miss. Fallback failures become fixed apologies, never raw errors.
func (r *Responder) answer(ctx context.Context, prompt string) string {
	if answer, ok := r.corpus.Lookup(prompt); ok {
		log.Debug().Msg("corpus hit")
		return answer
	}

	text, err := r.gen.Generate(ctx, prompt, r.roleHint)
	switch {
	case errors.Is(err, gateway.ErrTimeout):
		return msgTimeout
	case err != nil:
		return msgProcessFailure
	}
	return text
}

func badDate(dateText string) string {
	return fmt.Sprintf("Sorry, I couldn't understand the date %q.", dateText)
}
