package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/ports"
)

// Mask replaces every match of a redaction pattern.
const Mask = "***"

type piiMiddleware struct {
	next     ports.StatePublisher
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks text matching the patterns
// in turns, pending input and the error message before publishing.
// The session's own state is never modified.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		patterns[i] = re
	}
	return func(next ports.StatePublisher) ports.StatePublisher {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Publish(ctx context.Context, snap domain.Snapshot) error {
	// Transcript is immutable, so masking builds a new one.
	turns := snap.Transcript.Turns()
	for i := range turns {
		turns[i].Content = m.mask(turns[i].Content)
	}
	snap.Transcript = domain.NewTranscript(turns...)
	snap.PendingInput = m.mask(snap.PendingInput)
	snap.LastError = m.mask(snap.LastError)

	return m.next.Publish(ctx, snap)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
