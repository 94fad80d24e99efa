package tales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

var (
	// ErrInvalidChoice is returned for a choice index the current node does not offer
	ErrInvalidChoice = errors.New("invalid choice")
	// ErrFinished is returned when choosing after an ending was reached
	ErrFinished = errors.New("tale already finished")
)

// CompletionFunc is called when a reader reaches an ending
type CompletionFunc func(ctx context.Context, taleID string) error

// Step is one visited node and the label picked there, if any
type Step struct {
	NodeID string
	Picked string
}

// Session walks one reader through a tale. Not safe for concurrent use.
type Session struct {
	tale       *Tale
	steps      []Step
	onComplete CompletionFunc
	completed  bool
}

// NewSession starts t at its start node. onComplete may be nil.
func NewSession(t *Tale, onComplete CompletionFunc) *Session {
	return &Session{
		tale:       t,
		steps:      []Step{{NodeID: t.Start}},
		onComplete: onComplete,
	}
}

// Tale returns the tale being read
func (s *Session) Tale() *Tale {
	return s.tale
}

// CurrentID returns the id of the node being shown
func (s *Session) CurrentID() string {
	return s.steps[len(s.steps)-1].NodeID
}

// Current returns the node being shown
func (s *Session) Current() Node {
	return s.tale.Nodes[s.CurrentID()]
}

// Finished reports whether the current node is an ending
func (s *Session) Finished() bool {
	return s.Current().Ending
}

// Path returns the visited steps, the current node last
func (s *Session) Path() []Step {
	out := make([]Step, len(s.steps))
	copy(out, s.steps)
	return out
}

// Choose follows choice i of the current node. Landing on an ending runs the
// completion hook once per session; its error is logged and not returned.
func (s *Session) Choose(ctx context.Context, i int) (Node, error) {
	cur := s.Current()
	if cur.Ending {
		return cur, ErrFinished
	}
	if i < 0 || i >= len(cur.Choices) {
		return cur, fmt.Errorf("%w: %d of %d", ErrInvalidChoice, i, len(cur.Choices))
	}

	choice := cur.Choices[i]
	next, ok := s.tale.Nodes[choice.Next]
	if !ok {
		return cur, fmt.Errorf("%w: node %q not found", ErrInvalidChoice, choice.Next)
	}

	s.steps[len(s.steps)-1].Picked = choice.Label
	s.steps = append(s.steps, Step{NodeID: choice.Next})

	if next.Ending && !s.completed {
		s.completed = true
		if s.onComplete != nil {
			if err := s.onComplete(ctx, s.tale.ID); err != nil {
				slog.Warn("failed to record finished tale", "tale", s.tale.ID, "error", err)
			}
		}
	}
	return next, nil
}

// Restart goes back to the start node. The completion hook stays spent.
func (s *Session) Restart() {
	s.steps = []Step{{NodeID: s.tale.Start}}
}

var whitespace = regexp.MustCompile(`\s+`)

// Snippet returns the current node text collapsed to single spaces and cut to maxLen runes
func (s *Session) Snippet(maxLen int) string {
	text := strings.TrimSpace(whitespace.ReplaceAllString(s.Current().Text, " "))
	if maxLen <= 0 {
		return ""
	}
	r := []rune(text)
	if len(r) > maxLen {
		r = r[:maxLen]
	}
	return string(r)
}

// ShareSnippetLen is how much node text goes into a share message
const ShareSnippetLen = 140

// ShareMessage builds the text shared from the reader
func (s *Session) ShareMessage() string {
	msg := fmt.Sprintf("I'm reading %q in Tales of the Magic Panda 🐼📖", s.tale.Title)
	if snippet := s.Snippet(ShareSnippetLen); snippet != "" {
		msg += "\n\n“" + snippet + "…”"
	}
	return msg
}
