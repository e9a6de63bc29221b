// Package narration turns raw battle event text into flavor text.
package narration

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Narrator describes a battle event. Implementations may call remote
// services; callers must treat any error as cosmetic.
type Narrator interface {
	Describe(ctx context.Context, eventText string) (string, error)
}

// Identity returns the event text unchanged.
type Identity struct{}

// Describe implements Narrator.
func (Identity) Describe(_ context.Context, eventText string) (string, error) {
	return eventText, nil
}

// DescribeOrFallback narrates eventText and falls back to the raw text when
// the narrator is missing, fails or returns nothing.
func DescribeOrFallback(ctx context.Context, n Narrator, eventText string, logger *zap.Logger) string {
	if n == nil {
		return eventText
	}
	line, err := n.Describe(ctx, eventText)
	if err != nil {
		if logger != nil {
			logger.Warn("narration failed, using raw event text",
				zap.String("event", eventText),
				zap.Error(err),
			)
		}
		return eventText
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return eventText
	}
	return line
}
