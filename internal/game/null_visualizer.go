package game

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/pixelarena/arena-server-go/internal/game/effects"
)

const nullHistoryLimit = 200

// NullVisualizer acknowledges every effect immediately. It backs headless
// matches (planner against planner) and records what it was asked to play.
type NullVisualizer struct {
	logger *zap.Logger

	mu      sync.RWMutex
	history []effects.Request
}

// NewNullVisualizer creates a new null visualizer.
func NewNullVisualizer(logger *zap.Logger) *NullVisualizer {
	return &NullVisualizer{
		logger:  logger,
		history: make([]effects.Request, 0, 32),
	}
}

// RequestEffect records the request and acknowledges it synchronously.
func (n *NullVisualizer) RequestEffect(_ context.Context, req effects.Request, ack effects.AckFunc) error {
	n.mu.Lock()
	n.history = append(n.history, req)
	if len(n.history) > nullHistoryLimit {
		n.history = n.history[len(n.history)-nullHistoryLimit:]
	}
	n.mu.Unlock()

	if n.logger != nil {
		n.logger.Debug("null visualizer played effect",
			zap.String("action_id", req.ActionID),
			zap.String("kind", string(req.Kind)),
			zap.String("target", req.Target),
			zap.Int("amount", req.Amount),
		)
	}

	ack(effects.AckFor(req))
	return nil
}

// History returns the most recent effect requests, oldest first.
func (n *NullVisualizer) History() []effects.Request {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]effects.Request(nil), n.history...)
}
