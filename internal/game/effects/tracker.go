package effects

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tracker holds the outstanding effects of one in-flight action. Acks may
// arrive in any order; each effect completes at most once.
type Tracker struct {
	logger *zap.Logger

	mu          sync.Mutex
	actionID    string
	requests    []Request
	outstanding map[string]struct{}
}

// NewTracker assigns ids to the given effects and starts tracking them.
// The returned requests carry the action id, effect id and sequence number.
func NewTracker(actionID string, planned []Request, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		logger:      logger,
		actionID:    actionID,
		requests:    make([]Request, len(planned)),
		outstanding: make(map[string]struct{}, len(planned)),
	}
	for i, req := range planned {
		req.ActionID = actionID
		req.Seq = i
		if req.EffectID == "" {
			req.EffectID = uuid.NewString()
		}
		t.requests[i] = req
		t.outstanding[req.EffectID] = struct{}{}
	}
	return t
}

// ActionID returns the correlation id of the tracked action.
func (t *Tracker) ActionID() string {
	return t.actionID
}

// Requests returns the effect requests in playback order.
func (t *Tracker) Requests() []Request {
	return append([]Request(nil), t.requests...)
}

// Complete records ack. It reports whether every effect has now completed.
// Duplicate acks and acks for another action return ErrUnknownEffect and
// change nothing.
func (t *Tracker) Complete(ack Ack) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ack.ActionID != t.actionID {
		t.logger.Debug("ignoring ack for another action",
			zap.String("action_id", t.actionID),
			zap.String("ack_action_id", ack.ActionID),
		)
		return false, fmt.Errorf("%w: action %s", ErrUnknownEffect, ack.ActionID)
	}
	if _, ok := t.outstanding[ack.EffectID]; !ok {
		t.logger.Debug("ignoring duplicate or unknown ack",
			zap.String("action_id", t.actionID),
			zap.String("effect_id", ack.EffectID),
		)
		return false, fmt.Errorf("%w: effect %s", ErrUnknownEffect, ack.EffectID)
	}
	delete(t.outstanding, ack.EffectID)
	return len(t.outstanding) == 0, nil
}

// Outstanding returns the number of effects still awaiting an ack.
func (t *Tracker) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.outstanding)
}

// Done reports whether all effects have completed.
func (t *Tracker) Done() bool {
	return t.Outstanding() == 0
}
