package effects

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies the visual effect the renderer should play.
type Kind string

const (
	KindHit  Kind = "hit"
	KindMiss Kind = "miss"
	KindHeal Kind = "heal"
	KindCast Kind = "cast"
)

// ErrUnknownEffect is returned for acks that do not match an outstanding effect.
var ErrUnknownEffect = errors.New("unknown effect")

// Request asks the renderer to play one effect. ActionID correlates every
// effect of a single action; Seq is the intended playback order.
type Request struct {
	ActionID string `json:"action_id"`
	EffectID string `json:"effect_id"`
	Seq      int    `json:"seq"`
	Kind     Kind   `json:"kind"`
	Target   string `json:"target"`
	Amount   int    `json:"amount"`
}

// Ack reports that the renderer finished playing an effect.
type Ack struct {
	ActionID string `json:"action_id"`
	EffectID string `json:"effect_id"`
}

// AckFor builds the acknowledgement matching req.
func AckFor(req Request) Ack {
	return Ack{ActionID: req.ActionID, EffectID: req.EffectID}
}

// AckFunc delivers an acknowledgement back to whoever requested the effect.
// It may be called synchronously from RequestEffect or later from another
// goroutine.
type AckFunc func(Ack)

// Visualizer plays effects. RequestEffect returns an error only when the
// request could not be handed to the renderer at all.
type Visualizer interface {
	RequestEffect(ctx context.Context, req Request, ack AckFunc) error
}

// VisualizerFunc adapts a plain function to Visualizer.
type VisualizerFunc func(ctx context.Context, req Request, ack AckFunc) error

// RequestEffect implements Visualizer.
func (f VisualizerFunc) RequestEffect(ctx context.Context, req Request, ack AckFunc) error {
	return f(ctx, req, ack)
}

// CallbackVisualizer adapts renderers exposing the callback style
// requestEffect(kind, target, amount, onComplete) contract.
type CallbackVisualizer struct {
	Play func(kind Kind, target string, amount int, onComplete func()) error
}

// RequestEffect implements Visualizer.
func (c CallbackVisualizer) RequestEffect(ctx context.Context, req Request, ack AckFunc) error {
	if c.Play == nil {
		return fmt.Errorf("callback visualizer: no renderer attached")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Play(req.Kind, req.Target, req.Amount, func() { ack(AckFor(req)) })
}
