package server

import (
	"context"
	"errors"

	"github.com/pixelarena/arena-server-go/internal/game/effects"
)

// ErrClientGone is returned when an effect cannot be queued for a client.
var ErrClientGone = errors.New("client disconnected or not reading")

// socketVisualizer forwards effect requests to the browser. Acknowledgements
// come back as effect_done messages routed to Coordinator.CompleteEffect,
// so the AckFunc is not kept.
type socketVisualizer struct {
	client *client
}

func (v socketVisualizer) RequestEffect(ctx context.Context, req effects.Request, _ effects.AckFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := req
	if !v.client.enqueue(ServerMessage{Type: MsgEffect, ActionID: req.ActionID, Effect: &r}) {
		return ErrClientGone
	}
	return nil
}
