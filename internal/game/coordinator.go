package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pixelarena/arena-server-go/internal/game/character"
	"github.com/pixelarena/arena-server-go/internal/game/combat"
	"github.com/pixelarena/arena-server-go/internal/game/dice"
	"github.com/pixelarena/arena-server-go/internal/game/effects"
	"github.com/pixelarena/arena-server-go/internal/game/rules"
	"github.com/pixelarena/arena-server-go/internal/game/targeting"
	"github.com/pixelarena/arena-server-go/internal/narration"
)

const tracerName = "github.com/pixelarena/arena-server-go/internal/game"

// CoordinatorConfig wires the collaborators of a Coordinator. Nil fields
// fall back to a random dice source, an instantly acknowledging visualizer,
// identity narration and the global tracer; a nil Planner disables AI turns.
type CoordinatorConfig struct {
	Dice       dice.Source
	Visualizer effects.Visualizer
	Narrator   narration.Narrator
	Planner    Planner
	Tracer     trace.Tracer
}

// PendingAction describes the in-flight action, for surfacing stalls.
type PendingAction struct {
	ActionID    string     `json:"action_id"`
	Actor       rules.Role `json:"actor"`
	Outstanding int        `json:"outstanding"`
	Stalled     bool       `json:"stalled"`
	Fault       string     `json:"fault,omitempty"`
}

type flight struct {
	action  Action
	target  rules.Role
	outcome combat.Outcome
	tracker *effects.Tracker
	span    trace.Span
}

// Coordinator sequences resolved actions with their visual effects. It
// rolls every die up front, asks the visualizer to play one effect per
// swing or heal, and only once every effect is acknowledged applies the
// hit point change, narrates, switches the turn and releases the lock.
type Coordinator struct {
	logger     *zap.Logger
	match      *Match
	dispatcher *combat.Dispatcher
	targets    *targeting.TargetValidator
	visualizer effects.Visualizer
	narrator   narration.Narrator
	planner    Planner
	tracer     trace.Tracer

	mu       sync.Mutex
	inFlight *flight
	fault    error
	driving  bool
}

// NewCoordinator creates the coordinator that owns all mutation of match.
func NewCoordinator(match *Match, cfg CoordinatorConfig, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	src := cfg.Dice
	if src == nil {
		seed, err := dice.NewSeed()
		if err != nil {
			logger.Warn("falling back to fixed dice seed", zap.Error(err))
		}
		src = dice.NewSource(seed)
	}
	c := &Coordinator{
		logger:     logger.With(zap.String("match_id", match.ID())),
		match:      match,
		dispatcher: combat.NewDispatcher(src),
		targets:    targeting.NewTargetValidator(match),
		visualizer: cfg.Visualizer,
		narrator:   cfg.Narrator,
		planner:    cfg.Planner,
		tracer:     cfg.Tracer,
	}
	if c.visualizer == nil {
		c.visualizer = NewNullVisualizer(logger)
	}
	if c.narrator == nil {
		c.narrator = narration.Identity{}
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c
}

// Match returns the coordinated match.
func (c *Coordinator) Match() *Match {
	return c.match
}

// Start hands the first turn to the planner when that role is AI controlled.
func (c *Coordinator) Start(ctx context.Context) {
	c.match.Events().Publish(rules.NewEvent(rules.EventMatchStarted, c.match.ID(), "", c.match.CurrentTurn()))
	c.drive(ctx)
}

// Act resolves action and requests its visual effects. It returns the
// action's correlation id. The action completes when every effect has been
// acknowledged through CompleteEffect, which may already have happened
// by the time Act returns.
func (c *Coordinator) Act(ctx context.Context, action Action) (string, error) {
	ctx, f, events, err := c.begin(ctx, action)
	if err != nil {
		c.logger.Debug("action rejected",
			zap.String("action", action.String()),
			zap.Error(err),
		)
		return "", err
	}
	c.publish(events)

	actionID := f.tracker.ActionID()
	ack := c.ackFunc(ctx)
	for _, req := range f.tracker.Requests() {
		if err := c.visualizer.RequestEffect(ctx, req, ack); err != nil {
			c.stall(f, err)
			return actionID, fmt.Errorf("%w: effect %s: %v", ErrSessionStalled, req.Kind, err)
		}
	}
	return actionID, nil
}

func (c *Coordinator) begin(ctx context.Context, action Action) (context.Context, *flight, []rules.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fault != nil {
		return ctx, nil, nil, fmt.Errorf("%w: %v", ErrSessionStalled, c.fault)
	}
	if c.match.IsOver() {
		return ctx, nil, nil, ErrMatchOver
	}
	if c.inFlight != nil {
		return ctx, nil, nil, fmt.Errorf("%w: %s", ErrActionInFlight, c.inFlight.tracker.ActionID())
	}
	if current := c.match.CurrentTurn(); action.Actor != current {
		return ctx, nil, nil, fmt.Errorf("%w: %s acted during %s's turn", ErrNotYourTurn, action.Actor, current)
	}
	if action.Origin == OriginPlayer && c.match.IsAIControlled(action.Actor) {
		return ctx, nil, nil, fmt.Errorf("%w: %s", ErrAIControlled, action.Actor)
	}
	if action.Kind != ActionBasicAttack && action.Kind != ActionAbility {
		return ctx, nil, nil, fmt.Errorf("%w: %q", ErrUnknownAction, action.Kind)
	}

	if err := c.match.BeginAction(action.Actor); err != nil {
		return ctx, nil, nil, err
	}

	ctx, span := c.tracer.Start(ctx, "combat.action", trace.WithAttributes(
		attribute.String("match.id", c.match.ID()),
		attribute.String("action.actor", string(action.Actor)),
		attribute.String("action.kind", string(action.Kind)),
		attribute.String("action.origin", action.Origin.String()),
	))

	outcome, target, err := c.resolve(action)
	if err != nil {
		c.match.EndAction()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return ctx, nil, nil, err
	}

	actionID := uuid.NewString()
	tracker := effects.NewTracker(actionID, planEffects(outcome, target, action.Kind == ActionAbility), c.logger)
	span.SetAttributes(
		attribute.String("action.id", actionID),
		attribute.String("action.target", string(target)),
		attribute.Int("action.effects", len(tracker.Requests())),
	)
	f := &flight{
		action:  action,
		target:  target,
		outcome: outcome,
		tracker: tracker,
		span:    span,
	}
	c.inFlight = f

	c.logger.Info("action resolved",
		zap.String("action_id", actionID),
		zap.String("actor", string(action.Actor)),
		zap.String("target", string(target)),
		zap.String("kind", string(action.Kind)),
		zap.Int("effects", len(tracker.Requests())),
	)

	matchID := c.match.ID()
	started := rules.NewEventWithAmount(rules.EventActionStarted, matchID, actionID, action.Actor, target, 0)
	started.Data = string(action.Kind)
	events := []rules.Event{started}
	if atk, ok := outcome.(*combat.AttackOutcome); ok {
		for _, s := range atk.Swings {
			t := rules.EventSwingMissed
			if s.Hit {
				t = rules.EventSwingHit
			}
			evt := rules.NewEventWithAmount(t, matchID, actionID, action.Actor, target, s.Damage)
			evt.Flag = s.AutoHit
			events = append(events, evt)
		}
	}
	resolved := rules.NewEventWithAmount(rules.EventActionResolved, matchID, actionID, action.Actor, target, outcomeAmount(outcome))
	events = append(events, resolved)
	for _, req := range tracker.Requests() {
		evt := rules.NewEventWithAmount(rules.EventEffectRequested, matchID, actionID, action.Actor, target, req.Amount)
		evt.Data = string(req.Kind)
		evt.Metadata["effect_id"] = req.EffectID
		events = append(events, evt)
	}
	return ctx, f, events, nil
}

// resolve rolls the action against copies of the combatants. It never mutates the match.
func (c *Coordinator) resolve(action Action) (combat.Outcome, rules.Role, error) {
	actor, ok := c.match.Combatant(action.Actor)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownRole, action.Actor)
	}

	requirement := targeting.EnemyRequirement
	if action.Kind == ActionAbility {
		ability, ok := actor.Ability(action.AbilityIndex)
		if !ok {
			return nil, "", fmt.Errorf("%w: %s has %d abilities, got index %d",
				combat.ErrAbilityIndexOutOfRange, actor.Name, len(actor.Abilities), action.AbilityIndex)
		}
		if ability.Kind() == character.AbilityKindHealing {
			requirement = targeting.AllyRequirement
		}
	}

	target := action.Target
	if target == "" {
		var err error
		if target, err = c.targets.DefaultTarget(action.Actor, requirement); err != nil {
			return nil, "", err
		}
	} else if err := c.targets.ValidateTarget(action.Actor, target, requirement); err != nil {
		return nil, "", err
	}
	defender, _ := c.match.Combatant(target)

	if action.Kind == ActionBasicAttack {
		out, err := c.dispatcher.BasicAttack(actor, defender, actor.BasicAttackDie(c.match.AttackMode(action.Actor)))
		if err != nil {
			return nil, "", err
		}
		return out, target, nil
	}
	out, err := c.dispatcher.UseAbility(actor, defender, action.AbilityIndex)
	if err != nil {
		return nil, "", err
	}
	return out, target, nil
}

// planEffects lists the effects of an outcome in playback order: a cast
// for abilities, then one hit or miss per swing, or one heal.
func planEffects(outcome combat.Outcome, target rules.Role, ability bool) []effects.Request {
	var planned []effects.Request
	if ability {
		planned = append(planned, effects.Request{Kind: effects.KindCast, Target: string(target)})
	}
	switch o := outcome.(type) {
	case *combat.AttackOutcome:
		for _, s := range o.Swings {
			if s.Hit {
				planned = append(planned, effects.Request{Kind: effects.KindHit, Target: string(target), Amount: s.Damage})
			} else {
				planned = append(planned, effects.Request{Kind: effects.KindMiss, Target: string(target)})
			}
		}
	case *combat.HealOutcome:
		planned = append(planned, effects.Request{Kind: effects.KindHeal, Target: string(target), Amount: o.Amount})
	}
	return planned
}

func outcomeAmount(outcome combat.Outcome) int {
	switch o := outcome.(type) {
	case *combat.AttackOutcome:
		return o.TotalDamage
	case *combat.HealOutcome:
		return o.Amount
	}
	return 0
}

func (c *Coordinator) ackFunc(ctx context.Context) effects.AckFunc {
	return func(ack effects.Ack) {
		if err := c.CompleteEffect(ctx, ack); err != nil {
			c.logger.Debug("effect ack ignored",
				zap.String("action_id", ack.ActionID),
				zap.String("effect_id", ack.EffectID),
				zap.Error(err),
			)
		}
	}
}

// CompleteEffect records a visual effect acknowledgement. The last
// outstanding ack of an action applies its outcome. Unknown and duplicate
// acks are rejected without touching the match.
func (c *Coordinator) CompleteEffect(ctx context.Context, ack effects.Ack) error {
	c.mu.Lock()
	if c.fault != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrSessionStalled, c.fault)
	}
	f := c.inFlight
	if f == nil || f.tracker.ActionID() != ack.ActionID {
		c.mu.Unlock()
		return fmt.Errorf("%w: no action %s in flight", effects.ErrUnknownEffect, ack.ActionID)
	}
	done, err := f.tracker.Complete(ack)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	acked := rules.NewEventWithAmount(rules.EventEffectAcknowledged, c.match.ID(), ack.ActionID, f.action.Actor, f.target, f.tracker.Outstanding())
	acked.Metadata["effect_id"] = ack.EffectID
	events := []rules.Event{acked}
	if !done {
		c.mu.Unlock()
		c.publish(events)
		return nil
	}
	change, applied := c.applyLocked(f)
	events = append(events, applied...)
	raw := c.describeLocked(f, change)
	c.mu.Unlock()
	c.publish(events)

	// The narrator may be a remote call. The action stays in flight while it
	// runs, so other callers are rejected instead of waiting on the lock.
	line := narration.DescribeOrFallback(ctx, c.narrator, raw, c.logger)

	c.mu.Lock()
	events = c.settleLocked(f, change, raw, line)
	c.mu.Unlock()

	c.publish(events)
	f.span.End()
	c.drive(ctx)
	return nil
}

// applyLocked applies the cumulative HP change once every effect has
// played. Caller holds c.mu.
func (c *Coordinator) applyLocked(f *flight) (HPChange, []rules.Event) {
	matchID := c.match.ID()
	actionID := f.tracker.ActionID()
	actor := f.action.Actor

	var events []rules.Event
	var change HPChange
	var err error
	switch o := f.outcome.(type) {
	case *combat.AttackOutcome:
		if o.Hits() > 0 {
			change, err = c.match.ApplyDamage(f.target, o.TotalDamage)
			if err == nil {
				events = append(events, rules.NewEventWithAmount(rules.EventDamageApplied, matchID, actionID, actor, f.target, -change.Delta()))
			}
		}
	case *combat.HealOutcome:
		change, err = c.match.ApplyHeal(f.target, o.Amount)
		if err == nil {
			events = append(events, rules.NewEventWithAmount(rules.EventHealApplied, matchID, actionID, actor, f.target, change.Delta()))
		}
	}
	if err != nil {
		c.logger.Error("failed to apply outcome",
			zap.String("action_id", actionID),
			zap.Error(err),
		)
		f.span.RecordError(err)
	}
	if change.Downed {
		events = append(events, rules.NewEventWithAmount(rules.EventCombatantDowned, matchID, actionID, actor, f.target, 0))
	}
	return change, events
}

// describeLocked renders the raw event text of an applied action. Caller holds c.mu.
func (c *Coordinator) describeLocked(f *flight, change HPChange) string {
	victor, _ := c.match.Result()
	actorView, _ := c.match.Combatant(f.action.Actor)
	targetView, _ := c.match.Combatant(f.target)
	victorName := ""
	if victor != "" {
		if v, ok := c.match.Combatant(victor); ok {
			victorName = v.Name
		}
	}
	return describeOutcome(actorView.Name, targetView.Name, f.outcome, change, victorName)
}

// settleLocked logs the narration, switches the turn and releases the
// action lock. Caller holds c.mu.
func (c *Coordinator) settleLocked(f *flight, change HPChange, raw, line string) []rules.Event {
	matchID := c.match.ID()
	actionID := f.tracker.ActionID()
	actor := f.action.Actor

	c.match.AppendLog(line)
	narrated := rules.NewEvent(rules.EventNarration, matchID, actionID, actor)
	narrated.Data = line
	narrated.Metadata["raw"] = raw
	events := []rules.Event{narrated}

	if victor, defeated := c.match.Result(); victor != "" {
		over := rules.NewEventWithAmount(rules.EventMatchOver, matchID, actionID, victor, defeated, 0)
		events = append(events, over)
		c.logger.Info("match over",
			zap.String("victor", string(victor)),
			zap.String("defeated", string(defeated)),
		)
	} else if next, ok := c.match.SwitchTurn(actor); ok {
		events = append(events, rules.NewEvent(rules.EventTurnChanged, matchID, actionID, next))
	}

	c.match.EndAction()
	c.inFlight = nil
	events = append(events, rules.NewEventWithAmount(rules.EventActionCompleted, matchID, actionID, actor, f.target, change.Delta()))

	f.span.SetAttributes(
		attribute.Int("action.hp_delta", change.Delta()),
		attribute.Bool("action.downed", change.Downed),
	)
	c.logger.Info("action completed",
		zap.String("action_id", actionID),
		zap.String("actor", string(actor)),
		zap.String("target", string(f.target)),
		zap.Int("hp_before", change.Before),
		zap.Int("hp_after", change.After),
	)
	return events
}

// stall faults the session. The action lock stays held: guessing at the
// missing acknowledgements could apply the outcome twice or not at all.
func (c *Coordinator) stall(f *flight, cause error) {
	c.mu.Lock()
	if c.fault == nil {
		c.fault = cause
	}
	c.mu.Unlock()

	c.logger.Error("visual effect failed, session stalled",
		zap.String("action_id", f.tracker.ActionID()),
		zap.Int("outstanding", f.tracker.Outstanding()),
		zap.Error(cause),
	)
	f.span.RecordError(cause)
	f.span.SetStatus(codes.Error, "session stalled")
	f.span.End()

	evt := rules.NewEventWithAmount(rules.EventSessionFault, c.match.ID(), f.tracker.ActionID(), f.action.Actor, f.target, f.tracker.Outstanding())
	evt.Data = cause.Error()
	c.publish([]rules.Event{evt})
}

// Pending reports the in-flight action, if any.
func (c *Coordinator) Pending() (PendingAction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var p PendingAction
	if c.fault != nil {
		p.Stalled = true
		p.Fault = c.fault.Error()
	}
	if c.inFlight == nil {
		return p, false
	}
	p.ActionID = c.inFlight.tracker.ActionID()
	p.Actor = c.inFlight.action.Actor
	p.Outstanding = c.inFlight.tracker.Outstanding()
	return p, true
}

// Stalled reports whether the session has faulted.
func (c *Coordinator) Stalled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fault != nil
}

// drive plays planner turns until a human role is up, an action is left
// waiting on acknowledgements, or the match ends. Re-entrant calls return
// immediately; the outermost loop picks up the next turn.
func (c *Coordinator) drive(ctx context.Context) {
	if c.planner == nil {
		return
	}
	c.mu.Lock()
	if c.driving {
		c.mu.Unlock()
		return
	}
	c.driving = true
	c.mu.Unlock()

	for {
		c.mu.Lock()
		action, ok := c.nextPlannedLocked()
		if !ok {
			c.driving = false
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		_, err := c.Act(ctx, action)
		if err != nil && action.Kind == ActionAbility && !isProtocolError(err) {
			c.logger.Warn("planned ability failed, falling back to basic attack",
				zap.String("actor", string(action.Actor)),
				zap.Error(err),
			)
			_, err = c.Act(ctx, Action{Actor: action.Actor, Kind: ActionBasicAttack, Origin: OriginPlanner})
		}
		if err != nil {
			c.logger.Error("planner turn failed",
				zap.String("actor", string(action.Actor)),
				zap.Error(err),
			)
			c.mu.Lock()
			c.driving = false
			c.mu.Unlock()
			return
		}
	}
}

// nextPlannedLocked asks the planner for the current role's action. Caller holds c.mu.
func (c *Coordinator) nextPlannedLocked() (Action, bool) {
	if c.fault != nil || c.inFlight != nil || c.match.IsOver() {
		return Action{}, false
	}
	role := c.match.CurrentTurn()
	if !c.match.IsAIControlled(role) {
		return Action{}, false
	}
	action, err := c.planner.Plan(c.match.Snapshot(), role)
	if err != nil {
		c.logger.Error("planner failed", zap.String("role", string(role)), zap.Error(err))
		return Action{}, false
	}
	action.Actor = role
	action.Origin = OriginPlanner
	return action, true
}

func isProtocolError(err error) bool {
	for _, target := range []error{ErrMatchOver, ErrActionInFlight, ErrSessionStalled, ErrNotYourTurn, ErrAIControlled} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (c *Coordinator) publish(events []rules.Event) {
	c.match.Events().PublishBatch(events)
}
