// Package command serializes mode commands against the BMC and keeps the state store consistent.
package command

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/device-management-toolkit/bmcserver/internal/cache"
	"github.com/device-management-toolkit/bmcserver/internal/entity"
	"github.com/device-management-toolkit/bmcserver/internal/usecase/state"
	"github.com/device-management-toolkit/bmcserver/pkg/logger"
)

// Processor admits at most one command at a time. A command that finds the device busy
// is rejected, never queued, and nothing here retries a device call.
type Processor struct {
	store    *state.Store
	link     DeviceLink
	replay   *cache.Cache
	pub      Publisher
	log      logger.Interface
	safeMode entity.DeviceMode
	newID    func() string
	tracer   trace.Tracer

	// pubMu keeps snapshot order and publish order the same
	pubMu sync.Mutex
}

const tracerName = "github.com/device-management-toolkit/bmcserver/internal/usecase/command"

var _ Feature = (*Processor)(nil)

// Option -.
type Option func(*Processor)

// WithReplayCache enables idempotency token replay backed by c.
func WithReplayCache(c *cache.Cache) Option {
	return func(p *Processor) {
		p.replay = c
	}
}

// WithPublisher registers pub for state change notifications.
func WithPublisher(pub Publisher) Option {
	return func(p *Processor) {
		p.pub = pub
	}
}

// WithSafeMode sets the mode Zero drives the device to. Defaults to OFF.
func WithSafeMode(m entity.DeviceMode) Option {
	return func(p *Processor) {
		p.safeMode = m
	}
}

// WithIDGenerator replaces the command id source.
func WithIDGenerator(gen func() string) Option {
	return func(p *Processor) {
		p.newID = gen
	}
}

// WithTracerProvider records device spans on tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Processor) {
		p.tracer = tp.Tracer(tracerName)
	}
}

// New -.
func New(store *state.Store, link DeviceLink, log logger.Interface, opts ...Option) *Processor {
	p := &Processor{
		store:    store,
		link:     link,
		log:      log,
		safeMode: entity.ModeOff,
		newID:    uuid.NewString,
		tracer:   otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(p)
	}

	RecordMode(store.Snapshot().CurrentMode)

	return p
}

// replayEntry is what an idempotency token remembers.
type replayEntry struct {
	target entity.DeviceMode
	result entity.CommandResult
}

// Process validates req, claims the device and applies the transition.
func (p *Processor) Process(ctx context.Context, req entity.CommandRequest) entity.CommandResult {
	target, err := entity.ParseDeviceMode(req.TargetMode)
	if err != nil {
		recordOutcome(entity.OutcomeRejected, "invalid_mode")

		return entity.Rejected(ValidationError{Reason: ReasonInvalidMode, Err: err})
	}

	if res, ok := p.lookupReplay(req.IdempotencyToken, target); ok {
		return res
	}

	if !p.store.BeginCommand() {
		recordOutcome(entity.OutcomeRejected, "in_progress")
		p.log.Debug("command - Process - rejected %s: command in progress", target)

		return entity.Rejected(ConflictError{})
	}

	p.publish()

	return p.apply(ctx, target, req.IdempotencyToken)
}

// Zero drives the device to the configured safe mode.
func (p *Processor) Zero(ctx context.Context) entity.CommandResult {
	return p.Process(ctx, entity.CommandRequest{TargetMode: p.safeMode.String()})
}

// apply runs with the in-flight marker held and releases it on every exit, panics included.
func (p *Processor) apply(ctx context.Context, target entity.DeviceMode, token string) entity.CommandResult {
	id := p.newID()
	released := false

	defer func() {
		if released {
			return
		}

		if err := p.store.Abort(); err != nil {
			p.log.Error(err, "command - apply - abort after fault")
		}

		recordOutcome(entity.OutcomeFailed, "fault")
		p.log.Error("command %s target=%s aborted by unexpected fault", id, target)
		p.publish()
	}()

	commandInFlight.Set(1)
	defer commandInFlight.Set(0)

	// once admitted the command runs to completion; the caller going away must not cut it short
	ctx, span := p.tracer.Start(context.WithoutCancel(ctx), "DeviceLink.Send",
		trace.WithAttributes(
			attribute.String("bmc.command_id", id),
			attribute.String("bmc.target_mode", target.String()),
		))
	defer span.End()

	start := time.Now()
	confirmed, err := p.link.Send(ctx, target)
	latency := time.Since(start)

	recordDeviceLink(target, latency)

	if err == nil && confirmed != target {
		err = unconfirmedError(target, confirmed)
	}

	if err != nil {
		derr := NormalizeDeviceError(target, err)

		span.RecordError(derr)
		span.SetStatus(codes.Error, string(derr.Kind))

		if abortErr := p.store.Abort(); abortErr != nil {
			p.log.Error(abortErr, "command - apply - abort")
		}

		released = true

		recordOutcome(entity.OutcomeFailed, string(derr.Kind))
		p.log.Warn("command %s target=%s outcome=failed kind=%s latency=%s err=%v", id, target, derr.Kind, latency, derr.Err)
		p.publish()

		return entity.Failed(derr, id)
	}

	if commitErr := p.store.Commit(confirmed); commitErr != nil {
		p.log.Error(commitErr, "command - apply - commit")
	}

	released = true

	span.SetAttributes(attribute.String("bmc.confirmed_mode", confirmed.String()))

	RecordMode(confirmed)
	recordOutcome(entity.OutcomeApplied, "ok")
	p.log.Info("command %s target=%s outcome=applied latency=%s", id, target, latency)
	p.publish()

	res := entity.Applied(confirmed, id)
	p.rememberReplay(token, target, res)

	return res
}

func (p *Processor) lookupReplay(token string, target entity.DeviceMode) (entity.CommandResult, bool) {
	if token == "" || p.replay == nil {
		return entity.CommandResult{}, false
	}

	v, ok := p.replay.Get(cache.MakeIdempotencyKey(token))
	if !ok {
		return entity.CommandResult{}, false
	}

	entry, ok := v.(replayEntry)
	if !ok {
		return entity.CommandResult{}, false
	}

	if entry.target != target {
		recordOutcome(entity.OutcomeRejected, "token_reuse")

		return entity.Rejected(ValidationError{Reason: ReasonTokenReuse}), true
	}

	recordOutcome(entity.OutcomeApplied, "replay")

	res := entry.result
	res.Replayed = true

	return res, true
}

// rememberReplay caches only applied results; a failure is worth retrying with the same token.
func (p *Processor) rememberReplay(token string, target entity.DeviceMode, res entity.CommandResult) {
	if token == "" || p.replay == nil {
		return
	}

	p.replay.Set(cache.MakeIdempotencyKey(token), replayEntry{target: target, result: res})
}

func (p *Processor) publish() {
	if p.pub == nil {
		return
	}

	p.pubMu.Lock()
	defer p.pubMu.Unlock()

	p.pub.Publish(p.store.Snapshot())
}
