// Package service implements the collaboration room operations: rooms and
// notes, membership and join approval, the chat log, breakout groups, screen
// shares and room snapshots.
//
// Every operation takes the caller identity explicitly and runs validation
// and authorization before any write reaches the store.
package service

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/louisbranch/classroom.space/internal/platform/errors"
	"github.com/louisbranch/classroom.space/internal/platform/id"
	"github.com/louisbranch/classroom.space/internal/services/rooms/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/classroom.space/internal/services/rooms/service"

const (
	// DefaultMessageLimit is used when a history read passes no limit.
	DefaultMessageLimit = 50
	// MaxMessageLimit caps one history read.
	MaxMessageLimit = 500
	// defaultSnapshotConcurrency bounds concurrent room snapshots in list
	// reads.
	defaultSnapshotConcurrency = 8
)

// deps is shared by every component.
type deps struct {
	store  storage.Store
	clock  func() time.Time
	newID  func() (string, error)
	tracer trace.Tracer
}

// now is truncated to the millisecond precision the store keeps, so a value
// returned by a write equals the value read back later.
func (d *deps) now() time.Time {
	clock := d.clock
	if clock == nil {
		clock = time.Now
	}
	return clock().UTC().Truncate(time.Millisecond)
}

func (d *deps) id() (string, error) {
	value, err := d.newID()
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeDependencyFailure, "generate id", err)
	}
	return value, nil
}

func (d *deps) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return d.tracer.Start(ctx, "rooms."+op, trace.WithAttributes(attrs...))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, string(apperrors.GetCode(err)))
	}
	span.End()
}

// Service groups the room components over one store.
type Service struct {
	Rooms      *Rooms
	Membership *Membership
	Messages   *Messages
	Breakouts  *Breakouts
	Shares     *Shares
	Aggregator *Aggregator
}

// Option configures a Service.
type Option func(*options)

type options struct {
	clock               func() time.Time
	newID               func() (string, error)
	tracer              trace.Tracer
	snapshotConcurrency int
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithIDGenerator overrides entity id generation.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(o *options) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// WithTracer overrides the tracer used for operation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithSnapshotConcurrency bounds how many rooms are composed at once.
func WithSnapshotConcurrency(limit int) Option {
	return func(o *options) {
		if limit > 0 {
			o.snapshotConcurrency = limit
		}
	}
}

// New builds the room components over store.
func New(store storage.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("room store is required")
	}
	cfg := options{
		clock:               time.Now,
		newID:               id.NewID,
		tracer:              otel.Tracer(tracerName),
		snapshotConcurrency: defaultSnapshotConcurrency,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	d := &deps{store: store, clock: cfg.clock, newID: cfg.newID, tracer: cfg.tracer}
	aggregator := &Aggregator{deps: d, concurrency: cfg.snapshotConcurrency}
	return &Service{
		Rooms:      &Rooms{deps: d, aggregator: aggregator},
		Membership: &Membership{deps: d},
		Messages:   &Messages{deps: d},
		Breakouts:  &Breakouts{deps: d},
		Shares:     &Shares{deps: d},
		Aggregator: aggregator,
	}, nil
}
