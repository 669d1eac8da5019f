// Package engine consumes queued credentials and turns them into access
// decisions: authorization lookup, schedule evaluation, audit logging and
// door actuation.
package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/portero-acs/portero/internal/metrics"
	"github.com/portero-acs/portero/internal/portero/queue"
	"github.com/portero-acs/portero/internal/portero/store"
	"github.com/portero-acs/portero/internal/portero/types"
)

// Door is the slice of the actuator the engine needs.
type Door interface {
	Name() string
	MomentaryOpen(ctx context.Context, d time.Duration) error
}

type Config struct {
	// BatchSize caps how many credentials one tick may drain.
	BatchSize int // default 10
}

// Engine evaluates credentials drained from the queue, one bounded batch
// per scheduler tick.
type Engine struct {
	cfg     Config
	keyfobs store.KeyfobStore
	logs    store.AccessLogStore
	door    Door
	queue   *queue.CredentialQueue
	logger  *log.Logger
	metrics *metrics.Metrics

	// now is injected for schedule tests.
	now func() time.Time

	// pending holds an item whose processing hit a transient store fault.
	// It is retried before the queue on the next tick, so backpressure can
	// never drop a retry.  Single slot: the batch aborts on the first
	// transient fault.
	pending    string
	hasPending bool
}

func New(cfg Config, keyfobs store.KeyfobStore, logs store.AccessLogStore, door Door, q *queue.CredentialQueue, logger *log.Logger, m *metrics.Metrics) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &Engine{
		cfg:     cfg,
		keyfobs: keyfobs,
		logs:    logs,
		door:    door,
		queue:   q,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Tick drains and processes up to BatchSize credentials.  Faults never
// escape a tick: a transient store error aborts the remaining batch and
// parks the item for retry; any other per-item error consumes the item so
// a poison credential cannot block the queue.
func (e *Engine) Tick(ctx context.Context) {
	for processed := 0; processed < e.cfg.BatchSize; processed++ {
		uid, ok := e.next()
		if !ok {
			return
		}

		if err := e.processOne(ctx, uid); err != nil {
			if errors.Is(err, store.ErrTransient) {
				e.logger.Printf("engine: transient store error for uid=%s, retrying next tick: %v", uid, err)
				e.pending = uid
				e.hasPending = true
				return
			}
			e.logger.Printf("engine: dropping uid=%s after error: %v", uid, err)
		}
	}
}

func (e *Engine) next() (string, bool) {
	if e.hasPending {
		uid := e.pending
		e.pending = ""
		e.hasPending = false
		return uid, true
	}
	return e.queue.TryDequeue()
}

func (e *Engine) processOne(ctx context.Context, uid string) error {
	e.logger.Printf("engine: processing uid=%s", uid)

	keyfob, err := e.keyfobs.FindByUID(ctx, uid)
	if err != nil {
		return err
	}

	dec := e.decide(keyfob, uid)

	// Record before actuating: if the audit write hits a transient fault
	// the item is retried without having opened the door.
	if err := e.record(ctx, dec, keyfob); err != nil {
		return err
	}
	e.metrics.Decision(dec.Reason)

	if dec.Granted {
		e.logger.Printf("engine: access granted uid=%s owner=%q", uid, keyfob.OwnerName)
		if err := e.door.MomentaryOpen(ctx, 0); err != nil {
			// The decision stands; the actuation failure is its own event.
			e.logger.Printf("engine: door actuation failed for uid=%s: %v", uid, err)
		}
	} else {
		e.logger.Printf("engine: access denied uid=%s reason=%s", uid, dec.Reason)
	}
	return nil
}

func (e *Engine) decide(keyfob *store.Keyfob, uid string) types.AccessDecision {
	dec := types.AccessDecision{
		UIDAttempted: uid,
		DoorName:     e.door.Name(),
		DecidedAt:    e.now().UTC(),
	}

	switch {
	case keyfob == nil:
		dec.Reason = types.ReasonUnknownKeyfob
	case !keyfob.Active:
		dec.KeyfobID = &keyfob.ID
		dec.Reason = types.ReasonKeyfobInactive
	case !scheduleAllows(keyfob, e.now()):
		dec.KeyfobID = &keyfob.ID
		dec.Reason = types.ReasonOutsideSchedule
	default:
		dec.KeyfobID = &keyfob.ID
		dec.Granted = true
		dec.Reason = types.ReasonGranted
	}
	return dec
}

func (e *Engine) record(ctx context.Context, dec types.AccessDecision, keyfob *store.Keyfob) error {
	rec := store.AccessLogRecord{
		Timestamp:    dec.DecidedAt,
		UIDAttempted: dec.UIDAttempted,
		KeyfobID:     dec.KeyfobID,
		Granted:      dec.Granted,
		Reason:       dec.Reason,
		DoorName:     dec.DoorName,
	}
	if keyfob != nil {
		rec.KeyfobDescription = keyfob.Description()
	}
	return e.logs.Record(ctx, rec)
}
