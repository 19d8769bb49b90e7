// Package syncer migrates locally-created orders into the authoritative
// store exactly once each. The serial is the idempotency key: existence is
// re-checked immediately before every insert, so re-invoking a run over
// unchanged input produces zero additional remote rows.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storesync/internal/local"
	"storesync/internal/metrics"
	"storesync/internal/model"
	"storesync/internal/store"
)

// ErrSyncInProgress is returned when a run is already active for the
// tenant. Overlapping runs would re-validate existence against a store the
// other run is mutating, risking duplicate inserts.
var ErrSyncInProgress = errors.New("sync already in progress for tenant")

// OutcomeStatus classifies the result of migrating one order.
type OutcomeStatus string

const (
	OutcomeMigrated OutcomeStatus = "migrated"
	OutcomeSkipped  OutcomeStatus = "skipped"
	OutcomeFailed   OutcomeStatus = "failed"
)

// RecordOutcome reports what happened to one order.
type RecordOutcome struct {
	Serial   string
	Status   OutcomeStatus
	RemoteID string
	Reason   string
}

// Result is the structured outcome of one run, never a single opaque batch
// failure.
type Result struct {
	Migrated int
	Skipped  int
	Failed   int
	// AlreadySynced is true when zero records needed migration.
	AlreadySynced bool
	// ArchiveID names the recovery backup written when Migrated > 0.
	ArchiveID string
	Records   []RecordOutcome
}

// Syncer runs order migrations. Zero-value optional collaborators (events,
// metrics, archiver) are simply not used.
type Syncer struct {
	orders  store.OrderStore
	local   *local.Store
	arch    *local.Archiver
	events  EventWriter
	metrics *metrics.Registry
	log     *zap.Logger
	guard   *TenantGuard
}

type Option func(*Syncer)

func WithArchiver(a *local.Archiver) Option  { return func(s *Syncer) { s.arch = a } }
func WithEvents(w EventWriter) Option        { return func(s *Syncer) { s.events = w } }
func WithMetrics(r *metrics.Registry) Option { return func(s *Syncer) { s.metrics = r } }
func WithLogger(l *zap.Logger) Option        { return func(s *Syncer) { s.log = l } }

// WithGuard shares a TenantGuard with other per-tenant jobs, typically the
// catalog reconciler.
func WithGuard(g *TenantGuard) Option { return func(s *Syncer) { s.guard = g } }

func New(orders store.OrderStore, localStore *local.Store, opts ...Option) *Syncer {
	s := &Syncer{orders: orders, local: localStore, log: zap.NewNop(), guard: NewTenantGuard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncLocal migrates the tenant's whole local order collection.
func (s *Syncer) SyncLocal(ctx context.Context, tenantID string) (Result, error) {
	if tenantID == "" {
		return Result{}, store.ErrNotAuthenticated
	}
	orders, err := s.local.Orders(tenantID)
	if err != nil {
		return Result{}, fmt.Errorf("load local orders: %w", err)
	}
	return s.SyncOrders(ctx, tenantID, orders)
}

// SyncOrders migrates the given batch in input order. A failure on one
// order is recorded and the loop continues; the batch never aborts early.
// Safe to re-invoke on the same input.
func (s *Syncer) SyncOrders(ctx context.Context, tenantID string, orders []model.Order) (Result, error) {
	if tenantID == "" {
		return Result{}, store.ErrNotAuthenticated
	}
	if !s.guard.TryAcquire(tenantID) {
		return Result{}, ErrSyncInProgress
	}
	defer s.guard.Release(tenantID)

	start := time.Now()
	var res Result
	var migrated []model.Order

	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		outcome := s.syncOne(ctx, tenantID, o)
		res.Records = append(res.Records, outcome)
		switch outcome.Status {
		case OutcomeMigrated:
			res.Migrated++
			migrated = append(migrated, o)
		case OutcomeSkipped:
			res.Skipped++
		case OutcomeFailed:
			res.Failed++
		}
	}

	res.AlreadySynced = res.Migrated == 0 && res.Failed == 0
	if res.Migrated > 0 {
		s.archive(tenantID, migrated, &res)
		s.publish(Event{
			TenantID: tenantID,
			Kind:     EventOrdersSynced,
			Migrated: res.Migrated,
			Skipped:  res.Skipped,
			Failed:   res.Failed,
			TS:       time.Now().UTC().Unix(),
		})
	}
	s.observe(res, time.Since(start))
	s.log.Info("sync run finished",
		zap.String("tenant", tenantID),
		zap.Int("migrated", res.Migrated),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Bool("already_synced", res.AlreadySynced))
	return res, nil
}

// syncOne migrates a single order: existence check by serial, then one
// transactional insert of the header with its items. A failed insert leaves
// no remote trace, so the next run retries the order instead of skipping a
// header that lost its items.
func (s *Syncer) syncOne(ctx context.Context, tenantID string, o model.Order) RecordOutcome {
	if err := store.ValidateOrder(o); err != nil {
		s.log.Warn("order rejected", zap.String("serial", o.Serial), zap.Error(err))
		return RecordOutcome{Serial: o.Serial, Status: OutcomeFailed, Reason: err.Error()}
	}

	exists, err := s.orders.ExistsBySerial(ctx, tenantID, o.Serial)
	if err != nil {
		s.log.Warn("existence check failed", zap.String("serial", o.Serial), zap.Error(err))
		return RecordOutcome{Serial: o.Serial, Status: OutcomeFailed, Reason: err.Error()}
	}
	if exists {
		return RecordOutcome{Serial: o.Serial, Status: OutcomeSkipped, Reason: "already present remotely"}
	}

	remoteID, err := s.orders.Insert(ctx, tenantID, o)
	if err != nil {
		// A concurrent writer beating us to the serial is a skip, not a
		// failure: the record is remote either way.
		if errors.Is(err, store.ErrAlreadyExists) {
			return RecordOutcome{Serial: o.Serial, Status: OutcomeSkipped, Reason: "already present remotely"}
		}
		s.log.Warn("order insert failed", zap.String("serial", o.Serial), zap.Error(err))
		return RecordOutcome{Serial: o.Serial, Status: OutcomeFailed, Reason: err.Error()}
	}
	return RecordOutcome{Serial: o.Serial, Status: OutcomeMigrated, RemoteID: remoteID}
}

// archive writes the migrated batch as a recovery backup. An archive
// failure is logged but does not fail the run; the records are already
// safely remote.
func (s *Syncer) archive(tenantID string, migrated []model.Order, res *Result) {
	if s.arch == nil {
		return
	}
	id := local.NewArchiveID()
	if err := s.arch.WriteArchive(tenantID, id, migrated); err != nil {
		s.log.Warn("archive failed", zap.String("tenant", tenantID), zap.Error(err))
		return
	}
	res.ArchiveID = id
}

func (s *Syncer) publish(e Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(e); err != nil {
		s.log.Warn("event publish failed", zap.String("tenant", e.TenantID), zap.Error(err))
	}
}

func (s *Syncer) observe(res Result, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.SyncRuns.Inc()
	s.metrics.OrdersMigrated.Add(float64(res.Migrated))
	s.metrics.OrdersSkipped.Add(float64(res.Skipped))
	s.metrics.OrdersFailed.Add(float64(res.Failed))
	s.metrics.SyncDuration.Observe(elapsed.Seconds())
	s.metrics.LastSyncUnix.SetToCurrentTime()
}
