// Package catalog converges the locally-managed product catalog with its
// remote mirror. The direction is always explicit: a reconciler never
// infers which side is canonical, because deleting remote entities against
// a stale local cache would silently destroy server-side data.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"storesync/internal/local"
	"storesync/internal/metrics"
	"storesync/internal/model"
	"storesync/internal/store"
	"storesync/internal/syncer"
)

// Direction states which side is canonical.
type Direction int

const (
	// DirectionPush treats the local catalog as canonical and converges the
	// remote mirror toward it.
	DirectionPush Direction = iota + 1
	// DirectionPull treats the remote mirror as canonical and rewrites the
	// local catalog from it.
	DirectionPull
)

func (d Direction) String() string {
	switch d {
	case DirectionPush:
		return "push"
	case DirectionPull:
		return "pull"
	default:
		return "unknown"
	}
}

// ParseDirection maps the CLI/config spelling to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "push":
		return DirectionPush, nil
	case "pull":
		return DirectionPull, nil
	default:
		return 0, fmt.Errorf("unknown direction %q (want push or pull)", s)
	}
}

var errDirectionRequired = errors.New("catalog: direction must be set explicitly")

// Update pairs the remote id to rewrite with the canonical product state.
type Update struct {
	RemoteID string
	Product  model.Product
}

// Plan is the computed set difference between the two catalogs. An empty
// plan means the catalogs already converge.
type Plan struct {
	Direction Direction
	Creates   []model.Product
	Updates   []Update
	// DeleteRemoteIDs are removed in push mode; DeleteLocalNames in pull.
	DeleteRemoteIDs  []string
	DeleteLocalNames []string
}

func (p Plan) Empty() bool {
	return len(p.Creates) == 0 && len(p.Updates) == 0 &&
		len(p.DeleteRemoteIDs) == 0 && len(p.DeleteLocalNames) == 0
}

// Applied counts the operations performed.
type Applied struct {
	Created int
	Updated int
	Deleted int
	Failed  int
}

// Reconciler computes and applies catalog convergence plans.
type Reconciler struct {
	products store.ProductStore
	local    *local.Store
	events   syncer.EventWriter
	metrics  *metrics.Registry
	log      *zap.Logger
	guard    *syncer.TenantGuard
}

type Option func(*Reconciler)

func WithEvents(w syncer.EventWriter) Option { return func(r *Reconciler) { r.events = w } }
func WithMetrics(m *metrics.Registry) Option { return func(r *Reconciler) { r.metrics = m } }
func WithLogger(l *zap.Logger) Option        { return func(r *Reconciler) { r.log = l } }

// WithGuard shares a TenantGuard with the sync engine so a tenant never has
// a sync and a reconciliation running at once.
func WithGuard(g *syncer.TenantGuard) Option { return func(r *Reconciler) { r.guard = g } }

func New(products store.ProductStore, localStore *local.Store, opts ...Option) *Reconciler {
	r := &Reconciler{products: products, local: localStore, log: zap.NewNop(), guard: syncer.NewTenantGuard()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Plan computes the set difference between the local catalog and the
// remote mirror for the given direction, keyed by product name. It reads
// without taking the tenant guard; use Reconcile when the plan is going to
// be applied, so the view it was computed from cannot go stale under a
// concurrent job.
func (r *Reconciler) Plan(ctx context.Context, tenantID string, dir Direction) (Plan, error) {
	if tenantID == "" {
		return Plan{}, store.ErrNotAuthenticated
	}
	if dir != DirectionPush && dir != DirectionPull {
		return Plan{}, errDirectionRequired
	}
	return r.plan(ctx, tenantID, dir)
}

func (r *Reconciler) plan(ctx context.Context, tenantID string, dir Direction) (Plan, error) {
	localProducts, err := r.local.Products(tenantID)
	if err != nil {
		return Plan{}, fmt.Errorf("load local catalog: %w", err)
	}
	remote, err := r.products.List(ctx, tenantID)
	if err != nil {
		return Plan{}, fmt.Errorf("list remote catalog: %w", err)
	}

	localByName := make(map[string]model.Product, len(localProducts))
	for _, p := range localProducts {
		localByName[p.Name] = p
	}
	remoteByName := make(map[string]store.RemoteProduct, len(remote))
	for _, rp := range remote {
		remoteByName[rp.Product.Name] = rp
	}

	plan := Plan{Direction: dir}
	switch dir {
	case DirectionPush:
		for _, p := range localProducts {
			rp, ok := remoteByName[p.Name]
			switch {
			case !ok:
				plan.Creates = append(plan.Creates, p)
			case !sameProduct(p, rp.Product):
				plan.Updates = append(plan.Updates, Update{RemoteID: rp.RemoteID, Product: p})
			}
		}
		for _, rp := range remote {
			if _, ok := localByName[rp.Product.Name]; !ok {
				plan.DeleteRemoteIDs = append(plan.DeleteRemoteIDs, rp.RemoteID)
			}
		}
	case DirectionPull:
		for _, rp := range remote {
			p, ok := localByName[rp.Product.Name]
			switch {
			case !ok:
				plan.Creates = append(plan.Creates, rp.Product)
			case !sameProduct(p, rp.Product):
				plan.Updates = append(plan.Updates, Update{Product: rp.Product})
			}
		}
		for _, p := range localProducts {
			if _, ok := remoteByName[p.Name]; !ok {
				plan.DeleteLocalNames = append(plan.DeleteLocalNames, p.Name)
			}
		}
	}
	sort.Strings(plan.DeleteRemoteIDs)
	sort.Strings(plan.DeleteLocalNames)
	return plan, nil
}

// Reconcile computes a plan and applies it under one guard acquisition, so
// the plan can never be computed from a view another job for the tenant is
// still mutating. Running it twice with no intervening change performs
// zero operations on the second run.
func (r *Reconciler) Reconcile(ctx context.Context, tenantID string, dir Direction) (Applied, error) {
	if tenantID == "" {
		return Applied{}, store.ErrNotAuthenticated
	}
	if dir != DirectionPush && dir != DirectionPull {
		return Applied{}, errDirectionRequired
	}
	if !r.guard.TryAcquire(tenantID) {
		return Applied{}, syncer.ErrSyncInProgress
	}
	defer r.guard.Release(tenantID)

	plan, err := r.plan(ctx, tenantID, dir)
	if err != nil {
		return Applied{}, err
	}
	return r.apply(ctx, tenantID, plan)
}

// Apply performs the operations of a separately computed plan. Per-operation
// failures are logged and counted, and the remaining operations still run.
func (r *Reconciler) Apply(ctx context.Context, tenantID string, plan Plan) (Applied, error) {
	if tenantID == "" {
		return Applied{}, store.ErrNotAuthenticated
	}
	if !r.guard.TryAcquire(tenantID) {
		return Applied{}, syncer.ErrSyncInProgress
	}
	defer r.guard.Release(tenantID)
	return r.apply(ctx, tenantID, plan)
}

// apply requires the caller to hold the tenant guard.
func (r *Reconciler) apply(ctx context.Context, tenantID string, plan Plan) (Applied, error) {
	var applied Applied
	var err error
	switch plan.Direction {
	case DirectionPush:
		applied, err = r.applyPush(ctx, tenantID, plan)
	case DirectionPull:
		applied, err = r.applyPull(ctx, tenantID, plan)
	default:
		return Applied{}, errDirectionRequired
	}
	if err != nil {
		return applied, err
	}

	r.observe(applied)
	if !plan.Empty() {
		r.publish(syncer.Event{
			TenantID: tenantID,
			Kind:     syncer.EventCatalogApplied,
			Created:  applied.Created,
			Updated:  applied.Updated,
			Deleted:  applied.Deleted,
			TS:       time.Now().UTC().Unix(),
		})
	}
	r.log.Info("catalog reconcile finished",
		zap.String("tenant", tenantID),
		zap.String("direction", plan.Direction.String()),
		zap.Int("created", applied.Created),
		zap.Int("updated", applied.Updated),
		zap.Int("deleted", applied.Deleted),
		zap.Int("failed", applied.Failed))
	return applied, nil
}

func (r *Reconciler) applyPush(ctx context.Context, tenantID string, plan Plan) (Applied, error) {
	var a Applied
	for _, p := range plan.Creates {
		if err := ctx.Err(); err != nil {
			return a, err
		}
		// Existence is re-checked by name right before the insert, as the
		// sync engine does by serial: a plan applied after being computed
		// separately may be stale, and the next run converges the rest.
		exists, err := r.products.ExistsByName(ctx, tenantID, p.Name)
		if err != nil {
			a.Failed++
			r.log.Warn("catalog create failed", zap.String("name", p.Name), zap.Error(err))
			continue
		}
		if exists {
			continue
		}
		if _, err := r.products.Insert(ctx, tenantID, p); err != nil {
			a.Failed++
			r.log.Warn("catalog create failed", zap.String("name", p.Name), zap.Error(err))
			continue
		}
		a.Created++
	}
	for _, u := range plan.Updates {
		if err := ctx.Err(); err != nil {
			return a, err
		}
		if err := r.products.Update(ctx, u.RemoteID, u.Product); err != nil {
			a.Failed++
			r.log.Warn("catalog update failed", zap.String("name", u.Product.Name), zap.Error(err))
			continue
		}
		a.Updated++
	}
	for _, id := range plan.DeleteRemoteIDs {
		if err := ctx.Err(); err != nil {
			return a, err
		}
		if err := r.products.Delete(ctx, id); err != nil {
			a.Failed++
			r.log.Warn("catalog delete failed", zap.String("remote_id", id), zap.Error(err))
			continue
		}
		a.Deleted++
	}
	return a, nil
}

// applyPull rewrites the local catalog from the remote mirror in one save.
func (r *Reconciler) applyPull(ctx context.Context, tenantID string, plan Plan) (Applied, error) {
	if err := ctx.Err(); err != nil {
		return Applied{}, err
	}
	remote, err := r.products.List(ctx, tenantID)
	if err != nil {
		return Applied{}, fmt.Errorf("list remote catalog: %w", err)
	}
	rewritten := make([]model.Product, 0, len(remote))
	for _, rp := range remote {
		p := rp.Product
		if p.ID == "" {
			p.ID = rp.RemoteID
		}
		rewritten = append(rewritten, p)
	}
	if err := r.local.SaveProducts(tenantID, rewritten); err != nil {
		return Applied{}, fmt.Errorf("save local catalog: %w", err)
	}
	return Applied{
		Created: len(plan.Creates),
		Updated: len(plan.Updates),
		Deleted: len(plan.DeleteLocalNames),
	}, nil
}

func (r *Reconciler) observe(a Applied) {
	if r.metrics == nil {
		return
	}
	r.metrics.CatalogCreates.Add(float64(a.Created))
	r.metrics.CatalogUpdates.Add(float64(a.Updated))
	r.metrics.CatalogDeletes.Add(float64(a.Deleted))
}

func (r *Reconciler) publish(e syncer.Event) {
	if r.events == nil {
		return
	}
	if err := r.events.Publish(e); err != nil {
		r.log.Warn("event publish failed", zap.String("tenant", e.TenantID), zap.Error(err))
	}
}

// sameProduct compares two catalog entries by their normalized size lists.
func sameProduct(a, b model.Product) bool {
	if a.Name != b.Name || len(a.Sizes) != len(b.Sizes) {
		return false
	}
	as := normalizeSizes(a.Sizes)
	bs := normalizeSizes(b.Sizes)
	for i := range as {
		if as[i].Size != bs[i].Size ||
			!as[i].Cost.Equal(bs[i].Cost) ||
			!as[i].Price.Equal(bs[i].Price) {
			return false
		}
	}
	return true
}

func normalizeSizes(in []model.ProductSize) []model.ProductSize {
	out := append([]model.ProductSize(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].Size < out[j].Size })
	return out
}
