// Package status manages the tenant-scoped vocabulary of order lifecycle
// states. No transitions are enforced between statuses; the state machine
// here is over the configuration itself: reorder, relabel, enable/disable.
package status

import (
	"fmt"
	"sort"

	"storesync/internal/local"
	"storesync/internal/model"
)

// Default status keys, in workflow order.
const (
	KeyPending    = "pending"
	KeyConfirmed  = "confirmed"
	KeyProcessing = "processing"
	KeyShipped    = "shipped"
	KeyDelivered  = "delivered"
	KeyCancelled  = "cancelled"
)

// palette maps status keys to presentation colors. It is fixed: a user
// renaming a status never changes its color.
var palette = map[string]string{
	KeyPending:    "#f59e0b",
	KeyConfirmed:  "#3b82f6",
	KeyProcessing: "#8b5cf6",
	KeyShipped:    "#06b6d4",
	KeyDelivered:  "#22c55e",
	KeyCancelled:  "#ef4444",
}

const fallbackColor = "#6b7280"

// Defaults returns the initial vocabulary, all entries enabled.
func Defaults() []model.StatusConfig {
	keys := []string{KeyPending, KeyConfirmed, KeyProcessing, KeyShipped, KeyDelivered, KeyCancelled}
	labels := map[string]string{
		KeyPending:    "Pending",
		KeyConfirmed:  "Confirmed",
		KeyProcessing: "Processing",
		KeyShipped:    "Shipped",
		KeyDelivered:  "Delivered",
		KeyCancelled:  "Cancelled",
	}
	out := make([]model.StatusConfig, 0, len(keys))
	for i, k := range keys {
		out = append(out, model.StatusConfig{Key: k, Label: labels[k], Order: i, Enabled: true})
	}
	return out
}

// Registry is a tenant's status configuration backed by the local store.
type Registry struct {
	tenantID string
	store    *local.Store
	configs  []model.StatusConfig
}

// NewRegistry loads the tenant's stored configuration, falling back to the
// defaults when none exists.
func NewRegistry(store *local.Store, tenantID string) (*Registry, error) {
	configs, ok, err := store.StatusConfigs(tenantID)
	if err != nil {
		return nil, fmt.Errorf("load status config: %w", err)
	}
	if !ok || len(configs) == 0 {
		configs = Defaults()
	}
	sortByOrder(configs)
	return &Registry{tenantID: tenantID, store: store, configs: configs}, nil
}

func sortByOrder(configs []model.StatusConfig) {
	sort.SliceStable(configs, func(i, j int) bool {
		return configs[i].Order < configs[j].Order
	})
}

func (r *Registry) save() error {
	if err := r.store.SaveStatusConfigs(r.tenantID, r.configs); err != nil {
		return fmt.Errorf("save status config: %w", err)
	}
	return nil
}

func (r *Registry) find(key string) *model.StatusConfig {
	for i := range r.configs {
		if r.configs[i].Key == key {
			return &r.configs[i]
		}
	}
	return nil
}

// Reorder reassigns the Order field of every entry to match the given key
// sequence. Keys missing from the sequence keep their relative order after
// the listed ones.
func (r *Registry) Reorder(keys []string) error {
	pos := make(map[string]int, len(keys))
	for i, k := range keys {
		if r.find(k) == nil {
			return fmt.Errorf("reorder: unknown status key %q", k)
		}
		pos[k] = i
	}
	next := len(keys)
	for i := range r.configs {
		if p, ok := pos[r.configs[i].Key]; ok {
			r.configs[i].Order = p
		} else {
			r.configs[i].Order = next
			next++
		}
	}
	sortByOrder(r.configs)
	return r.save()
}

// Relabel changes the display text of a status. The key is immutable.
func (r *Registry) Relabel(key, label string) error {
	c := r.find(key)
	if c == nil {
		return fmt.Errorf("relabel: unknown status key %q", key)
	}
	c.Label = label
	return r.save()
}

// SetEnabled hides or shows a status in selection UIs without deleting
// historical records carrying it.
func (r *Registry) SetEnabled(key string, enabled bool) error {
	c := r.find(key)
	if c == nil {
		return fmt.Errorf("set enabled: unknown status key %q", key)
	}
	c.Enabled = enabled
	return r.save()
}

// Option is one selectable status with its display label and fixed color.
type Option struct {
	Key   string
	Label string
	Color string
}

// OptionsForSelection returns the enabled entries sorted by Order.
func (r *Registry) OptionsForSelection() []Option {
	out := make([]Option, 0, len(r.configs))
	for _, c := range r.configs {
		if !c.Enabled {
			continue
		}
		out = append(out, Option{Key: c.Key, Label: c.Label, Color: ColorFor(c.Key)})
	}
	return out
}

// LabelFor resolves the display label for a key, including disabled keys,
// because historical orders may still carry them. Unknown keys resolve to
// the key itself.
func (r *Registry) LabelFor(key string) string {
	if c := r.find(key); c != nil {
		return c.Label
	}
	return key
}

// ColorFor resolves the presentation color for a key independent of any
// relabeling or disabling.
func ColorFor(key string) string {
	if c, ok := palette[key]; ok {
		return c
	}
	return fallbackColor
}

// ColorFor on the registry mirrors the package-level palette lookup so
// callers holding a Registry need only one handle.
func (r *Registry) ColorFor(key string) string { return ColorFor(key) }
