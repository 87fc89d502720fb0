package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/dns-gitops/internal/config"
	"github.com/yuriy-kovalchuk/dns-gitops/internal/dns"
	"github.com/yuriy-kovalchuk/dns-gitops/internal/processor"
)

// Manager plans zone changes: it assembles the desired zone from the
// sources, reads the existing zone from each target, runs the zone's
// processors on both and diffs the results.
type Manager struct {
	Log        logr.Logger
	Providers  map[string]dns.Provider
	Processors map[string]processor.Processor
	Zones      map[string]config.ZoneConfig
}

// NewManager builds every provider and processor named in cfg.
func NewManager(log logr.Logger, cfg *config.Config) (*Manager, error) {
	m := &Manager{
		Log:        log,
		Providers:  make(map[string]dns.Provider, len(cfg.Providers)),
		Processors: make(map[string]processor.Processor, len(cfg.Processors)),
		Zones:      cfg.Zones,
	}
	for id, pc := range cfg.Providers {
		p, err := dns.NewProvider(pc.Class, id, log.WithName("provider-"+id), pc.Settings)
		if err != nil {
			return nil, fmt.Errorf("creating provider %q: %w", id, err)
		}
		m.Providers[id] = p
	}
	for name, pc := range cfg.Processors {
		p, err := processor.New(pc.Class, name, log.WithName("processor-"+name), pc.Options)
		if err != nil {
			return nil, fmt.Errorf("creating processor %q: %w", name, err)
		}
		m.Processors[name] = p
	}
	return m, nil
}

// ZoneNames returns the configured zones in sorted order.
func (m *Manager) ZoneNames() []string {
	names := make([]string, 0, len(m.Zones))
	for name := range m.Zones {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) zone(name string) (config.ZoneConfig, error) {
	zc, ok := m.Zones[name]
	if !ok {
		return config.ZoneConfig{}, fmt.Errorf("zone %q is not configured", name)
	}
	return zc, nil
}

func (m *Manager) providers(ids []string) ([]dns.Provider, error) {
	out := make([]dns.Provider, 0, len(ids))
	for _, id := range ids {
		p, ok := m.Providers[id]
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", id)
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *Manager) processors(names []string) ([]processor.Processor, error) {
	out := make([]processor.Processor, 0, len(names))
	for _, name := range names {
		p, ok := m.Processors[name]
		if !ok {
			return nil, fmt.Errorf("unknown processor %q", name)
		}
		out = append(out, p)
	}
	return out, nil
}

// Desired populates the zone from all of its sources and runs the source
// hook of every processor configured for it.
func (m *Manager) Desired(ctx context.Context, zoneName string) (*dns.Zone, error) {
	zc, err := m.zone(zoneName)
	if err != nil {
		return nil, err
	}
	sources, err := m.providers(zc.Sources)
	if err != nil {
		return nil, fmt.Errorf("zone %s: %w", zoneName, err)
	}
	procs, err := m.processors(zc.Processors)
	if err != nil {
		return nil, fmt.Errorf("zone %s: %w", zoneName, err)
	}

	desired := dns.NewZone(zoneName)
	for _, src := range sources {
		if err := src.Populate(ctx, desired); err != nil {
			return nil, fmt.Errorf("zone %s: populating from %s: %w", zoneName, src.ID(), err)
		}
	}
	for _, p := range procs {
		if desired, err = p.ProcessSourceZone(desired, sources); err != nil {
			return nil, fmt.Errorf("zone %s: processor %s: %w", zoneName, p.Name(), err)
		}
	}
	return desired, nil
}

// Existing populates the zone from target and runs the target hook of every
// processor configured for it.
func (m *Manager) Existing(ctx context.Context, zoneName string, target dns.Provider) (*dns.Zone, error) {
	zc, err := m.zone(zoneName)
	if err != nil {
		return nil, err
	}
	procs, err := m.processors(zc.Processors)
	if err != nil {
		return nil, fmt.Errorf("zone %s: %w", zoneName, err)
	}

	existing := dns.NewZone(zoneName)
	if err := target.Populate(ctx, existing); err != nil {
		return nil, fmt.Errorf("zone %s: populating from %s: %w", zoneName, target.ID(), err)
	}
	for _, p := range procs {
		if existing, err = p.ProcessTargetZone(existing, target); err != nil {
			return nil, fmt.Errorf("zone %s: processor %s: %w", zoneName, p.Name(), err)
		}
	}
	return existing, nil
}

// Plan computes the changes needed on every target of the zone.
func (m *Manager) Plan(ctx context.Context, zoneName string) ([]*Plan, error) {
	zc, err := m.zone(zoneName)
	if err != nil {
		return nil, err
	}
	targets, err := m.providers(zc.Targets)
	if err != nil {
		return nil, fmt.Errorf("zone %s: %w", zoneName, err)
	}

	desired, err := m.Desired(ctx, zoneName)
	if err != nil {
		return nil, err
	}

	plans := make([]*Plan, 0, len(targets))
	for _, target := range targets {
		existing, err := m.Existing(ctx, zoneName, target)
		if err != nil {
			return nil, err
		}
		plan := Diff(desired, existing, m.Log.WithValues("zone", zoneName, "target", target.ID()))
		plan.Target = target.ID()
		m.Log.V(1).Info("planned zone", "zone", zoneName, "target", target.ID(),
			"creates", len(plan.Creates), "updates", len(plan.Updates), "deletes", len(plan.Deletes))
		plans = append(plans, plan)
	}
	return plans, nil
}

// PlanAll plans every configured zone, or only the named one when only is
// not empty.
func (m *Manager) PlanAll(ctx context.Context, only string) ([]*Plan, error) {
	if only != "" {
		return m.Plan(ctx, dns.NewZone(only).Name)
	}
	var plans []*Plan
	for _, name := range m.ZoneNames() {
		zonePlans, err := m.Plan(ctx, name)
		if err != nil {
			return nil, err
		}
		plans = append(plans, zonePlans...)
	}
	return plans, nil
}
