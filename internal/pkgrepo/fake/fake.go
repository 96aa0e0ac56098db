package fake

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/slok/tierd/internal/conventions"
	"github.com/slok/tierd/internal/log"
	"github.com/slok/tierd/internal/model"
	"github.com/slok/tierd/internal/pkgrepo"
)

// Operation names used to inject failures.
const (
	OpExists          = "exists"
	OpCopy            = "copy"
	OpDelete          = "delete"
	OpCreateSnapshot  = "create-snapshot"
	OpPublishSnapshot = "publish-snapshot"
	OpUpdatePublished = "update-published"
)

// ManagerConfig is the configuration for the fake manager.
type ManagerConfig struct {
	Logger log.Logger
}

func (c *ManagerConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "pkgrepo.Fake"})
	return nil
}

// Manager is a fake implementation of the pkgrepo.Manager interface.
// It keeps the tiers in memory, the archive is seeded with AddToArchive.
type Manager struct {
	tiers     map[model.Tier]map[string]pkgrepo.Query
	snapshots map[string][]string
	published map[string]string
	updates   map[string]int
	failures  map[string]error
	mu        sync.Mutex
	logger    log.Logger
}

var _ pkgrepo.Manager = &Manager{}

// NewManager returns a new fake manager with the testing distribution published.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tiers := map[model.Tier]map[string]pkgrepo.Query{}
	for _, t := range model.Tiers {
		tiers[t] = map[string]pkgrepo.Query{}
	}

	return &Manager{
		tiers:     tiers,
		snapshots: map[string][]string{},
		published: map[string]string{conventions.TestingDistribution: string(model.TierTesting)},
		updates:   map[string]int{},
		failures:  map[string]error{},
		logger:    cfg.Logger,
	}, nil
}

// AddToArchive adds a package artifact to the archive tier.
func (m *Manager) AddToArchive(q pkgrepo.Query) error {
	if !q.Complete() {
		return fmt.Errorf("query %q doesn't select a single artifact: %w", q, model.ErrNotValid)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.tiers[model.TierArchive][q.Identifier()] = q
	return nil
}

// SetFailure makes every call to the operation fail with the error, a nil error removes the failure.
func (m *Manager) SetFailure(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Packages returns the sorted artifact identifiers on a tier.
func (m *Manager) Packages(tier model.Tier) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return sortedKeys(m.tiers[tier])
}

// Snapshot returns the artifact identifiers of a snapshot.
func (m *Manager) Snapshot(name string) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.snapshots[name]
	return slices.Clone(s), ok
}

// Published returns the source published on a distribution.
func (m *Manager) Published(distribution string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.published[distribution]
}

// Updates returns how many times a distribution has been updated.
func (m *Manager) Updates(distribution string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.updates[distribution]
}

func (m *Manager) Exists(ctx context.Context, tier model.Tier, q pkgrepo.Query) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(OpExists, tier, q); err != nil {
		return false, err
	}

	return len(m.match(tier, q)) > 0, nil
}

func (m *Manager) Copy(ctx context.Context, target model.Tier, q pkgrepo.Query) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(OpCopy, target, q); err != nil {
		return err
	}
	if !q.Complete() {
		return fmt.Errorf("query %q doesn't select a single artifact: %w", q, model.ErrNotValid)
	}

	id := q.Identifier()
	art, ok := m.tiers[model.TierArchive][id]
	if !ok {
		return fmt.Errorf("could not copy %s: not in archive: %w", id, model.ErrRemote)
	}
	m.tiers[target][id] = art
	m.logger.Debugf("Copied %s into %s", id, target)

	return nil
}

func (m *Manager) Delete(ctx context.Context, tier model.Tier, q pkgrepo.Query) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(OpDelete, tier, q); err != nil {
		return err
	}

	for _, id := range m.match(tier, q) {
		delete(m.tiers[tier], id)
		m.logger.Debugf("Deleted %s from %s", id, tier)
	}

	return nil
}

func (m *Manager) CreateSnapshot(ctx context.Context, tier model.Tier, name, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failures[OpCreateSnapshot]; err != nil {
		return err
	}
	if !tier.Valid() {
		return fmt.Errorf("tier %q is unknown: %w", tier, model.ErrNotValid)
	}
	if _, ok := m.snapshots[name]; ok {
		return fmt.Errorf("snapshot %s: %w", name, model.ErrAlreadyExists)
	}

	m.snapshots[name] = sortedKeys(m.tiers[tier])
	return nil
}

func (m *Manager) PublishSnapshot(ctx context.Context, name, distribution string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failures[OpPublishSnapshot]; err != nil {
		return err
	}
	if _, ok := m.snapshots[name]; !ok {
		return fmt.Errorf("could not publish snapshot %s: missing: %w", name, model.ErrRemote)
	}

	m.published[distribution] = name
	return nil
}

func (m *Manager) UpdatePublished(ctx context.Context, distribution string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failures[OpUpdatePublished]; err != nil {
		return err
	}
	if _, ok := m.published[distribution]; !ok {
		return fmt.Errorf("could not update distribution %s: not published: %w", distribution, model.ErrRemote)
	}

	m.updates[distribution]++
	return nil
}

func (m *Manager) check(op string, tier model.Tier, q pkgrepo.Query) error {
	if err := m.failures[op]; err != nil {
		return err
	}
	if !tier.Valid() {
		return fmt.Errorf("tier %q is unknown: %w", tier, model.ErrNotValid)
	}
	return q.Validate()
}

func (m *Manager) match(tier model.Tier, q pkgrepo.Query) []string {
	ids := []string{}
	for id, art := range m.tiers[tier] {
		if art.Name != q.Name {
			continue
		}
		if v := q.FullVersion(); v != "" && art.FullVersion() != v {
			continue
		}
		if q.Arch != "" && art.Arch != q.Arch {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

func sortedKeys(m map[string]pkgrepo.Query) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
