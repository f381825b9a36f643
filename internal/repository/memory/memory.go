// Package memory implements the repository in process memory.
// Every write works on a private copy of the state that replaces the live one only on success,
// so batches are all-or-nothing just like a database transaction.
package memory

import (
	"context"
	"sync"
	"time"

	"asset-fork-merge/internal/entities"

	"go.uber.org/zap"
)

// Memory is an in-process Repository.
type Memory struct {
	mu   sync.RWMutex
	log  *zap.SugaredLogger
	st   *state
	now  func() time.Time
	last time.Time
	hook func(step string) error
}

// Option customises the memory backend.
type Option func(*Memory)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// WithApplyHook runs fn before every step of ApplyMerge; a returned error aborts the merge.
func WithApplyHook(fn func(step string) error) Option {
	return func(m *Memory) { m.hook = fn }
}

// New creates an empty store.
func New(log *zap.SugaredLogger, opts ...Option) *Memory {
	m := &Memory{
		log: log.Named("repo.memory"),
		st:  newState(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnStart is a no-op.
func (m *Memory) OnStart(_ context.Context) error {
	m.log.Infow("memory store ready")
	return nil
}

// OnStop is a no-op.
func (m *Memory) OnStop(_ context.Context) error {
	return nil
}

// tick returns a strictly increasing timestamp so optimistic checks always see a write.
// Callers hold m.mu.
func (m *Memory) tick() time.Time {
	t := m.now().UTC()
	if !t.After(m.last) {
		t = m.last.Add(time.Microsecond)
	}
	m.last = t
	return t
}

// write runs fn against a copy of the state and publishes it when fn succeeds.
func (m *Memory) write(fn func(st *state) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.st.clone()
	if err := fn(work); err != nil {
		return err
	}
	m.st = work
	return nil
}

func (m *Memory) read(fn func(st *state) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(m.st)
}

type state struct {
	projects  map[string]entities.Project
	itemTypes map[string]entities.ItemType
	items     map[string]entities.HierarchyItem
	layers    map[string]entities.MapLayer
	prs       map[string]entities.PullRequest
	comments  map[string][]entities.Comment
}

func newState() *state {
	return &state{
		projects:  make(map[string]entities.Project),
		itemTypes: make(map[string]entities.ItemType),
		items:     make(map[string]entities.HierarchyItem),
		layers:    make(map[string]entities.MapLayer),
		prs:       make(map[string]entities.PullRequest),
		comments:  make(map[string][]entities.Comment),
	}
}

// clone copies the maps; stored values are never mutated in place, so sharing them is safe.
func (s *state) clone() *state {
	out := newState()
	for k, v := range s.projects {
		out.projects[k] = v
	}
	for k, v := range s.itemTypes {
		out.itemTypes[k] = v
	}
	for k, v := range s.items {
		out.items[k] = v
	}
	for k, v := range s.layers {
		out.layers[k] = v
	}
	for k, v := range s.prs {
		out.prs[k] = v
	}
	for k, v := range s.comments {
		out.comments[k] = v
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyObject(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

func copyObject(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func copyLineage(l entities.Lineage) entities.Lineage {
	out := l
	out.OriginID = copyString(l.OriginID)
	if l.OriginSnapshot != nil {
		out.OriginSnapshot = append([]byte(nil), l.OriginSnapshot...)
	}
	return out
}

func copyItemType(it entities.ItemType) entities.ItemType {
	out := it
	out.Lineage = copyLineage(it.Lineage)
	out.Attributes = make([]entities.Attribute, len(it.Attributes))
	for i, a := range it.Attributes {
		a.Lineage = copyLineage(a.Lineage)
		out.Attributes[i] = a
	}
	return out
}

func copyItem(item entities.HierarchyItem) entities.HierarchyItem {
	out := item
	out.Lineage = copyLineage(item.Lineage)
	out.ItemTypeID = copyString(item.ItemTypeID)
	out.ParentID = copyString(item.ParentID)
	out.Latitude = copyFloat(item.Latitude)
	out.Longitude = copyFloat(item.Longitude)
	out.Properties = copyObject(item.Properties)
	return out
}

func copyLayer(l entities.MapLayer) entities.MapLayer {
	out := l
	out.Lineage = copyLineage(l.Lineage)
	out.Style = copyObject(l.Style)
	out.Geometry = copyObject(l.Geometry)
	return out
}

func copyProject(p entities.Project) entities.Project {
	out := p
	out.ParentProjectID = copyString(p.ParentProjectID)
	if p.CloneSnapshot != nil {
		snap := *p.CloneSnapshot
		out.CloneSnapshot = &snap
	}
	return out
}

func copyPR(pr entities.PullRequest) entities.PullRequest {
	out := pr
	out.MergedBy = copyString(pr.MergedBy)
	if pr.MergedAt != nil {
		at := *pr.MergedAt
		out.MergedAt = &at
	}
	return out
}
