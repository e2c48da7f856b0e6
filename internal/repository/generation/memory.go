package generation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"reel/internal/model/generation"
)

// MemoryRepo 进程内实现，用于测试与单机开发
type MemoryRepo struct {
	mu    sync.RWMutex
	items map[string]*generation.Generation
	now   func() time.Time
}

// NewMemoryRepo 创建内存仓库
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		items: make(map[string]*generation.Generation),
		now:   time.Now,
	}
}

// Create 创建记录
func (r *MemoryRepo) Create(_ context.Context, g *generation.Generation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[g.ID]; ok {
		return fmt.Errorf("generation %s already exists", g.ID)
	}
	now := r.now()
	g.CreatedAt = now
	g.UpdatedAt = now
	if g.State.Assets == nil {
		g.State.Assets = []string{}
	}
	r.items[g.ID] = g.Clone()
	return nil
}

// Update 部分更新
func (r *MemoryRepo) Update(_ context.Context, id string, upd *generation.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.items[id]
	if !ok {
		return ErrNotFound
	}
	upd.Apply(g)
	g.UpdatedAt = r.now()
	return nil
}

// Get 根据ID查询，返回副本
func (r *MemoryRepo) Get(_ context.Context, id string) (*generation.Generation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return g.Clone(), nil
}

// List 按 updated_at 倒序
func (r *MemoryRepo) List(_ context.Context, filter *generation.ListFilter) ([]*generation.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]*generation.Summary, 0, len(r.items))
	for _, g := range r.items {
		if filter.Matches(g.Status) {
			summaries = append(summaries, g.Summarize())
		}
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	if limit := filter.NormalizedLimit(); len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// Delete 删除记录
func (r *MemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}
