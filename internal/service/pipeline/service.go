// Package pipeline 从创意到成片的流水线编排
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"reel/internal/generator"
	model "reel/internal/model/generation"
	"reel/internal/pkg/events"
	"reel/internal/pkg/id"
	"reel/internal/pkg/logger"
	"reel/internal/pkg/storage"
	repo "reel/internal/repository/generation"
)

// Config 流水线服务依赖
type Config struct {
	Generator generator.Generator
	Store     repo.Store
	Storage   storage.Storage
	Events    events.Publisher // 可为 nil
	Lease     Lease            // 可为 nil

	RequestTimeout time.Duration
	PollInterval   time.Duration
	PollTimeout    time.Duration
}

// Service 管理所有活跃创作的控制器
type Service struct {
	deps *deps
	log  zerolog.Logger

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewService 创建流水线服务
func NewService(cfg Config) *Service {
	if cfg.Events == nil {
		cfg.Events = events.NopPublisher{}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 3 * time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 45 * time.Minute
	}

	return &Service{
		deps: &deps{
			gen:     cfg.Generator,
			store:   cfg.Store,
			assets:  NewAssets(cfg.Storage),
			poller:  NewPoller(cfg.Generator, cfg.Lease, cfg.PollInterval, cfg.PollTimeout, cfg.RequestTimeout),
			events:  cfg.Events,
			timeout: cfg.RequestTimeout,
		},
		log:         logger.Component("pipeline_service"),
		controllers: make(map[string]*Controller),
	}
}

// Create 创建空白草稿
func (s *Service) Create(ctx context.Context, title string, style model.Style) (*Snapshot, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = model.DefaultTitle
	}
	if style == "" {
		style = model.StyleCinematic
	}
	if !style.IsValid() {
		return nil, validationf("unsupported style %q", style)
	}

	g := &model.Generation{
		ID:     id.New(),
		Title:  title,
		Style:  style,
		Status: model.StatusDrafting,
		State:  model.PipelineState{Assets: []string{}},
	}
	if err := s.deps.store.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("create generation: %w", err)
	}

	c := newController(s.deps, g.Clone())
	s.mu.Lock()
	s.controllers[g.ID] = c
	s.mu.Unlock()

	s.log.Info().Str("generation_id", g.ID).Str("style", string(style)).Msg("generation created")
	return c.Snapshot(), nil
}

// Get 获取控制器，不在内存中时从存储恢复
func (s *Service) Get(ctx context.Context, generationID string) (*Controller, error) {
	c, err := s.load(ctx, generationID)
	if err != nil {
		return nil, err
	}
	s.resumePolling(c)
	return c, nil
}

func (s *Service) load(ctx context.Context, generationID string) (*Controller, error) {
	s.mu.Lock()
	if c, ok := s.controllers[generationID]; ok {
		s.mu.Unlock()
		return c, nil
	}
	s.mu.Unlock()

	g, err := s.deps.store.Get(ctx, generationID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.controllers[generationID]; ok {
		return c, nil
	}

	c := newController(s.deps, g)
	c.mu.Lock()
	if c.recoverLocked() {
		c.log.Info().Msg("cleared in-flight work from a previous process")
		c.persistAsyncLocked()
	}
	c.mu.Unlock()

	s.controllers[generationID] = c
	return c, nil
}

func (s *Service) resumePolling(c *Controller) {
	filmID := c.pollingTarget()
	if filmID == "" || s.deps.poller.Active(c.ID()) {
		return
	}
	s.log.Info().Str("generation_id", c.ID()).Str("film_id", filmID).Msg("resuming film polling")
	s.deps.poller.Start(c.ID(), filmID, c)
}

// List 草稿列表
func (s *Service) List(ctx context.Context, filter *model.ListFilter) ([]Draft, error) {
	summaries, err := s.deps.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	drafts := make([]Draft, 0, len(summaries))
	for _, sum := range summaries {
		drafts = append(drafts, Project(sum))
	}
	return drafts, nil
}

// Delete 删除创作及其全部素材
func (s *Service) Delete(ctx context.Context, generationID string) error {
	var keys []string
	if c, ok := s.evict(generationID); ok {
		keys = append(keys, c.Snapshot().Generation.State.Assets...)
	}

	g, err := s.deps.store.Get(ctx, generationID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	keys = append(keys, g.State.Assets...)

	if err := s.deps.store.Delete(ctx, generationID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.deps.assets.Delete(ctx, dedupe(keys)...)

	event := events.Event{Type: events.EventDeleted, GenerationID: generationID, At: time.Now()}
	if err := s.deps.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("generation_id", generationID).Msg("failed to publish delete event")
	}
	s.log.Info().Str("generation_id", generationID).Int("assets", len(keys)).Msg("generation deleted")
	return nil
}

// Release 关闭控制器并从内存移除，状态已在存储中
func (s *Service) Release(generationID string) {
	s.evict(generationID)
}

// evict 先关闭再移除：关闭期间 Get 仍拿到同一个（已关闭的）控制器，
// 进行中的调用退出后才允许从存储重新加载
func (s *Service) evict(generationID string) (*Controller, bool) {
	s.mu.Lock()
	c, ok := s.controllers[generationID]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	c.Close()

	s.mu.Lock()
	if cur, ok := s.controllers[generationID]; ok && cur == c {
		delete(s.controllers, generationID)
	}
	s.mu.Unlock()
	return c, true
}

// ResumeActive 启动时恢复所有成片中的创作的轮询
func (s *Service) ResumeActive(ctx context.Context) (int, error) {
	summaries, err := s.deps.store.List(ctx, &model.ListFilter{
		Statuses: []model.Status{model.StatusFilming},
		Limit:    200,
	})
	if err != nil {
		return 0, fmt.Errorf("list filming generations: %w", err)
	}

	resumed := 0
	for _, sum := range summaries {
		c, err := s.Get(ctx, sum.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("generation_id", sum.ID).Msg("failed to resume generation")
			continue
		}
		if s.deps.poller.Active(c.ID()) {
			resumed++
		}
	}
	s.log.Info().Int("resumed", resumed).Msg("resumed film polling")
	return resumed, nil
}

// ReconcileResult 一次性对账结果
type ReconcileResult struct {
	GenerationID string
	FilmID       string
	Before       model.Status
	After        model.Status
	Err          error
}

// ReconcileFilms 对所有成片中的创作查询一次远端状态并写回，不启动轮询
func (s *Service) ReconcileFilms(ctx context.Context) ([]ReconcileResult, error) {
	summaries, err := s.deps.store.List(ctx, &model.ListFilter{
		Statuses: []model.Status{model.StatusFilming},
		Limit:    200,
	})
	if err != nil {
		return nil, fmt.Errorf("list filming generations: %w", err)
	}

	results := make([]ReconcileResult, 0, len(summaries))
	for _, sum := range summaries {
		res := ReconcileResult{GenerationID: sum.ID, Before: sum.Status}
		c, err := s.load(ctx, sum.ID)
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		res.FilmID = c.pollingTarget()
		if res.FilmID != "" {
			callCtx, cancel := context.WithTimeout(ctx, s.deps.timeout)
			status, err := s.deps.gen.FilmStatus(callCtx, res.FilmID)
			cancel()
			switch {
			case errors.Is(err, generator.ErrFilmNotFound):
				c.filmLost(res.FilmID, "film job is no longer known to the generator")
			case err != nil:
				res.Err = err
			default:
				c.applyFilmStatus(res.FilmID, status)
			}
		}
		res.After = c.Snapshot().Generation.Status
		results = append(results, res)
	}
	return results, nil
}

// Shutdown 等待进行中的调用（受 ctx 限制）后关闭所有控制器与轮询
func (s *Service) Shutdown(ctx context.Context) {
	s.mu.Lock()
	controllers := make([]*Controller, 0, len(s.controllers))
	for _, c := range s.controllers {
		controllers = append(controllers, c)
	}
	s.controllers = make(map[string]*Controller)
	s.mu.Unlock()

	s.deps.poller.StopAll()
	for _, c := range controllers {
		c.drain(ctx)
		c.Close()
	}
	s.log.Info().Int("controllers", len(controllers)).Msg("pipeline service stopped")
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok || k == "" {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
