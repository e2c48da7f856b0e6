package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"reel/internal/generator"
	"reel/internal/pkg/logger"
	"reel/internal/pkg/metrics"
)

// Lease 跨实例的轮询租约，未配置 Redis 时为 nil
type Lease interface {
	Acquire(ctx context.Context, generationID string) (bool, error)
	Release(ctx context.Context, generationID string) error
}

// filmSink 接收轮询结果的一方（控制器）
type filmSink interface {
	// applyFilmStatus 写入远端状态，返回任务是否已到终态
	applyFilmStatus(filmID string, status *generator.FilmStatus) bool
	// filmLost 任务下落不明（轮询超时或远端不认识该任务）
	filmLost(filmID string, reason string)
}

// pollTask 单个生成的轮询任务
type pollTask struct {
	filmID string
	cancel context.CancelFunc
}

// Poller 成片任务轮询器，每个 generation 至多一个轮询任务
type Poller struct {
	gen      generator.Generator
	lease    Lease
	interval time.Duration
	timeout  time.Duration
	request  time.Duration
	log      zerolog.Logger

	mu    sync.Mutex
	tasks map[string]*pollTask
	wg    sync.WaitGroup
}

// NewPoller 创建轮询器
func NewPoller(gen generator.Generator, lease Lease, interval, timeout, request time.Duration) *Poller {
	return &Poller{
		gen:      gen,
		lease:    lease,
		interval: interval,
		timeout:  timeout,
		request:  request,
		log:      logger.Component("film_poller"),
		tasks:    make(map[string]*pollTask),
	}
}

// Start 开始轮询，先取消同一 generation 的旧任务
func (p *Poller) Start(generationID, filmID string, sink filmSink) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if old, ok := p.tasks[generationID]; ok {
		old.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	task := &pollTask{filmID: filmID, cancel: cancel}
	p.tasks[generationID] = task

	p.wg.Add(1)
	go p.run(ctx, generationID, task, sink)
}

// Stop 停止某个 generation 的轮询
func (p *Poller) Stop(generationID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if task, ok := p.tasks[generationID]; ok {
		task.cancel()
		delete(p.tasks, generationID)
	}
}

// StopAll 停止全部轮询并等待退出
func (p *Poller) StopAll() {
	p.mu.Lock()
	for id, task := range p.tasks {
		task.cancel()
		delete(p.tasks, id)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Active 是否存在轮询任务
func (p *Poller) Active(generationID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.tasks[generationID]
	return ok
}

func (p *Poller) run(ctx context.Context, generationID string, task *pollTask, sink filmSink) {
	defer p.wg.Done()
	defer p.finish(generationID, task)

	metrics.PollerStarted()
	defer metrics.PollerStopped()

	log := p.log.With().Str("generation_id", generationID).Str("film_id", task.filmID).Logger()
	log.Info().Dur("interval", p.interval).Msg("film polling started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				log.Warn().Dur("timeout", p.timeout).Msg("film polling timed out")
				sink.filmLost(task.filmID, "film status polling timed out")
			}
			return
		case <-ticker.C:
		}

		if p.lease != nil {
			ok, err := p.lease.Acquire(ctx, generationID)
			if err != nil {
				log.Warn().Err(err).Msg("poll lease unavailable")
				metrics.PollTick("lease_error")
				continue
			}
			if !ok {
				metrics.PollTick("lease_held")
				continue
			}
		}

		status, err := p.fetch(ctx, task.filmID)
		if ctx.Err() != nil {
			// 已停止：丢弃本次结果，不再修改状态
			continue
		}
		if errors.Is(err, generator.ErrFilmNotFound) {
			log.Warn().Msg("film job unknown to generator")
			metrics.PollTick("terminal")
			sink.filmLost(task.filmID, "film job is no longer known to the generator")
			return
		}
		if err != nil {
			log.Warn().Err(err).Msg("film status poll failed, will retry next tick")
			metrics.PollTick("transient_error")
			continue
		}

		if sink.applyFilmStatus(task.filmID, status) {
			log.Info().Str("status", string(status.Status)).Msg("film polling finished")
			metrics.PollTick("terminal")
			return
		}
		metrics.PollTick("ok")
	}
}

func (p *Poller) fetch(ctx context.Context, filmID string) (*generator.FilmStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, p.request)
	defer cancel()
	start := time.Now()
	status, err := p.gen.FilmStatus(ctx, filmID)
	metrics.ObserveCall("film_status", start, err)
	return status, err
}

// finish 只移除自己；已被新任务替换时不动，租约也留给新任务
func (p *Poller) finish(generationID string, task *pollTask) {
	p.mu.Lock()
	cur, ok := p.tasks[generationID]
	replaced := ok && cur != task
	if ok && cur == task {
		delete(p.tasks, generationID)
	}
	p.mu.Unlock()
	task.cancel()

	if p.lease != nil && !replaced {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.lease.Release(ctx, generationID); err != nil {
			p.log.Warn().Err(err).Str("generation_id", generationID).Msg("failed to release poll lease")
		}
	}
}
