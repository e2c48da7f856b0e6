package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"reel/internal/generator"
	model "reel/internal/model/generation"
	"reel/internal/pkg/events"
	"reel/internal/pkg/id"
	"reel/internal/pkg/logger"
	"reel/internal/pkg/metrics"
	repo "reel/internal/repository/generation"
)

const (
	persistTimeout = 10 * time.Second
	cleanupTimeout = 30 * time.Second

	interruptedMessage = "interrupted before completion, please retry"
)

// deps 控制器共享的依赖
type deps struct {
	gen     generator.Generator
	store   repo.Store
	assets  *Assets
	poller  *Poller
	events  events.Publisher
	timeout time.Duration
}

// ticket 异步调用发起时的上下文，用于判断结果是否过期
type ticket struct {
	scope context.Context
	epoch int
}

// Controller 单个创作的流水线状态机
// 所有修改在 mu 下进行并在持锁期间落库；远端调用在锁外的 goroutine 中执行。
type Controller struct {
	id   string
	deps *deps
	log  zerolog.Logger

	mu     sync.Mutex
	g      *model.Generation
	phase  model.Phase
	scope  context.Context
	cancel context.CancelFunc
	closed bool

	wg sync.WaitGroup
}

func newController(d *deps, g *model.Generation) *Controller {
	c := &Controller{
		id:    g.ID,
		deps:  d,
		log:   logger.Component("pipeline").With().Str("generation_id", g.ID).Logger(),
		g:     g,
		phase: PhaseOf(g.Status, &g.State),
	}
	c.scope, c.cancel = context.WithCancel(context.Background())
	return c
}

// ID 创作ID
func (c *Controller) ID() string { return c.id }

// Snapshot 当前状态的深拷贝，远端调用进行中也可安全读取
func (c *Controller) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Wait 等待所有进行中的远端调用结束（不含成片轮询）
func (c *Controller) Wait() {
	c.wg.Wait()
}

// ---------------------------------------------------------------------------
// 故事阶段
// ---------------------------------------------------------------------------

// SubmitIdea 提交创意并生成故事；会清空已有的故事、视觉与成片
func (c *Controller) SubmitIdea(idea string, style model.Style, duration model.Duration) error {
	idea = strings.TrimSpace(idea)
	if idea == "" {
		return validationf("idea is required")
	}
	if style == "" {
		style = model.StyleCinematic
	}
	if !style.IsValid() {
		return validationf("unsupported style %q", style)
	}
	if duration == "" {
		duration = model.DurationOne
	}
	if !duration.IsValid() {
		return validationf("unsupported duration %q", duration)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpenLocked(); err != nil {
		return err
	}
	switch c.phase {
	case model.PhaseIdle, model.PhaseStoryDrafting, model.PhaseFailed:
	default:
		return invalidStatef("cannot submit a new idea during %s", c.phase)
	}
	if c.g.State.StoryGenerating || c.g.State.RefiningBeat != 0 {
		return invalidStatef("story generation is in progress")
	}

	orphans := c.hardResetLocked()
	st := &c.g.State
	st.Idea = idea
	st.Duration = duration
	c.g.Style = style
	c.phase = model.PhaseStoryDrafting

	c.startStoryLocked(false, "")
	c.discard(orphans...)
	return c.persistLocked()
}

// RegenerateStory 整体重写故事，清除选中的节拍
func (c *Controller) RegenerateStory(feedback string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireStoryIdleLocked(); err != nil {
		return err
	}
	c.g.State.SelectedBeat = 0
	c.startStoryLocked(true, strings.TrimSpace(feedback))
	return c.persistLocked()
}

// RefineBeat 按反馈修改第 n 个节拍，其余节拍不变
func (c *Controller) RefineBeat(n int, feedback string) error {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return validationf("feedback is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireStoryIdleLocked(); err != nil {
		return err
	}
	st := &c.g.State
	if st.Story == nil {
		return invalidStatef("no story to refine")
	}
	if _, ok := st.Story.Beat(n); !ok {
		return validationf("beat %d does not exist", n)
	}

	st.SelectedBeat = 0
	st.RefiningBeat = n
	st.StoryError = ""

	t := c.ticketLocked()
	story := st.Story.Clone()
	c.spawn(func(ctx context.Context) { c.runRefineBeat(ctx, t, story, n, feedback) })
	return c.persistLocked()
}

// SelectBeat 选中节拍，0 表示取消选中
func (c *Controller) SelectBeat(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpenLocked(); err != nil {
		return err
	}
	if c.phase != model.PhaseStoryDrafting || c.g.State.Story == nil {
		return invalidStatef("no story to select from")
	}
	if n != 0 {
		if _, ok := c.g.State.Story.Beat(n); !ok {
			return validationf("beat %d does not exist", n)
		}
	}
	c.g.State.SelectedBeat = n
	return c.persistLocked()
}

// ApproveStory 确认故事并进入视觉设定
func (c *Controller) ApproveStory() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireStoryIdleLocked(); err != nil {
		return err
	}
	st := &c.g.State
	if st.Story == nil {
		return invalidStatef("no story to approve")
	}
	vd, err := newVisualDirection(st.Story)
	if err != nil {
		return invalidStatef("story cannot be approved: %v", err)
	}
	st.VisualDirection = vd
	c.phase = model.PhaseVisualDirection
	return c.persistLocked()
}

func (c *Controller) startStoryLocked(regenerate bool, feedback string) {
	st := &c.g.State
	st.StoryGenerating = true
	st.StoryError = ""

	t := c.ticketLocked()
	req := &generator.StoryRequest{
		Idea:     st.Idea,
		Style:    c.g.Style,
		Duration: st.Duration,
		Feedback: feedback,
	}
	c.spawn(func(ctx context.Context) { c.runStory(ctx, t, regenerate, req) })
}

func (c *Controller) runStory(ctx context.Context, t ticket, regenerate bool, req *generator.StoryRequest) {
	op := "generate_story"
	call := c.deps.gen.GenerateStory
	if regenerate {
		op = "regenerate_story"
		call = c.deps.gen.RegenerateStory
	}

	var res *generator.StoryResult
	err := c.call(ctx, op, func(ctx context.Context) (err error) {
		res, err = call(ctx, req)
		return err
	})
	if err == nil {
		if res.Story == nil {
			err = fmt.Errorf("%s: generator returned no story", op)
		} else if verr := res.Story.Validate(); verr != nil {
			err = fmt.Errorf("%s: %w", op, verr)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.liveLocked(t) {
		return
	}
	if res != nil {
		c.addCostLocked(model.CostPhaseStory, res.CostUSD)
	}
	st := &c.g.State
	if c.currentLocked(t) && st.StoryGenerating {
		st.StoryGenerating = false
		if err != nil {
			c.log.Warn().Err(err).Str("operation", op).Msg("story generation failed")
			st.StoryError = err.Error()
			if st.Story == nil {
				c.failLocked(model.PhaseStoryDrafting)
			}
		} else {
			story := res.Story
			if story.ID == "" {
				story.ID = id.Short()
			}
			if story.Style == "" {
				story.Style = req.Style
			}
			if story.Duration == "" {
				story.Duration = req.Duration
			}
			st.Story = story
			st.SelectedBeat = 0
			c.log.Info().Str("story_id", story.ID).Int("beats", len(story.Beats)).Msg("story ready")
		}
	}
	c.persistAsyncLocked()
}

func (c *Controller) runRefineBeat(ctx context.Context, t ticket, story *model.Story, n int, feedback string) {
	var res *generator.BeatResult
	err := c.call(ctx, "refine_beat", func(ctx context.Context) (err error) {
		res, err = c.deps.gen.RefineBeat(ctx, &generator.RefineBeatRequest{Story: story, BeatNumber: n, Feedback: feedback})
		return err
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.liveLocked(t) {
		return
	}
	if res != nil {
		c.addCostLocked(model.CostPhaseStory, res.CostUSD)
	}
	st := &c.g.State
	if c.currentLocked(t) && st.RefiningBeat == n && st.Story != nil && st.Story.ID == story.ID {
		st.RefiningBeat = 0
		if err != nil {
			c.log.Warn().Err(err).Int("beat", n).Msg("beat refinement failed")
			st.StoryError = err.Error()
		} else {
			beat := res.Beat
			beat.SceneNumber = n
			st.Story.Beats[n-1] = beat
		}
	}
	c.persistAsyncLocked()
}

// ---------------------------------------------------------------------------
// 视觉设定
// ---------------------------------------------------------------------------

// GenerateProtagonist 生成或重新生成主角形象（风格锚点）
func (c *Controller) GenerateProtagonist(feedback string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, err := c.cascadeLocked()
	if err != nil {
		return err
	}
	attempt, err := cs.beginProtagonist()
	if err != nil {
		return err
	}
	c.spawnProtagonistLocked(attempt, strings.TrimSpace(feedback))
	return c.persistLocked()
}

// LockProtagonist 锁定主角并并行生成其余角色与场景
func (c *Controller) LockProtagonist() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, err := c.cascadeLocked()
	if err != nil {
		return err
	}
	jobs, err := cs.lockProtagonist()
	if err != nil {
		return err
	}

	t := c.ticketLocked()
	story := cs.story.Clone()
	ref := cs.vd.Protagonist.Image.Ref()
	c.log.Info().Int("requests", len(jobs)).Msg("protagonist locked, fanning out")
	c.spawn(func(ctx context.Context) {
		var g errgroup.Group
		for _, job := range jobs {
			job := job
			g.Go(func() error {
				c.runSlot(ctx, t, story, ref, job)
				return nil
			})
		}
		_ = g.Wait()
	})
	return c.persistLocked()
}

// ChangeProtagonistLook 解锁主角并清空所有下游素材，需调用方确认
func (c *Controller) ChangeProtagonistLook(confirmed bool, feedback string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, err := c.cascadeLocked()
	if err != nil {
		return err
	}
	orphans, err := cs.changeProtagonist(confirmed)
	if err != nil {
		return err
	}
	c.g.State.Epoch++
	attempt, err := cs.beginProtagonist()
	if err != nil {
		return err
	}
	c.discard(c.untrackLocked(orphans...)...)
	c.spawnProtagonistLocked(attempt, strings.TrimSpace(feedback))
	return c.persistLocked()
}

// GenerateSlot 首次生成角色或场景
func (c *Controller) GenerateSlot(key string) error {
	return c.startSlot(key, modeGenerate, "")
}

// RetrySlot 使用相同参考图重新生成
func (c *Controller) RetrySlot(key string) error {
	return c.startSlot(key, modeRetry, "")
}

// RefineSlot 附带反馈重新生成，反馈为空时使用暂存的反馈
func (c *Controller) RefineSlot(key, feedback string) error {
	return c.startSlot(key, modeRefine, feedback)
}

// ApproveSlot 确认槽位
func (c *Controller) ApproveSlot(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, err := c.cascadeLocked()
	if err != nil {
		return err
	}
	if err := cs.approveSlot(key); err != nil {
		return err
	}
	return c.persistLocked()
}

// SetSlotFeedback 暂存槽位反馈
func (c *Controller) SetSlotFeedback(key, feedback string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, err := c.cascadeLocked()
	if err != nil {
		return err
	}
	if err := cs.setFeedback(key, feedback); err != nil {
		return err
	}
	return c.persistLocked()
}

// ContinueToKeyMoment 冻结已确认素材并生成关键时刻
func (c *Controller) ContinueToKeyMoment() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, err := c.cascadeLocked()
	if err != nil {
		return err
	}
	attempt, orphan, err := cs.continueToKeyMoment()
	if err != nil {
		return err
	}
	c.discard(c.untrackLocked(orphan)...)
	c.spawnKeyMomentLocked(cs, imageJob{Key: model.KeyMomentSlotKey, Attempt: attempt, Mode: modeGenerate})
	return c.persistLocked()
}

// RefineKeyMoment 按反馈重新生成关键时刻，参考素材不变
func (c *Controller) RefineKeyMoment(feedback string) error {
	return c.restartKeyMoment(modeRefine, feedback)
}

// RetryKeyMoment 重新生成关键时刻
func (c *Controller) RetryKeyMoment() error {
	return c.restartKeyMoment(modeRetry, "")
}

func (c *Controller) restartKeyMoment(mode slotMode, feedback string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, err := c.cascadeLocked()
	if err != nil {
		return err
	}
	job, err := cs.beginKeyMoment(mode, feedback)
	if err != nil {
		return err
	}
	c.spawnKeyMomentLocked(cs, job)
	return c.persistLocked()
}

func (c *Controller) startSlot(key string, mode slotMode, feedback string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, err := c.cascadeLocked()
	if err != nil {
		return err
	}
	job, orphan, err := cs.beginSlot(key, mode, feedback)
	if err != nil {
		return err
	}
	c.discard(c.untrackLocked(orphan)...)

	t := c.ticketLocked()
	story := cs.story.Clone()
	ref := cs.vd.Protagonist.Image.Ref()
	c.spawn(func(ctx context.Context) { c.runSlot(ctx, t, story, ref, job) })
	return c.persistLocked()
}

func (c *Controller) spawnProtagonistLocked(attempt int, feedback string) {
	t := c.ticketLocked()
	story := c.g.State.Story.Clone()
	c.spawn(func(ctx context.Context) {
		var res *generator.ProtagonistResult
		err := c.call(ctx, "generate_protagonist", func(ctx context.Context) (err error) {
			res, err = c.deps.gen.GenerateProtagonist(ctx, &generator.ProtagonistRequest{Story: story, Feedback: feedback})
			return err
		})
		var img *model.MoodboardImage
		if err == nil {
			img, err = c.deps.assets.SaveImage(ctx, c.id, "protagonist", res.Image, res.Prompt, model.ImageTypeCharacter)
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.liveLocked(t) {
			c.discardImage(img)
			return
		}
		if res != nil {
			c.addCostLocked(model.CostPhaseCharacters, res.CostUSD)
		}
		var prompt string
		if res != nil {
			prompt = res.Prompt
		}
		c.applyImageLocked(t, "protagonist", img, err, func(cs cascade) (bool, string) {
			return cs.applyProtagonist(attempt, img, prompt, err)
		})
	})
}

func (c *Controller) runSlot(ctx context.Context, t ticket, story *model.Story, ref model.ImageRef, job imageJob) {
	var res *generator.ImageResult
	err := c.call(ctx, slotOperation(job), func(ctx context.Context) error {
		reference, err := c.deps.assets.Load(ctx, ref)
		if err != nil {
			return err
		}
		if job.Key == model.SettingSlotKey {
			res, err = c.deps.gen.GenerateSetting(ctx, &generator.SettingRequest{
				Story:     story,
				Feedback:  job.Feedback,
				Reference: &reference,
			})
			return err
		}
		req := &generator.CharacterRequest{
			Story:       story,
			CharacterID: job.Key,
			Feedback:    job.Feedback,
			Reference:   &reference,
		}
		if job.Mode == modeRefine {
			res, err = c.deps.gen.RefineCharacter(ctx, req)
		} else {
			res, err = c.deps.gen.GenerateCharacter(ctx, req)
		}
		return err
	})

	typ, phase := model.ImageTypeCharacter, model.CostPhaseCharacters
	if job.Key == model.SettingSlotKey {
		typ, phase = model.ImageTypeSetting, model.CostPhaseSetting
	}
	var img *model.MoodboardImage
	if err == nil {
		img, err = c.deps.assets.SaveImage(ctx, c.id, job.Key, res.Image, res.Prompt, typ)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.liveLocked(t) {
		c.discardImage(img)
		return
	}
	var prompt string
	if res != nil {
		c.addCostLocked(phase, res.CostUSD)
		prompt = res.Prompt
	}
	c.applyImageLocked(t, job.Key, img, err, func(cs cascade) (bool, string) {
		return cs.applySlot(job.Key, job.Attempt, img, prompt, err)
	})
}

func (c *Controller) spawnKeyMomentLocked(cs cascade, job imageJob) {
	t := c.ticketLocked()
	story := cs.story.Clone()
	bundle := cs.vd.KeyMoment.Bundle.Clone()
	c.spawn(func(ctx context.Context) {
		var res *generator.KeyMomentResult
		err := c.call(ctx, "generate_key_moment", func(ctx context.Context) error {
			visuals, err := c.deps.assets.LoadVisuals(ctx, bundle)
			if err != nil {
				return err
			}
			res, err = c.deps.gen.GenerateKeyMoment(ctx, &generator.KeyMomentRequest{
				Story:    story,
				Visuals:  visuals,
				Feedback: job.Feedback,
			})
			return err
		})
		var img *model.MoodboardImage
		if err == nil {
			img, err = c.deps.assets.SaveImage(ctx, c.id, model.KeyMomentSlotKey, res.Image, res.Prompt, model.ImageTypeKeyMoment)
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.liveLocked(t) {
			c.discardImage(img)
			return
		}
		var (
			prompt, description string
			beat                int
		)
		if res != nil {
			c.addCostLocked(model.CostPhaseKeyMoments, res.CostUSD)
			prompt, beat, description = res.Prompt, res.BeatNumber, res.BeatDescription
		}
		c.applyImageLocked(t, model.KeyMomentSlotKey, img, err, func(cs cascade) (bool, string) {
			return cs.applyKeyMoment(job.Attempt, beat, description, img, prompt, err)
		})
	})
}

// applyImageLocked 写入图片结果；过期结果的图片直接删除
func (c *Controller) applyImageLocked(t ticket, slot string, img *model.MoodboardImage, err error, apply func(cascade) (bool, string)) {
	vd := c.g.State.VisualDirection
	if !c.currentLocked(t) || vd == nil {
		c.discardImage(img)
		c.persistAsyncLocked()
		return
	}
	applied, orphan := apply(cascade{vd: vd, story: c.g.State.Story})
	switch {
	case !applied:
		c.discardImage(img)
	case err != nil:
		c.log.Warn().Err(err).Str("slot", slot).Msg("image generation failed")
	default:
		c.trackLocked(img.AssetKey)
		c.discard(c.untrackLocked(orphan)...)
		c.log.Info().Str("slot", slot).Str("asset_key", img.AssetKey).Msg("image ready")
	}
	c.persistAsyncLocked()
}

func slotOperation(job imageJob) string {
	name := "character"
	if job.Key == model.SettingSlotKey {
		name = "setting"
	}
	return string(job.Mode) + "_" + name
}

// ---------------------------------------------------------------------------
// 成片
// ---------------------------------------------------------------------------

// StartFilm 提交成片任务，关键时刻就绪后才允许
func (c *Controller) StartFilm() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpenLocked(); err != nil {
		return err
	}
	if c.phase != model.PhaseVisualDirection {
		return invalidStatef("cannot start film during %s", c.phase)
	}
	vd := c.g.State.VisualDirection
	if vd == nil || !vd.KeyMoment.Ready() || vd.KeyMoment.Bundle == nil {
		return invalidStatef("key moment is not ready")
	}

	c.g.State.Film = &model.FilmState{
		Request: &model.FilmRequestRef{
			Bundle:    *vd.KeyMoment.Bundle.Clone(),
			KeyMoment: vd.KeyMoment.Image.Ref(),
		},
	}
	c.g.State.Cost.SettleFilm()
	c.submitFilmLocked()
	return c.persistLocked()
}

// submitFilmLocked 用保存的素材引用提交成片
func (c *Controller) submitFilmLocked() {
	st := &c.g.State
	st.Film.Job = model.NewFilmJob()
	st.Film.Job.Starting = true
	st.FailedPhase = ""
	st.Interrupted = false
	c.phase = model.PhaseFilmGeneration

	t := c.ticketLocked()
	story := st.Story.Clone()
	request := *st.Film.Request
	request.Bundle = *request.Bundle.Clone()
	c.spawn(func(ctx context.Context) { c.runStartFilm(ctx, t, story, request) })
}

func (c *Controller) runStartFilm(ctx context.Context, t ticket, story *model.Story, request model.FilmRequestRef) {
	var res *generator.FilmStart
	err := c.call(ctx, "start_film", func(ctx context.Context) error {
		visuals, err := c.deps.assets.LoadVisuals(ctx, &request.Bundle)
		if err != nil {
			return err
		}
		keyMoment, err := c.deps.assets.Load(ctx, request.KeyMoment)
		if err != nil {
			return err
		}
		res, err = c.deps.gen.StartFilm(ctx, &generator.FilmRequest{
			Story:          story,
			Visuals:        visuals,
			KeyMomentImage: keyMoment,
		})
		return err
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	film := c.g.State.Film
	if !c.currentLocked(t) || film == nil || !film.Job.Starting {
		if res != nil {
			c.log.Warn().Str("film_id", res.FilmID).Msg("film job started for a discarded request")
		}
		return
	}
	film.Job.Starting = false
	if err != nil {
		c.log.Error().Err(err).Msg("film start failed")
		film.Job.Status = model.FilmStatusFailed
		film.Job.ErrorMessage = err.Error()
		c.failLocked(model.PhaseFilmGeneration)
		c.persistAsyncLocked()
		return
	}

	film.Job.ID = res.FilmID
	film.Job.TotalShots = res.TotalShots
	film.Job.Status = model.FilmStatusGenerating
	c.log.Info().Str("film_id", res.FilmID).Int("total_shots", res.TotalShots).Msg("film job started")
	c.persistAsyncLocked()
	c.deps.poller.Start(c.id, res.FilmID, c)
}

// applyFilmStatus 用远端状态整体覆盖本地任务，返回轮询是否应结束
func (c *Controller) applyFilmStatus(filmID string, status *generator.FilmStatus) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	film := c.g.State.Film
	if c.closed || c.phase != model.PhaseFilmGeneration || film == nil || film.Job.ID != filmID {
		return true
	}

	job := &film.Job
	job.Status = status.Status
	job.CurrentShot = status.CurrentShot
	if status.TotalShots > 0 {
		job.TotalShots = status.TotalShots
	}
	job.Phase = status.Phase
	job.CompletedShots = append([]model.CompletedShot{}, status.CompletedShots...)
	job.FinalVideoURL = status.FinalVideoURL
	job.ErrorMessage = status.ErrorMessage
	job.Cost = status.Cost

	prev := c.g.State.Cost.Film()
	c.g.State.Cost.ReplaceFilm(status.Cost.TotalUSD)
	metrics.Spend(string(model.CostPhaseFilm), c.g.State.Cost.Film()-prev)

	switch status.Status {
	case model.FilmStatusReady:
		c.phase = model.PhaseComplete
		c.log.Info().Str("film_id", filmID).Str("final_video_url", status.FinalVideoURL).Msg("film ready")
	case model.FilmStatusFailed:
		c.failLocked(model.PhaseFilmGeneration)
		c.log.Warn().Str("film_id", filmID).Str("error", status.ErrorMessage).
			Int("completed_shots", len(status.CompletedShots)).Msg("film job failed")
	}
	c.persistAsyncLocked()
	return status.Status.IsTerminal()
}

// filmLost 任务下落不明，标记为中断
func (c *Controller) filmLost(filmID string, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	film := c.g.State.Film
	if c.closed || c.phase != model.PhaseFilmGeneration || film == nil || film.Job.ID != filmID {
		return
	}
	film.Job.ErrorMessage = reason
	c.g.State.Interrupted = true
	c.failLocked(model.PhaseFilmGeneration)
	c.log.Warn().Str("film_id", filmID).Str("reason", reason).Msg("film job interrupted")
	c.persistAsyncLocked()
}

// RegenerateShot 成片结束后按反馈重拍单个镜头（从 1 开始），需要生成服务支持
// 调用期间进入成片阶段，受理后恢复轮询同一任务；花费继续累计在同一任务上。
func (c *Controller) RegenerateShot(n int, feedback string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpenLocked(); err != nil {
		return err
	}
	st := &c.g.State
	if !c.shotRegenerableLocked() {
		return invalidStatef("cannot regenerate a shot during %s", c.phase)
	}
	regen, ok := c.deps.gen.(generator.ShotRegenerator)
	if !ok {
		return invalidStatef("generator does not support shot regeneration")
	}
	job := &st.Film.Job
	if n < 1 || n > job.TotalShots {
		return validationf("shot %d out of range 1..%d", n, job.TotalShots)
	}

	c.deps.poller.Stop(c.id)
	prev := regenPrior{
		phase:       c.phase,
		failedPhase: st.FailedPhase,
		status:      job.Status,
		interrupted: st.Interrupted,
	}
	job.Starting = true
	job.Status = model.FilmStatusGenerating
	job.CurrentShot = n
	job.ErrorMessage = ""
	st.FailedPhase = ""
	st.Interrupted = false
	c.phase = model.PhaseFilmGeneration

	t := c.ticketLocked()
	req := &generator.RegenerateShotRequest{FilmID: job.ID, ShotNumber: n, Feedback: strings.TrimSpace(feedback)}
	c.spawn(func(ctx context.Context) { c.runRegenerateShot(ctx, t, regen, req, prev) })
	return c.persistLocked()
}

// regenPrior 重拍受理失败时恢复的状态
type regenPrior struct {
	phase       model.Phase
	failedPhase model.Phase
	status      model.FilmStatus
	interrupted bool
}

// canRegenerateShotLocked 当前状态允许重拍且生成服务支持
func (c *Controller) canRegenerateShotLocked() bool {
	if _, ok := c.deps.gen.(generator.ShotRegenerator); !ok {
		return false
	}
	return !c.closed && c.shotRegenerableLocked()
}

func (c *Controller) shotRegenerableLocked() bool {
	film := c.g.State.Film
	if film == nil || film.Job.ID == "" || film.Job.Starting {
		return false
	}
	switch c.phase {
	case model.PhaseComplete:
		return true
	case model.PhaseFailed:
		return c.g.State.FailedPhase == model.PhaseFilmGeneration
	}
	return false
}

func (c *Controller) runRegenerateShot(ctx context.Context, t ticket, regen generator.ShotRegenerator, req *generator.RegenerateShotRequest, prev regenPrior) {
	err := c.call(ctx, "regenerate_shot", func(ctx context.Context) error {
		return regen.RegenerateShot(ctx, req)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	film := c.g.State.Film
	if !c.currentLocked(t) || film == nil || film.Job.ID != req.FilmID || !film.Job.Starting {
		return
	}
	film.Job.Starting = false
	if err != nil {
		c.log.Error().Err(err).Int("shot", req.ShotNumber).Msg("shot regeneration failed")
		film.Job.Status = prev.status
		film.Job.ErrorMessage = fmt.Sprintf("shot %d regeneration failed: %v", req.ShotNumber, err)
		c.phase = prev.phase
		c.g.State.FailedPhase = prev.failedPhase
		c.g.State.Interrupted = prev.interrupted
		c.persistAsyncLocked()
		return
	}

	c.log.Info().Str("film_id", req.FilmID).Int("shot", req.ShotNumber).Msg("shot regeneration started")
	c.persistAsyncLocked()
	c.deps.poller.Start(c.id, req.FilmID, c)
}

// ---------------------------------------------------------------------------
// 失败恢复与重置
// ---------------------------------------------------------------------------

// RetryFailed 重试失败的阶段
// 故事失败重新生成故事；成片失败结转花费后用相同素材重新提交。
func (c *Controller) RetryFailed() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpenLocked(); err != nil {
		return err
	}
	if c.phase != model.PhaseFailed {
		return invalidStatef("nothing to retry during %s", c.phase)
	}

	st := &c.g.State
	switch st.FailedPhase {
	case model.PhaseFilmGeneration:
		if st.Film == nil || st.Film.Request == nil {
			return invalidStatef("no film request to retry")
		}
		c.deps.poller.Stop(c.id)
		st.Cost.SettleFilm()
		c.submitFilmLocked()
	default:
		if st.Idea == "" {
			return invalidStatef("no idea to retry")
		}
		st.FailedPhase = ""
		st.Interrupted = false
		c.phase = model.PhaseStoryDrafting
		c.startStoryLocked(false, "")
	}
	return c.persistLocked()
}

// GoBack 成片失败后回到视觉设定，之前的阶段保持不变
func (c *Controller) GoBack() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpenLocked(); err != nil {
		return err
	}
	st := &c.g.State
	if c.phase != model.PhaseFailed || st.FailedPhase != model.PhaseFilmGeneration {
		return invalidStatef("go back is only available after a film failure")
	}

	c.deps.poller.Stop(c.id)
	st.Cost.SettleFilm()
	st.Film = nil
	st.FailedPhase = ""
	st.Interrupted = false
	c.phase = model.PhaseVisualDirection
	return c.persistLocked()
}

// StartOver 取消所有进行中的调用并清空全部状态（含花费）
func (c *Controller) StartOver() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpenLocked(); err != nil {
		return err
	}

	orphans := c.hardResetLocked()
	st := &c.g.State
	st.Idea = ""
	st.Duration = ""
	st.Cost.Reset()
	c.g.Title = model.DefaultTitle
	c.phase = model.PhaseIdle

	c.discard(orphans...)
	return c.persistLocked()
}

// Close 离开时的清理：取消进行中的调用与轮询，之后不再修改状态
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	c.deps.poller.Stop(c.id)
	c.mu.Unlock()

	c.wg.Wait()
}

// drain 等待进行中的调用，超时由 ctx 控制
func (c *Controller) drain(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// hardResetLocked 取消进行中的调用并清空故事、视觉与成片，返回需删除的素材
func (c *Controller) hardResetLocked() []string {
	c.cancel()
	c.scope, c.cancel = context.WithCancel(context.Background())
	c.deps.poller.Stop(c.id)

	st := &c.g.State
	st.Epoch++
	st.Story = nil
	st.StoryGenerating = false
	st.RefiningBeat = 0
	st.SelectedBeat = 0
	st.StoryError = ""
	st.VisualDirection = nil
	if st.Film != nil {
		st.Cost.SettleFilm()
	}
	st.Film = nil
	st.FailedPhase = ""
	st.Interrupted = false

	orphans := st.Assets
	st.Assets = []string{}
	return orphans
}

// recoverLocked 清除上个进程遗留的进行中标记，返回是否有改动
func (c *Controller) recoverLocked() bool {
	st := &c.g.State
	changed := false

	if st.StoryGenerating {
		st.StoryGenerating = false
		st.StoryError = interruptedMessage
		if st.Story == nil {
			c.failLocked(model.PhaseStoryDrafting)
		}
		changed = true
	}
	if st.RefiningBeat != 0 {
		st.RefiningBeat = 0
		st.StoryError = interruptedMessage
		changed = true
	}
	if vd := st.VisualDirection; vd != nil {
		if vd.Protagonist.IsGenerating {
			vd.Protagonist.IsGenerating = false
			vd.Protagonist.Error = interruptedMessage
			changed = true
		}
		for i := range vd.Characters {
			changed = interruptSlot(&vd.Characters[i]) || changed
		}
		changed = interruptSlot(&vd.Setting) || changed
		if vd.KeyMoment != nil {
			changed = interruptSlot(&vd.KeyMoment.ImageSlot) || changed
		}
	}
	if film := st.Film; film != nil && film.Job.Starting && c.phase == model.PhaseFilmGeneration {
		film.Job.Starting = false
		film.Job.Status = model.FilmStatusFailed
		film.Job.ErrorMessage = interruptedMessage
		st.Interrupted = true
		c.failLocked(model.PhaseFilmGeneration)
		changed = true
	}
	return changed
}

func interruptSlot(slot *model.ImageSlot) bool {
	if !slot.IsGenerating {
		return false
	}
	slot.IsGenerating = false
	slot.Error = interruptedMessage
	return true
}

// pollingTarget 需要继续轮询的成片任务ID
func (c *Controller) pollingTarget() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	film := c.g.State.Film
	if c.closed || c.phase != model.PhaseFilmGeneration || film == nil || film.Job.ID == "" || film.Job.Starting || film.Job.Status.IsTerminal() {
		return ""
	}
	return film.Job.ID
}

// ---------------------------------------------------------------------------
// 内部工具
// ---------------------------------------------------------------------------

func (c *Controller) failLocked(phase model.Phase) {
	c.phase = model.PhaseFailed
	c.g.State.FailedPhase = phase
}

func (c *Controller) requireOpenLocked() error {
	if c.closed {
		return invalidStatef("generation is closed")
	}
	return nil
}

func (c *Controller) requireStoryIdleLocked() error {
	if err := c.requireOpenLocked(); err != nil {
		return err
	}
	if c.phase != model.PhaseStoryDrafting {
		return invalidStatef("story is not editable during %s", c.phase)
	}
	if c.g.State.StoryGenerating || c.g.State.RefiningBeat != 0 {
		return invalidStatef("story generation is in progress")
	}
	return nil
}

func (c *Controller) cascadeLocked() (cascade, error) {
	if err := c.requireOpenLocked(); err != nil {
		return cascade{}, err
	}
	vd := c.g.State.VisualDirection
	if c.phase != model.PhaseVisualDirection || vd == nil || c.g.State.Story == nil {
		return cascade{}, invalidStatef("visual direction is not active (phase %s)", c.phase)
	}
	return cascade{vd: vd, story: c.g.State.Story}, nil
}

func (c *Controller) ticketLocked() ticket {
	return ticket{scope: c.scope, epoch: c.g.State.Epoch}
}

// liveLocked 调用发起后没有被取消（关闭、重新开始、提交新创意）
func (c *Controller) liveLocked(t ticket) bool {
	return !c.closed && t.scope.Err() == nil
}

// currentLocked 调用结果仍可写入：未取消且没有发生级联失效
func (c *Controller) currentLocked(t ticket) bool {
	return c.liveLocked(t) && t.epoch == c.g.State.Epoch
}

func (c *Controller) spawn(fn func(ctx context.Context)) {
	scope := c.scope
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(scope)
	}()
}

// call 带超时执行一次远端调用并记录指标
func (c *Controller) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.deps.timeout)
	defer cancel()
	start := time.Now()
	err := fn(ctx)
	metrics.ObserveCall(op, start, err)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Controller) addCostLocked(phase model.CostPhase, amount float64) {
	if err := c.g.State.Cost.Add(phase, amount); err != nil {
		c.log.Warn().Err(err).Msg("ignored cost report")
		return
	}
	metrics.Spend(string(phase), amount)
}

func (c *Controller) trackLocked(key string) {
	if key != "" {
		c.g.State.Assets = append(c.g.State.Assets, key)
	}
}

// untrackLocked 从素材列表移除，返回实际移除的 key
func (c *Controller) untrackLocked(keys ...string) []string {
	var removed []string
	for _, key := range keys {
		if key == "" {
			continue
		}
		for i, k := range c.g.State.Assets {
			if k == key {
				c.g.State.Assets = append(c.g.State.Assets[:i], c.g.State.Assets[i+1:]...)
				removed = append(removed, key)
				break
			}
		}
	}
	return removed
}

func (c *Controller) discardImage(img *model.MoodboardImage) {
	if img != nil {
		c.discard(img.AssetKey)
	}
}

// discard 在后台删除素材
func (c *Controller) discard(keys ...string) {
	if len(keys) == 0 {
		return
	}
	keys = append([]string(nil), keys...)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		c.deps.assets.Delete(ctx, keys...)
	}()
}

// persistLocked 写回完整状态；状态变化时发布事件
func (c *Controller) persistLocked() error {
	g := c.g
	prev := g.Status
	status := StatusOf(c.phase, &g.State)
	g.Status = status
	g.Thumbnail = thumbnailOf(&g.State)
	g.CostTotal = g.State.Cost.Total()
	g.StoryID = ""
	if s := g.State.Story; s != nil {
		g.StoryID = s.ID
		if s.Title != "" {
			g.Title = s.Title
		}
	}
	g.FilmID = ""
	if f := g.State.Film; f != nil {
		g.FilmID = f.Job.ID
	}

	state := g.State.Clone()
	upd := &model.Update{
		Title:     &g.Title,
		Status:    &status,
		State:     &state,
		StoryID:   &g.StoryID,
		FilmID:    &g.FilmID,
		Thumbnail: &g.Thumbnail,
		CostTotal: &g.CostTotal,
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := c.deps.store.Update(ctx, g.ID, upd); err != nil {
		return fmt.Errorf("persist generation %s: %w", g.ID, err)
	}
	g.UpdatedAt = time.Now()

	if status != prev {
		metrics.StatusTransition(string(status))
		c.log.Info().Str("status", string(status)).Str("phase", string(c.phase)).Msg("status changed")
		event := events.Event{
			Type:         events.EventStatusChanged,
			GenerationID: g.ID,
			Status:       string(status),
			Phase:        string(c.phase),
			FilmID:       g.FilmID,
			CostTotal:    g.CostTotal,
			At:           g.UpdatedAt,
		}
		if err := c.deps.events.Publish(ctx, event); err != nil {
			c.log.Warn().Err(err).Msg("failed to publish status event")
		}
	}
	return nil
}

// persistAsyncLocked 异步结果落库，失败只能记录日志
func (c *Controller) persistAsyncLocked() {
	if err := c.persistLocked(); err != nil {
		c.log.Error().Err(err).Msg("failed to persist pipeline state")
	}
}
