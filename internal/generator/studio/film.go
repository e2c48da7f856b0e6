package studio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"reel/internal/generator"
	model "reel/internal/model/generation"
	"reel/internal/pkg/id"
)

// ErrFilmBusy 成片任务仍在运行
var ErrFilmBusy = errors.New("film job is still running")

type shotClip struct {
	number int
	key    string
	url    string
}

// filmJob 进程内成片任务，字段由 Generator.mu 保护
type filmJob struct {
	id          string
	status      model.FilmStatus
	phase       model.FilmPhase
	currentShot int
	shots       []shotClip
	finalURL    string
	errMsg      string
	finishedAt  time.Time // 最近一次进入终态的时间，运行中为零值

	keyframesUSD float64
	videosUSD    float64

	story     *model.Story
	visuals   *generator.ApprovedVisuals
	keyMoment generator.Image
	beats     []model.Beat
}

// StartFilm 受理成片任务，逐镜头生成在后台进行
func (g *Generator) StartFilm(ctx context.Context, req *generator.FilmRequest) (*generator.FilmStart, error) {
	if req.Story == nil || req.Visuals == nil {
		return nil, fmt.Errorf("story and approved visuals are required")
	}
	if len(req.Story.Beats) == 0 {
		return nil, model.ErrNoBeats
	}
	if len(req.KeyMomentImage.Data) == 0 {
		return nil, fmt.Errorf("key moment image is required")
	}

	beats := req.Story.Beats
	if g.opts.MaxShots > 0 && len(beats) > g.opts.MaxShots {
		beats = beats[:g.opts.MaxShots]
	}

	job := &filmJob{
		id:        id.Short(),
		status:    model.FilmStatusGenerating,
		phase:     model.FilmPhaseKeyframe,
		story:     req.Story.Clone(),
		visuals:   req.Visuals,
		keyMoment: req.KeyMomentImage,
		beats:     append([]model.Beat(nil), beats...),
	}

	g.mu.Lock()
	g.evictLocked()
	g.jobs[job.id] = job
	g.mu.Unlock()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.runFilm(job)
	}()

	g.log.Info().Str("film_id", job.id).Int("total_shots", len(job.beats)).Msg("film job started")
	return &generator.FilmStart{FilmID: job.id, TotalShots: len(job.beats)}, nil
}

// FilmStatus 返回任务快照
func (g *Generator) FilmStatus(ctx context.Context, filmID string) (*generator.FilmStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.evictLocked()
	job, ok := g.jobs[filmID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generator.ErrFilmNotFound, filmID)
	}

	shots := make([]model.CompletedShot, 0, len(job.shots))
	for _, s := range job.shots {
		shots = append(shots, model.CompletedShot{Number: s.number, PreviewURL: s.url})
	}
	return &generator.FilmStatus{
		FilmID:         job.id,
		Status:         job.status,
		CurrentShot:    job.currentShot,
		TotalShots:     len(job.beats),
		Phase:          job.phase,
		CompletedShots: shots,
		FinalVideoURL:  job.finalURL,
		ErrorMessage:   job.errMsg,
		Cost: model.FilmCost{
			KeyframesUSD: round4(job.keyframesUSD),
			VideosUSD:    round4(job.videosUSD),
			TotalUSD:     round4(job.keyframesUSD + job.videosUSD),
		},
	}, nil
}

// RegenerateShot 重拍单个镜头并重新拼接，仅在任务结束（成功或失败）后允许
func (g *Generator) RegenerateShot(ctx context.Context, req *generator.RegenerateShotRequest) error {
	g.mu.Lock()
	g.evictLocked()
	job, ok := g.jobs[req.FilmID]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s", generator.ErrFilmNotFound, req.FilmID)
	}
	if !job.status.IsTerminal() {
		g.mu.Unlock()
		return ErrFilmBusy
	}
	var beat model.Beat
	found := false
	for _, b := range job.beats {
		if b.SceneNumber == req.ShotNumber {
			beat, found = b, true
			break
		}
	}
	if !found {
		g.mu.Unlock()
		return fmt.Errorf("beat %d not found", req.ShotNumber)
	}
	previous := job.status
	job.status = model.FilmStatusGenerating
	job.phase = model.FilmPhaseKeyframe
	job.currentShot = req.ShotNumber
	job.errMsg = ""
	job.finishedAt = time.Time{}
	g.mu.Unlock()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.runRegenerate(job, beat, req.Feedback, previous)
	}()
	return nil
}

// evictLocked 清理超过 JobTTL 的已结束任务
func (g *Generator) evictLocked() {
	if g.opts.JobTTL <= 0 {
		return
	}
	cutoff := g.now().Add(-g.opts.JobTTL)
	for jobID, job := range g.jobs {
		if job.status.IsTerminal() && !job.finishedAt.IsZero() && job.finishedAt.Before(cutoff) {
			delete(g.jobs, jobID)
		}
	}
}

func (g *Generator) update(job *filmJob, fn func(j *filmJob)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(job)
}

func (g *Generator) runFilm(job *filmJob) {
	logger := g.log.With().Str("film_id", job.id).Logger()

	err := g.withWorkDir(job.id, func(dir string) error {
		refs := filmReferences(job.keyMoment, job.visuals)
		var lastFrame *generator.Image
		paths := make([]string, 0, len(job.beats))

		for i, beat := range job.beats {
			g.update(job, func(j *filmJob) { j.currentShot = i + 1 })

			first := lastFrame
			if beat.SceneChange || first == nil {
				frame, err := g.keyframe(job, beat, refs, "")
				if err != nil {
					return err
				}
				first = &frame
			}

			path, err := g.shoot(job, beat, *first, dir, "")
			if err != nil {
				return err
			}
			paths = append(paths, path)

			frame, err := g.lastFrame(path)
			if err != nil {
				return err
			}
			lastFrame = &frame
			logger.Info().Int("shot", beat.SceneNumber).Int("total_shots", len(job.beats)).Msg("shot complete")
		}

		return g.assemble(job, dir, paths)
	})

	g.update(job, func(j *filmJob) {
		j.finishedAt = g.now()
		if err != nil {
			j.status = model.FilmStatusFailed
			j.errMsg = err.Error()
			return
		}
		j.status = model.FilmStatusReady
	})
	if err != nil {
		logger.Error().Err(err).Msg("film generation failed")
		return
	}
	logger.Info().Msg("film generation complete")
}

func (g *Generator) runRegenerate(job *filmJob, beat model.Beat, feedback string, previous model.FilmStatus) {
	logger := g.log.With().Str("film_id", job.id).Int("shot", beat.SceneNumber).Logger()

	complete := true
	err := g.withWorkDir(job.id, func(dir string) error {
		frame, err := g.keyframe(job, beat, filmReferences(job.keyMoment, job.visuals), feedback)
		if err != nil {
			return err
		}
		if _, err := g.shoot(job, beat, frame, dir, feedback); err != nil {
			return err
		}

		g.mu.Lock()
		shots := append([]shotClip(nil), job.shots...)
		g.mu.Unlock()
		if len(shots) < len(job.beats) {
			complete = false
			return nil
		}

		// 其余镜头从存储取回后重新拼接
		paths := make([]string, 0, len(shots))
		for _, s := range shots {
			path := filepath.Join(dir, fmt.Sprintf("shot_%02d.mp4", s.number))
			if s.number != beat.SceneNumber {
				if err := g.fetch(s.key, path); err != nil {
					return err
				}
			}
			paths = append(paths, path)
		}
		return g.assemble(job, dir, paths)
	})

	g.update(job, func(j *filmJob) {
		j.finishedAt = g.now()
		if err != nil {
			j.status = previous
			j.errMsg = fmt.Sprintf("shot %d regeneration failed: %v", beat.SceneNumber, err)
			return
		}
		if !complete {
			// 未拍完的任务只替换镜头，不拼接成片
			j.status = previous
			return
		}
		j.status = model.FilmStatusReady
	})
	if err != nil {
		logger.Error().Err(err).Msg("shot regeneration failed")
		return
	}
	logger.Info().Msg("shot regenerated")
}

func (g *Generator) withWorkDir(filmID string, fn func(dir string) error) error {
	if err := os.MkdirAll(g.opts.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	dir, err := os.MkdirTemp(g.opts.WorkDir, "film-"+filmID+"-")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)
	return fn(dir)
}

func (g *Generator) keyframe(job *filmJob, beat model.Beat, refs []generator.Image, feedback string) (generator.Image, error) {
	g.update(job, func(j *filmJob) { j.phase = model.FilmPhaseKeyframe })

	prompt := buildKeyframePrompt(job.story, beat, job.visuals, feedback)
	img, err := g.images.Generate(g.ctx, prompt, refs)
	if err != nil {
		return generator.Image{}, fmt.Errorf("keyframe for shot %d: %w", beat.SceneNumber, err)
	}
	g.update(job, func(j *filmJob) { j.keyframesUSD += imageCostUSD })
	return img, nil
}

// shoot 生成镜头并上传，返回本地文件路径
func (g *Generator) shoot(job *filmJob, beat model.Beat, first generator.Image, dir, feedback string) (string, error) {
	g.update(job, func(j *filmJob) { j.phase = model.FilmPhaseFilming })

	seconds := g.opts.ShotSeconds
	data, err := g.videos.ImageToVideo(g.ctx, first, buildShotPrompt(job.story, beat, seconds, feedback), seconds)
	if err != nil {
		return "", fmt.Errorf("shot %d: %w", beat.SceneNumber, err)
	}
	g.update(job, func(j *filmJob) { j.videosUSD += float64(seconds) * videoCostPerSecondUSD })

	path := filepath.Join(dir, fmt.Sprintf("shot_%02d.mp4", beat.SceneNumber))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write shot %d: %w", beat.SceneNumber, err)
	}

	key := fmt.Sprintf("films/%s/shot_%02d.mp4", job.id, beat.SceneNumber)
	url, err := g.store.Upload(g.ctx, key, bytes.NewReader(data), "video/mp4")
	if err != nil {
		return "", fmt.Errorf("upload shot %d: %w", beat.SceneNumber, err)
	}

	g.update(job, func(j *filmJob) {
		for i := range j.shots {
			if j.shots[i].number == beat.SceneNumber {
				j.shots[i] = shotClip{number: beat.SceneNumber, key: key, url: url}
				return
			}
		}
		j.shots = append(j.shots, shotClip{number: beat.SceneNumber, key: key, url: url})
		sort.Slice(j.shots, func(a, b int) bool { return j.shots[a].number < j.shots[b].number })
	})
	return path, nil
}

func (g *Generator) lastFrame(videoPath string) (generator.Image, error) {
	framePath := videoPath + ".last.png"
	if err := g.editor.ExtractLastFrame(g.ctx, videoPath, framePath); err != nil {
		return generator.Image{}, fmt.Errorf("extract last frame: %w", err)
	}
	data, err := os.ReadFile(framePath)
	if err != nil {
		return generator.Image{}, fmt.Errorf("read last frame: %w", err)
	}
	return generator.Image{Data: data, MimeType: "image/png"}, nil
}

func (g *Generator) assemble(job *filmJob, dir string, paths []string) error {
	g.update(job, func(j *filmJob) {
		j.phase = model.FilmPhaseAssembling
		j.status = model.FilmStatusAssembling
	})

	out := filepath.Join(dir, "final.mp4")
	if err := g.editor.ConcatVideos(g.ctx, paths, out); err != nil {
		return fmt.Errorf("assemble film: %w", err)
	}
	f, err := os.Open(out)
	if err != nil {
		return fmt.Errorf("open final video: %w", err)
	}
	defer f.Close()

	url, err := g.store.Upload(g.ctx, fmt.Sprintf("films/%s/final.mp4", job.id), f, "video/mp4")
	if err != nil {
		return fmt.Errorf("upload final video: %w", err)
	}
	g.update(job, func(j *filmJob) { j.finalURL = url })
	return nil
}

func (g *Generator) fetch(key, path string) error {
	rc, err := g.store.Download(g.ctx, key)
	if err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	defer rc.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, rc); err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	return nil
}

// filmReferences 参考图优先级：关键时刻、主角、场景
func filmReferences(keyMoment generator.Image, visuals *generator.ApprovedVisuals) []generator.Image {
	refs := []generator.Image{keyMoment}
	if len(visuals.CharacterImages) > 0 {
		refs = append(refs, visuals.CharacterImages[0])
	}
	if len(refs) < maxFilmReferences && len(visuals.SettingImage.Data) > 0 {
		refs = append(refs, visuals.SettingImage)
	}
	return refs
}
