package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"reel/internal/generator"
	model "reel/internal/model/generation"
	"reel/internal/pkg/storage/local"
	repo "reel/internal/repository/generation"
)

const imageCost = 0.04

// filmStep 一次 FilmStatus 调用的返回
type filmStep struct {
	status *generator.FilmStatus
	err    error
}

// fakeGenerator 可编排的生成服务
type fakeGenerator struct {
	mu sync.Mutex

	story    *model.Story
	storyErr error
	beatErr  error

	failSlots map[string]error
	gate      chan struct{} // 非 nil 时图片调用阻塞到关闭
	hold      chan struct{} // 同 gate，但不响应取消
	inflight  int
	seq       int

	calls         map[string]int
	characterReqs []*generator.CharacterRequest
	settingReqs   []*generator.SettingRequest
	keyMomentReqs []*generator.KeyMomentRequest
	filmReqs      []*generator.FilmRequest

	startErr    error
	filmSeq     int
	filmScript  []filmStep
	filmTicks   chan struct{} // 非 nil 时每次 FilmStatus 需要一个令牌
	statusCalls int

	regenErr  error
	regenReqs []*generator.RegenerateShotRequest
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		story:     testStory(),
		failSlots: make(map[string]error),
		calls:     make(map[string]int),
	}
}

func testStory() *model.Story {
	beats := make([]model.Beat, 8)
	for i := range beats {
		beats[i] = model.Beat{
			SceneNumber: i + 1,
			Description: fmt.Sprintf("beat %d", i+1),
			SceneChange: i%3 == 0,
		}
	}
	return &model.Story{
		ID:    "story-1",
		Title: "Dance Machine",
		Style: model.StyleCinematic,
		Characters: []model.Character{
			{ID: "rival", Name: "Vex", Appearance: "chrome plating", Role: model.RoleAntagonist},
			{ID: "robot", Name: "Unit 7", Appearance: "rusty frame", Role: model.RoleProtagonist},
			{ID: "kid", Name: "Mia", Appearance: "yellow raincoat", Role: model.RoleSupporting},
		},
		Setting: model.Setting{Location: "abandoned factory", Time: "night", Atmosphere: "neon haze"},
		Beats:   beats,
	}
}

func (f *fakeGenerator) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeGenerator) inflightNow() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inflight
}

func (f *fakeGenerator) setGate(gate chan struct{}) {
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()
}

func (f *fakeGenerator) setHold(hold chan struct{}) {
	f.mu.Lock()
	f.hold = hold
	f.mu.Unlock()
}

func (f *fakeGenerator) failSlot(key string, err error) {
	f.mu.Lock()
	if err == nil {
		delete(f.failSlots, key)
	} else {
		f.failSlots[key] = err
	}
	f.mu.Unlock()
}

func (f *fakeGenerator) statusCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

// image 记录调用、按需阻塞并返回带标签的图片
func (f *fakeGenerator) image(ctx context.Context, op, label string) (generator.Image, error) {
	f.mu.Lock()
	f.calls[op]++
	f.inflight++
	gate := f.gate
	hold := f.hold
	err := f.failSlots[label]
	f.seq++
	seq := f.seq
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if hold != nil {
		<-hold
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return generator.Image{}, ctx.Err()
		}
	}
	if err != nil {
		return generator.Image{}, err
	}
	return generator.Image{Data: []byte(fmt.Sprintf("%s#%d", label, seq)), MimeType: "image/png"}, nil
}

func (f *fakeGenerator) GenerateStory(ctx context.Context, req *generator.StoryRequest) (*generator.StoryResult, error) {
	f.mu.Lock()
	f.calls["generate_story"]++
	story, err := f.story.Clone(), f.storyErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &generator.StoryResult{Story: story, CostUSD: 0.01}, nil
}

func (f *fakeGenerator) RegenerateStory(ctx context.Context, req *generator.StoryRequest) (*generator.StoryResult, error) {
	f.mu.Lock()
	f.calls["regenerate_story"]++
	story, err := f.story.Clone(), f.storyErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	story.Title = "Dance Machine: " + req.Feedback
	return &generator.StoryResult{Story: story, CostUSD: 0.01}, nil
}

func (f *fakeGenerator) RefineBeat(ctx context.Context, req *generator.RefineBeatRequest) (*generator.BeatResult, error) {
	f.mu.Lock()
	f.calls["refine_beat"]++
	err := f.beatErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &generator.BeatResult{
		Beat:    model.Beat{SceneNumber: 99, Description: req.Feedback, SceneChange: true},
		CostUSD: 0.005,
	}, nil
}

func (f *fakeGenerator) GenerateProtagonist(ctx context.Context, req *generator.ProtagonistRequest) (*generator.ProtagonistResult, error) {
	img, err := f.image(ctx, "generate_protagonist", "protagonist")
	if err != nil {
		return nil, err
	}
	p, _ := req.Story.Protagonist()
	return &generator.ProtagonistResult{CharacterID: p.ID, Image: img, Prompt: "portrait of " + p.Name, CostUSD: imageCost}, nil
}

func (f *fakeGenerator) GenerateCharacter(ctx context.Context, req *generator.CharacterRequest) (*generator.ImageResult, error) {
	f.mu.Lock()
	f.characterReqs = append(f.characterReqs, req)
	f.mu.Unlock()
	img, err := f.image(ctx, "generate_character", req.CharacterID)
	if err != nil {
		return nil, err
	}
	return &generator.ImageResult{Image: img, Prompt: "character " + req.CharacterID, CostUSD: imageCost}, nil
}

func (f *fakeGenerator) RefineCharacter(ctx context.Context, req *generator.CharacterRequest) (*generator.ImageResult, error) {
	f.mu.Lock()
	f.characterReqs = append(f.characterReqs, req)
	f.mu.Unlock()
	img, err := f.image(ctx, "refine_character", req.CharacterID)
	if err != nil {
		return nil, err
	}
	return &generator.ImageResult{Image: img, Prompt: "character " + req.CharacterID + ", " + req.Feedback, CostUSD: imageCost}, nil
}

func (f *fakeGenerator) GenerateSetting(ctx context.Context, req *generator.SettingRequest) (*generator.ImageResult, error) {
	f.mu.Lock()
	f.settingReqs = append(f.settingReqs, req)
	f.mu.Unlock()
	img, err := f.image(ctx, "generate_setting", model.SettingSlotKey)
	if err != nil {
		return nil, err
	}
	return &generator.ImageResult{Image: img, Prompt: "setting", CostUSD: imageCost}, nil
}

func (f *fakeGenerator) GenerateKeyMoment(ctx context.Context, req *generator.KeyMomentRequest) (*generator.KeyMomentResult, error) {
	f.mu.Lock()
	f.keyMomentReqs = append(f.keyMomentReqs, req)
	f.mu.Unlock()
	img, err := f.image(ctx, "generate_key_moment", model.KeyMomentSlotKey)
	if err != nil {
		return nil, err
	}
	return &generator.KeyMomentResult{
		BeatNumber:      6,
		BeatDescription: "beat 6",
		Image:           img,
		Prompt:          "key moment " + req.Feedback,
		CostUSD:         imageCost,
	}, nil
}

func (f *fakeGenerator) StartFilm(ctx context.Context, req *generator.FilmRequest) (*generator.FilmStart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["start_film"]++
	f.filmReqs = append(f.filmReqs, req)
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.filmSeq++
	return &generator.FilmStart{FilmID: fmt.Sprintf("film-%d", f.filmSeq), TotalShots: len(req.Story.Beats)}, nil
}

func (f *fakeGenerator) FilmStatus(ctx context.Context, filmID string) (*generator.FilmStatus, error) {
	f.mu.Lock()
	ticks := f.filmTicks
	f.mu.Unlock()
	if ticks != nil {
		select {
		case <-ticks:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if len(f.filmScript) == 0 {
		return &generator.FilmStatus{FilmID: filmID, Status: model.FilmStatusGenerating}, nil
	}
	step := f.filmScript[0]
	if len(f.filmScript) > 1 {
		f.filmScript = f.filmScript[1:]
	}
	if step.err != nil {
		return nil, step.err
	}
	st := *step.status
	st.FilmID = filmID
	return &st, nil
}

func (f *fakeGenerator) RegenerateShot(ctx context.Context, req *generator.RegenerateShotRequest) error {
	f.mu.Lock()
	f.calls["regenerate_shot"]++
	f.regenReqs = append(f.regenReqs, req)
	gate := f.gate
	err := f.regenErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// plainGenerator 只暴露 generator.Generator 的方法，不支持重拍镜头
type plainGenerator struct {
	generator.Generator
}

// shots 生成 n 个已完成镜头
func shots(n int) []model.CompletedShot {
	out := make([]model.CompletedShot, n)
	for i := range out {
		out[i] = model.CompletedShot{Number: i + 1, PreviewURL: fmt.Sprintf("https://cdn.test/shot-%d.mp4", i+1)}
	}
	return out
}

func newTestService(t *testing.T, gen *fakeGenerator) (*Service, *repo.MemoryRepo) {
	t.Helper()
	store, err := local.NewLocalStorage(t.TempDir(), "http://assets.test")
	if err != nil {
		t.Fatal(err)
	}
	memory := repo.NewMemoryRepo()
	svc := NewService(Config{
		Generator:      gen,
		Store:          memory,
		Storage:        store,
		RequestTimeout: 2 * time.Second,
		PollInterval:   5 * time.Millisecond,
		PollTimeout:    5 * time.Second,
	})
	return svc, memory
}

// eventually 轮询直到条件成立或超时
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
