package studio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	. "github.com/smartystreets/goconvey/convey"

	"reel/internal/generator"
	model "reel/internal/model/generation"
	"reel/internal/pkg/storage/local"
)

type fakeChat struct {
	reply string
	usage *schema.TokenUsage
	err   error
	seen  [][]*schema.Message
}

func (f *fakeChat) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.seen = append(f.seen, input)
	if f.err != nil {
		return nil, f.err
	}
	msg := schema.AssistantMessage(f.reply, nil)
	if f.usage != nil {
		msg.ResponseMeta = &schema.ResponseMeta{Usage: f.usage}
	}
	return msg, nil
}

func (f *fakeChat) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

type imageCall struct {
	prompt string
	refs   []generator.Image
}

type fakeImages struct {
	mu    sync.Mutex
	calls []imageCall
	err   error
}

func (f *fakeImages) Generate(ctx context.Context, prompt string, refs []generator.Image) (generator.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, imageCall{prompt: prompt, refs: refs})
	if f.err != nil {
		return generator.Image{}, f.err
	}
	return generator.Image{Data: []byte(fmt.Sprintf("img%d", len(f.calls))), MimeType: "image/png"}, nil
}

type fakeVideos struct {
	mu      sync.Mutex
	frames  []string
	prompts []string
	failOn  int // 第 n 次调用失败，0 表示不失败
	gate    chan struct{}
}

func (f *fakeVideos) ImageToVideo(ctx context.Context, firstFrame generator.Image, prompt string, seconds int) ([]byte, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, string(firstFrame.Data))
	f.prompts = append(f.prompts, prompt)
	n := len(f.frames)
	if n == f.failOn {
		return nil, errors.New("seedance quota exceeded")
	}
	return []byte(fmt.Sprintf("clip%d;", n)), nil
}

// fakeEditor 末帧为 "frame:" + 视频内容，拼接为顺序连接
type fakeEditor struct{}

func (fakeEditor) ExtractLastFrame(ctx context.Context, videoPath, outputPath string) error {
	data, err := os.ReadFile(videoPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, append([]byte("frame:"), data...), 0o644)
}

func (fakeEditor) ConcatVideos(ctx context.Context, videoPaths []string, outputPath string) error {
	var out []byte
	for _, p := range videoPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out = append(out, data...)
	}
	return os.WriteFile(outputPath, out, 0o644)
}

type harness struct {
	gen    *Generator
	chat   *fakeChat
	images *fakeImages
	videos *fakeVideos
	store  *local.LocalStorage
}

func newHarness(t *testing.T, opts Options) *harness {
	store, err := local.NewLocalStorage(t.TempDir(), "http://assets.test")
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{
		chat:   &fakeChat{},
		images: &fakeImages{},
		videos: &fakeVideos{},
		store:  store,
	}
	opts.WorkDir = t.TempDir()
	h.gen = New(h.chat, h.images, h.videos, fakeEditor{}, store, opts)
	t.Cleanup(func() { _ = h.gen.Close() })
	return h
}

func studioStory() *model.Story {
	return &model.Story{
		ID:    "s1",
		Title: "Night Shift",
		Characters: []model.Character{
			{ID: "hero", Name: "Ada", Appearance: "grey coat, red scarf", Role: model.RoleProtagonist},
			{ID: "guard", Name: "Bo", Appearance: "tall, flashlight", Role: model.RoleAntagonist},
		},
		Setting: model.Setting{Location: "Empty museum", Time: "Midnight", Atmosphere: "Hushed"},
		Beats: []model.Beat{
			{SceneNumber: 1, Description: "Ada slips through a side door.", StoryFunction: "hook"},
			{SceneNumber: 2, Description: "Bo's flashlight sweeps the hall.", StoryFunction: "climax", Dialogue: "Who's there?"},
			{SceneNumber: 3, Description: "Dawn over the rooftops.", StoryFunction: "resolution", SceneChange: true},
		},
		Style: model.Style2DAnimated,
	}
}

func studioVisuals() *generator.ApprovedVisuals {
	return &generator.ApprovedVisuals{
		CharacterImages: []generator.Image{
			{Data: []byte("hero"), MimeType: "image/png"},
			{Data: []byte("guard"), MimeType: "image/png"},
		},
		SettingImage:          generator.Image{Data: []byte("museum"), MimeType: "image/png"},
		CharacterDescriptions: []string{"Ada: grey coat, red scarf", "Bo: tall, flashlight"},
		SettingDescription:    "Empty museum. Midnight. Hushed",
	}
}

func waitFilm(g *Generator, filmID string, want model.FilmStatus) *generator.FilmStatus {
	deadline := time.Now().Add(5 * time.Second)
	for {
		st, err := g.FilmStatus(context.Background(), filmID)
		So(err, ShouldBeNil)
		if st.Status == want || time.Now().After(deadline) {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
}

const storyJSON = "```json\n" + `{
  "title": "Night Shift",
  "characters": [
    {"id": "hero", "name": "Ada", "appearance": "grey coat", "role": "Protagonist"},
    {"id": "", "name": "Bo", "appearance": "tall", "role": "villain"}
  ],
  "setting": {"location": "Museum", "time": "Midnight", "atmosphere": "Hushed"},
  "beats": [
    {"beat_number": 4, "description": "Ada slips in.", "story_function": "hook", "scene_change": false, "dialogue": null},
    {"beat_number": 9, "description": "A light sweeps.", "story_function": "climax", "scene_change": true, "dialogue": "Who's there?"}
  ]
}` + "\n```"

func TestStory(t *testing.T) {
	Convey("故事生成", t, func() {
		h := newHarness(t, Options{})
		ctx := context.Background()

		Convey("解析代码块、重新编号并估算花费", func() {
			h.chat.reply = storyJSON
			res, err := h.gen.GenerateStory(ctx, &generator.StoryRequest{
				Idea: "a heist", Style: model.StyleCinematic, Duration: model.DurationOne,
			})
			So(err, ShouldBeNil)

			story := res.Story
			So(story.ID, ShouldNotBeEmpty)
			So(story.Style, ShouldEqual, model.StyleCinematic)
			So(story.Duration, ShouldEqual, model.DurationOne)
			So(story.Characters[0].Role, ShouldEqual, model.RoleProtagonist)
			So(story.Characters[1].ID, ShouldEqual, "char_2")
			So(story.Characters[1].Role, ShouldEqual, model.RoleSupporting)
			So(story.Beats[0].SceneNumber, ShouldEqual, 1)
			So(story.Beats[1].SceneNumber, ShouldEqual, 2)
			So(story.Beats[1].Dialogue, ShouldEqual, "Who's there?")
			So(res.CostUSD, ShouldAlmostEqual, 0.0052, 1e-9)

			prompt := h.chat.seen[0][1].Content
			So(prompt, ShouldContainSubstring, `IDEA: "a heist"`)
			So(prompt, ShouldContainSubstring, "7-8 shots")
		})

		Convey("有用量信息时按实际 token 计费", func() {
			h.chat.reply = storyJSON
			h.chat.usage = &schema.TokenUsage{PromptTokens: 1000, CompletionTokens: 1000}
			res, err := h.gen.GenerateStory(ctx, &generator.StoryRequest{Idea: "a heist", Duration: model.DurationOne})
			So(err, ShouldBeNil)
			So(res.CostUSD, ShouldAlmostEqual, 0.0048, 1e-9)
		})

		Convey("重新生成带上反馈", func() {
			h.chat.reply = storyJSON
			_, err := h.gen.RegenerateStory(ctx, &generator.StoryRequest{
				Idea: "a heist", Duration: model.DurationTwo, Feedback: "make it funnier",
			})
			So(err, ShouldBeNil)
			prompt := h.chat.seen[0][1].Content
			So(prompt, ShouldContainSubstring, "USER FEEDBACK")
			So(prompt, ShouldContainSubstring, "make it funnier")
			So(prompt, ShouldContainSubstring, "15-15 shots")
		})

		Convey("两个主角被拒绝", func() {
			h.chat.reply = `{"title":"x","characters":[{"id":"a","role":"protagonist"},{"id":"b","role":"protagonist"}],"beats":[{"description":"d"}]}`
			_, err := h.gen.GenerateStory(ctx, &generator.StoryRequest{Idea: "x"})
			So(errors.Is(err, model.ErrMultipleProtagonist), ShouldBeTrue)
		})

		Convey("非 JSON 输出", func() {
			h.chat.reply = "Sure! Here is your story."
			_, err := h.gen.GenerateStory(ctx, &generator.StoryRequest{Idea: "x"})
			So(err, ShouldNotBeNil)
		})

		Convey("模型错误透传", func() {
			h.chat.err = errors.New("rate limited")
			_, err := h.gen.GenerateStory(ctx, &generator.StoryRequest{Idea: "x"})
			So(err.Error(), ShouldContainSubstring, "rate limited")
		})

		Convey("改写节拍保持编号", func() {
			h.chat.reply = `{"beat_number": 7, "description": "Ada freezes mid-step.", "story_function": "", "scene_change": false, "dialogue": "Not now."}`
			res, err := h.gen.RefineBeat(ctx, &generator.RefineBeatRequest{
				Story: studioStory(), BeatNumber: 2, Feedback: "more tension",
			})
			So(err, ShouldBeNil)
			So(res.Beat.SceneNumber, ShouldEqual, 2)
			So(res.Beat.StoryFunction, ShouldEqual, "climax")
			So(res.Beat.Dialogue, ShouldEqual, "Not now.")
			So(h.chat.seen[0][1].Content, ShouldContainSubstring, "USER FEEDBACK: more tension")
		})

		Convey("改写不存在的节拍", func() {
			_, err := h.gen.RefineBeat(ctx, &generator.RefineBeatRequest{Story: studioStory(), BeatNumber: 9})
			So(err, ShouldNotBeNil)
			So(h.chat.seen, ShouldBeEmpty)
		})
	})
}

func TestImages(t *testing.T) {
	Convey("图片生成", t, func() {
		h := newHarness(t, Options{})
		ctx := context.Background()
		story := studioStory()

		Convey("主角不带参考图", func() {
			res, err := h.gen.GenerateProtagonist(ctx, &generator.ProtagonistRequest{Story: story, Feedback: "older"})
			So(err, ShouldBeNil)
			So(res.CharacterID, ShouldEqual, "hero")
			So(res.CostUSD, ShouldEqual, imageCostUSD)
			So(res.Prompt, ShouldStartWith, stylePrefixes[model.Style2DAnimated])
			So(res.Prompt, ShouldContainSubstring, "Portrait of grey coat, red scarf.")
			So(res.Prompt, ShouldEndWith, "Additional direction: older")
			So(h.images.calls[0].refs, ShouldBeEmpty)
		})

		Convey("配角以主角为参考", func() {
			ref := &generator.Image{Data: []byte("hero"), MimeType: "image/png"}
			_, err := h.gen.GenerateCharacter(ctx, &generator.CharacterRequest{Story: story, CharacterID: "guard", Reference: ref})
			So(err, ShouldBeNil)
			So(h.images.calls[0].refs, ShouldHaveLength, 1)
			So(h.images.calls[0].prompt, ShouldContainSubstring, "tall, flashlight")

			_, err = h.gen.RefineCharacter(ctx, &generator.CharacterRequest{Story: story, CharacterID: "nobody"})
			So(err, ShouldNotBeNil)
		})

		Convey("场景", func() {
			res, err := h.gen.GenerateSetting(ctx, &generator.SettingRequest{Story: story})
			So(err, ShouldBeNil)
			So(res.Prompt, ShouldContainSubstring, "No characters in frame.")
		})

		Convey("关键时刻选择 climax 节拍", func() {
			res, err := h.gen.GenerateKeyMoment(ctx, &generator.KeyMomentRequest{Story: story, Visuals: studioVisuals()})
			So(err, ShouldBeNil)
			So(res.BeatNumber, ShouldEqual, 2)
			So(res.BeatDescription, ShouldEqual, "Bo's flashlight sweeps the hall.")
			So(res.Prompt, ShouldContainSubstring, "- Bo: tall, flashlight")

			refs := h.images.calls[0].refs
			So(refs, ShouldHaveLength, 3)
			So(string(refs[2].Data), ShouldEqual, "museum")
		})

		Convey("没有 climax 时取倒数第二个节拍", func() {
			story.Beats[1].StoryFunction = "rising_action"
			beat, ok := keyMomentBeat(story)
			So(ok, ShouldBeTrue)
			So(beat.SceneNumber, ShouldEqual, 2)

			story.Beats = story.Beats[:1]
			beat, _ = keyMomentBeat(story)
			So(beat.SceneNumber, ShouldEqual, 1)
		})

		Convey("图片服务失败", func() {
			h.images.err = errors.New("safety filter")
			_, err := h.gen.GenerateSetting(ctx, &generator.SettingRequest{Story: story})
			So(err.Error(), ShouldContainSubstring, "safety filter")
		})
	})
}

func TestFilm(t *testing.T) {
	Convey("成片任务", t, func() {
		h := newHarness(t, Options{ShotSeconds: 5})
		ctx := context.Background()
		req := &generator.FilmRequest{
			Story:          studioStory(),
			Visuals:        studioVisuals(),
			KeyMomentImage: generator.Image{Data: []byte("moment"), MimeType: "image/png"},
		}

		Convey("逐镜头生成：换场生成关键帧，否则沿用上一镜头末帧", func() {
			start, err := h.gen.StartFilm(ctx, req)
			So(err, ShouldBeNil)
			So(start.TotalShots, ShouldEqual, 3)
			So(start.FilmID, ShouldHaveLength, 12)

			st := waitFilm(h.gen, start.FilmID, model.FilmStatusReady)
			So(st.Status, ShouldEqual, model.FilmStatusReady)
			So(st.Phase, ShouldEqual, model.FilmPhaseAssembling)
			So(st.CurrentShot, ShouldEqual, 3)
			So(st.CompletedShots, ShouldHaveLength, 3)
			So(st.CompletedShots[1].PreviewURL, ShouldEqual,
				fmt.Sprintf("http://assets.test/films/%s/shot_02.mp4", start.FilmID))
			So(st.FinalVideoURL, ShouldEqual, fmt.Sprintf("http://assets.test/films/%s/final.mp4", start.FilmID))

			So(h.videos.frames, ShouldResemble, []string{"img1", "frame:clip1;", "img2"})
			So(h.videos.prompts[1], ShouldContainSubstring, `DIALOGUE: "Who's there?"`)
			So(h.videos.prompts[1], ShouldContainSubstring, "5-second video shot")

			refs := h.images.calls[0].refs
			So(refs, ShouldHaveLength, maxFilmReferences)
			So(string(refs[0].Data), ShouldEqual, "moment")
			So(string(refs[1].Data), ShouldEqual, "hero")

			So(st.Cost.KeyframesUSD, ShouldAlmostEqual, 0.08, 1e-9)
			So(st.Cost.VideosUSD, ShouldAlmostEqual, 0.33, 1e-9)
			So(st.Cost.TotalUSD, ShouldAlmostEqual, 0.41, 1e-9)

			final, err := os.ReadFile(filepath.Join(h.store.BasePath(), "films", start.FilmID, "final.mp4"))
			So(err, ShouldBeNil)
			So(string(final), ShouldEqual, "clip1;clip2;clip3;")

			Convey("重拍镜头后重新拼接", func() {
				So(h.gen.RegenerateShot(ctx, &generator.RegenerateShotRequest{FilmID: start.FilmID, ShotNumber: 2, Feedback: "slower pan"}), ShouldBeNil)
				st := waitFilm(h.gen, start.FilmID, model.FilmStatusReady)
				So(st.Status, ShouldEqual, model.FilmStatusReady)
				So(st.ErrorMessage, ShouldBeEmpty)
				So(h.videos.prompts[3], ShouldEndWith, "ADJUSTMENT: slower pan")
				So(h.images.calls[2].prompt, ShouldEndWith, "ADJUSTMENT: slower pan")
				So(st.Cost.KeyframesUSD, ShouldAlmostEqual, 0.12, 1e-9)

				final, err := os.ReadFile(filepath.Join(h.store.BasePath(), "films", start.FilmID, "final.mp4"))
				So(err, ShouldBeNil)
				So(string(final), ShouldEqual, "clip1;clip4;clip3;")
			})

			Convey("重拍不存在的镜头", func() {
				So(h.gen.RegenerateShot(ctx, &generator.RegenerateShotRequest{FilmID: start.FilmID, ShotNumber: 8}), ShouldNotBeNil)
			})
		})

		Convey("镜头数上限", func() {
			h.gen.opts.MaxShots = 2
			start, err := h.gen.StartFilm(ctx, req)
			So(err, ShouldBeNil)
			So(start.TotalShots, ShouldEqual, 2)
			st := waitFilm(h.gen, start.FilmID, model.FilmStatusReady)
			So(st.CompletedShots, ShouldHaveLength, 2)
		})

		Convey("镜头失败时任务失败并保留已完成镜头", func() {
			h.videos.failOn = 2
			start, err := h.gen.StartFilm(ctx, req)
			So(err, ShouldBeNil)

			st := waitFilm(h.gen, start.FilmID, model.FilmStatusFailed)
			So(st.Status, ShouldEqual, model.FilmStatusFailed)
			So(st.ErrorMessage, ShouldContainSubstring, "seedance quota exceeded")
			So(st.CompletedShots, ShouldHaveLength, 1)
			So(st.FinalVideoURL, ShouldBeEmpty)

			Convey("未拍完的任务重拍后仍是失败", func() {
				So(h.gen.RegenerateShot(ctx, &generator.RegenerateShotRequest{FilmID: start.FilmID, ShotNumber: 2}), ShouldBeNil)
				deadline := time.Now().Add(5 * time.Second)
				for {
					st, _ = h.gen.FilmStatus(ctx, start.FilmID)
					if len(st.CompletedShots) == 2 && st.Status == model.FilmStatusFailed || time.Now().After(deadline) {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(st.Status, ShouldEqual, model.FilmStatusFailed)
				So(st.CompletedShots, ShouldHaveLength, 2)
				So(st.FinalVideoURL, ShouldBeEmpty)
			})
		})

		Convey("运行中不允许重拍", func() {
			h.videos.gate = make(chan struct{})
			start, err := h.gen.StartFilm(ctx, req)
			So(err, ShouldBeNil)
			So(errors.Is(h.gen.RegenerateShot(ctx, &generator.RegenerateShotRequest{FilmID: start.FilmID, ShotNumber: 1}), ErrFilmBusy), ShouldBeTrue)
			close(h.videos.gate)
			waitFilm(h.gen, start.FilmID, model.FilmStatusReady)
		})

		Convey("已结束任务超过保留时长后被清理", func() {
			h.gen.opts.JobTTL = time.Hour
			start, err := h.gen.StartFilm(ctx, req)
			So(err, ShouldBeNil)
			waitFilm(h.gen, start.FilmID, model.FilmStatusReady)

			clock := time.Now()
			h.gen.mu.Lock()
			h.gen.now = func() time.Time { return clock }
			h.gen.mu.Unlock()

			clock = clock.Add(59 * time.Minute)
			_, err = h.gen.FilmStatus(ctx, start.FilmID)
			So(err, ShouldBeNil)

			clock = clock.Add(2 * time.Minute)
			_, err = h.gen.FilmStatus(ctx, start.FilmID)
			So(errors.Is(err, generator.ErrFilmNotFound), ShouldBeTrue)
			err = h.gen.RegenerateShot(ctx, &generator.RegenerateShotRequest{FilmID: start.FilmID, ShotNumber: 1})
			So(errors.Is(err, generator.ErrFilmNotFound), ShouldBeTrue)

			h.gen.mu.Lock()
			So(h.gen.jobs, ShouldBeEmpty)
			h.gen.mu.Unlock()
		})

		Convey("运行中的任务不会被清理", func() {
			h.gen.opts.JobTTL = time.Nanosecond
			h.videos.gate = make(chan struct{})
			start, err := h.gen.StartFilm(ctx, req)
			So(err, ShouldBeNil)
			time.Sleep(time.Millisecond)
			_, err = h.gen.FilmStatus(ctx, start.FilmID)
			So(err, ShouldBeNil)
			close(h.videos.gate)
		})

		Convey("未知任务", func() {
			_, err := h.gen.FilmStatus(ctx, "nope")
			So(errors.Is(err, generator.ErrFilmNotFound), ShouldBeTrue)
		})

		Convey("缺少关键时刻", func() {
			req.KeyMomentImage = generator.Image{}
			_, err := h.gen.StartFilm(ctx, req)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestStripFences(t *testing.T) {
	Convey("stripFences", t, func() {
		So(stripFences("```json\n{}\n```"), ShouldEqual, "{}")
		So(stripFences("  {} "), ShouldEqual, "{}")
		So(strings.TrimSpace(stripFences("```\n[1]\n```")), ShouldEqual, "[1]")
	})
}
