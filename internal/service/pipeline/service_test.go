package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"reel/internal/generator"
	model "reel/internal/model/generation"
	repo "reel/internal/repository/generation"
)

// filmingRecord 上个进程留下的成片中记录
func filmingRecord(genID, filmID string, starting bool) *model.Generation {
	story := testStory()
	vd, _ := newVisualDirection(story)
	vd.Stage = model.VisualStageFull
	vd.Protagonist.Locked = true
	vd.Protagonist.Image = testImage("p")

	job := model.NewFilmJob()
	job.ID = filmID
	job.Status = model.FilmStatusGenerating
	job.Starting = starting
	if starting {
		job.ID = ""
		job.Status = model.FilmStatusIdle
	}
	return &model.Generation{
		ID:     genID,
		Title:  story.Title,
		Style:  story.Style,
		Status: model.StatusFilming,
		State: model.PipelineState{
			Idea:            "a robot learns to dance",
			Story:           story,
			VisualDirection: vd,
			Film:            &model.FilmState{Job: job, Request: &model.FilmRequestRef{}},
			Assets:          []string{"g/p.png"},
		},
	}
}

func TestService(t *testing.T) {
	Convey("Service", t, func() {
		ctx := context.Background()
		gen := newFakeGenerator()
		svc, memory := newTestService(t, gen)
		Reset(func() { svc.Shutdown(ctx) })

		Convey("创建使用默认值", func() {
			snap, err := svc.Create(ctx, "  ", "")
			So(err, ShouldBeNil)
			So(snap.Generation.Title, ShouldEqual, model.DefaultTitle)
			So(snap.Generation.Style, ShouldEqual, model.StyleCinematic)
			So(snap.Generation.Status, ShouldEqual, model.StatusDrafting)
			So(snap.Phase, ShouldEqual, model.PhaseIdle)

			_, err = svc.Create(ctx, "x", model.Style("watercolor"))
			So(errors.Is(err, ErrValidation), ShouldBeTrue)
		})

		Convey("列表按更新时间倒序", func() {
			first, _ := svc.Create(ctx, "first", model.StyleCinematic)
			time.Sleep(2 * time.Millisecond)
			second, _ := svc.Create(ctx, "second", model.Style2DAnimated)

			drafts, err := svc.List(ctx, nil)
			So(err, ShouldBeNil)
			So(len(drafts), ShouldEqual, 2)
			So(drafts[0].ID, ShouldEqual, second.Generation.ID)
			So(drafts[1].ID, ShouldEqual, first.Generation.ID)
			So(*drafts[0].Step, ShouldEqual, StepScript)

			c, _ := svc.Get(ctx, first.Generation.ID)
			So(c.SubmitIdea("a robot learns to dance", "", ""), ShouldBeNil)
			c.Wait()
			So(c.ApproveStory(), ShouldBeNil)

			drafts, _ = svc.List(ctx, &model.ListFilter{Statuses: []model.Status{model.StatusVisuals}})
			So(len(drafts), ShouldEqual, 1)
			So(drafts[0].ID, ShouldEqual, first.Generation.ID)
			So(drafts[0].Title, ShouldEqual, "Dance Machine")
			So(drafts[0].StepLabel, ShouldEqual, "Visuals")
		})

		Convey("删除同时清理素材", func() {
			snap, _ := svc.Create(ctx, "", "")
			genID := snap.Generation.ID
			c, _ := svc.Get(ctx, genID)
			toMoodboard(c)
			assets := c.Snapshot().Generation.State.Assets
			So(len(assets), ShouldEqual, 4)

			So(svc.Delete(ctx, genID), ShouldBeNil)
			for _, key := range assets {
				exists, err := svc.deps.assets.store.Exists(ctx, key)
				So(err, ShouldBeNil)
				So(exists, ShouldBeFalse)
			}
			_, err := memory.Get(ctx, genID)
			So(errors.Is(err, repo.ErrNotFound), ShouldBeTrue)
			_, err = svc.Get(ctx, genID)
			So(err, ShouldEqual, ErrNotFound)
			So(svc.Delete(ctx, genID), ShouldEqual, ErrNotFound)
		})

		Convey("释放后从存储恢复", func() {
			snap, _ := svc.Create(ctx, "", "")
			genID := snap.Generation.ID
			c, _ := svc.Get(ctx, genID)
			toMoodboard(c)
			want := c.Snapshot()
			svc.Release(genID)

			restored, err := svc.Get(ctx, genID)
			So(err, ShouldBeNil)
			So(restored, ShouldNotEqual, c)
			got := restored.Snapshot()
			So(got.Phase, ShouldEqual, model.PhaseVisualDirection)
			So(got.Generation.Status, ShouldEqual, model.StatusMoodboard)
			So(got.Generation.State.VisualDirection, ShouldResemble, want.Generation.State.VisualDirection)
			So(got.Generation.State.Cost, ShouldResemble, want.Generation.State.Cost)
		})

		Convey("关闭完成前不会重新加载", func() {
			snap, _ := svc.Create(ctx, "", "")
			genID := snap.Generation.ID
			c, _ := svc.Get(ctx, genID)
			toMoodboard(c)

			hold := make(chan struct{})
			gen.setHold(hold)
			So(c.RetrySlot("kid"), ShouldBeNil)
			So(eventually(func() bool { return gen.inflightNow() == 1 }), ShouldBeTrue)

			released := make(chan struct{})
			go func() {
				svc.Release(genID)
				close(released)
			}()
			So(eventually(func() bool {
				c.mu.Lock()
				defer c.mu.Unlock()
				return c.closed
			}), ShouldBeTrue)

			during, err := svc.Get(ctx, genID)
			So(err, ShouldBeNil)
			So(during, ShouldEqual, c)

			gen.setHold(nil)
			close(hold)
			<-released
			after, err := svc.Get(ctx, genID)
			So(err, ShouldBeNil)
			So(after, ShouldNotEqual, c)
			So(visualDirection(after).Slot("kid").IsGenerating, ShouldBeFalse)
		})

		Convey("恢复时清除进行中的标记", func() {
			g := filmingRecord("g-restart", "", false)
			g.Status = model.StatusMoodboard
			g.State.Film = nil
			g.State.VisualDirection.Characters[0].IsGenerating = true
			g.State.VisualDirection.Setting.IsGenerating = true
			So(memory.Create(ctx, g), ShouldBeNil)

			c, err := svc.Get(ctx, "g-restart")
			So(err, ShouldBeNil)
			vd := visualDirection(c)
			So(vd.Characters[0].IsGenerating, ShouldBeFalse)
			So(vd.Characters[0].Error, ShouldEqual, interruptedMessage)
			So(vd.Setting.IsGenerating, ShouldBeFalse)

			stored, _ := memory.Get(ctx, "g-restart")
			So(stored.State.VisualDirection.Setting.IsGenerating, ShouldBeFalse)

			_, err = svc.deps.assets.store.Upload(ctx, "g/p.png", strings.NewReader("protagonist#0"), "image/png")
			So(err, ShouldBeNil)
			So(c.RetrySlot(model.SettingSlotKey), ShouldBeNil)
			c.Wait()
			So(visualDirection(c).Setting.Image, ShouldNotBeNil)
		})

		Convey("故事生成中断", func() {
			g := &model.Generation{
				ID:     "g-story",
				Title:  model.DefaultTitle,
				Style:  model.StyleCinematic,
				Status: model.StatusDrafting,
				State:  model.PipelineState{Idea: "a robot learns to dance", StoryGenerating: true},
			}
			So(memory.Create(ctx, g), ShouldBeNil)

			c, err := svc.Get(ctx, "g-story")
			So(err, ShouldBeNil)
			snap := c.Snapshot()
			So(snap.Phase, ShouldEqual, model.PhaseFailed)
			So(snap.Generation.Status, ShouldEqual, model.StatusFailed)
			So(snap.Actions, ShouldContain, ActionRetry)
		})

		Convey("提交中断的成片标记为中断", func() {
			So(memory.Create(ctx, filmingRecord("g-start", "", true)), ShouldBeNil)
			c, err := svc.Get(ctx, "g-start")
			So(err, ShouldBeNil)
			snap := c.Snapshot()
			So(snap.Generation.Status, ShouldEqual, model.StatusInterrupted)
			So(snap.Generation.State.Film.Job.Status, ShouldEqual, model.FilmStatusFailed)
			So(svc.deps.poller.Active("g-start"), ShouldBeFalse)
		})

		Convey("启动时恢复轮询", func() {
			gen.filmScript = []filmStep{
				{status: &generator.FilmStatus{Status: model.FilmStatusGenerating, CompletedShots: shots(2), Cost: model.FilmCost{TotalUSD: 0.2}}},
				{status: &generator.FilmStatus{Status: model.FilmStatusReady, CompletedShots: shots(8), FinalVideoURL: "https://cdn.test/final.mp4", Cost: model.FilmCost{TotalUSD: 0.9}}},
			}
			So(memory.Create(ctx, filmingRecord("g-film", "film-7", false)), ShouldBeNil)
			idle := filmingRecord("g-idle", "", false)
			idle.Status = model.StatusMoodboard
			idle.State.Film = nil
			So(memory.Create(ctx, idle), ShouldBeNil)

			n, err := svc.ResumeActive(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			c, _ := svc.Get(ctx, "g-film")
			So(eventually(func() bool { return c.Snapshot().Generation.Status == model.StatusReady }), ShouldBeTrue)
			snap := c.Snapshot()
			So(snap.Generation.State.Film.Job.FinalVideoURL, ShouldEqual, "https://cdn.test/final.mp4")
			So(snap.Cost.Film, ShouldAlmostEqual, 0.9)

			stored, _ := memory.Get(ctx, "g-film")
			So(stored.Status, ShouldEqual, model.StatusReady)
		})

		Convey("一次性对账", func() {
			gen.filmScript = []filmStep{
				{status: &generator.FilmStatus{Status: model.FilmStatusFailed, ErrorMessage: "shot 3 rejected", CompletedShots: shots(2)}},
			}
			So(memory.Create(ctx, filmingRecord("g-a", "film-a", false)), ShouldBeNil)

			results, err := svc.ReconcileFilms(ctx)
			So(err, ShouldBeNil)
			So(len(results), ShouldEqual, 1)
			So(results[0].FilmID, ShouldEqual, "film-a")
			So(results[0].Before, ShouldEqual, model.StatusFilming)
			So(results[0].After, ShouldEqual, model.StatusFailed)
			So(results[0].Err, ShouldBeNil)
			So(svc.deps.poller.Active("g-a"), ShouldBeFalse)

			stored, _ := memory.Get(ctx, "g-a")
			So(stored.State.Film.Job.ErrorMessage, ShouldEqual, "shot 3 rejected")
			So(len(stored.State.Film.Job.CompletedShots), ShouldEqual, 2)
		})

		Convey("对账时远端丢失任务", func() {
			gen.filmScript = []filmStep{{err: generator.ErrFilmNotFound}}
			So(memory.Create(ctx, filmingRecord("g-b", "film-b", false)), ShouldBeNil)

			results, err := svc.ReconcileFilms(ctx)
			So(err, ShouldBeNil)
			So(results[0].After, ShouldEqual, model.StatusInterrupted)
		})

		Convey("关闭停止所有轮询", func() {
			So(memory.Create(ctx, filmingRecord("g-c", "film-c", false)), ShouldBeNil)
			_, err := svc.Get(ctx, "g-c")
			So(err, ShouldBeNil)
			So(svc.deps.poller.Active("g-c"), ShouldBeTrue)

			svc.Shutdown(ctx)
			So(svc.deps.poller.Active("g-c"), ShouldBeFalse)
		})
	})
}
