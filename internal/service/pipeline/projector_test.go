package pipeline

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	model "reel/internal/model/generation"
)

func TestProjector(t *testing.T) {
	Convey("状态推导", t, func() {
		st := &model.PipelineState{}

		Convey("故事阶段", func() {
			So(StatusOf(model.PhaseIdle, st), ShouldEqual, model.StatusDrafting)
			So(StatusOf(model.PhaseStoryDrafting, st), ShouldEqual, model.StatusDrafting)
		})

		Convey("视觉设定按子阶段区分", func() {
			vd, _ := newVisualDirection(testStory())
			st.VisualDirection = vd
			So(StatusOf(model.PhaseVisualDirection, st), ShouldEqual, model.StatusVisuals)

			vd.Stage = model.VisualStageFull
			So(StatusOf(model.PhaseVisualDirection, st), ShouldEqual, model.StatusMoodboard)

			vd.KeyMoment = &model.KeyMomentSlot{ImageSlot: model.ImageSlot{IsGenerating: true}}
			So(StatusOf(model.PhaseVisualDirection, st), ShouldEqual, model.StatusKeyMoments)

			vd.KeyMoment.IsGenerating = false
			vd.KeyMoment.Image = testImage("km")
			So(StatusOf(model.PhaseVisualDirection, st), ShouldEqual, model.StatusPreflight)
		})

		Convey("成片与终态", func() {
			So(StatusOf(model.PhaseFilmGeneration, st), ShouldEqual, model.StatusFilming)
			So(StatusOf(model.PhaseComplete, st), ShouldEqual, model.StatusReady)
			So(StatusOf(model.PhaseFailed, st), ShouldEqual, model.StatusFailed)
			st.Interrupted = true
			So(StatusOf(model.PhaseFailed, st), ShouldEqual, model.StatusInterrupted)
		})

		Convey("恢复阶段", func() {
			So(PhaseOf(model.StatusDrafting, st), ShouldEqual, model.PhaseIdle)
			st.Idea = "a robot learns to dance"
			So(PhaseOf(model.StatusDrafting, st), ShouldEqual, model.PhaseStoryDrafting)
			for _, s := range []model.Status{model.StatusVisuals, model.StatusMoodboard, model.StatusKeyMoments, model.StatusPreflight} {
				So(PhaseOf(s, st), ShouldEqual, model.PhaseVisualDirection)
			}
			So(PhaseOf(model.StatusFilming, st), ShouldEqual, model.PhaseFilmGeneration)
			So(PhaseOf(model.StatusReady, st), ShouldEqual, model.PhaseComplete)
			So(PhaseOf(model.StatusInterrupted, st), ShouldEqual, model.PhaseFailed)
		})

		Convey("缩略图关键时刻优先", func() {
			So(thumbnailOf(st), ShouldBeEmpty)
			vd, _ := newVisualDirection(testStory())
			st.VisualDirection = vd
			vd.Protagonist.Image = testImage("p")
			So(thumbnailOf(st), ShouldEqual, "http://assets.test/g/p.png")
			vd.KeyMoment = &model.KeyMomentSlot{ImageSlot: model.ImageSlot{Image: testImage("km")}}
			So(thumbnailOf(st), ShouldEqual, "http://assets.test/g/km.png")
		})
	})

	Convey("草稿条目", t, func() {
		now := time.Now()
		steps := map[model.Status]Step{
			model.StatusDrafting:   StepScript,
			model.StatusVisuals:    StepVisuals,
			model.StatusMoodboard:  StepVisuals,
			model.StatusKeyMoments: StepVisuals,
			model.StatusPreflight:  StepVisuals,
			model.StatusFilming:    StepFilming,
			model.StatusReady:      StepReady,
		}
		for status, want := range steps {
			d := Project(&model.Summary{ID: "g1", Title: "Dance Machine", Status: status, UpdatedAt: now})
			So(d.Step, ShouldNotBeNil)
			So(*d.Step, ShouldEqual, want)
			So(d.StepLabel, ShouldEqual, want.String())
		}

		for _, status := range []model.Status{model.StatusFailed, model.StatusInterrupted} {
			d := Project(&model.Summary{ID: "g1", Status: status})
			So(d.Step, ShouldBeNil)
			So(d.StepLabel, ShouldBeEmpty)
		}

		So(StepFilming.String(), ShouldEqual, "Filming")
	})
}
