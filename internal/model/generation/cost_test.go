package generation

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCostLedger(t *testing.T) {
	Convey("CostLedger", t, func() {
		var l CostLedger

		Convey("累加阶段按阶段独立累计", func() {
			So(l.Add(CostPhaseStory, 0.01), ShouldBeNil)
			So(l.Add(CostPhaseCharacters, 0.04), ShouldBeNil)
			So(l.Add(CostPhaseCharacters, 0.04), ShouldBeNil)
			So(l.Add(CostPhaseSetting, 0.04), ShouldBeNil)
			So(l.Add(CostPhaseKeyMoments, 0.04), ShouldBeNil)

			So(l.Characters, ShouldAlmostEqual, 0.08)
			So(l.Total(), ShouldAlmostEqual, 0.17)
		})

		Convey("负数与成片累加被拒绝", func() {
			So(l.Add(CostPhaseStory, -1), ShouldNotBeNil)
			So(l.Add(CostPhaseFilm, 1), ShouldNotBeNil)
			So(l.Add(CostPhase("bogus"), 1), ShouldNotBeNil)
			So(l.Total(), ShouldEqual, 0)
		})

		Convey("成片花费被替换而不是累加", func() {
			l.ReplaceFilm(0.5)
			l.ReplaceFilm(1.2)
			So(l.Film(), ShouldAlmostEqual, 1.2)

			Convey("较小的汇报值不会让总额回退", func() {
				l.ReplaceFilm(0.3)
				So(l.Film(), ShouldAlmostEqual, 1.2)
			})

			Convey("重试前结转，新任务从 0 开始也不回退", func() {
				l.SettleFilm()
				l.ReplaceFilm(0.2)
				So(l.Film(), ShouldAlmostEqual, 1.4)
			})
		})

		Convey("任意成功操作序列下总额不下降", func() {
			prev := l.Total()
			steps := []func(){
				func() { _ = l.Add(CostPhaseStory, 0.002) },
				func() { l.ReplaceFilm(0.4) },
				func() { _ = l.Add(CostPhaseKeyMoments, 0.04) },
				func() { l.ReplaceFilm(0.1) },
				func() { l.SettleFilm() },
				func() { l.ReplaceFilm(0.05) },
			}
			for _, step := range steps {
				step()
				So(l.Total(), ShouldBeGreaterThanOrEqualTo, prev)
				prev = l.Total()
			}
		})

		Convey("Reset 清零", func() {
			_ = l.Add(CostPhaseStory, 1)
			l.ReplaceFilm(2)
			l.Reset()
			So(l.Total(), ShouldEqual, 0)
			So(l.Breakdown(), ShouldResemble, CostBreakdown{})
		})
	})
}
