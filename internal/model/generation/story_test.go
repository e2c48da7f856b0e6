package generation

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func sampleStory() *Story {
	return &Story{
		ID:    "s1",
		Title: "Dance Protocol",
		Characters: []Character{
			{ID: "c2", Name: "Mira", Appearance: "tall engineer", Role: RoleSupporting},
			{ID: "c1", Name: "Unit-7", Appearance: "rusty robot", Role: RoleProtagonist},
			{ID: "c3", Name: "Boss", Appearance: "grey suit", Role: RoleAntagonist},
		},
		Setting: Setting{Location: "factory floor", Time: "night", Atmosphere: "hopeful"},
		Beats: []Beat{
			{SceneNumber: 1, Description: "robot idles"},
			{SceneNumber: 2, Description: "music plays", SceneChange: true},
		},
		Style: StyleCinematic,
	}
}

func TestStoryValidate(t *testing.T) {
	Convey("Story.Validate", t, func() {
		s := sampleStory()

		Convey("合法故事通过", func() {
			So(s.Validate(), ShouldBeNil)
		})

		Convey("没有主角", func() {
			s.Characters[1].Role = RoleSupporting
			So(s.Validate(), ShouldEqual, ErrNoProtagonist)
		})

		Convey("多个主角", func() {
			s.Characters[0].Role = RoleProtagonist
			So(s.Validate(), ShouldEqual, ErrMultipleProtagonist)
		})

		Convey("节拍编号不连续", func() {
			s.Beats[1].SceneNumber = 3
			So(s.Validate(), ShouldNotBeNil)
		})

		Convey("没有节拍", func() {
			s.Beats = nil
			So(s.Validate(), ShouldEqual, ErrNoBeats)
		})
	})
}

func TestStoryLookups(t *testing.T) {
	Convey("Story 查询", t, func() {
		s := sampleStory()

		p, ok := s.Protagonist()
		So(ok, ShouldBeTrue)
		So(p.ID, ShouldEqual, "c1")

		cast := s.SupportingCast()
		So(len(cast), ShouldEqual, 2)
		So(cast[0].ID, ShouldEqual, "c2")
		So(cast[1].ID, ShouldEqual, "c3")

		_, ok = s.Beat(0)
		So(ok, ShouldBeFalse)
		b, ok := s.Beat(2)
		So(ok, ShouldBeTrue)
		So(b.SceneChange, ShouldBeTrue)

		Convey("Clone 不共享切片", func() {
			c := s.Clone()
			c.Beats[0].Description = "changed"
			So(s.Beats[0].Description, ShouldEqual, "robot idles")
		})
	})
}
