package pipeline

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	model "reel/internal/model/generation"
)

func testImage(key string) *model.MoodboardImage {
	return &model.MoodboardImage{AssetKey: "g/" + key + ".png", MimeType: "image/png", URL: "http://assets.test/g/" + key + ".png"}
}

func TestCascade(t *testing.T) {
	Convey("cascade", t, func() {
		story := testStory()
		vd, err := newVisualDirection(story)
		So(err, ShouldBeNil)
		cs := cascade{vd: vd, story: story}

		Convey("主角阶段", func() {
			attempt, err := cs.beginProtagonist()
			So(err, ShouldBeNil)
			_, err = cs.beginProtagonist()
			So(errors.Is(err, ErrInvalidState), ShouldBeTrue)

			_, err = cs.lockProtagonist()
			So(errors.Is(err, ErrInvalidState), ShouldBeTrue)

			applied, orphan := cs.applyProtagonist(attempt, testImage("p1"), "prompt", nil)
			So(applied, ShouldBeTrue)
			So(orphan, ShouldBeEmpty)

			Convey("过期 attempt 被忽略", func() {
				applied, _ := cs.applyProtagonist(attempt, testImage("late"), "prompt", nil)
				So(applied, ShouldBeFalse)
				So(vd.Protagonist.Image.AssetKey, ShouldEqual, "g/p1.png")
			})

			Convey("重新生成返回旧素材", func() {
				next, err := cs.beginProtagonist()
				So(err, ShouldBeNil)
				_, orphan := cs.applyProtagonist(next, testImage("p2"), "prompt", nil)
				So(orphan, ShouldEqual, "g/p1.png")
			})

			Convey("锁定扇出 N+1 个任务", func() {
				jobs, err := cs.lockProtagonist()
				So(err, ShouldBeNil)
				So(len(jobs), ShouldEqual, 3)
				So(jobs[0].Key, ShouldEqual, "rival")
				So(jobs[1].Key, ShouldEqual, "kid")
				So(jobs[2].Key, ShouldEqual, model.SettingSlotKey)
				for _, key := range otherSlots {
					So(vd.Slot(key).IsGenerating, ShouldBeTrue)
				}
				_, err = cs.beginProtagonist()
				So(errors.Is(err, ErrInvalidState), ShouldBeTrue)
			})
		})

		Convey("完整阶段", func() {
			attempt, _ := cs.beginProtagonist()
			cs.applyProtagonist(attempt, testImage("p1"), "prompt", nil)
			jobs, _ := cs.lockProtagonist()
			for _, job := range jobs {
				cs.applySlot(job.Key, job.Attempt, testImage(job.Key), "prompt", nil)
			}

			Convey("生成中的槽位不能被确认也不会报错", func() {
				job, _, err := cs.beginSlot("rival", modeRetry, "")
				So(err, ShouldBeNil)
				So(cs.approveSlot("rival"), ShouldBeNil)
				So(vd.Slot("rival").Approved, ShouldBeFalse)
				cs.applySlot("rival", job.Attempt, nil, "", errors.New("boom"))
				So(vd.Slot("rival").Error, ShouldEqual, "boom")
				So(vd.Slot("rival").Image.AssetKey, ShouldEqual, "g/rival.png")
			})

			Convey("冻结的素材集合主角在前", func() {
				for _, key := range otherSlots {
					So(cs.approveSlot(key), ShouldBeNil)
				}
				attempt, orphan, err := cs.continueToKeyMoment()
				So(err, ShouldBeNil)
				So(attempt, ShouldEqual, 1)
				So(orphan, ShouldBeEmpty)

				b := vd.KeyMoment.Bundle
				So(b.CharacterImages, ShouldResemble, []model.ImageRef{
					{AssetKey: "g/p1.png", MimeType: "image/png"},
					{AssetKey: "g/rival.png", MimeType: "image/png"},
					{AssetKey: "g/kid.png", MimeType: "image/png"},
				})
				So(b.CharacterDescriptions, ShouldResemble, []string{
					"Unit 7: rusty frame",
					"Vex: chrome plating",
					"Mia: yellow raincoat",
				})
				So(b.SettingImage.AssetKey, ShouldEqual, "g/setting.png")
				So(b.SettingDescription, ShouldEqual, "abandoned factory. night. neon haze")

				Convey("修改关键时刻沿用同一集合", func() {
					cs.applyKeyMoment(attempt, 5, "beat 5", testImage("km"), "prompt", nil)
					frozen := b.Clone()
					job, err := cs.beginKeyMoment(modeRefine, "warmer")
					So(err, ShouldBeNil)
					So(job.Attempt, ShouldEqual, 2)
					So(vd.KeyMoment.Bundle, ShouldResemble, frozen)
					So(vd.KeyMoment.Image, ShouldNotBeNil)
				})

				Convey("更换主角清空下游", func() {
					cs.applyKeyMoment(attempt, 5, "beat 5", testImage("km"), "prompt", nil)
					orphans, err := cs.changeProtagonist(true)
					So(err, ShouldBeNil)
					So(orphans, ShouldResemble, []string{"g/rival.png", "g/kid.png", "g/setting.png", "g/km.png"})
					So(vd.KeyMoment, ShouldBeNil)
					So(vd.Protagonist.Image.AssetKey, ShouldEqual, "g/p1.png")
					So(vd.Protagonist.Locked, ShouldBeFalse)
					for _, key := range otherSlots {
						slot := vd.Slot(key)
						So(slot.Image, ShouldBeNil)
						So(slot.Approved, ShouldBeFalse)
						So(slot.Key, ShouldEqual, key)
					}
				})
			})

			Convey("没有确认不能进入关键时刻", func() {
				So(cs.approveSlot("rival"), ShouldBeNil)
				_, _, err := cs.continueToKeyMoment()
				So(errors.Is(err, ErrInvalidState), ShouldBeTrue)
				So(vd.KeyMoment, ShouldBeNil)
			})

			Convey("更换主角需要确认", func() {
				_, err := cs.changeProtagonist(false)
				So(err, ShouldEqual, ErrConfirmationRequired)
				So(vd.Slot("rival").Image, ShouldNotBeNil)
			})

			Convey("清空后进行中的结果作废", func() {
				job, _, _ := cs.beginSlot("kid", modeGenerate, "")
				_, err := cs.changeProtagonist(true)
				So(err, ShouldBeNil)
				applied, _ := cs.applySlot("kid", job.Attempt, testImage("late"), "", nil)
				So(applied, ShouldBeFalse)
				So(vd.Slot("kid").Image, ShouldBeNil)
			})
		})
	})
}
