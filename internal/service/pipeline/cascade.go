package pipeline

import (
	"strings"

	model "reel/internal/model/generation"
)

// slotMode 槽位生成方式
type slotMode string

const (
	modeGenerate slotMode = "generate" // 首次生成
	modeRetry    slotMode = "retry"    // 相同参考图重新生成
	modeRefine   slotMode = "refine"   // 附带反馈重新生成
)

// imageJob 一次待执行的槽位生成
type imageJob struct {
	Key      string
	Attempt  int
	Mode     slotMode
	Feedback string
}

// cascade 视觉设定子状态机
// 只修改内存中的 VisualDirection 并返回需要执行的生成任务，不做任何 IO。
// 调用方持有控制器锁。
type cascade struct {
	vd    *model.VisualDirection
	story *model.Story
}

// newVisualDirection 故事确认后的初始视觉设定
func newVisualDirection(story *model.Story) (*model.VisualDirection, error) {
	protagonist, ok := story.Protagonist()
	if !ok {
		return nil, model.ErrNoProtagonist
	}
	vd := &model.VisualDirection{
		Stage:       model.VisualStageProtagonist,
		Protagonist: model.ProtagonistSlot{CharacterID: protagonist.ID},
		Setting:     model.ImageSlot{Key: model.SettingSlotKey},
	}
	for _, c := range story.SupportingCast() {
		vd.Characters = append(vd.Characters, model.ImageSlot{Key: c.ID})
	}
	return vd, nil
}

// beginProtagonist 开始生成主角形象（无参考图）
func (c cascade) beginProtagonist() (int, error) {
	p := &c.vd.Protagonist
	if p.Locked {
		return 0, invalidStatef("protagonist is locked")
	}
	if p.IsGenerating {
		return 0, invalidStatef("protagonist is already generating")
	}
	p.IsGenerating = true
	p.Error = ""
	p.Attempt++
	return p.Attempt, nil
}

// applyProtagonist 写入主角生成结果，返回被替换的旧素材
func (c cascade) applyProtagonist(attempt int, img *model.MoodboardImage, prompt string, err error) (applied bool, orphan string) {
	p := &c.vd.Protagonist
	if p.Attempt != attempt || !p.IsGenerating {
		return false, ""
	}
	p.IsGenerating = false
	if err != nil {
		p.Error = err.Error()
		return true, ""
	}
	if p.Image != nil {
		orphan = p.Image.AssetKey
	}
	p.Image = img
	p.Prompt = prompt
	p.Error = ""
	return true, orphan
}

// lockProtagonist 锁定风格锚点并扇出其余角色与场景
func (c cascade) lockProtagonist() ([]imageJob, error) {
	p := &c.vd.Protagonist
	if p.Locked {
		return nil, invalidStatef("protagonist is already locked")
	}
	if p.IsGenerating {
		return nil, invalidStatef("protagonist is still generating")
	}
	if p.Image == nil {
		return nil, validationf("protagonist has no image to lock")
	}
	p.Locked = true
	c.vd.Stage = model.VisualStageFull

	jobs := make([]imageJob, 0, len(c.vd.Characters)+1)
	for i := range c.vd.Characters {
		jobs = append(jobs, startSlot(&c.vd.Characters[i], modeGenerate, ""))
	}
	jobs = append(jobs, startSlot(&c.vd.Setting, modeGenerate, ""))
	return jobs, nil
}

// beginSlot 开始单个槽位的生成
// 已有关键时刻是基于旧素材生成的，一并清除并返回其素材 key。
func (c cascade) beginSlot(key string, mode slotMode, feedback string) (imageJob, string, error) {
	if c.vd.Stage != model.VisualStageFull {
		return imageJob{}, "", invalidStatef("lock the protagonist before generating %s", key)
	}
	slot := c.vd.Slot(key)
	if slot == nil {
		return imageJob{}, "", validationf("unknown slot %q", key)
	}
	if slot.IsGenerating {
		return imageJob{}, "", invalidStatef("slot %s is already generating", key)
	}
	if mode == modeRefine {
		feedback = pickFeedback(feedback, slot.Feedback)
		if feedback == "" {
			return imageJob{}, "", validationf("feedback is required to refine %s", key)
		}
	}
	if mode == modeRetry && slot.Image == nil && slot.Error == "" {
		return imageJob{}, "", invalidStatef("slot %s has nothing to retry", key)
	}

	orphan := c.dropKeyMoment()
	return startSlot(slot, mode, feedback), orphan, nil
}

// applySlot 写入槽位生成结果
func (c cascade) applySlot(key string, attempt int, img *model.MoodboardImage, prompt string, err error) (applied bool, orphan string) {
	slot := c.vd.Slot(key)
	if slot == nil || slot.Attempt != attempt || !slot.IsGenerating {
		return false, ""
	}
	slot.IsGenerating = false
	if err != nil {
		slot.Error = err.Error()
		return true, ""
	}
	if slot.Image != nil {
		orphan = slot.Image.AssetKey
	}
	slot.Image = img
	slot.Prompt = prompt
	slot.Feedback = ""
	slot.Error = ""
	return true, orphan
}

// approveSlot 确认槽位；生成中为空操作
func (c cascade) approveSlot(key string) error {
	slot := c.vd.Slot(key)
	if slot == nil {
		return validationf("unknown slot %q", key)
	}
	if slot.IsGenerating {
		return nil
	}
	if !slot.CanApprove() {
		return validationf("slot %s has no image to approve", key)
	}
	slot.Approved = true
	return nil
}

// setFeedback 暂存槽位反馈，关键时刻同样适用
func (c cascade) setFeedback(key, feedback string) error {
	if key == model.KeyMomentSlotKey {
		if c.vd.KeyMoment == nil {
			return invalidStatef("no key moment yet")
		}
		c.vd.KeyMoment.Feedback = feedback
		return nil
	}
	slot := c.vd.Slot(key)
	if slot == nil {
		return validationf("unknown slot %q", key)
	}
	slot.Feedback = feedback
	return nil
}

// changeProtagonist Locked → Unlocking：一次性清空下游槽位与关键时刻
// 主角自身的图片保留，返回需要删除的素材。
func (c cascade) changeProtagonist(confirmed bool) ([]string, error) {
	if !c.vd.Protagonist.Locked {
		return nil, invalidStatef("protagonist is not locked")
	}
	if !confirmed {
		return nil, ErrConfirmationRequired
	}

	var orphans []string
	for i := range c.vd.Characters {
		orphans = appendKey(orphans, clearSlot(&c.vd.Characters[i]))
	}
	orphans = appendKey(orphans, clearSlot(&c.vd.Setting))
	orphans = appendKey(orphans, c.dropKeyMoment())

	c.vd.Protagonist.Locked = false
	c.vd.Stage = model.VisualStageProtagonist
	return orphans, nil
}

// continueToKeyMoment 冻结已确认素材并开始生成关键时刻
func (c cascade) continueToKeyMoment() (int, string, error) {
	if c.vd.Stage != model.VisualStageFull {
		return 0, "", invalidStatef("protagonist is not locked")
	}
	if !c.vd.AllApproved() {
		return 0, "", invalidStatef("setting and every character must be approved first")
	}
	if c.vd.KeyMoment != nil && c.vd.KeyMoment.IsGenerating {
		return 0, "", invalidStatef("key moment is already generating")
	}

	attempt := 1
	var orphan string
	if km := c.vd.KeyMoment; km != nil {
		attempt = km.Attempt + 1
		if km.Image != nil {
			orphan = km.Image.AssetKey
		}
	}
	c.vd.KeyMoment = &model.KeyMomentSlot{
		ImageSlot: model.ImageSlot{
			Key:          model.KeyMomentSlotKey,
			IsGenerating: true,
			Attempt:      attempt,
		},
		Bundle: c.bundle(),
	}
	return attempt, orphan, nil
}

// beginKeyMoment 重新生成关键时刻，沿用冻结的素材集合
func (c cascade) beginKeyMoment(mode slotMode, feedback string) (imageJob, error) {
	km := c.vd.KeyMoment
	if km == nil || km.Bundle == nil {
		return imageJob{}, invalidStatef("no key moment yet")
	}
	if km.IsGenerating {
		return imageJob{}, invalidStatef("key moment is already generating")
	}
	if mode == modeRefine {
		feedback = pickFeedback(feedback, km.Feedback)
		if feedback == "" {
			return imageJob{}, validationf("feedback is required to refine the key moment")
		}
	}
	return startSlot(&km.ImageSlot, mode, feedback), nil
}

// applyKeyMoment 写入关键时刻结果
func (c cascade) applyKeyMoment(attempt int, beatNumber int, beatDescription string, img *model.MoodboardImage, prompt string, err error) (applied bool, orphan string) {
	km := c.vd.KeyMoment
	if km == nil || km.Attempt != attempt || !km.IsGenerating {
		return false, ""
	}
	km.IsGenerating = false
	if err != nil {
		km.Error = err.Error()
		return true, ""
	}
	if km.Image != nil {
		orphan = km.Image.AssetKey
	}
	km.Image = img
	km.Prompt = prompt
	km.Feedback = ""
	km.Error = ""
	km.BeatNumber = beatNumber
	km.BeatDescription = beatDescription
	return true, orphan
}

// bundle 主角在前，其余已确认角色按故事顺序
func (c cascade) bundle() *model.VisualsBundle {
	b := &model.VisualsBundle{
		SettingImage:       c.vd.Setting.Image.Ref(),
		SettingDescription: c.story.Setting.Description(),
	}
	if protagonist, ok := c.story.Character(c.vd.Protagonist.CharacterID); ok {
		b.CharacterImages = append(b.CharacterImages, c.vd.Protagonist.Image.Ref())
		b.CharacterDescriptions = append(b.CharacterDescriptions, describe(protagonist))
	}
	for _, ch := range c.story.SupportingCast() {
		slot := c.vd.Slot(ch.ID)
		if slot == nil || !slot.Approved || slot.Image == nil {
			continue
		}
		b.CharacterImages = append(b.CharacterImages, slot.Image.Ref())
		b.CharacterDescriptions = append(b.CharacterDescriptions, describe(ch))
	}
	return b
}

func (c cascade) dropKeyMoment() string {
	km := c.vd.KeyMoment
	c.vd.KeyMoment = nil
	if km != nil && km.Image != nil {
		return km.Image.AssetKey
	}
	return ""
}

func startSlot(slot *model.ImageSlot, mode slotMode, feedback string) imageJob {
	slot.IsGenerating = true
	slot.Approved = false
	slot.Error = ""
	slot.Attempt++
	return imageJob{Key: slot.Key, Attempt: slot.Attempt, Mode: mode, Feedback: feedback}
}

// clearSlot 清空槽位；Attempt 递增使进行中的结果作废
func clearSlot(slot *model.ImageSlot) string {
	var orphan string
	if slot.Image != nil {
		orphan = slot.Image.AssetKey
	}
	*slot = model.ImageSlot{Key: slot.Key, Attempt: slot.Attempt + 1}
	return orphan
}

func describe(c model.Character) string {
	return c.Name + ": " + c.Appearance
}

func pickFeedback(explicit, pending string) string {
	if f := strings.TrimSpace(explicit); f != "" {
		return f
	}
	return strings.TrimSpace(pending)
}

func appendKey(keys []string, key string) []string {
	if key == "" {
		return keys
	}
	return append(keys, key)
}
