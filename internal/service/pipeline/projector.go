package pipeline

import (
	"time"

	model "reel/internal/model/generation"
)

// Step 草稿列表上的粗粒度进度
type Step int

const (
	StepScript Step = iota
	StepVisuals
	StepFilming
	StepReady
)

var stepLabels = map[Step]string{
	StepScript:  "Script",
	StepVisuals: "Visuals",
	StepFilming: "Filming",
	StepReady:   "Ready",
}

// String 进度名称
func (s Step) String() string {
	return stepLabels[s]
}

// StatusOf 由阶段与状态推导列表状态
func StatusOf(phase model.Phase, state *model.PipelineState) model.Status {
	switch phase {
	case model.PhaseVisualDirection:
		vd := state.VisualDirection
		switch {
		case vd == nil || vd.Stage == model.VisualStageProtagonist:
			return model.StatusVisuals
		case vd.KeyMoment == nil:
			return model.StatusMoodboard
		case !vd.KeyMoment.Ready():
			return model.StatusKeyMoments
		default:
			return model.StatusPreflight
		}
	case model.PhaseFilmGeneration:
		return model.StatusFilming
	case model.PhaseComplete:
		return model.StatusReady
	case model.PhaseFailed:
		if state.Interrupted {
			return model.StatusInterrupted
		}
		return model.StatusFailed
	default:
		return model.StatusDrafting
	}
}

// PhaseOf 恢复时由持久化的状态推导阶段
func PhaseOf(status model.Status, state *model.PipelineState) model.Phase {
	switch status {
	case model.StatusVisuals, model.StatusMoodboard, model.StatusKeyMoments, model.StatusPreflight:
		return model.PhaseVisualDirection
	case model.StatusFilming:
		return model.PhaseFilmGeneration
	case model.StatusReady:
		return model.PhaseComplete
	case model.StatusFailed, model.StatusInterrupted:
		return model.PhaseFailed
	default:
		if state.Story == nil && !state.StoryGenerating && state.Idea == "" {
			return model.PhaseIdle
		}
		return model.PhaseStoryDrafting
	}
}

// StepOf 状态对应的进度，failed / interrupted 没有进度
func StepOf(status model.Status) (Step, bool) {
	switch status {
	case model.StatusDrafting:
		return StepScript, true
	case model.StatusVisuals, model.StatusMoodboard, model.StatusKeyMoments, model.StatusPreflight:
		return StepVisuals, true
	case model.StatusFilming:
		return StepFilming, true
	case model.StatusReady:
		return StepReady, true
	}
	return 0, false
}

// Draft 草稿列表条目
type Draft struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Style     model.Style  `json:"style"`
	Status    model.Status `json:"status"`
	Step      *Step        `json:"step"`
	StepLabel string       `json:"step_label,omitempty"`
	Thumbnail string       `json:"thumbnail,omitempty"`
	CostTotal float64      `json:"cost_total"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Project 生成草稿列表条目
func Project(s *model.Summary) Draft {
	d := Draft{
		ID:        s.ID,
		Title:     s.Title,
		Style:     s.Style,
		Status:    s.Status,
		Thumbnail: s.Thumbnail,
		CostTotal: s.CostTotal,
		UpdatedAt: s.UpdatedAt,
	}
	if step, ok := StepOf(s.Status); ok {
		d.Step = &step
		d.StepLabel = step.String()
	}
	return d
}

// thumbnailOf 关键时刻优先，其次主角
func thumbnailOf(state *model.PipelineState) string {
	vd := state.VisualDirection
	if vd == nil {
		return ""
	}
	if vd.KeyMoment != nil && vd.KeyMoment.Image != nil {
		return vd.KeyMoment.Image.URL
	}
	if vd.Protagonist.Image != nil {
		return vd.Protagonist.Image.URL
	}
	return ""
}
