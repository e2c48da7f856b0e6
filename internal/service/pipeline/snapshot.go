package pipeline

import (
	model "reel/internal/model/generation"
)

// Action 当前可执行的操作
type Action string

const (
	ActionSubmitIdea          Action = "submit_idea"
	ActionRegenerateStory     Action = "regenerate_story"
	ActionRefineBeat          Action = "refine_beat"
	ActionSelectBeat          Action = "select_beat"
	ActionApproveStory        Action = "approve_story"
	ActionGenerateProtagonist Action = "generate_protagonist"
	ActionLockProtagonist     Action = "lock_protagonist"
	ActionChangeProtagonist   Action = "change_protagonist"
	ActionEditSlots           Action = "edit_slots"
	ActionContinueKeyMoment   Action = "continue_to_key_moment"
	ActionRefineKeyMoment     Action = "refine_key_moment"
	ActionStartFilm           Action = "start_film"
	ActionRegenerateShot      Action = "regenerate_shot"
	ActionRetry               Action = "retry"
	ActionGoBack              Action = "go_back"
	ActionStartOver           Action = "start_over"
)

// Snapshot 某一时刻的完整流水线视图
type Snapshot struct {
	Generation *model.Generation   `json:"generation"`
	Phase      model.Phase         `json:"phase"`
	Step       *Step               `json:"step"`
	StepLabel  string              `json:"step_label,omitempty"`
	Cost       model.CostBreakdown `json:"cost"`
	Actions    []Action            `json:"actions"`
}

func (c *Controller) snapshotLocked() *Snapshot {
	g := c.g.Clone()
	g.Status = StatusOf(c.phase, &g.State)
	s := &Snapshot{
		Generation: g,
		Phase:      c.phase,
		Cost:       g.State.Cost.Breakdown(),
		Actions:    availableActions(c.phase, &g.State, c.canRegenerateShotLocked()),
	}
	if step, ok := StepOf(g.Status); ok {
		s.Step = &step
		s.StepLabel = step.String()
	}
	return s
}

func availableActions(phase model.Phase, st *model.PipelineState, regenerateShot bool) []Action {
	actions := make([]Action, 0, 6)
	switch phase {
	case model.PhaseIdle:
		actions = append(actions, ActionSubmitIdea)
	case model.PhaseStoryDrafting:
		if st.StoryGenerating || st.RefiningBeat != 0 {
			break
		}
		actions = append(actions, ActionSubmitIdea)
		if st.Story != nil {
			actions = append(actions, ActionRegenerateStory, ActionRefineBeat, ActionSelectBeat, ActionApproveStory)
		}
	case model.PhaseVisualDirection:
		vd := st.VisualDirection
		if vd == nil {
			break
		}
		p := vd.Protagonist
		if vd.Stage == model.VisualStageProtagonist {
			if !p.IsGenerating {
				actions = append(actions, ActionGenerateProtagonist)
				if p.Image != nil {
					actions = append(actions, ActionLockProtagonist)
				}
			}
			break
		}
		actions = append(actions, ActionChangeProtagonist, ActionEditSlots)
		km := vd.KeyMoment
		if vd.AllApproved() && (km == nil || !km.IsGenerating) {
			actions = append(actions, ActionContinueKeyMoment)
		}
		if km != nil && !km.IsGenerating {
			actions = append(actions, ActionRefineKeyMoment)
		}
		if km.Ready() {
			actions = append(actions, ActionStartFilm)
		}
	case model.PhaseComplete:
		if regenerateShot {
			actions = append(actions, ActionRegenerateShot)
		}
	case model.PhaseFailed:
		actions = append(actions, ActionRetry)
		if st.FailedPhase == model.PhaseFilmGeneration {
			actions = append(actions, ActionGoBack)
			if regenerateShot {
				actions = append(actions, ActionRegenerateShot)
			}
		} else {
			actions = append(actions, ActionSubmitIdea)
		}
	}
	return append(actions, ActionStartOver)
}
