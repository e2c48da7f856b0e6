package generation

// Style 画面风格
type Style string

const (
	StyleCinematic  Style = "cinematic"
	Style3DAnimated Style = "3d_animated"
	Style2DAnimated Style = "2d_animated"
)

// IsValid 判断风格是否合法
func (s Style) IsValid() bool {
	switch s {
	case StyleCinematic, Style3DAnimated, Style2DAnimated:
		return true
	}
	return false
}

// Status 草稿列表展示的状态
type Status string

const (
	StatusDrafting    Status = "drafting"
	StatusVisuals     Status = "visuals"
	StatusMoodboard   Status = "moodboard"
	StatusKeyMoments  Status = "key_moments"
	StatusPreflight   Status = "preflight"
	StatusFilming     Status = "filming"
	StatusReady       Status = "ready"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// IsValid 判断状态是否合法
func (s Status) IsValid() bool {
	switch s {
	case StatusDrafting, StatusVisuals, StatusMoodboard, StatusKeyMoments,
		StatusPreflight, StatusFilming, StatusReady, StatusFailed, StatusInterrupted:
		return true
	}
	return false
}

// Phase 流水线阶段
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseStoryDrafting   Phase = "story_drafting"
	PhaseVisualDirection Phase = "visual_direction"
	PhaseFilmGeneration  Phase = "film_generation"
	PhaseComplete        Phase = "complete"
	PhaseFailed          Phase = "failed"
)

// VisualStage 视觉设定子阶段
type VisualStage string

const (
	VisualStageProtagonist VisualStage = "protagonist" // 仅主角（风格锚点）
	VisualStageFull        VisualStage = "full"        // 主角已锁定，其余角色与场景
)

// Role 角色定位
type Role string

const (
	RoleProtagonist Role = "protagonist"
	RoleAntagonist  Role = "antagonist"
	RoleSupporting  Role = "supporting"
)

// ImageType 情绪板图片类型
type ImageType string

const (
	ImageTypeCharacter ImageType = "character"
	ImageTypeSetting   ImageType = "setting"
	ImageTypeKeyMoment ImageType = "key_moment"
)

// FilmStatus 成片任务状态
type FilmStatus string

const (
	FilmStatusIdle       FilmStatus = "idle"
	FilmStatusGenerating FilmStatus = "generating"
	FilmStatusAssembling FilmStatus = "assembling"
	FilmStatusReady      FilmStatus = "ready"
	FilmStatusFailed     FilmStatus = "failed"
)

// IsTerminal 是否为终态
func (s FilmStatus) IsTerminal() bool {
	return s == FilmStatusReady || s == FilmStatusFailed
}

// FilmPhase 成片任务内部阶段
type FilmPhase string

const (
	FilmPhaseKeyframe   FilmPhase = "keyframe"
	FilmPhaseFilming    FilmPhase = "filming"
	FilmPhaseAssembling FilmPhase = "assembling"
)

// Duration 故事时长（分钟）
type Duration string

const (
	DurationOne   Duration = "1"
	DurationTwo   Duration = "2"
	DurationThree Duration = "3"
)

// IsValid 判断时长是否合法
func (d Duration) IsValid() bool {
	return d == DurationOne || d == DurationTwo || d == DurationThree
}
