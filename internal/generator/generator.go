// Package generator 定义远端生成服务的调用契约
package generator

import (
	"context"
	"errors"

	model "reel/internal/model/generation"
)

// ErrFilmNotFound 远端不认识该成片任务（例如服务重启丢失了任务）
var ErrFilmNotFound = errors.New("film job not found")

// Generator 文本、图片、视频生成服务
// 每个操作对应一次请求/响应调用，调用方负责超时与重试策略。
type Generator interface {
	GenerateStory(ctx context.Context, req *StoryRequest) (*StoryResult, error)
	RegenerateStory(ctx context.Context, req *StoryRequest) (*StoryResult, error)
	RefineBeat(ctx context.Context, req *RefineBeatRequest) (*BeatResult, error)

	GenerateProtagonist(ctx context.Context, req *ProtagonistRequest) (*ProtagonistResult, error)
	GenerateCharacter(ctx context.Context, req *CharacterRequest) (*ImageResult, error)
	RefineCharacter(ctx context.Context, req *CharacterRequest) (*ImageResult, error)
	GenerateSetting(ctx context.Context, req *SettingRequest) (*ImageResult, error)
	GenerateKeyMoment(ctx context.Context, req *KeyMomentRequest) (*KeyMomentResult, error)

	StartFilm(ctx context.Context, req *FilmRequest) (*FilmStart, error)
	FilmStatus(ctx context.Context, filmID string) (*FilmStatus, error)
}

// ShotRegenerator 可选能力：成片结束后重拍单个镜头并重新拼接
// 调用返回时任务已回到 generating，之后照常通过 FilmStatus 轮询。
type ShotRegenerator interface {
	RegenerateShot(ctx context.Context, req *RegenerateShotRequest) error
}

// RegenerateShotRequest 重拍镜头
type RegenerateShotRequest struct {
	FilmID     string
	ShotNumber int // 从 1 开始
	Feedback   string
}

// Image 图片数据
type Image struct {
	Data     []byte `json:"data"`
	MimeType string `json:"mime_type"`
}

// StoryRequest 生成 / 重新生成故事
type StoryRequest struct {
	Idea     string
	Style    model.Style
	Duration model.Duration
	Feedback string // 仅重新生成时使用
}

// StoryResult 故事生成结果
type StoryResult struct {
	Story   *model.Story
	CostUSD float64
}

// RefineBeatRequest 修改单个节拍
type RefineBeatRequest struct {
	Story      *model.Story
	BeatNumber int // 从 1 开始
	Feedback   string
}

// BeatResult 节拍修改结果
type BeatResult struct {
	Beat    model.Beat
	CostUSD float64
}

// ProtagonistRequest 生成主角形象（无参考图）
type ProtagonistRequest struct {
	Story    *model.Story
	Feedback string
}

// ProtagonistResult 主角形象结果
type ProtagonistResult struct {
	CharacterID string
	Image       Image
	Prompt      string
	CostUSD     float64
}

// CharacterRequest 生成 / 修改角色形象
type CharacterRequest struct {
	Story       *model.Story
	CharacterID string
	Feedback    string
	Reference   *Image // 主角形象，可选
}

// SettingRequest 生成 / 修改场景图
type SettingRequest struct {
	Story     *model.Story
	Feedback  string
	Reference *Image
}

// ImageResult 图片生成结果
type ImageResult struct {
	Image   Image
	Prompt  string
	CostUSD float64
}

// ApprovedVisuals 已确认视觉素材
// CharacterImages 第一个必须是主角。
type ApprovedVisuals struct {
	CharacterImages       []Image
	SettingImage          Image
	CharacterDescriptions []string
	SettingDescription    string
}

// KeyMomentRequest 生成 / 修改关键时刻
type KeyMomentRequest struct {
	Story    *model.Story
	Visuals  *ApprovedVisuals
	Feedback string
}

// KeyMomentResult 关键时刻结果，节拍由生成服务选择
type KeyMomentResult struct {
	BeatNumber      int
	BeatDescription string
	Image           Image
	Prompt          string
	CostUSD         float64
}

// FilmRequest 提交成片
type FilmRequest struct {
	Story          *model.Story
	Visuals        *ApprovedVisuals
	KeyMomentImage Image
}

// FilmStart 成片任务已受理
type FilmStart struct {
	FilmID     string
	TotalShots int
}

// FilmStatus 成片任务状态快照
type FilmStatus struct {
	FilmID         string
	Status         model.FilmStatus
	CurrentShot    int
	TotalShots     int
	Phase          model.FilmPhase
	CompletedShots []model.CompletedShot
	FinalVideoURL  string
	ErrorMessage   string
	Cost           model.FilmCost
}
