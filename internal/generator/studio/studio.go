// Package studio 进程内生成服务
// 文本走 eino ChatModel，图片走 Gemini 或 Seedream，镜头走 Seedance，剪辑走 ffmpeg。
package studio

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"

	"reel/internal/ai/component"
	"reel/internal/config"
	"reel/internal/generator"
	"reel/internal/pkg/ark"
	"reel/internal/pkg/ffmpeg"
	"reel/internal/pkg/gemini"
	"reel/internal/pkg/logger"
	"reel/internal/pkg/storage"
)

const (
	imageCostUSD          = 0.04
	videoCostPerSecondUSD = 0.022
	textInputPer1MUSD     = 0.80
	textOutputPer1MUSD    = 4.00

	defaultShotSeconds  = 5
	maxFilmReferences   = 3
	maxMomentCharacters = 5
)

var (
	_ generator.Generator       = (*Generator)(nil)
	_ generator.ShotRegenerator = (*Generator)(nil)
)

// ImageProvider 图片生成
type ImageProvider interface {
	Generate(ctx context.Context, prompt string, refs []generator.Image) (generator.Image, error)
}

// VideoProvider 首帧图生视频
type VideoProvider interface {
	ImageToVideo(ctx context.Context, firstFrame generator.Image, prompt string, seconds int) ([]byte, error)
}

// Editor 本地视频处理
type Editor interface {
	ExtractLastFrame(ctx context.Context, videoPath, outputPath string) error
	ConcatVideos(ctx context.Context, videoPaths []string, outputPath string) error
}

// Options 成片参数
type Options struct {
	ShotSeconds int
	MaxShots    int // 0 表示不限制
	WorkDir     string
	JobTTL      time.Duration // 已结束任务的保留时长，0 表示不清理
}

// Generator 进程内 generator.Generator 实现
type Generator struct {
	text   einomodel.BaseChatModel
	images ImageProvider
	videos VideoProvider
	editor Editor
	store  storage.Storage
	opts   Options
	log    zerolog.Logger

	mu   sync.Mutex
	jobs map[string]*filmJob
	now  func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New 创建进程内生成服务
func New(text einomodel.BaseChatModel, images ImageProvider, videos VideoProvider, editor Editor, store storage.Storage, opts Options) *Generator {
	if opts.ShotSeconds <= 0 {
		opts.ShotSeconds = defaultShotSeconds
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Generator{
		text:   text,
		images: images,
		videos: videos,
		editor: editor,
		store:  store,
		opts:   opts,
		log:    logger.Component("studio"),
		jobs:   make(map[string]*filmJob),
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// NewFromConfig 按配置组装各个 provider
func NewFromConfig(ctx context.Context, cfg *config.Config, store storage.Storage) (*Generator, error) {
	text, err := component.NewChatModel(ctx, &cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	var images ImageProvider
	switch cfg.Generator.Studio.ImageProvider {
	case "ark":
		c, err := ark.NewImageClient(&cfg.Ark)
		if err != nil {
			return nil, err
		}
		images = &ArkImages{client: c}
	default:
		c, err := gemini.NewClient(ctx, &cfg.Gemini)
		if err != nil {
			return nil, err
		}
		images = &GeminiImages{client: c}
	}

	video, err := ark.NewVideoClient(&cfg.Ark)
	if err != nil {
		return nil, err
	}

	editor := ffmpeg.NewClient()
	if !editor.Available() {
		return nil, fmt.Errorf("ffmpeg is required by the studio generator")
	}

	studioCfg := cfg.Generator.Studio
	return New(text, images, &ArkVideos{client: video}, editor, store, Options{
		ShotSeconds: studioCfg.ShotSeconds,
		MaxShots:    studioCfg.MaxShots,
		WorkDir:     studioCfg.WorkDir,
		JobTTL:      studioCfg.JobTTL,
	}), nil
}

// Close 取消运行中的成片任务并等待退出
func (g *Generator) Close() error {
	g.cancel()
	g.wg.Wait()
	return nil
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func textCost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1e6*textInputPer1MUSD + float64(outputTokens)/1e6*textOutputPer1MUSD
}

// GeminiImages Gemini 图片，参考图原样传入
type GeminiImages struct {
	client *gemini.Client
}

// Generate 生成图片
func (p *GeminiImages) Generate(ctx context.Context, prompt string, refs []generator.Image) (generator.Image, error) {
	references := make([]gemini.Reference, 0, len(refs))
	for _, r := range refs {
		references = append(references, gemini.Reference{Data: r.Data, MimeType: r.MimeType})
	}
	data, mime, err := p.client.GenerateImage(ctx, prompt, references)
	if err != nil {
		return generator.Image{}, err
	}
	return generator.Image{Data: data, MimeType: mime}, nil
}

// ArkImages Seedream 图片，不支持参考图
type ArkImages struct {
	client *ark.ImageClient
}

// Generate 生成图片，参考图只能通过提示词里的文字描述体现
func (p *ArkImages) Generate(ctx context.Context, prompt string, refs []generator.Image) (generator.Image, error) {
	if len(refs) > 0 {
		prompt += "\n\nKeep every character and the setting exactly as described above."
	}
	data, err := p.client.GenerateImage(ctx, prompt, "")
	if err != nil {
		return generator.Image{}, err
	}
	return generator.Image{Data: data, MimeType: "image/jpeg"}, nil
}

// ArkVideos Seedance 图生视频
type ArkVideos struct {
	client *ark.VideoClient
}

// ImageToVideo 以首帧生成一个镜头
func (p *ArkVideos) ImageToVideo(ctx context.Context, firstFrame generator.Image, prompt string, seconds int) ([]byte, error) {
	return p.client.GenerateVideoFromImage(ctx, ark.DataURL(firstFrame.Data, firstFrame.MimeType), seconds, prompt)
}
