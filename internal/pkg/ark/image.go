package ark

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"

	"reel/internal/config"
)

const (
	defaultBaseURL    = "https://ark.cn-beijing.volces.com/api/v3"
	defaultImageModel = "doubao-seedream-3-0-t2i-250415"
	defaultVideoModel = "doubao-seedance-1-0-lite-i2v-250428"
)

// ImageClient Seedream 文生图客户端
// Seedream 不接受参考图，调用方需要把参考信息写进提示词。
type ImageClient struct {
	client *arkruntime.Client
	model  string
}

// NewImageClient 创建图片生成客户端
func NewImageClient(cfg *config.ArkConfig) (*ImageClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ark.api_key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	modelName := cfg.ImageModel
	if modelName == "" {
		modelName = defaultImageModel
	}

	return &ImageClient{
		client: arkruntime.NewClientWithApiKey(cfg.APIKey, arkruntime.WithBaseUrl(baseURL)),
		model:  modelName,
	}, nil
}

// GenerateImage 生成图片（同步接口），size 为空时使用竖屏 720x1280
func (c *ImageClient) GenerateImage(ctx context.Context, prompt string, size string) ([]byte, error) {
	if size == "" {
		size = "720x1280"
	}
	responseFormat := "b64_json"
	watermark := false

	output, err := c.client.GenerateImages(ctx, model.GenerateImagesRequest{
		Model:          c.model,
		Prompt:         prompt,
		Size:           &size,
		ResponseFormat: &responseFormat,
		Watermark:      &watermark,
	})
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Msg("failed to call Ark GenerateImages API")
		return nil, fmt.Errorf("ark generate images: %w", err)
	}

	if len(output.Data) == 0 || output.Data[0].B64Json == nil {
		return nil, fmt.Errorf("no image data in response")
	}
	imageData, err := base64.StdEncoding.DecodeString(*output.Data[0].B64Json)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image data: %w", err)
	}
	return imageData, nil
}
