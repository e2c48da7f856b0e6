// Package gemini Gemini 图片生成（支持参考图）
package gemini

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"reel/internal/config"
)

const defaultImageModel = "gemini-2.5-flash-image"

// maxReferences 单次请求携带的参考图上限
const maxReferences = 6

// Reference 参考图
type Reference struct {
	Data     []byte
	MimeType string
}

// Client Gemini 客户端
type Client struct {
	genaiClient *genai.Client
	model       string
}

// NewClient 创建 Gemini 客户端
func NewClient(ctx context.Context, cfg *config.GeminiConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini.api_key is required")
	}
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	model := cfg.ImageModel
	if model == "" {
		model = defaultImageModel
	}
	return &Client{genaiClient: genaiClient, model: model}, nil
}

// GenerateImage 按提示词与参考图生成一张 9:16 图片
func (c *Client) GenerateImage(ctx context.Context, prompt string, refs []Reference) ([]byte, string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for i, ref := range refs {
		if i >= maxReferences {
			log.Warn().Int("references", len(refs)).Int("limit", maxReferences).Msg("extra reference images dropped")
			break
		}
		if len(ref.Data) == 0 {
			continue
		}
		parts = append(parts, genai.NewPartFromBytes(ref.Data, ref.MimeType))
	}

	result, err := c.genaiClient.Models.GenerateContent(
		ctx,
		c.model,
		[]*genai.Content{{Role: "user", Parts: parts}},
		&genai.GenerateContentConfig{
			ImageConfig: &genai.ImageConfig{AspectRatio: "9:16"},
		},
	)
	if err != nil {
		return nil, "", fmt.Errorf("gemini generate content: %w", err)
	}

	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mime := part.InlineData.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				return part.InlineData.Data, mime, nil
			}
		}
	}
	return nil, "", fmt.Errorf("no image generated from gemini")
}
