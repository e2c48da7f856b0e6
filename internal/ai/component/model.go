// Package component 构建 eino 组件，供进程内生成器写故事与节拍
package component

import (
	"context"
	"fmt"

	arkext "github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"reel/internal/config"
)

const defaultArkBaseURL = "https://ark.cn-beijing.volces.com/api/v3"

// defaultModels 各 provider 未配置模型时使用
var defaultModels = map[string]string{
	"openai": "gpt-4o",
	"ark":    "doubao-seed-1-6-flash-250615",
}

// sampling 三个 provider 共用的采样参数，零值表示沿用服务端默认
type sampling struct {
	temperature *float32
	maxTokens   *int
	topP        *float32
}

func samplingOf(opts config.AIOptionsConfig) sampling {
	var s sampling
	if opts.Temperature > 0 {
		t := float32(opts.Temperature)
		s.temperature = &t
	}
	if opts.MaxTokens > 0 {
		n := opts.MaxTokens
		s.maxTokens = &n
	}
	if opts.TopP > 0 {
		p := float32(opts.TopP)
		s.topP = &p
	}
	return s
}

// NewChatModel 创建文本模型
// 支持 openai、azure、ark；返回 BaseChatModel，生成器只做单轮调用不绑定工具。
func NewChatModel(ctx context.Context, cfg *config.AIConfig) (model.BaseChatModel, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai.api_key is required for provider %s", provider)
	}

	name := cfg.Model
	if name == "" {
		name = defaultModels[provider]
	}
	s := samplingOf(cfg.Options)

	switch provider {
	case "openai", "azure":
		if provider == "azure" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("ai.base_url is required for provider azure")
		}
		if name == "" {
			return nil, fmt.Errorf("ai.model is required for provider azure")
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			Model:       name,
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			ByAzure:     provider == "azure",
			Temperature: s.temperature,
			MaxTokens:   s.maxTokens,
			TopP:        s.topP,
		})
	case "ark":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = defaultArkBaseURL
		}
		return arkext.NewChatModel(ctx, &arkext.ChatModelConfig{
			Model:       name,
			APIKey:      cfg.APIKey,
			BaseURL:     baseURL,
			Temperature: s.temperature,
			MaxTokens:   s.maxTokens,
			TopP:        s.topP,
		})
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}
