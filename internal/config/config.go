package config

import (
	"errors"
	"fmt"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Supabase  SupabaseConfig  `mapstructure:"supabase"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Generator GeneratorConfig `mapstructure:"generator"`
	AI        AIConfig        `mapstructure:"ai"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Ark       ArkConfig       `mapstructure:"ark"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"` // "*" 表示允许全部
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// StoreConfig 草稿存储选择
type StoreConfig struct {
	Type string `mapstructure:"type"` // mongo, supabase, memory
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// SupabaseConfig Supabase (PostgREST) 配置
type SupabaseConfig struct {
	URL   string `mapstructure:"url"`
	Key   string `mapstructure:"key"` // service role key
	Table string `mapstructure:"table"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RabbitMQConfig 事件总线配置，URL 为空时不发布事件
type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
}

// LocalConfig 本地文件系统配置
type LocalConfig struct {
	BasePath string `mapstructure:"base_path"` // 基础路径
	BaseURL  string `mapstructure:"base_url"`  // 基础URL（用于生成访问URL）
}

// OSSConfig 阿里云OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`          // OSS端点
	Bucket          string `mapstructure:"bucket"`            // Bucket名称
	AccessKeyID     string `mapstructure:"access_key_id"`     // AccessKey ID
	AccessKeySecret string `mapstructure:"access_key_secret"` // AccessKey Secret
	PresignExpiry   int    `mapstructure:"presign_expiry"`    // 预签名URL过期时间（秒）
}

// PipelineConfig 流水线调度参数
type PipelineConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // 单次生成调用超时
	PollInterval   time.Duration `mapstructure:"poll_interval"`   // 成片轮询间隔
	PollTimeout    time.Duration `mapstructure:"poll_timeout"`    // 单个成片任务轮询总时长上限
	LeaseTTL       time.Duration `mapstructure:"lease_ttl"`       // 跨实例轮询租约有效期
}

// GeneratorConfig 生成服务配置
type GeneratorConfig struct {
	Type   string       `mapstructure:"type"` // remote, studio
	Remote RemoteConfig `mapstructure:"remote"`
	Studio StudioConfig `mapstructure:"studio"`
}

// RemoteConfig 远端生成服务
type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`

	MaxResponseBytes int64 `mapstructure:"max_response_bytes"` // 响应体上限
}

// StudioConfig 进程内生成
type StudioConfig struct {
	ImageProvider string `mapstructure:"image_provider"` // gemini, ark
	ShotSeconds   int    `mapstructure:"shot_seconds"`   // 每个镜头时长
	MaxShots      int    `mapstructure:"max_shots"`      // 0 表示不限制
	WorkDir       string `mapstructure:"work_dir"`       // ffmpeg 临时目录

	JobTTL time.Duration `mapstructure:"job_ttl"` // 已结束成片任务在内存中的保留时长
}

// AIConfig 文本模型配置 (eino)
type AIConfig struct {
	Provider string          `mapstructure:"provider"`
	APIKey   string          `mapstructure:"api_key"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Options  AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig AI 模型参数
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// GeminiConfig Gemini 图片生成
type GeminiConfig struct {
	APIKey     string `mapstructure:"api_key"`
	ImageModel string `mapstructure:"image_model"`
}

// ArkConfig 火山方舟图片 / 视频生成
type ArkConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	ImageModel string `mapstructure:"image_model"`
	VideoModel string `mapstructure:"video_model"`
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	switch c.Store.Type {
	case "mongo":
		if c.Mongo.URI == "" {
			return errors.New("mongo.uri is required when store.type is mongo")
		}
	case "supabase":
		if c.Supabase.URL == "" || c.Supabase.Key == "" {
			return errors.New("supabase.url and supabase.key are required when store.type is supabase")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid store type %q, must be mongo/supabase/memory", c.Store.Type)
	}

	switch c.Generator.Type {
	case "remote":
		if c.Generator.Remote.BaseURL == "" {
			return errors.New("generator.remote.base_url is required when generator.type is remote")
		}
	case "studio":
		if c.Generator.Studio.ImageProvider != "gemini" && c.Generator.Studio.ImageProvider != "ark" {
			return errors.New("generator.studio.image_provider must be gemini/ark")
		}
	default:
		return fmt.Errorf("invalid generator type %q, must be remote/studio", c.Generator.Type)
	}

	if c.Pipeline.RequestTimeout <= 0 {
		return errors.New("pipeline.request_timeout must be positive")
	}
	if c.Pipeline.PollInterval <= 0 {
		return errors.New("pipeline.poll_interval must be positive")
	}
	if c.Pipeline.PollTimeout < c.Pipeline.PollInterval {
		return errors.New("pipeline.poll_timeout must not be shorter than pipeline.poll_interval")
	}

	return nil
}
