package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"reel/internal/config"
	"reel/internal/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "reel",
	Short: "Reel - story to film generation pipeline",
	Long: `Reel turns a one-line idea into a short film: it drafts a story,
directs the protagonist, supporting characters and setting, renders a key
moment and then shoots and assembles the film through a generation backend.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./configs/config.yaml)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// .env 只补充未设置的环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.reel")
	}

	// 环境变量设置
	viper.SetEnvPrefix("REEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 设置默认值
	setDefaults()

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Fprintln(os.Stderr, "No config file found, using defaults and environment variables")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
			os.Exit(1)
		}
	}

	// 反序列化到结构体
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("configuration loaded")
}

func setDefaults() {
	// Server
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 7080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.cors_allowed_origins", []string{"http://localhost:3000"})

	// Log
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.time_format", "RFC3339")

	// Store
	viper.SetDefault("store.type", "memory")

	// MongoDB
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "reel")
	viper.SetDefault("mongo.max_pool_size", 100)
	viper.SetDefault("mongo.min_pool_size", 10)

	// Supabase
	viper.SetDefault("supabase.table", "generations")

	// RabbitMQ
	viper.SetDefault("rabbitmq.exchange", "reel.generations")

	// Storage
	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.local.base_path", "./data/assets")
	viper.SetDefault("storage.local.base_url", "http://localhost:7080/assets")
	viper.SetDefault("storage.oss.presign_expiry", 3600)

	// Pipeline
	viper.SetDefault("pipeline.request_timeout", "3m")
	viper.SetDefault("pipeline.poll_interval", "5s")
	viper.SetDefault("pipeline.poll_timeout", "45m")
	viper.SetDefault("pipeline.lease_ttl", "30s")

	// Generator
	viper.SetDefault("generator.type", "remote")
	viper.SetDefault("generator.remote.base_url", "http://localhost:8000")
	viper.SetDefault("generator.remote.timeout", "3m")
	viper.SetDefault("generator.remote.max_response_bytes", 64<<20)
	viper.SetDefault("generator.studio.image_provider", "gemini")
	viper.SetDefault("generator.studio.shot_seconds", 5)
	viper.SetDefault("generator.studio.job_ttl", "24h")

	// AI
	viper.SetDefault("ai.provider", "openai")
	viper.SetDefault("ai.model", "gpt-4o")
	viper.SetDefault("ai.options.temperature", 0.8)
	viper.SetDefault("ai.options.max_tokens", 4096)
	viper.SetDefault("ai.options.top_p", 1.0)

	// Gemini / Ark
	viper.SetDefault("gemini.image_model", "gemini-2.5-flash-image")
	viper.SetDefault("ark.base_url", "https://ark.cn-beijing.volces.com/api/v3")
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return cfg
}
