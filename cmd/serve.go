package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"reel/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Reel API server. Films that were still being shot when the
previous process stopped are picked up again and polled to completion.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()

	// Server flags
	flags.StringP("host", "H", "0.0.0.0", "server host")
	flags.IntP("port", "p", 7080, "server port")
	flags.String("mode", "release", "server mode (debug/release/test)")

	// Pipeline flags
	flags.String("store", "memory", "draft store (mongo/supabase/memory)")
	flags.String("generator", "remote", "generation backend (remote/studio)")
	flags.String("generator-url", "", "remote generation service base URL")

	// Log flags
	flags.String("log-level", "info", "log level (trace/debug/info/warn/error/fatal)")
	flags.String("log-format", "console", "log format (json/console)")

	// Bind flags to viper
	_ = viper.BindPFlag("server.host", flags.Lookup("host"))
	_ = viper.BindPFlag("server.port", flags.Lookup("port"))
	_ = viper.BindPFlag("server.mode", flags.Lookup("mode"))
	_ = viper.BindPFlag("store.type", flags.Lookup("store"))
	_ = viper.BindPFlag("generator.type", flags.Lookup("generator"))
	_ = viper.BindPFlag("generator.remote.base_url", flags.Lookup("generator-url"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	// Validate config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	// 恢复上次退出时仍在成片中的创作
	resumed, err := a.svc.ResumeActive(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to resume active films")
	} else if resumed > 0 {
		log.Info().Int("count", resumed).Msg("resumed films in progress")
	}

	srv := server.New(cfg, a.svc, a.storage, a.health)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info().
		Str("addr", addr).
		Str("mode", cfg.Server.Mode).
		Str("store", cfg.Store.Type).
		Str("generator", cfg.Generator.Type).
		Msg("starting server")

	return srv.Run(ctx, addr)
}
