package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"kisansight/api/internal/config"
)

var (
	envFile   string
	logLevel  string
	port      string
	modelName string
	promptDir string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "kisansight",
	Short: "KisanSight - crop prediction and leaf disease detection for Indian farmers",
	Long: `KisanSight serves two advisory panels backed by a Gemini model:

  crop predictor   state, district, soil and climate in; best crops, yield,
                   suitability, risks and tips out
  disease detector one leaf photo in; disease, severity, treatment,
                   prevention and advice out

Both are available as a web page, a JSON API and a Telegram bot.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadDotEnv(envFile)
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg)

		logger, err = newLogger(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "Gemini model id (overrides GEMINI_MODEL)")
	rootCmd.PersistentFlags().StringVar(&promptDir, "prompt-dir", "", "directory with predict.tmpl / detect.tmpl overrides (overrides PROMPT_DIR)")
	serveCmd.Flags().StringVar(&port, "port", "", "HTTP port (overrides PORT)")
	botCmd.Flags().StringVar(&port, "port", "", "HTTP port for the webhook and /healthz (overrides PORT)")

	rootCmd.AddCommand(serveCmd, botCmd, predictCmd, detectCmd)
}

// applyFlags lets explicitly set flags win over the environment.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	if cmd.Flags().Changed("log-level") {
		c.LogLevel = logLevel
	}
	if cmd.Flags().Changed("model") {
		c.GeminiModel = modelName
	}
	if cmd.Flags().Changed("prompt-dir") {
		c.PromptDir = promptDir
	}
	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		c.Port = port
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
