package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"split-compositor/internal/app"
	"split-compositor/internal/platform/config"
	"split-compositor/internal/platform/logger"
)

type commandContext struct {
	envFlag      *string
	logLevelFlag *string
	storeRoot    *string

	once       sync.Once
	cfg        config.Config
	log        *slog.Logger
	components *app.Components
	err        error
}

func newRootCommand() *cobra.Command {
	var envFlag, logLevelFlag, storeRoot string
	ctx := &commandContext{envFlag: &envFlag, logLevelFlag: &logLevelFlag, storeRoot: &storeRoot}

	rootCmd := &cobra.Command{
		Use:           "composer",
		Short:         "Compose two videos into one split-screen video",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "", "Path to a .env file (default: .env when present)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&storeRoot, "store-root", "", "Filesystem store root; forces the fs backend")

	rootCmd.AddCommand(newRenderCommand(ctx))
	rootCmd.AddCommand(newPlanCommand(ctx))
	rootCmd.AddCommand(newLayoutCommand())

	return rootCmd
}

// ensure loads configuration once and builds the engine. Logs go to the
// command's stderr so stdout carries only command output.
func (c *commandContext) ensure(cmd *cobra.Command) (*app.Components, error) {
	c.once.Do(func() {
		if path := strings.TrimSpace(*c.envFlag); path != "" {
			if err := config.Load(path); err != nil {
				c.err = fmt.Errorf("load env file: %w", err)
				return
			}
		} else {
			_ = config.Load()
		}
		c.cfg = config.FromEnv()
		if lvl := strings.TrimSpace(*c.logLevelFlag); lvl != "" {
			c.cfg.LogLevel = lvl
		}
		if root := strings.TrimSpace(*c.storeRoot); root != "" {
			c.cfg.StorageBackend = config.StorageFS
			c.cfg.StorageRoot = root
		}
		c.log = logger.NewWithWriter(cmd.ErrOrStderr(), c.cfg.LogLevel, "text")
		c.components, c.err = app.New(c.cfg, c.log)
	})
	return c.components, c.err
}
