package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/portalgate/portalgate/internal/errors"
	"github.com/portalgate/portalgate/internal/observability"
)

var cachePattern string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Cache administration",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached responses matching a pattern",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration invalid")
		}
		if cfg.Cache.Backend == "memory" {
			return errwrap.NewInvalidInputError(
				"the memory cache is per-process; use the gateway's /cache/clear endpoint instead")
		}

		store := buildCache(cfg)
		defer func() { _ = store.Close() }()

		removed, err := store.InvalidateByPattern(cmd.Context(), cachePattern)
		if err != nil {
			return errwrap.WrapExternalService(cmd.Context(), err, "cache clear failed")
		}

		observability.CLILogger.Info("Cache cleared",
			zap.String("pattern", cachePattern),
			zap.Int("removed", removed))
		fmt.Printf("Removed %d cached entries matching %q\n", removed, cachePattern)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheClearCmd.Flags().StringVar(&cachePattern, "pattern", "*", "key pattern to invalidate")
}
