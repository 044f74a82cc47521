package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	errwrap "github.com/portalgate/portalgate/internal/errors"
	"github.com/portalgate/portalgate/internal/export"
	"github.com/portalgate/portalgate/internal/observability"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the full catalog to JSON files",
	Long: `Fetch every character, location, and episode from the upstream
catalog and write one JSON file per resource type.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration invalid")
		}

		client := buildUpstream(cfg, observability.CLILogger)
		defer client.Close()
		exporter := buildExporter(cfg, client, observability.CLILogger)

		observability.CLILogger.Info("Starting catalog export",
			zap.String("dir", cfg.Export.Dir),
			zap.String("upstream", cfg.Upstream.BaseURL))

		results, runErr := exporter.Run(cmd.Context())
		fmt.Println(export.Summary(results))
		if runErr != nil {
			return errwrap.WrapExternalService(cmd.Context(), runErr, "catalog export incomplete")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("dir", "exports", "output directory for JSON files")
	_ = viper.BindPFlag("export.dir", exportCmd.Flags().Lookup("dir"))
}
