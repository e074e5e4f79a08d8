// Command seed loads a city export ({"cities": {"<id>": "<name>"}}) into the
// storm city index used by the search service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/cityindex"
	"github.com/kjstillabower/weather-dashboard/internal/config"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

func main() {
	logger, err := observability.NewLogger("seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = newSeedCmd(logger).ExecuteContext(ctx)
	stop()
	_ = observability.FlushTelemetry(context.Background(), logger)
	if err != nil {
		os.Exit(1)
	}
}

func newSeedCmd(logger *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Import a city export into the city index",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			seedFile, _ := cmd.Flags().GetString("file")
			indexPath, _ := cmd.Flags().GetString("index")
			if seedFile == "" || indexPath == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				if seedFile == "" {
					seedFile = cfg.CitiesSeedFile
				}
				if indexPath == "" {
					indexPath = cfg.CitiesPath
				}
			}
			n, err := seed(cmd.Context(), seedFile, indexPath)
			if err != nil {
				return err
			}
			logger.Info("city index seeded", zap.String("seed_file", seedFile), zap.String("path", indexPath), zap.Int("cities", n))
			return nil
		},
	}
	cmd.Flags().String("file", "", "city export to import (default: cities.seed_file)")
	cmd.Flags().String("index", "", "index database path (default: cities.path)")
	return cmd
}

// seed imports seedFile into the index at indexPath and returns the number
// of cities in the index afterwards.
func seed(ctx context.Context, seedFile, indexPath string) (int, error) {
	if seedFile == "" {
		return 0, fmt.Errorf("no seed file configured")
	}
	f, err := os.Open(seedFile)
	if err != nil {
		return 0, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	cities, err := cityindex.LoadSeed(f)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return 0, fmt.Errorf("create index directory: %w", err)
	}
	idx, err := cityindex.OpenStorm(indexPath)
	if err != nil {
		return 0, err
	}
	defer idx.Close()
	if err := idx.Import(ctx, cities); err != nil {
		return 0, err
	}
	return idx.Count()
}
