// Command dashboard is the headless weather dashboard. It keeps the tracked
// city list, refreshes one forecast card per city and can serve the cards as
// JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/config"
	"github.com/kjstillabower/weather-dashboard/internal/dashboard"
	httphandler "github.com/kjstillabower/weather-dashboard/internal/http"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

func main() {
	logger, err := observability.NewLogger("dashboard")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = newRootCmd(logger).ExecuteContext(ctx)
	stop()
	_ = observability.FlushTelemetry(context.Background(), logger)
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "dashboard",
		Short:        "Weather dashboard for a list of tracked cities",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config-dir", "", "directory holding {ENV_NAME}.yaml (default: $CONFIG_DIR or ./config)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Keep the cards fresh and serve them on /cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, logger, nil, func(ctx context.Context, a *app) error {
				return serve(ctx, a)
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print the tracked cities and their current cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, logger, nil, func(ctx context.Context, a *app) error {
				if err := a.ctrl.Start(ctx); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), snapshot(a.ctrl))
			})
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <city label>",
		Short: "Resolve a city by label, start tracking it and fetch its forecast",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := strings.Join(args, " ")
			return withApp(cmd, logger, nil, func(ctx context.Context, a *app) error {
				if err := a.ctrl.Start(ctx); err != nil {
					return err
				}
				entry, err := a.ctrl.AddCity(ctx, label)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), entry)
			})
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <key>",
		Short: "Stop tracking a city",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, logger, nil, func(ctx context.Context, a *app) error {
				if err := a.ctrl.Start(ctx); err != nil {
					return err
				}
				if !a.ctrl.RemoveCity(ctx, args[0]) {
					fmt.Fprintf(cmd.ErrOrStderr(), "city %s is not tracked\n", args[0])
				}
				return printJSON(cmd.OutOrStdout(), a.ctrl.Tracked())
			})
		},
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Re-fetch every card and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, logger, nil, func(ctx context.Context, a *app) error {
				if err := a.ctrl.Start(ctx); err != nil {
					return err
				}
				if err := a.ctrl.Refresh(ctx); err != nil {
					logger.Warn("refresh incomplete", zap.Error(err))
				}
				return printJSON(cmd.OutOrStdout(), snapshot(a.ctrl))
			})
		},
	}

	locateCmd := &cobra.Command{
		Use:   "locate",
		Short: "Look up the city at the current position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			locator, err := locatorFromFlags(cmd)
			if err != nil {
				return err
			}
			add, _ := cmd.Flags().GetBool("add")
			return withApp(cmd, logger, locator, func(ctx context.Context, a *app) error {
				a.ctrl.OpenAddDialog()
				label, err := a.ctrl.UseMyLocation(ctx)
				if err != nil {
					return err
				}
				if a.ctrl.Dialog().NudgeVisible {
					fmt.Fprintln(cmd.ErrOrStderr(), "location lookup timed out, enter a city with `dashboard add`")
					return nil
				}
				if label == "" {
					return errors.New("no city found for the current position")
				}
				if !add {
					fmt.Fprintln(cmd.OutOrStdout(), label)
					return nil
				}
				if err := a.ctrl.Start(ctx); err != nil {
					return err
				}
				entry, err := a.ctrl.AddCity(ctx, label)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), entry)
			})
		},
	}
	locateCmd.Flags().Bool("add", false, "track the located city")
	locateCmd.Flags().Float64("lat", 0, "fixed latitude instead of the geolocation endpoint")
	locateCmd.Flags().Float64("lon", 0, "fixed longitude instead of the geolocation endpoint")

	suggestCmd := &cobra.Command{
		Use:   "suggest <term>",
		Short: "List city names starting with term",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ac := client.NewAutocompleteClient(cfg.Dashboard.AutocompleteURL, &http.Client{Timeout: cfg.Dashboard.CallTimeout})
			names, err := ac.Suggest(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, addCmd, removeCmd, refreshCmd, locateCmd, suggestCmd)
	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, _ := cmd.Flags().GetString("config-dir")
	if dir != "" {
		return config.LoadFrom(dir)
	}
	return config.Load()
}

// withApp loads the config, wires the controller and runs fn with it.
func withApp(cmd *cobra.Command, logger *zap.Logger, locator client.Locator, fn func(context.Context, *app) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, logger, locator)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(cmd.Context(), a)
}

// locatorFromFlags returns a fixed-position locator when both --lat and
// --lon are given, nil when neither is.
func locatorFromFlags(cmd *cobra.Command) (client.Locator, error) {
	latSet := cmd.Flags().Changed("lat")
	lonSet := cmd.Flags().Changed("lon")
	if latSet != lonSet {
		return nil, errors.New("--lat and --lon must be given together")
	}
	if !latSet {
		return nil, nil
	}
	lat, _ := cmd.Flags().GetFloat64("lat")
	lon, _ := cmd.Flags().GetFloat64("lon")
	return client.StaticLocator{Coords: client.Coords{Latitude: lat, Longitude: lon}}, nil
}

type view struct {
	Phase  dashboard.Phase    `json:"phase"`
	Cities []models.CityEntry `json:"cities"`
	Cards  []dashboard.Card   `json:"cards"`
}

func snapshot(ctrl *dashboard.Controller) view {
	return view{Phase: ctrl.Phase(), Cities: ctrl.Tracked(), Cards: ctrl.Cards()}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// serve starts the controller, the optional refresh scheduler and the
// /cards listener, and blocks until ctx is done.
func serve(ctx context.Context, a *app) error {
	cfg, logger := a.cfg, a.logger
	if err := a.ctrl.Start(ctx); err != nil {
		return err
	}

	if cfg.Dashboard.RefreshInterval > 0 {
		sched, err := dashboard.NewScheduler(ctx, a.ctrl, cfg.Dashboard.RefreshInterval, logger)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			if err := sched.Stop(); err != nil {
				logger.Warn("scheduler shutdown", zap.Error(err))
			}
		}()
		logger.Info("periodic refresh enabled", zap.Duration("interval", cfg.Dashboard.RefreshInterval))
	}

	router := httphandler.NewDashboardRouter(httphandler.NewDashboardHandler(a.ctrl), logger)
	srv := &http.Server{
		Addr:         ":" + cfg.Dashboard.ListenPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("dashboard listening", zap.String("addr", srv.Addr), zap.Int("cities", len(a.ctrl.Tracked())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("dashboard server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("graceful shutdown triggered")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}
