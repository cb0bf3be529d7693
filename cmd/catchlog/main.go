// Command catchlog serves and maintains a local fishing log.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/faideww/catchlog/internal/achievement"
	"github.com/faideww/catchlog/internal/fish"
	"github.com/faideww/catchlog/internal/notify"
	"github.com/faideww/catchlog/internal/userdata"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "catchlog:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "catchlog",
		Short:         "Local fishing log: catches, personal bests and lures",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), bestsCmd(), topCmd(), exportCmd(), clearCmd())
	return root
}

// withApp loads config, builds the app and closes it after fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.Close(closeCtx)
	}()
	return fn(ctx, a)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, serve)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	logger := a.logs.Component("serve")
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.server().Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go watchSessions(ctx, a)

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// watchSessions polls while someone is signed in and announces the
// session ending.
func watchSessions(ctx context.Context, a *app) {
	t := time.NewTicker(a.cfg.SessionPoll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if !a.session.IsLoggedIn(ctx) {
			continue
		}
		err := a.session.Watch(ctx, a.cfg.SessionPoll, func() {
			a.notify.Notify(ctx, notify.Toast{
				Title:       "Session Expired",
				Description: "Please sign in again.",
				Variant:     notify.VariantDestructive,
			})
		})
		if err != nil {
			return
		}
	}
}

func bestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bests",
		Short: "Print personal bests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				for _, pb := range achievement.LoadPersonalBests(ctx, a.kv, a.clock.Now()) {
					fmt.Fprintf(out, "%-28s %8s %-8s %s\n", pb.Title, achievementValue(pb.Value), pb.Unit, pb.Details)
				}
				return nil
			})
		},
	}
}

func achievementValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}

func topCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print the longest catches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				top := achievement.TopCatches(achievement.LoadCatchHistory(ctx, a.kv), limit)
				if len(top) == 0 {
					fmt.Fprintln(out, "No catches yet.")
					return nil
				}
				for i, c := range top {
					weight := "-"
					if c.HasWeight() {
						weight = fish.FormatWeight(*c.Weight)
					}
					fmt.Fprintf(out, "#%d %5.1f in  %-10s %-24s %s (%s)\n",
						i+1, c.Length, weight, c.Species, c.Location, c.Date.Format("2006-01-02"))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", achievement.DefaultTopLimit, "number of catches to show")
	return cmd
}

func exportCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all user data as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if outPath == "-" {
					return a.repo.Export(cmd.OutOrStdout())
				}
				if outPath == "" {
					outPath = userdata.ExportFilename(a.clock.Now())
				}
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				if err := a.repo.Export(f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "exported to", outPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", `output file ("-" for stdout; default fishing-data-<date>.json)`)
	return cmd
}

func clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored catches, bests, lures and session data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear without --yes")
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				a.repo.Clear(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "all data cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
