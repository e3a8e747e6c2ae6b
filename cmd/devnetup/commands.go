package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nodeward/devnetup"
	"github.com/nodeward/devnetup/pkg/client"
)

// errBootstrap marks failures before the devnet was serving. main maps it
// to exit code 2 so a failed bootstrap is distinguishable from a crashed
// child.
var errBootstrap = errors.New("devnet bootstrap failed")

// childExitError carries a supervised child's nonzero exit code to main.
type childExitError struct{ code int }

func (e childExitError) Error() string {
	return fmt.Sprintf("child exited with code %d", e.code)
}

// createUpCommand creates the up subcommand, the container entrypoint.
func createUpCommand(g *GlobalFlags, f *UpFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Bootstrap the devnet and block until its processes exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := devnetup.LoadConfig(g.ConfigPath)
			if err != nil {
				return err
			}
			if f.SkipBridge {
				cfg.Bridge.Enabled = false
			}
			return runUp(cfg)
		},
	}
	cmd.Flags().BoolVar(&f.SkipBridge, "skip-bridge", false, "launch only the validator")
	return cmd
}

func runUp(cfg devnetup.Config) error {
	logger := devnetup.NewLogger(cfg.Log.Level)
	orc := devnetup.New(cfg, logger)

	if cfg.Store != nil {
		st, err := devnetup.NewEventStore(cfg.Store)
		if err != nil {
			return fmt.Errorf("open event store: %w", err)
		}
		defer func() { _ = st.Close() }()
		if err := st.EnsureSchema(context.Background()); err != nil {
			return fmt.Errorf("event store schema: %w", err)
		}
		orc.SetEventStore(st)
	}

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		if err := devnetup.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			logger.Warn("metrics registration failed", "error", err)
		}
		go func() {
			if err := devnetup.ServeMetrics(cfg.Metrics.Listen); err != nil {
				logger.Warn("metrics listener stopped", "error", err)
			}
		}()
	}

	if cfg.Server != nil && cfg.Server.Listen != "" {
		srv, err := devnetup.NewHTTPServer(cfg.Server.Listen, cfg.Server.BasePath, orc)
		if err != nil {
			logger.Warn("status server failed to start", "error", err)
		} else {
			defer func() { _ = srv.Close() }()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := orc.Run(ctx); err != nil {
		orc.Shutdown()
		return fmt.Errorf("%w: %w", errBootstrap, err)
	}

	// The entrypoint contract: stay alive exactly as long as the children.
	go func() {
		<-ctx.Done()
		logger.Info("signal received, stopping children")
		orc.Shutdown()
	}()

	err := orc.Wait()
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return childExitError{code: ee.ExitCode()}
	}
	return err
}

// createStatusCommand creates the status subcommand
func createStatusCommand(f *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the run snapshot of a running devnet entrypoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel := apiClient(f)
			defer cancel()
			if !c.IsReachable(ctx) {
				return fmt.Errorf("devnet not reachable at %s - is 'devnetup up' running?", f.APIUrl)
			}
			snap, err := c.Status(ctx)
			if err != nil {
				return err
			}
			printJSON(snap)
			return nil
		},
	}
	addAPIFlags(cmd, f)
	return cmd
}

// createEndpointsCommand creates the endpoints subcommand
func createEndpointsCommand(f *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "Print the child service addresses of a running devnet",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel := apiClient(f)
			defer cancel()
			eps, err := c.Endpoints(ctx)
			if err != nil {
				return err
			}
			printJSON(eps)
			return nil
		},
	}
	addAPIFlags(cmd, f)
	return cmd
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the devnetup version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func addAPIFlags(cmd *cobra.Command, f *StatusFlags) {
	cmd.Flags().StringVar(&f.APIUrl, "api-url", "http://127.0.0.1:8081", "base URL of the devnetup status API")
	cmd.Flags().DurationVar(&f.APITimeout, "api-timeout", 10*time.Second, "request timeout for API calls")
}

func apiClient(f *StatusFlags) (*client.Client, context.Context, context.CancelFunc) {
	c := client.New(client.Config{BaseURL: f.APIUrl, Timeout: f.APITimeout})
	ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout)
	return c, ctx, cancel
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%+v\n", v)
		return
	}
	fmt.Println(string(b))
}
