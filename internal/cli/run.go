package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lightbench/litctl/internal/auth"
	"github.com/lightbench/litctl/internal/config"
	"github.com/lightbench/litctl/internal/device"
	"github.com/lightbench/litctl/internal/logging"
	"github.com/lightbench/litctl/internal/playback"
	"github.com/lightbench/litctl/internal/server"
	"github.com/lightbench/litctl/internal/telemetry"
	"github.com/lightbench/litctl/internal/watch"
)

// statusPoll is how often run samples playback state for progress logging
// and completion detection.
const statusPoll = 200 * time.Millisecond

var (
	runRepeats    int
	runWatch      bool
	runServe      bool
	runPort       int
	runConfigPath string
	runLogLevel   string
)

var runCmd = &cobra.Command{
	Use:   "run <schedule-file>",
	Short: "Play a schedule against the bench device",
	Long: `run loads a schedule file and plays it against the bench device,
transmitting each row's setpoint on the lit_time channel at the scheduled
delays. Playback exits when the schedule finishes unless --watch or --serve
keeps the session alive.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runRepeats, "repeats", 0, "number of extra loops through the schedule")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "reload the schedule when the file changes")
	runCmd.Flags().BoolVar(&runServe, "serve", false, "expose the web monitor")
	runCmd.Flags().IntVar(&runPort, "port", 0, "web monitor port (overrides config)")
	runCmd.Flags().StringVar(&runConfigPath, "config", ".litctl/config.yaml", "path to the config file")
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "", "log level (overrides config)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return err
	}

	levelName := cfg.LogLevel
	if runLogLevel != "" {
		levelName = runLogLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	log := logging.Default()
	log.SetLevel(level)

	sim := device.NewSim()
	ctl := playback.NewController(playback.ControllerOptions{
		Transport:    sim,
		SendDeadline: cfg.Device.SendDeadline(),
		Logger:       log,
	})

	path := args[0]
	if err := ctl.Load(path); err != nil {
		return err
	}
	if runRepeats > 0 {
		if err := ctl.SetRepeats(runRepeats); err != nil {
			return err
		}
	}

	// cmd.Context() is nil unless the command ran through Execute.
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runWatch {
		w, err := watch.New(path, watch.DefaultDebounce, func() {
			if err := ctl.Reload(); err != nil {
				log.Warn("schedule reload failed", "path", path, "error", err)
				return
			}
			log.Info("schedule reloaded", "path", path)
		}, log)
		if err != nil {
			return err
		}
		defer w.Close()
		go func() { _ = w.Run(ctx) }()
	}

	serverErr := make(chan error, 1)
	if runServe {
		srv, err := buildServer(cfg, sim, ctl, log)
		if err != nil {
			return err
		}
		go func() { serverErr <- srv.Start(ctx) }()
		defer srv.Stop()
	}

	if err := ctl.Play(); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	status := ctl.Status()
	log.Info("playback started", "path", path, "rows", status.Length, "loops", status.TotalLoops)

	return waitPlayback(ctx, cmd, ctl, log, serverErr)
}

// buildServer assembles the web monitor from config, prompting for a
// password when the config carries no hash.
func buildServer(cfg *config.Config, sim *device.Sim, ctl *playback.Controller, log *logging.Logger) (*server.Server, error) {
	hash := ""
	port := runPort
	if cfg.Server != nil {
		hash = cfg.Server.PasswordHash
		if port == 0 {
			port = cfg.Server.Port
		}
	}
	if port == 0 {
		port = config.DefaultServerPort
	}
	if hash == "" {
		password, err := auth.PromptPassword()
		if err != nil {
			return nil, err
		}
		hash, err = auth.HashPassword(password)
		if err != nil {
			return nil, err
		}
	}

	interval := device.NewIntervalControl(sim)
	interval.Min = cfg.Control.IntervalMin
	interval.Max = cfg.Control.IntervalMax
	interval.Step = cfg.Control.IntervalStep

	window := telemetry.NewWindow(cfg.Telemetry.WindowSpan())
	window.YMin = cfg.Telemetry.YMin
	window.YMax = cfg.Telemetry.YMax

	return server.New(server.Options{
		Port:         port,
		PasswordHash: hash,
		Controller:   ctl,
		Interval:     interval,
		Source:       telemetry.NewPoller(sim, cfg.Device.PollPeriod(), log),
		Window:       window,
		Logger:       log,
	})
}

// waitPlayback blocks until playback finishes, the context is cancelled, or
// the web monitor fails. With --watch or --serve the session outlives the
// schedule and only a signal ends it.
func waitPlayback(ctx context.Context, cmd *cobra.Command, ctl *playback.Controller, log *logging.Logger, serverErr <-chan error) error {
	ticker := time.NewTicker(statusPoll)
	defer ticker.Stop()

	lastIndex := -1
	lastBanner := ""
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil

		case err := <-serverErr:
			if err != nil {
				return err
			}

		case <-ticker.C:
			st := ctl.Status()
			if st.Running && st.ActiveIndex != lastIndex {
				lastIndex = st.ActiveIndex
				log.Debug("playback advanced", "row", st.ActiveIndex, "progress", fmt.Sprintf("%.0f%%", st.Progress*100))
			}
			if banner := st.Banner; banner != "" && banner != lastBanner {
				lastBanner = banner
				log.Warn(banner)
			}
			if !st.Running && !runWatch && !runServe {
				fmt.Fprintf(cmd.OutOrStdout(), "playback finished at row %d\n", st.ActiveIndex)
				return nil
			}
		}
	}
}
