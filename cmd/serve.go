package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xiaomi-sm6250/powerhal/internal/config"
	"github.com/xiaomi-sm6250/powerhal/internal/display"
	"github.com/xiaomi-sm6250/powerhal/internal/inputdev"
	"github.com/xiaomi-sm6250/powerhal/internal/logger"
	"github.com/xiaomi-sm6250/powerhal/internal/modeext"
	"github.com/xiaomi-sm6250/powerhal/internal/perf"
	"github.com/xiaomi-sm6250/powerhal/internal/power"
	"github.com/xiaomi-sm6250/powerhal/internal/server"
	"github.com/xiaomi-sm6250/powerhal/internal/sysprop"
	"github.com/xiaomi-sm6250/powerhal/internal/ui"
)

var flagPolicy string

func init() {
	serveCmd.Flags().StringVar(&flagPolicy, "policy", "", "Hint policy file (default /vendor/etc/powerhint.json)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the power HAL",
	Long: `Starts the power HAL and serves framework requests on the local
WebSocket endpoint.

Initialization waits for the init property, loads the hint policy and
replays the persisted state, audio and rendering properties. Requests
received before that completes are dropped. A policy that fails to load
is fatal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ui.Banner(version)

		cfg, err := loadConfig(flagPolicy)
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stderr)
		ui.KeyValue("Endpoint", cfg.URL())
		ui.KeyValue("Policy", cfg.PolicyPath)
		ui.KeyValue("Properties", propsDescription(cfg))
		ui.KeyValue("Input dir", cfg.Input.Dir)
		ui.Separator()

		touch := inputdev.NewFinder(cfg.Input.Dir, cfg.Input.TouchNames)
		p := power.New(power.Options{
			PolicyPath: cfg.PolicyPath,
			Props:      newProperties(cfg),
			PropNames: power.PropNames{
				Init:      cfg.Props.Init,
				InitValue: cfg.Props.InitValue,
				State:     cfg.Props.State,
				Audio:     cfg.Props.Audio,
				Rendering: cfg.Props.Rendering,
			},
			Backoff: sysprop.NewBackoff(cfg.Properties.PollInterval, 0),
			Display: &display.NodeLPM{Path: cfg.Display.LPMNode},
			Touch:   touch,
		})
		defer p.Close()

		modes := modeext.New(perf.NewHintEngine(p), touch)
		srv := server.New(p, modes, cfg.Path)

		ln, err := net.Listen("tcp", cfg.Listen)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Listen, err)
		}

		go func() {
			err := p.Wait()
			switch {
			case err == nil:
				ui.Success("Power HAL ready")
			case errors.Is(err, context.Canceled):
			default:
				logger.Fatalf("%v", err)
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		go func() {
			<-sigCh
			fmt.Fprintln(os.Stderr)
			ui.Warn("Shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warnf("shutdown: %v", err)
			}
		}()

		ui.Info("Listening on %s", ln.Addr())
		return srv.Serve(ln)
	},
}

func newProperties(cfg *config.Config) sysprop.Properties {
	if cfg.Properties.Backend == "file" {
		return &sysprop.File{Path: cfg.Properties.File}
	}
	return &sysprop.Getprop{}
}

func propsDescription(cfg *config.Config) string {
	if cfg.Properties.Backend == "file" {
		return "file " + cfg.Properties.File
	}
	return "getprop"
}
