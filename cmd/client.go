package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xiaomi-sm6250/powerhal/internal/client"
	"github.com/xiaomi-sm6250/powerhal/internal/protocol"
	"github.com/xiaomi-sm6250/powerhal/internal/ui"
)

const callTimeout = 5 * time.Second

var flagHAL string

func init() {
	hintCmd.Flags().StringVar(&flagHAL, "hal", protocol.Version13, "HAL version dispatching the hint: 1.0, 1.2 or 1.3")
	rootCmd.AddCommand(hintCmd, interactiveCmd, featureCmd, modeCmd, modeSupportedCmd, statusCmd, statsCmd)
}

// call dials the configured endpoint, runs one request and closes.
func call(typ string, payload, out interface{}) error {
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	c, err := client.Dial(ctx, cfg.URL())
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Do(ctx, typ, payload, out)
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "enable":
		return true, nil
	case "off", "false", "0", "disable":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

var hintCmd = &cobra.Command{
	Use:   "hint <HINT> [DATA]",
	Short: "Send a power hint",
	Long: `Sends a power hint by name (LAUNCH, INTERACTION, ...) or number.
DATA defaults to 0; for boolean hints non-zero means enable, for
INTERACTION it is the boost duration in milliseconds.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data int64
		if len(args) == 2 {
			var err error
			data, err = strconv.ParseInt(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid data %q: %w", args[1], err)
			}
		}
		err := call(protocol.TypePowerHint, protocol.PowerHintPayload{
			Hint:    protocol.Enum(args[0]),
			Data:    int32(data),
			Version: flagHAL,
		}, nil)
		if err != nil {
			return err
		}
		ui.Success("%s %d sent", args[0], data)
		return nil
	},
}

var interactiveCmd = &cobra.Command{
	Use:   "interactive on|off",
	Short: "Set the interactive (screen on) state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseOnOff(args[0])
		if err != nil {
			return err
		}
		if err := call(protocol.TypeSetInteractive, protocol.SetInteractivePayload{Interactive: on}, nil); err != nil {
			return err
		}
		ui.Success("interactive %s", args[0])
		return nil
	},
}

var featureCmd = &cobra.Command{
	Use:   "feature <FEATURE> on|off",
	Short: "Toggle a device feature (dt2w)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseOnOff(args[1])
		if err != nil {
			return err
		}
		err = call(protocol.TypeSetFeature, protocol.SetFeaturePayload{
			Feature:  protocol.Enum(args[0]),
			Activate: on,
		}, nil)
		if err != nil {
			return err
		}
		ui.Success("%s %s", args[0], args[1])
		return nil
	},
}

var modeCmd = &cobra.Command{
	Use:   "mode <MODE> on|off",
	Short: "Set a device mode (LAUNCH, DOUBLE_TAP_TO_WAKE)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseOnOff(args[1])
		if err != nil {
			return err
		}
		var res protocol.ModeResult
		err = call(protocol.TypeSetMode, protocol.ModePayload{Mode: protocol.Enum(args[0]), Enabled: on}, &res)
		if err != nil {
			return err
		}
		ui.Success("%s %s", res.Mode, args[1])
		return nil
	},
}

var modeSupportedCmd = &cobra.Command{
	Use:   "mode-supported <MODE>",
	Short: "Report whether a device mode is supported",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res protocol.ModeResult
		if err := call(protocol.TypeIsModeSupported, protocol.ModePayload{Mode: protocol.Enum(args[0])}, &res); err != nil {
			return err
		}
		ui.KeyValue(res.Mode, strconv.FormatBool(res.Supported))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show HAL readiness",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var st protocol.StatusResult
		if err := call(protocol.TypeStatus, nil, &st); err != nil {
			return err
		}
		ui.KeyValue("Ready", strconv.FormatBool(st.Ready))
		ui.KeyValue("Sustained", strconv.FormatBool(st.SustainedPerf))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show platform and subsystem low-power stats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, typ := range []string{protocol.TypeGetPlatformLowPowerStats, protocol.TypeGetSubsystemLowPowerStats} {
			var res struct {
				Status int32         `json:"status"`
				States []interface{} `json:"states"`
			}
			if err := call(typ, nil, &res); err != nil {
				return err
			}
			ui.KeyValue(strings.TrimPrefix(typ, "get_"), fmt.Sprintf("status=%d states=%d", res.Status, len(res.States)))
		}
		return nil
	},
}
