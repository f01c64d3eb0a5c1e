package modeext

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode is a framework power mode.
type Mode int32

const (
	ModeDoubleTapToWake          Mode = 0
	ModeLowPower                 Mode = 1
	ModeSustainedPerformance     Mode = 2
	ModeFixedPerformance         Mode = 3
	ModeVR                       Mode = 4
	ModeLaunch                   Mode = 5
	ModeExpensiveRendering       Mode = 6
	ModeInteractive              Mode = 7
	ModeDeviceIdle               Mode = 8
	ModeDisplayInactive          Mode = 9
	ModeAudioStreamingLowLatency Mode = 10
	ModeCameraStreamingSecure    Mode = 11
	ModeCameraStreamingLow       Mode = 12
	ModeCameraStreamingMid       Mode = 13
	ModeCameraStreamingHigh      Mode = 14
)

var modeNames = [...]string{
	ModeDoubleTapToWake:          "DOUBLE_TAP_TO_WAKE",
	ModeLowPower:                 "LOW_POWER",
	ModeSustainedPerformance:     "SUSTAINED_PERFORMANCE",
	ModeFixedPerformance:         "FIXED_PERFORMANCE",
	ModeVR:                       "VR",
	ModeLaunch:                   "LAUNCH",
	ModeExpensiveRendering:       "EXPENSIVE_RENDERING",
	ModeInteractive:              "INTERACTIVE",
	ModeDeviceIdle:               "DEVICE_IDLE",
	ModeDisplayInactive:          "DISPLAY_INACTIVE",
	ModeAudioStreamingLowLatency: "AUDIO_STREAMING_LOW_LATENCY",
	ModeCameraStreamingSecure:    "CAMERA_STREAMING_SECURE",
	ModeCameraStreamingLow:       "CAMERA_STREAMING_LOW",
	ModeCameraStreamingMid:       "CAMERA_STREAMING_MID",
	ModeCameraStreamingHigh:      "CAMERA_STREAMING_HIGH",
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return strconv.Itoa(int(m))
}

// ParseMode accepts a mode name (case-insensitive), "dt2w", or a numeric
// value.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return Mode(n), nil
	}
	up := strings.ToUpper(s)
	if up == "DT2W" {
		return ModeDoubleTapToWake, nil
	}
	for i, name := range modeNames {
		if name == up {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown power mode %q", s)
}
