package power

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xiaomi-sm6250/powerhal/internal/inputdev"
	"github.com/xiaomi-sm6250/powerhal/internal/logger"
)

// Feature is an optional framework feature.
type Feature int32

const (
	FeatureDoubleTapToWake Feature = 1
)

func (f Feature) String() string {
	if f == FeatureDoubleTapToWake {
		return "POWER_FEATURE_DOUBLE_TAP_TO_WAKE"
	}
	return strconv.Itoa(int(f))
}

// ParseFeature accepts the feature name, "dt2w", or a numeric value.
func ParseFeature(s string) (Feature, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return Feature(n), nil
	}
	switch strings.ToUpper(s) {
	case "POWER_FEATURE_DOUBLE_TAP_TO_WAKE", "DOUBLE_TAP_TO_WAKE", "DT2W":
		return FeatureDoubleTapToWake, nil
	}
	return 0, fmt.Errorf("unknown power feature %q", s)
}

// SetFeature enables or disables a feature. Only double-tap-to-wake is
// supported; other features are ignored.
func (p *Power) SetFeature(f Feature, activate bool) {
	if f != FeatureDoubleTapToWake {
		return
	}
	err := p.opts.Touch.SetWakeupMode(activate)
	switch {
	case errors.Is(err, inputdev.ErrNotFound):
		logger.Warnf("DT2W won't work because no supported touchscreen input devices were found")
	case err != nil:
		logger.Errorf("DT2W: %v", err)
	}
}

// Status is the result code of stats queries.
type Status int32

const (
	StatusSuccess         Status = 0
	StatusFilesystemError Status = 1
)

// PlatformSleepState describes a platform low-power state.
type PlatformSleepState struct {
	Name                     string `json:"name"`
	ResidencyInMsecSinceBoot uint64 `json:"residency_ms"`
	TotalTransitions         uint64 `json:"total_transitions"`
	SupportedOnlyInSuspend   bool   `json:"supported_only_in_suspend"`
}

// SubsystemStats describes the low-power states of one subsystem.
type SubsystemStats struct {
	Name   string               `json:"name"`
	States []PlatformSleepState `json:"states"`
}

// GetPlatformLowPowerStats is unsupported; stats come from a separate
// power stats service.
func (p *Power) GetPlatformLowPowerStats() ([]PlatformSleepState, Status) {
	logger.Errorf("getPlatformLowPowerStats not supported. Use IPowerStats HAL.")
	return []PlatformSleepState{}, StatusSuccess
}

// GetSubsystemLowPowerStats is unsupported; see GetPlatformLowPowerStats.
func (p *Power) GetSubsystemLowPowerStats() ([]SubsystemStats, Status) {
	logger.Errorf("getSubsystemLowPowerStats not supported. Use IPowerStats HAL.")
	return []SubsystemStats{}, StatusSuccess
}
