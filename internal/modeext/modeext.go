package modeext

import (
	"errors"

	"github.com/xiaomi-sm6250/powerhal/internal/inputdev"
	"github.com/xiaomi-sm6250/powerhal/internal/logger"
	"github.com/xiaomi-sm6250/powerhal/internal/perf"
)

// TouchController toggles the touchscreen's wake gesture.
type TouchController interface {
	SetWakeupMode(on bool) error
}

// Toggler implements the device-specific power modes.
type Toggler struct {
	touch  TouchController
	launch *launchBoost
}

// New returns a Toggler issuing launch boosts on engine.
func New(engine perf.Engine, touch TouchController) *Toggler {
	return &Toggler{
		touch:  touch,
		launch: &launchBoost{engine: engine, handle: -1},
	}
}

// IsModeSupported reports whether m is handled by SetMode.
func (t *Toggler) IsModeSupported(m Mode) bool {
	switch m {
	case ModeLaunch, ModeDoubleTapToWake:
		return true
	default:
		return false
	}
}

// SetMode applies m and reports whether it was handled.
func (t *Toggler) SetMode(m Mode, enabled bool) bool {
	switch m {
	case ModeLaunch:
		t.launch.set(enabled)
		return true
	case ModeDoubleTapToWake:
		err := t.touch.SetWakeupMode(enabled)
		if errors.Is(err, inputdev.ErrNotFound) {
			logger.Warnf("DT2W won't work because no supported touchscreen input devices were found")
			return false
		}
		if err != nil {
			logger.Errorf("DT2W: %v", err)
		}
		return true
	default:
		return false
	}
}
