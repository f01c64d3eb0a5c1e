package modeext

import (
	"sync"
	"time"

	"github.com/xiaomi-sm6250/powerhal/internal/logger"
	"github.com/xiaomi-sm6250/powerhal/internal/perf"
)

const maxLaunchDuration = 4000 * time.Millisecond

// launchBoost holds at most one launch boost request at a time.
type launchBoost struct {
	engine perf.Engine

	mu     sync.Mutex
	active bool
	handle perf.Handle
}

func (l *launchBoost) set(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Release early if the launch has finished.
	if !enabled {
		if l.handle.Valid() {
			if err := l.engine.ReleaseRequest(l.handle); err != nil {
				logger.Debugf("modeext: release launch boost %d: %v", l.handle, err)
			}
		}
		l.handle = -1
		l.active = false
		return
	}

	if l.active {
		return
	}
	h, err := l.engine.HintEnableWithType(perf.VendorHintFirstLaunchBoost, maxLaunchDuration, perf.LaunchBoostV1)
	if err != nil || !h.Valid() {
		logger.Errorf("Failed to perform launch boost: %v", err)
		return
	}
	l.handle = h
	l.active = true
}
