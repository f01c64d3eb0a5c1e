package interaction

import (
	"sync"
	"time"

	"github.com/xiaomi-sm6250/powerhal/internal/logger"
)

const (
	// HintName is the engine hint boosted on user interaction.
	HintName = "INTERACTION"

	defaultDuration = 100 * time.Millisecond
	maxDuration     = 5000 * time.Millisecond
)

// Booster is the part of the hint engine the handler drives.
type Booster interface {
	DoHintFor(name string, d time.Duration) error
	EndHint(name string) error
}

// Handler turns interaction notifications into time-bounded boosts.
type Handler struct {
	engine Booster

	mu      sync.Mutex
	running bool
}

// New returns a Handler that is inert until Init.
func New(engine Booster) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) Init() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = true
	return nil
}

// Acquire boosts for durationMs, 0 meaning the default window.
func (h *Handler) Acquire(durationMs int32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	d := clampDuration(durationMs)
	if err := h.engine.DoHintFor(HintName, d); err != nil {
		logger.Debugf("interaction: boost %v: %v", d, err)
	}
}

// Exit ends any running boost and makes further Acquire calls no-ops.
func (h *Handler) Exit() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	if err := h.engine.EndHint(HintName); err != nil {
		logger.Debugf("interaction: end boost: %v", err)
	}
}

func clampDuration(ms int32) time.Duration {
	if ms <= 0 {
		return defaultDuration
	}
	d := time.Duration(ms) * time.Millisecond
	if d > maxDuration {
		return maxDuration
	}
	return d
}
