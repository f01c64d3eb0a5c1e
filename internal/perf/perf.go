package perf

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Hint identifies a vendor perf hint.
type Hint int32

const (
	VendorHintFirstLaunchBoost Hint = 0x00001081
)

// LaunchBoostHint is the engine hint backing VendorHintFirstLaunchBoost. It
// is separate from the framework's LAUNCH hint so neither ends the other.
const LaunchBoostHint = "LAUNCH_BOOST"

// Boost types accepted by HintEnableWithType.
const (
	LaunchBoostV1 = 1
)

// ErrInvalidHandle is returned when releasing an unknown request.
var ErrInvalidHandle = errors.New("invalid perf handle")

// Handle identifies an acquired boost request. Only positive handles are
// valid.
type Handle int32

func (h Handle) Valid() bool { return h > 0 }

// Engine grants time-bounded boost requests. Expiry is the engine's job.
type Engine interface {
	HintEnableWithType(hint Hint, d time.Duration, kind int) (Handle, error)
	ReleaseRequest(h Handle) error
}

// Hinter is the hint-engine surface HintEngine issues boosts through.
type Hinter interface {
	DoHintFor(name string, d time.Duration) error
	EndHint(name string) error
}

// HintEngine grants boosts by running named hints on a hint engine.
type HintEngine struct {
	hinter Hinter
	names  map[Hint]string
	next   *atomic.Int32

	mu     sync.Mutex
	active map[Handle]string
}

// NewHintEngine maps perf hints to hint names on h.
func NewHintEngine(h Hinter) *HintEngine {
	return &HintEngine{
		hinter: h,
		names: map[Hint]string{
			VendorHintFirstLaunchBoost: LaunchBoostHint,
		},
		next:   atomic.NewInt32(0),
		active: make(map[Handle]string),
	}
}

func (e *HintEngine) HintEnableWithType(hint Hint, d time.Duration, kind int) (Handle, error) {
	name, ok := e.names[hint]
	if !ok {
		return -1, fmt.Errorf("perf hint %#x (type %d) not mapped", int32(hint), kind)
	}
	if err := e.hinter.DoHintFor(name, d); err != nil {
		return -1, fmt.Errorf("perf hint %#x: %w", int32(hint), err)
	}
	h := Handle(e.next.Inc())

	e.mu.Lock()
	e.active[h] = name
	e.mu.Unlock()
	return h, nil
}

func (e *HintEngine) ReleaseRequest(h Handle) error {
	e.mu.Lock()
	name, ok := e.active[h]
	delete(e.active, h)
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	return e.hinter.EndHint(name)
}
