package power

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/xiaomi-sm6250/powerhal/internal/display"
	"github.com/xiaomi-sm6250/powerhal/internal/hint"
	"github.com/xiaomi-sm6250/powerhal/internal/inputdev"
	"github.com/xiaomi-sm6250/powerhal/internal/interaction"
	"github.com/xiaomi-sm6250/powerhal/internal/logger"
	"github.com/xiaomi-sm6250/powerhal/internal/sysprop"
)

// DefaultPolicyPath is where the hint policy ships on the vendor partition.
const DefaultPolicyPath = "/vendor/etc/powerhint.json"

// ErrNotReady is returned by engine passthroughs before initialization
// has finished.
var ErrNotReady = errors.New("power hal not ready")

// HintManager is the hint-dispatch engine.
type HintManager interface {
	DoHint(name string) error
	DoHintFor(name string, d time.Duration) error
	EndHint(name string) error
}

// InteractionHandler turns touch interaction into short boosts.
type InteractionHandler interface {
	Init() error
	Acquire(durationMs int32)
	Exit()
}

// TouchController toggles the touchscreen's wake gesture.
type TouchController interface {
	SetWakeupMode(on bool) error
}

// PropNames are the system properties read during initialization.
type PropNames struct {
	Init      string
	InitValue string
	State     string
	Audio     string
	Rendering string
}

// DefaultProps are the vendor.powerhal.* properties.
var DefaultProps = PropNames{
	Init:      "vendor.powerhal.init",
	InitValue: "1",
	State:     "vendor.powerhal.state",
	Audio:     "vendor.powerhal.audio",
	Rendering: "vendor.powerhal.rendering",
}

// Options configures a Power instance.
type Options struct {
	PolicyPath string
	Props      sysprop.Properties
	PropNames  PropNames
	// Backoff paces polling of the init property; nil uses the defaults.
	Backoff *sysprop.Backoff

	// LoadPolicy builds the hint engine from the policy file.
	LoadPolicy func(path string) (HintManager, error)
	// NewInteraction builds the interaction handler on top of the engine.
	NewInteraction func(HintManager) InteractionHandler

	Display display.LowPowerMode
	Touch   TouchController
}

// Power dispatches framework power requests to the hint engine. Requests
// that arrive before initialization completes are dropped.
type Power struct {
	opts Options

	// Written once by the init task before ready is published.
	hints       HintManager
	interaction InteractionHandler

	ready *atomic.Bool

	// mu guards sustainedPerf and serializes its transitions.
	mu            sync.Mutex
	sustainedPerf bool

	v10, v12, v13 hintHandler

	cancel  context.CancelFunc
	done    chan struct{}
	initErr error
}

// New returns a Power and starts its initialization task.
func New(opts Options) *Power {
	if opts.PolicyPath == "" {
		opts.PolicyPath = DefaultPolicyPath
	}
	if opts.PropNames == (PropNames{}) {
		opts.PropNames = DefaultProps
	}
	if opts.Display == nil {
		opts.Display = &display.NodeLPM{}
	}
	if opts.Touch == nil {
		opts.Touch = inputdev.NewFinder("", nil)
	}
	if opts.Props == nil {
		opts.Props = &sysprop.Getprop{}
	}
	if opts.LoadPolicy == nil {
		opts.LoadPolicy = loadPolicy
	}
	if opts.NewInteraction == nil {
		opts.NewInteraction = func(h HintManager) InteractionHandler { return interaction.New(h) }
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Power{
		opts:   opts,
		ready:  atomic.NewBool(false),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	p.v10 = legacyHints{p: p}
	p.v12 = audioHints{p: p, next: p.v10}
	p.v13 = renderingHints{p: p, next: p.v12}

	go func() {
		defer close(p.done)
		p.initErr = p.initialize(ctx)
	}()
	return p
}

func (p *Power) initialize(ctx context.Context) error {
	names := p.opts.PropNames
	if err := sysprop.WaitFor(ctx, p.opts.Props, names.Init, names.InitValue, p.opts.Backoff); err != nil {
		return fmt.Errorf("wait for %s=%s: %w", names.Init, names.InitValue, err)
	}

	hints, err := p.opts.LoadPolicy(p.opts.PolicyPath)
	if err != nil {
		return fmt.Errorf("invalid config %s: %w", p.opts.PolicyPath, err)
	}
	p.hints = hints

	p.interaction = p.opts.NewInteraction(hints)
	if err := p.interaction.Init(); err != nil {
		return fmt.Errorf("init interaction handler: %w", err)
	}

	if sysprop.Get(p.opts.Props, names.State, "") == HintSustainedPerformance.String() {
		logger.Infof("Initialize with SUSTAINED_PERFORMANCE on")
		p.doHint(HintSustainedPerformance.String())
		p.mu.Lock()
		p.sustainedPerf = true
		p.mu.Unlock()
	} else {
		logger.Infof("Initialize PowerHAL")
	}
	if sysprop.Get(p.opts.Props, names.Audio, "") == HintAudioLowLatency.String() {
		logger.Infof("Initialize with AUDIO_LOW_LATENCY on")
		p.doHint(HintAudioLowLatency.String())
	}
	if sysprop.Get(p.opts.Props, names.Rendering, "") == HintExpensiveRendering.String() {
		logger.Infof("Initialize with EXPENSIVE_RENDERING on")
		p.doHint(HintExpensiveRendering.String())
	}

	p.ready.Store(true)
	logger.Infof("PowerHAL ready to process hints")
	return nil
}

func loadPolicy(path string) (HintManager, error) {
	m, err := hint.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Wait blocks until initialization finishes and returns its error.
func (p *Power) Wait() error {
	<-p.done
	return p.initErr
}

// Ready reports whether initialization has completed.
func (p *Power) Ready() bool {
	return p.ready.Load()
}

// Close cancels a pending initialization and joins the init task. A loaded
// engine with a Close method has its pending timers stopped.
func (p *Power) Close() {
	p.cancel()
	<-p.done
	if p.Ready() {
		p.interaction.Exit()
	}
	if c, ok := p.hints.(interface{ Close() }); ok {
		c.Close()
	}
}

// UpdateHint starts or ends the named engine hint.
func (p *Power) UpdateHint(name string, enable bool) {
	if !p.Ready() {
		return
	}
	p.toggleHint(name, enable)
}

// SetInteractive reports screen on/off.
func (p *Power) SetInteractive(interactive bool) {
	p.UpdateHint(hintNotInteractive, !interactive)
}

// PowerHint handles a 1.0 hint.
func (p *Power) PowerHint(h Hint, data int32) {
	if !p.Ready() {
		return
	}
	p.v10.powerHint(h, data)
}

// PowerHintAsync is the oneway variant of PowerHint.
func (p *Power) PowerHintAsync(h Hint, data int32) {
	p.PowerHint(h, data)
}

// PowerHintAsync12 handles a 1.2 hint, falling back to the 1.0 set.
func (p *Power) PowerHintAsync12(h Hint, data int32) {
	if !p.Ready() {
		return
	}
	p.v12.powerHint(h, data)
}

// PowerHintAsync13 handles a 1.3 hint, falling back to the 1.2 set.
func (p *Power) PowerHintAsync13(h Hint, data int32) {
	if !p.Ready() {
		return
	}
	p.v13.powerHint(h, data)
}

// SustainedPerfMode reports whether sustained performance is engaged.
func (p *Power) SustainedPerfMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sustainedPerf
}

func (p *Power) setSustainedPerf(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case on && !p.sustainedPerf:
		p.doHint(HintSustainedPerformance.String())
		p.sustainedPerf = true
	case !on && p.sustainedPerf:
		p.endHint(HintSustainedPerformance.String())
		p.sustainedPerf = false
	}
}

// DoHintFor runs a timed engine hint. It fails with ErrNotReady until
// initialization completes.
func (p *Power) DoHintFor(name string, d time.Duration) error {
	if !p.Ready() {
		return ErrNotReady
	}
	return p.hints.DoHintFor(name, d)
}

// EndHint ends an engine hint. It fails with ErrNotReady until
// initialization completes.
func (p *Power) EndHint(name string) error {
	if !p.Ready() {
		return ErrNotReady
	}
	return p.hints.EndHint(name)
}

func (p *Power) toggleHint(name string, enable bool) {
	if enable {
		p.doHint(name)
	} else {
		p.endHint(name)
	}
}

func (p *Power) doHint(name string) {
	if err := p.hints.DoHint(name); err != nil {
		logger.Debugf("power: do %s: %v", name, err)
	}
}

func (p *Power) endHint(name string) {
	if err := p.hints.EndHint(name); err != nil {
		logger.Debugf("power: end %s: %v", name, err)
	}
}

func (p *Power) debugf(format string, args ...any) {
	logger.Debugf("power: "+format, args...)
}

func (p *Power) errorf(format string, args ...any) {
	logger.Errorf("power: "+format, args...)
}
