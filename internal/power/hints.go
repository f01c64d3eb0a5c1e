package power

import (
	"fmt"
	"strconv"
	"strings"
)

// Hint is a framework power hint. Values are stable across HAL versions;
// later versions only append.
type Hint int32

const (
	HintVsync                Hint = 1
	HintInteraction          Hint = 2
	HintVideoEncode          Hint = 3
	HintVideoDecode          Hint = 4
	HintLowPower             Hint = 5
	HintSustainedPerformance Hint = 6
	HintVRMode               Hint = 7
	HintLaunch               Hint = 8

	// Added in 1.2.
	HintAudioStreaming  Hint = 9
	HintAudioLowLatency Hint = 10
	HintCameraLaunch    Hint = 11
	HintCameraStreaming Hint = 12
	HintCameraShot      Hint = 13

	// Added in 1.3.
	HintExpensiveRendering Hint = 14
)

var hintNames = map[Hint]string{
	HintVsync:                "VSYNC",
	HintInteraction:          "INTERACTION",
	HintVideoEncode:          "VIDEO_ENCODE",
	HintVideoDecode:          "VIDEO_DECODE",
	HintLowPower:             "LOW_POWER",
	HintSustainedPerformance: "SUSTAINED_PERFORMANCE",
	HintVRMode:               "VR_MODE",
	HintLaunch:               "LAUNCH",
	HintAudioStreaming:       "AUDIO_STREAMING",
	HintAudioLowLatency:      "AUDIO_LOW_LATENCY",
	HintCameraLaunch:         "CAMERA_LAUNCH",
	HintCameraStreaming:      "CAMERA_STREAMING",
	HintCameraShot:           "CAMERA_SHOT",
	HintExpensiveRendering:   "EXPENSIVE_RENDERING",
}

func (h Hint) String() string {
	if s, ok := hintNames[h]; ok {
		return s
	}
	return strconv.Itoa(int(h))
}

// ParseHint accepts a hint name (case-insensitive) or its numeric value.
func ParseHint(s string) (Hint, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return Hint(n), nil
	}
	up := strings.ToUpper(s)
	for h, name := range hintNames {
		if name == up {
			return h, nil
		}
	}
	return 0, fmt.Errorf("unknown power hint %q", s)
}

// Engine hint names that are not framework hints.
const (
	hintNotInteractive = "NOT_INTERACTIVE"
)

// hintHandler handles the hints introduced by one HAL version and hands
// everything else to the previous version.
type hintHandler interface {
	powerHint(h Hint, data int32)
}

// legacyHints handles the 1.0 hint set.
type legacyHints struct {
	p *Power
}

func (l legacyHints) powerHint(h Hint, data int32) {
	p := l.p
	if h != HintInteraction {
		p.debugf("%s: %d", h, data)
	}
	switch h {
	case HintInteraction:
		if p.SustainedPerfMode() {
			p.debugf("%s: ignoring due to other active perf hints", h)
			return
		}
		p.interaction.Acquire(data)
	case HintSustainedPerformance:
		p.setSustainedPerf(data != 0)
	case HintLaunch:
		if p.SustainedPerfMode() {
			p.debugf("%s: ignoring due to other active perf hints", h)
			return
		}
		// Held until explicitly ended.
		p.toggleHint(HintLaunch.String(), data != 0)
	case HintLowPower:
		if err := p.opts.Display.SetLowPowerMode(data != 0); err != nil {
			p.errorf("display low power mode %v: %v", data != 0, err)
		}
	}
}

// audioHints handles the hints added in 1.2.
type audioHints struct {
	p    *Power
	next hintHandler
}

func (a audioHints) powerHint(h Hint, data int32) {
	p := a.p
	switch h {
	case HintAudioLowLatency:
		p.debugf("%s: %d", h, data)
		p.toggleHint(h.String(), data != 0)
	case HintAudioStreaming:
		p.debugf("%s: %d", h, data)
		if p.SustainedPerfMode() {
			p.debugf("%s: ignoring due to other active perf hints", h)
			return
		}
		p.toggleHint(h.String(), data != 0)
	default:
		a.next.powerHint(h, data)
	}
}

// renderingHints handles the hint added in 1.3.
type renderingHints struct {
	p    *Power
	next hintHandler
}

func (r renderingHints) powerHint(h Hint, data int32) {
	p := r.p
	if h != HintExpensiveRendering {
		r.next.powerHint(h, data)
		return
	}
	if p.SustainedPerfMode() {
		p.debugf("%s: ignoring due to other active perf hints", h)
		return
	}
	p.toggleHint(h.String(), data > 0)
}
