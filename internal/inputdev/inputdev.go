package inputdev

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/holoplot/go-evdev"
)

const (
	// DefaultDir is where the kernel exposes evdev nodes.
	DefaultDir = "/dev/input"

	// nameLen matches an EVIOCGNAME query into an 80 byte buffer.
	nameLen = 79

	WakeupModeOff = 4
	WakeupModeOn  = 5

	readBatch = 32
)

// DefaultTouchNames are the touch controllers that understand the wakeup
// mode event.
var DefaultTouchNames = []string{"fts_ts", "NVTCapacitiveTouchScreen"}

// ErrNotFound is returned when no supported touchscreen is present. An
// unreadable input directory is reported the same way.
var ErrNotFound = errors.New("no supported touchscreen input device")

// Device is an open input device node.
type Device interface {
	Name() (string, error)
	WriteOne(ev *evdev.InputEvent) error
	Close() error
}

// OpenFunc opens the node at path read/write.
type OpenFunc func(path string) (Device, error)

func openEvdev(path string) (Device, error) {
	d, err := evdev.Open(path)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Finder locates the touchscreen among the input device nodes. Nothing is
// cached between calls.
type Finder struct {
	Dir   string
	Names []string
	Open  OpenFunc

	accept func(fs.DirEntry) bool
}

// NewFinder returns a Finder for dir matching names. Empty arguments
// select the defaults.
func NewFinder(dir string, names []string) *Finder {
	if dir == "" {
		dir = DefaultDir
	}
	if len(names) == 0 {
		names = DefaultTouchNames
	}
	return &Finder{Dir: dir, Names: names, Open: openEvdev}
}

func isCharDevice(e fs.DirEntry) bool {
	return e.Type()&fs.ModeCharDevice != 0
}

// Find returns the first device, in directory order, whose name matches
// one of f.Names. The caller must close it.
func (f *Finder) Find() (Device, string, error) {
	dir, err := os.Open(f.Dir)
	if err != nil {
		return nil, "", ErrNotFound
	}
	defer dir.Close()

	accept := f.accept
	if accept == nil {
		accept = isCharDevice
	}
	open := f.Open
	if open == nil {
		open = openEvdev
	}

	for {
		entries, err := dir.ReadDir(readBatch)
		for _, e := range entries {
			if !accept(e) {
				continue
			}
			path := filepath.Join(f.Dir, e.Name())
			if dev := f.openMatching(open, path); dev != nil {
				return dev, path, nil
			}
		}
		// io.EOF and read failures both end the scan.
		if err != nil || len(entries) == 0 {
			return nil, "", ErrNotFound
		}
	}
}

// openMatching opens path and keeps it only if its name matches.
func (f *Finder) openMatching(open OpenFunc, path string) Device {
	dev, err := open(path)
	if err != nil {
		return nil
	}
	name, err := dev.Name()
	if err == nil && f.matches(truncateName(name)) {
		return dev
	}
	dev.Close()
	return nil
}

func (f *Finder) matches(name string) bool {
	for _, n := range f.Names {
		if name == n {
			return true
		}
	}
	return false
}

func truncateName(name string) string {
	if len(name) > nameLen {
		return name[:nameLen]
	}
	return name
}

// SetWakeupMode writes the double-tap-to-wake configuration event to the
// touchscreen. It returns ErrNotFound when there is no touchscreen.
func (f *Finder) SetWakeupMode(on bool) error {
	dev, path, err := f.Find()
	if err != nil {
		return err
	}
	defer dev.Close()

	ev := &evdev.InputEvent{
		Type:  evdev.EV_SYN,
		Code:  evdev.SYN_CONFIG,
		Value: WakeupModeOff,
	}
	if on {
		ev.Value = WakeupModeOn
	}
	if err := dev.WriteOne(ev); err != nil {
		return fmt.Errorf("write wakeup mode to %s: %w", path, err)
	}
	return nil
}
