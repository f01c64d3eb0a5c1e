package inputdev

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	path    string
	name    string
	nameErr error
	writes  []evdev.InputEvent
	closed  bool
}

func (d *fakeDevice) Name() (string, error) { return d.name, d.nameErr }

func (d *fakeDevice) WriteOne(ev *evdev.InputEvent) error {
	d.writes = append(d.writes, *ev)
	return nil
}

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

// fakeInput builds a directory of placeholder nodes and a Finder whose
// opener hands out fake devices keyed by file name.
type fakeInput struct {
	dir    string
	devs   map[string]*fakeDevice
	opened []string
}

func newFakeInput(t *testing.T, names map[string]string) (*fakeInput, *Finder) {
	t.Helper()
	in := &fakeInput{dir: t.TempDir(), devs: map[string]*fakeDevice{}}
	for file, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(in.dir, file), nil, 0o600))
		in.devs[file] = &fakeDevice{path: file, name: name}
	}
	f := NewFinder(in.dir, nil)
	f.accept = func(e fs.DirEntry) bool { return strings.HasPrefix(e.Name(), "event") }
	f.Open = func(path string) (Device, error) {
		base := filepath.Base(path)
		in.opened = append(in.opened, base)
		d, ok := in.devs[base]
		if !ok {
			return nil, errors.New("permission denied")
		}
		return d, nil
	}
	return in, f
}

func TestFindMatchesKnownController(t *testing.T) {
	in, f := newFakeInput(t, map[string]string{
		"event0": "gpio-keys",
		"event1": "NVTCapacitiveTouchScreen",
		"event2": "qpnp_pon",
	})

	dev, path, err := f.Find()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(in.dir, "event1"), path)
	require.Same(t, in.devs["event1"], dev)
	require.False(t, in.devs["event1"].closed)

	for _, file := range in.opened {
		if file != "event1" {
			require.True(t, in.devs[file].closed, "%s left open", file)
		}
	}
}

func TestFindFirstMatchInDirectoryOrder(t *testing.T) {
	in, f := newFakeInput(t, map[string]string{
		"event3": "fts_ts",
		"event7": "NVTCapacitiveTouchScreen",
	})

	dir, err := os.Open(in.dir)
	require.NoError(t, err)
	entries, err := dir.ReadDir(-1)
	require.NoError(t, dir.Close())
	require.NoError(t, err)

	_, path, err := f.Find()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(in.dir, entries[0].Name()), path)
}

func TestFindNotFound(t *testing.T) {
	in, f := newFakeInput(t, map[string]string{
		"event0": "gpio-keys",
		"event1": "fts_ts_v2",
	})
	in.devs["event0"].nameErr = errors.New("ioctl failed")

	_, _, err := f.Find()
	require.ErrorIs(t, err, ErrNotFound)
	require.True(t, in.devs["event0"].closed)
	require.True(t, in.devs["event1"].closed)
}

func TestFindSkipsUnopenableAndFilteredEntries(t *testing.T) {
	in, f := newFakeInput(t, map[string]string{"event2": "fts_ts"})
	require.NoError(t, os.WriteFile(filepath.Join(in.dir, "event0"), nil, 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(in.dir, "by-path"), 0o755))

	dev, _, err := f.Find()
	require.NoError(t, err)
	require.Same(t, in.devs["event2"], dev)
	require.NotContains(t, in.opened, "by-path")
}

func TestFindMissingOrEmptyDir(t *testing.T) {
	f := NewFinder(filepath.Join(t.TempDir(), "absent"), nil)
	_, _, err := f.Find()
	require.ErrorIs(t, err, ErrNotFound)

	f = NewFinder(t.TempDir(), nil)
	_, _, err = f.Find()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindTruncatesName(t *testing.T) {
	long := strings.Repeat("x", 100)
	_, f := newFakeInput(t, map[string]string{"event0": long})
	f.Names = []string{long[:nameLen]}

	_, _, err := f.Find()
	require.NoError(t, err)
}

func TestSetWakeupMode(t *testing.T) {
	in, f := newFakeInput(t, map[string]string{"event4": "fts_ts"})

	require.NoError(t, f.SetWakeupMode(true))
	require.NoError(t, f.SetWakeupMode(false))

	dev := in.devs["event4"]
	require.True(t, dev.closed)
	require.Len(t, dev.writes, 2)
	for i, want := range []int32{WakeupModeOn, WakeupModeOff} {
		require.EqualValues(t, evdev.EV_SYN, dev.writes[i].Type)
		require.EqualValues(t, evdev.SYN_CONFIG, dev.writes[i].Code)
		require.Equal(t, want, dev.writes[i].Value)
	}
}

func TestSetWakeupModeNoDevice(t *testing.T) {
	_, f := newFakeInput(t, map[string]string{"event0": "gpio-keys"})
	require.ErrorIs(t, f.SetWakeupMode(true), ErrNotFound)
}
