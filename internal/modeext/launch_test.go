package modeext

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xiaomi-sm6250/powerhal/internal/hint"
	"github.com/xiaomi-sm6250/powerhal/internal/perf"
	"github.com/xiaomi-sm6250/powerhal/internal/power"
	"github.com/xiaomi-sm6250/powerhal/internal/sysprop"
)

// newHAL wires a ready Power on a real hint engine with one shared node.
func newHAL(t *testing.T) (*power.Power, *hint.Manager, string) {
	t.Helper()
	dir := t.TempDir()
	node := filepath.Join(dir, "cpu_big_min")
	require.NoError(t, os.WriteFile(node, nil, 0o644))

	policy := filepath.Join(dir, "powerhint.json")
	require.NoError(t, os.WriteFile(policy, []byte(fmt.Sprintf(`{
  "nodes": [{"name": "cpu_big_min", "path": %q, "default": "652800"}],
  "hints": [
    {"name": "LAUNCH", "actions": [{"node": "cpu_big_min", "value": "2304000"}]},
    {"name": "LAUNCH_BOOST", "actions": [{"node": "cpu_big_min", "value": "1804800"}]},
    {"name": "INTERACTION", "actions": [{"node": "cpu_big_min", "value": "1209600"}]}
  ]
}`, node)), 0o644))

	props := filepath.Join(dir, "props")
	require.NoError(t, os.WriteFile(props, []byte("vendor.powerhal.init=1\n"), 0o644))

	m, err := hint.LoadFile(policy)
	require.NoError(t, err)

	p := power.New(power.Options{
		PolicyPath: policy,
		Props:      &sysprop.File{Path: props},
		Backoff:    sysprop.NewBackoff(time.Millisecond, 5*time.Millisecond),
		LoadPolicy: func(string) (power.HintManager, error) { return m, nil },
		Touch:      &spyTouch{},
	})
	t.Cleanup(p.Close)
	require.NoError(t, p.Wait())
	return p, m, node
}

func nodeValue(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestLaunchBoostKeepsFrameworkLaunch(t *testing.T) {
	p, m, node := newHAL(t)
	tg := New(perf.NewHintEngine(p), &spyTouch{})

	p.PowerHintAsync13(power.HintLaunch, 1)
	require.True(t, tg.SetMode(ModeLaunch, true))
	require.True(t, m.IsRunning(perf.LaunchBoostHint))
	require.Equal(t, "1804800", nodeValue(t, node))

	require.True(t, tg.SetMode(ModeLaunch, false))
	require.False(t, m.IsRunning(perf.LaunchBoostHint))
	require.True(t, m.IsRunning("LAUNCH"))
	require.Equal(t, "2304000", nodeValue(t, node))

	p.PowerHintAsync13(power.HintLaunch, 0)
	require.False(t, m.IsRunning("LAUNCH"))
	require.Equal(t, "652800", nodeValue(t, node))
}

func TestFrameworkLaunchEndKeepsLaunchBoost(t *testing.T) {
	p, m, _ := newHAL(t)
	tg := New(perf.NewHintEngine(p), &spyTouch{})

	require.True(t, tg.SetMode(ModeLaunch, true))
	p.PowerHintAsync13(power.HintLaunch, 1)
	p.PowerHintAsync13(power.HintLaunch, 0)

	require.True(t, m.IsRunning(perf.LaunchBoostHint))
	require.False(t, m.IsRunning("LAUNCH"))
}
