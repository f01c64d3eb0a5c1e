package perf

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type spyHinter struct {
	started map[string]time.Duration
	ended   []string
	fail    bool
}

func (s *spyHinter) DoHintFor(name string, d time.Duration) error {
	if s.fail {
		return errors.New("engine unavailable")
	}
	if s.started == nil {
		s.started = map[string]time.Duration{}
	}
	s.started[name] = d
	return nil
}

func (s *spyHinter) EndHint(name string) error {
	s.ended = append(s.ended, name)
	return nil
}

func TestAcquireAndRelease(t *testing.T) {
	spy := &spyHinter{}
	e := NewHintEngine(spy)

	h, err := e.HintEnableWithType(VendorHintFirstLaunchBoost, 4*time.Second, LaunchBoostV1)
	require.NoError(t, err)
	require.True(t, h.Valid())
	require.Equal(t, 4*time.Second, spy.started[LaunchBoostHint])

	require.NoError(t, e.ReleaseRequest(h))
	require.Equal(t, []string{LaunchBoostHint}, spy.ended)
	require.ErrorIs(t, e.ReleaseRequest(h), ErrInvalidHandle)
}

func TestHandlesAreDistinct(t *testing.T) {
	e := NewHintEngine(&spyHinter{})
	a, err := e.HintEnableWithType(VendorHintFirstLaunchBoost, time.Second, LaunchBoostV1)
	require.NoError(t, err)
	b, err := e.HintEnableWithType(VendorHintFirstLaunchBoost, time.Second, LaunchBoostV1)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestAcquireFailures(t *testing.T) {
	e := NewHintEngine(&spyHinter{fail: true})
	h, err := e.HintEnableWithType(VendorHintFirstLaunchBoost, time.Second, LaunchBoostV1)
	require.Error(t, err)
	require.False(t, h.Valid())

	h, err = NewHintEngine(&spyHinter{}).HintEnableWithType(Hint(0x42), time.Second, LaunchBoostV1)
	require.ErrorContains(t, err, "not mapped")
	require.False(t, h.Valid())
}
