package display

import (
	"fmt"
	"os"

	"github.com/xiaomi-sm6250/powerhal/internal/logger"
)

// LowPowerMode toggles the panel's low-power rendering mode.
type LowPowerMode interface {
	SetLowPowerMode(on bool) error
}

// NodeLPM writes "1" or "0" to a control node. An empty Path makes it a
// no-op.
type NodeLPM struct {
	Path string
}

func (n *NodeLPM) SetLowPowerMode(on bool) error {
	if n.Path == "" {
		logger.Debugf("display: no lpm node configured, ignoring lpm=%v", on)
		return nil
	}
	v := "0"
	if on {
		v = "1"
	}
	f, err := os.OpenFile(n.Path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("open lpm node: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(v); err != nil {
		return fmt.Errorf("write lpm node: %w", err)
	}
	return nil
}
