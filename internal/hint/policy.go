package hint

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Policy is the on-disk hint policy.
type Policy struct {
	Nodes []NodeSpec `json:"nodes"`
	Hints []HintSpec `json:"hints"`
}

// NodeSpec is a writable control file, usually under sysfs.
type NodeSpec struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Default string `json:"default"`
}

// HintSpec lists the node values requested while a hint is running.
type HintSpec struct {
	Name    string       `json:"name"`
	Actions []ActionSpec `json:"actions"`
}

// ActionSpec requests Value on Node. A zero duration holds the value until
// the hint is ended.
type ActionSpec struct {
	Node       string `json:"node"`
	Value      string `json:"value"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

func (a ActionSpec) duration() time.Duration {
	return time.Duration(a.DurationMs) * time.Millisecond
}

// ParsePolicy decodes and validates a policy.
func ParsePolicy(r io.Reader) (*Policy, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var p Policy
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// ReadPolicyFile reads and validates the policy at path.
func ReadPolicyFile(path string) (*Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open policy: %w", err)
	}
	defer f.Close()
	p, err := ParsePolicy(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Validate checks names are unique and every action targets a known node.
func (p *Policy) Validate() error {
	if len(p.Nodes) == 0 {
		return fmt.Errorf("policy has no nodes")
	}
	nodes := make(map[string]bool, len(p.Nodes))
	for i, n := range p.Nodes {
		if n.Name == "" {
			return fmt.Errorf("nodes[%d]: name is required", i)
		}
		if n.Path == "" {
			return fmt.Errorf("node %q: path is required", n.Name)
		}
		if nodes[n.Name] {
			return fmt.Errorf("node %q: duplicate name", n.Name)
		}
		nodes[n.Name] = true
	}

	hints := make(map[string]bool, len(p.Hints))
	for i, h := range p.Hints {
		if h.Name == "" {
			return fmt.Errorf("hints[%d]: name is required", i)
		}
		if hints[h.Name] {
			return fmt.Errorf("hint %q: duplicate name", h.Name)
		}
		hints[h.Name] = true
		for j, a := range h.Actions {
			if !nodes[a.Node] {
				return fmt.Errorf("hint %q action %d: unknown node %q", h.Name, j, a.Node)
			}
			if a.DurationMs < 0 {
				return fmt.Errorf("hint %q action %d: negative duration", h.Name, j)
			}
		}
	}
	return nil
}
