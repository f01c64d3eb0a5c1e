package hint

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/xiaomi-sm6250/powerhal/internal/logger"
)

// ErrUnknownHint is returned for hints the policy does not define.
var ErrUnknownHint = errors.New("unknown hint")

// Manager applies hint policy to control nodes. Concurrent DoHint and
// EndHint calls are safe.
type Manager struct {
	mu    sync.Mutex
	nodes map[string]*node
	hints map[string]HintSpec
	seq   uint64

	write func(path, value string) error
}

type node struct {
	spec    NodeSpec
	reqs    map[string]*request // keyed by hint name
	current string
	written bool
}

type request struct {
	value string
	seq   uint64
	timer *time.Timer
}

// New builds a Manager for a validated policy.
func New(p *Policy) *Manager {
	m := &Manager{
		nodes: make(map[string]*node, len(p.Nodes)),
		hints: make(map[string]HintSpec, len(p.Hints)),
		write: writeNode,
	}
	for _, n := range p.Nodes {
		m.nodes[n.Name] = &node{spec: n, reqs: make(map[string]*request)}
	}
	for _, h := range p.Hints {
		m.hints[h.Name] = h
	}
	return m
}

// LoadFile reads the policy at path and returns a Manager for it.
func LoadFile(path string) (*Manager, error) {
	p, err := ReadPolicyFile(path)
	if err != nil {
		return nil, err
	}
	return New(p), nil
}

func writeNode(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(value); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// DoHint starts name using the durations from the policy.
func (m *Manager) DoHint(name string) error {
	return m.doHint(name, 0)
}

// DoHintFor starts name, overriding every action's duration with d.
func (m *Manager) DoHintFor(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("hint %s: non-positive duration %v", name, d)
	}
	return m.doHint(name, d)
}

func (m *Manager) doHint(name string, override time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.hints[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHint, name)
	}
	for _, a := range h.Actions {
		n := m.nodes[a.Node]
		if old := n.reqs[name]; old != nil && old.timer != nil {
			old.timer.Stop()
		}
		m.seq++
		req := &request{value: a.Value, seq: m.seq}
		d := a.duration()
		if override > 0 {
			d = override
		}
		if d > 0 {
			seq, nodeName := req.seq, a.Node
			req.timer = time.AfterFunc(d, func() { m.expire(name, nodeName, seq) })
		}
		n.reqs[name] = req
		m.refresh(n)
	}
	return nil
}

// EndHint cancels every outstanding request of name.
func (m *Manager) EndHint(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.hints[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHint, name)
	}
	for _, n := range m.nodes {
		req := n.reqs[name]
		if req == nil {
			continue
		}
		if req.timer != nil {
			req.timer.Stop()
		}
		delete(n.reqs, name)
		m.refresh(n)
	}
	return nil
}

func (m *Manager) expire(name, nodeName string, seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.nodes[nodeName]
	if req := n.reqs[name]; req != nil && req.seq == seq {
		delete(n.reqs, name)
		m.refresh(n)
	}
}

// refresh writes the value of the newest request, or the default.
func (m *Manager) refresh(n *node) {
	want := n.spec.Default
	var newest uint64
	for _, r := range n.reqs {
		if r.seq > newest {
			newest, want = r.seq, r.value
		}
	}
	if n.written && want == n.current {
		return
	}
	if err := m.write(n.spec.Path, want); err != nil {
		logger.Errorf("hint: write %s to %s: %v", want, n.spec.Path, err)
		return
	}
	n.current, n.written = want, true
}

// IsRunning reports whether any request of name is outstanding.
func (m *Manager) IsRunning(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.nodes {
		if n.reqs[name] != nil {
			return true
		}
	}
	return false
}

// Hints returns the defined hint names in sorted order.
func (m *Manager) Hints() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.hints))
	for name := range m.hints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops pending expiry timers. Node values are left as they are.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.nodes {
		for _, r := range n.reqs {
			if r.timer != nil {
				r.timer.Stop()
			}
		}
	}
}
