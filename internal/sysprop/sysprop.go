package sysprop

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrNotFound is returned by Lookup when a property has no value.
var ErrNotFound = errors.New("property not set")

// Properties is read access to the system property store.
type Properties interface {
	// Lookup returns the current value of name, or ErrNotFound.
	Lookup(name string) (string, error)
}

// Get returns the value of name, or def when it is unset or unreadable.
func Get(p Properties, name, def string) string {
	v, err := p.Lookup(name)
	if err != nil || v == "" {
		return def
	}
	return v
}

// Getprop reads properties through the getprop binary.
type Getprop struct {
	// Path to getprop; defaults to "getprop" on $PATH.
	Path    string
	Timeout time.Duration
}

func (g *Getprop) Lookup(name string) (string, error) {
	bin := g.Path
	if bin == "" {
		bin = "getprop"
	}
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, bin, name).Output()
	if err != nil {
		return "", fmt.Errorf("getprop %s: %w", name, err)
	}
	v := strings.TrimSpace(string(out))
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

// File reads properties from a key=value file. The file is re-read on
// every lookup so external writers are observed.
type File struct {
	Path string
}

func (f *File) Lookup(name string) (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read properties: %w", err)
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	val, found := "", false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(k) != name {
			continue
		}
		// Last assignment wins, like build.prop.
		val, found = strings.TrimSpace(v), true
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("scan properties: %w", err)
	}
	if !found || val == "" {
		return "", ErrNotFound
	}
	return val, nil
}

// WaitFor blocks until name equals want or ctx is done. Lookup errors are
// treated as "not yet".
func WaitFor(ctx context.Context, p Properties, name, want string, b *Backoff) error {
	if b == nil {
		b = NewBackoff(0, 0)
	}
	for {
		if v, err := p.Lookup(name); err == nil && v == want {
			return nil
		}
		if !b.Wait(ctx) {
			return ctx.Err()
		}
	}
}
