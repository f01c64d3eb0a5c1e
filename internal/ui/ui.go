package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	cyan   = "\033[36m"
	green  = "\033[32m"
	yellow = "\033[33m"
	red    = "\033[31m"
	white  = "\033[97m"
)

// out receives all CLI status output.
var out io.Writer = os.Stderr

// SetOutput redirects status output; colors are only used on a terminal.
func SetOutput(w io.Writer) {
	out = w
}

func isTTY() bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// s wraps text with ANSI codes only when out is a terminal.
func s(codes, text string) string {
	if !isTTY() {
		return text
	}
	return codes + text + reset
}

// Banner prints the startup banner.
//
//	powerhal v1.3.0 (sm6250)
func Banner(version string) {
	fmt.Fprintf(out, "\n  %s %s %s\n", s(bold+cyan, "powerhal"), s(dim, "v"+version), s(dim, "(sm6250)"))
}

// KeyValue prints a labeled line:  ▸ label  value
func KeyValue(label, value string) {
	fmt.Fprintf(out, "  %s %-11s %s\n", s(cyan, "▸"), s(dim, label), s(white, value))
}

// Info prints:  ● message
func Info(format string, a ...any) {
	fmt.Fprintf(out, "  %s %s\n", s(cyan, "●"), fmt.Sprintf(format, a...))
}

// Success prints:  ✔ message
func Success(format string, a ...any) {
	fmt.Fprintf(out, "  %s %s\n", s(green, "✔"), fmt.Sprintf(format, a...))
}

// Warn prints:  ▲ message
func Warn(format string, a ...any) {
	fmt.Fprintf(out, "  %s %s\n", s(yellow, "▲"), fmt.Sprintf(format, a...))
}

// Error prints:  ✖ message
func Error(format string, a ...any) {
	fmt.Fprintf(out, "  %s %s\n", s(red, "✖"), fmt.Sprintf(format, a...))
}

func Separator() {
	fmt.Fprintf(out, "  %s\n", s(dim, strings.Repeat("─", 48)))
}
