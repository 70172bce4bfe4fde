package ui

import (
	"fmt"
	"io"
)

const (
	// Standard colors
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	Gray    = "\033[90m" // Bright black, often appears as gray

	// Inverse video colors
	GreenInverse = "\033[7;32m"

	ResetColor = "\033[0m" // Reset to default color
)

var MethodColors = map[string]string{
	"GET":    Green,
	"POST":   Blue,
	"PUT":    Cyan,
	"DELETE": Yellow,
	"PATCH":  Magenta,
}

// Colourise wraps s in colour when enabled is true
func Colourise(enabled bool, colour, s string) string {
	if !enabled || colour == "" {
		return s
	}
	return colour + s + ResetColor
}

// FprintRoute writes a method-coloured route line, e.g. "[ GET    ] /users/me"
func FprintRoute(w io.Writer, enabled bool, method, path string) {
	colour, ok := MethodColors[method]
	if !ok {
		colour = Gray
	}
	paddedMethod := fmt.Sprintf(" %-7s", method)
	fmt.Fprintf(w, "[%s] %s\n", Colourise(enabled, colour, paddedMethod), path)
}
