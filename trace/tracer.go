package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tram/types"
)

// Tracer provides execution tracing for debugging
type Tracer struct {
	enabled bool
	filters []string
	writer  io.Writer
	mu      sync.Mutex
}

// Global tracer instance
var globalTracer *Tracer

// New creates a tracer. Filters are glob patterns matched against
// qualified procedure names; no filters traces everything.
func New(enabled bool, filters []string, writer io.Writer) *Tracer {
	if writer == nil {
		writer = os.Stderr
	}
	return &Tracer{
		enabled: enabled,
		filters: filters,
		writer:  writer,
	}
}

// Init initializes the global tracer
func Init(enabled bool, filters []string, writer io.Writer) {
	globalTracer = New(enabled, filters, writer)
}

// Global returns the global tracer, nil before Init
func Global() *Tracer {
	return globalTracer
}

// IsEnabled returns whether tracing is enabled
func IsEnabled() bool {
	if globalTracer == nil {
		return false
	}
	return globalTracer.enabled
}

// Enabled reports whether t traces anything
func (t *Tracer) Enabled() bool {
	return t != nil && t.enabled
}

// matchesFilter checks if a procedure name matches any of the filter patterns
func (t *Tracer) matchesFilter(name string) bool {
	if len(t.filters) == 0 {
		return true // No filters = trace everything
	}

	for _, pattern := range t.filters {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// Call logs a procedure or external call
func (t *Tracer) Call(name string, args []types.Value, loc string) {
	if !t.Enabled() || !t.matchesFilter(name) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	argStrs := make([]string, len(args))
	for i, arg := range args {
		argStrs[i] = arg.String()
	}
	fmt.Fprintf(t.writer, "[TRACE] CALL %s args=[%s] at %s\n", name, strings.Join(argStrs, ", "), loc)
}

// Return logs a procedure's result
func (t *Tracer) Return(name string, result types.Value) {
	if !t.Enabled() || !t.matchesFilter(name) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	resultStr := types.Null.String()
	if result != nil {
		resultStr = result.String()
	}
	fmt.Fprintf(t.writer, "[TRACE] RETURN %s => %s\n", name, resultStr)
}

// Exception logs a procedure left by an exception
func (t *Tracer) Exception(name string, msg string) {
	if !t.Enabled() || !t.matchesFilter(name) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.writer, "[TRACE] EXCEPTION %s %s\n", name, msg)
}

// Event logs a control event being routed. Events are not filtered.
func (t *Tracer) Event(kind, loc, detail string) {
	if !t.Enabled() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if detail != "" {
		fmt.Fprintf(t.writer, "[TRACE] EVENT %s at %s %s\n", kind, loc, detail)
	} else {
		fmt.Fprintf(t.writer, "[TRACE] EVENT %s at %s\n", kind, loc)
	}
}

// Print logs text handed to the print hook
func (t *Tracer) Print(text string) {
	if !t.Enabled() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Truncate long messages for readability
	display := text
	if len(display) > 60 {
		display = display[:57] + "..."
	}
	fmt.Fprintf(t.writer, "[TRACE]   PRINT %q\n", display)
}
