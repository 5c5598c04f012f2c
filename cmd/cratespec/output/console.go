package output

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Verbosity levels, following spec.md §6's front-end contract.
type Verbosity int

const (
	// VerbosityQuiet shows errors only.
	VerbosityQuiet Verbosity = iota
	// VerbosityNormal shows errors, warnings, and key phase transitions (default).
	VerbosityNormal
	// VerbosityDetailed shows above plus per-section progress.
	VerbosityDetailed
	// VerbosityDiagnostic shows above plus retry/remote-call detail.
	VerbosityDiagnostic
)

// ParseVerbosity maps a --verbosity flag value to a Verbosity level.
func ParseVerbosity(s string) (Verbosity, error) {
	switch s {
	case "quiet":
		return VerbosityQuiet, nil
	case "normal", "":
		return VerbosityNormal, nil
	case "detailed":
		return VerbosityDetailed, nil
	case "diagnostic":
		return VerbosityDiagnostic, nil
	default:
		return VerbosityNormal, fmt.Errorf("unknown verbosity %q (want quiet, normal, detailed, or diagnostic)", s)
	}
}

// Console provides the output abstraction every command writes through: a
// single place that gates on verbosity and colorizes consistently.
type Console struct {
	out       io.Writer
	err       io.Writer
	verbosity Verbosity
	mu        sync.Mutex
	colors    bool
}

// NewConsole creates a new console.
func NewConsole(out, err io.Writer, verbosity Verbosity) *Console {
	c := &Console{
		out:       out,
		err:       err,
		verbosity: verbosity,
		colors:    IsColorEnabled(),
	}

	if !c.colors {
		DisableColors()
	}

	return c
}

// DefaultConsole creates a console with stdout/stderr and normal verbosity.
func DefaultConsole() *Console {
	return NewConsole(os.Stdout, os.Stderr, VerbosityNormal)
}

// SetVerbosity sets the verbosity level.
func (c *Console) SetVerbosity(v Verbosity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verbosity = v
}

// Verbosity returns the current verbosity level.
func (c *Console) Verbosity() Verbosity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verbosity
}

// Stderr returns the writer errors and prompts go to, for callers (such as
// the passphrase prompt) that need to bypass the formatted helpers below.
func (c *Console) Stderr() io.Writer { return c.err }

// SetColors overrides color output, independent of terminal detection. Tests
// use this to get deterministic output regardless of the test runner's TTY.
func (c *Console) SetColors(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.colors = enabled
}

// Println writes a line to output.
func (c *Console) Println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, a...)
}

// Success writes a success message (green), gated on normal verbosity.
func (c *Console) Success(format string, a ...any) {
	if c.verbosity < VerbosityNormal {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.colors {
		ColorSuccess.Fprintf(c.out, format+"\n", a...)
	} else {
		fmt.Fprintf(c.out, format+"\n", a...)
	}
}

// Error writes an error message (red) to stderr, regardless of verbosity.
func (c *Console) Error(format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.colors {
		ColorError.Fprintf(c.err, "Error: "+format+"\n", a...)
	} else {
		fmt.Fprintf(c.err, "Error: "+format+"\n", a...)
	}
}

// Warning writes a warning message (yellow), gated on normal verbosity.
func (c *Console) Warning(format string, a ...any) {
	if c.verbosity < VerbosityNormal {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.colors {
		ColorWarning.Fprintf(c.out, "Warning: "+format+"\n", a...)
	} else {
		fmt.Fprintf(c.out, "Warning: "+format+"\n", a...)
	}
}

// Info writes an info message (cyan), gated on normal verbosity.
func (c *Console) Info(format string, a ...any) {
	if c.verbosity < VerbosityNormal {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.colors {
		ColorInfo.Fprintf(c.out, format+"\n", a...)
	} else {
		fmt.Fprintf(c.out, format+"\n", a...)
	}
}

// Detail writes a detailed progress message, gated on detailed verbosity.
func (c *Console) Detail(format string, a ...any) {
	if c.verbosity < VerbosityDetailed {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format+"\n", a...)
}

// Debug writes a diagnostic message (white), gated on diagnostic verbosity.
func (c *Console) Debug(format string, a ...any) {
	if c.verbosity < VerbosityDiagnostic {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.colors {
		ColorDebug.Fprintf(c.out, "[DEBUG] "+format+"\n", a...)
	} else {
		fmt.Fprintf(c.out, "[DEBUG] "+format+"\n", a...)
	}
}
