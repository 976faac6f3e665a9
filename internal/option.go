package internal

import "io"

// Mode selects what Run does with the loaded notes.
type Mode string

// Run modes.
const (
	ModeTUI   Mode = "tui"
	ModePrint Mode = "print"
	ModeServe Mode = "serve"
	ModeMCP   Mode = "mcp"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	mode    Mode
	verbose bool
	stdout  io.Writer
	stderr  io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode selects the run mode. The default is ModeTUI.
func WithMode(m Mode) Option {
	return func(a *application) {
		a.mode = m
	}
}

// WithVerbose forces debug logging.
func WithVerbose(v bool) Option {
	return func(a *application) {
		a.verbose = v
	}
}

// WithOutput redirects the print renderer and the stdout/stderr loggers.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *application) {
		a.stdout = stdout
		a.stderr = stderr
	}
}
