package logger

import "github.com/erdlab/collab/types"

// Logger defines a structured, context-aware logging interface used across
// the collaboration core.
//
// All logging methods accept a message and a variadic list of key-value
// pairs. Keys must be strings and must alternate with values in the form:
// key1, val1, key2, val2, ...
type Logger interface {
	// Debugw logs a debug-level message with optional structured context.
	Debugw(msg string, keysAndValues ...any)

	// Infow logs an info-level message with optional structured context.
	Infow(msg string, keysAndValues ...any)

	// Warnw logs a warning-level message with optional structured context.
	Warnw(msg string, keysAndValues ...any)

	// Errorw logs an error-level message with optional structured context.
	Errorw(msg string, keysAndValues ...any)

	// Fatalw logs a fatal-level message and then terminates the application.
	Fatalw(msg string, keysAndValues ...any)

	// Context enrichment methods return a new logger with additional
	// persistent context.

	// With adds arbitrary key-value pairs to the logger's context.
	With(keysAndValues ...any) Logger

	// WithComponent adds a component label (e.g., "lock", "relay") to
	// categorize log output.
	WithComponent(name string) Logger

	// WithDiagram adds the diagram ID to the logger's context so that all
	// activity on one diagram can be correlated.
	WithDiagram(id types.DiagramID) Logger
}
