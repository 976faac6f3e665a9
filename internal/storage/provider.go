// Package storage defines the whole-file abstraction used to persist the note graph.
package storage

// Provider reads and rewrites a single storage file.
type Provider interface {
	// Path returns the absolute path of the backing file.
	Path() string
	// Read returns the full contents of the file.
	Read() ([]byte, error)
	// Write atomically replaces the file with content.
	Write(content []byte) error
}
