// Package storage writes the application's local files atomically.
package storage

// Provider reads and writes files relative to a root directory.
type Provider interface {
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
	// Abs resolves path to an absolute path under the root.
	Abs(path string) (string, error)
}
