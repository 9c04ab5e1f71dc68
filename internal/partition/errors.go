package partition

import "fmt"

// MissingDirectoryError reports that a utility's partition directory does not exist
type MissingDirectoryError struct {
	Path string
}

func (e *MissingDirectoryError) Error() string {
	return fmt.Sprintf("partition directory not found: %s (ingest some exports first)", e.Path)
}

// StorageError represents a failed read or write of a canonical file
type StorageError struct {
	Operation string
	Path      string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s at %s: %v", e.Operation, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
