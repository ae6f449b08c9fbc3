package pdf

import (
	"fmt"
	"os"
)

// Source opens the bytes of a source document. Every call returns a fresh
// buffer, so consumers may hand it to parsers that retain or modify it.
type Source func() ([]byte, error)

// FileSource re-reads path on every open
func FileSource(path string) Source {
	return func() ([]byte, error) {
		data, err := os.ReadFile(path) // #nosec G304 -- path is confined by the caller
		if err != nil {
			return nil, fmt.Errorf("reopen %s: %w", path, err)
		}
		return data, nil
	}
}

// BytesSource serves copies of data
func BytesSource(data []byte) Source {
	kept := append([]byte(nil), data...)
	return func() ([]byte, error) {
		return append([]byte(nil), kept...), nil
	}
}
