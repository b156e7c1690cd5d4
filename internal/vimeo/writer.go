package vimeo

import (
	"fmt"
	"os"
)

const (
	MaxRetries      = 10
	ChunkSize       = int64(10 * 1024 * 1024)
	MemoryBuffer    = 1024 * 1024
	MaxChunkWorkers = 5
)

// BufferedFileWriter preallocates the output file so chunk workers can
// write their byte ranges concurrently. os.File WriteAt is safe for
// non-overlapping offsets.
type BufferedFileWriter struct {
	file *os.File
}

func NewBufferedFileWriter(path string, size int64) (*BufferedFileWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	if err := file.Truncate(size); err != nil {
		closeErr := file.Close()
		if closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("failed to preallocate %d bytes: %v", size, err)
	}

	return &BufferedFileWriter{file: file}, nil
}

func (w *BufferedFileWriter) WriteAt(p []byte, off int64) (int, error) {
	return w.file.WriteAt(p, off)
}

func (w *BufferedFileWriter) Close() error {
	if err := w.file.Sync(); err != nil {
		closeErr := w.file.Close()
		if closeErr != nil {
			return closeErr
		}
		return err
	}
	return w.file.Close()
}
