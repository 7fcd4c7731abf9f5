// internal/logger/writers.go
package logger

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// openAppend creates the parent directory and opens path for appending.
func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// flushLoop calls flush every interval until done is closed.
func flushLoop(interval time.Duration, done <-chan struct{}, flush func() error, logger *zap.Logger, path string) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := flush(); err != nil {
				logger.Error("Periodic flush failed",
					zap.String("file", path),
					zap.Error(err))
			}
		case <-done:
			return
		}
	}
}

// SafeFileWriter is a buffered, mutex-guarded file writer flushed on an
// interval. It implements io.Writer so it can back a zap core.
type SafeFileWriter struct {
	mu     sync.Mutex
	writer *bufio.Writer
	file   *os.File
	done   chan struct{}
	once   sync.Once
	closed bool
	logger *zap.Logger
	path   string

	writes  uint64
	flushes uint64
}

// NewSafeFileWriter opens path for appending.
func NewSafeFileWriter(path string, flushInterval time.Duration, logger *zap.Logger) (*SafeFileWriter, error) {
	file, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	w := &SafeFileWriter{
		writer: bufio.NewWriter(file),
		file:   file,
		done:   make(chan struct{}),
		logger: logger,
		path:   path,
	}
	go flushLoop(flushInterval, w.done, w.Flush, logger, path)
	return w, nil
}

// Write appends p.
func (w *SafeFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.writer.Write(p)
	if err != nil {
		return n, fmt.Errorf("failed to write data: %w", err)
	}
	w.writes++
	return n, nil
}

// WriteLine appends line and a newline.
func (w *SafeFileWriter) WriteLine(line string) error {
	_, err := w.Write([]byte(line + "\n"))
	return err
}

// Sync flushes buffered data to disk. It satisfies zapcore.WriteSyncer.
func (w *SafeFileWriter) Sync() error { return w.Flush() }

// Flush writes buffered data and fsyncs the file.
func (w *SafeFileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	w.flushes++
	return nil
}

// Close stops the flush loop, flushes and closes the file.
func (w *SafeFileWriter) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)

		w.mu.Lock()
		defer w.mu.Unlock()
		w.closed = true
		if ferr := w.writer.Flush(); ferr != nil {
			err = fmt.Errorf("failed to flush on close: %w", ferr)
			return
		}
		if cerr := w.file.Close(); cerr != nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
			return
		}
		w.logger.Debug("File writer closed",
			zap.String("file", w.path),
			zap.Uint64("writes", w.writes),
			zap.Uint64("flushes", w.flushes))
	})
	return err
}

// GetStats returns the number of writes and flushes so far.
func (w *SafeFileWriter) GetStats() (writes, flushes uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes, w.flushes
}

// SafeCSVWriter is a mutex-guarded CSV appender. The header is written only
// when the file is new.
type SafeCSVWriter struct {
	mu     sync.Mutex
	writer *csv.Writer
	file   *os.File
	done   chan struct{}
	once   sync.Once
	closed bool
	logger *zap.Logger
	path   string

	records uint64
	flushes uint64
}

// NewSafeCSVWriter opens path for appending and writes header to an empty file.
func NewSafeCSVWriter(path string, header []string, flushInterval time.Duration, logger *zap.Logger) (*SafeCSVWriter, error) {
	file, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	w := &SafeCSVWriter{
		writer: csv.NewWriter(file),
		file:   file,
		done:   make(chan struct{}),
		logger: logger,
		path:   path,
	}
	if stat.Size() == 0 && len(header) > 0 {
		if err := w.writer.Write(header); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		w.writer.Flush()
	}

	go flushLoop(flushInterval, w.done, w.Flush, logger, path)
	return w, nil
}

// WriteRecord appends one row.
func (w *SafeCSVWriter) WriteRecord(record []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.records++
	return nil
}

// Flush writes buffered rows and fsyncs the file.
func (w *SafeCSVWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}

	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	w.flushes++
	return nil
}

// Close stops the flush loop, flushes and closes the file.
func (w *SafeCSVWriter) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)

		w.mu.Lock()
		defer w.mu.Unlock()
		w.closed = true
		w.writer.Flush()
		if werr := w.writer.Error(); werr != nil {
			err = fmt.Errorf("CSV writer error on close: %w", werr)
			return
		}
		if cerr := w.file.Close(); cerr != nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
			return
		}
		w.logger.Debug("CSV writer closed",
			zap.String("file", w.path),
			zap.Uint64("records", w.records),
			zap.Uint64("flushes", w.flushes))
	})
	return err
}

// GetStats returns the number of records and flushes so far.
func (w *SafeCSVWriter) GetStats() (records, flushes uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records, w.flushes
}
