package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/qepting91/workshop-scraper/internal/domain"
)

// WriterService implements the Monitor Pattern for thread safety: it is the
// only goroutine touching the data file.
type WriterService struct {
	FilePath string
	// Truncate starts a fresh file instead of appending.
	Truncate bool
	Logger   *slog.Logger

	mu      sync.Mutex
	written int
	err     error
}

func (w *WriterService) Start(wg *sync.WaitGroup, input <-chan domain.ItemRecord) {
	defer wg.Done()

	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f, err := w.open()
	if err != nil {
		w.fail(err)
		logger.Error("Cannot open data file", "path", w.FilePath, "error", err)
		for range input {
			// Drain so producers never block.
		}
		return
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	for rec := range input {
		// Write as NDJSON
		if err := enc.Encode(rec); err != nil {
			w.fail(err)
			logger.Error("Write record failed", "id", rec.ID, "error", err)
			continue
		}
		w.mu.Lock()
		w.written++
		w.mu.Unlock()
	}
	if err := bw.Flush(); err != nil {
		w.fail(err)
		logger.Error("Flush data file failed", "path", w.FilePath, "error", err)
	}
}

// Written is the number of records encoded so far.
func (w *WriterService) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Err returns the first error the writer hit.
func (w *WriterService) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *WriterService) open() (*os.File, error) {
	if dir := filepath.Dir(w.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	flags := os.O_APPEND | os.O_CREATE | os.O_WRONLY
	if w.Truncate {
		flags = os.O_TRUNC | os.O_CREATE | os.O_WRONLY
	}
	return os.OpenFile(w.FilePath, flags, 0o644)
}

func (w *WriterService) fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

// ReadRecords loads an NDJSON data file. Later lines for the same id win
// but keep the position of the first one; unreadable lines are skipped. A
// missing file is an empty result.
func ReadRecords(path string) ([]domain.ItemRecord, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []domain.ItemRecord
	index := make(map[string]int)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		var r domain.ItemRecord
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil || r.ID == "" {
			continue
		}
		if i, ok := index[r.ID]; ok {
			records[i] = r
			continue
		}
		index[r.ID] = len(records)
		records = append(records, r)
	}
	return records, scanner.Err()
}
