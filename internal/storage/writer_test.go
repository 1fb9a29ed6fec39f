package storage_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/workshop-scraper/internal/domain"
	"github.com/qepting91/workshop-scraper/internal/storage"
)

func writeAll(t *testing.T, w *storage.WriterService, records ...domain.ItemRecord) {
	t.Helper()

	var wg sync.WaitGroup
	ch := make(chan domain.ItemRecord)
	wg.Add(1)
	go w.Start(&wg, ch)
	for _, r := range records {
		ch <- r
	}
	close(ch)
	wg.Wait()
	require.NoError(t, w.Err())
}

func TestWriterService_AppendAndRead(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data", "current.json")

	writeAll(t, &storage.WriterService{FilePath: path},
		domain.ItemRecord{ID: "1", Name: "One"},
		domain.ItemRecord{ID: "2", Name: "Two"},
	)
	w := &storage.WriterService{FilePath: path}
	writeAll(t, w, domain.ItemRecord{ID: "1", Name: "One", Subscribers: 7})
	assert.Equal(t, 1, w.Written())

	got, err := storage.ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, 7, got[0].Subscribers, "later lines win")
	assert.Equal(t, "2", got[1].ID)
}

func TestWriterService_Truncate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "current.json")
	writeAll(t, &storage.WriterService{FilePath: path}, domain.ItemRecord{ID: "1"})
	writeAll(t, &storage.WriterService{FilePath: path, Truncate: true}, domain.ItemRecord{ID: "2"})

	got, err := storage.ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestReadRecords_SkipsJunk(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "current.json")
	require.NoError(t, os.WriteFile(path, []byte("{\"id\":\"1\"}\nnot json\n{\"name\":\"no id\"}\n"), 0o644))

	got, err := storage.ReadRecords(path)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestReadRecords_MissingFile(t *testing.T) {
	t.Parallel()

	got, err := storage.ReadRecords(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, got)
}
