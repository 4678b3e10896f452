package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureFilename(t *testing.T) {
	cases := map[string]string{
		"notes.pdf":                "notes.pdf",
		"../../etc/passwd":         "passwd",
		`C:\docs\week 1 intro.pdf`: "week_1_intro.pdf",
		"강의계획서.pdf":                "file.pdf",
		"../.env":                  "file.env",
		"":                         "file",
	}
	for in, want := range cases {
		assert.Equal(t, want, SecureFilename(in), in)
	}
}

func TestStoredNameFormat(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	name := StoredName(7, "My Notes.pdf", now)
	assert.Regexp(t, regexp.MustCompile(`^7_20261019083000_[0-9a-f]{8}_My_Notes\.pdf$`), name)
	assert.NotEqual(t, name, StoredName(7, "My Notes.pdf", now))
}

type recordingMirror struct {
	puts    map[string][]byte
	deletes []string
}

func (m *recordingMirror) Put(ctx context.Context, key string, body io.ReadSeeker, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.puts[key] = data
	return nil
}

func (m *recordingMirror) Delete(ctx context.Context, key string) error {
	m.deletes = append(m.deletes, key)
	return nil
}

func TestLocalStoreSaveAndRemove(t *testing.T) {
	mirror := &recordingMirror{puts: map[string][]byte{}}
	store := NewLocalStore(t.TempDir(), mirror, nil)
	require.NoError(t, store.EnsureDirs())

	rel, size, err := store.Save(context.Background(), MaterialsDir, 3, "week1.pdf", bytes.NewBufferString("%PDF-1.4 body"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "materials/3_"))
	assert.Equal(t, int64(13), size)
	assert.Equal(t, []byte("%PDF-1.4 body"), mirror.puts[rel])

	_, err = os.Stat(store.Abs(rel))
	require.NoError(t, err)

	require.NoError(t, store.Remove(context.Background(), rel))
	_, err = os.Stat(store.Abs(rel))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, []string{rel}, mirror.deletes)

	assert.NoError(t, store.Remove(context.Background(), rel), "removing a missing file is not an error")
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "pdf", Extension("A.PDF"))
	assert.Equal(t, "", Extension("README"))
}
