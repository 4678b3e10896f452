// Package storage keeps uploaded files on local disk under the upload folder,
// optionally mirrored to an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/logger"
)

// Upload subfolders.
const (
	SyllabusDir  = "syllabus"
	MaterialsDir = "materials"
)

// Mirror receives a copy of every stored file.
type Mirror interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, contentType string) error
	Delete(ctx context.Context, key string) error
}

// LocalStore writes files under root and returns paths relative to it.
type LocalStore struct {
	root   string
	mirror Mirror
	log    *logger.Logger
}

func NewLocalStore(root string, mirror Mirror, log *logger.Logger) *LocalStore {
	if log == nil {
		log = logger.NewNop()
	}
	return &LocalStore{root: root, mirror: mirror, log: log.With("component", "storage")}
}

// EnsureDirs creates the upload folder tree.
func (s *LocalStore) EnsureDirs() error {
	for _, dir := range []string{SyllabusDir, MaterialsDir} {
		if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
			return fmt.Errorf("failed to create upload folder %s: %w", dir, err)
		}
	}
	return nil
}

// Root is the upload folder served under /uploads.
func (s *LocalStore) Root() string {
	return s.root
}

// Abs resolves a stored relative path.
func (s *LocalStore) Abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// Save copies body into dir under a collision-free name and returns the
// relative path, e.g. "materials/7_20261019083000_1a2b3c4d_notes.pdf".
func (s *LocalStore) Save(ctx context.Context, dir string, ownerID uint, originalName string, body io.Reader) (string, int64, error) {
	name := StoredName(ownerID, originalName, time.Now())
	rel := filepath.ToSlash(filepath.Join(dir, name))
	abs := s.Abs(rel)

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create upload folder: %w", err)
	}
	f, err := os.Create(abs)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}
	size, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(abs)
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}

	s.mirrorPut(ctx, rel, abs)
	return rel, size, nil
}

// Remove deletes a stored file. A file that is already gone is not an error.
func (s *LocalStore) Remove(ctx context.Context, rel string) error {
	if rel == "" {
		return nil
	}
	if err := os.Remove(s.Abs(rel)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", rel, err)
	}
	if s.mirror != nil {
		if err := s.mirror.Delete(ctx, rel); err != nil {
			s.log.Warn("failed to delete mirrored file", "path", rel, "error", err)
		}
	}
	return nil
}

// RemoveAll removes every path, logging failures. Used after a cascade commit.
func (s *LocalStore) RemoveAll(ctx context.Context, rels []string) {
	for _, rel := range rels {
		if err := s.Remove(ctx, rel); err != nil {
			s.log.Warn("failed to remove stored file", "path", rel, "error", err)
		}
	}
}

func (s *LocalStore) mirrorPut(ctx context.Context, rel, abs string) {
	if s.mirror == nil {
		return
	}
	f, err := os.Open(abs)
	if err != nil {
		s.log.Warn("failed to reopen file for mirroring", "path", rel, "error", err)
		return
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(abs))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.mirror.Put(ctx, rel, f, contentType); err != nil {
		s.log.Warn("failed to mirror uploaded file", "path", rel, "error", err)
	}
}

// StoredName builds "{owner}_{timestamp}_{uuid8}_{secure name}".
func StoredName(ownerID uint, originalName string, now time.Time) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%d_%s_%s_%s", ownerID, now.Format("20060102150405"), id, SecureFilename(originalName))
}

// SecureFilename reduces a client-supplied name to a safe ASCII file name.
// Path components are dropped and unsafe runes removed; a name with nothing
// left becomes "file" plus the original extension.
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	ext := filepath.Ext(name)
	base := sanitizeRunes(strings.TrimSuffix(name, ext))
	if base == "" {
		return "file" + SecureExtension(ext)
	}
	return base + SecureExtension(ext)
}

func sanitizeRunes(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}

// SecureExtension keeps an extension only when it is plain ASCII alphanumerics.
func SecureExtension(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	for _, r := range ext {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	if ext == "" {
		return ""
	}
	return "." + ext
}

// Extension returns the lowercase extension without the dot.
func Extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}
