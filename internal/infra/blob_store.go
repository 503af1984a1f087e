package infra

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/Vovarama1992/watchparty/internal/ports"
	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ErrNotFound = errors.New("not found")

// DirBlobStore keeps uploads as flat files in one directory. Keys are
// sanitized filenames; saving an existing key overwrites it.
type DirBlobStore struct {
	dir string
}

func NewDirBlobStore(dir string) *DirBlobStore {
	return &DirBlobStore{dir: dir}
}

var _ ports.BlobStore = (*DirBlobStore)(nil)

func (s *DirBlobStore) Dir() string { return s.dir }

// Save streams r into the store and returns the path of the stored file.
// The data lands in a hidden temp file first and is renamed into place, so a
// failed copy never leaves a partial file under the final name.
func (s *DirBlobStore) Save(name string, r io.Reader) (string, error) {
	key := SanitizeFilename(name)
	if key == "" {
		key = "upload_" + uuid.NewString()
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close %s: %w", key, err)
	}

	dst := filepath.Join(s.dir, key)
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("store %s: %w", key, err)
	}
	return dst, nil
}

// Open returns the stored file or an error wrapping ErrNotFound.
func (s *DirBlobStore) Open(name string) (*os.File, error) {
	key := SanitizeFilename(name)
	if key == "" || key != name {
		return nil, fmt.Errorf("open %q: %w", name, ErrNotFound)
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("open %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("open %q: %w", name, err)
	}
	return f, nil
}

func (s *DirBlobStore) Path(name string) string {
	return filepath.Join(s.dir, SanitizeFilename(name))
}

const tempPrefix = ".part-"

// TempPath returns a fresh hidden path in the store for an output that is
// still being written. It is never reachable through Open.
func (s *DirBlobStore) TempPath(name string) string {
	return filepath.Join(s.dir, tempPrefix+uuid.NewString()+"-"+SanitizeFilename(name))
}

// Commit renames a finished temp file under name and returns the final path.
func (s *DirBlobStore) Commit(tempPath, name string) (string, error) {
	if !s.isTemp(tempPath) {
		return "", fmt.Errorf("commit %q: not a temp path of this store", tempPath)
	}
	key := SanitizeFilename(name)
	if key == "" {
		return "", fmt.Errorf("commit %q: empty name", name)
	}
	dst := filepath.Join(s.dir, key)
	if err := os.Rename(tempPath, dst); err != nil {
		return "", fmt.Errorf("commit %s: %w", key, err)
	}
	return dst, nil
}

// Discard removes a temp file; a missing one is fine.
func (s *DirBlobStore) Discard(tempPath string) {
	if s.isTemp(tempPath) {
		_ = os.Remove(tempPath)
	}
}

func (s *DirBlobStore) isTemp(path string) bool {
	return filepath.Dir(path) == filepath.Clean(s.dir) &&
		strings.HasPrefix(filepath.Base(path), tempPrefix)
}

var asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeFilename reduces name to a safe flat key: accents are folded to
// ASCII, path separators become word breaks, whitespace runs become "_",
// anything outside [A-Za-z0-9_.-] is dropped and leading/trailing "." and "_"
// are trimmed. The result may be empty.
func SanitizeFilename(name string) string {
	folded, _, err := transform.String(asciiFold, name)
	if err != nil {
		folded = name
	}
	folded = strings.NewReplacer("/", " ", "\\", " ").Replace(folded)
	joined := strings.Join(strings.Fields(folded), "_")

	var b strings.Builder
	for _, r := range joined {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_' || r == '.' || r == '-':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._")
}
