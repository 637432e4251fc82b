package object

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Open when no object exists for the key.
var ErrNotFound = errors.New("object not found")

// ErrInvalidName rejects file names that could escape the owner's namespace.
var ErrInvalidName = errors.New("invalid file name")

// ObjectStore saves uploaded resume files and reads them back by storage key.
type ObjectStore interface {
	Save(ctx context.Context, userID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// NewKey returns "resumes/<owner hash>/<uuid>_<name>" for an upload. The
// owner is hashed so raw user ids never appear in paths.
func NewKey(userID, fileName string) (string, error) {
	name, err := SanitizeFileName(fileName)
	if err != nil {
		return "", err
	}
	return path.Join("resumes", OwnerDir(userID), uuid.NewString()+"_"+name), nil
}

// OwnerDir is a path-safe, stable directory name for a user id.
func OwnerDir(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:16])
}

// SanitizeFileName replaces path separators and rejects traversal.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	if s == "" || strings.Contains(s, "..") {
		return "", ErrInvalidName
	}
	s = strings.NewReplacer("/", "_", "\\", "_").Replace(s)
	return s, nil
}

// Sniff detects the content type from the first 512 bytes of r and returns a
// reader that still yields the whole stream.
func Sniff(r io.Reader) (string, io.Reader, error) {
	var head [512]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	return http.DetectContentType(head[:n]), io.MultiReader(bytes.NewReader(head[:n]), r), nil
}
