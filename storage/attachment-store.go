package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/models"
	"github.com/google/uuid"
)

// MaxAttachmentSize is the per-file upload ceiling. Oversized files are
// rejected individually, not the whole request.
const MaxAttachmentSize = 100 << 20 // 100 MB

var (
	ErrFileTooLarge = errors.New("attachment exceeds maximum size")
	ErrInvalidName  = errors.New("invalid attachment file name")
)

// AttachmentStore keeps attachment bytes on the local filesystem, addressed
// by a generated file name. The task document only ever holds metadata.
type AttachmentStore struct {
	dir string
}

func NewAttachmentStore(dir string) (*AttachmentStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create attachment directory: %v", err)
	}
	return &AttachmentStore{dir: dir}, nil
}

// Save streams one uploaded file to disk and returns its metadata record.
// declaredSize is the size reported by the multipart part; the write is
// capped at MaxAttachmentSize regardless.
func (s *AttachmentStore) Save(originalName, mimeType string, declaredSize int64, r io.Reader) (models.Attachment, error) {
	if declaredSize > MaxAttachmentSize {
		return models.Attachment{}, ErrFileTooLarge
	}

	fileName := uuid.New().String() + filepath.Ext(originalName)
	path := filepath.Join(s.dir, fileName)

	dst, err := os.Create(path)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("failed to create attachment file: %v", err)
	}
	defer dst.Close()

	// Copy one byte past the cap so undeclared oversized streams are caught.
	written, err := io.Copy(dst, io.LimitReader(r, MaxAttachmentSize+1))
	if err != nil {
		os.Remove(path)
		return models.Attachment{}, fmt.Errorf("failed to write attachment: %v", err)
	}
	if written > MaxAttachmentSize {
		os.Remove(path)
		return models.Attachment{}, ErrFileTooLarge
	}

	return models.Attachment{
		FileName:     fileName,
		OriginalName: originalName,
		MimeType:     mimeType,
		Size:         written,
		Path:         path,
		UploadedAt:   time.Now(),
	}, nil
}

// Open returns a reader for a stored attachment. Only bare generated file
// names are accepted; anything path-like is rejected.
func (s *AttachmentStore) Open(fileName string) (*os.File, error) {
	if fileName == "" || fileName != filepath.Base(fileName) {
		return nil, ErrInvalidName
	}
	return os.Open(filepath.Join(s.dir, fileName))
}

// Remove deletes a stored attachment. Missing files are not an error: task
// deletion cleans up best-effort.
func (s *AttachmentStore) Remove(fileName string) error {
	if fileName == "" || fileName != filepath.Base(fileName) {
		return ErrInvalidName
	}
	err := os.Remove(filepath.Join(s.dir, fileName))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
