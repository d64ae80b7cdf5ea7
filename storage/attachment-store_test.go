package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *AttachmentStore {
	store, err := NewAttachmentStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestAttachmentStore_SaveAndOpen(t *testing.T) {
	store := newTestStore(t)

	attachment, err := store.Save("report.pdf", "application/pdf", 11, strings.NewReader("hello world"))
	require.NoError(t, err)

	assert.Equal(t, "report.pdf", attachment.OriginalName)
	assert.Equal(t, "application/pdf", attachment.MimeType)
	assert.Equal(t, int64(11), attachment.Size)
	assert.True(t, strings.HasSuffix(attachment.FileName, ".pdf"))
	assert.NotEqual(t, "report.pdf", attachment.FileName)
	assert.False(t, attachment.UploadedAt.IsZero())

	file, err := store.Open(attachment.FileName)
	require.NoError(t, err)
	defer file.Close()

	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestAttachmentStore_GeneratedNamesAreUnique(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Save("a.txt", "text/plain", 1, strings.NewReader("a"))
	require.NoError(t, err)
	second, err := store.Save("a.txt", "text/plain", 1, strings.NewReader("b"))
	require.NoError(t, err)

	assert.NotEqual(t, first.FileName, second.FileName)
}

func TestAttachmentStore_RejectsOversizedDeclaredSize(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save("big.bin", "application/octet-stream", MaxAttachmentSize+1, strings.NewReader(""))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestAttachmentStore_OpenRejectsPathTraversal(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Open("../secrets.txt")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = store.Open("")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestAttachmentStore_Remove(t *testing.T) {
	store := newTestStore(t)

	attachment, err := store.Save("a.txt", "text/plain", 1, strings.NewReader("a"))
	require.NoError(t, err)

	require.NoError(t, store.Remove(attachment.FileName))
	_, err = store.Open(attachment.FileName)
	assert.Error(t, err)

	// Removing again is not an error.
	assert.NoError(t, store.Remove(attachment.FileName))

	assert.ErrorIs(t, store.Remove("../x"), ErrInvalidName)
}
