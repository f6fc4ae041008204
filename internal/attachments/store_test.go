package attachments

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"strings"
	"testing"

	"greenline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestStore_SaveAndOpen(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	saved, err := store.Save("site-photo.PNG", pngBytes(t))
	require.NoError(t, err)
	assert.Equal(t, models.AttachmentImage, saved.Type)
	assert.True(t, strings.HasSuffix(saved.Name, ".png"))
	assert.Equal(t, "/api/attachments/"+saved.Name, saved.URL)

	path, err := store.Open(saved.Name)
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes(t), content)
}

func TestStore_SaveValidation(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	t.Run("Empty content", func(t *testing.T) {
		_, err := store.Save("empty.txt", nil)
		assert.Error(t, err)
	})

	t.Run("Oversized content", func(t *testing.T) {
		_, err := store.Save("big.bin", make([]byte, MaxAttachmentSize+1))
		assert.Error(t, err)
	})

	t.Run("Hostile extension dropped", func(t *testing.T) {
		saved, err := store.Save("../../etc/passwd.sh{}", []byte("plain text payload"))
		require.NoError(t, err)
		assert.NotContains(t, saved.Name, "/")
		assert.NotContains(t, saved.Name, "{")
		assert.Equal(t, models.AttachmentFile, saved.Type)
	})

	t.Run("Extensionless name", func(t *testing.T) {
		saved, err := store.Save("README", []byte("notes about the site"))
		require.NoError(t, err)
		assert.NotContains(t, saved.Name, ".")
	})
}

func TestStore_OpenRejectsTraversal(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../secret", "a/b.png", ".hidden", ".."} {
		_, err := store.Open(name)
		assert.Error(t, err, "name %q must be rejected", name)
	}

	_, err = store.Open("does-not-exist.png")
	assert.Error(t, err)
}

func TestStore_Remove(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	t.Run("Removes a stored file", func(t *testing.T) {
		saved, err := store.Save("notes.txt", []byte("sampling notes"))
		require.NoError(t, err)

		require.NoError(t, store.Remove(saved.Name))
		_, err = store.Open(saved.Name)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Missing file is not an error", func(t *testing.T) {
		assert.NoError(t, store.Remove("already-gone.txt"))
	})

	t.Run("Rejects traversal names", func(t *testing.T) {
		for _, name := range []string{"", "../secret", "a/b.png", ".hidden", ".."} {
			assert.Error(t, store.Remove(name), "name %q must be rejected", name)
		}
	})
}

func TestClassify(t *testing.T) {
	assert.Equal(t, models.AttachmentImage, Classify(pngBytes(t)))
	assert.Equal(t, models.AttachmentFile, Classify([]byte("%PDF-1.7 not an image")))
	assert.Equal(t, models.AttachmentFile, Classify([]byte("plain text")))
}
