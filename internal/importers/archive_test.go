package importers

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, contents := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(contents))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractArchive(t *testing.T) {
	data := buildZip(t, map[string]string{
		"messages/message_1.json": `{"participants": [], "messages": []}`,
		"photos/IMG_1.jpg":        "jpeg bytes",
		"__MACOSX/._junk":         "resource fork",
		".DS_Store":               "finder noise",
		"empty.txt":               "",
	})

	files, failures, err := ExtractArchive(data, "takeout.zip")
	require.NoError(t, err)

	require.Len(t, files, 2, "junk entries are skipped")
	names := []string{files[0].Filename, files[1].Filename}
	assert.Contains(t, names, "messages/message_1.json")
	assert.Contains(t, names, "photos/IMG_1.jpg")
	for _, f := range files {
		assert.Equal(t, "zip:takeout.zip", f.Origin)
	}

	require.Len(t, failures, 1)
	assert.Equal(t, "empty.txt", failures[0].Item)
	assert.Contains(t, failures[0].Reason, "empty")
}

func TestExtractArchive_NotAZip(t *testing.T) {
	_, _, err := ExtractArchive([]byte("just some text"), "notes.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestIsArchive(t *testing.T) {
	zipData := buildZip(t, map[string]string{"a.txt": "x"})

	assert.True(t, IsArchive("export.zip", nil))
	assert.True(t, IsArchive("export.ZIP", nil))
	assert.True(t, IsArchive("renamed.bin", zipData))
	assert.False(t, IsArchive("message_1.json", []byte(`{}`)))
}
