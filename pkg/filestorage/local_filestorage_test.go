package filestorage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFileStorage_SaveAndDelete(t *testing.T) {
	base := t.TempDir()
	s, err := NewLocalFileStorage(base)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC) }

	path, err := s.Save(strings.NewReader("%PDF-1.4"), "Planos.PDF", "tramites")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "tramites/2025/03/07/2025-03-07-"))
	assert.True(t, strings.HasSuffix(path, ".pdf"))

	content, err := os.ReadFile(filepath.Join(base, filepath.FromSlash(path)))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(content))

	require.NoError(t, s.Delete(URLPrefix+path))
	_, err = os.Stat(filepath.Join(base, filepath.FromSlash(path)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Delete(URLPrefix+path), "повторное удаление не ошибка")
	assert.Error(t, s.Delete(URLPrefix+"../secret"))
}
