package ogconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_ParsesKeyValuePairs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ogserver.cfg")
	contents := "# comment\n\ndbhost=localhost\ndbname = ogserver\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "localhost", f.Get("dbhost", ""))
	require.Equal(t, "ogserver", f.Get("dbname", ""))
	require.Equal(t, "fallback", f.Get("missing", "fallback"))
}

func TestLoad_MissingEqualsIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.cfg")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pair\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFileIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cfg"))
	require.Error(t, err)
}
