package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const appsYAML = `
source: apps
items:
  - id: apps:chrome
    name: Google Chrome
    kind: application
    icon: chrome.png
  - id: apps:code
    name: Visual Studio Code
    metadata:
      path: /usr/bin/code
`

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "installed.yaml", appsYAML)

	u, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "apps", u.Source)
	require.Len(t, u.Items, 2)
	assert.Equal(t, Item{ID: "apps:chrome", Name: "Google Chrome", Source: "apps", Kind: "application", Icon: "chrome.png"}, u.Items[0])
	assert.Equal(t, "/usr/bin/code", u.Items[1].Metadata["path"])
	assert.False(t, u.UpdatedAt.IsZero())
}

func TestLoadFileDefaultsSourceToBaseName(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bookmarks.yml", "items:\n  - id: b1\n    name: Go docs\n")

	u, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "bookmarks", u.Source)
	assert.Equal(t, "bookmarks", u.Items[0].Source)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "reading source file")

	_, err = LoadFile(writeFile(t, dir, "broken.yaml", "items: [\n"))
	assert.ErrorContains(t, err, "parsing source file")

	_, err = LoadFile(writeFile(t, dir, "invalid.yaml", "items:\n  - name: no id\n"))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b-web.yaml", "items:\n  - id: w1\n    name: Search the web\n")
	writeFile(t, dir, "a-apps.yaml", appsYAML)
	writeFile(t, dir, "c-broken.yaml", "items: [\n")
	writeFile(t, dir, "notes.txt", "not a source")
	writeFile(t, dir, ".hidden.yaml", "items: []\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o755))

	files, err := LoadDir(dir)
	assert.ErrorContains(t, err, "c-broken.yaml")
	require.Len(t, files, 2)
	assert.Equal(t, "apps", files[0].Update.Source)
	assert.Equal(t, "b-web", files[1].Update.Source)
	assert.Equal(t, filepath.Join(dir, "a-apps.yaml"), files[0].Path)
}

func TestIsSourceFile(t *testing.T) {
	assert.True(t, IsSourceFile("/x/apps.yaml"))
	assert.True(t, IsSourceFile("apps.YML"))
	assert.False(t, IsSourceFile("apps.json"))
	assert.False(t, IsSourceFile("/x/.apps.yaml.swp"))
	assert.False(t, IsSourceFile("/x/.apps.yaml"))
	assert.Equal(t, "apps", SourceIDFromPath("/x/apps.yaml"))
}
