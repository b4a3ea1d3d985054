package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airdatahub/airdata-fetch/internal/measurement"
)

func TestFilterSources(t *testing.T) {
	sources := []measurement.Source{
		{Name: "Amsterdam", Adapter: "eea"},
		{Name: "Portland", Adapter: "airnow"},
	}

	filtered, err := FilterSources(sources, "Portland")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Portland", filtered[0].Name)

	all, err := FilterSources(sources, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = FilterSources(sources, "Atlantis")
	assert.Error(t, err, "an unknown source filter must fail startup")
}

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.json")
	content := `[
		{"name": "Amsterdam", "adapter": "eea", "country": "NL", "city": "Amsterdam", "contacts": ["ops@example.com"]}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	sources, err := loadSources(path)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "eea", sources[0].Adapter)
}

func TestLoadSourcesRejectsInvalidEntries(t *testing.T) {
	dir := t.TempDir()

	missingAdapter := filepath.Join(dir, "missing_adapter.json")
	require.NoError(t, os.WriteFile(missingAdapter, []byte(`[{"name": "A"}]`), 0o600))
	_, err := loadSources(missingAdapter)
	assert.Error(t, err)

	badContact := filepath.Join(dir, "bad_contact.json")
	require.NoError(t, os.WriteFile(badContact, []byte(`[{"name": "A", "adapter": "eea", "contacts": ["not-an-email"]}]`), 0o600))
	_, err = loadSources(badContact)
	assert.Error(t, err)

	duplicate := filepath.Join(dir, "duplicate.json")
	require.NoError(t, os.WriteFile(duplicate, []byte(`[{"name": "A", "adapter": "eea"}, {"name": "A", "adapter": "airnow"}]`), 0o600))
	_, err = loadSources(duplicate)
	assert.Error(t, err)
}
