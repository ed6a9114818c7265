package settings_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amoyroud/audiodraft/internal/settings"
)

func TestFileStoreMissingFileUsesDefaults(t *testing.T) {
	store, err := settings.NewFileStore(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)

	got := store.Get()
	assert.Equal(t, settings.DefaultPromptTemplate, got.PromptTemplate)
	assert.Empty(t, got.Templates)
}

func TestFileStoreUpdateAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	store, err := settings.NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Update(func(s *settings.Settings) {
		s.Signature = "Jane"
		s.TriggerName = "Maria"
		s.TriggerEmail = "maria@x.com"
		s.Templates = []settings.Template{{ID: "decline-1", Name: "Polite no", Body: "Thanks, but no."}}
	}))

	// A second store over the same file sees the persisted values.
	other, err := settings.NewFileStore(path)
	require.NoError(t, err)

	got := other.Get()
	assert.Equal(t, "Jane", got.Signature)
	assert.Equal(t, "Maria", got.TriggerName)

	tpl, ok := got.TemplateByID("decline-1")
	require.True(t, ok)
	assert.Equal(t, "Thanks, but no.", tpl.Body)

	_, ok = got.TemplateByID("missing")
	assert.False(t, ok)
}

func TestFileStoreReloadPicksUpExternalEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"signature":"Old"}`), 0600))

	store, err := settings.NewFileStore(path)
	require.NoError(t, err)
	require.Equal(t, "Old", store.Get().Signature)

	require.NoError(t, os.WriteFile(path, []byte(`{"signature":"New"}`), 0600))
	require.NoError(t, store.Reload())
	assert.Equal(t, "New", store.Get().Signature)
}
