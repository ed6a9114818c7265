// Package settings holds the user-configurable state consumed by the
// enhancement pipeline and the action dispatcher: prompt template, signature,
// decline templates and the trigger-name contact.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// DefaultPromptTemplate is used when no template has been configured.
const DefaultPromptTemplate = "Rewrite the following dictated reply to the email " +
	"{subject} from {sender} into a polished email body. Keep the meaning intact.\n\n" +
	"Dictation:\n{transcript}"

// Template is a canned reply body selectable for quick-decline actions.
type Template struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Body string `json:"body"`
}

// Settings is the full user configuration snapshot.
type Settings struct {
	PromptTemplate string     `json:"prompt_template"`
	Signature      string     `json:"signature"`
	Templates      []Template `json:"templates"`
	TriggerName    string     `json:"trigger_name"`
	TriggerEmail   string     `json:"trigger_email"`
}

// TemplateByID returns the decline template with the given ID.
func (s Settings) TemplateByID(id string) (Template, bool) {
	for _, t := range s.Templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Store provides read access to settings at the moment of use. Implementations
// must be safe for concurrent use.
type Store interface {
	Get() Settings
	Reload() error
}

// FileStore persists settings as a JSON file, mirroring how the OAuth token
// is cached on disk.
type FileStore struct {
	mu   sync.RWMutex
	path string
	cur  Settings
}

// NewFileStore creates a FileStore backed by path, loading the file if it
// exists. A missing file is not an error; defaults apply until first Update.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, cur: Settings{PromptTemplate: DefaultPromptTemplate}}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the current settings snapshot.
func (s *FileStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Reload re-reads the backing file, replacing the in-memory snapshot.
func (s *FileStore) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("os.Open failed: %w", err)
	}
	defer func() { _ = f.Close() }()

	loaded := Settings{}
	if err := json.NewDecoder(f).Decode(&loaded); err != nil {
		return fmt.Errorf("json.NewDecoder.Decode failed: %w", err)
	}
	if loaded.PromptTemplate == "" {
		loaded.PromptTemplate = DefaultPromptTemplate
	}
	s.cur = loaded

	return nil
}

// Update applies a mutation to the settings and writes them back to disk.
func (s *FileStore) Update(apply func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur
	apply(&next)

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("os.OpenFile failed: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(next); err != nil {
		return fmt.Errorf("json.NewEncoder.Encode failed: %w", err)
	}
	s.cur = next

	return nil
}
