// Package settings persists small user preferences as a flat JSON file.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLanguage is used before the user has chosen one.
const DefaultLanguage = "auto"

// SupportedLanguages are the recognition language choices, "auto" meaning
// engine-side detection.
var SupportedLanguages = []string{"auto", "tr", "en", "de", "fr"}

var ErrUnsupportedLanguage = errors.New("unsupported language")

// Settings is the persisted preference document.
type Settings struct {
	Language string `json:"language"`
}

// Store reads and writes the settings file.
type Store struct {
	path string
}

// NewStore returns a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted settings, falling back to defaults when the
// file is absent or unreadable.
func (s *Store) Load() Settings {
	defaults := Settings{Language: DefaultLanguage}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return defaults
	}

	var loaded Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		return defaults
	}
	if !languageSupported(loaded.Language) {
		loaded.Language = DefaultLanguage
	}
	return loaded
}

// ValidateLanguage reports whether language is a recognized choice.
func ValidateLanguage(language string) error {
	if !languageSupported(language) {
		return fmt.Errorf("%w: %q (choose one of %v)", ErrUnsupportedLanguage, language, SupportedLanguages)
	}
	return nil
}

// SetLanguage validates and persists the recognition language.
func (s *Store) SetLanguage(language string) error {
	if err := ValidateLanguage(language); err != nil {
		return err
	}

	settings := s.Load()
	settings.Language = language
	return s.save(settings)
}

func (s *Store) save(settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure settings dir: %w", err)
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

func languageSupported(language string) bool {
	for _, l := range SupportedLanguages {
		if l == language {
			return true
		}
	}
	return false
}
