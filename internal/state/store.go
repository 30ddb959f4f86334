package state

import (
	"fyne.io/fyne/v2"
)

// Store is the key-value persistence used for the annotation collections.
// A missing key reads as the empty string.
type Store interface {
	Load(key string) (string, error)
	Save(key, value string) error
	Remove(key string) error
}

// PrefsStore keeps collections in the application preferences.
type PrefsStore struct {
	prefs fyne.Preferences
}

func NewPrefsStore(p fyne.Preferences) *PrefsStore {
	return &PrefsStore{prefs: p}
}

func (s *PrefsStore) Load(key string) (string, error) {
	return s.prefs.String(key), nil
}

func (s *PrefsStore) Save(key, value string) error {
	s.prefs.SetString(key, value)
	return nil
}

func (s *PrefsStore) Remove(key string) error {
	s.prefs.RemoveValue(key)
	return nil
}
