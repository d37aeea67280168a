package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// IconStore keeps uploaded icons as flat files in one directory.
type IconStore struct {
	dir string
}

func NewIconStore(dir string) (*IconStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &IconStore{dir: dir}, nil
}

func (s *IconStore) Dir() string {
	return s.dir
}

// Save writes the icon under a fresh name and returns that name.
func (s *IconStore) Save(icon *Icon) (string, error) {
	if err := CheckIconFilename(icon.Filename); err != nil {
		return "", err
	}

	name := uuid.NewString() + icon.Ext()
	if err := os.WriteFile(filepath.Join(s.dir, name), icon.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to save icon: %w", err)
	}
	return name, nil
}

// IsUploaded reports whether icon names a stored file rather than an MDI icon.
func (s *IconStore) IsUploaded(icon string) bool {
	if icon == "" || icon != filepath.Base(icon) {
		return false
	}
	if CheckIconFilename(icon) != nil {
		return false
	}
	_, err := uuid.Parse(strings.TrimSuffix(icon, filepath.Ext(icon)))
	return err == nil
}

func (s *IconStore) Remove(icon string) error {
	if !s.IsUploaded(icon) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, icon)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove icon %s: %w", icon, err)
	}
	return nil
}
