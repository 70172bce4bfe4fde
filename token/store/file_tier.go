package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

var _ Tier = (*FileTier)(nil)

// FileTier is a persistent tier backed by a YAML credentials file
type FileTier struct {
	path string
	lock sync.Mutex
}

// credentialsFile is the on-disk layout
type credentialsFile struct {
	Version int    `yaml:"version"`
	Token   Record `yaml:"token"`
}

func NewFileTier(path string) *FileTier {
	return &FileTier{path: path}
}

func (f *FileTier) Name() string {
	return "file"
}

func (f *FileTier) Path() string {
	return f.path
}

func (f *FileTier) Load(_ context.Context) (*Record, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[FileTier.Load] read %s: %w", f.path, err)
	}

	var cf credentialsFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("[FileTier.Load] decode %s: %w", f.path, err)
	}
	if cf.Token.AccessToken == "" {
		return nil, nil
	}
	return &cf.Token, nil
}

// Save writes the record to a temp file and renames it into place
func (f *FileTier) Save(_ context.Context, rec Record) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	data, err := yaml.Marshal(credentialsFile{Version: 1, Token: rec})
	if err != nil {
		return fmt.Errorf("[FileTier.Save] encode: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("[FileTier.Save] mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("[FileTier.Save] create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileTier.Save] chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileTier.Save] write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[FileTier.Save] close: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("[FileTier.Save] rename: %w", err)
	}
	return nil
}

func (f *FileTier) Clear(_ context.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("[FileTier.Clear] remove %s: %w", f.path, err)
	}
	return nil
}
