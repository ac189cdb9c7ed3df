// Package store persists a ledger.Account as an indented JSON file.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rustyeddy/traderagent/internal/logger"
	"github.com/rustyeddy/traderagent/ledger"
)

var ErrEmptyPath = errors.New("store: empty state path")

const (
	PaperFile = "paper_balance.json"
	LiveFile  = "balance.json"
)

// PathFor returns the state file for the trading mode inside dir.
func PathFor(dir string, paper bool) string {
	if paper {
		return filepath.Join(dir, PaperFile)
	}
	return filepath.Join(dir, LiveFile)
}

// File is the account state stored at Path.
type File struct {
	Path string
	mu   sync.Mutex
}

func New(path string) *File {
	return &File{Path: path}
}

// Load reads the account. A missing or empty file yields def() instead;
// def may be nil, in which case a missing file is an error.
func (f *File) Load(def func() *ledger.Account) (*ledger.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(f.Path)
	switch {
	case errors.Is(err, os.ErrNotExist) || (err == nil && len(data) == 0):
		if def == nil {
			return nil, fmt.Errorf("load %s: %w", f.Path, os.ErrNotExist)
		}
		logger.Infof("store: %s not found, using default account", f.Path)
		return def(), nil
	case err != nil:
		return nil, fmt.Errorf("load %s: %w", f.Path, err)
	}

	var acct ledger.Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Path, err)
	}
	acct.Normalize()
	logger.Debugf("store: loaded account from %s", f.Path)
	return &acct, nil
}

// Save writes acct, creating parent directories. The file is replaced
// atomically so a crash never leaves a truncated record.
func (f *File) Save(acct *ledger.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Path == "" {
		return ErrEmptyPath
	}
	if acct == nil {
		return fmt.Errorf("save %s: nil account", f.Path)
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save %s: %w", f.Path, err)
	}
	data, err := json.MarshalIndent(acct, "", "  ")
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", f.Path, err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", f.Path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", f.Path, err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", f.Path, err)
	}
	logger.Debugf("store: saved account to %s", f.Path)
	return nil
}
