// Package registry loads the deal catalog file and reloads it on change.
package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"smart-dealer/internal/models"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// DealCatalog is the on-disk layout of configs/deals.yaml.
type DealCatalog struct {
	Version     string        `yaml:"version"`
	LastUpdated string        `yaml:"lastUpdated"`
	Deals       []models.Deal `yaml:"deals"`
}

// LoadDeals reads and validates a catalog file.
func LoadDeals(path string) ([]models.Deal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var catalog DealCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	seen := make(map[string]bool, len(catalog.Deals))
	for _, d := range catalog.Deals {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("%s: duplicate deal id %s", path, d.ID)
		}
		seen[d.ID] = true
	}
	return catalog.Deals, nil
}

// Watch calls onChange with the freshly loaded deals whenever the file is
// written or replaced, and onError when a reload fails. It blocks until ctx
// is done. Editors that save through rename are handled by watching the
// parent directory.
func Watch(ctx context.Context, path string, onChange func([]models.Deal), onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	// Writes usually arrive as a burst of events; coalesce them.
	const settle = 100 * time.Millisecond
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.After(settle)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onError(err)
		case <-pending:
			pending = nil
			deals, err := LoadDeals(abs)
			if err != nil {
				onError(err)
				continue
			}
			onChange(deals)
		}
	}
}
