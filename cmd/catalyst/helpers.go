package main

import (
	"fmt"

	"catalyst/internal/store"
)

const defaultDBHint = store.DefaultDBPath

// openStoreAt opens the analysis database, defaulting the path.
func openStoreAt(path string) (*store.SqlStore, error) {
	if path == "" {
		path = store.DefaultDBPath
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}
