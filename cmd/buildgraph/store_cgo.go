//go:build cgo

package main

import (
	"fmt"
	"os"

	"github.com/dusk-indust/buildgraph/internal/graph"
)

// openKuzuStore replaces any graph left by an earlier invocation.
func openKuzuStore(path string) (graph.Store, error) {
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove stale graph: %w", err)
	}
	store, err := graph.NewKuzuFileStore(path)
	if err != nil {
		return nil, fmt.Errorf("open graph: %w", err)
	}
	return store, nil
}
