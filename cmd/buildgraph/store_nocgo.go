//go:build !cgo

package main

import (
	"errors"

	"github.com/dusk-indust/buildgraph/internal/graph"
)

func openKuzuStore(string) (graph.Store, error) {
	return nil, errors.New("kuzu backend requires a cgo build; use --backend memory")
}
