package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dusk-indust/buildgraph/internal/graph"
)

// graphPath is where the Kùzu backend keeps its database.
func (a *app) graphPath() string {
	if p := a.cfg.Graph.Path; p != "" {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(a.dir, p)
	}
	return filepath.Join(a.buildDir(), "plan-graph")
}

func openStore(backend, path string) (graph.Store, error) {
	switch strings.ToLower(backend) {
	case "", "memory":
		return graph.NewMemStore(), nil
	case "kuzu":
		return openKuzuStore(path)
	default:
		return nil, fmt.Errorf("unknown graph backend %q: want memory or kuzu", backend)
	}
}
