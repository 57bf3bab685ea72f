//go:build cgo

package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given path. KuzuDB creates the leaf directory itself for new databases.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Task(
		name STRING,
		type STRING,
		level INT64,
		PRIMARY KEY(name)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Artifact(
		id STRING,
		cardinality STRING,
		shape STRING,
		is_output BOOLEAN,
		sensitivity STRING,
		normalizer STRING,
		locations STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS PRODUCES(FROM Task TO Artifact, role STRING, seq INT64)`,
	`CREATE REL TABLE IF NOT EXISTS CONSUMES(FROM Task TO Artifact, role STRING, seq INT64)`,
	`CREATE REL TABLE IF NOT EXISTS DEPENDS_ON(FROM Task TO Task)`,
}

var relTables = []EdgeKind{EdgeKindProduces, EdgeKindConsumes, EdgeKindDependsOn}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// AddTask inserts a Task node.
func (s *KuzuStore) AddTask(_ context.Context, node TaskNode) error {
	return s.exec(
		"CREATE (t:Task {name: $name, type: $type, level: $level})",
		map[string]any{
			"name":  node.Name,
			"type":  node.Type,
			"level": int64(node.Level),
		},
	)
}

// AddArtifact inserts an Artifact node. Locations are stored newline-joined.
func (s *KuzuStore) AddArtifact(_ context.Context, node ArtifactNode) error {
	return s.exec(
		`CREATE (a:Artifact {
			id: $id,
			cardinality: $card,
			shape: $shape,
			is_output: $out,
			sensitivity: $sens,
			normalizer: $norm,
			locations: $locs
		})`,
		map[string]any{
			"id":    node.ID,
			"card":  node.Cardinality,
			"shape": node.Shape,
			"out":   node.IsOutput,
			"sens":  node.Sensitivity,
			"norm":  node.Normalizer,
			"locs":  strings.Join(node.Locations, "\n"),
		},
	)
}

// AddEdge inserts a relationship edge between two nodes.
// The Cypher statement is chosen based on the EdgeKind.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	switch edge.Kind {
	case EdgeKindProduces, EdgeKindConsumes:
		return s.exec(fmt.Sprintf(
			`MATCH (a:Task {name: $src}), (b:Artifact {id: $dst})
			 CREATE (a)-[:%s {role: $role, seq: $seq}]->(b)`, edge.Kind),
			map[string]any{
				"src":  edge.SourceID,
				"dst":  edge.TargetID,
				"role": edge.Role,
				"seq":  int64(edge.Seq),
			},
		)
	case EdgeKindDependsOn:
		return s.exec(
			`MATCH (a:Task {name: $src}), (b:Task {name: $dst})
			 CREATE (a)-[:DEPENDS_ON]->(b)`,
			map[string]any{"src": edge.SourceID, "dst": edge.TargetID},
		)
	default:
		return fmt.Errorf("kuzu: unsupported edge kind: %s", edge.Kind)
	}
}

// ---------- Read operations ----------

// GetTask retrieves a single Task node by name, or returns nil if not found.
func (s *KuzuStore) GetTask(_ context.Context, name string) (*TaskNode, error) {
	rows, err := s.query(
		"MATCH (t:Task {name: $name}) RETURN t.name, t.type, t.level",
		map[string]any{"name": name},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToTask(rows[0]), nil
}

// GetArtifact retrieves a single Artifact node by ID, or nil if not found.
// IDs are matched case-insensitively.
func (s *KuzuStore) GetArtifact(_ context.Context, id string) (*ArtifactNode, error) {
	rows, err := s.query(
		`MATCH (a:Artifact {id: $id})
		 RETURN a.id, a.cardinality, a.shape, a.is_output, a.sensitivity, a.normalizer, a.locations`,
		map[string]any{"id": strings.ToUpper(id)},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToArtifact(rows[0]), nil
}

// ListTasks returns every task ordered by level, then name.
func (s *KuzuStore) ListTasks(_ context.Context) ([]TaskNode, error) {
	rows, err := s.query("MATCH (t:Task) RETURN t.name, t.type, t.level ORDER BY t.level, t.name", nil)
	if err != nil {
		return nil, err
	}
	out := make([]TaskNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToTask(r))
	}
	return out, nil
}

// ListArtifacts returns every artifact ordered by ID.
func (s *KuzuStore) ListArtifacts(_ context.Context) ([]ArtifactNode, error) {
	rows, err := s.query(
		`MATCH (a:Artifact)
		 RETURN a.id, a.cardinality, a.shape, a.is_output, a.sensitivity, a.normalizer, a.locations
		 ORDER BY a.id`,
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]ArtifactNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToArtifact(r))
	}
	return out, nil
}

// GetStages returns the PRODUCES and CONSUMES edges of an artifact.
func (s *KuzuStore) GetStages(_ context.Context, artifactID string) ([]Edge, error) {
	var out []Edge
	for _, kind := range []EdgeKind{EdgeKindProduces, EdgeKindConsumes} {
		rows, err := s.query(fmt.Sprintf(
			`MATCH (t:Task)-[r:%s]->(a:Artifact {id: $id})
			 RETURN t.name, a.id, r.role, r.seq`, kind),
			map[string]any{"id": strings.ToUpper(artifactID)},
		)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, rowToStageEdge(r, kind))
		}
	}
	sortStages(out)
	return out, nil
}

// ---------- Graph traversal ----------

// GetDependencies performs a BFS over DEPENDS_ON edges starting from the
// given task. It returns one DependencyChain per reachable task.
func (s *KuzuStore) GetDependencies(_ context.Context, taskName string, dir Direction, maxDepth int) ([]DependencyChain, error) {
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}

	type bfsEntry struct {
		path  []string
		depth int
	}
	visited := map[string]bool{taskName: true}
	queue := []bfsEntry{{path: []string{taskName}, depth: 0}}
	var chains []DependencyChain

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		tip := cur.path[len(cur.path)-1]
		neighbors, err := s.taskNeighbors(tip, dir)
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			newPath := make([]string, len(cur.path)+1)
			copy(newPath, cur.path)
			newPath[len(cur.path)] = nb
			chains = append(chains, DependencyChain{
				Nodes: newPath,
				Depth: cur.depth + 1,
			})
			queue = append(queue, bfsEntry{path: newPath, depth: cur.depth + 1})
		}
	}
	return chains, nil
}

// taskNeighbors returns immediate task neighbors along DEPENDS_ON edges.
func (s *KuzuStore) taskNeighbors(name string, dir Direction) ([]string, error) {
	var cypher string
	switch dir {
	case DirectionUpstream:
		cypher = "MATCH (a:Task {name: $name})-[:DEPENDS_ON]->(b:Task) RETURN b.name ORDER BY b.name"
	case DirectionDownstream:
		cypher = "MATCH (a:Task)-[:DEPENDS_ON]->(b:Task {name: $name}) RETURN a.name ORDER BY a.name"
	default:
		return nil, fmt.Errorf("kuzu: unknown direction: %s", dir)
	}
	rows, err := s.query(cypher, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	return out, nil
}

// AssessImpact computes which tasks rerun when the given tasks or artifacts
// change.
func (s *KuzuStore) AssessImpact(ctx context.Context, changed []string) (*ImpactResult, error) {
	totalTasks, err := s.countTable("Task")
	if err != nil {
		return nil, err
	}
	edges, err := s.GetAllEdges(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(changed))
	for i, id := range changed {
		ids[i] = id
		t, err := s.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}
		if t != nil {
			continue
		}
		a, err := s.GetArtifact(ctx, id)
		if err != nil {
			return nil, err
		}
		if a != nil {
			ids[i] = a.ID
		}
	}
	return computeImpact(edges, totalTasks, ids), nil
}

// ---------- Edge enumeration ----------

// GetAllEdges returns all edges across all relationship tables.
func (s *KuzuStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	var edges []Edge
	for _, kind := range []EdgeKind{EdgeKindProduces, EdgeKindConsumes} {
		rows, err := s.query(fmt.Sprintf(
			"MATCH (a:Task)-[r:%s]->(b:Artifact) RETURN a.name, b.id, r.role, r.seq", kind), nil)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			edges = append(edges, rowToStageEdge(r, kind))
		}
	}
	rows, err := s.query("MATCH (a:Task)-[:DEPENDS_ON]->(b:Task) RETURN a.name, b.name", nil)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		edges = append(edges, Edge{
			SourceID: toString(r[0]),
			TargetID: toString(r[1]),
			Kind:     EdgeKindDependsOn,
		})
	}
	return edges, nil
}

// ---------- Stats ----------

// Stats returns counts of all node and edge tables.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	tasks, err := s.countTable("Task")
	if err != nil {
		return nil, err
	}
	artifacts, err := s.countTable("Artifact")
	if err != nil {
		return nil, err
	}
	edges, err := s.countEdges()
	if err != nil {
		return nil, err
	}
	return &GraphStats{
		TaskCount:     tasks,
		ArtifactCount: artifacts,
		EdgeCount:     edges,
	}, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// countTable returns the number of rows in a node table.
func (s *KuzuStore) countTable(table string) (int, error) {
	// Table name is a fixed internal constant, not user input.
	rows, err := s.query(fmt.Sprintf("MATCH (n:%s) RETURN count(n)", table), nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// countEdges returns the total number of edges across all relationship tables.
func (s *KuzuStore) countEdges() (int, error) {
	total := 0
	for _, t := range relTables {
		rows, err := s.query(fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", t), nil)
		if err != nil {
			return 0, err
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			total += toInt(rows[0][0])
		}
	}
	return total, nil
}

// rowToTask converts a 3-column result row: name, type, level.
func rowToTask(r []any) *TaskNode {
	return &TaskNode{
		Name:  toString(r[0]),
		Type:  toString(r[1]),
		Level: toInt(r[2]),
	}
}

// rowToArtifact converts a 7-column result row: id, cardinality, shape,
// is_output, sensitivity, normalizer, locations.
func rowToArtifact(r []any) *ArtifactNode {
	a := &ArtifactNode{
		ID:          toString(r[0]),
		Cardinality: toString(r[1]),
		Shape:       toString(r[2]),
		IsOutput:    toBool(r[3]),
		Sensitivity: toString(r[4]),
		Normalizer:  toString(r[5]),
	}
	if locs := toString(r[6]); locs != "" {
		a.Locations = strings.Split(locs, "\n")
	}
	return a
}

// rowToStageEdge converts a 4-column result row: task, artifact, role, seq.
func rowToStageEdge(r []any, kind EdgeKind) Edge {
	return Edge{
		SourceID: toString(r[0]),
		TargetID: toString(r[1]),
		Kind:     kind,
		Role:     toString(r[2]),
		Seq:      toInt(r[3]),
	}
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
