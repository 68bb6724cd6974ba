package plan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrPlanNotFound is returned by a Source when no pre-compiled plan matches
// the requested operation.
var ErrPlanNotFound = errors.New("plan: no query plan for operation")

// Operation identifies the client operation a plan is requested for.
type Operation struct {
	Query         string
	OperationName string
}

// Source resolves a client operation to its pre-compiled query plan.
// Planning itself happens offline; the gateway only executes.
type Source interface {
	Plan(ctx context.Context, op Operation) (*QueryPlan, error)
}

// Manifest is a Source backed by a JSON document of pre-compiled plans,
// keyed by operation name and by SHA-256 of the exact query text (the
// persisted-query convention).
type Manifest struct {
	byName map[string]*QueryPlan
	byHash map[string]*QueryPlan
}

type manifestJSON struct {
	Plans []manifestEntryJSON `json:"plans"`
}

type manifestEntryJSON struct {
	OperationName string          `json:"operationName"`
	QueryHash     string          `json:"queryHash"`
	Plan          json.RawMessage `json:"plan"`
}

// LoadManifest reads and decodes a plan manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes a plan manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	var doc manifestJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode plan manifest: %w", err)
	}
	m := &Manifest{
		byName: make(map[string]*QueryPlan),
		byHash: make(map[string]*QueryPlan),
	}
	for i, entry := range doc.Plans {
		if entry.OperationName == "" && entry.QueryHash == "" {
			return nil, fmt.Errorf("plan manifest entry %d has neither operationName nor queryHash", i)
		}
		qp, err := Decode(entry.Plan)
		if err != nil {
			return nil, fmt.Errorf("plan manifest entry %d: %w", i, err)
		}
		if entry.OperationName != "" {
			if _, dup := m.byName[entry.OperationName]; dup {
				return nil, fmt.Errorf("plan manifest has duplicate operation %q", entry.OperationName)
			}
			m.byName[entry.OperationName] = qp
		}
		if entry.QueryHash != "" {
			m.byHash[entry.QueryHash] = qp
		}
	}
	return m, nil
}

// Len reports the number of distinct plans indexed by operation name.
func (m *Manifest) Len() int { return len(m.byName) }

// Plan implements Source.
func (m *Manifest) Plan(_ context.Context, op Operation) (*QueryPlan, error) {
	if op.Query != "" {
		sum := sha256.Sum256([]byte(op.Query))
		if qp, ok := m.byHash[hex.EncodeToString(sum[:])]; ok {
			return qp, nil
		}
	}
	if op.OperationName != "" {
		if qp, ok := m.byName[op.OperationName]; ok {
			return qp, nil
		}
	}
	return nil, ErrPlanNotFound
}
