package schema

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	"lukechampine.com/blake3"

	dErrors "stategraph/pkg/domain-errors"
)

// StaticProvider holds per-branch relationship tables in memory. Branch
// creation forks the origin's snapshot under the new name; refreshes replace
// a branch's table wholesale.
type StaticProvider struct {
	mu       sync.RWMutex
	branches map[string]map[string]RelationshipSchema
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{branches: make(map[string]map[string]RelationshipSchema)}
}

func key(kind, field string) string { return kind + "." + field }

// Register declares a relationship schema on a branch. Invalid capability
// tables are rejected up front so they can never reach a query.
func (p *StaticProvider) Register(branch, kind string, rel RelationshipSchema) error {
	if err := rel.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	table, ok := p.branches[branch]
	if !ok {
		table = make(map[string]RelationshipSchema)
		p.branches[branch] = table
	}
	table[key(kind, rel.Name)] = rel
	return nil
}

func (p *StaticProvider) Relationship(_ context.Context, branch, kind, field string) (RelationshipSchema, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if table, ok := p.branches[branch]; ok {
		if rel, ok := table[key(kind, field)]; ok {
			return rel, nil
		}
	}
	return RelationshipSchema{}, dErrors.Newf(dErrors.CodeNotFound, "relationship %s.%s not found on branch %s", kind, field, branch)
}

// Fork duplicates the origin branch's schema snapshot under a new name.
// A branch with no registrations forks as an empty snapshot.
func (p *StaticProvider) Fork(_ context.Context, origin, branch string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	table := p.branches[origin]
	forked := make(map[string]RelationshipSchema, len(table))
	for k, v := range table {
		forked[k] = v
	}
	p.branches[branch] = forked
	return nil
}

// Hash returns a content hash of a branch's schema snapshot. Two branches
// with identical tables hash identically.
func (p *StaticProvider) Hash(_ context.Context, branch string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	table := p.branches[branch]

	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		rel := table[k]
		fmt.Fprintf(&b, "%s|%s|%s|%s|%s|%s|%s|%s\n",
			k, rel.Peer, rel.Identifier, rel.BranchSupport,
			strings.Join(rel.FlagProperties, ","),
			strings.Join(rel.NodeProperties, ","),
			strings.Join(rel.FilterableFields, ","),
			strings.Join(rel.OrderBy, ","))
	}
	sum := blake3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:]), nil
}
