package memstore

import "github.com/samber/lo"

// AssocKey identifies one edge of a many-to-many association set, e.g. a
// user ID paired with a group ID it belongs to.
type AssocKey struct {
	Left  string
	Right string
}

// Snapshot is an immutable version of the in-memory database state:
// aggregate-root records keyed by external identity within a named table,
// plus named association sets between two tables. Every mutation returns a
// new Snapshot rather than mutating in place; a commit replaces the
// storage's current snapshot pointer with the transaction's final one.
type Snapshot struct {
	tables map[string]map[string]any
	assocs map[string]map[AssocKey]struct{}
}

// emptySnapshot is the zero state a fresh Store or a Reset starts from.
func emptySnapshot() *Snapshot {
	return &Snapshot{
		tables: map[string]map[string]any{},
		assocs: map[string]map[AssocKey]struct{}{},
	}
}

// Get returns the record stored at id within table, if any.
func (s *Snapshot) Get(table, id string) (any, bool) {
	rows, ok := s.tables[table]
	if !ok {
		return nil, false
	}

	v, ok := rows[id]
	return v, ok
}

// All returns every record in table, in no particular order.
func (s *Snapshot) All(table string) []any {
	rows := s.tables[table]
	out := make([]any, 0, len(rows))
	for _, v := range rows {
		out = append(out, v)
	}

	return out
}

// Put returns a new Snapshot with id in table set to value.
func (s *Snapshot) Put(table, id string, value any) *Snapshot {
	next := s.copy()

	rows := copyRows(next.tables[table])
	rows[id] = value
	next.tables[table] = rows

	return next
}

// Delete returns a new Snapshot with id removed from table.
func (s *Snapshot) Delete(table, id string) *Snapshot {
	next := s.copy()

	rows := copyRows(next.tables[table])
	delete(rows, id)
	next.tables[table] = rows

	return next
}

// Associate returns a new Snapshot with the (left, right) edge added to the
// named association set.
func (s *Snapshot) Associate(set, left, right string) *Snapshot {
	next := s.copy()

	edges := copyEdges(next.assocs[set])
	edges[AssocKey{Left: left, Right: right}] = struct{}{}
	next.assocs[set] = edges

	return next
}

// Disassociate returns a new Snapshot with the (left, right) edge removed
// from the named association set.
func (s *Snapshot) Disassociate(set, left, right string) *Snapshot {
	next := s.copy()

	edges := copyEdges(next.assocs[set])
	delete(edges, AssocKey{Left: left, Right: right})
	next.assocs[set] = edges

	return next
}

// RightsOf returns every right-hand id associated with left in set.
func (s *Snapshot) RightsOf(set, left string) []string {
	var out []string
	for k := range s.assocs[set] {
		if k.Left == left {
			out = append(out, k.Right)
		}
	}

	return out
}

// LeftsOf returns every left-hand id associated with right in set.
func (s *Snapshot) LeftsOf(set, right string) []string {
	var out []string
	for k := range s.assocs[set] {
		if k.Right == right {
			out = append(out, k.Left)
		}
	}

	return out
}

// copy produces a shallow copy of the table and association maps
// themselves; the per-table row maps and per-set edge maps are copied
// lazily by the mutator that actually touches them, so an unrelated table
// is never recopied.
func (s *Snapshot) copy() *Snapshot {
	return &Snapshot{
		tables: lo.Assign(s.tables),
		assocs: lo.Assign(s.assocs),
	}
}

func copyRows(rows map[string]any) map[string]any {
	return lo.Assign(rows)
}

func copyEdges(edges map[AssocKey]struct{}) map[AssocKey]struct{} {
	return lo.Assign(edges)
}
