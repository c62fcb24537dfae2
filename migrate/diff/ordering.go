package diff

import (
	"fmt"
	"sort"
)

// Phase ranks group steps the way every backend needs them: drops first
// (foreign keys before the tables they pin), then creates (tables before
// the foreign keys that reference them).
var stepRank = map[StepKind]int{
	StepDropForeignKey: 0,
	StepDropIndex:      1,
	StepDropColumn:     2,
	StepDropTable:      3,
	StepDropEnum:       4,
	StepCreateEnum:     5,
	StepCreateTable:    6,
	StepAlterColumn:    7,
	StepAddColumn:      8,
	StepAddIndex:       9,
	StepAddForeignKey:  10,
	StepRaw:            11,
}

// orderSteps produces the final step order: a topological sort over the
// dependency edges between steps, with ties broken by phase rank and then by
// entity name. Identical inputs yield identical output, byte for byte.
func orderSteps(steps []Step) []Step {
	if len(steps) == 0 {
		return steps
	}

	createdTables := map[string]int{}
	droppedTables := map[string]int{}
	for i, s := range steps {
		switch s.Kind {
		case StepCreateTable:
			createdTables[s.Table] = i
		case StepDropTable:
			droppedTables[s.Table] = i
		}
	}

	edges := make(map[int][]int, len(steps))
	inDegree := make([]int, len(steps))
	addEdge := func(from, to int) {
		edges[from] = append(edges[from], to)
		inDegree[to]++
	}

	for i, s := range steps {
		switch s.Kind {
		case StepAddColumn, StepAlterColumn, StepAddIndex:
			if t, ok := createdTables[s.Table]; ok {
				addEdge(t, i)
			}
		case StepAddForeignKey:
			// The constraint needs both ends to exist.
			if t, ok := createdTables[s.Table]; ok {
				addEdge(t, i)
			}
			if t, ok := createdTables[s.ForeignKey.ReferencedTable]; ok && s.ForeignKey.ReferencedTable != s.Table {
				addEdge(t, i)
			}
		case StepDropForeignKey:
			// The constraint must be gone before either end is dropped.
			if t, ok := droppedTables[s.Table]; ok {
				addEdge(i, t)
			}
			if t, ok := droppedTables[s.ForeignKey.ReferencedTable]; ok && s.ForeignKey.ReferencedTable != s.Table {
				addEdge(i, t)
			}
		case StepDropIndex, StepDropColumn:
			if t, ok := droppedTables[s.Table]; ok {
				addEdge(i, t)
			}
		}
	}

	ready := make([]int, 0, len(steps))
	for i := range steps {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	ordered := make([]Step, 0, len(steps))
	for len(ready) > 0 {
		sort.Slice(ready, func(a, b int) bool {
			return sortKey(steps[ready[a]]) < sortKey(steps[ready[b]])
		})
		current := ready[0]
		ready = ready[1:]
		ordered = append(ordered, steps[current])
		for _, next := range edges[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	// A cycle can only come from a differ bug; emit the remainder in key
	// order rather than dropping steps.
	if len(ordered) < len(steps) {
		var rest []int
		for i := range steps {
			if inDegree[i] > 0 {
				rest = append(rest, i)
			}
		}
		sort.Slice(rest, func(a, b int) bool {
			return sortKey(steps[rest[a]]) < sortKey(steps[rest[b]])
		})
		for _, i := range rest {
			ordered = append(ordered, steps[i])
		}
	}

	return ordered
}

func sortKey(s Step) string {
	return fmt.Sprintf("%02d|%s|%s", stepRank[s.Kind], s.Table, entityName(s))
}

func entityName(s Step) string {
	switch s.Kind {
	case StepAddColumn, StepDropColumn:
		return s.Column.Name
	case StepAlterColumn:
		return s.After.Name
	case StepAddIndex, StepDropIndex:
		return s.Index.Name
	case StepAddForeignKey, StepDropForeignKey:
		return s.ForeignKey.ConstraintName
	case StepCreateEnum, StepDropEnum:
		return s.Enum.Name
	default:
		return ""
	}
}
