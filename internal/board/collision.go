package board

// Resolver decides which droppables a dragged item is currently over, ranked
// best-first. Implementations are pluggable so tests can substitute fixed
// geometry strategies.
type Resolver interface {
	// Resolve ranks candidate drop targets for the active item. The pointer is
	// nil for keyboard-driven gestures.
	Resolve(active Rect, pointer *Point, droppables []Droppable) []DropTarget
}

// columnPriorityResolver is the default strategy: pointer containment first,
// bounding-box intersection as fallback, with column targets always ranked
// ahead of card targets. Cards overlap their columns geometrically; without
// the priority rule a drop near a card edge would be attributed to the card
// underneath instead of the column.
type columnPriorityResolver struct{}

// NewColumnPriorityResolver constructs the default resolver.
func NewColumnPriorityResolver() Resolver {
	return columnPriorityResolver{}
}

// Resolve implements Resolver.
func (columnPriorityResolver) Resolve(active Rect, pointer *Point, droppables []Droppable) []DropTarget {
	if pointer != nil {
		hits := make([]DropTarget, 0, 2)
		for _, d := range droppables {
			if d.Bounds.Contains(*pointer) {
				hits = append(hits, d.Target)
			}
		}
		if len(hits) > 0 {
			return preferColumns(hits)
		}
	}

	hits := make([]DropTarget, 0, 2)
	for _, d := range droppables {
		if active.Intersects(d.Bounds) {
			hits = append(hits, d.Target)
		}
	}
	return preferColumns(hits)
}

// preferColumns filters to column targets when any are present; otherwise the
// unfiltered candidates are returned so a card drop can infer its column.
func preferColumns(targets []DropTarget) []DropTarget {
	columns := make([]DropTarget, 0, len(targets))
	for _, t := range targets {
		if t.Kind() == TargetColumn {
			columns = append(columns, t)
		}
	}
	if len(columns) > 0 {
		return columns
	}
	return targets
}
