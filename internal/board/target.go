package board

// TargetKind discriminates the DropTarget variant.
type TargetKind int

const (
	// TargetColumn is a whole-column drop area.
	TargetColumn TargetKind = iota
	// TargetCard is a single card; a drop on it infers the card's column.
	TargetCard
)

// DropTarget identifies one droppable area: a column by stage name or a card
// by project ID. The kind is carried explicitly by each registration instead
// of being re-parsed from an identifier string.
type DropTarget struct {
	kind      TargetKind
	column    string
	projectID string
}

// ColumnTarget builds a column drop target.
func ColumnTarget(stageName string) DropTarget {
	return DropTarget{kind: TargetColumn, column: stageName}
}

// CardTarget builds a card drop target.
func CardTarget(projectID string) DropTarget {
	return DropTarget{kind: TargetCard, projectID: projectID}
}

// Kind returns the target variant.
func (t DropTarget) Kind() TargetKind {
	return t.kind
}

// Column returns the stage name for column targets.
func (t DropTarget) Column() string {
	return t.column
}

// ProjectID returns the project ID for card targets.
func (t DropTarget) ProjectID() string {
	return t.projectID
}

// Point is one pointer position in board cell coordinates.
type Point struct {
	X int
	Y int
}

// Rect is one axis-aligned droppable bounds in board cell coordinates.
type Rect struct {
	X int
	Y int
	W int
	H int
}

// Contains reports whether the point lies inside the rect.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Intersects reports whether two rects overlap.
func (r Rect) Intersects(o Rect) bool {
	if r.W <= 0 || r.H <= 0 || o.W <= 0 || o.H <= 0 {
		return false
	}
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Droppable is one registered drop area with its current geometry.
type Droppable struct {
	Target DropTarget
	Bounds Rect
}
