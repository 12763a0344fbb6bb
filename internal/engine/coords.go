package engine

// GridCoord addresses one cell of the world grid.
type GridCoord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ScreenPoint is a position in device pixels relative to the viewport's top-left corner.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CellRect is a half-open block of cells: [X, X+W) × [Y, Y+H).
type CellRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Footprint returns the square of cells a building of the given size covers
// when anchored at topLeft.
func Footprint(topLeft GridCoord, size int) CellRect {
	return CellRect{X: topLeft.X, Y: topLeft.Y, W: size, H: size}
}

// Overlaps reports whether r and o share at least one cell.
// Rects that only touch along an edge do not overlap.
func (r CellRect) Overlaps(o CellRect) bool {
	return spansMeet(r.X, r.W, o.X, o.W) && spansMeet(r.Y, r.H, o.Y, o.H)
}

// spansMeet reports whether [a, a+aw) and [b, b+bw) intersect. Offsets are
// taken as unsigned differences so no end coordinate is ever computed.
func spansMeet(a, aw, b, bw int) bool {
	if aw <= 0 || bw <= 0 {
		return false
	}
	if a <= b {
		return uint(b)-uint(a) < uint(aw)
	}
	return uint(a)-uint(b) < uint(bw)
}

// spanHas reports whether v lies in [a, a+w).
func spanHas(a, w, v int) bool {
	return w > 0 && v >= a && uint(v)-uint(a) < uint(w)
}

// Contains reports whether cell g lies inside r.
func (r CellRect) Contains(g GridCoord) bool {
	return spanHas(r.X, r.W, g.X) && spanHas(r.Y, r.H, g.Y)
}

// Within reports whether r lies entirely inside [0, size)².
func (r CellRect) Within(size int) bool {
	return r.X >= 0 && r.Y >= 0 && r.W >= 0 && r.H >= 0 &&
		r.W <= size && r.H <= size &&
		r.X <= size-r.W && r.Y <= size-r.H
}

// IsEmpty checks if the rect covers no cells.
func (r CellRect) IsEmpty() bool {
	return r.W <= 0 || r.H <= 0
}

// Rect represents an axis-aligned box in screen space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// Center returns the center point of the rect.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}
