package engine

import (
	"fmt"
	"math"
)

// zoomFloor keeps zoom strictly positive before the first Resize sets a real minimum.
const zoomFloor = 1e-6

// ViewportState is the read-only snapshot handed to renderers.
type ViewportState struct {
	PanX    float64 `json:"panX"`
	PanY    float64 `json:"panY"`
	Zoom    float64 `json:"zoom"`
	MinZoom float64 `json:"minZoom"`
	ViewW   float64 `json:"viewW"`
	ViewH   float64 `json:"viewH"`
}

// Viewport maps between screen pixels and grid cells under pan and zoom.
//
// Pan is stored in post-zoom screen pixels: cell (0,0) is drawn at (-panX, -panY).
// GridToScreen and ScreenToGrid are the only places that arithmetic lives; the
// renderer and every input handler go through them.
type Viewport struct {
	gridSize   int
	cellSize   float64
	factor     float64
	clampJumps bool

	panX, panY   float64
	zoom         float64
	minZoom      float64
	viewW, viewH float64
}

// NewViewport creates a viewport at zoom 1 with the world origin in the top-left corner.
func NewViewport(opts Options) *Viewport {
	return &Viewport{
		gridSize:   opts.GridSize,
		cellSize:   opts.CellSize,
		factor:     opts.ZoomFactor,
		clampJumps: opts.ClampJumps,
		zoom:       1,
		minZoom:    zoomFloor,
	}
}

// ScreenToGrid returns the cell under screen point p. The result may lie
// outside the grid when p is over empty space.
func (v *Viewport) ScreenToGrid(p ScreenPoint) GridCoord {
	cell := v.cellSize * v.zoom
	return GridCoord{
		X: int(math.Floor((p.X + v.panX) / cell)),
		Y: int(math.Floor((p.Y + v.panY) / cell)),
	}
}

// GridToScreen returns the screen position of cell g's top-left corner.
func (v *Viewport) GridToScreen(g GridCoord) ScreenPoint {
	return ScreenPoint{
		X: float64(g.X)*v.cellSize*v.zoom - v.panX,
		Y: float64(g.Y)*v.cellSize*v.zoom - v.panY,
	}
}

// CellScreenRect returns the screen box covered by the cells of r.
func (v *Viewport) CellScreenRect(r CellRect) Rect {
	tl := v.GridToScreen(GridCoord{X: r.X, Y: r.Y})
	side := v.cellSize * v.zoom
	return Rect{X: tl.X, Y: tl.Y, Width: float64(r.W) * side, Height: float64(r.H) * side}
}

// PanBy shifts the view by a raw pixel delta. Pan is never clamped.
func (v *Viewport) PanBy(dx, dy float64) {
	v.panX += dx
	v.panY += dy
}

// ZoomAt scales by the zoom factor (sign > 0 zooms in, sign < 0 zooms out)
// keeping the world point under anchor fixed on screen.
func (v *Viewport) ZoomAt(anchor ScreenPoint, sign int) {
	switch {
	case sign > 0:
		v.setZoom(anchor, v.zoom*v.factor)
	case sign < 0:
		v.setZoom(anchor, v.zoom/v.factor)
	}
}

// setZoom clamps z to the minimum and re-solves pan around anchor.
func (v *Viewport) setZoom(anchor ScreenPoint, z float64) {
	if z < v.minZoom {
		z = v.minZoom
	}
	old := v.zoom
	if z == old {
		return
	}
	// World position of the anchor is taken at the old zoom before pan is
	// re-derived at the new one.
	wx := (anchor.X + v.panX) / old
	wy := (anchor.Y + v.panY) / old
	v.zoom = z
	v.panX = wx*z - anchor.X
	v.panY = wy*z - anchor.Y
}

// Resize records the new view size and recomputes the minimum zoom so the
// grid still fills the shorter view dimension.
func (v *Viewport) Resize(w, h float64) {
	v.viewW = math.Max(w, 0)
	v.viewH = math.Max(h, 0)

	world := float64(v.gridSize) * v.cellSize
	v.minZoom = math.Max(math.Min(v.viewW, v.viewH)/world, zoomFloor)
	if v.zoom < v.minZoom {
		v.setZoom(v.Center(), v.minZoom)
	}
}

// JumpTo centres cell g in the view at the current zoom. Cells outside the
// grid are clamped or rejected depending on ClampJumps.
func (v *Viewport) JumpTo(g GridCoord) error {
	if !v.inGrid(g) {
		if !v.clampJumps {
			return fmt.Errorf("jump to (%d,%d): %w", g.X, g.Y, ErrOutOfBounds)
		}
		g = GridCoord{X: clampInt(g.X, 0, v.gridSize-1), Y: clampInt(g.Y, 0, v.gridSize-1)}
	}
	v.panX = float64(g.X)*v.cellSize*v.zoom - v.viewW/2
	v.panY = float64(g.Y)*v.cellSize*v.zoom - v.viewH/2
	return nil
}

// Center returns the screen point in the middle of the view.
func (v *Viewport) Center() ScreenPoint {
	return ScreenPoint{X: v.viewW / 2, Y: v.viewH / 2}
}

// Transform returns the grid→screen matrix: scale by the on-screen cell size,
// then shift by -pan.
func (v *Viewport) Transform() Matrix2D {
	s := v.cellSize * v.zoom
	return Translate(-v.panX, -v.panY).Multiply(Scale(s, s))
}

// State returns a snapshot of pan, zoom and view size.
func (v *Viewport) State() ViewportState {
	return ViewportState{
		PanX:    v.panX,
		PanY:    v.panY,
		Zoom:    v.zoom,
		MinZoom: v.minZoom,
		ViewW:   v.viewW,
		ViewH:   v.viewH,
	}
}

func (v *Viewport) inGrid(g GridCoord) bool {
	return g.X >= 0 && g.X < v.gridSize && g.Y >= 0 && g.Y < v.gridSize
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
