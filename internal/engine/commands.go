package engine

import (
	"encoding/json"

	"github.com/tilemark/mapeditor/internal/catalog"
)

const gridStroke = "#ddd"

// DrawCommand is a single drawing operation for the frontend to execute on a
// Canvas2D context.
//
// "grid" carries the grid→screen transform and the window of cells to stroke.
// "building" carries a footprint already converted to screen space.
type DrawCommand struct {
	Op        string    `json:"op"`
	Index     *int      `json:"index,omitempty"`     // building row, for hit correlation
	Transform []float64 `json:"transform,omitempty"` // [a, b, c, d, e, f]
	Window    *CellRect `json:"window,omitempty"`    // visible cells for "grid"
	Rect      *Rect     `json:"rect,omitempty"`      // screen box for "building"
	Fill      string    `json:"fill,omitempty"`
	Stroke    string    `json:"stroke,omitempty"`
	Glyph     string    `json:"glyph,omitempty"`
	Label     string    `json:"label,omitempty"`
	Selected  bool      `json:"selected,omitempty"`
}

// VisibleWindow returns the grid cells that intersect the view, clamped to
// the grid. It is empty when the grid has been dragged fully off-screen.
func VisibleWindow(v *Viewport) CellRect {
	s := v.State()
	tl := v.ScreenToGrid(ScreenPoint{X: 0, Y: 0})
	br := v.ScreenToGrid(ScreenPoint{X: s.ViewW, Y: s.ViewH})

	x0, y0 := max(tl.X, 0), max(tl.Y, 0)
	x1, y1 := min(br.X+1, v.gridSize), min(br.Y+1, v.gridSize)
	if x1 <= x0 || y1 <= y0 {
		return CellRect{}
	}
	return CellRect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// CompileDrawCommands builds the draw list for one frame: the grid window
// first, then every building whose footprint is on screen, in insertion order.
func CompileDrawCommands(v *Viewport, p *Placement, c *catalog.Catalog, selected int) []DrawCommand {
	win := VisibleWindow(v)
	if win.IsEmpty() {
		return []DrawCommand{}
	}

	commands := []DrawCommand{{
		Op:        "grid",
		Transform: v.Transform().ToSlice(),
		Window:    &win,
		Stroke:    gridStroke,
	}}

	for _, entry := range p.ListAll() {
		rect, _ := p.FootprintOf(entry.Index)
		if !rect.Overlaps(win) {
			continue
		}
		bt, err := c.Lookup(entry.Building.Type)
		if err != nil {
			continue
		}

		index := entry.Index
		screen := v.CellScreenRect(rect)
		cmd := DrawCommand{
			Op:       "building",
			Index:    &index,
			Rect:     &screen,
			Fill:     bt.Color,
			Glyph:    bt.Glyph,
			Selected: index == selected,
		}
		if bt.ShowName {
			cmd.Label = entry.Building.Name
		}
		commands = append(commands, cmd)
	}

	return commands
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// HitTest returns the building under a screen point.
func HitTest(v *Viewport, p *Placement, pt ScreenPoint) (int, bool) {
	return p.FindAt(v.ScreenToGrid(pt))
}
