package engine

import (
	"fmt"
	"math"

	"github.com/tilemark/mapeditor/internal/catalog"
)

// Mode is the canvas tool chosen in the toolbar. The engine never stores it;
// handlers receive it with each event.
type Mode string

const (
	ModePan   Mode = "pan"
	ModeBuild Mode = "build"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePan, ModeBuild:
		return Mode(s), nil
	case "place":
		return ModeBuild, nil
	}
	return "", fmt.Errorf("unknown input mode %q", s)
}

// clickSlop is how far, in pixels, a pan drag may travel and still count as a click.
const clickSlop = 4

type dragState struct {
	active   bool
	last     ScreenPoint
	traveled float64
}

// ClickResult reports what a canvas click did.
type ClickResult struct {
	Cell   GridCoord `json:"cell"`
	Index  int       `json:"index"`
	Placed bool      `json:"placed"`
}

// PointerDown starts a pan drag when the pan tool is active.
func (e *Engine) PointerDown(x, y float64, mode Mode) {
	if mode != ModePan {
		return
	}
	e.drag = dragState{active: true, last: ScreenPoint{X: x, Y: y}}
}

// PointerMove pans by the pointer's motion while a drag is active.
func (e *Engine) PointerMove(x, y float64) {
	if !e.drag.active {
		return
	}
	dx, dy := x-e.drag.last.X, y-e.drag.last.Y
	// Content follows the pointer, so pan moves the opposite way.
	e.viewport.PanBy(-dx, -dy)
	e.drag.last = ScreenPoint{X: x, Y: y}
	e.drag.traveled += math.Hypot(dx, dy)
}

func (e *Engine) PointerUp() {
	e.drag.active = false
}

// Click handles a canvas click. In build mode it places a building of typeID
// at the clicked cell; in pan mode it selects the building under the cursor
// unless the click ended a drag.
func (e *Engine) Click(x, y float64, mode Mode, typeID catalog.TypeID, name string) (ClickResult, error) {
	cell := e.viewport.ScreenToGrid(ScreenPoint{X: x, Y: y})
	res := ClickResult{Cell: cell, Index: -1}

	switch mode {
	case ModeBuild:
		i, err := e.placement.Place(cell, name, typeID)
		if err != nil {
			return res, err
		}
		res.Index, res.Placed = i, true
		e.selected = i
	case ModePan:
		if e.drag.traveled > clickSlop {
			e.drag.traveled = 0
			return res, nil
		}
		if i, ok := e.placement.FindAt(cell); ok {
			res.Index = i
		}
		e.selected = res.Index
	default:
		return res, fmt.Errorf("click: unknown input mode %q", mode)
	}
	return res, nil
}

// Wheel zooms about the cursor: scrolling up (negative deltaY) zooms in.
func (e *Engine) Wheel(x, y, deltaY float64) {
	switch {
	case deltaY < 0:
		e.viewport.ZoomAt(ScreenPoint{X: x, Y: y}, 1)
	case deltaY > 0:
		e.viewport.ZoomAt(ScreenPoint{X: x, Y: y}, -1)
	}
}

func (e *Engine) ZoomIn() {
	e.viewport.ZoomAt(e.viewport.Center(), 1)
}

func (e *Engine) ZoomOut() {
	e.viewport.ZoomAt(e.viewport.Center(), -1)
}

// KeyDown handles editor shortcuts and reports whether the key was used.
// "c" drops a default building on the cell under the middle of the view.
func (e *Engine) KeyDown(key string) (bool, error) {
	switch key {
	case "c":
		cell := e.viewport.ScreenToGrid(e.viewport.Center())
		i, err := e.placement.Place(cell, "", catalog.DefaultType)
		if err != nil {
			return true, err
		}
		e.selected = i
		return true, nil
	case "+", "=":
		e.ZoomIn()
		return true, nil
	case "-":
		e.ZoomOut()
		return true, nil
	case "Escape":
		e.selected = -1
		return true, nil
	}
	return false, nil
}
