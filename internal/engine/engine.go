package engine

import (
	"encoding/json"
	"fmt"

	"github.com/tilemark/mapeditor/internal/catalog"
	"github.com/tilemark/mapeditor/internal/document"
)

// Engine owns the viewport, the placed buildings and the input state of one editor.
// It processes commands from the frontend and answers queries for the renderer
// and the building list. All calls are expected on a single thread.
type Engine struct {
	opts      Options
	catalog   *catalog.Catalog
	viewport  *Viewport
	placement *Placement
	loader    *Loader

	mapInfo document.MapInfo

	// Selected building index, -1 for none.
	selected int

	drag dragState
}

// NewEngine creates an engine with an empty map. Calls made before a document
// is loaded see no buildings.
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("engine options: %w", err)
	}
	e := &Engine{
		opts:     opts,
		catalog:  catalog.New(),
		selected: -1,
	}
	e.reset(opts.GridSize, opts.CellSize)
	return e, nil
}

func (e *Engine) reset(gridSize int, cellSize float64) {
	opts := e.opts
	opts.GridSize = gridSize
	opts.CellSize = cellSize

	var viewW, viewH float64
	if e.viewport != nil {
		s := e.viewport.State()
		viewW, viewH = s.ViewW, s.ViewH
	}

	e.viewport = NewViewport(opts)
	e.viewport.Resize(viewW, viewH)
	e.placement = NewPlacement(e.catalog, gridSize)
	e.loader = NewLoader(e.placement, opts)
	e.selected = -1
	e.drag = dragState{}
}

// --- Commands (frontend → engine) ---

// LoadDocument replaces the current map with a document and merges its
// buildings as batch 0.
func (e *Engine) LoadDocument(jsonData string) (LoadReport, error) {
	doc, err := document.Parse([]byte(jsonData))
	if err != nil {
		return LoadReport{}, err
	}
	return e.loadDocument(doc)
}

// LoadSampleDocument loads the built-in sample map.
func (e *Engine) LoadSampleDocument() (LoadReport, error) {
	return e.loadDocument(document.NewSampleDocument(e.opts.GridSize, e.opts.CellSize))
}

func (e *Engine) loadDocument(doc *document.MapDocument) (LoadReport, error) {
	gridSize, cellSize := doc.Map.GridSize, doc.Map.CellSize
	if gridSize <= 0 {
		gridSize = e.opts.GridSize
	}
	if cellSize <= 0 {
		cellSize = e.opts.CellSize
	}

	e.reset(gridSize, cellSize)
	e.mapInfo = doc.Map
	e.mapInfo.GridSize = gridSize
	e.mapInfo.CellSize = cellSize

	return e.loader.LoadBatch(0, doc.Buildings)
}

// BeginMap switches to an empty map before its buildings are streamed in.
// The report is always empty; the error is reserved for loader failures.
func (e *Engine) BeginMap(info document.MapInfo) (LoadReport, error) {
	return e.loadDocument(&document.MapDocument{Map: info})
}

// Reconfigure swaps the editor options on an empty engine. The view size and
// catalog are kept. It fails with ErrNotEmpty once any building exists, since
// a smaller grid or a different load policy would not hold for them.
func (e *Engine) Reconfigure(opts Options) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("engine options: %w", err)
	}
	if n := e.placement.Len(); n > 0 {
		return fmt.Errorf("reconfigure: %w (%d)", ErrNotEmpty, n)
	}
	e.opts = opts
	e.mapInfo = document.MapInfo{}
	e.reset(opts.GridSize, opts.CellSize)
	return nil
}

// LoadBuildings merges one streamed batch of building records.
func (e *Engine) LoadBuildings(seq int64, jsonData string) (LoadReport, error) {
	recs, err := document.ParseRecords([]byte(jsonData))
	if err != nil {
		return LoadReport{Seq: seq}, err
	}
	return e.loader.LoadBatch(seq, recs)
}

// LoadRecords merges already decoded records.
func (e *Engine) LoadRecords(seq int64, recs []document.BuildingRecord) (LoadReport, error) {
	return e.loader.LoadBatch(seq, recs)
}

func (e *Engine) Resize(w, h float64) {
	e.viewport.Resize(w, h)
}

func (e *Engine) PanBy(dx, dy float64) {
	e.viewport.PanBy(dx, dy)
}

func (e *Engine) ZoomAt(x, y float64, sign int) {
	e.viewport.ZoomAt(ScreenPoint{X: x, Y: y}, sign)
}

// Place adds a building at a grid cell.
func (e *Engine) Place(g GridCoord, name string, typeID catalog.TypeID) (int, error) {
	return e.placement.Place(g, name, typeID)
}

// Remove deletes a building and keeps the selection pointing at the same building.
func (e *Engine) Remove(index int) error {
	if err := e.placement.Remove(index); err != nil {
		return err
	}
	switch {
	case index == e.selected:
		e.selected = -1
	case index < e.selected:
		e.selected--
	}
	return nil
}

func (e *Engine) Rename(index int, name string) error {
	return e.placement.Rename(index, name)
}

// JumpToBuilding centres the view on a building's position and selects it.
func (e *Engine) JumpToBuilding(index int) error {
	b, err := e.placement.Get(index)
	if err != nil {
		return fmt.Errorf("jump: %w", err)
	}
	if err := e.viewport.JumpTo(b.Position); err != nil {
		return err
	}
	e.selected = index
	return nil
}

// SetSelection selects a building, or clears the selection for a negative index.
func (e *Engine) SetSelection(index int) error {
	if index < 0 {
		e.selected = -1
		return nil
	}
	if _, err := e.placement.Get(index); err != nil {
		return fmt.Errorf("select: %w", err)
	}
	e.selected = index
	return nil
}

// --- Queries (frontend ← engine) ---

// Render returns the clipped draw commands for the current frame as JSON.
func (e *Engine) Render() string {
	commands := CompileDrawCommands(e.viewport, e.placement, e.catalog, e.selected)
	result, _ := DrawCommandsToJSON(commands)
	return result
}

// HitTest returns the index of the building under a screen point, or -1.
func (e *Engine) HitTest(x, y float64) int {
	i, ok := HitTest(e.viewport, e.placement, ScreenPoint{X: x, Y: y})
	if !ok {
		return -1
	}
	return i
}

// ListBuildings returns every building with its row index as JSON.
func (e *Engine) ListBuildings() string {
	data, _ := json.Marshal(e.placement.ListAll())
	return string(data)
}

// GetViewport returns the viewport state as JSON.
func (e *Engine) GetViewport() string {
	data, _ := json.Marshal(e.viewport.State())
	return string(data)
}

// GetCatalog returns every building type as JSON.
func (e *Engine) GetCatalog() string {
	data, _ := json.Marshal(e.catalog.All())
	return string(data)
}

// GetMap returns the loaded map's metadata as JSON.
func (e *Engine) GetMap() string {
	data, _ := json.Marshal(e.mapInfo)
	return string(data)
}

// GetSelection returns the selected index, or -1.
func (e *Engine) GetSelection() int {
	return e.selected
}

func (e *Engine) Viewport() *Viewport {
	return e.viewport
}

func (e *Engine) Placement() *Placement {
	return e.placement
}

func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}
