//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/tilemark/mapeditor/internal/catalog"
	"github.com/tilemark/mapeditor/internal/document"
	"github.com/tilemark/mapeditor/internal/engine"
)

var eng *engine.Engine

// editorConfig mirrors GET /api/editor-config.
type editorConfig struct {
	GridSize             *int     `json:"gridSize"`
	CellSize             *float64 `json:"cellSize"`
	ZoomFactor           *float64 `json:"zoomFactor"`
	ClampJumps           *bool    `json:"clampJumps"`
	TrustLoadedBuildings *bool    `json:"trustLoadedBuildings"`
	LoadFailurePolicy    *string  `json:"loadFailurePolicy"`
}

func main() {
	var err error
	eng, err = engine.NewEngine(engine.DefaultOptions())
	if err != nil {
		panic(err)
	}

	mapEditor := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	mapEditor.Set("configure", js.FuncOf(configure))
	mapEditor.Set("loadDocument", js.FuncOf(loadDocument))
	mapEditor.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	mapEditor.Set("beginMap", js.FuncOf(beginMap))
	mapEditor.Set("loadBuildings", js.FuncOf(loadBuildings))
	mapEditor.Set("resize", js.FuncOf(resize))
	mapEditor.Set("pointerDown", js.FuncOf(pointerDown))
	mapEditor.Set("pointerMove", js.FuncOf(pointerMove))
	mapEditor.Set("pointerUp", js.FuncOf(pointerUp))
	mapEditor.Set("click", js.FuncOf(click))
	mapEditor.Set("wheel", js.FuncOf(wheel))
	mapEditor.Set("zoomIn", js.FuncOf(zoomIn))
	mapEditor.Set("zoomOut", js.FuncOf(zoomOut))
	mapEditor.Set("keyDown", js.FuncOf(keyDown))
	mapEditor.Set("applyIntent", js.FuncOf(applyIntent))
	mapEditor.Set("setSelection", js.FuncOf(setSelection))

	// --- Queries (frontend ← engine) ---
	mapEditor.Set("render", js.FuncOf(render))
	mapEditor.Set("hitTest", js.FuncOf(hitTest))
	mapEditor.Set("screenToGrid", js.FuncOf(screenToGrid))
	mapEditor.Set("listBuildings", js.FuncOf(listBuildings))
	mapEditor.Set("getViewport", js.FuncOf(getViewport))
	mapEditor.Set("getCatalog", js.FuncOf(getCatalog))
	mapEditor.Set("getMap", js.FuncOf(getMap))
	mapEditor.Set("getSelection", js.FuncOf(getSelection))

	js.Global().Set("mapEditor", mapEditor)
	js.Global().Set("mapEditorWasmReady", js.ValueOf(true))

	select {}
}

func ok() any {
	return js.ValueOf(map[string]any{"ok": true})
}

func fail(msg string) any {
	return js.ValueOf(map[string]any{"error": msg})
}

func reportResult(report engine.LoadReport, err error) any {
	if err != nil {
		return fail(err.Error())
	}
	return js.ValueOf(map[string]any{
		"ok":        true,
		"seq":       report.Seq,
		"applied":   report.Applied,
		"skipped":   report.Skipped,
		"duplicate": report.Duplicate,
	})
}

// --- Command Handlers ---

// configure applies the server's editor settings. It must run before any
// building is placed or loaded.
func configure(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing editor config JSON")
	}
	var cfg editorConfig
	if err := json.Unmarshal([]byte(args[0].String()), &cfg); err != nil {
		return fail(err.Error())
	}

	opts := engine.DefaultOptions()
	if cfg.GridSize != nil {
		opts.GridSize = *cfg.GridSize
	}
	if cfg.CellSize != nil {
		opts.CellSize = *cfg.CellSize
	}
	if cfg.ZoomFactor != nil {
		opts.ZoomFactor = *cfg.ZoomFactor
	}
	if cfg.ClampJumps != nil {
		opts.ClampJumps = *cfg.ClampJumps
	}
	if cfg.TrustLoadedBuildings != nil {
		opts.TrustLoaded = *cfg.TrustLoadedBuildings
	}
	if cfg.LoadFailurePolicy != nil {
		opts.OnFailure = engine.FailurePolicy(*cfg.LoadFailurePolicy)
	}

	if err := eng.Reconfigure(opts); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func loadDocument(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing document JSON")
	}
	return reportResult(eng.LoadDocument(args[0].String()))
}

func loadSampleDocument(this js.Value, args []js.Value) any {
	return reportResult(eng.LoadSampleDocument())
}

// beginMap takes the map.meta payload's map object and clears the grid for
// the batches that follow.
func beginMap(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing map JSON")
	}
	var info document.MapInfo
	if err := json.Unmarshal([]byte(args[0].String()), &info); err != nil {
		return fail(err.Error())
	}
	return reportResult(eng.BeginMap(info))
}

func loadBuildings(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return fail("missing seq or records JSON")
	}
	return reportResult(eng.LoadBuildings(int64(args[0].Int()), args[1].String()))
}

func resize(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return nil
	}
	eng.Resize(args[0].Float(), args[1].Float())
	return nil
}

func pointerDown(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return nil
	}
	mode, err := engine.ParseMode(args[2].String())
	if err != nil {
		return fail(err.Error())
	}
	eng.PointerDown(args[0].Float(), args[1].Float(), mode)
	return nil
}

func pointerMove(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return nil
	}
	eng.PointerMove(args[0].Float(), args[1].Float())
	return nil
}

func pointerUp(this js.Value, args []js.Value) any {
	eng.PointerUp()
	return nil
}

// click(x, y, mode, buildingType, name)
func click(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return fail("missing click arguments")
	}
	mode, err := engine.ParseMode(args[2].String())
	if err != nil {
		return fail(err.Error())
	}
	typeID := catalog.DefaultType
	if len(args) > 3 && args[3].Type() == js.TypeString && args[3].String() != "" {
		typeID = catalog.TypeID(args[3].String())
	}
	var name string
	if len(args) > 4 && args[4].Type() == js.TypeString {
		name = args[4].String()
	}

	res, err := eng.Click(args[0].Float(), args[1].Float(), mode, typeID, name)
	if err != nil {
		return fail(err.Error())
	}
	return js.ValueOf(map[string]any{
		"ok":     true,
		"x":      res.Cell.X,
		"y":      res.Cell.Y,
		"index":  res.Index,
		"placed": res.Placed,
	})
}

func wheel(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return nil
	}
	eng.Wheel(args[0].Float(), args[1].Float(), args[2].Float())
	return nil
}

func zoomIn(this js.Value, args []js.Value) any {
	eng.ZoomIn()
	return nil
}

func zoomOut(this js.Value, args []js.Value) any {
	eng.ZoomOut()
	return nil
}

func keyDown(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	handled, err := eng.KeyDown(args[0].String())
	if err != nil {
		return fail(err.Error())
	}
	return js.ValueOf(handled)
}

func applyIntent(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing intent JSON")
	}
	in, err := engine.ParseIntent(args[0].String())
	if err != nil {
		return fail(err.Error())
	}
	index, err := eng.ApplyIntent(in)
	if err != nil {
		return fail(err.Error())
	}
	return js.ValueOf(map[string]any{"ok": true, "index": index})
}

func setSelection(this js.Value, args []js.Value) any {
	index := -1
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		index = args[0].Int()
	}
	if err := eng.SetSelection(index); err != nil {
		return fail(err.Error())
	}
	return ok()
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.Render())
}

func hitTest(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf(-1)
	}
	return js.ValueOf(eng.HitTest(args[0].Float(), args[1].Float()))
}

func screenToGrid(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return nil
	}
	g := eng.Viewport().ScreenToGrid(engine.ScreenPoint{X: args[0].Float(), Y: args[1].Float()})
	return js.ValueOf(map[string]any{"x": g.X, "y": g.Y})
}

func listBuildings(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.ListBuildings())
}

func getViewport(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.GetViewport())
}

func getCatalog(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.GetCatalog())
}

func getMap(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.GetMap())
}

func getSelection(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.GetSelection())
}
