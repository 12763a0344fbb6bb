package catalog

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownType = errors.New("unknown building type")

type TypeID string

const (
	TypeCity    TypeID = "city"
	TypeTown    TypeID = "town"
	TypeVillage TypeID = "village"
	TypeCastle  TypeID = "castle"
	TypePort    TypeID = "port"
	TypeFarm    TypeID = "farm"
	TypeMine    TypeID = "mine"
)

// DefaultType is placed by the add-building key when the caller names none.
const DefaultType = TypeCity

// BuildingType describes how a kind of building occupies and looks on the grid.
type BuildingType struct {
	ID        TypeID `json:"id"`
	Footprint int    `json:"footprint"` // edge length in cells
	Color     string `json:"color"`
	Glyph     string `json:"glyph"`
	ShowName  bool   `json:"showName"`
}

var builtin = []BuildingType{
	{ID: TypeCity, Footprint: 2, Color: "blue", Glyph: "C", ShowName: true},
	{ID: TypeTown, Footprint: 2, Color: "#3a7bd5", Glyph: "T", ShowName: true},
	{ID: TypeVillage, Footprint: 1, Color: "#6ab04c", Glyph: "v", ShowName: true},
	{ID: TypeCastle, Footprint: 3, Color: "#7f8c8d", Glyph: "K", ShowName: true},
	{ID: TypePort, Footprint: 2, Color: "#0097a7", Glyph: "P", ShowName: true},
	{ID: TypeFarm, Footprint: 1, Color: "#c8a165", Glyph: "f", ShowName: false},
	{ID: TypeMine, Footprint: 1, Color: "#4b4b4b", Glyph: "m", ShowName: false},
}

// Catalog is a read-only table of building types keyed by id.
type Catalog struct {
	types map[TypeID]BuildingType
}

// New returns the catalog of built-in building types.
func New() *Catalog {
	return newCatalog(builtin)
}

func newCatalog(types []BuildingType) *Catalog {
	c := &Catalog{types: make(map[TypeID]BuildingType, len(types))}
	for _, t := range types {
		c.types[t.ID] = t
	}
	return c
}

// Lookup returns the building type registered under id.
func (c *Catalog) Lookup(id TypeID) (BuildingType, error) {
	t, ok := c.types[id]
	if !ok {
		return BuildingType{}, fmt.Errorf("%w: %q", ErrUnknownType, id)
	}
	return t, nil
}

// All returns every registered type ordered by id.
func (c *Catalog) All() []BuildingType {
	out := make([]BuildingType, 0, len(c.types))
	for _, t := range c.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
