package engine

import (
	"fmt"
	"slices"

	"github.com/tilemark/mapeditor/internal/catalog"
)

// Building is a placed building. Position is the top-left cell of its footprint.
type Building struct {
	Position GridCoord      `json:"position"`
	Name     string         `json:"name"`
	Type     catalog.TypeID `json:"type"`
}

// Entry pairs a building with its current row index.
type Entry struct {
	Index    int      `json:"index"`
	Building Building `json:"building"`
}

type placed struct {
	b    Building
	rect CellRect
}

// Placement owns the ordered list of buildings on a bounded grid and keeps
// their footprints disjoint.
//
// Indices follow insertion order. Remove shifts every later index down by
// one, so an index held across a Remove must be looked up again.
type Placement struct {
	catalog  *catalog.Catalog
	gridSize int
	items    []placed
}

func NewPlacement(c *catalog.Catalog, gridSize int) *Placement {
	return &Placement{catalog: c, gridSize: gridSize}
}

// Place validates and appends a building, returning its index.
func (p *Placement) Place(topLeft GridCoord, name string, typeID catalog.TypeID) (int, error) {
	return p.place(topLeft, name, typeID, true)
}

func (p *Placement) place(topLeft GridCoord, name string, typeID catalog.TypeID, checkOverlap bool) (int, error) {
	bt, err := p.catalog.Lookup(typeID)
	if err != nil {
		return -1, fmt.Errorf("place at (%d,%d): %w", topLeft.X, topLeft.Y, err)
	}

	rect := Footprint(topLeft, bt.Footprint)
	if !rect.Within(p.gridSize) {
		return -1, fmt.Errorf("place %s at (%d,%d) size %d: %w", typeID, topLeft.X, topLeft.Y, bt.Footprint, ErrOutOfBounds)
	}

	if checkOverlap {
		for i, it := range p.items {
			if rect.Overlaps(it.rect) {
				return -1, fmt.Errorf("place %s at (%d,%d): %w %d", typeID, topLeft.X, topLeft.Y, ErrOverlap, i)
			}
		}
	}

	p.items = append(p.items, placed{
		b:    Building{Position: topLeft, Name: name, Type: typeID},
		rect: rect,
	})
	return len(p.items) - 1, nil
}

// Remove deletes the building at index.
func (p *Placement) Remove(index int) error {
	if err := p.checkIndex(index); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	p.items = slices.Delete(p.items, index, index+1)
	return nil
}

// Rename replaces the name of the building at index.
func (p *Placement) Rename(index int, name string) error {
	if err := p.checkIndex(index); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	p.items[index].b.Name = name
	return nil
}

// Get returns the building at index.
func (p *Placement) Get(index int) (Building, error) {
	if err := p.checkIndex(index); err != nil {
		return Building{}, err
	}
	return p.items[index].b, nil
}

// ListAll returns a snapshot of every building in insertion order.
func (p *Placement) ListAll() []Entry {
	out := make([]Entry, len(p.items))
	for i, it := range p.items {
		out[i] = Entry{Index: i, Building: it.b}
	}
	return out
}

// FindAt returns the index of the first building whose footprint contains g.
func (p *Placement) FindAt(g GridCoord) (int, bool) {
	for i, it := range p.items {
		if it.rect.Contains(g) {
			return i, true
		}
	}
	return -1, false
}

// FootprintOf returns the cells covered by the building at index.
func (p *Placement) FootprintOf(index int) (CellRect, error) {
	if err := p.checkIndex(index); err != nil {
		return CellRect{}, err
	}
	return p.items[index].rect, nil
}

func (p *Placement) Len() int {
	return len(p.items)
}

// truncate drops every building from index n on.
func (p *Placement) truncate(n int) {
	if n < len(p.items) {
		p.items = p.items[:n]
	}
}

func (p *Placement) checkIndex(index int) error {
	if index < 0 || index >= len(p.items) {
		return fmt.Errorf("%w %d (have %d)", ErrIndex, index, len(p.items))
	}
	return nil
}
