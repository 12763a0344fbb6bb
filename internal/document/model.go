package document

import (
	"encoding/json"
	"fmt"
)

// MapDocument is the external definition of a map and the buildings it starts with.
type MapDocument struct {
	Map       MapInfo          `json:"map"`
	Buildings []BuildingRecord `json:"buildings"`
}

type MapInfo struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	OwnerID   string  `json:"ownerId,omitempty"`
	Public    bool    `json:"public"`
	GridSize  int     `json:"gridSize"`
	CellSize  float64 `json:"cellSize"`
	CreatedAt string  `json:"createdAt,omitempty"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
}

// BuildingRecord is one building as stored by the data source. Type is left
// as a plain string; unknown types are the loader's problem, not the parser's.
type BuildingRecord struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Parse decodes a full map document.
func Parse(data []byte) (*MapDocument, error) {
	var doc MapDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode map document: %w", err)
	}
	if doc.Buildings == nil {
		doc.Buildings = []BuildingRecord{}
	}
	return &doc, nil
}

// ParseRecords decodes a bare JSON array of building records.
func ParseRecords(data []byte) ([]BuildingRecord, error) {
	var recs []BuildingRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode building records: %w", err)
	}
	return recs, nil
}

// NewEmptyDocument creates a map with no buildings.
func NewEmptyDocument(mapID, name string, gridSize int, cellSize float64) *MapDocument {
	return &MapDocument{
		Map: MapInfo{
			ID:       mapID,
			Name:     name,
			GridSize: gridSize,
			CellSize: cellSize,
		},
		Buildings: []BuildingRecord{},
	}
}
