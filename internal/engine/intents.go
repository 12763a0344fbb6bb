package engine

import (
	"encoding/json"
	"fmt"

	"github.com/tilemark/mapeditor/internal/catalog"
)

const (
	IntentPlace  = "building.place"
	IntentRename = "building.rename"
	IntentRemove = "building.remove"
	IntentJump   = "building.jump"
	IntentSelect = "building.select"
)

// Intent is a request from the building list or toolbar.
type Intent struct {
	Type         string `json:"type"`
	Index        int    `json:"index"`
	Name         string `json:"name,omitempty"`
	X            int    `json:"x,omitempty"`
	Y            int    `json:"y,omitempty"`
	BuildingType string `json:"buildingType,omitempty"`
}

func ParseIntent(jsonData string) (Intent, error) {
	var in Intent
	if err := json.Unmarshal([]byte(jsonData), &in); err != nil {
		return Intent{}, fmt.Errorf("invalid intent: %w", err)
	}
	return in, nil
}

// ApplyIntent runs an intent and returns the index of the building it touched.
// After a remove the returned index no longer refers to anything.
func (e *Engine) ApplyIntent(in Intent) (int, error) {
	switch in.Type {
	case IntentPlace:
		typeID := catalog.TypeID(in.BuildingType)
		if typeID == "" {
			typeID = catalog.DefaultType
		}
		return e.Place(GridCoord{X: in.X, Y: in.Y}, in.Name, typeID)
	case IntentRename:
		return in.Index, e.Rename(in.Index, in.Name)
	case IntentRemove:
		return in.Index, e.Remove(in.Index)
	case IntentJump:
		return in.Index, e.JumpToBuilding(in.Index)
	case IntentSelect:
		return in.Index, e.SetSelection(in.Index)
	default:
		return -1, fmt.Errorf("unknown intent type: %s", in.Type)
	}
}
