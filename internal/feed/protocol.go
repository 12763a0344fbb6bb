package feed

import (
	"encoding/json"

	"github.com/tilemark/mapeditor/internal/document"
)

type Message struct {
	Type     string          `json:"type"`
	MapID    string          `json:"mapId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

const (
	// Server to editor
	TypeMapMeta        = "map.meta"
	TypeBuildingsBatch = "buildings.batch"
	TypeLoadDone       = "load.done"
	TypeError          = "error"

	// Editor to server
	TypeResend = "buildings.resend"
)

type MetaPayload struct {
	Map       document.MapInfo `json:"map"`
	Total     int              `json:"total"`
	BatchSize int              `json:"batchSize"`
}

// BatchPayload carries one slice of the map's buildings. Seq starts at 1 and
// is what the editor's loader uses to drop redelivered batches.
type BatchPayload struct {
	Seq     int64                     `json:"seq"`
	Records []document.BuildingRecord `json:"records"`
}

type DonePayload struct {
	Total   int `json:"total"`
	Batches int `json:"batches"`
}

type ResendPayload struct {
	Seq int64 `json:"seq"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Split cuts records into batches of at most size records.
func Split(records []document.BuildingRecord, size int) [][]document.BuildingRecord {
	if size < 1 {
		size = 1
	}
	var out [][]document.BuildingRecord
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		out = append(out, records[start:end])
	}
	return out
}

func newMessage(typ, mapID string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, MapID: mapID, Payload: data}, nil
}
