package engine

import "fmt"

type FailurePolicy string

const (
	// FailSkip logs a bad load record and continues with the next one.
	FailSkip FailurePolicy = "skip"
	// FailAbort rolls the whole batch back on the first bad record.
	FailAbort FailurePolicy = "abort"
)

// Options configures the grid and the startup load behaviour.
type Options struct {
	GridSize   int     `json:"gridSize"`
	CellSize   float64 `json:"cellSize"`
	ZoomFactor float64 `json:"zoomFactor"`
	ClampJumps bool    `json:"clampJumps"`

	// TrustLoaded skips the overlap check for loaded records. Bounds and type
	// are still checked.
	TrustLoaded bool          `json:"trustLoaded"`
	OnFailure   FailurePolicy `json:"onFailure"`
}

func DefaultOptions() Options {
	return Options{
		GridSize:   1300,
		CellSize:   20,
		ZoomFactor: 1.1,
		ClampJumps: true,
		OnFailure:  FailSkip,
	}
}

// Validate rejects options the viewport math cannot work with.
func (o Options) Validate() error {
	if o.GridSize < 1 {
		return fmt.Errorf("grid size must be positive, got %d", o.GridSize)
	}
	if o.CellSize <= 0 {
		return fmt.Errorf("cell size must be positive, got %v", o.CellSize)
	}
	if o.ZoomFactor <= 1 {
		return fmt.Errorf("zoom factor must be greater than 1, got %v", o.ZoomFactor)
	}
	switch o.OnFailure {
	case FailSkip, FailAbort:
	default:
		return fmt.Errorf("unknown load failure policy %q", o.OnFailure)
	}
	return nil
}
