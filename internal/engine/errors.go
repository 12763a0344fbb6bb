package engine

import (
	"errors"

	"github.com/tilemark/mapeditor/internal/catalog"
)

var (
	ErrUnknownType = catalog.ErrUnknownType
	ErrOutOfBounds = errors.New("out of bounds")
	ErrOverlap     = errors.New("overlaps existing building")
	ErrIndex       = errors.New("no building at index")
	ErrNotEmpty    = errors.New("buildings already loaded")
)
