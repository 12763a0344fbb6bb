package maps

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tilemark/mapeditor/internal/catalog"
	"github.com/tilemark/mapeditor/internal/db"
	"github.com/tilemark/mapeditor/internal/document"
	"github.com/tilemark/mapeditor/internal/engine"
	"github.com/tilemark/mapeditor/internal/typeid"
)

var (
	ErrNotFound     = errors.New("map not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("authentication required")
	ErrInvalidMap   = errors.New("invalid map")
)

// Store is the slice of db.Store the map service reads and writes. A nil
// Store leaves only the sample map.
type Store interface {
	GetMap(ctx context.Context, id string) (db.Map, error)
	ListMapsForUser(ctx context.Context, ownerID string) ([]db.Map, error)
	ListBuildings(ctx context.Context, mapID string) ([]db.Building, error)
	CreateMapWithBuildings(ctx context.Context, arg db.CreateMapParams, rows []db.Building) (db.Map, error)
}

type Service struct {
	store  Store
	editor engine.Options
	sample *document.MapDocument
}

func NewService(store Store, editor engine.Options) *Service {
	return &Service{
		store:  store,
		editor: editor,
		sample: document.NewSampleDocument(editor.GridSize, editor.CellSize),
	}
}

// List returns the sample map followed by every stored map the user may see.
// Anonymous callers get the sample and public maps.
func (s *Service) List(ctx context.Context, userID string) ([]document.MapInfo, error) {
	out := []document.MapInfo{s.sample.Map}
	if s.store == nil {
		return out, nil
	}

	rows, err := s.store.ListMapsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	for _, m := range rows {
		out = append(out, toMapInfo(m))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, mapID, userID string) (*document.MapInfo, error) {
	if mapID == document.SampleMapID {
		info := s.sample.Map
		return &info, nil
	}
	m, err := s.readable(ctx, mapID, userID)
	if err != nil {
		return nil, err
	}
	info := toMapInfo(m)
	return &info, nil
}

func (s *Service) Buildings(ctx context.Context, mapID, userID string) ([]document.BuildingRecord, error) {
	if mapID == document.SampleMapID {
		return append([]document.BuildingRecord(nil), s.sample.Buildings...), nil
	}
	if _, err := s.readable(ctx, mapID, userID); err != nil {
		return nil, err
	}
	return s.buildings(ctx, mapID)
}

// Document loads a map and all of its buildings.
func (s *Service) Document(ctx context.Context, mapID, userID string) (*document.MapDocument, error) {
	if mapID == document.SampleMapID {
		doc := *s.sample
		doc.Buildings = append([]document.BuildingRecord(nil), s.sample.Buildings...)
		return &doc, nil
	}
	m, err := s.readable(ctx, mapID, userID)
	if err != nil {
		return nil, err
	}
	recs, err := s.buildings(ctx, mapID)
	if err != nil {
		return nil, err
	}
	return &document.MapDocument{Map: toMapInfo(m), Buildings: recs}, nil
}

// Import stores a new map owned by userID. The buildings are replayed through
// a placement engine first, so a document the editor would reject never
// reaches the database.
func (s *Service) Import(ctx context.Context, userID string, doc *document.MapDocument) (*document.MapInfo, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if s.store == nil {
		return nil, errors.New("no map store configured")
	}
	if doc.Map.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidMap)
	}

	gridSize, cellSize := doc.Map.GridSize, doc.Map.CellSize
	if gridSize == 0 {
		gridSize = s.editor.GridSize
	}
	if cellSize == 0 {
		cellSize = s.editor.CellSize
	}
	if cellSize < 0 {
		return nil, fmt.Errorf("%w: cell size must be positive", ErrInvalidMap)
	}
	// Columns are int4.
	if gridSize > math.MaxInt32 {
		return nil, fmt.Errorf("%w: grid size %d exceeds %d", ErrInvalidMap, gridSize, math.MaxInt32)
	}
	for i, r := range doc.Buildings {
		if r.X < math.MinInt32 || r.X > math.MaxInt32 || r.Y < math.MinInt32 || r.Y > math.MaxInt32 {
			return nil, fmt.Errorf("%w: building %d at (%d, %d) out of range", ErrInvalidMap, i, r.X, r.Y)
		}
	}
	if err := Validate(gridSize, doc.Buildings); err != nil {
		return nil, err
	}

	rows := make([]db.Building, len(doc.Buildings))
	for i, r := range doc.Buildings {
		rows[i] = db.Building{X: int32(r.X), Y: int32(r.Y), Name: r.Name, Type: r.Type}
	}

	m, err := s.store.CreateMapWithBuildings(ctx, db.CreateMapParams{
		ID:       typeid.NewMapID(),
		Name:     doc.Map.Name,
		OwnerID:  userID,
		Public:   doc.Map.Public,
		GridSize: int32(gridSize),
		CellSize: cellSize,
	}, rows)
	if err != nil {
		return nil, fmt.Errorf("import map: %w", err)
	}
	info := toMapInfo(m)
	return &info, nil
}

// Validate checks that every record places cleanly, in order, on an empty
// grid of the given size.
func Validate(gridSize int, recs []document.BuildingRecord) error {
	if gridSize < 1 {
		return fmt.Errorf("%w: grid size must be positive", ErrInvalidMap)
	}
	opts := engine.DefaultOptions()
	opts.GridSize = gridSize
	opts.TrustLoaded = false
	opts.OnFailure = engine.FailAbort

	loader := engine.NewLoader(engine.NewPlacement(catalog.New(), gridSize), opts)
	if _, err := loader.LoadBatch(0, recs); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMap, err)
	}
	return nil
}

func (s *Service) readable(ctx context.Context, mapID, userID string) (db.Map, error) {
	if s.store == nil || typeid.Validate(mapID, typeid.PrefixMap) != nil {
		return db.Map{}, ErrNotFound
	}
	m, err := s.store.GetMap(ctx, mapID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Map{}, ErrNotFound
		}
		return db.Map{}, fmt.Errorf("get map: %w", err)
	}
	if m.Public || m.OwnerID == userID {
		return m, nil
	}
	if userID == "" {
		return db.Map{}, ErrUnauthorized
	}
	return db.Map{}, ErrForbidden
}

func (s *Service) buildings(ctx context.Context, mapID string) ([]document.BuildingRecord, error) {
	rows, err := s.store.ListBuildings(ctx, mapID)
	if err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	recs := make([]document.BuildingRecord, len(rows))
	for i, b := range rows {
		recs[i] = document.BuildingRecord{X: int(b.X), Y: int(b.Y), Name: b.Name, Type: b.Type}
	}
	return recs, nil
}

func toMapInfo(m db.Map) document.MapInfo {
	return document.MapInfo{
		ID:        m.ID,
		Name:      m.Name,
		OwnerID:   m.OwnerID,
		Public:    m.Public,
		GridSize:  int(m.GridSize),
		CellSize:  m.CellSize,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: m.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
