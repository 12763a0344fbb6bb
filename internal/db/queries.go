package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   time.Time
}

type Map struct {
	ID        string
	Name      string
	OwnerID   string
	Public    bool
	GridSize  int32
	CellSize  float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Building struct {
	MapID    string
	Position int32
	X        int32
	Y        int32
	Name     string
	Type     string
}

type CreateUserParams struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
}

const createUser = `INSERT INTO users (id, email, password, display_name)
VALUES ($1, $2, $3, $4)
RETURNING id, email, password, display_name, created_at`

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.ID, arg.Email, arg.Password, arg.DisplayName)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

const getUserByEmail = `SELECT id, email, password, display_name, created_at FROM users WHERE email = $1`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, getUserByEmail, email).
		Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

const getUserByID = `SELECT id, email, password, display_name, created_at FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, getUserByID, id).
		Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

type CreateMapParams struct {
	ID       string
	Name     string
	OwnerID  string
	Public   bool
	GridSize int32
	CellSize float64
}

const mapColumns = `id, name, owner_id, public, grid_size, cell_size, created_at, updated_at`

const createMap = `INSERT INTO maps (id, name, owner_id, public, grid_size, cell_size)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + mapColumns

func (q *Queries) CreateMap(ctx context.Context, arg CreateMapParams) (Map, error) {
	row := q.db.QueryRow(ctx, createMap, arg.ID, arg.Name, arg.OwnerID, arg.Public, arg.GridSize, arg.CellSize)
	return scanMap(row)
}

const getMap = `SELECT ` + mapColumns + ` FROM maps WHERE id = $1`

func (q *Queries) GetMap(ctx context.Context, id string) (Map, error) {
	return scanMap(q.db.QueryRow(ctx, getMap, id))
}

const listMapsForUser = `SELECT ` + mapColumns + ` FROM maps
WHERE owner_id = $1 OR public
ORDER BY updated_at DESC`

// ListMapsForUser returns the user's own maps plus every public map.
func (q *Queries) ListMapsForUser(ctx context.Context, ownerID string) ([]Map, error) {
	rows, err := q.db.Query(ctx, listMapsForUser, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Map
	for rows.Next() {
		m, err := scanMap(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const countMapsByOwner = `SELECT count(*) FROM maps WHERE owner_id = $1`

func (q *Queries) CountMapsByOwner(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countMapsByOwner, ownerID).Scan(&n)
	return n, err
}

// InsertBuildings bulk-loads rows with COPY. Positions are taken from the
// slice order.
func (q *Queries) InsertBuildings(ctx context.Context, mapID string, rows []Building) (int64, error) {
	return q.db.CopyFrom(ctx,
		pgx.Identifier{"buildings"},
		[]string{"map_id", "position", "x", "y", "name", "type"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			b := rows[i]
			return []any{mapID, int32(i), b.X, b.Y, b.Name, b.Type}, nil
		}),
	)
}

const listBuildings = `SELECT map_id, position, x, y, name, type FROM buildings
WHERE map_id = $1
ORDER BY position`

func (q *Queries) ListBuildings(ctx context.Context, mapID string) ([]Building, error) {
	rows, err := q.db.Query(ctx, listBuildings, mapID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Building
	for rows.Next() {
		var b Building
		if err := rows.Scan(&b.MapID, &b.Position, &b.X, &b.Y, &b.Name, &b.Type); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func scanMap(row pgx.Row) (Map, error) {
	var m Map
	err := row.Scan(&m.ID, &m.Name, &m.OwnerID, &m.Public, &m.GridSize, &m.CellSize, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// Store pairs the generated queries with the pool so callers can run
// multi-statement writes in one transaction.
type Store struct {
	*Queries
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Queries: New(pool), pool: pool}
}

// CreateMapWithBuildings inserts a map and its buildings atomically.
func (s *Store) CreateMapWithBuildings(ctx context.Context, arg CreateMapParams, rows []Building) (Map, error) {
	var created Map
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		q := s.WithTx(tx)
		m, err := q.CreateMap(ctx, arg)
		if err != nil {
			return fmt.Errorf("create map: %w", err)
		}
		if len(rows) > 0 {
			if _, err := q.InsertBuildings(ctx, m.ID, rows); err != nil {
				return fmt.Errorf("insert buildings: %w", err)
			}
		}
		created = m
		return nil
	})
	return created, err
}
