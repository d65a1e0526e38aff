// Package terrainstore keeps baked terrain tiles in sqlite and serves the
// loaded ones as a read-only world.
package terrainstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"dashmap.ai/internal/sim/encoding"
	"dashmap.ai/internal/sim/surface"
	"dashmap.ai/internal/sim/tile"
)

var ErrTileNotStored = errors.New("terrainstore: tile not stored")

// Meta describes the world the tiles were baked from.
type Meta struct {
	Seed          int64
	HasCeiling    bool
	MinY          int
	MaxY          int
	PaletteDigest string
}

// Tile is one tile's blocks, column-major: the column at (lx, lz) starts at
// (lx + lz*tile.Size) * Height and lists blocks from MinY upward.
type Tile struct {
	Coord  tile.Coord
	MinY   int
	Height int
	Blocks []uint16
}

type loadedTile struct {
	Tile
	surface [tile.Size * tile.Size]int
}

type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder

	mu     sync.RWMutex
	meta   Meta
	loaded map[tile.Coord]*loadedTile
	once   sync.Once
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, enc: enc, dec: dec, loaded: map[tile.Coord]*loadedTile{}}
	meta, err := s.readMeta(context.Background())
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.meta = meta
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tiles (
			tx INTEGER NOT NULL,
			tz INTEGER NOT NULL,
			min_y INTEGER NOT NULL,
			height INTEGER NOT NULL,
			digest TEXT NOT NULL,
			data BLOB NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (tx, tz)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.dec.Close()
		_ = s.enc.Close()
		err = s.db.Close()
	})
	return err
}

func (s *Store) Meta() Meta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

func (s *Store) SetMeta(ctx context.Context, m Meta) error {
	if m.MaxY <= m.MinY {
		return fmt.Errorf("terrainstore: empty build range [%d, %d)", m.MinY, m.MaxY)
	}
	kv := map[string]string{
		"seed":           strconv.FormatInt(m.Seed, 10),
		"has_ceiling":    strconv.FormatBool(m.HasCeiling),
		"min_y":          strconv.Itoa(m.MinY),
		"max_y":          strconv.Itoa(m.MaxY),
		"palette_digest": m.PaletteDigest,
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for k, v := range kv {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta(key,value) VALUES(?,?)
			ON CONFLICT(key) DO UPDATE SET value=excluded.value`, k, v); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.mu.Lock()
	s.meta = m
	s.mu.Unlock()
	return nil
}

func (s *Store) readMeta(ctx context.Context) (Meta, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key,value FROM meta`)
	if err != nil {
		return Meta{}, err
	}
	defer rows.Close()

	var m Meta
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Meta{}, err
		}
		switch k {
		case "seed":
			m.Seed, err = strconv.ParseInt(v, 10, 64)
		case "has_ceiling":
			m.HasCeiling, err = strconv.ParseBool(v)
		case "min_y":
			m.MinY, err = strconv.Atoi(v)
		case "max_y":
			m.MaxY, err = strconv.Atoi(v)
		case "palette_digest":
			m.PaletteDigest = v
		}
		if err != nil {
			return Meta{}, fmt.Errorf("terrainstore: meta %s: %w", k, err)
		}
	}
	return m, rows.Err()
}

// PutTile stores t, replacing any earlier bake of the same tile.
func (s *Store) PutTile(ctx context.Context, t Tile) error {
	if t.Height <= 0 || len(t.Blocks) != tile.Size*tile.Size*t.Height {
		return fmt.Errorf("terrainstore: tile %s has %d blocks for height %d", t.Coord, len(t.Blocks), t.Height)
	}
	raw := encoding.AppendRLE(nil, t.Blocks)
	data := s.enc.EncodeAll(raw, nil)
	_, err := s.db.ExecContext(ctx, `INSERT INTO tiles(tx,tz,min_y,height,digest,data,updated_at) VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(tx,tz) DO UPDATE SET min_y=excluded.min_y,height=excluded.height,digest=excluded.digest,data=excluded.data,updated_at=excluded.updated_at`,
		t.Coord.X, t.Coord.Z, t.MinY, t.Height, Digest(t.Blocks), data, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// GetTile reads a stored tile without loading it.
func (s *Store) GetTile(ctx context.Context, c tile.Coord) (Tile, error) {
	var (
		minY, height int
		digest       string
		data         []byte
	)
	row := s.db.QueryRowContext(ctx, `SELECT min_y,height,digest,data FROM tiles WHERE tx=? AND tz=?`, c.X, c.Z)
	if err := row.Scan(&minY, &height, &digest, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Tile{}, fmt.Errorf("%w: %s", ErrTileNotStored, c)
		}
		return Tile{}, err
	}
	raw, err := s.dec.DecodeAll(data, nil)
	if err != nil {
		return Tile{}, fmt.Errorf("terrainstore: tile %s: zstd: %w", c, err)
	}
	blocks, err := encoding.DecodeRLE(raw, tile.Size*tile.Size*height)
	if err != nil {
		return Tile{}, fmt.Errorf("terrainstore: tile %s: %w", c, err)
	}
	if got := Digest(blocks); got != digest {
		return Tile{}, fmt.Errorf("terrainstore: tile %s: digest mismatch", c)
	}
	return Tile{Coord: c, MinY: minY, Height: height, Blocks: blocks}, nil
}

// StoredTiles lists every baked tile sorted by X then Z.
func (s *Store) StoredTiles(ctx context.Context) ([]tile.Coord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tx,tz FROM tiles ORDER BY tx,tz`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []tile.Coord
	for rows.Next() {
		var c tile.Coord
		if err := rows.Scan(&c.X, &c.Z); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Load makes tile c visible through Column.
func (s *Store) Load(ctx context.Context, c tile.Coord) error {
	t, err := s.GetTile(ctx, c)
	if err != nil {
		return err
	}
	lt := &loadedTile{Tile: t}
	for i := range lt.surface {
		col := t.Blocks[i*t.Height : (i+1)*t.Height]
		top := t.MinY
		for y := len(col) - 1; y >= 0; y-- {
			if col[y] != 0 {
				top = t.MinY + y + 1
				break
			}
		}
		lt.surface[i] = top
	}
	s.mu.Lock()
	s.loaded[c] = lt
	s.mu.Unlock()
	return nil
}

func (s *Store) Unload(c tile.Coord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.loaded[c]; !ok {
		return false
	}
	delete(s.loaded, c)
	return true
}

func (s *Store) IsLoaded(c tile.Coord) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.loaded[c]
	return ok
}

func (s *Store) Loaded() []tile.Coord {
	s.mu.RLock()
	out := make([]tile.Coord, 0, len(s.loaded))
	for c := range s.loaded {
		out = append(out, c)
	}
	s.mu.RUnlock()
	tile.Sort(out)
	return out
}

// Column returns nil unless the tile holding (x, z) is loaded. Loaded tiles
// are never mutated, so the returned column aliases store memory.
func (s *Store) Column(x, z int) surface.Column {
	s.mu.RLock()
	lt, ok := s.loaded[tile.Containing(x, z)]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	lx, lz := tile.Local(x, z)
	i := lx + lz*tile.Size
	return &surface.StaticColumn{
		MinY:   lt.MinY,
		Blocks: lt.Blocks[i*lt.Height : (i+1)*lt.Height],
		Top:    lt.surface[i],
	}
}

func (s *Store) HasCeiling() bool    { return s.Meta().HasCeiling }
func (s *Store) MinBuildHeight() int { return s.Meta().MinY }
func (s *Store) MaxBuildHeight() int { return s.Meta().MaxY }

func Digest(blocks []uint16) string {
	h := sha256.New()
	var tmp [2]byte
	for _, v := range blocks {
		binary.LittleEndian.PutUint16(tmp[:], v)
		h.Write(tmp[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
