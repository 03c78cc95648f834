package player

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS players (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	avatar        INTEGER NOT NULL DEFAULT 1,
	money         INTEGER NOT NULL DEFAULT 0,
	skillpoints   INTEGER NOT NULL DEFAULT 0,
	tutorial_done INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL,
	energy        INTEGER NOT NULL DEFAULT 0,
	energy_max    INTEGER NOT NULL DEFAULT 100,
	strength      INTEGER NOT NULL DEFAULT 0,
	stamina       INTEGER NOT NULL DEFAULT 0,
	speed         INTEGER NOT NULL DEFAULT 0,
	xp            INTEGER NOT NULL DEFAULT 0,
	xp_min        INTEGER NOT NULL DEFAULT 0,
	xp_max        INTEGER NOT NULL DEFAULT 0,
	action_kind   TEXT NOT NULL DEFAULT 'none',
	action_stat   TEXT NOT NULL DEFAULT '',
	started_at    INTEGER,
	ends_at       INTEGER,
	version       INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_players_totals ON players (strength + stamina + speed);
`

// OpenSQLite opens (creating if missing) the database at path and ensures
// the player schema exists.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

// SQLiteRepo stores players in SQLite. The versioned UPDATE gives the same
// compare-and-swap semantics as the in-memory and file repos while staying
// a single atomic statement.
type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

const playerColumns = `id, name, avatar, money, skillpoints, tutorial_done, created_at,
	energy, energy_max, strength, stamina, speed, xp, xp_min, xp_max,
	action_kind, action_stat, started_at, ends_at, version`

func scanPlayer(row interface{ Scan(...any) error }) (Player, error) {
	var (
		p          Player
		tutorial   int
		createdAt  int64
		kind, stat string
		startedAt  sql.NullInt64
		endsAt     sql.NullInt64
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Avatar, &p.Money, &p.Skillpoints, &tutorial, &createdAt,
		&p.Stats.Energy, &p.Stats.EnergyMax, &p.Stats.Strength, &p.Stats.Stamina,
		&p.Stats.Speed, &p.Stats.XP, &p.Stats.XPMin, &p.Stats.XPMax,
		&kind, &stat, &startedAt, &endsAt, &p.Version,
	)
	if err != nil {
		return Player{}, err
	}
	p.TutorialDone = tutorial != 0
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.Action.Kind = ActionKind(kind)
	p.Action.Stat = Stat(stat)
	if startedAt.Valid {
		t := time.Unix(startedAt.Int64, 0).UTC()
		p.Action.StartedAt = &t
	}
	if endsAt.Valid {
		t := time.Unix(endsAt.Int64, 0).UTC()
		p.Action.EndsAt = &t
	}
	p.Normalize()
	return p, nil
}

func actionArgs(p Player) (kind, stat string, startedAt, endsAt any) {
	kind = string(p.Action.Kind)
	stat = string(p.Action.Stat)
	if p.Action.StartedAt != nil {
		startedAt = p.Action.StartedAt.Unix()
	}
	if p.Action.EndsAt != nil {
		endsAt = p.Action.EndsAt.Unix()
	}
	return kind, stat, startedAt, endsAt
}

func (r *SQLiteRepo) Get(ctx context.Context, id string) (Player, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, id)
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, ErrNotFound
	}
	if err != nil {
		return Player{}, fmt.Errorf("player get: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepo) Create(ctx context.Context, p Player) (Player, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.Version = 1
	p.Normalize()
	kind, stat, startedAt, endsAt := actionArgs(p)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO players (`+playerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Avatar, p.Money, p.Skillpoints, boolToInt(p.TutorialDone),
		p.CreatedAt.Unix(), p.Stats.Energy, p.Stats.EnergyMax, p.Stats.Strength,
		p.Stats.Stamina, p.Stats.Speed, p.Stats.XP, p.Stats.XPMin, p.Stats.XPMax,
		kind, stat, startedAt, endsAt, p.Version,
	)
	if err != nil {
		return Player{}, fmt.Errorf("player insert: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepo) Update(ctx context.Context, p Player) (Player, error) {
	next := p
	next.Version = p.Version + 1
	next.Normalize()
	kind, stat, startedAt, endsAt := actionArgs(next)
	res, err := r.db.ExecContext(ctx, `
		UPDATE players SET
			name = ?, avatar = ?, money = ?, skillpoints = ?, tutorial_done = ?,
			energy = ?, energy_max = ?, strength = ?, stamina = ?, speed = ?,
			xp = ?, xp_min = ?, xp_max = ?,
			action_kind = ?, action_stat = ?, started_at = ?, ends_at = ?,
			version = ?
		WHERE id = ? AND version = ?`,
		next.Name, next.Avatar, next.Money, next.Skillpoints, boolToInt(next.TutorialDone),
		next.Stats.Energy, next.Stats.EnergyMax, next.Stats.Strength, next.Stats.Stamina,
		next.Stats.Speed, next.Stats.XP, next.Stats.XPMin, next.Stats.XPMax,
		kind, stat, startedAt, endsAt,
		next.Version, p.ID, p.Version,
	)
	if err != nil {
		return Player{}, fmt.Errorf("player update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Player{}, fmt.Errorf("player update: %w", err)
	}
	if n == 0 {
		var exists int
		row := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM players WHERE id = ?`, p.ID)
		if err := row.Scan(&exists); err == nil && exists == 0 {
			return Player{}, ErrNotFound
		}
		return Player{}, ErrStale
	}
	return next, nil
}

func (r *SQLiteRepo) List(ctx context.Context, page, perPage int) ([]Player, int, error) {
	if perPage <= 0 {
		perPage = 10
	}
	if page <= 0 {
		page = 1
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM players`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("player count: %w", err)
	}
	lastPage := (total + perPage - 1) / perPage
	if lastPage == 0 {
		lastPage = 1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+playerColumns+` FROM players
		ORDER BY (strength + stamina + speed) DESC, LOWER(name) ASC
		LIMIT ? OFFSET ?`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("player list: %w", err)
	}
	defer rows.Close()

	out := []Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("player scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("player list: %w", err)
	}
	return out, lastPage, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
