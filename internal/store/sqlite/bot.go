// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vidgate-dev/vidgate/internal/store"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

// Compile-time interface checks.
var (
	_ store.BotStore        = (*BotStore)(nil)
	_ store.ChannelStore    = (*channelStore)(nil)
	_ store.AdminStore      = (*adminStore)(nil)
	_ store.UserStore       = (*userStore)(nil)
	_ store.VideoCacheStore = (*videoCacheStore)(nil)
)

// BotStore implements store.BotStore backed by a single SQLite database.
type BotStore struct {
	db       *sql.DB
	channels *channelStore
	admins   *adminStore
	users    *userStore
	videos   *videoCacheStore
}

// NewBotStore opens (or creates) a SQLite database at dbPath and
// initialises the channels, admins, users, and video_cache tables.
func NewBotStore(dbPath string) (*BotStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening bot db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging bot db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating bot db: %w", err)
	}

	return &BotStore{
		db:       db,
		channels: &channelStore{db: db},
		admins:   &adminStore{db: db},
		users:    &userStore{db: db},
		videos:   &videoCacheStore{db: db},
	}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS channels (
	channel_id  INTEGER PRIMARY KEY,
	type        TEXT NOT NULL,
	username    TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	invite_link TEXT NOT NULL DEFAULT '',
	position    INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_channels_position ON channels(position, created_at);

CREATE TABLE IF NOT EXISTS admins (
	user_id    INTEGER PRIMARY KEY,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY,
	username   TEXT NOT NULL DEFAULT '',
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT '',
	downloads  INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS video_cache (
	cache_key          TEXT PRIMARY KEY,
	storage_message_id INTEGER NOT NULL,
	platform           TEXT NOT NULL DEFAULT '',
	created_at         TEXT NOT NULL
);
`
	_, err := db.Exec(ddl)
	return err
}

// Channels returns the ChannelStore sub-store.
func (b *BotStore) Channels() store.ChannelStore { return b.channels }

// Admins returns the AdminStore sub-store.
func (b *BotStore) Admins() store.AdminStore { return b.admins }

// Users returns the UserStore sub-store.
func (b *BotStore) Users() store.UserStore { return b.users }

// Videos returns the VideoCacheStore sub-store.
func (b *BotStore) Videos() store.VideoCacheStore { return b.videos }

// Close closes the underlying database connection.
func (b *BotStore) Close() error { return b.db.Close() }

// ---------- channelStore ----------

type channelStore struct {
	db *sql.DB
}

const channelColumns = `channel_id, type, username, title, invite_link, position, created_at`

func (s *channelStore) List(ctx context.Context) ([]*store.ChannelRequirement, error) {
	q := `SELECT ` + channelColumns + ` FROM channels ORDER BY position, created_at`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, vgerr.Wrap(err, vgerr.CodeStoreDatabaseFailure, "listing channels")
	}
	defer rows.Close()

	var channels []*store.ChannelRequirement
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}

	return channels, rows.Err()
}

func (s *channelStore) Get(ctx context.Context, channelID int64) (*store.ChannelRequirement, error) {
	q := `SELECT ` + channelColumns + ` FROM channels WHERE channel_id = ?`

	row := s.db.QueryRowContext(ctx, q, channelID)
	ch, err := scanChannel(row)
	if err == sql.ErrNoRows {
		return nil, vgerr.Errorf(vgerr.CodeRegistryChannelNotFound, "channel %d not found", channelID)
	}
	if err != nil {
		return nil, vgerr.Wrapf(err, vgerr.CodeStoreDatabaseFailure, "getting channel %d", channelID)
	}
	return ch, nil
}

func (s *channelStore) Add(ctx context.Context, req *store.ChannelRequirement) error {
	if req.ChannelID == 0 {
		return vgerr.New(vgerr.CodeStoreInvalidInput, "channel id must not be zero")
	}
	if req.Type != store.ChannelOpen && req.Type != store.ChannelClosed {
		return vgerr.Errorf(vgerr.CodeStoreInvalidInput, "invalid channel type %q", req.Type)
	}

	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	const q = `INSERT INTO channels (channel_id, type, username, title, invite_link, position, created_at)
VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM channels), ?)`

	_, err := s.db.ExecContext(ctx, q,
		req.ChannelID,
		string(req.Type),
		req.Username,
		req.Title,
		req.InviteLink,
		formatTime(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return vgerr.Errorf(vgerr.CodeRegistryChannelDuplicate, "channel %d already registered", req.ChannelID)
		}
		return vgerr.Wrapf(err, vgerr.CodeStoreDatabaseFailure, "adding channel %d", req.ChannelID)
	}
	return nil
}

func (s *channelStore) Update(ctx context.Context, req *store.ChannelRequirement) error {
	const q = `UPDATE channels SET type = ?, username = ?, title = ?, invite_link = ? WHERE channel_id = ?`

	result, err := s.db.ExecContext(ctx, q,
		string(req.Type),
		req.Username,
		req.Title,
		req.InviteLink,
		req.ChannelID,
	)
	if err != nil {
		return vgerr.Wrapf(err, vgerr.CodeStoreDatabaseFailure, "updating channel %d", req.ChannelID)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return vgerr.Wrapf(err, vgerr.CodeStoreDatabaseFailure, "checking rows affected for channel %d", req.ChannelID)
	}
	if rows == 0 {
		return vgerr.Errorf(vgerr.CodeRegistryChannelNotFound, "channel %d not found", req.ChannelID)
	}
	return nil
}

func (s *channelStore) Remove(ctx context.Context, channelID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE channel_id = ?`, channelID)
	if err != nil {
		return vgerr.Wrapf(err, vgerr.CodeStoreDatabaseFailure, "removing channel %d", channelID)
	}
	return nil
}

func scanChannel(row interface{ Scan(...any) error }) (*store.ChannelRequirement, error) {
	var ch store.ChannelRequirement
	var typ, createdAt string
	if err := row.Scan(
		&ch.ChannelID,
		&typ,
		&ch.Username,
		&ch.Title,
		&ch.InviteLink,
		&ch.Position,
		&createdAt,
	); err != nil {
		return nil, err
	}
	ch.Type = store.ChannelType(typ)
	ch.CreatedAt = parseTime(createdAt)
	return &ch, nil
}

// ---------- adminStore ----------

type adminStore struct {
	db *sql.DB
}

func (s *adminStore) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM admins WHERE user_id = ?`, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, vgerr.Wrapf(err, vgerr.CodeStoreDatabaseFailure, "checking admin %d", userID)
	}
	return true, nil
}

func (s *adminStore) List(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM admins ORDER BY created_at`)
	if err != nil {
		return nil, vgerr.Wrap(err, vgerr.CodeStoreDatabaseFailure, "listing admins")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, vgerr.Wrap(err, vgerr.CodeStoreDatabaseFailure, "scanning admin row")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *adminStore) Add(ctx context.Context, userID int64) error {
	const q = `INSERT INTO admins (user_id, created_at) VALUES (?, ?)
ON CONFLICT(user_id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, q, userID, formatTime(time.Now()))
	if err != nil {
		return vgerr.Wrapf(err, vgerr.CodeStoreDatabaseFailure, "adding admin %d", userID)
	}
	return nil
}

func (s *adminStore) Remove(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE user_id = ?`, userID)
	if err != nil {
		return vgerr.Wrapf(err, vgerr.CodeStoreDatabaseFailure, "removing admin %d", userID)
	}
	return nil
}

// ---------- userStore ----------

type userStore struct {
	db *sql.DB
}

func (s *userStore) Upsert(ctx context.Context, user *store.User) error {
	now := time.Now()
	const q = `INSERT INTO users (id, username, first_name, last_name, downloads, created_at, updated_at)
VALUES (?, ?, ?, ?, 0, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	username = excluded.username,
	first_name = excluded.first_name,
	last_name = excluded.last_name,
	updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, q,
		user.ID,
		user.Username,
		user.FirstName,
		user.LastName,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return vgerr.Wrapf(err, vgerr.CodeStoreDatabaseFailure, "upserting user %d", user.ID)
	}
	return nil
}

func (s *userStore) Get(ctx context.Context, id int64) (*store.User, error) {
	const q = `SELECT id, username, first_name, last_name, downloads, created_at, updated_at
FROM users WHERE id = ?`

	var u store.User
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&u.ID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.Downloads,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, vgerr.Errorf(vgerr.CodeStoreUserNotFound, "user %d not found", id)
	}
	if err != nil {
		return nil, vgerr.Wrapf(err, vgerr.CodeStoreDatabaseFailure, "getting user %d", id)
	}
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return &u, nil
}

func (s *userStore) List(ctx context.Context, opts store.ListOpts) ([]*store.User, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}

	const q = `SELECT id, username, first_name, last_name, downloads, created_at, updated_at
FROM users ORDER BY created_at LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, q, limit, opts.Offset)
	if err != nil {
		return nil, vgerr.Wrap(err, vgerr.CodeStoreDatabaseFailure, "listing users")
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		var u store.User
		var createdAt, updatedAt string
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Downloads, &createdAt, &updatedAt); err != nil {
			return nil, vgerr.Wrap(err, vgerr.CodeStoreDatabaseFailure, "scanning user row")
		}
		u.CreatedAt = parseTime(createdAt)
		u.UpdatedAt = parseTime(updatedAt)
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (s *userStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, vgerr.Wrap(err, vgerr.CodeStoreDatabaseFailure, "counting users")
	}
	return n, nil
}

func (s *userStore) IncrementDownloads(ctx context.Context, id int64) error {
	const q = `UPDATE users SET downloads = downloads + 1, updated_at = ? WHERE id = ?`
	_, err := s.db.ExecContext(ctx, q, formatTime(time.Now()), id)
	if err != nil {
		return vgerr.Wrapf(err, vgerr.CodeStoreDatabaseFailure, "incrementing downloads for user %d", id)
	}
	return nil
}

// ---------- videoCacheStore ----------

type videoCacheStore struct {
	db *sql.DB
}

func (s *videoCacheStore) Get(ctx context.Context, cacheKey string) (*store.CachedVideo, error) {
	const q = `SELECT cache_key, storage_message_id, platform, created_at FROM video_cache WHERE cache_key = ?`

	var v store.CachedVideo
	var createdAt string
	err := s.db.QueryRowContext(ctx, q, cacheKey).Scan(&v.CacheKey, &v.StorageMessageID, &v.Platform, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, vgerr.Wrapf(err, vgerr.CodeStoreDatabaseFailure, "getting cached video %q", cacheKey)
	}
	v.CreatedAt = parseTime(createdAt)
	return &v, nil
}

func (s *videoCacheStore) Put(ctx context.Context, video *store.CachedVideo) error {
	if video.CacheKey == "" {
		return vgerr.New(vgerr.CodeStoreInvalidInput, "cache key must not be empty")
	}

	const q = `INSERT INTO video_cache (cache_key, storage_message_id, platform, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(cache_key) DO UPDATE SET
	storage_message_id = excluded.storage_message_id,
	platform = excluded.platform`

	_, err := s.db.ExecContext(ctx, q,
		video.CacheKey,
		video.StorageMessageID,
		video.Platform,
		formatTime(time.Now()),
	)
	if err != nil {
		return vgerr.Wrapf(err, vgerr.CodeStoreDatabaseFailure, "caching video %q", video.CacheKey)
	}
	return nil
}

func (s *videoCacheStore) Delete(ctx context.Context, cacheKey string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM video_cache WHERE cache_key = ?`, cacheKey)
	if err != nil {
		return vgerr.Wrapf(err, vgerr.CodeStoreDatabaseFailure, "deleting cached video %q", cacheKey)
	}
	return nil
}

func (s *videoCacheStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM video_cache`).Scan(&n); err != nil {
		return 0, vgerr.Wrap(err, vgerr.CodeStoreDatabaseFailure, "counting cached videos")
	}
	return n, nil
}

// ---------- helpers ----------

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// formatTime serialises a time for storage. Zero times become "".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime deserialises a time string stored in the database.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
