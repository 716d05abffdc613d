// Package store keeps scraped posts and scrape runs in a SQLite file.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/law-makers/fbscrape/pkg/models"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned when a post is not stored
var ErrNotFound = errors.New("post not found")

// timeLayout sorts lexicographically, so time columns compare as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var sqb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

var postColumns = []string{
	"id", "target", "url", "author_name", "author_url", "content", "content_html", "posted_at",
	"reactions_total", "reactions_like", "reactions_love", "reactions_wow", "reactions_care",
	"reactions_sad", "reactions_angry", "reactions_haha",
	"comments", "shares", "images", "videos", "layout", "scraped_at",
}

// textColumns keep their stored value when a rescrape finds them empty
var textColumns = map[string]bool{
	"target": true, "url": true, "author_name": true, "author_url": true,
	"content": true, "content_html": true, "posted_at": true, "layout": true,
}

// listColumns keep their stored value when a rescrape finds no media
var listColumns = map[string]bool{"images": true, "videos": true}

// Store is a SQLite backed post archive
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies migrations
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: shared
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug().Str("path", path).Msg("Post store opened")
	return &Store{db: db, now: time.Now}, nil
}

// goose keeps its settings in package globals
var gooseMu sync.Mutex

func migrate(ctx context.Context, db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	log.Debug().Msgf(strings.TrimSpace(format), v...)
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	log.Fatal().Msgf(strings.TrimSpace(format), v...)
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func exists(ctx context.Context, q querier, id string) (bool, error) {
	query, args, err := sqb.Select("1").From("posts").Where(sq.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return false, err
	}
	var one int
	switch err := q.QueryRowContext(ctx, query, args...).Scan(&one); {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// Exists reports whether a post is stored
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, s.db, id)
}

// UpsertPosts stores posts keyed by id and returns how many were new.
// Posts without an id are skipped.
func (s *Store) UpsertPosts(ctx context.Context, posts []models.Post) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var updates []string
	for _, c := range postColumns[1:] {
		switch {
		case textColumns[c]:
			updates = append(updates, fmt.Sprintf("%s = COALESCE(NULLIF(excluded.%s, ''), posts.%s)", c, c, c))
		case listColumns[c]:
			updates = append(updates, fmt.Sprintf("%s = CASE WHEN excluded.%s = '[]' THEN posts.%s ELSE excluded.%s END", c, c, c, c))
		default:
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	conflict := "ON CONFLICT(id) DO UPDATE SET " + strings.Join(updates, ", ")

	fresh := 0
	for _, p := range posts {
		if p.ID == "" {
			continue
		}

		seen, err := exists(ctx, tx, p.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to look up post %s: %w", p.ID, err)
		}

		values, err := s.values(p)
		if err != nil {
			return 0, err
		}
		query, args, err := sqb.Insert("posts").
			Columns(append(postColumns, "first_seen_at")...).
			Values(append(values, formatTime(s.now()))...).
			Suffix(conflict).
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("failed to build upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("failed to store post %s: %w", p.ID, err)
		}
		if !seen {
			fresh++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit posts: %w", err)
	}
	return fresh, nil
}

func (s *Store) values(p models.Post) ([]any, error) {
	images, err := json.Marshal(nonNil(p.Images))
	if err != nil {
		return nil, err
	}
	videos, err := json.Marshal(nonNil(p.Videos))
	if err != nil {
		return nil, err
	}
	scraped := p.ScrapedAt
	if scraped.IsZero() {
		scraped = s.now()
	}
	r := p.Reactions
	return []any{
		p.ID, p.Target, p.URL, p.AuthorName, p.AuthorURL, p.Content, p.ContentHTML, p.PostedAt,
		r.Total, r.Like, r.Love, r.Wow, r.Care, r.Sad, r.Angry, r.Haha,
		p.Comments, p.Shares, string(images), string(videos), string(p.Layout), formatTime(scraped),
	}, nil
}

// Query selects stored posts. Zero fields do not filter.
type Query struct {
	Target string
	// Since keeps posts scraped at or after this time
	Since time.Time
	Limit uint64
}

// Posts returns stored posts, newest first
func (s *Store) Posts(ctx context.Context, q Query) ([]models.Post, error) {
	b := sqb.Select(postColumns...).From("posts").OrderBy("posted_at DESC", "scraped_at DESC", "id")
	if q.Target != "" {
		b = b.Where(sq.Eq{"target": q.Target})
	}
	if !q.Since.IsZero() {
		b = b.Where(sq.GtOrEq{"scraped_at": formatTime(q.Since)})
	}
	if q.Limit > 0 {
		b = b.Limit(q.Limit)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// Get returns one stored post
func (s *Store) Get(ctx context.Context, id string) (*models.Post, error) {
	query, args, err := sqb.Select(postColumns...).From("posts").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	p, err := scanPost(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (models.Post, error) {
	var (
		p              models.Post
		images, videos string
		layout         string
		scraped        string
	)
	r := &p.Reactions
	err := row.Scan(
		&p.ID, &p.Target, &p.URL, &p.AuthorName, &p.AuthorURL, &p.Content, &p.ContentHTML, &p.PostedAt,
		&r.Total, &r.Like, &r.Love, &r.Wow, &r.Care, &r.Sad, &r.Angry, &r.Haha,
		&p.Comments, &p.Shares, &images, &videos, &layout, &scraped,
	)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
		return p, fmt.Errorf("post %s images: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(videos), &p.Videos); err != nil {
		return p, fmt.Errorf("post %s videos: %w", p.ID, err)
	}
	p.Layout = models.Layout(layout)
	p.ScrapedAt, _ = time.Parse(timeLayout, scraped)
	return p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
