package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// Run records one scrape of a target
type Run struct {
	ID         string    `json:"id"`
	Target     string    `json:"target"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Posts      int       `json:"posts"`
	NewPosts   int       `json:"new_posts"`
	Error      string    `json:"error,omitempty"`
}

// RecordRun stores a run, assigning an id when it has none
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = s.now()
	}

	query, args, err := sqb.Insert("scrape_runs").
		Columns("id", "target", "started_at", "finished_at", "posts", "new_posts", "error").
		Values(run.ID, run.Target, formatTime(run.StartedAt), formatTime(run.FinishedAt), run.Posts, run.NewPosts, run.Error).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build run insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Runs returns the latest runs, optionally for one target
func (s *Store) Runs(ctx context.Context, target string, limit uint64) ([]Run, error) {
	b := sqb.Select("id", "target", "started_at", "finished_at", "posts", "new_posts", "error").
		From("scrape_runs").
		OrderBy("started_at DESC")
	if target != "" {
		b = b.Where(sq.Eq{"target": target})
	}
	if limit > 0 {
		b = b.Limit(limit)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r               Run
			started, finish string
		)
		if err := rows.Scan(&r.ID, &r.Target, &started, &finish, &r.Posts, &r.NewPosts, &r.Error); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(timeLayout, started)
		r.FinishedAt, _ = time.Parse(timeLayout, finish)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
