package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/yellowcircle-io/shortlink-service/internal/database"
	"github.com/yellowcircle-io/shortlink-service/internal/models"
)

type shortlinkRecord struct {
	ShortCode      string    `db:"short_code"`
	DestinationURL string    `db:"destination_url"`
	Title          string    `db:"title"`
	Campaign       string    `db:"campaign"`
	IsActive       bool      `db:"is_active"`
	Clicks         int64     `db:"clicks"`
	UniqueClicks   int64     `db:"unique_clicks"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r *shortlinkRecord) ToShortlink() *models.Shortlink {
	return &models.Shortlink{
		ShortCode:      r.ShortCode,
		DestinationURL: r.DestinationURL,
		Title:          r.Title,
		Campaign:       r.Campaign,
		IsActive:       r.IsActive,
		Clicks:         r.Clicks,
		UniqueClicks:   r.UniqueClicks,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type clickRecord struct {
	ID           int64     `db:"id"`
	ShortCode    string    `db:"short_code"`
	OccurredAt   time.Time `db:"occurred_at"`
	Referrer     string    `db:"referrer"`
	UserAgent    string    `db:"user_agent"`
	ScreenWidth  int       `db:"screen_width"`
	ScreenHeight int       `db:"screen_height"`
	Language     string    `db:"language"`
	Pathname     string    `db:"pathname"`
}

func (r *clickRecord) ToClickEvent() *models.ClickEvent {
	return &models.ClickEvent{
		ID:           r.ID,
		ShortCode:    r.ShortCode,
		Timestamp:    r.OccurredAt,
		Referrer:     r.Referrer,
		UserAgent:    r.UserAgent,
		ScreenWidth:  r.ScreenWidth,
		ScreenHeight: r.ScreenHeight,
		Language:     r.Language,
		Pathname:     r.Pathname,
	}
}

// ShortlinkRepository persists shortlinks and their click sub-records in
// PostgreSQL. Counter mutations are single UPDATE statements so increments
// stay atomic at the store under concurrent resolves.
type ShortlinkRepository struct {
	db *sqlx.DB
}

func NewShortlinkRepository(db *sqlx.DB) *ShortlinkRepository {
	return &ShortlinkRepository{
		db: db,
	}
}

func (r *ShortlinkRepository) Create(ctx context.Context, link *models.Shortlink) (*models.Shortlink, error) {
	const op = "database.postgres.ShortlinkRepository.Create"

	rec := new(shortlinkRecord)
	query := `INSERT INTO shortlinks(short_code, destination_url, title, campaign)
		VALUES ($1, $2, $3, $4)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, link.ShortCode, link.DestinationURL, link.Title, link.Campaign)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create shortlink record: %w", op, err)
	}

	return rec.ToShortlink(), nil
}

func (r *ShortlinkRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.Shortlink, error) {
	const op = "database.postgres.ShortlinkRepository.GetByShortCode"

	rec := new(shortlinkRecord)
	query := `SELECT * FROM shortlinks
		WHERE short_code = $1`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get shortlink record: %w", op, err)
	}

	return rec.ToShortlink(), nil
}

func (r *ShortlinkRepository) Exists(ctx context.Context, shortCode string) (bool, error) {
	const op = "database.postgres.ShortlinkRepository.Exists"

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM shortlinks WHERE short_code = $1)`

	err := r.db.GetContext(ctx, &exists, query, shortCode)
	if err != nil {
		return false, fmt.Errorf("%s: failed to check short code existence: %w", op, err)
	}

	return exists, nil
}

func (r *ShortlinkRepository) Update(ctx context.Context, shortCode string, patch database.ShortlinkPatch) (*models.Shortlink, error) {
	const op = "database.postgres.ShortlinkRepository.Update"

	rec := new(shortlinkRecord)
	query := `UPDATE shortlinks
		SET destination_url = COALESCE($1, destination_url),
			title = COALESCE($2, title),
			campaign = COALESCE($3, campaign),
			is_active = COALESCE($4, is_active),
			updated_at = NOW()
		WHERE short_code = $5
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query,
		patch.DestinationURL, patch.Title, patch.Campaign, patch.IsActive, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update shortlink record: %w", op, err)
	}

	return rec.ToShortlink(), nil
}

// Delete removes a shortlink and its click sub-records. Child clicks are
// deleted before the parent record, both inside one transaction.
func (r *ShortlinkRepository) Delete(ctx context.Context, shortCode string) error {
	const op = "database.postgres.ShortlinkRepository.Delete"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM clicks WHERE short_code = $1`, shortCode); err != nil {
		return fmt.Errorf("%s: failed to delete click records: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM shortlinks WHERE short_code = $1`, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to delete shortlink record: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return nil
}

func (r *ShortlinkRepository) List(ctx context.Context) ([]*models.Shortlink, error) {
	const op = "database.postgres.ShortlinkRepository.List"

	var recs []shortlinkRecord
	query := `SELECT * FROM shortlinks
		ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &recs, query); err != nil {
		return nil, fmt.Errorf("%s: failed to list shortlink records: %w", op, err)
	}

	links := make([]*models.Shortlink, 0, len(recs))
	for i := range recs {
		links = append(links, recs[i].ToShortlink())
	}

	return links, nil
}

// IncrementCounter atomically adds delta to one of the click counters.
// The counter name is restricted to the known columns so it can be spliced
// into the statement safely.
func (r *ShortlinkRepository) IncrementCounter(ctx context.Context, shortCode string, counter database.Counter, delta int64) error {
	const op = "database.postgres.ShortlinkRepository.IncrementCounter"

	switch counter {
	case database.CounterClicks, database.CounterUniqueClicks:
	default:
		return fmt.Errorf("%s: %w: %q", op, database.ErrUnknownCounter, counter)
	}

	query := fmt.Sprintf(`UPDATE shortlinks SET %[1]s = %[1]s + $1 WHERE short_code = $2`, counter)

	res, err := r.db.ExecContext(ctx, query, delta, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to increment %s: %w", op, counter, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
	}

	return nil
}

func (r *ShortlinkRepository) AppendClick(ctx context.Context, shortCode string, event *models.ClickEvent) (*models.ClickEvent, error) {
	const op = "database.postgres.ShortlinkRepository.AppendClick"

	rec := new(clickRecord)
	query := `INSERT INTO clicks(short_code, occurred_at, referrer, user_agent, screen_width, screen_height, language, pathname)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query,
		shortCode, event.Timestamp, event.Referrer, event.UserAgent,
		event.ScreenWidth, event.ScreenHeight, event.Language, event.Pathname)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to append click record: %w", op, err)
	}

	return rec.ToClickEvent(), nil
}

func (r *ShortlinkRepository) ListClicks(ctx context.Context, shortCode string, limit int) ([]models.ClickEvent, error) {
	const op = "database.postgres.ShortlinkRepository.ListClicks"

	var recs []clickRecord
	query := `SELECT * FROM clicks
		WHERE short_code = $1
		ORDER BY occurred_at DESC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &recs, query, shortCode, limit); err != nil {
		return nil, fmt.Errorf("%s: failed to list click records: %w", op, err)
	}

	events := make([]models.ClickEvent, 0, len(recs))
	for i := range recs {
		events = append(events, *recs[i].ToClickEvent())
	}

	return events, nil
}
