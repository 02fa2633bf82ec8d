package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/yellowcircle-io/shortlink-service/internal/database"
	"github.com/yellowcircle-io/shortlink-service/internal/models"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrInvalidDestinationURL is returned when a destination fails URL
// validation at creation or update time, before any store write.
var ErrInvalidDestinationURL = errors.New("invalid destination url")

const (
	// shortCodeAlphabet is the 36-symbol alphabet short codes are drawn from.
	shortCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	// DefaultShortCodeLength yields a 36^6 (~2.2 billion) code space.
	DefaultShortCodeLength = 6

	// maxGenerateAttempts bounds the collision-resolution loop.
	maxGenerateAttempts = 10

	// uniqueClickKeyPrefix is the session marker key prefix for the
	// unique-click rule. The full key is "shortlink_clicked_<code>".
	uniqueClickKeyPrefix = "shortlink_clicked_"
)

// ShortlinkRepository defines the interface for working with shortlinks at
// the business logic layer.
type ShortlinkRepository interface {
	// Create inserts a new shortlink. Returns the created model, or
	// database.ErrShortCodeExists when the code is already taken.
	Create(ctx context.Context, link *models.Shortlink) (*models.Shortlink, error)

	// GetByShortCode retrieves a shortlink by its short code.
	GetByShortCode(ctx context.Context, shortCode string) (*models.Shortlink, error)

	// Exists reports whether a short code is present in the store,
	// regardless of the record's active flag.
	Exists(ctx context.Context, shortCode string) (bool, error)

	// Update applies a partial patch to a shortlink and refreshes updated_at.
	Update(ctx context.Context, shortCode string, patch database.ShortlinkPatch) (*models.Shortlink, error)

	// Delete removes a shortlink and its click sub-records, children first.
	Delete(ctx context.Context, shortCode string) error

	// List returns all shortlinks sorted by creation time descending.
	List(ctx context.Context) ([]*models.Shortlink, error)

	// IncrementCounter atomically adds delta to one of the click counters.
	IncrementCounter(ctx context.Context, shortCode string, counter database.Counter, delta int64) error

	// AppendClick stores one click event under a shortlink.
	AppendClick(ctx context.Context, shortCode string, event *models.ClickEvent) (*models.ClickEvent, error)

	// ListClicks returns up to limit most recent click events, newest first.
	ListClicks(ctx context.Context, shortCode string, limit int) ([]models.ClickEvent, error)
}

// SessionStore is a key-value store scoped to a browsing session, used only
// for the unique-click markers.
type SessionStore interface {
	Get(ctx context.Context, sessionID, key string) (value string, ok bool, err error)
	Set(ctx context.Context, sessionID, key, value string) error
}

// ShortlinkService provides shortlink creation, redirect resolution with
// click tracking, and click analytics over a ShortlinkRepository.
type ShortlinkService struct {
	repo       ShortlinkRepository
	sessions   SessionStore
	logger     *slog.Logger
	codeLength int
}

// NewShortlinkService creates a new instance of ShortlinkService with the
// provided repository, session store and short code length.
func NewShortlinkService(repo ShortlinkRepository, sessions SessionStore, logger *slog.Logger, codeLength int) *ShortlinkService {
	if logger == nil {
		logger = slog.Default()
	}
	if codeLength <= 0 {
		codeLength = DefaultShortCodeLength
	}

	return &ShortlinkService{
		repo:       repo,
		sessions:   sessions,
		logger:     logger,
		codeLength: codeLength,
	}
}

// CreateShortlinkParams are the inputs for creating a shortlink.
type CreateShortlinkParams struct {
	DestinationURL string
	Title          string
	CustomCode     string
	Campaign       string
}

// CreateShortlink validates the destination, resolves a unique short code
// and persists the new shortlink. Validation failures and custom-code
// collisions are returned before any store write.
func (s *ShortlinkService) CreateShortlink(ctx context.Context, params CreateShortlinkParams) (*models.Shortlink, error) {
	const op = "service.ShortlinkService.CreateShortlink"

	if err := validateDestinationURL(params.DestinationURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	shortCode, err := s.generateUniqueCode(ctx, params.CustomCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	link, err := s.repo.Create(ctx, &models.Shortlink{
		ShortCode:      shortCode,
		DestinationURL: params.DestinationURL,
		Title:          params.Title,
		Campaign:       params.Campaign,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create shortlink: %w", op, err)
	}

	return link, nil
}

// generateUniqueCode returns the custom code when one is supplied, failing
// with database.ErrShortCodeExists if it is taken. Otherwise it generates
// random codes until one is absent from the store, bounded at
// maxGenerateAttempts.
func (s *ShortlinkService) generateUniqueCode(ctx context.Context, customCode string) (string, error) {
	const op = "service.ShortlinkService.generateUniqueCode"

	if customCode != "" {
		exists, err := s.repo.Exists(ctx, customCode)
		if err != nil {
			return "", fmt.Errorf("%s: failed to check custom code: %w", op, err)
		}
		if exists {
			return "", fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return customCode, nil
	}

	var shortCode string
	for i := 0; i < maxGenerateAttempts; i++ {
		code, err := gonanoid.Generate(shortCodeAlphabet, s.codeLength)
		if err != nil {
			return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}
		shortCode = code

		exists, err := s.repo.Exists(ctx, shortCode)
		if err != nil {
			return "", fmt.Errorf("%s: failed to check short code: %w", op, err)
		}
		if !exists {
			return shortCode, nil
		}
	}

	// All attempts collided. Keep the last candidate and let the store's
	// unique constraint backstop the residual risk: availability wins over
	// strict uniqueness here. Policy decision, see DESIGN.md.
	return shortCode, nil
}

// ClickMetadata carries the client context of one tracked redirect.
type ClickMetadata struct {
	SessionID    string
	Referrer     string
	UserAgent    string
	Language     string
	Pathname     string
	ScreenWidth  int
	ScreenHeight int
}

// Resolve fetches the shortlink for a code and, when click metadata is
// provided, records the click synchronously before returning. Absent and
// inactive links are indistinguishable to the caller. A tracking failure is
// logged as a warning and never blocks a redirect that has already been
// deemed valid.
func (s *ShortlinkService) Resolve(ctx context.Context, shortCode string, click *ClickMetadata) (*models.Shortlink, error) {
	const op = "service.ShortlinkService.Resolve"

	link, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	if !link.IsActive {
		return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
	}

	if click != nil {
		if err := s.RecordClick(ctx, shortCode, *click); err != nil {
			s.logger.Warn("click tracking failed",
				slog.String("op", op),
				slog.String("short_code", shortCode),
				slog.Any("err", err),
			)
		}
	}

	return link, nil
}

// RecordClick appends a click event, increments the clicks counter, and
// applies the session-scoped unique-click rule: the first tracked click per
// browsing session also increments unique_clicks and sets the session
// marker. The event append happens before the counter increments, which
// happen before the unique-click check.
func (s *ShortlinkService) RecordClick(ctx context.Context, shortCode string, meta ClickMetadata) error {
	const op = "service.ShortlinkService.RecordClick"

	referrer := meta.Referrer
	if referrer == "" {
		referrer = "direct"
	}

	event := &models.ClickEvent{
		Timestamp:    time.Now().UTC(),
		Referrer:     referrer,
		UserAgent:    meta.UserAgent,
		ScreenWidth:  meta.ScreenWidth,
		ScreenHeight: meta.ScreenHeight,
		Language:     meta.Language,
		Pathname:     meta.Pathname,
	}

	if _, err := s.repo.AppendClick(ctx, shortCode, event); err != nil {
		return fmt.Errorf("%s: failed to append click: %w", op, err)
	}

	if err := s.repo.IncrementCounter(ctx, shortCode, database.CounterClicks, 1); err != nil {
		return fmt.Errorf("%s: failed to increment clicks: %w", op, err)
	}

	if meta.SessionID == "" {
		// No session identity, the unique-click rule cannot apply.
		return nil
	}

	markerKey := uniqueClickKeyPrefix + shortCode

	_, seen, err := s.sessions.Get(ctx, meta.SessionID, markerKey)
	if err != nil {
		return fmt.Errorf("%s: failed to check unique-click marker: %w", op, err)
	}
	if seen {
		return nil
	}

	if err := s.repo.IncrementCounter(ctx, shortCode, database.CounterUniqueClicks, 1); err != nil {
		return fmt.Errorf("%s: failed to increment unique clicks: %w", op, err)
	}

	if err := s.sessions.Set(ctx, meta.SessionID, markerKey, "true"); err != nil {
		return fmt.Errorf("%s: failed to set unique-click marker: %w", op, err)
	}

	return nil
}

// GetShortlink retrieves a shortlink without tracking a click. Unlike
// Resolve it returns inactive records, for the admin surface.
func (s *ShortlinkService) GetShortlink(ctx context.Context, shortCode string) (*models.Shortlink, error) {
	const op = "service.ShortlinkService.GetShortlink"

	link, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get shortlink: %w", op, err)
	}

	return link, nil
}

// ListShortlinks returns all shortlinks sorted by creation time descending.
func (s *ShortlinkService) ListShortlinks(ctx context.Context) ([]*models.Shortlink, error) {
	const op = "service.ShortlinkService.ListShortlinks"

	links, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list shortlinks: %w", op, err)
	}

	return links, nil
}

// ModifyShortlink applies a partial update to a shortlink. A destination in
// the patch is validated before the store write.
func (s *ShortlinkService) ModifyShortlink(ctx context.Context, shortCode string, patch database.ShortlinkPatch) (*models.Shortlink, error) {
	const op = "service.ShortlinkService.ModifyShortlink"

	if patch.DestinationURL != nil {
		if err := validateDestinationURL(*patch.DestinationURL); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	link, err := s.repo.Update(ctx, shortCode, patch)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to modify shortlink: %w", op, err)
	}

	return link, nil
}

// ToggleShortlink flips the active flag of a shortlink.
func (s *ShortlinkService) ToggleShortlink(ctx context.Context, shortCode string, isActive bool) (*models.Shortlink, error) {
	const op = "service.ShortlinkService.ToggleShortlink"

	link, err := s.repo.Update(ctx, shortCode, database.ShortlinkPatch{IsActive: &isActive})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to toggle shortlink: %w", op, err)
	}

	return link, nil
}

// DeleteShortlink removes a shortlink and all its click events.
func (s *ShortlinkService) DeleteShortlink(ctx context.Context, shortCode string) error {
	const op = "service.ShortlinkService.DeleteShortlink"

	if err := s.repo.Delete(ctx, shortCode); err != nil {
		return fmt.Errorf("%s: failed to delete shortlink: %w", op, err)
	}

	return nil
}

// validateDestinationURL requires an absolute http(s) URL with a host.
func validateDestinationURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDestinationURL, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDestinationURL, raw)
	}

	return nil
}
