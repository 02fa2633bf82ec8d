package service

import (
	"context"
	"fmt"
	"regexp"

	"github.com/yellowcircle-io/shortlink-service/internal/models"
)

// DefaultClickWindow bounds the number of recent click events an analytics
// summary is computed from.
const DefaultClickWindow = 100

// Device classification probes the raw user-agent string, mobile first.
// Anything matching neither bucket counts as desktop.
var (
	mobilePattern = regexp.MustCompile(`(?i)mobile`)
	tabletPattern = regexp.MustCompile(`(?i)tablet`)
)

// Summarize aggregates up to limit most recent click events of a shortlink
// into referrer counts, a device breakdown and an hourly histogram. The
// summary's TotalClicks covers only the fetched window and may be smaller
// than the shortlink's persisted clicks counter.
func (s *ShortlinkService) Summarize(ctx context.Context, shortCode string, limit int) (*models.ClickSummary, error) {
	const op = "service.ShortlinkService.Summarize"

	if limit <= 0 {
		limit = DefaultClickWindow
	}

	events, err := s.repo.ListClicks(ctx, shortCode, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list clicks: %w", op, err)
	}

	summary := &models.ClickSummary{
		TotalClicks: len(events),
		Clicks:      events,
		Referrers:   make(map[string]int),
	}

	for _, event := range events {
		referrer := event.Referrer
		if referrer == "" {
			referrer = "direct"
		}
		summary.Referrers[referrer]++

		switch {
		case mobilePattern.MatchString(event.UserAgent):
			summary.Devices.Mobile++
		case tabletPattern.MatchString(event.UserAgent):
			summary.Devices.Tablet++
		default:
			summary.Devices.Desktop++
		}

		if !event.Timestamp.IsZero() {
			summary.HourlyDistribution[event.Timestamp.Hour()]++
		}
	}

	return summary, nil
}
