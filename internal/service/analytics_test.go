package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/yellowcircle-io/shortlink-service/internal/models"
)

func TestShortlinkService_Summarize(t *testing.T) {
	at := func(hour int) time.Time {
		return time.Date(2026, time.August, 29, hour, 30, 0, 0, time.UTC)
	}

	t.Run("empty window", func(t *testing.T) {
		svc, repo := setupShortlinkService(t)

		repo.On("ListClicks", mock.Anything, "promo1", DefaultClickWindow).
			Return([]models.ClickEvent{}, nil).Once()

		summary, err := svc.Summarize(context.TODO(), "promo1", 0)

		assert.NoError(t, err)
		assert.Equal(t, 0, summary.TotalClicks)
		assert.Empty(t, summary.Referrers)
		repo.AssertExpectations(t)
	})

	t.Run("custom limit is passed through", func(t *testing.T) {
		svc, repo := setupShortlinkService(t)

		repo.On("ListClicks", mock.Anything, "promo1", 25).
			Return([]models.ClickEvent{}, nil).Once()

		_, err := svc.Summarize(context.TODO(), "promo1", 25)

		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("aggregates referrers, devices and hours", func(t *testing.T) {
		svc, repo := setupShortlinkService(t)

		events := []models.ClickEvent{
			{
				Timestamp: at(9),
				Referrer:  "https://news.ycombinator.com/",
				UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148 Safari/604.1",
			},
			{
				Timestamp: at(9),
				Referrer:  "https://news.ycombinator.com/",
				UserAgent: "Mozilla/5.0 (Linux; Android 14; Tablet) Safari/537.36",
			},
			{
				Timestamp: at(14),
				Referrer:  "",
				UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/126.0 Safari/537.36",
			},
			{
				Timestamp: at(23),
				Referrer:  "direct",
				UserAgent: "",
			},
		}

		repo.On("ListClicks", mock.Anything, "promo1", DefaultClickWindow).
			Return(events, nil).Once()

		summary, err := svc.Summarize(context.TODO(), "promo1", 0)

		assert.NoError(t, err)
		assert.Equal(t, 4, summary.TotalClicks)
		assert.Len(t, summary.Clicks, 4)

		assert.Equal(t, map[string]int{
			"https://news.ycombinator.com/": 2,
			"direct":                        2,
		}, summary.Referrers)

		assert.Equal(t, models.DeviceBreakdown{Mobile: 1, Tablet: 1, Desktop: 2}, summary.Devices)
		assert.Equal(t, summary.TotalClicks, summary.Devices.Mobile+summary.Devices.Tablet+summary.Devices.Desktop)

		assert.Equal(t, 2, summary.HourlyDistribution[9])
		assert.Equal(t, 1, summary.HourlyDistribution[14])
		assert.Equal(t, 1, summary.HourlyDistribution[23])

		var total int
		for _, n := range summary.HourlyDistribution {
			total += n
		}
		assert.Equal(t, 4, total)

		repo.AssertExpectations(t)
	})

	t.Run("mobile wins over tablet", func(t *testing.T) {
		svc, repo := setupShortlinkService(t)

		repo.On("ListClicks", mock.Anything, "promo1", DefaultClickWindow).
			Return([]models.ClickEvent{
				{Timestamp: at(1), UserAgent: "SomeBrowser Tablet Mobile Build"},
			}, nil).Once()

		summary, err := svc.Summarize(context.TODO(), "promo1", 0)

		assert.NoError(t, err)
		assert.Equal(t, models.DeviceBreakdown{Mobile: 1}, summary.Devices)
		repo.AssertExpectations(t)
	})

	t.Run("repository error", func(t *testing.T) {
		svc, repo := setupShortlinkService(t)

		repo.On("ListClicks", mock.Anything, "promo1", DefaultClickWindow).
			Return(nil, assert.AnError).Once()

		summary, err := svc.Summarize(context.TODO(), "promo1", 0)

		assert.Error(t, err)
		assert.Nil(t, summary)
		repo.AssertExpectations(t)
	})
}
