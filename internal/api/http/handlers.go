package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/yellowcircle-io/shortlink-service/internal/database"
	"github.com/yellowcircle-io/shortlink-service/internal/models"
	"github.com/yellowcircle-io/shortlink-service/internal/service"
	"github.com/yellowcircle-io/shortlink-service/pkg/response"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

type createLinkRequest struct {
	DestinationURL string `json:"destination_url" validate:"required,url"`
	Title          string `json:"title" validate:"omitempty,max=200"`
	CustomCode     string `json:"custom_code" validate:"omitempty,min=3,max=32,lowercase,alphanum"`
	Campaign       string `json:"campaign" validate:"omitempty,max=100"`
}

type modifyLinkRequest struct {
	DestinationURL *string `json:"destination_url" validate:"omitempty,url"`
	Title          *string `json:"title" validate:"omitempty,max=200"`
	Campaign       *string `json:"campaign" validate:"omitempty,max=100"`
	IsActive       *bool   `json:"is_active"`
}

type toggleLinkRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type linkResponse struct {
	ShortCode      string    `json:"short_code"`
	DestinationURL string    `json:"destination_url"`
	Title          string    `json:"title,omitempty"`
	Campaign       string    `json:"campaign,omitempty"`
	IsActive       bool      `json:"is_active"`
	Clicks         int64     `json:"clicks"`
	UniqueClicks   int64     `json:"unique_clicks"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toLinkResponse(link *models.Shortlink) linkResponse {
	return linkResponse{
		ShortCode:      link.ShortCode,
		DestinationURL: link.DestinationURL,
		Title:          link.Title,
		Campaign:       link.Campaign,
		IsActive:       link.IsActive,
		Clicks:         link.Clicks,
		UniqueClicks:   link.UniqueClicks,
		CreatedAt:      link.CreatedAt,
		UpdatedAt:      link.UpdatedAt,
	}
}

type clickResponse struct {
	Timestamp    time.Time `json:"timestamp"`
	Referrer     string    `json:"referrer"`
	UserAgent    string    `json:"user_agent"`
	ScreenWidth  int       `json:"screen_width"`
	ScreenHeight int       `json:"screen_height"`
	Language     string    `json:"language"`
	Pathname     string    `json:"pathname"`
}

type summaryResponse struct {
	TotalClicks        int                    `json:"total_clicks"`
	Clicks             []clickResponse        `json:"clicks"`
	Referrers          map[string]int         `json:"referrers"`
	Devices            models.DeviceBreakdown `json:"devices"`
	HourlyDistribution [24]int                `json:"hourly_distribution"`
}

func toSummaryResponse(summary *models.ClickSummary) summaryResponse {
	clicks := make([]clickResponse, 0, len(summary.Clicks))
	for _, click := range summary.Clicks {
		clicks = append(clicks, clickResponse{
			Timestamp:    click.Timestamp,
			Referrer:     click.Referrer,
			UserAgent:    click.UserAgent,
			ScreenWidth:  click.ScreenWidth,
			ScreenHeight: click.ScreenHeight,
			Language:     click.Language,
			Pathname:     click.Pathname,
		})
	}

	return summaryResponse{
		TotalClicks:        summary.TotalClicks,
		Clicks:             clicks,
		Referrers:          summary.Referrers,
		Devices:            summary.Devices,
		HourlyDistribution: summary.HourlyDistribution,
	}
}

func handleCreateShortlink(svc ShortlinkService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleCreateShortlink"
	const successMsg = "The shortlink has been created successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req createLinkRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		link, err := svc.CreateShortlink(r.Context(), service.CreateShortlinkParams{
			DestinationURL: req.DestinationURL,
			Title:          req.Title,
			CustomCode:     req.CustomCode,
			Campaign:       req.Campaign,
		})
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.ShortCodeExistsResponse)
				return
			}
			if errors.Is(err, service.ErrInvalidDestinationURL) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.BadRequestResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkResponse(link)))
	}
}

func handleListShortlinks(svc ShortlinkService) http.HandlerFunc {
	const op = "api.http.handleListShortlinks"
	const successMsg = "The shortlinks were retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		links, err := svc.ListShortlinks(r.Context())
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := make([]linkResponse, 0, len(links))
		for _, link := range links {
			data = append(data, toLinkResponse(link))
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

func handleGetShortlink(svc ShortlinkService) http.HandlerFunc {
	const op = "api.http.handleGetShortlink"
	const successMsg = "The shortlink was retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		link, err := svc.GetShortlink(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkResponse(link)))
	}
}

func handleModifyShortlink(svc ShortlinkService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleModifyShortlink"
	const successMsg = "The shortlink was successfully modified."

	return func(w http.ResponseWriter, r *http.Request) {
		var req modifyLinkRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		shortCode := chi.URLParam(r, "shortCode")

		link, err := svc.ModifyShortlink(r.Context(), shortCode, database.ShortlinkPatch{
			DestinationURL: req.DestinationURL,
			Title:          req.Title,
			Campaign:       req.Campaign,
			IsActive:       req.IsActive,
		})
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}
			if errors.Is(err, service.ErrInvalidDestinationURL) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.BadRequestResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkResponse(link)))
	}
}

func handleToggleShortlink(svc ShortlinkService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleToggleShortlink"
	const successMsg = "The shortlink was successfully toggled."

	return func(w http.ResponseWriter, r *http.Request) {
		var req toggleLinkRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		shortCode := chi.URLParam(r, "shortCode")

		link, err := svc.ToggleShortlink(r.Context(), shortCode, *req.IsActive)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toLinkResponse(link)))
	}
}

func handleDeleteShortlink(svc ShortlinkService) http.HandlerFunc {
	const op = "api.http.handleDeleteShortlink"
	const successMsg = "The shortlink was successfully deleted."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		err := svc.DeleteShortlink(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg))
	}
}

func handleGetAnalytics(svc ShortlinkService) http.HandlerFunc {
	const op = "api.http.handleGetAnalytics"
	const successMsg = "The shortlink analytics were retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.BadRequestResponse)
				return
			}
			limit = parsed
		}

		summary, err := svc.Summarize(r.Context(), shortCode, limit)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toSummaryResponse(summary)))
	}
}
