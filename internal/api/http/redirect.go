package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/yellowcircle-io/shortlink-service/internal/database"
	"github.com/yellowcircle-io/shortlink-service/internal/service"
)

// notFoundPage is shown when a code is absent or deactivated. The meta
// refresh sends the visitor to the default landing location after the
// 3-second countdown.
const notFoundPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="3;url=%s">
<title>Link Not Found</title>
</head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4rem;">
<h1>Link Not Found</h1>
<p>%s</p>
<p>Redirecting to homepage in 3...</p>
</body>
</html>
`

// handleRedirect resolves /go/{shortCode} and issues a 302 to the
// destination. Click tracking runs synchronously inside the resolve; a
// tracking failure never blocks the redirect. Tracking can be disabled with
// ?track=false.
func handleRedirect(svc ShortlinkService, defaultRedirect string) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		var click *service.ClickMetadata
		if r.URL.Query().Get("track") != "false" {
			click = &service.ClickMetadata{
				SessionID:    sessionIDFromContext(r.Context()),
				Referrer:     r.Referer(),
				UserAgent:    r.UserAgent(),
				Language:     primaryLanguage(r.Header.Get("Accept-Language")),
				Pathname:     r.URL.Path,
				ScreenWidth:  queryInt(r, "sw"),
				ScreenHeight: queryInt(r, "sh"),
			}
		}

		link, err := svc.Resolve(r.Context(), shortCode, click)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprintf(w, notFoundPage, defaultRedirect, "Shortlink not found or has been deactivated.")
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprintf(w, notFoundPage, defaultRedirect, "An error occurred while redirecting.")
			return
		}

		http.Redirect(w, r, link.DestinationURL, http.StatusFound)
	}
}

// primaryLanguage reduces an Accept-Language header to its first locale tag.
func primaryLanguage(header string) string {
	lang := strings.SplitN(header, ",", 2)[0]
	lang = strings.SplitN(lang, ";", 2)[0]
	return strings.TrimSpace(lang)
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}
