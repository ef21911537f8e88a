package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/bountycatch/internal/core"
	"github.com/JonMunkholm/bountycatch/internal/logging"
)

// handleHealth reports whether the database is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListDomains streams the stored domains.
//
// Query parameters: match (substring), regex, sort (bool), format (text|json).
func (s *Server) handleListDomains(w http.ResponseWriter, r *http.Request) {
	opts, err := parseQueryOptions(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = core.FormatText
	}
	if err := core.ValidateFormat(format); err != nil {
		respondError(w, r, err)
		return
	}

	contentType := "text/plain; charset=utf-8"
	if format == core.FormatJSON {
		contentType = "application/json"
	}

	lw := &lazyWriter{w: w, contentType: contentType}
	n, err := s.service.ExportTo(r.Context(), lw, format, opts)
	if err != nil {
		if !lw.started {
			respondError(w, r, err)
			return
		}
		// Headers are gone; the client sees a truncated body.
		logging.FromContext(r.Context()).Error("domain stream aborted", "error", err)
		return
	}
	if !lw.started {
		// Empty text listing.
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
	}

	logging.FromContext(r.Context()).Debug("domains listed",
		"format", format,
		"filter", opts.Filter.String(),
		"domains", n,
	)
}

// handleCountDomains returns the number of stored domains matching the
// optional filter.
func (s *Server) handleCountDomains(w http.ResponseWriter, r *http.Request) {
	opts, err := parseQueryOptions(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	n, err := s.service.Count(r.Context(), opts.Filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"count": n})
}

// parseQueryOptions reads match, regex and sort from the query string.
func parseQueryOptions(r *http.Request) (core.QueryOptions, error) {
	q := r.URL.Query()

	f, err := core.NewFilter(q.Get("match"), q.Get("regex"))
	if err != nil {
		return core.QueryOptions{}, err
	}

	opts := core.QueryOptions{Filter: f}
	if v := q.Get("sort"); v != "" {
		opts.Sort, err = strconv.ParseBool(v)
		if err != nil {
			return core.QueryOptions{}, fmt.Errorf("%w: sort=%q", errBadQuery, v)
		}
	}
	return opts, nil
}

// lazyWriter defers the 200 status line until the first byte of body, so
// an error raised before any output can still be sent as a JSON error.
type lazyWriter struct {
	w           http.ResponseWriter
	contentType string
	started     bool
}

func (l *lazyWriter) Write(p []byte) (int, error) {
	if !l.started {
		l.started = true
		l.w.Header().Set("Content-Type", l.contentType)
		l.w.WriteHeader(http.StatusOK)
	}
	return l.w.Write(p)
}
