package web

// errors.go renders API errors. Every error is logged server-side with its
// full chain. Clients get the mapped UserMessage; the raw error text is only
// echoed back for 400 responses, where it describes the client's own input.

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/bountycatch/internal/core"
	"github.com/JonMunkholm/bountycatch/internal/logging"
)

// errBadQuery marks malformed query parameters.
var errBadQuery = errors.New("bad query parameter")

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error, msg core.UserMessage) int {
	switch {
	case errors.Is(err, errBadQuery),
		errors.Is(err, core.ErrInvalidPattern),
		errors.Is(err, core.ErrUnsupportedFormat):
		return http.StatusBadRequest
	}
	switch msg.Code {
	case "DB001", "DB002", "DB003", "DB004", "DB007":
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the mapped JSON error response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.MapError(err)
	status := statusFor(err, msg)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if errors.Is(err, errBadQuery) {
		msg = core.UserMessage{Message: "Invalid query parameter", Action: "Check the query parameters", Code: "API001"}
	}
	detail := msg.Message
	if status == http.StatusBadRequest {
		detail = err.Error()
	}
	respondJSON(w, status, ErrorResponse{
		Error:   detail,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
