// Package http provides HTTP utilities including chi-compatible error handling
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/chainsafe/whitelist-merkle-service/pkg/app/errors"
)

// HandlerFunc defines a function that returns an error for clean error handling
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// Envelope is the top-level JSON response shape every route returns, per
// spec §6: HTTP 200 in all cases except UnauthorizedAccess (403).
type Envelope struct {
	Success      bool   `json:"success"`
	Data         any    `json:"data,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// HandleError wraps an error-returning HandlerFunc into a standard http.HandlerFunc
// This allows using clean error-returning handlers with any router (chi, http.ServeMux, etc.)
//
// Usage with chi:
//
//	r.Post("/UploadWhitelist", http.HandleError(handler.upload))
func HandleError(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			DefaultErrorHandler(w, err)
		}
	}
}

// WriteData writes a successful envelope with the given payload.
func WriteData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, &Envelope{Success: true, Data: data})
}

// DefaultErrorHandler handles errors returned from HTTP handlers, serializing
// them into the envelope. Unknown (non-ServiceError) errors become a generic
// InternalError entry; they are never leaked to the caller verbatim.
func DefaultErrorHandler(w http.ResponseWriter, err error) {
	var svcErr *apperrors.ServiceError
	if errors.As(err, &svcErr) {
		status := http.StatusOK
		if svcErr.Kind == apperrors.KindUnauthorizedAccess {
			status = http.StatusForbidden
		}
		writeJSON(w, status, &Envelope{
			Success:      false,
			ErrorCode:    svcErr.Kind.String(),
			ErrorMessage: svcErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusOK, &Envelope{
		Success:      false,
		ErrorCode:    apperrors.KindInternalError.String(),
		ErrorMessage: "Internal Server Error",
	})
}

func writeJSON(w http.ResponseWriter, status int, body *Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
