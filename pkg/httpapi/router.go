package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/whitelist-merkle-service/pkg/app/errors"
	apphttp "github.com/chainsafe/whitelist-merkle-service/pkg/app/http"
	"github.com/chainsafe/whitelist-merkle-service/pkg/auth"
	"github.com/chainsafe/whitelist-merkle-service/pkg/config"

	"github.com/chainsafe/whitelist-merkle-service/internal/metrics"
)

const defaultRequestTimeout = 60 * time.Second

// NewRouter builds the chi router for the whitelist Merkle tree service,
// wiring every route in spec §6's HTTP surface with its group-gating
// requirement.
func NewRouter(h *HTTP, validator *auth.JWTValidator, groups config.AuthGroupsConfig, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	gated := func(authorizedGroups []string) func(http.Handler) http.Handler {
		return auth.RequireGroup(validator, authorizedGroups)
	}

	r.With(gated(groups.UploadWhitelist)).Post("/UploadWhitelist", withErrorMetrics("UploadWhitelist", h.uploadWhitelist))
	r.With(gated(groups.DeleteWhitelist)).Delete("/Whitelist", withErrorMetrics("DeleteWhitelist", h.deleteWhitelist))
	r.With(gated(groups.CreateMerkleTree)).Post("/CreateMerkleTree", withErrorMetrics("CreateMerkleTree", h.createMerkleTree))
	r.With(gated(groups.DeleteMerkleTree)).Delete("/MerkleTree", withErrorMetrics("DeleteMerkleTree", h.deleteMerkleTree))

	r.Get("/MerkleTrees", withErrorMetrics("MerkleTrees", h.getMerkleTrees)) // open to anonymous callers, per spec §4.5
	r.With(gated(groups.MerkleRoot)).Get("/MerkleRoot", withErrorMetrics("MerkleRoot", h.getMerkleRoot))
	r.With(gated(groups.MerkleRoots)).Get("/MerkleRoots", withErrorMetrics("MerkleRoots", h.getMerkleRoots))
	r.Get("/MerkleProof", withErrorMetrics("MerkleProof", h.getMerkleProof)) // open, per spec §6
	r.With(gated(groups.MerkleProofs)).Get("/MerkleProofs", withErrorMetrics("MerkleProofs", h.getMerkleProofs))

	if logger != nil {
		logger.Info("HTTP routes registered")
	}

	return r
}

// withErrorMetrics wraps a route handler so that errors surfaced at the HTTP
// boundary are counted by route and error kind before being rendered through
// the standard envelope.
func withErrorMetrics(route string, h apphttp.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			metrics.HTTPErrorsTotal.WithLabelValues(route, apperrors.KindOf(err).String()).Inc()
			apphttp.DefaultErrorHandler(w, err)
		}
	}
}
