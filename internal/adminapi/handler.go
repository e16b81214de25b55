package adminapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/quest-forensics/internal/forensics"
)

// ForensicsPath is the harness endpoint.
const ForensicsPath = "/admin/forensics"

// maxBodyBytes bounds a request body.
const maxBodyBytes = 1 << 20

// #region handler
// Handler serves the admin endpoints.
type Handler struct {
	runner   Runner
	auth     Authenticator
	defaultN int
	logger   *zap.Logger
}

// NewHandler wires a handler. defaultN fills requests that omit n.
func NewHandler(runner Runner, auth Authenticator, defaultN int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{runner: runner, auth: auth, defaultN: defaultN, logger: logger}
}

// RegisterRoutes wires the handler into mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST "+ForensicsPath, h.requireOperator(http.HandlerFunc(h.handleForensics)))
}

// requireOperator rejects callers that are not admins or engineers.
func (h *Handler) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := h.auth.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			h.logger.Info("admin request rejected", zap.String("path", r.URL.Path), zap.Error(err))
			writeError(w, http.StatusUnauthorized, ErrUnauthenticated.Error())
			return
		}
		if !p.CanRunForensics() {
			h.logger.Info("admin request forbidden",
				zap.String("subject", p.Subject),
				zap.String("role", string(p.Role)),
			)
			writeError(w, http.StatusForbidden, ErrForbidden.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleForensics(w http.ResponseWriter, r *http.Request) {
	var req forensics.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}
	if req.N == 0 {
		req.N = h.defaultN
	}

	run, err := h.runner.Run(r.Context(), req)
	switch {
	case errors.Is(err, forensics.ErrInvalidMode), errors.Is(err, forensics.ErrInvalidN):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("forensics run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "forensics run failed")
		return
	}
	// A run that could not find content is still a 200: the body carries its error.
	writeJSON(w, http.StatusOK, run)
}

// #endregion handler

// #region helpers
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// #endregion helpers
