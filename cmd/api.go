package main

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/advocate-cli/internal/advocate"
	"github.com/sells-group/advocate-cli/internal/config"
	"github.com/sells-group/advocate-cli/internal/model"
	"github.com/sells-group/advocate-cli/internal/store"
)

const maxRequestBytes = 1 << 20

// apiHandler serves the verification API over an appEnv. Store may be nil,
// in which case verdicts are not persisted and history routes return 503.
type apiHandler struct {
	env *appEnv
}

// verifyRequest is the body of POST /v1/verify.
type verifyRequest struct {
	Name       string `json:"name"`
	Enrollment string `json:"enrollment"`
	ProfileID  string `json:"profile_id"`
}

type verifyResponse struct {
	Verdict      advocate.Verdict    `json:"verdict"`
	Verification *model.Verification `json:"verification,omitempty"`
}

// buildRouter mounts the API with CORS, request IDs and panic recovery.
// A non-empty APIKey guards every /v1 route with a bearer token.
func buildRouter(env *appEnv, sc config.ServerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(sc.AllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	h := &apiHandler{env: env}
	r.Route("/v1", func(r chi.Router) {
		if sc.APIKey != "" {
			r.Use(requireAPIKey(sc.APIKey))
		}
		h.Register(r)
	})
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// Register mounts the verification endpoints on the router.
func (h *apiHandler) Register(r chi.Router) {
	r.Post("/verify", h.handleVerify)
	r.Get("/cache", h.handleCacheStatus)
	r.Post("/cache/reload", h.handleCacheReload)
	r.Delete("/cache", h.handleCacheClear)
	r.Get("/verifications", h.handleListVerifications)
	r.Get("/verifications/{profileID}", h.handleGetVerification)
}

// requireAPIKey rejects requests without "Authorization: Bearer <key>".
func requireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
				zap.L().Warn("api: rejected request without valid token",
					zap.String("path", r.URL.Path),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *apiHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.ProfileID != "" && h.env.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "verdict storage is not configured")
		return
	}

	q := advocate.Query{SubmittedName: req.Name, SubmittedEnrollment: req.Enrollment}
	resp := verifyResponse{Verdict: h.env.Matcher.VerifyQuery(ctx, q)}

	if req.ProfileID != "" {
		saved, err := h.env.Store.SaveVerification(ctx, model.NewVerification(req.ProfileID, q, resp.Verdict))
		if err != nil {
			zap.L().Error("api: save verdict failed",
				zap.String("profile_id", req.ProfileID),
				zap.String("request_id", middleware.GetReqID(ctx)),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "failed to save verdict")
			return
		}
		resp.Verification = saved
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *apiHandler) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.env.Matcher.CacheStatus())
}

func (h *apiHandler) handleCacheReload(w http.ResponseWriter, r *http.Request) {
	if _, err := h.env.Matcher.Reload(r.Context()); err != nil {
		zap.L().Warn("api: roster reload abandoned", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "roster reload abandoned")
		return
	}
	writeJSON(w, http.StatusOK, h.env.Matcher.CacheStatus())
}

func (h *apiHandler) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	h.env.Matcher.ClearCache()
	writeJSON(w, http.StatusOK, h.env.Matcher.CacheStatus())
}

func (h *apiHandler) handleGetVerification(w http.ResponseWriter, r *http.Request) {
	if h.env.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "verdict storage is not configured")
		return
	}

	profileID := chi.URLParam(r, "profileID")
	v, err := h.env.Store.GetVerification(r.Context(), profileID)
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no verification for profile")
		return
	}
	if err != nil {
		zap.L().Error("api: get verification failed", zap.String("profile_id", profileID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read verification")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *apiHandler) handleListVerifications(w http.ResponseWriter, r *http.Request) {
	if h.env.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "verdict storage is not configured")
		return
	}

	filter, err := parseVerificationFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.env.Store.ListVerifications(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list verifications failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list verifications")
		return
	}
	if list == nil {
		list = []model.Verification{}
	}
	writeJSON(w, http.StatusOK, list)
}

func parseVerificationFilter(r *http.Request) (model.VerificationFilter, error) {
	q := r.URL.Query()
	filter := model.VerificationFilter{ProfileID: q.Get("profile_id")}

	if s := q.Get("verified_only"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return filter, eris.New("verified_only must be a boolean")
		}
		filter.VerifiedOnly = b
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &filter.Limit}, {"offset", &filter.Offset}} {
		s := q.Get(p.name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return filter, eris.Errorf("%s must be a non-negative integer", p.name)
		}
		*p.dst = n
	}
	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
