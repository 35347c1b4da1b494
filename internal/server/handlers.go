package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/quantfolio/advisor/internal/advisor"
	"github.com/quantfolio/advisor/internal/domain"
	"github.com/quantfolio/advisor/internal/profiles"
	"github.com/quantfolio/advisor/internal/snapshots"
)

// anonymousUser keys requests that carry no user id. They get default
// preferences and no persisted history.
const anonymousUser = "anonymous"

// Handlers serves the recommendation and profile endpoints.
type Handlers struct {
	engine   *advisor.Engine
	profiles *profiles.Repository
	history  *snapshots.HistoryRepository
	log      zerolog.Logger
}

// NewHandlers creates the API handlers.
func NewHandlers(engine *advisor.Engine, profileRepo *profiles.Repository, history *snapshots.HistoryRepository, log zerolog.Logger) *Handlers {
	return &Handlers{
		engine:   engine,
		profiles: profileRepo,
		history:  history,
		log:      log.With().Str("component", "handlers").Logger(),
	}
}

// RegisterRoutes mounts the API routes.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/recommendations", func(r chi.Router) {
		r.Post("/generate", h.HandleGenerate)
		r.Get("/", h.HandleLatest)
		r.Get("/history", h.HandleHistory)
	})
	r.Post("/forex/recommendations", h.HandleForexRecommendations)
	r.Route("/profile", func(r chi.Router) {
		r.Get("/{userID}", h.HandleGetProfile)
		r.Put("/{userID}", h.HandleSaveProfile)
	})
}

// generateRequest carries the optional profile overrides for one batch.
type generateRequest struct {
	UserID            string   `json:"userId"`
	RiskTolerance     string   `json:"riskTolerance"`
	InvestmentHorizon string   `json:"investmentHorizon"`
	InvestmentAmount  float64  `json:"investmentAmount"`
	PreferredAssets   []string `json:"preferredAssets"`
}

// HandleGenerate runs the full pipeline for the requesting user.
// POST /api/recommendations/generate
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.resolveProfile(w, r)
	if !ok {
		return
	}

	result, err := h.engine.Generate(r.Context(), profile)
	if err != nil {
		h.log.Error().Err(err).Str("user", profile.UserID).Msg("Recommendation generation failed")
		respondError(w, http.StatusInternalServerError, "failed to generate recommendations")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// HandleForexRecommendations scores the currency universe only.
// POST /api/forex/recommendations
func (h *Handlers) HandleForexRecommendations(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.resolveProfile(w, r)
	if !ok {
		return
	}

	result, err := h.engine.ForexRecommendations(r.Context(), profile)
	if err != nil {
		h.log.Error().Err(err).Str("user", profile.UserID).Msg("Forex recommendation generation failed")
		respondError(w, http.StatusInternalServerError, "failed to generate recommendations")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// HandleLatest returns the most recently generated batch for a user.
// GET /api/recommendations?userId=...
func (h *Handlers) HandleLatest(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "userId query parameter is required")
		return
	}

	entry, found, err := h.history.Latest(userID)
	if err != nil {
		h.log.Error().Err(err).Str("user", userID).Msg("History lookup failed")
		respondError(w, http.StatusInternalServerError, "failed to load recommendations")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "no recommendations generated yet")
		return
	}

	respondJSON(w, http.StatusOK, entry)
}

// HandleHistory lists past batches for a user, newest first.
// GET /api/recommendations/history?userId=...&limit=...
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "userId query parameter is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	entries, err := h.history.List(userID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user", userID).Msg("History listing failed")
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if entries == nil {
		entries = []snapshots.HistoryEntry{}
	}

	respondJSON(w, http.StatusOK, entries)
}

// HandleGetProfile returns the stored (or default) profile.
// GET /api/profile/{userID}
func (h *Handlers) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	profile, err := h.profiles.Get(userID)
	if err != nil {
		h.log.Error().Err(err).Str("user", userID).Msg("Profile lookup failed")
		respondError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// HandleSaveProfile upserts a profile.
// PUT /api/profile/{userID}
func (h *Handlers) HandleSaveProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = userID

	profile, valid := buildProfile(req, profiles.DefaultProfile(userID))
	if !valid {
		respondError(w, http.StatusBadRequest, "invalid riskTolerance or investmentHorizon")
		return
	}

	if err := h.profiles.Save(profile); err != nil {
		h.log.Error().Err(err).Str("user", userID).Msg("Profile save failed")
		respondError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// resolveProfile loads the stored profile for the request's user and
// applies any overrides from the body. An empty body is fine.
func (h *Handlers) resolveProfile(w http.ResponseWriter, r *http.Request) (domain.UserProfile, bool) {
	var req generateRequest
	if r.Body != nil {
		// An empty body means "use the stored profile as-is".
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return domain.UserProfile{}, false
		}
	}

	userID := req.UserID
	if userID == "" {
		userID = anonymousUser
	}

	stored, err := h.profiles.Get(userID)
	if err != nil {
		h.log.Error().Err(err).Str("user", userID).Msg("Profile lookup failed")
		respondError(w, http.StatusInternalServerError, "failed to load profile")
		return domain.UserProfile{}, false
	}

	profile, valid := buildProfile(req, stored)
	if !valid {
		respondError(w, http.StatusBadRequest, "invalid riskTolerance or investmentHorizon")
		return domain.UserProfile{}, false
	}
	profile.UserID = userID

	return profile, true
}

// buildProfile overlays non-empty request fields onto a base profile.
func buildProfile(req generateRequest, base domain.UserProfile) (domain.UserProfile, bool) {
	profile := base

	if req.RiskTolerance != "" {
		switch domain.RiskTolerance(req.RiskTolerance) {
		case domain.ToleranceLow, domain.ToleranceMedium, domain.ToleranceHigh:
			profile.RiskTolerance = domain.RiskTolerance(req.RiskTolerance)
		default:
			return domain.UserProfile{}, false
		}
	}

	if req.InvestmentHorizon != "" {
		switch domain.InvestmentHorizon(req.InvestmentHorizon) {
		case domain.HorizonShort, domain.HorizonMedium, domain.HorizonLong:
			profile.Horizon = domain.InvestmentHorizon(req.InvestmentHorizon)
		default:
			return domain.UserProfile{}, false
		}
	}

	if req.InvestmentAmount > 0 {
		profile.InvestmentAmount = req.InvestmentAmount
	}

	if len(req.PreferredAssets) > 0 {
		prefs := make(map[domain.AssetPreference]bool, len(req.PreferredAssets))
		for _, p := range req.PreferredAssets {
			prefs[domain.AssetPreference(p)] = true
		}
		profile.PreferredAssets = prefs
	}

	return profile, true
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
