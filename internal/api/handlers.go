package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/abaplay/outreach/internal/domain"
	"github.com/abaplay/outreach/internal/store"
)

// Handlers bundles the HTTP handlers over the store.
type Handlers struct {
	store *store.Store
}

// NewHandlers creates the handler set.
func NewHandlers(st *store.Store) *Handlers {
	return &Handlers{store: st}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// storeError maps data-layer failures onto HTTP status codes.
func storeError(w http.ResponseWriter, err error) {
	var ce *store.ConstraintError
	if errors.As(err, &ce) {
		respondError(w, http.StatusUnprocessableEntity, ce.Error())
		return
	}
	log.Printf("[api] store error: %v", err)
	respondError(w, http.StatusInternalServerError, "internal error")
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- campaigns ---

type createCampaignRequest struct {
	Name        string `json:"name"`
	Region      string `json:"region"`
	Description string `json:"description"`
}

func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	id, err := h.store.CreateCampaign(r.Context(), req.Name, req.Region, req.Description)
	if err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.store.ListCampaigns(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, campaigns)
}

func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.GetCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	if c == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteCampaign(r.Context(), chi.URLParam(r, "id")); err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type updateStatusRequest struct {
	Status        string `json:"status"`
	DiscardReason string `json:"discard_reason"`
	Force         bool   `json:"force"`
}

func (h *Handlers) UpdateCampaignStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	status := domain.CampaignStatus(req.Status)
	if !status.Valid() {
		respondError(w, http.StatusBadRequest, "unknown campaign status")
		return
	}
	if err := h.store.UpdateCampaignStatus(r.Context(), chi.URLParam(r, "id"), status); err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

func (h *Handlers) CampaignSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.store.CampaignSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	if sum == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

func (h *Handlers) LeadsByCampaign(w http.ResponseWriter, r *http.Request) {
	leads, err := h.store.LeadsByCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, leads)
}

func (h *Handlers) EmailLogByCampaign(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.EmailLogByCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// --- leads ---

func (h *Handlers) CreateLead(w http.ResponseWriter, r *http.Request) {
	var lead domain.Lead
	if err := json.NewDecoder(r.Body).Decode(&lead); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if lead.CampaignID == "" || lead.ClinicName == "" {
		respondError(w, http.StatusBadRequest, "campaign_id and clinic_name are required")
		return
	}
	id, err := h.store.CreateLead(r.Context(), &lead)
	if err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handlers) GetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.store.GetLead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	if lead == nil {
		respondError(w, http.StatusNotFound, "lead not found")
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

func (h *Handlers) UpdateLeadStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	status := domain.LeadStatus(req.Status)
	if !status.Valid() {
		respondError(w, http.StatusBadRequest, "unknown lead status")
		return
	}
	err := h.store.UpdateLeadStatus(r.Context(), chi.URLParam(r, "id"), status, req.DiscardReason, req.Force)
	if err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (h *Handlers) UpdateLeadNotes(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.store.UpdateLeadNotes(r.Context(), chi.URLParam(r, "id"), req.Notes); err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// --- blacklist ---

type blacklistRequest struct {
	Email      string `json:"email"`
	Reason     string `json:"reason"`
	CampaignID string `json:"campaign_id"`
}

func (h *Handlers) AddToBlacklist(w http.ResponseWriter, r *http.Request) {
	var req blacklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}
	reason := domain.BlacklistReason(req.Reason)
	if req.Reason == "" {
		reason = domain.ReasonManual
	}
	if !reason.Valid() {
		respondError(w, http.StatusBadRequest, "unknown blacklist reason")
		return
	}
	if err := h.store.AddToBlacklist(r.Context(), req.Email, reason, req.CampaignID); err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"email": domain.NormalizeEmail(req.Email)})
}

func (h *Handlers) RemoveFromBlacklist(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemoveFromBlacklist(r.Context(), chi.URLParam(r, "email")); err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handlers) ListBlacklist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.Blacklist(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// --- settings ---

func (h *Handlers) ListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.ListSettings(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

type settingRequest struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

func (h *Handlers) PutSetting(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	key := chi.URLParam(r, "key")
	if err := h.store.PutSetting(r.Context(), key, req.Value, req.Description); err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"key": key, "value": req.Value})
}

// --- stats ---

func (h *Handlers) DailyStats(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	counts, err := h.store.DailySendCounts(r.Context(), days)
	if err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

func (h *Handlers) SentToday(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.EmailsSentToday(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"sent_today": n})
}
