package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
)

type ElectionHandler struct {
	service ports.ElectionService
	clock   clock.Clock
}

func NewElectionHandler(service ports.ElectionService, clk clock.Clock) *ElectionHandler {
	return &ElectionHandler{
		service: service,
		clock:   clk,
	}
}

type electionResponse struct {
	*domain.Election
	Status domain.ElectionStatus `json:"status"`
}

type createElectionRequest struct {
	OrganizationID   uuid.UUID               `json:"organization_id"`
	Title            string                  `json:"title"`
	Description      string                  `json:"description"`
	StartAt          time.Time               `json:"start_at"`
	EndAt            time.Time               `json:"end_at"`
	ResultVisibility domain.ResultVisibility `json:"result_visibility"`
}

type addPositionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	OrderIndex  int    `json:"order_index"`
}

type addCandidateRequest struct {
	Name      string     `json:"name"`
	Manifesto string     `json:"manifesto"`
	UserID    *uuid.UUID `json:"user_id"`
}

func (h *ElectionHandler) view(election *domain.Election) electionResponse {
	return electionResponse{Election: election, Status: election.StatusAt(h.clock.Now())}
}

// ListElections godoc
// @Summary      Lists elections
// @Description  Elections ordered by summarized vote totals, then by creation date.
// @Tags         elections
// @Produce      json
// @Param        organization_id  query  string  false  "Organization ID"
// @Param        status           query  string  false  "scheduled, ongoing or completed"
// @Param        page             query  int     false  "Page number"
// @Param        page_size        query  int     false  "Page size"
// @Success      200
// @Router       /api/elections [get]
func (h *ElectionHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	input := ports.ListElectionsInput{}
	query := r.URL.Query()

	if v := query.Get("organization_id"); v != "" {
		orgID, err := uuid.Parse(v)
		if err != nil {
			badRequest(w, "invalid organization id")
			return
		}
		input.OrganizationID = &orgID
	}
	if v := query.Get("status"); v != "" {
		status, ok := domain.ParseElectionStatus(v)
		if !ok {
			badRequest(w, "invalid status")
			return
		}
		input.Status = &status
	}
	if v := query.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			badRequest(w, "invalid page")
			return
		}
		input.Page = page
	}
	if v := query.Get("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			badRequest(w, "invalid page size")
			return
		}
		input.PageSize = size
	}

	elections, err := h.service.List(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]electionResponse, 0, len(elections))
	for _, e := range elections {
		out = append(out, h.view(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateElection godoc
// @Summary      Creates an election
// @Tags         elections
// @Accept       json
// @Produce      json
// @Success      201
// @Failure      400
// @Failure      403
// @Router       /api/elections [post]
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user context"})
		return
	}

	var req createElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	election, err := h.service.Create(r.Context(), requester, ports.CreateElectionInput{
		OrganizationID:   req.OrganizationID,
		Title:            req.Title,
		Description:      req.Description,
		StartAt:          req.StartAt,
		EndAt:            req.EndAt,
		ResultVisibility: req.ResultVisibility,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.view(election))
}

func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	election, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(election))
}

func (h *ElectionHandler) GetElectionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	status, err := h.service.GetElectionStatus(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"election_id": id, "status": status})
}

// StartElection godoc
// @Summary      Opens a scheduled election before its start time
// @Tags         elections
// @Success      200
// @Failure      409
// @Router       /api/elections/{id}/start [post]
func (h *ElectionHandler) StartElection(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Start)
}

// EndElection godoc
// @Summary      Closes an election before its end time
// @Tags         elections
// @Success      200
// @Failure      409
// @Router       /api/elections/{id}/end [post]
func (h *ElectionHandler) EndElection(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.End)
}

func (h *ElectionHandler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, requester domain.Requester, id uuid.UUID) (*domain.Election, error)) {
	requester, ok := requesterFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user context"})
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	election, err := apply(r.Context(), requester, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(election))
}

func (h *ElectionHandler) AddPosition(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user context"})
		return
	}
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req addPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	position, err := h.service.AddPosition(r.Context(), requester, electionID, ports.AddPositionInput{
		Title:       req.Title,
		Description: req.Description,
		OrderIndex:  req.OrderIndex,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, position)
}

func (h *ElectionHandler) RemovePosition(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user context"})
		return
	}
	positionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.RemovePosition(r.Context(), requester, positionID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ElectionHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user context"})
		return
	}
	positionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req addCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	candidate, err := h.service.AddCandidate(r.Context(), requester, positionID, ports.AddCandidateInput{
		Name:      req.Name,
		Manifesto: req.Manifesto,
		UserID:    req.UserID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, candidate)
}

func (h *ElectionHandler) RemoveCandidate(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user context"})
		return
	}
	candidateID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.RemoveCandidate(r.Context(), requester, candidateID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		badRequest(w, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
