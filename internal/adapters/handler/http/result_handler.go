package http

import (
	"net/http"

	"github.com/vncsmyrnk/pollr/internal/core/ports"
)

type ResultHandler struct {
	service ports.TallyService
}

func NewResultHandler(service ports.TallyService) *ResultHandler {
	return &ResultHandler{
		service: service,
	}
}

// ElectionResults godoc
// @Summary      Results of every position of an election
// @Description  Private results are only visible to organization admins until the election is completed.
// @Tags         results
// @Produce      json
// @Success      200
// @Failure      403
// @Failure      404
// @Router       /api/elections/{id}/results [get]
func (h *ResultHandler) ElectionResults(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user context"})
		return
	}
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	results, err := h.service.GetElectionResultsAs(r.Context(), requester, electionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *ResultHandler) PositionTally(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user context"})
		return
	}
	positionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	tally, err := h.service.GetTallyAs(r.Context(), requester, positionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tally)
}
