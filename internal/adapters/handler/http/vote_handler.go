package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
)

type VoteHandler struct {
	service ports.VoteService
}

func NewVoteHandler(service ports.VoteService) *VoteHandler {
	return &VoteHandler{
		service: service,
	}
}

type voteRequest struct {
	PositionID  uuid.UUID `json:"position_id"`
	CandidateID uuid.UUID `json:"candidate_id"`
}

type ballotRequest struct {
	Votes []voteRequest `json:"votes"`
}

// CastVote godoc
// @Summary      Casts a vote for one position
// @Description  The voter is taken from the access token. A second vote for the same position is rejected.
// @Tags         votes
// @Accept       json
// @Produce      json
// @Success      201
// @Failure      400
// @Failure      403
// @Failure      409
// @Failure      503
// @Router       /api/elections/{id}/votes [post]
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user context"})
		return
	}
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	receipt, err := h.service.CastAs(r.Context(), requester.UserID, electionID, req.PositionID, req.CandidateID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// CastBallot godoc
// @Summary      Casts votes for several positions at once
// @Description  Either every vote of the ballot is recorded or none is.
// @Tags         votes
// @Accept       json
// @Produce      json
// @Success      201
// @Failure      400
// @Failure      409
// @Router       /api/elections/{id}/ballots [post]
func (h *VoteHandler) CastBallot(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user context"})
		return
	}
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req ballotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	entries := make([]domain.BallotEntry, 0, len(req.Votes))
	for _, v := range req.Votes {
		entries = append(entries, domain.BallotEntry{PositionID: v.PositionID, CandidateID: v.CandidateID})
	}

	receipts, err := h.service.CastBallotAs(r.Context(), requester.UserID, electionID, entries)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipts)
}

func (h *VoteHandler) MyVotes(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user context"})
		return
	}
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	votes, err := h.service.MyVotes(r.Context(), requester.UserID, electionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, votes)
}
