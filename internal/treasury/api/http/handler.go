package treasuryhttp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hearthvault/hearthvault/internal/platform/authtoken"
	apperrors "github.com/hearthvault/hearthvault/internal/platform/errors"
	"github.com/hearthvault/hearthvault/internal/treasury/domain"
	"github.com/hearthvault/hearthvault/internal/treasury/service"
)

// Handler serves the treasury HTTP API.
type Handler struct {
	svc      *service.Service
	verifier authtoken.VerifierConfig
	logger   *slog.Logger
}

// NewHandler builds the API handler. The verifier config authenticates
// bearer tokens on every route.
func NewHandler(svc *service.Service, verifier authtoken.VerifierConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, verifier: verifier, logger: logger}
}

// Register mounts all treasury routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc(http.MethodPost+" /v1/families", h.requireAuth(h.handleCreateFamily))
	mux.HandleFunc(http.MethodGet+" /v1/families", h.requireAuth(h.handleListFamilies))
	mux.HandleFunc(http.MethodDelete+" /v1/families/{familyID}", h.requireAuth(h.handleDeleteFamily))
	mux.HandleFunc(http.MethodPost+" /v1/families/{familyID}/members", h.requireAuth(h.handleAddMember))
	mux.HandleFunc(http.MethodDelete+" /v1/families/{familyID}/members/{identity}", h.requireAuth(h.handleRemoveMember))
	mux.HandleFunc(http.MethodPatch+" /v1/families/{familyID}/members/{identity}", h.requireAuth(h.handleSetMemberRole))
	mux.HandleFunc(http.MethodGet+" /v1/families/{familyID}/members", h.requireAuth(h.handleListMembers))
	mux.HandleFunc(http.MethodPost+" /v1/families/{familyID}/proposals", h.requireAuth(h.handleCreateProposal))
	mux.HandleFunc(http.MethodGet+" /v1/families/{familyID}/proposals", h.requireAuth(h.handleListProposals))
	mux.HandleFunc(http.MethodPost+" /v1/families/{familyID}/proposals/{proposalID}/votes", h.requireAuth(h.handleVote))
	mux.HandleFunc(http.MethodPost+" /v1/families/{familyID}/proposals/{proposalID}/veto", h.requireAuth(h.handleVeto))
	mux.HandleFunc(http.MethodPost+" /v1/families/{familyID}/proposals/{proposalID}/claim", h.requireAuth(h.handleClaim))
	mux.HandleFunc(http.MethodGet+" /v1/families/{familyID}/events", h.requireAuth(h.handleListEvents))
	mux.HandleFunc(http.MethodGet+" /v1/approval-percent", h.handleApprovalPercent)
}

func pathID(r *http.Request, name string) (int64, error) {
	value, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || value <= 0 {
		return 0, apperrors.New(apperrors.CodeNotFound, "invalid "+name)
	}
	return value, nil
}

func decodeBody(r *http.Request, into any) error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return apperrors.Wrap(apperrors.CodeMalformedRequest, "invalid request body", err)
	}
	return nil
}

type familyResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	CreatorIdentity string `json:"creator_identity"`
	WalletAddress   string `json:"wallet_address"`
	CreatedAt       string `json:"created_at"`
}

func toFamilyResponse(f domain.Family) familyResponse {
	return familyResponse{
		ID:              f.ID,
		Name:            f.Name,
		CreatorIdentity: f.CreatorIdentity,
		WalletAddress:   f.WalletAddress,
		CreatedAt:       f.CreatedAt.Format(time.RFC3339),
	}
}

type memberResponse struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	JoinedAt    string `json:"joined_at"`
}

func toMemberResponse(m domain.Member) memberResponse {
	return memberResponse{
		Identity:    m.Identity,
		DisplayName: m.DisplayName,
		Role:        m.Role.String(),
		JoinedAt:    m.JoinedAt.Format(time.RFC3339),
	}
}

type proposalResponse struct {
	ID              int64  `json:"id"`
	Proposer        string `json:"proposer"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Amount          int64  `json:"amount"`
	Recipient       string `json:"recipient"`
	VotesFor        int64  `json:"votes_for"`
	VotesAgainst    int64  `json:"votes_against"`
	CreatedAt       string `json:"created_at"`
	VotingDeadline  string `json:"voting_deadline"`
	Status          string `json:"status"`
	RequiredPercent int64  `json:"required_percent"`
	CurrentPercent  int64  `json:"current_percent,omitempty"`
	Expired         bool   `json:"expired,omitempty"`
}

func toProposalResponse(p domain.Proposal) proposalResponse {
	return proposalResponse{
		ID:              p.ID,
		Proposer:        p.Proposer,
		Title:           p.Title,
		Description:     p.Description,
		Amount:          p.Amount,
		Recipient:       p.Recipient,
		VotesFor:        p.VotesFor,
		VotesAgainst:    p.VotesAgainst,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
		VotingDeadline:  p.VotingDeadline.Format(time.RFC3339),
		Status:          p.Status.String(),
		RequiredPercent: domain.RequiredApprovalPercent(p.Amount),
	}
}

func toProposalViewResponse(v service.ProposalView) proposalResponse {
	resp := toProposalResponse(v.Proposal)
	resp.RequiredPercent = v.RequiredPercent
	resp.CurrentPercent = v.CurrentPercent
	resp.Expired = v.Expired
	return resp
}

type familyViewResponse struct {
	Family    familyResponse     `json:"family"`
	Balance   int64              `json:"balance"`
	Members   []memberResponse   `json:"members"`
	Proposals []proposalResponse `json:"proposals"`
}

type eventResponse struct {
	Seq        int64           `json:"seq"`
	Timestamp  string          `json:"timestamp"`
	Type       string          `json:"type"`
	Actor      string          `json:"actor"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func (h *Handler) handleCreateFamily(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		CreatorName string `json:"creator_name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	family, err := h.svc.CreateFamily(r.Context(), service.CreateFamilyInput{
		Name:        req.Name,
		CreatorName: req.CreatorName,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFamilyResponse(family))
}

func (h *Handler) handleListFamilies(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListFamiliesForIdentity(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := make([]familyViewResponse, 0, len(views))
	for _, view := range views {
		members := make([]memberResponse, 0, len(view.Members))
		for _, m := range view.Members {
			members = append(members, toMemberResponse(m))
		}
		proposals := make([]proposalResponse, 0, len(view.Proposals))
		for _, p := range view.Proposals {
			proposals = append(proposals, toProposalViewResponse(p))
		}
		resp = append(resp, familyViewResponse{
			Family:    toFamilyResponse(view.Family),
			Balance:   view.Balance,
			Members:   members,
			Proposals: proposals,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDeleteFamily(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "familyID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.svc.DeleteFamily(r.Context(), familyID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "familyID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req struct {
		Identity    string `json:"identity"`
		DisplayName string `json:"display_name"`
		Role        string `json:"role"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		writeError(w, h.logger, apperrors.New(apperrors.CodeInvalidRole, "role must be parent or child"))
		return
	}

	member, err := h.svc.AddMember(r.Context(), service.AddMemberInput{
		FamilyID:    familyID,
		Identity:    req.Identity,
		DisplayName: req.DisplayName,
		Role:        role,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberResponse(member))
}

func (h *Handler) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "familyID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	identity := r.PathValue("identity")
	if err := h.svc.RemoveMember(r.Context(), familyID, identity); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleSetMemberRole(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "familyID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	identity := r.PathValue("identity")
	var req struct {
		Role string `json:"role"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		writeError(w, h.logger, apperrors.New(apperrors.CodeInvalidRole, "role must be parent or child"))
		return
	}

	if err := h.svc.SetMemberRole(r.Context(), familyID, identity, role); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "familyID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	members, err := h.svc.ListFamilyMembers(r.Context(), familyID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp := make([]memberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, toMemberResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "familyID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req struct {
		Title           string `json:"title"`
		Description     string `json:"description"`
		Amount          int64  `json:"amount"`
		Recipient       string `json:"recipient"`
		DurationSeconds int64  `json:"duration_seconds"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	proposal, err := h.svc.CreateProposal(r.Context(), service.CreateProposalInput{
		FamilyID:    familyID,
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		Recipient:   req.Recipient,
		Duration:    time.Duration(req.DurationSeconds) * time.Second,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProposalResponse(proposal))
}

func (h *Handler) handleListProposals(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "familyID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	views, err := h.svc.ListFamilyProposals(r.Context(), familyID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp := make([]proposalResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toProposalViewResponse(v))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	familyID, proposalID, err := proposalPath(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req struct {
		InFavor bool `json:"in_favor"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	proposal, err := h.svc.Vote(r.Context(), familyID, proposalID, req.InFavor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalResponse(proposal))
}

func (h *Handler) handleVeto(w http.ResponseWriter, r *http.Request) {
	familyID, proposalID, err := proposalPath(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req struct {
		Approve bool `json:"approve"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	proposal, err := h.svc.VetoProposal(r.Context(), familyID, proposalID, req.Approve)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalResponse(proposal))
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	familyID, proposalID, err := proposalPath(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	proposal, err := h.svc.ClaimFunds(r.Context(), familyID, proposalID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalResponse(proposal))
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "familyID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	afterSeq, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.svc.ListFamilyEvents(r.Context(), familyID, afterSeq, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp := make([]eventResponse, 0, len(events))
	for _, evt := range events {
		resp = append(resp, eventResponse{
			Seq:        evt.Seq,
			Timestamp:  evt.Timestamp.Format(time.RFC3339),
			Type:       string(evt.Type),
			Actor:      evt.Actor,
			EntityType: evt.EntityType,
			EntityID:   evt.EntityID,
			Payload:    json.RawMessage(evt.PayloadJSON),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleApprovalPercent(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil || amount <= 0 {
		writeError(w, h.logger, apperrors.New(apperrors.CodeProposalAmountInvalid, "amount must be a positive integer"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{
		"amount":           amount,
		"required_percent": h.svc.RequiredApprovalPercent(amount),
	})
}

func proposalPath(r *http.Request) (familyID, proposalID int64, err error) {
	familyID, err = pathID(r, "familyID")
	if err != nil {
		return 0, 0, err
	}
	proposalID, err = pathID(r, "proposalID")
	if err != nil {
		return 0, 0, err
	}
	return familyID, proposalID, nil
}
