package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/internal/service/proposal"
)

type ProposalHandler struct {
	proposals *proposal.Service
	logger    *zap.Logger
}

func NewProposalHandler(svc *proposal.Service, logger *zap.Logger) *ProposalHandler {
	return &ProposalHandler{proposals: svc, logger: logger}
}

type submitProposalRequest struct {
	IdeaID int64 `json:"idea_id"`
	model.ProposalFields
}

// Submit POST /submit-proposal
func (h *ProposalHandler) Submit(c *gin.Context) {
	var req submitProposalRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.IdeaID <= 0 {
		badRequest(c, "idea_id is required")
		return
	}
	p, err := h.proposals.Submit(c.Request.Context(), Actor(c), req.IdeaID, req.ProposalFields)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"proposal": p})
}

// Get GET /proposal/:id
func (h *ProposalHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.proposals.Get(c.Request.Context(), Actor(c), id)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposal": p})
}

type transitionRequest struct {
	Action model.ProposalAction `json:"action"`
}

// Transition POST /proposal/:id/status
func (h *ProposalHandler) Transition(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transitionRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.proposals.Transition(c.Request.Context(), Actor(c), id, req.Action)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposal": p})
}

// ByDeveloper GET /developer-proposals/:developerId
func (h *ProposalHandler) ByDeveloper(c *gin.Context) {
	id, ok := pathID(c, "developerId")
	if !ok {
		return
	}
	list, err := h.proposals.ListByDeveloper(c.Request.Context(), Actor(c), id)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": list})
}

// ByEntrepreneur GET /entrepreneur-proposals/:entrepreneurId
func (h *ProposalHandler) ByEntrepreneur(c *gin.Context) {
	id, ok := pathID(c, "entrepreneurId")
	if !ok {
		return
	}
	list, err := h.proposals.ListByEntrepreneur(c.Request.Context(), Actor(c), id)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": list})
}

// ByIdea GET /manage-proposals/:ideaId
func (h *ProposalHandler) ByIdea(c *gin.Context) {
	id, ok := pathID(c, "ideaId")
	if !ok {
		return
	}
	list, err := h.proposals.ListByIdea(c.Request.Context(), Actor(c), id)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": list})
}
