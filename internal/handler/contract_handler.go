package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/internal/service/contract"
)

type ContractHandler struct {
	contracts *contract.Service
	logger    *zap.Logger
}

func NewContractHandler(svc *contract.Service, logger *zap.Logger) *ContractHandler {
	return &ContractHandler{contracts: svc, logger: logger}
}

// respond 所有合同变更都返回最新的合同，客户端据此刷新 version
func (h *ContractHandler) respond(c *gin.Context, status int, ct *model.Contract, err error) {
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(status, gin.H{"contract": ct})
}

// Generate POST /proposal/:id/contract
func (h *ContractHandler) Generate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ct, err := h.contracts.GenerateFor(c.Request.Context(), Actor(c), id)
	h.respond(c, http.StatusCreated, ct, err)
}

// Get GET /contracts/:id
func (h *ContractHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ct, err := h.contracts.Get(c.Request.Context(), Actor(c), id)
	h.respond(c, http.StatusOK, ct, err)
}

type editSectionRequest struct {
	Body string `json:"body"`
}

// EditSection PUT /contracts/:id/sections/:sectionId
func (h *ContractHandler) EditSection(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req editSectionRequest
	if !bindJSON(c, &req) {
		return
	}
	ct, err := h.contracts.EditSection(c.Request.Context(), Actor(c), id, model.SectionID(c.Param("sectionId")), req.Body)
	h.respond(c, http.StatusOK, ct, err)
}

// EditEquity PUT /contracts/:id/equity
func (h *ContractHandler) EditEquity(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var terms model.EquityTerms
	if !bindJSON(c, &terms) {
		return
	}
	ct, err := h.contracts.EditEquityTerms(c.Request.Context(), Actor(c), id, terms)
	h.respond(c, http.StatusOK, ct, err)
}

// Agree POST /contracts/:id/sections/:sectionId/agree
func (h *ContractHandler) Agree(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ct, err := h.contracts.AgreeToSection(c.Request.Context(), Actor(c), id, model.SectionID(c.Param("sectionId")))
	h.respond(c, http.StatusOK, ct, err)
}

// FinalAgreement POST /contracts/:id/final-agreement
func (h *ContractHandler) FinalAgreement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ct, err := h.contracts.FinalAgreement(c.Request.Context(), Actor(c), id)
	h.respond(c, http.StatusOK, ct, err)
}

// Sign POST /contracts/:id/sign
func (h *ContractHandler) Sign(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ct, err := h.contracts.Sign(c.Request.Context(), Actor(c), id)
	h.respond(c, http.StatusOK, ct, err)
}

// Terminate POST /contracts/:id/terminate
func (h *ContractHandler) Terminate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ct, err := h.contracts.Terminate(c.Request.Context(), Actor(c), id)
	h.respond(c, http.StatusOK, ct, err)
}
