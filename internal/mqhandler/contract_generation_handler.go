package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	mqcontract "foundermatch/contracts/mq"
	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
	"foundermatch/pkg/logger"
)

// ContractGenerator 从已接受的提案生成合同
type ContractGenerator interface {
	Generate(ctx context.Context, proposalID int64) (*model.Contract, error)
}

// ContractGenerationHandler 消费 proposal.accepted，自动生成合同草稿
type ContractGenerationHandler struct {
	contracts ContractGenerator
	logger    *zap.Logger
}

func NewContractGenerationHandler(contracts ContractGenerator, logger *zap.Logger) *ContractGenerationHandler {
	return &ContractGenerationHandler{contracts: contracts, logger: logger}
}

func (h *ContractGenerationHandler) Handle(ctx context.Context, _ string, raw json.RawMessage) error {
	var p mqcontract.ProposalDecidedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal ProposalDecidedPayload", zap.Error(err))
		return err // 交给 Consumer 的重试/DLQ 机制处理
	}
	log := logger.WithTrace(ctx, h.logger).With(zap.Int64("proposal_id", p.ProposalID))

	c, err := h.contracts.Generate(ctx, p.ProposalID)
	if err != nil {
		// 手动生成或重投都可能先到一步
		if apperr.CodeOf(err) == apperr.CodeContractAlreadyExists {
			log.Info("Contract already exists, skipping")
			return nil
		}
		log.Error("Failed to generate contract", zap.Error(err))
		return err
	}

	log.Info("Contract generated from accepted proposal", zap.Int64("contract_id", c.ID))
	return nil
}
