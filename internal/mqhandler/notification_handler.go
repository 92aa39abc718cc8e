package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontract "foundermatch/contracts/mq"
	"foundermatch/internal/model"
	"foundermatch/pkg/logger"
)

type Notifier interface {
	Notify(ctx context.Context, n model.Notification) (*model.Notification, error)
}

// NotificationHandler 把领域事件转成站内通知
type NotificationHandler struct {
	notifier Notifier
	logger   *zap.Logger
}

func NewNotificationHandler(notifier Notifier, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifier: notifier, logger: logger}
}

// RoutingKeys 该 handler 处理的事件
func (h *NotificationHandler) RoutingKeys() []string {
	return []string{
		mqcontract.RoutingProposalSubmitted,
		mqcontract.RoutingProposalAccepted,
		mqcontract.RoutingProposalRejected,
		mqcontract.RoutingContractExecuted,
		mqcontract.RoutingTaskSubmitted,
		mqcontract.RoutingTaskReviewed,
	}
}

func (h *NotificationHandler) Handle(ctx context.Context, routingKey string, raw json.RawMessage) error {
	notes, err := notificationsFor(routingKey, raw)
	if err != nil {
		h.logger.Error("Failed to decode event for notification",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		return err
	}

	log := logger.WithTrace(ctx, h.logger).With(zap.String("routing_key", routingKey))
	for _, n := range notes {
		created, err := h.notifier.Notify(ctx, n)
		if err != nil {
			log.Error("Failed to create notification", zap.Int64("user_id", n.UserID), zap.Error(err))
			return err
		}
		log.Info("Notification created",
			zap.Int64("notification_id", created.ID),
			zap.Int64("user_id", n.UserID),
			zap.String("kind", string(n.Kind)),
		)
	}
	return nil
}

func notificationsFor(routingKey string, raw json.RawMessage) ([]model.Notification, error) {
	switch routingKey {
	case mqcontract.RoutingProposalSubmitted:
		var p mqcontract.ProposalSubmittedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return []model.Notification{{
			UserID:  p.EntrepreneurID,
			Kind:    model.NotifyProposalSubmitted,
			Message: fmt.Sprintf("New proposal for %q", p.IdeaTitle),
			RefType: model.AggregateProposal,
			RefID:   p.ProposalID,
		}}, nil

	case mqcontract.RoutingProposalAccepted, mqcontract.RoutingProposalRejected:
		var p mqcontract.ProposalDecidedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		kind := model.NotifyProposalAccepted
		if routingKey == mqcontract.RoutingProposalRejected {
			kind = model.NotifyProposalRejected
		}
		return []model.Notification{{
			UserID:  p.DeveloperID,
			Kind:    kind,
			Message: fmt.Sprintf("Your proposal #%d was %s", p.ProposalID, p.Status),
			RefType: model.AggregateProposal,
			RefID:   p.ProposalID,
		}}, nil

	case mqcontract.RoutingContractExecuted:
		var p mqcontract.ContractExecutedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("Contract for %q is now executed", p.IdeaTitle)
		return []model.Notification{
			{UserID: p.EntrepreneurID, Kind: model.NotifyContractExecuted, Message: msg, RefType: model.AggregateContract, RefID: p.ContractID},
			{UserID: p.DeveloperID, Kind: model.NotifyContractExecuted, Message: msg, RefType: model.AggregateContract, RefID: p.ContractID},
		}, nil

	case mqcontract.RoutingTaskSubmitted:
		var p mqcontract.TaskSubmittedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return []model.Notification{{
			UserID:  p.EntrepreneurID,
			Kind:    model.NotifyTaskSubmitted,
			Message: fmt.Sprintf("Task %q (%.1fh) is waiting for review", p.Title, p.Hours),
			RefType: model.AggregateTask,
			RefID:   p.TaskID,
		}}, nil

	case mqcontract.RoutingTaskReviewed:
		var p mqcontract.TaskReviewedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return []model.Notification{{
			UserID:  p.DeveloperID,
			Kind:    model.NotifyTaskReviewed,
			Message: fmt.Sprintf("Task %q was reviewed: %s", p.Title, p.Decision),
			RefType: model.AggregateTask,
			RefID:   p.TaskID,
		}}, nil
	}
	return nil, nil
}
