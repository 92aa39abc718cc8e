package mqhandler

import (
	"go.uber.org/zap"

	mqcontract "foundermatch/contracts/mq"
	"foundermatch/pkg/mq"
)

// RegisterWorker 注册 worker 订阅的领域事件；proposal.accepted 先生成合同再发通知
func RegisterWorker(r *mq.Router, contracts ContractGenerator, notifier Notifier, d Deduper, logger *zap.Logger) {
	generate := Once(d, "contract_generation", NewContractGenerationHandler(contracts, logger).Handle)
	nh := NewNotificationHandler(notifier, logger)
	notify := Once(d, "notification", nh.Handle)

	for _, key := range nh.RoutingKeys() {
		if key == mqcontract.RoutingProposalAccepted {
			r.Register(key, Chain(generate, notify))
			continue
		}
		r.Register(key, notify)
	}
}

// RegisterPush 注册 API 进程的 websocket 推送
func RegisterPush(r *mq.Router, pusher Pusher, logger *zap.Logger) {
	r.Register(mqcontract.RoutingNotificationCreated, NewPushHandler(pusher, logger).Handle)
}
