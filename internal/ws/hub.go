// Package ws 通过 melody 向已登录用户推送通知
package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/olahol/melody"
	"go.uber.org/zap"
)

const keyUserID = "user_id"

type Hub struct {
	m      *melody.Melody
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	m := melody.New()
	m.Config.MaxMessageSize = 4096
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	h := &Hub{m: m, logger: logger}
	m.HandleConnect(func(s *melody.Session) {
		uid, _ := s.Get(keyUserID)
		logger.Debug("Websocket connected", zap.Any("user_id", uid))
	})
	m.HandleDisconnect(func(s *melody.Session) {
		uid, _ := s.Get(keyUserID)
		logger.Debug("Websocket disconnected", zap.Any("user_id", uid))
	})
	m.HandleError(func(s *melody.Session, err error) {
		logger.Warn("Websocket error", zap.Error(err))
	})
	// 推送通道是单向的，忽略客户端消息
	m.HandleMessage(func(*melody.Session, []byte) {})
	return h
}

// Serve 升级连接并把会话绑定到 userID
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID int64) error {
	return h.m.HandleRequestWithKeys(w, r, map[string]any{keyUserID: userID})
}

// Push 把消息推送给该用户的所有会话；用户不在线时什么也不做
func (h *Hub) Push(userID int64, v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal push message: %w", err)
	}
	return h.m.BroadcastFilter(msg, func(s *melody.Session) bool {
		uid, ok := s.Get(keyUserID)
		return ok && uid == userID
	})
}

// Sessions 当前连接数
func (h *Hub) Sessions() int {
	return h.m.Len()
}

func (h *Hub) Close() error {
	return h.m.Close()
}
