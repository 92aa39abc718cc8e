package mq

import (
	"fmt"
	"os"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// 业务事件和死信使用的 topic exchange
const (
	ExchangeName = "foundermatch.events"
)

// NewConnection 连接 RabbitMQ；连接名带上主机名，方便在管理界面区分 api 和 worker 实例
func NewConnection(url string) (*amqp091.Connection, error) {
	props := amqp091.NewConnectionProperties()
	if host, err := os.Hostname(); err == nil {
		props.SetClientConnectionName("foundermatch@" + host)
	}

	conn, err := amqp091.DialConfig(url, amqp091.Config{
		Heartbeat:  10 * time.Second,
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// DeclareExchange 声明持久化的 topic exchange
func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(ExchangeName, amqp091.ExchangeTopic, true, false, false, false, nil)
}
