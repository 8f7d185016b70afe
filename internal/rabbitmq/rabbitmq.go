package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const prefetchCount = 32

type MQConn struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func New(url string) (*MQConn, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set rabbitmq qos: %w", err)
	}

	return &MQConn{
		conn: conn,
		ch:   ch,
	}, nil
}

// Consume declares queue as durable and starts a manual-ack consumer on it.
func (c *MQConn) Consume(queue string) (<-chan amqp.Delivery, error) {
	if _, err := c.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare queue(%s): %w", queue, err)
	}

	return c.ch.Consume(queue, "", false, false, false, false, nil)
}

func (c *MQConn) Close() error {
	if err := c.ch.Close(); err != nil && err != amqp.ErrClosed {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}
