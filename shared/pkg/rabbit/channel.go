// Package rabbit owns everything that talks to the broker: the managed
// connection, topology declaration, the reliable publisher and the
// durable consumer.
package rabbit

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the slice of amqp091.Channel this package uses. Narrowing
// it keeps the publisher and consumer testable against fakes.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Close() error
}

// ChannelProvider hands out the current live channel. Only the Manager
// may create or replace it; everyone else borrows it per call.
type ChannelProvider interface {
	Channel() (Channel, error)
}

// Connection abstracts one broker connection for the Manager.
type Connection interface {
	Channel() (Channel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	Close() error
}

// DialFunc opens a broker connection. Tests swap it for a fake.
type DialFunc func(url string) (Connection, error)

// Dial is the production DialFunc backed by amqp091.
func Dial(url string) (Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &amqpConnection{conn: conn}, nil
}

type amqpConnection struct {
	conn *amqp.Connection
}

func (c *amqpConnection) Channel() (Channel, error) {
	return c.conn.Channel()
}

func (c *amqpConnection) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	return c.conn.NotifyClose(receiver)
}

func (c *amqpConnection) Close() error {
	return c.conn.Close()
}
