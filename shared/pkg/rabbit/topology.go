package rabbit

import amqp "github.com/rabbitmq/amqp091-go"

// DeclareTopology declares the durable topic exchanges: one for live
// facts, one for dead letters.
func DeclareTopology(ch Channel, exchange, deadLetterExchange string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	return ch.ExchangeDeclare(deadLetterExchange, "topic", true, false, false, false, nil)
}

// DeclareDeadLetterQueue binds a durable queue to the dead-letter
// exchange so failed messages land somewhere inspectable.
func DeclareDeadLetterQueue(ch Channel, deadLetterExchange, queue, bindKey string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return err
	}
	return ch.QueueBind(queue, bindKey, deadLetterExchange, false, nil)
}

// SubscriberQueueName follows the "{type}.{subscriber}" convention, one
// durable queue per subscriber per fact type.
func SubscriberQueueName(typeName, subscriber string) string {
	return typeName + "." + subscriber
}

func declareSubscriberQueue(ch Channel, exchange, typeName, subscriber string) (string, error) {
	queue := SubscriberQueueName(typeName, subscriber)
	if _, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table(nil)); err != nil {
		return "", err
	}
	if err := ch.QueueBind(queue, typeName, exchange, false, nil); err != nil {
		return "", err
	}
	return queue, nil
}
