package events

import (
	"sync"

	"github.com/Pandentia/docmail/docmail"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// channel is the part of *amqp.Channel the Publisher uses.
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher publishes letter events to the broker. Publishing never blocks the caller on failure;
// errors are logged and the event is dropped.
type Publisher struct {
	Logger zerolog.Logger

	mu      sync.Mutex // serializes publishes on the channel
	conn    *amqp.Connection
	channel channel
}

// Dial connects to the message broker and declares the exchange.
func Dial(uri string, logger zerolog.Logger) (*Publisher, error) {
	logger = logger.With().Str("module", "publisher").Logger()

	// connect to the message broker
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, err
	}
	logger.Debug().Msg("Connection to message broker established")

	// create channel
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	logger.Debug().Msg("Channel created")

	// register the exchange
	err = ch.ExchangeDeclare(docmail.Exchange, "topic", true, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	logger.Debug().Msg("Exchange registered")

	return &Publisher{Logger: logger, conn: conn, channel: ch}, nil
}

// Notify publishes the event with routing key letter.<status>.
func (p *Publisher) Notify(event docmail.LetterEvent) {
	data, err := docmail.Marshal(event)
	if err != nil {
		p.Logger.Err(err).Str("request_id", event.RequestID).Msg("Error serializing event")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.Publish(
		docmail.Exchange,
		event.RoutingKey(),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			MessageId:    event.RequestID,
			Body:         data,
		},
	)
	if err != nil {
		p.Logger.Err(err).Str("request_id", event.RequestID).Msg("Error publishing event")
		return
	}
	p.Logger.Debug().Str("request_id", event.RequestID).Str("routing_key", event.RoutingKey()).Msg("Event published")
}

// Close closes the channel and the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
