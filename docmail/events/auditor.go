package events

import (
	"github.com/Pandentia/docmail/docmail"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// Auditor represents a consumer logging every letter event.
type Auditor struct {
	MQURI  string // The AMQP message queue URL to dial.
	Logger zerolog.Logger

	conn    *amqp.Connection
	channel *amqp.Channel
}

// New initializes the Auditor struct. It should only be called once.
func (a *Auditor) New() error {
	// create the connection
	conn, err := amqp.Dial(a.MQURI)
	if err != nil {
		return err
	}
	a.conn = conn
	a.Logger.Debug().Msg("Connection established")

	// create the channel
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	a.channel = channel
	a.Logger.Debug().Msg("Channel established")

	// set prefetching
	err = a.channel.Qos(1, 0, false)
	if err != nil {
		_ = conn.Close()
		return err
	}
	a.Logger.Debug().Msg("Prefetching set")

	// register the exchange
	err = channel.ExchangeDeclare(docmail.Exchange, "topic", true, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return err
	}
	a.Logger.Debug().Msg("Exchange registered")

	// register the audit queue
	queue, err := channel.QueueDeclare(docmail.AuditQueue, true, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return err
	}
	a.Logger.Debug().Msg("Audit queue registered")

	// bind the audit queue to the exchange
	err = channel.QueueBind(queue.Name, docmail.LetterRoutingKey+".*", docmail.Exchange, false, nil)
	if err != nil {
		_ = conn.Close()
		return err
	}
	a.Logger.Debug().Msg("Audit queue bound to exchange")

	return nil
}

// Run starts the auditor. It blocks until the broker closes the delivery channel.
func (a *Auditor) Run() error {
	logger := a.Logger.With().Str("module", "consumer").Logger()
	logger.Info().Msg("Auditor started")

	// begin consuming
	deliveries, err := a.channel.Consume(docmail.AuditQueue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for delivery := range deliveries {
		if err := a.handle(logger, delivery.Body); err != nil {
			logger.Err(err).Bytes("data", delivery.Body).Msg("Error deserializing. Rejecting and continuing.")
			_ = delivery.Reject(false) // do *not* requeue, otherwise we'll just be stuck processing garbage
			continue
		}
		_ = delivery.Ack(false)
	}

	return a.conn.Close()
}

func (a *Auditor) handle(logger zerolog.Logger, body []byte) error {
	var event docmail.LetterEvent
	if err := docmail.Unmarshal(body, &event); err != nil {
		return err
	}

	e := logger.Info()
	if event.Status == docmail.StatusFailed {
		e = logger.Warn().Str("step", string(event.Step))
	}
	e.Str("request_id", event.RequestID).
		Str("message_id", event.MessageID).
		Str("title", event.Title).
		Str("status", string(event.Status)).
		Time("occurred_at", event.OccurredAt).
		Msg("Letter event")
	return nil
}
