package delivery

import (
	"context"

	"github.com/Pandentia/docmail/docmail"
	"github.com/rs/zerolog"
)

// Orchestrator sends a letter through the provider's create, attach and send steps.
// Steps run in order and stop at the first failure. Nothing is retried or rolled back,
// so a failure after create leaves the message on the provider.
type Orchestrator struct {
	Provider docmail.Provider
	Logger   zerolog.Logger
}

// New creates an Orchestrator.
func New(provider docmail.Provider, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		Provider: provider,
		Logger:   logger.With().Str("module", "delivery").Logger(),
	}
}

// Deliver runs the three provider steps for one letter using token.
// On failure the error is a *docmail.DeliveryError for the failing step.
func (o *Orchestrator) Deliver(ctx context.Context, token docmail.Token, letter docmail.Letter) (docmail.Receipt, error) {
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &o.Logger
	}

	messageID, err := o.Provider.CreateMessage(ctx, token, letter.Draft())
	if err == nil && messageID == "" {
		err = docmail.ErrNoMessageID
	}
	if err != nil {
		return docmail.Receipt{}, &docmail.DeliveryError{Step: docmail.StepCreate, Err: err}
	}
	logger.Debug().Str("message_id", messageID).Msg("Message created")

	if err := o.Provider.AttachFile(ctx, token, messageID, letter.File); err != nil {
		return docmail.Receipt{}, &docmail.DeliveryError{Step: docmail.StepAttach, MessageID: messageID, Err: err}
	}
	logger.Debug().Str("message_id", messageID).Int("bytes", len(letter.File)).Msg("File attached")

	if err := o.Provider.SendMessage(ctx, token, messageID); err != nil {
		return docmail.Receipt{}, &docmail.DeliveryError{Step: docmail.StepSend, MessageID: messageID, Err: err}
	}
	logger.Debug().Str("message_id", messageID).Msg("Message sent")

	return docmail.Receipt{MessageID: messageID}, nil
}
