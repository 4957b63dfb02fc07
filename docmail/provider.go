package docmail

import "context"

// Provider represents the document-delivery provider.
// Every call except Authenticate is made with a token obtained for the current request.
type Provider interface {
	Authenticate(ctx context.Context, creds Credentials) (Token, error)
	CreateMessage(ctx context.Context, token Token, draft Draft) (string, error)
	AttachFile(ctx context.Context, token Token, messageID string, file []byte) error
	SendMessage(ctx context.Context, token Token, messageID string) error

	// ListSent returns the provider's sent-messages payload unchanged.
	ListSent(ctx context.Context, token Token) ([]byte, error)
}
