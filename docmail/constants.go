package docmail

import "time"

// Exchange describes the RabbitMQ exchange name.
const Exchange = "docmail"

// Message broker queue names.
const (
	AuditQueue = Exchange + ".audit"
)

// Routing keys. Letter events are published under LetterRoutingKey.<status>.
const (
	LetterRoutingKey = "letter"
	SentRoutingKey   = LetterRoutingKey + "." + string(StatusSent)
	FailedRoutingKey = LetterRoutingKey + "." + string(StatusFailed)
)

// Provider endpoint paths, relative to the provider base URL.
const (
	TokenPath      = "/token"
	NewMessagePath = "/messages/new"
	SentPath       = "/messages/sent"
)

// Upload form field names.
const (
	FileField = "pdf"

	// UploadFileName is the filename sent to the provider for every attachment.
	// The client's own filename is not forwarded.
	UploadFileName  = "uploaded.pdf"
	UploadFileField = "file"
)

// Client-facing response messages.
const (
	MsgLetterSent       = "Letter sent successfully"
	MsgSendFailed       = "Failed to send letter"
	MsgInternalError    = "Internal server error"
	MsgListFailed       = "Failed to retrieve sent letters"
	MsgUploadTooLarge   = "Upload exceeds maximum size"
	MsgInvalidMultipart = "Invalid multipart form"
)

// Defaults.
const (
	DefaultPort            = 5000
	DefaultProviderTimeout = 30 * time.Second
	DefaultMaxUploadSize   = 20 << 20
)
