package docmail

import (
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog"
)

// Credentials represents the provider account used to obtain session tokens.
// It is loaded once at startup. Only the email is ever logged.
type Credentials struct {
	Email      string
	Password   string
	SoftwareID string
}

// MarshalZerologObject logs the account by its email alone.
func (c Credentials) MarshalZerologObject(e *zerolog.Event) {
	e.Str("email", c.Email)
}

// String keeps the password and software ID out of %v formatting.
func (c Credentials) String() string {
	return c.Email
}

// HashPassword returns the hex SHA-512 digest the provider expects in place of the password.
func HashPassword(password string) string {
	sum := sha512.Sum512([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Token represents a provider session token. A fresh one is obtained for every request.
type Token string

// Credential returns the HTTP Basic credential for the token: base64("<token>:").
func (t Token) Credential() string {
	return base64.StdEncoding.EncodeToString([]byte(string(t) + ":"))
}

// Authorization returns the full Authorization header value.
func (t Token) Authorization() string {
	return "Basic " + t.Credential()
}

// ReturnAddress represents the optional sender block printed on the letter.
// Empty fields are omitted when forwarded to the provider.
type ReturnAddress struct {
	Name         string `json:"rtnName,omitempty"`
	Organization string `json:"rtnOrganization,omitempty"`
	Address1     string `json:"rtnAddress1,omitempty"`
	Address2     string `json:"rtnAddress2,omitempty"`
	City         string `json:"rtnCity,omitempty"`
	State        string `json:"rtnState,omitempty"`
	Zip          string `json:"rtnZip,omitempty"`
}

// Draft is the body of a provider "new message" request. The title is always sent.
type Draft struct {
	Title string `json:"title"`
	ReturnAddress
}

// Letter represents a validated upload, held in memory for one request.
type Letter struct {
	RecipientAddress string
	Title            string
	ReturnAddress    ReturnAddress
	File             []byte
}

// Draft returns the provider message body for the letter.
func (l Letter) Draft() Draft {
	return Draft{Title: l.Title, ReturnAddress: l.ReturnAddress}
}

// Receipt describes a letter the provider accepted for sending.
type Receipt struct {
	MessageID string
}

// Status is the terminal state of one delivery.
type Status string

// Delivery states.
const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// LetterEvent represents the outcome of one upload, published after the response is decided.
type LetterEvent struct {
	RequestID  string    `json:"requestID"`
	MessageID  string    `json:"messageID,omitempty"`
	Title      string    `json:"title,omitempty"`
	Status     Status    `json:"status"`
	Step       Step      `json:"step,omitempty"` // failing step, empty when sent
	OccurredAt time.Time `json:"occurredAt"`
}

// RoutingKey returns the broker routing key for the event.
func (e LetterEvent) RoutingKey() string {
	if e.Status == StatusSent {
		return SentRoutingKey
	}
	return FailedRoutingKey
}
