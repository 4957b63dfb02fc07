package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Pandentia/docmail/docmail"
	"github.com/go-resty/resty/v2"
)

// Client talks to the document-delivery provider over HTTP.
// It holds no per-request state and is safe for concurrent use.
type Client struct {
	rest *resty.Client
}

// New creates a Client for the provider at baseURL. The timeout applies to each provider call.
func New(baseURL string, timeout time.Duration) *Client {
	cl := resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")).SetTimeout(timeout)
	cl.SetHeader("Accept", "application/json")
	cl.SetHeader("User-Agent", "docmail/1.0")
	return &Client{rest: cl}
}

var _ docmail.Provider = (*Client)(nil)

type tokenRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	SoftwareID string `json:"softwareID"`
}

type tokenResponse struct {
	Token    string `json:"token"`
	Response *struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"errormessage"`
	} `json:"response"`
}

type newMessageResponse struct {
	MessageID messageID `json:"messageID"`
}

// messageID accepts the identifier as either a JSON string or number.
type messageID string

func (id *messageID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = messageID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = messageID(n.String())
	return nil
}

// Authenticate obtains a session token. The password is sent only as its SHA-512 hex digest.
func (c *Client) Authenticate(ctx context.Context, creds docmail.Credentials) (docmail.Token, error) {
	const op = "authenticate"

	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(tokenRequest{
			Email:      creds.Email,
			Password:   docmail.HashPassword(creds.Password),
			SoftwareID: creds.SoftwareID,
		}).
		Post(docmail.TokenPath)
	if err != nil {
		return "", &docmail.TransportError{Op: op, Err: err}
	}

	var data tokenResponse
	if uErr := json.Unmarshal(resp.Body(), &data); uErr != nil {
		if resp.IsError() {
			return "", &docmail.StatusError{Op: op, StatusCode: resp.StatusCode()}
		}
		return "", &docmail.TransportError{Op: op, Err: fmt.Errorf("decoding token response: %w", uErr)}
	}
	if data.Response != nil && data.Response.Status == "ERROR" {
		return "", &docmail.AuthenticationError{Message: data.Response.ErrorMessage}
	}
	if resp.IsError() {
		return "", &docmail.StatusError{Op: op, StatusCode: resp.StatusCode()}
	}
	if data.Token == "" {
		return "", &docmail.AuthenticationError{Message: "no token in response"}
	}
	return docmail.Token(data.Token), nil
}

// CreateMessage creates a message from the draft and returns its ID.
func (c *Client) CreateMessage(ctx context.Context, token docmail.Token, draft docmail.Draft) (string, error) {
	const op = "create message"

	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Authorization", token.Authorization()).
		SetHeader("Content-Type", "application/json").
		SetBody(draft).
		Post(docmail.NewMessagePath)
	if err != nil {
		return "", &docmail.TransportError{Op: op, Err: err}
	}
	if resp.IsError() {
		return "", &docmail.StatusError{Op: op, StatusCode: resp.StatusCode()}
	}

	// decoded by hand, the provider does not always label its replies as JSON
	var data newMessageResponse
	if uErr := json.Unmarshal(resp.Body(), &data); uErr != nil {
		return "", &docmail.TransportError{Op: op, Err: fmt.Errorf("decoding message response: %w", uErr)}
	}
	if data.MessageID == "" {
		return "", docmail.ErrNoMessageID
	}
	return string(data.MessageID), nil
}

// AttachFile uploads the letter file to a created message.
func (c *Client) AttachFile(ctx context.Context, token docmail.Token, messageID string, file []byte) error {
	const op = "attach file"

	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Authorization", token.Authorization()).
		SetPathParam("messageID", messageID).
		SetFileReader(docmail.UploadFileField, docmail.UploadFileName, bytes.NewReader(file)).
		Post("/messages/{messageID}/upload")
	if err != nil {
		return &docmail.TransportError{Op: op, Err: err}
	}
	if resp.IsError() {
		return &docmail.StatusError{Op: op, StatusCode: resp.StatusCode()}
	}
	return nil
}

// SendMessage asks the provider to send a message. Only HTTP 200 counts as sent.
func (c *Client) SendMessage(ctx context.Context, token docmail.Token, messageID string) error {
	const op = "send message"

	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Authorization", token.Authorization()).
		SetPathParam("messageID", messageID).
		Post("/messages/{messageID}/send")
	if err != nil {
		return &docmail.TransportError{Op: op, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return &docmail.StatusError{Op: op, StatusCode: resp.StatusCode()}
	}
	return nil
}

// ListSent returns the sent-messages payload exactly as the provider sent it.
func (c *Client) ListSent(ctx context.Context, token docmail.Token) ([]byte, error) {
	const op = "list sent"

	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Authorization", token.Authorization()).
		Get(docmail.SentPath)
	if err != nil {
		return nil, &docmail.TransportError{Op: op, Err: err}
	}
	if resp.IsError() {
		return nil, &docmail.StatusError{Op: op, StatusCode: resp.StatusCode()}
	}
	return resp.Body(), nil
}
