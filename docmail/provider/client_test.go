package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/Pandentia/docmail/docmail"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "http://provider.test"

var creds = docmail.Credentials{
	Email:      "ops@example.com",
	Password:   "s3cret-Passw0rd",
	SoftwareID: "sw-42",
}

func newMockClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	mock := httpmock.NewMockTransport()
	c := New(baseURL+"/", time.Second)
	c.rest.SetTransport(mock)
	return c, mock
}

func TestAuthenticateHashesPassword(t *testing.T) {
	c, mock := newMockClient(t)

	var captured []byte
	mock.RegisterResponder("POST", baseURL+"/token", func(req *http.Request) (*http.Response, error) {
		captured, _ = io.ReadAll(req.Body)
		return httpmock.NewStringResponse(200, `{"token":"tok-1"}`), nil
	})

	token, err := c.Authenticate(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, docmail.Token("tok-1"), token)

	assert.NotContains(t, string(captured), creds.Password)
	assert.Contains(t, string(captured), docmail.HashPassword(creds.Password))
	assert.JSONEq(t, `{
		"email": "ops@example.com",
		"password": "`+docmail.HashPassword(creds.Password)+`",
		"softwareID": "sw-42"
	}`, string(captured))
}

func TestAuthenticateErrorEnvelope(t *testing.T) {
	c, mock := newMockClient(t)
	mock.RegisterResponder("POST", baseURL+"/token",
		httpmock.NewStringResponder(200, `{"response":{"status":"ERROR","errormessage":"Invalid credentials"}}`))

	_, err := c.Authenticate(context.Background(), creds)

	var authErr *docmail.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid credentials", authErr.Message)
}

func TestAuthenticateMissingToken(t *testing.T) {
	c, mock := newMockClient(t)
	mock.RegisterResponder("POST", baseURL+"/token", httpmock.NewStringResponder(200, `{}`))

	_, err := c.Authenticate(context.Background(), creds)

	var authErr *docmail.AuthenticationError
	assert.ErrorAs(t, err, &authErr)
}

func TestAuthenticateTransportFailure(t *testing.T) {
	c, mock := newMockClient(t)
	mock.RegisterResponder("POST", baseURL+"/token", httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := c.Authenticate(context.Background(), creds)

	var transportErr *docmail.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "authenticate", transportErr.Op)
	assert.Equal(t, 1, mock.GetTotalCallCount(), "no retries")
}

func TestAuthenticateServerError(t *testing.T) {
	c, mock := newMockClient(t)
	mock.RegisterResponder("POST", baseURL+"/token", httpmock.NewStringResponder(502, `<html>bad gateway</html>`))

	_, err := c.Authenticate(context.Background(), creds)

	var statusErr *docmail.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 502, statusErr.StatusCode)
}

func TestCreateMessageOmitsEmptyFields(t *testing.T) {
	c, mock := newMockClient(t)

	var body []byte
	var auth string
	mock.RegisterResponder("POST", baseURL+"/messages/new", func(req *http.Request) (*http.Response, error) {
		body, _ = io.ReadAll(req.Body)
		auth = req.Header.Get("Authorization")
		return httpmock.NewStringResponse(200, `{"messageID":"abc123"}`), nil
	})

	id, err := c.CreateMessage(context.Background(), "tok-1", docmail.Draft{
		Title:         "Invoice",
		ReturnAddress: docmail.ReturnAddress{City: "Springfield"},
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
	assert.JSONEq(t, `{"title":"Invoice","rtnCity":"Springfield"}`, string(body))
	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("tok-1:")), auth)
}

func TestCreateMessageSendsEmptyTitle(t *testing.T) {
	c, mock := newMockClient(t)

	var body []byte
	mock.RegisterResponder("POST", baseURL+"/messages/new", func(req *http.Request) (*http.Response, error) {
		body, _ = io.ReadAll(req.Body)
		return httpmock.NewStringResponse(200, `{"messageID":"abc123"}`), nil
	})

	_, err := c.CreateMessage(context.Background(), "tok-1", docmail.Draft{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":""}`, string(body))
}

func TestCreateMessageNumericID(t *testing.T) {
	c, mock := newMockClient(t)
	mock.RegisterResponder("POST", baseURL+"/messages/new", httpmock.NewStringResponder(200, `{"messageID":98765}`))

	id, err := c.CreateMessage(context.Background(), "tok-1", docmail.Draft{})
	require.NoError(t, err)
	assert.Equal(t, "98765", id)
}

func TestCreateMessageWithoutID(t *testing.T) {
	c, mock := newMockClient(t)
	mock.RegisterResponder("POST", baseURL+"/messages/new", httpmock.NewStringResponder(200, `{"status":"ok"}`))

	_, err := c.CreateMessage(context.Background(), "tok-1", docmail.Draft{})
	assert.ErrorIs(t, err, docmail.ErrNoMessageID)
}

func TestAttachFileMultipart(t *testing.T) {
	c, mock := newMockClient(t)

	var (
		filename string
		content  []byte
		auth     string
	)
	mock.RegisterResponder("POST", baseURL+"/messages/abc123/upload", func(req *http.Request) (*http.Response, error) {
		auth = req.Header.Get("Authorization")
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			return nil, err
		}
		f, header, err := req.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer f.Close()
		filename = header.Filename
		content, _ = io.ReadAll(f)
		return httpmock.NewStringResponse(200, `{}`), nil
	})

	err := c.AttachFile(context.Background(), "tok-1", "abc123", []byte("%PDF-"))
	require.NoError(t, err)
	assert.Equal(t, "uploaded.pdf", filename)
	assert.Equal(t, []byte("%PDF-"), content)
	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("tok-1:")), auth)
}

func TestAttachFileRejected(t *testing.T) {
	c, mock := newMockClient(t)
	mock.RegisterResponder("POST", baseURL+"/messages/abc123/upload", httpmock.NewStringResponder(415, ``))

	err := c.AttachFile(context.Background(), "tok-1", "abc123", []byte("x"))

	var statusErr *docmail.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 415, statusErr.StatusCode)
}

func TestSendMessageRequires200(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", 200, false},
		{"accepted", 202, true},
		{"no content", 204, true},
		{"unavailable", 503, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mock := newMockClient(t)
			var auth string
			mock.RegisterResponder("POST", baseURL+"/messages/abc123/send", func(req *http.Request) (*http.Response, error) {
				auth = req.Header.Get("Authorization")
				return httpmock.NewStringResponse(tt.status, ``), nil
			})

			err := c.SendMessage(context.Background(), "tok-1", "abc123")
			assert.Equal(t, docmail.Token("tok-1").Authorization(), auth)
			if tt.wantErr {
				var statusErr *docmail.StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, tt.status, statusErr.StatusCode)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestListSentPassthrough(t *testing.T) {
	c, mock := newMockClient(t)

	payload := `[{"id":7,"from":"ops@example.com","title":"Invoice","to":{"email":"a@b.c"},"attachments":[],"deliverAfter":null}]`
	var auth string
	mock.RegisterResponder("GET", baseURL+"/messages/sent", func(req *http.Request) (*http.Response, error) {
		auth = req.Header.Get("Authorization")
		return httpmock.NewStringResponse(200, payload), nil
	})

	body, err := c.ListSent(context.Background(), "tok-9")
	require.NoError(t, err)
	assert.Equal(t, payload, string(body))
	assert.Equal(t, docmail.Token("tok-9").Authorization(), auth)
}

func TestListSentFailure(t *testing.T) {
	c, mock := newMockClient(t)
	mock.RegisterResponder("GET", baseURL+"/messages/sent", httpmock.NewStringResponder(401, `{"error":"unauthorized"}`))

	_, err := c.ListSent(context.Background(), "tok-9")

	var statusErr *docmail.StatusError
	assert.ErrorAs(t, err, &statusErr)
}

func TestCallTimeout(t *testing.T) {
	mock := httpmock.NewMockTransport()
	c := New(baseURL, 100*time.Millisecond)
	c.rest.SetTransport(mock)

	mock.RegisterResponder("POST", baseURL+"/messages/abc123/send", func(req *http.Request) (*http.Response, error) {
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(2 * time.Second):
			return httpmock.NewStringResponse(200, ``), nil
		}
	})

	start := time.Now()
	err := c.SendMessage(context.Background(), "tok-1", "abc123")

	var transportErr *docmail.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "send message", transportErr.Op)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, mock.GetTotalCallCount())
}
