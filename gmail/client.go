// Package gmail is a thin gateway over the Gmail REST API. A client is
// bound to a single resolved credential and lives for one request; the
// Opener constructs one per resolved credential.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/inboxpilot/inboxpilot/auth"
)

const defaultBaseURL = "https://gmail.googleapis.com/gmail/v1"

// Mailbox is the mailbox gateway contract consumed by the chat
// dispatcher and the email endpoints.
type Mailbox interface {
	// ListMessages returns refs for up to maxResults most recent
	// messages matching query (empty query lists the whole mailbox),
	// newest first.
	ListMessages(ctx context.Context, query string, maxResults int) ([]MessageRef, error)

	// GetMessage fetches a message in full and decodes its body.
	GetMessage(ctx context.Context, id string) (*Message, error)

	// GetMetadata fetches only the named headers of a message.
	GetMetadata(ctx context.Context, id string, headers ...string) (*Message, error)

	// SendReply sends replyText as a threaded reply to the original
	// message and returns the sent message ID.
	SendReply(ctx context.Context, originalID, replyText string) (string, error)

	// DeleteMessage permanently deletes a message.
	DeleteMessage(ctx context.Context, id string) error
}

// Opener builds a Mailbox bound to a resolved credential.
type Opener interface {
	Open(ctx context.Context, cred *auth.Credential) Mailbox
}

// ClientFactory is the production Opener. BaseURL overrides the Gmail
// endpoint, used by tests.
type ClientFactory struct {
	BaseURL string
}

func (f ClientFactory) Open(ctx context.Context, cred *auth.Credential) Mailbox {
	return NewClient(cred.HTTPClient(ctx), f.BaseURL)
}

var _ Mailbox = (*Client)(nil)

// Client performs Gmail operations with a bearer-authenticated HTTP
// client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient wraps an authenticated HTTP client. baseURL may be empty for
// the production endpoint.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

type listResponse struct {
	Messages []MessageRef `json:"messages"`
}

type apiBody struct {
	Data string `json:"data"`
}

type apiPart struct {
	MimeType string    `json:"mimeType"`
	Headers  []Header  `json:"headers"`
	Body     apiBody   `json:"body"`
	Parts    []apiPart `json:"parts"`
}

type apiMessage struct {
	ID       string  `json:"id"`
	ThreadID string  `json:"threadId"`
	Snippet  string  `json:"snippet"`
	Payload  apiPart `json:"payload"`
}

func (c *Client) ListMessages(ctx context.Context, query string, maxResults int) ([]MessageRef, error) {
	params := url.Values{}
	params.Set("maxResults", strconv.Itoa(maxResults))
	if query != "" {
		params.Set("q", query)
	}

	var resp listResponse
	if err := c.getJSON(ctx, "/users/me/messages?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return resp.Messages, nil
}

func (c *Client) GetMessage(ctx context.Context, id string) (*Message, error) {
	var raw apiMessage
	path := fmt.Sprintf("/users/me/messages/%s?format=full", url.PathEscape(id))
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("fetching message %s: %w", id, err)
	}

	msg := messageFromAPI(&raw)
	msg.Body = decodeBody(&raw.Payload)
	return msg, nil
}

func (c *Client) GetMetadata(ctx context.Context, id string, headers ...string) (*Message, error) {
	params := url.Values{}
	params.Set("format", "metadata")
	for _, h := range headers {
		params.Add("metadataHeaders", h)
	}

	var raw apiMessage
	path := fmt.Sprintf("/users/me/messages/%s?%s", url.PathEscape(id), params.Encode())
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("fetching message metadata %s: %w", id, err)
	}
	return messageFromAPI(&raw), nil
}

func (c *Client) SendReply(ctx context.Context, originalID, replyText string) (string, error) {
	original, err := c.GetMetadata(ctx, originalID, "From", "To", "Subject")
	if err != nil {
		return "", err
	}

	subject := original.Subject
	if !strings.HasPrefix(subject, "Re:") {
		subject = "Re: " + subject
	}

	var rfc822 strings.Builder
	rfc822.WriteString("To: " + original.SenderEmail + "\r\n")
	rfc822.WriteString("Subject: " + subject + "\r\n")
	rfc822.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	rfc822.WriteString("\r\n")
	rfc822.WriteString(replyText)

	payload := map[string]string{
		"raw":      base64.URLEncoding.EncodeToString([]byte(rfc822.String())),
		"threadId": original.ThreadID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/users/me/messages/send", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending reply: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", fmt.Errorf("sending reply: %w", err)
	}

	var sent MessageRef
	if err := json.NewDecoder(resp.Body).Decode(&sent); err != nil {
		return "", fmt.Errorf("decoding send response: %w", err)
	}
	return sent.ID, nil
}

func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/users/me/messages/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("building delete request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deleting message %s: %w", id, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("deleting message %s: %w", id, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("gmail API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func messageFromAPI(raw *apiMessage) *Message {
	from := HeaderValue(raw.Payload.Headers, "From")
	name, email := splitSender(from)

	return &Message{
		ID:          raw.ID,
		ThreadID:    raw.ThreadID,
		Snippet:     raw.Snippet,
		Sender:      name,
		SenderEmail: email,
		Subject:     HeaderValue(raw.Payload.Headers, "Subject"),
		Date:        HeaderValue(raw.Payload.Headers, "Date"),
		Body:        "",
	}
}
