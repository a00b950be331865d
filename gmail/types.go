package gmail

import (
	"net/mail"
	"strings"
)

// MessageRef identifies a message in the user's mailbox, as returned by
// a list or search call.
type MessageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// Message is a fetched message with its interesting headers pulled out
// and, for full fetches, the decoded plain-text body.
type Message struct {
	ID          string
	ThreadID    string
	Snippet     string
	Sender      string // display name, falls back to the address
	SenderEmail string
	Subject     string
	Date        string
	Body        string
}

// Header is one RFC 822 header as the Gmail API returns it.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HeaderValue returns the value of the named header, case-insensitively.
func HeaderValue(headers []Header, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// splitSender separates a From header into display name and address.
func splitSender(from string) (name, email string) {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return from, from
	}
	if addr.Name == "" {
		return addr.Address, addr.Address
	}
	return addr.Name, addr.Address
}
