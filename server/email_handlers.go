package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/inboxpilot/inboxpilot/gmail"
	"github.com/inboxpilot/inboxpilot/llm"
)

const (
	defaultListCount   = 5
	defaultDigestCount = 10
	listBodyLimit      = 500
)

// mailboxFor resolves the caller's session into a mailbox. A missing or
// unusable session writes the 401 itself and returns ok=false.
func (s *Server) mailboxFor(w http.ResponseWriter, r *http.Request) (gmail.Mailbox, bool) {
	sessionID := r.Header.Get(SessionHeader)
	if sessionID == "" {
		writeError(w, http.StatusUnauthorized, "Invalid or expired session")
		return nil, false
	}
	cred, err := s.creds.Resolve(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid or expired session")
		return nil, false
	}
	return s.mailboxes.Open(r.Context(), cred), true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

type emailPayload struct {
	ID          string `json:"id"`
	ThreadID    string `json:"thread_id,omitempty"`
	Sender      string `json:"sender"`
	SenderEmail string `json:"sender_email"`
	Subject     string `json:"subject"`
	Date        string `json:"date"`
	Body        string `json:"body,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Snippet     string `json:"snippet"`
}

// ListEmailsHandler returns the most recent emails with generated
// summaries. Individual fetch or summary failures drop that email from
// the listing rather than failing the request.
func (s *Server) ListEmailsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mailbox, ok := s.mailboxFor(w, r)
		if !ok {
			return
		}

		refs, err := mailbox.ListMessages(r.Context(), "", queryInt(r, "max_results", defaultListCount))
		if err != nil {
			log.Error().Err(err).Msg("listing emails failed")
			writeError(w, http.StatusInternalServerError, "Gmail API error: "+err.Error())
			return
		}

		emails := make([]emailPayload, 0, len(refs))
		for _, ref := range refs {
			msg, err := mailbox.GetMessage(r.Context(), ref.ID)
			if err != nil {
				log.Error().Err(err).Str("messageID", ref.ID).Msg("fetching email failed")
				continue
			}
			summary, err := s.gen.Summarize(r.Context(), llm.EmailContext{
				Sender:  msg.Sender,
				Subject: msg.Subject,
				Body:    msg.Body,
			})
			if err != nil {
				log.Error().Err(err).Str("messageID", ref.ID).Msg("summarising email failed")
				continue
			}

			body := msg.Body
			if len(body) > listBodyLimit {
				body = body[:listBodyLimit]
			}
			emails = append(emails, emailPayload{
				ID:          msg.ID,
				ThreadID:    msg.ThreadID,
				Sender:      msg.Sender,
				SenderEmail: msg.SenderEmail,
				Subject:     msg.Subject,
				Date:        msg.Date,
				Body:        body,
				Summary:     summary,
				Snippet:     msg.Snippet,
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{"emails": emails})
	}
}

type replyPayload struct {
	EmailID         string `json:"email_id"`
	OriginalSubject string `json:"original_subject,omitempty"`
	OriginalSender  string `json:"original_sender,omitempty"`
	Reply           string `json:"reply,omitempty"`
	Error           string `json:"error,omitempty"`
}

type generateRepliesRequest struct {
	EmailIDs []string `json:"email_ids"`
}

// GenerateRepliesHandler drafts replies for the requested emails. A
// failure on one email is reported inline in its entry instead of
// failing the batch.
func (s *Server) GenerateRepliesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mailbox, ok := s.mailboxFor(w, r)
		if !ok {
			return
		}

		var req generateRepliesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		replies := make([]replyPayload, 0, len(req.EmailIDs))
		for _, id := range req.EmailIDs {
			msg, err := mailbox.GetMessage(r.Context(), id)
			if err != nil {
				log.Error().Err(err).Str("messageID", id).Msg("fetching email failed")
				replies = append(replies, replyPayload{EmailID: id, Error: err.Error()})
				continue
			}
			reply, err := s.gen.DraftReply(r.Context(), llm.EmailContext{
				Sender:  msg.Sender,
				Subject: msg.Subject,
				Body:    msg.Body,
			})
			if err != nil {
				log.Error().Err(err).Str("messageID", id).Msg("drafting reply failed")
				replies = append(replies, replyPayload{EmailID: id, Error: err.Error()})
				continue
			}
			replies = append(replies, replyPayload{
				EmailID:         id,
				OriginalSubject: msg.Subject,
				OriginalSender:  msg.Sender,
				Reply:           reply,
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{"replies": replies})
	}
}

type sendReplyRequest struct {
	EmailID   string `json:"email_id"`
	ReplyText string `json:"reply_text"`
}

func (s *Server) SendReplyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mailbox, ok := s.mailboxFor(w, r)
		if !ok {
			return
		}

		var req sendReplyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.EmailID == "" || req.ReplyText == "" {
			writeError(w, http.StatusBadRequest, "email_id and reply_text are required")
			return
		}

		messageID, err := mailbox.SendReply(r.Context(), req.EmailID, req.ReplyText)
		if err != nil {
			log.Error().Err(err).Str("messageID", req.EmailID).Msg("sending reply failed")
			writeError(w, http.StatusInternalServerError, "Failed to send email: "+err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"message_id": messageID,
			"message":    "Email sent successfully",
		})
	}
}

func (s *Server) DeleteEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mailbox, ok := s.mailboxFor(w, r)
		if !ok {
			return
		}

		if err := mailbox.DeleteMessage(r.Context(), r.PathValue("emailID")); err != nil {
			log.Error().Err(err).Str("messageID", r.PathValue("emailID")).Msg("deleting email failed")
			writeError(w, http.StatusInternalServerError, "Failed to delete email: "+err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Email deleted successfully",
		})
	}
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// SearchEmailsHandler searches the mailbox with a Gmail query string and
// returns header-level results (no bodies, no summaries).
func (s *Server) SearchEmailsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mailbox, ok := s.mailboxFor(w, r)
		if !ok {
			return
		}

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Query == "" {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}
		if req.MaxResults <= 0 {
			req.MaxResults = defaultListCount
		}

		refs, err := mailbox.ListMessages(r.Context(), req.Query, req.MaxResults)
		if err != nil {
			log.Error().Err(err).Msg("searching emails failed")
			writeError(w, http.StatusInternalServerError, "Error: "+err.Error())
			return
		}

		emails := make([]emailPayload, 0, len(refs))
		for _, ref := range refs {
			msg, err := mailbox.GetMetadata(r.Context(), ref.ID, "From", "Subject", "Date")
			if err != nil {
				log.Error().Err(err).Str("messageID", ref.ID).Msg("fetching email metadata failed")
				continue
			}
			emails = append(emails, emailPayload{
				ID:          msg.ID,
				Sender:      msg.Sender,
				SenderEmail: msg.SenderEmail,
				Subject:     msg.Subject,
				Date:        msg.Date,
				Snippet:     msg.Snippet,
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{"emails": emails})
	}
}

type digestCategoryEntry struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
}

// DigestHandler produces a daily digest of the most recent emails plus
// a categorisation. Categorisation failure degrades to a single "Other"
// bucket instead of failing the digest.
func (s *Server) DigestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mailbox, ok := s.mailboxFor(w, r)
		if !ok {
			return
		}

		refs, err := mailbox.ListMessages(r.Context(), "", queryInt(r, "max_results", defaultDigestCount))
		if err != nil {
			log.Error().Err(err).Msg("listing emails for digest failed")
			writeError(w, http.StatusInternalServerError, "Gmail API error: "+err.Error())
			return
		}

		var contexts []llm.EmailContext
		var fetched []*gmail.Message
		for _, ref := range refs {
			msg, err := mailbox.GetMessage(r.Context(), ref.ID)
			if err != nil {
				log.Error().Err(err).Str("messageID", ref.ID).Msg("fetching email failed")
				continue
			}
			fetched = append(fetched, msg)
			contexts = append(contexts, llm.EmailContext{
				Sender:  msg.Sender,
				Subject: msg.Subject,
				Body:    msg.Body,
			})
		}
		if len(contexts) == 0 {
			writeJSON(w, http.StatusOK, map[string]any{
				"digest":     "You don't have any recent emails to digest.",
				"categories": map[string][]digestCategoryEntry{},
			})
			return
		}

		digest, err := s.gen.DailyDigest(r.Context(), contexts)
		if err != nil {
			log.Error().Err(err).Msg("generating digest failed")
			writeError(w, http.StatusInternalServerError, "Error: "+err.Error())
			return
		}

		indexed, err := s.gen.Categorize(r.Context(), contexts)
		if err != nil {
			log.Error().Err(err).Msg("categorising emails failed")
			all := make([]int, len(contexts))
			for i := range contexts {
				all[i] = i + 1
			}
			indexed = map[string][]int{"Other": all}
		}

		categories := make(map[string][]digestCategoryEntry, len(indexed))
		for category, indexes := range indexed {
			entries := make([]digestCategoryEntry, 0, len(indexes))
			for _, idx := range indexes {
				msg := fetched[idx-1]
				entries = append(entries, digestCategoryEntry{
					ID:      msg.ID,
					Subject: msg.Subject,
					Sender:  msg.Sender,
				})
			}
			categories[category] = entries
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"digest":     digest,
			"categories": categories,
		})
	}
}
