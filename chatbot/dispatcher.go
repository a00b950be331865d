package chatbot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/inboxpilot/inboxpilot/auth"
	"github.com/inboxpilot/inboxpilot/gmail"
	"github.com/inboxpilot/inboxpilot/llm"
)

// ChatResponse is the uniform envelope returned for every chat message,
// whether the command succeeded, partially succeeded or failed.
type ChatResponse struct {
	Response string         `json:"response"`
	Action   string         `json:"action,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// EmailSummary is one inbox entry as surfaced to the chat client.
type EmailSummary struct {
	ID          string `json:"id"`
	ThreadID    string `json:"thread_id"`
	Sender      string `json:"sender"`
	SenderEmail string `json:"sender_email"`
	Subject     string `json:"subject"`
	Date        string `json:"date"`
	Summary     string `json:"summary"`
	Snippet     string `json:"snippet"`
}

// ReplyDraft is one generated reply, paired with the email it answers.
type ReplyDraft struct {
	EmailID         string `json:"email_id"`
	OriginalSubject string `json:"original_subject"`
	OriginalSender  string `json:"original_sender"`
	Reply           string `json:"reply"`
}

const defaultReadCount = 5

// Dispatcher executes resolved intents against the user's mailbox.
// Batch operations skip individual failures and return what succeeded;
// the whole command only fails when the initial mailbox listing does.
type Dispatcher struct {
	mailboxes gmail.Opener
	gen       llm.Generator
}

func NewDispatcher(mailboxes gmail.Opener, gen llm.Generator) *Dispatcher {
	return &Dispatcher{mailboxes: mailboxes, gen: gen}
}

func (d *Dispatcher) Handle(ctx context.Context, cred *auth.Credential, intent Intent) ChatResponse {
	switch intent.Action {
	case ActionRead:
		return d.handleRead(ctx, cred, intent.Params)
	case ActionReply:
		return d.handleReply(ctx, cred, intent.Params)
	case ActionDelete:
		return d.handleDelete(ctx, cred, intent.Params)
	case ActionGreeting:
		return greetingResponse()
	case ActionHelp:
		return helpResponse()
	default:
		return unknownResponse()
	}
}

func (d *Dispatcher) handleRead(ctx context.Context, cred *auth.Credential, params Params) ChatResponse {
	maxResults := defaultReadCount
	if n, ok := params.Int("max_results"); ok && n > 0 {
		maxResults = n
	}

	mailbox := d.mailboxes.Open(ctx, cred)
	refs, err := mailbox.ListMessages(ctx, "", maxResults)
	if err != nil {
		log.Error().Err(err).Msg("reading emails failed")
		return errorResponse(ActionRead, "Sorry, I couldn't read your emails.", err)
	}
	if len(refs) == 0 {
		return ChatResponse{
			Response: "You don't have any recent emails in your inbox.",
			Action:   string(ActionRead),
			Data:     map[string]any{"emails": []EmailSummary{}},
		}
	}

	emails := make([]EmailSummary, 0, len(refs))
	text := fmt.Sprintf("Here are your last %d emails:\n\n", len(refs))

	for idx, ref := range refs {
		msg, err := mailbox.GetMessage(ctx, ref.ID)
		if err != nil {
			log.Error().Err(err).Str("messageID", ref.ID).Msg("fetching email failed")
			continue
		}
		summary, err := d.gen.Summarize(ctx, llm.EmailContext{
			Sender:  msg.Sender,
			Subject: msg.Subject,
			Body:    msg.Body,
		})
		if err != nil {
			log.Error().Err(err).Str("messageID", ref.ID).Msg("summarising email failed")
			continue
		}

		emails = append(emails, EmailSummary{
			ID:          msg.ID,
			ThreadID:    msg.ThreadID,
			Sender:      msg.Sender,
			SenderEmail: msg.SenderEmail,
			Subject:     msg.Subject,
			Date:        msg.Date,
			Summary:     summary,
			Snippet:     msg.Snippet,
		})
		text += fmt.Sprintf("**Email %d:**\n", idx+1)
		text += fmt.Sprintf("From: %s (%s)\n", msg.Sender, msg.SenderEmail)
		text += fmt.Sprintf("Subject: %s\n", msg.Subject)
		text += fmt.Sprintf("Summary: %s\n\n", summary)
	}

	return ChatResponse{
		Response: text,
		Action:   string(ActionRead),
		Data:     map[string]any{"emails": emails},
	}
}

func (d *Dispatcher) handleReply(ctx context.Context, cred *auth.Credential, params Params) ChatResponse {
	mailbox := d.mailboxes.Open(ctx, cred)

	emailIDs := params.StringSlice("email_ids")
	if len(emailIDs) == 0 {
		if n, ok := params.Int("email_number"); ok && n > 0 {
			refs, err := mailbox.ListMessages(ctx, "", n)
			if err != nil {
				log.Error().Err(err).Msg("generating replies failed")
				return errorResponse(ActionReply, "Sorry, I couldn't generate replies.", err)
			}
			if len(refs) >= n {
				emailIDs = []string{refs[n-1].ID}
			}
		}
	}
	if len(emailIDs) == 0 {
		refs, err := mailbox.ListMessages(ctx, "", defaultReadCount)
		if err != nil {
			log.Error().Err(err).Msg("generating replies failed")
			return errorResponse(ActionReply, "Sorry, I couldn't generate replies.", err)
		}
		for _, ref := range refs {
			emailIDs = append(emailIDs, ref.ID)
		}
	}
	if len(emailIDs) == 0 {
		return ChatResponse{
			Response: "No emails found to generate replies for.",
			Action:   string(ActionReply),
		}
	}

	replies := make([]ReplyDraft, 0, len(emailIDs))
	text := "Here are the generated replies:\n\n"

	for _, id := range emailIDs {
		msg, err := mailbox.GetMessage(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("messageID", id).Msg("fetching email failed")
			continue
		}
		reply, err := d.gen.DraftReply(ctx, llm.EmailContext{
			Sender:  msg.Sender,
			Subject: msg.Subject,
			Body:    msg.Body,
		})
		if err != nil {
			log.Error().Err(err).Str("messageID", id).Msg("drafting reply failed")
			continue
		}

		replies = append(replies, ReplyDraft{
			EmailID:         id,
			OriginalSubject: msg.Subject,
			OriginalSender:  msg.Sender,
			Reply:           reply,
		})
		text += fmt.Sprintf("**Reply for: %s**\n", msg.Subject)
		text += fmt.Sprintf("From: %s\n", msg.Sender)
		text += fmt.Sprintf("Reply:\n%s\n\n", reply)
	}

	return ChatResponse{
		Response: text,
		Action:   string(ActionReply),
		Data:     map[string]any{"replies": replies},
	}
}

func (d *Dispatcher) handleDelete(ctx context.Context, cred *auth.Credential, params Params) ChatResponse {
	emailID, hasID := params.String("email_id")
	emailNumber, hasNumber := params.Int("email_number")
	sender, hasSender := params.String("sender")
	subjectKeyword, hasSubject := params.String("subject_keyword")

	// No target means no mailbox call. Ask the user to disambiguate.
	if !hasID && !hasNumber && !hasSender && !hasSubject {
		return ChatResponse{
			Response: "Please specify which email to delete. You can delete by:\n" +
				"- Email number (e.g., 'delete email 2')\n" +
				"- Sender (e.g., 'delete email from john@example.com')\n" +
				"- Subject keyword (e.g., 'delete email with subject meeting')",
			Action: string(ActionDelete),
		}
	}

	mailbox := d.mailboxes.Open(ctx, cred)

	var targetID string
	switch {
	case hasID:
		targetID = emailID
	case hasNumber:
		refs, err := mailbox.ListMessages(ctx, "", emailNumber)
		if err != nil {
			log.Error().Err(err).Msg("deleting email failed")
			return errorResponse(ActionDelete, "Sorry, I couldn't delete the email.", err)
		}
		if len(refs) < emailNumber {
			return ChatResponse{
				Response: fmt.Sprintf("Email number %d not found.", emailNumber),
				Action:   string(ActionDelete),
			}
		}
		targetID = refs[emailNumber-1].ID
	case hasSender:
		refs, err := mailbox.ListMessages(ctx, "from:"+sender, 1)
		if err != nil {
			log.Error().Err(err).Msg("deleting email failed")
			return errorResponse(ActionDelete, "Sorry, I couldn't delete the email.", err)
		}
		if len(refs) == 0 {
			return ChatResponse{
				Response: fmt.Sprintf("No emails found from %s.", sender),
				Action:   string(ActionDelete),
			}
		}
		targetID = refs[0].ID
	case hasSubject:
		refs, err := mailbox.ListMessages(ctx, fmt.Sprintf("subject:%q", subjectKeyword), 1)
		if err != nil {
			log.Error().Err(err).Msg("deleting email failed")
			return errorResponse(ActionDelete, "Sorry, I couldn't delete the email.", err)
		}
		if len(refs) == 0 {
			return ChatResponse{
				Response: fmt.Sprintf("No emails found with subject containing '%s'.", subjectKeyword),
				Action:   string(ActionDelete),
			}
		}
		targetID = refs[0].ID
	}

	// Fetch headers for the confirmation message. Deletion proceeds
	// even when this fails.
	subject, from := "Unknown", "Unknown"
	if msg, err := mailbox.GetMetadata(ctx, targetID, "From", "Subject"); err == nil {
		subject = msg.Subject
		from = msg.Sender
	} else {
		log.Warn().Err(err).Str("messageID", targetID).Msg("fetching email metadata failed")
	}

	if err := mailbox.DeleteMessage(ctx, targetID); err != nil {
		log.Error().Err(err).Str("messageID", targetID).Msg("deleting email failed")
		return errorResponse(ActionDelete, "Sorry, I couldn't delete the email.", err)
	}

	return ChatResponse{
		Response: fmt.Sprintf("✅ Successfully deleted email:\nSubject: %s\nFrom: %s", subject, from),
		Action:   string(ActionDelete),
		Data:     map[string]any{"deleted_email_id": targetID},
	}
}

func greetingResponse() ChatResponse {
	return ChatResponse{
		Response: "Hello! I'm your email assistant. I can help you:\n" +
			"- Read your recent emails (e.g., 'show me my last 5 emails')\n" +
			"- Generate AI-powered replies (e.g., 'generate replies for my emails')\n" +
			"- Delete emails (e.g., 'delete email number 2' or 'delete the latest email from [sender]')\n\n" +
			"What would you like to do?",
		Action: string(ActionGreeting),
	}
}

func helpResponse() ChatResponse {
	return ChatResponse{
		Response: "I can help you manage your emails:\n\n" +
			"📧 **Read Emails**: Ask me to show your recent emails\n" +
			"  Example: 'Show me my last 5 emails' or 'Read my emails'\n\n" +
			"✍️ **Generate Replies**: I can create professional replies for your emails\n" +
			"  Example: 'Generate replies for my emails' or 'Create a reply for email 1'\n\n" +
			"🗑️ **Delete Emails**: I can delete specific emails\n" +
			"  Example: 'Delete email number 2' or 'Delete the latest email from john@example.com'\n\n" +
			"Just tell me what you'd like to do in natural language!",
		Action: string(ActionHelp),
	}
}

func unknownResponse() ChatResponse {
	return ChatResponse{
		Response: "I'm not sure what you'd like to do. Try asking me to:\n" +
			"- Read your emails\n" +
			"- Generate replies\n" +
			"- Delete an email\n" +
			"Or type 'help' to see all capabilities.",
		Action: string(ActionUnknown),
	}
}

func errorResponse(action Action, message string, err error) ChatResponse {
	return ChatResponse{
		Response: fmt.Sprintf("%s Error: %s", message, err.Error()),
		Action:   string(action),
		Data:     map[string]any{"error": err.Error()},
	}
}
