// Package gservice adapts the Google APIs consumed by the core: Gmail as the
// mail provider and People as the contact directory.
package gservice

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/amoyroud/audiodraft/internal/auth"
)

const gmailUserID = "me"

// OutgoingMessage describes a reply to compose, either as a draft or for
// immediate sending.
type OutgoingMessage struct {
	To        string
	CC        []string
	Subject   string
	Body      string
	ThreadID  string
	InReplyTo string // Message-ID header of the email being answered
}

// NewGmail creates the Gmail adapter. A fresh service is built per call so
// token refreshes are picked up transparently.
func NewGmail(cfg *oauth2.Config, tok *auth.Token) *GMail {
	return &GMail{
		cfg: cfg,
		tok: tok,
	}
}

// GMail executes mail-provider operations against the Gmail API.
type GMail struct {
	cfg *oauth2.Config
	tok *auth.Token
}

// ListInbox returns a page of inbox message references.
func (m *GMail) ListInbox(ctx context.Context, pageToken string, maxResults int64) (*gmail.ListMessagesResponse, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	call := svc.Users.Messages.List(gmailUserID).
		Q("in:inbox").
		PageToken(pageToken).
		MaxResults(maxResults)

	result, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("messages.List failed: %w", err)
	}

	return result, nil
}

// GetMessageMetadata fetches header-level data for one message.
func (m *GMail) GetMessageMetadata(ctx context.Context, msgID string) (*gmail.Message, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	msg, err := svc.Users.Messages.Get(gmailUserID, msgID).
		Format("METADATA").
		MetadataHeaders("From", "To", "Cc", "Subject", "Date", "Message-ID").
		Do()
	if err != nil {
		return nil, fmt.Errorf("messages.Get failed: %w", err)
	}

	return msg, nil
}

// GetMessage fetches one full message.
func (m *GMail) GetMessage(ctx context.Context, msgID string) (*gmail.Message, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	msg, err := svc.Users.Messages.Get(gmailUserID, msgID).Do()
	if err != nil {
		return nil, fmt.Errorf("messages.Get failed: %w", err)
	}

	return msg, nil
}

// CreateDraft stores the message as a Gmail draft and returns the draft ID.
func (m *GMail) CreateDraft(ctx context.Context, msg OutgoingMessage) (string, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return "", fmt.Errorf("newSvc failed: %w", err)
	}

	draft, err := svc.Users.Drafts.Create(gmailUserID, &gmail.Draft{
		Message: &gmail.Message{
			Raw:      encodeRFC822(msg),
			ThreadId: msg.ThreadID,
		},
	}).Do()
	if err != nil {
		return "", fmt.Errorf("drafts.Create failed: %w", err)
	}

	return draft.Id, nil
}

// SendMessage sends the message immediately and returns the message ID.
func (m *GMail) SendMessage(ctx context.Context, msg OutgoingMessage) (string, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return "", fmt.Errorf("newSvc failed: %w", err)
	}

	sent, err := svc.Users.Messages.Send(gmailUserID, &gmail.Message{
		Raw:      encodeRFC822(msg),
		ThreadId: msg.ThreadID,
	}).Do()
	if err != nil {
		return "", fmt.Errorf("messages.Send failed: %w", err)
	}

	return sent.Id, nil
}

// ArchiveEmail removes the message from the inbox.
func (m *GMail) ArchiveEmail(ctx context.Context, msgID string) error {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return fmt.Errorf("newSvc failed: %w", err)
	}

	_, err = svc.Users.Messages.Modify(gmailUserID, msgID, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"INBOX"},
	}).Do()
	if err != nil {
		return fmt.Errorf("messages.Modify failed: %w", err)
	}

	return nil
}

// ModifyLabels adds and removes labels by name, creating user labels that do
// not exist yet.
func (m *GMail) ModifyLabels(ctx context.Context, msgID string, add, remove []string) error {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return fmt.Errorf("newSvc failed: %w", err)
	}

	addIDs, err := resolveLabelIDs(svc, add, true)
	if err != nil {
		return fmt.Errorf("resolveLabelIDs failed: %w", err)
	}
	removeIDs, err := resolveLabelIDs(svc, remove, false)
	if err != nil {
		return fmt.Errorf("resolveLabelIDs failed: %w", err)
	}

	_, err = svc.Users.Messages.Modify(gmailUserID, msgID, &gmail.ModifyMessageRequest{
		AddLabelIds:    addIDs,
		RemoveLabelIds: removeIDs,
	}).Do()
	if err != nil {
		return fmt.Errorf("messages.Modify failed: %w", err)
	}

	return nil
}

func resolveLabelIDs(svc *gmail.Service, names []string, createMissing bool) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	existing, err := svc.Users.Labels.List(gmailUserID).Do()
	if err != nil {
		return nil, fmt.Errorf("labels.List failed: %w", err)
	}

	byName := make(map[string]string, len(existing.Labels))
	for _, l := range existing.Labels {
		byName[strings.ToLower(l.Name)] = l.Id
	}

	ids := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := byName[strings.ToLower(name)]; ok {
			ids = append(ids, id)
			continue
		}
		if !createMissing {
			continue
		}
		created, err := svc.Users.Labels.Create(gmailUserID, &gmail.Label{
			Name:                  name,
			LabelListVisibility:   "labelShow",
			MessageListVisibility: "show",
		}).Do()
		if err != nil {
			return nil, fmt.Errorf("labels.Create failed: %w", err)
		}
		ids = append(ids, created.Id)
	}

	return ids, nil
}

func (m *GMail) newSvc(ctx context.Context) (*gmail.Service, error) {
	t, err := m.tok.OAuthToken()
	if err != nil {
		return nil, fmt.Errorf("tok.OAuthToken failed: %w", err)
	}

	clt := m.cfg.Client(ctx, t)

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(clt))
	if err != nil {
		return nil, fmt.Errorf("gmail.NewService failed: %w", err)
	}

	return svc, nil
}

// encodeRFC822 builds the raw message Gmail expects: RFC822 headers plus
// body, base64url encoded.
func encodeRFC822(msg OutgoingMessage) string {
	var b strings.Builder

	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	if len(msg.CC) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(msg.CC, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	if msg.InReplyTo != "" {
		fmt.Fprintf(&b, "In-Reply-To: %s\r\n", msg.InReplyTo)
		fmt.Fprintf(&b, "References: %s\r\n", msg.InReplyTo)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}
