package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/api/gmail/v1"
)

// SearchInboxRequest selects a page of the inbox.
type SearchInboxRequest struct {
	MaxResults int64  `json:"max_results,omitempty" jsonschema:"max results per page"`
	PageToken  string `json:"page_token,omitempty" jsonschema:"token for pagination"`
}

// SearchInboxResponse contains one page of inbox summaries.
type SearchInboxResponse struct {
	Emails        []EmailSummary `json:"emails" jsonschema:"array of email summaries"`
	NextPageToken string         `json:"next_page_token,omitempty" jsonschema:"token for next page"`
	TotalResults  int            `json:"total_results" jsonschema:"number of emails returned"`
}

type searchInboxSvc interface {
	ListInbox(ctx context.Context, pageToken string, maxResults int64) (*gmail.ListMessagesResponse, error)
	GetMessageMetadata(ctx context.Context, msgID string) (*gmail.Message, error)
}

// NewSearchInbox creates a new SearchInbox tool.
func NewSearchInbox(svc searchInboxSvc) *SearchInbox {
	return &SearchInbox{
		svc: svc,
	}
}

// SearchInbox lists the emails waiting in the inbox.
type SearchInbox struct {
	svc searchInboxSvc
}

// SearchInbox returns a page of inbox email summaries, newest first.
func (t *SearchInbox) SearchInbox(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInboxRequest,
) (*mcp.CallToolResult, SearchInboxResponse, error) {
	input.MaxResults = normalizeMaxResults(input.MaxResults)

	result, err := t.svc.ListInbox(ctx, input.PageToken, input.MaxResults)
	if err != nil {
		return nil, SearchInboxResponse{}, fmt.Errorf("svc.ListInbox failed: %w", err)
	}

	emails := make([]EmailSummary, 0, len(result.Messages))

	for _, m := range result.Messages {
		msg, err := t.svc.GetMessageMetadata(ctx, m.Id)
		if err != nil {
			return nil, SearchInboxResponse{}, fmt.Errorf("get email %s failed: %w", m.Id, err)
		}

		emails = append(emails, extractEmailSummary(msg))
	}

	return nil, SearchInboxResponse{
		Emails:        emails,
		NextPageToken: result.NextPageToken,
		TotalResults:  len(emails),
	}, nil
}

func extractEmailSummary(msg *gmail.Message) EmailSummary {
	summary := EmailSummary{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
	}

	if msg.Payload == nil {
		return summary
	}
	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "From":
			summary.From = parseEmailAddress(header.Value)
		case "Subject":
			summary.Subject = header.Value
		case "Date":
			summary.Timestamp = header.Value
		case "Message-ID", "Message-Id":
			summary.MessageID = header.Value
		}
	}

	return summary
}

func normalizeMaxResults(maxResults int64) int64 {
	if maxResults == 0 {
		return 10
	}
	if maxResults > 50 {
		return 50
	}
	return maxResults
}
