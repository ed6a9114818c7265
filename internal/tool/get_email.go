package tool

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/api/gmail/v1"

	"github.com/amoyroud/audiodraft/internal/format"
)

// GetEmailRequest identifies the email to retrieve.
type GetEmailRequest struct {
	EmailID string `json:"email_id" jsonschema:"the email ID to retrieve"`
}

// GetEmailResponse contains the full email content.
type GetEmailResponse struct {
	Summary  EmailSummary `json:"summary" jsonschema:"header-level metadata"`
	BodyText string       `json:"body_text,omitempty" jsonschema:"plain-text body"`
}

type getEmailSvc interface {
	GetMessage(ctx context.Context, msgID string) (*gmail.Message, error)
}

// NewGetEmail creates a new GetEmail tool.
func NewGetEmail(svc getEmailSvc) *GetEmail {
	return &GetEmail{
		svc: svc,
	}
}

// GetEmail retrieves one full email with its body reduced to plain text.
type GetEmail struct {
	svc getEmailSvc
}

// GetEmail fetches the email and converts an HTML-only body to readable text.
func (t *GetEmail) GetEmail(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetEmailRequest,
) (*mcp.CallToolResult, GetEmailResponse, error) {
	if input.EmailID == "" {
		return nil, GetEmailResponse{}, fmt.Errorf("email_id is required")
	}

	msg, err := t.svc.GetMessage(ctx, input.EmailID)
	if err != nil {
		return nil, GetEmailResponse{}, fmt.Errorf("get email %s failed: %w", input.EmailID, err)
	}

	resp := GetEmailResponse{
		Summary: extractEmailSummary(msg),
	}
	if msg.Payload != nil {
		textBody, htmlBody := extractBodies(msg.Payload)
		if textBody != "" {
			resp.BodyText = textBody
		} else if htmlBody != "" {
			resp.BodyText = format.HTML2Text([]byte(htmlBody))
		}
	}

	return nil, resp, nil
}

// extractBodies walks the MIME tree depth first and keeps the first
// text/plain and text/html bodies found.
func extractBodies(payload *gmail.MessagePart) (textBody, htmlBody string) {
	textBody, htmlBody = bodyOfPart(payload)

	for _, part := range payload.Parts {
		partText, partHTML := bodyOfPart(part)
		if textBody == "" {
			textBody = partText
		}
		if htmlBody == "" {
			htmlBody = partHTML
		}

		if len(part.Parts) > 0 {
			nestedText, nestedHTML := extractBodies(part)
			if textBody == "" {
				textBody = nestedText
			}
			if htmlBody == "" {
				htmlBody = nestedHTML
			}
		}
	}

	return textBody, htmlBody
}

func bodyOfPart(part *gmail.MessagePart) (textBody, htmlBody string) {
	if part.Body == nil || part.Body.Data == "" {
		return "", ""
	}

	switch part.MimeType {
	case "text/plain":
		return decodeBase64URL(part.Body.Data), ""
	case "text/html":
		return "", decodeBase64URL(part.Body.Data)
	default:
		return "", ""
	}
}

func decodeBase64URL(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return data
		}
	}
	return string(decoded)
}
