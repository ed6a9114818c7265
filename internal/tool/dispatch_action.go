package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/amoyroud/audiodraft/internal/action"
	"github.com/amoyroud/audiodraft/internal/addressing"
	"github.com/amoyroud/audiodraft/internal/format"
)

// DispatchActionRequest describes one terminal email action to execute.
type DispatchActionRequest struct {
	Action     string         `json:"action" jsonschema:"one of speech-to-text, ai-draft, quick-decline, move-to-read, archive"`
	EmailID    string         `json:"email_id" jsonschema:"the email to act on"`
	Transcript string         `json:"transcript,omitempty" jsonschema:"the dictated reply text"`
	DraftBody  string         `json:"draft_body,omitempty" jsonschema:"the reviewed reply body, overrides the transcript"`
	TemplateID string         `json:"template_id,omitempty" jsonschema:"decline template, required for quick-decline"`
	CC         []EmailAddress `json:"cc,omitempty" jsonschema:"extra recipients to copy on the reply"`
	Enhance    bool           `json:"enhance,omitempty" jsonschema:"rewrite the transcript with the language model before drafting"`
	Send       bool           `json:"send,omitempty" jsonschema:"send the reply immediately and archive the original instead of saving a draft"`
}

// DispatchActionResponse is the uniform outcome of every action.
type DispatchActionResponse struct {
	Success bool   `json:"success" jsonschema:"whether the action completed"`
	Message string `json:"message" jsonschema:"human-readable outcome"`
	Kind    string `json:"kind,omitempty" jsonschema:"failure class: validation or provider"`
	Data    any    `json:"data,omitempty" jsonschema:"action-specific payload"`
}

type actionDispatcher interface {
	Dispatch(ctx context.Context, desc action.Descriptor) action.Result
	Send(ctx context.Context, desc action.Descriptor) action.Result
}

// NewDispatchAction creates a new DispatchAction tool.
func NewDispatchAction(svc getEmailSvc, dispatcher actionDispatcher) *DispatchAction {
	return &DispatchAction{
		svc:        svc,
		dispatcher: dispatcher,
	}
}

// DispatchAction executes a terminal email action through the dispatcher.
type DispatchAction struct {
	svc        getEmailSvc
	dispatcher actionDispatcher
}

// DispatchAction resolves the target email and runs the requested action.
// Action failures are reported in the response, not as tool errors; only a
// malformed request or an unreachable target is a hard error.
func (t *DispatchAction) DispatchAction(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DispatchActionRequest,
) (*mcp.CallToolResult, DispatchActionResponse, error) {
	typ := action.Type(input.Action)
	if !typ.Valid() {
		return nil, DispatchActionResponse{}, fmt.Errorf("unknown action %q", input.Action)
	}
	if input.EmailID == "" {
		return nil, DispatchActionResponse{}, fmt.Errorf("email_id is required")
	}

	target, err := t.resolveTarget(ctx, input.EmailID)
	if err != nil {
		return nil, DispatchActionResponse{}, fmt.Errorf("resolveTarget failed: %w", err)
	}

	desc := action.Descriptor{
		Type:       typ,
		Target:     target,
		Transcript: input.Transcript,
		DraftBody:  input.DraftBody,
		TemplateID: input.TemplateID,
		Enhance:    input.Enhance,
	}
	for _, cc := range input.CC {
		desc.CC = append(desc.CC, addressing.Contact{Name: cc.Name, Email: cc.Email})
	}

	var res action.Result
	if input.Send {
		res = t.dispatcher.Send(ctx, desc)
	} else {
		res = t.dispatcher.Dispatch(ctx, desc)
	}

	return nil, DispatchActionResponse{
		Success: res.Success,
		Message: res.Message,
		Kind:    string(res.Kind),
		Data:    res.Data,
	}, nil
}

func (t *DispatchAction) resolveTarget(ctx context.Context, emailID string) (action.TargetEmail, error) {
	msg, err := t.svc.GetMessage(ctx, emailID)
	if err != nil {
		return action.TargetEmail{}, fmt.Errorf("get email %s failed: %w", emailID, err)
	}

	summary := extractEmailSummary(msg)
	target := action.TargetEmail{
		ID:          summary.ID,
		ThreadID:    summary.ThreadID,
		Subject:     summary.Subject,
		SenderName:  summary.From.Name,
		SenderEmail: summary.From.Email,
		MessageID:   summary.MessageID,
	}
	if msg.Payload != nil {
		textBody, htmlBody := extractBodies(msg.Payload)
		if textBody != "" {
			target.BodyText = textBody
		} else if htmlBody != "" {
			target.BodyText = format.HTML2Text([]byte(htmlBody))
		}
	}

	return target, nil
}
