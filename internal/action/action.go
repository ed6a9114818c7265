// Package action implements the terminal-action protocol: a closed set of
// email actions, each mapped to exactly one mail-provider operation, funneled
// through a single uniform result shape.
package action

import (
	"strings"

	"github.com/amoyroud/audiodraft/internal/addressing"
)

// Type is the closed set of email action kinds.
type Type string

const (
	// SpeechToText drafts a reply from the raw transcript, with optional
	// enhancement.
	SpeechToText Type = "speech-to-text"
	// AIDraft drafts a reply from the enhanced transcript; enhancement is
	// mandatory.
	AIDraft Type = "ai-draft"
	// QuickDecline drafts a reply from a canned template.
	QuickDecline Type = "quick-decline"
	// MoveToRead labels the email for later reading.
	MoveToRead Type = "move-to-read"
	// Archive removes the email from the inbox.
	Archive Type = "archive"
)

// CycleOrder is the order action modes cycle through on arrow keys.
var CycleOrder = []Type{SpeechToText, QuickDecline, MoveToRead, Archive}

// Valid reports whether t is a known action type.
func (t Type) Valid() bool {
	switch t {
	case SpeechToText, AIDraft, QuickDecline, MoveToRead, Archive:
		return true
	}
	return false
}

// NeedsRecording reports whether the action starts from dictated audio.
func (t Type) NeedsRecording() bool {
	return t == SpeechToText || t == AIDraft
}

// NeedsDraftBody reports whether dispatching the action requires a non-empty
// body.
func (t Type) NeedsDraftBody() bool {
	return t == SpeechToText || t == AIDraft || t == QuickDecline
}

// SkipsReview reports whether the action dispatches directly, with no review
// step.
func (t Type) SkipsReview() bool {
	return t == MoveToRead || t == Archive
}

// TargetEmail is the immutable snapshot of the email being acted on, captured
// once when a session is created.
type TargetEmail struct {
	ID          string
	ThreadID    string
	Subject     string
	SenderName  string
	SenderEmail string
	MessageID   string // RFC Message-ID header, for reply threading
	BodyText    string // plain-text body, context for enhancement
}

// Descriptor is the request shape accepted by Dispatch.
type Descriptor struct {
	Type       Type
	Target     TargetEmail
	Transcript string
	DraftBody  string
	TemplateID string
	CC         []addressing.Contact
	Enhance    bool
}

// ResultKind distinguishes failure classes so callers can word them
// differently.
type ResultKind string

const (
	// KindOK marks a successful dispatch.
	KindOK ResultKind = ""
	// KindValidation marks a request rejected locally, before any provider
	// call.
	KindValidation ResultKind = "validation"
	// KindProvider marks an external collaborator failure.
	KindProvider ResultKind = "provider"
)

// Result is the uniform outcome of every dispatch.
type Result struct {
	Success bool
	Message string
	Kind    ResultKind
	Data    any
}

// DraftPayload is the Data of a successful draft-producing dispatch.
type DraftPayload struct {
	DraftID   string
	DraftText string
}

// SendPayload is the Data of a successful composite send.
type SendPayload struct {
	MessageID string
	Archived  bool
}

// ReplySubject synthesizes the reply subject for the original one.
func ReplySubject(original string) string {
	if strings.HasPrefix(strings.ToLower(original), "re:") {
		return original
	}
	return "Re: " + original
}

func validationFailure(message string) Result {
	return Result{Success: false, Message: message, Kind: KindValidation}
}

func providerFailure(message string) Result {
	return Result{Success: false, Message: message, Kind: KindProvider}
}
