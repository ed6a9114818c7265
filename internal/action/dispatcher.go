package action

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/amoyroud/audiodraft/internal/addressing"
	"github.com/amoyroud/audiodraft/internal/enhance"
	"github.com/amoyroud/audiodraft/internal/gservice"
	"github.com/amoyroud/audiodraft/internal/settings"
)

// ReadLabel is the label added by the move-to-read action.
const ReadLabel = "To Read"

type mailProvider interface {
	CreateDraft(ctx context.Context, msg gservice.OutgoingMessage) (string, error)
	SendMessage(ctx context.Context, msg gservice.OutgoingMessage) (string, error)
	ArchiveEmail(ctx context.Context, msgID string) error
	ModifyLabels(ctx context.Context, msgID string, add, remove []string) error
}

type enhancer interface {
	Enhance(ctx context.Context, transcript string, email enhance.EmailContext) (string, error)
}

// Dispatcher executes action descriptors against the mail provider. Dispatch
// never panics or returns a Go error to its caller; every outcome is a
// Result.
type Dispatcher struct {
	mail     mailProvider
	enhancer enhancer
	store    settings.Store
}

// NewDispatcher creates a dispatcher. The settings store is read at dispatch
// time, never cached.
func NewDispatcher(mail mailProvider, enh enhancer, store settings.Store) *Dispatcher {
	return &Dispatcher{
		mail:     mail,
		enhancer: enh,
		store:    store,
	}
}

// Dispatch executes exactly one provider operation for the descriptor and
// returns the uniform result.
func (d *Dispatcher) Dispatch(ctx context.Context, desc Descriptor) Result {
	res := d.dispatch(ctx, desc)

	evt := log.Info()
	if !res.Success {
		evt = log.Warn()
	}
	evt.Str("action", string(desc.Type)).Str("email", desc.Target.ID).
		Bool("success", res.Success).Str("kind", string(res.Kind)).
		Msg("action dispatched")

	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, desc Descriptor) Result {
	switch desc.Type {
	case SpeechToText:
		return d.dispatchTranscriptDraft(ctx, desc, desc.Enhance)
	case AIDraft:
		return d.dispatchAIDraft(ctx, desc)
	case QuickDecline:
		return d.dispatchQuickDecline(ctx, desc)
	case MoveToRead:
		return d.dispatchMoveToRead(ctx, desc)
	case Archive:
		return d.dispatchArchive(ctx, desc)
	default:
		return validationFailure(fmt.Sprintf("unknown action type %q", desc.Type))
	}
}

// dispatchTranscriptDraft saves a reply draft from the dictated text. When
// enhancement is requested it is best-effort: a provider failure falls back
// to the raw transcript instead of aborting.
func (d *Dispatcher) dispatchTranscriptDraft(ctx context.Context, desc Descriptor, tryEnhance bool) Result {
	body := desc.DraftBody
	if body == "" {
		body = desc.Transcript
	}
	if body == "" {
		return validationFailure("nothing to save: record a reply first")
	}

	if tryEnhance {
		enhanced, err := d.enhancer.Enhance(ctx, body, emailContext(desc.Target))
		if err != nil {
			log.Warn().Err(err).Msg("enhancement failed, falling back to raw transcript")
		} else {
			body = enhanced
		}
	}

	return d.createDraft(ctx, desc, body)
}

// dispatchAIDraft saves a reply draft from the enhanced transcript. Here
// enhancement failure is a hard failure: an unenhanced draft would defeat the
// mode's purpose. The raw transcript stays with the caller for manual
// fallback.
func (d *Dispatcher) dispatchAIDraft(ctx context.Context, desc Descriptor) Result {
	raw := desc.Transcript
	if raw == "" {
		raw = desc.DraftBody
	}
	if raw == "" {
		return validationFailure("nothing to enhance: record a reply first")
	}

	body, err := d.enhancer.Enhance(ctx, raw, emailContext(desc.Target))
	if err != nil {
		return providerFailure(fmt.Sprintf("enhancement failed: %v", err))
	}

	return d.createDraft(ctx, desc, body)
}

func (d *Dispatcher) dispatchQuickDecline(ctx context.Context, desc Descriptor) Result {
	if desc.TemplateID == "" {
		return validationFailure("please select a decline template")
	}

	cfg := d.store.Get()
	tpl, ok := cfg.TemplateByID(desc.TemplateID)
	if !ok {
		return validationFailure(fmt.Sprintf("decline template %q not found", desc.TemplateID))
	}

	body := enhance.RenderTemplate(tpl.Body, map[string]string{
		"signature": cfg.Signature,
		"sender":    desc.Target.SenderName,
		"subject":   desc.Target.Subject,
	})
	if body == "" {
		return validationFailure("selected template has an empty body")
	}

	return d.createDraft(ctx, desc, body)
}

func (d *Dispatcher) dispatchMoveToRead(ctx context.Context, desc Descriptor) Result {
	if desc.Target.ID == "" {
		return validationFailure("no target email")
	}

	if err := d.mail.ModifyLabels(ctx, desc.Target.ID, []string{ReadLabel}, nil); err != nil {
		return providerFailure(err.Error())
	}

	return Result{Success: true, Message: "Moved to read later"}
}

func (d *Dispatcher) dispatchArchive(ctx context.Context, desc Descriptor) Result {
	if desc.Target.ID == "" {
		return validationFailure("no target email")
	}

	if err := d.mail.ArchiveEmail(ctx, desc.Target.ID); err != nil {
		return providerFailure(err.Error())
	}

	return Result{Success: true, Message: "Email archived"}
}

func (d *Dispatcher) createDraft(ctx context.Context, desc Descriptor, body string) Result {
	if body == "" {
		return validationFailure("draft body is empty")
	}

	draftID, err := d.mail.CreateDraft(ctx, outgoing(desc.Target, desc.CC, body))
	if err != nil {
		return providerFailure(fmt.Sprintf("saving draft failed: %v", err))
	}

	return Result{
		Success: true,
		Message: "Draft saved",
		Data:    DraftPayload{DraftID: draftID, DraftText: body},
	}
}

// Send is the composite send flow: send the reply, then archive the original.
// An archive failure after a successful send is not an overall failure; the
// send is the primary fact and the archive miss is only appended to the
// message.
func (d *Dispatcher) Send(ctx context.Context, desc Descriptor) Result {
	if desc.DraftBody == "" {
		return validationFailure("cannot send an empty reply")
	}
	if desc.Target.ID == "" {
		return validationFailure("no target email")
	}

	msgID, err := d.mail.SendMessage(ctx, outgoing(desc.Target, desc.CC, desc.DraftBody))
	if err != nil {
		return providerFailure(fmt.Sprintf("sending failed: %v", err))
	}

	payload := SendPayload{MessageID: msgID, Archived: true}
	message := "Reply sent"
	if err := d.mail.ArchiveEmail(ctx, desc.Target.ID); err != nil {
		log.Warn().Err(err).Str("email", desc.Target.ID).Msg("archive after send failed")
		payload.Archived = false
		message = "Reply sent, but archive failed: " + err.Error()
	}

	return Result{Success: true, Message: message, Data: payload}
}

func emailContext(target TargetEmail) enhance.EmailContext {
	return enhance.EmailContext{
		Subject: target.Subject,
		Sender:  target.SenderEmail,
		Body:    target.BodyText,
	}
}

func outgoing(target TargetEmail, cc []addressing.Contact, body string) gservice.OutgoingMessage {
	msg := gservice.OutgoingMessage{
		To:        formatAddress(target.SenderName, target.SenderEmail),
		Subject:   ReplySubject(target.Subject),
		Body:      body,
		ThreadID:  target.ThreadID,
		InReplyTo: target.MessageID,
	}
	for _, c := range cc {
		msg.CC = append(msg.CC, formatAddress(c.Name, c.Email))
	}

	return msg
}

func formatAddress(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}
