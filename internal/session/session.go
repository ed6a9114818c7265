// Package session implements the recording session state machine: one
// end-to-end attempt to record, transcribe and act on a single target email.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/amoyroud/audiodraft/internal/action"
	"github.com/amoyroud/audiodraft/internal/addressing"
	"github.com/amoyroud/audiodraft/internal/capture"
	"github.com/amoyroud/audiodraft/internal/enhance"
	"github.com/amoyroud/audiodraft/internal/settings"
	"github.com/amoyroud/audiodraft/internal/transcribe"
)

// State is the capture lifecycle position of a session. Exactly one value at
// a time.
type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
	StateReviewing  State = "reviewing"
	StatePerforming State = "performing"
	StateError      State = "error"
)

// ErrBusy is returned when a transition is not permitted from the current
// state.
var ErrBusy = errors.New("session is busy")

type transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type enhancer interface {
	Enhance(ctx context.Context, transcript string, email enhance.EmailContext) (string, error)
}

type dispatcher interface {
	Dispatch(ctx context.Context, desc action.Descriptor) action.Result
	Send(ctx context.Context, desc action.Descriptor) action.Result
}

// Config wires a session's collaborators. All fields except Sink and
// OnComplete are required.
type Config struct {
	Target      action.TargetEmail
	Mode        action.Type
	Audio       capture.Context
	Device      *capture.DeviceInfo
	Encoding    capture.Encoding
	Transcriber transcriber
	Enhancer    enhancer
	Dispatcher  dispatcher
	Store       settings.Store
	Sink        EventSink

	// OnComplete fires with the target email ID after a successful
	// terminal action tears the session down.
	OnComplete func(emailID string)
	// OnClose fires when the keyboard contract signals session close
	// (left arrow at the first action mode).
	OnClose func()
}

// Session is the central mutable entity for one reply attempt. The target
// email is captured once at construction and never changes.
type Session struct {
	id     uuid.UUID
	target action.TargetEmail

	audio       capture.Context
	deviceInfo  *capture.DeviceInfo
	encoding    capture.Encoding
	transcriber transcriber
	enhancer    enhancer
	dispatcher  dispatcher
	store       settings.Store
	sink        EventSink
	onComplete  func(string)
	onClose     func()

	cc *addressing.Book

	mu          sync.Mutex
	state       State
	mode        action.Type
	templateID  string
	buffer      *capture.Buffer
	transcript  string
	draftBody   string
	draftEdited bool
	lastResult  action.Result
	errMessage  string

	// attempt identifies the capture attempt async results belong to.
	// A late transcription from a superseded attempt is discarded.
	attempt uuid.UUID

	device   capture.Device
	recorder *capture.Recorder
}

// New creates a session for one target email in Idle state.
func New(cfg Config) *Session {
	sink := cfg.Sink
	if sink == nil {
		sink = NopSink{}
	}
	mode := cfg.Mode
	if mode == "" {
		mode = action.SpeechToText
	}

	return &Session{
		id:          uuid.New(),
		target:      cfg.Target,
		audio:       cfg.Audio,
		deviceInfo:  cfg.Device,
		encoding:    cfg.Encoding,
		transcriber: cfg.Transcriber,
		enhancer:    cfg.Enhancer,
		dispatcher:  cfg.Dispatcher,
		store:       cfg.Store,
		sink:        sink,
		onComplete:  cfg.OnComplete,
		onClose:     cfg.OnClose,
		state:       StateIdle,
		mode:        mode,
		cc:          addressing.NewBook(),
	}
}

// ID returns the session identity.
func (s *Session) ID() uuid.UUID { return s.id }

// Target returns the immutable target email snapshot.
func (s *Session) Target() action.TargetEmail { return s.target }

// State returns the current capture state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mode returns the current action mode.
func (s *Session) Mode() action.Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Transcript returns the recognized text of the last completed attempt.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript
}

// DraftBody returns the editable draft text.
func (s *Session) DraftBody() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftBody
}

// LastResult returns the outcome of the most recent dispatch.
func (s *Session) LastResult() action.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

// ErrMessage returns the message of the current Error state, if any.
func (s *Session) ErrMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMessage
}

// CC returns the session's CC recipient book.
func (s *Session) CC() *addressing.Book { return s.cc }

// SetTemplate selects the quick-decline template.
func (s *Session) SetTemplate(templateID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templateID = templateID
}

// SetMode switches the action mode. Switching while a capture or dispatch is
// in flight is disallowed. Switching after a transcript or draft exists
// clears the dependent state so a stale transcript is never applied under the
// new mode's semantics. Leaving quick-decline clears the selected template.
func (s *Session) SetMode(mode action.Type) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown action mode %q", mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateRecording, StateProcessing, StatePerforming:
		return fmt.Errorf("%w: cannot switch mode while %s", ErrBusy, s.state)
	}
	if mode == s.mode {
		return nil
	}

	if s.transcript != "" || s.draftBody != "" || s.buffer != nil {
		s.buffer = nil
		s.transcript = ""
		s.draftBody = ""
		s.draftEdited = false
		if s.state == StateReviewing {
			s.setStateLocked(StateIdle)
		}
	}
	if s.mode == action.QuickDecline {
		s.templateID = ""
	}
	s.mode = mode

	return nil
}

// Start begins a recording attempt. The device stream is requested before any
// state flips to Recording, so a permission denial is observable as an Error
// transition rather than a stuck state. A recording already in flight is
// stopped and discarded first; there are never overlapping captures.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StatePerforming:
		s.mu.Unlock()
		return fmt.Errorf("%w: dispatch in flight", ErrBusy)
	case StateRecording:
		s.discardCaptureLocked()
	case StateProcessing:
		// Supersede: the attempt ID changes below, so the in-flight
		// transcription result will be discarded on arrival.
	}

	s.attempt = uuid.New()
	s.buffer = nil
	s.errMessage = ""
	audio := s.audio
	deviceInfo := s.deviceInfo
	encoding := s.encoding
	s.mu.Unlock()

	device, err := audio.NewCapture(deviceInfo, capture.Config{
		SampleRate: capture.SampleRate,
		Channels:   capture.Channels,
	})
	if err != nil {
		s.toError(fmt.Sprintf("microphone unavailable: %v", err))
		return fmt.Errorf("audio.NewCapture failed: %w", err)
	}

	recorder, err := capture.NewRecorder(device, encoding, &meterSink{sink: s.sink})
	if err != nil {
		device.Close()
		s.toError(fmt.Sprintf("recorder init failed: %v", err))
		return fmt.Errorf("capture.NewRecorder failed: %w", err)
	}

	if err := recorder.Start(); err != nil {
		device.Close()
		s.toError(fmt.Sprintf("recording failed to start: %v", err))
		return fmt.Errorf("recorder.Start failed: %w", err)
	}

	s.mu.Lock()
	s.device = device
	s.recorder = recorder
	s.setStateLocked(StateRecording)
	s.mu.Unlock()

	log.Info().Str("session", s.id.String()).Str("email", s.target.ID).Msg("recording started")

	return nil
}

// Stop ends the recording and hands the buffer to the transcription
// pipeline. A parent-driven stop takes this exact path; there is no separate
// code path for external interruption. Stop during Processing is blocked.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return fmt.Errorf("%w: nothing to stop in state %s", ErrBusy, s.state)
	}
	recorder := s.recorder
	device := s.device
	attempt := s.attempt
	s.recorder = nil
	s.device = nil
	s.mu.Unlock()

	buf, err := recorder.Stop()
	device.Close()

	if errors.Is(err, capture.ErrNoAudioCaptured) {
		// User-correctable: invite a re-record, no teardown needed.
		s.mu.Lock()
		s.lastResult = action.Result{
			Success: false,
			Message: "No speech captured, please try recording again",
			Kind:    action.KindValidation,
		}
		s.setStateLocked(StateIdle)
		s.mu.Unlock()
		return fmt.Errorf("recorder.Stop failed: %w", err)
	}
	if err != nil {
		s.toError(fmt.Sprintf("finalizing recording failed: %v", err))
		return fmt.Errorf("recorder.Stop failed: %w", err)
	}

	s.mu.Lock()
	s.buffer = &buf
	s.setStateLocked(StateProcessing)
	s.mu.Unlock()

	go s.transcribeAttempt(ctx, attempt, buf)

	return nil
}

// transcribeAttempt runs the transcription pipeline and, for ai-draft,
// enhancement. Results only apply if this attempt is still the current one.
func (s *Session) transcribeAttempt(ctx context.Context, attempt uuid.UUID, buf capture.Buffer) {
	text, err := s.transcriber.Transcribe(ctx, buf.Bytes, buf.MIMEType)
	if err != nil {
		if !s.attemptCurrent(attempt) {
			return
		}
		s.toError(fmt.Sprintf("transcription failed: %v", err))
		return
	}

	if !s.attemptCurrent(attempt) {
		log.Debug().Str("session", s.id.String()).Msg("discarding superseded transcription result")
		return
	}

	// The trigger scan runs on the raw transcript before any enhancement
	// call, so enhancement can never race the addressing-state mutation.
	cfg := s.store.Get()
	transcribe.ScanTrigger(text, cfg.TriggerName, cfg.TriggerEmail, s.cc)

	s.mu.Lock()
	s.transcript = text
	mode := s.mode
	s.mu.Unlock()
	s.sink.TranscriptReady(text)

	body := text
	if mode == action.AIDraft {
		enhanced, err := s.enhancer.Enhance(ctx, text, enhance.EmailContext{
			Subject: s.target.Subject,
			Sender:  s.target.SenderEmail,
			Body:    s.target.BodyText,
		})
		if err != nil {
			// Enhancement failure must not fail the whole session;
			// the raw transcript seeds the draft instead.
			log.Warn().Err(err).Msg("enhancement failed, seeding draft from raw transcript")
		} else {
			body = enhanced
		}
	}

	if !s.attemptCurrent(attempt) {
		return
	}

	s.mu.Lock()
	if !s.draftEdited {
		s.draftBody = body
	}
	// The audio buffer is safe to discard once transcription succeeded.
	s.buffer = nil
	s.setStateLocked(StateReviewing)
	body = s.draftBody
	s.mu.Unlock()

	s.sink.DraftReady(body)
}

// EditDraft replaces the draft text. Once the user has edited, later
// pipeline output never overwrites the draft.
func (s *Session) EditDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draftBody = text
	s.draftEdited = true
}

// Dispatch executes the current action mode. Review-based modes dispatch
// from Reviewing; move-to-read and archive skip review and dispatch straight
// from Idle.
func (s *Session) Dispatch(ctx context.Context) action.Result {
	return s.perform(func(desc action.Descriptor) action.Result {
		return s.dispatcher.Dispatch(ctx, desc)
	})
}

// Send executes the composite send-then-archive flow on the reviewed draft.
func (s *Session) Send(ctx context.Context) action.Result {
	return s.perform(func(desc action.Descriptor) action.Result {
		return s.dispatcher.Send(ctx, desc)
	})
}

func (s *Session) perform(exec func(action.Descriptor) action.Result) action.Result {
	s.mu.Lock()
	switch s.state {
	case StateIdle, StateReviewing:
	default:
		res := action.Result{
			Success: false,
			Message: fmt.Sprintf("cannot dispatch while %s", s.state),
			Kind:    action.KindValidation,
		}
		s.mu.Unlock()
		return res
	}

	desc := action.Descriptor{
		Type:       s.mode,
		Target:     s.target,
		Transcript: s.transcript,
		DraftBody:  s.draftBody,
		TemplateID: s.templateID,
		CC:         s.cc.List(),
		Enhance:    s.mode == action.AIDraft,
	}
	prior := s.state
	s.setStateLocked(StatePerforming)
	s.mu.Unlock()

	res := exec(desc)

	s.mu.Lock()
	s.lastResult = res
	if res.Success {
		s.teardownLocked()
	} else if desc.Type.NeedsDraftBody() && prior == StateReviewing {
		// Draft and transcript survive a failed dispatch so nothing
		// dictated is ever lost.
		s.setStateLocked(StateReviewing)
	} else {
		s.setStateLocked(prior)
	}
	s.mu.Unlock()

	s.sink.ActionDone(res)
	if res.Success && s.onComplete != nil {
		s.onComplete(s.target.ID)
	}

	return res
}

// Retry recovers an Error state back to Idle.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateError {
		return fmt.Errorf("%w: not in error state", ErrBusy)
	}
	s.errMessage = ""
	s.setStateLocked(StateIdle)

	return nil
}

// Close tears the session down unconditionally: any live capture is
// discarded and resources released. Used when the user navigates away.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.discardCaptureLocked()
	s.teardownLocked()
}

// discardCaptureLocked stops and drops a live recording without
// transcription.
func (s *Session) discardCaptureLocked() {
	if s.recorder != nil {
		_, _ = s.recorder.Stop()
		s.recorder = nil
	}
	if s.device != nil {
		s.device.Close()
		s.device = nil
	}
	s.attempt = uuid.New()
}

// teardownLocked releases per-attempt state after a completed session.
func (s *Session) teardownLocked() {
	s.buffer = nil
	s.transcript = ""
	s.draftBody = ""
	s.draftEdited = false
	s.templateID = ""
	s.cc.Clear()
	s.attempt = uuid.New()
	s.setStateLocked(StateIdle)
}

func (s *Session) attemptCurrent(attempt uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt == attempt
}

func (s *Session) toError(message string) {
	s.mu.Lock()
	s.errMessage = message
	s.setStateLocked(StateError)
	s.mu.Unlock()
}

func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	from := s.state
	s.state = next
	go s.sink.StateChanged(from, next)
}

// meterSink forwards capture metering into the session's event sink.
type meterSink struct {
	sink EventSink
}

func (m *meterSink) Tick(seconds float64) { m.sink.RecordingTick(seconds) }
func (m *meterSink) Level(level float64)  { m.sink.AudioLevel(level) }
