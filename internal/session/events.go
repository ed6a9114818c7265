package session

import "github.com/amoyroud/audiodraft/internal/action"

// EventSink abstracts the display layer so any UI shell can observe the same
// recording and dispatch events without a global event bus.
type EventSink interface {
	StateChanged(from, to State)
	RecordingTick(seconds float64)
	AudioLevel(level float64)
	TranscriptReady(text string)
	DraftReady(text string)
	ActionDone(res action.Result)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) StateChanged(State, State) {}
func (NopSink) RecordingTick(float64)     {}
func (NopSink) AudioLevel(float64)        {}
func (NopSink) TranscriptReady(string)    {}
func (NopSink) DraftReady(string)         {}
func (NopSink) ActionDone(action.Result)  {}
