package transcribe

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/amoyroud/audiodraft/internal/addressing"
)

// ScanTrigger checks the transcript for the configured trigger name and, on a
// match, adds the configured recipient to the book. The match is a plain
// case-insensitive substring test against the whole transcript. Best-effort:
// an empty trigger configuration skips the scan silently.
func ScanTrigger(transcript, triggerName, triggerEmail string, book *addressing.Book) bool {
	if triggerName == "" || triggerEmail == "" {
		return false
	}
	if !strings.Contains(strings.ToLower(transcript), strings.ToLower(triggerName)) {
		return false
	}

	added := book.Add(addressing.Contact{Name: triggerName, Email: triggerEmail})
	if added {
		log.Debug().Str("trigger", triggerName).Msg("trigger name matched, recipient added to cc")
	}

	return added
}
