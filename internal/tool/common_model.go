package tool

import "strings"

// EmailAddress represents an email address with optional display name.
type EmailAddress struct {
	Name  string `json:"name,omitempty" jsonschema:"the display name"`
	Email string `json:"email" jsonschema:"the email address"`
}

// EmailSummary contains header-level metadata for one inbox email.
type EmailSummary struct {
	ID        string       `json:"id" jsonschema:"email ID"`
	ThreadID  string       `json:"thread_id" jsonschema:"thread ID"`
	Timestamp string       `json:"timestamp" jsonschema:"email timestamp"`
	From      EmailAddress `json:"from" jsonschema:"sender information"`
	Subject   string       `json:"subject" jsonschema:"email subject"`
	Snippet   string       `json:"snippet" jsonschema:"email preview"`
	MessageID string       `json:"message_id,omitempty" jsonschema:"RFC Message-ID header, used for reply threading"`
}

func parseEmailAddress(from string) EmailAddress {
	addr := EmailAddress{}

	if idx := strings.Index(from, "<"); idx != -1 {
		addr.Name = strings.TrimSpace(from[:idx])
		if endIdx := strings.Index(from[idx:], ">"); endIdx != -1 {
			addr.Email = strings.TrimSpace(from[idx+1 : idx+endIdx])
		}
	} else {
		addr.Email = strings.TrimSpace(from)
	}

	addr.Name = strings.Trim(addr.Name, "\"")

	return addr
}
