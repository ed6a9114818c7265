// Package addressing tracks the CC recipients of an outgoing reply as a set
// keyed by email address.
package addressing

import (
	"net/mail"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Contact is a display name plus email address pair.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Book is an ordered, deduplicated collection of CC contacts. The
// deduplication key is the lowercase email address.
type Book struct {
	mu       sync.Mutex
	contacts []Contact
}

// NewBook creates an empty recipient book.
func NewBook() *Book {
	return &Book{}
}

// Add inserts a contact. Adding an address already present (compared
// case-insensitively) is a no-op. Returns true if the contact was inserted.
func (b *Book) Add(c Contact) bool {
	addr := strings.TrimSpace(c.Email)
	if addr == "" {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key := strings.ToLower(addr)
	for _, existing := range b.contacts {
		if strings.ToLower(existing.Email) == key {
			return false
		}
	}
	b.contacts = append(b.contacts, Contact{Name: strings.TrimSpace(c.Name), Email: addr})

	return true
}

// AddFreeText parses a free-typed entry ("Jane <jane@x.com>" or a bare
// address) and adds it. Entries that do not parse as an email address are
// dropped with a warning rather than added.
func (b *Book) AddFreeText(entry string) bool {
	parsed, err := mail.ParseAddress(strings.TrimSpace(entry))
	if err != nil {
		log.Warn().Str("entry", entry).Err(err).Msg("dropping invalid cc entry")
		return false
	}
	return b.Add(Contact{Name: parsed.Name, Email: parsed.Address})
}

// Remove deletes the contact with the given address (case-insensitive).
func (b *Book) Remove(email string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(email))
	for i, c := range b.contacts {
		if strings.ToLower(c.Email) == key {
			b.contacts = append(b.contacts[:i], b.contacts[i+1:]...)
			return true
		}
	}

	return false
}

// List returns the contacts in insertion order.
func (b *Book) List() []Contact {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Contact, len(b.contacts))
	copy(out, b.contacts)

	return out
}

// Clear removes all contacts.
func (b *Book) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.contacts = nil
}
