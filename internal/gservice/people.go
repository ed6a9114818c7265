package gservice

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"

	"github.com/amoyroud/audiodraft/internal/addressing"
	"github.com/amoyroud/audiodraft/internal/auth"
)

// NewPeople creates the contact directory adapter.
func NewPeople(cfg *oauth2.Config, tok *auth.Token) *People {
	return &People{
		cfg: cfg,
		tok: tok,
	}
}

// People looks up contacts through the People API for CC typeahead.
type People struct {
	cfg *oauth2.Config
	tok *auth.Token
}

// SearchContacts returns contacts matching the query, skipping entries
// without an email address.
func (p *People) SearchContacts(ctx context.Context, query string) ([]addressing.Contact, error) {
	svc, err := p.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	resp, err := svc.People.SearchContacts().
		Query(query).
		ReadMask("names,emailAddresses").
		PageSize(10).
		Do()
	if err != nil {
		return nil, fmt.Errorf("people.SearchContacts failed: %w", err)
	}

	var contacts []addressing.Contact
	for _, result := range resp.Results {
		person := result.Person
		if person == nil || len(person.EmailAddresses) == 0 {
			continue
		}
		name := ""
		if len(person.Names) > 0 {
			name = person.Names[0].DisplayName
		}
		contacts = append(contacts, addressing.Contact{
			Name:  name,
			Email: person.EmailAddresses[0].Value,
		})
	}

	return contacts, nil
}

func (p *People) newSvc(ctx context.Context) (*people.Service, error) {
	t, err := p.tok.OAuthToken()
	if err != nil {
		return nil, fmt.Errorf("tok.OAuthToken failed: %w", err)
	}

	clt := p.cfg.Client(ctx, t)

	svc, err := people.NewService(ctx, option.WithHTTPClient(clt))
	if err != nil {
		return nil, fmt.Errorf("people.NewService failed: %w", err)
	}

	return svc, nil
}
