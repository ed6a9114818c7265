package addressing_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amoyroud/audiodraft/internal/addressing"
)

func TestBookDeduplicatesCaseInsensitively(t *testing.T) {
	book := addressing.NewBook()

	assert.True(t, book.Add(addressing.Contact{Name: "Maria", Email: "maria@x.com"}))
	assert.False(t, book.Add(addressing.Contact{Name: "Maria Again", Email: "Maria@X.com"}))

	got := book.List()
	require.Len(t, got, 1)
	assert.Equal(t, "maria@x.com", got[0].Email)

	// No two entries may collide case-insensitively regardless of input order.
	book.Add(addressing.Contact{Email: "BOB@example.org"})
	book.Add(addressing.Contact{Email: "bob@example.org"})
	seen := map[string]bool{}
	for _, c := range book.List() {
		key := strings.ToLower(c.Email)
		assert.False(t, seen[key], "duplicate entry %s", c.Email)
		seen[key] = true
	}
}

func TestBookFreeTextValidation(t *testing.T) {
	cases := []struct {
		name  string
		entry string
		added bool
		email string
	}{
		{name: "bare address", entry: "jane@x.com", added: true, email: "jane@x.com"},
		{name: "named address", entry: "Jane Doe <jane.doe@x.com>", added: true, email: "jane.doe@x.com"},
		{name: "not an address", entry: "call me maybe", added: false},
		{name: "empty", entry: "", added: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			book := addressing.NewBook()
			assert.Equal(t, tc.added, book.AddFreeText(tc.entry))
			if tc.added {
				require.Len(t, book.List(), 1)
				assert.Equal(t, tc.email, book.List()[0].Email)
			} else {
				assert.Empty(t, book.List())
			}
		})
	}
}

func TestBookRemoveAndClear(t *testing.T) {
	book := addressing.NewBook()
	book.Add(addressing.Contact{Email: "a@x.com"})
	book.Add(addressing.Contact{Email: "b@x.com"})

	assert.True(t, book.Remove("A@X.COM"))
	assert.False(t, book.Remove("a@x.com"))
	require.Len(t, book.List(), 1)

	book.Clear()
	assert.Empty(t, book.List())
}

type directoryMock struct {
	SearchContactsFunc func(ctx context.Context, query string) ([]addressing.Contact, error)
}

func (m *directoryMock) SearchContacts(ctx context.Context, query string) ([]addressing.Contact, error) {
	return m.SearchContactsFunc(ctx, query)
}

func TestSearcherSupersedesInFlightLookup(t *testing.T) {
	slowStarted := make(chan struct{})
	release := make(chan struct{})

	dir := &directoryMock{
		SearchContactsFunc: func(ctx context.Context, query string) ([]addressing.Contact, error) {
			if query == "slow" {
				close(slowStarted)
				select {
				case <-release:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			return []addressing.Contact{{Name: query, Email: query + "@x.com"}}, nil
		},
	}

	var mu sync.Mutex
	var delivered []string
	done := make(chan struct{}, 2)

	searcher := addressing.NewSearcher(dir, func(query string, _ []addressing.Contact) {
		mu.Lock()
		delivered = append(delivered, query)
		mu.Unlock()
		done <- struct{}{}
	})

	searcher.Search(context.Background(), "slow")
	<-slowStarted
	searcher.Search(context.Background(), "fast")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fast result")
	}
	close(release)

	// Give the superseded lookup a moment to (incorrectly) deliver.
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"fast"}, delivered)
}
