// Package enhance rewrites raw transcripts into polished email bodies through
// an external text-generation collaborator.
package enhance

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/amoyroud/audiodraft/internal/settings"
)

// Provider is the external text-generation collaborator.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// EmailContext carries the metadata of the email being replied to into the
// prompt.
type EmailContext struct {
	Subject string
	Sender  string
	Body    string
}

// Pipeline builds prompts from the user's configured template and submits
// them to a Provider.
type Pipeline struct {
	provider Provider
	store    settings.Store
}

// NewPipeline creates an enhancement pipeline. Settings are read from the
// store at the moment of each call, never cached.
func NewPipeline(provider Provider, store settings.Store) *Pipeline {
	return &Pipeline{provider: provider, store: store}
}

// Enhance rewrites the transcript using the configured prompt template and
// appends the configured signature to the result.
func (p *Pipeline) Enhance(ctx context.Context, transcript string, email EmailContext) (string, error) {
	cfg := p.store.Get()

	tpl := cfg.PromptTemplate
	if tpl == "" {
		tpl = settings.DefaultPromptTemplate
	}
	prompt := RenderTemplate(tpl, map[string]string{
		"transcript": transcript,
		"subject":    email.Subject,
		"sender":     email.Sender,
		"body":       email.Body,
		"signature":  cfg.Signature,
	})

	text, err := p.provider.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("provider.Complete failed: %w", err)
	}

	log.Debug().Int("transcript_len", len(transcript)).Int("result_len", len(text)).
		Msg("enhancement completed")

	return appendSignature(strings.TrimSpace(text), cfg.Signature), nil
}

// RenderTemplate substitutes {name} placeholders from vars. Placeholders with
// no matching variable are left verbatim rather than failing, so a malformed
// template degrades instead of crashing. Substituted values are not
// re-scanned, which makes rendering an already-rendered string a no-op.
func RenderTemplate(tpl string, vars map[string]string) string {
	var b strings.Builder
	b.Grow(len(tpl))

	for {
		open := strings.IndexByte(tpl, '{')
		if open == -1 {
			b.WriteString(tpl)
			break
		}
		end := strings.IndexByte(tpl[open:], '}')
		if end == -1 {
			b.WriteString(tpl)
			break
		}
		end += open

		name := tpl[open+1 : end]
		if val, ok := vars[name]; ok {
			b.WriteString(tpl[:open])
			b.WriteString(val)
		} else {
			b.WriteString(tpl[:end+1])
		}
		tpl = tpl[end+1:]
	}

	return b.String()
}

func appendSignature(body, signature string) string {
	if signature == "" {
		return body
	}
	return body + "\n\n" + signature
}
