package bpstring

import (
	"cmp"
	"context"
	"slices"

	"github.com/matzehuels/bpedit/pkg/observability"
)

const (
	maxFindCandidates = 32
	maxRunCandidates  = 8
	minEnvelopeLen    = 8
)

// candidates returns the envelope-shaped runs of text, longest first.
// Each maximal run of alphabet characters contributes the suffixes starting
// at its first maxRunCandidates prefix characters, since '/', '-' and '='
// glue an envelope to whatever precedes it ("…/v10/0eNq…").
func candidates(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for i := 0; i < len(text); {
		if !inAlphabet(text[i]) {
			i++
			continue
		}
		j := i
		for j < len(text) && inAlphabet(text[j]) {
			j++
		}
		starts := 0
		for k := i; k < j && j-k >= minEnvelopeLen && starts < maxRunCandidates; k++ {
			if text[k] != Prefix {
				continue
			}
			starts++
			if c := text[k:j]; !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
		i = j
	}
	slices.SortStableFunc(out, func(a, b string) int { return cmp.Compare(len(b), len(a)) })
	if len(out) > maxFindCandidates {
		out = out[:maxFindCandidates]
	}
	return out
}

func find(ctx context.Context, p *pipeline, text string) (found string, ok bool) {
	tried := 0
	defer func() { observability.Codec().OnFind(ctx, tried, ok) }()

	for _, c := range candidates(text) {
		if ctx.Err() != nil {
			return "", false
		}
		tried++
		if decodes(ctx, p, c) {
			return c, true
		}
	}
	return "", false
}

// decodes reports whether s decodes to a model. Panics count as failure.
func decodes(ctx context.Context, p *pipeline, s string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_, err := p.decode(ctx, s)
	return err == nil
}
