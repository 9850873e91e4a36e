package bpstring

import (
	"context"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/bpedit/pkg/blueprint"
)

func TestFind(t *testing.T) {
	ctx := context.Background()
	bp, _, _ := wiredPair(t)
	s, err := Encode(ctx, bp)
	if err != nil {
		t.Fatal(err)
	}
	small := blueprint.New()
	small.Meta().Label = "x"
	short, err := Encode(ctx, small)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"bare", s, s, true},
		{"between prose", "Here is my lamp setup:\n\n" + s + "\n\nHave fun with it!", s, true},
		{"quoted", `paste "` + s + `" into the game`, s, true},
		{"url parameter", "https://example.com/view?source=" + s + "&zoom=2", s, true},
		{"url path with zero", "https://example.com/v10/" + s, s, true},
		{"glued after dash", "bp-2024/" + s, s, true},
		{"query with zero", "https://example.com/view?id=10&source=" + s, s, true},
		{"after longer junk", "0" + strings.Repeat("A", 300) + " and then " + s, s, true},
		{"longest wins", short + " or " + s, s, true},
		{"only short", "try " + short + ".", short, true},
		{"empty", "", "", false},
		{"prose only", "no blueprint in this message, sorry", "", false},
		{"envelope-like noise", "see 0eNq" + strings.Repeat("A", 40) + " above", "", false},
		{"corrupted", "here: 0" + strings.Repeat("x", 64), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Find(ctx, tt.text)
			if ok != tt.wantOK {
				t.Fatalf("Find ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Find = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindNeverPanics(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	alphabet := "0eNqAZaz+/=-_ \n\x00\xff"
	for range 200 {
		b := make([]byte, r.IntN(512))
		for i := range b {
			b[i] = alphabet[r.IntN(len(alphabet))]
		}
		func() {
			defer func() {
				if p := recover(); p != nil {
					t.Fatalf("Find panicked on %q: %v", b, p)
				}
			}()
			Find(context.Background(), string(b))
		}()
	}
}

func TestCandidates(t *testing.T) {
	text := "abc0ABCDEFGH xyz 0abc 0" + strings.Repeat("Z", 20) + " 00000000"
	got := candidates(text)
	want := []string{"0" + strings.Repeat("Z", 20), "0ABCDEFGH", "00000000"}
	if len(got) != len(want) {
		t.Fatalf("candidates = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidates[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	glued := candidates("x/v10/0eNqABCDEFGH")
	if want := []string{"0/0eNqABCDEFGH", "0eNqABCDEFGH"}; !slices.Equal(glued, want) {
		t.Errorf("candidates = %q, want %q", glued, want)
	}

	many := strings.Repeat("0AAAAAAAAAAA ", maxFindCandidates*2)
	if n := len(candidates(many)); n != 1 {
		t.Errorf("duplicate candidates kept: %d", n)
	}
	var distinct strings.Builder
	for i := range maxFindCandidates * 2 {
		distinct.WriteString("0" + strings.Repeat("B", minEnvelopeLen+i) + " ")
	}
	if n := len(candidates(distinct.String())); n != maxFindCandidates {
		t.Errorf("len(candidates) = %d, want %d", n, maxFindCandidates)
	}
}
