package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"pathovar/internal/fasta"
	"pathovar/internal/mutation"
	"pathovar/internal/output"
	"pathovar/internal/proteins"
	"pathovar/internal/variant"
)

const input = `>sp|P11111|AAA_HUMAN Protein A
MKVLAA
>sp|P22222|BBB_HUMAN Protein B
MSTQ*
>sp|P33333|CCC_HUMAN Protein C
MGGG
`

func pathogenic(wt, mt string, pos int) variant.Feature {
	return variant.Feature{
		Type:                  variant.TypeVariant,
		Begin:                 variant.Position(pos),
		End:                   variant.Position(pos),
		WildType:              wt,
		MutatedType:           mt,
		ClinicalSignificances: []variant.ClinicalSignificance{{Type: "Pathogenic"}},
	}
}

func staticLookup(m map[string][]variant.Feature, fail map[string]error) LookupFunc {
	return func(ctx context.Context, id string) ([]variant.Feature, error) {
		if err, ok := fail[id]; ok {
			return nil, err
		}
		return m[id], nil
	}
}

func TestProcessProtein(t *testing.T) {
	rec := fasta.Record{ID: "P11111", Header: ">sp|P11111|AAA_HUMAN Protein A", Sequence: "MKVLAA"}
	features := []variant.Feature{
		pathogenic("K", "R", 2),
		pathogenic("A", "G", 40),
		{Type: variant.TypeVariant, Begin: 3, End: 3, WildType: "V", MutatedType: "I"},
		pathogenic("W", "C", 4),
	}
	res := ProcessProtein(rec, features, variant.PathogenicOnly)
	if res.Features != 4 || res.Accepted != 3 {
		t.Fatalf("unexpected counts %+v", res)
	}
	if len(res.Entries) != 2 || len(res.Skipped) != 1 || len(res.Mismatches) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Entries[0].Residues != "MRVLAA" || res.Entries[1].Residues != "MKVCAA" {
		t.Fatalf("unexpected residues %+v", res.Entries)
	}
	if !strings.Contains(res.Entries[0].Header, "PATHOGENIC_VARIANT:p.K2R") {
		t.Fatalf("unexpected header %s", res.Entries[0].Header)
	}
	if m := res.Mismatches[0]; m.Expected != "W" || m.Found != "L" {
		t.Fatalf("unexpected mismatch %+v", m)
	}
}

func TestRunKeepsRecordOrderAndSurvivesFailures(t *testing.T) {
	c := fasta.ParseString(input)
	lookup := staticLookup(map[string][]variant.Feature{
		"P11111": {pathogenic("K", "R", 2), pathogenic("V", "E", 3)},
		"P22222": {pathogenic("S", "A", 2)},
		"P33333": {pathogenic("G", "D", 2)},
	}, map[string]error{
		"P33333": errors.New("connection reset"),
	})
	r := &Runner{Lookup: lookup, Policy: variant.PathogenicOnly, Concurrency: 3}
	res, err := r.Run(context.Background(), c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(res.Entries))
	}
	for i, want := range []string{"p.K2R", "p.V3E", "p.S2A"} {
		if !strings.Contains(res.Entries[i].Header, want) {
			t.Fatalf("entry %d: expected %s in %s", i, want, res.Entries[i].Header)
		}
	}
	if res.Summary.Failed != 1 || res.Summary.Applied != 3 || res.Summary.Proteins != 3 {
		t.Fatalf("unexpected summary %+v", res.Summary)
	}
	if !strings.Contains(res.Text, "\nMATQ\n") && !strings.HasSuffix(res.Text, "\nMATQ") {
		t.Fatalf("stop symbol not stripped from output:\n%s", res.Text)
	}
}

func TestRunOrderIndependentOfLookupTiming(t *testing.T) {
	var b strings.Builder
	want := make([]string, 0, 20)
	features := map[string][]variant.Feature{}
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("P%05d", i)
		fmt.Fprintf(&b, ">sp|%s|X\nMKVLAA\n", id)
		features[id] = []variant.Feature{pathogenic("K", "R", 2)}
		want = append(want, id)
	}
	lookup := LookupFunc(func(ctx context.Context, id string) ([]variant.Feature, error) {
		// later ids answer first
		var n int
		fmt.Sscanf(id, "P%d", &n)
		time.Sleep(time.Duration(20-n) * time.Millisecond)
		return features[id], nil
	})
	r := &Runner{Lookup: lookup, Policy: variant.AllVariants, Concurrency: 8}
	res, err := r.Run(context.Background(), fasta.ParseString(b.String()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(res.Entries))
	}
	for i, id := range want {
		if !strings.Contains(res.Entries[i].Header, id+"_K2R") {
			t.Fatalf("entry %d out of order: %s", i, res.Entries[i].Header)
		}
	}
}

func TestRunNoResultsMessage(t *testing.T) {
	c := fasta.ParseString(input)
	lookup := staticLookup(nil, map[string]error{"P11111": fmt.Errorf("P11111: %w", proteins.ErrNotFound)})
	for _, p := range variant.Policies {
		r := &Runner{Lookup: lookup, Policy: p}
		res, err := r.Run(context.Background(), c)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Text != output.NoResultsMessage(p) {
			t.Fatalf("%s: expected no-results message, got %q", p, res.Text)
		}
		if res.Summary.Failed != 0 {
			t.Fatalf("not-found must not count as failure: %+v", res.Summary)
		}
	}
}

func TestRunReportsProgress(t *testing.T) {
	var mu sync.Mutex
	stages := map[Stage]int{}
	r := &Runner{
		Lookup: staticLookup(nil, nil),
		Policy: variant.AllVariants,
		QPS:    100,
		Progress: func(p Progress) {
			mu.Lock()
			stages[p.Stage]++
			mu.Unlock()
		},
	}
	if _, err := r.Run(context.Background(), fasta.ParseString(input)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stages[StageDownload] != 3 || stages[StageProcess] != 3 || stages[StageCombine] != 1 {
		t.Fatalf("unexpected progress counts %v", stages)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	lookup := LookupFunc(func(ctx context.Context, id string) ([]variant.Feature, error) {
		return nil, ctx.Err()
	})
	r := &Runner{Lookup: lookup, Policy: variant.AllVariants}
	res, err := r.Run(ctx, fasta.ParseString(input))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res == nil || len(res.Entries) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestProcessProteinSkipsUnknownPositionOnly(t *testing.T) {
	rec := fasta.Record{ID: "P11111", Header: ">sp|P11111|AAA_HUMAN Protein A", Sequence: "MKVLAA"}
	unknown := pathogenic("V", "E", 0)
	unknown.Begin, unknown.End = variant.UnknownPosition, variant.UnknownPosition
	res := ProcessProtein(rec, []variant.Feature{pathogenic("K", "R", 2), unknown}, variant.PathogenicOnly)
	if len(res.Entries) != 1 || res.Entries[0].Residues != "MRVLAA" {
		t.Fatalf("valid sibling not applied: %+v", res.Entries)
	}
	if len(res.Skipped) != 1 || !errors.Is(res.Skipped[0].Reason, mutation.ErrOutOfBounds) {
		t.Fatalf("expected unknown position skipped as out of bounds: %+v", res.Skipped)
	}
}
