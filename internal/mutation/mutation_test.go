package mutation

import (
	"errors"
	"testing"

	"pathovar/internal/variant"
)

const canonical = "MKVLAA"

func feature(wt, mt string, begin, end int) variant.Feature {
	return variant.Feature{
		Type:        variant.TypeVariant,
		WildType:    wt,
		MutatedType: mt,
		Begin:       variant.Position(begin),
		End:         variant.Position(end),
	}
}

func TestApplyKinds(t *testing.T) {
	tests := []struct {
		name       string
		f          variant.Feature
		residues   string
		descriptor string
		kind       Kind
	}{
		{"substitution", feature("K", "R", 2, 2), "MRVLAA", "p.K2R", Substitution},
		{"deletion", feature("K", "", 2, 2), "MVLAA", "p.delK2", Deletion},
		{"multi deletion", feature("KVL", "", 2, 4), "MAA", "p.delKVL2-4", Deletion},
		{"insertion", feature("", "R", 3, 3), "MKRVLAA", "p.insR3", Insertion},
		{"last residue", feature("A", "G", 6, 6), "MKVLAG", "p.A6G", Substitution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(canonical, tt.f)
			if !got.Applied {
				t.Fatalf("expected applied, reason %v", got.Reason)
			}
			if got.Residues != tt.residues {
				t.Fatalf("residues: expected %q, got %q", tt.residues, got.Residues)
			}
			if got.Descriptor != tt.descriptor {
				t.Fatalf("descriptor: expected %q, got %q", tt.descriptor, got.Descriptor)
			}
			if got.Kind != tt.kind || got.Mismatch {
				t.Fatalf("unexpected kind/mismatch: %v %v", got.Kind, got.Mismatch)
			}
		})
	}
}

func TestApplyBoundaryRejection(t *testing.T) {
	for _, f := range []variant.Feature{
		feature("K", "R", 0, 0),
		feature("K", "", 0, 0),
		feature("", "R", 0, 0),
		feature("K", "R", 7, 7),
		feature("K", "", 7, 7),
		feature("", "R", 7, 7),
		feature("", "R", 10, 10),
	} {
		got := Apply(canonical, f)
		if got.Applied {
			t.Fatalf("expected %s at %d to be rejected", got.Kind, f.Begin)
		}
		if !errors.Is(got.Reason, ErrOutOfBounds) {
			t.Fatalf("expected ErrOutOfBounds, got %v", got.Reason)
		}
	}
}

func TestApplyDeletionRange(t *testing.T) {
	got := Apply(canonical, feature("AA", "", 5, 7))
	if got.Applied || !errors.Is(got.Reason, ErrInvalidRange) {
		t.Fatalf("expected range rejection, got %+v", got)
	}
	got = Apply(canonical, feature("K", "", 3, 2))
	if got.Applied || !errors.Is(got.Reason, ErrInvalidRange) {
		t.Fatalf("expected begin>end rejection, got %+v", got)
	}
}

func TestApplyMismatchStillApplies(t *testing.T) {
	got := Apply(canonical, feature("W", "R", 2, 2))
	if !got.Applied || got.Residues != "MRVLAA" {
		t.Fatalf("expected substitution despite mismatch, got %+v", got)
	}
	if !got.Mismatch || got.Found != "K" {
		t.Fatalf("expected mismatch on K, got %+v", got)
	}

	got = Apply(canonical, feature("VV", "", 3, 4))
	if !got.Applied || got.Residues != "MKAA" || !got.Mismatch || got.Found != "VL" {
		t.Fatalf("expected deletion with mismatch, got %+v", got)
	}
}

func TestApplyIndeterminate(t *testing.T) {
	got := Apply(canonical, feature("", "", 2, 2))
	if got.Applied || !errors.Is(got.Reason, ErrIndeterminate) {
		t.Fatalf("expected indeterminate rejection, got %+v", got)
	}
	if got.Descriptor != "Variant at pos 2" {
		t.Fatalf("unexpected fallback descriptor %q", got.Descriptor)
	}
}

func TestUnknownResidueNormalization(t *testing.T) {
	q := Apply(canonical, feature("K", "?", 2, 2))
	x := Apply(canonical, feature("K", "X", 2, 2))
	if q != x {
		t.Fatalf("'?' and 'X' differ: %+v vs %+v", q, x)
	}
	if q.Descriptor != "p.K2X" || q.Residues != "MXVLAA" {
		t.Fatalf("unexpected normalized outcome %+v", q)
	}
}

func TestResolveAlternativeSequence(t *testing.T) {
	f := variant.Feature{
		Type:  variant.TypeVariant,
		Begin: 2,
		End:   2,
		AlternativeSequence: &variant.AlternativeSequence{
			OriginalSequence:     "K",
			AlternativeSequences: []string{"E", "Q"},
		},
	}
	c := Resolve(f)
	if c.Kind != Substitution || c.WildType != "K" || c.MutatedType != "E" {
		t.Fatalf("unexpected resolved change %+v", c)
	}
	f.WildType = "M"
	if c := Resolve(f); c.WildType != "M" {
		t.Fatalf("direct field should win, got %q", c.WildType)
	}
}

func TestApplyPathogenicCarried(t *testing.T) {
	f := feature("K", "R", 2, 2)
	f.ClinicalSignificances = []variant.ClinicalSignificance{{Type: "Likely pathogenic"}}
	if !Apply(canonical, f).Pathogenic {
		t.Fatalf("expected pathogenic flag")
	}
	if Apply(canonical, feature("K", "R", 2, 2)).Pathogenic {
		t.Fatalf("unexpected pathogenic flag")
	}
}
