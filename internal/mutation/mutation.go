// Package mutation applies a single variant feature to a canonical protein
// sequence and describes the change in p. notation.
package mutation

import (
	"errors"
	"fmt"

	"pathovar/internal/variant"
)

// Kind is the mutation kind inferred from the resolved residues.
type Kind int

const (
	Indeterminate Kind = iota
	Substitution
	Deletion
	Insertion
)

func (k Kind) String() string {
	switch k {
	case Substitution:
		return "substitution"
	case Deletion:
		return "deletion"
	case Insertion:
		return "insertion"
	default:
		return "indeterminate"
	}
}

// UnknownResidue replaces the '?' marker used by the annotation source.
const UnknownResidue = "X"

var (
	ErrOutOfBounds   = errors.New("position outside sequence")
	ErrInvalidRange  = errors.New("deletion range outside sequence")
	ErrIndeterminate = errors.New("mutation kind could not be determined")
)

// Classify maps the presence of the wild type and mutated residues to a Kind.
func Classify(wildType, mutatedType string) Kind {
	switch {
	case wildType != "" && mutatedType != "":
		return Substitution
	case wildType != "":
		return Deletion
	case mutatedType != "":
		return Insertion
	default:
		return Indeterminate
	}
}

// Change is a feature resolved to concrete residues and positions.
type Change struct {
	Kind        Kind
	WildType    string
	MutatedType string
	Begin       int
	End         int
}

// Resolve picks the wild type and mutated residues of f, falling back to its
// alternative sequence, and classifies the change.
func Resolve(f variant.Feature) Change {
	wt, mt := f.WildType, f.MutatedType
	if alt := f.AlternativeSequence; alt != nil {
		if wt == "" {
			wt = alt.OriginalSequence
		}
		if mt == "" && len(alt.AlternativeSequences) > 0 {
			mt = alt.AlternativeSequences[0]
		}
	}
	if mt == "?" {
		mt = UnknownResidue
	}
	return Change{
		Kind:        Classify(wt, mt),
		WildType:    wt,
		MutatedType: mt,
		Begin:       int(f.Begin),
		End:         int(f.End),
	}
}

// Descriptor renders the change, e.g. p.K2R, p.delK2, p.delKV2-3, p.insR3.
func (c Change) Descriptor() string {
	switch c.Kind {
	case Substitution:
		return fmt.Sprintf("p.%s%d%s", c.WildType, c.Begin, c.MutatedType)
	case Deletion:
		if c.Begin == c.End {
			return fmt.Sprintf("p.del%s%d", c.WildType, c.Begin)
		}
		return fmt.Sprintf("p.del%s%d-%d", c.WildType, c.Begin, c.End)
	case Insertion:
		return fmt.Sprintf("p.ins%s%d", c.MutatedType, c.Begin)
	default:
		return fmt.Sprintf("Variant at pos %d", c.Begin)
	}
}

// Outcome is the result of applying one feature.
type Outcome struct {
	Applied    bool
	Residues   string
	Descriptor string
	Pathogenic bool
	Kind       Kind
	// Mismatch is set when the stated wild type differs from the sequence;
	// Found holds what the sequence actually had at that position.
	Mismatch bool
	Found    string
	// Reason explains why the mutation was not applied.
	Reason error
}

// Apply applies f to residues. Residue mismatches do not prevent the change.
func Apply(residues string, f variant.Feature) Outcome {
	c := Resolve(f)
	out := Outcome{
		Descriptor: c.Descriptor(),
		Pathogenic: f.IsPathogenic(),
		Kind:       c.Kind,
	}

	seq := []rune(residues)
	i := c.Begin - 1
	if i < 0 || i >= len(seq) {
		out.Reason = fmt.Errorf("%s at %d (length %d): %w", c.Kind, c.Begin, len(seq), ErrOutOfBounds)
		return out
	}

	var mutated []rune
	switch c.Kind {
	case Substitution:
		if found := string(seq[i]); found != c.WildType {
			out.Mismatch, out.Found = true, found
		}
		mutated = splice(seq, i, i+1, c.MutatedType)
	case Deletion:
		if c.End > len(seq) || c.Begin > c.End {
			out.Reason = fmt.Errorf("%d-%d (length %d): %w", c.Begin, c.End, len(seq), ErrInvalidRange)
			return out
		}
		if found := string(seq[i:c.End]); found != c.WildType {
			out.Mismatch, out.Found = true, found
		}
		mutated = splice(seq, i, c.End, "")
	case Insertion:
		if i > len(seq) {
			out.Reason = fmt.Errorf("insertion at %d (length %d): %w", c.Begin, len(seq), ErrOutOfBounds)
			return out
		}
		mutated = splice(seq, i, i, c.MutatedType)
	default:
		out.Reason = ErrIndeterminate
		return out
	}

	out.Applied = true
	out.Residues = string(mutated)
	return out
}

// splice replaces seq[from:to] with ins without touching seq.
func splice(seq []rune, from, to int, ins string) []rune {
	r := []rune(ins)
	out := make([]rune, 0, len(seq)-(to-from)+len(r))
	out = append(out, seq[:from]...)
	out = append(out, r...)
	return append(out, seq[to:]...)
}
