package variant

import (
	"fmt"
	"strings"
)

// Policy selects which variant features a run materializes.
type Policy int

const (
	PathogenicOnly Policy = iota
	AllWithEvidence
	AllVariants
)

// Policies lists every policy in display order.
var Policies = []Policy{PathogenicOnly, AllWithEvidence, AllVariants}

func (p Policy) String() string {
	switch p {
	case PathogenicOnly:
		return "pathogenic"
	case AllWithEvidence:
		return "evidence"
	case AllVariants:
		return "all"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Description is a one-line human readable summary of the policy.
func (p Policy) Description() string {
	switch p {
	case PathogenicOnly:
		return "pathogenic and likely pathogenic variants only"
	case AllWithEvidence:
		return "variants with a description, clinical significance or disease association"
	case AllVariants:
		return "every reported variant"
	default:
		return "unknown policy"
	}
}

// ParsePolicy accepts the short names (pathogenic, evidence, all) and the
// long names (PathogenicOnly, AllWithEvidence, AllVariants), in any case.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pathogenic", "pathogeniconly", "pathogenic-only":
		return PathogenicOnly, nil
	case "evidence", "allwithevidence", "all-with-evidence":
		return AllWithEvidence, nil
	case "all", "allvariants", "all-variants":
		return AllVariants, nil
	}
	return PathogenicOnly, fmt.Errorf("unknown policy %q (want pathogenic, evidence or all)", s)
}

// Accept reports whether f qualifies under p.
func (p Policy) Accept(f Feature) bool {
	if !f.IsVariantType() {
		return false
	}
	switch p {
	case PathogenicOnly:
		return f.IsPathogenic()
	case AllWithEvidence:
		return f.HasEvidence()
	case AllVariants:
		return true
	}
	return false
}

// Filter returns the features accepted by p, in input order. The input slice
// is not modified.
func Filter(features []Feature, p Policy) []Feature {
	var out []Feature
	for _, f := range features {
		if p.Accept(f) {
			out = append(out, f)
		}
	}
	return out
}
