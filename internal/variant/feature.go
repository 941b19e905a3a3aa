// Package variant models the variation features returned by the EBI Proteins
// API and decides which of them a run materializes.
package variant

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Feature type tags that carry sequence variants.
const (
	TypeVariant        = "VARIANT"
	TypeNaturalVariant = "NATURAL_VARIANT"
)

// Position is a 1-based residue position. The API sends it either as a JSON
// number or as a numeric string. Anything else ("?", "", null) decodes to
// UnknownPosition so only that feature is rejected later, not the whole entry.
type Position int

// UnknownPosition marks a position the source did not state.
const UnknownPosition Position = 0

func (p *Position) UnmarshalJSON(b []byte) error {
	*p = UnknownPosition
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	if v, err := strconv.Atoi(string(b)); err == nil {
		*p = Position(v)
	}
	return nil
}

type ClinicalSignificance struct {
	Type    string   `json:"type"`
	Sources []string `json:"sources,omitempty"`
}

type DiseaseAssociation struct {
	DiseaseName string `json:"diseaseName"`
}

type Association struct {
	Name string `json:"name"`
}

type AlternativeSequence struct {
	OriginalSequence     string   `json:"originalSequence,omitempty"`
	AlternativeSequences []string `json:"alternativeSequences,omitempty"`
}

type Xref struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Feature is one entry of the variation feature list.
type Feature struct {
	Type                  string                 `json:"type"`
	Begin                 Position               `json:"begin"`
	End                   Position               `json:"end"`
	WildType              string                 `json:"wildType,omitempty"`
	MutatedType           string                 `json:"mutatedType,omitempty"`
	Description           string                 `json:"description,omitempty"`
	FtID                  string                 `json:"ftId,omitempty"`
	ConsequenceType       string                 `json:"consequenceType,omitempty"`
	SourceType            string                 `json:"sourceType,omitempty"`
	ClinicalSignificances []ClinicalSignificance `json:"clinicalSignificances,omitempty"`
	DiseaseAssociations   []DiseaseAssociation   `json:"diseaseAssociations,omitempty"`
	Association           []Association          `json:"association,omitempty"`
	GenomicLocation       []string               `json:"genomicLocation,omitempty"`
	AlternativeSequence   *AlternativeSequence   `json:"alternativeSequence,omitempty"`
	Xrefs                 []Xref                 `json:"xrefs,omitempty"`
}

// Entry is the response envelope of the variation endpoint.
type Entry struct {
	Accession    string    `json:"accession"`
	EntryName    string    `json:"entryName,omitempty"`
	ProteinName  string    `json:"proteinName,omitempty"`
	GeneName     string    `json:"geneName,omitempty"`
	OrganismName string    `json:"organismName,omitempty"`
	Sequence     string    `json:"sequence,omitempty"`
	Features     []Feature `json:"features"`
}

// IsPathogenic reports whether any clinical significance is "Pathogenic" or
// "Likely pathogenic".
func (f Feature) IsPathogenic() bool {
	for _, cs := range f.ClinicalSignificances {
		if cs.Type == "Pathogenic" || cs.Type == "Likely pathogenic" {
			return true
		}
	}
	return false
}

// HasEvidence reports whether the feature carries any descriptive evidence.
// Blank values do not count.
func (f Feature) HasEvidence() bool {
	if strings.TrimSpace(f.Description) != "" {
		return true
	}
	for _, cs := range f.ClinicalSignificances {
		if strings.TrimSpace(cs.Type) != "" {
			return true
		}
	}
	for _, d := range f.DiseaseAssociations {
		if strings.TrimSpace(d.DiseaseName) != "" {
			return true
		}
	}
	for _, a := range f.Association {
		if strings.TrimSpace(a.Name) != "" {
			return true
		}
	}
	return false
}

// IsVariantType reports whether the feature type is a recognized variant tag.
func (f Feature) IsVariantType() bool {
	return f.Type == TypeVariant || f.Type == TypeNaturalVariant
}

// FirstGenomicLocation returns the first genomic location or "".
func (f Feature) FirstGenomicLocation() string {
	if len(f.GenomicLocation) == 0 {
		return ""
	}
	return f.GenomicLocation[0]
}
