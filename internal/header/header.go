// Package header builds the FASTA header of a generated variant record and
// parses such headers back into their parts.
package header

import (
	"strings"

	"pathovar/internal/fasta"
	"pathovar/internal/mutation"
	"pathovar/internal/variant"
)

// Header tags.
const (
	TagPathogenic = "PATHOGENIC_VARIANT"
	TagVariant    = "VARIANT_INFO"
)

const (
	separator     = " | "
	genomicLabel  = "Genomic:"
	suffixMarker  = "_"
	descriptorPfx = "p."
)

// extractor yields the evidence text of one kind, or "".
type extractor struct {
	label string
	text  func(variant.Feature) string
}

// evidence is tried in order; the first non-empty text wins.
var evidence = []extractor{
	{"Association", func(f variant.Feature) string {
		names := make([]string, 0, len(f.Association))
		for _, a := range f.Association {
			names = appendNonEmpty(names, a.Name)
		}
		return strings.Join(names, ", ")
	}},
	{"Disease", func(f variant.Feature) string {
		names := make([]string, 0, len(f.DiseaseAssociations))
		for _, d := range f.DiseaseAssociations {
			names = appendNonEmpty(names, d.DiseaseName)
		}
		return strings.Join(names, ", ")
	}},
	{"Clinical", func(f variant.Feature) string {
		types := make([]string, 0, len(f.ClinicalSignificances))
		for _, cs := range f.ClinicalSignificances {
			types = appendNonEmpty(types, cs.Type)
		}
		return strings.Join(types, ", ")
	}},
	{"Note", func(f variant.Feature) string { return strings.TrimSpace(f.Description) }},
}

func appendNonEmpty(list []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		return append(list, s)
	}
	return list
}

// Evidence returns the labelled evidence segment for f, e.g.
// "Disease:Long QT syndrome", or "" when f has none.
func Evidence(f variant.Feature) string {
	for _, e := range evidence {
		if text := e.text(f); text != "" {
			return e.label + ":" + text
		}
	}
	return ""
}

// Tag returns the header tag for an outcome.
func Tag(o mutation.Outcome) string {
	if o.Pathogenic {
		return TagPathogenic
	}
	return TagVariant
}

// Suffix is the variant suffix spliced into the accession: the feature id
// when present, else the descriptor without its p. prefix.
func Suffix(f variant.Feature, o mutation.Outcome) string {
	if id := strings.TrimSpace(f.FtID); id != "" {
		return id
	}
	return strings.TrimPrefix(o.Descriptor, descriptorPfx)
}

// SpliceAccession appends suffix to the accession field of a pipe-delimited
// header (db|ACC|rest). Other headers, and accessions that already carry a
// variant suffix, are returned unchanged.
func SpliceAccession(h, suffix string) string {
	if suffix == "" {
		return h
	}
	fields := strings.SplitN(h, "|", 3)
	if len(fields) < 2 {
		return h
	}
	acc := fields[1]
	if strings.TrimSpace(acc) == "" || strings.Contains(acc, suffixMarker) {
		return h
	}
	fields[1] = acc + suffixMarker + suffix
	return strings.Join(fields, "|")
}

// Compose builds the header line of a generated record. It is only
// meaningful for applied outcomes.
func Compose(originalHeader, proteinID string, f variant.Feature, o mutation.Outcome) string {
	h := strings.TrimLeft(strings.TrimSpace(originalHeader), fasta.Marker)
	if h == "" {
		h = proteinID
	}
	h = SpliceAccession(h, Suffix(f, o))

	var b strings.Builder
	b.WriteString(fasta.Marker)
	b.WriteString(h)
	b.WriteString(separator)
	b.WriteString(Tag(o))
	b.WriteString(":")
	b.WriteString(o.Descriptor)
	if ev := Evidence(f); ev != "" {
		b.WriteString(separator)
		b.WriteString(ev)
	}
	b.WriteString(separator)
	b.WriteString(genomicLabel)
	b.WriteString(f.FirstGenomicLocation())
	return b.String()
}

// Summary is a composed header split into its segments.
type Summary struct {
	Header     string
	Accession  string
	Tag        string
	Descriptor string
	Evidence   string
	Genomic    string
}

// Parse splits a header produced by Compose. Headers that were not composed
// come back with only Header and Accession set.
func Parse(line string) Summary {
	line = strings.TrimLeft(strings.TrimSpace(line), fasta.Marker)
	parts := strings.Split(line, separator)
	s := Summary{Header: parts[0]}
	if fields := strings.SplitN(parts[0], "|", 3); len(fields) >= 2 {
		s.Accession = fields[1]
	} else if tok := strings.Fields(parts[0]); len(tok) > 0 {
		s.Accession = tok[0]
	}
	for _, p := range parts[1:] {
		switch {
		case strings.HasPrefix(p, TagPathogenic+":"):
			s.Tag, s.Descriptor = TagPathogenic, strings.TrimPrefix(p, TagPathogenic+":")
		case strings.HasPrefix(p, TagVariant+":"):
			s.Tag, s.Descriptor = TagVariant, strings.TrimPrefix(p, TagVariant+":")
		case strings.HasPrefix(p, genomicLabel):
			s.Genomic = strings.TrimPrefix(p, genomicLabel)
		default:
			if s.Evidence == "" {
				s.Evidence = p
			} else {
				s.Evidence += separator + p
			}
		}
	}
	return s
}
