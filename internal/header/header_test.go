package header

import (
	"testing"

	"pathovar/internal/mutation"
	"pathovar/internal/variant"
)

const original = ">sp|P12345|AAA_HUMAN Protein A OS=Homo sapiens"

func TestComposePathogenicWithFtID(t *testing.T) {
	f := variant.Feature{
		Type:                  variant.TypeVariant,
		Begin:                 2,
		End:                   2,
		WildType:              "K",
		MutatedType:           "R",
		FtID:                  "VAR_012345",
		ClinicalSignificances: []variant.ClinicalSignificance{{Type: "Pathogenic"}},
		DiseaseAssociations:   []variant.DiseaseAssociation{{DiseaseName: "Long QT syndrome"}},
		GenomicLocation:       []string{"NC_000011.10:g.2549245C>T", "other"},
	}
	o := mutation.Apply("MKVLAA", f)
	got := Compose(original, "P12345", f, o)
	want := ">sp|P12345_VAR_012345|AAA_HUMAN Protein A OS=Homo sapiens | PATHOGENIC_VARIANT:p.K2R | Disease:Long QT syndrome | Genomic:NC_000011.10:g.2549245C>T"
	if got != want {
		t.Fatalf("unexpected header\n got: %s\nwant: %s", got, want)
	}
}

func TestComposeDescriptorSuffixWithoutEvidence(t *testing.T) {
	f := variant.Feature{Type: variant.TypeVariant, Begin: 3, End: 3, MutatedType: "R"}
	o := mutation.Apply("MKVLAA", f)
	got := Compose(original, "P12345", f, o)
	want := ">sp|P12345_insR3|AAA_HUMAN Protein A OS=Homo sapiens | VARIANT_INFO:p.insR3 | Genomic:"
	if got != want {
		t.Fatalf("unexpected header\n got: %s\nwant: %s", got, want)
	}
}

func TestComposeNonPipedHeader(t *testing.T) {
	f := variant.Feature{Type: variant.TypeVariant, Begin: 2, End: 2, WildType: "K", Description: "in dbSNP"}
	o := mutation.Apply("MKVLAA", f)
	got := Compose(">NM_000797.4 DRD4", "NM_000797.4", f, o)
	want := ">NM_000797.4 DRD4 | VARIANT_INFO:p.delK2 | Note:in dbSNP | Genomic:"
	if got != want {
		t.Fatalf("unexpected header\n got: %s\nwant: %s", got, want)
	}
}

func TestSpliceAccessionAlreadyAnnotated(t *testing.T) {
	h := "sp|P12345_K2R|AAA_HUMAN"
	if got := SpliceAccession(h, "V3A"); got != h {
		t.Fatalf("annotated accession changed: %s", got)
	}
	if got := SpliceAccession("sp|P12345|AAA_HUMAN", "V3A"); got != "sp|P12345_V3A|AAA_HUMAN" {
		t.Fatalf("unexpected splice: %s", got)
	}
}

func TestEvidencePriority(t *testing.T) {
	f := variant.Feature{
		Description:           "note",
		ClinicalSignificances: []variant.ClinicalSignificance{{Type: "Benign"}, {Type: "Likely benign"}},
	}
	if got := Evidence(f); got != "Clinical:Benign, Likely benign" {
		t.Fatalf("expected clinical evidence, got %q", got)
	}
	f.DiseaseAssociations = []variant.DiseaseAssociation{{DiseaseName: "ADHD"}}
	if got := Evidence(f); got != "Disease:ADHD" {
		t.Fatalf("expected disease evidence, got %q", got)
	}
	f.Association = []variant.Association{{Name: "A1"}, {Name: " "}, {Name: "A2"}}
	if got := Evidence(f); got != "Association:A1, A2" {
		t.Fatalf("expected association evidence, got %q", got)
	}
	if got := Evidence(variant.Feature{}); got != "" {
		t.Fatalf("expected no evidence, got %q", got)
	}
}

func TestParseComposed(t *testing.T) {
	line := ">sp|P12345_VAR_1|AAA_HUMAN Protein | PATHOGENIC_VARIANT:p.K2R | Disease:X | Genomic:chr1:g.5A>G"
	s := Parse(line)
	if s.Accession != "P12345_VAR_1" || s.Tag != TagPathogenic || s.Descriptor != "p.K2R" {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.Evidence != "Disease:X" || s.Genomic != "chr1:g.5A>G" {
		t.Fatalf("unexpected summary %+v", s)
	}
	plain := Parse(">NM_1 some gene")
	if plain.Accession != "NM_1" || plain.Tag != "" {
		t.Fatalf("unexpected plain summary %+v", plain)
	}
}
