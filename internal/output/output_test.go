package output

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/pgzip"

	"pathovar/internal/variant"
)

func TestAssembleStripsStopSymbols(t *testing.T) {
	entries := []Entry{
		{Header: ">a | PATHOGENIC_VARIANT:p.K2R | Genomic:", Residues: "MR*VL*"},
		{Header: ">b | VARIANT_INFO:p.delK2 | Genomic:", Residues: "MVLAA"},
	}
	got := Assemble(entries, variant.PathogenicOnly)
	want := ">a | PATHOGENIC_VARIANT:p.K2R | Genomic:\nMRVL\n>b | VARIANT_INFO:p.delK2 | Genomic:\nMVLAA"
	if got != want {
		t.Fatalf("unexpected output\n got: %q\nwant: %q", got, want)
	}
}

func TestNoResultsMessagesDistinct(t *testing.T) {
	seen := map[string]variant.Policy{}
	for _, p := range variant.Policies {
		msg := Assemble(nil, p)
		if msg == "" {
			t.Fatalf("%s: empty no-results message", p)
		}
		if prev, dup := seen[msg]; dup {
			t.Fatalf("%s and %s share the message %q", prev, p, msg)
		}
		seen[msg] = p
	}
}

func TestWriteFileGzip(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "out.fasta")
	if err := WriteFile(plain, ">a\nMK"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if b, _ := os.ReadFile(plain); string(b) != ">a\nMK\n" {
		t.Fatalf("unexpected plain output %q", b)
	}

	gz := filepath.Join(dir, "out.fasta.gz")
	if err := WriteFile(gz, ">a\nMK"); err != nil {
		t.Fatalf("WriteFile gz: %v", err)
	}
	f, err := os.Open(gz)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	zr, err := pgzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	b, err := io.ReadAll(zr)
	if err != nil || string(b) != ">a\nMK\n" {
		t.Fatalf("unexpected gzip output %q (%v)", b, err)
	}
}
