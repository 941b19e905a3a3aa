// Package output assembles generated variant records into FASTA text.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/pgzip"

	"pathovar/internal/variant"
)

// DefaultFileName is used when no output path is configured.
const DefaultFileName = "all_pathogenic_variants_combined.fasta"

// StopSymbol marks translational termination in residue strings.
const StopSymbol = "*"

// Entry is one generated record.
type Entry struct {
	Header   string
	Residues string
}

// NoResultsMessage explains an empty result for the given policy.
func NoResultsMessage(p variant.Policy) string {
	switch p {
	case variant.PathogenicOnly:
		return "No pathogenic variants were found for any of the proteins in the provided FASTA file."
	case variant.AllWithEvidence:
		return "No variants with supporting evidence (description, clinical significance or disease association) were found for any of the proteins in the provided FASTA file."
	case variant.AllVariants:
		return "No applicable variants were found for any of the proteins in the provided FASTA file."
	default:
		return fmt.Sprintf("No variants matched policy %s for the proteins in the provided FASTA file.", p)
	}
}

// Assemble joins entries into FASTA text, stripping stop symbols from the
// residues. An empty entry list yields NoResultsMessage(p).
func Assemble(entries []Entry, p variant.Policy) string {
	if len(entries) == 0 {
		return NoResultsMessage(p)
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Header+"\n"+strings.ReplaceAll(e.Residues, StopSymbol, ""))
	}
	return strings.Join(lines, "\n")
}

// WriteFile writes text to path, gzip compressed when path ends in .gz.
// A trailing newline is added.
func WriteFile(path, text string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, path, text); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func write(f io.Writer, path, text string) error {
	if strings.HasSuffix(path, ".gz") {
		zw := pgzip.NewWriter(f)
		if _, err := io.WriteString(zw, text+"\n"); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()
	}
	bw := bufio.NewWriter(f)
	if _, err := bw.WriteString(text + "\n"); err != nil {
		return err
	}
	return bw.Flush()
}
