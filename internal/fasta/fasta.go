// Package fasta parses protein FASTA input into records keyed by a stable
// identifier. Identifier extraction is lenient: UniProt style headers are
// preferred, anything else falls back to the first header token.
package fasta

import (
	"bufio"
	"io"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

// Marker starts every header line.
const Marker = ">"

// PlaceholderPrefix prefixes identifiers synthesized for headers without a
// usable token.
const PlaceholderPrefix = "UNKNOWN_ID_"

var (
	uniprotHeader = regexp.MustCompile(`^>[a-z]{2}\|([A-Z0-9]+)\|`)
	pipedToken    = regexp.MustCompile(`\|([A-Z0-9]+)\|`)
)

// Record is a single FASTA record. Header is the full trimmed marker line,
// including the leading '>'.
type Record struct {
	ID       string
	Header   string
	Sequence string
}

// Collection holds the records of one parse pass.
type Collection struct {
	// IDs lists committed identifiers in order of first commit.
	IDs     []string
	Records map[string]Record
	// Duplicates lists identifiers whose record was replaced by a later one.
	Duplicates []string
	// Dropped lists identifiers whose header had no residue lines.
	Dropped []string
}

// Len returns the number of committed records.
func (c *Collection) Len() int { return len(c.IDs) }

// Ordered returns the records in IDs order.
func (c *Collection) Ordered() []Record {
	out := make([]Record, 0, len(c.IDs))
	for _, id := range c.IDs {
		out = append(out, c.Records[id])
	}
	return out
}

// IDSource produces suffixes for placeholder identifiers.
type IDSource func() string

// RandomSuffix is the default IDSource.
func RandomSuffix() string {
	return strconv.FormatInt(rand.Int63(), 36)
}

// Parser parses FASTA text. The zero value uses RandomSuffix.
type Parser struct {
	NewID IDSource
}

// Parse reads FASTA records from r using the default parser.
func Parse(r io.Reader) (*Collection, error) {
	var p Parser
	return p.Parse(r)
}

// ParseString is Parse for in-memory text. A scanner error (a line longer
// than 16 MiB) ends parsing and keeps what was read so far.
func ParseString(text string) *Collection {
	c, _ := Parse(strings.NewReader(text))
	return c
}

// Parse reads FASTA records from r. Lines starting with '>' open a record;
// trimmed non-blank lines are appended to the current record's residues.
func (p *Parser) Parse(r io.Reader) (*Collection, error) {
	next := p.NewID
	if next == nil {
		next = RandomSuffix
	}
	c := &Collection{Records: make(map[string]Record)}

	var (
		open    bool
		current Record
		lines   []string
	)
	commit := func() {
		if !open {
			return
		}
		if len(lines) == 0 {
			c.Dropped = append(c.Dropped, current.ID)
			return
		}
		current.Sequence = strings.Join(lines, "")
		if _, seen := c.Records[current.ID]; seen {
			c.Duplicates = append(c.Duplicates, current.ID)
		} else {
			c.IDs = append(c.IDs, current.ID)
		}
		c.Records[current.ID] = current
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, Marker) {
			commit()
			open = true
			current = Record{ID: ExtractID(line, next), Header: line}
			lines = lines[:0]
			continue
		}
		if !open || line == "" {
			continue
		}
		lines = append(lines, line)
	}
	commit()
	return c, scanner.Err()
}

// ExtractID derives the record identifier from a trimmed header line.
func ExtractID(header string, next IDSource) string {
	if m := uniprotHeader.FindStringSubmatch(header); m != nil {
		return m[1]
	}
	fields := strings.Fields(strings.TrimPrefix(header, Marker))
	if len(fields) > 0 {
		if m := pipedToken.FindStringSubmatch(fields[0]); m != nil {
			return m[1]
		}
		return fields[0]
	}
	if next == nil {
		next = RandomSuffix
	}
	return PlaceholderPrefix + next()
}
