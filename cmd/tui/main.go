package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pathovar/internal/fasta"
	"pathovar/internal/header"
	"pathovar/internal/output"
)

// Colors for modern design
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	secondaryColor = lipgloss.Color("#10B981") // Green
	accentColor    = lipgloss.Color("#F59E0B") // Amber
	dangerColor    = lipgloss.Color("#EF4444") // Red
	surfaceColor   = lipgloss.Color("#1F2937") // Dark gray
	textColor      = lipgloss.Color("#F3F4F6") // Light gray
	mutedColor     = lipgloss.Color("#9CA3AF") // Muted gray
	borderColor    = lipgloss.Color("#374151") // Border gray
)

// Styles
var (
	containerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor)

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Background(surfaceColor).
			Padding(0, 1)

	sequenceStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Background(lipgloss.Color("#111827")).
			Padding(1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor)

	labelStyle = lipgloss.NewStyle().Foreground(mutedColor)

	// Tag styles
	tagPathogenicStyle = lipgloss.NewStyle().Foreground(dangerColor).Bold(true)
	tagVariantStyle    = lipgloss.NewStyle().Foreground(secondaryColor).Bold(true)
	tagUnknownStyle    = lipgloss.NewStyle().Foreground(mutedColor)
)

// VariantRecord is one generated record with its header split into parts.
type VariantRecord struct {
	Summary  header.Summary
	Residues string
}

func tagStyle(tag string) lipgloss.Style {
	switch tag {
	case header.TagPathogenic:
		return tagPathogenicStyle
	case header.TagVariant:
		return tagVariantStyle
	default:
		return tagUnknownStyle
	}
}

type listItem struct {
	record VariantRecord
}

func (i listItem) FilterValue() string {
	s := i.record.Summary
	return s.Accession + " " + s.Descriptor + " " + s.Evidence
}

func (i listItem) Title() string {
	if i.record.Summary.Accession != "" {
		return i.record.Summary.Accession
	}
	return i.record.Summary.Header
}

func (i listItem) Description() string {
	s := i.record.Summary
	tag := s.Tag
	if tag == "" {
		tag = "untagged"
	}
	return fmt.Sprintf("%s    %s    AA: %d", tagStyle(s.Tag).Render(tag), s.Descriptor, len(i.record.Residues))
}

type mode int

const (
	modeSequence mode = iota
	modeHeader
	modeCount
)

func (m mode) String() string {
	switch m {
	case modeSequence:
		return "Sequence"
	case modeHeader:
		return "Header"
	default:
		return "Unknown"
	}
}

type model struct {
	list          list.Model
	records       []VariantRecord
	source        string
	currentMode   mode
	showHelp      bool
	width         int
	height        int
	selectedIndex int
}

// loadRecords reads a generated FASTA file. Records are keyed by their
// first header token, so identical variant headers collapse to the last one.
func loadRecords(path string) ([]VariantRecord, error) {
	c, err := fasta.ParseFile(path)
	if err != nil {
		return nil, err
	}
	records := make([]VariantRecord, 0, c.Len())
	for _, r := range c.Ordered() {
		records = append(records, VariantRecord{Summary: header.Parse(r.Header), Residues: r.Sequence})
	}
	return records, nil
}

func newModel(records []VariantRecord, source string) model {
	items := make([]list.Item, len(records))
	for i, record := range records {
		items[i] = listItem{record: record}
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Generated Variants"
	l.SetShowStatusBar(false)
	l.SetShowPagination(true)
	l.SetFilteringEnabled(true)

	return model{
		list:        l,
		records:     records,
		source:      source,
		currentMode: modeSequence,
	}
}

func (m model) cycleMode() model {
	m.currentMode = (m.currentMode + 1) % modeCount
	return m
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetWidth(msg.Width / 3)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case tea.KeyMsg:
		// let the list own keys while the filter input is active
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "h":
			m.showHelp = !m.showHelp
			return m, nil
		case "1":
			m.currentMode = modeSequence
			return m, nil
		case "2":
			m.currentMode = modeHeader
			return m, nil
		case "tab":
			return m.cycleMode(), nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	m.selectedIndex = m.list.Index()
	return m, cmd
}

func (m model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelpModal()
	}
	main := lipgloss.JoinHorizontal(lipgloss.Top, m.renderLeftPanel(), m.renderRightPanel())
	return lipgloss.JoinVertical(lipgloss.Left, main, m.renderStatusBar())
}

func (m model) renderLeftPanel() string {
	return containerStyle.
		Width(m.width/3 - 2).
		Height(m.height - 4).
		Render(m.list.View())
}

func (m model) renderRightPanel() string {
	panel := containerStyle.
		Width(m.width*2/3 - 2).
		Height(m.height - 4)

	if len(m.records) == 0 {
		return panel.Render("No records available")
	}
	selected := m.list.SelectedItem()
	if selected == nil {
		return panel.Render("No item selected")
	}
	return panel.Render(strings.Join(m.buildRightLines(selected.(listItem).record), "\n"))
}

// sequenceWidth is the residue column width of the right panel.
func (m model) sequenceWidth() int {
	w := m.width*2/3 - 10
	if w < 10 {
		w = 10
	}
	return w
}

// buildRightLines renders the detail of rec for the current mode.
func (m model) buildRightLines(rec VariantRecord) []string {
	s := rec.Summary
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s - %s", s.Accession, s.Descriptor)),
		labelStyle.Render("Tag: ") + tagStyle(s.Tag).Render(s.Tag) + labelStyle.Render(fmt.Sprintf("    AA: %d", len(rec.Residues))),
		"",
	}
	switch m.currentMode {
	case modeSequence:
		if rec.Residues == "" {
			return append(lines, labelStyle.Render("No residues available"))
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(accentColor).Bold(true).Render("Residues:"), "")
		lines = append(lines, strings.Split(sequenceStyle.Render(wrap(rec.Residues, m.sequenceWidth())), "\n")...)
	case modeHeader:
		for _, kv := range [][2]string{
			{"Header", s.Header},
			{"Accession", s.Accession},
			{"Tag", s.Tag},
			{"Descriptor", s.Descriptor},
			{"Evidence", s.Evidence},
			{"Genomic", s.Genomic},
		} {
			v := kv[1]
			if v == "" {
				v = "-"
			}
			lines = append(lines, labelStyle.Render(fmt.Sprintf("%-11s", kv[0]+":"))+" "+v)
		}
	}
	return lines
}

// wrap breaks seq into lines of at most width residues.
func wrap(seq string, width int) string {
	if width <= 0 || len(seq) <= width {
		return seq
	}
	var b strings.Builder
	for i := 0; i < len(seq); i += width {
		end := i + width
		if end > len(seq) {
			end = len(seq)
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(seq[i:end])
	}
	return b.String()
}

func (m model) renderStatusBar() string {
	leftInfo := fmt.Sprintf("%d/%d variants", m.selectedIndex+1, len(m.records))
	centerInfo := fmt.Sprintf("Mode: %s", m.currentMode)
	rightInfo := "Press 'h' for help • 'q' to quit"

	spacing := m.width - lipgloss.Width(leftInfo) - lipgloss.Width(centerInfo) - lipgloss.Width(rightInfo) - 6
	var statusContent string
	if spacing > 0 {
		leftSpacing := spacing / 2
		statusContent = leftInfo + strings.Repeat(" ", leftSpacing) + centerInfo + strings.Repeat(" ", spacing-leftSpacing) + rightInfo
	} else {
		statusContent = fmt.Sprintf("%s | %s", leftInfo, centerInfo)
	}
	return statusBarStyle.Width(m.width).Render(statusContent)
}

func (m model) renderHelpModal() string {
	helpContent := `Generated Variants Browser - Help

Navigation:
  ↑/↓, j/k     Navigate list
  /            Filter variants
  Enter        Select variant

View Modes:
  1            Show mutated residues
  2            Show header fields
  Tab          Cycle modes

General:
  h            Toggle this help
  q, Ctrl+C    Quit application

Source: ` + m.source + `
Current Mode: ` + m.currentMode.String() + `
Total Variants: ` + fmt.Sprintf("%d", len(m.records)) + `
`
	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(primaryColor).
		Padding(1, 2).
		Background(surfaceColor).
		Foreground(textColor).
		Width(60).
		Render(helpContent)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}

func main() {
	in := flag.String("in", output.DefaultFileName, "generated variants FASTA to browse")
	flag.Parse()

	records, err := loadRecords(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	p := tea.NewProgram(newModel(records, *in), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v", err)
		os.Exit(1)
	}
}
