package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mantooth/blogsmith/internal/catalog"
	"github.com/mantooth/blogsmith/internal/pipeline"
)

// shellState tracks which view the review shell is in.
type shellState int

const (
	stateList shellState = iota
	stateDetail
	stateEditing
	stateConfirmDelete
	stateOrphans
	stateBusy
)

// row is one line in the list view: a catalog entry, or a discovered source
// file that has no entry yet.
type row struct {
	entry   *catalog.Entry
	pending *pipeline.PendingRecord
}

func (r row) title() string {
	if r.entry != nil {
		return r.entry.Title
	}
	return r.pending.Name
}

func (r row) status() catalog.Status {
	if r.entry != nil {
		return r.entry.Status
	}
	return catalog.StatusPending
}

// source returns what the pipeline should process for this row.
func (r row) source(inputDir string) string {
	if r.pending != nil {
		return r.pending.Path
	}
	src := r.entry.SourcePath
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src
	}
	return filepath.Join(inputDir, src)
}

// style constants
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	headerBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	fieldLabelStyle = lipgloss.NewStyle().
			Width(14).
			Align(lipgloss.Right).
			MarginRight(2)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	fieldDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Italic(true)

	touchedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB86C"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	statusStyles = map[catalog.Status]lipgloss.Style{
		catalog.StatusPending:    lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
		catalog.StatusProcessing: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C")),
		catalog.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		catalog.StatusPublished:  lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true),
		catalog.StatusError:      lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")),
	}
)

// shellModel is the Bubble Tea model for the catalog review shell.
type shellModel struct {
	ctx      context.Context
	pipeline *pipeline.Pipeline

	state  shellState
	rows   []row
	cursor int
	width  int

	// detail/edit state
	selected  *catalog.Entry
	editField catalog.Field
	editValue string

	orphans catalog.OrphanReport

	busyMsg string
	status  string // transient one-line result message
	err     error
}

// processDoneMsg is delivered when a background pipeline run finishes.
type processDoneMsg struct {
	entry *catalog.Entry
	err   error
}

func newShellModel(ctx context.Context, p *pipeline.Pipeline) shellModel {
	m := shellModel{ctx: ctx, pipeline: p, state: stateList}
	m.reload()
	return m
}

// reload rebuilds the row list: catalog entries in display order, then
// discovered files that have no entry yet.
func (m *shellModel) reload() {
	m.rows = m.rows[:0]

	known := make(map[string]bool)
	for _, e := range m.pipeline.Catalog.List() {
		known[e.SourcePath] = true
		m.rows = append(m.rows, row{entry: e})
	}

	records, err := m.pipeline.Scan()
	if err != nil {
		m.err = err
		return
	}
	for i := range records {
		if !known[records[i].Name] {
			m.rows = append(m.rows, row{pending: &records[i]})
		}
	}

	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// refreshSelected re-reads the selected entry from the catalog.
func (m *shellModel) refreshSelected() {
	if m.selected == nil {
		return
	}
	if e, ok := m.pipeline.Catalog.Get(m.selected.ID); ok {
		m.selected = e
	} else {
		m.selected = nil
		m.state = stateList
	}
}

func (m shellModel) Init() tea.Cmd {
	return nil
}

func (m shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case processDoneMsg:
		m.state = stateList
		m.busyMsg = ""
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.status = fmt.Sprintf("Processed %q (%d paragraphs)", msg.entry.Title, msg.entry.ParagraphCount)
		}
		m.reload()
		m.refreshSelected()
		if m.selected != nil {
			m.state = stateDetail
		}
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateList:
			return m.updateList(msg)
		case stateDetail:
			return m.updateDetail(msg)
		case stateEditing:
			return m.updateEditing(msg)
		case stateConfirmDelete:
			return m.updateConfirmDelete(msg)
		case stateOrphans:
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc", "q", "o", "enter":
				m.state = stateList
			}
			return m, nil
		case stateBusy:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

// processCmd runs the pipeline for a source off the UI goroutine.
func (m shellModel) processCmd(source string) tea.Cmd {
	p, ctx := m.pipeline, m.ctx
	return func() tea.Msg {
		entry, err := p.Run(ctx, pipeline.Options{Source: source})
		return processDoneMsg{entry: entry, err: err}
	}
}

func (m shellModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case "r":
		m.reload()
		m.status = ""
		m.err = nil

	case "enter":
		if len(m.rows) == 0 {
			return m, nil
		}
		r := m.rows[m.cursor]
		if r.entry == nil {
			// A pending file has nothing to review yet; process it.
			m.state = stateBusy
			m.busyMsg = "Processing " + r.pending.Name
			return m, m.processCmd(r.source(m.pipeline.Config.InputDir))
		}
		m.selected = r.entry
		m.state = stateDetail
		m.status = ""
		m.err = nil

	case "p":
		if len(m.rows) == 0 {
			return m, nil
		}
		r := m.rows[m.cursor]
		m.state = stateBusy
		m.busyMsg = "Processing " + r.title()
		return m, m.processCmd(r.source(m.pipeline.Config.InputDir))

	case "o":
		report, err := m.pipeline.ListOrphans()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.orphans = report
		m.state = stateOrphans
	}
	return m, nil
}

// editableFields maps detail-view keys to catalog fields.
var editableFields = map[string]catalog.Field{
	"t": catalog.FieldTitle,
	"g": catalog.FieldTags,
	"x": catalog.FieldExcerpt,
	"i": catalog.FieldImage,
	"c": catalog.FieldContent,
}

// resettableFields maps the shifted key to the field whose touched mark it
// clears.
var resettableFields = map[string]catalog.Field{
	"T": catalog.FieldTitle,
	"G": catalog.FieldTags,
	"X": catalog.FieldExcerpt,
	"I": catalog.FieldImage,
	"C": catalog.FieldContent,
}

func (m shellModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.selected == nil {
		m.state = stateList
		return m, nil
	}

	key := msg.String()
	if f, ok := editableFields[key]; ok {
		m.editField = f
		m.editValue = m.currentFieldValue(f)
		m.state = stateEditing
		m.err = nil
		return m, nil
	}
	if f, ok := resettableFields[key]; ok {
		if err := m.pipeline.Catalog.ResetField(m.selected.ID, f); err != nil {
			m.err = err
		} else {
			m.status = fmt.Sprintf("Field %s will be re-derived on next process", f)
			m.refreshSelected()
		}
		return m, nil
	}

	switch key {
	case "ctrl+c":
		return m, tea.Quit

	case "esc", "q":
		m.state = stateList
		m.selected = nil
		m.reload()

	case "p":
		m.state = stateBusy
		m.busyMsg = "Reprocessing " + m.selected.Title
		return m, m.processCmd(row{entry: m.selected}.source(m.pipeline.Config.InputDir))

	case "b":
		if err := m.pipeline.Publish(m.selected.ID); err != nil {
			m.err = err
		} else {
			m.status = "Published " + m.selected.Slug
			m.refreshSelected()
		}

	case "d":
		m.state = stateConfirmDelete
	}
	return m, nil
}

func (m shellModel) currentFieldValue(f catalog.Field) string {
	switch f {
	case catalog.FieldTitle:
		return m.selected.Title
	case catalog.FieldTags:
		return strings.Join(m.selected.Tags, ", ")
	case catalog.FieldExcerpt:
		return m.selected.Excerpt
	case catalog.FieldImage:
		return m.selected.Image
	case catalog.FieldContent:
		// Editing starts from empty; pasting the full HTML back in is never
		// what the user wants.
		return ""
	}
	return ""
}

func (m shellModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if err := m.commitEdit(); err != nil {
			m.err = err
		} else {
			m.status = fmt.Sprintf("Updated %s", m.editField)
		}
		m.state = stateDetail
		m.refreshSelected()
		return m, nil

	case "esc":
		m.state = stateDetail
		return m, nil

	case "backspace":
		if len(m.editValue) > 0 {
			m.editValue = m.editValue[:len(m.editValue)-1]
		}
		return m, nil

	case "ctrl+u":
		m.editValue = ""
		return m, nil

	default:
		if msg.Type == tea.KeyRunes {
			m.editValue += string(msg.Runes)
		}
		return m, nil
	}
}

// commitEdit stores the edited field and rewrites the rendered post so the
// site reflects the change immediately.
func (m *shellModel) commitEdit() error {
	if err := m.pipeline.Catalog.UpdateField(m.selected.ID, m.editField, m.editValue); err != nil {
		return err
	}
	entry, ok := m.pipeline.Catalog.Get(m.selected.ID)
	if !ok {
		return nil
	}
	if entry.Status == catalog.StatusCompleted || entry.Status == catalog.StatusPublished {
		if _, err := m.pipeline.Renderer.WritePost(entry); err != nil {
			return err
		}
		if m.pipeline.Config.UpdateListing {
			return m.pipeline.RefreshSite()
		}
	}
	return nil
}

func (m shellModel) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y":
		slug := m.selected.Slug
		if err := m.pipeline.Unpublish(m.selected.ID); err != nil {
			m.err = err
			m.state = stateDetail
			return m, nil
		}
		m.status = "Removed " + slug
		m.selected = nil
		m.state = stateList
		m.reload()
	case "n", "esc":
		m.state = stateDetail
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m shellModel) View() string {
	var b strings.Builder

	b.WriteString(headerBorder.Render(titleStyle.Render("Blogsmith")))
	b.WriteString("\n")

	switch m.state {
	case stateList, stateBusy:
		m.viewList(&b)
	case stateDetail, stateConfirmDelete:
		m.viewDetail(&b)
	case stateEditing:
		m.viewDetail(&b)
		b.WriteString(fmt.Sprintf("\n  Edit %s: %s\n", m.editField, fieldValueStyle.Render(m.editValue+"_")))
	case stateOrphans:
		m.viewOrphans(&b)
	}

	if m.state == stateBusy {
		b.WriteString("\n  " + touchedStyle.Render(m.busyMsg+"...") + "\n")
	}
	if m.status != "" {
		b.WriteString("\n  " + fieldValueStyle.Render(m.status) + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("  Error: "+m.err.Error()) + "\n")
	}

	switch m.state {
	case stateList:
		b.WriteString(helpStyle.Render("  j/k to navigate | enter to review | p to process | o orphan report | r to refresh | q to quit"))
	case stateDetail:
		b.WriteString(helpStyle.Render("  t/g/x/i/c to edit field | T/G/X/I/C to reset | p reprocess | b publish | d delete | esc back"))
	case stateEditing:
		b.WriteString(helpStyle.Render("  type value | enter to save | esc to cancel | ctrl+u to clear"))
	case stateConfirmDelete:
		b.WriteString(errorStyle.Render("  Delete this entry and its rendered post? (y/n)"))
	case stateOrphans:
		b.WriteString(helpStyle.Render("  esc to go back"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m shellModel) viewList(b *strings.Builder) {
	if len(m.rows) == 0 {
		b.WriteString(fieldDimStyle.Render("  No entries or source files yet. Drop PDFs into " + m.pipeline.Config.InputDir))
		b.WriteString("\n")
		return
	}

	for i, r := range m.rows {
		cursor := "  "
		if i == m.cursor && m.state == stateList {
			cursor = cursorStyle.Render("> ")
		}
		badge := statusStyles[r.status()].Render(fmt.Sprintf("%-10s", r.status()))
		line := fmt.Sprintf("%s%s %s", cursor, badge, r.title())
		if r.entry != nil && r.entry.LastError != "" {
			line += errorStyle.Render("  !")
		}
		b.WriteString(line + "\n")
	}
}

func (m shellModel) viewDetail(b *strings.Builder) {
	e := m.selected
	if e == nil {
		return
	}

	field := func(label string, f catalog.Field, value string) {
		rendered := fieldValueStyle.Render(value)
		if value == "" {
			rendered = fieldDimStyle.Render("(not set)")
		}
		mark := "  "
		if e.IsTouched(f) {
			mark = touchedStyle.Render(" *")
		}
		b.WriteString(fieldLabelStyle.Render(label) + rendered + mark + "\n")
	}

	b.WriteString(fieldLabelStyle.Render("Status") + statusStyles[e.Status].Render(string(e.Status)) + "\n")
	b.WriteString(fieldLabelStyle.Render("Slug") + fieldValueStyle.Render(e.Slug) + "\n")
	b.WriteString(fieldLabelStyle.Render("Source") + fieldValueStyle.Render(e.SourcePath) + "\n")
	field("Title", catalog.FieldTitle, e.Title)
	field("Tags", catalog.FieldTags, strings.Join(e.DisplayTags(), ", "))
	field("Excerpt", catalog.FieldExcerpt, truncate(e.Excerpt, 70))
	field("Image", catalog.FieldImage, e.Image)
	b.WriteString(fieldLabelStyle.Render("Content") + fieldDimStyle.Render(fmt.Sprintf("%d paragraphs, %d min read", e.ParagraphCount, e.ReadTime)))
	if e.IsTouched(catalog.FieldContent) {
		b.WriteString(touchedStyle.Render(" *"))
	}
	b.WriteString("\n")
	b.WriteString(fieldLabelStyle.Render("Publish date") + fieldValueStyle.Render(e.PublishDate) + "\n")
	if e.LastError != "" {
		b.WriteString(fieldLabelStyle.Render("Last error") + errorStyle.Render(e.LastError) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("  * user-edited, survives reprocessing") + "\n")
}

func (m shellModel) viewOrphans(b *strings.Builder) {
	if m.orphans.Empty() {
		b.WriteString(fieldValueStyle.Render("  Catalog and rendered output agree.") + "\n")
		return
	}
	for _, e := range m.orphans.MissingFiles {
		b.WriteString(errorStyle.Render("  missing ") + e.FileName + fieldDimStyle.Render("  ("+string(e.Status)+" entry "+e.Slug+")") + "\n")
	}
	for _, f := range m.orphans.StrayFiles {
		b.WriteString(touchedStyle.Render("  stray   ") + f + fieldDimStyle.Render("  (no catalog entry)") + "\n")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n-3 {
		return string(runes)
	}
	return string(runes[:n-3]) + "..."
}

// runReviewShell opens the interactive catalog shell.
func runReviewShell(ctx context.Context, p *pipeline.Pipeline) error {
	m := newShellModel(ctx, p)

	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := prog.Run()
	if err != nil {
		return fmt.Errorf("shell error: %w", err)
	}
	return nil
}
