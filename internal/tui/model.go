package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"restaurantbot/internal/domain"
	"restaurantbot/internal/service"
)

// EvidencePort is the TUI-facing subset of the service.
type EvidencePort interface {
	Evidence(ctx context.Context, query, city string, kInternal, kExternal int) (service.Evidence, error)
}

// Options sets the result sizes used for every query.
type Options struct {
	City      string
	KInternal int
	KExternal int
	Timeout   time.Duration
}

// entry is one browsable bundle item.
type entry struct {
	tag   string
	title string
	score domain.Score
	meta  string
	text  string
}

// Model is the Bubble Tea model for the evidence browser.
type Model struct {
	service   EvidencePort
	opts      Options
	input     textinput.Model
	viewport  viewport.Model
	entries   []entry
	summary   string
	status    string
	cursor    int
	ready     bool
	lastQuery string
}

// New creates a new TUI model instance.
func New(svc EvidencePort, opts Options) Model {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about restaurants and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{service: svc, opts: opts, input: ti, viewport: vp, status: "Ready. Type to search."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// evidenceMsg carries the result of an asynchronous lookup.
type evidenceMsg struct {
	query string
	ev    service.Evidence
	err   error
}

func (m Model) lookup(q string) tea.Cmd {
	svc, opts := m.service, m.opts
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
		defer cancel()
		ev, err := svc.Evidence(ctx, q, opts.City, opts.KInternal, opts.KExternal)
		return evidenceMsg{query: q, ev: ev, err: err}
	}
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + summary, status, spacer
		vh := max(3, msg.Height-reserved)
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case evidenceMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error (%s): %v", domain.KindOf(msg.err), msg.err)
			m.entries = nil
			m.summary = ""
		} else {
			m.entries = flatten(msg.ev.Contexts)
			m.summary = msg.ev.Summary
			m.cursor = 0
			m.lastQuery = msg.query
			m.status = fmt.Sprintf("%d internal, %d external for %q",
				len(msg.ev.Contexts.Internal), len(msg.ev.Contexts.External), msg.query)
		}
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if q := strings.TrimSpace(m.input.Value()); q != "" {
				m.status = "Searching..."
				return m, m.lookup(q)
			}
		case "down":
			if len(m.entries) > 0 {
				m.cursor = (m.cursor + 1) % len(m.entries)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		case "up":
			if len(m.entries) > 0 {
				m.cursor = (m.cursor - 1 + len(m.entries)) % len(m.entries)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current entry.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Restaurant Evidence")
	summary := summaryStyle.Render(firstLine(m.summary))
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func flatten(b domain.Bundle) []entry {
	out := make([]entry, 0, len(b.Internal)+len(b.External))
	for i, h := range b.Internal {
		out = append(out, entry{
			tag:   fmt.Sprintf("IN-%d", i+1),
			title: h.RestaurantName,
			score: h.Score,
			meta:  strings.Trim(strings.Join([]string{h.City, h.State, h.Categories}, " · "), " ·"),
			text:  h.Text,
		})
	}
	for i, h := range b.External {
		meta := h.Source
		if h.Published != nil {
			meta += " · " + *h.Published
		}
		out = append(out, entry{
			tag:   fmt.Sprintf("EX-%d", i+1),
			title: h.Title,
			score: h.Score,
			meta:  meta,
			text:  h.Text,
		})
	}
	return out
}

func (m Model) renderCurrent() string {
	if len(m.entries) == 0 {
		return "No results yet."
	}
	e := m.entries[m.cursor]
	tagStyle := internalTagStyle
	if strings.HasPrefix(e.tag, "EX") {
		tagStyle = externalTagStyle
	}
	title := fmt.Sprintf("%s %s  (%d/%d)  score=%.3f",
		tagStyle.Render("["+e.tag+"]"), e.title, m.cursor+1, len(m.entries), float64(e.score))
	meta := summaryStyle.Render(e.meta)
	return title + "\n" + meta + "\n\n" + highlightBestSentence(e.text, m.lastQuery)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

var (
	resultBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	summaryStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	internalTagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	externalTagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	unicodeWordRe    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe       = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore, bestIdx = score, i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := map[string]struct{}{}
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
