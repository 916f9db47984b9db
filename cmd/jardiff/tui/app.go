package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/jardiff/pkg/jardiff/engine"
	"github.com/jamesainslie/jardiff/pkg/jardiff/launcher"
	"github.com/jamesainslie/jardiff/pkg/jardiff/logging"
	"github.com/jamesainslie/jardiff/pkg/jardiff/report"
	"github.com/jamesainslie/jardiff/pkg/jardiff/textdiff"
	"github.com/jamesainslie/jardiff/pkg/jardiff/types"
)

// AppState represents the current state of the application.
type AppState int

const (
	StateComparing AppState = iota
	StateBrowse
	StateDiff
	StateFailed
)

// progressInterval bounds how often progress reaches the UI.
const progressInterval = 50 * time.Millisecond

// shutdownTimeout bounds the wait for a cancelled comparison.
const shutdownTimeout = 10 * time.Second

// Options configures the TUI application.
type Options struct {
	// Engine configures the comparison. Progress callbacks are installed
	// by the TUI.
	Engine engine.Options

	// Root1 and Root2 label the sources as the user gave them.
	Root1 string
	Root2 string

	// Dir1 and Dir2 are the directories compared.
	Dir1 string
	Dir2 string

	// TextDiff tunes the diff pane.
	TextDiff textdiff.Options

	// Launcher, when set, opens both directories in an external tool.
	Launcher *launcher.Launcher
}

// CompareCompleteMsg is sent when the comparison finishes.
type CompareCompleteMsg struct {
	Result *report.Result
	Err    error
}

// toolLaunchedMsg reports the outcome of starting the external tool.
type toolLaunchedMsg struct {
	tool string
	err  error
}

// tickUIMsg triggers a UI refresh.
type tickUIMsg struct{}

// Model is the main Bubble Tea model.
type Model struct {
	state    AppState
	options  Options
	progress ProgressModel
	tree     *TreeView
	pane     DiffPane

	ctx          context.Context
	cancel       context.CancelFunc
	progressChan chan types.Progress
	done         chan struct{}

	result *report.Result
	err    error
	status string

	width  int
	height int
}

// NewModel creates a new TUI model with the given options.
func NewModel(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		state:        StateComparing,
		options:      opts,
		progress:     NewProgressModel(opts.Root1, opts.Root2),
		pane:         NewDiffPane(76, 16),
		ctx:          ctx,
		cancel:       cancel,
		progressChan: make(chan types.Progress, 100),
		done:         make(chan struct{}),
		width:        80,
		height:       24,
	}
}

// Init starts the comparison.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.progress.spinner.Tick,
		m.startCompare(),
		m.listenForProgress(),
		m.tickUI(),
	)
}

func (m Model) tickUI() tea.Cmd {
	return tea.Tick(progressInterval, func(time.Time) tea.Msg {
		return tickUIMsg{}
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.width = msg.Width
		m.progress.height = msg.Height
		m.pane.SetSize(m.paneSize())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickUIMsg:
		if m.state == StateComparing {
			return m, m.tickUI()
		}
		return m, nil

	case ProgressMsg:
		m.progress.SetProgress(types.Progress(msg))
		return m, m.listenForProgress()

	case CompareCompleteMsg:
		return m.completeCompare(msg), nil

	case toolLaunchedMsg:
		if msg.err != nil {
			m.status = errorTextStyle.Render("launch failed: " + msg.err.Error())
		} else {
			m.status = successTextStyle.Render("started " + msg.tool)
		}
		return m, nil
	}

	if m.state == StateComparing {
		var cmd tea.Cmd
		m.progress.spinner, cmd = m.progress.spinner.Update(msg)
		return m, cmd
	}
	if m.state == StateDiff {
		var cmd tea.Cmd
		m.pane, cmd = m.pane.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) completeCompare(msg CompareCompleteMsg) Model {
	if msg.Err != nil {
		m.err = msg.Err
		m.state = StateFailed
		return m
	}
	m.result = msg.Result
	base := msg.Result.CompareDir
	if base == "" {
		base = "/"
	}
	m.tree = NewTreeView(BuildTree(base, msg.Result.Differences))
	m.state = StateBrowse
	if n := len(msg.Result.Warnings); n > 0 {
		m.status = warningTextStyle.Render(fmt.Sprintf("%d warnings, see the log", n))
	}
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.cancel()
		return m, tea.Quit
	}

	switch m.state {
	case StateComparing:
		if key == "q" || key == "esc" {
			m.cancel()
			return m, tea.Quit
		}

	case StateBrowse:
		return m.handleBrowseKey(key)

	case StateDiff:
		switch key {
		case "q", "esc", "backspace", "left", "h":
			m.state = StateBrowse
			return m, nil
		}
		var cmd tea.Cmd
		m.pane, cmd = m.pane.Update(msg)
		return m, cmd

	case StateFailed:
		if key == "q" || key == "esc" || key == "enter" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) handleBrowseKey(key string) (tea.Model, tea.Cmd) {
	m.status = ""
	switch key {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		m.tree.MoveUp()
	case "down", "j":
		m.tree.MoveDown()
	case "pgup":
		m.tree.Page(-m.treeHeight())
	case "pgdown":
		m.tree.Page(m.treeHeight())
	case "home", "g":
		m.tree.Home()
	case "end", "G":
		m.tree.End()
	case " ":
		m.tree.Toggle()
	case "e":
		m.tree.ExpandAll()
	case "c":
		m.tree.CollapseAll()
	case "enter", "right", "l":
		node := m.tree.Selected()
		switch {
		case node == nil:
		case node.Record != nil && (!node.IsDir || key == "enter"):
			m.pane.Show(node.Record, m.options.TextDiff)
			m.state = StateDiff
		case node.IsDir:
			m.tree.Toggle()
		}
	case "t":
		if m.options.Launcher != nil && m.result != nil {
			return m, launchTool(m.options.Launcher, m.result.Dir1, m.result.Dir2)
		}
		m.status = mutedTextStyle.Render("no diff tool configured, use --tool")
	}
	return m, nil
}

func launchTool(l *launcher.Launcher, left, right string) tea.Cmd {
	return func() tea.Msg {
		tool, err := l.Launch(left, right)
		return toolLaunchedMsg{tool: tool, err: err}
	}
}

// View renders the current state.
func (m Model) View() string {
	switch m.state {
	case StateComparing:
		return m.progress.View()
	case StateBrowse:
		return m.renderBrowse()
	case StateDiff:
		return m.renderDiff()
	case StateFailed:
		return m.renderFailed()
	}
	return ""
}

// chromeLines is the number of rows taken by header and footer around the
// tree or the diff pane.
const chromeLines = 8

func (m Model) treeHeight() int {
	return max(m.height-chromeLines, 1)
}

func (m Model) paneSize() (int, int) {
	return max(m.width-4, 20), max(m.height-chromeLines, 1)
}

func (m Model) renderBrowse() string {
	contentWidth := max(m.width-4, 40)

	var b strings.Builder
	b.WriteString(m.renderHeader(contentWidth))
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.tree.View(contentWidth, m.treeHeight()))
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(keyHints("↑↓", "move", "enter", "open", "space", "fold", "e/c", "expand/collapse", "t", "tool", "q", "quit"))
	b.WriteString("\n")
	b.WriteString(m.status)

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

func (m Model) renderHeader(width int) string {
	r := m.result
	title := titleStyle.Render("jardiff")
	left := mutedTextStyle.Render("left:  ") + truncatePath(m.options.Root1, width-8)
	right := mutedTextStyle.Render("right: ") + truncatePath(m.options.Root2, width-8)

	stats := mutedTextStyle.Render(fmt.Sprintf("%s vs %s files, %d and %d archives, %s",
		humanize.Comma(r.Stats.Files1),
		humanize.Comma(r.Stats.Files2),
		r.Stats.Archives1,
		r.Stats.Archives2,
		r.Stats.Duration.Round(time.Millisecond),
	))

	return strings.Join([]string{title + "  " + stats, left, right, summaryLine(r)}, "\n") + "\n"
}

// summaryLine lists the count of every kind present.
func summaryLine(r *report.Result) string {
	if r.Identical() {
		return successTextStyle.Render("No differences found")
	}
	counts := r.Summary()
	var parts []string
	for _, k := range types.Kinds() {
		if n := counts[k]; n > 0 {
			parts = append(parts, report.KindStyle(k).Render(fmt.Sprintf("%s %d", k, n)))
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderDiff() string {
	contentWidth := max(m.width-4, 40)

	var b strings.Builder
	title := titleStyle.Render(truncatePath(m.pane.Title(), contentWidth-8))
	pct := mutedTextStyle.Render(fmt.Sprintf("%3.0f%%", m.pane.ScrollPercent()*100))
	spacing := max(contentWidth-len([]rune(m.pane.Title()))-5, 1)
	b.WriteString(title + strings.Repeat(" ", spacing) + pct)
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.pane.View())
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(keyHints("↑↓", "scroll", "pgup/pgdn", "page", "esc", "back"))

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

func (m Model) renderFailed() string {
	contentWidth := max(m.width-4, 40)

	var b strings.Builder
	b.WriteString(errorTextStyle.Render("  Comparison failed"))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")
	b.WriteString(errorTextStyle.Render("  " + m.err.Error()))
	b.WriteString("\n\n")
	b.WriteString(center(keyHints("Enter", "Exit"), contentWidth))
	b.WriteString("\n")
	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// startCompare runs the comparison, feeding throttled progress into the
// progress channel and closing it when done.
func (m Model) startCompare() tea.Cmd {
	progressChan := m.progressChan
	done := m.done
	ctx := m.ctx
	opts := m.options
	return func() tea.Msg {
		defer close(done)

		send := types.Throttle(func(p types.Progress) {
			select {
			case progressChan <- p:
			default:
			}
		}, progressInterval)
		engOpts := opts.Engine
		engOpts.Tree.OnProgress = send
		engOpts.Differ.OnProgress = send

		eng, err := engine.New(engOpts)
		if err != nil {
			close(progressChan)
			return CompareCompleteMsg{Err: err}
		}
		res, err := eng.Compare(ctx, opts.Dir1, opts.Dir2)
		close(progressChan)
		if err != nil {
			logging.Get("tui").Warn("comparison stopped", "error", err)
			return CompareCompleteMsg{Err: err}
		}
		return CompareCompleteMsg{Result: res}
	}
}

// listenForProgress waits for the next progress event.
func (m Model) listenForProgress() tea.Cmd {
	progressChan := m.progressChan
	return func() tea.Msg {
		p, ok := <-progressChan
		if !ok {
			return nil
		}
		return ProgressMsg(p)
	}
}

// Result returns the comparison result once available.
func (m Model) Result() *report.Result {
	return m.result
}

// Err returns the comparison error, if any.
func (m Model) Err() error {
	return m.err
}

// Run starts the TUI and returns the comparison result. Quitting before
// the comparison finished cancels it and returns context.Canceled.
func Run(opts Options) (*report.Result, error) {
	model := NewModel(opts)

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	final, err := p.Run()
	model.cancel()
	// Wait for the comparison to release its scratch space. It may never
	// have started if the program failed early.
	select {
	case <-model.done:
	case <-time.After(shutdownTimeout):
	}
	if err != nil {
		return nil, err
	}

	m, ok := final.(Model)
	if !ok {
		return nil, errors.New("unexpected model type")
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return nil, context.Canceled
	}
	return m.result, nil
}
