package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vibes/internal/models"
	"github.com/desertthunder/vibes/internal/shared"
	"github.com/desertthunder/vibes/internal/tasks"
)

// ViewState represents the current view in the TUI
type ViewState int

const (
	PromptView ViewState = iota
	WorkingView
	TrackListView
	ConfirmView
	ResultView
)

// Engine is the subset of [tasks.PlaylistEngine] the TUI drives.
type Engine interface {
	Run(ctx context.Context, token, prompt string, opts tasks.RunOptions, progress chan<- tasks.ProgressUpdate) (*models.Report, error)
	Build(ctx context.Context, token, userID string, parsed *models.ParsedPrompt, progress chan<- tasks.ProgressUpdate) (*tasks.BuildResult, error)
}

// Model is the root bubbletea model for the vibes TUI.
type Model struct {
	ctx    context.Context
	engine Engine
	token  string
	view   ViewState

	input     textinput.Model
	spinner   spinner.Model
	trackList list.Model
	help      help.Model
	keys      keyMap

	report   *models.Report
	build    *tasks.BuildResult
	progress tasks.ProgressUpdate
	updates  []tasks.ProgressUpdate

	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg

	open   func(string) error
	err    error
	width  int
	height int
}

// NewModel creates a TUI model that runs vibes through engine with the given access token.
func NewModel(ctx context.Context, engine Engine, token string) Model {
	input := textinput.New()
	input.Placeholder = "rainy sunday morning, jazzy and slow"
	input.CharLimit = 280
	input.Width = 60
	input.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.title.UnsetMarginBottom()

	delegate := list.NewDefaultDelegate()
	trackList := list.New([]list.Item{}, delegate, 0, 0)
	trackList.Title = "Tracks"
	trackList.SetShowStatusBar(true)
	trackList.SetFilteringEnabled(true)
	trackList.Styles.Title = styles.title

	return Model{
		ctx:       ctx,
		engine:    engine,
		token:     token,
		view:      PromptView,
		input:     input,
		spinner:   s,
		trackList: trackList,
		help:      help.New(),
		keys:      newKeyMap(),
		open:      shared.OpenBrowser,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.trackList.SetSize(msg.Width, msg.Height-4)
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case spinner.TickMsg:
		if m.view != WorkingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == PromptView {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.progress = update
		m.updates = append(m.updates, update)
		return m, m.waitForProgress()
	case MsgRunComplete:
		res := msg.data.(runResult)
		m.stopJob()
		if res.err != nil {
			m.err = res.err
			m.view = PromptView
			m.input.Focus()
			return m, nil
		}
		m.err = nil
		m.report = res.report
		m.trackList.Title = res.report.Name
		m.trackList.SetItems(entryItems(res.report.Entries))
		m.view = TrackListView
		return m, nil
	case MsgBuildComplete:
		res := msg.data.(buildResult)
		m.stopJob()
		m.build = res.result
		m.err = res.err
		if res.result != nil && m.report != nil {
			m.report.Playlist = res.result.Playlist
			m.report.Entries = res.result.Entries
		}
		if res.result == nil && res.err != nil {
			m.view = TrackListView
			return m, nil
		}
		m.view = ResultView
		return m, nil
	case MsgOpened:
		if err, ok := msg.data.(error); ok && err != nil {
			m.err = err
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.view {
	case PromptView:
		return m.handlePromptKeys(msg)
	case WorkingView:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		return m, nil
	case TrackListView:
		return m.handleTrackListKeys(msg)
	case ConfirmView:
		return m.handleConfirmKeys(msg)
	case ResultView:
		return m.handleResultKeys(msg)
	}
	return m, nil
}

func (m Model) handlePromptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.submit):
		prompt := strings.TrimSpace(m.input.Value())
		if prompt == "" {
			return m, nil
		}
		m.err = nil
		m.report = nil
		m.build = nil
		m.view = WorkingView
		m.input.Blur()
		return m, m.startRun(prompt)
	case msg.Type == tea.KeyEsc:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if m.report == nil || m.report.MatchedCount() == 0 {
			m.err = errors.New("no matched tracks to add")
			return m, nil
		}
		m.err = nil
		m.view = ConfirmView
		return m, nil
	case key.Matches(msg, m.keys.back):
		m.view = PromptView
		m.input.Focus()
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = WorkingView
		return m, m.startBuild()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = TrackListView
		return m, nil
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.open):
		if m.build == nil || m.build.Playlist == nil || m.build.Playlist.URL == "" {
			return m, nil
		}
		url, open := m.build.Playlist.URL, m.open
		return m, func() tea.Msg { return openedMsg(open(url)) }
	case key.Matches(msg, m.keys.restart):
		m.view = PromptView
		m.report = nil
		m.build = nil
		m.err = nil
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

// startRun generates and resolves the vibe in the background.
func (m *Model) startRun(prompt string) tea.Cmd {
	m.startJob()
	ctx, engine, token := m.ctx, m.engine, m.token
	progress, done := m.progressChan, m.doneChan

	go func() {
		report, err := engine.Run(ctx, token, prompt, tasks.RunOptions{}, progress)
		done <- runCompleteMsg(report, err)
	}()

	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

// startBuild creates the playlist from the current report in the background.
func (m *Model) startBuild() tea.Cmd {
	m.startJob()
	ctx, engine, token := m.ctx, m.engine, m.token
	progress, done := m.progressChan, m.doneChan
	parsed := m.report.Parsed

	go func() {
		result, err := engine.Build(ctx, token, "", parsed, progress)
		done <- buildCompleteMsg(result, err)
	}()

	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

func (m *Model) startJob() {
	m.progress = tasks.ProgressUpdate{}
	m.updates = nil
	m.progressChan = make(chan tasks.ProgressUpdate, 100)
	m.doneChan = make(chan Msg, 1)
}

func (m *Model) stopJob() {
	m.progressChan = nil
	m.doneChan = nil
}

// waitForProgress waits for the next progress update or the job's completion message.
func (m Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	if done == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case update := <-progress:
			return progressUpdateMsg(update)
		case msg := <-done:
			return msg
		}
	}
}

func (m Model) View() string {
	var b strings.Builder

	switch m.view {
	case PromptView:
		b.WriteString(m.renderPromptView())
	case WorkingView:
		b.WriteString(m.renderWorkingView())
	case TrackListView:
		b.WriteString(m.trackList.View())
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(styles.err.Render("Error: "+m.err.Error()) + "\n")
		}
		b.WriteString(styles.help.Render("enter: build playlist • esc: new vibe • /: filter • q: quit"))
	case ConfirmView:
		b.WriteString(m.renderConfirmView())
	case ResultView:
		b.WriteString(m.renderResultView())
	}

	return b.String()
}

func (m Model) renderPromptView() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("What's the vibe?"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(styles.err.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
	}

	b.WriteString(styles.help.Render("enter: find tracks • esc: quit"))
	return b.String()
}

func (m Model) renderWorkingView() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Working"))
	b.WriteString("\n")
	b.WriteString(m.spinner.View() + " ")
	if m.progress.Message != "" {
		b.WriteString(m.progress.Message)
	} else {
		b.WriteString("Starting...")
	}
	b.WriteString("\n")

	if m.progress.Total > 0 {
		fmt.Fprintf(&b, "%s %d/%d\n", m.progress.Phase, m.progress.Step, m.progress.Total)
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderConfirmView() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Build Playlist"))
	b.WriteString("\n")

	if m.report != nil {
		fmt.Fprintf(&b, "Name: %s\n", m.report.Name)
		fmt.Fprintf(&b, "Tracks: %d of %d matched\n", m.report.MatchedCount(), len(m.report.Entries))
	}

	b.WriteString("\n")
	b.WriteString(styles.warn.Render("Create this playlist in your account?"))
	b.WriteString("\n\n")
	b.WriteString(styles.help.Render("y: yes • n: no"))
	return b.String()
}

func (m Model) renderResultView() string {
	var b strings.Builder

	if m.err != nil {
		b.WriteString(styles.err.Render("Playlist created with errors"))
		b.WriteString("\n\n")
		b.WriteString(styles.err.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
	} else {
		b.WriteString(styles.ok.Render("✓ Playlist Ready"))
		b.WriteString("\n\n")
	}

	if m.build != nil && m.build.Playlist != nil {
		fmt.Fprintf(&b, "Name: %s\n", m.build.Playlist.Name)
		fmt.Fprintf(&b, "URL: %s\n", m.build.Playlist.URL)
		fmt.Fprintf(&b, "Tracks added: %d/%d\n", m.build.Added, len(m.build.Entries))

		var missing []string
		for _, e := range m.build.Entries {
			if !e.Matched() {
				missing = append(missing, fmt.Sprintf("  - %s by %s", e.Song, e.Artist))
			}
		}
		if len(missing) > 0 {
			b.WriteString("\n")
			b.WriteString(styles.warn.Render("Not found:"))
			b.WriteString("\n")
			b.WriteString(strings.Join(missing, "\n"))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.help.Render("o: open in browser • r: new vibe • q: quit"))
	return b.String()
}
