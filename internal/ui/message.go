package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vibes/internal/models"
	"github.com/desertthunder/vibes/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgRunComplete
	MsgBuildComplete
	MsgOpened
)

type runResult struct {
	report *models.Report
	err    error
}

type buildResult struct {
	result *tasks.BuildResult
	err    error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// runCompleteMsg is the constructor for [MsgRunComplete]
func runCompleteMsg(report *models.Report, err error) Msg {
	return Msg{kind: MsgRunComplete, data: runResult{report, err}}
}

// buildCompleteMsg is the constructor for [MsgBuildComplete]
func buildCompleteMsg(result *tasks.BuildResult, err error) Msg {
	return Msg{kind: MsgBuildComplete, data: buildResult{result, err}}
}

// openedMsg is the constructor for [MsgOpened]
func openedMsg(err error) Msg {
	return Msg{kind: MsgOpened, data: err}
}
