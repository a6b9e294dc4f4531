// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through a vibe in five views:
//  1. [PromptView] : Type a vibe
//  2. [WorkingView] : Spinner and live progress while the model answers and tracks are resolved
//  3. [TrackListView] : Browse matched and unmatched songs
//  4. [ConfirmView] : Confirm playlist creation
//  5. [ResultView] : Playlist link and the songs that could not be found
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the PlaylistEngine, providing non-blocking status reporting.
package ui
