package tasks

import (
	"fmt"

	"github.com/desertthunder/vibes/internal/models"
	"github.com/desertthunder/vibes/internal/services"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ParsePrompt Phase = iota
	SearchTracks
	LookupUser
	CreatePlaylist
	AddTracks
	ExportReport
)

func (p Phase) String() string {
	switch p {
	case ParsePrompt:
		return "parse_prompt"
	case SearchTracks:
		return "search_tracks"
	case LookupUser:
		return "lookup_user"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	case ExportReport:
		return "export_report"
	default:
		return ""
	}
}

func parsePromptUpdate(prompt string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ParsePrompt,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Asking the model about %q...", prompt),
	}
}

func parsedPromptUpdate(outcome *services.ParseOutcome) ProgressUpdate {
	if !outcome.OK() {
		return ProgressUpdate{Phase: ParsePrompt, Step: 1, Total: 1, Message: outcome.Warning, Data: outcome}
	}
	return ProgressUpdate{
		Phase:   ParsePrompt,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Mood: %s, genre: %s (%d songs)", outcome.Parsed.Mood, outcome.Parsed.Genre, len(outcome.Parsed.Playlist)),
		Data:    outcome,
	}
}

func searchTracksUpdate(done, total int) ProgressUpdate {
	if done == 0 {
		return ProgressUpdate{
			Phase:   SearchTracks,
			Step:    0,
			Total:   total,
			Message: fmt.Sprintf("Searching the catalog for %d songs...", total),
		}
	}
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    done,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] searched", done, total),
	}
}

func resolvedTracksUpdate(matched, total int, entries []models.ResolvedEntry) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Matched %d of %d songs", matched, total),
		Data:    entries,
	}
}

func lookupUserUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: LookupUser, Step: 1, Total: 1, Message: "Looking up your account..."}
}

func createPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist %q...", name),
	}
}

func addTracksUpdate(n int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    0,
		Total:   n,
		Message: fmt.Sprintf("Adding %d tracks...", n),
	}
}

func playlistReadyUpdate(pl *models.Playlist, added int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist ready: %s (%d tracks) %s", pl.Name, added, pl.URL),
		Data:    pl,
	}
}

func exportingUpdate(step, total int, prompt string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportReport,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, prompt),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportReport,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, prompt string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportReport,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, prompt, err),
	}
}
