package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/vibes/internal/models"
)

var _ list.Item = entryItem{}

// entryItem wraps [models.ResolvedEntry] to implement [list.Item].
type entryItem struct {
	entry models.ResolvedEntry
}

func (i entryItem) FilterValue() string { return i.entry.Song }

func (i entryItem) Title() string {
	if !i.entry.Matched() {
		return styles.warn.Render("✗ " + i.entry.Song)
	}
	return "✓ " + i.entry.Track.Name
}

func (i entryItem) Description() string {
	if !i.entry.Matched() {
		return fmt.Sprintf("%s • no match", i.entry.Artist)
	}
	desc := i.entry.Track.PrimaryArtist()
	if album := i.entry.Track.Album.Name; album != "" {
		desc = fmt.Sprintf("%s • %s", desc, album)
	}
	return desc
}

func entryItems(entries []models.ResolvedEntry) []list.Item {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = entryItem{entry: e}
	}
	return items
}
