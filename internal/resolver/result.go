package resolver

import (
	"fmt"

	"github.com/desertthunder/vibes/internal/models"
)

// Outcome classifies how a resolution ended.
type Outcome int

const (
	// NotFound means every tier returned an empty result set.
	NotFound Outcome = iota
	// Found means a tier returned at least one track.
	Found
	// UpstreamError means a catalog request failed and the cascade was abandoned.
	UpstreamError
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case UpstreamError:
		return "upstream_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Tier is one specificity level of the search cascade.
type Tier int

const (
	// TierExact qualifies both the track and artist fields.
	TierExact Tier = iota + 1
	// TierTitleArtist drops the track field qualifier.
	TierTitleArtist
	// TierTitle searches by title alone.
	TierTitle
)

// Tiers lists the cascade in the order it is tried.
var Tiers = []Tier{TierExact, TierTitleArtist, TierTitle}

// Query builds the catalog query for this tier from already sanitized values.
func (t Tier) Query(title, artist string) string {
	switch t {
	case TierExact:
		return fmt.Sprintf(`track:"%s" artist:"%s"`, title, artist)
	case TierTitleArtist:
		return fmt.Sprintf(`"%s" artist:"%s"`, title, artist)
	default:
		return fmt.Sprintf(`"%s"`, title)
	}
}

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierTitleArtist:
		return "title_artist"
	case TierTitle:
		return "title"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Result is the outcome of resolving a single request.
//
// Track is set only for [Found]. Err is set only for [UpstreamError]. Tier is the tier that
// matched or failed, and zero when no query was issued.
type Result struct {
	Outcome          Outcome
	Track            *models.CatalogTrack
	Tier             Tier
	Query            string
	Attempts         int
	Err              error
	ArtistSimilarity float64
}

// OK reports whether the result carries a track.
func (r Result) OK() bool {
	return r.Outcome == Found && r.Track != nil
}

// Resolution pairs a request with its result.
type Resolution struct {
	Request models.SongRequest
	Result  Result
}

// Entry collapses the resolution to a [models.ResolvedEntry]; NotFound and UpstreamError both become an absent track.
func (r Resolution) Entry() models.ResolvedEntry {
	entry := models.ResolvedEntry{Song: r.Request.Song, Artist: r.Request.Artist}
	if r.Result.OK() {
		entry.Track = r.Result.Track
	}
	return entry
}
