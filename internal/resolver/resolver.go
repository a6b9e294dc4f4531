package resolver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibes/internal/models"
	"github.com/desertthunder/vibes/internal/shared"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single catalog search when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// artistWarnThreshold is the Jaro-Winkler similarity below which a match is logged as a likely different artist.
const artistWarnThreshold = 0.8

// Catalog searches the music catalog for tracks.
//
// Implementations return the items of the result set in catalog relevance order, requesting
// at most one item of type track.
type Catalog interface {
	SearchTracks(ctx context.Context, token, query string) ([]models.CatalogTrack, error)
}

// upstreamDetail is implemented by errors that carry an HTTP status and raw body.
type upstreamDetail interface {
	StatusCode() int
	RawBody() string
}

// Options configures a [Resolver].
type Options struct {
	Catalog Catalog
	Logger  *log.Logger
	Timeout time.Duration
}

// Resolver maps (song, artist) pairs to catalog tracks. It holds no per-request state and is safe for concurrent use.
type Resolver struct {
	catalog Catalog
	logger  *log.Logger
	timeout time.Duration
}

// New creates a Resolver. A zero timeout uses [DefaultTimeout]; a negative timeout disables it.
func New(opts Options) *Resolver {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Resolver{
		catalog: opts.Catalog,
		logger:  shared.WithLogger(opts.Logger, "component", "resolver"),
		timeout: opts.Timeout,
	}
}

// Resolve finds the best-guess catalog track for req. It never returns an error; failures are
// reported through [Result.Outcome] and logged.
func (r *Resolver) Resolve(ctx context.Context, token string, req models.SongRequest) Result {
	title := Sanitize(req.Song)
	artist := Sanitize(req.Artist)

	if title == "" {
		r.logger.Warn("skipping entry without a title", "artist", req.Artist)
		return Result{Outcome: NotFound}
	}

	var result Result
	for _, tier := range Tiers {
		query := tier.Query(title, artist)
		result.Tier = tier
		result.Query = query
		result.Attempts++

		items, err := r.search(ctx, token, query)
		if err != nil {
			result.Outcome = UpstreamError
			result.Err = err
			r.logFailure(req, tier, err)
			return result
		}

		if len(items) > 0 {
			track := items[0]
			result.Outcome = Found
			result.Track = &track
			result.ArtistSimilarity = r.checkArtist(req, artist, tier, track)
			r.logger.Debug("resolved track", "song", req.Song, "artist", req.Artist, "tier", tier, "id", track.ID)
			return result
		}
	}

	r.logger.Info("no catalog match", "song", req.Song, "artist", req.Artist)
	result.Outcome = NotFound
	return result
}

func (r *Resolver) search(ctx context.Context, token, query string) ([]models.CatalogTrack, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.catalog.SearchTracks(ctx, token, query)
}

func (r *Resolver) logFailure(req models.SongRequest, tier Tier, err error) {
	kv := []any{"song", req.Song, "artist", req.Artist, "tier", tier, "error", err}

	var detail upstreamDetail
	if errors.As(err, &detail) {
		kv = append(kv, "status", detail.StatusCode(), "body", detail.RawBody())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		kv = append(kv, "timeout", r.timeout)
	}

	r.logger.Error("catalog search failed", kv...)
}

// checkArtist scores the requested artist against the matched track's artist. The score is
// diagnostic only and never changes which track is returned.
func (r *Resolver) checkArtist(req models.SongRequest, artist string, tier Tier, track models.CatalogTrack) float64 {
	matched := track.PrimaryArtist()
	if artist == "" || matched == "" {
		return 0
	}

	score := strutil.Similarity(strings.ToLower(artist), strings.ToLower(matched), metrics.NewJaroWinkler())
	if score < artistWarnThreshold {
		r.logger.Warn("matched track credits a different artist",
			"song", req.Song, "requested", req.Artist, "matched", matched, "tier", tier, "similarity", score)
	}
	return score
}

// ResolveBatch resolves every request concurrently and waits for all of them to finish.
//
// No resolution cancels another. The returned slice has the same length and order as reqs.
// onDone, if non-nil, is called after each resolution with the number completed so far; calls are serialized.
func (r *Resolver) ResolveBatch(ctx context.Context, token string, reqs []models.SongRequest, onDone func(done, total int)) []Resolution {
	out := make([]Resolution, len(reqs))

	var (
		mu   sync.Mutex
		done int
		g    errgroup.Group
	)

	for i, req := range reqs {
		g.Go(func() error {
			out[i] = Resolution{Request: req, Result: r.Resolve(ctx, token, req)}

			if onDone != nil {
				mu.Lock()
				done++
				onDone(done, len(reqs))
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return out
}

// ResolveAll resolves every request concurrently and returns one entry per request, in input order.
//
// Unmatched entries are kept with a nil track; use [models.Matched] to drop them.
func (r *Resolver) ResolveAll(ctx context.Context, token string, reqs []models.SongRequest) []models.ResolvedEntry {
	resolutions := r.ResolveBatch(ctx, token, reqs, nil)

	entries := make([]models.ResolvedEntry, len(resolutions))
	for i, res := range resolutions {
		entries[i] = res.Entry()
	}
	return entries
}
