// Package gateway fronts the weather and text-generation providers with
// process-wide caches. Provider failures never leave this package: callers
// always get a snapshot or a standard message to fall back on.
package gateway

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/jmhodges/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/floramind/floramind/internal/llm"
	"github.com/floramind/floramind/internal/reminder"
	"github.com/floramind/floramind/internal/weather"
)

// maxInFlightPersonalizations caps concurrent text-generation calls per
// batch to stay under provider rate limits.
const maxInFlightPersonalizations = 5

const personalizeTimeout = 10 * time.Second
const translateTimeout = 10 * time.Second

// WeatherFetcher is the outbound weather dependency.
type WeatherFetcher interface {
	Current(ctx context.Context, city string) (*weather.Snapshot, error)
}

type cachedSnapshot struct {
	snap      weather.Snapshot
	fetchedAt time.Time
}

// Gateway owns the weather snapshot cache (TTL-bounded) and the city
// translation cache (indefinite). Both are keyed by immutable strings and
// written by whole-entry replacement, so two concurrent misses for the same
// key may both fetch; the last write wins. That duplication is accepted
// rather than locked away.
type Gateway struct {
	weather WeatherFetcher
	llm     llm.Client // nil when no provider is configured
	clk     clock.Clock
	ttl     time.Duration
	log     *zap.SugaredLogger

	mu        sync.RWMutex
	snapshots map[string]cachedSnapshot

	tmu          sync.RWMutex
	translations map[string]string
}

// New creates a Gateway. A nil llmClient disables translation and
// personalization; weather still works with untranslated labels.
func New(weatherClient WeatherFetcher, llmClient llm.Client, clk clock.Clock, ttl time.Duration, log *zap.SugaredLogger) *Gateway {
	return &Gateway{
		weather:      weatherClient,
		llm:          llmClient,
		clk:          clk,
		ttl:          ttl,
		log:          log,
		snapshots:    make(map[string]cachedSnapshot),
		translations: make(map[string]string),
	}
}

// CurrentWeather returns the current conditions for a city. Cache hits skip
// the provider entirely. On any provider failure it returns the fixed
// default snapshot without caching it, so the next call retries.
func (g *Gateway) CurrentWeather(ctx context.Context, city string) weather.Snapshot {
	g.mu.RLock()
	entry, ok := g.snapshots[city]
	g.mu.RUnlock()
	if ok && g.clk.Now().Sub(entry.fetchedAt) < g.ttl {
		return entry.snap
	}

	query := city
	if !isLatin(city) {
		query = g.TranslateCity(ctx, city)
	}

	snap, err := g.weather.Current(ctx, query)
	if err != nil {
		g.log.Warnw("weather fetch failed, serving default", "city", city, "err", err)
		return weather.Default(city)
	}

	// Cache under the original label so repeat lookups hit without
	// re-translating.
	snap.City = city
	snap.FetchedAt = g.clk.Now()
	g.mu.Lock()
	g.snapshots[city] = cachedSnapshot{snap: *snap, fetchedAt: snap.FetchedAt}
	g.mu.Unlock()

	return *snap
}

const translateInstruction = "You translate city names. Reply with only the Latin/English form of the given city name, with no punctuation and no extra words."

// TranslateCity resolves a city label to a provider-compatible Latin name.
// Translations never expire. On provider failure the label is returned
// unchanged; the weather call will then fail on its own and fall back.
func (g *Gateway) TranslateCity(ctx context.Context, label string) string {
	g.tmu.RLock()
	translated, ok := g.translations[label]
	g.tmu.RUnlock()
	if ok {
		return translated
	}

	if g.llm == nil {
		return label
	}

	ctx, cancel := context.WithTimeout(ctx, translateTimeout)
	defer cancel()

	resp, err := g.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: translateInstruction},
			{Role: "user", Content: label},
		},
		Temperature: 0,
		MaxTokens:   30,
	})
	if err != nil {
		g.log.Warnw("city translation failed", "city", label, "err", err)
		return label
	}

	clean := stripPunct(strings.TrimSpace(resp.Content))
	if clean == "" {
		return label
	}

	g.tmu.Lock()
	g.translations[label] = clean
	g.tmu.Unlock()

	return clean
}

const personaInstruction = `You are a cute, caring plant sprite with the occasional small temper.
Given the plant, how many days its care is overdue, and the current weather,
write one short reminder (about 50 words) to the plant's owner.
Speak in first person as the plant. If the overdue count is long (>7 days) sound
hurt or cross; if it is short (<3 days) sound sweet and hopeful. Work the weather
in when it matters for watering. Emoji are welcome.`

// Personalize generates one reminder message for a plant. The second return
// is false when the provider is unavailable or fails; callers keep the
// standard message in that case.
func (g *Gateway) Personalize(ctx context.Context, plantName string, action reminder.Action, daysOverdue int, weatherText string) (string, bool) {
	if g.llm == nil {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, personalizeTimeout)
	defer cancel()

	user := "I am " + plantName + ".\n" +
		"Status: " + strings.TrimSpace(overduePhrase(daysOverdue, action)) + "\n" +
		"Weather outside: " + weatherText + "\n" +
		"Say something to my owner:"

	resp, err := g.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: personaInstruction},
			{Role: "user", Content: user},
		},
		Temperature: 0.8,
		MaxTokens:   100,
	})
	if err != nil {
		g.log.Warnw("personalization failed", "plant", plantName, "err", err)
		return "", false
	}

	text := strings.Trim(strings.TrimSpace(resp.Content), `"'“”‘’`)
	if text == "" {
		return "", false
	}
	return text, true
}

func overduePhrase(daysOverdue int, action reminder.Action) string {
	verb := "watered"
	if action == reminder.ActionFertilize {
		verb = "fertilized"
	}
	if daysOverdue == 0 {
		return "due to be " + verb + " now."
	}
	return "not " + verb + " for " + strconv.Itoa(daysOverdue) + " days past schedule."
}

// PersonalizeAll fills in the Personalized field of each record, fanning the
// provider calls out concurrently with per-record isolation: one slow or
// failing call never blocks or fails the rest, so total wall time is bounded
// by the slowest single call.
func (g *Gateway) PersonalizeAll(ctx context.Context, records []reminder.Record, weatherText string) {
	grp := &errgroup.Group{}
	grp.SetLimit(maxInFlightPersonalizations)

	for i := range records {
		rec := &records[i]
		grp.Go(func() error {
			if msg, ok := g.Personalize(ctx, rec.PlantName, rec.Action, rec.DaysOverdue, weatherText); ok {
				rec.Personalized = msg
			}
			return nil
		})
	}
	grp.Wait()
}

// isLatin reports whether every rune of the label is plain ASCII, which is
// what the weather provider accepts for city names.
func isLatin(label string) bool {
	for _, r := range label {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// stripPunct removes punctuation the model sometimes appends to a
// translated name.
func stripPunct(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return r
	}, s)
}
