// Package trend counts external documents per calendar month for a set of
// terms.
package trend

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"restaurantbot/internal/domain"
)

// Mode selects how terms combine.
type Mode string

const (
	// ModeAll requires every term to appear.
	ModeAll Mode = "all"
	// ModeAny requires at least one term to appear.
	ModeAny Mode = "any"
)

// ParseMode converts a string to a Mode. The empty string means ModeAll.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return ModeAll, nil
	case "any":
		return ModeAny, nil
	default:
		return "", fmt.Errorf("%w: invalid trend mode %q (valid: all, any)", domain.ErrInvalidRequest, s)
	}
}

const (
	// daysPerMonth approximates a month for the look-back window, so a
	// 12-month window spans 372 days.
	daysPerMonth = 31
	maxSamples   = 3
)

// Window returns the look-back window ending at now.
func Window(now time.Time, months int) (start, end time.Time) {
	return now.AddDate(0, 0, -months*daysPerMonth), now
}

// Query describes one trend computation.
type Query struct {
	Terms       []string
	MustInclude string
	Months      int
	Mode        Mode
}

// MonthlyTrend buckets chunks published inside the window by "YYYY-MM" of
// their UTC publish time. Chunks without a parsable date are skipped.
// Buckets come back in ascending month order; empty months are omitted.
func MonthlyTrend(chunks []domain.Chunk, q Query, now time.Time) []domain.TrendBucket {
	now = now.UTC()
	start, end := Window(now, q.Months)
	terms := lowerAll(q.Terms)
	must := strings.ToLower(strings.TrimSpace(q.MustInclude))

	counts := make(map[string]*domain.TrendBucket)
	for _, ch := range chunks {
		pub, ok := ParsePublished(ch.Published)
		if !ok || pub.Before(start) || pub.After(end) {
			continue
		}
		text := strings.ToLower(strings.TrimSpace(ch.Text) + " " + strings.TrimSpace(ch.Title))
		if must != "" && !strings.Contains(text, must) {
			continue
		}
		if !matches(text, terms, q.Mode) {
			continue
		}
		key := pub.Format("2006-01")
		b, ok := counts[key]
		if !ok {
			b = &domain.TrendBucket{Month: key, Samples: []domain.Sample{}}
			counts[key] = b
		}
		b.Count++
		if len(b.Samples) < maxSamples {
			b.Samples = append(b.Samples, domain.Sample{Title: ch.Title, URL: ch.URL})
		}
	}

	out := make([]domain.TrendBucket, 0, len(counts))
	for _, b := range counts {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// ParsePublished parses a feed date into UTC. Timestamps without a zone are
// taken as UTC.
func ParsePublished(published *string) (time.Time, bool) {
	if published == nil {
		return time.Time{}, false
	}
	s := strings.TrimSpace(*published)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func matches(text string, terms []string, mode Mode) bool {
	if mode == ModeAny {
		for _, t := range terms {
			if strings.Contains(text, t) {
				return true
			}
		}
		return false
	}
	for _, t := range terms {
		if !strings.Contains(text, t) {
			return false
		}
	}
	return true
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
