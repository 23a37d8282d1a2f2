package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurantbot/internal/domain"
)

func TestSummarizeKeepsOriginalOrder(t *testing.T) {
	text := "Ramen is popular. The weather was mild. Ramen shops serve spicy ramen broth. Parking is hard."
	out, err := NewFrequencySummarizer().Summarize(text, 2)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Ramen is popular."))
	assert.Contains(t, out, "Ramen shops serve spicy ramen broth.")
	assert.NotContains(t, out, "weather")
}

func TestSummarizeWithoutSentences(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize("  no terminal punctuation  ", 3)
	require.NoError(t, err)
	assert.Equal(t, "no terminal punctuation", out)
}

func TestEvidenceText(t *testing.T) {
	b := domain.Bundle{
		Internal: []domain.RecordHit{{Record: domain.Record{Text: "Great tacos"}}, {Record: domain.Record{Text: "  "}}},
		External: []domain.ChunkHit{{Chunk: domain.Chunk{Text: strings.Repeat("é", MaxContextChars+10)}}},
	}
	text := EvidenceText(b)
	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Great tacos.", lines[0])
	assert.Equal(t, MaxContextChars+1, len([]rune(lines[1])))

	sum, err := SummarizeBundle(NewFrequencySummarizer(), b, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, sum)
}

func TestClip(t *testing.T) {
	assert.Equal(t, "añ", Clip("añejo", 2))
	assert.Equal(t, "ok", Clip("ok", 5))
}
