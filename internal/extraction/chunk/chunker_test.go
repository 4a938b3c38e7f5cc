package chunk

import (
	"strings"
	"testing"

	"github.com/specvital/worker/internal/domain/extraction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_Split_ShortTextIsSingleChunk(t *testing.T) {
	c := New(Config{ChunkSize: 100, ChunkOverlap: 10})
	chunks := c.Split("a short piece of text", "seg-1")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "seg-1", chunks[0].SourceSegmentID)
	assert.Equal(t, 0, chunks[0].CharOffset)
}

func TestChunker_Split_RespectsChunkSizeBound(t *testing.T) {
	c := New(Config{ChunkSize: 50, ChunkOverlap: 10})
	text := strings.Repeat("paragraph one sentence. ", 30) + "\n\n" + strings.Repeat("paragraph two sentence. ", 30)

	chunks := c.Split(text, "seg-1")
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Text), c.cfg.ChunkSize+c.cfg.ChunkOverlap)
	}
}

func TestChunker_Split_PreservesWhitespaceBetweenWords(t *testing.T) {
	c := New(Config{ChunkSize: 50, ChunkOverlap: 10})
	text := strings.Repeat("paragraph one sentence. ", 30) + "\n\n" + strings.Repeat("paragraph two sentence. ", 30)

	chunks := c.Split(text, "seg-1")
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.NotContains(t, ch.Text, "paragraphonesentence")
		assert.NotContains(t, ch.Text, "paragraphtwosentence")
	}
}

func TestChunker_Split_IndexesAreSequentialFromZero(t *testing.T) {
	c := New(Config{ChunkSize: 20, ChunkOverlap: 5})
	text := strings.Repeat("word ", 50)

	chunks := c.Split(text, "seg-1")
	require.True(t, len(chunks) > 1)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
}

func TestChunker_Split_HardSplitsWhenNoSeparatorFits(t *testing.T) {
	c := New(Config{ChunkSize: 10, ChunkOverlap: 2})
	text := strings.Repeat("x", 55)

	chunks := c.Split(text, "seg-1")
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Text), c.cfg.ChunkSize+c.cfg.ChunkOverlap)
		assert.NotEmpty(t, ch.Text)
	}
}

func TestChunker_SplitSegments_ReindexesAcrossSegments(t *testing.T) {
	c := New(Config{ChunkSize: 20, ChunkOverlap: 0})
	segs := []extraction.Segment{
		{Text: strings.Repeat("alpha ", 10), Metadata: map[string]string{"segment_id": "s0"}},
		{Text: strings.Repeat("beta ", 10), Metadata: map[string]string{"segment_id": "s1"}},
	}

	chunks := c.SplitSegments(segs)
	require.True(t, len(chunks) > 2)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}

	sawS0, sawS1 := false, false
	for _, ch := range chunks {
		if ch.SourceSegmentID == "s0" {
			sawS0 = true
		}
		if ch.SourceSegmentID == "s1" {
			sawS1 = true
		}
	}
	assert.True(t, sawS0)
	assert.True(t, sawS1)
}

func TestNew_FillsDefaultsForInvalidConfig(t *testing.T) {
	c := New(Config{ChunkSize: -1, ChunkOverlap: -5})
	assert.Equal(t, DefaultConfig().ChunkSize, c.cfg.ChunkSize)
	assert.Equal(t, DefaultConfig().ChunkOverlap, c.cfg.ChunkOverlap)
}
