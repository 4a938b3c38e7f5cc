// Package chunk splits a document's text segments into overlapping,
// ordered windows for the extraction pipeline's per-chunk fan-out.
package chunk

import (
	"strings"

	"github.com/specvital/worker/internal/domain/extraction"
)

// separatorPriority is tried in order: the splitter prefers the coarsest
// separator that actually divides the text, falling back to finer ones,
// and finally to a hard character cut ("").
var separatorPriority = []string{"\n\n", "\n", " ", ""}

// Config controls target chunk size and overlap, both in characters.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

// DefaultConfig mirrors the teacher's convention of providing sane
// zero-value fallbacks rather than forcing every caller to specify size.
func DefaultConfig() Config {
	return Config{ChunkSize: 4000, ChunkOverlap: 200}
}

// Chunker recursively splits text on a separator priority list, producing
// a finite, ordered sequence of extraction.Chunk. Every character of the
// input appears in at least one chunk; adjacent chunks overlap by at most
// ChunkOverlap characters; no chunk exceeds ChunkSize+ChunkOverlap.
type Chunker struct {
	cfg Config
}

// New returns a Chunker with cfg, filling in DefaultConfig for zero fields.
func New(cfg Config) *Chunker {
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = def.ChunkOverlap
	}
	return &Chunker{cfg: cfg}
}

// piece is a fragment produced by splitRecursive along with the separator
// that originally preceded it in the source text, so mergeWithOverlap can
// rejoin fragments without gluing words together.
type piece struct {
	text string
	sep  string
}

// Split chunks a single segment's text, tagging every produced Chunk with
// sourceSegmentID for provenance.
func (c *Chunker) Split(text, sourceSegmentID string) []extraction.Chunk {
	pieces := c.splitRecursive(text, separatorPriority)
	windows := c.mergeWithOverlap(pieces)

	chunks := make([]extraction.Chunk, 0, len(windows))
	offset := 0
	for i, w := range windows {
		chunks = append(chunks, extraction.Chunk{
			Index:           i,
			Text:            w,
			SourceSegmentID: sourceSegmentID,
			CharOffset:      offset,
		})
		advance := len(w) - c.cfg.ChunkOverlap
		if advance <= 0 {
			advance = len(w)
		}
		offset += advance
	}
	return chunks
}

// SplitSegments chunks a sequence of segments, producing one contiguous,
// re-indexed Chunk sequence across all of them.
func (c *Chunker) SplitSegments(segments []extraction.Segment) []extraction.Chunk {
	var all []extraction.Chunk
	for i, seg := range segments {
		id := seg.Metadata["segment_id"]
		if id == "" {
			id = segmentIndexID(i)
		}
		part := c.Split(seg.Text, id)
		for _, ch := range part {
			ch.Index = len(all)
			all = append(all, ch)
		}
	}
	return all
}

func segmentIndexID(i int) string {
	const digits = "0123456789"
	if i == 0 {
		return "segment-0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{digits[i%10]}, b...)
		i /= 10
	}
	return "segment-" + string(b)
}

// splitRecursive splits text using the first separator in seps that yields
// more than one piece, recursing into any piece still over ChunkSize with
// the remaining (finer) separators. Each returned piece carries the
// separator that preceded it in text, so the caller can rebuild the
// original whitespace when merging pieces back into windows.
func (c *Chunker) splitRecursive(text string, seps []string) []piece {
	if len(text) <= c.cfg.ChunkSize {
		return []piece{{text: text}}
	}
	if len(seps) == 0 {
		return hardSplit(text, c.cfg.ChunkSize)
	}

	sep, rest := seps[0], seps[1:]
	if sep == "" {
		return hardSplit(text, c.cfg.ChunkSize)
	}
	parts := strings.Split(text, sep)

	if len(parts) == 1 {
		return c.splitRecursive(text, rest)
	}

	var out []piece
	for _, p := range parts {
		if p == "" {
			continue
		}
		var sub []piece
		if len(p) > c.cfg.ChunkSize {
			sub = c.splitRecursive(p, rest)
		} else {
			sub = []piece{{text: p}}
		}
		for j, s := range sub {
			if j == 0 && len(out) > 0 {
				s.sep = sep
			}
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []piece{{text: text}}
	}
	return out
}

func hardSplit(text string, size int) []piece {
	runes := []rune(text)
	if len(runes) <= size {
		return []piece{{text: text}}
	}
	var out []piece
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, piece{text: string(runes[start:end])})
	}
	return out
}

// mergeWithOverlap packs adjacent pieces into windows close to ChunkSize,
// carrying ChunkOverlap characters of trailing context from one window
// into the start of the next so no boundary loses context. Each piece's
// separator is rewritten between it and whatever precedes it in the
// window, so words and sentences never get glued together.
func (c *Chunker) mergeWithOverlap(pieces []piece) []string {
	if len(pieces) == 0 {
		return nil
	}

	var windows []string
	var cur strings.Builder
	for _, p := range pieces {
		grow := len(p.sep) + len(p.text)
		if cur.Len() > 0 && cur.Len()+grow > c.cfg.ChunkSize {
			windows = append(windows, cur.String())
			// Shrink the carried overlap when the next piece plus its
			// separator would otherwise push the window past
			// ChunkSize+ChunkOverlap.
			n := min(c.cfg.ChunkOverlap, c.cfg.ChunkSize+c.cfg.ChunkOverlap-grow)
			overlap := tailOverlap(cur.String(), n)
			cur.Reset()
			cur.WriteString(overlap)
		}
		if cur.Len() > 0 && p.sep != "" {
			cur.WriteString(p.sep)
		}
		cur.WriteString(p.text)
	}
	if cur.Len() > 0 {
		windows = append(windows, cur.String())
	}
	return windows
}

func tailOverlap(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
