// Package document provides reference extraction.DocumentSource
// implementations for plain-text and pre-segmented input. Binary-format
// loaders (PDF, DOCX, XLSX) are out of scope for this repository; callers
// needing those implement extraction.DocumentSource themselves and feed
// the pipeline the same way.
package document

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/specvital/worker/internal/domain/extraction"
)

// PlainTextSource loads a single block of plain text as one or more
// Segments, splitting on blank lines so paragraph boundaries survive
// into chunking metadata.
type PlainTextSource struct {
	content string
}

// NewPlainTextSource wraps an in-memory string as a DocumentSource.
func NewPlainTextSource(content string) *PlainTextSource {
	return &PlainTextSource{content: content}
}

// Load implements extraction.DocumentSource. It never fails: an empty
// input yields an empty segment list, which the pipeline's chunker
// reports as ErrChunkingFailed.
func (s *PlainTextSource) Load(ctx context.Context) ([]extraction.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paragraphs := strings.Split(strings.ReplaceAll(s.content, "\r\n", "\n"), "\n\n")
	segments := make([]extraction.Segment, 0, len(paragraphs))
	for i, p := range paragraphs {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		segments = append(segments, extraction.Segment{
			Text:     trimmed,
			Metadata: map[string]string{"paragraph_index": fmt.Sprintf("%d", i)},
		})
	}
	return segments, nil
}

// FileSource loads a plain-text file from disk, delegating segmentation
// to PlainTextSource once the bytes are read.
type FileSource struct {
	path string
}

// NewFileSource creates a DocumentSource that reads path on Load.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load implements extraction.DocumentSource.
func (s *FileSource) Load(ctx context.Context) ([]extraction.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", s.path, err)
	}

	inner := NewPlainTextSource(string(data))
	segments, err := inner.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range segments {
		segments[i].Metadata["source_path"] = s.path
	}
	return segments, nil
}

// PreSegmentedSource wraps a caller-supplied slice of segments directly,
// for integrations (e.g. a queue job) that already know segment
// boundaries and metadata.
type PreSegmentedSource struct {
	segments []extraction.Segment
}

// NewPreSegmentedSource wraps pre-built segments as a DocumentSource.
func NewPreSegmentedSource(segments []extraction.Segment) *PreSegmentedSource {
	return &PreSegmentedSource{segments: segments}
}

// Load implements extraction.DocumentSource, returning the wrapped
// segments verbatim.
func (s *PreSegmentedSource) Load(ctx context.Context) ([]extraction.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.segments, nil
}
