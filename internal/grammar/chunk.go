package grammar

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/lingoscope/internal/model"
)

// chunk is a contiguous slice of the input. Offset is in UTF-16 units.
type chunk struct {
	Text   string
	Offset int
}

// checkChunked checks each chunk concurrently and re-bases match offsets
// onto the full text
func (c *Client) checkChunked(ctx context.Context, text, language string) (*Response, error) {
	chunks := splitChunks(text, c.cfg.ChunkChars)
	results := make([]*Response, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.chunkWorkers)

	for i, ch := range chunks {
		if strings.TrimSpace(ch.Text) == "" {
			continue
		}
		g.Go(func() error {
			resp, err := c.checkOne(gctx, ch.Text, language)
			if err != nil {
				return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			results[i] = resp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &Response{Matches: []model.RemoteMatch{}}
	for i, resp := range results {
		if resp == nil {
			continue
		}
		if merged.Language == nil {
			merged.Language = resp.Language
		}
		for _, m := range resp.Matches {
			m.Offset += chunks[i].Offset
			merged.Matches = append(merged.Matches, m)
		}
	}

	return merged, nil
}

// splitChunks cuts text into pieces of at most limit UTF-16 units, preferring
// paragraph breaks, then sentence ends, then spaces. The pieces concatenate
// back to text exactly.
func splitChunks(text string, limit int) []chunk {
	if limit <= 0 {
		return []chunk{{Text: text}}
	}

	var chunks []chunk
	offset := 0
	rest := text

	for utf16Len(rest) > limit {
		cut := byteIndexAtUnits(rest, limit)
		if cut == 0 {
			_, size := utf8.DecodeRuneInString(rest)
			cut = size
		}
		end := boundaryBefore(rest[:cut])
		if end <= 0 {
			end = cut
		}

		piece := rest[:end]
		chunks = append(chunks, chunk{Text: piece, Offset: offset})
		offset += utf16Len(piece)
		rest = rest[end:]
	}

	if rest != "" || len(chunks) == 0 {
		chunks = append(chunks, chunk{Text: rest, Offset: offset})
	}

	return chunks
}

// boundaryBefore returns the byte index just past the best split point in s, or 0
func boundaryBefore(s string) int {
	if i := strings.LastIndex(s, "\n\n"); i > 0 {
		return i + 2
	}

	best := 0
	for _, sep := range []string{". ", "! ", "? ", "\n"} {
		if i := strings.LastIndex(s, sep); i >= 0 && i+len(sep) > best {
			best = i + len(sep)
		}
	}
	if best > 0 {
		return best
	}

	if i := strings.LastIndex(s, " "); i > 0 {
		return i + 1
	}

	return 0
}

// utf16Len counts s in UTF-16 code units, the unit the service reports offsets in
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// byteIndexAtUnits returns the byte index of the first rune that would push
// the UTF-16 count past units
func byteIndexAtUnits(s string, units int) int {
	n := 0
	for i, r := range s {
		l := utf16.RuneLen(r)
		if l < 1 {
			l = 1
		}
		if n+l > units {
			return i
		}
		n += l
	}
	return len(s)
}
