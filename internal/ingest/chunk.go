package ingest

import (
	"fmt"
	"strings"

	wl "github.com/abadojack/whatlanggo"

	"github.com/circulx/products-rag/internal/vectorstore"
)

// MaxChunkLen is the upper bound, in bytes, of a chunk.
const MaxChunkLen = 2000

// Source describes where a piece of text came from.
type Source struct {
	Seller string
	Title  string
	// Ref is the file path or URL; it also seeds the document IDs.
	Ref string
}

// Documents splits text into chunks and attaches the metadata the retriever
// filters on. IDs are stable for a given Ref so re-imports overwrite.
func Documents(src Source, text string) []vectorstore.Document {
	chunks := SplitIntoChunks(text, MaxChunkLen)
	docs := make([]vectorstore.Document, 0, len(chunks))
	for i, c := range chunks {
		title := src.Title
		if len(chunks) > 1 {
			title = fmt.Sprintf("%s (part %d)", src.Title, i+1)
		}
		docs = append(docs, vectorstore.Document{
			ID:   fmt.Sprintf("%s:%s#%d", src.Seller, src.Ref, i),
			Text: c,
			Metadata: map[string]string{
				vectorstore.SellerKey: src.Seller,
				"title":               title,
				"source":              src.Ref,
				"lang":                DetectLang(c),
			},
		})
	}
	return docs
}

// SplitIntoChunks packs lines into chunks of at most maxLen bytes. Lines longer
// than maxLen are cut on rune boundaries.
func SplitIntoChunks(content string, maxLen int) []string {
	content = SanitizeUTF8(strings.TrimSpace(content))
	if content == "" {
		return nil
	}
	if len(content) <= maxLen {
		return []string{content}
	}

	var chunks []string
	var buf strings.Builder

	flush := func() {
		if chunk := strings.TrimSpace(buf.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		buf.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		for len(line) > maxLen {
			cut := runeBoundary(line, maxLen)
			flush()
			buf.WriteString(line[:cut])
			flush()
			line = line[cut:]
		}

		if buf.Len()+len(line)+1 > maxLen {
			flush()
		}

		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	flush()
	return chunks
}

// runeBoundary returns the largest index <= n that starts a rune in s.
func runeBoundary(s string, n int) int {
	for n > 0 && n < len(s) && !isRuneStart(s[n]) {
		n--
	}
	return n
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// minLangConfidence is the whatlanggo confidence below which a chunk is
// tagged "und".
const minLangConfidence = 0.1

// DetectLang returns an ISO 639-1 code for text, or "und" when unsure.
func DetectLang(text string) string {
	info := wl.Detect(text)
	if info.Confidence < minLangConfidence {
		return "und"
	}
	if code := info.Lang.Iso6391(); code != "" {
		return code
	}
	return "und"
}
