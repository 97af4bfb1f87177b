package document

import "strings"

// markdownSeparators orders split points from strongest structure to
// weakest: headings, then list items, then code fences, then lines, words,
// and finally individual characters.
var markdownSeparators = []string{
	"\n## ",
	"\n### ",
	"\n#### ",
	"\n- ",
	"\n* ",
	"\n1. ",
	"\n```",
	"\n",
	" ",
	"",
}

// Splitter divides text into chunks of at most chunkSize characters,
// preferring markdown structural boundaries and carrying overlap characters
// of trailing context into each following chunk.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter builds a splitter. overlap must be smaller than chunkSize;
// configuration validation enforces that before construction.
func NewSplitter(chunkSize, overlap int) *Splitter {
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split divides text into chunks. Empty and whitespace-only input yields no
// chunks.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, markdownSeparators)
}

func (s *Splitter) split(text string, separators []string) []string {
	// Pick the first separator present in the text; "" always matches and
	// degrades to a character window.
	sep := separators[len(separators)-1]
	var rest []string
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var chunks []string
	var pending []string

	flush := func() {
		chunks = append(chunks, s.merge(pending)...)
		pending = pending[:0]
	}

	for _, piece := range splitKeepingSeparator(text, sep) {
		if len(piece) <= s.chunkSize {
			pending = append(pending, piece)
			continue
		}
		// Oversized piece: flush what fits, then recurse with the weaker
		// separators.
		flush()
		if len(rest) == 0 {
			chunks = append(chunks, s.window(piece)...)
		} else {
			chunks = append(chunks, s.split(piece, rest)...)
		}
	}
	flush()
	return chunks
}

// splitKeepingSeparator splits text on sep, keeping the separator at the
// start of each following piece so chunk boundaries remain readable.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		return []string{text}
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// merge greedily packs pieces into chunks up to chunkSize, carrying trailing
// pieces (up to overlap characters) into the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var current []string
	currentLen := 0

	for _, piece := range pieces {
		if currentLen+len(piece) > s.chunkSize && currentLen > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			// Retain the overlap tail as the start of the next chunk.
			for currentLen > s.overlap || (currentLen+len(piece) > s.chunkSize && currentLen > 0) {
				currentLen -= len(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		currentLen += len(piece)
	}
	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// window is the last-resort character split for text with no separators.
func (s *Splitter) window(text string) []string {
	step := s.chunkSize - s.overlap
	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + s.chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}
