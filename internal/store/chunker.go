package store

import "strings"

// minFragmentChars drops trailing slivers that carry no useful policy text
const minFragmentChars = 50

// SplitText splits a document into fixed-size overlapping chunks.
// size and overlap are in characters; fragments shorter than
// minFragmentChars after trimming are skipped.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	step := size - overlap
	for i := 0; i < len(text); i += step {
		end := i + size
		if end > len(text) {
			end = len(text)
		}
		chunk := strings.TrimSpace(text[i:end])
		if len(chunk) > minFragmentChars {
			chunks = append(chunks, chunk)
		}
		if end == len(text) {
			break
		}
	}

	return chunks
}
