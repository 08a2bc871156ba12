// Package segment splits utterance text into sentences and coalesces them
// into synthesis batches. Small batches minimize time-to-first-audio;
// oversized batches waste round-trips before any sound plays.
package segment

import (
	"strings"
	"unicode"
)

// DefaultMinBatchChars is the minimum batch length used when no
// configuration overrides it.
const DefaultMinBatchChars = 60

// abbreviations that end with a period without ending a sentence.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"sr": true, "jr": true, "st": true, "vs": true, "etc": true,
	"inc": true, "ltd": true, "co": true, "corp": true, "dept": true,
	"i.e": true, "e.g": true, "a.m": true, "p.m": true, "no": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "jun": true,
	"jul": true, "aug": true, "sep": true, "sept": true, "oct": true,
	"nov": true, "dec": true, "u.s": true, "u.k": true,
}

// Split breaks text into sentences on ., ! and ? boundaries, keeping the
// terminator with the sentence. Abbreviations and decimal points do not end
// sentences. Text with no detectable boundary comes back as one sentence.
func Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		// Swallow runs like "?!" or "...".
		end := i
		for end+1 < len(runes) && isTerminator(runes[end+1]) {
			end++
		}
		// Trailing quotes and brackets belong to the sentence.
		for end+1 < len(runes) && isCloser(runes[end+1]) {
			end++
		}

		if r == '.' && !endsSentence(runes, start, i, end) {
			i = end
			continue
		}

		s := strings.TrimSpace(string(runes[start : end+1]))
		if s != "" {
			sentences = append(sentences, s)
		}
		start = end + 1
		i = end
	}

	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// Batch greedily coalesces consecutive sentences until a batch reaches
// minChars, emitting the boundary after the threshold is crossed. A final
// batch below threshold is still emitted. Blank sentences are dropped.
func Batch(sentences []string, minChars int) []string {
	if minChars <= 0 {
		minChars = DefaultMinBatchChars
	}

	var batches []string
	var current strings.Builder

	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(s)
		if current.Len() >= minChars {
			batches = append(batches, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		batches = append(batches, current.String())
	}
	return batches
}

// BatchText splits text and batches the sentences in one step, falling back
// to the whole text as a single batch when no sentences are found.
func BatchText(text string, minChars int) []string {
	sentences := Split(text)
	if len(sentences) == 0 {
		if t := strings.TrimSpace(text); t != "" {
			return []string{t}
		}
		return nil
	}
	return Batch(sentences, minChars)
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	return r == '"' || r == '\'' || r == ')' || r == ']' || r == '”'
}

// endsSentence decides whether the period at pos terminates a sentence.
func endsSentence(runes []rune, start, pos, end int) bool {
	// A digit on both sides is a decimal point.
	if pos > 0 && pos+1 < len(runes) &&
		unicode.IsDigit(runes[pos-1]) && unicode.IsDigit(runes[pos+1]) {
		return false
	}

	// Scan back to the preceding word and check the abbreviation list.
	w := pos - 1
	for w >= start && (unicode.IsLetter(runes[w]) || runes[w] == '.') {
		w--
	}
	word := strings.ToLower(strings.TrimSuffix(string(runes[w+1:pos]), "."))
	if abbreviations[word] {
		return false
	}

	// End of text always terminates.
	if end+1 >= len(runes) {
		return true
	}

	// Sentence boundaries are followed by whitespace.
	return unicode.IsSpace(runes[end+1])
}
