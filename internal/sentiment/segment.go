package sentiment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "jr": {}, "sr": {}, "prof": {}, "vs": {}, "etc": {},
	"inc": {}, "ltd": {}, "corp": {}, "co": {}, "gen": {}, "gov": {}, "sgt": {}, "col": {},
	"dept": {}, "univ": {}, "approx": {}, "est": {}, "vol": {}, "no": {}, "st": {}, "ave": {},
}

// Segment splits text into sentences without any NLP dependency.
// A boundary is a terminal mark followed by whitespace and an ASCII capital;
// boundaries right after a known abbreviation ("Dr.", "Inc.") are ignored.
func Segment(text string) []string {
	var (
		sentences []string
		buffer    string
	)
	for _, part := range candidateParts(text) {
		if buffer != "" {
			buffer += " " + part
		} else {
			buffer = part
		}

		if endsWithAbbreviation(buffer) {
			continue
		}
		if s := strings.TrimSpace(buffer); s != "" {
			sentences = append(sentences, s)
		}
		buffer = ""
	}
	if s := strings.TrimSpace(buffer); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func endsWithAbbreviation(buffer string) bool {
	if !strings.HasSuffix(strings.TrimRightFunc(buffer, unicode.IsSpace), ".") {
		return false
	}
	words := strings.Fields(strings.TrimRight(buffer, "."))
	if len(words) == 0 {
		return false
	}
	_, ok := abbreviations[strings.ToLower(words[len(words)-1])]
	return ok
}

// candidateParts cuts text at every ". X", "! X" or "? X" boundary, dropping the whitespace.
func candidateParts(text string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		j := i + 1
		for j < len(text) {
			r, size := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(r) {
				break
			}
			j += size
		}
		if j == i+1 || j >= len(text) || text[j] < 'A' || text[j] > 'Z' {
			continue
		}
		parts = append(parts, text[start:i+1])
		start = j
		i = j - 1
	}
	return append(parts, text[start:])
}
