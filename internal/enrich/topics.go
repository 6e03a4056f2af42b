// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"strings"
	"unicode"
)

// Topics extracts up to max research topic candidates for a section: the
// heading first, then capitalized phrases from the original body in order
// of first occurrence.
func Topics(heading, body string, max int) []string {
	var topics []string
	seen := make(map[string]bool)
	add := func(topic string) {
		key := strings.ToLower(topic)
		if topic != "" && !seen[key] && len(topics) < max {
			seen[key] = true
			topics = append(topics, topic)
		}
	}

	add(strings.TrimSpace(heading))
	for _, phrase := range capitalizedPhrases(body) {
		add(phrase)
	}
	return topics
}

// Claims extracts up to max checkable claims from text: sentences long
// enough to state something, containing a figure or a copular verb. Prior
// correction lines and nested headings are not claims.
func Claims(text string, max int) []string {
	var claims []string
	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, ">") || strings.HasPrefix(t, "#") {
			continue
		}
		for _, sentence := range splitSentences(t) {
			if len(claims) >= max {
				return claims
			}
			if checkableClaim(sentence) {
				claims = append(claims, sentence)
			}
		}
	}
	return claims
}

// LinkTerms extracts up to max link-term candidates from the original body,
// in order of first occurrence.
func LinkTerms(body string, max int) []string {
	phrases := capitalizedPhrases(body)
	if len(phrases) > max {
		phrases = phrases[:max]
	}
	return phrases
}

// maxPhraseWords bounds a capitalized run; longer runs are split.
const maxPhraseWords = 4

// capitalizedPhrases scans text for runs of capitalized words, the cheap
// stand-in for noun-phrase extraction. A single capitalized word opening a
// sentence is ordinary prose, not a term, and is dropped; so are one- and
// two-letter words.
func capitalizedPhrases(text string) []string {
	var phrases []string
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		var run []string
		runAtStart := false
		sentenceStart := true

		flush := func() {
			defer func() { run = nil }()
			if len(run) == 0 {
				return
			}
			if len(run) == 1 && (runAtStart || len(run[0]) < 3) {
				return
			}
			phrase := strings.Join(run, " ")
			key := strings.ToLower(phrase)
			if !seen[key] {
				seen[key] = true
				phrases = append(phrases, phrase)
			}
		}

		for _, word := range strings.Fields(line) {
			clean := strings.Trim(word, ".,;:!?()[]\"'`*_")
			if clean != "" && isCapitalized(clean) {
				if len(run) == maxPhraseWords {
					flush()
				}
				if len(run) == 0 {
					runAtStart = sentenceStart
				}
				run = append(run, clean)
			} else {
				flush()
			}
			sentenceStart = strings.HasSuffix(word, ".") ||
				strings.HasSuffix(word, "!") || strings.HasSuffix(word, "?")
		}
		flush()
	}
	return phrases
}

func isCapitalized(word string) bool {
	for _, r := range word {
		return unicode.IsUpper(r)
	}
	return false
}

// splitSentences splits on terminal punctuation followed by a space or end
// of line. Good enough for claim extraction; abbreviations over-split, which
// only costs a lookup.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && (i+1 == len(text) || text[i+1] == ' ') {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// minClaimLength filters out fragments too short to state anything checkable.
const minClaimLength = 30

func checkableClaim(sentence string) bool {
	if len(sentence) < minClaimLength {
		return false
	}
	if strings.ContainsFunc(sentence, unicode.IsDigit) {
		return true
	}
	for _, verb := range []string{" is ", " are ", " was ", " were ", " has ", " have "} {
		if strings.Contains(sentence, verb) {
			return true
		}
	}
	return false
}

// wrapFirstOccurrence wraps the first word-bounded occurrence of term that
// sits outside heading lines and existing link markup. Reports whether a
// wrap happened.
func wrapFirstOccurrence(text, term, url string) (string, bool) {
	lines := strings.Split(text, "\n")
	for li, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		idx := indexOutsideLinks(line, term)
		if idx < 0 {
			continue
		}
		lines[li] = line[:idx] + "[" + term + "](" + url + ")" + line[idx+len(term):]
		return strings.Join(lines, "\n"), true
	}
	return text, false
}

// indexOutsideLinks finds the first word-bounded occurrence of term in line
// that is not already part of link text or a link URL.
func indexOutsideLinks(line, term string) int {
	from := 0
	for {
		rel := strings.Index(line[from:], term)
		if rel < 0 {
			return -1
		}
		idx := from + rel
		if wordBounded(line, idx, len(term)) && !insideLink(line[:idx]) {
			return idx
		}
		from = idx + 1
	}
}

func wordBounded(line string, idx, length int) bool {
	boundary := func(c byte) bool {
		return !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9')
	}
	if idx > 0 && !boundary(line[idx-1]) {
		return false
	}
	end := idx + length
	return end == len(line) || boundary(line[end])
}

// insideLink reports whether a position with the given prefix falls inside
// [text] or (url) of an existing Markdown link.
func insideLink(prefix string) bool {
	if strings.Count(prefix, "[") > strings.Count(prefix, "]") {
		return true
	}
	open := strings.LastIndex(prefix, "](")
	return open >= 0 && !strings.Contains(prefix[open:], ")")
}
