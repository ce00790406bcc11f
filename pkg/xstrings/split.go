package xstrings

import (
	"strings"
	"unicode/utf8"
)

// SplitParagraph splits text into chunks of at most maxLength bytes.
// Paragraphs (separated by blank lines) are kept together when they fit.
// Longer paragraphs are split between lines, then between words. Words
// longer than maxLength are cut on rune boundaries.
func SplitParagraph(text string, maxLength int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxLength <= 0 || len(text) <= maxLength {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	appendPiece := func(piece, sep string) {
		if current.Len() > 0 && current.Len()+len(sep)+len(piece) > maxLength {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(piece)
	}

	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		if len(paragraph) <= maxLength {
			appendPiece(paragraph, "\n\n")
			continue
		}

		flush()
		for _, line := range strings.Split(paragraph, "\n") {
			if len(line) <= maxLength {
				appendPiece(line, "\n")
				continue
			}
			for _, word := range strings.Fields(line) {
				for _, part := range cutRunes(word, maxLength) {
					appendPiece(part, " ")
				}
			}
		}
		flush()
	}
	flush()

	return chunks
}

func cutRunes(word string, maxLength int) []string {
	if len(word) <= maxLength {
		return []string{word}
	}
	var parts []string
	for len(word) > maxLength {
		cut := maxLength
		for cut > 0 && !utf8.RuneStart(word[cut]) {
			cut--
		}
		if cut == 0 {
			_, cut = utf8.DecodeRuneInString(word)
		}
		parts = append(parts, word[:cut])
		word = word[cut:]
	}
	if word != "" {
		parts = append(parts, word)
	}
	return parts
}
