package ngram

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// punctuationReplacer drops bracket-like punctuation, spells out "&" and turns
// separators into spaces in a single pass.
var punctuationReplacer = strings.NewReplacer(
	")", "",
	"(", "",
	".", "",
	"|", "",
	"[", "",
	"]", "",
	"{", "",
	"}", "",
	"'", "",
	"&", "and",
	",", " ",
	"-", " ",
)

// trailingStripPattern runs after padding. The " BD" alternative is kept as-is
// even though title casing makes it rare.
var trailingStripPattern = regexp.MustCompile(`[,\-./]|\sBD`)

// mojibakeMarkers are the lead characters UTF-8 text picks up when its bytes are
// read back as Windows-1252.
var mojibakeMarkers = []string{"Ã", "Â", "â€"}

var asciiOnly = runes.Remove(runes.Predicate(func(r rune) bool {
	return r > unicode.MaxASCII
}))

// Normalize returns the padded form of value that n-grams are cut from.
func Normalize(value string) string {
	s := repairText(value)
	s = stripNonASCII(s)
	s = strings.ToLower(s)
	s = punctuationReplacer.Replace(s)
	s = titleWords(s)
	s = " " + s + " "
	return trailingStripPattern.ReplaceAllString(s, "")
}

// repairText undoes the two encoding accidents seen in contribution exports:
// raw Windows-1252 bytes in a UTF-8 file, and UTF-8 that was decoded as
// Windows-1252 and re-encoded. The result is NFC composed.
func repairText(s string) string {
	if !utf8.ValidString(s) {
		if decoded, err := charmap.Windows1252.NewDecoder().String(s); err == nil {
			s = decoded
		}
	} else if hasMojibake(s) {
		if raw, err := charmap.Windows1252.NewEncoder().String(s); err == nil && utf8.ValidString(raw) {
			s = raw
		}
	}
	return norm.NFC.String(s)
}

func hasMojibake(s string) bool {
	for _, marker := range mojibakeMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func stripNonASCII(s string) string {
	out, _, err := transform.String(asciiOnly, s)
	if err != nil {
		var b strings.Builder
		for i := 0; i < len(s); i++ {
			if s[i] <= unicode.MaxASCII {
				b.WriteByte(s[i])
			}
		}
		return b.String()
	}
	return out
}

// titleWords capitalizes the first letter of every whitespace-delimited token
// and joins the tokens with single spaces. Input is already lowercase ASCII.
func titleWords(s string) string {
	fields := strings.Fields(s)
	for i, field := range fields {
		if c := field[0]; c >= 'a' && c <= 'z' {
			fields[i] = string(c-'a'+'A') + field[1:]
		}
	}
	return strings.Join(fields, " ")
}
