// Package card parses and rewrites the semi-structured text body of a board
// card: a header run of "Label: value" lines drawn from a fixed vocabulary,
// followed by free-form trailer content that merges must never disturb.
package card

import (
	"regexp"
	"strings"
)

// Vocabulary is the fixed label set in canonical emission order. Labels are
// always emitted in this order regardless of the order they were found in,
// and no label outside it is ever fabricated.
var Vocabulary = []string{"Company", "First", "Email", "Hook", "Variant", "Website"}

// finalLabel closes the header run: a blank line after it has been seen ends
// the header.
const finalLabel = "Website"

var labelRe = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(Vocabulary))
	for _, lab := range Vocabulary {
		m[lab] = regexp.MustCompile(`(?i)^\s*` + regexp.QuoteMeta(lab) + `\s*:\s*(.*)$`)
	}
	return m
}()

// matchLabel returns the vocabulary label and captured value for a line, or
// "" when the line is not a label line.
func matchLabel(line string) (label, value string) {
	for _, lab := range Vocabulary {
		if m := labelRe[lab].FindStringSubmatch(line); m != nil {
			return lab, strings.TrimSpace(m[1])
		}
	}
	return "", ""
}

// Record is the structured intermediate produced by Parse.
type Record struct {
	// Values maps each vocabulary label to the first non-empty value found
	// for it in the header run. Absent and empty labels map to "".
	Values map[string]string
	// Trailer holds every line after the header run, verbatim.
	Trailer []string
}

// Parser states.
type parseState int

const (
	beforeHeader parseState = iota
	inHeader
	inTrailer
)

func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// Parse splits a card body into header values and trailer lines. When the
// first non-blank line is not a vocabulary label the whole body is trailer.
func Parse(text string) Record {
	lines := strings.Split(normalizeNewlines(text), "\n")
	rec := Record{Values: make(map[string]string, len(Vocabulary))}
	for _, lab := range Vocabulary {
		rec.Values[lab] = ""
	}

	state := beforeHeader
	seenFinal := false
	i := 0

	for i < len(lines) {
		line := lines[i]

		switch state {
		case beforeHeader:
			if strings.TrimSpace(line) == "" {
				i++
				continue
			}
			if lab, _ := matchLabel(line); lab == "" {
				// No header block at all: everything, leading blanks
				// included, is trailer.
				rec.Trailer = lines
				return rec
			}
			state = inHeader

		case inHeader:
			lab, val := matchLabel(line)
			switch {
			case lab != "":
				if val == "" && i+1 < len(lines) {
					next := lines[i+1]
					nextLab, _ := matchLabel(next)
					if strings.TrimSpace(next) != "" && nextLab == "" {
						// Continuation line carries the value.
						val = strings.TrimSpace(next)
						i++
					}
				}
				if rec.Values[lab] == "" {
					rec.Values[lab] = val
				}
				if lab == finalLabel {
					seenFinal = true
				}
				i++
			case strings.TrimSpace(line) == "":
				i++
				if seenFinal {
					state = inTrailer
				}
			default:
				state = inTrailer
			}

		case inTrailer:
			rec.Trailer = lines[i:]
			return rec
		}
	}

	return rec
}

// Value extracts the value for one vocabulary label from a card body.
func Value(text, label string) string {
	return Parse(text).Values[label]
}

// hardBreak forces a rendered line break in the board's markdown renderer.
func hardBreak(line string) string {
	return strings.TrimRight(line, " \t") + "  "
}

// Merge rebuilds a card body. Labels listed in overwrite get their new
// values; labels listed in preserve keep whatever value the existing body
// held (empty when absent). The union is emitted in canonical vocabulary
// order, followed by one blank separator and the untouched trailer. Each
// marker is appended as its own trailer line unless already present, so
// repeated merges are byte-identical.
func Merge(text string, overwrite map[string]string, preserve []string, markers ...string) string {
	rec := Parse(text)

	emit := make(map[string]bool, len(Vocabulary))
	for lab := range overwrite {
		emit[lab] = true
	}
	for _, lab := range preserve {
		emit[lab] = true
	}

	var out []string
	for _, lab := range Vocabulary {
		if !emit[lab] {
			continue
		}
		val, isOverwrite := overwrite[lab]
		if !isOverwrite {
			val = rec.Values[lab]
		}
		out = append(out, hardBreak(lab+": "+val))
	}
	out = append(out, "")

	trailer := append([]string(nil), rec.Trailer...)
	for _, marker := range markers {
		if marker == "" {
			continue
		}
		present := false
		for _, line := range trailer {
			if strings.TrimSpace(line) == marker {
				present = true
				break
			}
		}
		if present {
			continue
		}
		if len(trailer) > 0 && strings.TrimSpace(trailer[len(trailer)-1]) != "" {
			trailer = append(trailer, "")
		}
		trailer = append(trailer, marker)
	}
	out = append(out, trailer...)

	return strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n"
}

// IsBlank reports whether a card body is an unused template: both Company
// and Website are empty.
func IsBlank(text string) bool {
	rec := Parse(text)
	return rec.Values["Company"] == "" && rec.Values["Website"] == ""
}
