package gate

import (
	"bytes"
	"net/http"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/language"
)

// declarationCap bounds how much markup is scanned for language hints.
const declarationCap = 20000

// stopwords are common English function and business words used by the
// lexical fallback. Tuning values, not load-bearing constants.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "you": {}, "your": {},
	"our": {}, "are": {}, "this": {}, "that": {}, "from": {}, "have": {},
	"more": {}, "about": {}, "can": {}, "will": {}, "all": {}, "get": {},
	"was": {}, "has": {}, "not": {}, "but": {}, "how": {}, "what": {},
	"when": {}, "who": {}, "out": {}, "new": {}, "contact": {}, "services": {},
	"service": {}, "home": {}, "team": {}, "here": {}, "now": {}, "today": {},
	"been": {}, "they": {}, "their": {}, "them": {}, "which": {}, "also": {},
	"work": {}, "help": {}, "need": {}, "free": {}, "call": {}, "email": {},
}

// isEnglish applies the language heuristic: an explicit declaration decides
// immediately; otherwise the lexical fallback must find positive evidence,
// and insufficient evidence rejects.
func (g *Gate) isEnglish(header http.Header, body []byte) bool {
	if code := declaredLanguage(header, body); code != "" {
		return strings.HasPrefix(code, "en")
	}
	return g.lexicallyEnglish(body)
}

// declaredLanguage returns the primary language subtag declared by the
// response, lower-cased, or "" when nothing is declared. Sources in order:
// the Content-Language header, the root element's lang attribute, a
// content-language meta declaration.
func declaredLanguage(header http.Header, body []byte) string {
	if code := normalizeLangCode(header.Get("Content-Language")); code != "" {
		return code
	}

	if len(body) > declarationCap {
		body = body[:declarationCap]
	}
	tok := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			t := tok.Token()
			switch t.Data {
			case "html":
				if code := normalizeLangCode(attr(t, "lang")); code != "" {
					return code
				}
				if code := normalizeLangCode(attr(t, "xml:lang")); code != "" {
					return code
				}
			case "meta":
				if strings.EqualFold(attr(t, "http-equiv"), "content-language") {
					if code := normalizeLangCode(attr(t, "content")); code != "" {
						return code
					}
				}
			case "body":
				// Declarations live in the preamble; stop scanning.
				return ""
			}
		}
	}
}

func attr(t html.Token, name string) string {
	for _, a := range t.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

// normalizeLangCode reduces a declaration like "en-US,en;q=0.9" to its
// primary subtag ("en"). Unparseable values yield "".
func normalizeLangCode(val string) string {
	val = strings.TrimSpace(val)
	if val == "" {
		return ""
	}
	if i := strings.IndexByte(val, ','); i >= 0 {
		val = val[:i]
	}
	val = strings.TrimSpace(strings.ReplaceAll(val, "_", "-"))
	if val == "" {
		return ""
	}
	tag, err := language.Parse(val)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	return strings.ToLower(base.String())
}

// lexicallyEnglish inspects visible text when no language is declared.
// It requires enough alphabetic tokens to judge, a minimum ratio of common
// English words, and a bounded share of non-ASCII characters.
func (g *Gate) lexicallyEnglish(body []byte) bool {
	text := visibleText(body)

	var total, nonASCII int
	for _, r := range text {
		if r > unicode.MaxASCII {
			nonASCII++
		}
		total++
	}

	tokens := alphaTokens(text)
	if len(tokens) < g.cfg.LangMinTokens {
		return false
	}

	hits := 0
	for _, tok := range tokens {
		if _, ok := stopwords[tok]; ok {
			hits++
		}
	}
	stopRatio := float64(hits) / float64(len(tokens))
	nonASCIIRatio := 0.0
	if total > 0 {
		nonASCIIRatio = float64(nonASCII) / float64(total)
	}
	return stopRatio >= g.cfg.LangMinStopwordRatio && nonASCIIRatio <= g.cfg.LangMaxNonASCIIRatio
}

// visibleText extracts text nodes, skipping script and style subtrees.
func visibleText(body []byte) string {
	tok := html.NewTokenizer(bytes.NewReader(body))
	var sb strings.Builder
	skipDepth := 0
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.StartTagToken:
			name, _ := tok.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(tok.Text())
				sb.WriteByte(' ')
			}
		}
	}
}

func alphaTokens(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
