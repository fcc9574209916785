// Package languages canonicalizes language tags found in book metadata to
// the short codes the catalog stores.
package languages

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// threeLetter maps ISO 639-2 (both bibliographic and terminologic) codes to
// ISO 639-1. x/text only knows the terminologic forms, so the bibliographic
// ones ("ger", "fre", "chi", ...) have to be listed here.
var threeLetter = map[string]string{
	"ara": "ar",
	"bul": "bg",
	"cat": "ca",
	"ces": "cs",
	"cze": "cs",
	"chi": "zh",
	"zho": "zh",
	"dan": "da",
	"deu": "de",
	"ger": "de",
	"dut": "nl",
	"nld": "nl",
	"ell": "el",
	"gre": "el",
	"eng": "en",
	"est": "et",
	"fin": "fi",
	"fra": "fr",
	"fre": "fr",
	"heb": "he",
	"hin": "hi",
	"hrv": "hr",
	"hun": "hu",
	"ind": "id",
	"ita": "it",
	"jpn": "ja",
	"kor": "ko",
	"lav": "lv",
	"lit": "lt",
	"nor": "no",
	"nob": "no",
	"pol": "pl",
	"por": "pt",
	"ron": "ro",
	"rum": "ro",
	"rus": "ru",
	"spa": "es",
	"swe": "sv",
	"tha": "th",
	"tur": "tr",
	"ukr": "uk",
	"vie": "vi",
}

// Normalizer canonicalizes raw language values against a fixed set of
// supported codes. The zero value supports nothing.
type Normalizer struct {
	supported map[string]bool
}

func NewNormalizer(supported []string) *Normalizer {
	n := &Normalizer{supported: make(map[string]bool, len(supported))}
	for _, code := range supported {
		code = strings.ToLower(strings.TrimSpace(code))
		if code != "" {
			n.supported[code] = true
		}
	}
	return n
}

// Normalize maps values like "en-US", "eng", "EN" or "zh_CN" to a supported
// code. The second return is false when the value can't be mapped to a
// supported code. Normalize is idempotent for every value it accepts.
func (n *Normalizer) Normalize(raw string) (string, bool) {
	code := strings.ToLower(strings.TrimSpace(raw))
	code = strings.ReplaceAll(code, "_", "-")
	if code == "" {
		return "", false
	}

	// Region-qualified codes are kept as-is when they're supported in their
	// own right (zh-cn), otherwise the region is dropped.
	if n.supported[code] {
		return code, true
	}

	base, rest, hasRest := strings.Cut(code, "-")
	base = n.toTwoLetter(base)
	if hasRest {
		qualified := base + "-" + rest
		if n.supported[qualified] {
			return qualified, true
		}
	}

	if n.supported[base] {
		return base, true
	}
	return "", false
}

// Supported reports whether code is exactly one of the supported codes.
func (n *Normalizer) Supported(code string) bool {
	return n.supported[code]
}

// Codes returns the supported codes in sorted order.
func (n *Normalizer) Codes() []string {
	codes := make([]string, 0, len(n.supported))
	for code := range n.supported {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (n *Normalizer) toTwoLetter(base string) string {
	if len(base) != 3 {
		return base
	}
	if two, ok := threeLetter[base]; ok {
		return two
	}
	b, err := language.ParseBase(base)
	if err != nil {
		return base
	}
	// ParseBase canonicalizes to the shortest form, so "swa" becomes "sw".
	return b.String()
}

// DisplayName returns the English name of a code ("de" -> "German"). Unknown
// codes return the code unchanged.
func DisplayName(code string) string {
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return code
	}
	return name
}
