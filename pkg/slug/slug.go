package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that carry no combining mark and so survive NFD decomposition.
var folds = strings.NewReplacer(
	"ı", "i", "ł", "l", "ø", "o", "đ", "d", "ß", "ss", "æ", "ae", "œ", "oe",
)

// Generate lower-cases s, strips diacritics and joins the remaining
// alphanumeric runs with single hyphens:
//
//	"Çocuk Ürünleri" -> "cocuk-urunleri"
//	"  Lampada  da tavolo!" -> "lampada-da-tavolo"
func Generate(s string) string {
	return join(s, '-', unicode.ToLower)
}

// SKU derives an upper-case stock keeping unit from a product name, cut to
// at most maxLen bytes on a word boundary when possible. An empty result
// means the name had no usable characters.
func SKU(name string, maxLen int) string {
	sku := join(name, '-', unicode.ToUpper)
	if maxLen <= 0 || len(sku) <= maxLen {
		return sku
	}
	cut := sku[:maxLen]
	if i := strings.LastIndexByte(cut, '-'); i > 0 {
		cut = cut[:i]
	}
	return strings.Trim(cut, "-")
}

func join(s string, sep rune, caseFn func(rune) rune) string {
	plain, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		strings.ToLower(s),
	)
	if err != nil {
		plain = strings.ToLower(s)
	}
	plain = folds.Replace(plain)

	var b strings.Builder
	b.Grow(len(plain))
	pending := false
	for _, r := range plain {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pending && b.Len() > 0 {
				b.WriteRune(sep)
			}
			pending = false
			b.WriteRune(caseFn(r))
			continue
		}
		pending = true
	}
	return b.String()
}
