package analyzer

import (
	"log"
	"strings"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// minLanguageRunes is the shortest text worth running detection on
const minLanguageRunes = 20

var supportedLanguages = map[string]lingua.Language{
	"en": lingua.English,
	"es": lingua.Spanish,
	"fr": lingua.French,
	"de": lingua.German,
	"pt": lingua.Portuguese,
	"it": lingua.Italian,
	"nl": lingua.Dutch,
	"pl": lingua.Polish,
	"sv": lingua.Swedish,
	"tr": lingua.Turkish,
	"ru": lingua.Russian,
	"ja": lingua.Japanese,
	"zh": lingua.Chinese,
}

// languageDetector reports the ISO 639-1 code of a text's language
type languageDetector struct {
	detector lingua.LanguageDetector
}

// newLanguageDetector builds a detector for the given ISO 639-1 codes.
// Unknown codes are skipped. Fewer than two usable languages disables
// detection and returns nil.
func newLanguageDetector(codes []string) *languageDetector {
	seen := make(map[lingua.Language]bool)
	languages := make([]lingua.Language, 0, len(codes))
	for _, code := range codes {
		lang, ok := supportedLanguages[strings.ToLower(strings.TrimSpace(code))]
		if !ok {
			log.Printf("Ignoring unsupported language code %q", code)
			continue
		}
		if !seen[lang] {
			seen[lang] = true
			languages = append(languages, lang)
		}
	}
	if len(languages) < 2 {
		return nil
	}

	return &languageDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			Build(),
	}
}

// Detect returns the lowercase ISO 639-1 code, or "" when the text is too
// short or no language is reliably detected
func (l *languageDetector) Detect(text string) string {
	if l == nil || utf8.RuneCountInString(text) < minLanguageRunes {
		return ""
	}
	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
