package language

import (
	"fmt"
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// words maps the spelled-out names people put in config files to base tags.
var words = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
}

// Normalize reduces any recognized language code, tag, or English name to its
// ISO 639-1 base. Empty input yields an empty string and no error so callers
// can treat it as "auto-detect".
func Normalize(code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(code, "\u0000", "")))
	if code == "" {
		return "", nil
	}
	if mapped, ok := words[code]; ok {
		return mapped, nil
	}
	tag, err := xlang.Parse(code)
	if err != nil {
		return "", fmt.Errorf("language %q: %w", code, err)
	}
	base, confidence := tag.Base()
	if confidence == xlang.No || base.String() == "und" {
		return "", fmt.Errorf("language %q: unrecognized", code)
	}
	return base.String(), nil
}

// ToISO2 is Normalize without the error; unrecognized input yields "".
func ToISO2(code string) string {
	out, err := Normalize(code)
	if err != nil {
		return ""
	}
	return out
}

// ToISO3 converts any recognized language code to ISO 639-2 (3-letter).
// Returns "und" for unrecognized input.
func ToISO3(code string) string {
	iso2 := ToISO2(code)
	if iso2 == "" {
		return "und"
	}
	base, err := xlang.ParseBase(iso2)
	if err != nil {
		return "und"
	}
	return base.ISO3()
}

// DisplayName returns a human-readable English language name for any recognized code.
// Returns "Auto" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Auto"
	}
	iso2 := ToISO2(code)
	if iso2 == "" {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	name := display.English.Languages().Name(xlang.Make(iso2))
	if name == "" {
		return strings.ToUpper(iso2)
	}
	return name
}

// ExtractFromTags extracts the language from stream metadata tags.
// Checks common tag keys: language, LANGUAGE, Language, language_ietf, lang, LANG.
func ExtractFromTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	for _, key := range []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"} {
		if value, ok := tags[key]; ok {
			value = strings.TrimSpace(strings.ReplaceAll(value, "\u0000", ""))
			if value != "" {
				return strings.ToLower(value)
			}
		}
	}
	return ""
}
