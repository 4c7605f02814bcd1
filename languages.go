package mdtl

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LanguageNames maps locale codes to human-readable names for prompts and logs.
var LanguageNames = map[string]string{
	"en":    "English",
	"en_US": "English (United States)",
	"en_GB": "English (United Kingdom)",
	"de":    "German",
	"de_DE": "German (Germany)",
	"de_CH": "German (Switzerland)",
	"es":    "Spanish",
	"es_MX": "Spanish (Mexico)",
	"fr":    "French",
	"it":    "Italian",
	"ja":    "Japanese",
	"ko":    "Korean",
	"nl":    "Dutch",
	"pl":    "Polish",
	"pt":    "Portuguese",
	"pt_BR": "Portuguese (Brazil)",
	"pt_PT": "Portuguese (Portugal)",
	"ru":    "Russian",
	"sv":    "Swedish",
	"tr":    "Turkish",
	"uk":    "Ukrainian",
	"zh":    "Chinese (Simplified)",
	"zh_TW": "Chinese (Traditional)",
}

// GetLanguageName returns the human-readable name for a locale code.
// Unknown codes are resolved through CLDR display names and fall back to the
// code itself.
func GetLanguageName(code string) string {
	normalized := NormalizeLocale(code)
	if name, ok := LanguageNames[normalized]; ok {
		return name
	}
	tag, err := ParseLocale(normalized)
	if err != nil {
		return code
	}
	if name := display.Tags(language.English).Name(tag); name != "" {
		return name
	}
	return code
}

// ParseLocale validates a locale code as a BCP 47 tag.
// Both "pt_BR" and "pt-BR" are accepted.
func ParseLocale(code string) (language.Tag, error) {
	return language.Parse(ToBCP47(code))
}

// NormalizeLocale converts a locale code to the underscore form used in file
// names (e.g. "pt-BR" -> "pt_BR"). The language part is lower-cased.
func NormalizeLocale(code string) string {
	code = strings.ReplaceAll(strings.TrimSpace(code), "-", "_")
	if i := strings.Index(code, "_"); i >= 0 {
		return strings.ToLower(code[:i]) + code[i:]
	}
	return strings.ToLower(code)
}

// ToBCP47 converts a locale code to BCP 47 form (e.g. "pt_BR" -> "pt-BR").
func ToBCP47(code string) string {
	return strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
}

// BaseLang extracts the base language code (e.g. "pt" from "pt_BR").
func BaseLang(code string) string {
	return strings.ToLower(strings.Split(NormalizeLocale(code), "_")[0])
}

// SameLocale reports whether two codes name the same locale.
func SameLocale(a, b string) bool {
	return strings.EqualFold(NormalizeLocale(a), NormalizeLocale(b))
}
