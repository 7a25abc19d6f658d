// Package detector resolves the locale a running process should start with
// and normalizes arbitrary locale strings into canonical tags.
//
// A canonical tag has the form "language-COUNTRY" (lowercase language,
// uppercase country), e.g. "en-US" or "de-DE". Everything else in go-locale
// expects tags in this form, so raw OS values such as "de_DE.UTF-8" or "en"
// must pass through Normalize first.
//
// The package also computes the fallback family of a tag: the ordered list of
// locales worth trying when the tag itself cannot be loaded.
package detector

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLocale is the tag returned when detection or normalization fails
const DefaultLocale = "en-US"

// environment variables consulted for the system locale, in priority order
var localeEnvVars = []string{"LC_ALL", "LC_MESSAGES", "LANG", "LANGUAGE"}

// countryByLanguage maps a bare language to the country assumed when the
// input carries none
var countryByLanguage = map[string]string{
	"en": "US",
	"es": "ES",
	"fr": "FR",
	"de": "DE",
	"it": "IT",
	"pt": "PT",
	"ru": "RU",
	"ja": "JP",
	"ko": "KR",
	"zh": "CN",
}

// variantsByLanguage lists the common regional variants tried as fallbacks
// for a language family
var variantsByLanguage = map[string][]string{
	"en": {"en-US", "en-GB"},
	"es": {"es-ES", "es-MX"},
	"fr": {"fr-FR", "fr-CA"},
	"de": {"de-DE", "de-AT"},
	"pt": {"pt-PT", "pt-BR"},
	"zh": {"zh-CN", "zh-TW"},
}

// DetectSystemLocale reads the locale from the process environment and
// returns it as a canonical tag. The variables LC_ALL, LC_MESSAGES, LANG and
// LANGUAGE are consulted in that order; the values "C" and "POSIX" are
// skipped. When nothing usable is found, DefaultLocale is returned.
func DetectSystemLocale() string {
	for _, env := range localeEnvVars {
		value := os.Getenv(env)
		if value == "" || value == "C" || value == "POSIX" {
			continue
		}
		return Normalize(value)
	}
	return DefaultLocale
}

// Normalize turns a raw locale string into a canonical "language-COUNTRY"
// tag. Encoding and modifier suffixes are stripped ("de_DE.UTF-8" ->
// "de-DE"), underscores become dashes and casing is fixed. When the input
// names only a language, the country is inferred from a fixed table
// ("en" -> "en-US"). Empty input normalizes to DefaultLocale.
func Normalize(raw string) string {
	if raw == "" {
		return DefaultLocale
	}

	// Strip encoding and modifier suffixes, e.g. "en_US.UTF-8@euro"
	stripped := strings.SplitN(raw, ".", 2)[0]
	stripped = strings.SplitN(stripped, "@", 2)[0]
	stripped = strings.ReplaceAll(stripped, "_", "-")
	if stripped == "" {
		return DefaultLocale
	}

	// Prefer a well-formed BCP 47 interpretation when one exists
	if tag, err := language.Parse(stripped); err == nil {
		base, baseConf := tag.Base()
		if baseConf >= language.High {
			lang := base.String()
			region, regionConf := tag.Region()
			if regionConf == language.Exact {
				return lang + "-" + strings.ToUpper(region.String())
			}
			return lang + "-" + inferCountry(lang)
		}
	}

	// Manual handling for values the BCP 47 parser rejects
	lang, country, found := strings.Cut(stripped, "-")
	if found && country != "" {
		return strings.ToLower(lang) + "-" + strings.ToUpper(country)
	}
	lang = strings.ToLower(lang)
	return lang + "-" + inferCountry(lang)
}

// Fallbacks returns the fallback family for a canonical tag, in order of
// preference: the bare language, the common regional variants of that
// language, and finally English. The tag itself never appears in the result
// and the result carries no duplicates.
func Fallbacks(tag string) []string {
	var fallbacks []string
	seen := map[string]struct{}{tag: {}}

	add := func(candidate string) {
		if _, ok := seen[candidate]; ok {
			return
		}
		seen[candidate] = struct{}{}
		fallbacks = append(fallbacks, candidate)
	}

	if lang, _, found := strings.Cut(tag, "-"); found {
		add(lang)
		for _, variant := range variantsByLanguage[lang] {
			add(variant)
		}
	}

	// English is the final safety net for every family
	add("en-US")
	add("en")

	return fallbacks
}

func inferCountry(lang string) string {
	if country, ok := countryByLanguage[lang]; ok {
		return country
	}
	return "US"
}
