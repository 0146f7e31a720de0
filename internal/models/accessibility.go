package models

type Locale string

const (
	LocaleES Locale = "es"
	LocaleEN Locale = "en"
)

// ParseLocale returns the locale for s, or false if it is not supported.
func ParseLocale(s string) (Locale, bool) {
	switch Locale(s) {
	case LocaleES, LocaleEN:
		return Locale(s), true
	}
	return "", false
}

// DetailLevel controls how much explanation accessibility metadata carries.
type DetailLevel string

const (
	DetailSimple    DetailLevel = "simple"
	DetailStandard  DetailLevel = "standard"
	DetailTechnical DetailLevel = "technical"
)

func ParseDetailLevel(s string) (DetailLevel, bool) {
	switch DetailLevel(s) {
	case DetailSimple, DetailStandard, DetailTechnical:
		return DetailLevel(s), true
	}
	return "", false
}

// AccessibilityMetadata is produced by the facilitator and relayed to
// announcers untouched. The payment core never interprets it.
type AccessibilityMetadata struct {
	PlainLanguage    string   `json:"plain_language"`
	TechnicalDetails string   `json:"technical_details,omitempty"`
	StepByStep       []string `json:"step_by_step,omitempty"`
	ScreenReaderText string   `json:"screen_reader_text,omitempty"`
	HelpContext      string   `json:"help_context,omitempty"`
}
