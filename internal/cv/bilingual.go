package cv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Locale identifies one of the two fixed document languages.
type Locale string

const (
	LocaleSV Locale = "sv"
	LocaleEN Locale = "en"
)

// Locales lists the supported locales in canonical order.
var Locales = []Locale{LocaleSV, LocaleEN}

// ParseLocale validates a locale string.
func ParseLocale(s string) (Locale, error) {
	for _, l := range Locales {
		if strings.EqualFold(s, string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("invalid locale: %s (valid: %v)", s, Locales)
}

// Bilingual is a pair of optional strings keyed by the two fixed locales.
// A nil pointer means the value is absent for that locale.
type Bilingual struct {
	SV *string `json:"sv"`
	EN *string `json:"en"`
}

// Text returns a Bilingual with both locales set.
func Text(sv, en string) Bilingual {
	return Bilingual{SV: &sv, EN: &en}
}

// SVOnly returns a Bilingual with only the Swedish value set.
func SVOnly(sv string) Bilingual {
	return Bilingual{SV: &sv}
}

// ENOnly returns a Bilingual with only the English value set.
func ENOnly(en string) Bilingual {
	return Bilingual{EN: &en}
}

// Get returns the value for a locale, or "" if absent.
func (b Bilingual) Get(l Locale) string {
	var p *string
	switch l {
	case LocaleSV:
		p = b.SV
	case LocaleEN:
		p = b.EN
	}
	if p == nil {
		return ""
	}
	return *p
}

// With returns a copy of b with the value for l replaced.
func (b Bilingual) With(l Locale, v string) Bilingual {
	out := b.Clone()
	switch l {
	case LocaleSV:
		out.SV = &v
	case LocaleEN:
		out.EN = &v
	}
	return out
}

// Trimmed returns the whitespace-trimmed value for a locale; absent reads as "".
func (b Bilingual) Trimmed(l Locale) string {
	return strings.TrimSpace(b.Get(l))
}

// Clone returns a deep copy of b.
func (b Bilingual) Clone() Bilingual {
	return Bilingual{SV: cloneString(b.SV), EN: cloneString(b.EN)}
}

// UnmarshalJSON accepts only an object whose keys are supported locales and whose
// values are strings or null. Anything else is reported as a ValidationError.
func (b *Bilingual) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*b = Bilingual{}
		return nil
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return &ValidationError{Message: "bilingual value must be an object with sv/en keys"}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return &ValidationError{Message: fmt.Sprintf("bilingual value: %v", err)}
	}

	var out Bilingual
	for key, val := range raw {
		var s *string
		if err := json.Unmarshal(val, &s); err != nil {
			return &ValidationError{Message: fmt.Sprintf("bilingual %q must be a string or null", key)}
		}
		switch Locale(key) {
		case LocaleSV:
			out.SV = s
		case LocaleEN:
			out.EN = s
		default:
			return &ValidationError{Message: fmt.Sprintf("bilingual value has unsupported locale %q", key)}
		}
	}
	*b = out
	return nil
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
