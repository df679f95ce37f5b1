package intake

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// AnamnesisSchemaJSON is the JSON Schema sent to providers that support a
// structured output mode.
var AnamnesisSchemaJSON = json.RawMessage(`{
  "type": "object",
  "properties": {
    "hovedplage": {"type": "string", "description": "Pasientens hovedplage eller primære bekymring"},
    "tidligereSykdommer": {"type": "string", "description": "Tidligere sykdommer og medisinsk historie"},
    "medisinering": {"type": "string", "description": "Nåværende og tidligere medisiner"},
    "allergier": {"type": "string", "description": "Kjente allergier og reaksjoner"},
    "familiehistorie": {"type": "string", "description": "Arvelige sykdommer i familien"},
    "sosialLivsstil": {"type": "string", "description": "Røyking, alkohol, mosjon, etc."},
    "ros": {"type": "string", "description": "Review of Systems - systematisk gjennomgang"},
    "pasientMaal": {"type": "string", "description": "Hva pasienten håper å oppnå"},
    "friOppsummering": {"type": "string", "description": "Andre relevante opplysninger"}
  },
  "required": ["hovedplage", "tidligereSykdommer", "medisinering", "allergier", "familiehistorie", "sosialLivsstil", "ros", "pasientMaal", "friOppsummering"],
  "additionalProperties": false
}`)

var anamnesisFieldNames = []string{
	"hovedplage",
	"tidligereSykdommer",
	"medisinering",
	"allergier",
	"familiehistorie",
	"sosialLivsstil",
	"ros",
	"pasientMaal",
	"friOppsummering",
}

// ErrNoFieldsRecovered signals that neither the strict parse nor the
// fallback extractor found a single anamnesis field in the provider output.
var ErrNoFieldsRecovered = errors.New("intake: no anamnesis fields recovered from provider output")

// ParseAnamnesis turns raw provider output into the nine-field anamnesis.
// Stage one is a strict JSON parse; if that fails, stage two runs a tolerant
// per-field extractor. Fields missing after both stages get the
// "Ikke oppgitt" sentinel. It fails only when nothing can be recovered.
func ParseAnamnesis(raw string) (AnamnesisFields, error) {
	if fields, err := parseAnamnesisStrict(raw); err == nil {
		return fields, nil
	}

	fields, recovered := extractAnamnesisFallback(raw)
	if recovered == 0 {
		return AnamnesisFields{}, fmt.Errorf("%w: %q", ErrNoFieldsRecovered, truncate(raw, 120))
	}
	return fields, nil
}

// parseAnamnesisStrict decodes the output as a JSON object and requires all
// nine fields to be present as strings. Empty values become the sentinel.
func parseAnamnesisStrict(raw string) (AnamnesisFields, error) {
	cleaned := stripCodeFence(raw)

	var decoded map[string]any
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return AnamnesisFields{}, fmt.Errorf("intake: anamnesis output is not a JSON object: %w", err)
	}

	values := make(map[string]string, len(anamnesisFieldNames))
	for _, name := range anamnesisFieldNames {
		v, ok := decoded[name]
		if !ok {
			return AnamnesisFields{}, fmt.Errorf("intake: anamnesis field %q missing", name)
		}
		s, ok := v.(string)
		if !ok {
			return AnamnesisFields{}, fmt.Errorf("intake: anamnesis field %q is not a string", name)
		}
		values[name] = normalizeFieldValue(s)
	}
	return fieldsFromMap(values), nil
}

// fallbackFieldPatterns match either a JSON-ish `"field": "value"` pair or a
// labeled `field: value` line, per field, case-insensitively.
var fallbackFieldPatterns = buildFallbackPatterns()

func buildFallbackPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(anamnesisFieldNames))
	for _, name := range anamnesisFieldNames {
		patterns[name] = regexp.MustCompile(
			`(?i)"?` + regexp.QuoteMeta(name) + `"?\s*[:=]\s*(?:"((?:[^"\\]|\\.)*)"|([^\r\n,}]+))`,
		)
	}
	return patterns
}

// extractAnamnesisFallback scrapes whatever fields it can find out of
// malformed provider output. Returns the recovered count alongside the
// fields so callers can distinguish "partially recovered" from "garbage".
func extractAnamnesisFallback(raw string) (AnamnesisFields, int) {
	values := make(map[string]string, len(anamnesisFieldNames))
	recovered := 0
	for _, name := range anamnesisFieldNames {
		match := fallbackFieldPatterns[name].FindStringSubmatch(raw)
		value := ""
		if match != nil {
			if match[1] != "" {
				value = unescapeJSONString(match[1])
			} else {
				value = match[2]
			}
		}
		value = normalizeFieldValue(value)
		if value != NotProvidedSentinel {
			recovered++
		}
		values[name] = value
	}
	return fieldsFromMap(values), recovered
}

// Validate reports whether every field is a non-empty string. The engine
// treats a validation failure as terminal for the completion call.
func (f AnamnesisFields) Validate() error {
	for name, value := range map[string]string{
		"hovedplage":         f.Hovedplage,
		"tidligereSykdommer": f.TidligereSykdommer,
		"medisinering":       f.Medisinering,
		"allergier":          f.Allergier,
		"familiehistorie":    f.Familiehistorie,
		"sosialLivsstil":     f.SosialLivsstil,
		"ros":                f.ROS,
		"pasientMaal":        f.PasientMaal,
		"friOppsummering":    f.FriOppsummering,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("intake: anamnesis field %q is empty", name)
		}
	}
	return nil
}

func fieldsFromMap(values map[string]string) AnamnesisFields {
	return AnamnesisFields{
		Hovedplage:         values["hovedplage"],
		TidligereSykdommer: values["tidligereSykdommer"],
		Medisinering:       values["medisinering"],
		Allergier:          values["allergier"],
		Familiehistorie:    values["familiehistorie"],
		SosialLivsstil:     values["sosialLivsstil"],
		ROS:                values["ros"],
		PasientMaal:        values["pasientMaal"],
		FriOppsummering:    values["friOppsummering"],
	}
}

func normalizeFieldValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return NotProvidedSentinel
	}
	return s
}

// stripCodeFence removes a surrounding markdown fence some models insist on
// wrapping JSON in.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func unescapeJSONString(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return s
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
