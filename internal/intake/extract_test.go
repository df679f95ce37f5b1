package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnamnesis_StrictJSON(t *testing.T) {
	fields, err := ParseAnamnesis(validAnamnesisJSON)
	require.NoError(t, err)
	assert.Equal(t, "Hodepine i to uker", fields.Hovedplage)
	assert.Equal(t, "Migrene hos mor", fields.Familiehistorie)
	assert.NoError(t, fields.Validate())
}

func TestParseAnamnesis_CodeFence(t *testing.T) {
	fenced := "```json\n" + validAnamnesisJSON + "\n```"
	fields, err := ParseAnamnesis(fenced)
	require.NoError(t, err)
	assert.Equal(t, "Pollen", fields.Allergier)
}

func TestParseAnamnesis_EmptyValuesGetSentinel(t *testing.T) {
	raw := `{
	  "hovedplage": "Ryggsmerter",
	  "tidligereSykdommer": "",
	  "medisinering": "  ",
	  "allergier": "Ingen kjente",
	  "familiehistorie": "",
	  "sosialLivsstil": "Trener ukentlig",
	  "ros": "",
	  "pasientMaal": "Smertelindring",
	  "friOppsummering": ""
	}`
	fields, err := ParseAnamnesis(raw)
	require.NoError(t, err)
	assert.Equal(t, "Ryggsmerter", fields.Hovedplage)
	assert.Equal(t, NotProvidedSentinel, fields.TidligereSykdommer)
	assert.Equal(t, NotProvidedSentinel, fields.Medisinering)
	assert.Equal(t, NotProvidedSentinel, fields.ROS)
	assert.NoError(t, fields.Validate(), "sentinel values still count as filled")
}

func TestParseAnamnesis_FallbackRecoversFromProse(t *testing.T) {
	// Truncated / malformed JSON with surrounding prose.
	raw := `Her er oppsummeringen:
	"hovedplage": "Svimmelhet ved oppreisning",
	"medisinering": "Metoprolol 50mg"
	... (resten mangler)`

	fields, err := ParseAnamnesis(raw)
	require.NoError(t, err)
	assert.Equal(t, "Svimmelhet ved oppreisning", fields.Hovedplage)
	assert.Equal(t, "Metoprolol 50mg", fields.Medisinering)
	assert.Equal(t, NotProvidedSentinel, fields.Allergier)
	assert.Equal(t, NotProvidedSentinel, fields.FriOppsummering)
}

func TestParseAnamnesis_FallbackHandlesEscapes(t *testing.T) {
	raw := `"hovedplage": "Smerter \"bak\" brystbenet"`
	fields, err := ParseAnamnesis(raw)
	require.NoError(t, err)
	assert.Equal(t, `Smerter "bak" brystbenet`, fields.Hovedplage)
}

func TestParseAnamnesis_NothingRecovered(t *testing.T) {
	_, err := ParseAnamnesis("beklager, jeg kan ikke lage en oppsummering")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoFieldsRecovered)
}

func TestParseAnamnesis_MissingFieldFallsBack(t *testing.T) {
	// Valid JSON but one required field absent: strict parse rejects it,
	// fallback recovers the eight present fields.
	raw := `{
	  "hovedplage": "Hoste",
	  "tidligereSykdommer": "Astma",
	  "medisinering": "Ventoline",
	  "allergier": "Ingen",
	  "familiehistorie": "Ingen",
	  "sosialLivsstil": "Ikke-røyker",
	  "ros": "Ellers frisk",
	  "pasientMaal": "Bli frisk"
	}`
	fields, err := ParseAnamnesis(raw)
	require.NoError(t, err)
	assert.Equal(t, "Hoste", fields.Hovedplage)
	assert.Equal(t, NotProvidedSentinel, fields.FriOppsummering)
}

func TestParseAnamnesis_NonStringFieldFallsBack(t *testing.T) {
	raw := `{
	  "hovedplage": "Feber",
	  "tidligereSykdommer": null,
	  "medisinering": "Ingen",
	  "allergier": "Ingen",
	  "familiehistorie": "Ingen",
	  "sosialLivsstil": "Ingen",
	  "ros": "Ingen",
	  "pasientMaal": "Ingen",
	  "friOppsummering": "Ingen"
	}`
	fields, err := ParseAnamnesis(raw)
	require.NoError(t, err)
	assert.Equal(t, "Feber", fields.Hovedplage)
}

func TestValidate_EmptyField(t *testing.T) {
	fields := AnamnesisFields{
		Hovedplage:         "x",
		TidligereSykdommer: "x",
		Medisinering:       "x",
		Allergier:          "x",
		Familiehistorie:    "x",
		SosialLivsstil:     "x",
		ROS:                "x",
		PasientMaal:        "x",
		FriOppsummering:    "",
	}
	assert.Error(t, fields.Validate())
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`{"a":1}`))
}
