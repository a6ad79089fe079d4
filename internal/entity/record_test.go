package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = &Schema{Fields: []Field{
	{Name: "buy", Title: "Buy"},
	{Name: "sell", Title: "Sell"},
}}

func TestNewRecord_AllFieldsEmpty(t *testing.T) {
	rec := NewRecord(GoldPriceSchema, time.Now())

	require.NoError(t, rec.Validate())
	assert.Len(t, rec.Values, GoldPriceSchema.Len())
	for _, v := range rec.Values {
		assert.Equal(t, "", v)
	}
}

func TestRecord_SetGet(t *testing.T) {
	rec := NewRecord(testSchema, time.Now())

	require.NoError(t, rec.Set("sell", "105"))
	assert.Equal(t, "105", rec.Get("sell"))
	assert.Equal(t, "", rec.Get("buy"))
	assert.Equal(t, "", rec.Get("missing"))

	err := rec.Set("missing", "1")
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestRecord_ValidateArity(t *testing.T) {
	rec := &Record{Schema: testSchema, Values: []string{"1"}}
	assert.ErrorIs(t, rec.Validate(), ErrSchemaMismatch)

	assert.Error(t, (&Record{}).Validate())
}

func TestSchema_Accessors(t *testing.T) {
	assert.Equal(t, []string{"buy", "sell"}, testSchema.Names())
	assert.Equal(t, []string{"Buy", "Sell"}, testSchema.Titles())
	assert.Equal(t, 1, testSchema.Index("sell"))
	assert.Equal(t, -1, testSchema.Index("mid"))
}

func TestGoldPriceSchema(t *testing.T) {
	assert.Equal(t, []string{
		"bochk_50g_buy", "bochk_50g_sell", "bochk_2g_buy", "bochk_2g_sell",
		"emperio_price", "emperio_buyback", "heraeus_price",
	}, GoldPriceSchema.Names())
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 5, 1, 16, 30, 5, 123456789, time.FixedZone("HKT", 8*3600))
	assert.Equal(t, "2024-05-01T08:30:05.123Z", FormatTimestamp(ts))
}

func TestRecordCodec_RoundTrip(t *testing.T) {
	observed := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	rec := NewRecord(testSchema, observed)
	require.NoError(t, rec.Set("buy", "100"))

	data, err := MarshalRecord(rec)
	require.NoError(t, err)

	got, err := UnmarshalRecord(data, testSchema)
	require.NoError(t, err)
	assert.True(t, observed.Equal(got.ObservedAt))
	assert.Equal(t, []string{"100", ""}, got.Values)
}

func TestUnmarshalRecord_Rejects(t *testing.T) {
	_, err := UnmarshalRecord([]byte(`{"fields":{"mid":"1"}}`), testSchema)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = UnmarshalRecord([]byte(`not json`), testSchema)
	assert.Error(t, err)
}

func TestImageFormat(t *testing.T) {
	assert.Equal(t, "image/png", FormatPNG.MIMEType())
	assert.Equal(t, "image/jpeg", FormatJPEG.MIMEType())
	assert.Equal(t, ".png", FormatPNG.Extension())
	assert.Equal(t, ".jpg", FormatJPEG.Extension())
}

func TestDefaultTargets_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for _, target := range DefaultTargets {
		assert.False(t, seen[target.ID], "duplicate target id %s", target.ID)
		seen[target.ID] = true
		assert.NotEmpty(t, target.URL)
	}
	assert.Equal(t, []string{"ctf", "bochk", "emperio", "heraeus"},
		[]string{DefaultTargets[0].ID, DefaultTargets[1].ID, DefaultTargets[2].ID, DefaultTargets[3].ID})
}
