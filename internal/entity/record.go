package entity

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMalformedResponse is returned when an extraction response is not a JSON object.
	ErrMalformedResponse = errors.New("extraction response is not a valid JSON object")
	// ErrSchemaMismatch is returned when an extraction response does not match the schema shape.
	ErrSchemaMismatch = errors.New("extraction response does not match schema")
)

// TimestampLayout is the ISO-8601 layout written by the file and spreadsheet sinks.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Field is one named string value of the extraction schema.
type Field struct {
	Name  string // machine name, used as JSON key and column name
	Title string // human-readable header
}

// Schema is the ordered field list shared by extraction and every sink.
type Schema struct {
	Fields []Field
}

// GoldPriceSchema is the deployed extraction schema.
var GoldPriceSchema = &Schema{
	Fields: []Field{
		{Name: "bochk_50g_buy", Title: "BOCHK 50g Buy"},
		{Name: "bochk_50g_sell", Title: "BOCHK 50g Sell"},
		{Name: "bochk_2g_buy", Title: "BOCHK 2g Buy"},
		{Name: "bochk_2g_sell", Title: "BOCHK 2g Sell"},
		{Name: "emperio_price", Title: "Emperio Price"},
		{Name: "emperio_buyback", Title: "Emperio Buyback"},
		{Name: "heraeus_price", Title: "Heraeus Price"},
	},
}

// Names returns the field names in declared order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Titles returns the human-readable field titles in declared order.
func (s *Schema) Titles() []string {
	titles := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		titles[i] = f.Title
	}
	return titles
}

// Index returns the position of the named field, or -1.
func (s *Schema) Index(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Len returns the number of declared fields.
func (s *Schema) Len() int {
	return len(s.Fields)
}

// Record is one structured observation: exactly one string per schema
// field, in declared order. An empty string means the field was not found.
type Record struct {
	Schema     *Schema
	ObservedAt time.Time
	Values     []string
}

// NewRecord returns a record with every field set to the empty string.
func NewRecord(schema *Schema, observedAt time.Time) *Record {
	return &Record{
		Schema:     schema,
		ObservedAt: observedAt,
		Values:     make([]string, schema.Len()),
	}
}

// Get returns the value of the named field, or "" if the field is unknown.
func (r *Record) Get(name string) string {
	if i := r.Schema.Index(name); i >= 0 {
		return r.Values[i]
	}
	return ""
}

// Set assigns the named field. It fails for names outside the schema.
func (r *Record) Set(name, value string) error {
	i := r.Schema.Index(name)
	if i < 0 {
		return fmt.Errorf("%w: unknown field %q", ErrSchemaMismatch, name)
	}
	r.Values[i] = value
	return nil
}

// Validate checks that the record carries exactly one value per field.
func (r *Record) Validate() error {
	if r.Schema == nil {
		return errors.New("record has no schema")
	}
	if len(r.Values) != r.Schema.Len() {
		return fmt.Errorf("%w: record has %d values, schema declares %d fields",
			ErrSchemaMismatch, len(r.Values), r.Schema.Len())
	}
	return nil
}

// Map returns the record as field name to value.
func (r *Record) Map() map[string]string {
	m := make(map[string]string, len(r.Values))
	for i, f := range r.Schema.Fields {
		m[f.Name] = r.Values[i]
	}
	return m
}
