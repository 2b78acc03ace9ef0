package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockmcp/internal/models"
)

func TestNumberEquivalentForms(t *testing.T) {
	// The same value arriving from different upstream shapes must yield the
	// same canonical number.
	forms := []any{
		"1,234.50%",
		"1234.5",
		" 1234.50 ",
		1234.5,
		json.Number("1234.5"),
	}

	for _, v := range forms {
		got, err := Number(v)
		require.NoError(t, err, "form %#v", v)
		assert.Equal(t, 1234.5, got, "form %#v", v)
	}
}

func TestNumberSentinelsAreAbsentNotZero(t *testing.T) {
	for _, v := range []any{"-", "", "N/A", "--", nil, "  "} {
		got, err := Value(models.FieldNumber, v)
		require.NoError(t, err, "sentinel %#v", v)
		assert.Nil(t, got, "sentinel %#v must be absent, never 0", v)
	}
}

func TestNumberUnparseable(t *testing.T) {
	_, err := Number("abc")
	assert.Error(t, err)

	_, err = Number("12.3.4")
	assert.Error(t, err)
}

func TestDateFormats(t *testing.T) {
	cases := map[string]string{
		"20240102":            "2024-01-02",
		"2024-01-02":          "2024-01-02",
		"2024/01/02":          "2024-01-02",
		"2024/1/2":            "2024-01-02",
		"2024-01-02 15:04:05": "2024-01-02",
	}

	for in, want := range cases {
		got, err := Date(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	_, err := Date("02-01-2024")
	assert.Error(t, err)

	got, err := Date("-")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testFields() []models.FieldSpec {
	return []models.FieldSpec{
		{Name: "date", Type: models.FieldDate, Required: true, Upstream: "日期"},
		{Name: "close", Type: models.FieldNumber, Required: true, Upstream: "收盘"},
		{Name: "pe", Type: models.FieldNumber, Upstream: "市盈率"},
		{Name: "name", Type: models.FieldString, Upstream: "名称"},
	}
}

func TestRowsNormalizesAcrossShapes(t *testing.T) {
	raw := []map[string]any{
		{"日期": "20240102", "收盘": "1,234.50", "市盈率": "12.5%", "名称": " 浦发银行 "},
		{"日期": "2024/01/03", "收盘": 1230.0, "市盈率": "-", "名称": "浦发银行"},
	}

	rows, warnings, err := Rows(testFields(), raw)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Empty(t, warnings)

	assert.Equal(t, "2024-01-02", rows[0]["date"])
	assert.Equal(t, 1234.5, rows[0]["close"])
	assert.Equal(t, 12.5, rows[0]["pe"])
	assert.Equal(t, "浦发银行", rows[0]["name"])

	assert.Equal(t, "2024-01-03", rows[1]["date"])
	_, present := rows[1]["pe"]
	assert.False(t, present, "sentinel must collapse to absent")
}

func TestRowsAcceptsCanonicalColumnNames(t *testing.T) {
	// Some provider endpoints already return anglicized columns.
	raw := []map[string]any{
		{"date": "20240102", "close": "10.5"},
	}

	rows, _, err := Rows(testFields(), raw)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", rows[0]["date"])
	assert.Equal(t, 10.5, rows[0]["close"])
}

func TestRowsUnparseableOptionalFieldIsFlagged(t *testing.T) {
	raw := []map[string]any{
		{"日期": "20240102", "收盘": "10", "市盈率": "garbage"},
		{"日期": "20240103", "收盘": "11", "市盈率": "junk"},
	}

	rows, warnings, err := Rows(testFields(), raw)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	_, present := rows[0]["pe"]
	assert.False(t, present)
	// Flagged once per field, not once per row.
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "pe")
}

func TestRowsMissingRequiredFieldFails(t *testing.T) {
	raw := []map[string]any{
		{"收盘": "10.5"},
	}

	_, _, err := Rows(testFields(), raw)
	require.Error(t, err)

	te := models.AsToolError(err)
	assert.Equal(t, models.KindMalformedUpstream, te.Kind)
	assert.Contains(t, te.Message, "date")
}

func TestRowsRequiredSentinelFails(t *testing.T) {
	raw := []map[string]any{
		{"日期": "20240102", "收盘": "N/A"},
	}

	_, _, err := Rows(testFields(), raw)
	require.Error(t, err)
	assert.Equal(t, models.KindMalformedUpstream, models.AsToolError(err).Kind)
}

func TestValueInteger(t *testing.T) {
	got, err := Value(models.FieldInteger, json.Number("5"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)
}
