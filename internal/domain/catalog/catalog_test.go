package catalog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleProducts() []Product {
	return []Product{
		{
			ID:    "booth",
			Title: "Стенд",
			Steps: []Step{
				{ID: "size", Label: "Размер", Kind: KindSelect, Required: true, Options: []Option{
					{ID: "s", Label: "3x3", Price: 10000},
					{ID: "m", Label: "3x6", Price: 15050, Description: "угловой"},
				}},
				{ID: "extras", Label: "Опции", Kind: KindImageSelect, MaxSelections: 2, Options: []Option{
					{ID: "tv", Label: "ТВ", Price: 2500, ImageURL: "https://img/tv.png"},
					{ID: "wifi", Label: "Wi-Fi", Price: 0},
				}},
				{ID: "name", Label: "Надпись на фризе", Kind: KindText, Placeholder: "Название компании"},
			},
		},
		{
			ID:    "print",
			Title: "Печать",
			Steps: []Step{
				{ID: "logo", Label: "Логотип", Kind: KindUpload, Required: true},
			},
		},
	}
}

func TestMoney(t *testing.T) {
	tests := []struct {
		in   string
		want Money
	}{
		{"100", 10000},
		{"100.5", 10050},
		{"100,05", 10005},
		{"1 000.00", 100000},
		{"", 0},
		{".5", 50},
	}
	for _, tt := range tests {
		got, err := ParseMoney(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseMoney("1.234")
	assert.ErrorIs(t, err, ErrBadMoney)
	_, err = ParseMoney("abc")
	assert.ErrorIs(t, err, ErrBadMoney)

	assert.Equal(t, "100.00", Money(10000).String())
	assert.Equal(t, "0.05", Money(5).String())
	assert.Equal(t, "-1.50", Money(-150).String())
}

func TestExcelRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, sampleProducts()))

	got, err := ReadExcel(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleProducts(), got)
}

func TestReadExcelErrors(t *testing.T) {
	build := func(rows ...[]any) *bytes.Buffer {
		f := excelize.NewFile()
		defer func() { _ = f.Close() }()
		for i, r := range rows {
			addr, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow("Sheet1", addr, &r))
		}
		buf, err := f.WriteToBuffer()
		require.NoError(t, err)
		return buf
	}

	t.Run("unknown kind", func(t *testing.T) {
		_, err := ReadExcel(build(excelHeader, []any{"p", "P", "", "s", "S", "radio"}))
		assert.ErrorIs(t, err, ErrBadCatalog)
	})

	t.Run("select without options", func(t *testing.T) {
		_, err := ReadExcel(build(excelHeader, []any{"p", "P", "", "s", "S", "select"}))
		assert.ErrorIs(t, err, ErrBadCatalog)
	})

	t.Run("bad price", func(t *testing.T) {
		_, err := ReadExcel(build(excelHeader,
			[]any{"p", "P", "", "s", "S", "select", "1", "", "", "", "a", "A", "дорого"}))
		assert.ErrorIs(t, err, ErrBadCatalog)
	})

	t.Run("header only", func(t *testing.T) {
		_, err := ReadExcel(build(excelHeader))
		assert.ErrorIs(t, err, ErrBadCatalog)
	})

	t.Run("blank rows are skipped", func(t *testing.T) {
		got, err := ReadExcel(build(excelHeader,
			[]any{"p", "P", "", "s", "S", "text", "да"},
			[]any{},
			[]any{"p", "", "", "s2", "S2", "upload"}))
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Len(t, got[0].Steps, 2)
		assert.True(t, got[0].Steps[0].Required)
		assert.False(t, got[0].Steps[1].Required)
	})
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(sampleProducts()))

	dup := sampleProducts()
	dup[1].ID = "booth"
	assert.ErrorIs(t, Validate(dup), ErrBadCatalog)

	empty := sampleProducts()
	empty[1].Steps = nil
	assert.ErrorIs(t, Validate(empty), ErrBadCatalog)

	neg := sampleProducts()
	neg[0].Steps[0].Options[0].Price = -1
	assert.ErrorIs(t, Validate(neg), ErrBadCatalog)

	textWithOpts := sampleProducts()
	textWithOpts[0].Steps[2].Options = []Option{{ID: "x"}}
	assert.ErrorIs(t, Validate(textWithOpts), ErrBadCatalog)
}
