package board

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realmlist/metarboard/internal/metar"
	"github.com/realmlist/metarboard/internal/models"
)

func TestEncode_Repetition(t *testing.T) {
	tests := []struct {
		cover models.CoverCode
		ok    bool
		want  int
	}{
		{models.CoverFEW, true, 1},
		{models.CoverSCT, true, 2},
		{models.CoverBKN, true, 3},
		{models.CoverOVC, true, 4},
		{models.CoverOVX, true, 4},
		{models.CoverVV, true, 4},
		{"", false, 1},
		{"NSC", true, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.cover), func(t *testing.T) {
			got := Encode(models.CategoryVFR, tt.cover, tt.ok)
			assert.Equal(t, Segments(strings.Repeat(string(ColorGreen), tt.want)), got)
			assert.Equal(t, tt.want, got.Count())
		})
	}
}

func TestEncode_BKNIsThreeVFRTiles(t *testing.T) {
	assert.Equal(t, Segments("{66}{66}{66}"), Encode(models.CategoryVFR, models.CoverBKN, true))
}

func TestCategoryColor(t *testing.T) {
	assert.Equal(t, ColorGreen, CategoryColor(models.CategoryVFR))
	assert.Equal(t, ColorBlue, CategoryColor(models.CategoryMVFR))
	assert.Equal(t, ColorRed, CategoryColor(models.CategoryIFR))
	assert.Equal(t, ColorViolet, CategoryColor(models.CategoryLIFR))
	assert.Equal(t, ColorWhite, CategoryColor(models.FlightCategory("XFR")))
}

func TestEncodeStatus(t *testing.T) {
	tests := map[metar.Status]string{
		metar.StatusRed:    "{63}",
		metar.StatusAmber:  "{64}",
		metar.StatusYellow: "{65}",
		metar.StatusGreen:  "{66}",
		metar.StatusWhite:  "{71}",
		metar.StatusBlue:   "{67}",
		metar.StatusNone:   " ",
	}
	for status, want := range tests {
		assert.Equal(t, want, EncodeStatus(status), "status %q", status)
	}
}

func TestEncodeReport(t *testing.T) {
	r := models.NewWeatherReport(models.KindMETAR, "EHGR", "", nil, []models.CloudLayer{
		{Cover: models.CoverOVC, BaseFeet: 800},
		{Cover: models.CoverSCT, BaseFeet: 400},
	})
	assert.Equal(t, Segments("{63}{63}"), EncodeReport(models.CategoryIFR, r))
}

func TestFormat_METAR(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 5, 0, 0, time.UTC)
	got := Format(Line{
		Kind:      models.KindMETAR,
		Now:       now,
		Segments:  "{66}{66}",
		Status:    "{64}",
		RawText:   "EHGR 170855Z 24012KT 9999 SCT030 14/08 Q1012 AMB",
		StationID: "EHGR",
	})
	assert.Equal(t, "MET VFR{66}{66} MIL{64}JT0905\nEHGR 170855Z 24012KT 9999 SCT030 14/08 Q1012 AMB", got)
}

func TestFormat_METARBlankStatus(t *testing.T) {
	got := Format(Line{
		Kind:     models.KindMETAR,
		Now:      time.Date(2026, 10, 17, 23, 59, 0, 0, time.UTC),
		Segments: "{68}",
		Status:   EncodeStatus(metar.StatusNone),
		RawText:  "KJFK 172351Z 00000KT 1/4SM FG",
	})
	assert.Equal(t, "MET VFR{68} MIL JT2359\nKJFK 172351Z 00000KT 1/4SM FG", got)
}

func TestFormat_TAF(t *testing.T) {
	now := time.Date(2026, 10, 17, 14, 30, 0, 0, time.UTC)

	t.Run("with raw text", func(t *testing.T) {
		got := Format(Line{Kind: models.KindTAF, Now: now, RawText: "TAF EHGR 171100Z 1712/1818 24010KT 9999 SCT030", StationID: "EHGR"})
		assert.Equal(t, "1430 TAF EHGR 171100Z 1712/1818 24010KT 9999 SCT030", got)
	})

	t.Run("empty raw falls back to kind and station", func(t *testing.T) {
		got := Format(Line{Kind: models.KindTAF, Now: now, StationID: "EHGR"})
		assert.Equal(t, "1430 TAF EHGR", got)
	})
}

func TestFormat_UsesGivenLocation(t *testing.T) {
	ams, err := time.LoadLocation("Europe/Amsterdam")
	require.NoError(t, err)

	utc := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	got := Format(Line{Kind: models.KindTAF, Now: utc.In(ams), RawText: "TAF X"})
	assert.Equal(t, "1300 TAF X", got)
}

func TestNoData(t *testing.T) {
	assert.Equal(t, "No METAR data available.", NoData(models.KindMETAR))
	assert.Equal(t, "No TAF data available.", NoData(models.KindTAF))
}

func TestLayout(t *testing.T) {
	rows := layout("MET VFR{66}{66}\nABC")
	require.Len(t, rows, MinRows)

	require.Len(t, rows[0], 9)
	assert.Equal(t, 'M', rows[0][0].char)
	assert.True(t, rows[0][7].tile)
	assert.Equal(t, tileColors[66], rows[0][8].color)
	assert.Len(t, rows[1], 3)
	assert.Empty(t, rows[2])

	long := strings.Repeat("X", Columns+3)
	rows = layout(long + "\n\nY")
	assert.Len(t, rows[0], Columns)
	assert.Len(t, rows[1], 3)
	assert.Empty(t, rows[2])
	assert.Equal(t, 'Y', rows[3][0].char)
}

func TestLayout_InvalidUTF8(t *testing.T) {
	var rows [][]cell
	require.NotPanics(t, func() { rows = layout("AB\xb0C\n\xb0") })

	require.Len(t, rows[0], 4)
	assert.Equal(t, utf8.RuneError, rows[0][2].char)
	assert.Equal(t, 'C', rows[0][3].char)
	require.Len(t, rows[1], 1)
	assert.Equal(t, utf8.RuneError, rows[1][0].char)

	_, err := RenderPreview("EHGR 171425Z \xb0\xb0 9999")
	require.NoError(t, err)
}

func TestRenderPreview(t *testing.T) {
	data, err := RenderPreview("MET VFR{66}{66}{66} MIL JT1200\nEHGR 171425Z 24012KT 9999 BKN025")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2*margin+Columns*(cellWidth+cellGap)-cellGap, img.Bounds().Dx())
	assert.Equal(t, 2*margin+MinRows*(cellHeight+cellGap)-cellGap, img.Bounds().Dy())
}

func TestPreviewCache(t *testing.T) {
	c := NewPreviewCache()

	first, err := c.Get("No METAR data available.")
	require.NoError(t, err)
	again, err := c.Get("No METAR data available.")
	require.NoError(t, err)
	assert.Same(t, &first[0], &again[0], "same text is served from cache")

	other, err := c.Get("No TAF data available.")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}
