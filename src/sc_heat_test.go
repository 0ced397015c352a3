package src

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/require"
)

func TestHazardUpperLimit(t *testing.T) {
	mkRows := func(hrs ...float64) []CoxRow {
		rows := make([]CoxRow, 0)
		for _, hr := range hrs {
			rows = append(rows, CoxRow{HR: hr, DisplayHR: hr})
		}
		return rows
	}
	//clamped up from small values
	require.Equal(t, 2.0, HazardUpperLimit(mkRows(1.1, 1.1, 1.1, 1.1, 1.1)))
	//clamped down from extreme values
	require.Equal(t, 4.0, HazardUpperLimit(mkRows(10, 10, 10, 10, 10)))
	//inside the window the percentile wins
	require.Equal(t, 3.5, HazardUpperLimit(mkRows(2.0, 2.5, 3.0, 3.5, 3.9)))
	//a single row is its own percentile, then clamped
	require.Equal(t, 4.0, HazardUpperLimit(mkRows(10)))
	require.Equal(t, 2.5, HazardUpperLimit(mkRows(2.5)))
	//no rows falls back to the lower bound
	require.Equal(t, 2.0, HazardUpperLimit(nil))
}

func TestClipHR(t *testing.T) {
	rows := []CoxRow{
		{HR: 5.0, DisplayHR: 5.0},
		{HR: 2.5, DisplayHR: 2.5},
	}
	ClipHR(rows, 3.0)
	require.Equal(t, 5.0, rows[0].HR)
	require.Equal(t, 3.0, rows[0].DisplayHR)
	require.Equal(t, 2.5, rows[1].HR)
	require.Equal(t, 2.5, rows[1].DisplayHR)
}

func TestHazardScale(t *testing.T) {
	scale := NewHazardScale(3.0)
	white, _ := colorful.Hex("#FFFFFF")
	red, _ := colorful.Hex("#CB181D")
	darkBlue, _ := colorful.Hex("#08306B")
	paleBlue, _ := colorful.Hex("#DEEBF7")

	//protective side uses the fixed buckets
	c := scale.Color(0.05).(colorful.Color)
	require.True(t, c.AlmostEqualRgb(darkBlue))
	c = scale.Color(0.95).(colorful.Color)
	require.True(t, c.AlmostEqualRgb(paleBlue))

	//risk side blends white to red
	c = scale.Color(1.0).(colorful.Color)
	require.True(t, c.AlmostEqualRgb(white))
	c = scale.Color(3.0).(colorful.Color)
	require.True(t, c.AlmostEqualRgb(red))
	c = scale.Color(10.0).(colorful.Color)
	require.True(t, c.AlmostEqualRgb(red))
	c = scale.Color(2.0).(colorful.Color)
	require.False(t, c.AlmostEqualRgb(white))
	require.False(t, c.AlmostEqualRgb(red))
}

func TestRenderHeatmap(t *testing.T) {
	dir, err := ioutil.TempDir("", "metaprog")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "heat.png")

	rows := []CoxRow{
		{Group: "A", Label: "A (n=30)", N: 30, GeneSet: "risk", Concordance: 0.9, HR: 2.5, DisplayHR: 2.5, P: 0.0002, Signif: "***"},
		{Group: "A", Label: "A (n=30)", N: 30, GeneSet: "noise", Concordance: 0.5, HR: 1.0, DisplayHR: 1.0, P: 0.8, Signif: "ns"},
		{Group: "B", Label: "B (n=24)", N: 24, GeneSet: "risk", Concordance: 0.7, HR: 0.4, DisplayHR: 0.4, P: 0.03, Signif: "*"},
		{Group: "B", Label: "B (n=24)", N: 24, GeneSet: "noise", Concordance: 0.55, HR: 1.2, DisplayHR: 1.2, P: 0.4, Signif: "ns"},
	}
	require.NoError(t, RenderHeatmap(rows, 3.0, path, "screen", true))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.True(t, info.Size() > 0)
}

func TestRenderHeatmapEmpty(t *testing.T) {
	err := RenderHeatmap(nil, 3.0, "unused.png", "", false)
	require.Error(t, err)
}
