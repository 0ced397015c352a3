package src

import (
	"fmt"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	hazardLimitLo = 2.0
	hazardLimitHi = 4.0
	hazardPct     = 80.0
)

//HazardUpperLimit picks the display ceiling for hazard ratios as the
//80th percentile of the fitted values, clamped into [2, 4].
func HazardUpperLimit(rows []CoxRow) float64 {
	hrs := make([]float64, 0)
	for _, row := range rows {
		hrs = append(hrs, row.HR)
	}
	limit := hazardLimitLo
	if len(hrs) == 1 {
		//a lone value is its own percentile, which Percentile rejects
		limit = hrs[0]
	} else if len(hrs) > 1 {
		var err error
		limit, err = stats.Percentile(hrs, hazardPct)
		if err != nil {
			return hazardLimitLo
		}
	}
	if limit < hazardLimitLo {
		limit = hazardLimitLo
	}
	if limit > hazardLimitHi {
		limit = hazardLimitHi
	}
	return limit
}

//ClipHR caps each display hazard ratio at limit, leaving the fitted
//value untouched.
func ClipHR(rows []CoxRow, limit float64) {
	for i := range rows {
		if rows[i].HR > limit {
			rows[i].DisplayHR = limit
		}
	}
}

//HazardScale maps hazard ratios onto a diverging ramp: five fixed blues
//below 1 and a white to red blend from 1 up to Limit.
type HazardScale struct {
	Limit float64
	lows  []colorful.Color
	white colorful.Color
	red   colorful.Color
}

func NewHazardScale(limit float64) *HazardScale {
	lowHex := []string{"#08306B", "#2171B5", "#4292C6", "#9ECAE1", "#DEEBF7"}
	lows := make([]colorful.Color, 0)
	for _, h := range lowHex {
		c, _ := colorful.Hex(h)
		lows = append(lows, c)
	}
	white, _ := colorful.Hex("#FFFFFF")
	red, _ := colorful.Hex("#CB181D")
	return &HazardScale{Limit: limit, lows: lows, white: white, red: red}
}

func (s *HazardScale) Color(hr float64) color.Color {
	if hr < 1.0 {
		b := int(hr * float64(len(s.lows)))
		if b < 0 {
			b = 0
		}
		if b >= len(s.lows) {
			b = len(s.lows) - 1
		}
		return s.lows[b]
	}
	t := 1.0
	if s.Limit > 1.0 {
		t = (hr - 1.0) / (s.Limit - 1.0)
	}
	if t > 1.0 {
		t = 1.0
	}
	return s.white.BlendLab(s.red, t).Clamped()
}

//RenderHeatmap draws the screen result as a dot grid with gene sets on
//the x axis and partition labels on the y axis. Color encodes the
//display hazard ratio, dot size the concordance and the overlay text
//the significance marks. Axes follow the first appearance order of the
//rows, so sorted input keeps strong associations near the origin.
func RenderHeatmap(rows []CoxRow, limit float64, outFile string, title string, hideNS bool) error {
	if len(rows) == 0 {
		return fmt.Errorf("no row to draw")
	}
	sets := make([]string, 0)
	setPos := make(map[string]int)
	groups := make([]string, 0)
	groupPos := make(map[string]int)
	for _, row := range rows {
		_, exist := setPos[row.GeneSet]
		if !exist {
			setPos[row.GeneSet] = len(sets)
			sets = append(sets, row.GeneSet)
		}
		_, exist = groupPos[row.Label]
		if !exist {
			groupPos[row.Label] = len(groups)
			groups = append(groups, row.Label)
		}
	}

	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = title
	p.X.Tick.Label.Rotation = math.Pi / 3.0
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.NominalX(sets...)
	p.NominalY(groups...)

	xys := make(plotter.XYs, len(rows))
	sigs := make([]string, len(rows))
	cMin := rows[0].Concordance
	cMax := rows[0].Concordance
	for i, row := range rows {
		xys[i].X = float64(setPos[row.GeneSet])
		xys[i].Y = float64(groupPos[row.Label])
		sigs[i] = row.Signif
		if hideNS && sigs[i] == "ns" {
			sigs[i] = ""
		}
		if row.Concordance < cMin {
			cMin = row.Concordance
		}
		if row.Concordance > cMax {
			cMax = row.Concordance
		}
	}

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	scale := NewHazardScale(limit)
	scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		t := 0.5
		if cMax > cMin {
			t = (rows[i].Concordance - cMin) / (cMax - cMin)
		}
		return draw.GlyphStyle{
			Color:  scale.Color(rows[i].DisplayHR),
			Radius: vg.Points(4.0 + 8.0*t),
			Shape:  draw.CircleGlyph{},
		}
	}
	p.Add(scatter)

	marks, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: sigs})
	if err != nil {
		return err
	}
	for i := range marks.TextStyle {
		marks.TextStyle[i].XAlign = draw.XCenter
		marks.TextStyle[i].YAlign = draw.YCenter
		marks.TextStyle[i].Font.Size = vg.Points(8.0)
	}
	p.Add(marks)

	w := vg.Points(float64(60*len(sets) + 160))
	h := vg.Points(float64(36*len(groups) + 120))
	return p.Save(w, h, outFile)
}
