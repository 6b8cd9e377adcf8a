package analyzer

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/pdflayout/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// Geometry thresholds are fractions of the font size unless noted.
const (
	lineTolerance   = 0.5
	spaceGap        = 0.15
	cellGap         = 2.0
	paragraphGap    = 1.6
	headingRatio    = 1.15
	marginBand      = 0.05 // fraction of page height
	maxHeadingRunes = 160
	minTableRows    = 2
	minTableCols    = 2
	ascent          = 0.8
)

var listMarker = regexp.MustCompile(`^([•●○◦▪■‣∙·\-–—*]|\(?\d{1,3}[.)]|\(?[a-zA-Z][.)])\s+\S`)

type cell struct {
	text   string
	x0, x1 float64
}

// textLine is a run of glyphs sharing a baseline, in PDF user space
// (bottom-left origin).
type textLine struct {
	cells    []cell
	baseline float64
	size     float64
}

func (l textLine) text() string {
	parts := make([]string, len(l.cells))
	for i, c := range l.cells {
		parts[i] = c.text
	}
	return strings.Join(parts, " ")
}

func (l textLine) x0() float64 { return l.cells[0].x0 }
func (l textLine) x1() float64 { return l.cells[len(l.cells)-1].x1 }

type pageGeom struct {
	no            int
	originX       float64
	originY       float64
	width, height float64
}

// box converts the union of lines to a top-left origin box.
func (g pageGeom) box(lines []textLine) *doctree.Box {
	if len(lines) == 0 {
		return nil
	}
	x0, x1 := math.Inf(1), math.Inf(-1)
	top, bottom := math.Inf(-1), math.Inf(1)
	for _, l := range lines {
		x0 = math.Min(x0, l.x0())
		x1 = math.Max(x1, l.x1())
		top = math.Max(top, l.baseline+ascent*l.size)
		bottom = math.Min(bottom, l.baseline-(1-ascent)*l.size)
	}
	return &doctree.Box{
		X:      round2(x0 - g.originX),
		Y:      round2(g.height - (top - g.originY)),
		Width:  round2(x1 - x0),
		Height: round2(top - bottom),
		PageNo: g.no,
	}
}

type fontStats struct {
	body float64
	max  float64
}

// measureFonts picks the most common glyph size as the body size.
func measureFonts(pages [][]pdflib.Text) fontStats {
	counts := make(map[float64]int)
	var st fontStats
	for _, items := range pages {
		for _, t := range items {
			if strings.TrimSpace(t.S) == "" || t.FontSize <= 0 {
				continue
			}
			size := math.Round(t.FontSize*2) / 2
			counts[size]++
			st.max = math.Max(st.max, size)
		}
	}
	best := 0
	for size, n := range counts {
		if n > best || (n == best && size < st.body) {
			best, st.body = n, size
		}
	}
	return st
}

// groupLines clusters glyphs into lines by baseline and splits each line
// into cells on wide horizontal gaps. Lines are returned top to bottom.
func groupLines(items []pdflib.Text) []textLine {
	glyphs := make([]pdflib.Text, 0, len(items))
	for _, t := range items {
		if t.S == "" {
			continue
		}
		if t.FontSize <= 0 {
			t.FontSize = 1
		}
		if t.W <= 0 {
			t.W = 0.5 * t.FontSize * float64(utf8.RuneCountInString(t.S))
		}
		glyphs = append(glyphs, t)
	}
	if len(glyphs) == 0 {
		return nil
	}
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].Y > glyphs[j].Y })

	var lines []textLine
	var cur []pdflib.Text
	flush := func() {
		if line := buildLine(cur); len(line.cells) > 0 {
			lines = append(lines, line)
		}
		cur = nil
	}
	lineY := glyphs[0].Y
	for _, g := range glyphs {
		if len(cur) > 0 && math.Abs(g.Y-lineY) > lineTolerance*g.FontSize {
			flush()
		}
		if len(cur) == 0 {
			lineY = g.Y
		}
		cur = append(cur, g)
	}
	flush()
	return lines
}

// buildLine orders glyphs left to right. Gaps are measured from the last
// visible glyph, so runs of space glyphs can still open a new cell.
func buildLine(glyphs []pdflib.Text) textLine {
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].X < glyphs[j].X })

	line := textLine{baseline: glyphs[0].Y}
	var sb strings.Builder
	var c cell
	started, space := false, false
	prevEnd := 0.0
	finish := func() {
		if t := strings.Join(strings.Fields(sb.String()), " "); t != "" {
			c.text = t
			line.cells = append(line.cells, c)
		}
		sb.Reset()
	}

	for _, g := range glyphs {
		if strings.TrimSpace(g.S) == "" {
			space = started
			continue
		}
		line.size = math.Max(line.size, g.FontSize)
		if !started {
			c = cell{x0: g.X}
			started = true
		} else {
			gap := g.X - prevEnd
			switch {
			case gap > cellGap*g.FontSize:
				finish()
				c = cell{x0: g.X}
			case space || gap > spaceGap*g.FontSize:
				sb.WriteByte(' ')
			}
		}
		space = false
		sb.WriteString(g.S)
		prevEnd = g.X + g.W
		c.x1 = math.Max(c.x1, prevEnd)
	}
	finish()
	return line
}

type block struct {
	label doctree.Label
	lines []textLine
}

// classifyLines assigns labels to a page's lines and merges neighbours into
// blocks. titleFree is true while no title has been assigned in the
// document; the second return reports whether this page used it.
func classifyLines(lines []textLine, g pageGeom, fonts fontStats, titleFree bool) ([]block, bool) {
	labels := make([]doctree.Label, len(lines))
	titleUsed := false
	for i, l := range lines {
		labels[i] = lineLabel(l, g, fonts)
		if labels[i] == doctree.LabelSectionHeader && titleFree && !titleUsed && g.no == 1 && math.Round(l.size*2)/2 >= fonts.max {
			labels[i] = doctree.LabelTitle
			titleUsed = true
		}
	}

	var blocks []block
	for i := 0; i < len(lines); {
		if end := tableRun(lines, labels, i); end-i >= minTableRows {
			blocks = append(blocks, block{label: doctree.LabelTable, lines: lines[i:end]})
			i = end
			continue
		}

		l := lines[i]
		if n := len(blocks); n > 0 && continues(blocks[n-1], labels[i], l) {
			blocks[n-1].lines = append(blocks[n-1].lines, l)
		} else {
			blocks = append(blocks, block{label: labels[i], lines: []textLine{l}})
		}
		i++
	}
	return blocks, titleUsed
}

func lineLabel(l textLine, g pageGeom, fonts fontStats) doctree.Label {
	text := l.text()
	rel := l.baseline - g.originY
	switch {
	case rel > g.height*(1-marginBand):
		return doctree.LabelPageHeader
	case rel < g.height*marginBand:
		return doctree.LabelPageFooter
	case listMarker.MatchString(text):
		return doctree.LabelListItem
	case fonts.body > 0 && l.size >= fonts.body*headingRatio &&
		len(l.cells) == 1 && utf8.RuneCountInString(text) <= maxHeadingRunes:
		return doctree.LabelSectionHeader
	}
	return doctree.LabelText
}

// tableRun returns the end of the run of multi-cell body lines starting at i.
func tableRun(lines []textLine, labels []doctree.Label, i int) int {
	end := i
	for end < len(lines) && len(lines[end].cells) >= minTableCols && labels[end] == doctree.LabelText {
		end++
	}
	return end
}

// continues reports whether line l extends the previous block.
func continues(prev block, label doctree.Label, l textLine) bool {
	last := prev.lines[len(prev.lines)-1]
	if last.baseline-l.baseline > paragraphGap*math.Max(last.size, l.size) {
		return false
	}
	switch prev.label {
	case doctree.LabelText:
		return label == doctree.LabelText
	case doctree.LabelSectionHeader, doctree.LabelTitle:
		return label == prev.label && math.Abs(last.size-l.size) < 0.5
	case doctree.LabelListItem:
		// wrapped item text is indented past the marker
		return label == doctree.LabelText && l.x0() > prev.lines[0].x0()+0.5*l.size
	}
	return false
}

func (b block) text() string {
	var sb strings.Builder
	for i, l := range b.lines {
		t := l.text()
		if i > 0 {
			prev := sb.String()
			if strings.HasSuffix(prev, "-") && startsLower(t) {
				sb.Reset()
				sb.WriteString(strings.TrimSuffix(prev, "-"))
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(t)
	}
	return sb.String()
}

func (b block) rows() [][]string {
	rows := make([][]string, len(b.lines))
	for i, l := range b.lines {
		row := make([]string, len(l.cells))
		for j, c := range l.cells {
			row[j] = c.text
		}
		rows[i] = row
	}
	return rows
}

func startsLower(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r >= 'a' && r <= 'z'
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
