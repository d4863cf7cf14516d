package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin   = 40.0
	footerMargin = 50.0
	rowHeight    = 18.0
	fontFamily   = "Helvetica"
	baseFontSize = 10.0
)

// RenderPDF renders doc as an A4 PDF. Tables that run past the bottom margin
// continue on a new page with their header repeated.
func RenderPDF(doc Document) ([]byte, error) {
	return render(doc, true)
}

func render(doc Document, compress bool) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, footerMargin)
	pdf.AliasNbPages("{nb}")
	pdf.SetTitle(doc.Title, true)
	pdf.SetAuthor(doc.UserName, true)
	pdf.SetCreator(AppName, true)
	if !doc.Generated.IsZero() {
		pdf.SetCreationDate(doc.Generated)
	}

	r := &renderer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pageW, _ := pdf.GetPageSize()
	r.width = pageW - 2*pageMargin

	pdf.SetFooterFunc(r.footer)
	pdf.AddPage()
	r.header(doc)
	for _, s := range doc.Sections {
		r.section(s)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type renderer struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	width float64
}

func (r *renderer) text(c Color) { r.pdf.SetTextColor(c.R, c.G, c.B) }
func (r *renderer) fill(c Color) { r.pdf.SetFillColor(c.R, c.G, c.B) }
func (r *renderer) draw(c Color) { r.pdf.SetDrawColor(c.R, c.G, c.B) }

func (r *renderer) header(doc Document) {
	pdf := r.pdf
	left := pageMargin
	top := pdf.GetY()
	half := r.width / 2

	pdf.SetFont(fontFamily, "B", 20)
	r.text(ColorTitle)
	pdf.SetXY(left, top)
	pdf.CellFormat(half, 24, r.tr(doc.Title), "", 2, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 14)
	r.text(ColorMuted)
	pdf.CellFormat(half, 18, r.tr(doc.Subtitle), "", 0, "L", false, 0, "")

	pdf.SetXY(left+half, top)
	pdf.SetFont(fontFamily, "B", 12)
	r.text(ColorTitle)
	pdf.CellFormat(half, 16, AppName, "", 2, "R", false, 0, "")
	pdf.SetFont(fontFamily, "", 9)
	r.text(ColorMuted)
	pdf.CellFormat(half, 13, r.tr(doc.UserName), "", 2, "R", false, 0, "")
	if doc.GeneratedOn != "" {
		pdf.CellFormat(half, 13, r.tr("Generated: "+doc.GeneratedOn), "", 2, "R", false, 0, "")
	}

	y := top + 48
	r.draw(ColorRule)
	pdf.SetLineWidth(1.5)
	pdf.Line(left, y, left+r.width, y)
	pdf.SetLineWidth(0.5)
	pdf.SetXY(left, y+16)
}

func (r *renderer) footer() {
	pdf := r.pdf
	pdf.SetY(-30)
	pdf.SetFont(fontFamily, "", 8)
	r.text(ColorFooter)
	pdf.SetX(pageMargin)
	pdf.CellFormat(r.width, 10, AppName, "", 0, "L", false, 0, "")
	pdf.SetX(pageMargin)
	pdf.CellFormat(r.width, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
}

// ensure starts a new page when h more points would cross the bottom margin.
func (r *renderer) ensure(h float64) bool {
	_, pageH := r.pdf.GetPageSize()
	if r.pdf.GetY()+h <= pageH-footerMargin {
		return false
	}
	r.pdf.AddPage()
	return true
}

func (r *renderer) section(s Section) {
	if s.Title != "" {
		r.ensure(28 + 2*rowHeight)
		r.sectionTitle(s)
	}
	switch {
	case len(s.Boxes) > 0:
		r.boxes(s.Boxes)
	case len(s.Ranked) > 0:
		r.ranked(s.Ranked, s.RankColor)
	case s.Table != nil:
		r.table(s.Table)
	}
	r.pdf.Ln(14)
}

func (r *renderer) sectionTitle(s Section) {
	pdf := r.pdf
	c := ColorTitle
	if s.TitleColor != nil {
		c = *s.TitleColor
	}
	pdf.SetFont(fontFamily, "B", 13)
	r.text(c)
	pdf.SetX(pageMargin)
	pdf.CellFormat(r.width, 20, r.tr(s.Title), "", 1, "L", false, 0, "")
	y := pdf.GetY()
	r.draw(ColorBorder)
	pdf.Line(pageMargin, y, pageMargin+r.width, y)
	pdf.Ln(6)
}

func (r *renderer) boxes(boxes []Box) {
	pdf := r.pdf
	const gap, h = 10.0, 52.0
	r.ensure(h)
	w := (r.width - gap*float64(len(boxes)-1)) / float64(len(boxes))
	top := pdf.GetY()
	for i, b := range boxes {
		x := pageMargin + float64(i)*(w+gap)
		r.fill(ColorBoxFill)
		r.draw(ColorBorder)
		pdf.Rect(x, top, w, h, "FD")

		pdf.SetXY(x, top+8)
		pdf.SetFont(fontFamily, "", 9)
		r.text(ColorMuted)
		pdf.CellFormat(w, 12, r.tr(b.Label), "", 2, "C", false, 0, "")
		pdf.SetX(x)
		pdf.SetFont(fontFamily, "B", 14)
		r.text(b.Color)
		pdf.CellFormat(w, 22, r.tr(b.Value), "", 0, "C", false, 0, "")
	}
	pdf.SetXY(pageMargin, top+h)
}

func (r *renderer) ranked(items []RankedLine, c Color) {
	pdf := r.pdf
	for _, it := range items {
		r.ensure(rowHeight)
		pdf.SetX(pageMargin)
		pdf.SetFont(fontFamily, "B", baseFontSize)
		r.text(c)
		pdf.CellFormat(30, rowHeight, fmt.Sprintf("#%d", it.Rank), "", 0, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", baseFontSize)
		r.text(ColorText)
		pdf.CellFormat(r.width-30-110-50, rowHeight, r.tr(it.Name), "", 0, "L", false, 0, "")
		pdf.SetFont(fontFamily, "B", baseFontSize)
		r.text(c)
		pdf.CellFormat(110, rowHeight, r.tr(it.Amount), "", 0, "R", false, 0, "")
		pdf.SetFont(fontFamily, "", 9)
		r.text(ColorMuted)
		pdf.CellFormat(50, rowHeight, fmt.Sprintf("%dx", it.Count), "", 1, "R", false, 0, "")
	}
}

func (r *renderer) table(t *Table) {
	widths := r.columnWidths(t.Columns)
	r.tableHeader(t, widths)
	for _, row := range t.Rows {
		if r.ensure(rowHeight) {
			r.tableHeader(t, widths)
		}
		r.tableRow(t, row, widths)
	}
}

func (r *renderer) columnWidths(cols []Column) []float64 {
	var total float64
	for _, c := range cols {
		total += c.Weight
	}
	widths := make([]float64, len(cols))
	for i, c := range cols {
		widths[i] = r.width * c.Weight / total
	}
	return widths
}

func (r *renderer) tableHeader(t *Table, widths []float64) {
	pdf := r.pdf
	pdf.SetX(pageMargin)
	pdf.SetFont(fontFamily, "B", 9)
	r.fill(t.HeaderFill)
	r.draw(ColorBorder)
	r.text(ColorText)
	for i, c := range t.Columns {
		pdf.CellFormat(widths[i], rowHeight, r.tr(c.Title), "1", 0, string(c.Align), true, 0, "")
	}
	pdf.Ln(-1)
}

func (r *renderer) tableRow(t *Table, row Row, widths []float64) {
	pdf := r.pdf
	pdf.SetX(pageMargin)
	style := ""
	if row.Bold {
		style = "B"
	}
	pdf.SetFont(fontFamily, style, 9)
	filled := row.Fill != nil
	if filled {
		r.fill(*row.Fill)
	}
	col := 0
	for _, cell := range row.Cells {
		if col >= len(widths) {
			break
		}
		span := max(cell.Span, 1)
		w := 0.0
		for i := col; i < col+span && i < len(widths); i++ {
			w += widths[i]
		}
		align := t.Columns[col].Align
		if span > 1 {
			align = AlignRight
		}
		c := ColorText
		if cell.Color != nil {
			c = *cell.Color
		}
		r.text(c)
		pdf.CellFormat(w, rowHeight, r.tr(truncate(pdf, cell.Text, w-6)), "1", 0, string(align), filled, 0, "")
		col += span
	}
	pdf.Ln(-1)
}

// truncate shortens s with "..." until it fits in w at the current font.
func truncate(pdf *fpdf.Fpdf, s string, w float64) string {
	if pdf.GetStringWidth(s) <= w {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if pdf.GetStringWidth(string(runes)+"...") <= w {
			break
		}
	}
	return string(runes) + "..."
}
