// Package pdftest builds small, valid PDF documents in memory so tests can
// exercise the real decoders without binary fixtures.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Font selects one of the two standard fonts every generated page carries.
type Font string

const (
	Regular Font = "F1"
	Bold    Font = "F2"
)

// GlyphWidth is the advance of every character as a share of the font
// size. Both fonts declare uniform widths so tests can predict positions.
const GlyphWidth = 0.5

// Document is a PDF under construction.
type Document struct {
	title  string
	author string
	pages  []*Page
}

// Page collects content stream operators for one page.
type Page struct {
	width, height float64
	content       strings.Builder
	forms         []string
}

// New starts an empty document.
func New() *Document {
	return &Document{}
}

// SetInfo sets the trailer Info title and author.
func (d *Document) SetInfo(title, author string) *Document {
	d.title = title
	d.author = author
	return d
}

// AddPage appends a page of the given size in points.
func (d *Document) AddPage(width, height float64) *Page {
	p := &Page{width: width, height: height}
	d.pages = append(d.pages, p)
	return p
}

// Text shows s with its baseline at (x, y) in PDF user space (origin
// bottom-left).
func (p *Page) Text(font Font, size, x, y float64, s string) *Page {
	fmt.Fprintf(&p.content, "BT /%s %g Tf %g %g Td (%s) Tj ET\n", font, size, x, y, escape(s))
	return p
}

// TextTop is Text with y measured from the top of the page to the baseline.
func (p *Page) TextTop(font Font, size, x, yTop float64, s string) *Page {
	return p.Text(font, size, x, p.height-yTop, s)
}

// Image draws the shared 1x1 image scaled to w×h with its lower-left corner at (x, y).
func (p *Page) Image(x, y, w, h float64) *Page {
	fmt.Fprintf(&p.content, "q %g 0 0 %g %g %g cm /Im1 Do Q\n", w, h, x, y)
	return p
}

// Rect strokes a rectangle.
func (p *Page) Rect(x, y, w, h float64) *Page {
	fmt.Fprintf(&p.content, "%g %g %g %g re S\n", x, y, w, h)
	return p
}

// Line strokes a straight segment.
func (p *Page) Line(x0, y0, x1, y1 float64) *Page {
	fmt.Fprintf(&p.content, "%g %g m %g %g l S\n", x0, y0, x1, y1)
	return p
}

// Form draws a Form XObject holding content, translated by (tx, ty)
// through its /Matrix.
func (p *Page) Form(content string, tx, ty float64) *Page {
	name := fmt.Sprintf("Fm%d", len(p.forms)+1)
	p.forms = append(p.forms, fmt.Sprintf("%g %g|%s", tx, ty, content))
	fmt.Fprintf(&p.content, "/%s Do\n", name)
	return p
}

// Raw appends operators verbatim.
func (p *Page) Raw(ops string) *Page {
	p.content.WriteString(ops)
	p.content.WriteByte('\n')
	return p
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

func widths() string {
	var b strings.Builder
	b.WriteByte('[')
	for c := 32; c <= 126; c++ {
		if c > 32 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d", int(GlyphWidth*1000))
	}
	b.WriteByte(']')
	return b.String()
}

// Bytes serializes the document with a correct cross-reference table.
func (d *Document) Bytes() []byte {
	var objects []string
	add := func(body string) int {
		objects = append(objects, body)
		return len(objects)
	}
	stream := func(dict, data string) string {
		return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
	}

	catalog := add("") // filled once the page tree id is known
	pagesID := add("")
	font1 := add(fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /FirstChar 32 /LastChar 126 /Widths %s /Encoding /WinAnsiEncoding >>", widths()))
	font2 := add(fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold /FirstChar 32 /LastChar 126 /Widths %s /Encoding /WinAnsiEncoding >>", widths()))
	image := add(stream("/Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceGray /BitsPerComponent 8", "\xff"))

	fonts := fmt.Sprintf("/Font << /F1 %d 0 R /F2 %d 0 R >>", font1, font2)

	var kids []string
	for _, p := range d.pages {
		xobjects := fmt.Sprintf("/Im1 %d 0 R", image)
		for i, f := range p.forms {
			parts := strings.SplitN(f, "|", 2)
			formID := add(stream(
				fmt.Sprintf("/Type /XObject /Subtype /Form /BBox [0 0 %g %g] /Matrix [1 0 0 1 %s] /Resources << /XObject << /Im1 %d 0 R >> >>",
					p.width, p.height, parts[0], image),
				parts[1]))
			xobjects += fmt.Sprintf(" /Fm%d %d 0 R", i+1, formID)
		}
		content := add(stream("", strings.TrimRight(p.content.String(), "\n")))
		pageID := add(fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %g %g] /Resources << %s /XObject << %s >> >> /Contents %d 0 R >>",
			pagesID, p.width, p.height, fonts, xobjects, content))
		kids = append(kids, fmt.Sprintf("%d 0 R", pageID))
	}
	objects[catalog-1] = fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesID)
	objects[pagesID-1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids))

	info := 0
	if d.title != "" || d.author != "" {
		info = add(fmt.Sprintf("<< /Title (%s) /Author (%s) >>", escape(d.title), escape(d.author)))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	trailer := fmt.Sprintf("/Size %d /Root %d 0 R", len(objects)+1, catalog)
	if info > 0 {
		trailer += fmt.Sprintf(" /Info %d 0 R", info)
	}
	fmt.Fprintf(&buf, "trailer\n<< %s >>\nstartxref\n%d\n%%%%EOF\n", trailer, xref)
	return buf.Bytes()
}
