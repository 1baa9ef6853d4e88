package extraction

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/mcp-paper-parser/internal/model"
)

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// multiply returns m × n, the transform that applies m first and then n.
func (m matrix) multiply(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// pathBounds tracks the extent of one subpath in user space.
type pathBounds struct {
	minX, minY, maxX, maxY float64
	set                    bool
}

func (p *pathBounds) add(x, y float64) {
	if !p.set {
		p.minX, p.maxX, p.minY, p.maxY = x, x, y, y
		p.set = true
		return
	}
	p.minX = math.Min(p.minX, x)
	p.maxX = math.Max(p.maxX, x)
	p.minY = math.Min(p.minY, y)
	p.maxY = math.Max(p.maxY, y)
}

// graphicsScanner walks content streams and records where images are
// placed and where vector paths are painted.
type graphicsScanner struct {
	box      PageBox
	logger   *slog.Logger
	images   []model.Rect
	drawings []model.Rect
}

func newGraphicsScanner(box PageBox, logger *slog.Logger) *graphicsScanner {
	return &graphicsScanner{box: box, logger: logger}
}

// scanPage interprets every content stream of the page.
func (g *graphicsScanner) scanPage(page pdf.Page) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during graphics scan: %v", r)
		}
	}()

	resources := page.Resources()
	contents := page.V.Key("Contents")
	if contents.Kind() == pdf.Array {
		// Graphics state carries across the streams of one page.
		state := &scanState{ctm: identity}
		for i := 0; i < contents.Len(); i++ {
			g.scanStream(contents.Index(i), resources, state, 0)
		}
		return nil
	}
	g.scanStream(contents, resources, &scanState{ctm: identity}, 0)
	return nil
}

type scanState struct {
	ctm   matrix
	stack []matrix
	path  []pathBounds
}

func (s *scanState) current() *pathBounds {
	if len(s.path) == 0 {
		s.path = append(s.path, pathBounds{})
	}
	return &s.path[len(s.path)-1]
}

func (s *scanState) point(x, y float64) {
	dx, dy := s.ctm.apply(x, y)
	s.current().add(dx, dy)
}

func (g *graphicsScanner) emitPath(s *scanState) {
	for _, p := range s.path {
		if !p.set {
			continue
		}
		r := g.box.toTopDown(p.minX, p.minY, p.maxX, p.maxY)
		g.drawings = append(g.drawings, r)
	}
	s.path = s.path[:0]
}

func numbers(args []pdf.Value) []float64 {
	out := make([]float64, len(args))
	for i, a := range args {
		out[i] = a.Float64()
	}
	return out
}

// scanStream interprets one stream. Form XObjects recurse with their
// /Matrix applied on top of the current transform.
func (g *graphicsScanner) scanStream(strm, resources pdf.Value, state *scanState, depth int) {
	if strm.IsNull() {
		return
	}
	pdf.Interpret(strm, func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}

		switch op {
		case "q":
			state.stack = append(state.stack, state.ctm)
		case "Q":
			if len(state.stack) > 0 {
				state.ctm = state.stack[len(state.stack)-1]
				state.stack = state.stack[:len(state.stack)-1]
			}
		case "cm":
			if len(args) == 6 {
				v := numbers(args)
				state.ctm = matrix{v[0], v[1], v[2], v[3], v[4], v[5]}.multiply(state.ctm)
			}
		case "m":
			if len(args) == 2 {
				v := numbers(args)
				state.path = append(state.path, pathBounds{})
				state.point(v[0], v[1])
			}
		case "l":
			if len(args) == 2 {
				v := numbers(args)
				state.point(v[0], v[1])
			}
		case "c":
			if len(args) == 6 {
				v := numbers(args)
				state.point(v[0], v[1])
				state.point(v[2], v[3])
				state.point(v[4], v[5])
			}
		case "v", "y":
			if len(args) == 4 {
				v := numbers(args)
				state.point(v[0], v[1])
				state.point(v[2], v[3])
			}
		case "re":
			if len(args) == 4 {
				v := numbers(args)
				state.path = append(state.path, pathBounds{})
				state.point(v[0], v[1])
				state.point(v[0]+v[2], v[1])
				state.point(v[0], v[1]+v[3])
				state.point(v[0]+v[2], v[1]+v[3])
			}
		case "S", "s", "f", "F", "f*", "B", "B*", "b", "b*":
			g.emitPath(state)
		case "n":
			state.path = state.path[:0]
		case "Do":
			if len(args) == 1 {
				g.doXObject(args[0].Name(), resources, state, depth)
			}
		}
	})
}

func (g *graphicsScanner) doXObject(name string, resources pdf.Value, state *scanState, depth int) {
	xobj := resources.Key("XObject").Key(name)
	if xobj.IsNull() {
		return
	}

	switch xobj.Key("Subtype").Name() {
	case "Image":
		x0, y0 := state.ctm.apply(0, 0)
		x1, y1 := state.ctm.apply(1, 0)
		x2, y2 := state.ctm.apply(0, 1)
		x3, y3 := state.ctm.apply(1, 1)
		r := g.box.toTopDown(
			math.Min(math.Min(x0, x1), math.Min(x2, x3)),
			math.Min(math.Min(y0, y1), math.Min(y2, y3)),
			math.Max(math.Max(x0, x1), math.Max(x2, x3)),
			math.Max(math.Max(y0, y1), math.Max(y2, y3)),
		)
		g.images = append(g.images, r)
	case "Form":
		if depth >= maxFormDepth {
			g.logger.Debug("form XObject nesting too deep", "name", name, "depth", depth)
			return
		}
		inner := &scanState{ctm: state.ctm}
		if m := xobj.Key("Matrix"); m.Kind() == pdf.Array && m.Len() == 6 {
			var fm matrix
			for i := range fm {
				fm[i] = m.Index(i).Float64()
			}
			inner.ctm = fm.multiply(state.ctm)
		}
		formResources := xobj.Key("Resources")
		if formResources.IsNull() {
			formResources = resources
		}
		g.scanStream(xobj, formResources, inner, depth+1)
	}
}
