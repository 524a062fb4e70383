// Package keying classifies frame pixels as background or foreground
// by colour similarity and produces composited output frames.
//
// The distance metric is Euclidean over the R, G and B channels with
// alpha excluded; a pixel whose distance to its reference colour is
// less than or equal to the configured tolerance is background. The
// comparison is carried out on squared integer distances so results
// are exact and platform independent.
package keying

import (
	"runtime"
	"sync"

	"github.com/kexley/chromakeyd/pkg/frame"
	"github.com/tauraamui/xerror"
)

type MatchMode string

const (
	// MatchBackground compares each candidate pixel against the pixel
	// at the same position in the stored background frame.
	MatchBackground MatchMode = "background"
	// MatchFixedColor compares every candidate pixel against one
	// configured key colour.
	MatchFixedColor MatchMode = "fixed-color"
)

type Substitution string

const (
	// SubstituteTransparent zeroes the alpha of background pixels and
	// keeps their colour channels. Alpha-less input gains an alpha
	// channel in the output.
	SubstituteTransparent Substitution = "transparent"
	// SubstituteFixedColor overwrites background pixels entirely with
	// the configured substitute colour.
	SubstituteFixedColor Substitution = "fixed-color"
)

// Color is one RGBA colour value used for fixed keying and fixed
// substitution.
type Color struct {
	R, G, B, A uint8
}

// Config is fixed at process start and shared read-only by every
// session's engine.
type Config struct {
	Tolerance       uint32
	Mode            MatchMode
	KeyColor        Color
	Substitution    Substitution
	SubstituteColor Color
	// Workers bounds how many goroutines share one keying pass.
	// Zero or less selects runtime.NumCPU. The partition never
	// affects output bytes, only throughput.
	Workers int
}

var ErrDimensionMismatch = xerror.New("candidate frame dimensions do not match background")

type Engine struct {
	cfg  Config
	tol2 uint64
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, tol2: uint64(cfg.Tolerance) * uint64(cfg.Tolerance)}
}

func (e *Engine) Config() Config { return e.cfg }

// Apply keys candidate against background and returns a freshly
// allocated output frame; neither input is mutated. The background is
// only consulted in MatchBackground mode but its dimensions always
// bind the candidate's.
func (e *Engine) Apply(candidate, background *frame.Frame) (*frame.Frame, error) {
	if candidate.Width() != background.Width() || candidate.Height() != background.Height() {
		return nil, xerror.Errorf(
			"%w: candidate %dx%d, background %dx%d",
			ErrDimensionMismatch,
			candidate.Width(), candidate.Height(),
			background.Width(), background.Height(),
		)
	}

	outOrder := candidate.Order()
	if e.cfg.Substitution == SubstituteTransparent {
		outOrder = outOrder.WithAlpha()
	}

	outDesc := frame.Descriptor{
		Width:  candidate.Width(),
		Height: candidate.Height(),
		Order:  outOrder,
	}
	out := make([]byte, outDesc.PayloadLen())

	rows := int(candidate.Height())
	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > rows {
		workers = rows
	}

	// Rows are split into contiguous chunks; each worker writes a
	// disjoint region of out, so no synchronisation beyond the join
	// is required and the result is byte-identical for any count.
	chunk := rows / workers
	rem := rows % workers

	wg := sync.WaitGroup{}
	start := 0
	for w := 0; w < workers; w++ {
		n := chunk
		if w < rem {
			n++
		}
		wg.Add(1)
		go func(fromRow, toRow int) {
			defer wg.Done()
			e.keyRows(candidate, background, out, outDesc, fromRow, toRow)
		}(start, start+n)
		start += n
	}
	wg.Wait()

	return frame.New(outDesc, out)
}

func (e *Engine) keyRows(candidate, background *frame.Frame, out []byte, outDesc frame.Descriptor, fromRow, toRow int) {
	width := int(candidate.Width())

	cpx := candidate.Pix()
	cch := candidate.Order().Channels()
	cr, cg, cb, ca := candidate.Order().Offsets()

	bpx := background.Pix()
	bch := background.Order().Channels()
	br, bg, bb, _ := background.Order().Offsets()

	och := outDesc.Order.Channels()
	or, og, ob, oa := outDesc.Order.Offsets()

	sub := e.cfg.SubstituteColor

	for row := fromRow; row < toRow; row++ {
		for col := 0; col < width; col++ {
			i := (row*width + col) * cch
			o := (row*width + col) * och

			r, g, b := cpx[i+cr], cpx[i+cg], cpx[i+cb]
			a := uint8(0xff)
			if ca >= 0 {
				a = cpx[i+ca]
			}

			var kr, kg, kb uint8
			if e.cfg.Mode == MatchFixedColor {
				kr, kg, kb = e.cfg.KeyColor.R, e.cfg.KeyColor.G, e.cfg.KeyColor.B
			} else {
				j := (row*width + col) * bch
				kr, kg, kb = bpx[j+br], bpx[j+bg], bpx[j+bb]
			}

			if distanceSquared(r, g, b, kr, kg, kb) <= e.tol2 {
				switch e.cfg.Substitution {
				case SubstituteFixedColor:
					out[o+or], out[o+og], out[o+ob] = sub.R, sub.G, sub.B
					if oa >= 0 {
						out[o+oa] = sub.A
					}
				default:
					out[o+or], out[o+og], out[o+ob] = r, g, b
					if oa >= 0 {
						out[o+oa] = 0
					}
				}
				continue
			}

			out[o+or], out[o+og], out[o+ob] = r, g, b
			if oa >= 0 {
				out[o+oa] = a
			}
		}
	}
}

func distanceSquared(r, g, b, kr, kg, kb uint8) uint64 {
	dr := int64(r) - int64(kr)
	dg := int64(g) - int64(kg)
	db := int64(b) - int64(kb)
	return uint64(dr*dr + dg*dg + db*db)
}
