package keying_test

import (
	"errors"
	"testing"

	"github.com/kexley/chromakeyd/pkg/frame"
	"github.com/kexley/chromakeyd/pkg/keying"
	"github.com/matryer/is"
)

func makeFrame(t *testing.T, w, h uint32, order frame.ChannelOrder, pix []byte) *frame.Frame {
	t.Helper()
	f, err := frame.New(frame.Descriptor{Width: w, Height: h, Order: order}, pix)
	if err != nil {
		t.Fatalf("unable to build frame: %v", err)
	}
	return f
}

func TestApplyKeysBackgroundPixelsTransparent(t *testing.T) {
	is := is.New(t)

	green := []byte{0, 255, 0, 255}
	red := []byte{255, 0, 0, 255}

	bg := makeFrame(t, 2, 2, frame.RGBA, []byte{
		green[0], green[1], green[2], green[3],
		green[0], green[1], green[2], green[3],
		green[0], green[1], green[2], green[3],
		green[0], green[1], green[2], green[3],
	})

	// top-left and bottom-right still show the backdrop, the other two
	// pixels are a subject in front of it
	candidate := makeFrame(t, 2, 2, frame.RGBA, []byte{
		green[0], green[1], green[2], green[3],
		red[0], red[1], red[2], red[3],
		red[0], red[1], red[2], red[3],
		green[0], green[1], green[2], green[3],
	})

	engine := keying.NewEngine(keying.Config{
		Tolerance:    30,
		Mode:         keying.MatchBackground,
		Substitution: keying.SubstituteTransparent,
		Workers:      1,
	})

	out, err := engine.Apply(candidate, bg)
	is.NoErr(err)
	is.Equal(out.Order(), frame.RGBA)
	is.Equal(out.Pix(), []byte{
		0, 255, 0, 0,
		255, 0, 0, 255,
		255, 0, 0, 255,
		0, 255, 0, 0,
	})
}

func TestApplyKeysIdenticalFrameFullyTransparent(t *testing.T) {
	is := is.New(t)

	greenScreen := []byte{
		0, 255, 0, 255,
		0, 255, 0, 255,
		0, 255, 0, 255,
		0, 255, 0, 255,
	}
	bg := makeFrame(t, 2, 2, frame.RGBA, append([]byte(nil), greenScreen...))

	// a candidate byte-identical to the backdrop keys out entirely
	candidate := makeFrame(t, 2, 2, frame.RGBA, append([]byte(nil), greenScreen...))

	engine := keying.NewEngine(keying.Config{
		Tolerance:    30,
		Mode:         keying.MatchBackground,
		Substitution: keying.SubstituteTransparent,
		Workers:      1,
	})

	out, err := engine.Apply(candidate, bg)
	is.NoErr(err)
	is.Equal(out.Pix(), []byte{
		0, 255, 0, 0,
		0, 255, 0, 0,
		0, 255, 0, 0,
		0, 255, 0, 0,
	})
}

func TestApplyToleranceBoundaryIsInclusive(t *testing.T) {
	is := is.New(t)

	bg := makeFrame(t, 2, 1, frame.RGBA, []byte{
		100, 100, 100, 255,
		100, 100, 100, 255,
	})

	// first pixel sits at squared distance 25 from its reference,
	// second at 26, with tolerance 5 squared being exactly 25
	candidate := makeFrame(t, 2, 1, frame.RGBA, []byte{
		103, 104, 100, 255,
		103, 104, 101, 255,
	})

	engine := keying.NewEngine(keying.Config{
		Tolerance:    5,
		Mode:         keying.MatchBackground,
		Substitution: keying.SubstituteTransparent,
		Workers:      1,
	})

	out, err := engine.Apply(candidate, bg)
	is.NoErr(err)
	// at the boundary: background, just beyond: foreground
	is.Equal(out.Pix()[3], uint8(0))
	is.Equal(out.Pix()[7], uint8(255))
}

func TestApplyIsDeterministicAcrossWorkerCounts(t *testing.T) {
	is := is.New(t)

	const w, h = 16, 16
	bgPix := make([]byte, w*h*4)
	candPix := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		bgPix[i*4], bgPix[i*4+1], bgPix[i*4+2], bgPix[i*4+3] = 0, 200, 0, 255
		v := byte(i * 7)
		candPix[i*4], candPix[i*4+1], candPix[i*4+2], candPix[i*4+3] = v, 200-v/2, v, 255
	}

	bg := makeFrame(t, w, h, frame.RGBA, bgPix)
	candidate := makeFrame(t, w, h, frame.RGBA, candPix)

	var reference []byte
	for _, workers := range []int{1, 2, 3, 8, 64} {
		engine := keying.NewEngine(keying.Config{
			Tolerance:    40,
			Mode:         keying.MatchBackground,
			Substitution: keying.SubstituteTransparent,
			Workers:      workers,
		})
		out, err := engine.Apply(candidate, bg)
		is.NoErr(err)
		if reference == nil {
			reference = out.Pix()
			continue
		}
		is.Equal(out.Pix(), reference)
	}
}

func TestApplyRejectsDimensionMismatch(t *testing.T) {
	is := is.New(t)

	bg := makeFrame(t, 2, 2, frame.RGBA, make([]byte, 16))
	candidate := makeFrame(t, 2, 3, frame.RGBA, make([]byte, 24))

	engine := keying.NewEngine(keying.Config{
		Tolerance:    30,
		Mode:         keying.MatchBackground,
		Substitution: keying.SubstituteTransparent,
	})

	out, err := engine.Apply(candidate, bg)
	is.True(errors.Is(err, keying.ErrDimensionMismatch))
	is.True(out == nil)
}

func TestApplyFixedColorKeyingIgnoresBackgroundPixels(t *testing.T) {
	is := is.New(t)

	// background content is irrelevant in fixed-color mode, only its
	// dimensions bind the candidate's
	bg := makeFrame(t, 2, 1, frame.RGBA, []byte{
		9, 9, 9, 255,
		9, 9, 9, 255,
	})
	candidate := makeFrame(t, 2, 1, frame.RGBA, []byte{
		0, 250, 0, 255,
		250, 0, 0, 255,
	})

	engine := keying.NewEngine(keying.Config{
		Tolerance:    30,
		Mode:         keying.MatchFixedColor,
		KeyColor:     keying.Color{R: 0, G: 255, B: 0},
		Substitution: keying.SubstituteTransparent,
		Workers:      1,
	})

	out, err := engine.Apply(candidate, bg)
	is.NoErr(err)
	is.Equal(out.Pix(), []byte{
		0, 250, 0, 0,
		250, 0, 0, 255,
	})
}

func TestApplyFixedColorSubstitutionOverwritesPixels(t *testing.T) {
	is := is.New(t)

	bg := makeFrame(t, 1, 1, frame.RGBA, []byte{0, 255, 0, 255})
	candidate := makeFrame(t, 1, 1, frame.RGBA, []byte{0, 250, 5, 255})

	engine := keying.NewEngine(keying.Config{
		Tolerance:       30,
		Mode:            keying.MatchBackground,
		Substitution:    keying.SubstituteFixedColor,
		SubstituteColor: keying.Color{R: 1, G: 2, B: 3, A: 4},
		Workers:         1,
	})

	out, err := engine.Apply(candidate, bg)
	is.NoErr(err)
	is.Equal(out.Order(), frame.RGBA)
	is.Equal(out.Pix(), []byte{1, 2, 3, 4})
}

func TestApplyPromotesAlphaLessInputForTransparency(t *testing.T) {
	is := is.New(t)

	bg := makeFrame(t, 2, 1, frame.RGB, []byte{
		0, 255, 0,
		0, 255, 0,
	})
	candidate := makeFrame(t, 2, 1, frame.RGB, []byte{
		0, 255, 0,
		200, 10, 10,
	})

	engine := keying.NewEngine(keying.Config{
		Tolerance:    30,
		Mode:         keying.MatchBackground,
		Substitution: keying.SubstituteTransparent,
		Workers:      1,
	})

	out, err := engine.Apply(candidate, bg)
	is.NoErr(err)
	is.Equal(out.Order(), frame.RGBA)
	is.Equal(out.Pix(), []byte{
		0, 255, 0, 0,
		200, 10, 10, 255,
	})
}

func TestApplyHandlesMixedChannelOrders(t *testing.T) {
	is := is.New(t)

	// same backdrop colour expressed in BGRA for the background and
	// RGBA for the candidate
	bg := makeFrame(t, 1, 1, frame.BGRA, []byte{0, 255, 0, 255})
	candidate := makeFrame(t, 1, 1, frame.RGBA, []byte{0, 255, 0, 255})

	engine := keying.NewEngine(keying.Config{
		Tolerance:    0,
		Mode:         keying.MatchBackground,
		Substitution: keying.SubstituteTransparent,
		Workers:      1,
	})

	out, err := engine.Apply(candidate, bg)
	is.NoErr(err)
	is.Equal(out.Pix(), []byte{0, 255, 0, 0})
}
