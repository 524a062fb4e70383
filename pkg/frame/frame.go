package frame

import (
	"github.com/tauraamui/xerror"
)

// ChannelOrder is the per-pixel layout of colour/alpha components
// within a frame's raw payload.
type ChannelOrder string

const (
	RGBA ChannelOrder = "RGBA"
	BGRA ChannelOrder = "BGRA"
	RGB  ChannelOrder = "RGB"
	BGR  ChannelOrder = "BGR"
)

var orders = map[ChannelOrder]layout{
	RGBA: {channels: 4, r: 0, g: 1, b: 2, a: 3},
	BGRA: {channels: 4, r: 2, g: 1, b: 0, a: 3},
	RGB:  {channels: 3, r: 0, g: 1, b: 2, a: -1},
	BGR:  {channels: 3, r: 2, g: 1, b: 0, a: -1},
}

type layout struct {
	channels   int
	r, g, b, a int
}

func (c ChannelOrder) Supported() bool {
	_, ok := orders[c]
	return ok
}

// Channels reports how many bytes each pixel occupies. Unsupported
// orders report zero.
func (c ChannelOrder) Channels() int {
	return orders[c].channels
}

func (c ChannelOrder) HasAlpha() bool {
	return orders[c].a >= 0
}

// WithAlpha resolves the alpha carrying variant of an order, used when
// a transparent substitution forces an alpha channel onto alpha-less
// input.
func (c ChannelOrder) WithAlpha() ChannelOrder {
	switch c {
	case RGB:
		return RGBA
	case BGR:
		return BGRA
	}
	return c
}

// Offsets resolves the byte offset of each logical colour component
// within a single pixel. Alpha offset is -1 for alpha-less orders.
func (c ChannelOrder) Offsets() (r, g, b, a int) {
	l := orders[c]
	return l.r, l.g, l.b, l.a
}

// Descriptor declares the shape of a frame's pixel payload.
type Descriptor struct {
	Width  uint32
	Height uint32
	Order  ChannelOrder
}

func (d Descriptor) PayloadLen() int {
	return int(d.Width) * int(d.Height) * d.Order.Channels()
}

// Frame is a fully decoded raw image: a descriptor plus a contiguous
// row-major pixel payload of exactly the declared length. Frames must
// not be mutated once built; every consumer shares them by reference.
type Frame struct {
	desc Descriptor
	pix  []byte
}

var (
	ErrInvalidDimensions     = xerror.New("frame dimensions must both be greater than zero")
	ErrUnsupportedEncoding   = xerror.New("unsupported channel encoding order")
	ErrPayloadLengthMismatch = xerror.New("payload length does not match declared dimensions")
)

// New validates the descriptor against the payload and takes ownership
// of pix. No copy is made; the caller must not retain the slice.
func New(desc Descriptor, pix []byte) (*Frame, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, xerror.Errorf("%w: %dx%d", ErrInvalidDimensions, desc.Width, desc.Height)
	}

	if !desc.Order.Supported() {
		return nil, xerror.Errorf("%w: %q", ErrUnsupportedEncoding, string(desc.Order))
	}

	if len(pix) != desc.PayloadLen() {
		return nil, xerror.Errorf(
			"%w: declared %d, got %d", ErrPayloadLengthMismatch, desc.PayloadLen(), len(pix),
		)
	}

	return &Frame{desc: desc, pix: pix}, nil
}

func (f *Frame) Descriptor() Descriptor { return f.desc }

func (f *Frame) Width() uint32  { return f.desc.Width }
func (f *Frame) Height() uint32 { return f.desc.Height }

func (f *Frame) Order() ChannelOrder { return f.desc.Order }

// Pix exposes the raw payload. Read-only by contract.
func (f *Frame) Pix() []byte { return f.pix }
