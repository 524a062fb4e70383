// Package wire frames raw image payloads over a byte stream.
//
// Each frame travels as one newline terminated JSON object:
//
//	{"width": 2, "height": 2, "encoding-order": "RGBA", "image": [0,255,0,255, ...]}
//
// The same shape is used in both directions. The image field is
// emitted as a JSON array of numbers; decoding additionally accepts
// the base64 string form encoding/json produces for byte slices.
// Error responses share the framing: {"error": "..."}.
package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kexley/chromakeyd/pkg/frame"
	"github.com/tauraamui/xerror"
)

// ErrIncompletePayload reports that the stream ended before a full
// frame line arrived. It is recoverable: callers should wait for more
// bytes, unlike the per-frame rejections from the frame package.
var ErrIncompletePayload = xerror.New("incomplete frame payload, need more bytes")

var ErrMalformedHeader = xerror.New("malformed frame header")

// ErrRemote carries an explicit error response received from the peer
// in place of a frame.
var ErrRemote = xerror.New("peer rejected frame")

type payload struct {
	Width  uint32     `json:"width"`
	Height uint32     `json:"height"`
	Order  string     `json:"encoding-order"`
	Image  pixelBytes `json:"image"`
	Error  string     `json:"error,omitempty"`
}

type errPayload struct {
	Error string `json:"error"`
}

// pixelBytes marshals as a JSON number array rather than the base64
// string encoding/json defaults to for []byte.
type pixelBytes []byte

func (p pixelBytes) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, len(p)*4+2)
	buf = append(buf, '[')
	for i, b := range p {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendUint(buf, uint64(b), 10)
	}
	return append(buf, ']'), nil
}

func (p *pixelBytes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var raw []byte
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*p = raw
		return nil
	}

	var nums []uint16
	if err := json.Unmarshal(data, &nums); err != nil {
		return err
	}

	raw := make([]byte, len(nums))
	for i, n := range nums {
		if n > 0xff {
			return xerror.Errorf("pixel byte value out of range: %d", n)
		}
		raw[i] = byte(n)
	}
	*p = raw
	return nil
}

// DecodeBytes parses one complete frame line. The input must not
// include the trailing newline. Rejections carry the frame package's
// sentinel errors; no partial Frame is ever returned.
func DecodeBytes(line []byte) (*frame.Frame, error) {
	var p payload
	if err := json.Unmarshal(line, &p); err != nil {
		return nil, xerror.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	if len(p.Error) > 0 {
		return nil, xerror.Errorf("%w: %s", ErrRemote, p.Error)
	}

	return frame.New(frame.Descriptor{
		Width:  p.Width,
		Height: p.Height,
		Order:  frame.ChannelOrder(p.Order),
	}, p.Image)
}

// EncodeBytes serialises a well-formed frame into its wire line,
// trailing newline included.
func EncodeBytes(f *frame.Frame) []byte {
	b, err := json.Marshal(payload{
		Width:  f.Width(),
		Height: f.Height(),
		Order:  string(f.Order()),
		Image:  pixelBytes(f.Pix()),
	})
	if err != nil {
		// payload has no unmarshalable fields; this cannot happen
		panic(err)
	}
	return append(b, '\n')
}

// EncodeError serialises an explicit error response line.
func EncodeError(e error) []byte {
	b, err := json.Marshal(errPayload{Error: e.Error()})
	if err != nil {
		panic(err)
	}
	return append(b, '\n')
}

// Decoder reads successive frame lines from a byte stream.
type Decoder struct {
	r *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode blocks until a full line is available and parses it. A clean
// end of stream surfaces as io.EOF; an end of stream in the middle of
// a line surfaces as ErrIncompletePayload.
func (d *Decoder) Decode() (*frame.Frame, error) {
	line, err := d.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF {
			if len(bytes.TrimSpace(line)) == 0 {
				return nil, io.EOF
			}
			return nil, xerror.Errorf("%w: stream ended mid-frame", ErrIncompletePayload)
		}
		return nil, err
	}

	return DecodeBytes(bytes.TrimSpace(line))
}

// Encoder writes frame and error lines to a byte stream.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) Encode(f *frame.Frame) error {
	_, err := e.w.Write(EncodeBytes(f))
	return err
}

func (e *Encoder) EncodeError(frameErr error) error {
	_, err := e.w.Write(EncodeError(frameErr))
	return err
}
