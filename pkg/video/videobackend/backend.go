// Package videobackend abstracts local frame capture for the
// chromacast streaming client.
package videobackend

import (
	"context"

	"github.com/kexley/chromakeyd/pkg/frame"
)

type Connection interface {
	UUID() string
	// Read captures the next frame, converted to RGBA channel order.
	Read() (*frame.Frame, error)
	IsOpen() bool
	Close() error
}

type Backend interface {
	Connect(context.Context, string) (Connection, error)
}

func Default() Backend {
	return OpenCV()
}

func OpenCV() Backend {
	return &openCVBackend{}
}

func Mock() Backend {
	return &mockVideoBackend{}
}

func Resolve(t string) Backend {
	switch t {
	case "mock":
		return Mock()
	default:
		return Default()
	}
}
