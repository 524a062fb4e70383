// Package session drives one connected client through the frame
// exchange protocol.
//
// Fixed protocol policies, observable by clients:
//   - The first successfully decoded frame is captured as the
//     session's background and echoed back unchanged.
//   - A rejected frame (malformed payload or dimension mismatch)
//     receives an explicit error response and the session continues;
//     line framing survives rejected frames intact.
//   - A stream that ends mid-frame, and any connection I/O failure,
//     is fatal to the session.
//   - Responses are written in the order frames arrived.
package session

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/kexley/chromakeyd/pkg/background"
	"github.com/kexley/chromakeyd/pkg/frame"
	"github.com/kexley/chromakeyd/pkg/keying"
	"github.com/kexley/chromakeyd/pkg/log"
	"github.com/kexley/chromakeyd/pkg/wire"
)

type State string

const (
	AwaitingFirstFrame State = "awaiting-first-frame"
	SteadyStateKeying  State = "steady-state-keying"
	Closed             State = "closed"
)

type Session struct {
	uuid   string
	conn   net.Conn
	dec    *wire.Decoder
	enc    *wire.Encoder
	store  *background.Store
	engine *keying.Engine

	mu     sync.Mutex
	state  State
	frames uint64
	closed uint32
}

func New(conn net.Conn, engine *keying.Engine) *Session {
	return &Session{
		uuid:   uuid.NewString(),
		conn:   conn,
		dec:    wire.NewDecoder(conn),
		enc:    wire.NewEncoder(conn),
		store:  background.NewStore(),
		engine: engine,
		state:  AwaitingFirstFrame,
	}
}

func (s *Session) UUID() string { return s.uuid }

func (s *Session) RemoteAddr() string {
	if addr := s.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) FramesProcessed() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// ResetBackground clears the captured reference frame so the next
// received frame re-captures it. Safe to call from outside the
// session's own goroutine.
func (s *Session) ResetBackground() {
	s.store.Reset()
	s.mu.Lock()
	s.state = AwaitingFirstFrame
	s.mu.Unlock()
}

// Run exchanges frames until the client disconnects, a fatal error
// occurs or ctx is cancelled. Cancellation closes the connection,
// which aborts any in-flight read or write promptly.
func (s *Session) Run(ctx context.Context) error {
	defer s.close()

	watchDone := make(chan interface{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			s.close()
		case <-watchDone:
		}
	}()

	for {
		candidate, err := s.dec.Decode()
		if err != nil {
			if done, err := s.handleDecodeErr(ctx, err); done {
				return err
			}
			continue
		}

		resp, err := s.respondTo(candidate)
		if err != nil {
			// per-frame rejection: explicit error response, session continues
			log.Warn("Session [%s] rejected frame: %s", s.uuid, err.Error())
			if werr := s.enc.EncodeError(err); werr != nil {
				return s.fatal(werr)
			}
			continue
		}

		if err := s.enc.Encode(resp); err != nil {
			return s.fatal(err)
		}

		s.mu.Lock()
		s.frames++
		s.mu.Unlock()
	}
}

// respondTo produces the response frame for one decoded candidate:
// the candidate itself when it became the background, the keyed
// output otherwise. Capture and fetch are one Store operation so an
// admin reset racing this call can never hand the engine a nil
// background.
func (s *Session) respondTo(candidate *frame.Frame) (*frame.Frame, error) {
	ref, captured := s.store.GetOrSet(candidate)
	if captured {
		log.Debug("Session [%s] captured %dx%d background", s.uuid, candidate.Width(), candidate.Height())
		s.mu.Lock()
		s.state = SteadyStateKeying
		s.mu.Unlock()
		return candidate, nil
	}

	return s.engine.Apply(candidate, ref)
}

func (s *Session) handleDecodeErr(ctx context.Context, err error) (bool, error) {
	if ctx.Err() != nil || atomic.LoadUint32(&s.closed) == 1 {
		return true, nil
	}

	if errors.Is(err, io.EOF) {
		log.Debug("Session [%s] client disconnected", s.uuid)
		return true, nil
	}

	if isFrameRejection(err) {
		log.Warn("Session [%s] rejected frame: %s", s.uuid, err.Error())
		if werr := s.enc.EncodeError(err); werr != nil {
			return true, s.fatal(werr)
		}
		return false, nil
	}

	// incomplete stream or transport failure
	return true, s.fatal(err)
}

func isFrameRejection(err error) bool {
	return errors.Is(err, wire.ErrMalformedHeader) ||
		errors.Is(err, frame.ErrInvalidDimensions) ||
		errors.Is(err, frame.ErrUnsupportedEncoding) ||
		errors.Is(err, frame.ErrPayloadLengthMismatch)
}

func (s *Session) fatal(err error) error {
	if atomic.LoadUint32(&s.closed) == 1 {
		return nil
	}
	return err
}

func (s *Session) close() {
	if !atomic.CompareAndSwapUint32(&s.closed, 0, 1) {
		return
	}
	s.conn.Close()
	s.store.Reset()
	s.mu.Lock()
	s.state = Closed
	s.mu.Unlock()
}
