package session_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/kexley/chromakeyd/pkg/frame"
	"github.com/kexley/chromakeyd/pkg/keying"
	"github.com/kexley/chromakeyd/pkg/session"
	"github.com/kexley/chromakeyd/pkg/wire"
	"github.com/matryer/is"
)

func testEngine() *keying.Engine {
	return keying.NewEngine(keying.Config{
		Tolerance:    30,
		Mode:         keying.MatchBackground,
		Substitution: keying.SubstituteTransparent,
		Workers:      1,
	})
}

func makeFrame(t *testing.T, w, h uint32, pix []byte) *frame.Frame {
	t.Helper()
	f, err := frame.New(frame.Descriptor{Width: w, Height: h, Order: frame.RGBA}, pix)
	if err != nil {
		t.Fatalf("unable to build frame: %v", err)
	}
	return f
}

// runSession wires a session to one end of an in-memory pipe and hands
// back the client end plus the channel Run's result lands on.
func runSession(ctx context.Context) (net.Conn, *session.Session, chan error) {
	client, server := net.Pipe()
	sess := session.New(server, testEngine())

	done := make(chan error, 1)
	go func() {
		done <- sess.Run(ctx)
	}()

	return client, sess, done
}

func waitForRun(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("session did not terminate in time")
		return nil
	}
}

func TestSessionEchoesFirstFrameAndKeysTheRest(t *testing.T) {
	is := is.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, sess, done := runSession(ctx)
	defer client.Close()

	enc := wire.NewEncoder(client)
	dec := wire.NewDecoder(client)

	is.Equal(sess.State(), session.AwaitingFirstFrame)

	bg := makeFrame(t, 1, 2, []byte{
		0, 255, 0, 255,
		0, 255, 0, 255,
	})
	is.NoErr(enc.Encode(bg))

	echoed, err := dec.Decode()
	is.NoErr(err)
	is.Equal(echoed.Pix(), bg.Pix())
	is.Equal(sess.State(), session.SteadyStateKeying)

	candidate := makeFrame(t, 1, 2, []byte{
		0, 255, 0, 255,
		200, 10, 10, 255,
	})
	is.NoErr(enc.Encode(candidate))

	keyed, err := dec.Decode()
	is.NoErr(err)
	is.Equal(keyed.Pix(), []byte{
		0, 255, 0, 0,
		200, 10, 10, 255,
	})

	is.NoErr(client.Close())
	is.NoErr(waitForRun(t, done))
	is.Equal(sess.State(), session.Closed)
	is.Equal(sess.FramesProcessed(), uint64(2))
}

func TestSessionSurvivesDimensionMismatch(t *testing.T) {
	is := is.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, _, done := runSession(ctx)
	defer client.Close()

	enc := wire.NewEncoder(client)
	dec := wire.NewDecoder(client)

	bg := makeFrame(t, 1, 1, []byte{0, 255, 0, 255})
	is.NoErr(enc.Encode(bg))
	_, err := dec.Decode()
	is.NoErr(err)

	// wrong dimensions draw an error response, not a disconnect
	mismatched := makeFrame(t, 2, 2, make([]byte, 16))
	is.NoErr(enc.Encode(mismatched))
	_, err = dec.Decode()
	is.True(errors.Is(err, wire.ErrRemote))

	// the session still keys well-formed frames afterwards
	candidate := makeFrame(t, 1, 1, []byte{200, 10, 10, 255})
	is.NoErr(enc.Encode(candidate))
	keyed, err := dec.Decode()
	is.NoErr(err)
	is.Equal(keyed.Pix(), []byte{200, 10, 10, 255})

	is.NoErr(client.Close())
	is.NoErr(waitForRun(t, done))
}

func TestSessionSurvivesMalformedFrameLine(t *testing.T) {
	is := is.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, _, done := runSession(ctx)
	defer client.Close()

	enc := wire.NewEncoder(client)
	dec := wire.NewDecoder(client)

	_, err := client.Write([]byte("this is not a frame\n"))
	is.NoErr(err)
	_, err = dec.Decode()
	is.True(errors.Is(err, wire.ErrRemote))

	// framing survives the rejection; the next line still captures
	bg := makeFrame(t, 1, 1, []byte{0, 255, 0, 255})
	is.NoErr(enc.Encode(bg))
	echoed, err := dec.Decode()
	is.NoErr(err)
	is.Equal(echoed.Pix(), bg.Pix())

	is.NoErr(client.Close())
	is.NoErr(waitForRun(t, done))
}

func TestSessionResetBackgroundRecapturesNextFrame(t *testing.T) {
	is := is.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, sess, done := runSession(ctx)
	defer client.Close()

	enc := wire.NewEncoder(client)
	dec := wire.NewDecoder(client)

	bg := makeFrame(t, 1, 1, []byte{0, 255, 0, 255})
	is.NoErr(enc.Encode(bg))
	_, err := dec.Decode()
	is.NoErr(err)
	is.Equal(sess.State(), session.SteadyStateKeying)

	sess.ResetBackground()
	is.Equal(sess.State(), session.AwaitingFirstFrame)

	// the next frame is echoed as the fresh background, not keyed
	next := makeFrame(t, 1, 1, []byte{0, 250, 5, 255})
	is.NoErr(enc.Encode(next))
	echoed, err := dec.Decode()
	is.NoErr(err)
	is.Equal(echoed.Pix(), next.Pix())

	is.NoErr(client.Close())
	is.NoErr(waitForRun(t, done))
}

func TestSessionStopsOnContextCancellation(t *testing.T) {
	is := is.New(t)

	ctx, cancel := context.WithCancel(context.Background())

	client, sess, done := runSession(ctx)
	defer client.Close()

	cancel()

	is.NoErr(waitForRun(t, done))
	is.Equal(sess.State(), session.Closed)
}
