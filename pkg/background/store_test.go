package background_test

import (
	"testing"

	"github.com/kexley/chromakeyd/pkg/background"
	"github.com/kexley/chromakeyd/pkg/frame"
	"github.com/matryer/is"
)

func solidFrame(t *testing.T, b byte) *frame.Frame {
	t.Helper()
	f, err := frame.New(
		frame.Descriptor{Width: 1, Height: 1, Order: frame.RGBA},
		[]byte{b, b, b, 0xff},
	)
	if err != nil {
		t.Fatalf("unable to build frame: %v", err)
	}
	return f
}

func TestStoreCapturesOnlyFirstFrame(t *testing.T) {
	is := is.New(t)

	store := background.NewStore()
	is.Equal(store.Get(), nil)

	first := solidFrame(t, 0x10)
	is.True(store.SetIfAbsent(first))
	is.Equal(store.Get(), first)

	// later frames never displace the captured reference
	is.True(!store.SetIfAbsent(solidFrame(t, 0x20)))
	is.Equal(store.Get(), first)
}

func TestStoreGetOrSetCapturesThenReturnsHeldReference(t *testing.T) {
	is := is.New(t)

	store := background.NewStore()

	first := solidFrame(t, 0x10)
	ref, captured := store.GetOrSet(first)
	is.True(captured)
	is.Equal(ref, first)

	ref, captured = store.GetOrSet(solidFrame(t, 0x20))
	is.True(!captured)
	is.Equal(ref, first)

	store.Reset()

	second := solidFrame(t, 0x30)
	ref, captured = store.GetOrSet(second)
	is.True(captured)
	is.Equal(ref, second)
}

func TestStoreGetOrSetNeverReturnsNilUnderConcurrentReset(t *testing.T) {
	is := is.New(t)

	store := background.NewStore()
	f := solidFrame(t, 0x10)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10000; i++ {
			store.Reset()
		}
	}()

	// a reset landing between capture and fetch must not be observable
	for i := 0; i < 10000; i++ {
		ref, _ := store.GetOrSet(f)
		is.True(ref != nil)
	}
	<-done
}

func TestStoreResetAllowsRecapture(t *testing.T) {
	is := is.New(t)

	store := background.NewStore()
	is.True(store.SetIfAbsent(solidFrame(t, 0x10)))

	store.Reset()
	is.Equal(store.Get(), nil)

	second := solidFrame(t, 0x20)
	is.True(store.SetIfAbsent(second))
	is.Equal(store.Get(), second)
}
