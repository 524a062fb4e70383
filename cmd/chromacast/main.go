package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kexley/chromakeyd/pkg/camera"
	"github.com/kexley/chromakeyd/pkg/log"
	"github.com/kexley/chromakeyd/pkg/video/videobackend"
	"github.com/kexley/chromakeyd/pkg/wire"
	"github.com/tacusci/logging/v2"
)

// chromacast captures frames from a local camera and streams them to
// a chromakeyd server, draining the keyed responses as they arrive.
func main() {
	serverAddr := flag.String("server", "127.0.0.1:8080", "address of the chromakeyd frame listener")
	cameraAddr := flag.String("camera", "0", "camera device index or stream address")
	fps := flag.Int("fps", 10, "frames streamed per second")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		killSignal := <-interrupt
		log.Warn("Received signal: %s", killSignal)
		cancel()
	}()

	backend := videobackend.Resolve(os.Getenv("CHROMACAST_VIDEO_BACKEND"))
	cam, err := camera.ConnectWithCancel(ctx, "chromacast", *cameraAddr, camera.Settings{FPS: *fps}, backend)
	if err != nil {
		log.Fatal(err.Error())
	}
	defer cam.Close()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatal("unable to connect to chromakeyd server: %s", err.Error())
	}
	defer conn.Close()

	log.Info("Streaming camera [%s] to %s at %d fps...", *cameraAddr, *serverAddr, *fps)
	if err := stream(ctx, cam, conn, *fps); err != nil {
		log.Fatal(err.Error())
	}
}

func stream(ctx context.Context, cam camera.Connection, conn net.Conn, fps int) error {
	enc := wire.NewEncoder(conn)
	dec := wire.NewDecoder(conn)

	sent := 0
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Streamed %d frames", sent)
			return nil
		case <-ticker.C:
			if !cam.IsOpen() {
				return nil
			}

			f, err := cam.Read()
			if err != nil {
				log.Error("Unable to retrieve frame: %s", err.Error())
				continue
			}

			if err := enc.Encode(f); err != nil {
				return err
			}

			keyed, err := dec.Decode()
			if err != nil {
				if errors.Is(err, wire.ErrRemote) {
					log.Warn(err.Error())
					continue
				}
				return err
			}
			sent++
			log.Debug("Received keyed %dx%d frame (%d total)", keyed.Width(), keyed.Height(), sent)
		}
	}
}

func init() {
	logging.ColorLogLevelLabelOnly = true
	switch strings.ToLower(os.Getenv("CHROMACAST_LOGGING_LEVEL")) {
	case "debug":
		logging.CurrentLoggingLevel = logging.DebugLevel
	case "info":
		logging.CurrentLoggingLevel = logging.InfoLevel
	default:
		logging.CurrentLoggingLevel = logging.WarnLevel
	}
}
