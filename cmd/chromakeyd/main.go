package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/kexley/chromakeyd/api"
	"github.com/kexley/chromakeyd/internal/config"
	"github.com/kexley/chromakeyd/pkg/chromad"
	"github.com/kexley/chromakeyd/pkg/configdef"
	db "github.com/kexley/chromakeyd/pkg/database"
	"github.com/kexley/chromakeyd/pkg/log"
	"github.com/tacusci/logging/v2"
	"github.com/takama/daemon"
)

const (
	name        = "chromakey_daemon"
	description = "Chromakey service daemon which keys streamed raw frames against per-session background references"
)

type Service struct {
	daemon.Daemon
}

// Setup will create the default config and the admin user store, and
// ask for root admin credentials
func (service *Service) Setup() (string, error) {
	log.Info("Setting up chromakeyd service...")

	err := config.DefaultCreator().Create()
	if err != nil {
		if !errors.Is(err, configdef.ErrConfigAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	err = db.Setup()
	if err != nil {
		if !errors.Is(err, db.ErrDBAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	return "Setup successful...", nil
}

func (service *Service) RemoveSetup() (string, error) {
	log.Info("Removing setup for chromakeyd service...")
	if err := db.Destroy(); err != nil {
		log.Error("unable to delete database file: %s", err.Error())
	}

	if err := config.DefaultDestroyer().Destroy(); err != nil {
		log.Error("unable to delete config file: %s", err.Error())
	}

	return "Removing setup successful...", nil
}

func (service *Service) Manage() (string, error) {
	usage := "Usage: chromakeyd setup | remove-setup | install | remove | start | stop | status"

	if len(os.Args) > 1 {
		command := os.Args[1]
		switch command {
		case "setup":
			return service.Setup()
		case "remove-setup":
			return service.RemoveSetup()
		case "install":
			return service.Install()
		case "remove":
			return service.Remove()
		case "start":
			return service.Start()
		case "stop":
			return service.Stop()
		case "status":
			return service.Status()
		default:
			return usage, nil
		}
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	log.Info("Starting chromakey daemon...")

	server, err := chromad.NewServer(config.DefaultResolver())
	if err != nil {
		log.Fatal(err.Error())
	}

	if err := server.Listen(); err != nil {
		log.Fatal(err.Error())
	}

	server.SetupProcesses()
	server.RunProcesses()

	adminAPI := startAdminAPI(interrupt, server)

	killSignal := <-interrupt
	fmt.Print("\r")
	log.Error("Received signal: %s", killSignal)

	if adminAPI != nil {
		if err := api.ShutdownRPC(adminAPI); err != nil {
			log.Error(err.Error())
		}
	}

	log.Info("Shutting down server...")
	<-server.Shutdown()

	return "Shutdown successful... BYE! 👋", nil
}

func startAdminAPI(interrupt chan os.Signal, server *chromad.Server) *api.AdminServer {
	cfg := server.Config()
	if len(cfg.RPCBindAddress) == 0 {
		log.Warn("No RPC bind address configured, remote control API disabled...")
		return nil
	}

	adminAPI, err := api.New(interrupt, server, api.Options{
		RPCListenPort: cfg.RPCBindAddress,
		SigningSecret: cfg.Secret,
	})
	if err != nil {
		log.Error("unable to start remote control API: %s", err.Error())
		return nil
	}

	if err := api.StartRPC(adminAPI); err != nil {
		log.Error("unable to start remote control API: %s", err.Error())
		return nil
	}

	log.Info("Remote control API listening at %s", cfg.RPCBindAddress)
	return adminAPI
}

func init() {
	logging.CallbackLabelLevel = 5
	logging.ColorLogLevelLabelOnly = true
	loggingLevel := os.Getenv("CHROMAKEYD_LOGGING_LEVEL")

	switch strings.ToLower(loggingLevel) {
	case "info":
		logging.CurrentLoggingLevel = logging.InfoLevel
	case "warn":
		logging.CurrentLoggingLevel = logging.WarnLevel
	case "debug":
		logging.CurrentLoggingLevel = logging.DebugLevel
		logging.CallbackLabel = true
	default:
		logging.CurrentLoggingLevel = logging.WarnLevel
	}
}

func main() {
	daemonType := daemon.SystemDaemon
	if runtime.GOOS == "darwin" {
		daemonType = daemon.UserAgent
	}

	srv, err := daemon.New(name, description, daemonType)
	if err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}

	service := &Service{srv}
	status, err := service.Manage()
	if err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}

	logging.Info(status) //nolint
}
