package api

import (
	"errors"
	"net"
	"net/http"
	"net/rpc"
	"os"
	"strings"
	"time"

	"github.com/kexley/chromakeyd/api/auth"
	"github.com/kexley/chromakeyd/common"
	"github.com/kexley/chromakeyd/pkg/chromad"
	data "github.com/kexley/chromakeyd/pkg/database"
	"github.com/kexley/chromakeyd/pkg/database/dbconn"
	"github.com/kexley/chromakeyd/pkg/database/repos"
	"github.com/kexley/chromakeyd/pkg/log"
	"github.com/tauraamui/xerror"
)

func init() {
	rpc.Register(Session{})
}

const SIGREMOTE = Signal(0x1)

type Signal int

func (s Signal) Signal() {}

func (s Signal) String() string {
	return "remote-shutdown"
}

type Options struct {
	RPCListenPort string
	SigningSecret string
}

type Session struct {
	Token       string
	SessionUUID string
}

func (s Session) GetToken(args string, resp *string) error {
	*resp = s.Token
	return nil
}

// AdminServer exposes the remote control surface of a running
// chromakeyd instance over net/rpc.
type AdminServer struct {
	interrupt     chan os.Signal
	s             *chromad.Server
	httpServer    *http.Server
	rpcListenPort string
	signingSecret string
	db            dbconn.GormWrapper
}

func New(interrupt chan os.Signal, server *chromad.Server, opts Options) (*AdminServer, error) {
	db, err := data.Connect()
	if err != nil {
		return nil, xerror.Errorf("unable to connect to DB, try running the setup: %w", err)
	}
	return &AdminServer{
		interrupt:     interrupt,
		s:             server,
		httpServer:    &http.Server{},
		rpcListenPort: opts.RPCListenPort,
		signingSecret: opts.SigningSecret,
		db:            db,
	}, nil
}

func StartRPC(a *AdminServer) error {
	err := rpc.Register(a)
	if err != nil {
		return err
	}
	rpc.HandleHTTP()

	l, err := net.Listen("tcp", a.rpcListenPort)
	if err != nil {
		return err
	}

	errs := make(chan error)
	go func() {
		httpErr := a.httpServer.Serve(l)
		if httpErr != nil {
			errs <- httpErr
		}
		errs <- nil
	}()

	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

func ShutdownRPC(a *AdminServer) error {
	if a != nil && a.httpServer != nil {
		return a.httpServer.Close()
	}
	return errors.New("API server not running")
}

func (a *AdminServer) Authenticate(authContents string, resp *string) error {
	usernameAndPassword, err := validateAuth(authContents)
	if err != nil {
		return err
	}

	username := usernameAndPassword[0]
	password := usernameAndPassword[1]

	userRepo := repos.UserRepository{DB: a.db}
	if err := userRepo.Authenticate(username, password); err != nil {
		return err
	}

	token, err := auth.GenToken(a.signingSecret, username)
	if err != nil {
		return err
	}

	*resp = token
	return nil
}

// Exposed API
func (a *AdminServer) ActiveSessions(sess *Session, resp *[]common.SessionData) error {
	if err := a.validateSession(*sess); err != nil {
		return err
	}
	*resp = a.s.APIFetchActiveSessions()
	return nil
}

func (a *AdminServer) ResetBackground(sess *Session, resp *bool) error {
	if err := a.validateSession(*sess); err != nil {
		return err
	}

	log.Warn("Received remote background reset request...")
	if err := a.s.APIResetBackground(sess.SessionUUID); err != nil {
		*resp = false
		return err
	}

	*resp = true
	return nil
}

func (a *AdminServer) Shutdown(sess *Session, resp *bool) error {
	if err := a.validateSession(*sess); err != nil {
		return err
	}

	*resp = true
	log.Warn("Received remote shutdown request...")
	defer func() {
		time.Sleep(time.Second * 1)
		a.interrupt <- SIGREMOTE
	}()
	return nil
}

func (a *AdminServer) validateSession(sess Session) error {
	if _, err := auth.ValidateToken(a.signingSecret, sess.Token); err != nil {
		return err
	}
	return nil
}

func validateAuth(auth string) ([]string, error) {
	if len(auth) == 0 {
		return nil, errors.New("cannot retrieve username and password from blank input")
	}

	split := strings.Split(auth, "|")
	if len(split) <= 1 {
		return nil, errors.New("unable to correctly retrieve username and password from malformed input")
	}

	return split, nil
}
