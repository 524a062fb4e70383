package chromad

import (
	"net"
	"sync"

	"github.com/kexley/chromakeyd/common"
	"github.com/kexley/chromakeyd/pkg/configdef"
	"github.com/kexley/chromakeyd/pkg/keying"
	"github.com/kexley/chromakeyd/pkg/log"
	"github.com/kexley/chromakeyd/pkg/session"
	"github.com/tauraamui/xerror"
)

var ErrSessionNotFound = xerror.New("no active session with given uuid")

// Server accepts frame streaming clients and keys their frames against
// each session's captured background.
type Server struct {
	config   configdef.Values
	engine   *keying.Engine
	listener net.Listener

	mu            sync.Mutex
	sessions      map[string]*session.Session
	coreProcesses []processHandle
	shutdownDone  chan interface{}
}

func NewServer(resolver configdef.Resolver) (*Server, error) {
	config, err := resolver.Resolve()
	if err != nil {
		return nil, err
	}

	return &Server{
		config:   config,
		engine:   keying.NewEngine(engineConfig(config.Keying)),
		sessions: map[string]*session.Session{},
	}, nil
}

func engineConfig(k configdef.Keying) keying.Config {
	return keying.Config{
		Tolerance:       toleranceOf(k.Tolerance),
		Mode:            keying.MatchMode(k.MatchMode),
		KeyColor:        colorOf(k.KeyColor),
		Substitution:    keying.Substitution(k.Substitution),
		SubstituteColor: colorOf(k.SubstituteColor),
		Workers:         k.Workers,
	}
}

// toleranceOf resolves a config tolerance pointer; the loader always
// populates it but resolvers built in tests may leave it nil.
func toleranceOf(t *uint32) uint32 {
	if t == nil {
		return 0
	}
	return *t
}

func colorOf(c []uint8) keying.Color {
	if len(c) != 4 {
		return keying.Color{}
	}
	return keying.Color{R: c[0], G: c[1], B: c[2], A: c[3]}
}

func (s *Server) Config() configdef.Values { return s.config }

// Listen binds the frame streaming listener. Must be called before
// SetupProcesses.
func (s *Server) Listen() error {
	l, err := net.Listen("tcp", s.config.BindAddress)
	if err != nil {
		return xerror.Errorf("unable to bind frame listener to %s: %w", s.config.BindAddress, err)
	}

	log.Info("Listening for frame streams at %s", s.config.BindAddress)
	s.listener = l
	return nil
}

func (s *Server) NewSession(conn net.Conn) *session.Session {
	return session.New(conn, s.engine)
}

func (s *Server) Register(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UUID()] = sess
}

func (s *Server) Unregister(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess.UUID())
}

// APIFetchActiveSessions snapshots every live session for the admin
// RPC surface.
func (s *Server) APIFetchActiveSessions() []common.SessionData {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := make([]common.SessionData, 0, len(s.sessions))
	for _, sess := range s.sessions {
		data = append(data, common.SessionData{
			UUID:            sess.UUID(),
			RemoteAddr:      sess.RemoteAddr(),
			State:           string(sess.State()),
			FramesProcessed: sess.FramesProcessed(),
		})
	}
	return data
}

// APIResetBackground clears the given session's captured background so
// its next frame re-captures it.
func (s *Server) APIResetBackground(uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[uuid]
	if !ok {
		return xerror.Errorf("%w: %s", ErrSessionNotFound, uuid)
	}

	log.Warn("Resetting background for session [%s]...", uuid)
	sess.ResetBackground()
	return nil
}

func (s *Server) shutdown() {
	s.shutdownDone = make(chan interface{})
	go func() {
		defer close(s.shutdownDone)
		s.shutdownProcesses()
		if s.listener != nil {
			s.listener.Close()
		}
	}()
}

func (s *Server) Shutdown() chan interface{} {
	s.shutdown()
	return s.shutdownDone
}
