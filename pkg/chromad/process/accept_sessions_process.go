package process

import (
	"context"
	"net"

	"github.com/kexley/chromakeyd/pkg/log"
	"github.com/kexley/chromakeyd/pkg/session"
)

// SessionHandler owns the lifecycle bookkeeping for accepted sessions.
type SessionHandler interface {
	Register(*session.Session)
	Unregister(*session.Session)
	NewSession(net.Conn) *session.Session
}

// AcceptSessionsProcess accepts client connections from l and runs one
// session per connection until the context is cancelled. Cancelling
// closes the listener, which unblocks the accept loop; live sessions
// are cancelled through the same context.
func AcceptSessionsProcess(l net.Listener, handler SessionHandler) func(context.Context) []chan interface{} {
	return func(ctx context.Context) []chan interface{} {
		stopping := make(chan interface{})

		go func() {
			<-ctx.Done()
			l.Close()
		}()

		go func() {
			defer close(stopping)
			for {
				conn, err := l.Accept()
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Error("unable to accept client connection: %s", err.Error())
					return
				}

				sess := handler.NewSession(conn)
				handler.Register(sess)
				log.Info("Client [%s] connected from %s", sess.UUID(), sess.RemoteAddr())

				go func() {
					defer handler.Unregister(sess)
					if err := sess.Run(ctx); err != nil {
						log.Error("Session [%s] ended with error: %s", sess.UUID(), err.Error())
						return
					}
					log.Info("Session [%s] closed", sess.UUID())
				}()
			}
		}()

		return []chan interface{}{stopping}
	}
}
