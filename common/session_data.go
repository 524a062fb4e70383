package common

import (
	"net/rpc"

	"github.com/kexley/chromakeyd/pkg/log"
)

func init() {
	if err := rpc.Register(SessionData{}); err != nil {
		log.Error("unable to register session data type for RPC") //nolint
	}
}

type SessionData struct {
	UUID,
	RemoteAddr,
	State string
	FramesProcessed uint64
}

func (s SessionData) GetUUID(args string, dst *string) error {
	*dst = s.UUID
	return nil
}

func (s SessionData) GetRemoteAddr(args string, dst *string) error {
	*dst = s.RemoteAddr
	return nil
}

func (s SessionData) GetState(args string, dst *string) error {
	*dst = s.State
	return nil
}

func (s SessionData) GetFramesProcessed(args string, dst *uint64) error {
	*dst = s.FramesProcessed
	return nil
}
