package chromad

import (
	"sync"

	"github.com/kexley/chromakeyd/pkg/chromad/process"
)

type processHandle = process.Process

func (s *Server) SetupProcesses() {
	proc := process.New(process.Settings{
		WaitForShutdownMsg: "Closing frame stream listener and live sessions...",
		Process:            process.AcceptSessionsProcess(s.listener, s),
	})
	s.coreProcesses = append(s.coreProcesses, proc.Setup())
}

func (s *Server) RunProcesses() {
	for _, proc := range s.coreProcesses {
		proc.Start()
	}
}

func (s *Server) shutdownProcesses() {
	wg := sync.WaitGroup{}
	wg.Add(len(s.coreProcesses))
	for _, proc := range s.coreProcesses {
		go func(wg *sync.WaitGroup, proc processHandle) {
			proc.Stop()
			proc.Wait()
			wg.Done()
		}(&wg, proc)
	}
	wg.Wait()
}
