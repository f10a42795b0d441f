package ops

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/example/deskd/internal/api"
)

// SessionCounter reports the session registry's size for system-info
// responses.
type SessionCounter interface {
	Counts() (total, running int)
}

// SysInfo serves the system_info operation.
type SysInfo struct {
	version  string
	started  time.Time
	sessions SessionCounter
}

// NewSysInfo constructs the system-info service. The daemon start time is
// captured at construction.
func NewSysInfo(version string, sessions SessionCounter) *SysInfo {
	return &SysInfo{
		version:  version,
		started:  time.Now(),
		sessions: sessions,
	}
}

// SystemInfo summarises the host and the daemon for automation clients.
func (s *SysInfo) SystemInfo(ctx context.Context) (*api.SystemInfoResult, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	res := &api.SystemInfoResult{
		Hostname:      hostname,
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		CPUs:          runtime.NumCPU(),
		GoVersion:     runtime.Version(),
		PID:           os.Getpid(),
		Version:       s.version,
		UptimeSeconds: time.Since(s.started).Seconds(),
	}
	if s.sessions != nil {
		res.Sessions.Total, res.Sessions.Running = s.sessions.Counts()
	}
	return res, nil
}
