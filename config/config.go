// Package config holds the validated run settings shared by the
// netthru server and client. The command line (or environment, via
// flagx) produces a Settings; everything downstream just consumes it.
package config

import "fmt"

// Run modes. The server takes its directions from the client, so almost
// every other setting only matters in client mode.
const (
	ModeServer = "server"
	ModeClient = "client"
)

// Defaults for the settings a client may omit.
const (
	DefaultPort        = 54811
	DefaultSeconds     = 10
	DefaultBytesPerBuf = 12288
)

// Settings is the validated configuration for one netthru run.
type Settings struct {
	// Mode is ModeServer or ModeClient.
	Mode string
	// RemoteIP is the address of the server. Client mode only.
	RemoteIP string
	// Port is the TCP port the server listens on.
	Port int
	// Seconds is how long the server should stream filler data.
	Seconds int
	// BytesPerBuf is the size of each chunk the server sends and the
	// client receives.
	BytesPerBuf int
	// Message is an arbitrary string for the server to log.
	Message string
	// Logfile is the path of the run log. Empty means the per-mode
	// default.
	Logfile string
}

// Validate checks that the settings describe a runnable measurement.
func (s *Settings) Validate() error {
	switch s.Mode {
	case ModeServer:
	case ModeClient:
		if s.RemoteIP == "" {
			return fmt.Errorf("client mode requires -remoteip")
		}
		if s.Seconds <= 0 {
			return fmt.Errorf("seconds must be positive, got %d", s.Seconds)
		}
		if s.BytesPerBuf <= 0 {
			return fmt.Errorf("bytes per send must be positive, got %d", s.BytesPerBuf)
		}
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeServer, ModeClient, s.Mode)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("port must be in 1-65535, got %d", s.Port)
	}
	return nil
}

// LogfileOrDefault returns the configured log path, or the historical
// per-mode default when none was given.
func (s *Settings) LogfileOrDefault() string {
	if s.Logfile != "" {
		return s.Logfile
	}
	if s.Mode == ModeServer {
		return "netthruserver.log"
	}
	return "netthruclient.log"
}
