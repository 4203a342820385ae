// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"fmt"
	"log/syslog"
)

// SyslogConfig describes a remote syslog forwarding target for
// NewSyslogWriter. New does not recognise syslog targets in log_file: it
// always opens log_file as a local path.
type SyslogConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Protocol string
	Tag      string
	Facility syslog.Priority
}

// DefaultSyslogConfig returns the documented defaults: disabled, UDP/514,
// tag "osmd", facility LOG_USER equivalent (1).
func DefaultSyslogConfig() SyslogConfig {
	return SyslogConfig{
		Enabled:  false,
		Port:     514,
		Protocol: "udp",
		Tag:      "osmd",
		Facility: 1,
	}
}

// SyslogWriter forwards log lines to a remote syslog daemon.
type SyslogWriter struct {
	w *syslog.Writer
}

// NewSyslogWriter normalizes cfg's defaults and dials the remote syslog
// daemon over cfg.Protocol.
func NewSyslogWriter(cfg SyslogConfig) (*SyslogWriter, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("syslog: host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 514
	}
	if cfg.Protocol == "" {
		cfg.Protocol = "udp"
	}
	if cfg.Tag == "" {
		cfg.Tag = "osmd"
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	w, err := syslog.Dial(cfg.Protocol, addr, syslog.Priority(cfg.Facility)|syslog.LOG_INFO, cfg.Tag)
	if err != nil {
		return nil, fmt.Errorf("dialing syslog at %s: %w", addr, err)
	}
	return &SyslogWriter{w: w}, nil
}

func (s *SyslogWriter) Write(p []byte) (int, error) {
	return len(p), s.w.Info(string(p))
}

func (s *SyslogWriter) Close() error { return s.w.Close() }
