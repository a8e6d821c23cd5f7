package config

import (
	"time"

	"git.home.luguber.info/inful/nbtoc/internal/toc"
)

// Default values applied to zero fields.
const (
	DefaultInterval    = time.Second
	DefaultDebounce    = 200 * time.Millisecond
	DefaultIgnoreClass = "anchor-link"
	DefaultServerAddr  = "127.0.0.1:8731"
	DefaultHistoryPath = ".nbtoc/history.db"
	DefaultRetain      = 1000
	DefaultNATSURL     = "nats://127.0.0.1:4222"
	DefaultNATSSubject = "nbtoc.toc.updated"
	DefaultKVBucket    = "nbtoc"
	DefaultNATSTimeout = 5 * time.Second
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

type documentDefaults struct{}

func (documentDefaults) Domain() string { return "document" }

func (documentDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Document.IgnoreClass == "" {
		cfg.Document.IgnoreClass = DefaultIgnoreClass
	}
	return nil
}

type tocDefaults struct{}

func (tocDefaults) Domain() string { return "toc" }

func (tocDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.TOC.ListKeyPrefix == "" {
		cfg.TOC.ListKeyPrefix = toc.DefaultListKeyPrefix
	}
	if cfg.TOC.ListClass == "" {
		cfg.TOC.ListClass = toc.DefaultListClass
	}
	if cfg.TOC.Orphans == "" {
		cfg.TOC.Orphans = string(toc.OrphanFail)
	}
	return nil
}

type refreshDefaults struct{}

func (refreshDefaults) Domain() string { return "refresh" }

func (refreshDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Refresh.Interval == 0 {
		cfg.Refresh.Interval = DefaultInterval
	}
	if cfg.Refresh.Debounce == 0 {
		cfg.Refresh.Debounce = DefaultDebounce
	}
	return nil
}

type serviceDefaults struct{}

func (serviceDefaults) Domain() string { return "services" }

func (serviceDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.History.Retain == 0 {
		cfg.History.Retain = DefaultRetain
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = DefaultNATSURL
	}
	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = DefaultNATSSubject
	}
	if cfg.NATS.KVBucket == "" {
		cfg.NATS.KVBucket = DefaultKVBucket
	}
	if cfg.NATS.Timeout == 0 {
		cfg.NATS.Timeout = DefaultNATSTimeout
	}
	return nil
}

type loggingDefaults struct{}

func (loggingDefaults) Domain() string { return "logging" }

func (loggingDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = string(LogLevelInfo)
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = string(LogFormatText)
	}
	return nil
}

var defaultAppliers = []DefaultApplier{
	documentDefaults{},
	tocDefaults{},
	refreshDefaults{},
	serviceDefaults{},
	loggingDefaults{},
}

// ApplyDefaults fills zero fields in every domain.
func ApplyDefaults(cfg *Config) error {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
