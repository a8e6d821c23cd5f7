package config

import (
	"time"

	"go.uber.org/multierr"

	"git.home.luguber.info/inful/nbtoc/internal/document"
	"git.home.luguber.info/inful/nbtoc/internal/foundation/errors"
	"git.home.luguber.info/inful/nbtoc/internal/toc"
)

// MinInterval bounds the tick period from below.
const MinInterval = 50 * time.Millisecond

// Validate checks the configuration and reports every problem found.
func Validate(cfg *Config) error {
	return runChecks(cfg,
		validateVersion,
		validateDocumentSource,
		validateDocumentOutput,
		validateTOC,
		validateRefresh,
		validateServices,
		validateLogging,
	)
}

// ValidateSource checks what is needed to read headings. The output
// container is not required.
func ValidateSource(cfg *Config) error {
	return runChecks(cfg,
		validateVersion,
		validateDocumentSource,
		validateLogging,
	)
}

func runChecks(cfg *Config, checks ...func(*Config) error) error {
	var errs error
	for _, check := range checks {
		errs = multierr.Append(errs, check(cfg))
	}
	return errs
}

func invalid(field, message string, value any) error {
	return errors.ConfigError(message).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}

func validateVersion(cfg *Config) error {
	if cfg.Version != CurrentVersion {
		return invalid("version", "unsupported configuration version", cfg.Version)
	}
	return nil
}

// documentKind resolves the configured or detected kind.
func documentKind(d DocumentConfig) (document.Kind, error) {
	if d.Path == "" {
		return "", invalid("document.path", "document path is required", d.Path)
	}
	kind, err := document.ParseKind(d.Kind)
	if err != nil {
		return "", invalid("document.kind", "unsupported document kind", d.Kind)
	}
	if kind == "" {
		if kind, err = document.DetectKind(d.Path); err != nil {
			return "", invalid("document.path", "cannot detect document kind from extension", d.Path)
		}
	}
	return kind, nil
}

func validateDocumentSource(cfg *Config) error {
	_, err := documentKind(cfg.Document)
	return err
}

func validateDocumentOutput(cfg *Config) error {
	d := cfg.Document
	kind, err := documentKind(d)
	if err != nil {
		// Already reported by validateDocumentSource.
		return nil
	}
	if kind == document.KindHTML && d.Output == "" && d.ContainerID == "" {
		return invalid("document.container_id", "container id is required when writing into the page", d.ContainerID)
	}
	if kind != document.KindHTML && d.Output == "" {
		return invalid("document.output", "output path is required for markdown and notebook documents", d.Output)
	}
	return nil
}

func validateTOC(cfg *Config) error {
	if _, err := toc.ParseOrphanPolicy(cfg.TOC.Orphans); err != nil {
		return invalid("toc.orphans", err.Error(), cfg.TOC.Orphans)
	}
	return nil
}

func validateRefresh(cfg *Config) error {
	var errs error
	if cfg.Refresh.Interval < MinInterval {
		errs = multierr.Append(errs, invalid("refresh.interval", "interval below minimum of 50ms", cfg.Refresh.Interval.String()))
	}
	if cfg.Refresh.Debounce < 0 {
		errs = multierr.Append(errs, invalid("refresh.debounce", "debounce must not be negative", cfg.Refresh.Debounce.String()))
	}
	return errs
}

func validateServices(cfg *Config) error {
	var errs error
	if cfg.History.Retain < 0 {
		errs = multierr.Append(errs, invalid("history.retain", "retain must not be negative", cfg.History.Retain))
	}
	if cfg.NATS.Enabled && cfg.NATS.Subject == "" {
		errs = multierr.Append(errs, invalid("nats.subject", "subject is required when nats is enabled", cfg.NATS.Subject))
	}
	if cfg.Server.Metrics && !cfg.Server.Enabled {
		errs = multierr.Append(errs, invalid("server.metrics", "metrics require the server to be enabled", cfg.Server.Metrics))
	}
	return errs
}

func validateLogging(cfg *Config) error {
	var errs error
	if _, err := logLevelNormalizer.NormalizeWithError(cfg.Logging.Level); err != nil {
		errs = multierr.Append(errs, invalid("logging.level", err.Error(), cfg.Logging.Level))
	}
	if _, err := logFormatNormalizer.NormalizeWithError(cfg.Logging.Format); err != nil {
		errs = multierr.Append(errs, invalid("logging.format", err.Error(), cfg.Logging.Format))
	}
	return errs
}
