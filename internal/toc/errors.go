package toc

import "git.home.luguber.info/inful/nbtoc/internal/foundation/errors"

// Sentinel errors returned by Build. Match them with errors.Is; returned
// errors carry extra context such as the heading index.
var (
	ErrMissingIdentifier = errors.ValidationError("heading has no identifier").NextTick().Build()
	ErrOrphanSecondary   = errors.ValidationError("secondary heading precedes any primary heading").NextTick().Build()
	ErrUnsupportedLevel  = errors.ValidationError("unsupported heading level").Build()
)
