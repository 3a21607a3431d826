package flow

import "go.trai.ch/conduit/internal/core/domain"

// Structural errors, reported by NewContainer.
var (
	ErrEntrypointAlreadyExists = domain.ErrEntrypointAlreadyExists
	ErrDuplicateExport         = domain.ErrDuplicateExport
	ErrUnresolvedImport        = domain.ErrUnresolvedImport
	ErrUnresolvedConstraint    = domain.ErrUnresolvedConstraint
	ErrUnusedExport            = domain.ErrUnusedExport
	ErrCycleDetected           = domain.ErrCycleDetected
	ErrAmbiguousConstructor    = domain.ErrAmbiguousConstructor
	ErrDomainTypeUnused        = domain.ErrDomainTypeUnused
	ErrDomainKeyNotConsumed    = domain.ErrDomainKeyNotConsumed
	ErrDomainKeyRedefined      = domain.ErrDomainKeyRedefined
	ErrDomainPartialOverlap    = domain.ErrDomainPartialOverlap
	ErrUnknownDomain           = domain.ErrUnknownDomain
)

// Run-time errors, reported by Container.Run and Cached.Get.
var (
	ErrInvalidInputs     = domain.ErrInvalidInputs
	ErrRunFailed         = domain.ErrRunFailed
	ErrRunCanceled       = domain.ErrRunCanceled
	ErrDisposeFailed     = domain.ErrDisposeFailed
	ErrResolveFailed     = domain.ErrResolveFailed
	ErrResultUnavailable = domain.ErrResultUnavailable
	ErrTypeMismatch      = domain.ErrTypeMismatch
	ErrInvalidTTL        = domain.ErrInvalidTTL
)
