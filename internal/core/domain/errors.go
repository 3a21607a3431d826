package domain

import "go.trai.ch/zerr"

var (
	// ErrEntrypointAlreadyExists is returned when two entrypoints share a name.
	ErrEntrypointAlreadyExists = zerr.New("entrypoint already exists")

	// ErrDuplicateExport is returned when a type is exported by more than one entrypoint.
	ErrDuplicateExport = zerr.New("type already exported by another entrypoint")

	// ErrUnresolvedImport is returned when an import references a type no entrypoint exports.
	ErrUnresolvedImport = zerr.New("import type is not exported by any entrypoint")

	// ErrUnresolvedConstraint is returned when a constraint references a type no entrypoint exports.
	ErrUnresolvedConstraint = zerr.New("constraint type is not exported by any entrypoint")

	// ErrUnusedExport is returned when an exported type is never imported.
	ErrUnusedExport = zerr.New("unused export")

	// ErrCycleDetected is returned when a cycle is detected in the entrypoint dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrAmbiguousBoundary is returned when a graph receives a second initial or result entrypoint.
	ErrAmbiguousBoundary = zerr.New("graph already has a boundary entrypoint of this kind")

	// ErrAmbiguousConstructor is returned when an owning component cannot be constructed unambiguously.
	ErrAmbiguousConstructor = zerr.New("ambiguous component constructor")

	// ErrGraphNotValidated is returned when a plan is requested before Validate succeeded.
	ErrGraphNotValidated = zerr.New("graph has not been validated")

	// ErrDomainTypeUnused is returned when a domain key is never exported or a value never imported.
	ErrDomainTypeUnused = zerr.New("execution domain type is not used in this graph")

	// ErrDomainKeyNotConsumed is returned when a domain key is not consumed inside the domain.
	ErrDomainKeyNotConsumed = zerr.New("execution domain key is not consumed inside the domain")

	// ErrDomainKeyRedefined is returned when a domain key is produced inside the domain.
	ErrDomainKeyRedefined = zerr.New("execution domain key is produced inside the domain")

	// ErrDomainPartialOverlap is returned when two domains share some, but not all, entrypoints.
	ErrDomainPartialOverlap = zerr.New("partial intersection of execution domains")

	// ErrUnknownDomain is returned when a domain name is not registered.
	ErrUnknownDomain = zerr.New("unknown execution domain")

	// ErrInvalidInputs is returned when a run receives the wrong number of initial inputs.
	ErrInvalidInputs = zerr.New("invalid initial inputs")

	// ErrRunFailed is returned when an entrypoint fails during a run.
	ErrRunFailed = zerr.New("entrypoint execution failed")

	// ErrRunCanceled is returned when a run observes cancellation.
	ErrRunCanceled = zerr.New("run canceled")

	// ErrDisposeFailed is returned when one or more scoped instances fail to dispose.
	ErrDisposeFailed = zerr.New("failed to dispose scoped instances")

	// ErrResolveFailed is returned when a constructor argument cannot be resolved.
	ErrResolveFailed = zerr.New("failed to resolve constructor argument")

	// ErrResultUnavailable is returned when a required result value is absent.
	ErrResultUnavailable = zerr.New("result is unavailable")

	// ErrInvalidTTL is returned when the outdate TTL exceeds the expire TTL.
	ErrInvalidTTL = zerr.New("outdate ttl must not exceed expire ttl")

	// ErrConfigNotFound is returned when no configuration file can be found.
	ErrConfigNotFound = zerr.New("could not find conduit.yaml")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrTypeMismatch is returned when a slot holds a value of another Go type than the
	// Type reading it, which happens when two Types of different T share a name.
	ErrTypeMismatch = zerr.New("slot value has a different Go type")

	// ErrSimulationFailed is returned when one or more simulated runs fail.
	ErrSimulationFailed = zerr.New("simulation failed")

	// ErrInvalidConfig is returned when a configuration field holds an unsupported value.
	ErrInvalidConfig = zerr.New("invalid configuration value")
)
