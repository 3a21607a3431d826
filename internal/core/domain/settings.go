package domain

import "time"

// ConfigFileName is the name of the engine configuration file.
const ConfigFileName = "conduit.yaml"

// Default engine settings applied when the configuration file leaves a field unset.
const (
	DefaultExpireTTL     = 10 * time.Minute
	DefaultOutdateTTL    = time.Minute
	DefaultShards        = 256
	DefaultSweepInterval = 600 * time.Second
	DefaultClockTick     = time.Second
)

// Settings is the loaded engine configuration together with the pipeline manifest.
type Settings struct {
	Cache     CacheSettings
	LogJSON   bool
	ClockTick time.Duration
	Pipeline  Manifest
}

// CacheSettings configures the stale-while-revalidate cache.
type CacheSettings struct {
	Expire        time.Duration
	Outdate       time.Duration
	Shards        int
	SweepInterval time.Duration
}

// Manifest declares a pipeline without code: its inputs and results, its entrypoints
// and the execution domains carved from it.
type Manifest struct {
	Inputs      []Port
	Results     []Port
	Entrypoints []EntrypointSpec
	Domains     []DomainSettings
}

// EntrypointSpec is the declarative form of an entrypoint. The invoker is supplied
// by whoever turns the manifest into a graph.
type EntrypointSpec struct {
	Name        string
	Imports     []Port
	Exports     []Port
	Constraints []Constraint
	Priority    Priority
	Async       bool
	Component   string
	Lifetime    Lifetime
	// Absent lists optional exports a simulated invocation leaves empty.
	Absent []InternedString
	// Delay is how long a simulated invocation takes.
	Delay time.Duration
}
