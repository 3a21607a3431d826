package config

// Conduitfile represents the structure of the conduit.yaml configuration file.
type Conduitfile struct {
	Version  string      `yaml:"version"`
	Log      LogDTO      `yaml:"log"`
	Clock    ClockDTO    `yaml:"clock"`
	Cache    CacheDTO    `yaml:"cache"`
	Pipeline PipelineDTO `yaml:"pipeline"`
}

// LogDTO configures the logger.
type LogDTO struct {
	JSON bool `yaml:"json"`
}

// ClockDTO configures the coarse clock.
type ClockDTO struct {
	Tick string `yaml:"tick"`
}

// CacheDTO configures the stale-while-revalidate cache.
type CacheDTO struct {
	Expire        string `yaml:"expire"`
	Outdate       string `yaml:"outdate"`
	Shards        int    `yaml:"shards"`
	SweepInterval string `yaml:"sweepInterval"`
}

// PipelineDTO declares a pipeline manifest.
// Type references may carry a trailing "?" to mark them optional.
type PipelineDTO struct {
	Inputs      []string         `yaml:"inputs"`
	Results     []string         `yaml:"results"`
	Entrypoints []*EntrypointDTO `yaml:"entrypoints"`
	Domains     []DomainDTO      `yaml:"domains"`
}

// EntrypointDTO represents an entrypoint definition in the manifest.
// Constraints prefixed with "!" require the type to be absent.
type EntrypointDTO struct {
	Name        string   `yaml:"name"`
	Imports     []string `yaml:"imports"`
	Exports     []string `yaml:"exports"`
	Constraints []string `yaml:"constraints"`
	Priority    string   `yaml:"priority"`
	Async       bool     `yaml:"async"`
	Component   string   `yaml:"component"`
	Lifetime    string   `yaml:"lifetime"`
	Absent      []string `yaml:"absent"`
	Delay       string   `yaml:"delay"`
}

// DomainDTO represents an execution domain definition.
type DomainDTO struct {
	Name   string   `yaml:"name"`
	Keys   []string `yaml:"keys"`
	Values []string `yaml:"values"`
}
