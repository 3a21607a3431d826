// Package config provides the configuration loader for conduit.
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.trai.ch/conduit/internal/core/domain"
	"go.trai.ch/conduit/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load reads the configuration file at path. A directory, or an empty path meaning
// the working directory, is searched upwards for conduit.yaml.
func (l *Loader) Load(path string) (*domain.Settings, error) {
	configPath, err := findConfiguration(path)
	if err != nil {
		return nil, err
	}

	var file Conduitfile
	if err := readAndUnmarshalYAML(configPath, &file); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}
	if file.Version == "" {
		l.Logger.Warn("no version declared in " + configPath + ", assuming version 1")
	}

	settings, err := buildSettings(&file)
	if err != nil {
		return nil, zerr.With(err, "path", configPath)
	}
	return settings, nil
}

func findConfiguration(path string) (string, error) {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", zerr.Wrap(err, "failed to get working directory")
		}
		path = cwd
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", zerr.With(domain.ErrConfigNotFound, "path", path)
	}
	if !info.IsDir() {
		return path, nil
	}

	currentDir := path
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}
	return "", zerr.With(domain.ErrConfigNotFound, "cwd", path)
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is chosen by the user
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}

	return nil
}

func buildSettings(file *Conduitfile) (*domain.Settings, error) {
	settings := &domain.Settings{LogJSON: file.Log.JSON}

	var err error
	if settings.ClockTick, err = parseDuration("clock.tick", file.Clock.Tick, domain.DefaultClockTick); err != nil {
		return nil, err
	}
	if settings.Cache, err = buildCache(&file.Cache); err != nil {
		return nil, err
	}
	if settings.Pipeline, err = buildManifest(&file.Pipeline); err != nil {
		return nil, err
	}
	return settings, nil
}

func buildCache(dto *CacheDTO) (domain.CacheSettings, error) {
	var (
		cache domain.CacheSettings
		err   error
	)
	if cache.Expire, err = parseDuration("cache.expire", dto.Expire, domain.DefaultExpireTTL); err != nil {
		return cache, err
	}
	outdateDefault := min(domain.DefaultOutdateTTL, cache.Expire)
	if cache.Outdate, err = parseDuration("cache.outdate", dto.Outdate, outdateDefault); err != nil {
		return cache, err
	}
	if cache.Outdate > cache.Expire {
		err = zerr.With(zerr.With(domain.ErrInvalidTTL, "expire", cache.Expire.String()), "outdate", cache.Outdate.String())
		return cache, err
	}
	sweep, err := parseDuration("cache.sweepInterval", dto.SweepInterval, domain.DefaultSweepInterval)
	if err != nil {
		return cache, err
	}
	cache.SweepInterval = sweep

	switch {
	case dto.Shards < 0:
		return cache, zerr.With(zerr.With(domain.ErrInvalidConfig, "field", "cache.shards"), "value", dto.Shards)
	case dto.Shards == 0:
		cache.Shards = domain.DefaultShards
	default:
		cache.Shards = dto.Shards
	}
	return cache, nil
}

func parseDuration(field, raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrInvalidConfig.Error()), "field", field)
	}
	if d < 0 {
		return 0, zerr.With(zerr.With(domain.ErrInvalidConfig, "field", field), "value", raw)
	}
	return d, nil
}

func buildManifest(dto *PipelineDTO) (domain.Manifest, error) {
	m := domain.Manifest{
		Inputs:  parsePorts(dto.Inputs),
		Results: parsePorts(dto.Results),
	}

	for _, e := range dto.Entrypoints {
		spec, err := buildEntrypoint(e)
		if err != nil {
			return m, zerr.With(err, "entrypoint", e.Name)
		}
		m.Entrypoints = append(m.Entrypoints, spec)
	}

	for _, d := range dto.Domains {
		if d.Name == "" {
			return m, zerr.With(domain.ErrInvalidConfig, "field", "pipeline.domains.name")
		}
		m.Domains = append(m.Domains, domain.DomainSettings{
			Name:   d.Name,
			Keys:   internStrings(d.Keys),
			Values: internStrings(d.Values),
		})
	}
	return m, nil
}

func buildEntrypoint(dto *EntrypointDTO) (domain.EntrypointSpec, error) {
	spec := domain.EntrypointSpec{
		Name:        dto.Name,
		Imports:     parsePorts(dto.Imports),
		Exports:     parsePorts(dto.Exports),
		Constraints: parseConstraints(dto.Constraints),
		Async:       dto.Async,
		Component:   dto.Component,
		Absent:      internStrings(dto.Absent),
	}
	if dto.Name == "" {
		return spec, zerr.With(domain.ErrInvalidConfig, "field", "name")
	}

	for _, a := range spec.Absent {
		if !slices.Contains(spec.Exports, domain.Port{Type: a, Optional: true}) {
			return spec, zerr.With(zerr.With(domain.ErrInvalidConfig, "field", "absent"), "value", a.String())
		}
	}

	var err error
	if spec.Priority, err = parsePriority(dto.Priority); err != nil {
		return spec, err
	}
	if spec.Lifetime, err = parseLifetime(dto.Lifetime); err != nil {
		return spec, err
	}
	if spec.Delay, err = parseDuration("delay", dto.Delay, 0); err != nil {
		return spec, err
	}
	return spec, nil
}

func parsePriority(raw string) (domain.Priority, error) {
	switch strings.ToLower(raw) {
	case "", "medium":
		return domain.PriorityMedium, nil
	case "high":
		return domain.PriorityHigh, nil
	case "low":
		return domain.PriorityLow, nil
	default:
		return 0, zerr.With(zerr.With(domain.ErrInvalidConfig, "field", "priority"), "value", raw)
	}
}

func parseLifetime(raw string) (domain.Lifetime, error) {
	switch strings.ToLower(raw) {
	case "", "scoped":
		return domain.LifetimeScoped, nil
	case "singleton":
		return domain.LifetimeSingleton, nil
	default:
		return 0, zerr.With(zerr.With(domain.ErrInvalidConfig, "field", "lifetime"), "value", raw)
	}
}

// parsePorts turns "Type" and "Type?" references into ports.
func parsePorts(refs []string) []domain.Port {
	if len(refs) == 0 {
		return nil
	}
	out := make([]domain.Port, len(refs))
	for i, ref := range refs {
		name, optional := strings.CutSuffix(strings.TrimSpace(ref), "?")
		out[i] = domain.Port{Type: domain.NewInternedString(name), Optional: optional}
	}
	return out
}

// parseConstraints turns "Type" and "!Type" references into constraints.
func parseConstraints(refs []string) []domain.Constraint {
	if len(refs) == 0 {
		return nil
	}
	constraints := make([]domain.Constraint, len(refs))
	for i, ref := range refs {
		name, absent := strings.CutPrefix(strings.TrimSpace(ref), "!")
		constraints[i] = domain.Constraint{Type: domain.NewInternedString(name), RequiresAbsent: absent}
	}
	return constraints
}

func internStrings(strs []string) []domain.InternedString {
	if len(strs) == 0 {
		return nil
	}
	res := make([]domain.InternedString, len(strs))
	for i, s := range strs {
		res[i] = domain.NewInternedString(strings.TrimSpace(s))
	}
	return res
}
