package app_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/conduit/internal/adapters/telemetry"
	"go.trai.ch/conduit/internal/app"
	"go.trai.ch/conduit/internal/core/domain"
	"go.trai.ch/conduit/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func port(name string, optional bool) domain.Port {
	return domain.Port{Type: domain.NewInternedString(name), Optional: optional}
}

func settings() *domain.Settings {
	return &domain.Settings{
		ClockTick: domain.DefaultClockTick,
		Cache: domain.CacheSettings{
			Expire:        domain.DefaultExpireTTL,
			Outdate:       domain.DefaultOutdateTTL,
			Shards:        4,
			SweepInterval: domain.DefaultSweepInterval,
		},
		Pipeline: domain.Manifest{
			Inputs:  []domain.Port{port("Query", false)},
			Results: []domain.Port{port("Answer", false)},
			Entrypoints: []domain.EntrypointSpec{
				{
					Name:     "parse",
					Imports:  []domain.Port{port("Query", false)},
					Exports:  []domain.Port{port("Parsed", false)},
					Priority: domain.PriorityMedium,
				},
				{
					Name:     "answer",
					Imports:  []domain.Port{port("Parsed", false)},
					Exports:  []domain.Port{port("Answer", false)},
					Priority: domain.PriorityMedium,
				},
			},
		},
	}
}

func newApp(t *testing.T, s *domain.Settings) (*app.App, *mocks.MockLogger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	log := mocks.NewMockLogger(ctrl)
	loader.EXPECT().Load("conduit.yaml").Return(s, nil)
	return app.New(loader, log, telemetry.NewNoOp(), clockwork.NewFakeClock()), log
}

func TestApp_Plan(t *testing.T) {
	s := settings()
	s.Pipeline.Domains = []domain.DomainSettings{{
		Name:   "answering",
		Keys:   []domain.InternedString{domain.NewInternedString("Parsed")},
		Values: []domain.InternedString{domain.NewInternedString("Answer")},
	}}
	a, _ := newApp(t, s)

	var out bytes.Buffer
	require.NoError(t, a.Plan("conduit.yaml", &out))

	got := out.String()
	assert.Contains(t, got, "1. parse <- Query -> Parsed\n")
	assert.Contains(t, got, "2. answer <- Parsed -> Answer\n")
	assert.Contains(t, got, "(async: false)")
	assert.Contains(t, got, "domain answering: answer\n")
}

func TestApp_Plan_InvalidPipeline(t *testing.T) {
	s := settings()
	s.Pipeline.Entrypoints[1].Imports = []domain.Port{port("Missing", false)}
	a, _ := newApp(t, s)

	err := a.Plan("conduit.yaml", &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid pipeline")
}

func TestApp_Plan_LoadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load("").Return(nil, domain.ErrConfigNotFound)
	a := app.New(loader, mocks.NewMockLogger(ctrl), telemetry.NewNoOp(), clockwork.NewFakeClock())

	err := a.Plan("", &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrConfigNotFound.Error())
}

func TestApp_Simulate(t *testing.T) {
	a, _ := newApp(t, settings())

	var out bytes.Buffer
	err := a.Simulate(context.Background(), "conduit.yaml", app.SimulateOptions{Runs: 4, Concurrency: 2}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "4 runs, 0 failed")
	assert.Contains(t, out.String(), "vertices: 8 completed, 0 skipped, 0 failed, 0 cached")
}

func TestApp_Simulate_Cache(t *testing.T) {
	a, _ := newApp(t, settings())

	var out bytes.Buffer
	err := a.Simulate(context.Background(), "conduit.yaml",
		app.SimulateOptions{Runs: 4, Concurrency: 1, Keys: 2, Cache: true}, &out)
	require.NoError(t, err)

	// Two misses run both entrypoints and complete the cache vertex; two hits are cached.
	assert.Contains(t, out.String(), "vertices: 6 completed, 0 skipped, 0 failed, 2 cached")
}

func TestApp_Simulate_CacheNeedsSingleInput(t *testing.T) {
	s := settings()
	s.Pipeline.Inputs = append(s.Pipeline.Inputs, port("Locale", true))
	a, _ := newApp(t, s)

	err := a.Simulate(context.Background(), "conduit.yaml",
		app.SimulateOptions{Runs: 1, Cache: true}, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrInvalidConfig.Error())
}

func TestApp_Simulate_OptionalInputs(t *testing.T) {
	s := settings()
	s.Pipeline.Inputs = append(s.Pipeline.Inputs, port("Locale", true))
	s.Pipeline.Entrypoints = append(s.Pipeline.Entrypoints, domain.EntrypointSpec{
		Name:     "localize",
		Imports:  []domain.Port{port("Locale", false)},
		Exports:  []domain.Port{port("Translation", true)},
		Priority: domain.PriorityMedium,
	})
	s.Pipeline.Results = append(s.Pipeline.Results, port("Translation", true))
	a, _ := newApp(t, s)

	var out bytes.Buffer
	err := a.Simulate(context.Background(), "conduit.yaml", app.SimulateOptions{Runs: 4}, &out)
	require.NoError(t, err)

	// Locale is present for even keys only, so localize is skipped in half the runs.
	assert.Contains(t, out.String(), "vertices: 10 completed, 2 skipped, 0 failed, 0 cached")
}

func TestApp_Simulate_Failures(t *testing.T) {
	s := settings()
	answer := &s.Pipeline.Entrypoints[1]
	answer.Exports = []domain.Port{port("Answer", true)}
	answer.Absent = []domain.InternedString{domain.NewInternedString("Answer")}
	a, log := newApp(t, s)
	log.EXPECT().Error(gomock.Any()).Times(3)

	var out bytes.Buffer
	err := a.Simulate(context.Background(), "conduit.yaml", app.SimulateOptions{Runs: 3}, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSimulationFailed))
	assert.Contains(t, out.String(), "3 runs, 3 failed")
}

func TestApp_Simulate_Canceled(t *testing.T) {
	a, _ := newApp(t, settings())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Simulate(ctx, "conduit.yaml", app.SimulateOptions{Runs: 2}, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRunCanceled)
}
