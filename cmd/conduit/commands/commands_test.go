package commands_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/conduit/cmd/conduit/commands"
	"go.trai.ch/conduit/internal/adapters/telemetry"
	"go.trai.ch/conduit/internal/app"
	"go.trai.ch/conduit/internal/core/domain"
	"go.trai.ch/conduit/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func manifest() *domain.Settings {
	query := domain.Port{Type: domain.NewInternedString("Query")}
	answer := domain.Port{Type: domain.NewInternedString("Answer")}
	return &domain.Settings{
		ClockTick: domain.DefaultClockTick,
		Pipeline: domain.Manifest{
			Inputs:  []domain.Port{query},
			Results: []domain.Port{answer},
			Entrypoints: []domain.EntrypointSpec{{
				Name:     "answer",
				Imports:  []domain.Port{query},
				Exports:  []domain.Port{answer},
				Priority: domain.PriorityMedium,
			}},
		},
	}
}

func newCLI(t *testing.T) (*commands.CLI, *mocks.MockConfigLoader) {
	t.Helper()
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	a := app.New(loader, mocks.NewMockLogger(ctrl), telemetry.NewNoOp(), clockwork.NewFakeClock())
	return commands.New(a), loader
}

func TestPlan_UsesConfigFlag(t *testing.T) {
	cli, loader := newCLI(t)
	loader.EXPECT().Load("pipelines/conduit.yaml").Return(manifest(), nil).Times(1)

	cli.SetArgs([]string{"plan", "-c", "pipelines/conduit.yaml"})
	require.NoError(t, cli.Execute(context.Background()))
}

func TestPlan_RejectsArgs(t *testing.T) {
	cli, _ := newCLI(t)

	cli.SetArgs([]string{"plan", "extra"})
	require.Error(t, cli.Execute(context.Background()))
}

func TestSimulate_Success(t *testing.T) {
	cli, loader := newCLI(t)
	loader.EXPECT().Load("").Return(manifest(), nil).Times(1)

	cli.SetArgs([]string{"simulate", "--runs", "3", "--concurrency", "2"})
	if err := cli.Execute(context.Background()); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
}

func TestSimulate_LoadError(t *testing.T) {
	cli, loader := newCLI(t)
	loader.EXPECT().Load("").Return(nil, domain.ErrConfigNotFound).Times(1)

	cli.SetArgs([]string{"simulate"})
	err := cli.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrConfigNotFound.Error())
}

func TestRoot_Help(t *testing.T) {
	cli, _ := newCLI(t)

	cli.SetArgs([]string{"--help"})
	// Cobra handles help automatically
	if err := cli.Execute(context.Background()); err != nil {
		t.Errorf("Expected no error for help, got: %v", err)
	}
}

func TestVersion(t *testing.T) {
	cli, _ := newCLI(t)

	var out bytes.Buffer
	cli.SetOutput(&out)
	cli.SetArgs([]string{"version"})
	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, "conduit version dev\n", out.String())
}
