package lifecycle_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/conduit/internal/core/domain"
	"go.trai.ch/conduit/internal/core/ports/mocks"
	"go.trai.ch/conduit/internal/engine/lifecycle"
	"go.uber.org/mock/gomock"
)

type closer struct {
	closed *atomic.Int32
	err    error
}

func (c *closer) Close() error {
	if c.closed != nil {
		c.closed.Add(1)
	}
	return c.err
}

func port(name string) []domain.Port {
	return []domain.Port{{Type: domain.NewInternedString(name)}}
}

func newGraph(t *testing.T, entrypoints ...*domain.Entrypoint) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()
	for _, e := range entrypoints {
		require.NoError(t, g.AddEntrypoint(e))
	}
	require.NoError(t, g.Validate())
	return g
}

func TestManager_SingletonOnceScopedPerRun(t *testing.T) {
	var singletonBuilt, scopedBuilt, scopedClosed atomic.Int32

	singleton := &domain.Component{
		Name:     "config",
		Lifetime: domain.LifetimeSingleton,
		New: func([]any) (any, error) {
			singletonBuilt.Add(1)
			return &closer{}, nil
		},
	}
	scoped := &domain.Component{
		Name: "session",
		New: func([]any) (any, error) {
			scopedBuilt.Add(1)
			return &closer{closed: &scopedClosed}, nil
		},
	}

	g := newGraph(t,
		&domain.Entrypoint{Name: "load", Exports: port("X"), Owner: singleton},
		&domain.Entrypoint{Name: "open", Imports: port("X"), Exports: port("Y"), Owner: scoped},
		&domain.Entrypoint{Name: "use", Imports: port("Y"), Owner: scoped},
		&domain.Entrypoint{Name: "static", Imports: port("Y")},
	)

	m, err := lifecycle.NewManager(g, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, m.ComponentCount())
	assert.Equal(t, int32(1), singletonBuilt.Load())

	const runs = 50
	var wg sync.WaitGroup
	for range runs {
		wg.Go(func() {
			scope, err := m.NewScope()
			if !assert.NoError(t, err) {
				return
			}

			first, err := scope.Instance(0)
			assert.NoError(t, err)
			open, err := scope.Instance(1)
			assert.NoError(t, err)
			use, err := scope.Instance(2)
			assert.NoError(t, err)
			static, err := scope.Instance(3)
			assert.NoError(t, err)

			assert.NotNil(t, first)
			assert.Same(t, open, use, "entrypoints of one component share the run's instance")
			assert.Nil(t, static)
			assert.NoError(t, scope.Close())
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), singletonBuilt.Load())
	assert.Equal(t, int32(runs), scopedBuilt.Load())
	assert.Equal(t, int32(runs), scopedClosed.Load())
	require.NoError(t, m.Close())
}

func TestScope_Close_AggregatesErrors(t *testing.T) {
	var closed atomic.Int32
	failing := func(name string) *domain.Component {
		return &domain.Component{
			Name: name,
			New: func([]any) (any, error) {
				return &closer{closed: &closed, err: errors.New(name + " refused to close")}, nil
			},
		}
	}

	g := newGraph(t,
		&domain.Entrypoint{Name: "a", Exports: port("A"), Owner: failing("first")},
		&domain.Entrypoint{Name: "b", Imports: port("A"), Owner: failing("second")},
	)
	m, err := lifecycle.NewManager(g, nil)
	require.NoError(t, err)

	scope, err := m.NewScope()
	require.NoError(t, err)
	_, err = scope.Instance(0)
	require.NoError(t, err)
	_, err = scope.Instance(1)
	require.NoError(t, err)

	err = scope.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDisposeFailed)
	assert.ErrorContains(t, err, "first refused to close")
	assert.ErrorContains(t, err, "second refused to close")
	assert.Equal(t, int32(2), closed.Load(), "every instance must get a disposal attempt")
}

type scopingResolver struct {
	*mocks.MockResolver
	*mocks.MockScopeFactory
}

func TestScope_ResolvePerInstance(t *testing.T) {
	ctrl := gomock.NewController(t)
	dep := domain.NewInternedString("Dep")

	base := mocks.NewMockResolver(ctrl)
	factory := mocks.NewMockScopeFactory(ctrl)
	scoped := mocks.NewMockScopedResolver(ctrl)

	factory.EXPECT().CreateScope().Return(scoped, nil)
	scoped.EXPECT().Resolve(dep).Return("per-run", nil)
	scoped.EXPECT().Release().Return(nil)

	var got []any
	component := &domain.Component{
		Name:               "handler",
		Args:               []domain.InternedString{dep},
		ResolvePerInstance: true,
		New: func(args []any) (any, error) {
			got = args
			return struct{}{}, nil
		},
	}
	g := newGraph(t, &domain.Entrypoint{Name: "handle", Owner: component})

	m, err := lifecycle.NewManager(g, scopingResolver{base, factory})
	require.NoError(t, err)

	scope, err := m.NewScope()
	require.NoError(t, err)
	_, err = scope.Instance(0)
	require.NoError(t, err)
	require.NoError(t, scope.Close())

	assert.Equal(t, []any{"per-run"}, got)
}

func TestNewManager_ResolveOnceAndInit(t *testing.T) {
	ctrl := gomock.NewController(t)
	dep := domain.NewInternedString("Dep")

	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().Resolve(dep).Return(42, nil).Times(1)

	var inits, builds int
	component := &domain.Component{
		Name: "worker",
		Args: []domain.InternedString{dep},
		Init: func(args []any) error {
			inits++
			assert.Equal(t, []any{42}, args)
			return nil
		},
		New: func(args []any) (any, error) {
			builds++
			assert.Equal(t, []any{42}, args)
			return struct{}{}, nil
		},
	}
	g := newGraph(t, &domain.Entrypoint{Name: "work", Owner: component})

	m, err := lifecycle.NewManager(g, resolver)
	require.NoError(t, err)

	for range 3 {
		scope, err := m.NewScope()
		require.NoError(t, err)
		_, err = scope.Instance(0)
		require.NoError(t, err)
		require.NoError(t, scope.Close())
	}

	assert.Equal(t, 1, inits)
	assert.Equal(t, 3, builds)
}

func TestNewManager_ResolveFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	dep := domain.NewInternedString("Dep")

	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().Resolve(dep).Return(nil, errors.New("not registered"))

	component := &domain.Component{
		Name: "worker",
		Args: []domain.InternedString{dep},
		New:  func([]any) (any, error) { return struct{}{}, nil },
	}
	g := newGraph(t, &domain.Entrypoint{Name: "work", Owner: component})

	_, err := lifecycle.NewManager(g, resolver)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrResolveFailed)
	assert.ErrorContains(t, err, "not registered")
}

func TestManager_Close_DisposesSingletonsOnce(t *testing.T) {
	var closed atomic.Int32
	component := &domain.Component{
		Name:     "pool",
		Lifetime: domain.LifetimeSingleton,
		New: func([]any) (any, error) {
			return &closer{closed: &closed}, nil
		},
	}
	g := newGraph(t, &domain.Entrypoint{Name: "borrow", Owner: component})

	m, err := lifecycle.NewManager(g, nil)
	require.NoError(t, err)

	scope, err := m.NewScope()
	require.NoError(t, err)
	_, err = scope.Instance(0)
	require.NoError(t, err)
	require.NoError(t, scope.Close())
	assert.Equal(t, int32(0), closed.Load(), "runs never dispose singletons")

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, int32(1), closed.Load())
}
