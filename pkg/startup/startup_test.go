package startup

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDependency struct {
	name      string
	dependsOn []string
	startErr  error
	events    *[]string
}

func (d *fakeDependency) Name() string        { return d.name }
func (d *fakeDependency) DependsOn() []string { return d.dependsOn }

func (d *fakeDependency) Start(_ context.Context) error {
	if d.startErr != nil {
		return d.startErr
	}
	*d.events = append(*d.events, "start:"+d.name)
	return nil
}

func (d *fakeDependency) Stop(_ context.Context) error {
	*d.events = append(*d.events, "stop:"+d.name)
	return nil
}

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestManager_StartStop(t *testing.T) {
	t.Run("starts in dependency order and stops in reverse", func(t *testing.T) {
		var events []string
		mgr := NewManager(noopLogger(), 1)

		// api is registered before the database it depends on
		mgr.Add(&fakeDependency{name: "api", dependsOn: []string{"postgres"}, events: &events})
		mgr.Add(&fakeDependency{name: "postgres", events: &events})

		require.NoError(t, mgr.Start(context.Background()))
		assert.Equal(t, []string{"start:postgres", "start:api"}, events)

		events = events[:0]
		require.NoError(t, mgr.Stop(context.Background()))
		assert.Equal(t, []string{"stop:postgres", "stop:api"}, events)
	})

	t.Run("unregistered dependency name fails startup", func(t *testing.T) {
		var events []string
		mgr := NewManager(noopLogger(), 1)
		mgr.Add(&fakeDependency{name: "api", dependsOn: []string{"missing"}, events: &events})

		err := mgr.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing")
	})

	t.Run("duplicate registration keeps one slot", func(t *testing.T) {
		var events []string
		mgr := NewManager(noopLogger(), 1)
		mgr.Add(&fakeDependency{name: "postgres", events: &events})
		mgr.Add(&fakeDependency{name: "postgres", events: &events})

		require.NoError(t, mgr.Start(context.Background()))
		assert.Equal(t, []string{"start:postgres"}, events)
	})

	t.Run("failed start surfaces the last error", func(t *testing.T) {
		var events []string
		boom := errors.New("connection refused")
		mgr := NewManager(noopLogger(), 1)
		mgr.Add(&fakeDependency{name: "postgres", startErr: boom, events: &events})

		err := mgr.Start(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("stop skips dependencies that never started", func(t *testing.T) {
		var events []string
		mgr := NewManager(noopLogger(), 1)
		mgr.Add(&fakeDependency{name: "postgres", events: &events})
		mgr.Add(&fakeDependency{name: "api", startErr: errors.New("bind failed"), events: &events})

		require.Error(t, mgr.Start(context.Background()))

		events = events[:0]
		require.NoError(t, mgr.Stop(context.Background()))
		assert.Equal(t, []string{"stop:postgres"}, events)
	})
}
