package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_CapturesInOrder(t *testing.T) {
	rec := &Recorder{}
	rec.Emit(PhaseChanged{Workflow: "backup", Phase: "STARTED"})
	rec.Emit(SnapshotDeleted{Snapshot: "a"})
	rec.Emit(PhaseChanged{Workflow: "backup", Phase: "SUCCEEDED"})

	all := rec.Events()
	require.Len(t, all, 3)
	assert.Equal(t, "phase_changed", all[0].Kind())
	assert.Equal(t, "snapshot_deleted", all[1].Kind())

	phases := rec.OfKind("phase_changed")
	require.Len(t, phases, 2)
	assert.Equal(t, "STARTED", phases[0].(PhaseChanged).Phase)
	assert.Equal(t, "SUCCEEDED", phases[1].(PhaseChanged).Phase)
}

func TestRecorder_ConcurrentEmit(t *testing.T) {
	rec := &Recorder{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Emit(SnapshotDeleted{Snapshot: "x"})
		}()
	}
	wg.Wait()
	assert.Len(t, rec.Events(), 50)
}

func TestTee_ForwardsToEverySink(t *testing.T) {
	a := &Recorder{}
	b := &Recorder{}
	sink := Tee{a, b}

	sink.Emit(RotationFailed{})
	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}

func TestZapSink_NilLoggerIsSafe(t *testing.T) {
	sink := NewZapSink(nil)
	assert.NotPanics(t, func() {
		sink.Emit(PhaseChanged{Workflow: "backup", Phase: "STARTED"})
		sink.Emit(SnapshotDeleted{Snapshot: "a"})
	})
}
