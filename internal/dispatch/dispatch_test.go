package dispatch

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/verte-zerg/runtally/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDrainPreservesArrivalOrder(t *testing.T) {
	q := New(8, testLogger())
	q.Push(model.SourceGlobalHotkey, model.ActionToggleStartStop)
	q.Push(model.SourceController, model.ActionNextRun)
	q.Push(model.SourceLocalKey, model.ActionResetTimer)

	cmds := q.Drain()
	if len(cmds) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(cmds))
	}
	want := []model.Command{
		{Source: model.SourceGlobalHotkey, Action: model.ActionToggleStartStop},
		{Source: model.SourceController, Action: model.ActionNextRun},
		{Source: model.SourceLocalKey, Action: model.ActionResetTimer},
	}
	for i, cmd := range cmds {
		if cmd != want[i] {
			t.Fatalf("expected %+v at %d, got %+v", want[i], i, cmd)
		}
	}
}

func TestDrainOnEmptyQueueReturnsNothing(t *testing.T) {
	q := New(8, testLogger())
	if cmds := q.Drain(); len(cmds) != 0 {
		t.Fatalf("expected empty drain, got %v", cmds)
	}
}

func TestPushDropsWhenFull(t *testing.T) {
	q := New(2, testLogger())
	q.Push(model.SourceController, model.ActionNextRun)
	q.Push(model.SourceController, model.ActionNextRun)
	q.Push(model.SourceController, model.ActionNextRun)

	if cmds := q.Drain(); len(cmds) != 2 {
		t.Fatalf("expected overflow to drop, got %d commands", len(cmds))
	}
}

func TestEmitterTagsSource(t *testing.T) {
	q := New(8, testLogger())
	emit := q.Emitter(model.SourceController)
	emit(model.ActionUndoLast)

	cmds := q.Drain()
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	if cmds[0].Source != model.SourceController || cmds[0].Action != model.ActionUndoLast {
		t.Fatalf("unexpected command: %+v", cmds[0])
	}
}

func TestConcurrentPushes(t *testing.T) {
	const perSource = 100
	q := New(2*perSource, testLogger())

	var wg sync.WaitGroup
	for _, source := range []string{model.SourceGlobalHotkey, model.SourceController} {
		wg.Add(1)
		go func(tag string) {
			defer wg.Done()
			for i := 0; i < perSource; i++ {
				q.Push(tag, model.ActionToggleStartStop)
			}
		}(source)
	}
	wg.Wait()

	if cmds := q.Drain(); len(cmds) != 2*perSource {
		t.Fatalf("expected %d commands, got %d", 2*perSource, len(cmds))
	}
}
