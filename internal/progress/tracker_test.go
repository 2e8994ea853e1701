package progress

import (
	"testing"
	"time"

	"github.com/hfauzan/audiotube/internal/logger"
)

func newTestTracker() *Tracker {
	return NewTracker(logger.Default(), Config{
		KeepAliveInterval: time.Hour,
		MaxLifetime:       time.Hour,
		Retention:         time.Hour,
	})
}

func TestUpdateUnknownToken(t *testing.T) {
	tr := newTestTracker()
	if tr.Update("nope", StageDownloading, 50, "msg") {
		t.Fatal("update of an unregistered token must report false")
	}
}

func TestPercentNeverMovesBackward(t *testing.T) {
	tr := newTestTracker()
	tr.Start("tok")

	tr.Update("tok", StageDownloading, 40, "mid")
	tr.Update("tok", StageDownloading, 25, "stray late update")

	snap, ok := tr.Snapshot("tok")
	if !ok {
		t.Fatal("snapshot missing")
	}
	if snap.Percent != 40 {
		t.Errorf("percent = %v, want 40", snap.Percent)
	}
}

func TestPercentClampedTo100(t *testing.T) {
	tr := newTestTracker()
	tr.Start("tok")

	tr.Update("tok", StageUploading, 150, "overshoot")

	snap, _ := tr.Snapshot("tok")
	if snap.Percent != 100 {
		t.Errorf("percent = %v, want 100", snap.Percent)
	}
}

func TestTerminalEntriesIgnoreUpdates(t *testing.T) {
	tr := newTestTracker()
	tr.Start("tok")
	tr.Complete("tok", "done")

	tr.Update("tok", StageFailed, -1, "late failure")

	snap, _ := tr.Snapshot("tok")
	if snap.Stage != StageCompleted {
		t.Errorf("stage = %s, want completed", snap.Stage)
	}
	if snap.Percent != 100 {
		t.Errorf("percent = %v, want 100", snap.Percent)
	}
}

func TestSubscribeReceivesEventsAndClosesOnTerminal(t *testing.T) {
	tr := newTestTracker()
	tr.Start("tok")

	ch, cancel := tr.Subscribe("tok")
	defer cancel()

	tr.Update("tok", StageDownloading, 20, "downloading")
	tr.Complete("tok", "done")

	var events []Event
	for ev := range ch {
		events = append(events, ev)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Stage != StageDownloading || events[1].Stage != StageCompleted {
		t.Errorf("unexpected event stages: %v, %v", events[0].Stage, events[1].Stage)
	}
}

func TestSubscribeUnknownTokenClosedChannel(t *testing.T) {
	tr := newTestTracker()

	ch, cancel := tr.Subscribe("nope")
	defer cancel()

	select {
	case _, open := <-ch:
		if open {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	tr := newTestTracker()
	tr.Start("tok")

	ch, cancel := tr.Subscribe("tok")
	cancel()

	tr.Update("tok", StageDownloading, 20, "downloading")

	if _, open := <-ch; open {
		t.Fatal("expected channel closed after cancel")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	tr := newTestTracker()
	tr.Start("tok")
	tr.Update("tok", StageDownloading, 30, "downloading")
	tr.Start("tok")

	snap, _ := tr.Snapshot("tok")
	if snap.Percent != 30 || snap.Stage != StageDownloading {
		t.Errorf("restart clobbered progress: %+v", snap)
	}
}

func TestMaxLifetimeForcesFailure(t *testing.T) {
	tr := NewTracker(logger.Default(), Config{
		KeepAliveInterval: 10 * time.Millisecond,
		MaxLifetime:       20 * time.Millisecond,
		Retention:         time.Hour,
	})
	tr.Start("tok")

	deadline := time.After(2 * time.Second)
	for {
		snap, ok := tr.Snapshot("tok")
		if ok && snap.Stage == StageFailed {
			return
		}
		select {
		case <-deadline:
			t.Fatal("entry never force-failed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
