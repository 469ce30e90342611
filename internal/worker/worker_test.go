package worker

import (
	"testing"
	"time"

	"github.com/shaiso/Conductor/internal/engine"
)

// Прогон планов покрыт тестами пакета engine; здесь — конфигурация
// и жизненный цикл самого воркера.

func TestNew_DefaultConfig(t *testing.T) {
	w := New(Config{})

	if w.pollInterval != defaultPollInterval {
		t.Errorf("expected default poll interval %v, got %v", defaultPollInterval, w.pollInterval)
	}
	if w.batchSize != defaultBatchSize {
		t.Errorf("expected default batch size %d, got %d", defaultBatchSize, w.batchSize)
	}
	if w.staleAfter != defaultStaleAfter {
		t.Errorf("expected default stale after %v, got %v", defaultStaleAfter, w.staleAfter)
	}
	if w.concurrency != defaultConcurrency {
		t.Errorf("expected default concurrency %d, got %d", defaultConcurrency, w.concurrency)
	}
	if w.executor == nil {
		t.Error("executor should be initialized")
	}
	if w.logger == nil {
		t.Error("logger should be initialized")
	}
}

func TestNew_CustomConfig(t *testing.T) {
	w := New(Config{
		PollInterval: 5 * time.Second,
		BatchSize:    25,
		StaleAfter:   10 * time.Second,
		Concurrency:  8,
	})

	if w.pollInterval != 5*time.Second {
		t.Errorf("expected poll interval 5s, got %v", w.pollInterval)
	}
	if w.batchSize != 25 {
		t.Errorf("expected batch size 25, got %d", w.batchSize)
	}
	if w.staleAfter != 10*time.Second {
		t.Errorf("expected stale after 10s, got %v", w.staleAfter)
	}
	if w.concurrency != 8 {
		t.Errorf("expected concurrency 8, got %d", w.concurrency)
	}
}

func TestNew_CustomExecutor(t *testing.T) {
	executor := engine.New(engine.Config{})

	w := New(Config{
		Executor: executor,
	})

	if w.executor != executor {
		t.Error("custom executor should be used as is")
	}
}

func TestWorker_IsStopped(t *testing.T) {
	w := New(Config{})

	if w.IsStopped() {
		t.Error("should not be stopped initially")
	}

	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	if !w.IsStopped() {
		t.Error("should be stopped")
	}
}

func TestWorker_StopBeforeStart(t *testing.T) {
	w := New(Config{})

	// Stop до Start не должен паниковать: consumer и cancelFunc ещё nil
	w.Stop()

	if !w.IsStopped() {
		t.Error("should be stopped after Stop")
	}
}
