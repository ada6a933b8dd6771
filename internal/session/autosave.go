package session

import (
	"sync"
	"time"
)

// DefaultAutosaveDebounce is the quiet period before a recovery save.
const DefaultAutosaveDebounce = 2 * time.Second

// Autosaver debounces recovery saves: every Schedule restarts the window and
// save runs once the window passes without another Schedule.
type Autosaver struct {
	delay time.Duration
	save  func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
	wg      sync.WaitGroup
}

func NewAutosaver(delay time.Duration, save func()) *Autosaver {
	return &Autosaver{delay: delay, save: save}
}

// Schedule (re)starts the debounce window. It is a no-op after Stop.
func (a *Autosaver) Schedule() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.cancelLocked()
	a.wg.Add(1)
	a.gen++
	gen := a.gen
	a.timer = time.AfterFunc(a.delay, func() { a.fire(gen) })
}

// Pending reports whether a save is scheduled and has not started.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}

// Flush runs a pending save immediately on the calling goroutine and reports
// whether one was pending.
func (a *Autosaver) Flush() bool {
	a.mu.Lock()
	if a.timer == nil || !a.timer.Stop() {
		a.mu.Unlock()
		return false
	}
	a.timer = nil
	a.mu.Unlock()

	defer a.wg.Done()
	a.save()
	return true
}

// Stop cancels a pending save and disables further scheduling. A save that
// already started is not interrupted; use Wait to block until it returns.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	a.cancelLocked()
}

// Wait blocks until no save is running or pending.
func (a *Autosaver) Wait() {
	a.wg.Wait()
}

func (a *Autosaver) cancelLocked() {
	if a.timer != nil && a.timer.Stop() {
		a.wg.Done()
	}
	a.timer = nil
}

func (a *Autosaver) fire(gen uint64) {
	defer a.wg.Done()
	a.mu.Lock()
	if a.gen == gen {
		a.timer = nil
	}
	stopped := a.stopped
	a.mu.Unlock()
	if stopped {
		return
	}
	a.save()
}
