package strategy

import (
	"log"
	"sync"

	"soltrader/internal/events"
)

const (
	defaultWorkers = 5
	inboxBuffer    = 64
	taskBuffer     = 256
)

type task struct {
	run   *running
	seq   uint64
	event any
}

// running is a registered strategy plus its dispatch plumbing. Each strategy
// owns an inbox fed by its bus subscriptions; the runner's shared worker
// pool drains the inboxes.
type running struct {
	strategy Strategy
	inbox    chan any

	mu         sync.Mutex
	seq        uint64
	unsubs     []func()
	forwarders sync.WaitGroup
	subscribed bool
}

// Runner registers strategies and dispatches their events through a
// fixed-size worker pool. Sequence numbers are assigned in order under a
// lock; completion order across workers is not guaranteed.
type Runner struct {
	bus     *events.Bus
	tasks   chan task
	done    chan struct{}
	stopped sync.Once
	workers sync.WaitGroup

	mu     sync.Mutex
	active map[string]*running
}

// NewRunner starts a runner with the given worker count (a non-positive
// count gets the default).
func NewRunner(bus *events.Bus, workers int) *Runner {
	if workers <= 0 {
		workers = defaultWorkers
	}
	r := &Runner{
		bus:    bus,
		tasks:  make(chan task, taskBuffer),
		done:   make(chan struct{}),
		active: make(map[string]*running),
	}
	for i := 0; i < workers; i++ {
		r.workers.Add(1)
		go r.worker()
	}
	return r
}

// Execute registers and starts a strategy, returning its id.
func (r *Runner) Execute(s Strategy) string {
	run := &running{strategy: s, inbox: make(chan any, inboxBuffer)}

	r.mu.Lock()
	r.active[s.ID()] = run
	r.mu.Unlock()

	go r.pump(run)
	r.subscribe(run)
	log.Printf("runner: strategy %s (%s) started", s.Name(), s.ID())
	return s.ID()
}

// Get returns a registered strategy, nil when unknown.
func (r *Runner) Get(id string) Strategy {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.active[id]; ok {
		return run.strategy
	}
	return nil
}

// List returns every registered strategy.
func (r *Runner) List() []Strategy {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Strategy, 0, len(r.active))
	for _, run := range r.active {
		out = append(out, run.strategy)
	}
	return out
}

// Toggle pauses a running strategy or resumes a stopped one without losing
// its registration. COMPLETE strategies stay complete.
func (r *Runner) Toggle(id string) {
	r.mu.Lock()
	run, ok := r.active[id]
	r.mu.Unlock()
	if !ok {
		return
	}
	switch run.strategy.State() {
	case StateRunning:
		r.unsubscribe(run)
	case StateOff:
		r.subscribe(run)
	}
}

// Delete stops and deregisters a strategy. Unknown ids are a no-op.
func (r *Runner) Delete(id string) {
	r.mu.Lock()
	run, ok := r.active[id]
	delete(r.active, id)
	r.mu.Unlock()
	if !ok {
		return
	}
	r.unsubscribe(run)
	close(run.inbox)
	log.Printf("runner: strategy %s (%s) deleted", run.strategy.Name(), id)
}

// Stop unsubscribes every strategy and shuts down the worker pool.
func (r *Runner) Stop() {
	r.stopped.Do(func() {
		r.mu.Lock()
		runs := make([]*running, 0, len(r.active))
		for _, run := range r.active {
			runs = append(runs, run)
		}
		r.active = make(map[string]*running)
		r.mu.Unlock()

		for _, run := range runs {
			r.unsubscribe(run)
			close(run.inbox)
		}
		// tasks is never closed: a pump may still be draining its inbox, so
		// workers exit on done instead.
		close(r.done)
		r.workers.Wait()
	})
}

// subscribe wires the strategy's topics into its inbox and moves it to
// RUNNING. Events that arrive faster than the inbox drains are dropped.
func (r *Runner) subscribe(run *running) {
	run.mu.Lock()
	defer run.mu.Unlock()
	if run.subscribed || run.strategy.State() == StateComplete {
		return
	}
	run.subscribed = true
	for _, topic := range run.strategy.Topics() {
		ch, unsub := r.bus.Subscribe(topic, inboxBuffer)
		run.unsubs = append(run.unsubs, unsub)
		run.forwarders.Add(1)
		go func(ch <-chan any) {
			defer run.forwarders.Done()
			for ev := range ch {
				select {
				case run.inbox <- ev:
				default:
					log.Printf("runner: inbox full, dropping event for %s", run.strategy.ID())
				}
			}
		}(ch)
	}
	run.strategy.SetState(StateRunning)
	r.publishState(run.strategy)
}

// unsubscribe detaches the strategy from the bus. An in-flight handler is
// not interrupted. The inbox stays open so a later subscribe can resume.
func (r *Runner) unsubscribe(run *running) {
	run.mu.Lock()
	if !run.subscribed {
		run.mu.Unlock()
		return
	}
	run.subscribed = false
	unsubs := run.unsubs
	run.unsubs = nil
	run.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	run.forwarders.Wait()

	run.strategy.SetState(StateOff)
	r.publishState(run.strategy)
}

// pump drains one strategy's inbox, assigning sequence numbers in arrival
// order and handing the work to the shared pool.
func (r *Runner) pump(run *running) {
	for ev := range run.inbox {
		if run.strategy.State() != StateRunning {
			continue
		}
		run.mu.Lock()
		seq := run.seq
		run.seq++
		run.mu.Unlock()

		select {
		case r.tasks <- task{run: run, seq: seq, event: ev}:
		case <-r.done:
			return
		}
	}
}

func (r *Runner) worker() {
	defer r.workers.Done()
	for {
		select {
		case <-r.done:
			return
		case t := <-r.tasks:
			r.dispatch(t)
			if t.run.strategy.State() == StateComplete {
				r.unsubscribe(t.run)
			}
		}
	}
}

// dispatch invokes the handler with panic containment: a fault takes down
// only this event, never the pool.
func (r *Runner) dispatch(t task) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("runner: strategy %s panicked on event %d: %v", t.run.strategy.ID(), t.seq, rec)
		}
	}()
	t.run.strategy.ProcessEvent(t.seq, t.event)
}

func (r *Runner) publishState(s Strategy) {
	r.bus.Publish(events.TopicStrategyState, events.StrategyStateChange{
		StrategyID: s.ID(),
		Name:       s.Name(),
		State:      s.State().String(),
	})
}
