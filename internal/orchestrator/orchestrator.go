// Package orchestrator sequences one devnet bootstrap: seed and launch the
// validator, poll it to readiness, extract the trusted state, bootstrap
// the bridge store, and start the bridge under a bounded retry policy.
// The validator is the primary workload; a bridge that never comes up
// degrades the run instead of failing it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nodeward/devnetup/internal/bridge"
	"github.com/nodeward/devnetup/internal/chain"
	"github.com/nodeward/devnetup/internal/config"
	"github.com/nodeward/devnetup/internal/env"
	"github.com/nodeward/devnetup/internal/genesis"
	"github.com/nodeward/devnetup/internal/metrics"
	"github.com/nodeward/devnetup/internal/process"
	"github.com/nodeward/devnetup/internal/readiness"
	"github.com/nodeward/devnetup/internal/store"
)

const stopGrace = 10 * time.Second

// child is the slice of process.Process the retry loop needs. Tests swap
// in stubs so attempt classification is checked without real processes.
type child interface {
	Alive() bool
	Wait() error
	Stop(wait time.Duration) error
	Snapshot() process.Status
}

// Snapshot is the externally visible state of one run. It is a copy; the
// caller may hold it across mutations.
type Snapshot struct {
	Phase     string              `json:"phase"`
	Degraded  bool                `json:"degraded"`
	Trusted   chain.TrustedState  `json:"trusted"`
	Validator *process.Status     `json:"validator,omitempty"`
	Bridge    *process.Status     `json:"bridge,omitempty"`
	Attempts  []Attempt           `json:"attempts,omitempty"`
	StartedAt time.Time           `json:"started_at"`
	Endpoints map[string]string   `json:"endpoints"`
}

// Orchestrator owns the run's children and its phase machine. One
// Orchestrator drives one run; it is not reusable.
type Orchestrator struct {
	cfg     config.Config
	logger  *slog.Logger
	poller  *readiness.Poller
	chain   *chain.Client
	genesis *genesis.Runner
	boot    *bridge.Bootstrapper
	env     *env.Env
	events  store.Store

	// injection points for the bridge phase
	bootstrap    func(ctx context.Context, ts chain.TrustedState) error
	launchBridge func() (child, error)
	probeBridge  func(ctx context.Context) error

	mu        sync.Mutex
	phase     string
	degraded  bool
	trusted   chain.TrustedState
	validator child
	bridgeRun child
	attempts  []Attempt
	startedAt time.Time
}

func New(cfg config.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		cfg:     cfg,
		logger:  logger,
		poller:  readiness.NewPoller(logger),
		chain:   chain.NewClient(cfg.Chain.RPCURL(), cfg.Readiness.RequestTimeout, logger),
		genesis: genesis.NewRunner(cfg.Chain, logger),
		boot:    bridge.NewBootstrapper(cfg.Bridge, logger),
		env:     env.New(),
		phase:   store.PhaseGenesis,
	}
	for k, v := range cfg.Env {
		o.env.Set(k, v)
	}
	o.bootstrap = o.boot.Bootstrap
	o.launchBridge = o.defaultLaunchBridge
	o.probeBridge = o.defaultProbeBridge
	return o
}

// SetEventStore attaches an audit store. Recording is best effort; a
// failing store never interrupts the run.
func (o *Orchestrator) SetEventStore(s store.Store) { o.events = s }

// Run executes the bootstrap sequence. It returns once the devnet is
// serving (possibly degraded); use Wait to block on the children.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	o.startedAt = time.Now()
	o.mu.Unlock()

	o.setPhase(store.PhaseGenesis)
	if err := o.genesis.Ensure(ctx); err != nil {
		o.recordEvent(ctx, store.PhaseGenesis, "ensure", err.Error(), 0, false)
		return fmt.Errorf("genesis: %w", err)
	}
	o.recordEvent(ctx, store.PhaseGenesis, "ensure", "chain home ready", 0, true)

	o.setPhase(store.PhaseValidator)
	if err := o.startValidator(); err != nil {
		o.recordEvent(ctx, store.PhaseValidator, "start", err.Error(), 0, false)
		return err
	}
	o.recordEvent(ctx, store.PhaseValidator, "start", "validator launched", 0, true)

	o.setPhase(store.PhaseReadiness)
	if err := o.awaitValidator(ctx); err != nil {
		o.recordEvent(ctx, store.PhaseReadiness, "poll", err.Error(), o.cfg.Readiness.MaxAttempts, false)
		o.stopChildren()
		return err
	}
	o.recordEvent(ctx, store.PhaseReadiness, "poll", "height > 0", 0, true)

	o.setPhase(store.PhaseTrustedHash)
	ts, err := o.chain.TrustedState(ctx)
	if err != nil {
		o.recordEvent(ctx, store.PhaseTrustedHash, "extract", err.Error(), 0, false)
		o.stopChildren()
		return err
	}
	o.mu.Lock()
	o.trusted = ts
	o.mu.Unlock()
	o.recordEvent(ctx, store.PhaseTrustedHash, "extract", fmt.Sprintf("height=%d hash=%s", ts.Height, ts.Hash), 0, true)

	if o.cfg.Bridge.Enabled {
		if err := o.bringUpBridge(ctx, ts); err != nil {
			o.stopChildren()
			return err
		}
		if o.isDegraded() {
			return nil
		}
	}

	o.setPhase(store.PhaseReady)
	o.logger.Info("devnet up", "validator", o.cfg.Chain.RPCURL(), "bridge", o.cfg.Bridge.RPCURL())
	return nil
}

// bringUpBridge bootstraps the bridge store and starts the process. A
// bootstrap or verification failure is fatal to the whole run; only an
// exhausted start budget downgrades it.
func (o *Orchestrator) bringUpBridge(ctx context.Context, ts chain.TrustedState) error {
	o.setPhase(store.PhaseBootstrap)
	if err := o.bootstrap(ctx, ts); err != nil {
		o.recordEvent(ctx, store.PhaseBootstrap, "bootstrap", err.Error(), 0, false)
		return fmt.Errorf("bridge bootstrap: %w", err)
	}
	o.recordEvent(ctx, store.PhaseBootstrap, "bootstrap", "trusted state injected", 0, true)

	o.setPhase(store.PhaseBridge)
	if err := o.startBridge(ctx); err != nil {
		if errors.Is(err, ErrExhausted) {
			o.degrade("bridge start attempts exhausted", err)
			o.recordEvent(ctx, store.PhaseDegraded, "degrade", err.Error(), 0, false)
			return nil
		}
		return err
	}
	return nil
}

func (o *Orchestrator) isDegraded() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.degraded
}

func (o *Orchestrator) startValidator() error {
	v := process.New(process.Spec{
		Name:    "validator",
		Command: o.cfg.Chain.StartCommand(),
		Env:     o.env.Merge(o.cfg.Chain.Env),
		Log:     o.cfg.Log.ProcessLog(),
	})
	if err := v.Start(); err != nil {
		return fmt.Errorf("validator: %w", err)
	}
	metrics.IncProcessStart("validator")
	o.mu.Lock()
	o.validator = v
	o.mu.Unlock()
	return nil
}

// awaitValidator polls the status endpoint until the chain reports a
// positive block height. A reachable RPC at height zero is still booting.
func (o *Orchestrator) awaitValidator(ctx context.Context) error {
	q := readiness.Query{
		URL:            o.chain.StatusURL(),
		Ready:          chain.HeightReady,
		Interval:       o.cfg.Readiness.Interval,
		MaxAttempts:    o.cfg.Readiness.MaxAttempts,
		RequestTimeout: o.cfg.Readiness.RequestTimeout,
		OnAttempt:      func(int) { metrics.IncPollAttempt("validator") },
	}
	err := o.poller.PollUntilReady(ctx, q)
	if err != nil {
		metrics.IncPollOutcome("validator", "timeout")
		return fmt.Errorf("validator readiness: %w", err)
	}
	metrics.IncPollOutcome("validator", "ready")
	return nil
}

// startBridge launches the bridge under the configured attempt budget.
// Every attempt checks the process first and the service second, so the
// two failure modes stay distinguishable in the log and the event store.
func (o *Orchestrator) startBridge(ctx context.Context) error {
	max := o.cfg.Readiness.StartRetries
	for attempt := 1; ; attempt++ {
		began := time.Now()
		outcome, err := o.tryStartBridge(ctx)
		if err != nil {
			return err
		}

		a := Attempt{Index: attempt, Outcome: outcome, Elapsed: time.Since(began)}
		o.mu.Lock()
		o.attempts = append(o.attempts, a)
		o.mu.Unlock()
		metrics.IncStartAttempt(string(outcome))
		o.recordEvent(ctx, store.PhaseBridge, "start", string(outcome), attempt, outcome == OutcomeReady)

		if outcome == OutcomeReady {
			o.logger.Info("bridge ready", "attempt", attempt)
			return nil
		}
		o.logger.Warn("bridge start attempt failed", "attempt", attempt, "max", max, "outcome", outcome)
		o.reapBridge()
		if !retryAgain(outcome, attempt, max) {
			if outcome == OutcomeProcessExited {
				return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, max, ErrProcessExited)
			}
			return fmt.Errorf("%w: %d attempts, last outcome %s", ErrExhausted, max, outcome)
		}
		if err := sleep(ctx, o.cfg.Readiness.RetryBackoff); err != nil {
			return err
		}
	}
}

// tryStartBridge performs one launch plus its dual liveness checks. A
// non-nil error only means the context was canceled.
func (o *Orchestrator) tryStartBridge(ctx context.Context) (Outcome, error) {
	c, err := o.launchBridge()
	if err != nil {
		o.logger.Warn("bridge launch failed", "error", err)
		return OutcomeProcessExited, nil
	}
	o.mu.Lock()
	o.bridgeRun = c
	o.mu.Unlock()

	if err := sleep(ctx, o.cfg.Readiness.GraceDelay); err != nil {
		return "", err
	}
	if !c.Alive() {
		return OutcomeProcessExited, nil
	}
	if err := o.probeBridge(ctx); err == nil {
		return OutcomeReady, nil
	}
	// One extended-grace recheck before declaring the service unready; a
	// live process may still be opening its RPC listener.
	if err := sleep(ctx, o.cfg.Readiness.ExtendedGrace); err != nil {
		return "", err
	}
	if !c.Alive() {
		return OutcomeProcessExited, nil
	}
	if err := o.probeBridge(ctx); err != nil {
		o.logger.Debug("bridge probe failed", "error", err)
		return OutcomeServiceUnready, nil
	}
	return OutcomeReady, nil
}

func (o *Orchestrator) defaultLaunchBridge() (child, error) {
	b := process.New(process.Spec{
		Name:    "bridge",
		Command: o.cfg.Bridge.StartCommand(),
		Env:     o.env.Merge(o.cfg.Bridge.Env),
		Log:     o.cfg.Log.ProcessLog(),
	})
	if err := b.Start(); err != nil {
		return nil, err
	}
	metrics.IncProcessStart("bridge")
	return b, nil
}

// defaultProbeBridge is the service-level readiness check: fetch an admin
// token from the bridge CLI and call its RPC. Process-alive alone is not
// proof of a working node.
func (o *Orchestrator) defaultProbeBridge(ctx context.Context) error {
	token, err := o.boot.AuthToken(ctx)
	if err != nil {
		return err
	}
	rc := bridge.NewRPCClient(o.cfg.Bridge.RPCURL(), token, o.cfg.Readiness.RequestTimeout)
	return rc.Probe(ctx)
}

// reapBridge stops and forgets a failed bridge run so the next attempt
// starts from a clean slate.
func (o *Orchestrator) reapBridge() {
	o.mu.Lock()
	c := o.bridgeRun
	o.bridgeRun = nil
	o.mu.Unlock()
	if c == nil {
		return
	}
	_ = c.Stop(stopGrace)
	metrics.IncProcessStop("bridge")
}

// degrade marks the run degraded-but-functional: the validator keeps
// serving and the bridge is abandoned.
func (o *Orchestrator) degrade(reason string, err error) {
	o.logger.Error("continuing without bridge", "reason", reason, "error", err)
	o.mu.Lock()
	o.degraded = true
	o.mu.Unlock()
	o.reapBridge()
	o.setPhase(store.PhaseDegraded)
}

// Wait blocks until every running child has exited and returns the
// validator's exit error. Container entrypoints call this after Run.
func (o *Orchestrator) Wait() error {
	o.mu.Lock()
	v, b := o.validator, o.bridgeRun
	o.mu.Unlock()
	var wg sync.WaitGroup
	if b != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Wait()
		}()
	}
	var err error
	if v != nil {
		err = v.Wait()
	}
	wg.Wait()
	if errors.Is(err, process.ErrNotStarted) {
		return nil
	}
	return err
}

// Shutdown stops the bridge first and the validator last, mirroring the
// startup order in reverse.
func (o *Orchestrator) Shutdown() {
	o.reapBridge()
	o.mu.Lock()
	v := o.validator
	o.mu.Unlock()
	if v != nil {
		_ = v.Stop(stopGrace)
		metrics.IncProcessStop("validator")
	}
}

func (o *Orchestrator) stopChildren() { o.Shutdown() }

// Status returns a copy of the run state for the HTTP surface.
func (o *Orchestrator) Status() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := Snapshot{
		Phase:     o.phase,
		Degraded:  o.degraded,
		Trusted:   o.trusted,
		Attempts:  append([]Attempt(nil), o.attempts...),
		StartedAt: o.startedAt,
		Endpoints: map[string]string{
			"validator_rpc": o.cfg.Chain.RPCURL(),
		},
	}
	if o.cfg.Bridge.Enabled && !o.degraded {
		s.Endpoints["bridge_rpc"] = o.cfg.Bridge.RPCURL()
	}
	if o.validator != nil {
		st := o.validator.Snapshot()
		s.Validator = &st
	}
	if o.bridgeRun != nil {
		st := o.bridgeRun.Snapshot()
		s.Bridge = &st
	}
	return s
}

func (o *Orchestrator) setPhase(phase string) {
	o.mu.Lock()
	o.phase = phase
	o.mu.Unlock()
	metrics.SetPhase(phase)
	o.logger.Info("phase", "phase", phase)
}

func (o *Orchestrator) recordEvent(ctx context.Context, phase, name, detail string, attempt int, ok bool) {
	if o.events == nil {
		return
	}
	e := store.Event{Phase: phase, Name: name, Detail: detail, Attempt: attempt, OK: ok}
	if err := o.events.RecordEvent(ctx, e); err != nil {
		o.logger.Debug("event record failed", "phase", phase, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
