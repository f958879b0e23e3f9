package supervisor

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/Rover/internal/diagnostic"
	"github.com/turtacn/Rover/internal/hardware"
	"github.com/turtacn/Rover/internal/mission"
	"github.com/turtacn/Rover/pkg/consts"
	"github.com/turtacn/Rover/pkg/errors"
	"github.com/turtacn/Rover/pkg/fsm"
	"github.com/turtacn/Rover/pkg/logger"
)

// DiagnosticFactory constructs the bring-up runner around the hardware handle.
type DiagnosticFactory func(rover *hardware.Rover) Unit

type options struct {
	diagnostic  DiagnosticFactory
	missions    map[consts.MissionKind]mission.Factory
	reporter    Reporter
	preemptPoll time.Duration
}

// Option customizes supervisor construction.
type Option func(*options)

func WithDiagnostic(f DiagnosticFactory) Option {
	return func(o *options) { o.diagnostic = f }
}

// WithMissions replaces the mission factories. The default is the full
// mission set.
func WithMissions(factories map[consts.MissionKind]mission.Factory) Option {
	return func(o *options) { o.missions = factories }
}

func WithReporter(r Reporter) Option {
	return func(o *options) { o.reporter = r }
}

// WithPreemptPoll sets how often status is re-read while a unit runs.
// Zero or negative disables the watcher.
func WithPreemptPoll(d time.Duration) Option {
	return func(o *options) { o.preemptPoll = d }
}

// Supervisor decides which unit owns the rover and runs it. It owns the
// hardware handle, the diagnostic runner and one program per mission kind
// for its whole lifetime.
type Supervisor struct {
	rover       *hardware.Rover
	diagnostic  Unit
	registry    *mission.Registry
	reporter    Reporter
	preemptPoll time.Duration
	fsm         *fsm.StateMachine

	// dispatchMu serializes cycles; only one unit may hold the rover.
	dispatchMu sync.Mutex

	mu            sync.Mutex
	active        *Decision
	cancel        context.CancelFunc
	preemptReason string
	held          string
	// last is the signature of the previous idle or held cycle.
	last string
}

// New builds the supervisor: first the diagnostic runner, then every
// mission program, all sharing rover. A missing handle or a failing
// factory is a construction error and nothing is returned.
func New(rover *hardware.Rover, opts ...Option) (*Supervisor, error) {
	if rover == nil {
		return nil, errors.New(errors.ErrCodeConstruction, "NewSupervisor", "hardware handle unavailable", nil)
	}

	o := options{
		diagnostic: func(r *hardware.Rover) Unit { return diagnostic.New(r) },
		missions:   mission.DefaultFactories(),
		reporter:   nopReporter{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.reporter == nil {
		o.reporter = nopReporter{}
	}

	diag := o.diagnostic(rover)
	if diag == nil {
		return nil, errors.New(errors.ErrCodeConstruction, "NewSupervisor", "diagnostic runner unavailable", nil)
	}

	registry, err := mission.NewRegistry(rover, o.missions)
	if err != nil {
		return nil, errors.New(errors.ErrCodeConstruction, "NewSupervisor", "mission registry", err)
	}

	s := &Supervisor{
		rover:       rover,
		diagnostic:  diag,
		registry:    registry,
		reporter:    o.reporter,
		preemptPoll: o.preemptPoll,
		fsm:         fsm.New(fsm.State(consts.StateIdle)),
	}
	s.setupFSM()

	logger.Log.Info("Supervisor: Constructed", "rover", rover.ID(), "missions", registry.Kinds())
	return s, nil
}

func (s *Supervisor) setupFSM() {
	idle := fsm.State(consts.StateIdle)
	diag := fsm.State(consts.StateRunningDiagnostic)
	running := fsm.State(consts.StateRunningMission)

	s.fsm.AddTransition(idle, diag, consts.EventDispatchDiagnostic, nil)
	s.fsm.AddTransition(idle, running, consts.EventDispatchMission, nil)
	s.fsm.AddTransition(diag, idle, consts.EventComplete, nil)
	s.fsm.AddTransition(running, idle, consts.EventComplete, nil)

	s.fsm.Observe(func(from, to fsm.State, event fsm.Event) {
		logger.Log.Debug("Supervisor: Transition", "from", from, "to", to, "event", event)
	})
}

// State returns the current lifecycle state.
func (s *Supervisor) State() consts.SupervisorState {
	return consts.SupervisorState(s.fsm.Current())
}

// OnTransition registers fn for every state change.
func (s *Supervisor) OnTransition(fn func(from, to consts.SupervisorState)) {
	s.fsm.Observe(func(from, to fsm.State, _ fsm.Event) {
		fn(consts.SupervisorState(from), consts.SupervisorState(to))
	})
}

// Registry exposes the immutable mission registry.
func (s *Supervisor) Registry() *mission.Registry { return s.registry }

func (s *Supervisor) Rover() *hardware.Rover { return s.rover }

// Active returns the decision currently running, if any.
func (s *Supervisor) Active() (Decision, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return Decision{}, false
	}
	return *s.active, true
}

// Decide reads the hardware status and resolves it to one decision.
// Diagnostic mode wins over any mission and the mission is not even read.
// Nothing is cached; every call polls the source.
func (s *Supervisor) Decide(ctx context.Context) Decision {
	mode, err := s.rover.OperatingMode(ctx)
	if err != nil {
		return idle("", "", "operating mode unavailable", statusErr("ReadOperatingMode", err))
	}

	switch mode {
	case consts.ModeDiagnostic:
		return Decision{
			Kind:   DecisionDiagnostic,
			Mode:   mode,
			Unit:   s.diagnostic,
			Reason: "diagnostic mode overrides mission selection",
		}
	case consts.ModeNormal:
	default:
		return idle(mode, "", "unrecognized operating mode",
			errors.New(errors.ErrCodeStatusUnavailable, "ReadOperatingMode", fmt.Sprintf("unrecognized operating mode %q", mode), nil))
	}

	kind, err := s.rover.CommandedMission(ctx)
	if err != nil {
		return idle(mode, "", "commanded mission unavailable", statusErr("ReadCommandedMission", err))
	}
	if kind == consts.MissionNone {
		return idle(mode, kind, "no mission commanded", nil)
	}

	program, ok := s.registry.Lookup(kind)
	if !ok {
		return idle(mode, kind, "unknown mission kind",
			errors.New(errors.ErrCodeUnknownMission, "Decide", fmt.Sprintf("no program registered for mission %q", kind), nil))
	}

	return Decision{
		Kind:    DecisionMission,
		Mode:    mode,
		Mission: kind,
		Unit:    program,
		Reason:  "commanded mission",
	}
}

func statusErr(op string, err error) error {
	if errors.IsCode(err, errors.ErrCodeStatusUnavailable) {
		return err
	}
	return errors.New(errors.ErrCodeStatusUnavailable, op, "status source read failed", err)
}

// RunCycle decides and runs at most one unit, blocking until it finishes or
// is preempted. Unit failures are reported and absorbed; the supervisor is
// always idle when RunCycle returns.
func (s *Supervisor) RunCycle(ctx context.Context) CycleReport {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	report := CycleReport{ID: uuid.NewString(), StartedAt: time.Now()}
	d := s.Decide(ctx)
	report.Decision = d
	report.Err = d.Err

	held := s.updateLatch(d)

	switch {
	case d.Kind == DecisionIdle:
		report.Outcome = consts.OutcomeIdle
	case held:
		report.Outcome = consts.OutcomeHeld
	default:
		report.Outcome, report.Err = s.dispatch(ctx, d)
	}
	report.Repeat = s.repeats(report)

	if !report.Repeat {
		switch {
		case report.Outcome == consts.OutcomeHeld:
			logger.Log.Info("Supervisor: Holding failed unit until selection changes", "unit", d.UnitName())
		case d.Err != nil:
			logger.Log.Warn("Supervisor: Idle", "reason", d.Reason, "err", d.Err)
		}
	}

	if !s.fsm.Is(fsm.State(consts.StateIdle)) {
		logger.Log.Error("Supervisor: Cycle ended outside idle", "state", s.fsm.Current())
	}
	report.FinishedAt = time.Now()
	s.reporter.Report(ctx, report)
	return report
}

// repeats reports whether r is an idle or held cycle with the same
// selection, outcome and error code as the one before it. Dispatched
// cycles always break the run.
func (s *Supervisor) repeats(r CycleReport) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Outcome != consts.OutcomeIdle && r.Outcome != consts.OutcomeHeld {
		s.last = ""
		return false
	}
	sig := fmt.Sprintf("%s|%s|%s|%s|%d", r.Decision.Key(), r.Decision.Mode, r.Decision.Mission, r.Outcome, errors.CodeOf(r.Err))
	if sig == s.last {
		return true
	}
	s.last = sig
	return false
}

// updateLatch releases a held failure once a different selection has been
// read successfully, and reports whether d is still held.
func (s *Supervisor) updateLatch(d Decision) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held == "" {
		return false
	}
	key := d.Key()
	if key == s.held {
		return true
	}
	if errors.IsCode(d.Err, errors.ErrCodeStatusUnavailable) {
		return false
	}
	logger.Log.Info("Supervisor: Selection changed, releasing held unit", "held", s.held, "now", key)
	s.held = ""
	return false
}

func (s *Supervisor) dispatch(ctx context.Context, d Decision) (string, error) {
	event := consts.EventDispatchMission
	if d.Kind == DecisionDiagnostic {
		event = consts.EventDispatchDiagnostic
	}
	if !s.fsm.Can(fsm.Event(event)) {
		return consts.OutcomeFailed, errors.New(errors.ErrCodeDispatchAmbiguity, "Dispatch",
			fmt.Sprintf("cannot dispatch %s while %s", d.UnitName(), s.fsm.Current()), nil)
	}
	if err := s.fsm.Fire(fsm.Event(event)); err != nil {
		return consts.OutcomeFailed, errors.New(errors.ErrCodeDispatchAmbiguity, "Dispatch", "supervisor not idle", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.active = &d
	s.cancel = cancel
	s.preemptReason = ""
	s.mu.Unlock()

	log := logger.Log.With("unit", d.UnitName())
	log.Info("Supervisor: Dispatching", "reason", d.Reason)

	var wg sync.WaitGroup
	if s.preemptPoll > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.watch(runCtx, d.Key())
		}()
	}

	started := time.Now()
	err := runUnit(runCtx, d.Unit)
	cancel()
	wg.Wait()

	s.mu.Lock()
	reason := s.preemptReason
	s.active = nil
	s.cancel = nil
	s.mu.Unlock()

	if ferr := s.fsm.Fire(fsm.Event(consts.EventComplete)); ferr != nil {
		log.Error("Supervisor: State machine rejected completion", "err", ferr)
	}

	switch {
	case err == nil:
		log.Info("Supervisor: Unit completed", "elapsed", time.Since(started))
		return consts.OutcomeCompleted, nil
	case stderrors.Is(err, context.Canceled) && (reason != "" || ctx.Err() != nil):
		if reason == "" {
			reason = "supervisor shutting down"
		}
		log.Info("Supervisor: Unit preempted", "reason", reason, "elapsed", time.Since(started))
		return consts.OutcomePreempted, errors.New(errors.ErrCodePreempted, "RunUnit", reason, err)
	default:
		s.mu.Lock()
		s.held = d.Key()
		s.mu.Unlock()
		log.Error("Supervisor: Unit failed, returning to idle", "err", err)
		return consts.OutcomeFailed, errors.New(errors.ErrCodeMissionRuntime, "RunUnit", d.UnitName()+" failed", err)
	}
}

// watch re-reads the status while a unit runs and cancels it as soon as
// the selection changes. Unreadable status keeps the unit running.
func (s *Supervisor) watch(ctx context.Context, key string) {
	ticker := time.NewTicker(s.preemptPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d := s.Decide(ctx)
		if d.Key() == key || errors.IsCode(d.Err, errors.ErrCodeStatusUnavailable) {
			continue
		}
		s.preempt(fmt.Sprintf("selection changed to %s", d.Key()))
		return
	}
}

// Preempt asks the running unit to stop. It reports whether a unit was running.
func (s *Supervisor) Preempt() bool {
	return s.preempt("operator abort")
}

func (s *Supervisor) preempt(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	if s.preemptReason == "" {
		s.preemptReason = reason
	}
	logger.Log.Warn("Supervisor: Preempting", "reason", reason)
	s.cancel()
	return true
}

// Run drives RunCycle once per tick until ctx ends.
func (s *Supervisor) Run(ctx context.Context, tick time.Duration) error {
	if tick <= 0 {
		tick = consts.DefaultTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	logger.Log.Info("Supervisor: Control loop started", "tick", tick)
	for {
		s.RunCycle(ctx)
		select {
		case <-ctx.Done():
			logger.Log.Info("Supervisor: Control loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// runUnit converts a panic inside a unit into an error.
func runUnit(ctx context.Context, u Unit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return u.Run(ctx)
}

// Personal.AI order the ending
