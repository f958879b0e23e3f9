package monitor

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/Rover/internal/supervisor"
	"github.com/turtacn/Rover/pkg/consts"
	rerrors "github.com/turtacn/Rover/pkg/errors"
	"github.com/turtacn/Rover/pkg/logger"
)

var (
	// CyclesTotal counts supervisor cycles, partitioned by decision kind.
	CyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rover_supervisor_cycles_total",
		Help: "Total number of supervisor decision cycles",
	}, []string{"decision"})
	// UnitRunsTotal counts dispatched units by unit name and outcome.
	UnitRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rover_unit_runs_total",
		Help: "Total number of unit runs by outcome",
	}, []string{"unit", "outcome"})
	// RunDuration tracks how long dispatched units held the rover.
	RunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rover_unit_run_duration_seconds",
		Help:    "Time a dispatched unit held the rover",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"unit"})
	// SupervisorState is 1 for the current state and 0 for the others.
	SupervisorState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rover_supervisor_state",
		Help: "Current supervisor state",
	}, []string{"state"})
	// UnknownMissionTotal counts cycles where the commanded mission had no program.
	UnknownMissionTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rover_unknown_mission_total",
		Help: "Cycles that idled on an unregistered mission kind",
	})
	// StatusErrorsTotal counts cycles where the hardware status could not be read.
	StatusErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rover_status_errors_total",
		Help: "Cycles that idled because hardware status was unavailable",
	})
)

var registerOnce sync.Once

// Register adds the rover collectors to the default registry. Safe to call repeatedly.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(CyclesTotal, UnitRunsTotal, RunDuration, SupervisorState, UnknownMissionTotal, StatusErrorsTotal)
		SetState(consts.StateIdle)
	})
}

// InitMetrics registers the collectors and serves /metrics on addr until ctx ends.
func InitMetrics(ctx context.Context, addr string) error {
	Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Log.Info("Metrics server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Error("Metrics server failed", "err", err)
		return err
	}
	return nil
}

var states = []consts.SupervisorState{consts.StateIdle, consts.StateRunningDiagnostic, consts.StateRunningMission}

// SetState marks s as the current supervisor state.
func SetState(s consts.SupervisorState) {
	for _, st := range states {
		v := 0.0
		if st == s {
			v = 1
		}
		SupervisorState.WithLabelValues(string(st)).Set(v)
	}
}

// Reporter feeds cycle reports into the collectors.
type Reporter struct{}

func NewReporter() *Reporter {
	Register()
	return &Reporter{}
}

func (Reporter) Report(_ context.Context, r supervisor.CycleReport) {
	CyclesTotal.WithLabelValues(r.Decision.Kind.String()).Inc()

	switch {
	case rerrors.IsCode(r.Err, rerrors.ErrCodeUnknownMission):
		UnknownMissionTotal.Inc()
	case rerrors.IsCode(r.Err, rerrors.ErrCodeStatusUnavailable):
		StatusErrorsTotal.Inc()
	}

	unit := r.Decision.UnitName()
	if unit == "" {
		return
	}
	UnitRunsTotal.WithLabelValues(unit, r.Outcome).Inc()
	if r.Outcome != consts.OutcomeHeld {
		RunDuration.WithLabelValues(unit).Observe(r.Duration().Seconds())
	}
}

// Personal.AI order the ending
