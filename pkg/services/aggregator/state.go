package aggregator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type state string

const (
	stateIdle                 state = "idle"
	stateResolvingCredentials state = "resolving_credentials"
	stateShortCircuit         state = "short_circuit"
	stateFetching             state = "fetching"
	stateAggregating          state = "aggregating"
	stateEvaluatingAlerts     state = "evaluating_alerts"
	statePersisting           state = "persisting"
	stateDone                 state = "done"
)

type runState struct {
	id        uuid.UUID
	startedAt time.Time
	current   state
}

func (r *runState) transition(ctx context.Context, next state) {
	zerolog.Ctx(ctx).Debug().
		Str("from", string(r.current)).
		Str("to", string(next)).
		Msg("run state changed")
	r.current = next
}
