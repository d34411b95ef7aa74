package observability_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowchain/pkg/domain"
	"github.com/aretw0/flowchain/pkg/observability"
)

func TestMetrics_Executions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()
	start := time.Now()

	step := func(id string, from, to domain.ExecutionState, at time.Duration, err error) {
		hooks.StateChange(ctx, &domain.ExecutionEvent{
			Timestamp: start.Add(at), ExecutionID: id, From: from, To: to, Err: err,
		})
	}

	step("a", "", domain.StateAssembling, 0, nil)
	step("b", "", domain.StateAssembling, 0, nil)
	step("a", domain.StateAssembling, domain.StateSigning, time.Second, nil)

	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP flowchain_executions_inflight Executions not yet in a final state.
# TYPE flowchain_executions_inflight gauge
flowchain_executions_inflight 2
`), "flowchain_executions_inflight"))

	step("a", domain.StateSigning, domain.StateFailed, 2*time.Second, &domain.InsufficientBalanceError{})
	step("b", domain.StateAssembling, domain.StateConfirmed, 3*time.Second, nil)

	expected := `
# HELP flowchain_execution_failures_total Failed executions by failure kind.
# TYPE flowchain_execution_failures_total counter
flowchain_execution_failures_total{kind="balance"} 1
# HELP flowchain_execution_transitions_total Execution state transitions by target state.
# TYPE flowchain_execution_transitions_total counter
flowchain_execution_transitions_total{state="assembling"} 2
flowchain_execution_transitions_total{state="confirmed"} 1
flowchain_execution_transitions_total{state="failed"} 1
flowchain_execution_transitions_total{state="signing"} 1
# HELP flowchain_executions_inflight Executions not yet in a final state.
# TYPE flowchain_executions_inflight gauge
flowchain_executions_inflight 0
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"flowchain_execution_failures_total",
		"flowchain_execution_transitions_total",
		"flowchain_executions_inflight",
	))

	count, err := testutil.GatherAndCount(reg, "flowchain_execution_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one histogram per final state")
}

func TestMetrics_Signatures(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()
	pk := solana.NewWallet().PublicKey()

	hooks.SignatureRequest(ctx, &domain.SignatureEvent{Pubkey: pk})
	hooks.SignatureRequest(ctx, &domain.SignatureEvent{Pubkey: pk})
	hooks.SignatureResponse(ctx, &domain.SignatureEvent{Pubkey: pk, Duration: time.Second})
	hooks.SignatureResponse(ctx, &domain.SignatureEvent{Pubkey: pk, Duration: time.Second, Err: errors.New("declined")})

	expected := `
# HELP flowchain_signature_requests_total Remote signature requests sent.
# TYPE flowchain_signature_requests_total counter
flowchain_signature_requests_total 2
# HELP flowchain_signature_responses_total Remote signature responses by outcome.
# TYPE flowchain_signature_responses_total counter
flowchain_signature_responses_total{outcome="failed"} 1
flowchain_signature_responses_total{outcome="signed"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"flowchain_signature_requests_total",
		"flowchain_signature_responses_total",
	))
}

func TestChain(t *testing.T) {
	var calls []string
	hook := func(name string) domain.LifecycleHooks {
		return domain.LifecycleHooks{
			OnStateChange: func(context.Context, *domain.ExecutionEvent) {
				calls = append(calls, name)
			},
		}
	}

	chained := observability.Chain(hook("first"), domain.LifecycleHooks{}, hook("second"))
	chained.StateChange(context.Background(), &domain.ExecutionEvent{To: domain.StateSigning})
	chained.SignatureRequest(context.Background(), &domain.SignatureEvent{})

	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestNewMetrics_Unregistered(t *testing.T) {
	m := observability.NewMetrics(nil)
	assert.NotPanics(t, func() {
		m.Hooks().StateChange(context.Background(), &domain.ExecutionEvent{ExecutionID: "x", To: domain.StateConfirmed})
	})
}
