package command_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowchain/pkg/bridge"
	"github.com/aretw0/flowchain/pkg/command"
	"github.com/aretw0/flowchain/pkg/domain"
	"github.com/aretw0/flowchain/pkg/execution"
	"github.com/aretw0/flowchain/pkg/value"
)

// service records the requests it is called with.
type service struct {
	readyErr error
	sig      *solana.Signature
	requests []execution.Request
}

func (s *service) Ready(context.Context) error { return s.readyErr }

func (s *service) Call(_ context.Context, req execution.Request) (execution.Response, error) {
	s.requests = append(s.requests, req)
	resp := execution.Response{ExecutionID: "exec-1", Outputs: req.Outputs}
	if !req.Bundle.IsEmpty() {
		resp.Signature = s.sig
	}
	return resp, nil
}

func mustKeypair(t *testing.T) domain.Keypair {
	t.Helper()
	kp, err := domain.NewRandomKeypair()
	require.NoError(t, err)
	return kp
}

func inputs(t *testing.T, fields map[string]any) *value.Map {
	t.Helper()
	v, err := value.FromAny(fields)
	require.NoError(t, err)
	return v.(*value.Map)
}

func TestRegistry(t *testing.T) {
	r := command.NewRegistry()
	command.RegisterBuiltins(r)
	assert.Equal(t, []string{"const", "transfer_sol"}, r.Names())

	_, err := r.Run(context.Background(), "mint_nft", nil, nil)
	assert.ErrorIs(t, err, command.ErrCommandNotFound)

	r.Register("const", func(context.Context, *command.Context, *value.Map) (*value.Map, error) {
		return nil, errors.New("replaced")
	})
	_, err = r.Run(context.Background(), "const", nil, nil)
	assert.EqualError(t, err, "replaced")
}

func TestConst(t *testing.T) {
	r := command.NewRegistry()
	command.RegisterBuiltins(r)

	in := inputs(t, map[string]any{"a": uint64(1), "b": "two"})
	out, err := r.Run(context.Background(), "const", nil, in)
	require.NoError(t, err)
	assert.True(t, value.Equal(in, out))
	assert.NotSame(t, in, out)
}

func TestLamports(t *testing.T) {
	n, err := command.Lamports(decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), n)

	_, err = command.Lamports(decimal.RequireFromString("0.0000000001"))
	assert.Error(t, err)

	_, err = command.Lamports(decimal.RequireFromString("-1"))
	assert.Error(t, err)
}

func TestTransferSol(t *testing.T) {
	sender := mustKeypair(t)
	recipient := solana.NewWallet().PublicKey()
	sig := solana.Signature{1, 2, 3}
	svc := &service{sig: &sig}
	cc := command.NewContext(svc, "alice", nil)

	in := inputs(t, map[string]any{
		"sender":    value.B64(sender.Bytes()),
		"recipient": recipient.String(),
		"amount":    "0.25",
	})
	out, err := command.TransferSol(context.Background(), cc, in)
	require.NoError(t, err)

	got, err := bridge.FromMap[command.TransferSolOutput](out)
	require.NoError(t, err)
	assert.Equal(t, uint64(250_000_000), got.Lamports)
	require.NotNil(t, got.Signature)
	assert.Equal(t, sig, *got.Signature)

	require.Len(t, svc.requests, 1)
	req := svc.requests[0]
	assert.Equal(t, "alice", req.UserID)
	assert.Equal(t, sender.PublicKey(), req.Bundle.FeePayer)
	require.Len(t, req.Bundle.Instructions, 1)
	assert.Equal(t, solana.SystemProgramID, req.Bundle.Instructions[0].ProgramID())
	lamports, ok := req.Outputs.Get("lamports")
	require.True(t, ok)
	assert.Equal(t, value.U64(250_000_000), lamports)
}

func TestTransferSol_RemoteFeePayer(t *testing.T) {
	sender := mustKeypair(t)
	payer := domain.NewRemoteKeypair(solana.NewWallet().PublicKey())
	svc := &service{}

	in := inputs(t, map[string]any{
		"sender":    value.B64(sender.Bytes()),
		"fee_payer": value.B64(payer.Bytes()),
		"recipient": value.B32(solana.NewWallet().PublicKey()),
		"amount":    uint64(2),
	})
	_, err := command.TransferSol(context.Background(), command.NewContext(svc, "bob", nil), in)
	require.NoError(t, err)

	bundle := svc.requests[0].Bundle
	assert.Equal(t, payer.PublicKey(), bundle.FeePayer)
	assert.Equal(t, []solana.PublicKey{payer.PublicKey()}, bundle.RemoteSigners())
}

func TestTransferSol_DryRun(t *testing.T) {
	svc := &service{sig: &solana.Signature{9}}
	in := inputs(t, map[string]any{
		"sender":    value.B64(mustKeypair(t).Bytes()),
		"recipient": value.B32(solana.NewWallet().PublicKey()),
		"amount":    "1",
		"submit":    false,
	})
	out, err := command.TransferSol(context.Background(), command.NewContext(svc, "", nil), in)
	require.NoError(t, err)

	assert.True(t, svc.requests[0].Bundle.IsEmpty())
	_, hasSig := out.Get("signature")
	assert.False(t, hasSig)
}

func TestTransferSol_InvalidInputs(t *testing.T) {
	svc := &service{}
	cc := command.NewContext(svc, "", nil)

	_, err := command.TransferSol(context.Background(), cc, inputs(t, map[string]any{
		"sender":    value.B64(mustKeypair(t).Bytes()),
		"recipient": value.B32(solana.NewWallet().PublicKey()),
		"amount":    "0",
	}))
	assert.ErrorIs(t, err, bridge.ErrCustom)

	_, err = command.TransferSol(context.Background(), cc, inputs(t, map[string]any{
		"sender":    value.B64(mustKeypair(t).Bytes()),
		"recipient": value.Bytes{1, 2, 3},
		"amount":    "1",
	}))
	var berr *bridge.Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "recipient", berr.Path)

	assert.Empty(t, svc.requests, "marshalling errors have no side effects")
}

func TestContext_WithoutService(t *testing.T) {
	in := inputs(t, map[string]any{
		"sender":    value.B64(mustKeypair(t).Bytes()),
		"recipient": value.B32(solana.NewWallet().PublicKey()),
		"amount":    "1",
	})
	_, err := command.TransferSol(context.Background(), command.NewContext(nil, "", nil), in)
	assert.ErrorIs(t, err, domain.ErrNotAvailable)

	var cc *command.Context
	_, err = cc.Execute(context.Background(), &domain.Bundle{}, nil)
	assert.ErrorIs(t, err, domain.ErrNotAvailable)
}

func TestContext_ReadyFailureSkipsCall(t *testing.T) {
	svc := &service{readyErr: domain.ErrNotReady}
	_, err := command.NewContext(svc, "", nil).Execute(context.Background(), &domain.Bundle{}, nil)
	assert.ErrorIs(t, err, domain.ErrNotReady)
	assert.Empty(t, svc.requests)
}

func TestBatch(t *testing.T) {
	payer := mustKeypair(t)
	step := func() *domain.Bundle {
		return &domain.Bundle{FeePayer: payer.PublicKey(), Signers: []domain.Keypair{payer}, MinimumReserve: 10}
	}

	b := command.NewBatch(2)
	require.NoError(t, b.Add(step()))
	_, err := b.Bundle()
	assert.ErrorIs(t, err, domain.ErrIncompleteTransaction)

	svc := &service{}
	_, err = command.NewContext(svc, "", nil).ExecuteBatch(context.Background(), b, nil)
	assert.ErrorIs(t, err, domain.ErrIncompleteTransaction)
	assert.Empty(t, svc.requests)

	require.NoError(t, b.Add(step()))
	assert.Error(t, b.Add(step()), "extra step")

	bundle, err := b.Bundle()
	require.NoError(t, err)
	assert.Equal(t, uint64(20), bundle.MinimumReserve)
	assert.Len(t, bundle.Signers, 2)

	other := command.NewBatch(2)
	require.NoError(t, other.Add(step()))
	assert.ErrorIs(t, other.Add(&domain.Bundle{FeePayer: solana.NewWallet().PublicKey(), MinimumReserve: 1}), domain.ErrFeePayerMismatch)
}

func TestBatch_EmptyStepsDoNotCount(t *testing.T) {
	payer := mustKeypair(t)
	b := command.NewBatch(2)
	require.NoError(t, b.Add(nil))
	require.NoError(t, b.Add(&domain.Bundle{}))
	require.NoError(t, b.Add(&domain.Bundle{FeePayer: payer.PublicKey(), MinimumReserve: 7}))

	_, err := b.Bundle()
	assert.ErrorIs(t, err, domain.ErrIncompleteTransaction)
}

// busyService rejects the first rejections calls with domain.ErrNotReady.
type busyService struct {
	service
	rejections int
	readies    int
}

func (s *busyService) Ready(context.Context) error {
	s.readies++
	return nil
}

func (s *busyService) Call(ctx context.Context, req execution.Request) (execution.Response, error) {
	if s.rejections > 0 {
		s.rejections--
		return execution.Response{}, domain.ErrNotReady
	}
	return s.service.Call(ctx, req)
}

func TestContext_ExecuteRetriesWhenNotReady(t *testing.T) {
	svc := &busyService{rejections: 2}
	resp, err := command.NewContext(svc, "alice", nil).Execute(context.Background(), &domain.Bundle{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "exec-1", resp.ExecutionID)
	assert.Equal(t, 3, svc.readies)
	require.Len(t, svc.requests, 1)
	assert.Equal(t, "alice", svc.requests[0].UserID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc = &busyService{rejections: 1}
	_, err = command.NewContext(svc, "", nil).Execute(ctx, &domain.Bundle{}, nil)
	assert.ErrorIs(t, err, domain.ErrNotReady)
	assert.Equal(t, 1, svc.readies)
}
