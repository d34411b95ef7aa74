package command

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/shopspring/decimal"

	"github.com/aretw0/flowchain/pkg/bridge"
	"github.com/aretw0/flowchain/pkg/domain"
	"github.com/aretw0/flowchain/pkg/value"
)

// RegisterBuiltins adds the commands shipped with the engine.
func RegisterBuiltins(r *Registry) {
	r.Register("const", Const)
	r.Register("transfer_sol", TransferSol)
}

// Const outputs its inputs unchanged.
func Const(_ context.Context, _ *Context, inputs *value.Map) (*value.Map, error) {
	return inputs.Clone(), nil
}

// TransferSolInput are the inputs of transfer_sol.
type TransferSolInput struct {
	Sender    domain.Keypair   `value:"sender"`
	Recipient solana.PublicKey `value:"recipient"`
	// Amount in SOL, at most 9 decimal places.
	Amount decimal.Decimal `value:"amount"`
	// FeePayer defaults to Sender.
	FeePayer *domain.Keypair `value:"fee_payer,omitempty"`
	// Submit false builds the transfer without sending it.
	Submit *bool `value:"submit,omitempty"`
}

// Validate implements bridge.Validator.
func (in TransferSolInput) Validate() error {
	if !in.Amount.IsPositive() {
		return bridge.Custom("amount must be positive, got %s", in.Amount)
	}
	return nil
}

// TransferSolOutput are the outputs of transfer_sol.
type TransferSolOutput struct {
	Lamports  uint64            `value:"lamports"`
	Signature *solana.Signature `value:"signature,omitempty"`
}

var lamportsPerSol = decimal.NewFromInt(int64(solana.LAMPORTS_PER_SOL))

// Lamports converts an amount of SOL to lamports.
func Lamports(sol decimal.Decimal) (uint64, error) {
	l := sol.Mul(lamportsPerSol)
	if !l.IsInteger() {
		return 0, fmt.Errorf("amount %s SOL is not a whole number of lamports", sol)
	}
	n := l.BigInt()
	if n.Sign() < 0 || !n.IsUint64() {
		return 0, fmt.Errorf("amount %s SOL is out of range", sol)
	}
	return n.Uint64(), nil
}

// TransferSol moves SOL from sender to recipient with the system program.
func TransferSol(ctx context.Context, cc *Context, inputs *value.Map) (*value.Map, error) {
	in, err := bridge.FromMap[TransferSolInput](inputs)
	if err != nil {
		return nil, err
	}
	lamports, err := Lamports(in.Amount)
	if err != nil {
		return nil, err
	}

	payer := in.Sender
	if in.FeePayer != nil {
		payer = *in.FeePayer
	}
	ix, err := system.NewTransferInstruction(lamports, in.Sender.PublicKey(), in.Recipient).ValidateAndBuild()
	if err != nil {
		return nil, err
	}
	bundle := &domain.Bundle{
		FeePayer:     payer.PublicKey(),
		Signers:      []domain.Keypair{payer, in.Sender},
		Instructions: []solana.Instruction{ix},
	}
	if in.Submit != nil && !*in.Submit {
		bundle = &domain.Bundle{}
	}

	outputs, err := bridge.ToMap(TransferSolOutput{Lamports: lamports})
	if err != nil {
		return nil, err
	}
	resp, err := cc.Execute(ctx, bundle, outputs)
	if err != nil {
		return nil, err
	}
	return bridge.ToMap(TransferSolOutput{Lamports: lamports, Signature: resp.Signature})
}
