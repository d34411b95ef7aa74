package domain_test

import (
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowchain/pkg/domain"
)

func transfer(from, to solana.PublicKey, lamports uint64) solana.Instruction {
	return system.NewTransferInstruction(lamports, from, to).Build()
}

func TestBundle_IsEmpty(t *testing.T) {
	var nilBundle *domain.Bundle
	assert.True(t, nilBundle.IsEmpty())
	assert.True(t, (&domain.Bundle{}).IsEmpty())
	assert.True(t, (&domain.Bundle{FeePayer: solana.NewWallet().PublicKey()}).IsEmpty())
	assert.False(t, (&domain.Bundle{MinimumReserve: 1}).IsEmpty())
	assert.NoError(t, (&domain.Bundle{}).Validate())
}

func TestBundle_Validate(t *testing.T) {
	a, b := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	bundle := &domain.Bundle{Instructions: []solana.Instruction{transfer(a, b, 1)}}
	assert.ErrorIs(t, bundle.Validate(), domain.ErrMissingFeePayer)

	bundle.FeePayer = a
	assert.NoError(t, bundle.Validate())
}

func TestBundle_Combine(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	to := solana.NewWallet().PublicKey()
	remote := domain.NewRemoteKeypair(payer)
	local, err := domain.NewRandomKeypair()
	require.NoError(t, err)

	first := &domain.Bundle{}
	require.NoError(t, first.Combine(&domain.Bundle{
		FeePayer:       payer,
		Signers:        []domain.Keypair{remote},
		MinimumReserve: 10,
		Instructions:   []solana.Instruction{transfer(payer, to, 1)},
	}))
	require.NoError(t, first.Combine(&domain.Bundle{
		FeePayer:       payer,
		Signers:        []domain.Keypair{local, remote},
		MinimumReserve: 5,
		Instructions:   []solana.Instruction{transfer(payer, to, 2)},
	}))
	require.NoError(t, first.Combine(&domain.Bundle{}))

	assert.Equal(t, payer, first.FeePayer)
	assert.Equal(t, uint64(15), first.MinimumReserve)
	assert.Len(t, first.Instructions, 2)
	assert.Len(t, first.Signers, 3)
	assert.Equal(t, []solana.PublicKey{payer, payer}, first.RemoteSigners())

	err = first.Combine(&domain.Bundle{
		FeePayer:     to,
		Instructions: []solana.Instruction{transfer(to, payer, 1)},
	})
	assert.ErrorIs(t, err, domain.ErrFeePayerMismatch)
}

func TestBundle_CombineReserveOverflow(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	b := &domain.Bundle{FeePayer: payer, MinimumReserve: math.MaxUint64 - 1}

	err := b.Combine(&domain.Bundle{FeePayer: payer, MinimumReserve: 2})
	assert.ErrorIs(t, err, domain.ErrReserveOverflow)
	assert.Equal(t, uint64(math.MaxUint64-1), b.MinimumReserve, "left unchanged")

	require.NoError(t, b.Combine(&domain.Bundle{FeePayer: payer, MinimumReserve: 1}))
	assert.Equal(t, uint64(math.MaxUint64), b.MinimumReserve)
}

func TestPresigner(t *testing.T) {
	kp, err := domain.NewRandomKeypair()
	require.NoError(t, err)
	msg := []byte("message")
	sig, err := kp.Sign(msg)
	require.NoError(t, err)

	p := domain.Presigner{Pubkey: kp.PublicKey(), Signature: sig}
	got, err := p.Sign(msg)
	require.NoError(t, err)
	assert.Equal(t, sig, got)

	_, err = p.Sign([]byte("other"))
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	var se *domain.SignError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, kp.PublicKey(), se.Pubkey)
}
