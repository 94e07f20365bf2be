// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package multisig

import (
	"context"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/keypair"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/txn"
)

const testPassphrase = "Test SDF Network ; September 2015"

func newKeys(t *testing.T, n int) []*keypair.Full {
	t.Helper()
	keys := make([]*keypair.Full, n)
	for i := range keys {
		kp, err := keypair.Random()
		require.NoError(t, err)
		keys[i] = kp
	}
	return keys
}

func buildTx(account string, ops ...txn.OperationType) txn.Transaction {
	tx := txn.Transaction{Source: account, Sequence: 7, Fee: uint32(txn.BaseFee * len(ops))}
	for _, op := range ops {
		tx.Operations = append(tx.Operations, txn.Operation{Type: op})
	}
	return tx
}

func signAll(t *testing.T, tx txn.Transaction, keys ...*keypair.Full) []txn.DecoratedSignature {
	t.Helper()
	hash := tx.Hash(testPassphrase)
	sigs := make([]txn.DecoratedSignature, len(keys))
	for i, kp := range keys {
		sigs[i] = txn.DecoratedSignature{Hint: kp.Hint(), Signature: kp.Sign(hash[:])}
	}
	return sigs
}

// abcFixture is an account with master disabled and signers A=2, B=1, C=1, all thresholds 3.
type abcFixture struct {
	account    *keypair.Full
	a, b, c    *keypair.Full
	authorizer *Authorizer
}

func newABC(t *testing.T) abcFixture {
	keys := newKeys(t, 4)
	reg, err := NewRegistry(keys[0].Address(), 0, Thresholds{Low: 3, Medium: 3, High: 3})
	require.NoError(t, err)
	require.NoError(t, reg.SetSigner(keys[1].Address(), 2))
	require.NoError(t, reg.SetSigner(keys[2].Address(), 1))
	require.NoError(t, reg.SetSigner(keys[3].Address(), 1))
	return abcFixture{
		account:    keys[0],
		a:          keys[1],
		b:          keys[2],
		c:          keys[3],
		authorizer: NewAuthorizer(reg, testPassphrase, nil),
	}
}

func TestAuthorize_ThresholdMath(t *testing.T) {
	f := newABC(t)
	tx := buildTx(f.account.Address(), txn.OpPayment)

	tests := []struct {
		name    string
		signers []*keypair.Full
		weight  int
		wantErr error
	}{
		{"A alone", []*keypair.Full{f.a}, 0, ErrInsufficientWeight},
		{"A and B", []*keypair.Full{f.a, f.b}, 3, nil},
		{"B and C", []*keypair.Full{f.b, f.c}, 0, ErrInsufficientWeight},
		{"all three", []*keypair.Full{f.a, f.b, f.c}, 4, nil},
		{"none", nil, 0, ErrInsufficientWeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.authorizer.Authorize(tx, signAll(t, tx, tt.signers...))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.weight, res.Weight)
			assert.Equal(t, 3, res.Required)
			assert.Equal(t, txn.Medium, res.Class)
			assert.Len(t, res.Envelope.Signatures, len(tt.signers))
		})
	}
}

func TestAuthorize_FlexibleThresholds(t *testing.T) {
	keys := newKeys(t, 3)
	reg, err := NewRegistry(keys[0].Address(), 50, Thresholds{Low: 50, Medium: 100, High: 150})
	require.NoError(t, err)
	require.NoError(t, reg.SetSigner(keys[1].Address(), 50))
	require.NoError(t, reg.SetSigner(keys[2].Address(), 50))
	auth := NewAuthorizer(reg, testPassphrase, nil)

	classes := []struct {
		class txn.ThresholdClass
		op    txn.OperationType
	}{
		{txn.Low, txn.OpBumpSequence},
		{txn.Medium, txn.OpPayment},
		{txn.High, txn.OpSetOptions},
	}

	for n := 1; n <= 3; n++ {
		for _, c := range classes {
			tx := buildTx(keys[0].Address(), c.op)
			_, err := auth.Authorize(tx, signAll(t, tx, keys[:n]...))
			// n signers of weight 50 reach the class whose index is n-1
			if int(c.class) <= n {
				assert.NoError(t, err, "%d signers, %s class", n, c.class)
			} else {
				assert.ErrorIs(t, err, ErrInsufficientWeight, "%d signers, %s class", n, c.class)
			}
		}
	}
}

func TestAuthorize_MixedOperationsUseHighestClass(t *testing.T) {
	keys := newKeys(t, 2)
	reg, _ := NewRegistry(keys[0].Address(), 1, Thresholds{Low: 1, Medium: 2, High: 3})
	require.NoError(t, reg.SetSigner(keys[1].Address(), 1))
	auth := NewAuthorizer(reg, testPassphrase, nil)

	tx := buildTx(keys[0].Address(), txn.OpBumpSequence, txn.OpAccountMerge)
	_, err := auth.Authorize(tx, signAll(t, tx, keys...))
	require.ErrorIs(t, err, ErrInsufficientWeight)

	tx = buildTx(keys[0].Address(), txn.OpBumpSequence, txn.OpPayment)
	res, err := auth.Authorize(tx, signAll(t, tx, keys...))
	require.NoError(t, err)
	assert.Equal(t, txn.Medium, res.Class)
}

func TestAuthorize_UnrecognizedSigner(t *testing.T) {
	f := newABC(t)
	outsider := newKeys(t, 1)[0]
	tx := buildTx(f.account.Address(), txn.OpPayment)

	_, err := f.authorizer.Authorize(tx, signAll(t, tx, f.a, f.b, outsider))
	require.ErrorIs(t, err, ErrUnrecognizedSigner)
}

func TestAuthorize_ForgedSignatureWithValidHint(t *testing.T) {
	f := newABC(t)
	tx := buildTx(f.account.Address(), txn.OpPayment)
	sigs := signAll(t, tx, f.a, f.b)
	sigs[1].Signature = append([]byte(nil), sigs[1].Signature...)
	sigs[1].Signature[0] ^= 0xFF

	_, err := f.authorizer.Authorize(tx, sigs)
	require.ErrorIs(t, err, ErrUnrecognizedSigner)
}

func TestAuthorize_SignatureOverDifferentNetwork(t *testing.T) {
	f := newABC(t)
	tx := buildTx(f.account.Address(), txn.OpPayment)
	hash := tx.Hash("Public Global Stellar Network ; September 2015")
	sigs := []txn.DecoratedSignature{
		{Hint: f.a.Hint(), Signature: f.a.Sign(hash[:])},
		{Hint: f.b.Hint(), Signature: f.b.Sign(hash[:])},
	}
	_, err := f.authorizer.Authorize(tx, sigs)
	require.ErrorIs(t, err, ErrUnrecognizedSigner)
}

func TestAuthorize_DuplicateSignerCountsOnce(t *testing.T) {
	f := newABC(t)
	tx := buildTx(f.account.Address(), txn.OpPayment)
	sigs := signAll(t, tx, f.a, f.a)

	_, err := f.authorizer.Authorize(tx, sigs)
	require.ErrorIs(t, err, ErrInsufficientWeight)

	res, err := f.authorizer.Authorize(tx, append(sigs, signAll(t, tx, f.b)...))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Weight)
	assert.Len(t, res.Envelope.Signatures, 3, "full signature list is kept")
	assert.Equal(t, []string{f.a.Address(), f.b.Address()}, res.Signers)
}

func TestAuthorize_SignatureCap(t *testing.T) {
	keys := newKeys(t, 21)
	reg, err := NewRegistry(keys[0].Address(), 1, Thresholds{Low: 1, Medium: 1, High: 1})
	require.NoError(t, err)
	for _, kp := range keys[1:] {
		require.NoError(t, reg.SetSigner(kp.Address(), 1))
	}
	auth := NewAuthorizer(reg, testPassphrase, nil)
	tx := buildTx(keys[0].Address(), txn.OpPayment)

	_, err = auth.Authorize(tx, signAll(t, tx, keys...))
	require.ErrorIs(t, err, ErrTooManySignatures)

	res, err := auth.Authorize(tx, signAll(t, tx, keys[:20]...))
	require.NoError(t, err)
	assert.Equal(t, 20, res.Weight)
}

func TestAuthorize_ZeroWeightIsNotASigner(t *testing.T) {
	f := newABC(t)
	reg := f.authorizer.Registry()
	require.NoError(t, reg.SetSigner(f.c.Address(), 0))
	tx := buildTx(f.account.Address(), txn.OpPayment)

	_, err := f.authorizer.Authorize(tx, signAll(t, tx, f.a, f.c))
	require.ErrorIs(t, err, ErrUnrecognizedSigner)

	// Master was registered with weight 0
	_, err = f.authorizer.Authorize(tx, signAll(t, tx, f.a, f.b, f.account))
	require.ErrorIs(t, err, ErrUnrecognizedSigner)
}

func TestAuthorize_AccountMismatch(t *testing.T) {
	f := newABC(t)
	other := newKeys(t, 1)[0]

	tx := buildTx(other.Address(), txn.OpPayment)
	_, err := f.authorizer.Authorize(tx, signAll(t, tx, f.a, f.b))
	require.ErrorIs(t, err, ErrAccountMismatch)

	tx = buildTx(f.account.Address(), txn.OpPayment)
	tx.Operations[0].Source = other.Address()
	_, err = f.authorizer.Authorize(tx, signAll(t, tx, f.a, f.b))
	require.ErrorIs(t, err, ErrAccountMismatch)
}

func TestAuthorizeEnvelope_NetworkMismatch(t *testing.T) {
	f := newABC(t)
	env, err := txn.NewEnvelope(buildTx(f.account.Address(), txn.OpPayment), "Public Global Stellar Network ; September 2015")
	require.NoError(t, err)
	_, err = f.authorizer.AuthorizeEnvelope(env)
	require.ErrorIs(t, err, txn.ErrNetworkMismatch)
}

func TestIsAuthorizationFailure(t *testing.T) {
	assert.True(t, IsAuthorizationFailure(ErrInsufficientWeight))
	assert.True(t, IsAuthorizationFailure(errors.Join(errors.New("x"), ErrTooManySignatures)))
	assert.False(t, IsAuthorizationFailure(txn.ErrNoOperations))
}

func TestRegistry_SignerLimit(t *testing.T) {
	keys := newKeys(t, 22)
	reg, err := NewRegistry(keys[0].Address(), 1, Thresholds{})
	require.NoError(t, err)
	for _, kp := range keys[1:21] {
		require.NoError(t, reg.SetSigner(kp.Address(), 1))
	}
	require.ErrorIs(t, reg.SetSigner(keys[21].Address(), 1), ErrTooManySigners)

	// Reweighting and removing still work at the limit
	require.NoError(t, reg.SetSigner(keys[1].Address(), 5))
	require.NoError(t, reg.SetSigner(keys[2].Address(), 0))
	require.NoError(t, reg.SetSigner(keys[21].Address(), 1))
	assert.Equal(t, uint8(5), reg.Weight(keys[1].Address()))
	assert.Equal(t, uint8(0), reg.Weight(keys[2].Address()))
}

func TestRegistry_RequiredWeightAtLeastOne(t *testing.T) {
	kp := newKeys(t, 1)[0]
	reg, _ := NewRegistry(kp.Address(), 1, Thresholds{})
	tx := buildTx(kp.Address(), txn.OpSetOptions)
	w, class, err := reg.RequiredWeight(&tx)
	require.NoError(t, err)
	assert.Equal(t, 1, w)
	assert.Equal(t, txn.High, class)
}

func TestRegistry_YAMLFile(t *testing.T) {
	f := newABC(t)
	reg := f.authorizer.Registry()
	path := filepath.Join(t.TempDir(), "signers.yaml")
	require.NoError(t, reg.WriteFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, reg.Account(), loaded.Account())
	assert.Equal(t, reg.Thresholds(), loaded.Thresholds())
	assert.Equal(t, reg.Signers(), loaded.Signers())
	assert.Equal(t, uint8(0), loaded.MasterWeight())
}

func TestParseRegistry_Errors(t *testing.T) {
	keys := newKeys(t, 2)
	acct, other := keys[0].Address(), keys[1].Address()

	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "account: [\n"},
		{"bad account", "account: GNOPE\n"},
		{"bad signer", "account: " + acct + "\nsigners:\n  - address: GNOPE\n    weight: 1\n"},
		{"master as signer", "account: " + acct + "\nsigners:\n  - address: " + acct + "\n    weight: 1\n"},
		{"duplicate", "account: " + acct + "\nsigners:\n  - address: " + other + "\n    weight: 1\n  - address: " + other + "\n    weight: 2\n"},
		{"weight overflow", "account: " + acct + "\nmaster_weight: 256\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestSession_Lifecycle(t *testing.T) {
	f := newABC(t)
	s, err := f.authorizer.NewSession(buildTx(f.account.Address(), txn.OpPayment))
	require.NoError(t, err)
	assert.Equal(t, StateBuilt, s.State())
	assert.Equal(t, 3, s.Required())

	state, err := s.Sign(f.b)
	require.NoError(t, err)
	assert.Equal(t, StatePartiallySigned, state)
	assert.Equal(t, 1, s.Weight())

	// Same signer again: no weight change
	state, err = s.Sign(f.b)
	require.NoError(t, err)
	assert.Equal(t, StatePartiallySigned, state)
	assert.Equal(t, 1, s.Weight())

	state, err = s.Sign(f.a)
	require.NoError(t, err)
	assert.Equal(t, StateAuthorized, state)
	assert.Equal(t, 3, s.Weight())

	_, err = s.Sign(f.c)
	require.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, 3, s.Weight())

	res, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 3, res.Weight)
	assert.Len(t, res.Envelope.Signatures, 2)

	// The batch authorizer agrees with the session
	batch, err := f.authorizer.AuthorizeEnvelope(res.Envelope)
	require.NoError(t, err)
	assert.Equal(t, res.Weight, batch.Weight)
}

func TestSession_UnrecognizedSignerRejects(t *testing.T) {
	f := newABC(t)
	outsider := newKeys(t, 1)[0]
	s, err := f.authorizer.NewSession(buildTx(f.account.Address(), txn.OpPayment))
	require.NoError(t, err)

	_, err = s.Sign(f.a)
	require.NoError(t, err)

	state, err := s.Sign(outsider)
	require.ErrorIs(t, err, ErrUnrecognizedSigner)
	assert.Equal(t, StateRejected, state)
	assert.ErrorIs(t, s.Err(), ErrUnrecognizedSigner)

	_, err = s.Sign(f.b)
	require.ErrorIs(t, err, ErrSessionClosed)

	_, err = s.Finalize()
	require.ErrorIs(t, err, ErrUnrecognizedSigner)
}

func TestSession_FinalizeBelowThreshold(t *testing.T) {
	f := newABC(t)
	s, _ := f.authorizer.NewSession(buildTx(f.account.Address(), txn.OpPayment))
	_, _ = s.Sign(f.b)
	_, _ = s.Sign(f.c)

	_, err := s.Finalize()
	require.ErrorIs(t, err, ErrInsufficientWeight)
	assert.Equal(t, StateRejected, s.State())
}

func TestSession_TwentyFirstSignatureRejects(t *testing.T) {
	keys := newKeys(t, 21)
	reg, _ := NewRegistry(keys[0].Address(), 1, Thresholds{Medium: 21})
	for _, kp := range keys[1:] {
		require.NoError(t, reg.SetSigner(kp.Address(), 1))
	}
	auth := NewAuthorizer(reg, testPassphrase, nil)
	s, err := auth.NewSession(buildTx(keys[0].Address(), txn.OpPayment))
	require.NoError(t, err)

	for _, kp := range keys[:20] {
		state, err := s.Sign(kp)
		require.NoError(t, err)
		assert.Equal(t, StatePartiallySigned, state)
	}
	state, err := s.Sign(keys[20])
	require.ErrorIs(t, err, ErrTooManySignatures)
	assert.Equal(t, StateRejected, state)
	assert.Equal(t, 20, s.Weight())
}

func TestSession_OutOfProcessSigners(t *testing.T) {
	f := newABC(t)
	coordinator, err := f.authorizer.NewSession(buildTx(f.account.Address(), txn.OpPayment))
	require.NoError(t, err)

	// Signer B works from the encoded envelope on its own copy
	remoteB, err := f.authorizer.ResumeSession(coordinator.Encode())
	require.NoError(t, err)
	assert.Equal(t, coordinator.ID(), remoteB.ID())
	_, err = remoteB.Sign(f.b)
	require.NoError(t, err)

	// Signer A resumes from B's output
	remoteA, err := f.authorizer.ResumeSession(remoteB.Encode())
	require.NoError(t, err)
	assert.Equal(t, StatePartiallySigned, remoteA.State())
	assert.Equal(t, 1, remoteA.Weight())
	state, err := remoteA.Sign(f.a)
	require.NoError(t, err)
	assert.Equal(t, StateAuthorized, state)

	// The coordinator merges the returned envelope
	state, err = coordinator.Merge(remoteA.Encode())
	require.NoError(t, err)
	assert.Equal(t, StateAuthorized, state)
	assert.Equal(t, 3, coordinator.Weight())
}

func TestSession_ResumeWithForeignSignatureIsRejected(t *testing.T) {
	f := newABC(t)
	outsider := newKeys(t, 1)[0]
	tx := buildTx(f.account.Address(), txn.OpPayment)
	env, err := txn.NewEnvelope(tx, testPassphrase)
	require.NoError(t, err)
	env.Sign(outsider)

	s, err := f.authorizer.ResumeSession(txn.EncodeEnvelope(env))
	require.NoError(t, err)
	assert.Equal(t, StateRejected, s.State())
	assert.ErrorIs(t, s.Err(), ErrUnrecognizedSigner)
}

func TestSession_ConcurrentSigners(t *testing.T) {
	keys := newKeys(t, 10)
	reg, _ := NewRegistry(keys[0].Address(), 1, Thresholds{Medium: 10})
	for _, kp := range keys[1:] {
		require.NoError(t, reg.SetSigner(kp.Address(), 1))
	}
	s, err := NewAuthorizer(reg, testPassphrase, nil).NewSession(buildTx(keys[0].Address(), txn.OpPayment))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, kp := range keys {
		wg.Add(1)
		go func(kp *keypair.Full) {
			defer wg.Done()
			_, _ = s.Sign(kp)
		}(kp)
	}
	wg.Wait()

	assert.Equal(t, StateAuthorized, s.State())
	assert.Equal(t, 10, s.Weight())
}

type fakeSubmitter struct {
	calls int
	err   error
}

func (f *fakeSubmitter) Submit(_ context.Context, env *txn.Envelope) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	h := env.Hash()
	return hex.EncodeToString(h[:]), nil
}

func TestSubmit(t *testing.T) {
	f := newABC(t)
	tx := buildTx(f.account.Address(), txn.OpPayment)
	authorized, err := f.authorizer.Authorize(tx, signAll(t, tx, f.a, f.b))
	require.NoError(t, err)

	ok := &fakeSubmitter{}
	hash, err := Submit(context.Background(), ok, authorized)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	failing := &fakeSubmitter{err: errors.New("tx_bad_seq")}
	_, err = Submit(context.Background(), failing, authorized)
	require.ErrorIs(t, err, ErrNetworkRejection)
	assert.Equal(t, 1, failing.calls, "no retries")

	coded := &fakeSubmitter{err: &NetworkRejection{Code: "tx_bad_auth_extra", Err: errors.New("extra signature")}}
	_, err = Submit(context.Background(), coded, authorized)
	var rej *NetworkRejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "tx_bad_auth_extra", rej.Code)
	assert.Contains(t, err.Error(), "tx_bad_auth_extra")

	_, err = Submit(context.Background(), ok, nil)
	require.Error(t, err)
}

type fakeLoader map[string]*Account

func (f fakeLoader) LoadAccount(_ context.Context, address string) (*Account, error) {
	if a, ok := f[address]; ok {
		return a, nil
	}
	return nil, errors.New("account not found")
}

func TestLoadAccountRegistry(t *testing.T) {
	keys := newKeys(t, 3)
	acct := &Account{
		Address:    keys[0].Address(),
		Sequence:   99,
		Thresholds: Thresholds{Low: 1, Medium: 2, High: 3},
		Signers: []Signer{
			{Address: keys[0].Address(), Weight: 1},
			{Address: keys[1].Address(), Weight: 1},
			{Address: keys[2].Address(), Weight: 2},
		},
	}
	loader := fakeLoader{acct.Address: acct}

	reg, loaded, err := LoadAccountRegistry(context.Background(), loader, acct.Address)
	require.NoError(t, err)
	assert.Equal(t, int64(99), loaded.Sequence)
	assert.Equal(t, uint8(1), reg.MasterWeight())
	assert.Equal(t, 4, reg.TotalWeight())
	assert.Len(t, reg.Signers(), 3)

	_, _, err = LoadAccountRegistry(context.Background(), loader, keys[1].Address())
	require.Error(t, err)
}
