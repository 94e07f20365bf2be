// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package multisig

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/keypair"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/txn"
)

// SessionState is the position of a Session in its lifecycle.
type SessionState int

const (
	// StateBuilt has no signatures yet.
	StateBuilt SessionState = iota
	// StatePartiallySigned has signatures below the threshold.
	StatePartiallySigned
	// StateAuthorized reached the threshold. Terminal.
	StateAuthorized
	// StateRejected failed. Terminal.
	StateRejected
)

func (s SessionState) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StatePartiallySigned:
		return "partially-signed"
	case StateAuthorized:
		return "authorized"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Terminal reports whether no further signatures are accepted.
func (s SessionState) Terminal() bool {
	return s == StateAuthorized || s == StateRejected
}

// Session accumulates signatures for one transaction until it is authorized
// or rejected. Weight only grows; signatures are never removed. Signatures
// may be added from multiple goroutines.
type Session struct {
	mu sync.Mutex

	authorizer *Authorizer
	env        *txn.Envelope
	hash       [32]byte
	required   int
	class      txn.ThresholdClass

	weight  int
	signers []string
	seen    map[string]bool
	state   SessionState
	err     error
}

// NewSession starts a session for tx on the authorizer's network.
func (a *Authorizer) NewSession(tx txn.Transaction) (*Session, error) {
	env, err := txn.NewEnvelope(tx, a.passphrase)
	if err != nil {
		return nil, err
	}
	return a.newSession(env)
}

// ResumeSession rebuilds a session from an encoded envelope and replays its
// signatures. The returned session may already be terminal.
func (a *Authorizer) ResumeSession(encoded string) (*Session, error) {
	env, err := txn.DecodeEnvelope(encoded)
	if err != nil {
		return nil, err
	}
	if env.Network != a.passphrase {
		return nil, txn.ErrNetworkMismatch
	}
	sigs := env.Signatures
	env.Signatures = nil

	s, err := a.newSession(env)
	if err != nil {
		return nil, err
	}
	for _, sig := range sigs {
		if _, err := s.AddSignature(sig); err != nil {
			break
		}
	}
	return s, nil
}

func (a *Authorizer) newSession(env *txn.Envelope) (*Session, error) {
	required, class, err := a.resolve(&env.Tx)
	if err != nil {
		return nil, err
	}
	return &Session{
		authorizer: a,
		env:        env,
		hash:       env.Hash(),
		required:   required,
		class:      class,
		seen:       make(map[string]bool),
		state:      StateBuilt,
	}, nil
}

// ID returns the envelope ID shared by every copy of this session.
func (s *Session) ID() string { return s.env.ID }

// Hash returns the transaction hash signers must sign.
func (s *Session) Hash() [32]byte { return s.hash }

// Required returns the threshold weight.
func (s *Session) Required() int { return s.required }

// Class returns the transaction's threshold class.
func (s *Session) Class() txn.ThresholdClass { return s.class }

// State returns the current state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Weight returns the accumulated weight of distinct signers.
func (s *Session) Weight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weight
}

// Err returns why the session was rejected, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Envelope returns a copy of the envelope with the signatures so far.
func (s *Session) Envelope() *txn.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.env.Clone()
}

// Encode returns the envelope in the form exchanged with other signers.
func (s *Session) Encode() string {
	return txn.EncodeEnvelope(s.Envelope())
}

// Sign signs with kp and adds the signature.
func (s *Session) Sign(kp *keypair.Full) (SessionState, error) {
	return s.AddSignature(txn.DecoratedSignature{Hint: kp.Hint(), Signature: kp.Sign(s.hash[:])})
}

// AddSignature attaches sig and advances the state. An unrecognized signer or
// a signature beyond txn.MaxSignatures rejects the session. A repeated
// identical signature is ignored.
func (s *Session) AddSignature(sig txn.DecoratedSignature) (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return s.state, ErrSessionClosed
	}

	addr, w, ok := s.authorizer.registry.match(s.hash[:], sig)
	if !ok {
		return s.reject(fmt.Errorf("%w: hint %x", ErrUnrecognizedSigner, sig.Hint))
	}
	if len(s.env.Signatures) >= txn.MaxSignatures {
		return s.reject(fmt.Errorf("%w: signature %d", ErrTooManySignatures, len(s.env.Signatures)+1))
	}
	if !s.env.AddSignature(sig) {
		return s.state, nil
	}

	if !s.seen[addr] {
		s.seen[addr] = true
		s.signers = append(s.signers, addr)
		s.weight += int(w)
	}

	s.state = StatePartiallySigned
	if s.weight >= s.required {
		s.state = StateAuthorized
		s.authorizer.logger.Debug("session authorized", "id", s.env.ID, "weight", s.weight, "required", s.required)
	}
	return s.state, nil
}

// Merge adds the signatures from another copy of this session's envelope.
func (s *Session) Merge(encoded string) (SessionState, error) {
	other, err := txn.DecodeEnvelope(encoded)
	if err != nil {
		return s.State(), err
	}
	if other.Network != s.env.Network || other.Hash() != s.hash {
		return s.State(), fmt.Errorf("%w: envelope is for a different transaction", txn.ErrMalformedEnvelope)
	}
	state := s.State()
	for _, sig := range other.Signatures {
		state, err = s.AddSignature(sig)
		if err != nil {
			if errors.Is(err, ErrSessionClosed) && state == StateAuthorized {
				return state, nil
			}
			return state, err
		}
	}
	return state, nil
}

// Finalize ends the session. An authorized session yields its result; one
// still below the threshold becomes rejected with ErrInsufficientWeight.
func (s *Session) Finalize() (*Authorized, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateAuthorized:
		return &Authorized{
			Envelope: s.env.Clone(),
			Weight:   s.weight,
			Required: s.required,
			Class:    s.class,
			Signers:  append([]string(nil), s.signers...),
		}, nil
	case StateRejected:
		return nil, s.err
	default:
		_, err := s.reject(fmt.Errorf("%w: have %d, need %d for %s threshold", ErrInsufficientWeight, s.weight, s.required, s.class))
		return nil, err
	}
}

func (s *Session) reject(err error) (SessionState, error) {
	s.state = StateRejected
	s.err = err
	s.authorizer.logger.Debug("session rejected", "id", s.env.ID, "error", err)
	return s.state, err
}
