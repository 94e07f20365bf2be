// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package multisig decides whether a set of signatures authorizes a transaction
// under an account's weighted signer configuration.
//
// A Registry holds the account's master key weight, up to MaxSigners additional
// signers, and the low/medium/high thresholds. The Authorizer checks a complete
// signature set in one call; a Session accumulates signatures as they arrive
// from independent signers.
package multisig

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/fsutil"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/keypair"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/txn"
)

// MaxSigners is the number of additional signers an account may hold.
const MaxSigners = 20

// Signer is a public key and its weight. Weight 0 means not a signer.
type Signer struct {
	Address string `yaml:"address"`
	Weight  uint8  `yaml:"weight"`
}

// Thresholds are the weights required per threshold class.
type Thresholds struct {
	Low    uint8 `yaml:"low"`
	Medium uint8 `yaml:"medium"`
	High   uint8 `yaml:"high"`
}

// For returns the threshold of class c.
func (t Thresholds) For(c txn.ThresholdClass) uint8 {
	switch c {
	case txn.Low:
		return t.Low
	case txn.High:
		return t.High
	default:
		return t.Medium
	}
}

type entry struct {
	kp     *keypair.FromAddress
	weight uint8
}

// Registry is an account's signer configuration.
type Registry struct {
	account    string
	thresholds Thresholds
	signers    map[string]*entry
	byHint     map[keypair.Hint][]*entry
}

// NewRegistry creates a registry whose master key has masterWeight.
func NewRegistry(account string, masterWeight uint8, thresholds Thresholds) (*Registry, error) {
	kp, err := keypair.ParseAddress(account)
	if err != nil {
		return nil, fmt.Errorf("invalid account: %w", err)
	}
	r := &Registry{
		account:    account,
		thresholds: thresholds,
		signers:    make(map[string]*entry),
		byHint:     make(map[keypair.Hint][]*entry),
	}
	r.put(kp, masterWeight)
	return r, nil
}

// Account returns the account whose signers this registry holds.
func (r *Registry) Account() string { return r.account }

// Thresholds returns the account thresholds.
func (r *Registry) Thresholds() Thresholds { return r.thresholds }

// SetThresholds replaces the account thresholds.
func (r *Registry) SetThresholds(t Thresholds) { r.thresholds = t }

// MasterWeight returns the weight of the account's own key.
func (r *Registry) MasterWeight() uint8 { return r.signers[r.account].weight }

// SetSigner adds, reweights or (with weight 0) removes a signer. Setting the
// account's own address changes the master weight; weight 0 disables it.
func (r *Registry) SetSigner(address string, weight uint8) error {
	if address == r.account {
		r.signers[address].weight = weight
		return nil
	}
	if weight == 0 {
		r.remove(address)
		return nil
	}
	if e, ok := r.signers[address]; ok {
		e.weight = weight
		return nil
	}
	if r.additionalSigners() >= MaxSigners {
		return ErrTooManySigners
	}
	kp, err := keypair.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("invalid signer: %w", err)
	}
	r.put(kp, weight)
	return nil
}

// Weight returns address's weight, 0 if it is not a signer.
func (r *Registry) Weight(address string) uint8 {
	if e, ok := r.signers[address]; ok {
		return e.weight
	}
	return 0
}

// Signers lists active signers (master included) sorted by address.
func (r *Registry) Signers() []Signer {
	out := make([]Signer, 0, len(r.signers))
	for addr, e := range r.signers {
		if e.weight > 0 {
			out = append(out, Signer{Address: addr, Weight: e.weight})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// TotalWeight sums all active signer weights.
func (r *Registry) TotalWeight() int {
	total := 0
	for _, e := range r.signers {
		total += int(e.weight)
	}
	return total
}

// RequiredWeight resolves the weight tx needs: the threshold of its highest
// operation class, and never less than 1.
func (r *Registry) RequiredWeight(tx *txn.Transaction) (int, txn.ThresholdClass, error) {
	class, err := tx.ThresholdClass()
	if err != nil {
		return 0, 0, err
	}
	w := int(r.thresholds.For(class))
	if w < 1 {
		w = 1
	}
	return w, class, nil
}

// match finds the active signer that produced sig over hash.
func (r *Registry) match(hash []byte, sig txn.DecoratedSignature) (string, uint8, bool) {
	for _, e := range r.byHint[sig.Hint] {
		if e.weight == 0 {
			continue
		}
		if e.kp.Verify(hash, sig.Signature) == nil {
			return e.kp.Address(), e.weight, true
		}
	}
	return "", 0, false
}

func (r *Registry) put(kp *keypair.FromAddress, weight uint8) {
	e := &entry{kp: kp, weight: weight}
	r.signers[kp.Address()] = e
	h := kp.Hint()
	r.byHint[h] = append(r.byHint[h], e)
}

func (r *Registry) remove(address string) {
	e, ok := r.signers[address]
	if !ok {
		return
	}
	delete(r.signers, address)
	h := e.kp.Hint()
	list := r.byHint[h]
	for i, other := range list {
		if other == e {
			r.byHint[h] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(r.byHint[h]) == 0 {
		delete(r.byHint, h)
	}
}

func (r *Registry) additionalSigners() int {
	return len(r.signers) - 1
}

// registryFile is the YAML form of a registry.
type registryFile struct {
	Account      string     `yaml:"account"`
	MasterWeight uint8      `yaml:"master_weight"`
	Thresholds   Thresholds `yaml:"thresholds"`
	Signers      []Signer   `yaml:"signers"`
}

// LoadRegistry reads a registry from a YAML file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signer registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry parses the YAML form of a registry.
func ParseRegistry(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse signer registry: %w", err)
	}
	r, err := NewRegistry(f.Account, f.MasterWeight, f.Thresholds)
	if err != nil {
		return nil, err
	}
	for _, s := range f.Signers {
		if s.Address == f.Account {
			return nil, fmt.Errorf("master key listed as additional signer; use master_weight")
		}
		if _, dup := r.signers[s.Address]; dup {
			return nil, fmt.Errorf("duplicate signer %s", s.Address)
		}
		if err := r.SetSigner(s.Address, s.Weight); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Marshal returns the YAML form of r.
func (r *Registry) Marshal() ([]byte, error) {
	f := registryFile{
		Account:      r.account,
		MasterWeight: r.MasterWeight(),
		Thresholds:   r.thresholds,
	}
	for _, s := range r.Signers() {
		if s.Address != r.account {
			f.Signers = append(f.Signers, s)
		}
	}
	return yaml.Marshal(f)
}

// WriteFile saves r as YAML with owner-only permissions.
func (r *Registry) WriteFile(path string) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	return fsutil.AtomicWriteFile(path, data)
}
