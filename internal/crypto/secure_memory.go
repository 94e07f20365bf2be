// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package crypto

import (
	"sync"

	"github.com/awnumar/memguard"
)

// ZeroBytes overwrites b with zeros in a way the compiler cannot elide.
func ZeroBytes(b []byte) {
	memguard.WipeBytes(b)
}

// SecureString holds a secret (password, exported secret key) in a locked,
// guard-paged memguard buffer. The zero value is empty.
type SecureString struct {
	lock sync.RWMutex
	buf  *memguard.LockedBuffer
}

// NewSecureStringFromBytes copies b into protected memory. The caller still
// owns b and should zero it.
func NewSecureStringFromBytes(b []byte) *SecureString {
	if len(b) == 0 {
		return &SecureString{}
	}
	// NewBufferFromBytes wipes its argument, so hand it a copy
	tmp := make([]byte, len(b))
	copy(tmp, b)
	return &SecureString{buf: memguard.NewBufferFromBytes(tmp)}
}

// WithBytes gives fn the secret without copying it.
// The slice is only valid until fn returns.
func (s *SecureString) WithBytes(fn func([]byte) error) error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return fn(s.bytes())
}

// Reveal returns the secret as a Go string for display. The returned string
// cannot be wiped; only call it at the point of output.
func (s *SecureString) Reveal() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return string(s.bytes())
}

// Len returns the length of the secret in bytes.
func (s *SecureString) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.bytes())
}

// Destroy wipes and releases the buffer. Safe to call more than once.
func (s *SecureString) Destroy() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.buf != nil {
		s.buf.Destroy()
		s.buf = nil
	}
}

// IsEmpty returns true if the string is empty or destroyed.
func (s *SecureString) IsEmpty() bool {
	return s.Len() == 0
}

func (s *SecureString) bytes() []byte {
	if s.buf == nil || !s.buf.IsAlive() {
		return nil
	}
	return s.buf.Bytes()
}
