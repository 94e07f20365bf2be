// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package txn

import (
	"fmt"
	"os"
	"strings"

	sdkjson "github.com/algorand/go-algorand-sdk/v2/encoding/json"
)

// ParseEnvelopeFile reads a transaction or envelope from path.
func ParseEnvelopeFile(path, passphrase string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseEnvelopeData(data, passphrase)
}

// ParseEnvelopeData auto-detects format. A JSON document is an unsigned
// transaction and is wrapped in a new envelope for passphrase. Anything else
// is taken as an encoded envelope, which must be for the same network.
func ParseEnvelopeData(data []byte, passphrase string) (*Envelope, error) {
	text := strings.TrimSpace(string(data))

	if strings.HasPrefix(text, "{") {
		var tx Transaction
		if err := sdkjson.Decode([]byte(text), &tx); err != nil {
			return nil, fmt.Errorf("failed to parse JSON transaction: %w", err)
		}
		return NewEnvelope(tx, passphrase)
	}

	env, err := DecodeEnvelope(text)
	if err != nil {
		return nil, err
	}
	if env.Network != passphrase {
		return nil, fmt.Errorf("%w: envelope is for %q", ErrNetworkMismatch, env.Network)
	}
	return env, nil
}

// EncodeTransactionJSON renders tx in the JSON form ParseEnvelopeData accepts.
func EncodeTransactionJSON(tx Transaction) []byte {
	return sdkjson.Encode(tx)
}
