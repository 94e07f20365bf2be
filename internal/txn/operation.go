// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package txn

import "fmt"

// OperationType names a ledger operation kind.
type OperationType string

const (
	OpCreateAccount                 OperationType = "create_account"
	OpPayment                       OperationType = "payment"
	OpPathPaymentStrictReceive      OperationType = "path_payment_strict_receive"
	OpPathPaymentStrictSend         OperationType = "path_payment_strict_send"
	OpManageSellOffer               OperationType = "manage_sell_offer"
	OpManageBuyOffer                OperationType = "manage_buy_offer"
	OpCreatePassiveSellOffer        OperationType = "create_passive_sell_offer"
	OpSetOptions                    OperationType = "set_options"
	OpChangeTrust                   OperationType = "change_trust"
	OpAllowTrust                    OperationType = "allow_trust"
	OpAccountMerge                  OperationType = "account_merge"
	OpInflation                     OperationType = "inflation"
	OpManageData                    OperationType = "manage_data"
	OpBumpSequence                  OperationType = "bump_sequence"
	OpCreateClaimableBalance        OperationType = "create_claimable_balance"
	OpClaimClaimableBalance         OperationType = "claim_claimable_balance"
	OpBeginSponsoringFutureReserves OperationType = "begin_sponsoring_future_reserves"
	OpEndSponsoringFutureReserves   OperationType = "end_sponsoring_future_reserves"
	OpRevokeSponsorship             OperationType = "revoke_sponsorship"
	OpClawback                      OperationType = "clawback"
	OpClawbackClaimableBalance      OperationType = "clawback_claimable_balance"
	OpSetTrustLineFlags             OperationType = "set_trust_line_flags"
	OpLiquidityPoolDeposit          OperationType = "liquidity_pool_deposit"
	OpLiquidityPoolWithdraw         OperationType = "liquidity_pool_withdraw"
	OpInvokeHostFunction            OperationType = "invoke_host_function"
	OpExtendFootprintTTL            OperationType = "extend_footprint_ttl"
	OpRestoreFootprint              OperationType = "restore_footprint"
)

// ThresholdClass is the authorization level an operation requires.
// Classes are ordered: Low < Medium < High.
type ThresholdClass uint8

const (
	Low ThresholdClass = iota + 1
	Medium
	High
)

func (c ThresholdClass) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return fmt.Sprintf("ThresholdClass(%d)", uint8(c))
	}
}

// operationClasses is the static classification of every known operation.
// Anything not Low or High is Medium.
var operationClasses = map[OperationType]ThresholdClass{
	OpCreateAccount:                 Medium,
	OpPayment:                       Medium,
	OpPathPaymentStrictReceive:      Medium,
	OpPathPaymentStrictSend:         Medium,
	OpManageSellOffer:               Medium,
	OpManageBuyOffer:                Medium,
	OpCreatePassiveSellOffer:        Medium,
	OpSetOptions:                    High,
	OpChangeTrust:                   Medium,
	OpAllowTrust:                    Low,
	OpAccountMerge:                  High,
	OpInflation:                     Low,
	OpManageData:                    Medium,
	OpBumpSequence:                  Low,
	OpCreateClaimableBalance:        Medium,
	OpClaimClaimableBalance:         Low,
	OpBeginSponsoringFutureReserves: Medium,
	OpEndSponsoringFutureReserves:   Medium,
	OpRevokeSponsorship:             Medium,
	OpClawback:                      Medium,
	OpClawbackClaimableBalance:      Medium,
	OpSetTrustLineFlags:             Low,
	OpLiquidityPoolDeposit:          Medium,
	OpLiquidityPoolWithdraw:         Medium,
	OpInvokeHostFunction:            Medium,
	OpExtendFootprintTTL:            Low,
	OpRestoreFootprint:              Low,
}

// Known reports whether t is a recognized operation type.
func (t OperationType) Known() bool {
	_, ok := operationClasses[t]
	return ok
}

// Classify returns the threshold class of t. Unknown types are Medium;
// Transaction.Validate rejects them before they reach authorization.
func Classify(t OperationType) ThresholdClass {
	if c, ok := operationClasses[t]; ok {
		return c
	}
	return Medium
}
