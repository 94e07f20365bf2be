// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"strconv"
	"strings"
)

// StroopDecimals is the number of decimal places in a native amount.
const StroopDecimals = 7

// FormatAmountWithDecimals formats an integer amount of base units with the
// given number of decimal places. If decimals is 0, returns the raw integer value.
func FormatAmountWithDecimals(amountUnits int64, decimals int) string {
	neg := amountUnits < 0
	u := uint64(amountUnits)
	if neg {
		u = uint64(-amountUnits)
	}
	digits := strconv.FormatUint(u, 10)
	if decimals > 0 {
		if len(digits) <= decimals {
			digits = strings.Repeat("0", decimals-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-decimals] + "." + digits[len(digits)-decimals:]
	}
	if neg {
		return "-" + digits
	}
	return digits
}
