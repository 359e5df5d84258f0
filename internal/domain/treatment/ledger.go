package treatment

import (
	"github.com/google/uuid"

	"github.com/leonunesbs/injecoes-v2/internal/platform/apperror"
)

// insufficientBalance builds the conflict for a delta the guard rejected,
// naming the first eye that would go negative.
func insufficientBalance(patientID uuid.UUID, balanceOD, balanceOS int, d Delta) error {
	id := patientID.String()
	if balanceOD+d.BalanceOD() < 0 {
		return apperror.Conflict("balance_od", id, "insufficient OD balance: %d available, %d requested", balanceOD, -d.BalanceOD())
	}
	if balanceOS+d.BalanceOS() < 0 {
		return apperror.Conflict("balance_os", id, "insufficient OS balance: %d available, %d requested", balanceOS, -d.BalanceOS())
	}
	return apperror.Conflict("balance", id, "patient balance changed concurrently")
}

// validateDoses rejects negative quantities and an all-zero pair.
func validateDoses(fieldOD, fieldOS string, od, os int) error {
	if od < 0 {
		return apperror.Validation(fieldOD, "%s must not be negative", fieldOD)
	}
	if os < 0 {
		return apperror.Validation(fieldOS, "%s must not be negative", fieldOS)
	}
	if od == 0 && os == 0 {
		return apperror.Validation(fieldOD, "at least one eye must receive a positive quantity")
	}
	return nil
}
