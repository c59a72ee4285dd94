package ledger

import domain "custody/internal/domain/ledger"

// accessControl gates owner-only operations. The owner is read from the
// ledger state and can never be reassigned.
type accessControl struct {
	owner domain.Address
}

func (a accessControl) RequireOwner(caller domain.Address) error {
	if caller != a.owner {
		return domain.ErrUnauthorized
	}
	return nil
}
