package model

import "time"

// School is a payee institution.  Advances may only name a school whose
// Verified flag is set.
type School struct {
	ID            uint64    // schools.id
	Name          string    // schools.name
	WalletAddress string    // schools.wallet_address (unique)
	Verified      bool      // schools.verified
	CreatedAt     time.Time // schools.created_at
}
