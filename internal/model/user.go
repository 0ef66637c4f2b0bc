package model

import "time"

// User represents a row in the `users` table.  The json tags are
// omitted because these structs are used by the repository layer;
// handlers define their own response types.
//
// Fields:
//  ID            – primary key identifier.
//  Email         – unique, lower-cased email address.
//  PasswordHash  – bcrypt hashed password.
//  FullName      – display name.
//  Role          – student or admin, fixed at creation.
//  WalletAddress – optional payout wallet, mutable by the owner.
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type User struct {
	ID            uint64    // users.id
	Email         string    // users.email
	PasswordHash  string    // users.password_hash
	FullName      string    // users.full_name
	Role          Role      // users.role
	WalletAddress *string   // users.wallet_address (nullable)
	CreatedAt     time.Time // users.created_at
	UpdatedAt     time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token handed to the client is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
