// Package models defines relayer records persisted in the database.
package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Ciphertext is a registered handle with its plaintext and ACL. Handle is
// the lowercase 0x form.
type Ciphertext struct {
	Handle    string
	Contract  common.Address
	Value     decimal.Decimal
	Allowed   []common.Address
	CreatedAt time.Time
}

// Outcomes recorded in the audit log.
const (
	OutcomeGranted = "granted"
	OutcomeDenied  = "denied"
	OutcomeFailed  = "failed"
)

// AuditEntry is one user-decrypt request.
type AuditEntry struct {
	ID        string
	Client    string
	User      common.Address
	Handles   []string
	Outcome   string
	Reason    string
	CreatedAt time.Time
}
