// Package services contains the relayer business logic: registering
// ciphertext plaintexts and answering authorised user-decrypt requests.
package services

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/common"
	"github.com/dmitrijs2005/invisibledrop/internal/cryptox"
	"github.com/dmitrijs2005/invisibledrop/internal/dbx"
	"github.com/dmitrijs2005/invisibledrop/internal/fhe"
	"github.com/dmitrijs2005/invisibledrop/internal/logging"
	"github.com/dmitrijs2005/invisibledrop/internal/models"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/config"
	rmodels "github.com/dmitrijs2005/invisibledrop/internal/relayer/models"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/repositories/repomanager"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

const (
	DomainName    = "Decryption"
	DomainVersion = "1"
)

// DecryptService stands in for the threshold decryption network. It holds
// plaintexts registered by operators and releases them, sealed to an
// ephemeral key, to users holding a valid signed grant.
type DecryptService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	domain       fhe.Domain
	maxGrantDays int64
	logger       logging.Logger
	now          func() time.Time
}

func NewDecryptService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) (*DecryptService, error) {
	verifying, err := cfg.VerifyingContractAddress()
	if err != nil {
		return nil, err
	}
	return &DecryptService{
		db:          db,
		repomanager: m,
		domain: fhe.Domain{
			Name:              DomainName,
			Version:           DomainVersion,
			ChainID:           cfg.ChainID,
			VerifyingContract: verifying,
		},
		maxGrantDays: cfg.MaxGrantDays,
		logger:       logger.With("module", "decrypt_service"),
		now:          time.Now,
	}, nil
}

// Domain is the EIP-712 domain grants must be signed under.
func (s *DecryptService) Domain() fhe.Domain {
	return s.domain
}

// RegisterHandle stores the plaintext of a handle with the accounts allowed
// to decrypt it. Re-registering replaces value and ACL.
func (s *DecryptService) RegisterHandle(ctx context.Context, client string, body fhe.RegisterHandleBody) (*rmodels.Ciphertext, error) {
	h, err := models.ParseHandle(body.Handle)
	if err != nil {
		return nil, refuse(fhe.CodeBadRequest, "%v", err)
	}
	if body.Contract == (ethcommon.Address{}) {
		return nil, refuse(fhe.CodeBadRequest, "contract is required")
	}
	value, err := decimal.NewFromString(strings.TrimSpace(body.Value))
	if err != nil || !value.IsInteger() || value.IsNegative() {
		return nil, refuse(fhe.CodeBadRequest, "value must be a non-negative integer")
	}

	c := &rmodels.Ciphertext{
		Handle:   h.String(),
		Contract: body.Contract,
		Value:    value,
		Allowed:  body.Allowed,
	}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Handles(tx).Register(ctx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("register handle: %w", err)
	}

	s.logger.Info(ctx, "handle registered", "client", client, "handle", c.Handle, "contract", c.Contract.Hex(), "allowed", len(c.Allowed))
	return c, nil
}

// UserDecrypt checks the grant in body and returns each requested plaintext
// sealed to body.PublicKey, keyed by lowercase handle. Refusals are
// *PolicyError. Every call is written to the audit log.
func (s *DecryptService) UserDecrypt(ctx context.Context, client string, body fhe.UserDecryptBody) (map[string]hexutil.Bytes, error) {
	entry := &rmodels.AuditEntry{Client: client, User: body.User}
	for _, p := range body.Pairs {
		entry.Handles = append(entry.Handles, strings.ToLower(p.Handle))
	}

	results, err := s.userDecrypt(ctx, body)
	switch {
	case err == nil:
		entry.Outcome = rmodels.OutcomeGranted
	case CodeOf(err) == fhe.CodeInternal:
		entry.Outcome = rmodels.OutcomeFailed
		entry.Reason = fhe.CodeInternal
	default:
		entry.Outcome = rmodels.OutcomeDenied
		entry.Reason = CodeOf(err)
	}

	if aerr := s.repomanager.Audit(s.db).Record(ctx, entry); aerr != nil {
		if err == nil {
			return nil, fmt.Errorf("audit: %w", aerr)
		}
		s.logger.Warn(ctx, "audit write failed", "error", aerr)
	}

	if err != nil {
		s.logger.Info(ctx, "user decrypt refused", "client", client, "user", body.User.Hex(), "reason", entry.Reason, "audit_id", entry.ID)
		return nil, err
	}
	s.logger.Info(ctx, "user decrypt granted", "client", client, "user", body.User.Hex(), "handles", len(results), "audit_id", entry.ID)
	return results, nil
}

func (s *DecryptService) userDecrypt(ctx context.Context, body fhe.UserDecryptBody) (map[string]hexutil.Bytes, error) {
	start, days, sig, err := checkShape(body)
	if err != nil {
		return nil, err
	}
	defer cryptox.Wipe(sig)

	if days < 1 || days > s.maxGrantDays {
		return nil, refuse(fhe.CodeBadRequest, "durationDays must be between 1 and %d", s.maxGrantDays)
	}

	grant := fhe.Grant{StartTimestamp: start, DurationDays: days, Contracts: body.Contracts}
	if grant.StartsAfter(s.now()) {
		return nil, refuse(fhe.CodeBadRequest, "grant not valid before %d", start)
	}
	if !grant.ValidAt(s.now()) {
		return nil, refuse(fhe.CodeGrantExpired, "grant valid from %d until %d", start, grant.ExpiresAt().Unix())
	}

	typed := fhe.CreateEIP712(s.domain, body.PublicKey, body.Contracts, start, days)
	signer, err := fhe.RecoverSigner(typed, sig)
	if err != nil {
		return nil, refuse(fhe.CodeBadSignature, "%v", err)
	}
	if signer != body.User {
		return nil, refuse(fhe.CodeBadSignature, "signature is not from %s", body.User.Hex())
	}

	for _, p := range body.Pairs {
		if !slices.Contains(body.Contracts, p.ContractAddress) {
			return nil, refuse(fhe.CodeACLDenied, "contract %s is not covered by the grant", p.ContractAddress.Hex())
		}
	}

	repo := s.repomanager.Handles(s.db)
	results := make(map[string]hexutil.Bytes, len(body.Pairs))
	for _, p := range body.Pairs {
		h, _ := models.ParseHandle(p.Handle)
		c, err := repo.Get(ctx, h.String())
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, refuse(fhe.CodeNotFound, "handle %s", h)
			}
			return nil, err
		}
		if c.Contract != p.ContractAddress || !slices.Contains(c.Allowed, body.User) {
			return nil, refuse(fhe.CodeACLDenied, "%s may not decrypt %s", body.User.Hex(), c.Handle)
		}

		sealed, err := cryptox.SealTo(body.PublicKey, []byte(c.Value.String()))
		if err != nil {
			return nil, refuse(fhe.CodeBadRequest, "seal result: %v", err)
		}
		results[c.Handle] = sealed
	}
	return results, nil
}

func checkShape(body fhe.UserDecryptBody) (start, days int64, sig []byte, err error) {
	switch {
	case len(body.Pairs) == 0:
		return 0, 0, nil, refuse(fhe.CodeBadRequest, "pairs are required")
	case len(body.PublicKey) == 0:
		return 0, 0, nil, refuse(fhe.CodeBadRequest, "publicKey is required")
	case len(body.Contracts) == 0:
		return 0, 0, nil, refuse(fhe.CodeBadRequest, "contracts are required")
	case body.User == (ethcommon.Address{}):
		return 0, 0, nil, refuse(fhe.CodeBadRequest, "user is required")
	}
	for _, p := range body.Pairs {
		if _, err := models.ParseHandle(p.Handle); err != nil {
			return 0, 0, nil, refuse(fhe.CodeBadRequest, "%v", err)
		}
	}

	if start, err = strconv.ParseInt(body.StartTimestamp, 10, 64); err != nil {
		return 0, 0, nil, refuse(fhe.CodeBadRequest, "startTimestamp: %v", err)
	}
	if days, err = strconv.ParseInt(body.DurationDays, 10, 64); err != nil {
		return 0, 0, nil, refuse(fhe.CodeBadRequest, "durationDays: %v", err)
	}
	if sig, err = hex.DecodeString(strings.TrimPrefix(body.Signature, "0x")); err != nil || len(sig) == 0 {
		return 0, 0, nil, refuse(fhe.CodeBadRequest, "signature must be hex")
	}
	return start, days, sig, nil
}

// AuditTrail returns up to limit of the newest decrypt requests made for user.
func (s *DecryptService) AuditTrail(ctx context.Context, user ethcommon.Address, limit int) ([]rmodels.AuditEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.repomanager.Audit(s.db).ListByUser(ctx, user, limit)
}
