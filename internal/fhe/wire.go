package fhe

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// JSON bodies of the decryption relayer API.

// Error codes returned in ErrorResponse.Error.
const (
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeGrantExpired = "grant_expired"
	CodeBadSignature = "bad_signature"
	CodeACLDenied    = "acl_denied"
	CodeNotFound     = "not_found"
	CodeInternal     = "internal"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type WirePair struct {
	Handle          string         `json:"handle"`
	ContractAddress common.Address `json:"contractAddress"`
}

// UserDecryptBody is POST /v1/user-decrypt. Signature is hex without 0x;
// the numeric grant fields are decimal strings.
type UserDecryptBody struct {
	Pairs          []WirePair       `json:"pairs"`
	PublicKey      hexutil.Bytes    `json:"publicKey"`
	Signature      string           `json:"signature"`
	Contracts      []common.Address `json:"contracts"`
	User           common.Address   `json:"user"`
	StartTimestamp string           `json:"startTimestamp"`
	DurationDays   string           `json:"durationDays"`
}

// UserDecryptResponse maps each handle to its plaintext sealed to PublicKey.
type UserDecryptResponse struct {
	Results map[string]hexutil.Bytes `json:"results"`
}

// RegisterHandleBody is POST /v1/handles. Value is a decimal integer.
type RegisterHandleBody struct {
	Handle   string           `json:"handle"`
	Contract common.Address   `json:"contract"`
	Value    string           `json:"value"`
	Allowed  []common.Address `json:"allowed"`
}
