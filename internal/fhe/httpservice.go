package fhe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/common"
	"github.com/dmitrijs2005/invisibledrop/internal/cryptox"
)

// HTTPService talks to the decryption relayer over its JSON API.
type HTTPService struct {
	baseURL    string
	token      string
	httpClient *http.Client

	mu     sync.Mutex
	domain *Domain
}

// NewHTTPService returns a Service for the relayer at baseURL. token is sent
// in the access token header; it may be empty for Domain.
func NewHTTPService(baseURL, token string) *HTTPService {
	return &HTTPService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Domain returns the relayer's EIP-712 domain, fetched once.
func (s *HTTPService) Domain(ctx context.Context) (Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.domain != nil {
		return *s.domain, nil
	}

	var d Domain
	if err := s.do(ctx, http.MethodGet, "/v1/domain", nil, &d); err != nil {
		return Domain{}, err
	}
	s.domain = &d
	return d, nil
}

// UserDecrypt posts the grant and opens each sealed result with
// req.PrivateKey.
func (s *HTTPService) UserDecrypt(ctx context.Context, req UserDecryptRequest) (map[string]*big.Int, error) {
	body := UserDecryptBody{
		PublicKey:      req.PublicKey,
		Signature:      req.Signature,
		Contracts:      req.Contracts,
		User:           req.User,
		StartTimestamp: strconv.FormatInt(req.StartTimestamp, 10),
		DurationDays:   strconv.FormatInt(req.DurationDays, 10),
	}
	for _, p := range req.Pairs {
		body.Pairs = append(body.Pairs, WirePair{Handle: p.Handle.String(), ContractAddress: p.ContractAddress})
	}

	var resp UserDecryptResponse
	if err := s.do(ctx, http.MethodPost, "/v1/user-decrypt", body, &resp); err != nil {
		return nil, err
	}

	out := make(map[string]*big.Int, len(resp.Results))
	for handle, sealed := range resp.Results {
		plain, err := cryptox.OpenWith(req.PrivateKey, sealed)
		if err != nil {
			return nil, &DecryptionError{Reason: ErrNoResult, Err: fmt.Errorf("open result for %s: %w", handle, err)}
		}
		v, ok := new(big.Int).SetString(string(plain), 10)
		cryptox.Wipe(plain)
		if !ok {
			return nil, &DecryptionError{Reason: ErrNoResult, Err: fmt.Errorf("result for %s is not an integer", handle)}
		}
		out[strings.ToLower(handle)] = v
	}
	return out, nil
}

func (s *HTTPService) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return &DecryptionError{Reason: ErrServiceUnavailable, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set(common.AccessTokenHeaderName, s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &DecryptionError{Reason: ErrServiceUnavailable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return statusError(resp.StatusCode, e)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecryptionError{Reason: ErrServiceUnavailable, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func statusError(status int, e ErrorResponse) error {
	cause := errors.New(e.Message)
	if e.Message == "" {
		cause = fmt.Errorf("relayer returned %d", status)
	}

	switch e.Error {
	case CodeGrantExpired:
		return &DecryptionError{Reason: ErrGrantExpired, Err: cause}
	case CodeBadSignature:
		return &DecryptionError{Reason: ErrSignatureRejected, Err: cause}
	case CodeACLDenied:
		return &DecryptionError{Reason: ErrAccessDenied, Err: cause}
	case CodeNotFound:
		return &DecryptionError{Reason: ErrNoResult, Err: cause}
	case CodeUnauthorized:
		return &DecryptionError{Reason: ErrAccessDenied, Err: fmt.Errorf("%w: %v", common.ErrorUnauthorized, cause)}
	}

	if status == http.StatusUnauthorized {
		return &DecryptionError{Reason: ErrAccessDenied, Err: fmt.Errorf("%w: %v", common.ErrorUnauthorized, cause)}
	}
	return &DecryptionError{Reason: ErrServiceUnavailable, Err: cause}
}
