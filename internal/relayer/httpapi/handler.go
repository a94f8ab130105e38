package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/invisibledrop/internal/fhe"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/services"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type registerHandleResponse struct {
	Handle   string           `json:"handle"`
	Contract common.Address   `json:"contract"`
	Allowed  []common.Address `json:"allowed"`
}

type auditEntryResponse struct {
	ID        string   `json:"id"`
	Client    string   `json:"client"`
	Handles   []string `json:"handles"`
	Outcome   string   `json:"outcome"`
	Reason    string   `json:"reason,omitempty"`
	CreatedAt string   `json:"createdAt"`
}

func (s *Server) domain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Domain())
}

func (s *Server) registerHandle(w http.ResponseWriter, r *http.Request) {
	var req fhe.RegisterHandleBody
	if !decode(w, r, &req) {
		return
	}

	c, err := s.service.RegisterHandle(r.Context(), clientFromContext(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registerHandleResponse{Handle: c.Handle, Contract: c.Contract, Allowed: c.Allowed})
}

func (s *Server) userDecrypt(w http.ResponseWriter, r *http.Request) {
	var req fhe.UserDecryptBody
	if !decode(w, r, &req) {
		return
	}

	results, err := s.service.UserDecrypt(r.Context(), clientFromContext(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fhe.UserDecryptResponse{Results: results})
}

func (s *Server) auditTrail(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	if !common.IsHexAddress(user) {
		writeError(w, http.StatusBadRequest, fhe.CodeBadRequest, "invalid address")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.service.AuditTrail(r.Context(), common.HexToAddress(user), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			ID:        e.ID,
			Client:    e.Client,
			Handles:   e.Handles,
			Outcome:   e.Outcome,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := services.CodeOf(err)
	if code == fhe.CodeInternal {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, code, "internal error")
		return
	}
	writeError(w, statusFor(code), code, err.Error())
}

func statusFor(code string) int {
	switch code {
	case fhe.CodeBadRequest:
		return http.StatusBadRequest
	case fhe.CodeUnauthorized:
		return http.StatusUnauthorized
	case fhe.CodeGrantExpired, fhe.CodeBadSignature, fhe.CodeACLDenied:
		return http.StatusForbidden
	case fhe.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fhe.CodeBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, fhe.ErrorResponse{Error: code, Message: message})
}
