// Package httpapi exposes the decryption relayer over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/fhe"
	"github.com/dmitrijs2005/invisibledrop/internal/logging"
	rmodels "github.com/dmitrijs2005/invisibledrop/internal/relayer/models"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DecryptService is the business logic behind the routes.
type DecryptService interface {
	Domain() fhe.Domain
	RegisterHandle(ctx context.Context, client string, body fhe.RegisterHandleBody) (*rmodels.Ciphertext, error)
	UserDecrypt(ctx context.Context, client string, body fhe.UserDecryptBody) (map[string]hexutil.Bytes, error)
	AuditTrail(ctx context.Context, user common.Address, limit int) ([]rmodels.AuditEntry, error)
}

type Server struct {
	address         string
	service         DecryptService
	logger          logging.Logger
	jwtSecret       []byte
	shutdownTimeout time.Duration
}

func NewServer(address string, l logging.Logger, service DecryptService, secretKey string, shutdownTimeout time.Duration) *Server {
	return &Server{
		address:         address,
		service:         service,
		logger:          l.With("module", "http_server"),
		jwtSecret:       []byte(secretKey),
		shutdownTimeout: shutdownTimeout,
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	err := srv.Serve(listen)
	cancel()
	<-done
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
