// Package drafts is the orchestration core: it sequences the remote protocol
// for creating, publishing, fetching, and mutating shareable code drafts.
package drafts

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"draftshare/internal/identity"
	"draftshare/internal/model"
	"draftshare/internal/providerauth"

	"github.com/google/uuid"
)

// Transport issues requests to the drafts service and to opaque pre-signed
// blob URLs. Implemented by transport.Client; tests substitute fakes.
type Transport interface {
	JSON(ctx context.Context, op, method, path string, body, out any, hdr http.Header) error
	Upload(ctx context.Context, ref model.SecureBlobRef, content []byte) error
	Download(ctx context.Context, ref model.SecureBlobRef) ([]byte, error)
}

type Service struct {
	tp         Transport
	auth       *providerauth.Resolver
	identities *identity.Resolver
	account    model.Account
	logger     *slog.Logger
}

func NewService(tp Transport, auth *providerauth.Resolver, identities *identity.Resolver, account model.Account, logger *slog.Logger) *Service {
	return &Service{
		tp:         tp,
		auth:       auth,
		identities: identities,
		account:    account,
		logger:     logger,
	}
}

// logOp wraps one public operation with entry/exit/error logging. Callers
// defer the returned func with the operation's final error.
func (s *Service) logOp(name string, attrs ...any) func(err error) {
	logger := s.logger.With("op", name, "op_id", uuid.NewString())
	logger.Debug("operation started", attrs...)
	start := time.Now()
	return func(err error) {
		elapsed := time.Since(start)
		if err != nil {
			logger.Error("operation failed", "elapsed", elapsed, "err", err)
			return
		}
		logger.Debug("operation finished", "elapsed", elapsed)
	}
}

func providerAuthHeader(auth *model.ProviderAuth) http.Header {
	if auth == nil || auth.Token == "" {
		return nil
	}
	hdr := http.Header{}
	hdr.Set("Provider-Auth", auth.Token)
	return hdr
}

func (s *Service) normalizeCtx(fromPREntity bool) normalizeContext {
	return normalizeContext{
		account:            s.account,
		fallbackAuthorName: s.account.Name,
		fromPREntity:       fromPREntity,
	}
}
