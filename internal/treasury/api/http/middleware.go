package treasuryhttp

import (
	"net/http"
	"strings"

	"github.com/hearthvault/hearthvault/internal/platform/authtoken"
	apperrors "github.com/hearthvault/hearthvault/internal/platform/errors"
	"github.com/hearthvault/hearthvault/internal/platform/requestctx"
)

// requireAuth verifies the bearer identity token and stores the caller
// identity in the request context.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, h.logger, apperrors.New(apperrors.CodeUnauthenticated, "bearer token is required"))
			return
		}

		claims, err := authtoken.Verify(token, h.verifier)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}

		ctx := requestctx.WithIdentity(r.Context(), claims.Identity)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
