package middleware

import (
	"errors"
	"net/http"
	"strings"

	"clinicq/pkg/auth"
	apperrors "clinicq/pkg/errors"
	"clinicq/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

// RoleGate wraps route handlers that need a staff role.
type RoleGate struct {
	authorizer auth.Authorizer
	log        *logger.Logger
}

func NewRoleGate(authorizer auth.Authorizer, log *logger.Logger) *RoleGate {
	return &RoleGate{authorizer: authorizer, log: log}
}

// Require lets the request through when the bearer token carries any of roles.
func (g *RoleGate) Require(next httprouter.Handle, roles ...string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token := bearerToken(r.Header.Get("Authorization"))

		principal, err := g.authorizer.Authorize(r.Context(), token, roles...)
		if err != nil {
			if errors.Is(err, auth.ErrForbidden) {
				reject(w, g.log, r, apperrors.Forbidden("Insufficient role"), "subject", principal.Subject)
				return
			}
			reject(w, g.log, r, apperrors.Unauthorized("Valid bearer token required"))
			return
		}

		next(w, r, ps)
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
