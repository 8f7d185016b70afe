package handler

import (
	"net/http"
	"strings"

	jwtmanager "github.com/morf1lo/jwt-pair-manager"
)

type principal struct {
	UserID string
	Role   string
}

func (p *principal) isAdmin() bool {
	return strings.ToLower(p.Role) == "admin"
}

// tokenFromRequest reads the bearer token, falling back to the token query
// parameter since browsers cannot set headers on websocket upgrades.
func tokenFromRequest(r *http.Request) string {
	if bearerHeader := r.Header.Get("Authorization"); strings.HasPrefix(bearerHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(bearerHeader, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

func (h *Handler) authMiddleware(r *http.Request) (*principal, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return nil, errNoToken
	}

	claims, err := jwtmanager.DecodeJWT(token, []byte(h.auth.AccessSecret))
	if err != nil {
		return nil, errInvalidJWT
	}

	userID, ok := claims["id"].(string)
	if !ok || userID == "" {
		return nil, errInvalidJWT
	}
	role, _ := claims["role"].(string)

	return &principal{UserID: userID, Role: role}, nil
}

// userMiddleware lets through the owner of userID and admins.
func (h *Handler) userMiddleware(r *http.Request, userID string) error {
	if !h.auth.Enabled {
		return nil
	}

	p, err := h.authMiddleware(r)
	if err != nil {
		return err
	}

	if p.UserID != userID && !p.isAdmin() {
		return errForeignUser
	}

	return nil
}
