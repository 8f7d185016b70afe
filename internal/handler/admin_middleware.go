package handler

import "net/http"

func (h *Handler) adminMiddleware(r *http.Request) error {
	if !h.auth.Enabled {
		return nil
	}

	p, err := h.authMiddleware(r)
	if err != nil {
		return err
	}

	if !p.isAdmin() {
		return errNotAdmin
	}

	return nil
}
