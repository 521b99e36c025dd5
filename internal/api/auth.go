package api

import "net/http"

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type passwordRequest struct {
	NewPassword string `json:"new_password" validate:"required,max=72"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

// resetPassword changes the caller's own password.
func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	var req passwordRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := h.users.ResetPassword(r.Context(), id, req.NewPassword); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.log.Info().Int64("user_id", id).Msg("password changed")
	respondMessage(w, "password updated")
}
