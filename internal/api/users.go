package api

import (
	"net/http"

	"pharmacy/m/domain"
)

type userRequest struct {
	Username string `json:"username" validate:"required,max=80"`
	Password string `json:"password" validate:"required,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin pharmacy_admin staff"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	id, err := h.users.Create(r.Context(), req.Username, req.Password, domain.Role(req.Role))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "user created",
		"id":      id,
	})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	acting, _ := identityFromContext(r.Context())
	if err := h.users.Delete(r.Context(), id, acting); err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondMessage(w, "user deleted")
}
