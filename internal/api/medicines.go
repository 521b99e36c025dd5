package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"pharmacy/m/domain"
)

// medicineRequest is the full replacement payload for create and update.
// Pointers distinguish a missing price or stock from an explicit zero.
type medicineRequest struct {
	Name         string           `json:"name" validate:"required,max=100"`
	Description  string           `json:"description" validate:"required,max=100"`
	Manufacturer string           `json:"manufacturer" validate:"required,max=100"`
	Price        *decimal.Decimal `json:"price" validate:"required"`
	Stock        *int64           `json:"stock" validate:"required,gte=0,lte=2147483647"`
}

func (req medicineRequest) fields() domain.MedicineFields {
	return domain.MedicineFields{
		Name:         req.Name,
		Description:  req.Description,
		Manufacturer: req.Manufacturer,
		Price:        *req.Price,
		Stock:        *req.Stock,
	}
}

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.medicines.List(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, medicines)
}

func (h *Handler) getMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	medicine, err := h.medicines.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, medicine)
}

func (h *Handler) createMedicine(w http.ResponseWriter, r *http.Request) {
	var req medicineRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	id, err := h.medicines.Create(r.Context(), req.fields())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "medicine created",
		"id":      id,
	})
}

func (h *Handler) updateMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	var req medicineRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := h.medicines.Update(r.Context(), id, req.fields()); err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondMessage(w, "medicine updated")
}

func (h *Handler) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := h.medicines.Delete(r.Context(), id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondMessage(w, "medicine deleted")
}
