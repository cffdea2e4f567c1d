package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"zxsgit/internal/models"
)

func (h *Handler) ListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.store.Todos(r.Context())
	if err != nil {
		h.fail(w, r, "list todos", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, models.TodosResponse{Envelope: ok(""), Todos: todos})
}

// SaveTodos replaces the whole list.
func (h *Handler) SaveTodos(w http.ResponseWriter, r *http.Request) {
	var in models.TodosRequest
	if !decode(w, r, &in) {
		return
	}
	todos, valid := in.List()
	if !valid {
		models.WriteFail(w, http.StatusBadRequest, "Invalid todos format")
		return
	}
	if err := h.store.SaveTodos(r.Context(), todos); err != nil {
		h.fail(w, r, "save todos", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, models.TodosResponse{Envelope: ok("Todos saved"), Todos: todos})
}

func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.Companies(r.Context())
	if err != nil {
		h.fail(w, r, "list companies", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, models.CompaniesResponse{Envelope: ok(""), Companies: list})
}

func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Company(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, "get company", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, models.CompanyResponse{Envelope: ok(""), Company: c})
}

// savedMessage reports dropped gallery images in place of the plain success text.
func savedMessage(def string, rejected int) string {
	if msg := models.GalleryRejectedMessage(rejected); msg != "" {
		return msg
	}
	return def
}

func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var in models.CompanyInput
	if !decode(w, r, &in) {
		return
	}
	c, rejected, err := h.store.CreateCompany(r.Context(), in)
	if err != nil {
		h.fail(w, r, "create company", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, models.CompanyResponse{
		Envelope: ok(savedMessage("Company created", rejected)),
		Company:  c,
	})
}

func (h *Handler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	var in models.CompanyInput
	if !decode(w, r, &in) {
		return
	}
	c, rejected, err := h.store.UpdateCompany(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		h.fail(w, r, "update company", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, models.CompanyResponse{
		Envelope: ok(savedMessage("Company updated", rejected)),
		Company:  c,
	})
}

func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteCompany(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, "delete company", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, ok("Company deleted"))
}
