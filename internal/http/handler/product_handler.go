package handler

import (
	"net/http"

	"github.com/pmstore/pmstore-api/internal/http/response"
	"github.com/pmstore/pmstore-api/internal/service"
)

const msgProductNotFound = "Product not found"

type ProductHandler struct {
	products *service.ProductService
}

func NewProductHandler(products *service.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.products.List(r.Context(), pageRequest(r))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, r, "Products retrieved successfully", page)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		response.WriteError(w, r, err)
		return
	}
	p, err := h.products.Create(r.Context(), in)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Created(w, r, "Product created successfully", p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", msgProductNotFound)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	var in service.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		response.WriteError(w, r, err)
		return
	}
	p, err := h.products.Update(r.Context(), id, in)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, r, "Product updated successfully", p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", msgProductNotFound)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, r, "Product deleted successfully", map[string]string{"id": id.String()})
}
