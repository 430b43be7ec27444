package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pmstore/pmstore-api/internal/apperr"
	"github.com/pmstore/pmstore-api/internal/repository"
)

// decodeJSON reads a JSON body into dst. An empty body leaves dst zeroed so
// that field validation produces the usual messages.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperr.Validation("Request body too large")
	}
	return apperr.Validation("Invalid request body")
}

func pageRequest(r *http.Request) repository.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	return repository.PageRequest{Page: page, PageSize: size}
}

func uuidParam(r *http.Request, name, notFound string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.NotFound(notFound)
	}
	return id, nil
}
