package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/malipravin2580/Data-Manager/internal/domain"
	"github.com/malipravin2580/Data-Manager/internal/service"
	"github.com/malipravin2580/Data-Manager/internal/tabular"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError переводит бизнес-ошибки в HTTP-коды.
func writeError(w http.ResponseWriter, err error) {
	var storageErr *tabular.StorageError

	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, tabular.ErrUnsupportedFormat):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidToken):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, domain.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, tabular.ErrFileNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &storageErr):
		// Путь и причина сбоя хранилища уходят клиенту как есть
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// requestMeta достает IP и User-Agent запроса для журналов.
func requestMeta(r *http.Request) service.RequestMeta {
	meta := service.RequestMeta{}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		host = forwarded
	}
	if host != "" {
		meta.IPAddress = &host
	}

	if ua := r.UserAgent(); ua != "" {
		meta.UserAgent = &ua
	}
	return meta
}
