package httpapi

import (
	"net/http"

	"github.com/nakayama-software/ciren-sub000/internal/receiver/config"
)

func NewServer(cfg config.Config, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: requestLogger(mux),
	}
}
