package httpapi

import (
	"database/sql"
	"net/http"

	"github.com/nakayama-software/ciren-sub000/internal/receiver/history"
)

func NewMux(db *sql.DB, repo history.Repository) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	registerHubRoutes(mux, repo)
	return mux
}
