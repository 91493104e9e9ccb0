package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface is implemented by Server.
type ServerInterface interface {
	// (GET /check/{n})
	CheckValue(w http.ResponseWriter, r *http.Request, n uint64)
	// (GET /memo)
	GetMemoStats(w http.ResponseWriter, r *http.Request)
	// (GET /memo/{n})
	GetMemoEntry(w http.ResponseWriter, r *http.Request, n uint64)
	// (POST /memo/snapshot)
	SnapshotMemo(w http.ResponseWriter, r *http.Request)
}

// wrapper binds path parameters before calling the handler.
type wrapper struct {
	handler ServerInterface
}

func (siw *wrapper) CheckValue(w http.ResponseWriter, r *http.Request) {
	n, ok := bindValue(w, r)
	if !ok {
		return
	}
	siw.handler.CheckValue(w, r, n)
}

func (siw *wrapper) GetMemoEntry(w http.ResponseWriter, r *http.Request) {
	n, ok := bindValue(w, r)
	if !ok {
		return
	}
	siw.handler.GetMemoEntry(w, r, n)
}

func bindValue(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	var n uint64
	err := runtime.BindStyledParameterWithOptions("simple", "n", chi.URLParam(r, "n"), &n,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter n: %s", err))
		return 0, false
	}
	return n, true
}

// HandlerFromMux registers every route of si on r and returns r.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	siw := &wrapper{handler: si}

	r.Get("/check/{n}", siw.CheckValue)
	r.Get("/memo", si.GetMemoStats)
	r.Get("/memo/{n}", siw.GetMemoEntry)
	r.Post("/memo/snapshot", si.SnapshotMemo)

	return r
}
