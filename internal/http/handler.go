package http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/circulx/products-rag/internal/app"
	"github.com/circulx/products-rag/internal/rag"
)

// Readiness is the part of app.App the handlers need.
type Readiness interface {
	State() app.State
	Service() (*rag.Service, bool)
}

type Handler struct {
	app Readiness
	log *zap.Logger
}

func NewHandler(a Readiness, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{app: a, log: log}
}

type messageResponse struct {
	Message string `json:"message"`
}

type loadingResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type statusResponse struct {
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Home is the liveness endpoint. It answers regardless of startup state.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Products RAG is running"})
}

// Status reports the readiness of the query path.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.app.State()
	writeJSON(w, http.StatusOK, statusResponse{State: st.Status.String(), Reason: st.Reason})
}

// Query answers ?q= for ?seller=. Before startup has succeeded it reports
// Loading without touching the store or the model.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	for _, name := range []string{"q", "seller"} {
		if _, ok := params[name]; !ok {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "missing query parameter: " + name})
			return
		}
	}
	q := rag.Query{Text: params.Get("q"), Seller: params.Get("seller")}

	svc, ok := h.app.Service()
	if !ok {
		writeJSON(w, http.StatusOK, loadingResponse{Status: "Loading", Message: "Server still starting"})
		return
	}

	res, err := svc.Answer(r.Context(), q)
	if err != nil {
		h.log.Error("query failed", zap.String("query", q.Text), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
