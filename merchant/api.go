package merchant

import (
	"errors"
	"net/http"
	"sync"

	"github.com/alovak/cardflow-paycharge/merchant/models"
	"github.com/go-chi/chi/v5"
	json "github.com/json-iterator/go"
)

// API is a HTTP API for the merchant service
type API struct {
	svc *Service
	// one submission at a time, like the console
	mu sync.Mutex
}

func NewAPI(svc *Service) *API {
	return &API{
		svc: svc,
	}
}

func (a *API) AppendRoutes(r chi.Router) {
	r.Post("/payments", a.createPayment)
	r.Get("/state", a.getState)
	r.Get("/orders/{orderNumber}", a.getOrder)
}

type paymentError struct {
	models.Outcome
	Error string `json:"error"`
}

func (a *API) createPayment(w http.ResponseWriter, r *http.Request) {
	in := models.TransactionInput{}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	a.mu.Lock()
	outcome, err := a.svc.Process(r.Context(), in)
	a.mu.Unlock()

	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, struct {
			Errors []string `json:"errors"`
		}{verr.Result})
	case err != nil && outcome.Kind != "":
		// the gateway answered but something local failed afterwards
		writeJSON(w, http.StatusInternalServerError, paymentError{Outcome: outcome, Error: err.Error()})
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	case outcome.Kind == models.OutcomeTransportError:
		writeJSON(w, http.StatusBadGateway, outcome)
	default:
		writeJSON(w, http.StatusOK, outcome)
	}
}

func (a *API) getState(w http.ResponseWriter, r *http.Request) {
	id, err := a.svc.CurrentTransactionID(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		TransactionID int64 `json:"transaction_id"`
	}{id})
}

func (a *API) getOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	unique, err := a.svc.IsOrderUnique(r.Context(), orderNumber)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		OrderNumber string `json:"order_number"`
		Unique      bool   `json:"unique"`
	}{orderNumber, unique})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
