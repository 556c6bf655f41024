package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mkshitij1763/e-commerce-api/internal/checkout"
	"github.com/mkshitij1763/e-commerce-api/internal/order"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"message": msg})
}

// writeError maps domain errors onto the wire contract. Anything unexpected
// is logged and surfaced as a generic 500 without internal detail.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrProductMissing),
		errors.Is(err, checkout.ErrInsufficientStock),
		errors.Is(err, checkout.ErrStockRaceLost),
		errors.Is(err, order.ErrInvalidPaymentRef),
		errors.Is(err, order.ErrAlreadyPaid),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrUnknownStatus):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrForbidden):
		writeMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	default:
		log.Error("request failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "server error")
	}
}
