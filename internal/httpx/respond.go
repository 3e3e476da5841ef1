package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"storefront-backend/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto HTTP statuses. Transaction
// failures are logged with context and surfaced as opaque 500s.
func writeError(w http.ResponseWriter, err error) {
	var (
		ve *orders.ValidationError
		re *orders.InvalidReferenceError
		fe *orders.ForbiddenError
		nf *orders.NotFoundError
		ue *orders.UnauthorizedError
		te *orders.TransactionError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": ve.Error()})
	case errors.As(err, &re):
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": re.Error(), "invalidIds": re.IDs})
	case errors.As(err, &fe):
		writeJSON(w, http.StatusForbidden, map[string]string{"message": fe.Error()})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": nf.Error()})
	case errors.As(err, &ue):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": ue.Error()})
	case errors.As(err, &te):
		log.Printf("transaction error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
	default:
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
	}
}
