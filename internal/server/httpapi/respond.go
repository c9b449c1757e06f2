package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/docbox/internal/common"
)

type errorResponse struct {
	Reason string `json:"reason"`
}

func statusFor(k common.Kind) int {
	switch k {
	case common.KindValidation:
		return http.StatusBadRequest
	case common.KindNotFound:
		return http.StatusNotFound
	case common.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger(r).Warn(r.Context(), "failed to write response", "error", err)
	}
}

func (h *Handler) respondReason(w http.ResponseWriter, r *http.Request, status int, reason string) {
	h.respond(w, r, status, errorResponse{Reason: reason})
}

// writeError maps err to a status and a client safe reason. Anything that is
// not a *common.Error counts as an infrastructure failure; the cause of
// infrastructure failures is logged and never sent.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ce *common.Error
	if !errors.As(err, &ce) {
		ce = common.Infrastructure(err)
	}
	if ce.Kind == common.KindInfrastructure {
		h.logger(r).Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	h.respondReason(w, r, statusFor(ce.Kind), ce.Reason)
}
