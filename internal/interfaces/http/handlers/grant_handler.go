package handlers

import (
	"net/http"

	"github.com/turtacn/grantsync/internal/domain/patent"
	"github.com/turtacn/grantsync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/grantsync/pkg/errors"
)

// GrantHandler serves stored grants read-only.
type GrantHandler struct {
	store  patent.Store
	logger logging.Logger
}

// NewGrantHandler returns a handler reading from store.
func NewGrantHandler(store patent.Store, logger logging.Logger) *GrantHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GrantHandler{store: store, logger: logger.Named("grant_handler")}
}

// GrantListResponse is the body of GET /api/v1/grants.
type GrantListResponse struct {
	From   patent.Date     `json:"from"`
	To     patent.Date     `json:"to"`
	Count  int             `json:"count"`
	Grants []patent.Patent `json:"grants"`
}

// List handles GET /api/v1/grants?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *GrantHandler) List(w http.ResponseWriter, r *http.Request) {
	from, err := dateParam(r, "from")
	if err != nil {
		writeAppError(w, err)
		return
	}
	to, err := dateParam(r, "to")
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := patent.ValidateRange(from, to); err != nil {
		writeAppError(w, err)
		return
	}

	grants, err := h.store.Load(r.Context(), from, to)
	if err != nil {
		h.logger.Error("failed to load grants",
			logging.Stringer("from", from),
			logging.Stringer("to", to),
			logging.Err(err))
		writeAppError(w, err)
		return
	}
	if grants == nil {
		grants = []patent.Patent{}
	}

	writeJSON(w, http.StatusOK, GrantListResponse{
		From:   from,
		To:     to,
		Count:  len(grants),
		Grants: grants,
	})
}

func dateParam(r *http.Request, name string) (patent.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return patent.Date{}, errors.New(errors.ErrCodeBadRequest, "missing query parameter").WithDetail(name)
	}
	d, err := patent.ParseDate(raw)
	if err != nil {
		return patent.Date{}, errors.New(errors.ErrCodeBadRequest, "query parameter must be YYYY-MM-DD").
			WithDetail(name + "=" + raw).
			WithCause(err)
	}
	return d, nil
}
