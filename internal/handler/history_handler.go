package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"teamchat/internal/app/chat"
	"teamchat/internal/pkg/auth/jwt"
	"teamchat/internal/pkg/errs"
	"teamchat/internal/pkg/resp"
)

// HandleListMessages serves one page of channel history.
//
//	GET /api/channels/{channelID}/messages?limit=50&before=1234
func HandleListMessages(hub *chat.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAuthFailed))
			return
		}

		query := r.URL.Query()

		limit := 0
		if raw := query.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidLimit))
				return
			}
			limit = n
		}

		page, err := hub.FetchHistory(r.Context(), identity.ID, chi.URLParam(r, "channelID"), limit, query.Get("before"))
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, page)
	}
}
