package api

import (
	"net/http"
)

type identityResponse struct {
	Registered  bool   `json:"registered"`
	ProcessorID string `json:"processor_id"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Protected handlers
func (a *API) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	processorID, ok, err := a.store.Get(r.Context(), claims.UserID)
	if err != nil {
		a.logger.Error("failed to look up identity", "user", claims.UserID, "error", err)
		http.Error(w, "failed to look up identity", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, identityResponse{Registered: ok, ProcessorID: processorID})
}

func (a *API) handleDeleteIdentity(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	if err := a.store.Delete(r.Context(), claims.UserID); err != nil {
		a.logger.Error("failed to delete identity", "user", claims.UserID, "error", err)
		http.Error(w, "failed to delete identity", http.StatusInternalServerError)
		return
	}

	a.logger.Info("identity deleted via web", "user", claims.UserID)
	w.WriteHeader(http.StatusNoContent)
}
