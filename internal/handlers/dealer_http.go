// internal/handlers/dealer_http.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"uno-dealer/internal/auth"
	"uno-dealer/internal/database"
	"uno-dealer/internal/game"
)

// createDealerRequest is the POST body for /dealer/create.
type createDealerRequest struct {
	Players []struct {
		Code string `json:"code"`
		Team string `json:"team,omitempty"`
	} `json:"players"`
	TotalTurn int `json:"total_turn,omitempty"`
}

// CreateDealerHandler creates the match master record, seats the requested
// players, builds the in-memory dealer, and returns one session token per
// seat.
func CreateDealerHandler(ds *DealerServer, cfg game.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}

		var req createDealerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if n := len(req.Players); n < 2 || n > 4 {
			http.Error(w, "need 2-4 players", http.StatusBadRequest)
			return
		}
		if req.TotalTurn > 0 {
			cfg.TotalTurn = req.TotalTurn
		}

		dealerCode := uuid.NewString()
		if _, err := database.CreateMatch(r.Context(), dealerCode, cfg.TotalTurn); err != nil {
			ds.Logf("failed to create match %s: %v", dealerCode, err)
			http.Error(w, "failed to create match", http.StatusInternalServerError)
			return
		}
		for i, p := range req.Players {
			if err := database.SeatPlayer(r.Context(), dealerCode, p.Code, p.Team, i); err != nil {
				ds.Logf("failed to seat player %s at %s: %v", p.Code, dealerCode, err)
				http.Error(w, "failed to seat players", http.StatusInternalServerError)
				return
			}
		}

		if _, err := ds.NewDealerFromMatch(r.Context(), dealerCode, cfg); err != nil {
			ds.Logf("failed to build dealer %s: %v", dealerCode, err)
			http.Error(w, "failed to build dealer", http.StatusInternalServerError)
			return
		}

		tokens := make(map[string]string, len(req.Players))
		for _, p := range req.Players {
			token, err := auth.CreatePlayerToken(p.Code, dealerCode)
			if err != nil {
				http.Error(w, "failed to sign session tokens", http.StatusInternalServerError)
				return
			}
			tokens[p.Code] = token
		}

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"dealer": dealerCode,
			"tokens": tokens,
		})
	}
}

// StartDealerHandler deals the first round for an existing dealer:
// POST /dealer/start/{code}.
func StartDealerHandler(ds *DealerServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		code := strings.TrimPrefix(r.URL.Path, "/dealer/start/")
		d, ok := ds.Dealers.GetDealer(code)
		if !ok {
			http.Error(w, "dealer not found", http.StatusNotFound)
			return
		}
		if err := d.StartMatch(); err != nil {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error_code": err.Code,
				"message":    err.Message,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"dealer": code, "status": "starting"})
	}
}

// DeskStateHandler serves the stored Desk snapshot for inspection:
// GET /dealer/state/{code}. Hands are included, so this surface is for
// operators, not players.
func DeskStateHandler(ds *DealerServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimPrefix(r.URL.Path, "/dealer/state/")
		desk, err := ds.Desks.Get(r.Context(), code)
		if err != nil {
			ds.Logf("failed to load desk %s: %v", code, err)
			http.Error(w, "failed to load desk", http.StatusInternalServerError)
			return
		}
		if desk == nil {
			http.Error(w, "desk not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, desk)
	}
}
