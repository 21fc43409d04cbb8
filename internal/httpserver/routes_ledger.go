// internal/httpserver/routes_ledger.go
//
// Stats and wallet surface:
//   - GET  /stats/me        → play statistics for the current player
//                             (optional auth; guests get their own counters)
//   - POST /wallet/withdraw → record a manual withdrawal request (gated)
//
// Withdrawal is acknowledgment-only: the request row is stored for manual
// follow-up and the balance is never decreased in-app.

package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tomitooni/go-server/internal/record"
	"github.com/tomitooni/go-server/internal/stats"
)

// mountLedgerRoutes registers /stats and /wallet endpoints.
func (s *Server) mountLedgerRoutes() {
	s.r.With(s.withOptionalAuth()).Get("/stats/me", s.handleStats)
	s.r.With(s.requireAuth()).Post("/wallet/withdraw", s.handleWithdraw)
}

// handleStats returns the player's accumulated statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	p := s.playerFrom(w, r)
	var st stats.PlayerStats
	if _, err := s.records.Load(r.Context(), record.StatsKey(p.ID), &st); err != nil {
		http.Error(w, `{"error":"stats_failed"}`, http.StatusInternalServerError)
		return
	}
	out := map[string]any{
		"gamesPlayed":    st.GamesPlayed,
		"gamesWon":       st.GamesWon,
		"currentStreak":  st.CurrentStreak,
		"maxStreak":      st.MaxStreak,
		"totalGuesses":   st.TotalGuesses,
		"totalEarnings":  st.TotalEarnings,
		"averageGuesses": st.AverageGuesses(),
	}
	if p.User != nil {
		if u, err := s.findUserByID(p.User.ID); err == nil {
			out["walletBalance"] = u.WalletBalance
		}
	}
	_ = json.NewEncoder(w).Encode(out)
}

type withdrawReq struct {
	Contact string `json:"contact"` // messenger handle or phone for manual payout
	Amount  int    `json:"amount"`
}

// handleWithdraw validates and records a withdrawal request.
func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	if me == nil {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req withdrawReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	req.Contact = strings.TrimSpace(req.Contact)
	if req.Contact == "" {
		http.Error(w, `{"error":"contact_required"}`, http.StatusBadRequest)
		return
	}
	if req.Amount < stats.MinWithdrawal {
		http.Error(w, `{"error":"below_minimum"}`, http.StatusBadRequest)
		return
	}
	u, err := s.findUserByID(me.ID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusInternalServerError)
		return
	}
	if req.Amount > u.WalletBalance {
		http.Error(w, `{"error":"insufficient_balance"}`, http.StatusBadRequest)
		return
	}

	id, err := s.insertWithdrawal(u.ID, req.Contact, req.Amount)
	if err != nil {
		http.Error(w, `{"error":"withdraw_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":        true,
		"requestId": id,
		"status":    "pending",
		"message":   "درخواست برداشت ثبت شد و به صورت دستی پیگیری می‌شود.",
	})
}
