// internal/httpserver/routes_game.go
//
// HTTP routes for gameplay. Mounted under /game with optional auth:
//   - POST /game/state    → load (or lazily reset) the player's game
//   - POST /game/guess    → submit a guess, await its semantic rank
//   - POST /game/giveup   → terminate the game, revealing the word
//   - POST /game/hint     → provider-generated hint, recorded as a guess
//   - POST /game/restart  → fresh random word (unlimited mode only)
//   - GET  /game/share    → result summary text for clipboard/native share
//
// Every state transition is followed by a full persistence write of the
// updated game record. While a rank call is outstanding for a player the
// server rejects further transitions of that game (guess, hint, give-up,
// restart) with 409 busy, so the blocked call's eventual save cannot clobber
// a newer state; there is no cancellation of in-flight provider calls.

package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/tomitooni/go-server/internal/game"
	"github.com/tomitooni/go-server/internal/record"
	"github.com/tomitooni/go-server/internal/stats"
	"github.com/tomitooni/go-server/internal/words"
)

// mountGame registers all /game routes.
func (s *Server) mountGame(r chi.Router) {
	r.Route("/game", func(r chi.Router) {
		r.Post("/state", s.handleGameState)
		r.Post("/guess", s.handleGuess)
		r.Post("/giveup", s.handleGiveUp)
		r.Post("/hint", s.handleHint)
		r.Post("/restart", s.handleRestart)
		r.Get("/share", s.handleShare)
	})
}

// parseMode validates the mode field; empty defaults to daily.
func parseMode(m string) (game.Mode, bool) {
	switch game.Mode(m) {
	case "", game.ModeDaily:
		return game.ModeDaily, true
	case game.ModeUnlimited:
		return game.ModeUnlimited, true
	default:
		return "", false
	}
}

// loadGame restores the player's persisted game for mode, replacing stale
// state (day rollover, tier change) with a fresh one, and persists the
// result so a reset survives before any guess is made.
func (s *Server) loadGame(r *http.Request, p player, mode game.Mode) *game.Game {
	key := record.GameKey(p.ID, string(mode))
	var saved game.Game
	var prior *game.Game
	if ok, err := s.records.Load(r.Context(), key, &saved); err == nil && ok {
		prior = &saved
	} else if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("load game record")
	}
	g := game.Restore(prior, mode, p.Tier(), s.now())
	if g != prior {
		s.saveGame(r, p, g)
	}
	return g
}

// saveGame persists the game record (best effort, non-fatal if it fails).
func (s *Server) saveGame(r *http.Request, p player, g *game.Game) {
	key := record.GameKey(p.ID, string(g.Mode))
	if err := s.records.Save(r.Context(), key, g); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("save game record")
	}
}

// gameView is the client-facing projection of a game. The target word is
// revealed only once the game is finished.
type gameView struct {
	Guesses          []game.Guess `json:"guesses"`
	Status           string       `json:"status"`
	Mode             game.Mode    `json:"mode"`
	Date             string       `json:"date"`
	GameNumber       int          `json:"gameNumber"`
	HintUsed         bool         `json:"hintUsed"`
	PrizeGuessesLeft int          `json:"prizeGuessesLeft"`
	TargetWord       string       `json:"targetWord,omitempty"`
}

func (s *Server) viewOf(g *game.Game) gameView {
	v := gameView{
		Guesses:    g.Guesses,
		Status:     g.Status(),
		Mode:       g.Mode,
		Date:       g.LastPlayedDate,
		GameNumber: words.GameNumber(s.now()),
		HintUsed:   g.HintUsed,
	}
	if left := stats.PrizeLimit - len(g.Guesses); left > 0 {
		v.PrizeGuessesLeft = left
	}
	if g.Finished() {
		v.TargetWord = g.TargetWord
	}
	return v
}

// -----------------------------------------------------------------------------
// /game/state

type stateReq struct {
	Mode string `json:"mode"`
}

// handleGameState loads or resets the player's game and returns its view.
func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	var req stateReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	mode, ok := parseMode(req.Mode)
	if !ok {
		http.Error(w, `{"error":"bad_mode"}`, http.StatusBadRequest)
		return
	}
	p := s.playerFrom(w, r)
	g := s.loadGame(r, p, mode)
	_ = json.NewEncoder(w).Encode(s.viewOf(g))
}

// -----------------------------------------------------------------------------
// /game/guess

type guessReq struct {
	Mode string `json:"mode"`
	Word string `json:"word"`
}
type guessRes struct {
	Guess game.Guess `json:"guess"`
	State gameView   `json:"state"`
}

// handleGuess applies a guess to the player's game, awaiting the external
// rank, and settles stats/wallet on a win.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	mode, ok := parseMode(req.Mode)
	if !ok {
		http.Error(w, `{"error":"bad_mode"}`, http.StatusBadRequest)
		return
	}
	p := s.playerFrom(w, r)

	// One outstanding rank call per game instance.
	flight := p.ID + "|" + string(mode)
	if !s.acquire(flight) {
		http.Error(w, `{"error":"busy"}`, http.StatusConflict)
		return
	}
	defer s.release(flight)

	g := s.loadGame(r, p, mode)
	guess, err := g.SubmitGuess(r.Context(), s.ranker, req.Word, s.now())
	if err != nil {
		writeGuessError(w, err)
		return
	}

	if g.Won {
		s.settle(r, p, g)
	}
	s.saveGame(r, p, g)
	_ = json.NewEncoder(w).Encode(guessRes{Guess: guess, State: s.viewOf(g)})
}

// writeGuessError maps engine errors onto HTTP statuses. Input problems are
// transient and recoverable; none of them mutate game state.
func writeGuessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrFinished):
		http.Error(w, `{"error":"game_finished"}`, http.StatusConflict)
	case errors.Is(err, game.ErrDuplicateGuess):
		http.Error(w, `{"error":"duplicate_guess"}`, http.StatusConflict)
	case errors.Is(err, game.ErrNotPersian), errors.Is(err, game.ErrNotAWord):
		http.Error(w, `{"error":"not_a_word"}`, http.StatusUnprocessableEntity)
	case errors.Is(err, game.ErrFirstGuessExact):
		// Heuristic anti-automation rule: an exact match on the very first
		// guess of a daily game is treated as automated play.
		http.Error(w, `{"error":"first_guess_rejected"}`, http.StatusForbidden)
	default:
		http.Error(w, `{"error":"rank_failed"}`, http.StatusBadGateway)
	}
}

// -----------------------------------------------------------------------------
// /game/giveup

// handleGiveUp terminates the game unconditionally, preserving guesses,
// and settles stats as a loss.
func (s *Server) handleGiveUp(w http.ResponseWriter, r *http.Request) {
	var req stateReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	mode, ok := parseMode(req.Mode)
	if !ok {
		http.Error(w, `{"error":"bad_mode"}`, http.StatusBadRequest)
		return
	}
	p := s.playerFrom(w, r)

	// A give-up accepted while a rank call is outstanding would be clobbered
	// when the blocked guess saves its copy of the game, resurrecting a
	// terminal state and settling it twice.
	flight := p.ID + "|" + string(mode)
	if !s.acquire(flight) {
		http.Error(w, `{"error":"busy"}`, http.StatusConflict)
		return
	}
	defer s.release(flight)

	g := s.loadGame(r, p, mode)
	if g.Finished() {
		http.Error(w, `{"error":"game_finished"}`, http.StatusConflict)
		return
	}
	g.GiveUp()
	s.settle(r, p, g)
	s.saveGame(r, p, g)
	_ = json.NewEncoder(w).Encode(s.viewOf(g))
}

// -----------------------------------------------------------------------------
// /game/hint

// hint targeting: aim at roughly half the player's current best rank,
// never closer than minHintRank; with no guesses yet, a moderate distance.
const (
	defaultHintRank = 100
	minHintRank     = 10
)

// handleHint asks the hint provider for a word near the target rank, then
// re-validates its actual rank through the ranking provider by recording it
// as a normal (hint-flagged) guess.
func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	var req stateReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	mode, ok := parseMode(req.Mode)
	if !ok {
		http.Error(w, `{"error":"bad_mode"}`, http.StatusBadRequest)
		return
	}
	p := s.playerFrom(w, r)

	flight := p.ID + "|" + string(mode)
	if !s.acquire(flight) {
		http.Error(w, `{"error":"busy"}`, http.StatusConflict)
		return
	}
	defer s.release(flight)

	g := s.loadGame(r, p, mode)
	if g.Finished() {
		http.Error(w, `{"error":"game_finished"}`, http.StatusConflict)
		return
	}

	target := defaultHintRank
	if best := g.BestRank(); best > 2 {
		if target = best / 2; target < minHintRank {
			target = minHintRank
		}
	}

	word, err := s.hinter.Hint(r.Context(), g.TargetWord, target)
	if err != nil {
		http.Error(w, `{"error":"hint_unavailable"}`, http.StatusBadGateway)
		return
	}
	// The prompt forbids the secret word, but the model is not trusted to
	// comply; a hint that would end the game is discarded here.
	if word == g.TargetWord || !words.IsPersian(word) {
		log.Warn().Str("hint", word).Msg("discarding unusable hint word")
		http.Error(w, `{"error":"hint_unavailable"}`, http.StatusBadGateway)
		return
	}

	guess, err := g.SubmitHint(r.Context(), s.ranker, word, s.now())
	if err != nil {
		// Duplicate of an existing guess etc.; nothing was recorded.
		http.Error(w, `{"error":"hint_unavailable"}`, http.StatusBadGateway)
		return
	}
	s.saveGame(r, p, g)
	_ = json.NewEncoder(w).Encode(guessRes{Guess: guess, State: s.viewOf(g)})
}

// -----------------------------------------------------------------------------
// /game/restart

// handleRestart discards the unlimited-mode game and draws a fresh word.
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	var req stateReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	mode, ok := parseMode(req.Mode)
	if !ok {
		http.Error(w, `{"error":"bad_mode"}`, http.StatusBadRequest)
		return
	}
	p := s.playerFrom(w, r)

	// Same clobbering hazard as give-up: a restart saved mid-rank-call would
	// be overwritten by the blocked guess's copy.
	flight := p.ID + "|" + string(mode)
	if !s.acquire(flight) {
		http.Error(w, `{"error":"busy"}`, http.StatusConflict)
		return
	}
	defer s.release(flight)

	g := s.loadGame(r, p, mode)
	if err := g.Restart(s.now()); err != nil {
		http.Error(w, `{"error":"daily_restart"}`, http.StatusBadRequest)
		return
	}
	s.saveGame(r, p, g)
	_ = json.NewEncoder(w).Encode(s.viewOf(g))
}

// -----------------------------------------------------------------------------
// /game/share

type shareRes struct {
	Text string `json:"text"`
}

// handleShare builds the Persian result summary for a finished game.
// Refused while in progress so the secret word cannot leak through it.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	mode, ok := parseMode(r.URL.Query().Get("mode"))
	if !ok {
		http.Error(w, `{"error":"bad_mode"}`, http.StatusBadRequest)
		return
	}
	p := s.playerFrom(w, r)
	g := s.loadGame(r, p, mode)
	if !g.Finished() {
		http.Error(w, `{"error":"game_in_progress"}`, http.StatusConflict)
		return
	}
	_ = json.NewEncoder(w).Encode(shareRes{Text: shareText(g, getEnv("GAME_URL", "https://tomitooni.ir"))})
}

// shareText renders the win/loss summary string.
func shareText(g *game.Game, url string) string {
	if g.Won {
		return fmt.Sprintf("🧠 مغز متفکر! من کلمه «%s» رو تو %d حرکت پیدا کردم.\n\nتو میتونی رکورد منو بزنی؟ 👀\n\n🎮 بازی آنلاین «تو میتونی»:\n🔗 %s",
			g.TargetWord, len(g.Guesses), url)
	}
	return fmt.Sprintf("🤯 کلمه امروز «%s» خیلی سخت بود!\n\nفکر میکنی بتونی پیداش کنی؟ 👀\n\n🎮 بازی آنلاین «تو میتونی»:\n🔗 %s",
		g.TargetWord, url)
}

// -----------------------------------------------------------------------------
// settlement

// settle folds a finished game into the player's stats exactly once, and
// credits the wallet for prize-eligible daily wins by logged-in players.
// The WalletCredited flag makes re-entry a no-op. The stats record is shared
// across modes (the in-flight guard keys on player|mode), so the load/save
// pair is serialized under settleMu to keep concurrent settlements from
// losing an update.
func (s *Server) settle(r *http.Request, p player, g *game.Game) {
	if g.WalletCredited {
		return
	}
	s.settleMu.Lock()
	defer s.settleMu.Unlock()
	prize := g.Mode == game.ModeDaily && stats.PrizeEligible(g.Won, len(g.Guesses), p.User != nil)

	var st stats.PlayerStats
	if _, err := s.records.Load(r.Context(), record.StatsKey(p.ID), &st); err != nil {
		log.Warn().Err(err).Str("player", p.ID).Msg("load stats record")
	}
	credited := stats.Settle(&st, g.Won, len(g.Guesses), prize)
	if err := s.records.Save(r.Context(), record.StatsKey(p.ID), &st); err != nil {
		log.Warn().Err(err).Str("player", p.ID).Msg("save stats record")
	}
	if credited > 0 && p.User != nil {
		if err := s.creditWallet(p.User.ID, credited); err != nil {
			log.Warn().Err(err).Str("user", p.User.ID).Msg("credit wallet")
		}
	}
	g.WalletCredited = true
}
