// Package session provides the HTTP handlers and orchestration for the
// time-travel portfolio game: session lifecycle, mode selection, year
// advancement, trading, valuation, and achievements.
//
// Every operation is a single read-compute-commit transaction: the session
// is loaded from the store, a clone is mutated, and only a fully applied
// result is saved back. A mutex serializes engine operations
// (single-instance); for horizontal scaling, replace with distributed
// locking or database-level optimistic concurrency.
package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/timevest/engine/internal/achievement"
	"github.com/timevest/engine/internal/instrument"
	"github.com/timevest/engine/internal/ledger"
	"github.com/timevest/engine/internal/metrics"
	"github.com/timevest/engine/internal/model"
	"github.com/timevest/engine/internal/pricing"
	"github.com/timevest/engine/internal/store"
	"github.com/timevest/engine/internal/tax"
	"github.com/timevest/engine/internal/travel"
)

// StartingCash is every new session's bankroll.
var StartingCash = decimal.NewFromInt(100)

// Service handles game operations.
type Service struct {
	store    store.Store
	ledger   *ledger.Ledger
	resolver *pricing.Resolver
	rng      *rand.Rand
	mu       sync.Mutex
	wsHub    *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a new session service. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewService(st store.Store, resolver *pricing.Resolver, hub *WSHub) *Service {
	return &Service{
		store:    st,
		ledger:   ledger.New(resolver),
		resolver: resolver,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		wsHub:    hub,
	}
}

// --- Request/Response types ---

// CreateSessionRequest is the JSON body for session creation.
type CreateSessionRequest struct {
	TaxBracket string `json:"tax_bracket"` // budget, middle, high; empty → middle
}

// SelectModeRequest is the JSON body for POST .../mode.
type SelectModeRequest struct {
	Mode string `json:"mode"` // sequential or chaotic
}

// AdvanceResponse is returned from POST .../advance.
type AdvanceResponse struct {
	Year int `json:"year"`

	// PendingListings are held symbols not yet listed in the new year —
	// a decision state, not an error: the positions exist but cannot be
	// marketed until the traveler reaches their listing years.
	PendingListings []string `json:"pending_listings,omitempty"`

	NewAchievements []string `json:"new_achievements,omitempty"`

	GameOver bool             `json:"game_over"`
	Status   string           `json:"status,omitempty"`
	Analysis *ledger.Analysis `json:"analysis,omitempty"`
}

// BuyRequest is the JSON body for POST .../buy.
type BuyRequest struct {
	Symbol string          `json:"symbol"`
	Shares decimal.Decimal `json:"shares"`
	Price  decimal.Decimal `json:"price"` // per-share transaction price
}

// BuyResponse is returned from POST .../buy.
type BuyResponse struct {
	Lot             model.Lot       `json:"lot"`
	Cash            decimal.Decimal `json:"cash"`
	NewAchievements []string        `json:"new_achievements,omitempty"`
}

// SellRequest is the JSON body for POST .../sell.
type SellRequest struct {
	Symbol string          `json:"symbol"`
	Shares decimal.Decimal `json:"shares"`
}

// SellResponse is returned from POST .../sell. EstimatedTax is informational
// — proceeds are credited gross and tax is never withheld.
type SellResponse struct {
	ledger.SellResult
	Cash         decimal.Decimal `json:"cash"`
	EstimatedTax decimal.Decimal `json:"estimated_tax"`
}

// AchievementsResponse is returned from GET .../achievements.
type AchievementsResponse struct {
	Achievements        []string `json:"achievements"`
	UnlockedInstruments []string `json:"unlocked_instruments"`
}

// --- HTTP Handlers ---

// CreateSession handles POST /api/v1/sessions
func (s *Service) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	bracket := req.TaxBracket
	if bracket == "" {
		bracket = model.BracketMiddle
	}
	switch bracket {
	case model.BracketBudget, model.BracketMiddle, model.BracketHigh:
	default:
		writeError(w, "tax_bracket must be budget, middle, or high", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	sess := &model.Session{
		ID:       uuid.New().String(),
		Cash:     StartingCash,
		Holdings: make(map[string][]model.Lot),
		Tax: model.TaxState{
			YTDShortTermGains: decimal.Zero,
			YTDLongTermGains:  decimal.Zero,
			CarryforwardLoss:  decimal.Zero,
			Bracket:           bracket,
		},
		Achievements:        []string{},
		UnlockedInstruments: instrument.FreeTier(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.store.CreateSession(r.Context(), sess); err != nil {
		writeError(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	metrics.ActiveSessions.Inc()
	slog.Info("session created", "id", sess.ID, "bracket", bracket)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{Type: "session_started", SessionID: sess.ID})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sess)
}

// GetSession handles GET /api/v1/sessions/{sessionID}
func (s *Service) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, sess)
}

// ResetSession handles DELETE /api/v1/sessions/{sessionID}
// Destroys the session; the caller starts fresh with a new POST.
func (s *Service) ResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetSession(r.Context(), sessionID); err != nil {
		writeError(w, "session not found", http.StatusNotFound)
		return
	}
	if err := s.store.DeleteSession(r.Context(), sessionID); err != nil {
		writeError(w, "failed to delete session", http.StatusInternalServerError)
		return
	}

	metrics.ActiveSessions.Dec()
	slog.Info("session reset", "id", sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// SelectMode handles POST /api/v1/sessions/{sessionID}/mode
// One-time: rejected once a year has been set.
func (s *Service) SelectMode(w http.ResponseWriter, r *http.Request) {
	var req SelectModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.loadSessionLocked(w, r)
	if !ok {
		return
	}

	if err := travel.SelectMode(sess, req.Mode, s.rng); err != nil {
		switch {
		case errors.Is(err, travel.ErrModeAlreadySet):
			writeError(w, "mode already selected", http.StatusConflict)
		default:
			writeError(w, "mode must be sequential or chaotic", http.StatusBadRequest)
		}
		return
	}

	if !s.commit(w, r, sess) {
		return
	}

	slog.Info("mode selected", "session", sess.ID, "mode", sess.Mode, "year", sess.CurrentYear)
	writeJSON(w, sess)
}

// AdvanceYear handles POST /api/v1/sessions/{sessionID}/advance
// Spends a travel credit, moves the simulated year, re-evaluates
// achievements, and reports pending listings and game over.
func (s *Service) AdvanceYear(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.loadSessionLocked(w, r)
	if !ok {
		return
	}
	if sess.Mode == "" {
		writeError(w, "select a mode before traveling", http.StatusConflict)
		return
	}
	if sess.GameOver {
		// A finished session keeps reporting its terminal result.
		writeJSON(w, s.terminalResponse(sess))
		return
	}

	year, err := travel.Advance(sess, s.rng)
	if errors.Is(err, travel.ErrGameOver) {
		// Out of credits: persist the terminal flag and report the result.
		s.finishGame(sess)
		if !s.commit(w, r, sess) {
			return
		}
		writeJSON(w, s.terminalResponse(sess))
		return
	}
	if err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	metrics.TimeTravelsTotal.WithLabelValues(sess.Mode).Inc()

	newAchievements := s.refreshAchievements(sess)
	pending := s.ledger.PendingListings(sess, year)

	resp := AdvanceResponse{
		Year:            year,
		PendingListings: pending,
		NewAchievements: newAchievements,
		GameOver:        sess.GameOver,
	}
	if sess.GameOver {
		s.finishGame(sess)
		analysis := s.ledger.Analyze(sess, sess.CurrentYear)
		resp.Status = travel.StatusFor(analysis.Realized)
		resp.Analysis = &analysis
	}

	if !s.commit(w, r, sess) {
		return
	}

	slog.Info("year advanced",
		"session", sess.ID,
		"mode", sess.Mode,
		"year", year,
		"credits_used", sess.TravelCreditsUsed,
		"game_over", sess.GameOver,
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:            "year_advanced",
			SessionID:       sess.ID,
			Year:            year,
			PendingListings: pending,
		})
		for _, id := range newAchievements {
			s.wsHub.Broadcast(WSMessage{
				Type:        "achievement_unlocked",
				SessionID:   sess.ID,
				Achievement: id,
			})
		}
	}

	writeJSON(w, resp)
}

// Buy handles POST /api/v1/sessions/{sessionID}/buy
// Strict rejection: a buy that fails validation changes nothing.
func (s *Service) Buy(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Price.IsPositive() {
		writeError(w, "price must be positive", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.loadSessionLocked(w, r)
	if !ok {
		return
	}
	if sess.Mode == "" || sess.CurrentYear == 0 {
		writeError(w, "select a mode before trading", http.StatusConflict)
		return
	}
	if sess.GameOver {
		writeError(w, "session is over", http.StatusConflict)
		return
	}

	if _, err := instrument.Lookup(req.Symbol); err != nil {
		writeError(w, "unknown symbol: "+req.Symbol, http.StatusNotFound)
		return
	}
	if !s.resolver.IsAvailable(req.Symbol, sess.CurrentYear) {
		metrics.TradeRejections.WithLabelValues("not_listed").Inc()
		writeError(w, req.Symbol+" is not listed yet in "+strconv.Itoa(sess.CurrentYear), http.StatusConflict)
		return
	}
	if !sess.IsUnlocked(req.Symbol) {
		metrics.TradeRejections.WithLabelValues("locked").Inc()
		writeError(w, req.Symbol+" is locked — unlock it through achievements", http.StatusConflict)
		return
	}

	lot, err := s.ledger.Buy(sess, req.Symbol, req.Shares, req.Price)
	switch {
	case errors.Is(err, ledger.ErrNonPositiveShares):
		metrics.TradeRejections.WithLabelValues("bad_shares").Inc()
		writeError(w, "shares must be positive", http.StatusBadRequest)
		return
	case errors.Is(err, ledger.ErrInsufficientFunds):
		metrics.TradeRejections.WithLabelValues("insufficient_funds").Inc()
		writeError(w, "insufficient funds", http.StatusConflict)
		return
	case err != nil:
		writeError(w, "buy failed", http.StatusInternalServerError)
		return
	}

	newAchievements := s.refreshAchievements(sess)

	if !s.commit(w, r, sess) {
		return
	}

	metrics.TradesTotal.WithLabelValues("buy").Inc()
	slog.Info("buy executed",
		"session", sess.ID,
		"symbol", req.Symbol,
		"shares", req.Shares.String(),
		"price", req.Price.String(),
		"cash", sess.Cash.String(),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:      "trade_executed",
			SessionID: sess.ID,
			Symbol:    req.Symbol,
			Shares:    req.Shares.String(),
			Price:     req.Price.String(),
		})
	}

	writeJSON(w, BuyResponse{Lot: lot, Cash: sess.Cash, NewAchievements: newAchievements})
}

// Sell handles POST /api/v1/sessions/{sessionID}/sell
// Tolerant clamping: selling more than held sells only what exists, and an
// unheld symbol is a silent no-op returning a zero result.
func (s *Service) Sell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.loadSessionLocked(w, r)
	if !ok {
		return
	}
	if sess.Mode == "" || sess.CurrentYear == 0 {
		writeError(w, "select a mode before trading", http.StatusConflict)
		return
	}

	result := s.ledger.Sell(sess, req.Symbol, req.Shares)
	s.refreshAchievements(sess)

	if !s.commit(w, r, sess) {
		return
	}

	// Informational transaction-level tax: short and long components taxed
	// separately, each floored at zero.
	estTax := tax.CapitalGains(result.ShortTermGainDelta, 0, sess.Tax.Bracket).
		Add(tax.CapitalGains(result.LongTermGainDelta, tax.LongTermDays, sess.Tax.Bracket))

	if result.SharesSold.IsPositive() {
		metrics.TradesTotal.WithLabelValues("sell").Inc()
		slog.Info("sell executed",
			"session", sess.ID,
			"symbol", req.Symbol,
			"shares_sold", result.SharesSold.String(),
			"proceeds", result.Proceeds.String(),
		)
		if s.wsHub != nil {
			s.wsHub.Broadcast(WSMessage{
				Type:      "trade_executed",
				SessionID: sess.ID,
				Symbol:    req.Symbol,
				Shares:    result.SharesSold.Neg().String(),
			})
		}
	}

	writeJSON(w, SellResponse{SellResult: result, Cash: sess.Cash, EstimatedTax: estTax})
}

// GetAnalysis handles GET /api/v1/sessions/{sessionID}/analysis
// Optional ?year= overrides the session's current year.
func (s *Service) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	year := sess.CurrentYear
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, "invalid year", http.StatusBadRequest)
			return
		}
		year = parsed
	}

	writeJSON(w, s.ledger.Analyze(sess, year))
}

// GetAchievements handles GET /api/v1/sessions/{sessionID}/achievements
func (s *Service) GetAchievements(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, AchievementsResponse{
		Achievements:        sess.Achievements,
		UnlockedInstruments: sess.UnlockedInstruments,
	})
}

// ListInstruments handles GET /api/v1/instruments
func (s *Service) ListInstruments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, instrument.All())
}

// GetPrices handles GET /api/v1/prices?year=YYYY
// Returns the compounded price of every instrument listed at the year.
func (s *Service) GetPrices(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < travel.MinYear || year > travel.MaxYear {
		writeError(w, "year must be within the historical range", http.StatusBadRequest)
		return
	}
	writeJSON(w, s.resolver.PricesForYear(year))
}

// --- internals ---

// refreshAchievements re-evaluates the achievement rules, records new awards,
// and re-derives the unlocked-instrument set from scratch. Returns the newly
// awarded identifiers.
func (s *Service) refreshAchievements(sess *model.Session) []string {
	before := make(map[string]bool, len(sess.Achievements))
	for _, id := range sess.Achievements {
		before[id] = true
	}

	sess.Achievements = achievement.Evaluate(sess)
	sess.UnlockedInstruments = achievement.UnlockedInstruments(sess.Achievements)

	var added []string
	for _, id := range sess.Achievements {
		if !before[id] {
			added = append(added, id)
			metrics.AchievementsUnlocked.WithLabelValues(id).Inc()
		}
	}
	return added
}

func (s *Service) finishGame(sess *model.Session) {
	if !sess.GameOver {
		sess.GameOver = true
	}
	analysis := s.ledger.Analyze(sess, sess.CurrentYear)
	status := travel.StatusFor(analysis.Realized)
	metrics.GamesFinished.WithLabelValues(status).Inc()

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:      "game_over",
			SessionID: sess.ID,
			Status:    status,
		})
	}
}

func (s *Service) terminalResponse(sess *model.Session) AdvanceResponse {
	analysis := s.ledger.Analyze(sess, sess.CurrentYear)
	return AdvanceResponse{
		Year:     sess.CurrentYear,
		GameOver: true,
		Status:   travel.StatusFor(analysis.Realized),
		Analysis: &analysis,
	}
}

// loadSession fetches the session for read-only handlers.
func (s *Service) loadSession(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	return s.loadSessionLocked(w, r)
}

// loadSessionLocked fetches the session named in the URL, writing the error
// response on failure. An invalid snapshot is surfaced as 410: the stored
// state is unusable and the caller must start a fresh session.
func (s *Service) loadSessionLocked(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := s.store.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, model.ErrInvalidSnapshot) {
			slog.Error("rejected corrupt session snapshot", "id", sessionID, "err", err)
			writeError(w, "stored session is invalid, start a new one", http.StatusGone)
			return nil, false
		}
		writeError(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

// commit saves the mutated session, writing the error response on failure.
func (s *Service) commit(w http.ResponseWriter, r *http.Request, sess *model.Session) bool {
	sess.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveSession(r.Context(), sess); err != nil {
		slog.Error("failed to save session", "id", sess.ID, "err", err)
		writeError(w, "failed to save session", http.StatusInternalServerError)
		return false
	}
	return true
}

// writeJSON writes a JSON 200 response.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
