package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"swapd/crypto"
	"swapd/native/escrow"
	"swapd/native/token"
)

const (
	// headerCaller names the authenticated caller of a transition. The
	// gateway trusts it the way a node trusts its front-end proxy; real
	// signature verification lives in the account subsystem, outside this
	// service.
	headerCaller    = "X-Swap-Caller"
	headerRequestID = "X-Request-Id"

	maxRequestBody = 1 << 20 // 1 MiB
)

// Server is the HTTP front-end for the escrow engine.
type Server struct {
	engine  *escrow.Engine
	log     *slog.Logger
	metrics *Metrics
	router  chi.Router
	nowFn   func() time.Time
}

// NewServer wires the engine behind the HTTP surface. The metrics registerer
// may be nil to disable metric registration (tests).
func NewServer(engine *escrow.Engine, logger *slog.Logger, reg prometheus.Registerer) *Server {
	if engine == nil {
		panic("escrow engine required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:  engine,
		log:     logger,
		metrics: NewMetrics(reg),
		nowFn:   time.Now,
	}
	s.router = s.buildRouter()
	return s
}

// Handler exposes the configured route tree.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(s.withRequestID)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/offers", s.timed("make", s.handleMake))
		r.Get("/offers/{maker}/{id}", s.timed("get", s.handleGetOffer))
		r.Post("/offers/{maker}/{id}/take", s.timed("take", s.handleTake))
		r.Post("/offers/{maker}/{id}/refund", s.timed("refund", s.handleRefund))

		r.Post("/assets", s.timed("register_asset", s.handleRegisterAsset))
		r.Post("/assets/mint", s.timed("mint", s.handleMint))
		r.Post("/faucet", s.timed("faucet", s.handleFaucet))
	})
	return r
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(headerRequestID, requestID)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) timed(route string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := s.nowFn()
		fn(w, r)
		s.metrics.observeDuration(route, s.nowFn().Sub(start).Seconds())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type makeRequest struct {
	ID         string `json:"id"`
	MakerAsset string `json:"makerAsset"`
	TakerAsset string `json:"takerAsset"`
	Deposit    string `json:"deposit"`
	Receive    string `json:"receive"`
}

func (s *Server) handleMake(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	var req makeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	id, err := parseUint(req.ID, "id")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	makerAsset, err := crypto.DecodeAddress(req.MakerAsset)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	takerAsset, err := crypto.DecodeAddress(req.TakerAsset)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	deposit, err := parseUint(req.Deposit, "deposit")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	receive, err := parseUint(req.Receive, "receive")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	offer, err := s.engine.Make(caller, id, makerAsset, takerAsset, deposit, receive)
	s.metrics.observeTransition("make", err)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.log.Info("offer made",
		"requestId", w.Header().Get(headerRequestID),
		"maker", offer.Maker.String(),
		"id", offer.ID,
	)
	s.writeJSON(w, http.StatusCreated, offerView(offer))
}

type takeRequest struct {
	MakerAsset string `json:"makerAsset"`
	TakerAsset string `json:"takerAsset"`
}

func (s *Server) handleTake(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	maker, id, err := offerPath(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	var req takeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	makerAsset, err := crypto.DecodeAddress(req.MakerAsset)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	takerAsset, err := crypto.DecodeAddress(req.TakerAsset)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	offer, err := s.engine.Take(caller, maker, id, makerAsset, takerAsset)
	s.metrics.observeTransition("take", err)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.log.Info("offer taken",
		"requestId", w.Header().Get(headerRequestID),
		"maker", offer.Maker.String(),
		"taker", caller.String(),
		"id", offer.ID,
	)
	s.writeJSON(w, http.StatusOK, offerView(offer))
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	maker, id, err := offerPath(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	offer, err := s.engine.Refund(caller, maker, id)
	s.metrics.observeTransition("refund", err)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.log.Info("offer refunded",
		"requestId", w.Header().Get(headerRequestID),
		"maker", offer.Maker.String(),
		"id", offer.ID,
	)
	s.writeJSON(w, http.StatusOK, offerView(offer))
}

func (s *Server) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	maker, id, err := offerPath(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	offer, err := s.engine.Get(maker, id)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, offerView(offer))
}

type registerAssetRequest struct {
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

func (s *Server) handleRegisterAsset(w http.ResponseWriter, r *http.Request) {
	var req registerAssetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	asset, err := s.engine.Ledger().RegisterAsset(req.Symbol, req.Decimals)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"address":  asset.Address.String(),
		"symbol":   asset.Symbol,
		"decimals": asset.Decimals,
	})
}

type mintRequest struct {
	Asset  string `json:"asset"`
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	asset, err := crypto.DecodeAddress(req.Asset)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	owner, err := crypto.DecodeAddress(req.Owner)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	amount, err := parseUint(req.Amount, "amount")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	acct, err := s.engine.Ledger().Mint(asset, owner, amount)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"account": acct.Address.String(),
		"balance": strconv.FormatUint(acct.Balance, 10),
	})
}

type faucetRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	var req faucetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	addr, err := crypto.DecodeAddress(req.Address)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	amount, err := parseUint(req.Amount, "amount")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.Ledger().FundNative(addr, amount); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	balance, err := s.engine.Ledger().NativeBalance(addr)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"address": addr.String(),
		"balance": strconv.FormatUint(balance, 10),
	})
}

// --- helpers ---

func (s *Server) caller(r *http.Request) (crypto.Address, error) {
	header := r.Header.Get(headerCaller)
	if header == "" {
		return crypto.Address{}, errors.New("missing " + headerCaller + " header")
	}
	return crypto.DecodeAddress(header)
}

func offerPath(r *http.Request) (crypto.Address, uint64, error) {
	maker, err := crypto.DecodeAddress(chi.URLParam(r, "maker"))
	if err != nil {
		return crypto.Address{}, 0, err
	}
	id, err := parseUint(chi.URLParam(r, "id"), "id")
	if err != nil {
		return crypto.Address{}, 0, err
	}
	return maker, id, nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func parseUint(value, field string) (uint64, error) {
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + field + ": " + value)
	}
	return parsed, nil
}

type offerResponse struct {
	ID         string `json:"id"`
	Maker      string `json:"maker"`
	MakerAsset string `json:"makerAsset"`
	TakerAsset string `json:"takerAsset"`
	Deposit    string `json:"deposit"`
	Receive    string `json:"receive"`
	Record     string `json:"record"`
	Vault      string `json:"vault"`
	CreatedAt  int64  `json:"createdAt"`
}

func offerView(o *escrow.Offer) offerResponse {
	return offerResponse{
		ID:         strconv.FormatUint(o.ID, 10),
		Maker:      o.Maker.String(),
		MakerAsset: o.MakerAsset.String(),
		TakerAsset: o.TakerAsset.String(),
		Deposit:    strconv.FormatUint(o.Deposit, 10),
		Receive:    strconv.FormatUint(o.Receive, 10),
		Record:     o.Address.String(),
		Vault:      o.Vault.String(),
		CreatedAt:  o.CreatedAt,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.log.Warn("request rejected",
		"requestId", w.Header().Get(headerRequestID),
		"path", r.URL.Path,
		"status", status,
		"error", err.Error(),
	)
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeEngineError maps engine and ledger failures onto HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, escrow.ErrNotFound),
		errors.Is(err, token.ErrAccountNotFound),
		errors.Is(err, token.ErrAssetNotFound):
		status = http.StatusNotFound
	case errors.Is(err, escrow.ErrUnauthorized),
		errors.Is(err, token.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, escrow.ErrOfferExists),
		errors.Is(err, token.ErrAssetExists):
		status = http.StatusConflict
	case errors.Is(err, escrow.ErrAssetMismatch),
		errors.Is(err, escrow.ErrVaultImbalance),
		errors.Is(err, escrow.ErrInvalidAmount),
		errors.Is(err, token.ErrWrongAsset),
		errors.Is(err, token.ErrInsufficientFunds),
		errors.Is(err, token.ErrAccountNotEmpty),
		errors.Is(err, token.ErrBalanceOverflow):
		status = http.StatusUnprocessableEntity
	}
	s.writeError(w, r, status, err)
}
