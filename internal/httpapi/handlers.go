package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"QuantDash/internal/model"
	"QuantDash/internal/recorder"
	"QuantDash/internal/service"
)

// QueryService answers the market data queries exposed over HTTP.
type QueryService interface {
	History(ctx context.Context, symbol string, r service.Range) (*model.HistoryResult, error)
	Info(ctx context.Context, symbol string) (*model.InfoResult, error)
	SMA(ctx context.Context, symbol string, p service.SMAParams, r service.Range) (*model.SMAResult, error)
	Bollinger(ctx context.Context, symbol string, p service.BandsParams, r service.Range) (*model.BandsResult, error)
	MACD(ctx context.Context, symbol string, p service.MACDParams, r service.Range) (*model.MACDResult, error)
	RSI(ctx context.Context, symbol string, p service.RSIParams, r service.Range) (*model.RSIResult, error)
}

// RequestObserver receives per-route request outcomes.
type RequestObserver interface {
	ObserveRequest(route string, status int, elapsed time.Duration)
}

// Options wires the optional collaborators of an API.
type Options struct {
	Requests       RequestObserver
	MetricsHandler http.Handler
	Recorder       recorder.Recorder
	Status         func() model.ProviderStatus
	AllowedOrigins []string
	Logger         *zap.Logger
}

// API serves the query endpoints.
type API struct {
	svc  QueryService
	opts Options
	log  *zap.Logger
}

// NewAPI creates the HTTP API in front of svc.
func NewAPI(svc QueryService, opts Options) *API {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Recorder == nil {
		opts.Recorder = recorder.NewNoopRecorder()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &API{svc: svc, opts: opts, log: opts.Logger.Named("http")}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.register(mux)

	chain := Chain(
		Recovery(a.log),
		RequestID,
		AccessLog(a.log),
		CORS(a.opts.AllowedOrigins),
	)
	return chain(mux)
}

func (a *API) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", a.handleRoot)
	mux.HandleFunc("GET /healthz", a.handleHealth)
	if a.opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", a.opts.MetricsHandler)
	}

	mux.HandleFunc("GET /stocks/{symbol}/info", a.query("info", a.info))
	mux.HandleFunc("GET /stocks/{symbol}/history", a.query("history", a.history))
	mux.HandleFunc("GET /technicals/{symbol}/sma", a.query("sma", a.sma))
	mux.HandleFunc("GET /technicals/{symbol}/bbands", a.query("bbands", a.bbands))
	mux.HandleFunc("GET /technicals/{symbol}/macd", a.query("macd", a.macd))
	mux.HandleFunc("GET /technicals/{symbol}/rsi", a.query("rsi", a.rsi))
}

func (a *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the QuantDash API!"})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Status   string                `json:"status"`
		Provider *model.ProviderStatus `json:"provider,omitempty"`
	}{Status: "ok"}
	if a.opts.Status != nil {
		st := a.opts.Status()
		resp.Provider = &st
	}
	writeJSON(w, http.StatusOK, resp)
}

// queryFunc runs one query and reports the number of dates in the result.
type queryFunc func(r *http.Request, symbol string) (any, int, error)

// query adapts fn to an http.HandlerFunc: JSON encoding, error mapping,
// per-route metrics and the audit record.
func (a *API) query(route string, fn queryFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		symbol := r.PathValue("symbol")

		result, n, err := fn(r, symbol)
		status := http.StatusOK
		var errMsg string
		if err != nil {
			status, errMsg = a.errorResponse(route, symbol, err)
			writeError(w, status, errMsg)
		} else {
			writeJSON(w, status, result)
		}

		elapsed := time.Since(began)
		if a.opts.Requests != nil {
			a.opts.Requests.ObserveRequest(route, status, elapsed)
		}
		if err := a.opts.Recorder.RecordQuery(&recorder.QueryEvent{
			RequestID: RequestIDFrom(r.Context()),
			Route:     route,
			Symbol:    symbol,
			Params:    r.URL.RawQuery,
			Status:    status,
			Bars:      n,
			Latency:   elapsed,
			Error:     errMsg,
		}); err != nil {
			a.log.Warn("record query", zap.Error(err))
		}
	}
}

// errorResponse maps err to an HTTP status and a client-facing message.
func (a *API) errorResponse(route, symbol string, err error) (int, string) {
	var pe *paramError
	if errors.As(err, &pe) {
		return http.StatusBadRequest, pe.Error()
	}
	var se *service.Error
	if !errors.As(err, &se) {
		a.log.Error("query failed", zap.String("route", route), zap.String("symbol", symbol), zap.Error(err))
		return http.StatusInternalServerError, "internal server error"
	}
	switch se.Kind {
	case service.KindNotFound:
		return http.StatusNotFound, se.Message
	case service.KindInvalidArgument:
		return http.StatusBadRequest, se.Message
	case service.KindUpstream:
		a.log.Warn("upstream failure", zap.String("route", route), zap.String("symbol", symbol), zap.Error(se.Err))
		if se.Timeout() {
			return http.StatusGatewayTimeout, se.Message + ": timed out"
		}
		return http.StatusBadGateway, se.Message
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (a *API) info(r *http.Request, symbol string) (any, int, error) {
	res, err := a.svc.Info(r.Context(), symbol)
	if err != nil {
		return nil, 0, err
	}
	return res, 0, nil
}

func (a *API) history(r *http.Request, symbol string) (any, int, error) {
	rng, err := parseRange(r.URL.Query())
	if err != nil {
		return nil, 0, err
	}
	res, err := a.svc.History(r.Context(), symbol, rng)
	if err != nil {
		return nil, 0, err
	}
	return res, len(res.History), nil
}

func (a *API) sma(r *http.Request, symbol string) (any, int, error) {
	q := r.URL.Query()
	p, err := parseSMA(q)
	if err != nil {
		return nil, 0, err
	}
	rng, err := parseRange(q)
	if err != nil {
		return nil, 0, err
	}
	res, err := a.svc.SMA(r.Context(), symbol, p, rng)
	if err != nil {
		return nil, 0, err
	}
	return res, len(res.SMA), nil
}

func (a *API) bbands(r *http.Request, symbol string) (any, int, error) {
	q := r.URL.Query()
	p, err := parseBands(q)
	if err != nil {
		return nil, 0, err
	}
	rng, err := parseRange(q)
	if err != nil {
		return nil, 0, err
	}
	res, err := a.svc.Bollinger(r.Context(), symbol, p, rng)
	if err != nil {
		return nil, 0, err
	}
	return res, len(res.Bands), nil
}

func (a *API) macd(r *http.Request, symbol string) (any, int, error) {
	q := r.URL.Query()
	p, err := parseMACD(q)
	if err != nil {
		return nil, 0, err
	}
	rng, err := parseRange(q)
	if err != nil {
		return nil, 0, err
	}
	res, err := a.svc.MACD(r.Context(), symbol, p, rng)
	if err != nil {
		return nil, 0, err
	}
	return res, len(res.MACD), nil
}

func (a *API) rsi(r *http.Request, symbol string) (any, int, error) {
	q := r.URL.Query()
	p, err := parseRSI(q)
	if err != nil {
		return nil, 0, err
	}
	rng, err := parseRange(q)
	if err != nil {
		return nil, 0, err
	}
	res, err := a.svc.RSI(r.Context(), symbol, p, rng)
	if err != nil {
		return nil, 0, err
	}
	return res, len(res.RSI), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
