package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dealvault/native/arbiter"
	"dealvault/native/custody"
	"dealvault/native/directory"
	"dealvault/observability"
	"dealvault/state"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeNotFound       = -32002
	codeForbidden      = -32003
	codeConflict       = -32004
)

// Server exposes the custody engine, the arbiter registry and the deal
// directory over JSON-RPC 2.0. Mutating methods require the bearer token;
// reads are open.
type Server struct {
	engine    *custody.Engine
	registry  *arbiter.Registry
	directory *directory.Directory
	manager   *state.Manager
	authToken string
	logger    *slog.Logger
}

// NewServer wires a server over the supplied components. An empty authToken
// disables every mutating method.
func NewServer(engine *custody.Engine, registry *arbiter.Registry, dir *directory.Directory, manager *state.Manager, authToken string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:    engine,
		registry:  registry,
		directory: dir,
		manager:   manager,
		authToken: strings.TrimSpace(authToken),
		logger:    logger,
	}
}

// Handler returns the HTTP mux serving the RPC endpoint, health probe and
// Prometheus metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

type methodSpec struct {
	module  string
	auth    bool
	handler func(w http.ResponseWriter, r *http.Request, req *RPCRequest)
}

func (s *Server) methods() map[string]methodSpec {
	return map[string]methodSpec{
		"custody_fund":            {module: "custody", auth: true, handler: s.handleCustodyFund},
		"custody_markDelivered":   {module: "custody", auth: true, handler: s.handleCustodyMarkDelivered},
		"custody_confirmDelivery": {module: "custody", auth: true, handler: s.handleCustodyConfirmDelivery},
		"custody_raiseDispute":    {module: "custody", auth: true, handler: s.handleCustodyRaiseDispute},
		"custody_resolveDispute":  {module: "custody", auth: true, handler: s.handleCustodyResolveDispute},
		"custody_cancel":          {module: "custody", auth: true, handler: s.handleCustodyCancel},
		"custody_withdraw":        {module: "custody", auth: true, handler: s.handleCustodyWithdraw},
		"custody_get":             {module: "custody", handler: s.handleCustodyGet},
		"custody_status":          {module: "custody", handler: s.handleCustodyStatus},

		"arbiter_register":           {module: "arbiter", auth: true, handler: s.handleArbiterRegister},
		"arbiter_requestWithdrawal":  {module: "arbiter", auth: true, handler: s.handleArbiterRequestWithdrawal},
		"arbiter_withdrawStake":      {module: "arbiter", auth: true, handler: s.handleArbiterWithdrawStake},
		"arbiter_isActive":           {module: "arbiter", handler: s.handleArbiterIsActive},
		"arbiter_getReputationScore": {module: "arbiter", handler: s.handleArbiterReputationScore},
		"arbiter_get":                {module: "arbiter", handler: s.handleArbiterGet},

		"directory_createDeal":       {module: "directory", auth: true, handler: s.handleDirectoryCreateDeal},
		"directory_dealsFor":         {module: "directory", handler: s.handleDirectoryDealsFor},
		"directory_recordResolution": {module: "directory", auth: true, handler: s.handleDirectoryRecordResolution},
		"directory_pauseDeal":        {module: "directory", auth: true, handler: s.handleDirectoryPauseDeal},
		"directory_unpauseDeal":      {module: "directory", auth: true, handler: s.handleDirectoryUnpauseDeal},
		"directory_withdrawFees":     {module: "directory", auth: true, handler: s.handleDirectoryWithdrawFees},
	}
}

// handle is the main request handler that routes to method handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	spec, ok := s.methods()[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return
	}
	if spec.auth {
		if authErr := s.requireAuth(r); authErr != nil {
			observability.ModuleMetrics().Observe(spec.module, req.Method, "unauthorized", 0)
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
	}
	started := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	spec.handler(rec, r, req)
	outcome := "ok"
	if rec.status >= http.StatusBadRequest {
		outcome = "error"
	}
	observability.ModuleMetrics().Observe(spec.module, req.Method, outcome, time.Since(started))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
