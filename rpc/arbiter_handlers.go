package rpc

import (
	"net/http"
	"strconv"
)

type arbiterRegisterParams struct {
	Caller string `json:"caller"`
	Value  string `json:"value"`
}

func (s *Server) handleArbiterRegister(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params arbiterRegisterParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	value, err := parseAmount(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.registry.Register(caller, value); err != nil {
		moduleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "registered"})
}

type arbiterAddressParams struct {
	Arbiter string `json:"arbiter"`
}

func (s *Server) arbiterAddress(w http.ResponseWriter, req *RPCRequest) ([20]byte, bool) {
	var params arbiterAddressParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return [20]byte{}, false
	}
	addr, err := parseAddress(params.Arbiter)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return [20]byte{}, false
	}
	return addr, true
}

func (s *Server) handleArbiterRequestWithdrawal(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addr, ok := s.arbiterAddress(w, req)
	if !ok {
		return
	}
	if err := s.registry.RequestWithdrawal(addr); err != nil {
		moduleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "withdrawalRequested"})
}

func (s *Server) handleArbiterWithdrawStake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addr, ok := s.arbiterAddress(w, req)
	if !ok {
		return
	}
	amount, err := s.registry.WithdrawStake(addr)
	if err != nil {
		moduleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"amount": amount.String()})
}

func (s *Server) handleArbiterIsActive(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addr, ok := s.arbiterAddress(w, req)
	if !ok {
		return
	}
	writeResult(w, req.ID, map[string]bool{"active": s.registry.IsActive(addr)})
}

func (s *Server) handleArbiterReputationScore(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addr, ok := s.arbiterAddress(w, req)
	if !ok {
		return
	}
	score := s.registry.ReputationScore(addr)
	writeResult(w, req.ID, map[string]string{"score": strconv.FormatUint(score, 10)})
}

func (s *Server) handleArbiterGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addr, ok := s.arbiterAddress(w, req)
	if !ok {
		return
	}
	record, found := s.registry.Get(addr)
	if !found {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, "arbiter not registered", nil)
		return
	}
	writeResult(w, req.ID, formatArbiterJSON(record))
}
