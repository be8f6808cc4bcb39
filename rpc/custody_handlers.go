package rpc

import (
	"net/http"
)

type custodyFundParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
	Value  string `json:"value"`
}

func (s *Server) handleCustodyFund(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params custodyFundParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseDealID(params.ID)
	if err != nil {
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
	if err := s.engine.Fund(id, caller, value); err != nil {
		moduleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "funded"})
}

type custodyActorParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
}

func (s *Server) actorParams(w http.ResponseWriter, req *RPCRequest) ([32]byte, [20]byte, bool) {
	var params custodyActorParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return [32]byte{}, [20]byte{}, false
	}
	id, err := parseDealID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return [32]byte{}, [20]byte{}, false
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return [32]byte{}, [20]byte{}, false
	}
	return id, caller, true
}

func (s *Server) handleCustodyMarkDelivered(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	id, caller, ok := s.actorParams(w, req)
	if !ok {
		return
	}
	if err := s.engine.MarkDelivered(id, caller); err != nil {
		moduleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "delivered"})
}

func (s *Server) handleCustodyConfirmDelivery(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	id, caller, ok := s.actorParams(w, req)
	if !ok {
		return
	}
	if err := s.engine.ConfirmDelivery(id, caller); err != nil {
		moduleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "completed"})
}

type custodyDisputeParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
	Reason string `json:"reason"`
}

func (s *Server) handleCustodyRaiseDispute(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params custodyDisputeParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseDealID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.RaiseDispute(id, caller, params.Reason); err != nil {
		moduleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "disputed"})
}

type custodyResolveParams struct {
	ID           string `json:"id"`
	Caller       string `json:"caller"`
	BuyerAmount  string `json:"buyerAmount"`
	SellerAmount string `json:"sellerAmount"`
	Resolution   string `json:"resolution"`
}

func (s *Server) handleCustodyResolveDispute(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params custodyResolveParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseDealID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	buyerAmount, err := parseAmount(params.BuyerAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	sellerAmount, err := parseAmount(params.SellerAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.ResolveDispute(id, caller, buyerAmount, sellerAmount, params.Resolution); err != nil {
		moduleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "resolved"})
}

func (s *Server) handleCustodyCancel(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	id, caller, ok := s.actorParams(w, req)
	if !ok {
		return
	}
	if err := s.engine.Cancel(id, caller); err != nil {
		moduleError(w, req.ID, err)
		return
	}
	status, err := s.engine.Status(id)
	if err != nil {
		moduleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": status.String()})
}

func (s *Server) handleCustodyWithdraw(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	id, caller, ok := s.actorParams(w, req)
	if !ok {
		return
	}
	amount, err := s.engine.Withdraw(id, caller)
	if err != nil {
		moduleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"amount": amount.String()})
}

type custodyIDParams struct {
	ID string `json:"id"`
}

func (s *Server) handleCustodyGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params custodyIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseDealID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	deal, err := s.engine.Get(id)
	if err != nil {
		moduleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatDealJSON(deal))
}

func (s *Server) handleCustodyStatus(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params custodyIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseDealID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	status, err := s.engine.Status(id)
	if err != nil {
		moduleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": status.String()})
}
