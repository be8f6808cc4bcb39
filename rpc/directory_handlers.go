package rpc

import (
	"net/http"
)

type directoryCreateParams struct {
	Payer       string `json:"payer"`
	Payee       string `json:"payee"`
	Arbiter     string `json:"arbiter"`
	Amount      string `json:"amount"`
	Deadline    int64  `json:"deadline"`
	Description string `json:"description"`
	Nonce       uint64 `json:"nonce"`
}

func (s *Server) handleDirectoryCreateDeal(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params directoryCreateParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	payer, err := parseAddress(params.Payer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	payee, err := parseAddress(params.Payee)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	arbiterAddr, err := parseAddress(params.Arbiter)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	deal, err := s.directory.CreateDeal(payer, payee, arbiterAddr, amount, params.Deadline, params.Description, params.Nonce)
	if err != nil {
		moduleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatDealJSON(deal))
}

type directoryDealsForParams struct {
	Participant string `json:"participant"`
}

func (s *Server) handleDirectoryDealsFor(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params directoryDealsForParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	participant, err := parseAddress(params.Participant)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	ids, err := s.directory.DealsFor(participant)
	if err != nil {
		moduleError(w, req.ID, err)
		return
	}
	encoded := make([]string, 0, len(ids))
	for _, id := range ids {
		encoded = append(encoded, formatDealID(id))
	}
	writeResult(w, req.ID, map[string][]string{"deals": encoded})
}

type directoryResolutionParams struct {
	Caller     string `json:"caller"`
	Arbiter    string `json:"arbiter"`
	Successful bool   `json:"successful"`
}

func (s *Server) handleDirectoryRecordResolution(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params directoryResolutionParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	arbiterAddr, err := parseAddress(params.Arbiter)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.directory.RecordResolution(caller, arbiterAddr, params.Successful); err != nil {
		moduleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "recorded"})
}

type directoryDealActionParams struct {
	Caller string `json:"caller"`
	ID     string `json:"id"`
}

func (s *Server) directoryDealAction(w http.ResponseWriter, req *RPCRequest) ([20]byte, [32]byte, bool) {
	var params directoryDealActionParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return [20]byte{}, [32]byte{}, false
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return [20]byte{}, [32]byte{}, false
	}
	id, err := parseDealID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return [20]byte{}, [32]byte{}, false
	}
	return caller, id, true
}

func (s *Server) handleDirectoryPauseDeal(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, id, ok := s.directoryDealAction(w, req)
	if !ok {
		return
	}
	if err := s.directory.PauseDeal(caller, id); err != nil {
		moduleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "paused"})
}

func (s *Server) handleDirectoryUnpauseDeal(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, id, ok := s.directoryDealAction(w, req)
	if !ok {
		return
	}
	if err := s.directory.UnpauseDeal(caller, id); err != nil {
		moduleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "running"})
}

func (s *Server) handleDirectoryWithdrawFees(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, id, ok := s.directoryDealAction(w, req)
	if !ok {
		return
	}
	amount, err := s.directory.WithdrawFees(caller, id)
	if err != nil {
		moduleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"amount": amount.String()})
}
