package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dealvault/core/types"
	"dealvault/native/arbiter"
	"dealvault/native/custody"
	"dealvault/native/directory"
	"dealvault/state"
	"dealvault/storage"
)

const (
	testToken      = "test-secret-token"
	testStart      = int64(1_700_000_000)
	payerHex       = "0x0101010101010101010101010101010101010101"
	payeeHex       = "0x0202020202020202020202020202020202020202"
	arbiterHex     = "0x0303030303030303030303030303030303030303"
	ownerHex       = "0x0e0e0e0e0e0e0e0e0e0e0e0e0e0e0e0e0e0e0e0e"
	unknownDealHex = "0x" + "7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f"
)

type testEnv struct {
	server  *Server
	handler http.Handler
	manager *state.Manager
	now     int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{now: testStart}
	env.manager = state.NewManager(storage.NewMemDB())

	directoryAddr := mustAddress(t, "0xdddddddddddddddddddddddddddddddddddddddd")
	ownerAddr := mustAddress(t, ownerHex)

	engine := custody.NewEngine()
	engine.SetState(env.manager)
	engine.SetVault(mustAddress(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	engine.SetFeeCollector(directoryAddr)
	engine.SetAdmin(directoryAddr)
	engine.SetNowFunc(func() int64 { return env.now })

	registry := arbiter.NewRegistry()
	registry.SetState(env.manager)
	registry.SetVault(mustAddress(t, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"))
	registry.SetAdmin(directoryAddr)
	registry.SetMinimumStake(big.NewInt(1000))
	registry.SetNowFunc(func() int64 { return env.now })

	dir := directory.NewDirectory()
	dir.SetEngine(engine)
	dir.SetRegistry(registry)
	dir.SetState(env.manager)
	dir.SetAddress(directoryAddr)
	dir.SetOwner(ownerAddr)

	env.server = NewServer(engine, registry, dir, env.manager, testToken, nil)
	env.handler = env.server.Handler()

	env.seedBalance(t, payerHex, 1_000_000)
	env.seedBalance(t, arbiterHex, 10_000)
	if err := registry.Register(mustAddress(t, arbiterHex), big.NewInt(1000)); err != nil {
		t.Fatalf("register arbiter: %v", err)
	}
	return env
}

func mustAddress(t *testing.T, raw string) [20]byte {
	t.Helper()
	addr, err := parseAddress(raw)
	if err != nil {
		t.Fatalf("parse address %q: %v", raw, err)
	}
	return addr
}

func (env *testEnv) seedBalance(t *testing.T, raw string, amount int64) {
	t.Helper()
	addr := mustAddress(t, raw)
	if err := env.manager.PutAccount(addr, &types.Account{Balance: big.NewInt(amount)}); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
}

func marshalParam(t *testing.T, param interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(param)
	if err != nil {
		t.Fatalf("marshal param: %v", err)
	}
	return raw
}

func (env *testEnv) post(t *testing.T, body []byte, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) call(t *testing.T, method string, param interface{}, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  method,
		Params:  []json.RawMessage{marshalParam(t, param)},
		ID:      1,
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return env.post(t, body, authed)
}

func decodeRPCResponse(t *testing.T, rec *httptest.ResponseRecorder) RPCResponse {
	t.Helper()
	var resp RPCResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func mustResult(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	resp := decodeRPCResponse(t, rec)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result is not an object: %T", resp.Result)
	}
	return result
}

func mustErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status, code int) *RPCError {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("http status = %d, want %d (%s)", rec.Code, status, rec.Body.String())
	}
	resp := decodeRPCResponse(t, rec)
	if resp.Error == nil {
		t.Fatalf("expected error, got %q", rec.Body.String())
	}
	if resp.Error.Code != code {
		t.Fatalf("error code = %d, want %d (%s)", resp.Error.Code, code, resp.Error.Message)
	}
	return resp.Error
}

func (env *testEnv) createDeal(t *testing.T, nonce uint64) string {
	t.Helper()
	result := mustResult(t, env.call(t, "directory_createDeal", directoryCreateParams{
		Payer:       payerHex,
		Payee:       payeeHex,
		Arbiter:     arbiterHex,
		Amount:      "1000",
		Deadline:    env.now + 100,
		Description: "goods",
		Nonce:       nonce,
	}, true))
	id, ok := result["id"].(string)
	if !ok || id == "" {
		t.Fatalf("create result missing id: %v", result)
	}
	return id
}

func TestRequestValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, nil, false)
	mustErrorCode(t, rec, http.StatusBadRequest, codeInvalidRequest)

	rec = env.post(t, []byte("{not json"), false)
	mustErrorCode(t, rec, http.StatusBadRequest, codeParseError)

	rec = env.post(t, []byte(`{"jsonrpc":"1.0","method":"custody_get","id":1}`), false)
	mustErrorCode(t, rec, http.StatusBadRequest, codeInvalidRequest)

	rec = env.post(t, []byte(`{"jsonrpc":"2.0","id":1}`), false)
	mustErrorCode(t, rec, http.StatusBadRequest, codeInvalidRequest)

	rec = env.post(t, []byte(`{"jsonrpc":"2.0","method":"custody_unknown","id":1}`), false)
	mustErrorCode(t, rec, http.StatusNotFound, codeMethodNotFound)
}

func TestAuthRequiredForMutations(t *testing.T) {
	env := newTestEnv(t)

	rec := env.call(t, "directory_createDeal", directoryCreateParams{}, false)
	mustErrorCode(t, rec, http.StatusUnauthorized, codeUnauthorized)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(
		`{"jsonrpc":"2.0","method":"custody_cancel","params":[{}],"id":1}`))
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec2 := httptest.NewRecorder()
	env.handler.ServeHTTP(rec2, req)
	mustErrorCode(t, rec2, http.StatusUnauthorized, codeUnauthorized)

	// Reads stay open.
	recGet := env.call(t, "arbiter_isActive", arbiterAddressParams{Arbiter: arbiterHex}, false)
	resp := decodeRPCResponse(t, recGet)
	if resp.Error != nil {
		t.Fatalf("unauthenticated read failed: %+v", resp.Error)
	}
}

func TestAuthDisabledWithoutToken(t *testing.T) {
	env := newTestEnv(t)
	env.server.authToken = ""
	rec := env.call(t, "directory_createDeal", directoryCreateParams{}, true)
	mustErrorCode(t, rec, http.StatusUnauthorized, codeUnauthorized)
}

func TestCustodyLifecycleOverRPC(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDeal(t, 1)

	result := mustResult(t, env.call(t, "custody_fund", custodyFundParams{ID: id, Caller: payerHex, Value: "1000"}, true))
	if result["status"] != "funded" {
		t.Fatalf("fund result = %v", result)
	}
	result = mustResult(t, env.call(t, "custody_markDelivered", custodyActorParams{ID: id, Caller: payeeHex}, true))
	if result["status"] != "delivered" {
		t.Fatalf("markDelivered result = %v", result)
	}
	result = mustResult(t, env.call(t, "custody_confirmDelivery", custodyActorParams{ID: id, Caller: payerHex}, true))
	if result["status"] != "completed" {
		t.Fatalf("confirmDelivery result = %v", result)
	}

	result = mustResult(t, env.call(t, "custody_get", custodyIDParams{ID: id}, false))
	if result["status"] != "completed" {
		t.Fatalf("get status = %v", result["status"])
	}
	pending, ok := result["pending"].(map[string]interface{})
	if !ok || pending[payeeHex] != "995" {
		t.Fatalf("pending = %v", result["pending"])
	}

	result = mustResult(t, env.call(t, "custody_withdraw", custodyActorParams{ID: id, Caller: payeeHex}, true))
	if result["amount"] != "995" {
		t.Fatalf("withdraw amount = %v", result["amount"])
	}
	rec := env.call(t, "custody_withdraw", custodyActorParams{ID: id, Caller: payeeHex}, true)
	resp := decodeRPCResponse(t, rec)
	if resp.Error == nil {
		t.Fatalf("second withdraw should fail")
	}
}

func TestDisputeOverRPC(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDeal(t, 1)
	mustResult(t, env.call(t, "custody_fund", custodyFundParams{ID: id, Caller: payerHex, Value: "1000"}, true))
	mustResult(t, env.call(t, "custody_markDelivered", custodyActorParams{ID: id, Caller: payeeHex}, true))
	mustResult(t, env.call(t, "custody_raiseDispute", custodyDisputeParams{ID: id, Caller: payerHex, Reason: "damaged"}, true))

	rec := env.call(t, "custody_resolveDispute", custodyResolveParams{
		ID: id, Caller: arbiterHex, BuyerAmount: "600", SellerAmount: "400", Resolution: "split",
	}, true)
	mustErrorCode(t, rec, http.StatusBadRequest, codeInvalidParams)

	result := mustResult(t, env.call(t, "custody_resolveDispute", custodyResolveParams{
		ID: id, Caller: arbiterHex, BuyerAmount: "600", SellerAmount: "395", Resolution: "split",
	}, true))
	if result["status"] != "resolved" {
		t.Fatalf("resolve result = %v", result)
	}

	result = mustResult(t, env.call(t, "directory_recordResolution", directoryResolutionParams{
		Caller: ownerHex, Arbiter: arbiterHex, Successful: true,
	}, true))
	if result["status"] != "recorded" {
		t.Fatalf("record result = %v", result)
	}
	result = mustResult(t, env.call(t, "arbiter_getReputationScore", arbiterAddressParams{Arbiter: arbiterHex}, false))
	if result["score"] != "100" {
		t.Fatalf("score = %v", result["score"])
	}
}

func TestErrorCodeMapping(t *testing.T) {
	env := newTestEnv(t)

	rec := env.call(t, "custody_get", custodyIDParams{ID: unknownDealHex}, false)
	mustErrorCode(t, rec, http.StatusNotFound, codeNotFound)

	id := env.createDeal(t, 1)
	rec = env.call(t, "custody_fund", custodyFundParams{ID: id, Caller: payeeHex, Value: "1000"}, true)
	mustErrorCode(t, rec, http.StatusForbidden, codeForbidden)

	rec = env.call(t, "custody_confirmDelivery", custodyActorParams{ID: id, Caller: payerHex}, true)
	mustErrorCode(t, rec, http.StatusConflict, codeConflict)

	rec = env.call(t, "custody_fund", custodyFundParams{ID: id, Caller: "not-hex", Value: "1000"}, true)
	mustErrorCode(t, rec, http.StatusBadRequest, codeInvalidParams)

	rec = env.call(t, "arbiter_register", arbiterRegisterParams{Caller: arbiterHex, Value: "1000"}, true)
	mustErrorCode(t, rec, http.StatusConflict, codeConflict)
}

func TestArbiterLifecycleOverRPC(t *testing.T) {
	env := newTestEnv(t)
	newArbiter := "0x0404040404040404040404040404040404040404"
	env.seedBalance(t, newArbiter, 5000)

	result := mustResult(t, env.call(t, "arbiter_register", arbiterRegisterParams{Caller: newArbiter, Value: "1000"}, true))
	if result["status"] != "registered" {
		t.Fatalf("register result = %v", result)
	}
	result = mustResult(t, env.call(t, "arbiter_isActive", arbiterAddressParams{Arbiter: newArbiter}, false))
	if result["active"] != true {
		t.Fatalf("isActive = %v", result["active"])
	}

	result = mustResult(t, env.call(t, "arbiter_requestWithdrawal", arbiterAddressParams{Arbiter: newArbiter}, true))
	if result["status"] != "withdrawalRequested" {
		t.Fatalf("request result = %v", result)
	}
	rec := env.call(t, "arbiter_withdrawStake", arbiterAddressParams{Arbiter: newArbiter}, true)
	mustErrorCode(t, rec, http.StatusConflict, codeConflict)

	env.now = testStart + arbiter.WithdrawDelaySeconds
	result = mustResult(t, env.call(t, "arbiter_withdrawStake", arbiterAddressParams{Arbiter: newArbiter}, true))
	if result["amount"] != "1000" {
		t.Fatalf("withdraw amount = %v", result["amount"])
	}

	result = mustResult(t, env.call(t, "arbiter_get", arbiterAddressParams{Arbiter: newArbiter}, false))
	if result["active"] != false || result["stake"] != "0" {
		t.Fatalf("record = %v", result)
	}
}

func TestDirectoryDealsForOverRPC(t *testing.T) {
	env := newTestEnv(t)
	first := env.createDeal(t, 1)
	second := env.createDeal(t, 2)

	result := mustResult(t, env.call(t, "directory_dealsFor", directoryDealsForParams{Participant: payerHex}, false))
	deals, ok := result["deals"].([]interface{})
	if !ok || len(deals) != 2 {
		t.Fatalf("deals = %v", result["deals"])
	}
	if deals[0] != first || deals[1] != second {
		t.Fatalf("deals = %v, want [%s %s]", deals, first, second)
	}
}

func TestPauseOverRPC(t *testing.T) {
	env := newTestEnv(t)
	id := env.createDeal(t, 1)

	rec := env.call(t, "directory_pauseDeal", directoryDealActionParams{Caller: payerHex, ID: id}, true)
	mustErrorCode(t, rec, http.StatusForbidden, codeForbidden)

	result := mustResult(t, env.call(t, "directory_pauseDeal", directoryDealActionParams{Caller: ownerHex, ID: id}, true))
	if result["status"] != "paused" {
		t.Fatalf("pause result = %v", result)
	}
	rec = env.call(t, "custody_fund", custodyFundParams{ID: id, Caller: payerHex, Value: "1000"}, true)
	mustErrorCode(t, rec, http.StatusConflict, codeConflict)

	result = mustResult(t, env.call(t, "directory_unpauseDeal", directoryDealActionParams{Caller: ownerHex, ID: id}, true))
	if result["status"] != "running" {
		t.Fatalf("unpause result = %v", result)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestOversizedBodyRejected(t *testing.T) {
	env := newTestEnv(t)
	body := fmt.Sprintf(`{"jsonrpc":"2.0","method":"custody_get","params":[{"id":%q}],"id":1}`,
		strings.Repeat("a", maxRequestBytes))
	rec := env.post(t, []byte(body), false)
	mustErrorCode(t, rec, http.StatusRequestEntityTooLarge, codeInvalidRequest)
}
