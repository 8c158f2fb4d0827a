package treasuryhttp

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/hearthvault/hearthvault/internal/platform/authtoken"
	"github.com/hearthvault/hearthvault/internal/treasury/custody"
	"github.com/hearthvault/hearthvault/internal/treasury/ledger"
	"github.com/hearthvault/hearthvault/internal/treasury/service"
	"github.com/hearthvault/hearthvault/internal/treasury/storage/sqlite"
)

const (
	testIssuer   = "hearthvault-test"
	testAudience = "treasury"
)

type apiFixture struct {
	server *httptest.Server
	signer ed25519.PrivateKey
	ledger *ledger.Memory
	vault  *custody.Vault
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "treasury.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	mem := ledger.NewMemory()
	vault := custody.NewVault(mem)
	svc := service.New(store, vault, nil, service.WithLogger(slog.New(slog.DiscardHandler)))

	handler := NewHandler(svc, authtoken.VerifierConfig{
		Issuer:   testIssuer,
		Audience: testAudience,
		Key:      pub,
	}, slog.New(slog.DiscardHandler))
	mux := http.NewServeMux()
	handler.Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &apiFixture{server: server, signer: priv, ledger: mem, vault: vault}
}

func (f *apiFixture) token(t *testing.T, identity string) string {
	t.Helper()
	token, err := authtoken.Mint(authtoken.MintInput{
		Identity: identity,
		Issuer:   testIssuer,
		Audience: testAudience,
		TTL:      time.Hour,
	}, f.signer)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func (f *apiFixture) do(t *testing.T, identity, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if identity != "" {
		req.Header.Set("Authorization", "Bearer "+f.token(t, identity))
	}
	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeResp(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestRequiresBearerToken(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, "", http.MethodGet, "/v1/families", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	var body struct {
		Code string `json:"code"`
	}
	decodeResp(t, resp, &body)
	if body.Code != "UNAUTHENTICATED" {
		t.Errorf("code = %q, want UNAUTHENTICATED", body.Code)
	}
}

func TestRejectsForeignToken(t *testing.T) {
	f := newAPIFixture(t)

	_, otherKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	token, err := authtoken.Mint(authtoken.MintInput{
		Identity: "alice", Issuer: testIssuer, Audience: testAudience, TTL: time.Hour,
	}, otherKey)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, f.server.URL+"/v1/families", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestFamilyLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, "alice", http.MethodPost, "/v1/families", map[string]string{
		"name": "Smiths", "creator_name": "Alice",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create family status = %d, want 201", resp.StatusCode)
	}
	var family struct {
		ID            int64  `json:"id"`
		Name          string `json:"name"`
		WalletAddress string `json:"wallet_address"`
	}
	decodeResp(t, resp, &family)
	if family.ID != 1 || family.Name != "Smiths" || family.WalletAddress == "" {
		t.Fatalf("unexpected family: %+v", family)
	}

	resp = f.do(t, "alice", http.MethodPost, "/v1/families/1/members", map[string]string{
		"identity": "bob", "display_name": "Bob", "role": "child",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add member status = %d, want 201", resp.StatusCode)
	}

	// children cannot manage membership
	resp = f.do(t, "bob", http.MethodPost, "/v1/families/1/members", map[string]string{
		"identity": "carol", "display_name": "Carol", "role": "child",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("child add status = %d, want 403", resp.StatusCode)
	}

	resp = f.do(t, "bob", http.MethodGet, "/v1/families/1/members", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list members status = %d, want 200", resp.StatusCode)
	}
	var members []struct {
		Identity string `json:"identity"`
		Role     string `json:"role"`
	}
	decodeResp(t, resp, &members)
	if len(members) != 2 {
		t.Fatalf("members = %d, want 2", len(members))
	}
}

func TestProposalFlowOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, "alice", http.MethodPost, "/v1/families", map[string]string{
		"name": "Smiths", "creator_name": "Alice",
	})
	f.do(t, "alice", http.MethodPost, "/v1/families/1/members", map[string]string{
		"identity": "bob", "display_name": "Bob", "role": "child",
	})

	resp := f.do(t, "bob", http.MethodPost, "/v1/families/1/proposals", map[string]any{
		"title": "New bicycle", "amount": 400, "recipient": "bike-shop",
		"duration_seconds": 172800,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create proposal status = %d, want 201", resp.StatusCode)
	}
	var proposal struct {
		ID              int64  `json:"id"`
		Status          string `json:"status"`
		RequiredPercent int64  `json:"required_percent"`
	}
	decodeResp(t, resp, &proposal)
	if proposal.Status != "pending" || proposal.RequiredPercent != 51 {
		t.Fatalf("unexpected proposal: %+v", proposal)
	}

	resp = f.do(t, "alice", http.MethodPost, "/v1/families/1/proposals/1/votes", map[string]bool{"in_favor": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("vote status = %d, want 200", resp.StatusCode)
	}

	// repeat ballot conflicts
	resp = f.do(t, "alice", http.MethodPost, "/v1/families/1/proposals/1/votes", map[string]bool{"in_favor": false})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("repeat vote status = %d, want 409", resp.StatusCode)
	}
	var body struct {
		Code string `json:"code"`
	}
	decodeResp(t, resp, &body)
	if body.Code != "ALREADY_VOTED" {
		t.Errorf("code = %q, want ALREADY_VOTED", body.Code)
	}

	// claim before the deadline conflicts
	resp = f.do(t, "bob", http.MethodPost, "/v1/families/1/proposals/1/claim", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("early claim status = %d, want 409", resp.StatusCode)
	}

	// parent approval then claim moves funds
	wallet, err := f.vault.Wallet(f.walletAddress(t))
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if err := wallet.Deposit(t.Context(), 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	resp = f.do(t, "alice", http.MethodPost, "/v1/families/1/proposals/1/veto", map[string]bool{"approve": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("veto status = %d, want 200", resp.StatusCode)
	}

	resp = f.do(t, "bob", http.MethodPost, "/v1/families/1/proposals/1/claim", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("claim status = %d, want 200", resp.StatusCode)
	}
	var claimed struct {
		Status string `json:"status"`
	}
	decodeResp(t, resp, &claimed)
	if claimed.Status != "withdrawn" {
		t.Errorf("status = %q, want withdrawn", claimed.Status)
	}

	balance, _ := f.ledger.BalanceOf(t.Context(), "bike-shop")
	if balance != 400 {
		t.Errorf("recipient balance = %d, want 400", balance)
	}

	resp = f.do(t, "bob", http.MethodGet, "/v1/families/1/events", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list events status = %d, want 200", resp.StatusCode)
	}
	var events []struct {
		Seq  int64  `json:"seq"`
		Type string `json:"type"`
	}
	decodeResp(t, resp, &events)
	if len(events) == 0 || events[len(events)-1].Type != "funds.transferred" {
		t.Errorf("unexpected journal tail: %+v", events)
	}
}

func (f *apiFixture) walletAddress(t *testing.T) string {
	t.Helper()
	resp := f.do(t, "alice", http.MethodGet, "/v1/families", nil)
	var views []struct {
		Family struct {
			WalletAddress string `json:"wallet_address"`
		} `json:"family"`
	}
	decodeResp(t, resp, &views)
	if len(views) == 0 {
		t.Fatal("no families for alice")
	}
	return views[0].Family.WalletAddress
}

func TestApprovalPercentEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, "", http.MethodGet, "/v1/approval-percent?amount=1501", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]int64
	decodeResp(t, resp, &body)
	if body["required_percent"] != 100 {
		t.Errorf("required_percent = %d, want 100", body["required_percent"])
	}

	resp = f.do(t, "", http.MethodGet, "/v1/approval-percent?amount=0", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMalformedBody(t *testing.T) {
	f := newAPIFixture(t)

	req, _ := http.NewRequest(http.MethodPost, f.server.URL+"/v1/families", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+f.token(t, "alice"))
	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
