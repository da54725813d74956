package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"endlessessentials.app/internal/auth"
	"endlessessentials.app/internal/market"
	"endlessessentials.app/internal/payments"
)

type recordingGateway struct {
	mu   sync.Mutex
	reqs []payments.IntentRequest
	err  error
}

func (g *recordingGateway) CreateIntent(_ context.Context, req payments.IntentRequest) (payments.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reqs = append(g.reqs, req)
	if g.err != nil {
		return payments.Intent{}, g.err
	}
	return payments.Intent{ID: "pi_test", ClientSecret: "pi_test_secret_abc"}, nil
}

type apiClient struct {
	baseURL string
	client  *http.Client
	store   *market.InMemory
	tokens  *auth.TokenService
	gateway *recordingGateway
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	store := market.NewInMemory()
	tokens, err := auth.NewTokenService(store.Users(), "test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	gw := &recordingGateway{}

	api := New(store, tokens, payments.NewCoordinator(store, gw), "test")
	api.rateBurst = 100
	api.ratePerSec = 100

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		store:   store,
		tokens:  tokens,
		gateway: gw,
		t:       t,
	}
}

func (c *apiClient) do(method, path string, params url.Values, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, u.String(), bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	return c.do(http.MethodGet, path, params, nil, headers)
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	return c.do(http.MethodPost, path, nil, body, headers)
}

// seedUser inserts u directly into the store and returns its id.
func (c *apiClient) seedUser(u market.User) string {
	c.t.Helper()
	res, err := c.store.Users().Create(context.Background(), u)
	if err != nil {
		c.t.Fatalf("seed user: %v", err)
	}
	return res.InsertedID
}

// bearer obtains a token through GET /jwt and returns the Authorization header map.
func (c *apiClient) bearer(email string) map[string]string {
	c.t.Helper()
	resp := c.get("/jwt", url.Values{"email": []string{email}}, nil)
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		c.t.Fatalf("unexpected token status: %d", resp.StatusCode)
	}
	payload := decode[tokenResponse](c.t, resp)
	if payload.AccessToken == "" {
		c.t.Fatalf("empty token issued")
	}
	return map[string]string{"Authorization": "Bearer " + payload.AccessToken}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		resp.Body.Close()
		t.Fatalf("expected %d, got %d", want, resp.StatusCode)
	}
}
