package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ClusterM/google-assistant-smart-home/internal/middleware"
	"github.com/ClusterM/google-assistant-smart-home/internal/models"
	"github.com/ClusterM/google-assistant-smart-home/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testClientID = "platform"
	testRedirect = "https://oauth-redirect.example.com/r/project"
)

type fakeIssuer struct {
	code string
	err  error

	gotUser, gotPassword, gotClientID, gotResponseType string
}

func (f *fakeIssuer) IssueCode(_ context.Context, username, password, clientID, responseType string) (string, error) {
	f.gotUser, f.gotPassword, f.gotClientID, f.gotResponseType = username, password, clientID, responseType
	return f.code, f.err
}

type fakeExchanger struct {
	token string
	err   error
}

func (f *fakeExchanger) ExchangeCode(_ context.Context, _, _, _ string) (string, error) {
	return f.token, f.err
}

type fakeDispatcher struct {
	resp *models.FulfillmentResponse
	err  error

	gotUser, gotToken string
	gotReq            *models.FulfillmentRequest
}

func (f *fakeDispatcher) Handle(
	_ context.Context,
	userID, token string,
	req *models.FulfillmentRequest,
) (*models.FulfillmentResponse, error) {
	f.gotUser, f.gotToken, f.gotReq = userID, token, req
	return f.resp, f.err
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func noAudit() *services.AuditService {
	return services.NewAuditService(nil, false, 0, nil)
}

func authQuery(overrides map[string]string) string {
	q := url.Values{
		"state":         {"xyz"},
		"response_type": {"code"},
		"client_id":     {testClientID},
		"redirect_uri":  {testRedirect},
	}
	for k, v := range overrides {
		if v == "" {
			q.Del(k)
			continue
		}
		q.Set(k, v)
	}
	return q.Encode()
}

func postLogin(r *gin.Engine, query string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/?"+query, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func loginRouter(t *testing.T, issuer *fakeIssuer, allowlist []string) *gin.Engine {
	r := newRouter(t)
	h := NewAuthHandler(issuer, noAudit(), allowlist)
	r.GET("/auth/", h.LoginPage)
	r.POST("/auth/", h.Login)
	return r
}

func TestLoginPage(t *testing.T) {
	r := loginRouter(t, &fakeIssuer{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/?"+authQuery(nil), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<form method="post">`)
	assert.NotContains(t, w.Body.String(), "Invalid username or password")
}

func TestLogin_RedirectsWithCode(t *testing.T) {
	issuer := &fakeIssuer{code: "AbCd1234"}
	r := loginRouter(t, issuer, []string{testRedirect})

	w := postLogin(r, authQuery(nil), url.Values{"username": {"alice"}, "password": {"secret"}})

	require.Equal(t, http.StatusFound, w.Code)
	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "oauth-redirect.example.com", location.Host)
	assert.Equal(t, "xyz", location.Query().Get("state"))
	assert.Equal(t, "AbCd1234", location.Query().Get("code"))
	assert.Equal(t, testClientID, location.Query().Get("client_id"))

	assert.Equal(t, "alice", issuer.gotUser)
	assert.Equal(t, "secret", issuer.gotPassword)
	assert.Equal(t, testClientID, issuer.gotClientID)
	assert.Equal(t, "code", issuer.gotResponseType)
}

func TestLogin_InvalidRequest(t *testing.T) {
	full := url.Values{"username": {"alice"}, "password": {"secret"}}

	tests := []struct {
		name  string
		query string
		form  url.Values
		err   error
	}{
		{"missing state", authQuery(map[string]string{"state": ""}), full, nil},
		{"missing username", authQuery(nil), url.Values{"password": {"secret"}}, nil},
		{"missing password", authQuery(nil), url.Values{"username": {"alice"}}, nil},
		{"missing redirect", authQuery(map[string]string{"redirect_uri": ""}), full, nil},
		{"redirect not allowed", authQuery(map[string]string{"redirect_uri": "https://evil.example.com/"}), full, nil},
		{"rejected by authority", authQuery(map[string]string{"response_type": "token"}), full, services.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := loginRouter(t, &fakeIssuer{code: "AbCd1234", err: tt.err}, []string{testRedirect})

			w := postLogin(r, tt.query, tt.form)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Invalid request", w.Body.String())
			assert.Empty(t, w.Header().Get("Location"))
		})
	}
}

func TestLogin_BadCredentialsRerendersForm(t *testing.T) {
	r := loginRouter(t, &fakeIssuer{err: services.ErrInvalidCredentials}, nil)

	w := postLogin(r, authQuery(nil), url.Values{"username": {"alice"}, "password": {"nope"}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")
	assert.Contains(t, w.Body.String(), `value="alice"`)
	assert.Empty(t, w.Header().Get("Location"))
}

func TestLogin_InternalError(t *testing.T) {
	r := loginRouter(t, &fakeIssuer{err: errors.New("rng failure")}, nil)

	w := postLogin(r, authQuery(nil), url.Values{"username": {"alice"}, "password": {"secret"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func postToken(r *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/token/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestToken(t *testing.T) {
	full := url.Values{"client_id": {testClientID}, "client_secret": {"s3cret"}, "code": {"AbCd1234"}}

	tests := []struct {
		name      string
		form      url.Values
		exchanger *fakeExchanger
		wantCode  int
		wantError string
	}{
		{"success", full, &fakeExchanger{token: "tok"}, http.StatusOK, ""},
		{"missing code", url.Values{"client_id": {testClientID}, "client_secret": {"s3cret"}}, &fakeExchanger{}, http.StatusBadRequest, "invalid_request"},
		{"missing secret", url.Values{"client_id": {testClientID}, "code": {"x"}}, &fakeExchanger{}, http.StatusBadRequest, "invalid_request"},
		{"invalid client", full, &fakeExchanger{err: services.ErrInvalidClient}, http.StatusBadRequest, "invalid_client"},
		{"wrong code", full, &fakeExchanger{err: services.ErrInvalidCode}, http.StatusForbidden, "invalid_grant"},
		{"expired code", full, &fakeExchanger{err: services.ErrCodeExpired}, http.StatusForbidden, "invalid_grant"},
		{"store failure", full, &fakeExchanger{err: errors.New("disk full")}, http.StatusInternalServerError, "server_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(t)
			r.POST("/token/", NewTokenHandler(tt.exchanger).Token)

			w := postToken(r, tt.form)
			assert.Equal(t, tt.wantCode, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.wantError == "" {
				assert.Equal(t, "tok", body["access_token"])
				assert.Equal(t, "Bearer", body["token_type"])
			} else {
				assert.Equal(t, tt.wantError, body["error"])
				assert.Empty(t, body["access_token"])
			}
		})
	}
}

func fulfillmentRouter(t *testing.T, d Dispatcher) *gin.Engine {
	r := newRouter(t)
	h := NewFulfillmentHandler(d)
	authenticated := func(c *gin.Context) {
		c.Set(models.ContextKeyUserID, "alice")
		c.Set(middleware.ContextKeyAccessToken, "tok")
		c.Next()
	}
	r.GET("/", h.Ready)
	r.POST("/", authenticated, h.Fulfill)
	return r
}

func postFulfillment(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestReady(t *testing.T) {
	r := fulfillmentRouter(t, &fakeDispatcher{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Your smart home is ready.", w.Body.String())
}

func TestFulfill_PassesIdentityAndReturnsPayload(t *testing.T) {
	d := &fakeDispatcher{resp: &models.FulfillmentResponse{
		RequestID: "req-1",
		Payload:   map[string]any{"agentUserId": "alice", "devices": []any{}},
	}}
	r := fulfillmentRouter(t, d)

	w := postFulfillment(r, `{"requestId":"req-1","inputs":[{"intent":"action.devices.SYNC"}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"requestId":"req-1","payload":{"agentUserId":"alice","devices":[]}}`, w.Body.String())
	assert.Equal(t, "alice", d.gotUser)
	assert.Equal(t, "tok", d.gotToken)
	require.Len(t, d.gotReq.Inputs, 1)
	assert.Equal(t, models.IntentSync, d.gotReq.Inputs[0].Intent)
}

func TestFulfill_DisconnectReturnsEmptyObject(t *testing.T) {
	r := fulfillmentRouter(t, &fakeDispatcher{resp: models.EmptyFulfillmentResponse()})

	w := postFulfillment(r, `{"requestId":"req-2","inputs":[{"intent":"action.devices.DISCONNECT"}]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
}

func TestFulfill_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{"malformed json", `{"inputs":`, nil, http.StatusBadRequest},
		{"malformed payload", `{"inputs":[]}`, services.ErrInvalidRequest, http.StatusBadRequest},
		{"user not found", `{"inputs":[]}`, services.ErrUserNotFound, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := fulfillmentRouter(t, &fakeDispatcher{err: tt.err})
			w := postFulfillment(r, tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestLeadingIntent(t *testing.T) {
	tests := []struct {
		name   string
		inputs []models.Input
		want   string
	}{
		{"no inputs", nil, "none"},
		{"known", []models.Input{{Intent: models.IntentQuery}, {Intent: models.IntentSync}}, models.IntentQuery},
		{"unknown", []models.Input{{Intent: "action.devices.IDENTIFY"}}, "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, leadingIntent(&models.FulfillmentRequest{Inputs: tt.inputs}))
		})
	}
}
