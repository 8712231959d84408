package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"degradation_monitor/internal/models"
	"degradation_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

// minimal router wiring only the middleware + a protected endpoint
func newMiddlewareOnlyRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(s, nil)
	echo := func(c *gin.Context) {
		id, _ := c.Get(operatorIDKey)
		c.JSON(http.StatusOK, gin.H{"ok": true, "operatorId": id, "username": models.ActorFrom(c.Request.Context()).Username})
	}
	r.GET("/secure", h.operatorIdMiddleware, echo)
	r.GET("/stream", h.streamAuthMiddleware, echo)
	return r
}

func TestOperatorIDMiddleware_Errors(t *testing.T) {
	type want struct {
		code   int
		errMsg string
	}
	cases := []struct {
		name   string
		header string
		want   want
	}{
		{
			name:   "missing header",
			header: "",
			want:   want{code: http.StatusUnauthorized, errMsg: "missing Authorization header"},
		},
		{
			name:   "invalid scheme",
			header: "Token abc",
			// actual implementation returns "invalid Authorization header format"
			want: want{code: http.StatusUnauthorized, errMsg: "invalid Authorization header format"},
		},
		{
			name:   "bearer without token",
			header: "Bearer",
			want:   want{code: http.StatusUnauthorized, errMsg: "invalid Authorization header format"},
		},
		{
			name:   "bearer with blank token",
			header: "Bearer   ",
			want:   want{code: http.StatusUnauthorized, errMsg: "invalid Authorization header format"},
		},
		{
			name:   "expired/invalid token",
			header: "Bearer expired",
			want:   want{code: http.StatusUnauthorized, errMsg: "invalid or expired token"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{parseErr: nil}
			if tc.name == "expired/invalid token" {
				auth.parseErr = errors.New("expired")
			}
			s := &service.Service{Authorization: auth}
			r := newMiddlewareOnlyRouter(s)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tc.want.code {
				t.Fatalf("status: got %d, want %d (body=%s)", w.Code, tc.want.code, w.Body.String())
			}

			var out struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out.Error != tc.want.errMsg {
				t.Fatalf("error message: got %q, want %q", out.Error, tc.want.errMsg)
			}
		})
	}
}

func TestOperatorIDMiddleware_SuccessSetsOperatorIDAndProceeds(t *testing.T) {
	auth := &mockAuth{parseActor: models.Actor{OperatorID: 123, Username: "op"}, parseErr: nil}
	s := &service.Service{Authorization: auth}
	r := newMiddlewareOnlyRouter(s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		OK         bool   `json:"ok"`
		OperatorID int    `json:"operatorId"`
		Username   string `json:"username"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.OK || resp.OperatorID != 123 || resp.Username != "op" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if auth.lastParseToken != "good-token" {
		t.Fatalf("ParseToken got %q, want %q", auth.lastParseToken, "good-token")
	}
}

func TestStreamAuthMiddleware(t *testing.T) {
	cases := []struct {
		name      string
		target    string
		header    string
		parseErr  error
		wantCode  int
		wantToken string
	}{
		{name: "query token", target: "/stream?token=tq", wantCode: http.StatusOK, wantToken: "tq"},
		{name: "header wins over query", target: "/stream?token=tq", header: "Bearer th", wantCode: http.StatusOK, wantToken: "th"},
		{name: "no credentials", target: "/stream", wantCode: http.StatusUnauthorized},
		{name: "blank query token", target: "/stream?token=%20", wantCode: http.StatusUnauthorized},
		{name: "malformed header is not bypassed by query", target: "/stream?token=tq", header: "Token th", wantCode: http.StatusUnauthorized},
		{name: "rejected token", target: "/stream?token=old", parseErr: errors.New("expired"), wantCode: http.StatusUnauthorized, wantToken: "old"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{parseActor: models.Actor{OperatorID: 5, Username: "op"}, parseErr: tc.parseErr}
			r := newMiddlewareOnlyRouter(&service.Service{Authorization: auth})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tc.wantCode {
				t.Fatalf("status: got %d, want %d (body=%s)", w.Code, tc.wantCode, w.Body.String())
			}
			if auth.lastParseToken != tc.wantToken {
				t.Fatalf("ParseToken got %q, want %q", auth.lastParseToken, tc.wantToken)
			}
		})
	}
}
