package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/obarepl/internal/ber"
	"github.com/KilimcininKorOglu/obarepl/internal/ldap"
	"github.com/KilimcininKorOglu/obarepl/internal/logging"
)

func newTestRouter(t *testing.T, probe func(context.Context) error) (http.Handler, *testEnv) {
	t.Helper()
	reg := prometheus.NewRegistry()
	env := startReplServer(t, testConfig(), reg)
	return newRouter(reg, env.rs, probe), env
}

func getHealth(t *testing.T, h http.Handler) (int, healthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, resp
}

func TestHealth(t *testing.T) {
	h, env := newTestRouter(t, nil)
	env.connectDS(7, 10)

	code, resp := getHealth(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 101, resp.ServerID)
	assert.Equal(t, "dc=example,dc=com", resp.BaseDN)
	assert.Empty(t, resp.LDAP)
	require.Len(t, resp.Peers, 1)
	p := resp.Peers[0]
	assert.Equal(t, int32(7), p.ID)
	assert.Equal(t, "ds7.example.com:1389", p.URL)
	assert.Equal(t, "directory-server", p.Kind)
	assert.Equal(t, "normal", p.Status)
	assert.Equal(t, 8, p.Version)
}

func TestHealth_LDAPProbe(t *testing.T) {
	tests := []struct {
		name       string
		probeErr   error
		wantCode   int
		wantStatus string
		wantLDAP   string
	}{
		{"up", nil, http.StatusOK, "ok", "ok"},
		{"down", errors.New("connection refused"), http.StatusServiceUnavailable, "degraded", "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestRouter(t, func(context.Context) error { return tt.probeErr })

			code, resp := getHealth(t, h)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantLDAP, resp.LDAP)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "replication_open_sessions")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// serveRootDSE answers one search on ln with result code rc.
func serveRootDSE(t *testing.T, ln net.Listener, rc ldap.ResultCode) <-chan *ldap.SearchRequest {
	got := make(chan *ldap.SearchRequest, 1)
	go func() {
		defer close(got)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		codec := ldap.NewCodec(nil)
		r := ber.NewStreamReader(bufio.NewReader(conn), 0, ber.WithMetrics(ber.NewMetrics(nil)))
		m, err := codec.ReadMessage(r, nil)
		if err != nil {
			return
		}
		req, ok := m.Op.(*ldap.SearchRequest)
		if !ok {
			return
		}
		got <- req

		data, err := codec.Marshal(&ldap.Message{ID: m.ID, Op: &ldap.SearchResultDone{Result: ldap.NewErrorResult(rc, "")}})
		if err != nil {
			return
		}
		conn.Write(data)
		// Wait for the unbind sent on close.
		codec.ReadMessage(r, nil)
	}()
	return got
}

func TestLDAPProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := serveRootDSE(t, ln, ldap.ResultSuccess)
	probe := ldapProbe(ln.Addr().String(), 0, logging.NewNop())
	require.NoError(t, probe(context.Background()))

	req := <-got
	require.NotNil(t, req)
	assert.Equal(t, ldap.ScopeBaseObject, req.Scope)
	assert.Empty(t, req.BaseObject.String())
	assert.Equal(t, &ldap.PresentFilter{Attribute: "objectClass"}, req.Filter)
}

func TestLDAPProbe_Errors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	serveRootDSE(t, ln, ldap.ResultUnavailable)
	err = ldapProbe(addr, 0, nil)(context.Background())
	assert.Error(t, err)
	ln.Close()

	// Nothing listens any more.
	assert.Error(t, ldapProbe(addr, 0, nil)(context.Background()))
}
