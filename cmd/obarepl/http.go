package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KilimcininKorOglu/obarepl/internal/client"
	"github.com/KilimcininKorOglu/obarepl/internal/ldap"
	"github.com/KilimcininKorOglu/obarepl/internal/logging"
)

const ldapProbeTimeout = 3 * time.Second

// healthResponse is the body of /health.
type healthResponse struct {
	Status   string       `json:"status"`
	ServerID int          `json:"serverID"`
	BaseDN   string       `json:"baseDN"`
	LDAP     string       `json:"ldap,omitempty"`
	Peers    []peerStatus `json:"peers"`
}

// newRouter serves /metrics from reg and /health for rs. probe checks the
// LDAP server; nil skips the check.
func newRouter(reg *prometheus.Registry, rs *replServer, probe func(context.Context) error) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods(http.MethodGet)
	r.HandleFunc("/health", healthHandler(rs, probe)).Methods(http.MethodGet)
	return r
}

func healthHandler(rs *replServer, probe func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		cfg := rs.config()
		resp := healthResponse{
			Status:   "ok",
			ServerID: cfg.Replication.ServerID,
			BaseDN:   cfg.Replication.BaseDN,
			Peers:    rs.peerStatuses(),
		}

		code := http.StatusOK
		if probe != nil {
			ctx, cancel := context.WithTimeout(req.Context(), ldapProbeTimeout)
			err := probe(ctx)
			cancel()
			if err != nil {
				resp.Status = "degraded"
				resp.LDAP = err.Error()
				code = http.StatusServiceUnavailable
			} else {
				resp.LDAP = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(resp)
	}
}

// ldapProbe returns a probe that reads the root DSE of the LDAP server at
// addr.
func ldapProbe(addr string, maxElementSize int, logger logging.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		var d net.Dialer
		nc, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		conn := client.NewConn(nc,
			client.WithLogger(logger),
			client.WithMaxElementSize(maxElementSize))
		defer conn.Close()

		f, err := conn.Search(&ldap.SearchRequest{
			Scope:      ldap.ScopeBaseObject,
			Filter:     &ldap.PresentFilter{Attribute: "objectClass"},
			Attributes: []string{"supportedLDAPVersion"},
		}, nil, nil)
		if err != nil {
			return err
		}
		if _, err := f.Get(ctx); err != nil {
			f.Cancel()
			return err
		}
		return nil
	}
}
