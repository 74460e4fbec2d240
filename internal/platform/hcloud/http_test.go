package hcloud

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/hetznercloud/hcloud-go/v2/hcloud/schema"

	"github.com/imamik/wsctl/internal/config"
)

// fakeAPI is a small in-memory Hetzner Cloud API served over httptest.
// It covers the endpoints the adapter uses and completes every action
// immediately.
type fakeAPI struct {
	mu        sync.Mutex
	nextID    int64
	networks  map[int64]*schema.Network
	fips      map[int64]*schema.FloatingIP
	firewalls map[int64]*schema.Firewall
	sshKeys   map[int64]*schema.SSHKey
	calls     []string
}

// newTestClient starts a fake API and returns an adapter pointed at it.
func newTestClient(t *testing.T) (*RealClient, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{
		networks:  make(map[int64]*schema.Network),
		fips:      make(map[int64]*schema.FloatingIP),
		firewalls: make(map[int64]*schema.Firewall),
		sshKeys:   make(map[int64]*schema.SSHKey),
	}

	mux := http.NewServeMux()
	api.routes(mux)
	server := httptest.NewServer(api.record(mux))
	t.Cleanup(server.Close)

	client := NewRealClient(config.HetznerConfig{
		Token:          "test-token",
		Location:       "fsn1",
		NetworkZone:    "eu-central",
		GatewayIP:      "10.0.0.2",
		WorkingNetwork: "shared",
	},
		WithHCloudClient(hcloud.NewClient(
			hcloud.WithToken("test-token"),
			hcloud.WithEndpoint(server.URL),
		)),
		WithTimeouts(config.TestTimeouts()),
	)
	return client, api
}

// jsonResponse writes a JSON response with the given status code and body.
func jsonResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func errorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	jsonResponse(w, statusCode, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

func (api *fakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.calls = append(api.calls, r.Method+" "+r.URL.Path)
		api.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (api *fakeAPI) id() int64 {
	api.nextID++
	return api.nextID
}

func (api *fakeAPI) action(command string) schema.Action {
	return schema.Action{ID: api.id(), Command: command, Status: "success", Progress: 100}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil
}

func decode(r *http.Request, v any) {
	_ = json.NewDecoder(r.Body).Decode(v)
}

// listByName serves GET /<collection>?name=x from a map of named objects.
func listByName[T any](items map[int64]*T, name string, nameOf func(*T) string) []T {
	out := []T{}
	ids := make([]int64, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if name == "" || nameOf(items[id]) == name {
			out = append(out, *items[id])
		}
	}
	return out
}

// getByID serves GET /<collection>/{id}.
func getByID[T any](api *fakeAPI, items map[int64]*T, key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		id, _ := pathID(r)
		item, ok := items[id]
		if !ok {
			errorResponse(w, http.StatusNotFound, "not_found", key+" not found")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]any{key: item})
	}
}

// deleteByID serves DELETE /<collection>/{id}.
func deleteByID[T any](api *fakeAPI, items map[int64]*T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		id, _ := pathID(r)
		if _, ok := items[id]; !ok {
			errorResponse(w, http.StatusNotFound, "not_found", "not found")
			return
		}
		delete(items, id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (api *fakeAPI) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /networks", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		jsonResponse(w, http.StatusOK, map[string]any{
			"networks": listByName(api.networks, r.URL.Query().Get("name"), func(n *schema.Network) string { return n.Name }),
		})
	})
	mux.HandleFunc("GET /networks/{id}", getByID(api, api.networks, "network"))
	mux.HandleFunc("DELETE /networks/{id}", deleteByID(api, api.networks))
	mux.HandleFunc("POST /networks", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name    string            `json:"name"`
			IPRange string            `json:"ip_range"`
			Labels  map[string]string `json:"labels"`
		}
		decode(r, &req)
		api.mu.Lock()
		defer api.mu.Unlock()
		n := &schema.Network{ID: api.id(), Name: req.Name, IPRange: req.IPRange, Labels: req.Labels}
		api.networks[n.ID] = n
		jsonResponse(w, http.StatusCreated, map[string]any{"network": n})
	})
	mux.HandleFunc("PUT /networks/{id}", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Labels *map[string]string `json:"labels"`
		}
		decode(r, &req)
		api.mu.Lock()
		defer api.mu.Unlock()
		id, _ := pathID(r)
		n, ok := api.networks[id]
		if !ok {
			errorResponse(w, http.StatusNotFound, "not_found", "network not found")
			return
		}
		if req.Labels != nil {
			n.Labels = *req.Labels
		}
		jsonResponse(w, http.StatusOK, map[string]any{"network": n})
	})
	mux.HandleFunc("POST /networks/{id}/actions/{action}", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Type        string `json:"type"`
			IPRange     string `json:"ip_range"`
			NetworkZone string `json:"network_zone"`
			Destination string `json:"destination"`
			Gateway     string `json:"gateway"`
		}
		decode(r, &req)
		api.mu.Lock()
		defer api.mu.Unlock()
		id, _ := pathID(r)
		n, ok := api.networks[id]
		if !ok {
			errorResponse(w, http.StatusNotFound, "not_found", "network not found")
			return
		}

		switch r.PathValue("action") {
		case "add_subnet":
			for _, s := range n.Subnets {
				if s.IPRange == req.IPRange {
					errorResponse(w, http.StatusConflict, "uniqueness_error", "subnet exists")
					return
				}
			}
			n.Subnets = append(n.Subnets, schema.NetworkSubnet{Type: req.Type, IPRange: req.IPRange, NetworkZone: req.NetworkZone})
		case "delete_subnet":
			kept := n.Subnets[:0]
			for _, s := range n.Subnets {
				if s.IPRange != req.IPRange {
					kept = append(kept, s)
				}
			}
			n.Subnets = kept
		case "add_route":
			n.Routes = append(n.Routes, schema.NetworkRoute{Destination: req.Destination, Gateway: req.Gateway})
		case "delete_route":
			kept := n.Routes[:0]
			for _, rt := range n.Routes {
				if rt.Destination != req.Destination || rt.Gateway != req.Gateway {
					kept = append(kept, rt)
				}
			}
			n.Routes = kept
		default:
			errorResponse(w, http.StatusBadRequest, "invalid_input", "unknown action")
			return
		}
		jsonResponse(w, http.StatusCreated, map[string]any{"action": api.action(r.PathValue("action"))})
	})

	mux.HandleFunc("GET /floating_ips", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		jsonResponse(w, http.StatusOK, map[string]any{
			"floating_ips": listByName(api.fips, r.URL.Query().Get("name"), func(f *schema.FloatingIP) string { return f.Name }),
		})
	})
	mux.HandleFunc("GET /floating_ips/{id}", getByID(api, api.fips, "floating_ip"))
	mux.HandleFunc("DELETE /floating_ips/{id}", deleteByID(api, api.fips))
	mux.HandleFunc("POST /floating_ips", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Type         string            `json:"type"`
			HomeLocation string            `json:"home_location"`
			Name         string            `json:"name"`
			Labels       map[string]string `json:"labels"`
		}
		decode(r, &req)
		api.mu.Lock()
		defer api.mu.Unlock()
		id := api.id()
		f := &schema.FloatingIP{
			ID:           id,
			Name:         req.Name,
			Type:         req.Type,
			IP:           "203.0.113." + strconv.FormatInt(id, 10),
			HomeLocation: schema.Location{Name: req.HomeLocation},
			Labels:       req.Labels,
		}
		api.fips[id] = f
		jsonResponse(w, http.StatusCreated, map[string]any{"floating_ip": f, "action": api.action("create_floating_ip")})
	})

	mux.HandleFunc("GET /firewalls", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		jsonResponse(w, http.StatusOK, map[string]any{
			"firewalls": listByName(api.firewalls, r.URL.Query().Get("name"), func(f *schema.Firewall) string { return f.Name }),
		})
	})
	mux.HandleFunc("GET /firewalls/{id}", getByID(api, api.firewalls, "firewall"))
	mux.HandleFunc("DELETE /firewalls/{id}", deleteByID(api, api.firewalls))
	mux.HandleFunc("POST /firewalls", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name   string                `json:"name"`
			Labels map[string]string     `json:"labels"`
			Rules  []schema.FirewallRule `json:"rules"`
		}
		decode(r, &req)
		api.mu.Lock()
		defer api.mu.Unlock()
		fw := &schema.Firewall{ID: api.id(), Name: req.Name, Labels: req.Labels, Rules: req.Rules}
		api.firewalls[fw.ID] = fw
		jsonResponse(w, http.StatusCreated, map[string]any{"firewall": fw, "actions": []schema.Action{}})
	})
	mux.HandleFunc("POST /firewalls/{id}/actions/set_rules", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Rules []schema.FirewallRule `json:"rules"`
		}
		decode(r, &req)
		api.mu.Lock()
		defer api.mu.Unlock()
		id, _ := pathID(r)
		fw, ok := api.firewalls[id]
		if !ok {
			errorResponse(w, http.StatusNotFound, "not_found", "firewall not found")
			return
		}
		fw.Rules = req.Rules
		jsonResponse(w, http.StatusCreated, map[string]any{"actions": []schema.Action{api.action("set_firewall_rules")}})
	})

	mux.HandleFunc("GET /ssh_keys", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		jsonResponse(w, http.StatusOK, map[string]any{
			"ssh_keys": listByName(api.sshKeys, r.URL.Query().Get("name"), func(k *schema.SSHKey) string { return k.Name }),
		})
	})
	mux.HandleFunc("GET /ssh_keys/{id}", getByID(api, api.sshKeys, "ssh_key"))
	mux.HandleFunc("DELETE /ssh_keys/{id}", deleteByID(api, api.sshKeys))
	mux.HandleFunc("POST /ssh_keys", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name      string            `json:"name"`
			PublicKey string            `json:"public_key"`
			Labels    map[string]string `json:"labels"`
		}
		decode(r, &req)
		api.mu.Lock()
		defer api.mu.Unlock()
		k := &schema.SSHKey{ID: api.id(), Name: req.Name, PublicKey: req.PublicKey, Labels: req.Labels}
		api.sshKeys[k.ID] = k
		jsonResponse(w, http.StatusCreated, map[string]any{"ssh_key": k})
	})
}

// network returns a copy of the stored network for assertions.
func (api *fakeAPI) network(t *testing.T, id string) schema.Network {
	t.Helper()
	api.mu.Lock()
	defer api.mu.Unlock()
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || api.networks[n] == nil {
		t.Fatalf("network %s not stored", id)
	}
	return *api.networks[n]
}

// addNetwork stores a network directly, bypassing the adapter.
func (api *fakeAPI) addNetwork(n schema.Network) int64 {
	api.mu.Lock()
	defer api.mu.Unlock()
	n.ID = api.id()
	api.networks[n.ID] = &n
	return n.ID
}

func (api *fakeAPI) setBlocked(id string, blocked bool) {
	api.mu.Lock()
	defer api.mu.Unlock()
	n, _ := strconv.ParseInt(id, 10, 64)
	api.fips[n].Blocked = blocked
}

func (api *fakeAPI) addFirewallRule(id string, rule schema.FirewallRule) {
	api.mu.Lock()
	defer api.mu.Unlock()
	n, _ := strconv.ParseInt(id, 10, 64)
	api.firewalls[n].Rules = append(api.firewalls[n].Rules, rule)
}
