package adminserver_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/l2bridge/goswitch/internal/adminserver"
	"github.com/l2bridge/goswitch/internal/frame"
	"github.com/l2bridge/goswitch/internal/mactable"
	"github.com/l2bridge/goswitch/internal/ports"
	"github.com/l2bridge/goswitch/internal/stp"
	"github.com/l2bridge/goswitch/internal/switchcfg"
)

type fakeView struct {
	reg *ports.Registry
	mac *mactable.Table
	stp *stp.Engine
}

func (v *fakeView) Registry() *ports.Registry { return v.reg }
func (v *fakeView) MACTable() *mactable.Table { return v.mac }
func (v *fakeView) STP() *stp.Engine          { return v.stp }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestView(t *testing.T) *fakeView {
	t.Helper()
	cfg := switchcfg.PortConfig{
		Access: []switchcfg.AccessPort{{Name: "r-0", VLAN: 10}},
		Trunk:  []switchcfg.TrunkPort{{Name: "rr-a", Token: "T"}},
	}
	reg, err := ports.NewRegistry(map[int]string{0: "r-0", 1: "rr-a"}, cfg)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	mt := mactable.New()
	mt.Learn(frame.MAC{0, 1, 2, 3, 4, 5}, "r-0")
	engine := stp.New(1, reg.TrunkNames(), discardLogger())
	return &fakeView{reg: reg, mac: mt, stp: engine}
}

func TestHandlePortsRequiresAuth(t *testing.T) {
	t.Parallel()
	view := newTestView(t)
	srv := adminserver.New(view, "topsecret", discardLogger())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/ports")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestHandlePortsWithValidToken(t *testing.T) {
	t.Parallel()
	view := newTestView(t)
	secret := "topsecret"
	srv := adminserver.New(view, secret, discardLogger())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tok, err := adminserver.IssueToken(secret, "operator", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/ports", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(ports) = %d, want 2", len(got))
	}
}

func TestHandleMACTableDevModeNoAuth(t *testing.T) {
	t.Parallel()
	view := newTestView(t)
	srv := adminserver.New(view, "", discardLogger())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/mactable")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got []map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0]["interface"] != "r-0" {
		t.Fatalf("unexpected mactable body: %+v", got)
	}
}

func TestHandleSTPReportsRootState(t *testing.T) {
	t.Parallel()
	view := newTestView(t)
	srv := adminserver.New(view, "", discardLogger())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/stp")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var got struct {
		IsRoot bool              `json:"is_root"`
		Trunks map[string]string `json:"trunks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.IsRoot {
		t.Fatalf("expected fresh engine to be root")
	}
	if got.Trunks["rr-a"] != "designated" {
		t.Fatalf("trunk state = %q, want designated", got.Trunks["rr-a"])
	}
}

func TestHealthzNeverRequiresAuth(t *testing.T) {
	t.Parallel()
	view := newTestView(t)
	srv := adminserver.New(view, "topsecret", discardLogger())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
