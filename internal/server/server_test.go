package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Scrimzay/ballwars/internal/netclient"
	"github.com/Scrimzay/ballwars/internal/relay"
	"github.com/Scrimzay/ballwars/internal/session"
	"github.com/Scrimzay/ballwars/internal/terrain"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func setup(t *testing.T) (*relay.Hub, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := log.New(io.Discard)
	s := relay.DefaultSettings()
	s.StateInterval = time.Hour
	hub := relay.NewHub(s, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, SetupRouter(hub, logger)
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createMatch(t *testing.T, r http.Handler, body string) relay.Info {
	t.Helper()
	w := do(r, http.MethodPost, "/matches", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create match: got %d %s", w.Code, w.Body)
	}
	var info relay.Info
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	return info
}

func TestHealthz(t *testing.T) {
	_, r := setup(t)
	w := do(r, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("got %d %s", w.Code, w.Body)
	}
}

func TestMatchLifecycle(t *testing.T) {
	_, r := setup(t)

	info := createMatch(t, r, `{"teams":3,"seed":7,"names":["ann"],"bots":[false,false,true]}`)
	if info.Teams != 3 || info.Seed != 7 || info.Seats[0].Name != "ann" || !info.Seats[2].Bot {
		t.Errorf("created %+v", info)
	}

	w := do(r, http.MethodGet, "/matches/"+info.ID, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"currentTurnIndex":0`) {
		t.Errorf("get match: %d %s", w.Code, w.Body)
	}

	w = do(r, http.MethodGet, "/matches", "")
	var list []relay.Info
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list) != 1 || list[0].ID != info.ID {
		t.Errorf("list: %s (%v)", w.Body, err)
	}

	if w := do(r, http.MethodGet, "/matches/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown match: got %d, want 404", w.Code)
	}
}

func TestCreateMatchDefaultsAndErrors(t *testing.T) {
	_, r := setup(t)

	info := createMatch(t, r, "")
	if info.Teams != 2 {
		t.Errorf("default teams got %d, want 2", info.Teams)
	}

	tests := []struct {
		name string
		body string
	}{
		{"too many teams", `{"teams":9}`},
		{"one team", `{"teams":1}`},
		{"bad json", `{"teams":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(r, http.MethodPost, "/matches", tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("got %d, want 400", w.Code)
			}
		})
	}
}

func TestTerrainEndpoint(t *testing.T) {
	_, r := setup(t)
	info := createMatch(t, r, `{"seed":11}`)

	w := do(r, http.MethodGet, "/matches/"+info.ID+"/terrain", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
	g, err := terrain.DecodeSnapshot(w.Body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	want := terrain.Generate(11).Checksum()
	if sum := w.Header().Get("X-Terrain-Checksum"); sum != want || g.Checksum() != want {
		t.Errorf("checksum header %q, body %q, want %q", sum, g.Checksum(), want)
	}
	if w.Header().Get("X-Terrain-Width") != "2000" || w.Header().Get("X-Terrain-Height") != "800" {
		t.Errorf("size headers %v", w.Header())
	}
}

func TestSchemaEndpoint(t *testing.T) {
	_, r := setup(t)
	w := do(r, http.MethodGet, "/schema", "")
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{session.TypeInit, session.TypeState, "input.Fire"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("schema missing %q", key)
		}
	}
}

func TestWebsocketJoin(t *testing.T) {
	_, r := setup(t)
	srv := httptest.NewServer(r)
	defer srv.Close()
	info := createMatch(t, r, `{"teams":2,"seed":3,"bots":[false,true]}`)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/matches/"+info.ID+"/ws?name=ann", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err := ws.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var init session.InitWire
	if err := json.Unmarshal(raw, &init); err != nil || init.RNGSeed != 3 || init.PlayerNames != "ann,Player 2" {
		t.Fatalf("init %s (%v)", raw, err)
	}

	// the only human seat is taken
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/matches/"+info.ID+"/ws?name=bob", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("second human: err %v, resp %v", err, resp)
	}
}

func TestNetclientAgainstRelay(t *testing.T) {
	_, r := setup(t)
	srv := httptest.NewServer(r)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seed := uint32(21)
	info, err := netclient.CreateMatch(ctx, srv.Client(), srv.URL, netclient.NewMatch{Seed: &seed})
	if err != nil {
		t.Fatal(err)
	}
	if info.Seed != 21 || info.Teams != 2 {
		t.Errorf("created %+v", info)
	}

	url, err := netclient.MatchURL(srv.URL, info.ID, "bot", false)
	if err != nil {
		t.Fatal(err)
	}
	c, err := netclient.Dial(ctx, url, netclient.Options{Logger: log.New(io.Discard)})
	if err != nil {
		t.Fatal(err)
	}
	runDone := make(chan error, 1)
	go func() { runDone <- c.Run(ctx) }()

	var got []string
	for len(got) < 2 && ctx.Err() == nil {
		for _, raw := range c.Poll() {
			m, err := session.Decode(raw)
			if err != nil {
				t.Fatalf("decode %s: %v", raw, err)
			}
			got = append(got, m.Type())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(got) < 2 || got[0] != session.TypeInit || got[1] != session.TypeState {
		t.Fatalf("welcome %v", got)
	}

	tr, err := netclient.FetchTerrain(ctx, srv.Client(), srv.URL, info.ID)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Checksum != terrain.Generate(21).Checksum() {
		t.Error("relay terrain checksum differs from local generation")
	}

	cancel()
	if err := <-runDone; err != nil {
		t.Errorf("Run after cancel: %v", err)
	}
}
