package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/eihwaz/internal/converter"
	"github.com/starford/eihwaz/internal/models"
	"github.com/starford/eihwaz/internal/noteservice"
	"github.com/starford/eihwaz/internal/testutil"
)

func testConfig() *converter.Config {
	return &converter.Config{
		SourceLayouts: []string{"Basic"},
		TargetLayout:  "Cloze",
		FieldMapping: map[string][]models.FieldPair{
			"Basic": {
				{"Front", "Text"},
				{"Back", "Back Extra"},
			},
		},
		AutoClozeFields: []string{"Text"},
	}
}

func newTestServer(t *testing.T, authEnabled bool, token string) *httptest.Server {
	t.Helper()
	db := testutil.TestStore(t)
	testutil.SeedLayouts(t, db)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	settings := converter.NewSettings(testConfig())
	engine := converter.NewEngine(db, settings, logger)
	svc := noteservice.NewService(db, engine)

	h := NewHandler(svc, settings, engine, nil)
	srv := httptest.NewServer(NewRouter(h, authEnabled, token, nil))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeNote(t *testing.T, resp *http.Response) NoteResponse {
	t.Helper()
	defer resp.Body.Close()
	var out NoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestCreateNote_Converts(t *testing.T) {
	srv := newTestServer(t, false, "")

	resp := doJSON(t, http.MethodPost, srv.URL+"/notes", CreateNoteRequest{
		Layout: "Basic",
		Fields: []string{"the capital of France", "Paris"},
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	out := decodeNote(t, resp)

	if out.Note.Layout != "Cloze" {
		t.Errorf("layout = %q, want Cloze", out.Note.Layout)
	}
	if out.Note.Fields[0] != "{{c1::the capital of France}}" {
		t.Errorf("text field = %q", out.Note.Fields[0])
	}
	if out.Conversion == nil || out.Conversion.Status != converter.StatusConverted {
		t.Errorf("conversion = %+v, want converted", out.Conversion)
	}
}

func TestCreateNote_UnknownLayout(t *testing.T) {
	srv := newTestServer(t, false, "")

	resp := doJSON(t, http.MethodPost, srv.URL+"/notes", CreateNoteRequest{
		Layout: "Nope",
		Fields: []string{"a"},
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	srv := newTestServer(t, false, "")

	resp, err := http.Get(srv.URL + "/notes/9999")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetNote_InvalidID(t *testing.T) {
	srv := newTestServer(t, false, "")

	resp, err := http.Get(srv.URL + "/notes/abc")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUpdateNote_OptimisticConcurrency(t *testing.T) {
	srv := newTestServer(t, false, "")

	created := decodeNote(t, doJSON(t, http.MethodPost, srv.URL+"/notes", CreateNoteRequest{
		Layout: "Cloze",
		Fields: []string{"{{c1::x}}", ""},
	}, nil))
	url := srv.URL + "/notes/1"

	// Stale checksum is rejected.
	resp := doJSON(t, http.MethodPut, url, UpdateNoteRequest{Fields: []string{"new", ""}},
		map[string]string{"If-Match": `"deadbeef"`})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("stale update status = %d, want 409", resp.StatusCode)
	}

	// Fresh checksum passes; quotes around the ETag are tolerated.
	resp = doJSON(t, http.MethodPut, url, UpdateNoteRequest{Fields: []string{"new", ""}},
		map[string]string{"If-Match": `"` + created.Note.Checksum + `"`})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fresh update status = %d, want 200", resp.StatusCode)
	}
	out := decodeNote(t, resp)
	if out.Note.Fields[0] != "new" {
		t.Errorf("field = %q, want new", out.Note.Fields[0])
	}
}

func TestDeleteNote(t *testing.T) {
	srv := newTestServer(t, false, "")

	decodeNote(t, doJSON(t, http.MethodPost, srv.URL+"/notes", CreateNoteRequest{
		Layout: "Cloze",
		Fields: []string{"{{c1::x}}", ""},
	}, nil))

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/notes/1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", resp2.StatusCode)
	}
}

func TestConvertNote_Endpoint(t *testing.T) {
	srv := newTestServer(t, false, "")

	// A note already on the target layout converts to a skip.
	decodeNote(t, doJSON(t, http.MethodPost, srv.URL+"/notes", CreateNoteRequest{
		Layout: "Cloze",
		Fields: []string{"{{c1::x}}", ""},
	}, nil))

	resp := doJSON(t, http.MethodPost, srv.URL+"/notes/1/convert", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	out := decodeNote(t, resp)
	if out.Conversion.Status != converter.StatusSkipped {
		t.Errorf("status = %q, want skipped", out.Conversion.Status)
	}
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t, false, "")

	decodeNote(t, doJSON(t, http.MethodPost, srv.URL+"/notes", CreateNoteRequest{
		Layout: "Cloze",
		Fields: []string{"{{c1::mitochondria}} is the powerhouse", ""},
	}, nil))

	resp, err := http.Get(srv.URL + "/search?q=powerhouse")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var out struct {
		Notes []models.Note `json:"notes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Notes) != 1 {
		t.Fatalf("got %d notes, want 1", len(out.Notes))
	}

	resp2, err := http.Get(srv.URL + "/search")
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing q status = %d, want 400", resp2.StatusCode)
	}
}

func TestLayouts(t *testing.T) {
	srv := newTestServer(t, false, "")

	resp := doJSON(t, http.MethodPost, srv.URL+"/layouts", CreateLayoutRequest{
		Name:   "Vocab",
		Fields: []string{"Word", "Meaning"},
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}

	// Duplicate name conflicts.
	resp = doJSON(t, http.MethodPost, srv.URL+"/layouts", CreateLayoutRequest{
		Name:   "Vocab",
		Fields: []string{"Word"},
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", resp.StatusCode)
	}

	listResp, err := http.Get(srv.URL + "/layouts")
	if err != nil {
		t.Fatal(err)
	}
	defer listResp.Body.Close()
	var out struct {
		Layouts []models.Layout `json:"layouts"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Layouts) != 3 { // Basic, Cloze, Vocab
		t.Errorf("got %d layouts, want 3", len(out.Layouts))
	}
}

func TestConfigEndpoints(t *testing.T) {
	srv := newTestServer(t, false, "")

	resp, err := http.Get(srv.URL + "/config")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out ConfigResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Config == nil || out.Config.TargetLayout != "Cloze" {
		t.Fatalf("config = %+v", out.Config)
	}

	// Invalid replacement is rejected, old config stays.
	bad := testConfig()
	bad.SourceLayouts = []string{"Cloze"} // source equals target
	badResp := doJSON(t, http.MethodPut, srv.URL+"/config", bad, nil)
	badResp.Body.Close()
	if badResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid config status = %d, want 400", badResp.StatusCode)
	}

	good := testConfig()
	good.SourceLayouts = []string{"Basic", "Vocab"}
	good.FieldMapping["Vocab"] = []models.FieldPair{{"Word", "Text"}}
	goodResp := doJSON(t, http.MethodPut, srv.URL+"/config", good, nil)
	if goodResp.StatusCode != http.StatusOK {
		t.Fatalf("valid config status = %d, want 200", goodResp.StatusCode)
	}
	var updated ConfigResponse
	if err := json.NewDecoder(goodResp.Body).Decode(&updated); err != nil {
		t.Fatal(err)
	}
	goodResp.Body.Close()
	if len(updated.Config.SourceLayouts) != 2 {
		t.Errorf("source layouts = %v", updated.Config.SourceLayouts)
	}
	// Vocab layout does not exist in the store, so a warning is expected.
	found := false
	for _, w := range updated.Warnings {
		if strings.Contains(w, "Vocab") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a warning about Vocab, got %v", updated.Warnings)
	}
}

func TestAuthMiddleware(t *testing.T) {
	srv := newTestServer(t, true, "secret-token")

	// No token.
	resp, err := http.Get(srv.URL + "/notes")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", resp.StatusCode)
	}

	// Wrong token.
	resp = doJSON(t, http.MethodGet, srv.URL+"/notes", nil,
		map[string]string{"Authorization": "Bearer wrong"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d, want 401", resp.StatusCode)
	}

	// Valid token.
	resp = doJSON(t, http.MethodGet, srv.URL+"/notes", nil,
		map[string]string{"Authorization": "Bearer secret-token"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid token status = %d, want 200", resp.StatusCode)
	}
}
