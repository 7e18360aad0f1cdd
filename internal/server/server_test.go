package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/mstanton/keepsake/internal/engine"
	"github.com/mstanton/keepsake/internal/llm"
	"github.com/mstanton/keepsake/internal/store"
)

func testServer(t *testing.T, mock *llm.MockClient) *Server {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, engine.New(db, mock), "test-version")
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t, nil)

	w := doJSON(t, srv, "GET", "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test-version" {
		t.Errorf("version = %v, want test-version", body["version"])
	}
	if body["db"] != true {
		t.Errorf("db = %v, want true", body["db"])
	}
}

func TestMemoryCRUD(t *testing.T) {
	srv := testServer(t, nil)

	w := doJSON(t, srv, "POST", "/api/memories",
		`{"content":"the deploy pipeline uses blue green","keywords":"deploy,pipeline","importance":0.8,"memory_subtype":"project_info"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}

	var created memoryJSON
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("created memory has no id")
	}
	if created.ImportanceLevel != store.LevelImportant {
		t.Errorf("level = %q, want important", created.ImportanceLevel)
	}

	w = doJSON(t, srv, "GET", "/api/memories/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = doJSON(t, srv, "GET", "/api/memories", "")
	var list struct {
		Count int `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &list)
	if list.Count != 1 {
		t.Errorf("list count = %d, want 1", list.Count)
	}

	w = doJSON(t, srv, "DELETE", "/api/memories/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doJSON(t, srv, "GET", "/api/memories/1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestCreateMemoryValidation(t *testing.T) {
	srv := testServer(t, nil)

	if w := doJSON(t, srv, "POST", "/api/memories", `{"content":"   "}`); w.Code != http.StatusBadRequest {
		t.Errorf("blank content status = %d, want 400", w.Code)
	}
	if w := doJSON(t, srv, "POST", "/api/memories", `not json`); w.Code != http.StatusBadRequest {
		t.Errorf("bad json status = %d, want 400", w.Code)
	}
	if w := doJSON(t, srv, "GET", "/api/memories/banana", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}

func TestRelationEndpoints(t *testing.T) {
	srv := testServer(t, nil)

	doJSON(t, srv, "POST", "/api/memories", `{"content":"first","importance":0.5}`)
	doJSON(t, srv, "POST", "/api/memories", `{"content":"second","importance":0.5}`)

	w := doJSON(t, srv, "POST", "/api/memories/1/relations", `{"related_memory_id":2,"strength":0.7}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create relation status = %d: %s", w.Code, w.Body.String())
	}

	// Self-edges are rejected.
	if w := doJSON(t, srv, "POST", "/api/memories/1/relations", `{"related_memory_id":1}`); w.Code != http.StatusBadRequest {
		t.Errorf("self relation status = %d, want 400", w.Code)
	}

	w = doJSON(t, srv, "GET", "/api/memories/2/relations", "")
	var body struct {
		Count int `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Count != 1 {
		t.Errorf("relation count = %d, want 1", body.Count)
	}
}

func TestGenerateEndpoint(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{
		`{"worth_remembering": true, "content": "user prefers window seats", "keywords": "seats,preference", "importance": 0.7, "memory_type": "factual", "memory_subtype": "preference"}`,
	}}
	srv := testServer(t, mock)

	w := doJSON(t, srv, "POST", "/api/generate",
		`{"user_message":"记住我喜欢靠窗的座位","assistant_message":"好的"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("generate status = %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Created bool       `json:"created"`
		Memory  memoryJSON `json:"memory"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.Created || body.Memory.ID == 0 {
		t.Errorf("body = %+v, want created memory", body)
	}
}

func TestGenerateEndpointDeclined(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{`{"worth_remembering": false}`}}
	srv := testServer(t, mock)

	w := doJSON(t, srv, "POST", "/api/generate", `{"user_message":"你好"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("generate status = %d", w.Code)
	}
	var body struct {
		Created bool `json:"created"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Created {
		t.Error("small talk created a memory")
	}
}

func TestRetrieveEndpoint(t *testing.T) {
	srv := testServer(t, nil)

	doJSON(t, srv, "POST", "/api/memories",
		`{"content":"the standup is at 9am","keywords":"standup,几点,时间","importance":0.8}`)

	// Gated-off small talk: no retrieval.
	w := doJSON(t, srv, "GET", "/api/retrieve?q="+url.QueryEscape("你好"), "")
	var body struct {
		Retrieved bool   `json:"retrieved"`
		Rule      string `json:"rule"`
		Excerpt   string `json:"excerpt"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Retrieved {
		t.Errorf("greeting retrieved: %+v", body)
	}

	// A recall question passes the gate and surfaces the memory.
	w = doJSON(t, srv, "GET", "/api/retrieve?q="+url.QueryEscape("我的standup是几点"), "")
	json.Unmarshal(w.Body.Bytes(), &body)
	if !body.Retrieved {
		t.Fatalf("recall question gated off: %+v", body)
	}
	if !strings.Contains(body.Excerpt, "9am") {
		t.Errorf("excerpt missing fact: %q", body.Excerpt)
	}

	if w := doJSON(t, srv, "GET", "/api/retrieve", ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", w.Code)
	}
}

func TestReviewAndOrganizeTriggers(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{"[]"}}
	srv := testServer(t, mock)

	w := doJSON(t, srv, "POST", "/api/review/trigger", "")
	if w.Code != http.StatusOK {
		t.Fatalf("review trigger status = %d: %s", w.Code, w.Body.String())
	}
	var session struct {
		RunID       string `json:"run_id"`
		TriggerType string `json:"trigger_type"`
	}
	json.Unmarshal(w.Body.Bytes(), &session)
	if session.TriggerType != store.TriggerManual {
		t.Errorf("trigger = %q, want manual", session.TriggerType)
	}

	w = doJSON(t, srv, "GET", "/api/reviews", "")
	var reviews struct {
		Count int `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &reviews)
	if reviews.Count != 1 {
		t.Errorf("review count = %d, want 1", reviews.Count)
	}

	w = doJSON(t, srv, "POST", "/api/organize/trigger", "")
	if w.Code != http.StatusOK {
		t.Fatalf("organize trigger status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, srv, "POST", "/api/counter/reset", "")
	if w.Code != http.StatusOK {
		t.Fatalf("counter reset status = %d", w.Code)
	}
}
