package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"testing"
	"time"

	"github.com/starford/notewiki/internal/noteservice"
	"github.com/starford/notewiki/internal/testutil"
)

const seed = `[
  {"title": "A", "content": "a", "tags": ["x"]},
  {"title": "B", "content": "b", "tags": ["x", "y"]},
  {"title": "two words", "content": "", "tags": []}
]`

// testEnv sets up a notes file, service and router. An empty token means
// auth is disabled.
func testEnv(t *testing.T, authToken string) (*noteservice.Service, http.Handler) {
	t.Helper()
	svc, _ := testutil.TestService(t, seed)
	return svc, NewRouter(svc, authToken != "", authToken, nil)
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetNote(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/notes", NoteRequest{Title: "C", Content: "hello", Tags: []string{"A"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	w = do(t, router, http.MethodGet, "/notes/C", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.ID != created.ID || note.Content != "hello" || !slices.Equal(note.Tags, []string{"A"}) {
		t.Errorf("note = %+v", note)
	}

	w = do(t, router, http.MethodGet, "/notes/A", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if !slices.Equal(note.Kids, []string{"C"}) {
		t.Errorf("kids(A) = %v", note.Kids)
	}
}

func TestGetNoteByIDAndEscapedTitle(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/notes/1", nil)
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if w.Code != http.StatusOK || note.Title != "A" {
		t.Errorf("by id: status = %d, note = %+v", w.Code, note)
	}

	w = do(t, router, http.MethodGet, "/notes/"+url.PathEscape("two words"), nil)
	if w.Code != http.StatusOK {
		t.Errorf("escaped title status = %d", w.Code)
	}
}

func TestCreateDuplicate(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/notes", NoteRequest{Title: "A", Content: "again"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestCreateValidation(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/notes", NoteRequest{Content: "no title"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing title = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodPost, "/notes", NoteRequest{Title: "T", Tags: []string{""}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty tag = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/notes", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON = %d, want 400", rec.Code)
	}
}

func TestUpdateNote(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPut, "/notes/A", NoteRequest{Title: "A2", Content: "new", Tags: []string{"z"}})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodGet, "/notes/x/kids", nil)
	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Notes[0].Title != "B" {
		t.Errorf("kids(x) = %+v", resp)
	}
}

func TestUpdateNote_Conflict(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPut, "/notes/A", NoteRequest{Title: "B"})
	if w.Code != http.StatusConflict {
		t.Errorf("rename onto B = %d, want 409", w.Code)
	}
}

func TestUpdateNote_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPut, "/notes/ghost", NoteRequest{Title: "ghost"})
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/notes/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing note = %d, want 404", w.Code)
	}
	w = do(t, router, http.MethodGet, "/notes/nope/kids", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing kids = %d, want 404", w.Code)
	}
}

func TestListNotes(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 5 || len(resp.Notes) != 5 {
		t.Errorf("total = %d, notes = %d", resp.Total, len(resp.Notes))
	}
}

func TestGraphEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/graph", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("graph = %d", w.Code)
	}
	var resp GraphResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Nodes) != 5 || len(resp.Links) != 3 {
		t.Errorf("nodes = %d, links = %d", len(resp.Nodes), len(resp.Links))
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	w := do(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// testEnvWithSSE creates a router with a stub SSE handler to test auth on /events.
func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	svc, _ := testutil.TestService(t, seed)
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
	return NewRouter(svc, authEnabled, token, sseHandler)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")
	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	router := testEnvWithSSE(t, false, "")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE = %d, want 200", w.Code)
	}
}

func TestPercentInTitleIsNotDecodedTwice(t *testing.T) {
	_, router := testEnv(t, "")
	for _, n := range []NoteRequest{{Title: "a%41b", Content: "percent"}, {Title: "aAb", Content: "plain"}} {
		if w := do(t, router, http.MethodPost, "/notes", n); w.Code != http.StatusCreated {
			t.Fatalf("create %q = %d", n.Title, w.Code)
		}
	}

	get := func(title string) NoteDetail {
		t.Helper()
		w := do(t, router, http.MethodGet, "/notes/"+url.PathEscape(title), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("get %q = %d", title, w.Code)
		}
		var note NoteDetail
		_ = json.Unmarshal(w.Body.Bytes(), &note)
		return note
	}
	if n := get("a%41b"); n.Title != "a%41b" || n.Content != "percent" {
		t.Errorf("a%%41b resolved to %+v", n)
	}
	if n := get("aAb"); n.Title != "aAb" || n.Content != "plain" {
		t.Errorf("aAb resolved to %+v", n)
	}

	w := do(t, router, http.MethodPut, "/notes/"+url.PathEscape("a%41b"), NoteRequest{Title: "a%41b", Content: "percent2"})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d", w.Code)
	}
	if n := get("aAb"); n.Content != "plain" {
		t.Errorf("update hit aAb: %+v", n)
	}
	if n := get("a%41b"); n.Content != "percent2" {
		t.Errorf("a%%41b content = %q", n.Content)
	}
}

func TestSlashInEscapedTitle(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodPost, "/notes", NoteRequest{Title: "a/b", Content: "slash"}); w.Code != http.StatusCreated {
		t.Fatalf("create = %d", w.Code)
	}
	w := do(t, router, http.MethodGet, "/notes/"+url.PathEscape("a/b"), nil)
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if w.Code != http.StatusOK || note.Content != "slash" {
		t.Errorf("status = %d, note = %+v", w.Code, note)
	}
}

func TestRefByTitleQuery(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodPost, "/notes", NoteRequest{Title: "1", Content: "digits", Tags: []string{"A"}}); w.Code != http.StatusCreated {
		t.Fatalf("create = %d", w.Code)
	}

	var note NoteDetail
	w := do(t, router, http.MethodGet, "/notes/1", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Title != "A" {
		t.Errorf("/notes/1 = %q, want id 1 (A)", note.Title)
	}
	w = do(t, router, http.MethodGet, "/notes/1?by=title", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if w.Code != http.StatusOK || note.Content != "digits" {
		t.Errorf("by=title: status = %d, note = %+v", w.Code, note)
	}

	w = do(t, router, http.MethodGet, "/notes/A/kids?by=title", nil)
	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Notes[0].Title != "1" {
		t.Errorf("kids(A) = %+v", resp)
	}

	w = do(t, router, http.MethodPut, "/notes/1?by=title", NoteRequest{Title: "1", Content: "edited"})
	if w.Code != http.StatusOK {
		t.Fatalf("update by title = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/notes/A", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Content != "a" {
		t.Errorf("update by title touched A: %+v", note)
	}

	if w := do(t, router, http.MethodGet, "/notes/missing?by=title", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing by title = %d, want 404", w.Code)
	}
}
