package delivery_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/watchparty/internal/delivery"
	ws "github.com/Vovarama1992/watchparty/internal/delivery/ws"
	"github.com/Vovarama1992/watchparty/internal/domain"
	"github.com/Vovarama1992/watchparty/internal/infra"
	"github.com/Vovarama1992/watchparty/internal/ports"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type testEnv struct {
	server  *httptest.Server
	hub     *ws.Hub
	uploads *domain.UploadService
	dir     string
}

type resolved struct {
	err  error
	done chan struct{}
}

func (r *resolved) Wait() error           { return r.err }
func (r *resolved) Done() <-chan struct{} { return r.done }

// stubEncoder copies input to output, or fails without writing anything.
type stubEncoder struct{ fail bool }

func (e stubEncoder) Invoke(_ context.Context, in, out string) (ports.EncodeHandle, error) {
	h := &resolved{done: make(chan struct{})}
	close(h.done)
	if e.fail {
		h.err = errors.New("exit status 1")
		return h, nil
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return nil, err
	}
	return h, os.WriteFile(out, data, 0644)
}

func newTestEnv(t *testing.T, enc ports.Encoder) *testEnv {
	t.Helper()

	zl := logger.NewZapLogger(zap.NewNop().Sugar())
	dir := filepath.Join(t.TempDir(), "uploads")
	files := infra.NewDirBlobStore(dir)
	repo := infra.NewMemoryRepo()
	hub := ws.NewHub(zap.NewNop())

	uploads := domain.NewUploadService(context.Background(), files, repo, hub, enc, zl)
	chat := domain.NewChatService(repo, hub, zl)

	static := fstest.MapFS{"index.html": {Data: []byte("<html>watchparty</html>")}}

	r := chi.NewRouter()
	delivery.RegisterRoutes(r,
		delivery.NewMediaHandler(uploads, files, 10<<20, zl),
		delivery.NewNotesHandler(chat, zl),
		ws.WSHandler(hub, chat, zl),
		static,
	)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	t.Cleanup(uploads.Wait)

	return &testEnv{server: srv, hub: hub, uploads: uploads, dir: dir}
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write(data)
	}
	mw.WriteField("note", "unused")
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func upload(t *testing.T, env *testEnv, field, filename string, data []byte) (int, map[string]string) {
	t.Helper()
	body, ctype := multipartBody(t, field, filename, data)
	resp, err := http.Post(env.server.URL+"/upload", ctype, body)
	if err != nil {
		t.Fatalf("POST /upload: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode, out
}

func getJSON(t *testing.T, url string, dest any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestUploadRoundTrip(t *testing.T) {
	env := newTestEnv(t, stubEncoder{})
	data := []byte("\x00\x00\x00\x18ftypmp42 some video")

	status, out := upload(t, env, "video", "holiday.mp4", data)
	if status != http.StatusOK {
		t.Fatalf("status %d body %v", status, out)
	}
	if out["url"] != "/uploads/holiday.mp4" {
		t.Fatalf("unexpected url %q", out["url"])
	}

	resp, err := http.Get(env.server.URL + out["url"])
	if err != nil {
		t.Fatalf("GET file: %v", err)
	}
	defer resp.Body.Close()
	got, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(got, data) {
		t.Fatalf("served bytes differ: %q", got)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "video/mp4" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestUploadWithoutFile(t *testing.T) {
	env := newTestEnv(t, stubEncoder{})

	status, out := upload(t, env, "", "", nil)
	if status != http.StatusBadRequest || out["error"] != "No file" {
		t.Fatalf("got %d %v", status, out)
	}

	status, out = upload(t, env, "attachment", "a.mp4", []byte("x"))
	if status != http.StatusBadRequest || out["error"] != "No file" {
		t.Fatalf("wrong field: got %d %v", status, out)
	}

	resp, err := http.Post(env.server.URL+"/upload", "application/json", bytes.NewBufferString(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("non-multipart: status %d", resp.StatusCode)
	}

	entries, _ := os.ReadDir(env.dir)
	if len(entries) != 0 {
		t.Fatalf("rejected uploads wrote %d files", len(entries))
	}
}

func TestUploadSanitizesFilename(t *testing.T) {
	env := newTestEnv(t, stubEncoder{})

	status, out := upload(t, env, "video", "Mi película (1).mp4", []byte("x"))
	if status != http.StatusOK {
		t.Fatalf("status %d", status)
	}
	if out["url"] != "/uploads/Mi_pelicula_1.mp4" {
		t.Fatalf("unexpected url %q", out["url"])
	}
	if _, err := os.Stat(filepath.Join(env.dir, "Mi_pelicula_1.mp4")); err != nil {
		t.Fatalf("sanitized file not in upload dir: %v", err)
	}

	resp, err := http.Get(env.server.URL + "/uploads/..%2F..%2Fetc%2Fpasswd")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("traversal: status %d", resp.StatusCode)
	}
}

func TestServeMissingFile(t *testing.T) {
	env := newTestEnv(t, stubEncoder{})

	resp, err := http.Get(env.server.URL + "/uploads/nothing.mp4")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

type movie struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

func TestMoviesAfterConversion(t *testing.T) {
	env := newTestEnv(t, stubEncoder{})

	if status, _ := upload(t, env, "video", "trip.webm", []byte("x")); status != http.StatusOK {
		t.Fatalf("status %d", status)
	}
	env.uploads.Wait()

	var movies []movie
	getJSON(t, env.server.URL+"/movies", &movies)
	if len(movies) != 2 ||
		movies[0] != (movie{"trip.webm", "/uploads/trip.webm"}) ||
		movies[1] != (movie{"converted_trip.mp4", "/uploads/converted_trip.mp4"}) {
		t.Fatalf("unexpected movies %+v", movies)
	}
}

func TestMoviesAfterFailedConversion(t *testing.T) {
	env := newTestEnv(t, stubEncoder{fail: true})

	if status, _ := upload(t, env, "video", "trip.webm", []byte("x")); status != http.StatusOK {
		t.Fatalf("status %d", status)
	}
	env.uploads.Wait()

	var movies []movie
	getJSON(t, env.server.URL+"/movies", &movies)
	if len(movies) != 1 || movies[0].Title != "trip.webm" {
		t.Fatalf("unexpected movies %+v", movies)
	}
}

func TestEmptyListsAreArrays(t *testing.T) {
	env := newTestEnv(t, stubEncoder{})

	for _, path := range []string{"/movies", "/notes"} {
		resp, err := http.Get(env.server.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(bytes.TrimSpace(body)) != "[]" {
			t.Fatalf("%s: got %q", path, body)
		}
	}
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t, stubEncoder{})

	resp, err := http.Get(env.server.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte("watchparty")) {
		t.Fatalf("status %d body %q", resp.StatusCode, body)
	}
}
