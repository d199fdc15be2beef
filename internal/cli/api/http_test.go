package api

import (
	fsrepo "CardVault/internal/cli/repo/fs"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// helper: перенастройка конфиг‑каталога в temp
func setTempCfg(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if runtime.GOOS == "windows" {
		t.Setenv("APPDATA", dir)
	} else {
		t.Setenv("XDG_CONFIG_HOME", dir)
	}
	return dir
}

func TestPostJSON_SendsAuth_And_ParsesBody(t *testing.T) {
	setTempCfg(t)
	store := fsrepo.AuthFSStore{}
	_ = store.Save("tok123")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c := r.Header.Get("Cookie"); !strings.Contains(c, "auth_token=tok123") {
			t.Fatalf("Cookie header missing token, got: %q", c)
		}
		if r.Header.Get("password") != "pw" {
			t.Fatalf("password header missing")
		}
		var m map[string]any
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			t.Fatalf("bad json: %v", err)
		}
		if m["x"] != float64(1) {
			t.Fatalf("unexpected payload: %#v", m)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL+"/", "pw", store)
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.PostJSON(context.Background(), "/api", map[string]any{"x": 1}, &out); err != nil {
		t.Fatalf("PostJSON err: %v", err)
	}
	if !out.OK {
		t.Fatalf("body not decoded")
	}
}

func TestPostJSON_NoTokenNoPassword(t *testing.T) {
	setTempCfg(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c := r.Header.Get("Cookie"); c != "" {
			t.Fatalf("Cookie must be empty when token not stored, got: %q", c)
		}
		if r.Header.Get("password") != "" {
			t.Fatalf("password header must be empty")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	if err := NewClient(ts.URL, "", fsrepo.AuthFSStore{}).PostJSON(context.Background(), "/", nil, nil); err != nil {
		t.Fatalf("PostJSON err: %v", err)
	}
}

func TestPostJSON_MarshalAndNetworkErrors(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", nil)
	// chan в payload вызовет ошибку json.Marshal
	if err := c.PostJSON(context.Background(), "/", map[string]any{"c": make(chan int)}, nil); err == nil {
		t.Fatalf("expected marshal error")
	}
	if err := c.GetJSON(context.Background(), "/", nil); err == nil {
		t.Fatalf("expected network error for unreachable URL")
	}
	if err := NewClient("http://[::1", "", nil).GetJSON(context.Background(), "/", nil); err == nil {
		t.Fatalf("expected invalid URL error")
	}
}

func TestCall_APIErrorCarriesMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/plain" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"inventory file not found: a.csv"}`))
	}))
	defer ts.Close()
	c := NewClient(ts.URL, "", nil)

	err := c.Delete(context.Background(), "/files/a.csv", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound || !strings.Contains(apiErr.Message, "not found") {
		t.Fatalf("unexpected error: %v", err)
	}

	err = c.GetJSON(context.Background(), "/plain", nil)
	if !errors.As(err, &apiErr) || apiErr.Message != "boom" {
		t.Fatalf("plain text body must become message, got %v", err)
	}
}

func TestCall_BadJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{"))
	}))
	defer ts.Close()
	var out map[string]any
	if err := NewClient(ts.URL, "", nil).GetJSON(context.Background(), "/", &out); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestUpload_Multipart(t *testing.T) {
	src := filepath.Join(t.TempDir(), "inv.csv")
	_ = os.WriteFile(src, []byte("Name\nBolt\n"), 0o644)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload" || !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data;") {
			t.Fatalf("unexpected request: %s %s", r.URL.Path, r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.FormValue("username") != "alice" {
			t.Fatalf("username mismatch: %q", r.FormValue("username"))
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("file part: %v", err)
		}
		b, _ := io.ReadAll(f)
		if hdr.Filename != "inv.csv" || string(b) != "Name\nBolt\n" {
			t.Fatalf("file mismatch: %s %q", hdr.Filename, b)
		}
		_, _ = w.Write([]byte(`{"message":"ok","filename":"alice.csv","job_id":"j1"}`))
	}))
	defer ts.Close()

	var out struct {
		Filename string `json:"filename"`
		JobID    string `json:"job_id"`
	}
	if err := NewClient(ts.URL, "pw", nil).Upload(context.Background(), "alice", src, &out); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if out.Filename != "alice.csv" || out.JobID != "j1" {
		t.Fatalf("unexpected response: %+v", out)
	}

	if err := NewClient(ts.URL, "pw", nil).Upload(context.Background(), "alice", src+".missing", nil); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLogin_PersistsCookie(t *testing.T) {
	setTempCfg(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("password") != "pw" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"Forbidden: wrong password"}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "tok-abc"})
		_, _ = w.Write([]byte(`{"message":"Logged in."}`))
	}))
	defer ts.Close()
	store := fsrepo.AuthFSStore{}

	if err := NewClient(ts.URL, "bad", store).Login(context.Background()); err == nil {
		t.Fatalf("expected forbidden")
	}
	if err := NewClient(ts.URL, "pw", store).Login(context.Background()); err != nil {
		t.Fatalf("login: %v", err)
	}
	tok, err := store.Load()
	if err != nil || tok != "tok-abc" {
		t.Fatalf("token not saved, got %q err=%v", tok, err)
	}
}
