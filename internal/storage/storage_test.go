package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type memoryStore struct {
	keys         []string
	contentTypes []string
}

func (m *memoryStore) Put(_ context.Context, key string, _ []byte, contentType string) (string, error) {
	m.keys = append(m.keys, key)
	m.contentTypes = append(m.contentTypes, contentType)
	return "mem://" + key, nil
}

func TestLocalStoragePut(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		key     string
		wantURL string
		wantErr bool
	}{
		{
			name:    "withBaseURL",
			baseURL: "http://localhost:8080/assets/",
			key:     "generations/g1/hero.png",
			wantURL: "http://localhost:8080/assets/generations/g1/hero.png",
		},
		{
			name: "withoutBaseURL",
			key:  "generations/g1/clean.png",
		},
		{
			name:    "escapingKey",
			key:     "../outside.png",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			s := NewLocalStorage(dir, tt.baseURL)

			got, err := s.Put(context.Background(), tt.key, []byte("png"), "image/png")
			if tt.wantErr {
				if err == nil {
					t.Error("Put() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			path := filepath.Join(dir, filepath.FromSlash(tt.key))
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("asset not written: %v", err)
			}
			if string(data) != "png" {
				t.Errorf("asset content = %q", data)
			}

			want := tt.wantURL
			if want == "" {
				want = path
			}
			if got != want {
				t.Errorf("Put() = %q, want %q", got, want)
			}
		})
	}
}

func TestLocalStorageEnsureDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "assets")
	s := NewLocalStorage(dir, "")

	if err := s.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories() error = %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
}

func TestMirrorCopy(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		wantExt     string
		wantErr     bool
	}{
		{name: "png", status: http.StatusOK, contentType: "image/png", wantExt: ".png"},
		{name: "jpeg", status: http.StatusOK, contentType: "image/jpeg", wantExt: ".jpg"},
		{name: "missingContentType", status: http.StatusOK, contentType: "", wantExt: ".png"},
		{name: "sourceGone", status: http.StatusNotFound, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				} else {
					w.Header()["Content-Type"] = nil
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("image-bytes"))
			}))
			defer server.Close()

			store := &memoryStore{}
			m := NewMirror(store, server.Client())

			source := server.URL + "/hero"
			got, err := m.Copy(context.Background(), "g1", "hero", source)
			if tt.wantErr {
				if err == nil {
					t.Error("Copy() expected error")
				}
				if len(store.keys) != 0 {
					t.Error("nothing should be stored on download failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("Copy() error = %v", err)
			}
			wantKey := "generations/g1/" + assetName("hero", source) + tt.wantExt
			if got != "mem://"+wantKey {
				t.Errorf("Copy() = %q, want %q", got, "mem://"+wantKey)
			}
			if !strings.HasPrefix(store.contentTypes[0], "image/") {
				t.Errorf("content type = %q", store.contentTypes[0])
			}
		})
	}
}

func TestMirrorCopyNewSourceReplacesAsset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("render" + r.URL.Path))
	}))
	defer server.Close()

	dir := t.TempDir()
	m := NewMirror(NewLocalStorage(dir, "http://assets.test"), server.Client())
	ctx := context.Background()

	first, err := m.Copy(ctx, "g1", "slide-s1", server.URL+"/first")
	if err != nil {
		t.Fatalf("Copy() first error = %v", err)
	}
	second, err := m.Copy(ctx, "g1", "slide-s1", server.URL+"/second")
	if err != nil {
		t.Fatalf("Copy() second error = %v", err)
	}
	if first == second {
		t.Fatalf("second render reused url %q", first)
	}

	key := strings.TrimPrefix(second, "http://assets.test/")
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	if err != nil {
		t.Fatalf("second asset not written: %v", err)
	}
	if string(data) != "render/second" {
		t.Errorf("asset content = %q, want %q", data, "render/second")
	}

	again, err := m.Copy(ctx, "g1", "slide-s1", server.URL+"/second")
	if err != nil {
		t.Fatalf("Copy() repeat error = %v", err)
	}
	if again != second {
		t.Errorf("same source stored at %q, want %q", again, second)
	}
}

func TestAssetName(t *testing.T) {
	a := assetName("hero", "https://cdn.example/a.png")
	b := assetName("hero", "https://cdn.example/b.png")

	if !strings.HasPrefix(a, "hero-") || len(a) != len("hero-")+12 {
		t.Errorf("assetName() = %q", a)
	}
	if a == b {
		t.Error("different sources should get different names")
	}
	if a != assetName("hero", "https://cdn.example/a.png") {
		t.Error("assetName() should be stable")
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/png", ".png"},
		{"image/jpeg", ".jpg"},
		{"image/webp", ".webp"},
		{"image/png; charset=binary", ".png"},
		{"not a type;;", ".png"},
	}

	for _, tt := range tests {
		if got := extension(tt.contentType); got != tt.want {
			t.Errorf("extension(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}
