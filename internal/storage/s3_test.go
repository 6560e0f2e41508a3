package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func testS3Config(endpoint string) S3Config {
	return S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        endpoint,
		Prefix:          "/segments/",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}
}

func TestNewS3Storage(t *testing.T) {
	cfg := testS3Config("http://localhost:4566/")

	storage, err := NewS3Storage(t.TempDir(), cfg)
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	if storage.bucket != cfg.Bucket {
		t.Errorf("bucket = %v, want %v", storage.bucket, cfg.Bucket)
	}
	if storage.region != cfg.Region {
		t.Errorf("region = %v, want %v", storage.region, cfg.Region)
	}
	if storage.prefix != "segments" {
		t.Errorf("prefix = %v, want segments", storage.prefix)
	}
	if !storage.CanPublish() {
		t.Error("S3Storage should publish")
	}
}

func TestS3Storage_ObjectURL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		prefix   string
		key      string
		want     string
	}{
		{"aws", "", "", "job/a.wav", "https://test-bucket.s3.us-east-1.amazonaws.com/job/a.wav"},
		{"aws with prefix", "", "out", "/job/a.wav", "https://test-bucket.s3.us-east-1.amazonaws.com/out/job/a.wav"},
		{"custom endpoint", "http://minio:9000", "out", "job/a.wav", "http://minio:9000/test-bucket/out/job/a.wav"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &S3Storage{bucket: "test-bucket", region: "us-east-1", endpoint: tt.endpoint, prefix: tt.prefix}
			if got := s.objectURL(s.objectKey(tt.key)); got != tt.want {
				t.Errorf("url = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestS3Storage_InheritsLocalStorage(t *testing.T) {
	storage, err := NewS3Storage(t.TempDir(), testS3Config("http://localhost:4566"))
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	dir := filepath.Join(t.TempDir(), "out")
	if err := storage.PrepareDir(context.Background(), dir); err != nil {
		t.Fatalf("PrepareDir() error = %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestS3Storage_Publish_MockServer(t *testing.T) {
	var gotPath, gotBody, gotType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT method, got %s", r.Method)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}
		gotPath = r.URL.Path
		gotBody = string(body)
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	storage, err := NewS3Storage(t.TempDir(), testS3Config(server.URL))
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	file := filepath.Join(t.TempDir(), "talk_001.txt")
	if err := os.WriteFile(file, []byte("test content"), 0o600); err != nil {
		t.Fatal(err)
	}

	url, err := storage.Publish(context.Background(), "job-1/talk_001.txt", file)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if gotPath != "/test-bucket/segments/job-1/talk_001.txt" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotBody != "test content" {
		t.Errorf("unexpected body: %s", gotBody)
	}
	if gotType != "text/plain; charset=utf-8" {
		t.Errorf("unexpected content type: %s", gotType)
	}
	expectedURL := server.URL + "/test-bucket/segments/job-1/talk_001.txt"
	if url != expectedURL {
		t.Errorf("url = %v, want %v", url, expectedURL)
	}
}

func TestS3Storage_Publish_MissingFile(t *testing.T) {
	storage, err := NewS3Storage(t.TempDir(), testS3Config("http://localhost:4566"))
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	if _, err := storage.Publish(context.Background(), "k", filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("expected error for missing file")
	}
}
