package s3

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeObjectAPI struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeObjectAPI) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestReportStorage_PutObjectPublicURL(t *testing.T) {
	tests := []struct {
		name         string
		usePathStyle bool
		want         string
	}{
		{name: "virtual host", want: "https://reports.storage.example.com/health/2026/10/14/r%201.json"},
		{name: "path style", usePathStyle: true, want: "https://storage.example.com/reports/health/2026/10/14/r%201.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeObjectAPI{}
			storage := newReportStorage(api, Config{
				Bucket:       "reports",
				Endpoint:     "https://storage.example.com/",
				UsePathStyle: tt.usePathStyle,
				URLMode:      URLModePublic,
			})

			got, err := storage.PutObject(context.Background(), "health/2026/10/14/r 1.json", "application/json", []byte(`{"id":"r 1"}`))
			if err != nil {
				t.Fatalf("PutObject() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("url = %s, want %s", got, tt.want)
			}
			if *api.input.Bucket != "reports" || *api.input.ContentType != "application/json" {
				t.Fatalf("unexpected input: %+v", api.input)
			}
			if string(api.body) != `{"id":"r 1"}` {
				t.Fatalf("unexpected body: %s", api.body)
			}
		})
	}
}

func TestReportStorage_PutObjectErrors(t *testing.T) {
	storage := newReportStorage(&fakeObjectAPI{err: errors.New("denied")}, Config{Bucket: "reports", URLMode: URLModePublic})

	if _, err := storage.PutObject(context.Background(), " ", "application/json", nil); err == nil {
		t.Fatal("expected error for empty key")
	}
	if _, err := storage.PutObject(context.Background(), "k.json", "application/json", nil); err == nil {
		t.Fatal("expected error from client")
	}
}

func TestNewReportStorage_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing bucket", cfg: Config{AccessKeyID: "a", SecretAccessKey: "b"}},
		{name: "missing credentials", cfg: Config{Bucket: "reports"}},
		{name: "bad url mode", cfg: Config{Bucket: "reports", AccessKeyID: "a", SecretAccessKey: "b", URLMode: "signed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewReportStorage(context.Background(), tt.cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
