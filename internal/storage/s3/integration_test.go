//go:build integration

package s3

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/demanddesk/demanddesk/internal/config"
	"github.com/demanddesk/demanddesk/internal/storage"
)

func TestStorePutDeleteAgainstMinIO(t *testing.T) {
	endpoint := envOr("DEMANDDESK_TEST_S3_ENDPOINT", "")
	if endpoint == "" {
		t.Skip("DEMANDDESK_TEST_S3_ENDPOINT is not set")
	}

	cfg := config.ArchiveConfig{
		Enabled:          true,
		Endpoint:         endpoint,
		Region:           envOr("DEMANDDESK_TEST_S3_REGION", "us-east-1"),
		Bucket:           envOr("DEMANDDESK_TEST_S3_BUCKET", "demanddesk-it"),
		AccessKeyID:      envOr("DEMANDDESK_TEST_S3_ACCESS_KEY", "minio"),
		SecretAccessKey:  envOr("DEMANDDESK_TEST_S3_SECRET_KEY", "miniostorage"),
		Prefix:           "integration-tests",
		AutoCreateBucket: true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	store, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	key := "uploads/demands/date=2026-02-19/it/source.csv"
	payload := []byte("id,role\n1,QA Lead\n")
	info, err := store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), storage.PutOptions{ContentType: "text/csv"})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if info.Size != int64(len(payload)) {
		t.Fatalf("Put().Size = %d, want %d", info.Size, len(payload))
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
