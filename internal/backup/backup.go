// Package backup snapshots the ledger to Cloud Storage as CSV and restores
// it back. Snapshots live under a fixed prefix, named by their creation
// time, so the newest backup always sorts last.
package backup

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/ledgerbook/internal/domain"
	"github.com/dvloznov/ledgerbook/internal/logger"
)

// ObjectPrefix is where snapshots live inside the bucket.
const ObjectPrefix = "ledger/backups/"

const objectTimeLayout = "20060102-150405"

// ObjectName returns the snapshot object name for the given time.
func ObjectName(now time.Time) string {
	return ObjectPrefix + now.UTC().Format(objectTimeLayout) + ".csv"
}

// Upload writes a CSV snapshot of the transactions to the bucket and
// returns the object name. It assumes Application Default Credentials are
// configured (gcloud auth application-default login).
func Upload(ctx context.Context, bucketName string, txs []domain.Transaction, now time.Time) (string, error) {
	data, err := MarshalCSV(txs)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	objectName := ObjectName(now)
	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = "text/csv"
	defer func() {
		// Ensure the writer is closed even on early returns
		_ = w.Close()
	}()

	if _, err := w.Write(data); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize snapshot: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("object", objectName).
		Int("rows", len(txs)).
		Msg("ledger snapshot uploaded")
	return objectName, nil
}

// Fetch downloads a snapshot and parses it back into transactions. The
// returned count says how many snapshot rows were skipped as malformed.
func Fetch(ctx context.Context, bucketName, objectName string) ([]domain.Transaction, int, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("read snapshot %s/%s: %w", bucketName, objectName, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, 0, fmt.Errorf("read snapshot bytes: %w", err)
	}

	return UnmarshalCSV(data)
}

// List returns every snapshot object in the bucket, oldest first.
func List(ctx context.Context, bucketName string) ([]string, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	it := client.Bucket(bucketName).Objects(ctx, &storage.Query{Prefix: ObjectPrefix})
	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		if strings.HasSuffix(attrs.Name, ".csv") {
			names = append(names, attrs.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Latest returns the most recent snapshot object name.
func Latest(ctx context.Context, bucketName string) (string, error) {
	names, err := List(ctx, bucketName)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no snapshots in bucket %s", bucketName)
	}
	return names[len(names)-1], nil
}
