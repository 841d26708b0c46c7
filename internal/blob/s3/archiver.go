package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/wordmarket/internal/codec"
	"github.com/alanyoungcy/wordmarket/internal/domain"
	"github.com/alanyoungcy/wordmarket/internal/ledger"
)

// CheckpointSource supplies the full ledger state for binary checkpoints.
// The ledger engine satisfies this.
type CheckpointSource interface {
	Snapshot() ledger.Checkpoint
}

// ArchiveImpl implements domain.Archiver by querying the journal stores for
// aged records, serializing them to JSONL, and uploading the result, plus a
// binary checkpoint of the full ledger state in the canonical record layout.
//
// Deletion of archived journal rows from the primary store is intentionally
// NOT performed here; that is a separate, explicit step to be executed after
// the archive has been verified.
type ArchiveImpl struct {
	writer      domain.BlobWriter
	settlements domain.SettlementStore
	claims      domain.ClaimStore
	source      CheckpointSource
	audit       domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(
	writer domain.BlobWriter,
	settlements domain.SettlementStore,
	claims domain.ClaimStore,
	source CheckpointSource,
	audit domain.AuditStore,
) *ArchiveImpl {
	return &ArchiveImpl{
		writer:      writer,
		settlements: settlements,
		claims:      claims,
		source:      source,
		audit:       audit,
	}
}

// ArchiveSettlements queries all settlements before the cutoff, serializes
// them to JSONL, and uploads the file at archive/settlements/YYYY-MM.jsonl.
// It returns the object path and the number of archived records; the path is
// empty when there was nothing to archive.
func (a *ArchiveImpl) ArchiveSettlements(ctx context.Context, before time.Time) (string, int, error) {
	settlements, err := a.settlements.ListBefore(ctx, before)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: archive settlements query: %w", err)
	}
	if len(settlements) == 0 {
		return "", 0, nil
	}

	buf, err := marshalJSONL(settlements)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: archive settlements marshal: %w", err)
	}

	path := archivePath("settlements", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return "", 0, fmt.Errorf("s3blob: archive settlements upload: %w", err)
	}

	count := len(settlements)

	if err := a.audit.Log(ctx, "archive.settlements", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return path, count, fmt.Errorf("s3blob: archive settlements audit log: %w", err)
	}

	return path, count, nil
}

// ArchiveClaims queries all claims before the cutoff, serializes them to
// JSONL, and uploads the file at archive/claims/YYYY-MM.jsonl. It returns the
// object path and the number of archived records.
func (a *ArchiveImpl) ArchiveClaims(ctx context.Context, before time.Time) (string, int, error) {
	claims, err := a.claims.ListBefore(ctx, before)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: archive claims query: %w", err)
	}
	if len(claims) == 0 {
		return "", 0, nil
	}

	buf, err := marshalJSONL(claims)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: archive claims marshal: %w", err)
	}

	path := archivePath("claims", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return "", 0, fmt.Errorf("s3blob: archive claims upload: %w", err)
	}

	count := len(claims)

	if err := a.audit.Log(ctx, "archive.claims", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return path, count, fmt.Errorf("s3blob: archive claims audit log: %w", err)
	}

	return path, count, nil
}

// ArchiveCheckpoint snapshots the full ledger state and uploads it in the
// canonical binary record layout at checkpoints/YYYYMMDDTHHMMSSZ.wmcp. It
// returns the object path.
func (a *ArchiveImpl) ArchiveCheckpoint(ctx context.Context) (string, error) {
	cp := a.source.Snapshot()

	var buf bytes.Buffer
	if err := codec.WriteCheckpoint(&buf, cp.At, cp.Escrows, cp.Markets, cp.Holdings); err != nil {
		return "", fmt.Errorf("s3blob: encode checkpoint: %w", err)
	}

	path := fmt.Sprintf("checkpoints/%s.wmcp", cp.At.UTC().Format("20060102T150405Z"))
	if err := a.writer.Put(ctx, path, &buf, "application/octet-stream"); err != nil {
		return "", fmt.Errorf("s3blob: checkpoint upload: %w", err)
	}

	if err := a.audit.Log(ctx, "archive.checkpoint", map[string]any{
		"path":     path,
		"escrows":  len(cp.Escrows),
		"markets":  len(cp.Markets),
		"holdings": len(cp.Holdings),
		"taken_at": cp.At.Format(time.RFC3339),
	}); err != nil {
		return path, fmt.Errorf("s3blob: checkpoint audit log: %w", err)
	}

	return path, nil
}

// archivePath builds the object key for a journal archive, partitioned by
// the year-month of the cutoff time.
//
//	archive/settlements/2026-08.jsonl
//	archive/claims/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
