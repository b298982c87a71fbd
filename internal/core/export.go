package core

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"cropplan/internal/archive"
	"cropplan/pkg/domain"
)

// ExportFormatVersion identifies the portable file envelope. Import rejects
// envelopes with any other value.
const ExportFormatVersion = 1

// FileExtension is the naming convention for exported plan files.
const FileExtension = ".cropplan"

// exportEnvelope is the on-disk shape of a portable plan file, serialized as
// gzip-compressed JSON.
type exportEnvelope struct {
	FormatVersion int          `json:"format_version"`
	SchemaVersion int          `json:"schema_version"`
	ExportedAt    time.Time    `json:"exported_at"`
	Plan          *domain.Plan `json:"plan"`
}

// ExportPlan writes the active plan as a compressed portable document. The
// export bumps the plan's version counter in the envelope copy only.
func (s *PlanStore) ExportPlan(w io.Writer) error {
	plan := s.Plan()
	if plan == nil {
		return domain.NotFoundError{Entity: domain.EntityPlan, Ref: "active"}
	}
	plan.Metadata.Version++
	env := exportEnvelope{
		FormatVersion: ExportFormatVersion,
		SchemaVersion: plan.SchemaVersion,
		ExportedAt:    s.nowFn(),
		Plan:          plan,
	}
	zw := gzip.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(env); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode plan export: %w", err)
	}
	return zw.Close()
}

// ImportPlan decodes a portable plan file, migrates it, and makes it the
// active document. The previously active plan is left untouched unless
// decode and validation fully succeed.
func (s *PlanStore) ImportPlan(ctx context.Context, r io.Reader) (*domain.Plan, error) {
	plan, err := DecodeExport(r)
	if err != nil {
		return nil, err
	}
	migrated, err := MigratePlan(plan)
	if err != nil {
		return nil, err
	}
	s.warnOnViolations(migrated, "import")

	if err := s.storage.SavePlan(ctx, migrated.ID, migrated); err != nil {
		return nil, fmt.Errorf("save imported plan: %w", err)
	}

	seq := 0
	for _, pl := range migrated.Plantings {
		if n, ok := domain.PlantingSeq(pl.ID); ok && n > seq {
			seq = n
		}
	}

	s.mu.Lock()
	s.plan = migrated
	s.plantingSeq = seq
	s.resetHistory()
	s.dirty = false
	s.saveErr = ""
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(broadcastUpdated(migrated.ID))
	}
	s.logger.Info("plan imported", "plan", migrated.ID, "name", migrated.Metadata.Name)
	return domain.ClonePlan(migrated), nil
}

// DecodeExport parses a portable plan file without touching any store state.
// Each failure mode produces a distinct user-facing message.
func DecodeExport(r io.Reader) (*domain.Plan, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, domain.FormatError{Reason: "not a compressed plan file"}
	}
	defer func() { _ = zr.Close() }()

	var env exportEnvelope
	if err := json.NewDecoder(zr).Decode(&env); err != nil {
		return nil, domain.FormatError{Reason: "malformed plan document: " + err.Error()}
	}
	if env.FormatVersion != ExportFormatVersion {
		return nil, domain.FormatError{Reason: fmt.Sprintf("unsupported format version %d", env.FormatVersion)}
	}
	if env.Plan == nil || env.Plan.ID == "" {
		return nil, domain.FormatError{Reason: "missing plan id"}
	}
	if env.Plan.Metadata == (domain.PlanMetadata{}) {
		return nil, domain.FormatError{Reason: "missing plan metadata"}
	}
	return env.Plan, nil
}

// ExportToArchive writes the active plan into an archive store under a
// timestamped key and returns the key.
func (s *PlanStore) ExportToArchive(ctx context.Context, store archive.Store) (string, error) {
	plan := s.Plan()
	if plan == nil {
		return "", domain.NotFoundError{Entity: domain.EntityPlan, Ref: "active"}
	}
	var buf bytes.Buffer
	if err := s.ExportPlan(&buf); err != nil {
		return "", err
	}
	key := archiveKey(plan, s.nowFn())
	if _, err := store.Put(ctx, key, &buf, archive.PutOptions{ContentType: "application/gzip"}); err != nil {
		return "", fmt.Errorf("store plan archive: %w", err)
	}
	return key, nil
}

// ImportFromArchive loads a previously exported plan archive by key.
func (s *PlanStore) ImportFromArchive(ctx context.Context, store archive.Store, key string) (*domain.Plan, error) {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch plan archive: %w", err)
	}
	defer func() { _ = rc.Close() }()
	return s.ImportPlan(ctx, rc)
}

func archiveKey(plan *domain.Plan, now time.Time) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, plan.Metadata.Name)
	return fmt.Sprintf("%s/%s-%s%s", plan.ID, name, now.Format("20060102T150405Z"), FileExtension)
}
