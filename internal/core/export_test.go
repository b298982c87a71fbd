package core

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	archivemem "cropplan/internal/archive/memory"
	"cropplan/pkg/domain"
)

func TestExportImportRoundTrip(t *testing.T) {
	store, _, _ := newTestStoreWithPlan(t)
	ctx := context.Background()

	if _, err := store.AddPlanting(ctx, PlantingInput{
		CropID: "lettuce-head", Bed: "Row A 1", BedFeet: 50, FieldStartDate: "2026-05-01", Notes: "exported",
	}); err != nil {
		t.Fatalf("AddPlanting: %v", err)
	}
	original := store.Plan()

	var buf bytes.Buffer
	if err := store.ExportPlan(&buf); err != nil {
		t.Fatalf("ExportPlan: %v", err)
	}

	// Import into a fresh store backed by empty storage.
	fresh, freshStorage := newTestStore(t)
	imported, err := fresh.ImportPlan(ctx, &buf)
	if err != nil {
		t.Fatalf("ImportPlan: %v", err)
	}

	// The export bumps the version counter; everything else survives intact.
	want := domain.ClonePlan(original)
	want.Metadata.Version++
	if !reflect.DeepEqual(imported, want) {
		t.Fatal("imported plan differs from exported plan")
	}
	if fresh.ActivePlanID() != original.ID {
		t.Fatalf("active plan = %q", fresh.ActivePlanID())
	}
	saved, err := freshStorage.GetPlan(ctx, original.ID)
	if err != nil || saved == nil {
		t.Fatalf("imported plan not persisted: %v", err)
	}

	// The planting counter continues from the imported document.
	next, err := fresh.AddPlanting(ctx, PlantingInput{CropID: "salad-mix", BedFeet: 10})
	if err != nil {
		t.Fatalf("AddPlanting: %v", err)
	}
	if next.ID != "p2" {
		t.Fatalf("planting id = %q, want p2", next.ID)
	}
}

func TestExportWithoutActivePlan(t *testing.T) {
	store, _ := newTestStore(t)
	var buf bytes.Buffer
	err := store.ExportPlan(&buf)
	var nf domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestDecodeExportRejectsMalformedFiles(t *testing.T) {
	gz := func(v any) []byte {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if err := json.NewEncoder(zw).Encode(v); err != nil {
			t.Fatalf("encode fixture: %v", err)
		}
		_ = zw.Close()
		return buf.Bytes()
	}

	cases := []struct {
		name    string
		payload []byte
		wantMsg string
	}{
		{"not gzip", []byte("plain text"), "not a compressed plan file"},
		{"unsupported format", gz(map[string]any{"format_version": 99, "plan": map[string]any{"id": "x"}}), "unsupported format version"},
		{"missing plan", gz(map[string]any{"format_version": 1}), "missing plan id"},
		{"missing id", gz(map[string]any{"format_version": 1, "plan": map[string]any{"metadata": map[string]any{"name": "x"}}}), "missing plan id"},
		{"missing metadata", gz(map[string]any{"format_version": 1, "plan": map[string]any{"id": "x"}}), "missing plan metadata"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeExport(bytes.NewReader(tc.payload))
			var fe domain.FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("err = %v, want FormatError", err)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("message = %q, want %q", err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	store, _, plan := newTestStoreWithPlan(t)
	ctx := context.Background()
	arch := archivemem.New()

	key, err := store.ExportToArchive(ctx, arch)
	if err != nil {
		t.Fatalf("ExportToArchive: %v", err)
	}
	if !strings.HasPrefix(key, plan.ID+"/") || !strings.HasSuffix(key, FileExtension) {
		t.Fatalf("unexpected archive key %q", key)
	}

	entries, err := arch.List(ctx, plan.ID+"/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].ContentType != "application/gzip" {
		t.Fatalf("entries = %+v", entries)
	}

	fresh, _ := newTestStore(t)
	imported, err := fresh.ImportFromArchive(ctx, arch, key)
	if err != nil {
		t.Fatalf("ImportFromArchive: %v", err)
	}
	if imported.ID != plan.ID {
		t.Fatalf("imported id = %q", imported.ID)
	}
}
