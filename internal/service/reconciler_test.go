package service

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestUploadAllMarksFirstImagePrimary(t *testing.T) {
	store := newMockStorage()
	reconciler := NewImageReconciler(store, zap.NewNop())

	refs, err := reconciler.UploadAll(context.Background(), testFiles("a.jpg", "b.jpg", "c.jpg"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if len(refs) != 3 {
		t.Fatalf("expected 3 refs, got %d", len(refs))
	}
	for i, ref := range refs {
		wantPrimary := i == 0
		if ref.IsPrimary != wantPrimary {
			t.Errorf("ref %d primary = %v, want %v", i, ref.IsPrimary, wantPrimary)
		}
		if ref.URL == "" || ref.StorageID == "" {
			t.Errorf("ref %d has empty url or storage id", i)
		}
	}
}

func TestUploadAllPreservesInputOrder(t *testing.T) {
	store := newMockStorage()
	reconciler := NewImageReconciler(store, zap.NewNop())

	refs, err := reconciler.UploadAll(context.Background(), testFiles("first.jpg", "second.jpg"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if store.objects[refs[0].StorageID] != "first.jpg" {
		t.Errorf("first ref points at %q", store.objects[refs[0].StorageID])
	}
	if store.objects[refs[1].StorageID] != "second.jpg" {
		t.Errorf("second ref points at %q", store.objects[refs[1].StorageID])
	}
}

func TestUploadAllRollsBackEarlierUploadsOnFailure(t *testing.T) {
	store := newMockStorage()
	store.failAtUpload = 3
	reconciler := NewImageReconciler(store, zap.NewNop())

	refs, err := reconciler.UploadAll(context.Background(), testFiles("a.jpg", "b.jpg", "c.jpg"))
	if err == nil {
		t.Fatal("expected upload error")
	}
	if refs != nil {
		t.Errorf("expected nil refs on failure, got %v", refs)
	}

	if len(store.objects) != 0 {
		t.Errorf("rollback left %d objects behind", len(store.objects))
	}
	if len(store.deleteCalls) != 2 {
		t.Errorf("expected 2 compensating deletes, got %v", store.deleteCalls)
	}
}

func TestUploadAllFailingFirstUploadNeedsNoRollback(t *testing.T) {
	store := newMockStorage()
	store.failAtUpload = 1
	reconciler := NewImageReconciler(store, zap.NewNop())

	if _, err := reconciler.UploadAll(context.Background(), testFiles("a.jpg")); err == nil {
		t.Fatal("expected upload error")
	}
	if len(store.deleteCalls) != 0 {
		t.Errorf("unexpected delete calls: %v", store.deleteCalls)
	}
}

func TestDeleteManyAggregatesFailures(t *testing.T) {
	store := newMockStorage()
	store.failDelete = true
	reconciler := NewImageReconciler(store, zap.NewNop())

	cleanupErr := reconciler.DeleteMany(context.Background(), []string{"x1", "x2"})
	if cleanupErr == nil {
		t.Fatal("expected CleanupError")
	}
	if len(cleanupErr.StorageIDs) != 2 || len(cleanupErr.Errs) != 2 {
		t.Errorf("expected both ids collected, got %+v", cleanupErr)
	}
	if !strings.Contains(cleanupErr.Error(), "x1") {
		t.Errorf("cleanup error does not name the leaked ids: %v", cleanupErr)
	}
}

func TestDeleteManyTreatsMissingObjectsAsSuccess(t *testing.T) {
	store := newMockStorage()
	reconciler := NewImageReconciler(store, zap.NewNop())

	if cleanupErr := reconciler.DeleteMany(context.Background(), []string{"never-existed"}); cleanupErr != nil {
		t.Errorf("delete of missing object reported failure: %v", cleanupErr)
	}
}

func TestDeleteManyEmptyInputIsNoop(t *testing.T) {
	store := newMockStorage()
	reconciler := NewImageReconciler(store, zap.NewNop())

	if cleanupErr := reconciler.DeleteMany(context.Background(), nil); cleanupErr != nil {
		t.Errorf("unexpected error: %v", cleanupErr)
	}
	if len(store.deleteCalls) != 0 {
		t.Errorf("unexpected delete calls: %v", store.deleteCalls)
	}
}
