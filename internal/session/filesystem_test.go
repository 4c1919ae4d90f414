package session

import (
	"context"
	"errors"
	"testing"
)

func TestFilesystemStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s, err := NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStore() error: %v", err)
	}
	defer s.Close()

	id, err := s.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	ok, err := s.Exists(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Exists() = %v, %v, want true", ok, err)
	}

	if err := s.Put(ctx, id, KindUpload, "a.csv", []byte("x\n1\n")); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	data, err := s.Get(ctx, id, KindUpload, "a.csv")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(data) != "x\n1\n" {
		t.Errorf("Get() = %q", data)
	}

	names, err := s.List(ctx, id, KindUpload)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(names) != 1 || names[0] != "a.csv" {
		t.Errorf("List() = %v", names)
	}

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	ok, _ = s.Exists(ctx, id)
	if ok {
		t.Error("session still exists after Delete")
	}
}

func TestFilesystemStoreRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s, err := NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStore() error: %v", err)
	}
	id, _ := s.Create(ctx)

	if err := s.Put(ctx, id, KindUpload, "../../evil.csv", []byte("x")); err == nil {
		t.Error("Put() accepted a path-traversal name")
	}
	if err := s.Put(ctx, id, KindUpload, "a/b.csv", []byte("x")); err == nil {
		t.Error("Put() accepted a name with a separator")
	}
}

func TestFilesystemStoreUnknownSession(t *testing.T) {
	ctx := context.Background()
	s, err := NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStore() error: %v", err)
	}

	if err := s.Put(ctx, "not-a-uuid", KindUpload, "a.csv", nil); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Put(bad id) error = %v, want ErrSessionNotFound", err)
	}
	if _, err := s.List(ctx, "00000000-0000-0000-0000-000000000000", KindUpload); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("List(unknown) error = %v, want ErrSessionNotFound", err)
	}
}
