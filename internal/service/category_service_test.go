package service

import (
	"context"
	"errors"
	"testing"

	"github.com/firmsite/internal/db"
)

func TestCategoryService_CreateDerivesSlug(t *testing.T) {
	st := setupServiceTestStore(t)
	svc := NewCategoryService(st)
	ctx := context.Background()
	editor := seedCaller(t, st, "editor@firm.test", db.RoleEditor)

	category, err := svc.Create(ctx, editor, CategoryInput{Name: "  Small Business Tax  "})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if category.Slug != "small-business-tax" {
		t.Fatalf("expected derived slug, got %q", category.Slug)
	}

	if _, err := svc.Create(ctx, editor, CategoryInput{Name: "Small business tax"}); !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
	if _, err := svc.Create(ctx, editor, CategoryInput{}); !IsValidation(err) {
		t.Fatalf("expected validation error for missing name, got %v", err)
	}
	missing := uint(404)
	if _, err := svc.Create(ctx, editor, CategoryInput{Name: "Orphan", ParentID: &missing}); !IsValidation(err) {
		t.Fatalf("expected validation error for unknown parent, got %v", err)
	}
}

func TestCategoryService_RequiresEditor(t *testing.T) {
	st := setupServiceTestStore(t)
	svc := NewCategoryService(st)
	ctx := context.Background()
	author := seedCaller(t, st, "author@firm.test", db.RoleAuthor)

	if _, err := svc.Create(ctx, author, CategoryInput{Name: "Payroll"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	categories, err := svc.List(ctx, author)
	if err != nil {
		t.Fatalf("author list: %v", err)
	}
	if len(categories) != 0 {
		t.Fatalf("denied create must not write, found %d", len(categories))
	}
}

func TestCategoryService_RejectsCycles(t *testing.T) {
	st := setupServiceTestStore(t)
	svc := NewCategoryService(st)
	ctx := context.Background()
	editor := seedCaller(t, st, "editor@firm.test", db.RoleEditor)

	root, err := svc.Create(ctx, editor, CategoryInput{Name: "Root"})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	child, err := svc.Create(ctx, editor, CategoryInput{Name: "Child", ParentID: &root.ID})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	grandchild, err := svc.Create(ctx, editor, CategoryInput{Name: "Grandchild", ParentID: &child.ID})
	if err != nil {
		t.Fatalf("create grandchild: %v", err)
	}

	if _, _, err := svc.Update(ctx, editor, root.ID, CategoryInput{Name: "Root", ParentID: &root.ID}); !errors.Is(err, ErrCategoryCycle) {
		t.Fatalf("expected self-parent to be rejected, got %v", err)
	}
	if _, _, err := svc.Update(ctx, editor, root.ID, CategoryInput{Name: "Root", ParentID: &grandchild.ID}); !errors.Is(err, ErrCategoryCycle) {
		t.Fatalf("expected descendant parent to be rejected, got %v", err)
	}

	moved, _, err := svc.Update(ctx, editor, grandchild.ID, CategoryInput{Name: "Grandchild", ParentID: &root.ID})
	if err != nil {
		t.Fatalf("move grandchild: %v", err)
	}
	if moved.ParentID == nil || *moved.ParentID != root.ID {
		t.Fatalf("expected parent %d, got %v", root.ID, moved.ParentID)
	}
}

func TestCategoryService_DeleteReparentsChildren(t *testing.T) {
	st := setupServiceTestStore(t)
	svc := NewCategoryService(st)
	ctx := context.Background()
	editor := seedCaller(t, st, "editor@firm.test", db.RoleEditor)

	root, err := svc.Create(ctx, editor, CategoryInput{Name: "Root"})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	middle, err := svc.Create(ctx, editor, CategoryInput{Name: "Middle", ParentID: &root.ID})
	if err != nil {
		t.Fatalf("create middle: %v", err)
	}
	leaf, err := svc.Create(ctx, editor, CategoryInput{Name: "Leaf", ParentID: &middle.ID})
	if err != nil {
		t.Fatalf("create leaf: %v", err)
	}

	if _, _, err := svc.Delete(ctx, editor, middle.ID); err != nil {
		t.Fatalf("delete middle: %v", err)
	}
	reloaded, err := svc.Get(ctx, editor, leaf.ID)
	if err != nil {
		t.Fatalf("get leaf: %v", err)
	}
	if reloaded.ParentID == nil || *reloaded.ParentID != root.ID {
		t.Fatalf("expected leaf under root, got %v", reloaded.ParentID)
	}
	if _, _, err := svc.Delete(ctx, editor, middle.ID); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}
