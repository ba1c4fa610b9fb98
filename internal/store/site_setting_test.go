package store

import (
	"testing"

	"github.com/google/uuid"
)

func TestSiteSettingStore(t *testing.T) {
	db := testDB(t)
	s := NewSiteSettingStore(db)
	ctx := t.Context()

	prefix := "test." + uuid.NewString()[:8] + "."
	one, two := prefix+"one", prefix+"two"
	t.Cleanup(func() {
		db.Exec("DELETE FROM site_settings WHERE key IN ($1, $2)", one, two)
	})

	if v, err := s.Get(ctx, one, "fallback"); err != nil || v != "fallback" {
		t.Fatalf("Get(missing) = %q, %v", v, err)
	}

	if err := s.Set(ctx, one, "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.SetMany(ctx, map[string]string{one: "10", two: ""}); err != nil {
		t.Fatalf("SetMany: %v", err)
	}

	if v, _ := s.Get(ctx, one, "fallback"); v != "10" {
		t.Errorf("Get(one) = %q, want 10", v)
	}
	if v, _ := s.Get(ctx, two, "fallback"); v != "fallback" {
		t.Errorf("empty value should fall back, got %q", v)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if all[one] != "10" {
		t.Errorf("All()[%s] = %q", one, all[one])
	}
	if _, ok := all[two]; !ok {
		t.Errorf("All() dropped the empty row")
	}

	rows, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, r := range rows {
		if r.Key == one && r.UpdatedAt.IsZero() {
			t.Error("updated_at not populated")
		}
	}
}
