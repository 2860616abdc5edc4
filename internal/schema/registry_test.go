package schema

import (
	"errors"
	"testing"
)

func TestFromTableBijective(t *testing.T) {
	r, err := FromTable([]Entry{
		{Name: "close"},
		{Name: "rsi", Variants: 3},
		{Name: "spread", Column: "book_spread"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, col := range r.Columns() {
		logical, err := r.Reverse(col)
		if err != nil {
			t.Fatalf("reverse %q: %v", col, err)
		}
		back, err := r.Resolve(logical)
		if err != nil {
			t.Fatalf("resolve %q: %v", logical, err)
		}
		if back != col {
			t.Fatalf("round trip %q -> %q -> %q", col, logical, back)
		}
	}
}

func TestFromTableVariantExpansion(t *testing.T) {
	r, err := FromTable([]Entry{{Name: "rsi", Variants: 3}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Len() != 3 {
		t.Fatalf("expected 3 columns, got %d", r.Len())
	}
	for _, logical := range []string{"rsi_param1", "rsi_param2", "rsi_param3"} {
		if !r.Has(logical) {
			t.Fatalf("missing logical name %q", logical)
		}
	}
	if r.Has("rsi") {
		t.Fatalf("unsuffixed name must not be registered")
	}
}

func TestFromTableRejectsDuplicates(t *testing.T) {
	if _, err := FromTable([]Entry{{Name: "close"}, {Name: "close"}}); err == nil {
		t.Fatalf("expected duplicate logical name to be rejected")
	}
	if _, err := FromTable([]Entry{
		{Name: "a", Column: "col"},
		{Name: "b", Column: "col"},
	}); err == nil {
		t.Fatalf("expected column collision to be rejected")
	}
}

func TestFromTableRejectsEmpty(t *testing.T) {
	if _, err := FromTable(nil); err == nil {
		t.Fatalf("expected empty table to be rejected")
	}
}

func TestResolveUnknownIsSchemaMismatch(t *testing.T) {
	r, err := FromTable([]Entry{{Name: "close"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = r.Resolve("definitely_not_registered")
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	_, err = r.Reverse("definitely_not_registered")
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
