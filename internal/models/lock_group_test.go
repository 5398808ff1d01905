package models

import "testing"

func TestLockGroupIDs_Clean(t *testing.T) {
	got := LockGroupIDs{3, 0, 1, 3, 2, 1}.Clean()
	want := LockGroupIDs{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestLockGroupIDs_Scan(t *testing.T) {
	var ids LockGroupIDs
	if err := ids.Scan([]byte(`[1,2,3]`)); err != nil {
		t.Fatalf("scan array: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %v", ids)
	}

	if err := ids.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty on nil, got %v", ids)
	}

	if err := ids.Scan("7"); err != nil {
		t.Fatalf("scan scalar: %v", err)
	}
	if len(ids) != 1 || ids[0] != 7 {
		t.Fatalf("expected [7], got %v", ids)
	}

	if err := ids.Scan([]byte(`{"bad":1}`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestLockGroupIDs_Intersects(t *testing.T) {
	if !(LockGroupIDs{1, 2}).Intersects(LockGroupIDs{2, 3}) {
		t.Fatalf("expected intersection")
	}
	if (LockGroupIDs{1}).Intersects(LockGroupIDs{2}) {
		t.Fatalf("expected no intersection")
	}
	if (LockGroupIDs{}).Intersects(LockGroupIDs{1}) {
		t.Fatalf("empty set intersects nothing")
	}
}
