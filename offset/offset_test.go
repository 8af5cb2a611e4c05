package offset

import "testing"

func TestEqUnknown(t *testing.T) {
	if !Unknown.Eq(Unknown) {
		t.Fatalf("Unknown should equal itself")
	}
	if Unknown.Eq(Offset(0)) || Offset(0).Eq(Unknown) {
		t.Fatalf("Unknown should not equal a concrete offset")
	}
}

func TestLeUnknown(t *testing.T) {
	if Unknown.Le(Offset(3)) {
		t.Fatalf("Unknown should not be <= a concrete offset")
	}
	if Offset(3).Le(Unknown) {
		t.Fatalf("a concrete offset should not be <= Unknown")
	}
	if !Unknown.Le(Unknown) {
		t.Fatalf("Unknown should be <= itself")
	}
	if !Offset(3).Le(Offset(3)) || Offset(4).Le(Offset(3)) {
		t.Fatalf("concrete Le is broken")
	}
}

func TestAddSaturates(t *testing.T) {
	if got := Unknown.Add(Offset(1), DefaultMaxOffset); !got.IsUnknown() {
		t.Fatalf("Add with Unknown operand should be Unknown, got %v", got)
	}
	if got := Offset(1).Add(Unknown, DefaultMaxOffset); !got.IsUnknown() {
		t.Fatalf("Add with Unknown operand should be Unknown, got %v", got)
	}
	ceiling := Offset(16)
	if got := Offset(10).Add(Offset(10), ceiling); !got.IsUnknown() {
		t.Fatalf("Add beyond ceiling should saturate to Unknown, got %v", got)
	}
	if got := Offset(1).Add(Offset(2), ceiling); got != Offset(3) {
		t.Fatalf("expected 3, got %v", got)
	}
}

func TestAddOverflow(t *testing.T) {
	max := Offset(^uint64(0))
	if got := max.Add(Offset(1), Unknown); !got.IsUnknown() {
		t.Fatalf("wraparound addition should saturate to Unknown, got %v", got)
	}
}

func TestSub(t *testing.T) {
	if got := Unknown.Sub(Offset(2)); !got.IsUnknown() {
		t.Fatalf("Sub(Unknown, _) should be Unknown, got %v", got)
	}
	if got := Offset(5).Sub(Offset(2)); got != Offset(3) {
		t.Fatalf("expected 3, got %v", got)
	}
	if got := Offset(2).Sub(Offset(5)); !got.IsUnknown() {
		t.Fatalf("negative subtraction should saturate to Unknown, got %v", got)
	}
}
