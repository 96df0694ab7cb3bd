package xmlbind

import "testing"

func TestOptional_Zero(t *testing.T) {
	var o Optional[int]
	if o.IsPresent() {
		t.Fatalf("zero Optional is present")
	}
	if v, ok := o.Get(); ok || v != 0 {
		t.Fatalf("Get() = %v, %v", v, ok)
	}
	if got := o.OrElse(7); got != 7 {
		t.Fatalf("OrElse() = %d, want 7", got)
	}
	if o.String() != "None" {
		t.Fatalf("String() = %q", o.String())
	}
}

func TestOptional_Some(t *testing.T) {
	o := Some("x")
	if !o.IsPresent() {
		t.Fatalf("Some() is absent")
	}
	if got := o.OrElse("y"); got != "x" {
		t.Fatalf("OrElse() = %q, want x", got)
	}
	if got := o.MustGet(); got != "x" {
		t.Fatalf("MustGet() = %q, want x", got)
	}
	if o.String() != "Some(x)" {
		t.Fatalf("String() = %q", o.String())
	}
}

func TestOptional_MustGetPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("MustGet on None did not panic")
		}
	}()
	None[int]().MustGet()
}
