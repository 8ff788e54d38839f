package qrcode

import "testing"

func TestEncodeDecodeProductRoundTrip(t *testing.T) {
	for _, id := range []uint64{1, 42, 999, 18446744073709551615} {
		p, err := Decode(EncodeProduct(id))
		if err != nil {
			t.Fatalf("decode product %d: %v", id, err)
		}
		if p.Kind != KindProduct || p.ProductID != id {
			t.Fatalf("round trip product %d: got %+v", id, p)
		}
	}
}

func TestEncodeDecodeBorrowRoundTrip(t *testing.T) {
	for _, num := range []string{"BOR-20250122-001", "BOR-20251231-1042"} {
		p, err := Decode(EncodeBorrow(num))
		if err != nil {
			t.Fatalf("decode borrow %s: %v", num, err)
		}
		if p.Kind != KindBorrow || p.Number != num {
			t.Fatalf("round trip borrow %s: got %+v", num, p)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := []string{
		"",
		"not-a-valid-payload",
		"product:",
		"product:abc",
		"product:0",
		"product:-5",
		"borrow:",
		"ticket:123",
		":42",
	}
	for _, c := range cases {
		if _, err := Decode(c); err != ErrMalformedPayload {
			t.Errorf("Decode(%q): want ErrMalformedPayload, got %v", c, err)
		}
	}
}

func TestBorrowNumberKeepsColons(t *testing.T) {
	// Only the first separator splits; the rest of the value is opaque.
	p, err := Decode("borrow:odd:value")
	if err != nil {
		t.Fatal(err)
	}
	if p.Number != "odd:value" {
		t.Fatalf("got %q", p.Number)
	}
}

func TestImagePNG(t *testing.T) {
	b, err := ImagePNG(EncodeProduct(42), 128)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) == 0 {
		t.Fatal("empty png")
	}
}
