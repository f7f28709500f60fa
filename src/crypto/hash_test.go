package crypto

import "testing"

func TestSHA256Hex(t *testing.T) {
	// well known digest of the empty string
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := SHA256Hex(nil); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
	if SHA256Hex([]byte("a")) == SHA256Hex([]byte("b")) {
		t.Fatalf("distinct inputs should hash differently")
	}
}
