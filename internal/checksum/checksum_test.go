package checksum

import "testing"

func TestSum_KnownValue(t *testing.T) {
	got := Sum([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("Sum = %q, want %q", got, want)
	}
}

func TestShort_PrefixOfSum(t *testing.T) {
	got := Short("abc")
	if len(got) != ShortLen {
		t.Fatalf("len = %d, want %d", len(got), ShortLen)
	}
	if got != "ba7816bf8f01cfea" {
		t.Errorf("Short = %q", got)
	}
	if Short("abc") != got {
		t.Error("Short is not deterministic")
	}
}
