package secret

import (
	"testing"
)

func TestNew_ValidSize(t *testing.T) {
	buffer, err := New(64)
	if err != nil {
		t.Fatalf("New(64) failed: %v", err)
	}
	defer buffer.Close()

	if buffer.Len() != 64 {
		t.Errorf("Len() = %d, want 64", buffer.Len())
	}

	data := buffer.Bytes()
	if len(data) != 64 {
		t.Errorf("len(Bytes()) = %d, want 64", len(data))
	}
	for index, value := range data {
		if value != 0 {
			t.Fatalf("byte %d = %d, want zero-initialized memory", index, value)
		}
	}
}

func TestNew_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := New(size); err == nil {
			t.Errorf("New(%d) should fail", size)
		}
	}
}

func TestFromBytes_CopiesWithoutZeroingSource(t *testing.T) {
	source := []byte("journal-key-8")

	buffer, err := FromBytes(source)
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	defer buffer.Close()

	if got := string(buffer.Bytes()); got != "journal-key-8" {
		t.Errorf("Bytes() = %q, want %q", got, "journal-key-8")
	}
	if string(source) != "journal-key-8" {
		t.Errorf("source modified to %q, caller keeps ownership", source)
	}

	source[0] = 'X'
	if buffer.Bytes()[0] != 'j' {
		t.Error("buffer aliases the source slice")
	}
}

func TestFromBytes_Empty(t *testing.T) {
	if _, err := FromBytes(nil); err == nil {
		t.Fatal("FromBytes(nil) should fail")
	}
}

func TestBuffer_CloseZeroesAndPanicsAfter(t *testing.T) {
	buffer, err := FromBytes([]byte{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}

	if err := buffer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !buffer.Closed() {
		t.Error("Closed() = false after Close")
	}
	if err := buffer.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Bytes() after Close should panic")
		}
	}()
	buffer.Bytes()
}

func TestZero(t *testing.T) {
	data := []byte("secret")
	Zero(data)
	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte %d = %d after Zero", i, b)
		}
	}
}
