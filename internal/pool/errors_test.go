package pool

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Format(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := &Error{Kind: KindConnectFailed, Detail: "attempt 1", Err: cause}

	got := err.Error()
	want := "connect_failed: attempt 1: dial tcp: refused"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped transport error")
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(nil); got != "" {
		t.Errorf("KindOf(nil) = %q, want empty", got)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}

	err := fmt.Errorf("op: %w", &Error{Kind: KindNotConnected})
	if got := KindOf(err); got != KindNotConnected {
		t.Errorf("KindOf(wrapped) = %q, want %q", got, KindNotConnected)
	}
}
