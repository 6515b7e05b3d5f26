package capture

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	transient := &RenderTransientError{Err: fmt.Errorf("frame capture timed out")}
	fatal := &RenderInitError{Target: "https://example.com", Err: fmt.Errorf("chrome not found")}
	encode := &EncodeError{Err: fmt.Errorf("exit status 1"), Detail: "stderr tail"}

	if !IsTransient(transient) {
		t.Error("transient error not classified as transient")
	}
	if IsTransient(fatal) || IsTransient(encode) {
		t.Error("non-transient error classified as transient")
	}

	if !IsFatalRender(fatal) {
		t.Error("init error not classified as fatal")
	}
	if IsFatalRender(transient) || IsFatalRender(encode) {
		t.Error("non-fatal error classified as fatal")
	}
}

func TestErrorClassificationThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("sampling frame 3: %w", &RenderTransientError{Err: fmt.Errorf("timeout")})
	if !IsTransient(wrapped) {
		t.Error("wrapping must not hide the transient classification")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	for _, err := range []error{
		&RenderInitError{Target: "t", Err: cause},
		&RenderTransientError{Err: cause},
		&EncodeError{Err: cause},
	} {
		if !errors.Is(err, cause) {
			t.Errorf("%T does not unwrap to its cause", err)
		}
	}
}

func TestEncodeErrorDetail(t *testing.T) {
	with := &EncodeError{Err: errors.New("exit status 1"), Detail: "broken pipe"}
	without := &EncodeError{Err: errors.New("exit status 1")}
	if with.Error() == without.Error() {
		t.Error("detail should appear in the message")
	}
}
