package agenterr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessageFormatting(t *testing.T) {
	wrapped := errors.New("dial tcp: connection refused")
	e := New(CodeConnectionError, "backend unreachable", wrapped)

	if got := e.Error(); got != "[connection_error] backend unreachable: dial tcp: connection refused" {
		t.Errorf("unexpected Error() output: %s", got)
	}

	bare := New(CodeGeneral, "something went wrong", nil)
	if got := bare.Error(); got != "[general] something went wrong" {
		t.Errorf("unexpected Error() output for nil-wrapped error: %s", got)
	}
}

func TestErrorUnwrap(t *testing.T) {
	wrapped := errors.New("root cause")
	e := New(CodeTimeout, "call timed out", wrapped)

	if !errors.Is(e, wrapped) {
		t.Error("expected errors.Is to see through to the wrapped cause")
	}
}

func TestWithContext(t *testing.T) {
	e := New(CodeRecordNotFound, "no such record", nil).
		WithContext("record_id", "rec123").
		WithContext("table_id", "tbl456")

	if e.Context["record_id"] != "rec123" || e.Context["table_id"] != "tbl456" {
		t.Errorf("unexpected context: %+v", e.Context)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		code      Code
		retryable bool
	}{
		{CodeTimeout, true},
		{CodeConnectionError, true},
		{CodeRateLimit, true},
		{CodeRecordNotFound, false},
		{CodePermissionDenied, false},
		{CodeMissingParams, false},
		{CodeGeneral, false},
	}

	for _, tt := range tests {
		e := New(tt.code, "test", nil)
		if got := e.IsRetryable(); got != tt.retryable {
			t.Errorf("code %s: IsRetryable() = %v, want %v", tt.code, got, tt.retryable)
		}
		if got := IsRetryable(e); got != tt.retryable {
			t.Errorf("code %s: package IsRetryable() = %v, want %v", tt.code, got, tt.retryable)
		}
	}

	if IsRetryable(nil) {
		t.Error("IsRetryable(nil) should be false")
	}
	if IsRetryable(errors.New("plain error")) {
		t.Error("IsRetryable on a non-agenterr error should be false")
	}
}

func TestGetCode(t *testing.T) {
	e := New(CodePermissionDenied, "denied", nil)
	wrapped := fmt.Errorf("wrapping: %w", e)

	if got := GetCode(wrapped); got != CodePermissionDenied {
		t.Errorf("GetCode() through wrapping = %s, want %s", got, CodePermissionDenied)
	}
	if got := GetCode(errors.New("plain")); got != CodeGeneral {
		t.Errorf("GetCode() on plain error = %s, want %s", got, CodeGeneral)
	}
}

func TestUserMessageMapping(t *testing.T) {
	tests := map[Code]string{
		CodeTimeout:               "请求超时，请稍后重试",
		CodeConnectionError:       "服务连接异常，请稍后重试",
		CodeRecordNotFound:        "未找到目标记录，请先查询确认",
		CodePermissionDenied:      "权限不足，请联系管理员",
		CodePendingActionExpired:  "操作已过期，请重新发起",
		CodePendingActionNotFound: "操作已过期，请重新发起",
	}

	for code, want := range tests {
		if got := UserMessage(code); got != want {
			t.Errorf("UserMessage(%s) = %q, want %q", code, got, want)
		}
	}
}

func TestUserMessageFallsBackToGeneral(t *testing.T) {
	got := UserMessage(CodeFilterNotSupported)
	if got != UserMessage(CodeGeneral) {
		t.Errorf("expected backend-internal code to fall back to the general apology, got %q", got)
	}

	got = UserMessage(Code("unknown_code"))
	if got != UserMessage(CodeGeneral) {
		t.Errorf("expected unknown code to fall back to the general apology, got %q", got)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	if got := Timeout("x", nil).Code; got != CodeTimeout {
		t.Errorf("Timeout() code = %s", got)
	}
	if got := MissingParams("x", nil).Code; got != CodeMissingParams {
		t.Errorf("MissingParams() code = %s", got)
	}
	if got := PendingActionExpired("x").Code; got != CodePendingActionExpired {
		t.Errorf("PendingActionExpired() code = %s", got)
	}
	if got := FilterNotSupported("x", nil).Code; got != CodeFilterNotSupported {
		t.Errorf("FilterNotSupported() code = %s", got)
	}
}
