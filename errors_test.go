package tessera

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError(ErrQuery, "syntax error")
	if err.Error() != "tessera: query: syntax error" {
		t.Errorf("Error() = %q", err.Error())
	}

	withDetail := &Error{Type: ErrQuery, Message: "bad insert", Detail: "value too long"}
	if withDetail.Error() != "tessera: query: bad insert (value too long)" {
		t.Errorf("Error() = %q", withDetail.Error())
	}
}

func TestIsError(t *testing.T) {
	err := NewError(ErrNotFound, "no such table")
	if !IsError(err, ErrNotFound) {
		t.Error("IsError should match the type")
	}
	if IsError(err, ErrQuery) {
		t.Error("IsError should reject other types")
	}
	if IsError(errors.New("plain"), ErrQuery) {
		t.Error("IsError should reject foreign errors")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !IsError(wrapped, ErrNotFound) {
		t.Error("IsError should see through wrapping")
	}
}

func TestWrapErrorUnwraps(t *testing.T) {
	cause := errors.New("socket closed")
	err := WrapError(ErrConnection, "connection lost", cause)
	if !errors.Is(err, cause) {
		t.Error("wrapped cause must be reachable via errors.Is")
	}
}

func TestErrorTypeStrings(t *testing.T) {
	cases := map[ErrorType]string{
		ErrConnection:    "connection",
		ErrQuery:         "query",
		ErrNotFound:      "not found",
		ErrNotSupported:  "not supported",
		ErrConfiguration: "configuration",
		ErrIO:            "io",
	}
	for typ, want := range cases {
		if typ.String() != want {
			t.Errorf("%d.String() = %q, want %q", typ, typ.String(), want)
		}
	}
}
