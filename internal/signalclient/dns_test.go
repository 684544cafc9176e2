package signalclient

import (
	"context"
	"testing"
)

func TestLookupIPLiteral(t *testing.T) {
	for _, ip := range []string{"127.0.0.1", "::1"} {
		got, err := Lookup(context.Background(), ip)
		if err != nil || got != ip {
			t.Fatalf("Lookup(%q)=(%q, %v)", ip, got, err)
		}
	}
}

func TestLookupLocalhost(t *testing.T) {
	got, err := Lookup(context.Background(), "localhost")
	if err != nil {
		t.Skipf("no resolver for localhost: %v", err)
	}
	if got != "127.0.0.1" && got != "::1" {
		t.Fatalf("localhost=%q", got)
	}
}
