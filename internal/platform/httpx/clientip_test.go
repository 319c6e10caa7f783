package httpx

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name      string
		remote    string
		forwarded []string
		hops      int
		want      string
	}{
		{name: "no proxy ignores header", remote: "198.51.100.4:5123", forwarded: []string{"203.0.113.9"}, want: "198.51.100.4"},
		{name: "one hop takes right-most", remote: "10.0.0.2:443", forwarded: []string{"1.1.1.1, 203.0.113.9"}, hops: 1, want: "203.0.113.9"},
		{name: "two hops", remote: "10.0.0.2:443", forwarded: []string{"1.1.1.1, 203.0.113.9, 10.0.0.7"}, hops: 2, want: "203.0.113.9"},
		{name: "repeated headers", remote: "10.0.0.2:443", forwarded: []string{"1.1.1.1", "203.0.113.9"}, hops: 1, want: "203.0.113.9"},
		{name: "short chain falls back", remote: "10.0.0.2:443", forwarded: []string{"203.0.113.9"}, hops: 2, want: "10.0.0.2"},
		{name: "garbage falls back", remote: "10.0.0.2:443", forwarded: []string{"not-an-ip"}, hops: 1, want: "10.0.0.2"},
		{name: "no port", remote: "10.0.0.2", want: "10.0.0.2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/auth/login", nil)
			req.RemoteAddr = tc.remote
			for _, v := range tc.forwarded {
				req.Header.Add("X-Forwarded-For", v)
			}
			if got := ClientIP(req, tc.hops); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
