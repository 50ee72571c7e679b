package netutil

import "testing"

func TestExpandIPv6(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"::1", "0000:0000:0000:0000:0000:0000:0000:0001"},
		{"2001:db8::2:1", "2001:0db8:0000:0000:0000:0000:0002:0001"},
		{"2001:DB8:0:0:8:800:200C:417A", "2001:0db8:0000:0000:0008:0800:200c:417a"},
		{"fe80::", "fe80:0000:0000:0000:0000:0000:0000:0000"},
		{" 2001:db8::1 ", "2001:0db8:0000:0000:0000:0000:0000:0001"},
		// caller errors: must not match anything, must not panic
		{"2001:db8::1::2", ""},
		{"1:2:3:4:5:6:7:8:9", ""},
		{"192.0.2.1", ""},
		{"", ""},
		{"not-an-address", ""},
	}
	for _, c := range cases {
		if got := ExpandIPv6(c.in); got != c.want {
			t.Errorf("ExpandIPv6(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
