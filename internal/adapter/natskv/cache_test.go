package natskv

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"tenant.sub.alice", "tenant.sub.alice"},
		{"tenant:sub:alice", "tenant_sub_alice"},
		{"a b*c>d", "a_b_c_d"},
		{"x-y_z=1/2", "x-y_z=1/2"},
	}
	for _, tt := range tests {
		if got := sanitize(tt.in); got != tt.want {
			t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
