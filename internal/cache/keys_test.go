package cache

import "testing"

func TestKeyBuilder(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		build     func(k *KeyBuilder) string
		expected  string
	}{
		{
			name:     "customer key",
			build:    func(k *KeyBuilder) string { return k.Customer("sefrin") },
			expected: "customer:sefrin",
		},
		{
			name:     "redirect key is scoped by customer",
			build:    func(k *KeyBuilder) string { return k.Redirect("sefrin", "AM123") },
			expected: "redirect:sefrin:AM123",
		},
		{
			name:     "rate limit key",
			build:    func(k *KeyBuilder) string { return k.RateLimit("10.0.0.1") },
			expected: "rate:10.0.0.1",
		},
		{
			name:      "namespace prefixes everything",
			namespace: "empfl",
			build:     func(k *KeyBuilder) string { return k.Customer("sefrin") },
			expected:  "empfl:customer:sefrin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := NewKeyBuilder(tt.namespace)
			if got := tt.build(k); got != tt.expected {
				t.Errorf("key = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestKeyBuilder_Pattern(t *testing.T) {
	if got := NewKeyBuilder("").Pattern(PrefixRedirect); got != "redirect:*" {
		t.Errorf("Pattern() = %q, want redirect:*", got)
	}

	if got := NewKeyBuilder("empfl").Pattern(PrefixRedirect); got != "empfl:redirect:*" {
		t.Errorf("Pattern() = %q, want empfl:redirect:*", got)
	}
}
