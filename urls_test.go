package topic2html

import "testing"

func TestResolveAnyURL(t *testing.T) {
	t.Parallel()

	base := mustParseURL(t, "https://forum.example/t/topic/123")

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "absolute", raw: "https://cdn.example/a.png", want: "https://cdn.example/a.png"},
		{name: "protocol relative", raw: "//cdn.example/a.png", want: "https://cdn.example/a.png"},
		{name: "root relative", raw: "/uploads/a.png", want: "https://forum.example/uploads/a.png"},
		{name: "relative", raw: "a.png", want: "https://forum.example/t/topic/a.png"},
		{name: "whitespace trimmed", raw: "  /uploads/a.png ", want: "https://forum.example/uploads/a.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			u, err := resolveAnyURL(base, tt.raw)
			if err != nil {
				t.Fatalf("resolveAnyURL(%q) error = %v", tt.raw, err)
			}
			if u.String() != tt.want {
				t.Errorf("resolveAnyURL(%q) = %q, want %q", tt.raw, u, tt.want)
			}
		})
	}
}

func TestIsNonFetchable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"data:image/png;base64,AAAA", true},
		{"about:blank", true},
		{"#fragment", true},
		{"blob:https://forum.example/uuid", true},
		{"/uploads/a.png", false},
		{"https://cdn.example/a.png", false},
		{"a.png", false},
	}

	for _, tt := range tests {
		if got := isNonFetchable(tt.raw); got != tt.want {
			t.Errorf("isNonFetchable(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
