package sanitize

import "testing"

func TestPlain(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"Groceries", true},
		{"Fish & chips", true},
		{"&amp; literal", true},
		{"x > y", true},
		{"a < b", true},
		{"  Salary  ", true},
		{"line one\r\nline two", true},
		{"a<b", false},
		{"<b>Lunch</b>", false},
		{`<script>alert(1)</script>Rent`, false},
		{`<a href="javascript:alert(1)">Bonus</a>`, false},
		{"<img src=x onerror=alert(1)>", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Plain(tt.input); got != tt.want {
				t.Errorf("Plain(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
