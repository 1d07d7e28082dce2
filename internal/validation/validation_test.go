package validation

import "testing"

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{"simple", "report.pdf", false},
		{"dots inside", "data..v2.csv", false},
		{"hidden file", ".env", false},
		{"empty", "", true},
		{"forward slash", "a/b.txt", true},
		{"backslash", `a\b.txt`, true},
		{"traversal", "..", true},
		{"current dir", ".", true},
		{"null byte", "a\x00b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.filename)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilename(%q) error = %v, wantErr %v", tt.filename, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	for _, valid := range []string{"a@b.com", "user+tag@example.org"} {
		if err := ValidateEmail(valid); err != nil {
			t.Errorf("ValidateEmail(%q) error = %v, want nil", valid, err)
		}
	}
	for _, invalid := range []string{"", "nope", "@b.com", "a@"} {
		if err := ValidateEmail(invalid); err == nil {
			t.Errorf("ValidateEmail(%q) error = nil, want error", invalid)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword(""); err == nil {
		t.Error("ValidatePassword(\"\") error = nil, want error")
	}
	if err := ValidatePassword("hunter2"); err != nil {
		t.Errorf("ValidatePassword() error = %v, want nil", err)
	}
}
