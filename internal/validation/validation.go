// Package validation provides input validation for values crossing trust
// boundaries: filenames coming back from the server and credentials going
// out to it.
package validation

import (
	"fmt"
	"strings"
)

// ValidateFilename validates a bare filename before it is used in a
// filepath.Join. Server responses drive where downloads land on disk, so
// names with separators or traversal components are rejected outright.
func ValidateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if strings.ContainsRune(filename, 0) {
		return fmt.Errorf("filename contains null byte")
	}
	if strings.ContainsAny(filename, `/\`) {
		return fmt.Errorf("filename cannot contain path separators: %s", filename)
	}
	// Separators are already rejected, so only the literal ".." form can
	// traverse. Names like "data..v2.csv" stay legal.
	if filename == ".." || filename == "." {
		return fmt.Errorf("invalid filename: %s", filename)
	}
	return nil
}

// ValidateEmail performs a shallow shape check before the server sees the
// address. The server remains the authority on what constitutes an account.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("invalid email address: %s", email)
	}
	return nil
}

// ValidatePassword rejects empty passwords. Strength policy lives on the
// server.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}
