package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/drivelink/drivelink/internal/models"
	"github.com/drivelink/drivelink/internal/validation"
)

// promptCredentials collects email and password. The password is read
// without echo when stdin is a terminal.
func promptCredentials(email string) (models.Credentials, error) {
	reader := bufio.NewReader(os.Stdin)

	if email == "" {
		fmt.Print("Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return models.Credentials{}, fmt.Errorf("failed to read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return models.Credentials{}, err
	}

	fmt.Print("Password: ")
	var password string
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return models.Credentials{}, fmt.Errorf("failed to read password: %w", err)
		}
		password = string(raw)
	} else {
		line, err := reader.ReadString('\n')
		if err != nil {
			return models.Credentials{}, fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if err := validation.ValidatePassword(password); err != nil {
		return models.Credentials{}, err
	}

	return models.Credentials{Email: email, Password: password}, nil
}

// confirmDelete blocks until the user answers. Deletion is the one
// interaction that must not proceed on silence.
func confirmDelete(name string) (bool, error) {
	fmt.Printf("Delete '%s'? This cannot be undone. [y/N]: ", name)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
