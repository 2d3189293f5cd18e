package main

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/OsianJL/questions-app/clients/go/questions"
)

const sessionFile = "session.json"

// storedSession is the on-disk form of the last login.
type storedSession struct {
	Email string `json:"email,omitempty"`
	Token string `json:"token"`
}

// configDir returns QUESTIONS_CONFIG or ~/.questions.
func configDir() string {
	if dir := os.Getenv("QUESTIONS_CONFIG"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".questions")
}

// loadSession builds the session from QUESTIONS_TOKEN or the saved login.
func loadSession(dir string) (*questions.Session, error) {
	if tok := os.Getenv("QUESTIONS_TOKEN"); tok != "" {
		return questions.NewSession(tok), nil
	}

	data, err := os.ReadFile(filepath.Join(dir, sessionFile))
	if errors.Is(err, fs.ErrNotExist) {
		return questions.NewSession(""), nil
	}
	if err != nil {
		return nil, err
	}

	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return questions.NewSession(stored.Token), nil
}

// saveSession writes the login so later invocations can reuse it.
func saveSession(dir, email string, s *questions.Session) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	data, _ := json.MarshalIndent(storedSession{Email: email, Token: s.Token()}, "", "  ")
	return os.WriteFile(filepath.Join(dir, sessionFile), data, 0600)
}

// removeSession forgets the saved login.
func removeSession(dir string) error {
	err := os.Remove(filepath.Join(dir, sessionFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
