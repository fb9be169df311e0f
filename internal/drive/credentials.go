package drive

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
)

// DriveScope grants full Drive access to the service account.
const DriveScope = "https://www.googleapis.com/auth/drive"

// Secret names looked up in the secrets store.
const (
	SecretServiceAccountJSON   = "SERVICE_ACCOUNT_JSON"
	SecretServiceAccountBase64 = "SERVICE_ACCOUNT_JSON_BASE64"
	EnvCredentialsPath         = "GOOGLE_APPLICATION_CREDENTIALS"
)

// ErrNoCredentials is returned when neither credential mechanism resolves.
var ErrNoCredentials = errors.New("no usable service account found: set " +
	SecretServiceAccountJSON + " or " + SecretServiceAccountBase64 +
	" in the secrets store, or point " + EnvCredentialsPath + " at a service account file")

// CredentialSources lists where a service account document may come from,
// in priority order: the secrets store first, then a file path.
type CredentialSources struct {
	Secrets         map[string]string
	CredentialsPath string
}

// LoadCredentials returns the first usable service account JSON document.
func LoadCredentials(src CredentialSources) ([]byte, error) {
	var problems []string

	if raw := strings.TrimSpace(src.Secrets[SecretServiceAccountJSON]); raw != "" {
		doc := []byte(stripTripleQuotes(raw))
		if json.Valid(doc) {
			return doc, nil
		}
		problems = append(problems, SecretServiceAccountJSON+" is not valid JSON")
	}

	if raw := src.Secrets[SecretServiceAccountBase64]; strings.TrimSpace(raw) != "" {
		compact := strings.Join(strings.Fields(raw), "")
		doc, err := base64.StdEncoding.DecodeString(compact)
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("failed to decode %s: %v", SecretServiceAccountBase64, err))
		case !json.Valid(doc):
			problems = append(problems, SecretServiceAccountBase64+" does not decode to JSON")
		default:
			return doc, nil
		}
	}

	if path := strings.TrimSpace(src.CredentialsPath); path != "" {
		doc, err := os.ReadFile(path)
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("%s: %v", EnvCredentialsPath, err))
		case !json.Valid(doc):
			problems = append(problems, EnvCredentialsPath+" does not point at a JSON document")
		default:
			return doc, nil
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w (%s)", ErrNoCredentials, strings.Join(problems, "; "))
	}
	return nil, ErrNoCredentials
}

// NewHTTPClient turns a service account document into an authorised client.
func NewHTTPClient(ctx context.Context, credJSON []byte) (*http.Client, error) {
	cfg, err := google.JWTConfigFromJSON(credJSON, DriveScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	return cfg.Client(ctx), nil
}

func stripTripleQuotes(s string) string {
	for _, q := range []string{`"""`, `'''`} {
		if len(s) >= 6 && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return strings.TrimSpace(s[3 : len(s)-3])
		}
	}
	return s
}
