package credentials

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"shotbridge/internal/tracking"
)

// Environment variables consulted when no credential file exists.
const (
	EnvServer = "FTRACK_SERVER"
	EnvAPIKey = "FTRACK_API_KEY"
	EnvUser   = "FTRACK_API_USER"
)

// Credentials identify a user against one tracking server.
type Credentials struct {
	ServerURL string `json:"server_url"`
	APIKey    string `json:"api_key"`
	Username  string `json:"username"`
}

// Normalized returns a copy with whitespace trimmed and the trailing slash
// removed from the server URL.
func (c Credentials) Normalized() Credentials {
	return Credentials{
		ServerURL: strings.TrimRight(strings.TrimSpace(c.ServerURL), "/"),
		APIKey:    strings.TrimSpace(c.APIKey),
		Username:  strings.TrimSpace(c.Username),
	}
}

// Missing lists the JSON names of empty fields in file order.
func (c Credentials) Missing() []string {
	n := c.Normalized()
	var missing []string
	if n.ServerURL == "" {
		missing = append(missing, "server_url")
	}
	if n.APIKey == "" {
		missing = append(missing, "api_key")
	}
	if n.Username == "" {
		missing = append(missing, "username")
	}
	return missing
}

// Validate reports missing fields or a malformed server URL as an
// authentication failure.
func (c Credentials) Validate() error {
	if missing := c.Missing(); len(missing) > 0 {
		return tracking.Wrap(tracking.ErrAuthentication, "credentials", "validate",
			"missing "+strings.Join(missing, ", "), nil)
	}
	parsed, err := url.Parse(c.Normalized().ServerURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "https" && parsed.Scheme != "http") {
		return tracking.Wrap(tracking.ErrAuthentication, "credentials", "validate",
			fmt.Sprintf("server_url %q is not an http(s) URL", c.ServerURL), nil)
	}
	return nil
}

// WithServer returns a copy whose server URL is replaced when override is set.
func (c Credentials) WithServer(override string) Credentials {
	if strings.TrimSpace(override) == "" {
		return c
	}
	c.ServerURL = override
	return c
}

// MaskedKey returns the API key with all but the last four characters hidden.
func (c Credentials) MaskedKey() string {
	key := strings.TrimSpace(c.APIKey)
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}

// String never includes the API key.
func (c Credentials) String() string {
	return fmt.Sprintf("%s@%s", c.Username, c.ServerURL)
}

// FromEnv reads credentials from the FTRACK_* environment variables. The
// boolean reports whether any of them was set.
func FromEnv() (Credentials, bool) {
	server, hasServer := os.LookupEnv(EnvServer)
	key, hasKey := os.LookupEnv(EnvAPIKey)
	user, hasUser := os.LookupEnv(EnvUser)
	creds := Credentials{ServerURL: server, APIKey: key, Username: user}.Normalized()
	return creds, hasServer || hasKey || hasUser
}
