package source_acquirer

import "log/slog"

const redacted = "[redacted]"

// Credential is an access token used for a single acquisition. Its value is
// only reachable through Secret; formatting or logging it prints a
// placeholder.
type Credential struct {
	token string
}

// NewCredential wraps token. An empty token yields the zero Credential.
func NewCredential(token string) Credential {
	return Credential{token: token}
}

// Empty reports whether no token is present.
func (c Credential) Empty() bool { return c.token == "" }

// Secret returns the raw token.
func (c Credential) Secret() string { return c.token }

func (c Credential) String() string {
	if c.Empty() {
		return ""
	}
	return redacted
}

// GoString keeps %#v from printing the token.
func (c Credential) GoString() string { return "source_acquirer.Credential{" + c.String() + "}" }

func (c Credential) LogValue() slog.Value { return slog.StringValue(c.String()) }
