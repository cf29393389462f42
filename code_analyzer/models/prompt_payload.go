package models

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

// PromptPayload is the request sent to the text-generation collaborator.
type PromptPayload struct {
	Version string
	System  string
	User    string
}

// Text joins the system and user parts the way single-message providers see it.
func (p PromptPayload) Text() string {
	return p.System + "\n\n" + p.User
}

// Digest is a stable fingerprint of the payload, safe to log.
func (p PromptPayload) Digest() string {
	sum := xxh3.HashString128(p.Version + "\x00" + p.Text()).Bytes()
	return fmt.Sprintf("%x", sum[:])
}
