package authz

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy decides which actors hold administrator capability.
type Policy interface {
	IsAdmin(email string) bool
}

// AllowList grants admin to a fixed set of addresses, compared by exact string match.
type AllowList struct {
	emails map[string]struct{}
}

// NewAllowList builds an allow-list. Blank entries are ignored; entries are trimmed but not case-folded.
func NewAllowList(emails ...string) *AllowList {
	a := &AllowList{emails: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		a.add(e)
	}
	return a
}

func (a *AllowList) add(email string) {
	if e := strings.TrimSpace(email); e != "" {
		a.emails[e] = struct{}{}
	}
}

// IsAdmin implements Policy.
func (a *AllowList) IsAdmin(email string) bool {
	if a == nil || email == "" {
		return false
	}
	_, ok := a.emails[email]
	return ok
}

// Len returns the number of admin addresses.
func (a *AllowList) Len() int {
	return len(a.emails)
}

// allowListFile is the YAML shape of an admins file.
type allowListFile struct {
	Admins []string `yaml:"admins"`
}

// LoadAllowListFile adds the addresses listed in a YAML file (`admins: [...]`).
// PRE: path names a readable YAML file
// POST: All listed addresses are admins; existing entries are kept
func (a *AllowList) LoadAllowListFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read admins file: %w", err)
	}
	var f allowListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse admins file: %w", err)
	}
	for _, e := range f.Admins {
		a.add(e)
	}
	return nil
}
