package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}

// Person is the display identity used in notifications. It is always
// populated, even when no user record exists.
type Person struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Found bool   `json:"found"`
}

// Directory resolves user ids to display identities.
type Directory struct {
	repo   Repository
	logger *slog.Logger
}

func NewDirectory(repo Repository, logger *slog.Logger) *Directory {
	return &Directory{repo: repo, logger: logger}
}

func (d *Directory) GetByID(ctx context.Context, id string) (*User, error) {
	return d.repo.GetByID(ctx, id)
}

// Lookup never fails. A missing record falls back to a name derived from the
// id when it looks like an email address, and to the literal id otherwise.
func (d *Directory) Lookup(ctx context.Context, id string) Person {
	id = strings.TrimSpace(id)
	if id == "" {
		return Person{}
	}

	u, err := d.repo.GetByID(ctx, id)
	if err == nil && u != nil {
		p := Person{ID: u.ID, Email: u.Email, Name: u.FullName(), Found: true}
		if p.Name == "" {
			p.Name = NameFromEmail(u.Email)
		}
		if p.Name == "" {
			p.Name = u.ID
		}
		return p
	}

	if err != nil && !errors.Is(err, ErrUserNotFound) {
		d.logger.Warn("user lookup failed, using placeholder identity", "user_id", id, "error", err)
	} else {
		d.logger.Warn("user not found, using placeholder identity", "user_id", id)
	}

	p := Person{ID: id, Name: id}
	if strings.Contains(id, "@") {
		p.Email = id
		if name := NameFromEmail(id); name != "" {
			p.Name = name
		}
	}
	return p
}

// LookupMany resolves each id, skipping blanks and duplicates.
func (d *Directory) LookupMany(ctx context.Context, ids ...string) []Person {
	seen := make(map[string]bool, len(ids))
	out := make([]Person, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, d.Lookup(ctx, id))
	}
	return out
}

// NameFromEmail turns "jane.doe@example.com" into "Jane Doe".
func NameFromEmail(email string) string {
	local, _, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return ""
	}
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	for i, p := range parts {
		runes := []rune(strings.ToLower(p))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
