package transition

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/procurement/internal/organization"
	"github.com/frahmantamala/procurement/internal/purchaserequest"
	"github.com/frahmantamala/procurement/internal/user"
)

type OrganizationRepository interface {
	GetByID(ctx context.Context, id string) (*organization.Organization, error)
}

type PersonLookup interface {
	Lookup(ctx context.Context, id string) user.Person
	LookupMany(ctx context.Context, ids ...string) []user.Person
}

// Builder resolves the organization and people a handler needs.
type Builder struct {
	orgs       OrganizationRepository
	people     PersonLookup
	appBaseURL string
	logger     *slog.Logger
}

func NewBuilder(orgs OrganizationRepository, people PersonLookup, appBaseURL string, logger *slog.Logger) *Builder {
	return &Builder{orgs: orgs, people: people, appBaseURL: appBaseURL, logger: logger}
}

// Build never fails. A missing organization leaves the procurement contact
// empty; missing users fall back to placeholder identities.
func (b *Builder) Build(ctx context.Context, key Key, pr *purchaserequest.PurchaseRequest, actorID, notes string) *Context {
	tc := &Context{
		Key:             key,
		PurchaseRequest: pr,
		Notes:           notes,
		AppBaseURL:      b.appBaseURL,
	}

	if org, err := b.orgs.GetByID(ctx, pr.OrganizationID); err != nil {
		b.logger.Warn("organization lookup failed, procurement contact unavailable",
			"organization_id", pr.OrganizationID, "pr_id", pr.ID, "error", err)
	} else {
		tc.Organization = org
	}

	requestor := pr.RequestorID
	if requestor == "" {
		requestor = pr.RequestorEmail
	}
	tc.Requestor = b.people.Lookup(ctx, requestor)
	if tc.Requestor.Email == "" && pr.RequestorEmail != "" {
		tc.Requestor.Email = pr.RequestorEmail
	}

	tc.Approvers = b.people.LookupMany(ctx, pr.ApproverIDs()...)
	if actorID != "" {
		tc.Actor = b.people.Lookup(ctx, actorID)
	}
	return tc
}
