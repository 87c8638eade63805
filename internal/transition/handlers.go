package transition

import (
	"strings"
	"text/template"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/procurement/internal/purchaserequest"
	"github.com/frahmantamala/procurement/internal/user"
)

type audience int

const (
	audienceRequestor audience = iota
	audienceProcurement
	audienceApprovers
)

// statusHandler covers every plain status change. Only the audience and the
// wording differ between transitions.
type statusHandler struct {
	to      []audience
	cc      []audience
	subject *template.Template
	intro   *template.Template
}

func newStatusHandler(to, cc []audience, subject, intro string) *statusHandler {
	return &statusHandler{
		to:      to,
		cc:      cc,
		subject: template.Must(template.New("subject").Parse(subject)),
		intro:   template.Must(template.New("intro").Parse(intro)),
	}
}

func (h *statusHandler) Applies(tc *Context) bool {
	return tc.PurchaseRequest != nil
}

func (h *statusHandler) Recipients(tc *Context) Recipients {
	return buildRecipients(addresses(tc, h.to), addresses(tc, h.cc))
}

func (h *statusHandler) Content(tc *Context) (Content, error) {
	return render(h.subject, h.intro, newView(tc))
}

func addresses(tc *Context, audiences []audience) []string {
	var out []string
	for _, a := range audiences {
		switch a {
		case audienceRequestor:
			out = append(out, address(tc.Requestor))
		case audienceProcurement:
			out = append(out, tc.ProcurementContact())
		case audienceApprovers:
			for _, p := range tc.Approvers {
				out = append(out, address(p))
			}
		}
	}
	return out
}

// address falls back to the literal id when no email is known.
func address(p user.Person) string {
	if p.Email != "" {
		return p.Email
	}
	return p.ID
}

// buildRecipients drops blanks and duplicates, and anyone already in to.
func buildRecipients(to, cc []string) Recipients {
	seen := make(map[string]bool)
	r := Recipients{To: []string{}, CC: []string{}}
	add := func(list []string, addr string) []string {
		addr = strings.TrimSpace(addr)
		key := strings.ToLower(addr)
		if addr == "" || seen[key] {
			return list
		}
		seen[key] = true
		return append(list, addr)
	}
	for _, a := range to {
		r.To = add(r.To, a)
	}
	for _, a := range cc {
		r.CC = add(r.CC, a)
	}
	return r
}

func newView(tc *Context) view {
	pr := tc.PurchaseRequest
	v := view{
		PRID:         pr.ID,
		PRNumber:     pr.PRNumber,
		Description:  pr.Description,
		Amount:       money(pr.EstimatedAmount, pr.Currency),
		Requestor:    tc.Requestor.Name,
		Actor:        tc.Actor.Name,
		Previous:     humanStatus(tc.Key.From),
		Status:       humanStatus(tc.Key.To),
		Notes:        tc.Notes,
		ReminderDate: tc.ReminderDate,
	}
	if v.PRNumber == "" {
		v.PRNumber = pr.ID
	}
	if tc.Organization != nil {
		v.Organization = tc.Organization.Name
	}
	names := make([]string, 0, len(tc.Approvers))
	for _, p := range tc.Approvers {
		names = append(names, p.Name)
	}
	v.Approvers = strings.Join(names, ", ")
	if tc.AppBaseURL != "" {
		v.Link = strings.TrimRight(tc.AppBaseURL, "/") + "/purchase-requests/" + pr.ID
	}
	return v
}

func money(d decimal.Decimal, currency string) string {
	return strings.TrimSpace(d.StringFixed(2) + " " + currency)
}

// humanStatus turns PENDING_APPROVAL into "Pending Approval".
func humanStatus(s purchaserequest.Status) string {
	if s == "" {
		return ""
	}
	words := strings.Split(strings.ToLower(string(s)), "_")
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var (
	requestor        = []audience{audienceRequestor}
	procurement      = []audience{audienceProcurement}
	approvers        = []audience{audienceApprovers}
	procAndApprovers = []audience{audienceProcurement, audienceApprovers}
	procAndRequestor = []audience{audienceProcurement, audienceRequestor}
)

// DefaultRegistry holds every transition that notifies somebody.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(StatusKey("", purchaserequest.StatusSubmitted), newStatusHandler(procurement, requestor,
		`New purchase request {{.PRNumber}} submitted`,
		`{{.Requestor}} submitted a new purchase request for {{.Amount}}. It is waiting for procurement review.`))

	r.Register(StatusKey(purchaserequest.StatusDraft, purchaserequest.StatusSubmitted), newStatusHandler(procurement, requestor,
		`New purchase request {{.PRNumber}} submitted`,
		`{{.Requestor}} submitted purchase request {{.PRNumber}} for {{.Amount}}. It is waiting for procurement review.`))

	for _, from := range []purchaserequest.Status{purchaserequest.StatusSubmitted, purchaserequest.StatusResubmitted} {
		r.Register(StatusKey(from, purchaserequest.StatusInQueue), newStatusHandler(requestor, procurement,
			`Purchase request {{.PRNumber}} is in the procurement queue`,
			`Procurement has picked up your purchase request and placed it in the queue.`))
	}

	for _, from := range []purchaserequest.Status{
		purchaserequest.StatusSubmitted, purchaserequest.StatusResubmitted, purchaserequest.StatusInQueue,
	} {
		r.Register(StatusKey(from, purchaserequest.StatusPendingApproval), newStatusHandler(approvers, procAndRequestor,
			`Approval needed: purchase request {{.PRNumber}}`,
			`Purchase request {{.PRNumber}} for {{.Amount}} is waiting for your approval.`))
	}

	r.Register(StatusKey(purchaserequest.StatusPendingApproval, purchaserequest.StatusApproved), newStatusHandler(requestor, procAndApprovers,
		`Purchase request {{.PRNumber}} approved`,
		`Your purchase request for {{.Amount}} was approved{{if .Actor}} by {{.Actor}}{{end}}.`))

	r.Register(StatusKey(purchaserequest.StatusApproved, purchaserequest.StatusOrdered), newStatusHandler(requestor, procurement,
		`Purchase request {{.PRNumber}} ordered`,
		`Procurement has placed the order for your purchase request.`))

	r.Register(StatusKey(purchaserequest.StatusOrdered, purchaserequest.StatusCompleted), newStatusHandler(requestor, procurement,
		`Purchase request {{.PRNumber}} completed`,
		`Your purchase request has been fulfilled and is now complete.`))

	for _, from := range []purchaserequest.Status{
		purchaserequest.StatusSubmitted, purchaserequest.StatusResubmitted,
		purchaserequest.StatusInQueue, purchaserequest.StatusPendingApproval,
	} {
		r.Register(StatusKey(from, purchaserequest.StatusRevisionRequired), newStatusHandler(requestor, procurement,
			`Revision required: purchase request {{.PRNumber}}`,
			`Your purchase request was sent back for revision while it was {{.Previous}}. Please update it and resubmit.`))

		r.Register(StatusKey(from, purchaserequest.StatusRejected), newStatusHandler(requestor, procurement,
			`Purchase request {{.PRNumber}} rejected`,
			`Your purchase request was rejected while it was {{.Previous}}.`))
	}

	for _, from := range []purchaserequest.Status{
		purchaserequest.StatusDraft, purchaserequest.StatusSubmitted, purchaserequest.StatusResubmitted,
		purchaserequest.StatusInQueue, purchaserequest.StatusPendingApproval, purchaserequest.StatusApproved,
		purchaserequest.StatusRevisionRequired,
	} {
		r.Register(StatusKey(from, purchaserequest.StatusCanceled), newStatusHandler(requestor, procAndApprovers,
			`Purchase request {{.PRNumber}} canceled`,
			`Purchase request {{.PRNumber}} was canceled while it was {{.Previous}}.`))
	}

	registerReinstatements(r)
	r.Register(QuoteConflictKey(), newConflictHandler())
	return r
}

// registerReinstatements covers procurement acting on a PR that came back
// from revision. The content names the status it was reinstated to.
func registerReinstatements(r *Registry) {
	from := purchaserequest.StatusRevisionRequired

	for _, to := range []purchaserequest.Status{
		purchaserequest.StatusSubmitted, purchaserequest.StatusResubmitted, purchaserequest.StatusInQueue,
	} {
		r.Register(StatusKey(from, to), newStatusHandler(requestor, procurement,
			`Purchase request {{.PRNumber}} reinstated as {{.Status}}`,
			`Your revised purchase request was reinstated from Revision Required to {{.Status}} and is back with procurement.`))
	}

	r.Register(StatusKey(from, purchaserequest.StatusPendingApproval), newStatusHandler(approvers, procAndRequestor,
		`Approval needed: revised purchase request {{.PRNumber}}`,
		`Purchase request {{.PRNumber}} was revised and reinstated from Revision Required to {{.Status}}. It is waiting for your approval.`))

	r.Register(StatusKey(from, purchaserequest.StatusRejected), newStatusHandler(requestor, procurement,
		`Purchase request {{.PRNumber}} rejected after revision`,
		`Procurement reviewed your revised purchase request and rejected it instead of reinstating it.`))
}
