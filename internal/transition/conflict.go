package transition

import (
	"text/template"

	"github.com/frahmantamala/procurement/internal/purchaserequest"
)

// DetectConflict reports whether both approvers completed with different
// quotes and the workflow carries the conflict flag.
func DetectConflict(pr *purchaserequest.PurchaseRequest) bool {
	if pr == nil {
		return false
	}
	w := pr.Workflow
	return w.FirstApprovalComplete && w.SecondApprovalComplete &&
		w.SelectionsDiverge() && w.QuoteConflict
}

type conflictHandler struct {
	subject *template.Template
	intro   *template.Template
}

func newConflictHandler() *conflictHandler {
	return &conflictHandler{
		subject: template.Must(template.New("subject").Parse(
			`{{if .ReminderDate}}Reminder: {{end}}Quote conflict on purchase request {{.PRNumber}}`)),
		intro: template.Must(template.New("intro").Parse(
			`The two approvers of purchase request {{.PRNumber}} selected different quotes. ` +
				`The request stays in Pending Approval until both approvers select the same quote.` +
				`{{if .ReminderDate}} This conflict is still unresolved as of {{.ReminderDate}}.{{end}}`)),
	}
}

func (h *conflictHandler) Applies(tc *Context) bool {
	return DetectConflict(tc.PurchaseRequest)
}

// Recipients sends to both approvers, copying procurement and the requestor.
func (h *conflictHandler) Recipients(tc *Context) Recipients {
	pr := tc.PurchaseRequest
	to := []string{
		address(tc.Approver(pr.ApproverID)),
		address(tc.Approver(pr.SecondApproverID)),
	}
	cc := []string{tc.ProcurementContact(), address(tc.Requestor)}
	return buildRecipients(to, cc)
}

func (h *conflictHandler) Content(tc *Context) (Content, error) {
	pr := tc.PurchaseRequest
	v := newView(tc)
	v.Status = humanStatus(purchaserequest.StatusPendingApproval)
	v.Selections = []selection{
		selectionOf(tc, pr.ApproverID, pr.Workflow.FirstSelectedQuoteID),
		selectionOf(tc, pr.SecondApproverID, pr.Workflow.SecondSelectedQuoteID),
	}
	return render(h.subject, h.intro, v)
}

func selectionOf(tc *Context, approverID, quoteID string) selection {
	s := selection{Approver: tc.Approver(approverID).Name, Vendor: "an unknown quote", Amount: "an unknown amount"}
	q, ok := tc.PurchaseRequest.QuoteByID(quoteID)
	if !ok {
		if quoteID != "" {
			s.Vendor = "quote " + quoteID
		}
		return s
	}
	s.Vendor = q.VendorName
	if s.Vendor == "" {
		s.Vendor = q.VendorID
	}
	s.Amount = money(q.Amount, q.Currency)
	return s
}
