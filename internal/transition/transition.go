package transition

import (
	"errors"
	"fmt"

	"github.com/frahmantamala/procurement/internal/organization"
	"github.com/frahmantamala/procurement/internal/purchaserequest"
	"github.com/frahmantamala/procurement/internal/user"
)

var (
	// ErrNoHandler means the transition is not one that notifies anybody.
	ErrNoHandler = errors.New("no transition handler registered")
	// ErrNotApplicable means a handler is registered but declined the context.
	ErrNotApplicable = errors.New("transition handler does not apply")
)

// Kind separates real status changes from the quote-conflict signal, which
// shares the PENDING_APPROVAL to PENDING_APPROVAL pair.
type Kind int

const (
	KindStatusChanged Kind = iota
	KindQuoteConflict
)

func (k Kind) String() string {
	if k == KindQuoteConflict {
		return "quote_conflict"
	}
	return "status_changed"
}

// Key is the dispatch key. An empty From is the creation of a PR.
type Key struct {
	Kind Kind
	From purchaserequest.Status
	To   purchaserequest.Status
}

func StatusKey(from, to purchaserequest.Status) Key {
	return Key{Kind: KindStatusChanged, From: from, To: to}
}

func QuoteConflictKey() Key {
	return Key{
		Kind: KindQuoteConflict,
		From: purchaserequest.StatusPendingApproval,
		To:   purchaserequest.StatusPendingApproval,
	}
}

// NotificationType is the idempotency tag of the notification the key
// produces. Reminders get one tag per day; other notifications are scoped to
// the occurrence identified by sequence when it is set.
func (k Key) NotificationType(reminderDate string, sequence int) string {
	var tag string
	switch {
	case k.Kind == KindQuoteConflict && reminderDate != "":
		return "QUOTE_CONFLICT_REMINDER_" + reminderDate
	case k.Kind == KindQuoteConflict:
		tag = "QUOTE_CONFLICT"
	default:
		from := string(k.From)
		if from == "" {
			from = "NEW"
		}
		tag = fmt.Sprintf("STATUS_CHANGE_%s_TO_%s", from, k.To)
	}
	if sequence > 0 {
		tag = fmt.Sprintf("%s#%d", tag, sequence)
	}
	return tag
}

func (k Key) String() string {
	from := string(k.From)
	if from == "" {
		from = "<new>"
	}
	return fmt.Sprintf("%s:%s->%s", k.Kind, from, k.To)
}

type Recipients struct {
	To []string `json:"to"`
	CC []string `json:"cc"`
}

func (r Recipients) All() []string {
	return append(append([]string{}, r.To...), r.CC...)
}

func (r Recipients) Empty() bool {
	return len(r.To) == 0 && len(r.CC) == 0
}

type Content struct {
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// Context is everything a handler needs to address and write a notification.
// Identities are already resolved so handlers never touch storage.
type Context struct {
	Key             Key
	PurchaseRequest *purchaserequest.PurchaseRequest
	Organization    *organization.Organization
	Requestor       user.Person
	Approvers       []user.Person
	Actor           user.Person
	Notes           string
	AppBaseURL      string
	Reminder        bool
	ReminderDate    string
	// Sequence scopes the notification type to one occurrence of the key.
	Sequence int
}

func (c *Context) ProcurementContact() string {
	if c.Organization == nil {
		return ""
	}
	return c.Organization.ProcurementEmail
}

// Approver returns the resolved identity of an approver id, or a placeholder
// carrying the id.
func (c *Context) Approver(id string) user.Person {
	for _, p := range c.Approvers {
		if p.ID == id {
			return p
		}
	}
	return user.Person{ID: id, Name: id}
}

type Handler interface {
	Applies(tc *Context) bool
	Recipients(tc *Context) Recipients
	Content(tc *Context) (Content, error)
}

type Message struct {
	Type       string     `json:"type"`
	Recipients Recipients `json:"recipients"`
	Content    Content    `json:"content"`
}

type Registry struct {
	handlers map[Key]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Key]Handler)}
}

func (r *Registry) Register(key Key, h Handler) {
	r.handlers[key] = h
}

// Lookup is a pure table lookup. A missing entry is not an error.
func (r *Registry) Lookup(key Key) (Handler, bool) {
	h, ok := r.handlers[key]
	return h, ok
}

// Dispatch finds the handler for tc.Key and asks it for recipients and
// content.
func (r *Registry) Dispatch(tc *Context) (*Message, error) {
	h, ok := r.Lookup(tc.Key)
	if !ok {
		return nil, ErrNoHandler
	}
	if !h.Applies(tc) {
		return nil, ErrNotApplicable
	}
	content, err := h.Content(tc)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", tc.Key, err)
	}
	return &Message{
		Type:       tc.Key.NotificationType(tc.ReminderDate, tc.Sequence),
		Recipients: h.Recipients(tc),
		Content:    content,
	}, nil
}
