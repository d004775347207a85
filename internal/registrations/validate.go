package registrations

import (
	"regexp"
	"sort"
	"strings"

	"github.com/stride-coaching/backend/internal/models"
	"github.com/stride-coaching/backend/internal/pricing"
)

var (
	reEmail  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	reMobile = regexp.MustCompile(`^09\d{8}$`)
	reTaxID  = regexp.MustCompile(`^\d{8}$`)

	phoneSeparators = strings.NewReplacer("-", "", " ", "")
)

// Draft is the course registration form as submitted.
type Draft struct {
	UserType         string            `json:"user_type"`
	Plan             string            `json:"plan"`
	SelectedSessions []string          `json:"selected_sessions"`
	Attendees        []models.Attendee `json:"attendees"`
	PaymentMethod    string            `json:"payment_method"`
	PromoCode        string            `json:"promo_code"`
	NeedInvoice      bool              `json:"need_invoice"`
	TaxID            string            `json:"tax_id"`
	InvoiceTitle     string            `json:"invoice_title"`
	Newsletter       bool              `json:"newsletter"`
}

// FieldErrors maps a form field to its message.
type FieldErrors map[string]string

func (f FieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

// ValidationError is returned when a draft fails validation. Nothing was persisted.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "invalid registration: " + strings.Join(keys, ", ")
}

// ValidEmail checks the permissive local@domain.tld shape.
func ValidEmail(s string) bool {
	return reEmail.MatchString(strings.TrimSpace(s))
}

// NormalizePhone strips hyphens and spaces.
func NormalizePhone(s string) string {
	return phoneSeparators.Replace(strings.TrimSpace(s))
}

// ValidMobile checks a Taiwanese mobile number: 09 followed by 8 digits after separators are removed.
func ValidMobile(s string) bool {
	return reMobile.MatchString(NormalizePhone(s))
}

// ValidTaxID checks an 8-digit unified business number.
func ValidTaxID(s string) bool {
	return reTaxID.MatchString(strings.TrimSpace(s))
}

// ValidateDraft checks every rule in one pass and returns all violations. An empty map means
// the draft may be submitted.
func ValidateDraft(d Draft) FieldErrors {
	errs := FieldErrors{}

	if _, err := pricing.ParseUserType(d.UserType); err != nil {
		errs.add("user_type", "please choose new or returning student")
	}
	plan, err := pricing.ParsePlan(d.Plan)
	if err != nil {
		errs.add("plan", "please choose a plan")
	}
	switch d.PaymentMethod {
	case models.PaymentMethodTransfer, models.PaymentMethodOnline:
	default:
		errs.add("payment_method", "please choose a payment method")
	}

	if len(d.Attendees) > 2 {
		errs.add("attendees", "at most two attendees can register together")
	}
	validateAttendee(errs, "", attendeeAt(d.Attendees, 0))
	if plan == pricing.PlanDouble {
		validateAttendee(errs, "attendee2_", attendeeAt(d.Attendees, 1))
	}

	if d.NeedInvoice {
		if !ValidTaxID(d.TaxID) {
			errs.add("tax_id", "tax ID must be exactly 8 digits")
		}
		if strings.TrimSpace(d.InvoiceTitle) == "" {
			errs.add("invoice_title", "invoice title is required")
		}
	}

	if plan != "" {
		if err := NewSelection(plan, d.SelectedSessions).Validate(); err != nil {
			errs.add("sessions", err.Error())
		}
	}
	return errs
}

func attendeeAt(list []models.Attendee, i int) models.Attendee {
	if i < len(list) {
		return list[i]
	}
	return models.Attendee{}
}

func validateAttendee(errs FieldErrors, prefix string, a models.Attendee) {
	if strings.TrimSpace(a.Name) == "" {
		errs.add(prefix+"name", "name is required")
	}
	if !ValidEmail(a.Email) {
		errs.add(prefix+"email", "please enter a valid email address")
	}
	if !ValidMobile(a.Phone) {
		errs.add(prefix+"phone", "please enter a mobile number like 0912-345-678")
	}
}

// normalized is a draft that passed ValidateDraft, with enums parsed and fields cleaned.
type normalized struct {
	userType  pricing.UserType
	plan      pricing.Plan
	selection *Selection
	attendees []models.Attendee
	draft     Draft
}

// normalize must only be called on a draft with no validation errors.
func normalize(d Draft) normalized {
	userType, _ := pricing.ParseUserType(d.UserType)
	plan, _ := pricing.ParsePlan(d.Plan)

	attendees := make([]models.Attendee, 0, plan.Attendees())
	for i := 0; i < plan.Attendees(); i++ {
		a := attendeeAt(d.Attendees, i)
		attendees = append(attendees, models.Attendee{
			Name:     strings.TrimSpace(a.Name),
			Email:    strings.ToLower(strings.TrimSpace(a.Email)),
			Phone:    NormalizePhone(a.Phone),
			Industry: strings.TrimSpace(a.Industry),
		})
	}
	d.PromoCode = pricing.NormalizeCode(d.PromoCode)
	if !d.NeedInvoice {
		d.TaxID, d.InvoiceTitle = "", ""
	}
	d.TaxID = strings.TrimSpace(d.TaxID)
	d.InvoiceTitle = strings.TrimSpace(d.InvoiceTitle)
	return normalized{
		userType:  userType,
		plan:      plan,
		selection: NewSelection(plan, d.SelectedSessions),
		attendees: attendees,
		draft:     d,
	}
}
