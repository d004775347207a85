package registrations

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stride-coaching/backend/internal/models"
)

func validAttendee() models.Attendee {
	return models.Attendee{Name: "Lin Mei", Email: "mei@example.com", Phone: "0912345678", Industry: "finance"}
}

func fullDraft() Draft {
	return Draft{
		UserType:         "new",
		Plan:             "full",
		SelectedSessions: []string{"s1", "s2", "s3", "s4"},
		Attendees:        []models.Attendee{validAttendee()},
		PaymentMethod:    models.PaymentMethodTransfer,
	}
}

func TestValidMobile(t *testing.T) {
	assert.True(t, ValidMobile("0912345678"))
	assert.True(t, ValidMobile("09-1234-5678"))
	assert.True(t, ValidMobile("0912 345 678"))
	assert.False(t, ValidMobile("0212345678"))
	assert.False(t, ValidMobile("091234567"))
	assert.False(t, ValidMobile("09123456789"))
	assert.False(t, ValidMobile("+886912345678"))
}

func TestValidTaxID(t *testing.T) {
	assert.False(t, ValidTaxID("1234567"))
	assert.False(t, ValidTaxID("123456789"))
	assert.False(t, ValidTaxID("1234567a"))
	assert.True(t, ValidTaxID("12345678"))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("a@b.co"))
	assert.True(t, ValidEmail(" mei.lin+course@example.com.tw "))
	assert.False(t, ValidEmail("a@b"))
	assert.False(t, ValidEmail("a b@c.com"))
	assert.False(t, ValidEmail("@c.com"))
	assert.False(t, ValidEmail(""))
}

func TestValidateDraftFullPlanPasses(t *testing.T) {
	assert.Empty(t, ValidateDraft(fullDraft()))
}

func TestValidateDraftAccumulatesAllErrors(t *testing.T) {
	d := Draft{
		UserType:         "vip",
		Plan:             "full",
		SelectedSessions: []string{"s1"},
		Attendees:        []models.Attendee{{Name: " ", Email: "nope", Phone: "0212345678"}},
		PaymentMethod:    "cash",
		NeedInvoice:      true,
		TaxID:            "123",
	}
	errs := ValidateDraft(d)
	for _, field := range []string{"user_type", "payment_method", "name", "email", "phone", "tax_id", "invoice_title", "sessions"} {
		assert.Contains(t, errs, field)
	}
	assert.NotContains(t, errs, "plan")
}

func TestValidateDraftDoublePlan(t *testing.T) {
	second := models.Attendee{Name: "Chen Wei", Email: "wei@example.com", Phone: "0987-654-321"}

	t.Run("wrong session count", func(t *testing.T) {
		d := fullDraft()
		d.Plan = "double"
		d.Attendees = append(d.Attendees, second)
		d.SelectedSessions = []string{"s1", "s2", "s3"}
		errs := ValidateDraft(d)
		assert.Equal(t, FieldErrors{"sessions": "please select exactly 4 sessions"}, errs)
	})

	t.Run("missing second attendee email", func(t *testing.T) {
		d := fullDraft()
		d.Plan = "double"
		noEmail := second
		noEmail.Email = ""
		d.Attendees = append(d.Attendees, noEmail)
		errs := ValidateDraft(d)
		assert.Equal(t, FieldErrors{"attendee2_email": "please enter a valid email address"}, errs)
	})

	t.Run("missing second attendee", func(t *testing.T) {
		d := fullDraft()
		d.Plan = "double"
		errs := ValidateDraft(d)
		assert.Len(t, errs, 3)
		assert.Contains(t, errs, "attendee2_name")
		assert.Contains(t, errs, "attendee2_email")
		assert.Contains(t, errs, "attendee2_phone")
	})

	t.Run("valid", func(t *testing.T) {
		d := fullDraft()
		d.Plan = "double"
		d.Attendees = append(d.Attendees, second)
		assert.Empty(t, ValidateDraft(d))
	})
}

func TestValidateDraftSecondAttendeeIgnoredOutsideDouble(t *testing.T) {
	d := fullDraft()
	d.Attendees = append(d.Attendees, models.Attendee{})
	assert.Empty(t, ValidateDraft(d))
}

func TestValidateDraftInvoice(t *testing.T) {
	for _, tax := range []string{"123", "1234567", "123456789"} {
		d := fullDraft()
		d.NeedInvoice = true
		d.InvoiceTitle = "Stride Ltd."
		d.TaxID = tax
		assert.Equal(t, FieldErrors{"tax_id": "tax ID must be exactly 8 digits"}, ValidateDraft(d), tax)
	}
	d := fullDraft()
	d.NeedInvoice = true
	d.InvoiceTitle = "Stride Ltd."
	d.TaxID = "12345678"
	assert.Empty(t, ValidateDraft(d))
}

func TestValidationErrorMessageIsSorted(t *testing.T) {
	err := &ValidationError{Fields: FieldErrors{"phone": "x", "email": "y"}}
	assert.Equal(t, "invalid registration: email, phone", err.Error())
}

func TestNormalize(t *testing.T) {
	d := fullDraft()
	d.Plan = "Single"
	d.SelectedSessions = []string{"s9"}
	d.PromoCode = " bni "
	d.Attendees = []models.Attendee{{Name: " Mei ", Email: " MEI@Example.com", Phone: "0912-345-678"}, validAttendee()}
	d.TaxID = "12345678"

	n := normalize(d)
	assert.Equal(t, "single", string(n.plan))
	assert.Len(t, n.attendees, 1)
	assert.Equal(t, models.Attendee{Name: "Mei", Email: "mei@example.com", Phone: "0912345678"}, n.attendees[0])
	assert.Equal(t, "BNI", n.draft.PromoCode)
	assert.Empty(t, n.draft.TaxID)
	assert.Equal(t, []string{"s9"}, n.selection.IDs())
}
