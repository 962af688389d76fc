package email_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cardwise/notifq/pkg/email"
)

func validParams() email.SendEmailParams {
	return email.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "Weekly spending summary",
		BodyHTML: "<p>You spent $420 this week.</p>",
		Tag:      "spending_alert",
	}
}

func TestSendEmailParamsValidate(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, validParams().Validate())
	})

	t.Run("missing recipient", func(t *testing.T) {
		t.Parallel()

		p := validParams()
		p.SendTo = ""
		assert.ErrorIs(t, p.Validate(), email.ErrInvalidParams)
	})

	t.Run("malformed recipient", func(t *testing.T) {
		t.Parallel()

		for _, addr := range []string{"not-an-email", "user@", "@example.com", "user@example"} {
			p := validParams()
			p.SendTo = addr
			assert.ErrorIs(t, p.Validate(), email.ErrInvalidParams, "address %q must be rejected", addr)
		}
	})

	t.Run("missing subject", func(t *testing.T) {
		t.Parallel()

		p := validParams()
		p.Subject = ""
		assert.ErrorIs(t, p.Validate(), email.ErrInvalidParams)
	})

	t.Run("missing body", func(t *testing.T) {
		t.Parallel()

		p := validParams()
		p.BodyHTML = ""
		assert.ErrorIs(t, p.Validate(), email.ErrInvalidParams)
	})
}
