package mailer

import (
	"fmt"
	"strings"
	"time"

	"fieldops/internal/models"
)

func PasswordReset(user models.User, resetURL string, ttl time.Duration) Message {
	body := renderTemplate(passwordResetTemplate,
		"name", user.Name,
		"link", resetURL,
		"minutes", fmt.Sprintf("%d", int(ttl.Minutes())),
	)
	return Message{To: user.Email, Subject: "Reset your password", Body: body}
}

func CampAssignment(user models.User, camp models.Camp) Message {
	body := renderTemplate(campAssignmentTemplate,
		"name", user.Name,
		"date", camp.Date,
		"location", camp.Location,
		"conducted_by", camp.ConductedBy,
		"notes", camp.Notes,
	)
	return Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Camp assignment: %s on %s", camp.Location, camp.Date),
		Body:    body,
	}
}

const passwordResetTemplate = `Hello {name},

A password reset was requested for your account. Use the link below within {minutes} minutes:

{link}

If you did not request this, ignore this email.`

const campAssignmentTemplate = `Hello {name},

You have been assigned to a camp.

Date: {date}
Location: {location}
Conducted by: {conducted_by}
Notes: {notes}`

// renderTemplate fills {key} placeholders in one pass, so placeholder text
// inside a value is left as written.
func renderTemplate(template string, pairs ...string) string {
	oldnew := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		oldnew = append(oldnew, "{"+pairs[i]+"}", pairs[i+1])
	}
	return strings.NewReplacer(oldnew...).Replace(template)
}
