package yearplan

import (
	"bytes"
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/classroom-curator/planner/core"
)

const summaryTemplate = "yearplan_summary"

// SummaryData is the template data of the year plan summary email.
type SummaryData struct {
	Plan    YearPlan
	Preview Preview
}

// ShareByEmail emails a summary of `plan` to `to`, with the plan attached as an iCalendar file.
func (svc *service) ShareByEmail(ctx context.Context, plan YearPlan, to []mail.Address) error {
	if len(to) == 0 {
		return core.NewValidationError(ErrNoRecipients, core.FieldError{Field: "emails", Error: ErrNoRecipients.Error()})
	}
	if svc.mailSvc == nil {
		return errors.New("no email service configured")
	}

	preview, err := svc.Recalculate(ctx, plan)
	if err != nil {
		return errors.Wrap(err, "recalculating year plan")
	}

	msg := &core.EmailMessage{
		To:           to,
		Subject:      "Year plan: " + plan.Title,
		TemplateName: summaryTemplate,
		TemplateData: SummaryData{Plan: plan, Preview: preview},
	}
	export := renderICal(plan, preview, svc.nowFunc())
	if err := msg.Attach(bytes.NewReader(export.Data), export.Filename, export.ContentType); err != nil {
		return errors.Wrap(err, "attaching iCal export")
	}

	svc.mailSvc.SendMessages(msg)
	return nil
}
