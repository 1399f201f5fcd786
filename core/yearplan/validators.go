package yearplan

import (
	"strconv"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/classroom-curator/planner/core"
	"github.com/classroom-curator/planner/core/calendar"
)

var (
	isoDateTag  = "isodate"
	isoDateText = "{0} must be a date in YYYY-MM-DD format"

	weekdayTag  = "weekday"
	weekdayText = "{0} must be a weekday name: Mon, Tue, Wed, Thu, Fri, Sat or Sun"

	hexColorTag  = "hexcolor"
	hexColorText = "{0} must be a hex color, eg: #3174ad"

	windowSpanTag  = "windowspan"
	windowSpanText = "{0} must fall within " + strconv.Itoa(MaxWindowYears) + " calendar years of start_date"
)

func windowSpanMessage(field string) string {
	return strings.Replace(windowSpanText, "{0}", field, 1)
}

// InitValidators registers the year plan validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(isoDateTag, isoDateValidation)
	core.RegisterCustomTranslation(validate, translator, isoDateTag, isoDateText)

	_ = validate.RegisterValidation(weekdayTag, weekdayValidation)
	core.RegisterCustomTranslation(validate, translator, weekdayTag, weekdayText)

	core.RegisterCustomTranslation(validate, translator, hexColorTag, hexColorText, true)

	validate.RegisterStructValidation(calculateRequestValidation, CalculateRequest{})
	core.RegisterCustomTranslation(validate, translator, windowSpanTag, windowSpanText)
}

// Custom Validators

func isoDateValidation(fl validator.FieldLevel) bool {
	_, err := calendar.ParseDate(fl.Field().String())
	return err == nil
}

// calculateRequestValidation bounds the number of calendar years a request covers.
func calculateRequestValidation(sl validator.StructLevel) {
	req := sl.Current().Interface().(CalculateRequest)
	start, err := calendar.ParseDate(req.StartDate)
	if err != nil {
		return
	}
	end, err := calendar.ParseDate(req.EndDate)
	if err != nil {
		return
	}
	if spanTooLong(start, end) {
		sl.ReportError(req.EndDate, "end_date", "EndDate", windowSpanTag, "")
	}
}

func weekdayValidation(fl validator.FieldLevel) bool {
	_, err := calendar.ParseWeekday(fl.Field().String())
	return err == nil
}
