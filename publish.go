package unifeed

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
)

var validate = validator.New()

// timePattern is stricter than a plain HH:MM parse: hours 00-23, zero
// padded, minutes 00-59.
var timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// PublishInput is the raw form data the shell collects for a new
// announcement. All text fields are trimmed before validation.
type PublishInput struct {
	Author        string `validate:"required"`
	Title         string `validate:"required"`
	Body          string `validate:"required"`
	TagsRaw       string
	Priority      string
	ScheduledDate string `validate:"required,datetime=2006-01-02"`
	ScheduledTime string
}

func (in PublishInput) trimmed() PublishInput {
	in.Author = strings.TrimSpace(in.Author)
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	in.TagsRaw = strings.TrimSpace(in.TagsRaw)
	in.Priority = strings.TrimSpace(in.Priority)
	in.ScheduledDate = strings.TrimSpace(in.ScheduledDate)
	in.ScheduledTime = strings.TrimSpace(in.ScheduledTime)
	return in
}

// scheduledAt combines the calendar date and the 24-hour wall time into a
// local timestamp. Time defaults to midnight when omitted.
func (in PublishInput) scheduledAt() (time.Time, error) {
	if in.ScheduledDate == "" {
		return time.Time{}, ErrMissingSchedule
	}

	wall := in.ScheduledTime
	if wall == "" {
		wall = "00:00"
	}
	if !timePattern.MatchString(wall) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, in.ScheduledTime)
	}

	at, err := time.ParseInLocation("2006-01-02 15:04", in.ScheduledDate+" "+wall, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return at, nil
}

// validateInput checks the trimmed input against the publish rules. On
// failure nothing has been built or persisted yet.
func validateInput(in PublishInput) error {
	if in.ScheduledDate == "" {
		return ErrMissingSchedule
	}
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.ScheduledTime != "" && !timePattern.MatchString(in.ScheduledTime) {
		return fmt.Errorf("%w: %q", ErrInvalidTime, in.ScheduledTime)
	}
	return nil
}

// buildPost constructs the immutable Post from validated input.
func buildPost(id int64, in PublishInput, at time.Time) *Post {
	priority := in.Priority
	if priority == "" {
		priority = DefaultPriority
	}

	return &Post{
		ID:       id,
		Author:   in.Author,
		Title:    in.Title,
		Body:     in.Body,
		Slug:     slug.Make(in.Title),
		Tags:     ParseTagInput(in.TagsRaw),
		Date:     at.Format(time.RFC3339),
		Priority: priority,
	}
}
