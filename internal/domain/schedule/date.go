package schedule

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// DateLayout is the calendar-date encoding used by the Posti API.
const DateLayout = "2006-01-02"

// ErrInvalidDateFormat is returned for tokens that do not decompose into a
// valid year/month/day.
var ErrInvalidDateFormat = fmt.Errorf("invalid delivery date format")

// DeliveryDate is a calendar date with no time component. The zero value is
// not a valid date; construct through ParseDeliveryDate or DateOf.
type DeliveryDate struct {
	t time.Time // midnight UTC
}

// ParseDeliveryDate parses a single raw API token into a DeliveryDate.
func ParseDeliveryDate(rawToken string) (DeliveryDate, error) {
	t, err := time.Parse(DateLayout, rawToken)
	if err != nil {
		return DeliveryDate{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, rawToken)
	}
	return DeliveryDate{t: t}, nil
}

// DateOf truncates an instant to its calendar date.
func DateOf(t time.Time) DeliveryDate {
	y, m, d := t.Date()
	return DeliveryDate{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d DeliveryDate) String() string {
	return d.t.Format(DateLayout)
}

func (d DeliveryDate) Before(other DeliveryDate) bool {
	return d.t.Before(other.t)
}

func (d DeliveryDate) After(other DeliveryDate) bool {
	return d.t.After(other.t)
}

func (d DeliveryDate) Equal(other DeliveryDate) bool {
	return d.t.Equal(other.t)
}

// DaysUntil returns the whole-day count from `from` to d. Negative when d is
// in the past relative to `from`.
func (d DeliveryDate) DaysUntil(from DeliveryDate) int {
	return int(d.t.Sub(from.t) / (24 * time.Hour))
}

// ParseDeliveryDates parses a batch of raw tokens. A malformed token is
// dropped and logged; it never fails the whole batch, so one bad entry does
// not discard otherwise-valid dates. Input order is preserved.
func ParseDeliveryDates(rawTokens []string, log *logrus.Entry) []DeliveryDate {
	dates := make([]DeliveryDate, 0, len(rawTokens))
	for _, tok := range rawTokens {
		d, err := ParseDeliveryDate(tok)
		if err != nil {
			if log != nil {
				log.WithField("token", tok).Warn("Dropping malformed delivery date from API response")
			}
			continue
		}
		dates = append(dates, d)
	}
	return dates
}
