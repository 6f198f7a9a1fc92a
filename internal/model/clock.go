package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ClockTime is a time of day without a date, stored in a SQL time column.
type ClockTime struct {
	Hour   int
	Minute int
	Second int
}

const clockLayout = "15:04:05"

func NewClockTime(hour, minute int) ClockTime {
	return ClockTime{Hour: hour, Minute: minute}
}

// ParseClockTime accepts "15:04:05" or "15:04".
func ParseClockTime(s string) (ClockTime, error) {
	for _, layout := range []string{clockLayout, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return ClockTime{}, fmt.Errorf("invalid time of day %q", s)
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

func (c ClockTime) Before(o ClockTime) bool {
	return c.seconds() < o.seconds()
}

func (c ClockTime) seconds() int {
	return c.Hour*3600 + c.Minute*60 + c.Second
}

func (c *ClockTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*c = ClockTime{}
		return nil
	case time.Time:
		*c = ClockTime{Hour: v.Hour(), Minute: v.Minute(), Second: v.Second()}
		return nil
	case []byte:
		return c.scanString(string(v))
	case string:
		return c.scanString(v)
	}
	return fmt.Errorf("cannot scan %T into ClockTime", value)
}

func (c *ClockTime) scanString(s string) error {
	// postgres may append fractional seconds
	if len(s) > len(clockLayout) {
		s = s[:len(clockLayout)]
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c ClockTime) Value() (driver.Value, error) {
	return c.String(), nil
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
