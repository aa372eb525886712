// human readable and writable stdlib types
// which can be used inside config file
package model

import (
	"encoding/json"
	"errors"
	"time"
)

// Duration is a time.Duration written as "90s", "5m" or "24h" in a config file.
type Duration time.Duration

// Or returns the duration or dflt if d is nil or not positive.
func (d *Duration) Or(dflt time.Duration) time.Duration {
	if d == nil || *d <= 0 {
		return dflt
	}
	return time.Duration(*d)
}

func (d *Duration) UnmarshalText(text []byte) error {
	if d == nil {
		return errors.New("can't unmarshal to nil")
	}
	if len(text) == 0 {
		return errors.New("can't be empty")
	}
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
