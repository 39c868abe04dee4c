// Package expiry converts operator-entered MM / YY card fields into YYMM and
// answers whether a card has already lapsed. Nothing here rejects a payment:
// the merchant submits past-dated cards and lets the gateway decide.
package expiry

import (
	"fmt"
	"strconv"
	"time"
)

// FromCardFields joins a 2-digit month and a 2-digit year into YYMM.
func FromCardFields(month, year string) (string, error) {
	yymm := year + month
	if len(month) != 2 || len(year) != 2 {
		return "", fmt.Errorf("expiry must be MM and YY (got %q/%q)", month, year)
	}
	if err := ValidateYYMM(yymm); err != nil {
		return "", err
	}
	return yymm, nil
}

// ValidateYYMM checks YYMM is four digits with a month in 01..12.
func ValidateYYMM(yymm string) error {
	if len(yymm) != 4 {
		return fmt.Errorf("expiry must be YYMM (4 digits)")
	}
	for i := 0; i < 4; i++ {
		if yymm[i] < '0' || yymm[i] > '9' {
			return fmt.Errorf("expiry must be digits: YYMM")
		}
	}
	mm := int(yymm[2]-'0')*10 + int(yymm[3]-'0')
	if mm < 1 || mm > 12 {
		return fmt.Errorf("expiry month must be 01..12")
	}
	return nil
}

// ParseYYMMEndOfMonth parses YYMM into the last instant of that month in loc.
// A nil loc means UTC.
func ParseYYMMEndOfMonth(yymm string, loc *time.Location) (time.Time, error) {
	if err := ValidateYYMM(yymm); err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	yy, _ := strconv.Atoi(yymm[:2])
	mm, _ := strconv.Atoi(yymm[2:])
	firstNext := time.Date(2000+yy, time.Month(mm), 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
	return firstNext.Add(-time.Nanosecond), nil
}

// IsExpired reports whether at is strictly after the end of the YYMM month.
func IsExpired(yymm string, at time.Time, loc *time.Location) (bool, error) {
	end, err := ParseYYMMEndOfMonth(yymm, loc)
	if err != nil {
		return false, err
	}
	return at.In(end.Location()).After(end), nil
}
