package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrYearInvalid  = errors.New("year must be 4 digits")
	ErrMonthInvalid = errors.New("month must be 2 valid digits (January is 01)")
	ErrDayInvalid   = errors.New("day must be 1-31")
)

// Date is a calendar date as submitted by a caller. It carries no timezone;
// the guestlist policy decides how it maps onto instants.
type Date struct {
	Y, M, D int
}

// DateInt is the integer storage key for a date, encoded YYYYMMDD.
// 2017-01-14 becomes 20170114.
type DateInt int

func (d Date) Validate() error {
	if d.Y <= 1970 || d.Y >= 3000 {
		return ErrYearInvalid
	}
	if d.M < 1 || d.M > 12 {
		return ErrMonthInvalid
	}
	if d.D < 1 || d.D > 31 {
		return ErrDayInvalid
	}
	return nil
}

func (d Date) Int() DateInt {
	return DateInt(d.Y*10000 + d.M*100 + d.D)
}

// UTC returns midnight UTC at the start of the date.
func (d Date) UTC() time.Time {
	return time.Date(d.Y, time.Month(d.M), d.D, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d%02d%02d", d.Y, d.M, d.D)
}

func (di DateInt) Date() Date {
	n := int(di)
	return Date{Y: n / 10000, M: n / 100 % 100, D: n % 100}
}
