package validator

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// SlotTimeLayout is the canonical slot time form, e.g. "09:30 AM".
const SlotTimeLayout = "03:04 PM"

var errSlotDate = errors.New("slot date must be D_M_YYYY")

// ParseSlotDate parses "15_7_2025". Components must not be zero padded so
// that every calendar day has exactly one spelling.
func ParseSlotDate(s string) (time.Time, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 3 {
		return time.Time{}, errSlotDate
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || strconv.Itoa(n) != p {
			return time.Time{}, errSlotDate
		}
		nums[i] = n
	}

	day, month, year := nums[0], nums[1], nums[2]
	if year < 1000 || year > 9999 || month > 12 {
		return time.Time{}, errSlotDate
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, errSlotDate
	}
	return t, nil
}

func IsSlotDate(s string) bool {
	_, err := ParseSlotDate(s)
	return err == nil
}

func IsSlotTime(s string) bool {
	t, err := time.Parse(SlotTimeLayout, s)
	return err == nil && t.Format(SlotTimeLayout) == s
}

// FormatSlotDate renders t in the slot date form.
func FormatSlotDate(t time.Time) string {
	return strconv.Itoa(t.Day()) + "_" + strconv.Itoa(int(t.Month())) + "_" + strconv.Itoa(t.Year())
}
