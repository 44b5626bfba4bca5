package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/aretw0/intake/pkg/domain"
)

var (
	postalPattern   = regexp.MustCompile(`^[1-9]\d{5}$`)
	phonePattern    = regexp.MustCompile(`^[6-9]\d{9}$`)
	nationalPattern = regexp.MustCompile(`^[2-9]\d{11}$`)
	datePattern     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	otpPattern      = regexp.MustCompile(`^\d{6}$`)
	accountPattern  = regexp.MustCompile(`^\d{9,18}$`)
	casePattern     = regexp.MustCompile(`^CC\d{16}$`)
)

// DateLayout is the user-facing date format.
const DateLayout = "02/01/2006"

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// compact drops the spaces and dashes users type between digit groups.
// Anything else is kept so the pattern rejects it.
func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// PostalCode accepts six digits with a non-zero leading digit.
func PostalCode(in string) (string, error) {
	pin := compact(in)
	if !postalPattern.MatchString(pin) {
		return "", domain.Invalid("postalCode", "Please enter a valid 6-digit pin code.")
	}
	return pin, nil
}

// Phone accepts a 10-digit Indian mobile number.
func Phone(in string) (string, error) {
	p := compact(in)
	if !phonePattern.MatchString(p) {
		return "", domain.Invalid("phone", "Please enter a valid 10-digit Indian phone number.")
	}
	return p, nil
}

// NationalID accepts a 12-digit identity number whose first digit is 2-9.
func NationalID(in string) (string, error) {
	n := compact(in)
	if !nationalPattern.MatchString(n) {
		return "", domain.Invalid("nationalId", "Please enter a valid 12-digit Aadhar number.")
	}
	return n, nil
}

// Date parses DD/MM/YYYY, rejecting impossible calendar days and dates
// after now. The result is normalized to two-digit day and month.
func Date(in string, now time.Time) (string, error) {
	m := datePattern.FindStringSubmatch(strings.TrimSpace(in))
	if m == nil {
		return "", domain.Invalid("dateOfBirth", "Please enter date in DD/MM/YYYY format.")
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return "", domain.Invalid("dateOfBirth", "Please enter a valid date.")
	}
	if t.After(now) {
		return "", domain.Invalid("dateOfBirth", "The date cannot be in the future.")
	}
	return t.Format(DateLayout), nil
}

// Email checks the address shape and lower-cases it.
func Email(in string) (string, error) {
	e := strings.TrimSpace(in)
	if !emailPattern.MatchString(e) {
		return "", domain.Invalid("email", "Please enter a valid email address.")
	}
	return strings.ToLower(e), nil
}

// OTPCode accepts a six digit code.
func OTPCode(in string) (string, error) {
	c := strings.TrimSpace(in)
	if !otpPattern.MatchString(c) {
		return "", domain.Invalid("emailOtp", "Please enter the 6-digit code sent to your email.")
	}
	return c, nil
}

// MinLength accepts trimmed text of at least n characters.
func MinLength(field string, n int, in string) (string, error) {
	s := strings.TrimSpace(in)
	if len([]rune(s)) < n {
		return "", domain.Invalid(field, fmt.Sprintf("Please enter at least %d characters.", n))
	}
	return s, nil
}

// Bounded accepts trimmed text between min and max characters.
func Bounded(field string, min, max int, in string) (string, error) {
	s, err := MinLength(field, min, in)
	if err != nil {
		return "", err
	}
	if len([]rune(s)) > max {
		return "", domain.Invalid(field, fmt.Sprintf("Please keep it under %d characters.", max))
	}
	return s, nil
}

// Name accepts letters, spaces, dots and apostrophes, at least two letters.
func Name(field, in string) (string, error) {
	s := strings.Join(strings.Fields(in), " ")
	letters := 0
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r):
			letters++
		case r == ' ' || r == '.' || r == '\'':
		default:
			return "", domain.Invalid(field, "Names may only contain letters and spaces.")
		}
	}
	if letters < 2 {
		return "", domain.Invalid(field, "Name must be at least 2 characters long.")
	}
	return s, nil
}

// Choice accepts one of the option IDs, case-insensitively.
func Choice(field, in string, options ...string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(in))
	if i := slices.IndexFunc(options, func(o string) bool { return strings.ToLower(o) == v }); i >= 0 {
		return options[i], nil
	}
	return "", domain.Invalid(field, "Please choose one of the options.")
}

// Number accepts an integer within [min, max].
func Number(field, in string, min, max int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(in))
	if err != nil || n < min || n > max {
		return 0, domain.Invalid(field, fmt.Sprintf("Please reply with a number from %d to %d.", min, max))
	}
	return n, nil
}

// URL accepts an absolute http(s) URL with a host.
func URL(field, in string) (string, error) {
	s := strings.TrimSpace(in)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || !strings.Contains(u.Host, ".") {
		return "", domain.Invalid(field, "Please send the full link, starting with https://")
	}
	return s, nil
}

// AccountNumber accepts 9 to 18 digits, ignoring spaces and dashes.
func AccountNumber(in string) (string, error) {
	s := compact(in)
	if !accountPattern.MatchString(s) {
		return "", domain.Invalid("accountNumber", "Please enter a valid account number (9-18 digits).")
	}
	return s, nil
}

// FreezeQuery accepts an account, phone or identity number. All three are
// digit strings within the account number bounds.
func FreezeQuery(in string) (string, error) {
	s, err := AccountNumber(in)
	if err != nil {
		return "", domain.Invalid("query", "Please enter your account number, registered phone number or Aadhar number.")
	}
	return s, nil
}

// CaseID accepts identifiers issued by NewCaseID, case-insensitively.
func CaseID(in string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(in))
	if !casePattern.MatchString(s) {
		return "", domain.Invalid("caseId", "Please enter a valid case ID, e.g. CC1712345678901234.")
	}
	return s, nil
}

// PhoneFromUserKey derives the 10-digit phone from a channel identity such
// as "+919876543210". It returns "" when the key holds no valid number.
func PhoneFromUserKey(key string) string {
	d := digitsOnly(key)
	if len(d) > 10 {
		d = d[len(d)-10:]
	}
	if !phonePattern.MatchString(d) {
		return ""
	}
	return d
}

// maxImageBytes bounds evidence uploads.
const maxImageBytes = 10 << 20

var imageTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"}

// Image checks an evidence attachment's type and size.
func Image(field string, m *domain.Media) error {
	if m == nil || len(m.Data) == 0 {
		return domain.Invalid(field, "Please upload a photo.")
	}
	if !slices.Contains(imageTypes, strings.ToLower(m.MIMEType)) {
		return domain.Invalid(field, "Unsupported file type. Please send a JPEG, PNG, GIF or WEBP image.")
	}
	if len(m.Data) > maxImageBytes {
		return domain.Invalid(field, "File too large. Maximum size is 10MB.")
	}
	return nil
}
