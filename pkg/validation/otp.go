package validation

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/aretw0/intake/pkg/domain"
)

// OTPTTL is how long an emailed code stays valid.
const OTPTTL = 10 * time.Minute

// OTP is an issued one-time password. Only Digest and ExpiresAt are kept in
// the session; Code goes to the mailer.
type OTP struct {
	Code      string
	Digest    string
	ExpiresAt time.Time
}

// IssueOTP generates a six digit code bound to email.
func IssueOTP(email string, now time.Time) (OTP, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return OTP{}, fmt.Errorf("generate otp: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())
	return OTP{Code: code, Digest: otpDigest(email, code), ExpiresAt: now.Add(OTPTTL)}, nil
}

// VerifyOTP checks a submitted code against the stored digest.
func VerifyOTP(input, email, digest string, expiresAt, now time.Time) error {
	code, err := OTPCode(input)
	if err != nil {
		return err
	}
	if digest == "" || now.After(expiresAt) {
		return domain.Invalid("emailOtp", "This code has expired. Tap 'Re-enter email' to get a new one.")
	}
	if !hmac.Equal([]byte(otpDigest(email, code)), []byte(digest)) {
		return domain.Invalid("emailOtp", "Incorrect code. Please check your email and try again.")
	}
	return nil
}

func otpDigest(email, code string) string {
	sum := sha256.Sum256([]byte(email + ":" + code))
	return hex.EncodeToString(sum[:])
}
