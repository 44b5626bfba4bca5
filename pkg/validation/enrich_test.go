package validation_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupFunc func(ctx context.Context, pin string) (domain.Address, error)

func (f lookupFunc) Resolve(ctx context.Context, pin string) (domain.Address, error) { return f(ctx, pin) }

var bhubaneswar = domain.Address{
	Area:          "Bhubaneswar G.P.O.",
	District:      "Khordha",
	SubRegion:     "Odisha",
	PoliceStation: "Bhubaneswar Police Station",
}

func TestAddressEnricher_751001(t *testing.T) {
	var calls atomic.Int32
	e := validation.NewAddressEnricher(lookupFunc(func(_ context.Context, pin string) (domain.Address, error) {
		calls.Add(1)
		if pin == "751001" {
			return bhubaneswar, nil
		}
		return domain.Address{}, domain.ErrNotFound
	}))

	pin, addr, err := e.Enrich(context.Background(), "751001")
	require.NoError(t, err)
	assert.Equal(t, "751001", pin)
	assert.Equal(t, "Khordha", addr.District)
	assert.Equal(t, "Bhubaneswar G.P.O.", validation.Fields(addr)["area"])

	_, again, err := e.Enrich(context.Background(), "751001")
	require.NoError(t, err)
	assert.Equal(t, addr, again, "resubmission enriches identically")
	assert.Equal(t, int32(1), calls.Load(), "cached after the first lookup")
}

func TestAddressEnricher_Failures(t *testing.T) {
	e := validation.NewAddressEnricher(lookupFunc(func(_ context.Context, pin string) (domain.Address, error) {
		if pin == "999999" {
			return domain.Address{}, domain.ErrNotFound
		}
		return domain.Address{}, errors.New("connection refused")
	}))
	ctx := context.Background()

	_, _, err := e.Enrich(ctx, "12345")
	assertInvalid(t, err, "postalCode")

	_, _, err = e.Enrich(ctx, "999999")
	assertInvalid(t, err, "postalCode")

	_, _, err = e.Enrich(ctx, "110001")
	assertInvalid(t, err, "postalCode")
}

func TestAddressEnricher_TimeoutAndCancel(t *testing.T) {
	block := lookupFunc(func(ctx context.Context, _ string) (domain.Address, error) {
		<-ctx.Done()
		return domain.Address{}, ctx.Err()
	})
	e := validation.NewAddressEnricher(block, validation.WithLookupTimeout(20*time.Millisecond))

	start := time.Now()
	_, _, err := e.Enrich(context.Background(), "751001")
	assertInvalid(t, err, "postalCode")
	assert.Less(t, time.Since(start), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = validation.NewAddressEnricher(block).Enrich(ctx, "560001")
	assertInvalid(t, err, "postalCode")
}

func TestAddressEnricher_SharesConcurrentLookups(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	e := validation.NewAddressEnricher(lookupFunc(func(_ context.Context, _ string) (domain.Address, error) {
		calls.Add(1)
		<-release
		return bhubaneswar, nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := e.Enrich(context.Background(), "751001")
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestOTP(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	otp, err := validation.IssueOTP("asha@example.org", now)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), otp.Code)
	assert.NotContains(t, otp.Digest, otp.Code)
	assert.Equal(t, now.Add(validation.OTPTTL), otp.ExpiresAt)

	assert.NoError(t, validation.VerifyOTP(otp.Code, "asha@example.org", otp.Digest, otp.ExpiresAt, now.Add(time.Minute)))

	wrong := "000000"
	if otp.Code == wrong {
		wrong = "111111"
	}
	assertInvalid(t, validation.VerifyOTP(wrong, "asha@example.org", otp.Digest, otp.ExpiresAt, now), "emailOtp")
	assertInvalid(t, validation.VerifyOTP(otp.Code, "other@example.org", otp.Digest, otp.ExpiresAt, now), "emailOtp")
	assertInvalid(t, validation.VerifyOTP(otp.Code, "asha@example.org", otp.Digest, otp.ExpiresAt, now.Add(11*time.Minute)), "emailOtp")
}

type storeFunc func(ctx context.Context, caseID string, key domain.EvidenceKey, blob []byte, mime string) (domain.StoredEvidence, error)

func (f storeFunc) Put(ctx context.Context, caseID string, key domain.EvidenceKey, blob []byte, mime string) (domain.StoredEvidence, error) {
	return f(ctx, caseID, key, blob, mime)
}

func TestUploader(t *testing.T) {
	ok := validation.NewUploader(storeFunc(func(_ context.Context, caseID string, key domain.EvidenceKey, _ []byte, _ string) (domain.StoredEvidence, error) {
		return domain.StoredEvidence{URL: "https://files/" + caseID + "/" + string(key), PublicID: "p1"}, nil
	}), 0)
	img := &domain.Media{MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}

	got, err := ok.Upload(context.Background(), "CC1", domain.EvidenceIdentityDocument, img)
	require.NoError(t, err)
	assert.Equal(t, "https://files/CC1/identityDocument", got.URL)

	_, err = ok.Upload(context.Background(), "CC1", domain.EvidenceIdentityDocument, &domain.Media{MIMEType: "text/plain", Data: []byte("x")})
	assertInvalid(t, err, "identityDocument")

	failing := validation.NewUploader(storeFunc(func(context.Context, string, domain.EvidenceKey, []byte, string) (domain.StoredEvidence, error) {
		return domain.StoredEvidence{}, errors.New("bucket gone")
	}), time.Second)
	_, err = failing.Upload(context.Background(), "CC1", domain.EvidenceIdentityDocument, img)
	var ext *domain.ExternalLookupError
	require.True(t, errors.As(err, &ext))
	assert.Equal(t, "evidence store", ext.Collaborator)
}

func TestNewCaseID(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	id := validation.NewCaseID(now)
	got, err := validation.CaseID(id)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Contains(t, id, "1772359200000")
}
