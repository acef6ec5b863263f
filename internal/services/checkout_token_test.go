package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/spa542/brawnyoriginals/internal/models"
	"github.com/spa542/brawnyoriginals/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testCache(t *testing.T, values map[string]string) *secrets.Cache {
	t.Helper()
	return secrets.NewCache(secrets.FetcherFunc(func(ctx context.Context) (map[string]string, error) {
		return values, nil
	}), zap.NewNop())
}

func TestCheckoutTokenRoundTrip(t *testing.T) {
	cache := testCache(t, map[string]string{HMACSecretName: "signing-key"})
	now := time.Now()
	svc := NewCheckoutTokenService(cache, zap.NewNop(),
		WithTokenClock(func() time.Time { return now }))

	priceIDs := []string{"price_A", "price_B"}
	token, expiresAt, err := svc.Issue(context.Background(), priceIDs)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, now.Unix()+300, expiresAt)

	payload, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, priceIDs, payload.PriceIDs)
	assert.Equal(t, now.Unix(), payload.CreatedAt)
	assert.Equal(t, expiresAt, payload.ExpiresAt)
}

func TestCheckoutTokenExpiry(t *testing.T) {
	cache := testCache(t, map[string]string{HMACSecretName: "signing-key"})
	now := time.Now()
	svc := NewCheckoutTokenService(cache, zap.NewNop(),
		WithTokenLifetime(time.Second),
		WithTokenClock(func() time.Time { return now }))

	token, _, err := svc.Issue(context.Background(), []string{"price_A"})
	require.NoError(t, err)

	// Two seconds later the one-second token is dead.
	now = now.Add(2 * time.Second)
	_, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestCheckoutTokenExpiredBeatsBadSignature(t *testing.T) {
	cache := testCache(t, map[string]string{HMACSecretName: "signing-key"})
	now := time.Now()
	svc := NewCheckoutTokenService(cache, zap.NewNop(),
		WithTokenLifetime(time.Second),
		WithTokenClock(func() time.Time { return now }))

	token, _, err := svc.Issue(context.Background(), []string{"price_A"})
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = svc.Verify(context.Background(), flipSignatureBit(t, token, 0))
	assert.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestCheckoutTokenSignatureBitFlip(t *testing.T) {
	cache := testCache(t, map[string]string{HMACSecretName: "signing-key"})
	svc := NewCheckoutTokenService(cache, zap.NewNop())

	token, _, err := svc.Issue(context.Background(), []string{"price_A"})
	require.NoError(t, err)

	// Any single flipped bit in the signature must read as a signature
	// failure, never as a decode error.
	for _, bit := range []int{0, 7, 64, 128, 255} {
		_, err := svc.Verify(context.Background(), flipSignatureBit(t, token, bit))
		assert.ErrorIs(t, err, models.ErrInvalidSignature, "bit %d", bit)
	}
}

func TestCheckoutTokenWrongKey(t *testing.T) {
	issuer := NewCheckoutTokenService(testCache(t, map[string]string{HMACSecretName: "key-one"}), zap.NewNop())
	verifier := NewCheckoutTokenService(testCache(t, map[string]string{HMACSecretName: "key-two"}), zap.NewNop())

	token, _, err := issuer.Issue(context.Background(), []string{"price_A"})
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrInvalidSignature)
}

func TestCheckoutTokenMalformed(t *testing.T) {
	cache := testCache(t, map[string]string{HMACSecretName: "signing-key"})
	svc := NewCheckoutTokenService(cache, zap.NewNop())

	cases := map[string]string{
		"not base64":         "!!!not-base64!!!",
		"base64 of garbage":  base64.StdEncoding.EncodeToString([]byte("garbage")),
		"missing signature":  base64.StdEncoding.EncodeToString([]byte(`{"data":{"price_ids":["p"]}}`)),
		"missing data":       base64.StdEncoding.EncodeToString([]byte(`{"signature":"c2ln"}`)),
		"payload wrong type": base64.StdEncoding.EncodeToString([]byte(`{"data":[1,2],"signature":"c2ln"}`)),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Verify(context.Background(), token)
			assert.ErrorIs(t, err, models.ErrMalformedToken)
		})
	}
}

func TestCheckoutTokenSecretUnavailable(t *testing.T) {
	cache := secrets.NewCache(secrets.FetcherFunc(func(ctx context.Context) (map[string]string, error) {
		return nil, context.DeadlineExceeded
	}), zap.NewNop())
	svc := NewCheckoutTokenService(cache, zap.NewNop())

	_, _, err := svc.Issue(context.Background(), []string{"price_A"})
	assert.ErrorIs(t, err, models.ErrSecretUnavailable)
}

// flipSignatureBit decodes the token, flips one bit of the raw signature, and
// re-encodes everything so the result is still structurally valid.
func flipSignatureBit(t *testing.T, token string, bit int) string {
	t.Helper()

	blob, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)

	var st struct {
		Data      json.RawMessage `json:"data"`
		Signature string          `json:"signature"`
	}
	require.NoError(t, json.Unmarshal(blob, &st))

	sig, err := base64.StdEncoding.DecodeString(st.Signature)
	require.NoError(t, err)
	sig[bit/8%len(sig)] ^= 1 << (bit % 8)
	st.Signature = base64.StdEncoding.EncodeToString(sig)

	tampered, err := json.Marshal(&st)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(tampered)
}
