package payment

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"goeventcity/internal/config"
	"goeventcity/internal/domain"
	"goeventcity/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func holdRequest(method models.PaymentMethod) domain.AuthorizationRequest {
	return domain.AuthorizationRequest{
		Reference: "GEC-0A1B2C3D",
		Amount:    150,
		Currency:  "usd",
		Method:    method,
		Card: models.CardDetails{
			Number:     "4111111111111111",
			Expiry:     "12/25",
			CVV:        "123",
			BillingZip: "94105",
		},
	}
}

func TestSimulatedAuthorizer(t *testing.T) {
	logger := zerolog.New(io.Discard)

	t.Run("Approves", func(t *testing.T) {
		a := NewSimulatedAuthorizer(5*time.Millisecond, &logger)
		auth, err := a.Authorize(context.Background(), holdRequest(models.PaymentMethodNewCard))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(auth.ID, "sim_"))
		assert.Equal(t, 150.0, auth.Amount)
		assert.False(t, auth.Authorized.IsZero())
	})

	t.Run("UniqueIDs", func(t *testing.T) {
		a := NewSimulatedAuthorizer(0, &logger)
		first, err := a.Authorize(context.Background(), holdRequest(models.PaymentMethodSavedCard))
		require.NoError(t, err)
		second, err := a.Authorize(context.Background(), holdRequest(models.PaymentMethodSavedCard))
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("HonorsCancellation", func(t *testing.T) {
		a := NewSimulatedAuthorizer(time.Hour, &logger)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := a.Authorize(ctx, holdRequest(models.PaymentMethodNewCard))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("ApprovesZeroAmount", func(t *testing.T) {
		a := NewSimulatedAuthorizer(0, &logger)
		req := holdRequest(models.PaymentMethodNewCard)
		req.Amount = 0
		auth, err := a.Authorize(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 0.0, auth.Amount)
	})

	t.Run("RejectsNegativeAmount", func(t *testing.T) {
		a := NewSimulatedAuthorizer(0, &logger)
		req := holdRequest(models.PaymentMethodNewCard)
		req.Amount = -1
		_, err := a.Authorize(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestNewAuthorizer(t *testing.T) {
	logger := zerolog.New(io.Discard)

	a, err := NewAuthorizer(config.PaymentConfig{Provider: config.PaymentProviderSimulated}, &logger)
	require.NoError(t, err)
	assert.IsType(t, &SimulatedAuthorizer{}, a)

	a, err = NewAuthorizer(config.PaymentConfig{
		Provider: config.PaymentProviderStripe,
		Stripe:   config.StripeConfig{SecretKey: "sk_test_123"},
	}, &logger)
	require.NoError(t, err)
	assert.IsType(t, &StripeAuthorizer{}, a)

	_, err = NewAuthorizer(config.PaymentConfig{Provider: "barter"}, &logger)
	assert.Error(t, err)
}

func TestStripeAuthorizer(t *testing.T) {
	logger := zerolog.New(io.Discard)

	newServer := func(t *testing.T, intentStatus int, intentBody string) (*httptest.Server, *int32) {
		var methodCalls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/v1/payment_methods":
				atomic.AddInt32(&methodCalls, 1)
				_, _ = w.Write([]byte(`{"id":"pm_test_1","object":"payment_method","type":"card"}`))
			case "/v1/payment_intents":
				assert.NoError(t, r.ParseForm())
				assert.Equal(t, "15000", r.PostForm.Get("amount"))
				assert.Equal(t, "manual", r.PostForm.Get("capture_method"))
				assert.Equal(t, "GEC-0A1B2C3D", r.PostForm.Get("metadata[reference]"))
				w.WriteHeader(intentStatus)
				_, _ = w.Write([]byte(intentBody))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		t.Cleanup(srv.Close)
		return srv, &methodCalls
	}

	newAuthorizer := func(url string) *StripeAuthorizer {
		return NewStripeAuthorizer(config.StripeConfig{
			SecretKey:          "sk_test_123",
			SavedPaymentMethod: "pm_card_visa",
			APIURL:             url,
		}, "USD", &logger)
	}

	t.Run("AuthorizesHold", func(t *testing.T) {
		srv, calls := newServer(t, http.StatusOK,
			`{"id":"pi_test_1","object":"payment_intent","status":"requires_capture","amount":15000}`)

		auth, err := newAuthorizer(srv.URL).Authorize(context.Background(), holdRequest(models.PaymentMethodNewCard))
		require.NoError(t, err)
		assert.Equal(t, "pi_test_1", auth.ID)
		assert.Equal(t, 150.0, auth.Amount)
		assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	})

	t.Run("SavedCardSkipsPaymentMethod", func(t *testing.T) {
		srv, calls := newServer(t, http.StatusOK,
			`{"id":"pi_test_2","object":"payment_intent","status":"requires_capture","amount":15000}`)

		_, err := newAuthorizer(srv.URL).Authorize(context.Background(), holdRequest(models.PaymentMethodSavedCard))
		require.NoError(t, err)
		assert.Equal(t, int32(0), atomic.LoadInt32(calls))
	})

	t.Run("CardDeclined", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusPaymentRequired,
			`{"error":{"type":"card_error","code":"card_declined","decline_code":"insufficient_funds","message":"Your card was declined."}}`)

		_, err := newAuthorizer(srv.URL).Authorize(context.Background(), holdRequest(models.PaymentMethodNewCard))
		assert.ErrorIs(t, err, ErrPaymentDeclined)
	})

	t.Run("UnexpectedStatus", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK,
			`{"id":"pi_test_3","object":"payment_intent","status":"requires_action","amount":15000}`)

		_, err := newAuthorizer(srv.URL).Authorize(context.Background(), holdRequest(models.PaymentMethodNewCard))
		assert.ErrorIs(t, err, ErrPaymentDeclined)
	})

	t.Run("ZeroHoldSkipsGateway", func(t *testing.T) {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
		}))
		t.Cleanup(srv.Close)

		req := holdRequest(models.PaymentMethodNewCard)
		req.Amount = 0
		auth, err := newAuthorizer(srv.URL).Authorize(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 0.0, auth.Amount)
		assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
	})

	t.Run("GatewayError", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusBadRequest,
			`{"error":{"type":"invalid_request_error","message":"Bad request"}}`)

		_, err := newAuthorizer(srv.URL).Authorize(context.Background(), holdRequest(models.PaymentMethodNewCard))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrPaymentDeclined)
	})
}

func TestParseExpiry(t *testing.T) {
	m, y, err := parseExpiry("12/25")
	require.NoError(t, err)
	assert.Equal(t, int64(12), m)
	assert.Equal(t, int64(2025), y)

	_, _, err = parseExpiry("1225")
	assert.Error(t, err)
	_, _, err = parseExpiry("13/25")
	assert.Error(t, err)
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(15000), toMinorUnits(150))
	assert.Equal(t, int64(1999), toMinorUnits(19.99))
}
