package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeSendsBearerAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_1", r.Header.Get("Authorization"))

		var req InitializeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(12550), req.Amount)
		assert.Equal(t, []string{"mobile_money"}, req.Channels)
		assert.Equal(t, "mtn", req.MobileMoney.Provider)

		w.Write([]byte(`{"status":true,"message":"ok","data":{"authorization_url":"https://checkout.paystack.com/x","access_code":"x","reference":"AGR_1_ab"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	data, raw, err := c.Initialize(context.Background(), "sk_test_1", &InitializeRequest{
		Email:       "b@x.io",
		Amount:      12550,
		Reference:   "AGR_1_ab",
		Channels:    []string{"mobile_money"},
		MobileMoney: &MobileMoney{Phone: "0240000000", Provider: "mtn"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/x", data.AuthorizationURL)
	assert.Contains(t, string(raw), "access_code")
}

func TestVerifyRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
	}))
	defer srv.Close()

	_, _, err := NewClient(srv.URL, time.Second).Verify(context.Background(), "sk", "nope")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Transaction reference not found", apiErr.Message)
	assert.False(t, errors.Is(err, ErrGatewayUnavailable))
}

func TestVerifyServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, _, err := NewClient(srv.URL, time.Second).Verify(context.Background(), "sk", "ref")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestVerifyTimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, _, err := NewClient(srv.URL, 20*time.Millisecond).Verify(context.Background(), "sk", "ref")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestVerifySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/AGR_9_ff", r.URL.Path)
		w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"id":42,"status":"success","reference":"AGR_9_ff","amount":5000}}`))
	}))
	defer srv.Close()

	tx, _, err := NewClient(srv.URL, time.Second).Verify(context.Background(), "sk", "AGR_9_ff")
	require.NoError(t, err)
	assert.True(t, tx.Succeeded())
	assert.Equal(t, int64(42), tx.ID)
}

func TestSignature(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"AGR_1"}}`)
	sig := Sign("sk_live", body)

	assert.Len(t, sig, 128)
	assert.True(t, VerifySignature("sk_live", body, sig))
	assert.False(t, VerifySignature("sk_other", body, sig))
	assert.False(t, VerifySignature("sk_live", append(body, ' '), sig))
	assert.False(t, VerifySignature("sk_live", body, "zz"))
	assert.False(t, VerifySignature("", body, sig))
}
