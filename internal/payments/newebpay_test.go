package payments

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stride-coaching/backend/config"
)

func testGateway() *Gateway {
	g := NewGateway(config.NewebPayConfig{
		MerchantID: "MS1234567",
		HashKey:    "abcdefghijklmnopqrstuvwxyz012345",
		HashIV:     "0123456789abcdef",
		Version:    "2.0",
		GatewayURL: "https://ccore.newebpay.com/MPG/mpg_gateway",
		NotifyURL:  "https://api.example.com/payments/newebpay/notify",
		ReturnURL:  "https://api.example.com/payments/newebpay/return",
	})
	g.now = func() time.Time { return time.Unix(1760870400, 0) }
	return g
}

func TestCheckoutRoundTrip(t *testing.T) {
	g := testGateway()
	data, err := g.Checkout(Order{MerchantOrderNo: "R1760870400ab12", Amount: 12000, ItemDesc: "Course double plan", Email: "mei@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "MS1234567", data.MerchantID)
	assert.Equal(t, "2.0", data.Version)
	assert.Equal(t, "https://ccore.newebpay.com/MPG/mpg_gateway", data.Gateway)
	assert.Len(t, data.TradeSha, 64)
	assert.Equal(t, g.sign(data.TradeInfo), data.TradeSha)

	plain, err := g.decrypt(data.TradeInfo)
	require.NoError(t, err)
	params, err := url.ParseQuery(string(plain))
	require.NoError(t, err)
	assert.Equal(t, "12000", params.Get("Amt"))
	assert.Equal(t, "R1760870400ab12", params.Get("MerchantOrderNo"))
	assert.Equal(t, "1760870400", params.Get("TimeStamp"))
	assert.Equal(t, "JSON", params.Get("RespondType"))
	assert.Equal(t, "https://api.example.com/payments/newebpay/notify", params.Get("NotifyURL"))
	assert.Empty(t, params.Get("ClientBackURL"))
}

func TestParseNotify(t *testing.T) {
	g := testGateway()
	body, err := json.Marshal(Notification{
		Status:  GatewaySuccess,
		Message: "paid",
		Result:  TradeResult{MerchantID: "MS1234567", Amt: 7000, TradeNo: "T1", MerchantOrderNo: "R1", PaymentType: "CREDIT"},
	})
	require.NoError(t, err)
	info, err := g.encrypt(string(body))
	require.NoError(t, err)

	n, err := g.ParseNotify(info, g.sign(info))
	require.NoError(t, err)
	assert.True(t, n.Succeeded())
	assert.Equal(t, 7000, n.Result.Amt)
	assert.Equal(t, "R1", n.Result.MerchantOrderNo)

	_, err = g.ParseNotify(info, "DEADBEEF")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = g.ParseNotify("zz", g.sign("zz"))
	assert.ErrorIs(t, err, ErrMalformedTradeInfo)
}

func TestPKCS7(t *testing.T) {
	padded := pkcs7Pad([]byte("abc"), 16)
	assert.Len(t, padded, 16)
	out, ok := pkcs7Unpad(padded, 16)
	assert.True(t, ok)
	assert.Equal(t, "abc", string(out))

	full := pkcs7Pad(make([]byte, 16), 16)
	assert.Len(t, full, 32)

	_, ok = pkcs7Unpad([]byte{1, 2, 3}, 16)
	assert.False(t, ok)
	bad := make([]byte, 16)
	bad[15] = 17
	_, ok = pkcs7Unpad(bad, 16)
	assert.False(t, ok)
}
