package payments

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stride-coaching/backend/config"
)

var (
	// ErrInvalidSignature is returned when TradeSha does not match TradeInfo.
	ErrInvalidSignature = errors.New("invalid trade signature")
	// ErrMalformedTradeInfo is returned when TradeInfo cannot be decrypted or decoded.
	ErrMalformedTradeInfo = errors.New("malformed trade info")
)

// GatewaySuccess is the Status NewebPay reports for a completed payment.
const GatewaySuccess = "SUCCESS"

// PaymentData is the signed form the browser posts to the hosted checkout page.
// The site builds a hidden form from it: MerchantID, TradeInfo, TradeSha, Version.
type PaymentData struct {
	MerchantID string `json:"merchant_id"`
	TradeInfo  string `json:"trade_info"`
	TradeSha   string `json:"trade_sha"`
	Version    string `json:"version"`
	Gateway    string `json:"gateway"`
}

// Order is what one checkout charges.
type Order struct {
	MerchantOrderNo string
	Amount          int
	ItemDesc        string
	Email           string
}

// TradeResult is the Result object inside a decrypted notification.
type TradeResult struct {
	MerchantID      string `json:"MerchantID"`
	Amt             int    `json:"Amt"`
	TradeNo         string `json:"TradeNo"`
	MerchantOrderNo string `json:"MerchantOrderNo"`
	PaymentType     string `json:"PaymentType"`
	PayTime         string `json:"PayTime"`
}

// Notification is a decrypted gateway callback.
type Notification struct {
	Status  string      `json:"Status"`
	Message string      `json:"Message"`
	Result  TradeResult `json:"Result"`
}

// Succeeded reports whether the gateway charged the order.
func (n *Notification) Succeeded() bool { return n.Status == GatewaySuccess }

// Gateway signs checkout payloads and verifies callbacks for the NewebPay MPG API.
type Gateway struct {
	cfg config.NewebPayConfig
	now func() time.Time
}

// NewGateway creates a gateway client from config.
func NewGateway(cfg config.NewebPayConfig) *Gateway {
	return &Gateway{cfg: cfg, now: time.Now}
}

// Checkout builds the encrypted and signed payload for one order.
func (g *Gateway) Checkout(o Order) (*PaymentData, error) {
	params := url.Values{}
	params.Set("MerchantID", g.cfg.MerchantID)
	params.Set("RespondType", "JSON")
	params.Set("TimeStamp", strconv.FormatInt(g.now().Unix(), 10))
	params.Set("Version", g.cfg.Version)
	params.Set("MerchantOrderNo", o.MerchantOrderNo)
	params.Set("Amt", strconv.Itoa(o.Amount))
	params.Set("ItemDesc", o.ItemDesc)
	params.Set("Email", o.Email)
	params.Set("LoginType", "0")
	if g.cfg.NotifyURL != "" {
		params.Set("NotifyURL", g.cfg.NotifyURL)
	}
	if g.cfg.ReturnURL != "" {
		params.Set("ReturnURL", g.cfg.ReturnURL)
	}
	if g.cfg.ClientBackURL != "" {
		params.Set("ClientBackURL", g.cfg.ClientBackURL)
	}

	tradeInfo, err := g.encrypt(params.Encode())
	if err != nil {
		return nil, err
	}
	return &PaymentData{
		MerchantID: g.cfg.MerchantID,
		TradeInfo:  tradeInfo,
		TradeSha:   g.sign(tradeInfo),
		Version:    g.cfg.Version,
		Gateway:    g.cfg.GatewayURL,
	}, nil
}

// ParseNotify verifies and decrypts a callback's TradeInfo.
func (g *Gateway) ParseNotify(tradeInfo, tradeSha string) (*Notification, error) {
	want := g.sign(tradeInfo)
	if subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToUpper(strings.TrimSpace(tradeSha)))) != 1 {
		return nil, ErrInvalidSignature
	}
	plain, err := g.decrypt(tradeInfo)
	if err != nil {
		return nil, err
	}
	var n Notification
	if err := json.Unmarshal(plain, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTradeInfo, err)
	}
	return &n, nil
}

func (g *Gateway) sign(tradeInfo string) string {
	sum := sha256.Sum256([]byte("HashKey=" + g.cfg.HashKey + "&" + tradeInfo + "&HashIV=" + g.cfg.HashIV))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func (g *Gateway) encrypt(plain string) (string, error) {
	block, err := aes.NewCipher([]byte(g.cfg.HashKey))
	if err != nil {
		return "", fmt.Errorf("aes key: %w", err)
	}
	data := pkcs7Pad([]byte(plain), aes.BlockSize)
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, []byte(g.cfg.HashIV)).CryptBlocks(out, data)
	return hex.EncodeToString(out), nil
}

func (g *Gateway) decrypt(tradeInfo string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(tradeInfo))
	if err != nil || len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return nil, ErrMalformedTradeInfo
	}
	block, err := aes.NewCipher([]byte(g.cfg.HashKey))
	if err != nil {
		return nil, fmt.Errorf("aes key: %w", err)
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, []byte(g.cfg.HashIV)).CryptBlocks(out, raw)
	plain, ok := pkcs7Unpad(out, aes.BlockSize)
	if !ok {
		return nil, ErrMalformedTradeInfo
	}
	return plain, nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, bool) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, false
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}
