package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"rental/billing/config/log"
	redisUtil "rental/billing/config/redis"
	"rental/billing/config/toml"
	"rental/billing/entity"
	"rental/billing/src/apperror"
	"rental/billing/src/tools"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SeenCache marks a key seen-once with expiry. Backed by redis in production
// and injectable for tests; the design deliberately avoids a process-global
// mutable cache.
type SeenCache interface {
	SeenOnce(key string, ttl time.Duration) (bool, error)
}

type redisSeenCache struct{}

func (redisSeenCache) SeenOnce(key string, ttl time.Duration) (bool, error) {
	client, err := redisUtil.GetRedisClient()
	if err != nil {
		return true, err
	}
	created, err := client.RSetNX(key, 1, ttl)
	if err != nil {
		return true, err
	}
	return !created, nil
}

type PaymentServiceImpl struct {
	Cache SeenCache
}

// GatewayCallback is the fixed JSON shape the payment gateway posts to the
// IPN endpoint. ExtraData is base64-encoded JSON carrying the invoice id.
type GatewayCallback struct {
	PartnerCode string  `json:"partnerCode"`
	AccessKey   string  `json:"accessKey"`
	RequestId   string  `json:"requestId"`
	Amount      float64 `json:"amount"`
	OrderId     string  `json:"orderId"`
	OrderInfo   string  `json:"orderInfo"`
	OrderType   string  `json:"orderType"`
	TransId     string  `json:"transId"`
	ResultCode  int     `json:"resultCode"`
	Message     string  `json:"message"`
	PayType     string  `json:"payType"`
	RequestType string  `json:"requestType"`
	IpnUrl      string  `json:"ipnUrl"`
	RedirectUrl string  `json:"redirectUrl"`
	ExtraData   string  `json:"extraData"`
	Signature   string  `json:"signature"`
}

type extraData struct {
	InvoiceId string `json:"invoiceId"`
}

// SignatureBase is the canonical ordered key=value concatenation the
// gateway signs. Field order is fixed by the gateway contract, not
// alphabetical by accident: accessKey, amount, extraData, ipnUrl, orderId,
// orderInfo, partnerCode, redirectUrl, requestId, requestType.
func SignatureBase(p GatewayCallback) string {
	return fmt.Sprintf(
		"accessKey=%s&amount=%s&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=%s",
		p.AccessKey,
		strconv.FormatFloat(p.Amount, 'f', -1, 64),
		p.ExtraData,
		p.IpnUrl,
		p.OrderId,
		p.OrderInfo,
		p.PartnerCode,
		p.RedirectUrl,
		p.RequestId,
		p.RequestType,
	)
}

// Sign computes the hex-encoded HMAC-SHA256 the gateway expects.
func Sign(p GatewayCallback, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(SignatureBase(p)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the callback signature and compares it
// case-sensitively in constant time.
func VerifySignature(p GatewayCallback, secret string) error {
	expected := Sign(p, secret)
	if !hmac.Equal([]byte(expected), []byte(p.Signature)) {
		return apperror.NewSignature("callback signature mismatch")
	}
	return nil
}

// ApplyManualPayment confirms a payment taken outside the gateway.
func (s *PaymentServiceImpl) ApplyManualPayment(db *gorm.DB, actor ActorContext, invoiceId string, in MarkPaidInput) (entity.InvoiceEntity, error) {
	return IInvoiceLifecycleService.MarkPaid(db, actor, invoiceId, in)
}

// HandleGatewayCallback verifies and applies an asynchronous gateway
// callback. A tampered signature rejects without touching any state. For a
// verified callback a payment log row is written regardless of the gateway's
// success/failure classification, and the payment is applied only when the
// invoice is not already paid, so duplicate deliveries are no-ops.
func (s *PaymentServiceImpl) HandleGatewayCallback(db *gorm.DB, rawPayload []byte) (entity.PaymentLogEntity, error) {
	var p GatewayCallback
	if err := json.Unmarshal(rawPayload, &p); err != nil {
		return entity.PaymentLogEntity{}, apperror.NewValidation("payload", "malformed callback JSON: "+err.Error())
	}

	cfg := toml.GetConfig().Gateway
	if err := VerifySignature(p, cfg.SecretKey); err != nil {
		log.Logger.Warn("gateway callback rejected",
			zap.String("order_id", p.OrderId), zap.String("trans_id", p.TransId), zap.Error(err))
		return entity.PaymentLogEntity{}, err
	}

	logEntry := entity.PaymentLogEntity{
		Id:            tools.NewUuid(),
		Gateway:       p.PartnerCode,
		Amount:        p.Amount,
		ResultCode:    p.ResultCode,
		ExternalTxnId: p.TransId,
		RawPayload:    json.RawMessage(rawPayload),
	}

	invoiceId, err := decodeExtraData(p.ExtraData)
	if err != nil {
		logEntry.Status = entity.PaymentLogStatusRejected
		s.writeLog(db, &logEntry)
		return logEntry, err
	}
	logEntry.InvoiceId = &invoiceId

	if s.Cache != nil && p.TransId != "" {
		seen, cacheErr := s.Cache.SeenOnce("gateway:txn:"+p.TransId, 48*time.Hour)
		if cacheErr != nil {
			log.Logger.Warn("callback dedup cache unavailable, relying on invoice status",
				zap.String("trans_id", p.TransId), zap.Error(cacheErr))
		} else if seen {
			logEntry.Status = entity.PaymentLogStatusDuplicate
			s.writeLog(db, &logEntry)
			return logEntry, nil
		}
	}

	invoice, err := IInvoiceService.Get(db, invoiceId)
	if err != nil {
		logEntry.Status = entity.PaymentLogStatusRejected
		s.writeLog(db, &logEntry)
		return logEntry, err
	}

	if p.ResultCode != 0 {
		// gateway reported failure, nothing to apply
		logEntry.Status = entity.PaymentLogStatusFailed
		s.writeLog(db, &logEntry)
		return logEntry, nil
	}

	if invoice.Status == entity.InvoiceStatusPaid {
		logEntry.Status = entity.PaymentLogStatusDuplicate
		s.writeLog(db, &logEntry)
		return logEntry, nil
	}

	amount := p.Amount
	_, err = IInvoiceLifecycleService.MarkPaid(db, SystemActor(), invoiceId, MarkPaidInput{
		Method:     "gateway",
		PaidAmount: &amount,
		PaymentRef: p.TransId,
	})
	if err != nil {
		logEntry.Status = entity.PaymentLogStatusRejected
		s.writeLog(db, &logEntry)
		return logEntry, err
	}

	logEntry.Status = entity.PaymentLogStatusApplied
	s.writeLog(db, &logEntry)
	return logEntry, nil
}

func (s *PaymentServiceImpl) writeLog(db *gorm.DB, logEntry *entity.PaymentLogEntity) {
	if err := db.Create(logEntry).Error; err != nil {
		log.Logger.Error("failed to persist payment log",
			zap.String("trans_id", logEntry.ExternalTxnId), zap.Error(err))
	}
}

func decodeExtraData(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", apperror.NewValidation("extraData", "not valid base64: "+err.Error())
	}
	var extra extraData
	if err := json.Unmarshal(raw, &extra); err != nil {
		return "", apperror.NewValidation("extraData", "not valid JSON: "+err.Error())
	}
	if extra.InvoiceId == "" {
		return "", apperror.NewValidation("extraData", "missing invoiceId")
	}
	return extra.InvoiceId, nil
}
