package service

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"rental/billing/config/toml"
	"rental/billing/entity"
	"rental/billing/src/apperror"
	"rental/billing/src/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureBase(t *testing.T) {
	p := GatewayCallback{
		PartnerCode: "RENTALPAY",
		AccessKey:   "ak",
		RequestId:   "req-1",
		Amount:      3325000,
		OrderId:     "order-1",
		OrderInfo:   "Invoice 03/2025",
		RequestType: "captureWallet",
		IpnUrl:      "https://billing.example.com/ipn",
		RedirectUrl: "https://billing.example.com/done",
		ExtraData:   "eyJpbnZvaWNlSWQiOiJhYmMifQ==",
	}
	expected := "accessKey=ak&amount=3325000&extraData=eyJpbnZvaWNlSWQiOiJhYmMifQ==" +
		"&ipnUrl=https://billing.example.com/ipn&orderId=order-1&orderInfo=Invoice 03/2025" +
		"&partnerCode=RENTALPAY&redirectUrl=https://billing.example.com/done" +
		"&requestId=req-1&requestType=captureWallet"
	assert.Equal(t, expected, SignatureBase(p))
}

func TestSignAndVerify(t *testing.T) {
	p := GatewayCallback{AccessKey: "ak", Amount: 100, OrderId: "o1", RequestId: "r1"}
	p.Signature = Sign(p, "secret")
	require.NoError(t, VerifySignature(p, "secret"))

	tampered := p
	tampered.Amount = 999
	var sigErr *apperror.SignatureError
	require.ErrorAs(t, VerifySignature(tampered, "secret"), &sigErr)

	wrongKey := p
	require.ErrorAs(t, VerifySignature(wrongKey, "other-secret"), &sigErr)
}

// gatewayPayload builds a signed callback body for the given invoice.
func gatewayPayload(t *testing.T, invoiceId, transId string, amount float64, resultCode int) []byte {
	t.Helper()
	extra, err := json.Marshal(extraData{InvoiceId: invoiceId})
	require.NoError(t, err)
	p := GatewayCallback{
		PartnerCode: "RENTALPAY",
		AccessKey:   "ak",
		RequestId:   tools.NewUuid(),
		Amount:      amount,
		OrderId:     "order-" + transId,
		OrderInfo:   "Rental invoice",
		TransId:     transId,
		ResultCode:  resultCode,
		RequestType: "captureWallet",
		ExtraData:   base64.StdEncoding.EncodeToString(extra),
	}
	p.Signature = Sign(p, toml.GetConfig().Gateway.SecretKey)
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return raw
}

func TestGatewayCallbackAppliesPayment(t *testing.T) {
	db := newTestDB(t)
	f := seedRental(t, db)
	useFakeCache(t)
	invoice := makeInvoice(t, db, f, f.Room.Id, 3, entity.InvoiceStatusSent, time.Now().UTC().AddDate(0, 0, 10))

	logEntry, err := IPaymentService.HandleGatewayCallback(db, gatewayPayload(t, invoice.Id, "txn-1", invoice.TotalAmount, 0))
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentLogStatusApplied, logEntry.Status)
	require.NotNil(t, logEntry.InvoiceId)
	assert.Equal(t, invoice.Id, *logEntry.InvoiceId)

	paid, err := IInvoiceService.Get(db, invoice.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaid, paid.Status)
	assert.Equal(t, invoice.TotalAmount, paid.PaidAmount)
	assert.Equal(t, "gateway", paid.PaymentMethod)
	assert.Equal(t, "txn-1", paid.PaymentRef)
}

func TestGatewayCallbackTamperedSignature(t *testing.T) {
	db := newTestDB(t)
	f := seedRental(t, db)
	useFakeCache(t)
	invoice := makeInvoice(t, db, f, f.Room.Id, 3, entity.InvoiceStatusSent, time.Now().UTC().AddDate(0, 0, 10))

	raw := gatewayPayload(t, invoice.Id, "txn-2", invoice.TotalAmount, 0)
	var p GatewayCallback
	require.NoError(t, json.Unmarshal(raw, &p))
	p.Amount += 1 // tamper after signing
	tampered, err := json.Marshal(p)
	require.NoError(t, err)

	_, err = IPaymentService.HandleGatewayCallback(db, tampered)
	var sigErr *apperror.SignatureError
	require.ErrorAs(t, err, &sigErr)

	// nothing recorded, nothing applied
	var logs int64
	require.NoError(t, db.Model(&entity.PaymentLogEntity{}).Count(&logs).Error)
	assert.EqualValues(t, 0, logs)

	reloaded, err := IInvoiceService.Get(db, invoice.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusSent, reloaded.Status)
}

func TestGatewayCallbackDuplicateTransId(t *testing.T) {
	db := newTestDB(t)
	f := seedRental(t, db)
	useFakeCache(t)
	invoice := makeInvoice(t, db, f, f.Room.Id, 3, entity.InvoiceStatusSent, time.Now().UTC().AddDate(0, 0, 10))

	raw := gatewayPayload(t, invoice.Id, "txn-3", invoice.TotalAmount, 0)
	first, err := IPaymentService.HandleGatewayCallback(db, raw)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentLogStatusApplied, first.Status)

	second, err := IPaymentService.HandleGatewayCallback(db, raw)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentLogStatusDuplicate, second.Status)

	var logs int64
	require.NoError(t, db.Model(&entity.PaymentLogEntity{}).Count(&logs).Error)
	assert.EqualValues(t, 2, logs) // every verified delivery leaves an audit row
}

func TestGatewayCallbackAlreadyPaidInvoice(t *testing.T) {
	db := newTestDB(t)
	f := seedRental(t, db)
	useFakeCache(t)
	invoice := makeInvoice(t, db, f, f.Room.Id, 3, entity.InvoiceStatusPaid, time.Now().UTC().AddDate(0, 0, 10))

	// fresh trans id, so the cache does not catch it; the invoice status does
	logEntry, err := IPaymentService.HandleGatewayCallback(db, gatewayPayload(t, invoice.Id, "txn-4", invoice.TotalAmount, 0))
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentLogStatusDuplicate, logEntry.Status)
}

func TestGatewayCallbackFailureResultCode(t *testing.T) {
	db := newTestDB(t)
	f := seedRental(t, db)
	useFakeCache(t)
	invoice := makeInvoice(t, db, f, f.Room.Id, 3, entity.InvoiceStatusSent, time.Now().UTC().AddDate(0, 0, 10))

	logEntry, err := IPaymentService.HandleGatewayCallback(db, gatewayPayload(t, invoice.Id, "txn-5", invoice.TotalAmount, 1006))
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentLogStatusFailed, logEntry.Status)
	assert.Equal(t, 1006, logEntry.ResultCode)

	reloaded, err := IInvoiceService.Get(db, invoice.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusSent, reloaded.Status)
	assert.Zero(t, reloaded.PaidAmount)
}

func TestGatewayCallbackBadExtraData(t *testing.T) {
	db := newTestDB(t)
	f := seedRental(t, db)
	useFakeCache(t)
	makeInvoice(t, db, f, f.Room.Id, 3, entity.InvoiceStatusSent, time.Now().UTC().AddDate(0, 0, 10))

	p := GatewayCallback{
		PartnerCode: "RENTALPAY",
		AccessKey:   "ak",
		RequestId:   tools.NewUuid(),
		Amount:      100,
		OrderId:     "order-x",
		TransId:     "txn-6",
		RequestType: "captureWallet",
		ExtraData:   "not-base64!!",
	}
	p.Signature = Sign(p, toml.GetConfig().Gateway.SecretKey)
	raw, err := json.Marshal(p)
	require.NoError(t, err)

	logEntry, err := IPaymentService.HandleGatewayCallback(db, raw)
	var validation *apperror.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, entity.PaymentLogStatusRejected, logEntry.Status)

	var logs int64
	require.NoError(t, db.Model(&entity.PaymentLogEntity{}).Count(&logs).Error)
	assert.EqualValues(t, 1, logs)
}

func TestGatewayCallbackUnknownInvoice(t *testing.T) {
	db := newTestDB(t)
	seedRental(t, db)
	useFakeCache(t)

	logEntry, err := IPaymentService.HandleGatewayCallback(db, gatewayPayload(t, tools.NewUuid(), "txn-7", 100, 0))
	var notFound *apperror.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, entity.PaymentLogStatusRejected, logEntry.Status)
}

func TestGatewayCallbackMalformedJson(t *testing.T) {
	db := newTestDB(t)
	_, err := IPaymentService.HandleGatewayCallback(db, []byte("{not json"))
	var validation *apperror.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestApplyManualPayment(t *testing.T) {
	db := newTestDB(t)
	f := seedRental(t, db)
	invoice := makeInvoice(t, db, f, f.Room.Id, 3, entity.InvoiceStatusOverdue, time.Now().UTC().AddDate(0, 0, -5))

	paid, err := IPaymentService.ApplyManualPayment(db, managerOf(f), invoice.Id, MarkPaidInput{Method: "cash"})
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaid, paid.Status)
}
