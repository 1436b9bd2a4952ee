package service

import (
	"errors"
	"fmt"
	"time"

	"rental/billing/config/log"
	"rental/billing/config/toml"
	"rental/billing/entity"
	"rental/billing/src/apperror"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sender delivers one templated message to one recipient.
type Sender interface {
	Send(toEmail, toName, subject, plainBody, htmlBody string) error
}

type SendgridSender struct{}

func (s *SendgridSender) Send(toEmail, toName, subject, plainBody, htmlBody string) error {
	cfg := toml.GetConfig().Notifier
	if cfg.SendgridApiKey == "" {
		return errors.New("sendgrid api key not configured")
	}
	from := mail.NewEmail(cfg.FromName, cfg.FromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainBody, htmlBody)
	client := sendgrid.NewSendClient(cfg.SendgridApiKey)
	resp, err := client.Send(message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid rejected message: status %d - %s", resp.StatusCode, resp.Body)
	}
	return nil
}

type NotifierServiceImpl struct {
	Sender Sender
}

// DispatchInvoice emails the invoice to the tenant on the contract. Delivery
// is best-effort: the outcome lands on the invoice's email tracking fields
// and a failure never propagates into the generation result.
func (n *NotifierServiceImpl) DispatchInvoice(db *gorm.DB, invoiceId string) error {
	invoice, err := IInvoiceService.Get(db, invoiceId)
	if err != nil {
		return err
	}

	var contract entity.ContractEntity
	if err := db.First(&contract, "id = ?", invoice.ContractId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return n.recordFailure(db, invoice, apperror.NewNotFound("contract", invoice.ContractId))
		}
		return err
	}
	if contract.Email == "" {
		return n.recordFailure(db, invoice, errors.New("contract has no billing email"))
	}

	subject := fmt.Sprintf("Invoice %s for %02d/%d", invoice.InvoiceNo, invoice.Month, invoice.Year)
	plain, html := renderInvoiceMail(invoice)
	if err := n.Sender.Send(contract.Email, contract.TenantName, subject, plain, html); err != nil {
		return n.recordFailure(db, invoice, err)
	}

	now := time.Now().UTC()
	return db.Model(&invoice).Updates(map[string]interface{}{
		"email_status":     entity.EmailStatusSent,
		"email_sent_at":    now,
		"email_last_error": "",
	}).Error
}

func (n *NotifierServiceImpl) recordFailure(db *gorm.DB, invoice entity.InvoiceEntity, cause error) error {
	log.Logger.Warn("invoice email dispatch failed",
		zap.String("invoice_id", invoice.Id), zap.Error(cause))
	if err := db.Model(&invoice).Updates(map[string]interface{}{
		"email_status":     entity.EmailStatusFailed,
		"email_last_error": cause.Error(),
	}).Error; err != nil {
		return err
	}
	return cause
}

func renderInvoiceMail(invoice entity.InvoiceEntity) (string, string) {
	plain := fmt.Sprintf("Invoice %s\nPeriod: %02d/%d\nTotal: %.0f %s\nDue: %s\n",
		invoice.InvoiceNo, invoice.Month, invoice.Year,
		invoice.TotalAmount, invoice.Currency, invoice.DueDate.Format("2006-01-02"))
	html := fmt.Sprintf(
		"<p>Invoice <b>%s</b></p><p>Period: %02d/%d</p><p>Total: <b>%.0f %s</b></p><p>Due: %s</p>",
		invoice.InvoiceNo, invoice.Month, invoice.Year,
		invoice.TotalAmount, invoice.Currency, invoice.DueDate.Format("2006-01-02"))
	return plain, html
}
