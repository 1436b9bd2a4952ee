package service

import (
	"time"

	"rental/billing/entity"
	"rental/billing/src/apperror"
	"rental/billing/src/tools"

	"gorm.io/gorm"
)

type InvoiceLifecycleServiceImpl struct{}

// legal status transitions; paid and cancelled are terminal, replaced is
// reserved for future correction flows and never produced here.
var invoiceTransitions = map[string][]string{
	entity.InvoiceStatusDraft:   {entity.InvoiceStatusSent, entity.InvoiceStatusPaid, entity.InvoiceStatusCancelled},
	entity.InvoiceStatusSent:    {entity.InvoiceStatusPaid, entity.InvoiceStatusOverdue, entity.InvoiceStatusCancelled},
	entity.InvoiceStatusOverdue: {entity.InvoiceStatusPaid, entity.InvoiceStatusCancelled},
}

func CanTransition(from, to string) bool {
	for _, allowed := range invoiceTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type MarkPaidInput struct {
	Method     string     `json:"method" binding:"required"`
	PaidAt     *time.Time `json:"paid_at"`
	PaidAmount *float64   `json:"paid_amount"`
	Note       string     `json:"note"`
	PaymentRef string     `json:"payment_ref"`
}

// MarkPaid settles an invoice from draft, sent, or overdue. Paid amount
// defaults to the invoice total and paid time to now.
func (s *InvoiceLifecycleServiceImpl) MarkPaid(db *gorm.DB, actor ActorContext, id string, in MarkPaidInput) (entity.InvoiceEntity, error) {
	invoice, err := IInvoiceService.Get(db, id)
	if err != nil {
		return entity.InvoiceEntity{}, err
	}
	if !actor.CanManage(invoice.BuildingId) {
		return entity.InvoiceEntity{}, apperror.NewState("actor has no authority over building " + invoice.BuildingId)
	}
	if !CanTransition(invoice.Status, entity.InvoiceStatusPaid) {
		return entity.InvoiceEntity{}, apperror.NewState(
			"invoice " + id + " cannot be paid from status " + invoice.Status)
	}

	paidAt := time.Now().UTC()
	if in.PaidAt != nil {
		paidAt = *in.PaidAt
	}
	paidAmount := invoice.TotalAmount
	if in.PaidAmount != nil {
		paidAmount = *in.PaidAmount
	}

	updates := map[string]interface{}{
		"status":         entity.InvoiceStatusPaid,
		"paid_at":        paidAt,
		"paid_amount":    paidAmount,
		"payment_method": in.Method,
	}
	if in.PaymentRef != "" {
		updates["payment_ref"] = in.PaymentRef
	}
	if in.Note != "" {
		updates["note"] = in.Note
	}
	if err := db.Model(&invoice).Updates(updates).Error; err != nil {
		return entity.InvoiceEntity{}, err
	}
	return IInvoiceService.Get(db, id)
}

type UpdateItemInput struct {
	Type      string  `json:"type" binding:"required"`
	Label     string  `json:"label" binding:"required"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Amount    float64 `json:"amount"`
}

type UpdateInvoiceInput struct {
	Note           *string            `json:"note"`
	InternalNote   *string            `json:"internal_note"`
	PaymentRef     *string            `json:"payment_ref"`
	DiscountAmount *float64           `json:"discount_amount"`
	LateFee        *float64           `json:"late_fee"`
	DueDate        *time.Time         `json:"due_date"`
	Status         *string            `json:"status"`
	Items          *[]UpdateItemInput `json:"items"`
}

// touchesLockedFields reports whether the patch reaches beyond the fields a
// paid invoice still accepts (note, internal note, payment ref).
func (in UpdateInvoiceInput) touchesLockedFields() bool {
	return in.DiscountAmount != nil || in.LateFee != nil || in.DueDate != nil ||
		in.Status != nil || in.Items != nil
}

// Update patches an invoice under the lifecycle lock. Once paid, only
// note/internalNote/paymentRef may change and any wider patch is rejected
// wholesale, nothing partially applied.
func (s *InvoiceLifecycleServiceImpl) Update(db *gorm.DB, actor ActorContext, id string, in UpdateInvoiceInput) (entity.InvoiceEntity, error) {
	invoice, err := IInvoiceService.Get(db, id)
	if err != nil {
		return entity.InvoiceEntity{}, err
	}
	if !actor.CanManage(invoice.BuildingId) {
		return entity.InvoiceEntity{}, apperror.NewState("actor has no authority over building " + invoice.BuildingId)
	}

	if invoice.Status == entity.InvoiceStatusPaid {
		if in.touchesLockedFields() {
			return entity.InvoiceEntity{}, apperror.NewState(
				"invoice " + id + " is paid, only note, internal note and payment ref may change")
		}
		updates := map[string]interface{}{}
		if in.Note != nil {
			updates["note"] = *in.Note
		}
		if in.InternalNote != nil {
			updates["internal_note"] = *in.InternalNote
		}
		if in.PaymentRef != nil {
			updates["payment_ref"] = *in.PaymentRef
		}
		if len(updates) > 0 {
			if err := db.Model(&invoice).Updates(updates).Error; err != nil {
				return entity.InvoiceEntity{}, err
			}
		}
		return IInvoiceService.Get(db, id)
	}

	if in.Status != nil && *in.Status != invoice.Status && !CanTransition(invoice.Status, *in.Status) {
		return entity.InvoiceEntity{}, apperror.NewState(
			"invoice " + id + " cannot move from " + invoice.Status + " to " + *in.Status)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if in.Items != nil {
			if len(*in.Items) == 0 {
				return apperror.NewValidation("items", "an invoice needs at least one line item")
			}
			if err := tx.Where("invoice_id = ?", invoice.Id).Delete(&entity.InvoiceItemEntity{}).Error; err != nil {
				return err
			}
			invoice.Items = invoice.Items[:0]
			for i, item := range *in.Items {
				invoice.Items = append(invoice.Items, entity.InvoiceItemEntity{
					Id:        tools.NewUuid(),
					InvoiceId: invoice.Id,
					Type:      item.Type,
					Label:     item.Label,
					Quantity:  item.Quantity,
					UnitPrice: item.UnitPrice,
					Amount:    item.Amount,
					SortOrder: i,
				})
			}
			if err := tx.Create(&invoice.Items).Error; err != nil {
				return err
			}
		}

		updates := map[string]interface{}{}
		if in.Note != nil {
			updates["note"] = *in.Note
		}
		if in.InternalNote != nil {
			updates["internal_note"] = *in.InternalNote
		}
		if in.PaymentRef != nil {
			updates["payment_ref"] = *in.PaymentRef
		}
		if in.DiscountAmount != nil {
			invoice.DiscountAmount = *in.DiscountAmount
			updates["discount_amount"] = *in.DiscountAmount
		}
		if in.LateFee != nil {
			invoice.LateFee = *in.LateFee
			updates["late_fee"] = *in.LateFee
		}
		if in.DueDate != nil {
			updates["due_date"] = *in.DueDate
		}
		if in.Status != nil && *in.Status != invoice.Status {
			updates["status"] = *in.Status
			if *in.Status == entity.InvoiceStatusCancelled {
				// release the uniqueness slot for the room/period
				updates["active_token"] = gorm.Expr("NULL")
			}
		}

		// totals follow the items after any mutation
		recomputeTotals(&invoice)
		updates["subtotal"] = invoice.Subtotal
		updates["total_amount"] = invoice.TotalAmount

		return tx.Model(&invoice).Updates(updates).Error
	})
	if err != nil {
		return entity.InvoiceEntity{}, err
	}
	return IInvoiceService.Get(db, id)
}

// Cancel is a convenience wrapper over Update for the cancel transition.
func (s *InvoiceLifecycleServiceImpl) Cancel(db *gorm.DB, actor ActorContext, id string) (entity.InvoiceEntity, error) {
	status := entity.InvoiceStatusCancelled
	return s.Update(db, actor, id, UpdateInvoiceInput{Status: &status})
}

// SweepOverdue transitions every sent invoice past its due date to overdue.
// Idempotent: already-overdue invoices are not selected, every other status
// is untouched.
func (s *InvoiceLifecycleServiceImpl) SweepOverdue(db *gorm.DB, now time.Time) (int64, error) {
	result := db.Model(&entity.InvoiceEntity{}).
		Where("status = ? AND due_date < ?", entity.InvoiceStatusSent, now).
		Update("status", entity.InvoiceStatusOverdue)
	return result.RowsAffected, result.Error
}
