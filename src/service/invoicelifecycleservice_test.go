package service

import (
	"testing"
	"time"

	"rental/billing/entity"
	"rental/billing/src/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(entity.InvoiceStatusDraft, entity.InvoiceStatusSent))
	assert.True(t, CanTransition(entity.InvoiceStatusDraft, entity.InvoiceStatusPaid))
	assert.True(t, CanTransition(entity.InvoiceStatusSent, entity.InvoiceStatusOverdue))
	assert.True(t, CanTransition(entity.InvoiceStatusOverdue, entity.InvoiceStatusPaid))

	// paid and cancelled are terminal
	assert.False(t, CanTransition(entity.InvoiceStatusPaid, entity.InvoiceStatusSent))
	assert.False(t, CanTransition(entity.InvoiceStatusPaid, entity.InvoiceStatusCancelled))
	assert.False(t, CanTransition(entity.InvoiceStatusCancelled, entity.InvoiceStatusDraft))

	// no skipping backwards
	assert.False(t, CanTransition(entity.InvoiceStatusOverdue, entity.InvoiceStatusSent))
	assert.False(t, CanTransition(entity.InvoiceStatusSent, entity.InvoiceStatusDraft))
}

func TestMarkPaidFromPayableStatuses(t *testing.T) {
	db := newTestDB(t)
	f := seedRental(t, db)
	actor := managerOf(f)
	due := time.Now().UTC().AddDate(0, 0, 10)

	for i, from := range []string{
		entity.InvoiceStatusDraft,
		entity.InvoiceStatusSent,
		entity.InvoiceStatusOverdue,
	} {
		invoice := makeInvoice(t, db, f, f.Room.Id, i+1, from, due)

		paid, err := IInvoiceLifecycleService.MarkPaid(db, actor, invoice.Id, MarkPaidInput{Method: "cash"})
		require.NoError(t, err, "from %s", from)
		assert.Equal(t, entity.InvoiceStatusPaid, paid.Status)
		assert.Equal(t, invoice.TotalAmount, paid.PaidAmount)
		assert.Equal(t, "cash", paid.PaymentMethod)
		require.NotNil(t, paid.PaidAt)
	}
}

func TestMarkPaidRejectedFromTerminalStatuses(t *testing.T) {
	db := newTestDB(t)
	f := seedRental(t, db)
	actor := managerOf(f)
	due := time.Now().UTC().AddDate(0, 0, 10)

	for i, from := range []string{entity.InvoiceStatusPaid, entity.InvoiceStatusCancelled} {
		invoice := makeInvoice(t, db, f, f.Room.Id, i+1, from, due)

		_, err := IInvoiceLifecycleService.MarkPaid(db, actor, invoice.Id, MarkPaidInput{Method: "cash"})
		var state *apperror.StateError
		require.ErrorAs(t, err, &state, "from %s", from)

		var reloaded entity.InvoiceEntity
		require.NoError(t, db.First(&reloaded, "id = ?", invoice.Id).Error)
		assert.Equal(t, from, reloaded.Status)
		assert.Nil(t, reloaded.PaidAt)
		assert.Zero(t, reloaded.PaidAmount)
	}
}

func TestMarkPaidHonoursExplicitAmountAndTime(t *testing.T) {
	db := newTestDB(t)
	f := seedRental(t, db)
	invoice := makeInvoice(t, db, f, f.Room.Id, 3, entity.InvoiceStatusSent, time.Now().UTC().AddDate(0, 0, 10))

	paidAt := time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)
	amount := 3000000.0
	paid, err := IInvoiceLifecycleService.MarkPaid(db, managerOf(f), invoice.Id, MarkPaidInput{
		Method: "transfer", PaidAt: &paidAt, PaidAmount: &amount, PaymentRef: "FT-8812",
	})
	require.NoError(t, err)
	assert.Equal(t, amount, paid.PaidAmount)
	assert.Equal(t, "FT-8812", paid.PaymentRef)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, paid.PaidAt.Equal(paidAt))
}

func TestMarkPaidRequiresAuthority(t *testing.T) {
	db := newTestDB(t)
	f := seedRental(t, db)
	invoice := makeInvoice(t, db, f, f.Room.Id, 3, entity.InvoiceStatusSent, time.Now().UTC())

	outsider := ActorContext{ActorId: "staff-2", BuildingScope: []string{"another-building"}}
	_, err := IInvoiceLifecycleService.MarkPaid(db, outsider, invoice.Id, MarkPaidInput{Method: "cash"})
	var state *apperror.StateError
	require.ErrorAs(t, err, &state)
}

func TestPaidInvoiceRejectsWiderPatchWholesale(t *testing.T) {
	db := newTestDB(t)
	f := seedRental(t, db)
	invoice := makeInvoice(t, db, f, f.Room.Id, 3, entity.InvoiceStatusPaid, time.Now().UTC())

	note := "customer called"
	lateFee := 50000.0
	_, err := IInvoiceLifecycleService.Update(db, managerOf(f), invoice.Id, UpdateInvoiceInput{
		Note: &note, LateFee: &lateFee,
	})
	var state *apperror.StateError
	require.ErrorAs(t, err, &state)

	// nothing partially applied: the note did not land either
	var reloaded entity.InvoiceEntity
	require.NoError(t, db.First(&reloaded, "id = ?", invoice.Id).Error)
	assert.Empty(t, reloaded.Note)
	assert.Zero(t, reloaded.LateFee)
}

func TestPaidInvoiceAcceptsNoteOnlyPatch(t *testing.T) {
	db := newTestDB(t)
	f := seedRental(t, db)
	invoice := makeInvoice(t, db, f, f.Room.Id, 3, entity.InvoiceStatusPaid, time.Now().UTC())

	note := "receipt reissued"
	internal := "see ticket 4411"
	ref := "FT-9921"
	updated, err := IInvoiceLifecycleService.Update(db, managerOf(f), invoice.Id, UpdateInvoiceInput{
		Note: &note, InternalNote: &internal, PaymentRef: &ref,
	})
	require.NoError(t, err)
	assert.Equal(t, note, updated.Note)
	assert.Equal(t, internal, updated.InternalNote)
	assert.Equal(t, ref, updated.PaymentRef)
	assert.Equal(t, entity.InvoiceStatusPaid, updated.Status)
}

func TestUpdateRecomputesTotals(t *testing.T) {
	db := newTestDB(t)
	f := seedRental(t, db)
	invoice := makeInvoice(t, db, f, f.Room.Id, 3, entity.InvoiceStatusDraft, time.Now().UTC().AddDate(0, 0, 10))

	items := []UpdateItemInput{
		{Type: entity.ItemTypeRent, Label: "Room rent 03/2025", Quantity: 1, UnitPrice: 3000000, Amount: 3000000},
		{Type: entity.ItemTypeService, Label: "Cleaning", Quantity: 2, UnitPrice: 100000, Amount: 200000},
	}
	discount := 150000.0
	lateFee := 50000.0
	updated, err := IInvoiceLifecycleService.Update(db, managerOf(f), invoice.Id, UpdateInvoiceInput{
		Items: &items, DiscountAmount: &discount, LateFee: &lateFee,
	})
	require.NoError(t, err)

	require.Len(t, updated.Items, 2)
	assert.Equal(t, 3200000.0, updated.Subtotal)
	assert.Equal(t, 3100000.0, updated.TotalAmount) // subtotal - discount + late fee
}

func TestUpdateRejectsEmptyItemReplacement(t *testing.T) {
	db := newTestDB(t)
	f := seedRental(t, db)
	invoice := makeInvoice(t, db, f, f.Room.Id, 3, entity.InvoiceStatusDraft, time.Now().UTC())

	empty := []UpdateItemInput{}
	_, err := IInvoiceLifecycleService.Update(db, managerOf(f), invoice.Id, UpdateInvoiceInput{Items: &empty})
	var validation *apperror.ValidationError
	require.ErrorAs(t, err, &validation)

	// the old items survived the rejected transaction
	var count int64
	require.NoError(t, db.Model(&entity.InvoiceItemEntity{}).Where("invoice_id = ?", invoice.Id).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpdateRejectsIllegalTransition(t *testing.T) {
	db := newTestDB(t)
	f := seedRental(t, db)
	invoice := makeInvoice(t, db, f, f.Room.Id, 3, entity.InvoiceStatusOverdue, time.Now().UTC())

	back := entity.InvoiceStatusSent
	_, err := IInvoiceLifecycleService.Update(db, managerOf(f), invoice.Id, UpdateInvoiceInput{Status: &back})
	var state *apperror.StateError
	require.ErrorAs(t, err, &state)
}

func TestCancelNullsTheActiveToken(t *testing.T) {
	db := newTestDB(t)
	f := seedRental(t, db)
	invoice := makeInvoice(t, db, f, f.Room.Id, 3, entity.InvoiceStatusDraft, time.Now().UTC())

	cancelled, err := IInvoiceLifecycleService.Cancel(db, managerOf(f), invoice.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusCancelled, cancelled.Status)

	var reloaded entity.InvoiceEntity
	require.NoError(t, db.First(&reloaded, "id = ?", invoice.Id).Error)
	assert.Nil(t, reloaded.ActiveToken)
}

func TestSweepOverdue(t *testing.T) {
	db := newTestDB(t)
	f := seedRental(t, db)
	now := time.Now().UTC()

	pastDue := makeInvoice(t, db, f, f.Room.Id, 1, entity.InvoiceStatusSent, now.AddDate(0, 0, -1))
	notYetDue := makeInvoice(t, db, f, f.Room.Id, 2, entity.InvoiceStatusSent, now.AddDate(0, 0, 5))
	paid := makeInvoice(t, db, f, f.Room.Id, 3, entity.InvoiceStatusPaid, now.AddDate(0, 0, -30))
	draft := makeInvoice(t, db, f, f.Room.Id, 4, entity.InvoiceStatusDraft, now.AddDate(0, 0, -10))

	affected, err := IInvoiceLifecycleService.SweepOverdue(db, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	statusOf := func(id string) string {
		var inv entity.InvoiceEntity
		require.NoError(t, db.First(&inv, "id = ?", id).Error)
		return inv.Status
	}
	assert.Equal(t, entity.InvoiceStatusOverdue, statusOf(pastDue.Id))
	assert.Equal(t, entity.InvoiceStatusSent, statusOf(notYetDue.Id))
	assert.Equal(t, entity.InvoiceStatusPaid, statusOf(paid.Id))
	assert.Equal(t, entity.InvoiceStatusDraft, statusOf(draft.Id))

	// re-running moves nothing: already-overdue rows are not selected
	affected, err = IInvoiceLifecycleService.SweepOverdue(db, now)
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)
}
