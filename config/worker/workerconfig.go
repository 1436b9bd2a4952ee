package worker

import (
	"rental/billing/config/log"
	"rental/billing/config/mysql"
	"rental/billing/src/service"

	"go.uber.org/zap"
)

// EmailJob represents one invoice email to dispatch
type EmailJob struct {
	InvoiceId string
}

// jobQueue holds invoices awaiting dispatch
var jobQueue chan EmailJob

// StartWorkerPool launches N workers to dispatch invoice emails
// concurrently. Dispatch is best-effort: the outcome lands on the invoice's
// email tracking fields, never on the generation result.
func StartWorkerPool(numWorkers, queueSize int) {
	if numWorkers <= 0 {
		numWorkers = 2
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	jobQueue = make(chan EmailJob, queueSize)

	for i := 0; i < numWorkers; i++ {
		go worker(i)
	}

	log.Logger.Info("Email worker pool started", zap.Int("numWorkers", numWorkers))
}

// worker picks jobs from the queue and dispatches them
func worker(id int) {
	log.Logger.Info("Email worker started", zap.Int("id", id))
	db := mysql.GetDB()

	for job := range jobQueue {
		log.Logger.Info("Picked email job from queue",
			zap.Int("worker", id), zap.String("invoice_id", job.InvoiceId))
		if err := service.INotifierService.DispatchInvoice(db, job.InvoiceId); err != nil {
			log.Logger.Warn("Invoice email dispatch failed",
				zap.String("invoice_id", job.InvoiceId), zap.Error(err))
		}
	}
}

// EnqueueInvoiceEmail adds an invoice to the dispatch queue. Returns false
// when the pool is not running or the queue is full; the caller records the
// failure on the invoice.
func EnqueueInvoiceEmail(invoiceId string) bool {
	if jobQueue == nil {
		return false
	}
	select {
	case jobQueue <- EmailJob{InvoiceId: invoiceId}:
		return true
	default:
		log.Logger.Warn("Email queue full, cannot enqueue invoice", zap.String("invoice_id", invoiceId))
		return false
	}
}
