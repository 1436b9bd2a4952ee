package service

var (
	IContractService         = &ContractServiceImpl{}
	IMeterReadingService     = &MeterReadingServiceImpl{}
	IInvoiceService          = &InvoiceServiceImpl{}
	IInvoiceLifecycleService = &InvoiceLifecycleServiceImpl{}
	IPaymentService          = &PaymentServiceImpl{Cache: redisSeenCache{}}
	INotifierService         = &NotifierServiceImpl{Sender: &SendgridSender{}}
	IBatchRunService         = &BatchRunServiceImpl{}
)
