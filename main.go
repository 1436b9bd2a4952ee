package main

import (
	"fmt"
	"net/http"
	"time"

	_ "rental/billing/config/mysql"
	"rental/billing/config/toml"
	"rental/billing/config/worker"
	"rental/billing/src/api"
	"rental/billing/src/cron"
	"rental/billing/src/service"
	"rental/billing/src/tools"

	"github.com/gin-gonic/gin"
)

func main() {
	tools.SafeStart(cron.CreateBaseCronJob)

	cfg := toml.GetConfig().Process
	worker.StartWorkerPool(cfg.Numworkers, cfg.Jobqueuesize)
	service.IInvoiceService.EnqueueEmail = worker.EnqueueInvoiceEmail

	r := gin.Default()
	r.Use(tools.Recover)
	api.RegisterRoutes(r)

	s := &http.Server{
		Addr:           ":8080",
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	err := s.ListenAndServe()
	if nil != err {
		fmt.Println(err)
	}
}
