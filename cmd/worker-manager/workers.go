// cmd/worker-manager/workers.go
package main

import (
	"database/sql"
	"time"

	"pos-workers/internal/common/auth"
	"pos-workers/internal/common/camunda"
	"pos-workers/internal/common/config"
	"pos-workers/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	// Order lifecycle
	bo "pos-workers/internal/workers/order/bill-order"
	co "pos-workers/internal/workers/order/create-order"
	so "pos-workers/internal/workers/order/settle-order"
	to "pos-workers/internal/workers/order/transfer-order"

	// Staff onboarding
	au "pos-workers/internal/workers/staff/approve-user"
	rs "pos-workers/internal/workers/staff/register-staff"
	ru "pos-workers/internal/workers/staff/reject-user"

	// Tenant administration
	cf "pos-workers/internal/workers/tenant/create-franchise"
	cl "pos-workers/internal/workers/tenant/create-location"

	// Reporting
	sr "pos-workers/internal/workers/reporting/sales-report"
	sq "pos-workers/internal/workers/reporting/search-orders"

	// Communication & maintenance
	sn "pos-workers/internal/workers/communication/send-notification"
	rq "pos-workers/internal/workers/maintenance/reconcile-order-queues"
)

// dependencies are the shared clients handed to worker constructors.
// idp, email and sms are nil when the integration is not configured.
type dependencies struct {
	db    *sql.DB
	redis *redis.Client
	es    *elasticsearch.Client
	idp   auth.IdentityProvider
	email sn.EmailSender
	sms   sn.SMSSender
}

func taskTypes() []string {
	return []string{
		co.TaskType, to.TaskType, bo.TaskType, so.TaskType,
		rs.TaskType, au.TaskType, ru.TaskType,
		cf.TaskType, cl.TaskType,
		sr.TaskType, sq.TaskType,
		sn.TaskType, rq.TaskType,
	}
}

// handlerTimeout prefers the per-worker timeout from config over the worker default.
func handlerTimeout(cfg *config.Config, taskType string, def time.Duration) time.Duration {
	if ms := config.GetWorkerConfig(cfg, taskType).Timeout; ms > 0 {
		return config.GetDuration(ms)
	}
	return def
}

func registerWorkers(runner *camunda.Runner, cfg *config.Config, deps *dependencies, log logger.Logger) {
	wc := func(taskType string) config.WorkerConfig {
		return config.GetWorkerConfig(cfg, taskType)
	}
	pos := cfg.POS

	// --- 1. Order lifecycle (4) ---
	{
		c := co.LoadConfig()
		c.Timeout = handlerTimeout(cfg, co.TaskType, c.Timeout)
		c.TaxRate = pos.TaxRate
		c.NumberPrefix = pos.OrderNumberPrefix
		runner.Register(co.TaskType, wc(co.TaskType), co.NewHandler(c, deps.db, deps.redis, log).Handle)
	}
	{
		c := to.LoadConfig()
		c.Timeout = handlerTimeout(cfg, to.TaskType, c.Timeout)
		c.LockTTL = config.GetDuration(pos.TransferLockTTL)
		c.ResultTTL = config.GetDuration(pos.TransferResultTTL)
		runner.Register(to.TaskType, wc(to.TaskType), to.NewHandler(c, deps.db, deps.redis, log).Handle)
	}
	{
		c := bo.LoadConfig()
		c.Timeout = handlerTimeout(cfg, bo.TaskType, c.Timeout)
		runner.Register(bo.TaskType, wc(bo.TaskType), bo.NewHandler(c, deps.db, log).Handle)
	}
	{
		c := so.LoadConfig()
		c.Timeout = handlerTimeout(cfg, so.TaskType, c.Timeout)
		c.SalesIndex = cfg.Database.Elasticsearch.SalesIndex
		runner.Register(so.TaskType, wc(so.TaskType), so.NewHandler(c, deps.db, deps.es, log).Handle)
	}

	// --- 2. Staff onboarding (3) ---
	{
		c := rs.LoadConfig()
		c.Timeout = handlerTimeout(cfg, rs.TaskType, c.Timeout)
		runner.Register(rs.TaskType, wc(rs.TaskType), rs.NewHandler(c, deps.db, deps.idp, log).Handle)
	}
	{
		c := au.LoadConfig()
		c.Timeout = handlerTimeout(cfg, au.TaskType, c.Timeout)
		runner.Register(au.TaskType, wc(au.TaskType), au.NewHandler(c, deps.db, deps.idp, log).Handle)
	}
	{
		c := ru.LoadConfig()
		c.Timeout = handlerTimeout(cfg, ru.TaskType, c.Timeout)
		runner.Register(ru.TaskType, wc(ru.TaskType), ru.NewHandler(c, deps.db, deps.idp, log).Handle)
	}

	// --- 3. Tenant administration (2) ---
	{
		c := cf.LoadConfig()
		c.Timeout = handlerTimeout(cfg, cf.TaskType, c.Timeout)
		runner.Register(cf.TaskType, wc(cf.TaskType), cf.NewHandler(c, deps.db, log).Handle)
	}
	{
		c := cl.LoadConfig()
		c.Timeout = handlerTimeout(cfg, cl.TaskType, c.Timeout)
		runner.Register(cl.TaskType, wc(cl.TaskType), cl.NewHandler(c, deps.db, log).Handle)
	}

	// --- 4. Reporting (2) ---
	{
		c := sr.LoadConfig()
		c.Timeout = handlerTimeout(cfg, sr.TaskType, c.Timeout)
		c.CacheTTL = config.GetDuration(pos.ReportCacheTTL)
		runner.Register(sr.TaskType, wc(sr.TaskType), sr.NewHandler(c, deps.db, deps.redis, log).Handle)
	}
	{
		c := sq.LoadConfig()
		c.Timeout = handlerTimeout(cfg, sq.TaskType, c.Timeout)
		c.SalesIndex = cfg.Database.Elasticsearch.SalesIndex
		c.MaxPageSize = pos.MaxSearchPageSize
		runner.Register(sq.TaskType, wc(sq.TaskType), sq.NewHandler(c, deps.db, deps.es, log).Handle)
	}

	// --- 5. Communication & maintenance (2) ---
	{
		c := sn.LoadConfig()
		c.Timeout = handlerTimeout(cfg, sn.TaskType, c.Timeout)
		c.EmailEnabled = cfg.Notifications.Email.Enabled
		c.SMSEnabled = cfg.Notifications.SMS.Enabled
		runner.Register(sn.TaskType, wc(sn.TaskType), sn.NewHandler(c, deps.db, deps.email, deps.sms, log).Handle)
	}
	{
		c := rq.LoadConfig()
		c.Timeout = handlerTimeout(cfg, rq.TaskType, c.Timeout)
		c.BatchSize = pos.ReconcileBatchSize
		runner.Register(rq.TaskType, wc(rq.TaskType), rq.NewHandler(c, deps.db, log).Handle)
	}
}
