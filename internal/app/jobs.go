package app

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
	"github.com/talkincode/shopsync/pkg/metrics"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	_, err = a.sched.AddFunc("@every 30s", a.SchedResourceMonitorTask)
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@every 1m", a.SchedCatalogStatsTask)
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// SchedResourceMonitorTask samples host and process cpu (percent x100) and memory (MB).
func (a *Application) SchedResourceMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	if usage, err := cpu.Percent(0, false); err == nil && len(usage) > 0 {
		metrics.SetGauge("host_cpu", int64(usage[0]*100))
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		metrics.SetGauge("host_mem_mb", int64(vm.Used>>20))
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		zap.L().Debug("process monitor unavailable", zap.String("namespace", "jobs"), zap.Error(err))
		return
	}
	if usage, err := proc.CPUPercent(); err == nil {
		metrics.SetGauge("shopsync_cpu", int64(usage*100))
	}
	if info, err := proc.MemoryInfo(); err == nil {
		metrics.SetGauge("shopsync_mem_mb", int64(info.RSS>>20))
	}
}

// SchedCatalogStatsTask records catalog size and version
func (a *Application) SchedCatalogStatsTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	if a.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, err := a.store.Load(ctx)
	if err != nil {
		zap.L().Warn("catalog stats failed", zap.String("namespace", "jobs"), zap.Error(err))
		return
	}
	metrics.SetGauge("catalog_products", int64(len(snap.Products)))
	metrics.SetGauge("catalog_categories", int64(len(snap.Categories)))
	metrics.SetGauge("catalog_version", snap.Version)
}
