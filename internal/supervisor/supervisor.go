// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/modbusd/modbusd/internal/alarm"
	"github.com/modbusd/modbusd/internal/broadcaster"
	"github.com/modbusd/modbusd/internal/config"
	"github.com/modbusd/modbusd/internal/datalogger"
	"github.com/modbusd/modbusd/internal/dbwriter"
	"github.com/modbusd/modbusd/internal/metrics"
	"github.com/modbusd/modbusd/internal/modbuslog"
	"github.com/modbusd/modbusd/internal/parser"
	"github.com/modbusd/modbusd/internal/poller"
	"github.com/modbusd/modbusd/internal/repository"
	"github.com/modbusd/modbusd/internal/taskmanager"
	"github.com/modbusd/modbusd/internal/valuecache"
	"github.com/modbusd/modbusd/internal/valuequeue"
	natspkg "github.com/modbusd/modbusd/pkg/nats"
)

// barrierTimeout bounds how long a TCP poller waits for every sibling
// poller to reach the start barrier before giving up and ticking on its
// own (spec §4.4/§4.5).
const barrierTimeout = 2 * time.Second

// Supervisor owns one instance of every hot-path component and drives
// them through the fixed start/stop order of spec §4.12. Exactly one
// Supervisor exists per process.
type Supervisor struct {
	repo  *repository.Repository
	cache *repository.ConfigCache
	nats  *natspkg.Client

	values  *valuecache.Cache
	dist    *valuequeue.Distributor
	writer  *dbwriter.Writer
	rtu     *poller.RTUBusManager
	prs     *parser.Parser
	loggers *datalogger.Manager
	alarms  *alarm.Evaluator
	bcast   *broadcaster.Broadcaster
	wsHub   *broadcaster.WSHub
	metrics *metrics.Registry

	latencyMu sync.Mutex
	latency   map[int64]int64

	pollerMu sync.Mutex
	pollers  map[int64]*poller.DevicePoller

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds every component but starts nothing; call Start to run the
// pipeline. natsClient may be nil, in which case the websocket hub is the
// only delivery leg.
func New(repo *repository.Repository, cache *repository.ConfigCache, natsClient *natspkg.Client) *Supervisor {
	s := &Supervisor{
		repo:    repo,
		cache:   cache,
		nats:    natsClient,
		latency: make(map[int64]int64),
		pollers: make(map[int64]*poller.DevicePoller),
	}
	s.build()
	return s
}

// build constructs fresh instances of every hot-path component from the
// current config and device set, without starting any of them. Called by
// New and again by Restart to rebuild state from scratch.
func (s *Supervisor) build() {
	s.metrics = metrics.New()

	s.values = valuecache.New()
	s.dist = valuequeue.New(config.Keys.RawQueueMax, config.Keys.ParserQueueMax, config.Keys.LoggerQueueMax)
	s.writer = dbwriter.New(valueBatchStore{repo: s.repo}, 0)
	s.writer.SetFlushObserver(s.metrics.ObserveWriterFlush)
	s.rtu = poller.NewRTUBusManager(nil, s.cache,
		time.Duration(config.Keys.PollerMinIntervalMs)*time.Millisecond,
		time.Duration(config.Keys.PollerMaxIntervalMs)*time.Millisecond)
	s.loggers = datalogger.NewManager(loggerValueBatchStore{repo: s.repo})

	s.wsHub = broadcaster.NewWSHub()
	var sinks []broadcaster.Sink
	sinks = append(sinks, s.wsHub)
	if s.nats != nil {
		sinks = append(sinks, broadcaster.NewNatsSink(s.nats))
	}
	s.bcast = broadcaster.New(
		broadcaster.NewMultiSink(sinks...),
		s.repo,
		10*time.Second,
		0,
		config.Keys.BroadcastBatchMax,
		time.Duration(config.Keys.BroadcastBatchTimeoutMs)*time.Millisecond,
	)

	s.prs = parser.New(s.dist.ParserQueue(), s.values, s.onParsedBatch)

	s.alarms = alarm.New(s.values, s.repo, s.repo, s.onAlarmTransition, 10*time.Second)

	s.pollerMu.Lock()
	s.pollers = make(map[int64]*poller.DevicePoller)
	s.pollerMu.Unlock()
}

// onParsedBatch is the Parser's EmitFunc: every decoded per-device batch
// is fanned out to the Bulk DB Writer and, merged with that device's most
// recently observed poll latency, to the Broadcaster.
func (s *Supervisor) onParsedBatch(b parser.Batch) {
	s.writer.PushBatch(b)
	s.bcast.Push(broadcaster.UpdateFromBatch(b, s.latencyFor(b.DeviceID)))
}

func (s *Supervisor) setLatency(deviceID, ms int64) {
	s.latencyMu.Lock()
	s.latency[deviceID] = ms
	s.latencyMu.Unlock()
}

func (s *Supervisor) latencyFor(deviceID int64) int64 {
	s.latencyMu.Lock()
	defer s.latencyMu.Unlock()
	return s.latency[deviceID]
}

// onPollerUpdate is every DevicePoller's EmitFunc, used only to track
// per-device latency for the next parsed batch; the canonical value path
// runs through parser_q independently (see internal/poller.Update's doc
// comment).
func (s *Supervisor) onPollerUpdate(u poller.Update) {
	s.setLatency(u.DeviceID, u.LatencyMs)
	s.metrics.ObservePollerCycle(u.DeviceID, time.Duration(u.LatencyMs)*time.Millisecond)
}

// onAlarmTransition is the Alarm Evaluator's NotifyFunc: every Clear<->Active
// transition is published immediately, ahead of the broadcaster's
// micro-batch window.
func (s *Supervisor) onAlarmTransition(n alarm.Notification) {
	s.metrics.IncAlarmTransition(n.Rule.Name, string(n.Transition))
	s.bcast.PublishAlarm(broadcaster.AlarmPayload{
		RuleName:   n.Rule.Name,
		Level:      string(n.Rule.Level),
		Target:     n.Rule.Target,
		Transition: string(n.Transition),
		Value:      n.Value,
		Ts:         n.Time,
	})
}

// WSHub exposes the websocket hub so cmd/modbusd can mount its ServeHTTP.
func (s *Supervisor) WSHub() *broadcaster.WSHub { return s.wsHub }

// Metrics exposes the metrics registry so cmd/modbusd can mount its
// /metrics handler when config.Keys.MetricsAddr is set.
func (s *Supervisor) Metrics() *metrics.Registry { return s.metrics }

// Start launches every component in spec §4.12's fixed order: Latest-Value
// Cache (already live, nothing to start), Value Queue distributor, Bulk DB
// Writer, the poller set behind a start barrier, Parser, Data Logger,
// Alarm Evaluator (scheduled by internal/taskmanager), Broadcaster.
func (s *Supervisor) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() { defer s.wg.Done(); s.dist.Run() }()

	s.wg.Add(1)
	go func() { defer s.wg.Done(); s.writer.Run() }()

	s.startPollers()

	s.wg.Add(1)
	go func() { defer s.wg.Done(); s.prs.Run() }()

	s.loggers.Start(s.ctx, s.dist.LoggerQueue(), s.cache.GetDataLoggers(), func(id int64) []int64 {
		ids, _ := s.cache.GetLoggerTagIDs(id)
		return ids
	})

	if err := taskmanager.Start(taskmanager.Config{
		ReloadInterval:   time.Duration(config.Keys.ReloadIntervalSec) * time.Second,
		ReloadConfig:     s.cache.ReloadIfNeeded,
		AlarmPeriod:      time.Duration(config.Keys.AlarmPeriodMs) * time.Millisecond,
		EvaluateAlarms:   s.alarms.Evaluate,
		SubdashboardTTL:  10 * time.Second,
		RefreshSubdashes: s.bcast.RefreshSubdashboards,
	}); err != nil {
		return err
	}

	s.wg.Add(1)
	go func() { defer s.wg.Done(); s.bcast.Run() }()

	s.wg.Add(1)
	go func() { defer s.wg.Done(); s.collectQueueMetrics() }()

	modbuslog.Info("supervisor: all components started")
	return nil
}

// collectQueueMetrics polls the queue-depth and drop-count accessors every
// few seconds and feeds them to the metrics registry's gauges; these are
// cheap len() reads and atomic loads, not worth observing per-event.
func (s *Supervisor) collectQueueMetrics() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sampleQueueMetrics()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Supervisor) sampleQueueMetrics() {
	raw, parserQ, loggerQ := s.dist.QueueDepths()
	s.metrics.SetQueueDepth("raw", raw)
	s.metrics.SetQueueDepth("parser", parserQ)
	s.metrics.SetQueueDepth("logger", loggerQ)
	s.metrics.SetQueueDepth("broadcast", s.bcast.QueueDepth())

	qstats := s.dist.Stats()
	s.metrics.SetQueueDropped("raw", qstats.RawDropped)
	s.metrics.SetQueueDropped("parser", qstats.ParserDropped)
	s.metrics.SetQueueDropped("logger", qstats.LoggerDropped)
	s.metrics.SetQueueDropped("broadcast", s.bcast.Dropped())

	for _, bus := range s.rtu.Stats() {
		s.metrics.SetRTUBusStats(bus.Tuple.SerialPort, bus.DeviceCount, bus.LastCycleDuration, bus.ReconnectCount)
		modbuslog.Debugf("supervisor: rtu bus %s: %d devices, last cycle %s, %d reconnects",
			bus.Tuple.SerialPort, bus.DeviceCount, bus.LastCycleDuration, bus.ReconnectCount)
	}
}

// startPollers builds one DevicePoller per configured device, TCP devices
// behind a shared start barrier and RTU devices handed to the bus manager,
// which drives their cycles on its own ticker instead.
func (s *Supervisor) startPollers() {
	devices := s.cache.GetAllDevices()

	tcpCount := 0
	for _, d := range devices {
		if d.Protocol == repository.ProtocolTCP {
			tcpCount++
		}
	}

	var barrier *poller.Barrier
	if tcpCount > 0 {
		barrier = poller.NewBarrier(tcpCount)
	}
	startEpoch := poller.StartEpoch(time.Now())
	minInterval := time.Duration(config.Keys.PollerMinIntervalMs) * time.Millisecond
	maxInterval := time.Duration(config.Keys.PollerMaxIntervalMs) * time.Millisecond

	s.pollerMu.Lock()
	defer s.pollerMu.Unlock()

	for _, d := range devices {
		switch d.Protocol {
		case repository.ProtocolTCP:
			p := poller.NewDevicePoller(d.ID, s.cache, poller.DialTCP, s.dist, s.onPollerUpdate)
			s.pollers[d.ID] = p
			interval := poller.ClampInterval(s.cache.DeviceInterval(d.ID), minInterval, maxInterval)
			s.wg.Add(1)
			go func(p *poller.DevicePoller, interval time.Duration) {
				defer s.wg.Done()
				p.Run(s.ctx, barrier, barrierTimeout, startEpoch, interval)
			}(p, interval)
		case repository.ProtocolRTU:
			p := poller.NewDevicePoller(d.ID, s.cache, nil, s.dist, s.onPollerUpdate)
			s.pollers[d.ID] = p
			s.rtu.AddDevice(s.ctx, d, p)
		default:
			modbuslog.Warnf("supervisor: device %d has unknown protocol %q, skipping", d.ID, d.Protocol)
		}
	}
}

// Stop tears every component down in the reverse of Start's order and
// waits (up to a bounded grace window) for every goroutine to return.
func (s *Supervisor) Stop() {
	s.bcast.Stop()
	taskmanager.Shutdown()
	s.loggers.Stop()
	s.prs.Stop()

	if s.cancel != nil {
		s.cancel()
	}
	s.writer.Stop()
	s.dist.Stop()

	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		modbuslog.Warn("supervisor: stop timed out waiting for tasks, abandoning remainder")
	}

	modbuslog.Info("supervisor: all components stopped")
}

// Restart tears everything down and rebuilds every component from
// scratch, then starts the rebuilt pipeline (spec §4.12).
func (s *Supervisor) Restart(ctx context.Context) error {
	s.Stop()
	s.build()
	return s.Start(ctx)
}

// ReloadConfigs reloads the Config Cache; pollers recompute their
// function-code groups as a side effect of the cache's own reload
// (internal/repository.ConfigCache.ReloadIfNeeded recomputes each
// device's groups in place) and read the new groups on their very next
// cycle through GetDeviceFCGroups, so no poller-side action is needed and
// no connection is ever recreated by a reload (spec §4.12).
func (s *Supervisor) ReloadConfigs() error {
	return s.cache.ReloadIfNeeded()
}
