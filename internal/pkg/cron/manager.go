package cron

import (
	"Leadline/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine            *cron.Cron
	searchIndexJob    *job.SearchIndexJob
	auditRetentionJob *job.AuditRetentionJob
	reconcileSweepJob *job.ReconcileSweepJob
	providerPullJob   *job.ProviderPullJob
}

func NewCronManager(searchIndexJob *job.SearchIndexJob, auditRetentionJob *job.AuditRetentionJob,
	reconcileSweepJob *job.ReconcileSweepJob, providerPullJob *job.ProviderPullJob) *Manager {
	return &Manager{
		engine:            cron.New(cron.WithSeconds()),
		searchIndexJob:    searchIndexJob,
		auditRetentionJob: auditRetentionJob,
		reconcileSweepJob: reconcileSweepJob,
		providerPullJob:   providerPullJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob("0 * * * * *", s.searchIndexJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("@daily", s.auditRetentionJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("0 */10 * * * *", s.reconcileSweepJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("0 */5 * * * *", s.providerPullJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	s.engine.Stop()
}
