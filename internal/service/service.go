package service

import (
	"errors"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/config"
	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"github.com/pumpdesk/shift-manager/backend/internal/scheduler"
)

// Service 汇总排班相关的业务逻辑，供 handler 调用
type Service struct {
	Shifts        *ShiftService
	Periods       *PeriodService
	Templates     *TemplateService
	Users         *UserService
	Notifications *NotificationService
	Audit         *AuditLogger
	Rules         *RulesProvider
	Dispatcher    *Dispatcher
}

type base struct {
	cfg        *config.Config
	store      Store
	location   *time.Location
	policy     Policy
	detector   *scheduler.Detector
	rules      *RulesProvider
	audit      *AuditLogger
	notifier   *Notifier
	dispatcher *Dispatcher
}

// New 创建 Service，cache 与 mailer 都可以为 nil
func New(cfg *config.Config, store Store, cache RulesCache, mailer Mailer) (*Service, error) {
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	b := &base{
		cfg:        cfg,
		store:      store,
		location:   location,
		detector:   scheduler.New(store, location),
		rules:      NewRulesProvider(cfg, store, cache),
		audit:      NewAuditLogger(cfg, store),
		notifier:   NewNotifier(store, location),
		dispatcher: NewDispatcher(cfg, store, mailer),
	}

	return &Service{
		Shifts:        &ShiftService{base: b},
		Periods:       &PeriodService{base: b},
		Templates:     &TemplateService{base: b},
		Users:         &UserService{base: b},
		Notifications: &NotificationService{base: b},
		Audit:         b.audit,
		Rules:         b.rules,
		Dispatcher:    b.dispatcher,
	}, nil
}

// notFound 把 repository 返回的 ErrRecordNotFound 转换为 NotFoundError
func notFound(err error, resource string, id int64) error {
	if errors.Is(err, domain.ErrRecordNotFound) {
		return domain.NewNotFoundError(resource, id)
	}
	return err
}
