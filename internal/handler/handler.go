package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/pumpdesk/shift-manager/backend/internal/config"
	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"github.com/pumpdesk/shift-manager/backend/internal/repository"
	"github.com/pumpdesk/shift-manager/backend/internal/service"
)

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	repository *repository.Repository
	service    *service.Service
	policy     service.Policy
	translator ut.Translator
	mailer     service.Mailer

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, svc *service.Service, mailer service.Mailer) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		repository: repo,
		service:    svc,
		translator: trans,
		mailer:     mailer,

		Mux: chi.NewRouter(),
	}, nil
}

var (
	adminOnly  = []domain.Role{domain.RoleAdmin}
	privileged = []domain.Role{domain.RoleAdmin, domain.RoleManager}
)

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.requestID)
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)
	h.Mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Use(h.myInfo)

		r.Route("/my-info", func(r chi.Router) {
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
			r.Get("/shifts", h.GetMyShifts)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.GetNotifications)
			r.Get("/unread-count", h.GetUnreadNotificationCount)
			r.Patch("/read-all", h.MarkAllNotificationsRead)
			r.Patch("/{id}/read", h.MarkNotificationRead)
		})

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", h.GetLocations)
			r.With(h.RequiredRole(adminOnly)).Post("/", h.CreateLocation)
			r.Route("/{id}/scheduling-rules", func(r chi.Router) {
				r.With(h.RequiredRole(privileged)).Get("/", h.GetSchedulingRules)
				r.With(h.RequiredRole(adminOnly)).Put("/", h.UpdateSchedulingRules)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(h.RequiredRole(privileged))
			r.Get("/", h.GetUsers)
			r.With(h.RequiredRole(adminOnly)).Post("/", h.CreateUser)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUser)
				r.With(h.preventOperateInitialAdmin).Patch("/", h.UpdateUser)
				r.With(h.preventOperateInitialAdmin).Delete("/", h.DeleteUser)
			})
		})

		// 所有角色都可以查询班次，service 会按角色限定范围
		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.GetShifts)
			r.Group(func(r chi.Router) {
				r.Use(h.RequiredRole(privileged))
				r.Post("/", h.CreateShift)
				r.Post("/check-conflicts", h.CheckShiftConflicts)
				r.Post("/bulk", h.BulkCreateShifts)
				r.Patch("/bulk-publish", h.BulkPublishShifts)
				r.Get("/unpublished", h.GetUnpublishedShifts)
				r.Patch("/{id}", h.UpdateShift)
				r.Delete("/{id}", h.DeleteShift)
			})
		})

		r.Route("/schedule-periods", func(r chi.Router) {
			r.Use(h.RequiredRole(privileged))
			r.Get("/", h.GetSchedulePeriods)
			r.Post("/", h.CreateSchedulePeriod)
			r.Post("/{id}/publish", h.PublishSchedulePeriod)
			r.With(h.RequiredRole(adminOnly)).Post("/{id}/unpublish", h.UnpublishSchedulePeriod)
		})

		r.Route("/shift-templates", func(r chi.Router) {
			r.Use(h.RequiredRole(privileged))
			r.Get("/", h.GetShiftTemplates)
			r.Post("/", h.CreateShiftTemplate)
			r.Get("/{id}", h.GetShiftTemplate)
			r.Patch("/{id}", h.UpdateShiftTemplate)
			r.Delete("/{id}", h.DeleteShiftTemplate)
		})

		r.With(h.RequiredRole(privileged)).Get("/audit-logs", h.GetAuditLogs)
	})
}
