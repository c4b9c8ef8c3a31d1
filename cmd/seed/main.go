package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/config"
	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"github.com/pumpdesk/shift-manager/backend/internal/repository"
	"github.com/pumpdesk/shift-manager/backend/internal/service"
	"github.com/pumpdesk/shift-manager/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var locationID int64

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机站点, 2: 插入随机员工, 3: 插入随机班次模板, 4: 按模板为下周批量排班)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.Int64Var(&locationID, "location-id", 0, "员工、模板和班次所属的站点 ID")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 不需要缓存和邮件，数据写入后同步投递审计日志
	svc, err := service.New(cfg, repo, nil, nil)
	if err != nil {
		logger.Error("无法创建 service", "error", err)
		return
	}

	ctx = context.Background()

	if op >= 2 && op <= 4 {
		if locationID <= 0 {
			slog.Error("请输入合法的站点 ID")
			return
		}
		if _, err := repo.GetLocationByID(ctx, locationID); err != nil {
			slog.Error("无法获取站点", slog.Int64("location_id", locationID), slog.String("error", err.Error()))
			return
		}
	}

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的站点数量")
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			location := utils.GenerateRandomLocation()
			if err := repo.CreateLocation(ctx, location); err != nil {
				slog.Error("无法插入站点", slog.String("error", err.Error()))
				continue
			}
			cnt++
		}

		slog.Info("插入站点成功", slog.Int("count", cnt))
	case 2:
		if n <= 0 {
			slog.Error("请输入合法的员工数量")
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			user, err := utils.GenerateRandomEmployee(locationID, cfg.Seed.User.Password, cfg.Email.UserDomain)
			if err != nil {
				slog.Error("无法生成随机员工", slog.String("error", err.Error()))
				continue
			}

			if err := repo.CreateUser(ctx, user); err != nil {
				slog.Error("无法插入员工", slog.String("error", err.Error()))
				continue
			}
			cnt++
		}

		slog.Info("插入员工成功", slog.Int("count", cnt))
	case 3:
		if n <= 0 {
			slog.Error("请输入合法的模板数量")
			return
		}

		admin, err := seedActor(ctx, repo, cfg)
		if err != nil {
			slog.Error("无法获取初始管理员", slog.String("error", err.Error()))
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			st := utils.GenerateRandomShiftTemplate(locationID)
			if _, err := svc.Templates.CreateTemplate(ctx, admin, service.CreateTemplateInput{
				LocationID:   &st.LocationID,
				Name:         st.Name,
				StartTime:    st.StartTime,
				EndTime:      st.EndTime,
				RoleRequired: st.RoleRequired,
				BreakMinutes: st.BreakMinutes,
				Recurrence:   st.Recurrence,
			}); err != nil {
				slog.Error("无法插入班次模板", slog.String("error", err.Error()))
				continue
			}
			cnt++
		}

		if _, err := svc.Dispatcher.Drain(ctx); err != nil {
			slog.Error("无法写入审计日志", slog.String("error", err.Error()))
		}

		slog.Info("插入班次模板成功", slog.Int("count", cnt))
	case 4:
		admin, err := seedActor(ctx, repo, cfg)
		if err != nil {
			slog.Error("无法获取初始管理员", slog.String("error", err.Error()))
			return
		}

		templates, err := svc.Templates.ListTemplates(ctx, admin, &locationID)
		if err != nil {
			slog.Error("无法获取班次模板", slog.String("error", err.Error()))
			return
		}
		if len(templates) == 0 {
			slog.Error("该站点没有班次模板，请先执行 -op 3")
			return
		}

		users, err := repo.ListUsers(ctx, &locationID)
		if err != nil {
			slog.Error("无法获取员工", slog.String("error", err.Error()))
			return
		}
		employeeIDs := make([]int64, 0, len(users))
		for _, u := range users {
			if u.IsActive && u.Role != domain.RoleAdmin && u.Role != domain.RoleManager {
				employeeIDs = append(employeeIDs, u.ID)
			}
		}
		if len(employeeIDs) == 0 {
			slog.Error("该站点没有员工，请先执行 -op 2")
			return
		}

		loc, err := cfg.Location()
		if err != nil {
			slog.Error("无法加载时区", slog.String("error", err.Error()))
			return
		}

		// 下周从周日开始
		today := domain.DateOf(time.Now().In(loc))
		start := today.AddDays(7 - int(today.Weekday()))
		end := start.AddDays(6)

		st := templates[rand.Intn(len(templates))]
		result, err := svc.Shifts.BulkCreateShifts(ctx, admin, service.BulkCreateInput{
			LocationID:  &locationID,
			EmployeeIDs: utils.GenerateRandomSubset(employeeIDs),
			TemplateID:  &st.ID,
			Recurrence: domain.Recurrence{
				StartDate: start,
				EndDate:   &end,
			},
		})
		if err != nil {
			slog.Error("批量排班失败", slog.String("error", err.Error()))
			return
		}

		if _, err := svc.Dispatcher.Drain(ctx); err != nil {
			slog.Error("无法写入审计日志", slog.String("error", err.Error()))
		}

		slog.Info("批量排班完成",
			slog.String("template", st.Name),
			slog.Int("created", result.CreatedCount),
			slog.Int("conflicts", len(result.Conflicts)),
		)
	default:
		slog.Error("指定的操作非法")
	}
}

// seedActor 以初始管理员的身份写入数据，使审计日志有明确的操作人
func seedActor(ctx context.Context, repo *repository.Repository, cfg *config.Config) (domain.Actor, error) {
	admin, err := repo.GetUserByUsername(ctx, cfg.InitialAdmin.Username)
	if err != nil {
		return domain.Actor{}, err
	}
	return domain.ActorFromUser(admin), nil
}
