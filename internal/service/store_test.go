package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/config"
	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"github.com/stretchr/testify/require"
)

// memStore 是 Store 的内存实现，只用于测试
type memStore struct {
	mu     sync.Mutex
	nextID int64

	users         map[int64]*domain.User
	locations     map[int64]*domain.Location
	shifts        map[int64]*domain.Shift
	periods       map[int64]*domain.SchedulePeriod
	templates     map[int64]*domain.ShiftTemplate
	audits        []*domain.AuditLog
	notifications map[int64]*domain.Notification
	events        []*domain.Event
	claims        map[string]time.Time
	rules         map[int64]*domain.SchedulingRules

	failAppend bool
}

func newMemStore() *memStore {
	return &memStore{
		nextID:        1000,
		users:         make(map[int64]*domain.User),
		locations:     make(map[int64]*domain.Location),
		shifts:        make(map[int64]*domain.Shift),
		periods:       make(map[int64]*domain.SchedulePeriod),
		templates:     make(map[int64]*domain.ShiftTemplate),
		notifications: make(map[int64]*domain.Notification),
		claims:        make(map[string]time.Time),
		rules:         make(map[int64]*domain.SchedulingRules),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func cloneShift(s *domain.Shift) *domain.Shift {
	c := *s
	return &c
}

func cloneTemplate(st *domain.ShiftTemplate) *domain.ShiftTemplate {
	c := *st
	c.Recurrence.Weekdays = slices.Clone(st.Recurrence.Weekdays)
	return &c
}

func sortShifts(shifts []*domain.Shift) {
	sort.Slice(shifts, func(i, j int) bool {
		if shifts[i].StartAt.Equal(shifts[j].StartAt) {
			return shifts[i].ID < shifts[j].ID
		}
		return shifts[i].StartAt.Before(shifts[j].StartAt)
	})
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

/*** 班次 ***/

func (m *memStore) ListEmployeeShifts(ctx context.Context, employeeID int64, from, to time.Time, excludeID int64) ([]*domain.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	shifts := make([]*domain.Shift, 0)
	for _, s := range m.shifts {
		if s.EmployeeID == employeeID && s.Blocking() && s.ID != excludeID && s.StartAt.Before(to) && s.EndAt.After(from) {
			shifts = append(shifts, cloneShift(s))
		}
	}
	sortShifts(shifts)
	return shifts, nil
}

func (m *memStore) GetPreviousShift(ctx context.Context, employeeID int64, before time.Time, excludeID int64) (*domain.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var prev *domain.Shift
	for _, s := range m.shifts {
		if s.EmployeeID != employeeID || !s.Blocking() || s.ID == excludeID || s.EndAt.After(before) {
			continue
		}
		if prev == nil || s.EndAt.After(prev.EndAt) {
			prev = s
		}
	}
	if prev == nil {
		return nil, domain.ErrRecordNotFound
	}
	return cloneShift(prev), nil
}

func (m *memStore) GetNextShift(ctx context.Context, employeeID int64, after time.Time, excludeID int64) (*domain.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var next *domain.Shift
	for _, s := range m.shifts {
		if s.EmployeeID != employeeID || !s.Blocking() || s.ID == excludeID || s.StartAt.Before(after) {
			continue
		}
		if next == nil || s.StartAt.Before(next.StartAt) {
			next = s
		}
	}
	if next == nil {
		return nil, domain.ErrRecordNotFound
	}
	return cloneShift(next), nil
}

func (m *memStore) CreateShift(ctx context.Context, shift *domain.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	shift.ID = m.id()
	shift.CreatedAt = now
	shift.UpdatedAt = now
	shift.Version = 1
	m.shifts[shift.ID] = cloneShift(shift)
	return nil
}

func (m *memStore) GetShiftByID(ctx context.Context, id int64) (*domain.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.shifts[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return cloneShift(s), nil
}

func (m *memStore) GetShiftsByIDs(ctx context.Context, ids []int64) ([]*domain.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	shifts := make([]*domain.Shift, 0)
	for _, id := range ids {
		if s, ok := m.shifts[id]; ok && s.IsActive {
			shifts = append(shifts, cloneShift(s))
		}
	}
	sortShifts(shifts)
	return shifts, nil
}

func (m *memStore) UpdateShift(ctx context.Context, shift *domain.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.shifts[shift.ID]
	if !ok || stored.Version != shift.Version {
		return domain.NewConcurrencyError("版本不一致", nil)
	}
	shift.Version++
	shift.UpdatedAt = time.Now()
	m.shifts[shift.ID] = cloneShift(shift)
	return nil
}

func (m *memStore) ListShifts(ctx context.Context, filter domain.ShiftFilter) ([]*domain.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	shifts := make([]*domain.Shift, 0)
	for _, s := range m.shifts {
		switch {
		case filter.LocationID != nil && s.LocationID != *filter.LocationID:
		case filter.EmployeeID != nil && s.EmployeeID != *filter.EmployeeID:
		case filter.From != nil && s.StartAt.Before(*filter.From):
		case filter.To != nil && !s.StartAt.Before(*filter.To):
		case filter.Status != nil && s.Status != *filter.Status:
		case filter.RoleRequired != nil && s.RoleRequired != *filter.RoleRequired:
		case !filter.IncludeInactive && !s.IsActive:
		default:
			shifts = append(shifts, cloneShift(s))
		}
	}
	sortShifts(shifts)
	return shifts, nil
}

func (m *memStore) transition(match func(*domain.Shift) bool, to domain.ShiftStatus, updatedBy int64) []*domain.Shift {
	changed := make([]*domain.Shift, 0)
	for _, s := range m.shifts {
		if !match(s) {
			continue
		}
		s.Status = to
		s.UpdatedBy = &updatedBy
		s.Version++
		changed = append(changed, cloneShift(s))
	}
	sortShifts(changed)
	return changed
}

func (m *memStore) TransitionShifts(ctx context.Context, ids []int64, from, to domain.ShiftStatus, updatedBy int64) ([]*domain.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.transition(func(s *domain.Shift) bool {
		return slices.Contains(ids, s.ID) && s.Status == from && s.IsActive
	}, to, updatedBy), nil
}

func (m *memStore) TransitionShiftsInWindow(ctx context.Context, locationID int64, windowFrom, windowTo time.Time, from, to domain.ShiftStatus, updatedBy int64) ([]*domain.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.transition(func(s *domain.Shift) bool {
		return s.LocationID == locationID && !s.StartAt.Before(windowFrom) && s.StartAt.Before(windowTo) && s.Status == from && s.IsActive
	}, to, updatedBy), nil
}

func (m *memStore) ListPublishedEmployeeIDs(ctx context.Context, locationID int64, from, to time.Time) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0)
	for _, s := range m.shifts {
		if s.LocationID == locationID && !s.StartAt.Before(from) && s.StartAt.Before(to) && s.Status == domain.ShiftStatusPublished && s.IsActive && !slices.Contains(ids, s.EmployeeID) {
			ids = append(ids, s.EmployeeID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

/*** 排班周期 ***/

func (m *memStore) CreateSchedulePeriod(ctx context.Context, period *domain.SchedulePeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	period.ID = m.id()
	period.CreatedAt = time.Now()
	period.Version = 1
	c := *period
	m.periods[period.ID] = &c
	return nil
}

func (m *memStore) GetSchedulePeriodByID(ctx context.Context, id int64) (*domain.SchedulePeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.periods[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	c := *p
	return &c, nil
}

func (m *memStore) UpdateSchedulePeriod(ctx context.Context, period *domain.SchedulePeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.periods[period.ID]
	if !ok || stored.Version != period.Version {
		return domain.NewConcurrencyError("版本不一致", nil)
	}
	period.Version++
	c := *period
	m.periods[period.ID] = &c
	return nil
}

func (m *memStore) CheckSchedulePeriodOverlap(ctx context.Context, locationID int64, start, end domain.Date) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.periods {
		if p.LocationID == locationID && !p.StartDate.After(end) && !p.EndDate.Before(start) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListSchedulePeriods(ctx context.Context, filter domain.PeriodFilter) ([]*domain.SchedulePeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	periods := make([]*domain.SchedulePeriod, 0)
	for _, p := range m.periods {
		switch {
		case filter.LocationID != nil && p.LocationID != *filter.LocationID:
		case filter.Status != nil && p.Status != *filter.Status:
		case filter.From != nil && p.StartDate.Before(*filter.From):
		case filter.To != nil && p.StartDate.After(*filter.To):
		default:
			c := *p
			periods = append(periods, &c)
		}
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].StartDate.After(periods[j].StartDate) })
	return periods, nil
}

/*** 班次模板 ***/

func (m *memStore) ListShiftTemplates(ctx context.Context, locationID *int64) ([]*domain.ShiftTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	templates := make([]*domain.ShiftTemplate, 0)
	for _, st := range m.templates {
		if st.IsActive && (locationID == nil || st.LocationID == *locationID) {
			templates = append(templates, cloneTemplate(st))
		}
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })
	return templates, nil
}

func (m *memStore) GetShiftTemplateByID(ctx context.Context, id int64) (*domain.ShiftTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.templates[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return cloneTemplate(st), nil
}

func (m *memStore) CreateShiftTemplate(ctx context.Context, st *domain.ShiftTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.templates {
		if existing.IsActive && existing.LocationID == st.LocationID && existing.Name == st.Name {
			return domain.NewConflictError("同一站点下模板名称已存在", nil)
		}
	}

	st.ID = m.id()
	st.IsActive = true
	st.CreatedAt = time.Now()
	st.Version = 1
	m.templates[st.ID] = cloneTemplate(st)
	return nil
}

func (m *memStore) UpdateShiftTemplate(ctx context.Context, st *domain.ShiftTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.templates[st.ID]
	if !ok || stored.Version != st.Version {
		return domain.NewConcurrencyError("版本不一致", nil)
	}
	st.Version++
	m.templates[st.ID] = cloneTemplate(st)
	return nil
}

/*** 审计日志 ***/

func (m *memStore) InsertAuditLog(ctx context.Context, entry *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.audits {
		if existing.EventID == entry.EventID {
			return nil
		}
	}
	entry.ID = m.id()
	c := *entry
	m.audits = append(m.audits, &c)
	return nil
}

func (m *memStore) ListAuditLogs(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]*domain.AuditLog, 0)
	for _, e := range m.audits {
		switch {
		case filter.LocationID != nil && (e.LocationID == nil || *e.LocationID != *filter.LocationID):
		case filter.EntityType != nil && e.EntityType != *filter.EntityType:
		case filter.EntityID != nil && e.EntityID != *filter.EntityID:
		case filter.ActorID != nil && e.ActorID != *filter.ActorID:
		case filter.From != nil && e.Timestamp.Before(*filter.From):
		case filter.To != nil && e.Timestamp.After(*filter.To):
		default:
			c := *e
			entries = append(entries, &c)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ID > entries[j].ID })

	if filter.Offset >= len(entries) {
		return make([]*domain.AuditLog, 0), nil
	}
	entries = entries[filter.Offset:]
	if filter.Limit < len(entries) {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}

/*** 通知 ***/

func (m *memStore) InsertNotification(ctx context.Context, n *domain.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.notifications {
		if existing.EventID == n.EventID {
			return false, nil
		}
	}
	n.ID = m.id()
	c := *n
	m.notifications[n.ID] = &c
	return true, nil
}

func (m *memStore) GetNotificationByID(ctx context.Context, id int64) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notifications[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	c := *n
	return &c, nil
}

func (m *memStore) ListNotifications(ctx context.Context, recipientID int64, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	notifications := make([]*domain.Notification, 0)
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && (!unreadOnly || !n.Read) {
			c := *n
			notifications = append(notifications, &c)
		}
	}
	sort.Slice(notifications, func(i, j int) bool { return notifications[i].ID > notifications[j].ID })
	if limit < len(notifications) {
		notifications = notifications[:limit]
	}
	return notifications, nil
}

func (m *memStore) CountUnreadNotifications(ctx context.Context, recipientID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *memStore) MarkNotificationRead(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n, ok := m.notifications[id]; ok {
		n.Read = true
	}
	return nil
}

func (m *memStore) MarkAllNotificationsRead(ctx context.Context, recipientID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

/*** outbox ***/

func (m *memStore) AppendEvents(ctx context.Context, events ...*domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAppend {
		return errors.New("outbox 不可用")
	}
	for _, ev := range events {
		ev.CreatedAt = time.Now()
		c := *ev
		m.events = append(m.events, &c)
	}
	return nil
}

func (m *memStore) ClaimPendingEvents(ctx context.Context, limit int, maxAttempts int, lease time.Duration) ([]*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	events := make([]*domain.Event, 0)
	for _, ev := range m.events {
		if len(events) >= limit {
			break
		}
		if ev.DispatchedAt != nil || int(ev.Attempts) >= maxAttempts {
			continue
		}
		if until, ok := m.claims[ev.ID]; ok && until.After(now) {
			continue
		}
		m.claims[ev.ID] = now.Add(lease)
		c := *ev
		events = append(events, &c)
	}
	return events, nil
}

func (m *memStore) findEvent(id string) *domain.Event {
	for _, ev := range m.events {
		if ev.ID == id {
			return ev
		}
	}
	return nil
}

func (m *memStore) MarkEventDispatched(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ev := m.findEvent(id); ev != nil {
		now := time.Now()
		ev.DispatchedAt = &now
	}
	delete(m.claims, id)
	return nil
}

func (m *memStore) MarkEventFailed(ctx context.Context, id string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ev := m.findEvent(id); ev != nil {
		ev.Attempts++
		ev.LastError = reason
	}
	delete(m.claims, id)
	return nil
}

/*** 排班规则与目录 ***/

func (m *memStore) GetSchedulingRules(ctx context.Context, locationID int64) (*domain.SchedulingRules, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rules, ok := m.rules[locationID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	c := *rules
	return &c, nil
}

func (m *memStore) UpsertSchedulingRules(ctx context.Context, locationID int64, rules *domain.SchedulingRules, updatedBy int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *rules
	m.rules[locationID] = &c
	return nil
}

func (m *memStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	c := *u
	return &c, nil
}

func (m *memStore) UpdateUser(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.users[user.ID]
	if !ok || stored.Version != user.Version {
		return domain.NewConcurrencyError("版本不一致", nil)
	}
	user.Version++
	c := *user
	m.users[user.ID] = &c
	return nil
}

func (m *memStore) GetLocationByID(ctx context.Context, id int64) (*domain.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locations[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	c := *l
	return &c, nil
}

/*** 测试辅助 ***/

func (m *memStore) auditsFor(action domain.AuditAction, entityType domain.AuditEntityType) []*domain.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]*domain.AuditLog, 0)
	for _, e := range m.audits {
		if e.Action == action && e.EntityType == entityType {
			entries = append(entries, e)
		}
	}
	return entries
}

func (m *memStore) notificationsOf(typ domain.NotificationType) []*domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	notifications := make([]*domain.Notification, 0)
	for _, n := range m.notifications {
		if n.Type == typ {
			notifications = append(notifications, n)
		}
	}
	return notifications
}

func (m *memStore) pendingEvents() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, ev := range m.events {
		if ev.DispatchedAt == nil {
			count++
		}
	}
	return count
}

const (
	stationA int64 = 1
	stationB int64 = 2

	adminID     int64 = 1
	managerID   int64 = 2
	managerBID  int64 = 3
	employeeA1  int64 = 10
	employeeA2  int64 = 11
	employeeA3  int64 = 12
	cashierA    int64 = 13
	employeeB1  int64 = 20
	inactiveAID int64 = 30
)

func ptr[T any](v T) *T {
	return &v
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Scheduling.MaxHoursPerDay = 12
	cfg.Scheduling.MaxHoursPerWeek = 60
	cfg.Scheduling.MinRestGapHours = 8
	cfg.Scheduling.TimeZone = "UTC"
	cfg.Scheduling.RulesCacheTTL = 300
	cfg.Outbox.PollInterval = 1
	cfg.Outbox.BatchSize = 1000
	cfg.Outbox.MaxAttempts = 3
	cfg.Outbox.Concurrency = 4
	cfg.Outbox.ClaimTimeout = 60
	cfg.Query.DefaultNotificationLimit = 50
	cfg.Query.DefaultAuditLogLimit = 100
	cfg.Query.MaxLimit = 500
	return cfg
}

func seedDirectory(m *memStore) {
	m.locations[stationA] = &domain.Location{ID: stationA, Name: "东站加油站", Code: "EAST"}
	m.locations[stationB] = &domain.Location{ID: stationB, Name: "西站加油站", Code: "WEST"}

	add := func(id int64, role domain.Role, jobTitle string, locationID *int64, active bool) {
		m.users[id] = &domain.User{
			ID:         id,
			Username:   fmt.Sprintf("user%d", id),
			FullName:   "员工",
			Email:      "",
			Role:       role,
			JobTitle:   jobTitle,
			LocationID: locationID,
			IsActive:   active,
		}
	}

	add(adminID, domain.RoleAdmin, "", nil, true)
	add(managerID, domain.RoleManager, "", ptr(stationA), true)
	add(managerBID, domain.RoleManager, "", ptr(stationB), true)
	add(employeeA1, domain.RoleEmployee, domain.JobTitleFuelAttendant, ptr(stationA), true)
	add(employeeA2, domain.RoleEmployee, domain.JobTitleFuelAttendant, ptr(stationA), true)
	add(employeeA3, domain.RoleEmployee, domain.JobTitleFuelAttendant, ptr(stationA), true)
	add(cashierA, domain.RoleCashier, "", ptr(stationA), true)
	add(employeeB1, domain.RoleEmployee, domain.JobTitleFuelAttendant, ptr(stationB), true)
	add(inactiveAID, domain.RoleEmployee, domain.JobTitleFuelAttendant, ptr(stationA), false)
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()

	store := newMemStore()
	seedDirectory(store)

	svc, err := New(testConfig(), store, nil, nil)
	require.NoError(t, err)

	return svc, store
}

func actorOf(m *memStore, id int64) domain.Actor {
	return domain.ActorFromUser(m.users[id])
}

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

// seedShift 直接在存储中放入一个班次，不经过冲突检测
func seedShift(m *memStore, employeeID, locationID int64, start, end time.Time, status domain.ShiftStatus) *domain.Shift {
	shift := &domain.Shift{
		LocationID:   locationID,
		EmployeeID:   employeeID,
		RoleRequired: domain.ShiftRoleFuelAttendant,
		StartAt:      start,
		EndAt:        end,
		Status:       status,
		CreatedBy:    managerID,
		IsActive:     status != domain.ShiftStatusCancelled,
	}
	_ = m.CreateShift(context.Background(), shift)
	return shift
}

func drain(t *testing.T, svc *Service) {
	t.Helper()

	_, err := svc.Dispatcher.Drain(context.Background())
	require.NoError(t, err)
}
