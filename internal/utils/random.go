package utils

import (
	"fmt"
	"math/rand"

	"github.com/mozillazg/go-pinyin"
	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

// 普通员工按职位区分加油员和安保，收银员单独作为一个角色
var staffProfiles = []struct {
	role     domain.Role
	jobTitle string
}{
	{domain.RoleEmployee, domain.JobTitleFuelAttendant},
	{domain.RoleEmployee, domain.JobTitleFuelAttendant},
	{domain.RoleEmployee, domain.JobTitleSecurityGuard},
	{domain.RoleCashier, ""},
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

// GenerateRandomEmployee 生成一个属于 locationID 的随机员工
func GenerateRandomEmployee(locationID int64, password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	profile := staffProfiles[rand.Intn(len(staffProfiles))]

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         profile.role,
		JobTitle:     profile.jobTitle,
		LocationID:   &locationID,
		IsActive:     true,
	}

	return user, nil
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

var upperLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func GenerateRandomID(letterLength int, digitLength int) string {
	random_id := make([]byte, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = upperLetters[rand.Intn(len(upperLetters))]
		} else {
			random_id[i] = digits[rand.Intn(len(digits))]
		}
	}
	return string(random_id)
}

var districts = []string{"城东", "城西", "城南", "城北", "高新", "滨江", "开发区", "机场路", "环城", "港口"}

func GenerateRandomLocation() *domain.Location {
	return &domain.Location{
		Name: districts[rand.Intn(len(districts))] + "加油站",
		Code: GenerateRandomID(2, 3),
	}
}

// 站点常见的三班倒
var shiftPatterns = []struct {
	name         string
	startTime    string
	endTime      string
	breakMinutes int32
}{
	{"早班", "06:00", "14:00", 30},
	{"中班", "14:00", "22:00", 30},
	{"夜班", "22:00", "06:00", 45},
}

var shiftRoles = []domain.ShiftRole{
	domain.ShiftRoleFuelAttendant,
	domain.ShiftRoleCashier,
	domain.ShiftRoleSecurity,
}

// 用 Fisher-Yates 洗牌算法来生成随机的星期集合，周日为 0
func GenerateRandomWeekdays() []int {
	days := []int{0, 1, 2, 3, 4, 5, 6}

	for i := len(days) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		days[i], days[j] = days[j], days[i]
	}

	n := rand.Intn(len(days)) + 1

	return days[:n]
}

func GenerateRandomShiftTemplate(locationID int64) *domain.ShiftTemplate {
	pattern := shiftPatterns[rand.Intn(len(shiftPatterns))]
	role := shiftRoles[rand.Intn(len(shiftRoles))]

	st := &domain.ShiftTemplate{
		LocationID:   locationID,
		Name:         fmt.Sprintf("%s-%s-%s", pattern.name, role, GenerateRandomID(0, 3)),
		StartTime:    pattern.startTime,
		EndTime:      pattern.endTime,
		RoleRequired: role,
		BreakMinutes: pattern.breakMinutes,
		Recurrence:   domain.TemplateRecurrence{Type: domain.RecurrenceDaily, Weekdays: make([]int, 0)},
	}

	if rand.Intn(2) == 0 {
		st.Recurrence = domain.TemplateRecurrence{Type: domain.RecurrenceWeekly, Weekdays: GenerateRandomWeekdays()}
	}

	return st
}

// 使用 Fisher-Yates 洗牌算法来生成一个随机子集，至少包含一个元素
func GenerateRandomSubset[T any](arr []T) []T {
	arrCopy := append([]T{}, arr...) // 复制数组，避免修改原数组

	for i := 0; i < len(arrCopy)-1; i++ {
		j := rand.Intn(len(arrCopy)-i) + i
		arrCopy[i], arrCopy[j] = arrCopy[j], arrCopy[i]
	}

	l := rand.Intn(len(arrCopy)) + 1
	return arrCopy[:l]
}
