package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

const MailTypeShiftNotification = "shift_notification"

type ShiftNotificationMailData struct {
	FullName string `json:"fullName"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}

const MailTypeCreateUser = "create_user"

type CreateUserMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}
