package users

import "time"

type Role string

const (
	RoleExhibitor Role = "exhibitor"
	RoleAdmin     Role = "admin"
)

type User struct {
	ID         int64
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	Company    string
	Phone      string
	Role       Role
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Registered — экспонент указал компанию.
func (u *User) Registered() bool { return u != nil && u.Company != "" }

func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" && u.Username != "" {
		name = "@" + u.Username
	}
	if u.Company != "" {
		if name == "" {
			return u.Company
		}
		return name + " (" + u.Company + ")"
	}
	return name
}

type Telegram struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}
