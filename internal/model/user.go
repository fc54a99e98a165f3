package model

type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)

type EmploymentType string

const (
	EmploymentFullTime EmploymentType = "FULL_TIME"
	EmploymentPartTime EmploymentType = "PART_TIME"
	EmploymentContract EmploymentType = "CONTRACT"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
	UserStatusLocked   UserStatus = "LOCKED"
)

// User is the read-only view of an account owned by the identity service.
type User struct {
	ID             string         `bson:"_id" json:"id"`
	Email          string         `bson:"email" json:"email"`
	FullName       string         `bson:"full_name" json:"fullName"`
	Role           Role           `bson:"role" json:"role"`
	EmploymentType EmploymentType `bson:"employment_type" json:"employmentType"`
	Status         UserStatus     `bson:"status" json:"status"`
}
