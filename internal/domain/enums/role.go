package enums

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCurator Role = "curator"
	RoleStudent Role = "student"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCurator, RoleStudent:
		return true
	}
	return false
}
