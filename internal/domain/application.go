package domain

// ApplicationStatus is the review state of an advertiser application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// RoleAdvertiser is granted to an account when its application is approved.
const RoleAdvertiser = "advertiser"

// AddRole returns roles with role appended unless it is already present.
func AddRole(roles []string, role string) []string {
	for _, r := range roles {
		if r == role {
			return roles
		}
	}
	return append(roles, role)
}
