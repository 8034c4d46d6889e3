package auth

// RoleOf returns the identity's role, or RoleGuest for a nil identity.
func RoleOf(identity *Identity) Role {
	if identity == nil {
		return RoleGuest
	}
	return identity.Role
}

// HasRole reports an exact role match.
func HasRole(identity *Identity, role Role) bool {
	return identity != nil && identity.Role == role
}

// AtLeast reports whether the identity's role is at or above required.
// A nil identity only satisfies RoleGuest.
func AtLeast(identity *Identity, required Role) bool {
	return RoleOf(identity).AtLeast(required)
}

// IsAdmin reports whether the identity is an admin.
func IsAdmin(identity *Identity) bool {
	return HasRole(identity, RoleAdmin)
}

// IsOperator reports operator capability, which every admin also has.
func IsOperator(identity *Identity) bool {
	return identity != nil && AtLeast(identity, RoleOperator)
}

// IsUser reports the plain user role only; operators and admins are not users here.
func IsUser(identity *Identity) bool {
	return HasRole(identity, RoleUser)
}
