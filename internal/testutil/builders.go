// Package testutil provides testing utilities and helpers for the voucher client:
// an in-process fake backend, fixture builders and Redis/PostgreSQL test setup.
package testutil

import "time"

// VoucherBuilder provides a fluent interface for building FakeVoucher fixtures.
type VoucherBuilder struct {
	v FakeVoucher
}

// NewVoucher creates a VoucherBuilder for an active, unused single-use voucher
// worth one hour.
func NewVoucher(code string) *VoucherBuilder {
	return &VoucherBuilder{
		v: FakeVoucher{
			Code:            code,
			Value:           5,
			DurationMinutes: IntPtr(60),
			MaxUsageCount:   1,
		},
	}
}

// WithValue sets the voucher value.
func (b *VoucherBuilder) WithValue(value float64) *VoucherBuilder {
	b.v.Value = value
	return b
}

// WithDuration sets the session duration in minutes.
func (b *VoucherBuilder) WithDuration(minutes int) *VoucherBuilder {
	b.v.DurationMinutes = IntPtr(minutes)
	return b
}

// WithDataLimit sets the data limit in megabytes.
func (b *VoucherBuilder) WithDataLimit(mb int) *VoucherBuilder {
	b.v.DataLimitMb = IntPtr(mb)
	return b
}

// WithMaxUsage sets how many times the voucher may be redeemed.
func (b *VoucherBuilder) WithMaxUsage(maxUsage int) *VoucherBuilder {
	b.v.MaxUsageCount = maxUsage
	return b
}

// WithUsage sets how many times the voucher was already redeemed.
func (b *VoucherBuilder) WithUsage(count int) *VoucherBuilder {
	b.v.UsageCount = count
	return b
}

// Exhausted marks every allowed use as spent.
func (b *VoucherBuilder) Exhausted() *VoucherBuilder {
	b.v.UsageCount = b.v.MaxUsageCount
	return b
}

// Disabled marks the voucher inactive.
func (b *VoucherBuilder) Disabled() *VoucherBuilder {
	b.v.Inactive = true
	return b
}

// ExpiresAt sets the expiry time.
func (b *VoucherBuilder) ExpiresAt(at time.Time) *VoucherBuilder {
	b.v.ExpiresAt = TimePtr(at)
	return b
}

// Build returns the constructed FakeVoucher.
func (b *VoucherBuilder) Build() FakeVoucher {
	return b.v
}

// UserBuilder provides a fluent interface for building FakeUser fixtures.
type UserBuilder struct {
	u FakeUser
}

// NewUser creates a UserBuilder for an active account with role user.
func NewUser(username, password string) *UserBuilder {
	return &UserBuilder{
		u: FakeUser{
			Username: username,
			Password: password,
			Email:    username + "@example.com",
			Role:     "user",
		},
	}
}

// WithRole sets the account role.
func (b *UserBuilder) WithRole(role string) *UserBuilder {
	b.u.Role = role
	return b
}

// WithFullName sets the display name.
func (b *UserBuilder) WithFullName(name string) *UserBuilder {
	b.u.FullName = name
	return b
}

// Inactive marks the account disabled.
func (b *UserBuilder) Inactive() *UserBuilder {
	b.u.Inactive = true
	return b
}

// Build returns the constructed FakeUser.
func (b *UserBuilder) Build() FakeUser {
	return b.u
}
