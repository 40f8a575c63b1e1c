package core

// Role is an immutable named bundle of permissions: every account holding
// the role is granted every permission it lists (spec.md §3). Roles carry
// no identity beyond their Id and Permissions, so the live and wire forms
// coincide and no mutex is needed — mutation is whole-role
// register/unregister, serialised by World.Roles' shard lock.
type Role struct {
	Id          RoleId
	Permissions []Permission
}
