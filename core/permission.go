package core

// PermissionValidator decides whether an authority may execute an
// instruction. The permission catalog itself — what each Permission.Name
// means — is out of the core's scope (spec.md §1 Non-goals); the core only
// provides the combinator algebra a validator is built from (spec.md §9
// redesign flag: "replace the trait-object validator chain with a plain
// function value supporting And/Or composition").
type PermissionValidator func(authority AccountId, instr Instruction, wsv *WSV) error

// AllowAll is the default policy: every authority may execute every
// instruction. A deployment wires in a stricter PermissionValidator via
// WSV.SetPermissionValidator (SPEC_FULL.md §5.7).
func AllowAll(AccountId, Instruction, *WSV) error { return nil }

// And composes validators so every one must succeed, short-circuiting on
// the first failure.
func And(validators ...PermissionValidator) PermissionValidator {
	return func(authority AccountId, instr Instruction, wsv *WSV) error {
		for _, v := range validators {
			if err := v(authority, instr, wsv); err != nil {
				return err
			}
		}
		return nil
	}
}

// Or composes validators so at least one must succeed; if all fail, the
// first validator's error is returned.
func Or(validators ...PermissionValidator) PermissionValidator {
	return func(authority AccountId, instr Instruction, wsv *WSV) error {
		if len(validators) == 0 {
			return errPermission("no validators configured")
		}
		var first error
		for _, v := range validators {
			err := v(authority, instr, wsv)
			if err == nil {
				return nil
			}
			if first == nil {
				first = err
			}
		}
		return first
	}
}

// RequirePermission builds a validator that denies unless authority (or a
// role it holds) carries a permission token named name.
func RequirePermission(name string) PermissionValidator {
	return func(authority AccountId, _ Instruction, wsv *WSV) error {
		acc := wsv.World.Account(authority)
		if acc == nil {
			return errFind(FindAccount, authority)
		}
		for _, p := range wsv.World.PermissionsForAccount(acc) {
			if p.Name == name {
				return nil
			}
		}
		return errPermission("authority lacks permission " + name)
	}
}
