package core

import (
	"math"
	"math/big"
)

// Execute applies instr on behalf of authority, consulting the WSV's
// permission validator first unless genesis is being applied (spec.md
// §4.4, §9). It is the entry point the commit pipeline uses to run a
// transaction's top-level instructions and guest host calls; every
// variant's contract lives in the cases below. An ExecuteTrigger raised
// here fires within the current block (spec.md §4.6).
func Execute(wsv *WSV, authority AccountId, instr Instruction) error {
	return executeWithOrigin(wsv, authority, instr, false)
}

// ExecuteFromTrigger is identical to Execute except that an
// ExecuteTrigger instruction it encounters is deferred to the next
// block rather than run immediately, matching the same-block/next-block
// split in spec.md §4.6: an ExecuteTrigger raised by an instruction
// inside a transaction runs now, one raised while a trigger's own
// action is executing waits for the following block.
func ExecuteFromTrigger(wsv *WSV, authority AccountId, instr Instruction) error {
	return executeWithOrigin(wsv, authority, instr, true)
}

func executeWithOrigin(wsv *WSV, authority AccountId, instr Instruction, fromTrigger bool) error {
	if !wsv.ApplyingGenesis() {
		if err := wsv.permissionValidator(authority, instr, wsv); err != nil {
			return err
		}
	}
	return execute(wsv, authority, instr, fromTrigger)
}

func execute(wsv *WSV, authority AccountId, instr Instruction, fromTrigger bool) error {
	switch instr.Kind {
	case InstrRegisterDomain:
		if _, err := NewName(instr.DomainId.Name.String(), wsv.Config.NameMinLength, wsv.Config.NameMaxLength); err != nil {
			return err
		}
		if instr.DomainId.Name == GenesisDomainName && !wsv.ApplyingGenesis() {
			return errValidate("domain name \"genesis\" is reserved for the genesis block")
		}
		return wsv.ModifyWorld(func(w *World) ([]DataEvent, error) {
			if err := w.registerDomain(NewDomain(instr.DomainId)); err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityDomain, EntityId: instr.DomainId.String(), Status: StatusCreated}}, nil
		})

	case InstrUnregisterDomain:
		return wsv.ModifyWorld(func(w *World) ([]DataEvent, error) {
			if err := w.unregisterDomain(instr.DomainId); err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityDomain, EntityId: instr.DomainId.String(), Status: StatusDeleted}}, nil
		})

	case InstrRegisterAccount:
		if _, err := NewName(instr.AccountId.Name.String(), wsv.Config.NameMinLength, wsv.Config.NameMaxLength); err != nil {
			return err
		}
		return wsv.ModifyDomain(instr.AccountId.Domain, func(d *Domain) ([]DataEvent, error) {
			if err := d.registerAccount(NewAccount(instr.AccountId, instr.AccountSignatories)); err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityAccount, EntityId: instr.AccountId.String(), Status: StatusCreated}}, nil
		})

	case InstrUnregisterAccount:
		return wsv.ModifyDomain(instr.AccountId.Domain, func(d *Domain) ([]DataEvent, error) {
			if err := d.unregisterAccount(instr.AccountId); err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityAccount, EntityId: instr.AccountId.String(), Status: StatusDeleted}}, nil
		})

	case InstrRegisterAssetDefinition:
		if _, err := NewName(instr.AssetDefinitionId.Name.String(), wsv.Config.NameMinLength, wsv.Config.NameMaxLength); err != nil {
			return err
		}
		return wsv.ModifyDomain(instr.AssetDefinitionId.Domain, func(d *Domain) ([]DataEvent, error) {
			entry := &AssetDefinitionEntry{Id: instr.AssetDefinitionId, ValueKind: instr.AssetValueKind, Mintable: instr.Mintable}
			if err := d.registerAssetDefinition(entry); err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityAssetDefinition, EntityId: instr.AssetDefinitionId.String(), Status: StatusCreated}}, nil
		})

	case InstrUnregisterAssetDefinition:
		return wsv.ModifyDomain(instr.AssetDefinitionId.Domain, func(d *Domain) ([]DataEvent, error) {
			if err := d.unregisterAssetDefinition(instr.AssetDefinitionId); err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityAssetDefinition, EntityId: instr.AssetDefinitionId.String(), Status: StatusDeleted}}, nil
		})

	case InstrRegisterRole:
		if _, err := NewName(instr.RoleId.Name.String(), wsv.Config.NameMinLength, wsv.Config.NameMaxLength); err != nil {
			return err
		}
		return wsv.ModifyWorld(func(w *World) ([]DataEvent, error) {
			if err := w.registerRole(&Role{Id: instr.RoleId, Permissions: instr.RolePermissions}); err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityRole, EntityId: instr.RoleId.String(), Status: StatusCreated}}, nil
		})

	case InstrUnregisterRole:
		return wsv.ModifyWorld(func(w *World) ([]DataEvent, error) {
			if w.Role(instr.RoleId) == nil {
				return nil, errFind(FindRole, instr.RoleId)
			}
			var events []DataEvent
			w.allAccounts(func(acc *Account) {
				if acc.removeRole(instr.RoleId) {
					events = append(events, DataEvent{EntityKind: EntityAccount, EntityId: acc.Id.String(), Status: StatusRoleRevoked})
				}
			})
			if err := w.unregisterRole(instr.RoleId); err != nil {
				return nil, err
			}
			events = append(events, DataEvent{EntityKind: EntityRole, EntityId: instr.RoleId.String(), Status: StatusDeleted})
			return events, nil
		})

	case InstrRegisterTrigger:
		if instr.Trigger.Id.Name != "" {
			if _, err := NewName(instr.Trigger.Id.Name.String(), wsv.Config.NameMinLength, wsv.Config.NameMaxLength); err != nil {
				return err
			}
		}
		return wsv.ModifyWorld(func(w *World) ([]DataEvent, error) {
			id, err := w.Triggers.Register(instr.Trigger)
			if err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityTrigger, EntityId: id.String(), Status: StatusCreated}}, nil
		})

	case InstrUnregisterTrigger:
		return wsv.ModifyWorld(func(w *World) ([]DataEvent, error) {
			if err := w.Triggers.Unregister(instr.ExecuteTriggerId); err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityTrigger, EntityId: instr.ExecuteTriggerId.String(), Status: StatusDeleted}}, nil
		})

	case InstrRegisterPeer:
		return wsv.ModifyWorld(func(w *World) ([]DataEvent, error) {
			if err := w.registerPeer(instr.PeerId); err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityPeer, EntityId: instr.PeerId.String(), Status: StatusCreated}}, nil
		})

	case InstrUnregisterPeer:
		return wsv.ModifyWorld(func(w *World) ([]DataEvent, error) {
			if err := w.unregisterPeer(instr.PeerId); err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityPeer, EntityId: instr.PeerId.String(), Status: StatusDeleted}}, nil
		})

	case InstrMint:
		return executeMint(wsv, instr)

	case InstrBurn:
		return executeBurn(wsv, instr)

	case InstrTransfer:
		return executeTransfer(wsv, instr)

	case InstrSetKeyValue:
		return executeSetKeyValue(wsv, instr)

	case InstrRemoveKeyValue:
		return executeRemoveKeyValue(wsv, instr)

	case InstrGrant:
		return executeGrant(wsv, instr)

	case InstrRevoke:
		return executeRevoke(wsv, instr)

	case InstrIf:
		cond, err := Evaluate(instr.Condition, Context{}, wsv)
		if err != nil {
			return err
		}
		ok, err := cond.AsBool()
		if err != nil {
			return err
		}
		if ok {
			return execute(wsv, authority, *instr.Then, fromTrigger)
		}
		if instr.HasElse {
			return execute(wsv, authority, *instr.Else, fromTrigger)
		}
		return nil

	case InstrPair:
		if err := execute(wsv, authority, *instr.Left, fromTrigger); err != nil {
			return err
		}
		return execute(wsv, authority, *instr.Right, fromTrigger)

	case InstrSequence:
		for _, sub := range instr.Sequence {
			if err := execute(wsv, authority, sub, fromTrigger); err != nil {
				return err
			}
		}
		return nil

	case InstrFail:
		return errValidate(instr.FailMessage)

	case InstrExecuteTrigger:
		ev := ExecuteTriggerEvent{TriggerId: instr.ExecuteTriggerId, Authority: instr.ExecuteAuthority}
		if fromTrigger {
			wsv.World.Triggers.QueueExecuteTrigger(ev)
		} else {
			wsv.dispatchExecuteTriggerEvent(ev)
		}
		return nil

	case InstrExpression:
		_, err := Evaluate(instr.Expr, Context{}, wsv)
		return err

	default:
		return errValidate("unknown instruction kind")
	}
}

// addToAssetValue applies delta to av in place, honoring av.Kind's numeric
// representation. negate subtracts instead of adds. Overflow and underflow
// both fail Math rather than wrapping (spec.md §8).
func addToAssetValue(av *AssetValue, delta Value, negate bool) error {
	switch av.Kind {
	case AssetKindQuantity:
		d, err := delta.AsU32()
		if err != nil {
			return err
		}
		if negate {
			if d > av.Quantity {
				return errMath(MathOverflow)
			}
			av.Quantity -= d
			return nil
		}
		sum := uint64(av.Quantity) + uint64(d)
		if sum > math.MaxUint32 {
			return errMath(MathOverflow)
		}
		av.Quantity = uint32(sum)
		return nil

	case AssetKindBigQuantity:
		d, err := delta.AsU128()
		if err != nil {
			return err
		}
		if av.BigQuantity == nil {
			av.BigQuantity = big.NewInt(0)
		}
		if negate {
			if av.BigQuantity.Cmp(d) < 0 {
				return errMath(MathOverflow)
			}
			av.BigQuantity = new(big.Int).Sub(av.BigQuantity, d)
			return nil
		}
		sum := new(big.Int).Add(av.BigQuantity, d)
		if sum.BitLen() > 128 {
			return errMath(MathOverflow)
		}
		av.BigQuantity = sum
		return nil

	case AssetKindFixed:
		d, err := delta.AsFixed()
		if err != nil {
			return err
		}
		if av.FixedVal.Mantissa != 0 && av.FixedVal.Scale != d.Scale {
			return errType("fixed-point scale mismatch")
		}
		av.FixedVal.Scale = d.Scale
		if negate {
			if d.Mantissa > av.FixedVal.Mantissa {
				return errMath(MathOverflow)
			}
			av.FixedVal.Mantissa -= d.Mantissa
			return nil
		}
		if d.Mantissa > 0 && av.FixedVal.Mantissa > math.MaxInt64-d.Mantissa {
			return errMath(MathOverflow)
		}
		av.FixedVal.Mantissa += d.Mantissa
		return nil

	default:
		return errType("cannot mint or burn a Store-kind asset")
	}
}

func executeMint(wsv *WSV, instr Instruction) error {
	def := wsv.World.AssetDefinition(instr.AssetId.DefinitionId)
	if def == nil {
		return errFind(FindAssetDefinition, instr.AssetId.DefinitionId)
	}
	switch def.Mintable {
	case MintableNot:
		return errValidate("asset definition is not mintable")
	case MintableOnce:
		if def.MintedOnce {
			return errRepetition("Mint", instr.AssetId.DefinitionId.String())
		}
	}
	qty, err := Evaluate(instr.Quantity, Context{}, wsv)
	if err != nil {
		return err
	}
	err = wsv.ModifyAccount(instr.AssetId.AccountId, func(acc *Account) ([]DataEvent, error) {
		created, _, err := acc.mutateAsset(instr.AssetId, true, ZeroValueFor(def.ValueKind), func(a *Asset) error {
			return addToAssetValue(&a.Value, qty, false)
		})
		if err != nil {
			return nil, err
		}
		var events []DataEvent
		if created {
			events = append(events, DataEvent{EntityKind: EntityAsset, EntityId: instr.AssetId.String(), Status: StatusCreated})
		}
		events = append(events, DataEvent{EntityKind: EntityAsset, EntityId: instr.AssetId.String(), Status: StatusAdded, Amount: qty})
		return events, nil
	})
	if err != nil {
		return err
	}
	if def.Mintable == MintableOnce {
		d := wsv.World.Domain(instr.AssetId.DefinitionId.Domain)
		if d != nil {
			_ = d.markAssetDefinitionMinted(instr.AssetId.DefinitionId)
		}
	}
	return nil
}

func executeBurn(wsv *WSV, instr Instruction) error {
	qty, err := Evaluate(instr.Quantity, Context{}, wsv)
	if err != nil {
		return err
	}
	return wsv.ModifyAccount(instr.AssetId.AccountId, func(acc *Account) ([]DataEvent, error) {
		_, removed, err := acc.mutateAsset(instr.AssetId, false, AssetValue{}, func(a *Asset) error {
			return addToAssetValue(&a.Value, qty, true)
		})
		if err != nil {
			return nil, err
		}
		events := []DataEvent{{EntityKind: EntityAsset, EntityId: instr.AssetId.String(), Status: StatusRemoved, Amount: qty}}
		if removed {
			events = append(events, DataEvent{EntityKind: EntityAsset, EntityId: instr.AssetId.String(), Status: StatusDeleted})
		}
		return events, nil
	})
}

// executeTransfer runs Burn(source) + Mint(destination) as one logical
// operation. Both sides are validated against a snapshot before either
// mutation commits, so a failing mint (missing destination asset
// definition, destination overflow) never leaves a completed, event-
// published burn behind (spec.md §4.4: Transfer is atomic with respect to
// its emitted events).
func executeTransfer(wsv *WSV, instr Instruction) error {
	qty, err := Evaluate(instr.Quantity, Context{}, wsv)
	if err != nil {
		return err
	}

	def := wsv.World.AssetDefinition(instr.DestinationId.DefinitionId)
	if def == nil {
		return errFind(FindAssetDefinition, instr.DestinationId.DefinitionId)
	}

	src := wsv.World.Asset(instr.AssetId)
	if src == nil {
		return errFind(FindAsset, instr.AssetId)
	}
	srcPreview := src.Value
	if err := addToAssetValue(&srcPreview, qty, true); err != nil {
		return err
	}
	dstPreview := ZeroValueFor(def.ValueKind)
	if dst := wsv.World.Asset(instr.DestinationId); dst != nil {
		dstPreview = dst.Value
	}
	if err := addToAssetValue(&dstPreview, qty, false); err != nil {
		return err
	}

	err = wsv.ModifyAccount(instr.AssetId.AccountId, func(acc *Account) ([]DataEvent, error) {
		_, removed, err := acc.mutateAsset(instr.AssetId, false, AssetValue{}, func(a *Asset) error {
			return addToAssetValue(&a.Value, qty, true)
		})
		if err != nil {
			return nil, err
		}
		events := []DataEvent{{EntityKind: EntityAsset, EntityId: instr.AssetId.String(), Status: StatusRemoved, Amount: qty}}
		if removed {
			events = append(events, DataEvent{EntityKind: EntityAsset, EntityId: instr.AssetId.String(), Status: StatusDeleted})
		}
		return events, nil
	})
	if err != nil {
		return err
	}
	return wsv.ModifyAccount(instr.DestinationId.AccountId, func(acc *Account) ([]DataEvent, error) {
		created, _, err := acc.mutateAsset(instr.DestinationId, true, ZeroValueFor(def.ValueKind), func(a *Asset) error {
			return addToAssetValue(&a.Value, qty, false)
		})
		if err != nil {
			return nil, err
		}
		var events []DataEvent
		if created {
			events = append(events, DataEvent{EntityKind: EntityAsset, EntityId: instr.DestinationId.String(), Status: StatusCreated})
		}
		events = append(events, DataEvent{EntityKind: EntityAsset, EntityId: instr.DestinationId.String(), Status: StatusAdded, Amount: qty})
		return events, nil
	})
}

func executeSetKeyValue(wsv *WSV, instr Instruction) error {
	val, err := Evaluate(instr.MetaValue, Context{}, wsv)
	if err != nil {
		return err
	}
	switch {
	case instr.HasDomain:
		return wsv.ModifyDomain(instr.TargetDomain, func(d *Domain) ([]DataEvent, error) {
			if err := d.setMetadata(wsv.Config.MetadataLimits, instr.MetaKey, val); err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityDomain, EntityId: instr.TargetDomain.String(), Status: StatusMetadataInserted, Amount: val}}, nil
		})
	case instr.HasAccount:
		return wsv.ModifyAccount(instr.TargetAccount, func(acc *Account) ([]DataEvent, error) {
			if err := acc.setMetadata(wsv.Config.MetadataLimits, instr.MetaKey, val); err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityAccount, EntityId: instr.TargetAccount.String(), Status: StatusMetadataInserted, Amount: val}}, nil
		})
	case instr.HasAsset:
		return wsv.ModifyAccount(instr.TargetAsset.AccountId, func(acc *Account) ([]DataEvent, error) {
			_, _, err := acc.mutateAsset(instr.TargetAsset, false, AssetValue{}, func(a *Asset) error {
				return setStoreKey(&a.Value, wsv.Config.MetadataLimits, instr.MetaKey, val)
			})
			if err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityAsset, EntityId: instr.TargetAsset.String(), Status: StatusMetadataInserted, Amount: val}}, nil
		})
	default:
		return errValidate("SetKeyValue: no target specified")
	}
}

func executeRemoveKeyValue(wsv *WSV, instr Instruction) error {
	switch {
	case instr.HasDomain:
		return wsv.ModifyDomain(instr.TargetDomain, func(d *Domain) ([]DataEvent, error) {
			if err := d.removeMetadata(instr.MetaKey); err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityDomain, EntityId: instr.TargetDomain.String(), Status: StatusMetadataRemoved}}, nil
		})
	case instr.HasAccount:
		return wsv.ModifyAccount(instr.TargetAccount, func(acc *Account) ([]DataEvent, error) {
			if err := acc.removeMetadata(instr.MetaKey); err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityAccount, EntityId: instr.TargetAccount.String(), Status: StatusMetadataRemoved}}, nil
		})
	case instr.HasAsset:
		return wsv.ModifyAccount(instr.TargetAsset.AccountId, func(acc *Account) ([]DataEvent, error) {
			_, _, err := acc.mutateAsset(instr.TargetAsset, false, AssetValue{}, func(a *Asset) error {
				return removeStoreKey(&a.Value, instr.MetaKey)
			})
			if err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityAsset, EntityId: instr.TargetAsset.String(), Status: StatusMetadataRemoved}}, nil
		})
	default:
		return errValidate("RemoveKeyValue: no target specified")
	}
}

func executeGrant(wsv *WSV, instr Instruction) error {
	switch instr.GrantRevokeKind {
	case GrantRevokePermission:
		return wsv.ModifyAccount(instr.Receiver, func(acc *Account) ([]DataEvent, error) {
			if err := acc.grantPermission(instr.Permission); err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityAccount, EntityId: instr.Receiver.String(), Status: StatusPermissionGranted}}, nil
		})
	case GrantRevokeRole:
		return wsv.ModifyAccount(instr.Receiver, func(acc *Account) ([]DataEvent, error) {
			if err := acc.addRole(instr.RoleId); err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityAccount, EntityId: instr.Receiver.String(), Status: StatusRoleGranted}}, nil
		})
	default:
		return errValidate("unknown Grant kind")
	}
}

func executeRevoke(wsv *WSV, instr Instruction) error {
	switch instr.GrantRevokeKind {
	case GrantRevokePermission:
		return wsv.ModifyAccount(instr.Receiver, func(acc *Account) ([]DataEvent, error) {
			if err := acc.revokePermission(instr.Permission.Name); err != nil {
				return nil, err
			}
			return []DataEvent{{EntityKind: EntityAccount, EntityId: instr.Receiver.String(), Status: StatusPermissionRevoked}}, nil
		})
	case GrantRevokeRole:
		return wsv.ModifyAccount(instr.Receiver, func(acc *Account) ([]DataEvent, error) {
			if !acc.removeRole(instr.RoleId) {
				return nil, errValidate("role not held: " + instr.RoleId.String())
			}
			return []DataEvent{{EntityKind: EntityAccount, EntityId: instr.Receiver.String(), Status: StatusRoleRevoked}}, nil
		})
	default:
		return errValidate("unknown Revoke kind")
	}
}

// setStoreKey and removeStoreKey mutate a Store-kind AssetValue's
// MetadataList as if it were a Metadata map, matching the semantics of
// Domain/Account metadata (spec.md §3).
func setStoreKey(av *AssetValue, limits MetadataLimits, key Name, value Value) error {
	if av.Kind != AssetKindStore {
		return errType("SetKeyValue target is not a Store-kind asset")
	}
	m := av.Store.ToMap()
	if err := m.Insert(limits, key, value); err != nil {
		return err
	}
	av.Store = m.ToList()
	return nil
}

func removeStoreKey(av *AssetValue, key Name) error {
	if av.Kind != AssetKindStore {
		return errType("RemoveKeyValue target is not a Store-kind asset")
	}
	m := av.Store.ToMap()
	if !m.Remove(key) {
		return errValidate("metadata key not present")
	}
	av.Store = m.ToList()
	return nil
}
