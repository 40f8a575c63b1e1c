package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestWSV() *WSV { return NewWSV(DefaultWSVConfig) }

func mustRegisterDomainAndAccount(t *testing.T, wsv *WSV, domain, account string) AccountId {
	t.Helper()
	did := DomainId{Name: Name(domain)}
	aid := AccountId{Name: Name(account), Domain: did}
	require.NoError(t, Execute(wsv, aid, Instruction{Kind: InstrRegisterDomain, DomainId: did}))
	require.NoError(t, Execute(wsv, aid, Instruction{Kind: InstrRegisterAccount, AccountId: aid}))
	return aid
}

func TestRegisterDomainThenAccountThenQuery(t *testing.T) {
	wsv := newTestWSV()
	aid := mustRegisterDomainAndAccount(t, wsv, "wonderland", "alice")

	v, err := wsv.ExecuteQuery(QueryBox{Kind: FindAccountById, AccountId: aid})
	require.NoError(t, err)
	snap, err := v.AsAccount()
	require.NoError(t, err)
	require.Equal(t, aid, snap.Id)
}

func TestRegisterDomainTwiceFailsRepetition(t *testing.T) {
	wsv := newTestWSV()
	did := DomainId{Name: "wonderland"}
	require.NoError(t, wsv.ModifyWorld(func(w *World) ([]DataEvent, error) {
		return nil, w.registerDomain(NewDomain(did))
	}))
	err := wsv.ModifyWorld(func(w *World) ([]DataEvent, error) {
		return nil, w.registerDomain(NewDomain(did))
	})
	require.Error(t, err)
	var coreErr *Error
	require.ErrorAs(t, err, &coreErr)
	require.Equal(t, ErrRepetition, coreErr.Kind)
}

func TestMintThenBurnToZeroDropsAsset(t *testing.T) {
	wsv := newTestWSV()
	aid := mustRegisterDomainAndAccount(t, wsv, "wonderland", "alice")
	defId := AssetDefinitionId{Name: "rose", Domain: aid.Domain}
	require.NoError(t, Execute(wsv, aid, Instruction{
		Kind: InstrRegisterAssetDefinition, AssetDefinitionId: defId,
		AssetValueKind: AssetKindQuantity, Mintable: MintableInfinitely,
	}))

	assetId := AssetId{DefinitionId: defId, AccountId: aid}
	require.NoError(t, Execute(wsv, aid, Instruction{
		Kind: InstrMint, AssetId: assetId, Quantity: &Expression{Kind: ExprRaw, Raw: ValueU32(30)},
	}))

	v, err := wsv.ExecuteQuery(QueryBox{Kind: FindAssetById, AssetId: assetId})
	require.NoError(t, err)
	asset, err := v.AsAsset()
	require.NoError(t, err)
	require.Equal(t, uint32(30), asset.Value.Quantity)

	require.NoError(t, Execute(wsv, aid, Instruction{
		Kind: InstrBurn, AssetId: assetId, Quantity: &Expression{Kind: ExprRaw, Raw: ValueU32(30)},
	}))

	_, err = wsv.ExecuteQuery(QueryBox{Kind: FindAssetById, AssetId: assetId})
	require.Error(t, err)
	var coreErr *Error
	require.ErrorAs(t, err, &coreErr)
	require.Equal(t, ErrFind, coreErr.Kind)
}

func TestBurnMoreThanHeldFailsMathOverflow(t *testing.T) {
	wsv := newTestWSV()
	aid := mustRegisterDomainAndAccount(t, wsv, "wonderland", "alice")
	defId := AssetDefinitionId{Name: "rose", Domain: aid.Domain}
	require.NoError(t, Execute(wsv, aid, Instruction{
		Kind: InstrRegisterAssetDefinition, AssetDefinitionId: defId,
		AssetValueKind: AssetKindQuantity, Mintable: MintableInfinitely,
	}))
	assetId := AssetId{DefinitionId: defId, AccountId: aid}
	require.NoError(t, Execute(wsv, aid, Instruction{
		Kind: InstrMint, AssetId: assetId, Quantity: &Expression{Kind: ExprRaw, Raw: ValueU32(5)},
	}))
	err := Execute(wsv, aid, Instruction{
		Kind: InstrBurn, AssetId: assetId, Quantity: &Expression{Kind: ExprRaw, Raw: ValueU32(10)},
	})
	require.Error(t, err)
	var coreErr *Error
	require.ErrorAs(t, err, &coreErr)
	require.Equal(t, ErrMath, coreErr.Kind)
}

func TestMintableOnceRejectsSecondMint(t *testing.T) {
	wsv := newTestWSV()
	aid := mustRegisterDomainAndAccount(t, wsv, "wonderland", "alice")
	defId := AssetDefinitionId{Name: "crown", Domain: aid.Domain}
	require.NoError(t, Execute(wsv, aid, Instruction{
		Kind: InstrRegisterAssetDefinition, AssetDefinitionId: defId,
		AssetValueKind: AssetKindQuantity, Mintable: MintableOnce,
	}))
	assetId := AssetId{DefinitionId: defId, AccountId: aid}
	mint := Instruction{Kind: InstrMint, AssetId: assetId, Quantity: &Expression{Kind: ExprRaw, Raw: ValueU32(1)}}
	require.NoError(t, Execute(wsv, aid, mint))
	err := Execute(wsv, aid, mint)
	require.Error(t, err)
	var coreErr *Error
	require.ErrorAs(t, err, &coreErr)
	require.Equal(t, ErrRepetition, coreErr.Kind)
}

func TestTransferMovesAssetBetweenAccounts(t *testing.T) {
	wsv := newTestWSV()
	alice := mustRegisterDomainAndAccount(t, wsv, "wonderland", "alice")
	bobDomain := alice.Domain
	bob := AccountId{Name: "bob", Domain: bobDomain}
	require.NoError(t, Execute(wsv, alice, Instruction{Kind: InstrRegisterAccount, AccountId: bob}))

	defId := AssetDefinitionId{Name: "rose", Domain: bobDomain}
	require.NoError(t, Execute(wsv, alice, Instruction{
		Kind: InstrRegisterAssetDefinition, AssetDefinitionId: defId,
		AssetValueKind: AssetKindQuantity, Mintable: MintableInfinitely,
	}))
	aliceAsset := AssetId{DefinitionId: defId, AccountId: alice}
	bobAsset := AssetId{DefinitionId: defId, AccountId: bob}
	require.NoError(t, Execute(wsv, alice, Instruction{
		Kind: InstrMint, AssetId: aliceAsset, Quantity: &Expression{Kind: ExprRaw, Raw: ValueU32(20)},
	}))
	require.NoError(t, Execute(wsv, alice, Instruction{
		Kind: InstrTransfer, AssetId: aliceAsset, DestinationId: bobAsset,
		Quantity: &Expression{Kind: ExprRaw, Raw: ValueU32(8)},
	}))

	v, err := wsv.ExecuteQuery(QueryBox{Kind: FindAssetById, AssetId: bobAsset})
	require.NoError(t, err)
	asset, err := v.AsAsset()
	require.NoError(t, err)
	require.Equal(t, uint32(8), asset.Value.Quantity)
}

func TestTransferFailureLeavesSourceAssetUntouched(t *testing.T) {
	wsv := newTestWSV()
	alice := mustRegisterDomainAndAccount(t, wsv, "wonderland", "alice")
	bob := AccountId{Name: "bob", Domain: alice.Domain}
	require.NoError(t, Execute(wsv, alice, Instruction{Kind: InstrRegisterAccount, AccountId: bob}))

	defId := AssetDefinitionId{Name: "rose", Domain: alice.Domain}
	require.NoError(t, Execute(wsv, alice, Instruction{
		Kind: InstrRegisterAssetDefinition, AssetDefinitionId: defId,
		AssetValueKind: AssetKindQuantity, Mintable: MintableInfinitely,
	}))
	aliceAsset := AssetId{DefinitionId: defId, AccountId: alice}
	require.NoError(t, Execute(wsv, alice, Instruction{
		Kind: InstrMint, AssetId: aliceAsset, Quantity: &Expression{Kind: ExprRaw, Raw: ValueU32(20)},
	}))

	// Destination references an asset definition that was never registered,
	// so the mint side must fail before the burn side ever commits.
	unknownDefId := AssetDefinitionId{Name: "nonexistent", Domain: alice.Domain}
	bobAsset := AssetId{DefinitionId: unknownDefId, AccountId: bob}
	err := Execute(wsv, alice, Instruction{
		Kind: InstrTransfer, AssetId: aliceAsset, DestinationId: bobAsset,
		Quantity: &Expression{Kind: ExprRaw, Raw: ValueU32(8)},
	})
	require.Error(t, err)
	var coreErr *Error
	require.ErrorAs(t, err, &coreErr)
	require.Equal(t, ErrFind, coreErr.Kind)

	v, err := wsv.ExecuteQuery(QueryBox{Kind: FindAssetById, AssetId: aliceAsset})
	require.NoError(t, err)
	asset, err := v.AsAsset()
	require.NoError(t, err)
	require.Equal(t, uint32(20), asset.Value.Quantity, "failed transfer must not burn the source asset")
}

func TestGrantAndRevokeRole(t *testing.T) {
	wsv := newTestWSV()
	aid := mustRegisterDomainAndAccount(t, wsv, "wonderland", "alice")
	roleId := RoleId{Name: "admin"}
	require.NoError(t, wsv.ModifyWorld(func(w *World) ([]DataEvent, error) {
		return nil, w.registerRole(&Role{Id: roleId, Permissions: []Permission{{Name: "can_do_anything"}}})
	}))
	require.NoError(t, Execute(wsv, aid, Instruction{
		Kind: InstrGrant, GrantRevokeKind: GrantRevokeRole, Receiver: aid, RoleId: roleId,
	}))
	acc := wsv.World.Account(aid)
	require.True(t, acc.HasRole(roleId))

	require.NoError(t, Execute(wsv, aid, Instruction{
		Kind: InstrRevoke, GrantRevokeKind: GrantRevokeRole, Receiver: aid, RoleId: roleId,
	}))
	require.False(t, acc.HasRole(roleId))
}

func TestPermissionValidatorDeniesOutsideGenesis(t *testing.T) {
	wsv := newTestWSV()
	wsv.SetPermissionValidator(func(AccountId, Instruction, *WSV) error {
		return errPermission("no")
	})
	did := DomainId{Name: "wonderland"}
	aid := AccountId{Name: "alice", Domain: did}
	err := Execute(wsv, aid, Instruction{Kind: InstrRegisterDomain, DomainId: did})
	require.Error(t, err)
	var coreErr *Error
	require.ErrorAs(t, err, &coreErr)
	require.Equal(t, ErrPermissionDenied, coreErr.Kind)
}
