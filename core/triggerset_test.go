package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTriggerSetRegisterAssignsNameWhenEmpty(t *testing.T) {
	ts := NewTriggerSet()
	id, err := ts.Register(Trigger{Action: Action{Repeats: Repeats{Kind: RepeatsIndefinitely}}})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(id.Name), "trigger-"))
	require.NotNil(t, ts.Get(id))
}

func TestTriggerSetRegisterDuplicateIdFailsRepetition(t *testing.T) {
	ts := NewTriggerSet()
	id := TriggerId{Name: "once"}
	_, err := ts.Register(Trigger{Id: id})
	require.NoError(t, err)
	_, err = ts.Register(Trigger{Id: id})
	require.Error(t, err)
	var coreErr *Error
	require.ErrorAs(t, err, &coreErr)
	require.Equal(t, ErrRepetition, coreErr.Kind)
}

func TestTriggerSetMatchDataHonorsFilter(t *testing.T) {
	ts := NewTriggerSet()
	matchId := TriggerId{Name: "on-domain-created"}
	_, err := ts.Register(Trigger{
		Id: matchId,
		Action: Action{
			Repeats: Repeats{Kind: RepeatsIndefinitely},
			Filter: EventFilter{
				Kind: FilterData,
				Data: DataEventFilter{EntityKind: EntityDomain, Status: StatusCreated, MatchAnyId: true},
			},
		},
	})
	require.NoError(t, err)
	_, err = ts.Register(Trigger{
		Id: TriggerId{Name: "on-account-created"},
		Action: Action{
			Repeats: Repeats{Kind: RepeatsIndefinitely},
			Filter: EventFilter{
				Kind: FilterData,
				Data: DataEventFilter{EntityKind: EntityAccount, Status: StatusCreated, MatchAnyId: true},
			},
		},
	})
	require.NoError(t, err)

	matched := ts.MatchData(DataEvent{EntityKind: EntityDomain, Status: StatusCreated, EntityId: "wonderland"})
	require.Len(t, matched, 1)
	require.Equal(t, matchId, matched[0].Id)
}

func TestTriggerSetFireExhaustsRepeatsExactly(t *testing.T) {
	ts := NewTriggerSet()
	id := TriggerId{Name: "one-shot"}
	_, err := ts.Register(Trigger{Id: id, Action: Action{Repeats: Repeats{Kind: RepeatsExactly, Count: 1}}})
	require.NoError(t, err)
	require.NotNil(t, ts.Get(id))
	ts.Fire(id)
	require.Nil(t, ts.Get(id))
}

// A transaction that issues ExecuteTrigger(T) runs T within the same block
// (spec.md §4.6 scenario 5, first half).
func TestExecuteTriggerFromTransactionRunsSameBlock(t *testing.T) {
	wsv := newTestWSV()
	aid := mustRegisterDomainAndAccount(t, wsv, "wonderland", "alice")
	defId := AssetDefinitionId{Name: "rose", Domain: aid.Domain}
	require.NoError(t, Execute(wsv, aid, Instruction{
		Kind: InstrRegisterAssetDefinition, AssetDefinitionId: defId,
		AssetValueKind: AssetKindQuantity, Mintable: MintableInfinitely,
	}))
	assetId := AssetId{DefinitionId: defId, AccountId: aid}

	triggerId := TriggerId{Name: "mint-on-demand"}
	err := wsv.ModifyWorld(func(w *World) ([]DataEvent, error) {
		_, rerr := w.Triggers.Register(Trigger{
			Id: triggerId,
			Action: Action{
				Repeats:          Repeats{Kind: RepeatsIndefinitely},
				TechnicalAccount: aid,
				Filter:           EventFilter{Kind: FilterExecuteTrigger, ExecuteTrigger: ExecuteTriggerFilter{TriggerId: triggerId, AnyAuthority: true}},
				Executable: Executable{Instructions: []Instruction{
					{Kind: InstrMint, AssetId: assetId, Quantity: &Expression{Kind: ExprRaw, Raw: ValueU32(1)}},
				}},
			},
		})
		return nil, rerr
	})
	require.NoError(t, err)

	execTx := Transaction{
		Hash:        Hash{0xe1},
		AuthorityId: aid,
		Instructions: []Instruction{
			{Kind: InstrExecuteTrigger, ExecuteTriggerId: triggerId, ExecuteAuthority: aid},
		},
	}
	header2 := BlockHeader{Height: wsv.Chain.Height() + 1, TimestampMs: 1}
	if prev, ok := wsv.Chain.ByHeight(header2.Height - 1); ok {
		header2.PrevHash = prev.ComputeHash()
	}
	_, err = ApplyBlock(wsv, header2, []Transaction{execTx})
	require.NoError(t, err)

	// Raised by a transaction instruction: must already have fired.
	v, err := wsv.ExecuteQuery(QueryBox{Kind: FindAssetById, AssetId: assetId})
	require.NoError(t, err)
	asset, err := v.AsAsset()
	require.NoError(t, err)
	require.Equal(t, uint32(1), asset.Value.Quantity)
}

// A trigger that itself issues ExecuteTrigger(U) causes U to run in the
// next block, never the block that invoked it (spec.md §4.6 scenario 5,
// second half).
func TestExecuteTriggerFromTriggerDefersToNextBlock(t *testing.T) {
	wsv := newTestWSV()
	aid := mustRegisterDomainAndAccount(t, wsv, "wonderland", "alice")
	defId := AssetDefinitionId{Name: "rose", Domain: aid.Domain}
	require.NoError(t, Execute(wsv, aid, Instruction{
		Kind: InstrRegisterAssetDefinition, AssetDefinitionId: defId,
		AssetValueKind: AssetKindQuantity, Mintable: MintableInfinitely,
	}))
	assetId := AssetId{DefinitionId: defId, AccountId: aid}

	innerId := TriggerId{Name: "mint-on-demand"}
	outerId := TriggerId{Name: "relay"}
	err := wsv.ModifyWorld(func(w *World) ([]DataEvent, error) {
		if _, rerr := w.Triggers.Register(Trigger{
			Id: innerId,
			Action: Action{
				Repeats:          Repeats{Kind: RepeatsIndefinitely},
				TechnicalAccount: aid,
				Filter:           EventFilter{Kind: FilterExecuteTrigger, ExecuteTrigger: ExecuteTriggerFilter{TriggerId: innerId, AnyAuthority: true}},
				Executable: Executable{Instructions: []Instruction{
					{Kind: InstrMint, AssetId: assetId, Quantity: &Expression{Kind: ExprRaw, Raw: ValueU32(1)}},
				}},
			},
		}); rerr != nil {
			return nil, rerr
		}
		_, rerr := w.Triggers.Register(Trigger{
			Id: outerId,
			Action: Action{
				Repeats:          Repeats{Kind: RepeatsIndefinitely},
				TechnicalAccount: aid,
				Filter:           EventFilter{Kind: FilterTime, Time: TimeScheduleFilter{StartMs: 0}},
				Executable: Executable{Instructions: []Instruction{
					{Kind: InstrExecuteTrigger, ExecuteTriggerId: innerId, ExecuteAuthority: aid},
				}},
			},
		})
		return nil, rerr
	})
	require.NoError(t, err)

	header2 := BlockHeader{Height: wsv.Chain.Height() + 1, TimestampMs: 1}
	if prev, ok := wsv.Chain.ByHeight(header2.Height - 1); ok {
		header2.PrevHash = prev.ComputeHash()
	}
	_, err = ApplyBlock(wsv, header2, nil)
	require.NoError(t, err)

	// outerId's TimeEvent firing queued ExecuteTrigger(innerId); it must
	// not have run within the same block that queued it.
	_, err = wsv.ExecuteQuery(QueryBox{Kind: FindAssetById, AssetId: assetId})
	require.Error(t, err)

	header3 := BlockHeader{Height: wsv.Chain.Height() + 1, TimestampMs: 2}
	if prev, ok := wsv.Chain.ByHeight(header3.Height - 1); ok {
		header3.PrevHash = prev.ComputeHash()
	}
	_, err = ApplyBlock(wsv, header3, nil)
	require.NoError(t, err)

	v, err := wsv.ExecuteQuery(QueryBox{Kind: FindAssetById, AssetId: assetId})
	require.NoError(t, err)
	asset, err := v.AsAsset()
	require.NoError(t, err)
	require.Equal(t, uint32(1), asset.Value.Quantity)
}
