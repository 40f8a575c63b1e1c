package core

import (
	"io"

	"github.com/ethereum/go-ethereum/rlp"
)

// InstructionKind tags an Instruction variant (spec.md Component E).
type InstructionKind uint8

const (
	InstrRegisterDomain InstructionKind = iota
	InstrUnregisterDomain
	InstrRegisterAccount
	InstrUnregisterAccount
	InstrRegisterAssetDefinition
	InstrUnregisterAssetDefinition
	InstrRegisterRole
	InstrUnregisterRole
	InstrRegisterTrigger
	InstrUnregisterTrigger
	InstrRegisterPeer
	InstrUnregisterPeer
	InstrMint
	InstrBurn
	InstrTransfer
	InstrSetKeyValue
	InstrRemoveKeyValue
	InstrGrant
	InstrRevoke
	InstrIf
	InstrPair
	InstrSequence
	InstrFail
	InstrExpression
	InstrExecuteTrigger
)

// GrantRevokeKind tags what a Grant/Revoke instruction targets.
type GrantRevokeKind uint8

const (
	GrantRevokePermission GrantRevokeKind = iota
	GrantRevokeRole
)

// Instruction is the closed set of state-mutating operations the executor
// applies (spec.md §4.4). As with QueryBox and Expression, only the fields
// relevant to Kind are populated; operands needing a dynamic value (e.g. a
// mint quantity computed from a query) are themselves Expressions, never
// bare constants.
type Instruction struct {
	Kind InstructionKind

	// Register/Unregister operands.
	DomainId          DomainId
	AccountSignatories []PublicKey
	AccountId         AccountId
	AssetDefinitionId AssetDefinitionId
	AssetValueKind    AssetValueKind
	Mintable          Mintability
	RoleId            RoleId
	RolePermissions   []Permission
	Trigger           Trigger
	PeerId            PeerId

	// Mint/Burn/Transfer operands.
	AssetId         AssetId
	DestinationId   AssetId
	Quantity        *Expression

	// SetKeyValue/RemoveKeyValue operands: the target is one of Domain,
	// Account, or Asset-as-Store, discriminated by which id field is set.
	TargetDomain  DomainId
	TargetAccount AccountId
	TargetAsset   AssetId
	HasDomain     bool
	HasAccount    bool
	HasAsset      bool
	MetaKey       Name
	MetaValue     *Expression

	// Grant/Revoke operands.
	GrantRevokeKind GrantRevokeKind
	Receiver        AccountId
	Permission      Permission

	// If/Pair/Sequence/Fail/Expression operands.
	Condition   *Expression
	Then        *Instruction
	HasElse     bool
	Else        *Instruction
	Left        *Instruction
	Right       *Instruction
	Sequence    []Instruction
	FailMessage string
	Expr        *Expression

	// ExecuteTrigger operand; ExecuteTriggerId also names the target of
	// Unregister<Trigger>, which needs nothing else.
	ExecuteTriggerId  TriggerId
	ExecuteAuthority  AccountId
}

// --- wire encoding ---------------------------------------------------------

type instructionWire struct {
	Kind               InstructionKind
	DomainIdVal        DomainId
	AccountSignatories []PublicKey
	AccountIdVal       AccountId
	AssetDefinitionIdVal AssetDefinitionId
	AssetValueKindVal  AssetValueKind
	MintableVal        Mintability
	RoleIdVal          RoleId
	RolePermissions    []Permission
	TriggerVal         Trigger
	PeerIdVal          PeerId
	AssetIdVal         AssetId
	DestinationIdVal   AssetId
	Quantity           []expressionWire
	TargetDomain       DomainId
	TargetAccount      AccountId
	TargetAsset        AssetId
	HasDomain          bool
	HasAccount         bool
	HasAsset           bool
	MetaKey            Name
	MetaValue          []expressionWire
	GrantRevokeKindVal GrantRevokeKind
	Receiver           AccountId
	PermissionVal      Permission
	Condition          []expressionWire
	Then               []instructionWire
	HasElse            bool
	Else               []instructionWire
	Left               []instructionWire
	Right              []instructionWire
	Sequence           []instructionWire
	FailMessage        string
	Expr               []expressionWire
	ExecuteTriggerId   TriggerId
	ExecuteAuthority   AccountId
}

func singleInstr(i *Instruction) []instructionWire {
	if i == nil {
		return nil
	}
	return []instructionWire{i.toWire()}
}

func fromSingleInstr(s []instructionWire) *Instruction {
	if len(s) == 0 {
		return nil
	}
	i := s[0].fromWire()
	return &i
}

func (i Instruction) toWire() instructionWire {
	seq := make([]instructionWire, len(i.Sequence))
	for idx, s := range i.Sequence {
		seq[idx] = s.toWire()
	}
	return instructionWire{
		Kind:                 i.Kind,
		DomainIdVal:          i.DomainId,
		AccountSignatories:   i.AccountSignatories,
		AccountIdVal:         i.AccountId,
		AssetDefinitionIdVal: i.AssetDefinitionId,
		AssetValueKindVal:    i.AssetValueKind,
		MintableVal:          i.Mintable,
		RoleIdVal:            i.RoleId,
		RolePermissions:      i.RolePermissions,
		TriggerVal:           i.Trigger,
		PeerIdVal:            i.PeerId,
		AssetIdVal:           i.AssetId,
		DestinationIdVal:     i.DestinationId,
		Quantity:             single(i.Quantity),
		TargetDomain:         i.TargetDomain,
		TargetAccount:        i.TargetAccount,
		TargetAsset:          i.TargetAsset,
		HasDomain:            i.HasDomain,
		HasAccount:           i.HasAccount,
		HasAsset:             i.HasAsset,
		MetaKey:              i.MetaKey,
		MetaValue:            single(i.MetaValue),
		GrantRevokeKindVal:   i.GrantRevokeKind,
		Receiver:             i.Receiver,
		PermissionVal:        i.Permission,
		Condition:            single(i.Condition),
		Then:                 singleInstr(i.Then),
		HasElse:              i.HasElse,
		Else:                 singleInstr(i.Else),
		Left:                 singleInstr(i.Left),
		Right:                singleInstr(i.Right),
		Sequence:             seq,
		FailMessage:          i.FailMessage,
		Expr:                 single(i.Expr),
		ExecuteTriggerId:     i.ExecuteTriggerId,
		ExecuteAuthority:     i.ExecuteAuthority,
	}
}

func (w instructionWire) fromWire() Instruction {
	seq := make([]Instruction, len(w.Sequence))
	for idx, s := range w.Sequence {
		seq[idx] = s.fromWire()
	}
	return Instruction{
		Kind:               w.Kind,
		DomainId:           w.DomainIdVal,
		AccountSignatories: w.AccountSignatories,
		AccountId:          w.AccountIdVal,
		AssetDefinitionId:  w.AssetDefinitionIdVal,
		AssetValueKind:     w.AssetValueKindVal,
		Mintable:           w.MintableVal,
		RoleId:             w.RoleIdVal,
		RolePermissions:    w.RolePermissions,
		Trigger:            w.TriggerVal,
		PeerId:             w.PeerIdVal,
		AssetId:            w.AssetIdVal,
		DestinationId:      w.DestinationIdVal,
		Quantity:           fromSingle(w.Quantity),
		TargetDomain:       w.TargetDomain,
		TargetAccount:      w.TargetAccount,
		TargetAsset:        w.TargetAsset,
		HasDomain:          w.HasDomain,
		HasAccount:         w.HasAccount,
		HasAsset:           w.HasAsset,
		MetaKey:            w.MetaKey,
		MetaValue:          fromSingle(w.MetaValue),
		GrantRevokeKind:    w.GrantRevokeKindVal,
		Receiver:           w.Receiver,
		Permission:         w.PermissionVal,
		Condition:          fromSingle(w.Condition),
		Then:               fromSingleInstr(w.Then),
		HasElse:            w.HasElse,
		Else:               fromSingleInstr(w.Else),
		Left:               fromSingleInstr(w.Left),
		Right:              fromSingleInstr(w.Right),
		Sequence:           seq,
		FailMessage:        w.FailMessage,
		Expr:               fromSingle(w.Expr),
		ExecuteTriggerId:   w.ExecuteTriggerId,
		ExecuteAuthority:   w.ExecuteAuthority,
	}
}

func (i Instruction) EncodeRLP(w io.Writer) error { return rlp.Encode(w, i.toWire()) }

func (i *Instruction) DecodeRLP(s *rlp.Stream) error {
	var w instructionWire
	if err := s.Decode(&w); err != nil {
		return err
	}
	*i = w.fromWire()
	return nil
}
