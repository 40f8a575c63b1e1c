package core

import (
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// SupportedVersionRange is the inclusive [min, max] range of envelope
// versions this build's decoder accepts (spec.md §6).
var SupportedVersionRange = [2]byte{1, 1}

// CurrentVersion is the version byte written by this build's encoder.
const CurrentVersion byte = 1

// EncodeEnvelope prefixes an RLP-encoded payload with a 1-byte version,
// producing the wire format persisted by Kura and exchanged with clients.
func EncodeEnvelope(payload interface{}) ([]byte, error) {
	body, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, CurrentVersion)
	out = append(out, body...)
	return out, nil
}

// DecodeEnvelope strips and checks the version byte, then RLP-decodes the
// remainder into out.
func DecodeEnvelope(data []byte, out interface{}) error {
	if len(data) < 1 {
		return errValidate("envelope: empty input")
	}
	version := data[0]
	if version < SupportedVersionRange[0] || version > SupportedVersionRange[1] {
		return &Error{Kind: ErrValidate, Message: fmt.Sprintf("UnsupportedVersion %d", version)}
	}
	if err := rlp.DecodeBytes(data[1:], out); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	return nil
}

// valueWire is the flat, RLP-friendly mirror of Value. Every field is
// present regardless of Kind; FromWire consults Kind to know which fields
// are meaningful. This avoids optional/pointer fields, which RLP handles
// awkwardly, at the cost of a little wasted space — acceptable for a value
// type this small.
type valueWire struct {
	Kind              Kind
	U32               uint32
	U128              *big.Int
	FixedVal          Fixed
	Bool              bool
	Str               string
	NameVal           Name
	Vec               []valueWire
	MetadataEntries   []metadataEntryWire
	PublicKeyVal      PublicKey
	HashVal           Hash
	ParameterVal      parameterWire
	PermissionVal     Permission
	DomainIdVal       DomainId
	AccountIdVal      AccountId
	AssetIdVal        AssetId
	AssetDefIdVal     AssetDefinitionId
	RoleIdVal         RoleId
	TriggerIdVal      TriggerId
	PeerIdVal         PeerId
	DomainVal         DomainSnapshot
	AccountVal        AccountSnapshot
	AssetVal          Asset
	RoleVal           Role
}

type metadataEntryWire struct {
	Key   Name
	Value valueWire
}

type parameterWire struct {
	Name  string
	Value valueWire
}

func (v Value) toWire() valueWire {
	w := valueWire{Kind: v.kind, U128: big.NewInt(0)}
	switch v.kind {
	case KindU32:
		w.U32, _ = v.AsU32()
	case KindU128:
		w.U128 = v.payload.(*big.Int)
	case KindFixed:
		w.FixedVal = v.payload.(Fixed)
	case KindBool:
		w.Bool, _ = v.AsBool()
	case KindString:
		w.Str, _ = v.AsString()
	case KindName:
		w.NameVal, _ = v.AsName()
	case KindVec:
		items, _ := v.AsVec()
		w.Vec = make([]valueWire, len(items))
		for i, it := range items {
			w.Vec[i] = it.toWire()
		}
	case KindMetadata:
		md, _ := v.AsMetadata()
		keys := make([]Name, 0, len(md))
		for k := range md {
			keys = append(keys, k)
		}
		SortByStringer(keys)
		w.MetadataEntries = make([]metadataEntryWire, len(keys))
		for i, k := range keys {
			w.MetadataEntries[i] = metadataEntryWire{Key: k, Value: md[k].toWire()}
		}
	case KindPublicKey:
		w.PublicKeyVal = v.payload.(PublicKey)
	case KindHash:
		w.HashVal = v.payload.(Hash)
	case KindParameter:
		p := v.payload.(Parameter)
		w.ParameterVal = parameterWire{Name: p.Name, Value: p.Value.toWire()}
	case KindPermission:
		w.PermissionVal = v.payload.(Permission)
	case KindDomainId:
		w.DomainIdVal = v.payload.(DomainId)
	case KindAccountId:
		w.AccountIdVal = v.payload.(AccountId)
	case KindAssetId:
		w.AssetIdVal = v.payload.(AssetId)
	case KindAssetDefinitionId:
		w.AssetDefIdVal = v.payload.(AssetDefinitionId)
	case KindRoleId:
		w.RoleIdVal = v.payload.(RoleId)
	case KindTriggerId:
		w.TriggerIdVal = v.payload.(TriggerId)
	case KindPeerId:
		w.PeerIdVal = v.payload.(PeerId)
	case KindDomain:
		w.DomainVal = v.payload.(DomainSnapshot)
	case KindAccount:
		w.AccountVal = v.payload.(AccountSnapshot)
	case KindAsset:
		w.AssetVal = v.payload.(Asset)
	case KindRole:
		w.RoleVal = v.payload.(Role)
	}
	return w
}

func (w valueWire) fromWire() Value {
	switch w.Kind {
	case KindU32:
		return ValueU32(w.U32)
	case KindU128:
		return ValueU128(w.U128)
	case KindFixed:
		return ValueFixed(w.FixedVal)
	case KindBool:
		return ValueBool(w.Bool)
	case KindString:
		return ValueString(w.Str)
	case KindName:
		return ValueName(w.NameVal)
	case KindVec:
		items := make([]Value, len(w.Vec))
		for i, it := range w.Vec {
			items[i] = it.fromWire()
		}
		return ValueVec(items)
	case KindMetadata:
		md := NewMetadata()
		for _, e := range w.MetadataEntries {
			md[e.Key] = e.Value.fromWire()
		}
		return ValueMetadata(md)
	case KindPublicKey:
		return ValuePublicKey(w.PublicKeyVal)
	case KindHash:
		return ValueHash(w.HashVal)
	case KindParameter:
		return ValueParameter(Parameter{Name: w.ParameterVal.Name, Value: w.ParameterVal.Value.fromWire()})
	case KindPermission:
		return ValuePermission(w.PermissionVal)
	case KindDomainId:
		return ValueDomainId(w.DomainIdVal)
	case KindAccountId:
		return ValueAccountId(w.AccountIdVal)
	case KindAssetId:
		return ValueAssetId(w.AssetIdVal)
	case KindAssetDefinitionId:
		return ValueAssetDefinitionId(w.AssetDefIdVal)
	case KindRoleId:
		return ValueRoleId(w.RoleIdVal)
	case KindTriggerId:
		return ValueTriggerId(w.TriggerIdVal)
	case KindPeerId:
		return ValuePeerId(w.PeerIdVal)
	case KindDomain:
		return ValueDomain(w.DomainVal)
	case KindAccount:
		return ValueAccount(w.AccountVal)
	case KindAsset:
		return ValueAsset(w.AssetVal)
	case KindRole:
		return ValueRole(w.RoleVal)
	default:
		return Value{}
	}
}

// EncodeRLP implements rlp.Encoder so Value nests naturally inside any
// larger RLP-encoded structure (Instruction operands, query results, …).
func (v Value) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, v.toWire())
}

// DecodeRLP implements rlp.Decoder, the mirror of EncodeRLP.
func (v *Value) DecodeRLP(s *rlp.Stream) error {
	var w valueWire
	if err := s.Decode(&w); err != nil {
		return err
	}
	*v = w.fromWire()
	return nil
}

// EncodeValue returns the versioned wire encoding of a single Value,
// usable independently of a larger envelope (e.g. for metadata size
// accounting).
func EncodeValue(v Value) ([]byte, error) { return EncodeEnvelope(v.toWire()) }

// DecodeValue is the mirror of EncodeValue.
func DecodeValue(data []byte) (Value, error) {
	var w valueWire
	if err := DecodeEnvelope(data, &w); err != nil {
		return Value{}, err
	}
	return w.fromWire(), nil
}

// encodedSize returns the byte length of v's RLP wire representation
// (version byte excluded), used to enforce MetadataLimits.MaxEntryBytes.
func encodedSize(v Value) (int, error) {
	body, err := rlp.EncodeToBytes(v.toWire())
	if err != nil {
		return 0, err
	}
	return len(body), nil
}
