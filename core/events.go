package core

// EntityKind names the kind of world entity a DataEvent concerns.
type EntityKind uint8

const (
	EntityDomain EntityKind = iota
	EntityAccount
	EntityAsset
	EntityAssetDefinition
	EntityRole
	EntityPeer
	EntityTrigger
)

// DataEventStatus names the kind of change a DataEvent reports.
type DataEventStatus uint8

const (
	StatusCreated DataEventStatus = iota
	StatusDeleted
	StatusAdded
	StatusRemoved
	StatusMetadataInserted
	StatusMetadataRemoved
	StatusRoleGranted
	StatusRoleRevoked
	StatusPermissionGranted
	StatusPermissionRevoked
	StatusAuthenticationAdded
)

// DataEvent reports a single change to a world entity. Composite mutations
// (e.g. minting an asset that did not previously exist) emit a slice of
// DataEvents ordered specific-before-general — an AssetEvent::Created
// ahead of the AccountEvent it is nested under in the original model
// (spec.md §4.3 "Event order").
type DataEvent struct {
	EntityKind EntityKind
	EntityId   string
	Status     DataEventStatus
	Amount     Value // populated for StatusAdded/StatusRemoved on assets
}

// PipelineEventKind names the stage a transaction or block has reached.
type PipelineEventKind uint8

const (
	PipelineTransactionAccepted PipelineEventKind = iota
	PipelineTransactionRejected
	PipelineBlockCommitted
)

// PipelineEvent reports transaction/block lifecycle progress.
type PipelineEvent struct {
	Kind   PipelineEventKind
	Hash   Hash
	Reason string
}

// TimeInterval is a half-open window [SinceMs, SinceMs+LengthMs) in
// milliseconds since the epoch.
type TimeInterval struct {
	SinceMs  int64
	LengthMs int64
}

// TimeEvent is derived on every block commit from the previous and current
// block headers (spec.md §4.3 step 1). HasPrev is false only for the
// genesis block.
type TimeEvent struct {
	HasPrev      bool
	PrevInterval TimeInterval
	Interval     TimeInterval
}

// ExecuteTriggerEvent is produced by the ExecuteTrigger instruction and
// consumed by the trigger dispatcher (spec.md §4.4, §4.6).
type ExecuteTriggerEvent struct {
	TriggerId TriggerId
	Authority AccountId
}

// FilterKind tags which of Data/Pipeline/Time/ExecuteTrigger a Trigger's
// EventFilter matches against.
type FilterKind uint8

const (
	FilterData FilterKind = iota
	FilterPipeline
	FilterTime
	FilterExecuteTrigger
)

// DataEventFilter matches a DataEvent. A zero-value bool "MatchAny*" field
// means that dimension is unconstrained.
type DataEventFilter struct {
	MatchAnyEntityKind bool
	EntityKind         EntityKind
	MatchAnyStatus     bool
	Status             DataEventStatus
	MatchAnyId         bool
	EntityId           string
}

func (f DataEventFilter) matches(e DataEvent) bool {
	if !f.MatchAnyEntityKind && f.EntityKind != e.EntityKind {
		return false
	}
	if !f.MatchAnyStatus && f.Status != e.Status {
		return false
	}
	if !f.MatchAnyId && f.EntityId != e.EntityId {
		return false
	}
	return true
}

// PipelineEventFilter matches a PipelineEvent.
type PipelineEventFilter struct {
	MatchAnyKind bool
	Kind         PipelineEventKind
	MatchAnyHash bool
	Hash         Hash
}

func (f PipelineEventFilter) matches(e PipelineEvent) bool {
	if !f.MatchAnyKind && f.Kind != e.Kind {
		return false
	}
	if !f.MatchAnyHash && f.Hash != e.Hash {
		return false
	}
	return true
}

// TimeScheduleFilter fires once at StartMs if PeriodMs is zero, otherwise
// at StartMs, StartMs+PeriodMs, StartMs+2*PeriodMs, ...
type TimeScheduleFilter struct {
	StartMs  int64
	PeriodMs int64
}

// matches reports whether any scheduled instant falls within the event's
// half-open interval.
func (f TimeScheduleFilter) matches(e TimeEvent) bool {
	lo, hi := e.Interval.SinceMs, e.Interval.SinceMs+e.Interval.LengthMs
	if f.PeriodMs <= 0 {
		return f.StartMs >= lo && f.StartMs < hi
	}
	if hi <= f.StartMs {
		return false
	}
	// First scheduled instant >= lo.
	delta := lo - f.StartMs
	var k int64
	if delta > 0 {
		k = (delta + f.PeriodMs - 1) / f.PeriodMs
	}
	instant := f.StartMs + k*f.PeriodMs
	return instant >= lo && instant < hi
}

// ExecuteTriggerFilter matches an ExecuteTriggerEvent.
type ExecuteTriggerFilter struct {
	TriggerId     TriggerId
	AnyAuthority  bool
	Authority     AccountId
}

func (f ExecuteTriggerFilter) matches(e ExecuteTriggerEvent) bool {
	if f.TriggerId != e.TriggerId {
		return false
	}
	return f.AnyAuthority || f.Authority == e.Authority
}

// EventFilter is a trigger's tagged filter (spec.md §3: "Data(predicate),
// Pipeline(predicate), Time(schedule), ExecuteTrigger(...)").
type EventFilter struct {
	Kind           FilterKind
	Data           DataEventFilter
	Pipeline       PipelineEventFilter
	Time           TimeScheduleFilter
	ExecuteTrigger ExecuteTriggerFilter
}
