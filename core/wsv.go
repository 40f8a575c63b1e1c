package core

import (
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// queryCacheSize bounds the per-query-shape result cache (query.go). It is
// invalidated wholesale on every published DataEvent and on every committed
// block, so it only needs to absorb repeat reads between mutations, not
// track individual entities.
const queryCacheSize = 256

// WSV is the World State View façade: the single entry point other
// subsystems (the block-commit pipeline, the query engine, the CLI) use to
// read and mutate chain state. It owns the World model, the committed
// block chain, the event bus, metrics, and the pluggable permission
// validator (spec.md Component C/D).
type WSV struct {
	World               *World
	Chain               *Chain
	Events              *EventBus
	Metrics             *Metrics
	Config              WSVConfig
	permissionValidator PermissionValidator

	applyingGenesis atomic.Bool
	blockNotifier   *blockNotifier
	queryCache      *lru.Cache[queryCacheKey, Value]
}

// NewWSV constructs an empty WSV ready to apply a genesis block.
func NewWSV(cfg WSVConfig) *WSV {
	cache, _ := lru.New[queryCacheKey, Value](queryCacheSize)
	return &WSV{
		World:               NewWorld(),
		Chain:               NewChain(),
		Events:              NewEventBus(),
		Metrics:             NewMetrics(),
		Config:              cfg,
		permissionValidator: AllowAll,
		blockNotifier:       newBlockNotifier(),
		queryCache:          cache,
	}
}

// invalidateQueryCache drops every cached query result. Called for every
// dispatched DataEvent and once per committed block (commit.go), since any
// such mutation may have changed what a cached query would return.
func (wsv *WSV) invalidateQueryCache() {
	wsv.queryCache.Purge()
}

// SetPermissionValidator replaces the policy consulted by the executor
// before every instruction (spec.md §9 redesign flag).
func (wsv *WSV) SetPermissionValidator(v PermissionValidator) {
	if v == nil {
		v = AllowAll
	}
	wsv.permissionValidator = v
}

// ApplyingGenesis reports whether the current commit is processing the
// genesis block, which a permission validator may use to bypass checks
// (SPEC_FULL.md §5 "genesis-domain privilege window").
func (wsv *WSV) ApplyingGenesis() bool { return wsv.applyingGenesis.Load() }

func (wsv *WSV) setApplyingGenesis(v bool) { wsv.applyingGenesis.Store(v) }

// NewBlockNotifications returns a channel that receives each newly
// committed block's height, plus an unsubscribe func to release it
// (SPEC_FULL.md §5, grounded on original_source's new_block_notifier).
func (wsv *WSV) NewBlockNotifications() (<-chan uint64, func()) {
	return wsv.blockNotifier.subscribe()
}

func (wsv *WSV) notifyBlock(height uint64) {
	wsv.blockNotifier.publish(height)
	wsv.publishPipeline(PipelineEvent{Kind: PipelineBlockCommitted})
}

// blockNotifier is a small bespoke fan-out broadcaster, the same shape as
// EventBus but carrying only a height — kept separate so a client that
// only cares about block progress need not filter the full event stream.
type blockNotifier struct {
	mu     sync.Mutex
	subs   map[uint64]chan uint64
	nextID uint64
}

func newBlockNotifier() *blockNotifier {
	return &blockNotifier{subs: make(map[uint64]chan uint64)}
}

func (n *blockNotifier) subscribe() (<-chan uint64, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	ch := make(chan uint64, DefaultEventBufferSize)
	n.subs[id] = ch
	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if c, ok := n.subs[id]; ok {
			close(c)
			delete(n.subs, id)
		}
	}
}

func (n *blockNotifier) publish(height uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- height:
		default:
			logrus.Warn("core: block notification dropped, subscriber channel full")
		}
	}
}

// ModifyWorld runs f against the world, publishing whatever DataEvents it
// returns on success. Used for world-scoped registrations: domains, roles,
// trusted peers, triggers (spec.md §4.2 "modify_X" pattern).
func (wsv *WSV) ModifyWorld(f func(*World) ([]DataEvent, error)) error {
	events, err := f(wsv.World)
	if err != nil {
		return err
	}
	for _, e := range events {
		wsv.dispatchDataEvent(e)
		wsv.Events.PublishData(e)
	}
	return nil
}

// ModifyDomain resolves id then runs f against the domain, publishing
// whatever DataEvents it returns on success.
func (wsv *WSV) ModifyDomain(id DomainId, f func(*Domain) ([]DataEvent, error)) error {
	d := wsv.World.Domain(id)
	if d == nil {
		return errFind(FindDomain, id)
	}
	events, err := f(d)
	if err != nil {
		return err
	}
	for _, e := range events {
		wsv.dispatchDataEvent(e)
		wsv.Events.PublishData(e)
	}
	return nil
}

// ModifyAccount resolves id through its domain then runs f against the
// account, publishing whatever DataEvents it returns on success. Lock
// acquisition order is world shard -> domain -> account, never reversed
// (spec.md §5).
func (wsv *WSV) ModifyAccount(id AccountId, f func(*Account) ([]DataEvent, error)) error {
	acc := wsv.World.Account(id)
	if acc == nil {
		return errFind(FindAccount, id)
	}
	events, err := f(acc)
	if err != nil {
		return err
	}
	for _, e := range events {
		wsv.dispatchDataEvent(e)
		wsv.Events.PublishData(e)
	}
	return nil
}
