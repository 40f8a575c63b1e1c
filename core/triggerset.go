package core

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// TriggerSet is the registry of triggers visible to World.Triggers. It both
// stores triggers and matches them against events during block commit
// (spec.md §4.6).
//
// ExecuteTrigger events raised by a transaction's own instructions fire
// within the same block (see executor.go's Execute). Only events raised
// while a trigger's own action is running are queued here, to be drained
// at the start of the next block's commit (spec.md §4.6 scenario 5).
type TriggerSet struct {
	mu             sync.RWMutex
	triggers       map[string]*Trigger
	pendingExecute []ExecuteTriggerEvent
}

// NewTriggerSet constructs an empty set.
func NewTriggerSet() *TriggerSet {
	return &TriggerSet{triggers: make(map[string]*Trigger)}
}

// Register inserts t, failing Repetition on id collision. A trigger
// registered with an empty Id.Name is assigned a random uuid-based name,
// covering callers (the CLI, ad-hoc scripted triggers) that don't care
// about a human-chosen one.
func (ts *TriggerSet) Register(t Trigger) (TriggerId, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if t.Id.Name == "" {
		t.Id.Name = Name("trigger-" + uuid.NewString())
	}
	key := t.Id.String()
	if _, exists := ts.triggers[key]; exists {
		return TriggerId{}, errRepetition("Register<Trigger>", key)
	}
	cp := t
	ts.triggers[key] = &cp
	return t.Id, nil
}

// Unregister removes id, failing Find if absent.
func (ts *TriggerSet) Unregister(id TriggerId) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	key := id.String()
	if _, exists := ts.triggers[key]; !exists {
		return errFind(FindTrigger, id)
	}
	delete(ts.triggers, key)
	return nil
}

// Get returns a copy of the trigger registered under id, or nil.
func (ts *TriggerSet) Get(id TriggerId) *Trigger {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	t, ok := ts.triggers[id.String()]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

// Ids lists every registered trigger id, sorted.
func (ts *TriggerSet) Ids() []TriggerId {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	out := make([]TriggerId, 0, len(ts.triggers))
	for _, t := range ts.triggers {
		out = append(out, t.Id)
	}
	SortByStringer(out)
	return out
}

// MatchData returns every non-expired trigger whose filter matches e.
func (ts *TriggerSet) MatchData(e DataEvent) []*Trigger {
	return ts.match(func(f EventFilter) bool {
		return f.Kind == FilterData && f.Data.matches(e)
	})
}

// MatchPipeline returns every non-expired trigger whose filter matches e.
func (ts *TriggerSet) MatchPipeline(e PipelineEvent) []*Trigger {
	return ts.match(func(f EventFilter) bool {
		return f.Kind == FilterPipeline && f.Pipeline.matches(e)
	})
}

// MatchTime returns every non-expired trigger whose schedule fires within
// the interval described by e.
func (ts *TriggerSet) MatchTime(e TimeEvent) []*Trigger {
	return ts.match(func(f EventFilter) bool {
		return f.Kind == FilterTime && f.Time.matches(e)
	})
}

// MatchExecuteTrigger returns every non-expired trigger addressed by e.
func (ts *TriggerSet) MatchExecuteTrigger(e ExecuteTriggerEvent) []*Trigger {
	return ts.match(func(f EventFilter) bool {
		return f.Kind == FilterExecuteTrigger && f.ExecuteTrigger.matches(e)
	})
}

func (ts *TriggerSet) match(pred func(EventFilter) bool) []*Trigger {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	out := make([]*Trigger, 0)
	for _, t := range ts.triggers {
		if t.Action.Repeats.Expired() {
			continue
		}
		if pred(t.Action.Filter) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id.String() < out[j].Id.String() })
	return out
}

// Fire decrements id's remaining repeat count, unregistering it if that
// exhausts its Repeats (spec.md §4.5). Firing an unknown id is a no-op.
func (ts *TriggerSet) Fire(id TriggerId) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	key := id.String()
	t, ok := ts.triggers[key]
	if !ok {
		return
	}
	t.Action.Repeats = t.Action.Repeats.Decrement()
	if t.Action.Repeats.Expired() {
		delete(ts.triggers, key)
	}
}

// QueueExecuteTrigger defers e to the next block's commit.
func (ts *TriggerSet) QueueExecuteTrigger(e ExecuteTriggerEvent) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.pendingExecute = append(ts.pendingExecute, e)
}

// DrainPendingExecuteTriggers removes and returns every ExecuteTrigger event
// queued since the last drain, in FIFO order.
func (ts *TriggerSet) DrainPendingExecuteTriggers() []ExecuteTriggerEvent {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	out := ts.pendingExecute
	ts.pendingExecute = nil
	return out
}
