package agent

import (
	"AgentDeck/backend/go/internal/models"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUnknownAgent is returned when a lookup names an agent kind that was never registered.
var ErrUnknownAgent = errors.New("unknown agent type")

// LocalRegistry 在内存中存储 Agent 规格，保留注册顺序。
type LocalRegistry struct {
	specs map[models.AgentType]Spec
	order []models.AgentType
	mutex sync.RWMutex
}

// NewLocalRegistry 创建一个注册了 specs 的本地注册表实例。
func NewLocalRegistry(specs ...Spec) *LocalRegistry {
	r := &LocalRegistry{specs: make(map[models.AgentType]Spec, len(specs))}
	for _, s := range specs {
		r.Register(s)
	}
	return r
}

// NewDefaultRegistry returns a registry holding DefaultSpecs.
func NewDefaultRegistry() *LocalRegistry {
	return NewLocalRegistry(DefaultSpecs()...)
}

// Register 将一个 Agent 规格添加到注册表，同类型重复注册会覆盖旧值但不改变顺序。
func (r *LocalRegistry) Register(spec Spec) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, exists := r.specs[spec.Type]; !exists {
		r.order = append(r.order, spec.Type)
	}
	r.specs[spec.Type] = spec
}

// Get 根据类型检索一个 Agent 规格。
func (r *LocalRegistry) Get(t models.AgentType) (Spec, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	spec, found := r.specs[t]
	if !found {
		return Spec{}, fmt.Errorf("%w: %s", ErrUnknownAgent, t)
	}
	return spec, nil
}

// SetDurations overrides the simulated run time of the listed kinds.
// Zero or negative durations are ignored.
func (r *LocalRegistry) SetDurations(durations map[models.AgentType]time.Duration) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for t, d := range durations {
		spec, ok := r.specs[t]
		if !ok || d <= 0 {
			continue
		}
		spec.Duration = d
		r.specs[t] = spec
	}
}

// Types 返回按注册顺序排列的 Agent 类型。
func (r *LocalRegistry) Types() []models.AgentType {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]models.AgentType(nil), r.order...)
}

// Descriptors 返回以类型为键的描述信息表，用于 /api/agents。
func (r *LocalRegistry) Descriptors() map[models.AgentType]models.AgentDescriptor {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	out := make(map[models.AgentType]models.AgentDescriptor, len(r.specs))
	for t, s := range r.specs {
		out[t] = s.Descriptor
	}
	return out
}

// PendingStates 返回 agents 对应的初始运行状态（pending，进度 0）。
func (r *LocalRegistry) PendingStates(agents []models.AgentType) ([]models.AgentRunState, error) {
	states := make([]models.AgentRunState, 0, len(agents))
	for _, t := range agents {
		spec, err := r.Get(t)
		if err != nil {
			return nil, err
		}
		states = append(states, models.AgentRunState{
			Type:            t,
			AgentDescriptor: spec.Descriptor,
			Status:          models.AgentRunPending,
			Progress:        0,
		})
	}
	return states, nil
}
