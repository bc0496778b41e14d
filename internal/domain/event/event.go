// Package event defines the closed set of events consumed by the aggregator.
//
// Target and Event are sealed: only the variants declared in this package
// implement them, so type switches over them are exhaustive.
package event

import (
	"github.com/dreschagin/health-checker/internal/domain/entity"
	"github.com/dreschagin/health-checker/internal/domain/valueobject"
)

// TargetKind distinguishes node and service targets.
type TargetKind string

const (
	TargetNode    TargetKind = "node"
	TargetService TargetKind = "service"
)

// Target identifies what a finding or offline notice is about.
type Target interface {
	ID() string
	Kind() TargetKind
	isTarget()
}

// NodeTarget references a node by hostname. Node is nil for identity-only notices.
type NodeTarget struct {
	Name string
	Node *entity.Node
}

func (t NodeTarget) ID() string       { return t.Name }
func (t NodeTarget) Kind() TargetKind { return TargetNode }
func (NodeTarget) isTarget()          {}

// ServiceTarget references a service by name. Service is nil for identity-only notices.
type ServiceTarget struct {
	Name    string
	Service *entity.Service
}

func (t ServiceTarget) ID() string       { return t.Name }
func (t ServiceTarget) Kind() TargetKind { return TargetService }
func (ServiceTarget) isTarget()          {}

// NodeRef builds an identity-only node target.
func NodeRef(id string) NodeTarget {
	return NodeTarget{Name: id}
}

// ServiceRef builds an identity-only service target.
func ServiceRef(name string) ServiceTarget {
	return ServiceTarget{Name: name}
}

// Finding pairs a target with its severity. The diagnostic text travels on the
// attached snapshot's StatusMsg.
type Finding struct {
	Target   Target
	Severity valueobject.Severity
}

// NewNodeFinding copies the snapshot so later mutation by the producer is not observed.
func NewNodeFinding(node *entity.Node, severity valueobject.Severity) Finding {
	return Finding{
		Target:   NodeTarget{Name: node.ID, Node: node.Clone()},
		Severity: severity,
	}
}

// NewServiceFinding copies the service snapshot.
func NewServiceFinding(service *entity.Service, severity valueobject.Severity) Finding {
	return Finding{
		Target:   ServiceTarget{Name: service.Name, Service: service.Clone()},
		Severity: severity,
	}
}

// Message returns the diagnostic text of the attached snapshot, if any.
func (f Finding) Message() string {
	switch t := f.Target.(type) {
	case NodeTarget:
		if t.Node != nil {
			return t.Node.StatusMsg
		}
	case ServiceTarget:
		if t.Service != nil {
			return t.Service.StatusMsg
		}
	}
	return ""
}

// Kind names an event variant.
type Kind string

const (
	KindHeartbeat Kind = "heartbeat"
	KindOffline   Kind = "offline"
	KindCheckAll  Kind = "check_all"
)

// Event is consumed by the aggregator. Events are immutable once built.
type Event interface {
	Kind() Kind
	isEvent()
}

// Heartbeat carries a freshly observed finding.
type Heartbeat struct {
	Finding Finding
}

func (Heartbeat) Kind() Kind { return KindHeartbeat }
func (Heartbeat) isEvent()   {}

// Offline asks the aggregator to forget a target.
type Offline struct {
	Target Target
}

func (Offline) Kind() Kind { return KindOffline }
func (Offline) isEvent()   {}

// CheckAll triggers a sweep over every stored node.
type CheckAll struct{}

func (CheckAll) Kind() Kind { return KindCheckAll }
func (CheckAll) isEvent()   {}

// AllKinds lists every event kind.
func AllKinds() []Kind {
	return []Kind{KindHeartbeat, KindOffline, KindCheckAll}
}
