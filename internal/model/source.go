// Package model provides data models for the provenance retrieval core.
package model

import (
	"sort"
	"time"
)

// SourceStatus is the lifecycle state of a knowledge source.
type SourceStatus string

const (
	// SourceEnabled means the source participates in retrieval.
	SourceEnabled SourceStatus = "enabled"
	// SourceDisabled means the source is excluded from retrieval but its
	// vectors and documents remain intact.
	SourceDisabled SourceStatus = "disabled"
	// SourceQuarantined is disabled plus terminal: the source can never be
	// re-enabled through the toggle API.
	SourceQuarantined SourceStatus = "quarantined"
)

// Valid reports whether s is a known status value.
func (s SourceStatus) Valid() bool {
	switch s {
	case SourceEnabled, SourceDisabled, SourceQuarantined:
		return true
	}
	return false
}

// Active reports whether a source with this status is consulted by queries.
func (s SourceStatus) Active() bool {
	return s == SourceEnabled
}

// Source 知识源。启用/禁用只是这里的一条元数据，向量索引永远不会因此变化。
type Source struct {
	ID          string       `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name        string       `json:"name" gorm:"type:varchar(255);not null"`
	Status      SourceStatus `json:"status" gorm:"type:varchar(16);index;not null"`
	Reliability float64      `json:"reliability" gorm:"not null;default:0.5"`
	Description string       `json:"description,omitempty" gorm:"type:varchar(1024)"`
	CreatedAt   time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the gorm table name.
func (Source) TableName() string { return "sources" }

// ToggleEvent describes one committed status transition.
type ToggleEvent struct {
	SourceID   string       `json:"source_id"`
	From       SourceStatus `json:"from"`
	To         SourceStatus `json:"to"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// EnabledSet is an immutable snapshot of the enabled sources, taken once at
// query start. Version increases with every committed toggle so snapshots
// from different toggle epochs never compare equal.
type EnabledSet struct {
	IDs     map[string]struct{}
	Version uint64
	TakenAt time.Time
}

// Contains reports whether sourceID is enabled in this snapshot.
func (e EnabledSet) Contains(sourceID string) bool {
	_, ok := e.IDs[sourceID]
	return ok
}

// SortedIDs returns the enabled source IDs in lexical order.
func (e EnabledSet) SortedIDs() []string {
	ids := make([]string, 0, len(e.IDs))
	for id := range e.IDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
