package network

import (
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/network-index/internal/models"
)

// Reasons a hierarchy edge is dropped during a build
const (
	RejectSelfParent   = "self_parent"
	RejectSecondParent = "second_parent"
	RejectCycle        = "cycle"
	RejectDuplicate    = "duplicate"
	RejectEmptyID      = "empty_id"
)

// RejectedEdge is a hierarchy edge that was dropped instead of failing the build
type RejectedEdge struct {
	Edge   models.StopHierarchyEdge `json:"edge"`
	Reason string                   `json:"reason"`
}

// StopHierarchy groups child stops under parent stations.
// Every child has at most one parent and the parent relation has no cycles.
type StopHierarchy struct {
	children map[string][]string
	parentOf map[string]string
	rejected []RejectedEdge
}

// BuildStopHierarchy accepts edges in order, dropping any edge that would give a child a
// second parent or close a cycle. Dropped edges are logged and kept for inspection.
func BuildStopHierarchy(feedID string, edges []models.StopHierarchyEdge, logger *logrus.Logger) *StopHierarchy {
	h := &StopHierarchy{
		children: make(map[string][]string),
		parentOf: make(map[string]string),
	}

	for _, edge := range edges {
		if reason := h.check(edge); reason != "" {
			h.reject(feedID, edge, reason, logger)
			continue
		}
		h.children[edge.ParentID] = append(h.children[edge.ParentID], edge.ChildID)
		h.parentOf[edge.ChildID] = edge.ParentID
	}

	return h
}

func (h *StopHierarchy) check(edge models.StopHierarchyEdge) string {
	if edge.ParentID == "" || edge.ChildID == "" {
		return RejectEmptyID
	}
	if edge.ParentID == edge.ChildID {
		return RejectSelfParent
	}
	if existing, ok := h.parentOf[edge.ChildID]; ok {
		if existing == edge.ParentID {
			return RejectDuplicate
		}
		return RejectSecondParent
	}

	// Walk up from the new parent; reaching the child means the edge closes a loop.
	// Single-parent guarantees the walk is a chain, bounded by the number of accepted edges.
	for node, steps := edge.ParentID, 0; steps <= len(h.parentOf); steps++ {
		if node == edge.ChildID {
			return RejectCycle
		}
		parent, ok := h.parentOf[node]
		if !ok {
			break
		}
		node = parent
	}

	return ""
}

func (h *StopHierarchy) reject(feedID string, edge models.StopHierarchyEdge, reason string, logger *logrus.Logger) {
	h.rejected = append(h.rejected, RejectedEdge{Edge: edge, Reason: reason})
	if logger == nil {
		return
	}
	logger.WithFields(logrus.Fields{
		"feed_id":   feedID,
		"parent_id": edge.ParentID,
		"child_id":  edge.ChildID,
		"reason":    reason,
	}).Warn("Dropped stop hierarchy edge")
}

// Children returns the ordered child ids of a parent, or nil when it has none
func (h *StopHierarchy) Children(parentID string) []string {
	kids := h.children[parentID]
	if len(kids) == 0 {
		return nil
	}
	out := make([]string, len(kids))
	copy(out, kids)
	return out
}

// Expand returns a station's children, or the stop itself when it has no children
func (h *StopHierarchy) Expand(stopID string) []string {
	if kids := h.Children(stopID); kids != nil {
		return kids
	}
	return []string{stopID}
}

// Parent returns the parent station of a stop, if any
func (h *StopHierarchy) Parent(childID string) (string, bool) {
	parent, ok := h.parentOf[childID]
	return parent, ok
}

// Rejected returns the edges dropped while building
func (h *StopHierarchy) Rejected() []RejectedEdge {
	out := make([]RejectedEdge, len(h.rejected))
	copy(out, h.rejected)
	return out
}

// EdgeCount returns the number of accepted edges
func (h *StopHierarchy) EdgeCount() int {
	return len(h.parentOf)
}
