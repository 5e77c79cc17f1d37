// Package model contains domain models passed between layers.
package model

import (
	"strings"
)

// ClientKind tags a client as a paying customer or a sales lead.
type ClientKind string

// Known client kinds.
const (
	KindCustomer ClientKind = "customer"
	KindLead     ClientKind = "lead"
	// KindAll is a filter value only; no client carries it.
	KindAll ClientKind = "all"
)

// ParseKind normalizes a kind filter. Empty input means KindAll.
func ParseKind(s string) (ClientKind, bool) {
	switch ClientKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindAll:
		return KindAll, true
	case KindCustomer:
		return KindCustomer, true
	case KindLead:
		return KindLead, true
	default:
		return "", false
	}
}

// Client is a customer or lead to be matched to staff.
// Fields mirror the CRM profile the scoring service expects.
type Client struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Kind     ClientKind `json:"kind"`
	Industry string     `json:"industry,omitempty"`
	Needs    string     `json:"needs,omitempty"` // needs or required skills, free text
	Size     string     `json:"size,omitempty"`
	Value    float64    `json:"value,omitempty"` // monetary value
	Profile  string     `json:"profile,omitempty"`
}

// Key returns the stable identifier used for cache keys and tie-breaks.
func (c Client) Key() string {
	return identityKey(c.ID, c.Name)
}

// Employee is a staff member that can receive client assignments.
type Employee struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Department  string   `json:"department,omitempty"`
	Specialties []string `json:"specialties,omitempty"`
	Profile     string   `json:"profile,omitempty"`
}

// Key returns the stable identifier used for cache keys and tie-breaks.
func (e Employee) Key() string {
	return identityKey(e.ID, e.Name)
}

// identityKey prefers the id. The name fallback exists for records that
// reach the core without one; the HTTP boundary rejects those.
func identityKey(id, name string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return "name:" + strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// FilterByKind returns the clients matching kind, preserving input order.
// KindAll returns every client.
func FilterByKind(clients []Client, kind ClientKind) []Client {
	if kind == KindAll || kind == "" {
		out := make([]Client, len(clients))
		copy(out, clients)
		return out
	}
	out := make([]Client, 0, len(clients))
	for _, c := range clients {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
