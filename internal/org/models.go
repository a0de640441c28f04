package org

import "time"

// Organization is a tenant. PseudoName is the opaque stand-in used whenever
// the organization's name would otherwise be shown to the assistant's model;
// it is assigned once at creation and never changes.
type Organization struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PseudoName string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateOrganizationInput holds the fields required to create an organization.
// PseudoName must already be generated and collision-checked by the caller.
type CreateOrganizationInput struct {
	Name       string
	PseudoName string
}
