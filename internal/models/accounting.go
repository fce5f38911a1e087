package models

// GLAccount is a general-ledger account. ExternalGLAccountID is the
// account's id in the external ledger; accounts without one cannot be
// posted externally.
type GLAccount struct {
	ID                  string `json:"id" db:"id"`
	OrganizationID      string `json:"organizationId" db:"organization_id"`
	Name                string `json:"name" db:"name"`
	ExternalGLAccountID *int64 `json:"externalGlAccountId" db:"external_gl_account_id"`
}

// Property anchors a journal entry to a rental property. A property with a
// non-null ExternalPropertyID is mapped in the external ledger, which makes
// postings against it sync-required.
type Property struct {
	ID                 string `json:"id" db:"id"`
	OrganizationID     string `json:"organizationId" db:"organization_id"`
	Name               string `json:"name" db:"name"`
	ExternalPropertyID *int64 `json:"externalPropertyId" db:"external_property_id"`
}

// Unit is a child of a property.
type Unit struct {
	ID             string `json:"id" db:"id"`
	PropertyID     string `json:"propertyId" db:"property_id"`
	ExternalUnitID *int64 `json:"externalUnitId" db:"external_unit_id"`
}
