package dataset

import (
	"fmt"
	"net/url"
)

// TypeClass is the coercion class applied to a mapped column.
type TypeClass string

const (
	TypeString   TypeClass = "string"
	TypeInt      TypeClass = "int"
	TypeDecimal  TypeClass = "decimal"
	TypeBool     TypeClass = "bool"
	TypeDateTime TypeClass = "datetime"
)

// ImportMode selects how the loader writes a batch.
type ImportMode string

const (
	// ModeReplaceAll clears the target table before inserting. Destructive;
	// only small low-risk datasets opt in for the full-import path.
	ModeReplaceAll ImportMode = "replace_all"

	// ModeAppend inserts rows whose identifier is not already present and
	// counts the rest as duplicates. Never deletes existing data.
	ModeAppend ImportMode = "append"
)

// ColumnMapping binds one CSV header to one relation field.
type ColumnMapping struct {
	SourceHeader string
	TargetField  string
	Type         TypeClass
}

// Descriptor is the static configuration of one dataset. Descriptors are
// built once at startup and never mutated.
type Descriptor struct {
	Name             string
	ExportID         string
	Table            string
	IdentifierHeader string // CSV column holding the primary identifier
	IdentifierField  string // relation column it maps to
	Columns          []ColumnMapping
	FullImportMode   ImportMode

	// ExtendedTimeout marks datasets large enough to need the long fetch
	// policy (see fetch.PolicyFor).
	ExtendedTimeout bool

	// ChunkSize overrides the configured batch size when nonzero.
	ChunkSize int
}

// ExportURL builds the unfiltered download URL for this dataset.
func (d *Descriptor) ExportURL(baseURL, authToken string) string {
	return fmt.Sprintf("%s/api/v2/export/%s/download?authtoken=%s",
		baseURL, d.ExportID, url.QueryEscape(authToken))
}

// FilteredURLs builds the server-side date-filter URL variants in preference
// order. Server-side filtering is unreliable upstream, so callers must still
// filter client-side; these only reduce transfer size when they work.
func (d *Descriptor) FilteredURLs(baseURL, authToken, startDate, endDate string) []string {
	base := d.ExportURL(baseURL, authToken)
	return []string{
		fmt.Sprintf("%s&fromDate=%s&toDate=%s", base, startDate, endDate),
		fmt.Sprintf("%s&startDate=%s&endDate=%s", base, startDate, endDate),
		fmt.Sprintf("%s&dateFrom=%s&dateTo=%s", base, startDate, endDate),
	}
}

// Registry holds every configured dataset, keyed for lookup by export ID and
// by name.
type Registry struct {
	byExportID map[string]*Descriptor
	byName     map[string]*Descriptor
	order      []*Descriptor
}

// ByExportID returns the descriptor for an export ID, or nil.
func (r *Registry) ByExportID(id string) *Descriptor {
	return r.byExportID[id]
}

// ByName returns the descriptor for a dataset name, or nil.
func (r *Registry) ByName(name string) *Descriptor {
	return r.byName[name]
}

// FullImportOrder returns descriptors in the fixed full-import priority
// order: small fast datasets first, cases last so a late failure on the
// largest dataset cannot block the rest and its peak memory sits at the end
// of the run.
func (r *Registry) FullImportOrder() []*Descriptor {
	out := make([]*Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// All returns every descriptor in full-import order.
func (r *Registry) All() []*Descriptor {
	return r.FullImportOrder()
}

// NewRegistry builds the static dataset registry.
func NewRegistry() *Registry {
	ordered := []*Descriptor{
		{
			Name:             "buildings",
			ExportID:         "5077534948",
			Table:            "buildings",
			IdentifierHeader: "Building Id",
			IdentifierField:  "building_id",
			FullImportMode:   ModeReplaceAll,
			Columns: []ColumnMapping{
				{"Building Id", "building_id", TypeString},
				{"Building Name", "name", TypeString},
				{"Address", "address", TypeString},
				{"City", "city", TypeString},
				{"Active", "active", TypeBool},
				{"Unit Count", "unit_count", TypeInt},
				{"Created Time", "created_at", TypeDateTime},
			},
		},
		{
			Name:             "users",
			ExportID:         "5157670999",
			Table:            "report_users",
			IdentifierHeader: "User Id",
			IdentifierField:  "user_id",
			FullImportMode:   ModeReplaceAll,
			Columns: []ColumnMapping{
				{"User Id", "user_id", TypeString},
				{"Full Name", "full_name", TypeString},
				{"Email", "email", TypeString},
				{"Role", "role", TypeString},
				{"Is Active", "is_active", TypeBool},
				{"Building Id", "building_id", TypeString},
				{"Created Time", "created_at", TypeDateTime},
			},
		},
		{
			Name:             "slaPolicy",
			ExportID:         "20357111093",
			Table:            "sla_policies",
			IdentifierHeader: "Policy Id",
			IdentifierField:  "policy_id",
			FullImportMode:   ModeAppend,
			Columns: []ColumnMapping{
				{"Policy Id", "policy_id", TypeString},
				{"Policy Name", "name", TypeString},
				{"Priority", "priority", TypeString},
				{"Response Hours", "response_hours", TypeDecimal},
				{"Resolution Hours", "resolution_hours", TypeDecimal},
				{"Modified Time", "updated_at", TypeDateTime},
			},
		},
		{
			Name:             "schedule",
			ExportID:         "20348692306",
			Table:            "schedules",
			IdentifierHeader: "Schedule Id",
			IdentifierField:  "schedule_id",
			FullImportMode:   ModeAppend,
			Columns: []ColumnMapping{
				{"Schedule Id", "schedule_id", TypeString},
				{"Agent Id", "agent_id", TypeString},
				{"Shift", "shift", TypeString},
				{"Start Time", "start_time", TypeDateTime},
				{"End Time", "end_time", TypeDateTime},
				{"Is On Call", "on_call", TypeBool},
			},
		},
		{
			Name:             "conversations",
			ExportID:         "5002207692",
			Table:            "conversations",
			IdentifierHeader: "Conversation Id",
			IdentifierField:  "conversation_id",
			FullImportMode:   ModeAppend,
			Columns: []ColumnMapping{
				{"Conversation Id", "conversation_id", TypeString},
				{"Case Id", "case_id", TypeString},
				{"Author Id", "author_id", TypeString},
				{"Channel", "channel", TypeString},
				{"Direction", "direction", TypeString},
				{"Message Count", "message_count", TypeInt},
				{"Created Time", "created_at", TypeDateTime},
			},
		},
		{
			Name:             "interactions",
			ExportID:         "5053863837",
			Table:            "interactions",
			IdentifierHeader: "Interaction Id",
			IdentifierField:  "interaction_id",
			FullImportMode:   ModeAppend,
			Columns: []ColumnMapping{
				{"Interaction Id", "interaction_id", TypeString},
				{"User Id", "user_id", TypeString},
				{"Case Id", "case_id", TypeString},
				{"Interaction Type", "interaction_type", TypeString},
				{"Duration Seconds", "duration_seconds", TypeInt},
				{"Start Time", "started_at", TypeDateTime},
				{"End Time", "ended_at", TypeDateTime},
			},
		},
		{
			Name:             "nocInteractions",
			ExportID:         "5157703494",
			Table:            "noc_interactions",
			IdentifierHeader: "Interaction Id",
			IdentifierField:  "interaction_id",
			FullImportMode:   ModeAppend,
			Columns: []ColumnMapping{
				{"Interaction Id", "interaction_id", TypeString},
				{"Operator Id", "operator_id", TypeString},
				{"Alert Type", "alert_type", TypeString},
				{"Severity", "severity", TypeInt},
				{"Acknowledged", "acknowledged", TypeBool},
				{"Created Time", "created_at", TypeDateTime},
				{"Resolved Time", "resolved_at", TypeDateTime},
			},
		},
		{
			Name:             "userStateInteractions",
			ExportID:         "4693855982",
			Table:            "user_state_interactions",
			IdentifierHeader: "Event Id",
			IdentifierField:  "event_id",
			FullImportMode:   ModeAppend,
			Columns: []ColumnMapping{
				{"Event Id", "event_id", TypeString},
				{"User Id", "user_id", TypeString},
				{"Previous State", "previous_state", TypeString},
				{"New State", "new_state", TypeString},
				{"Changed Time", "changed_at", TypeDateTime},
			},
		},
		{
			Name:             "userSessionHistory",
			ExportID:         "5219392695",
			Table:            "user_session_history",
			IdentifierHeader: "Session Id",
			IdentifierField:  "session_id",
			FullImportMode:   ModeAppend,
			ExtendedTimeout:  true,
			Columns: []ColumnMapping{
				{"Session Id", "session_id", TypeString},
				{"User Id", "user_id", TypeString},
				{"Device", "device", TypeString},
				{"IP Address", "ip_address", TypeString},
				{"Session Start", "session_start", TypeDateTime},
				{"Session End", "session_end", TypeDateTime},
				{"Duration Minutes", "duration_minutes", TypeDecimal},
			},
		},
		{
			// Largest and most failure-prone dataset; always imported last.
			Name:             "cases",
			ExportID:         "5002645397",
			Table:            "cases",
			IdentifierHeader: "Case Id",
			IdentifierField:  "case_id",
			FullImportMode:   ModeAppend,
			ExtendedTimeout:  true,
			ChunkSize:        500,
			Columns: []ColumnMapping{
				{"Case Id", "case_id", TypeString},
				{"Subject", "subject", TypeString},
				{"Status", "status", TypeString},
				{"Priority", "priority", TypeString},
				{"Building Id", "building_id", TypeString},
				{"Assignee Id", "assignee_id", TypeString},
				{"Is Escalated", "escalated", TypeBool},
				{"Reopen Count", "reopen_count", TypeInt},
				{"Created Time", "created_at", TypeDateTime},
				{"Modified Time", "updated_at", TypeDateTime},
				{"Closed Time", "closed_at", TypeDateTime},
			},
		},
	}

	r := &Registry{
		byExportID: make(map[string]*Descriptor, len(ordered)),
		byName:     make(map[string]*Descriptor, len(ordered)),
		order:      ordered,
	}
	for _, d := range ordered {
		r.byExportID[d.ExportID] = d
		r.byName[d.Name] = d
	}
	return r
}
