package tenant

import "fmt"

// Descriptor identifies a tenant and the physical database its data lives in.
// It is built fresh per request from inbound headers, never stored, and
// discarded when the request completes.
type Descriptor struct {
	// TenantID is the business identity of the customer (e.g. a tax ID).
	// It namespaces cached results but is deliberately absent from the
	// connection pool key.
	TenantID string `json:"-"`

	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
	Schema   string `json:"schema"`
}

// ConnString returns a PostgreSQL keyword/value connection string for the
// descriptor. Never log the result without sanitizing it first.
func (d *Descriptor) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s search_path=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.Schema,
	)
}
