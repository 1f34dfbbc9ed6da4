package oasql

import (
	"fmt"
	"reflect"
)

// ColumnDescriptor is the typed description the facade turns into a column
// object of the SQL-mapping runtime.
type ColumnDescriptor struct {
	Name          string
	Type          string
	Format        string
	MaxLength     int
	HasMaxLength  bool
	Nullable      *bool
	PrimaryKey    bool
	Autoincrement *bool
	ForeignKey    string
	ServerDefault string
	Index         *bool
	Unique        *bool
}

// AssociationArtifact describes a synthesized association table: its name
// and the two foreign key columns joining the related tables.
type AssociationArtifact struct {
	Tablename    string
	ParentColumn ColumnDescriptor
	ChildColumn  ColumnDescriptor
}

// Column is the handle the runtime returns for a constructed column.
type Column struct {
	Descriptor ColumnDescriptor
}

// Relationship is the handle the runtime returns for a constructed
// relationship.
type Relationship struct {
	Artifact RelationshipArtifact
}

// Table is the handle for a table registered outside the declarative
// model classes, such as an association table.
type Table struct {
	Name    string
	Columns []*Column
}

// Base is the declarative base handle. Registered tables hang off its
// metadata the way the runtime's own tables do.
type Base struct {
	tables map[string]*Table
}

// Facade is the thin interface to the SQL-mapping runtime: create columns
// and relationships from typed descriptors, register association tables and
// hand out the declarative base. RegisterAssociation rejects a different
// table under an already registered name; an identical registration is a
// no-op. CreateColumn and CreateRelationship record nothing and check no
// names, so repeated calls with one name and different descriptors all
// succeed.
type Facade struct {
	base         *Base
	associations map[string]*Table
}

// NewFacade returns a facade with a fresh declarative base.
func NewFacade() *Facade {
	return &Facade{
		base:         &Base{tables: map[string]*Table{}},
		associations: map[string]*Table{},
	}
}

// CreateColumn constructs a column handle from a descriptor.
func (f *Facade) CreateColumn(descriptor ColumnDescriptor) *Column {
	return &Column{Descriptor: descriptor}
}

// CreateRelationship constructs a relationship handle from an artifact.
func (f *Facade) CreateRelationship(artifact RelationshipArtifact) *Relationship {
	return &Relationship{Artifact: artifact}
}

// RegisterAssociation records an association table under name. Registering
// the same table twice is a no-op; registering a different table under an
// existing name fails.
func (f *Facade) RegisterAssociation(name string, table *Table) error {
	if existing, ok := f.associations[name]; ok {
		if tablesEqual(existing, table) {
			return nil
		}
		return fmt.Errorf(
			"%w: association %s is already registered with a different definition",
			ErrDuplicateRegistration, name,
		)
	}
	f.associations[name] = table
	f.base.tables[name] = table
	return nil
}

// Association returns a registered association table, if any.
func (f *Facade) Association(name string) (*Table, bool) {
	table, ok := f.associations[name]
	return table, ok
}

// Base returns the declarative base handle.
func (f *Facade) Base() *Base {
	return f.base
}

// Tables returns the tables registered on the base.
func (b *Base) Tables() map[string]*Table {
	return b.tables
}

func tablesEqual(a, b *Table) bool {
	if a.Name != b.Name || len(a.Columns) != len(b.Columns) {
		return false
	}
	for i := range a.Columns {
		if !reflect.DeepEqual(a.Columns[i].Descriptor, b.Columns[i].Descriptor) {
			return false
		}
	}
	return true
}
