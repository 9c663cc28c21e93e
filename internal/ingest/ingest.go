// Package ingest turns CSV tables into defined schema concepts and
// inserted instances. Column types are inferred from the data, the
// schema registry is updated alongside the engine, and every
// relationship instance carries a serialized provenance record under the
// reserved details attribute.
package ingest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codexkg/codex/internal/engine"
	"github.com/codexkg/codex/internal/schema"
)

// graql value-type names per attribute type.
var valueTypes = map[schema.AttrType]string{
	schema.TypeString: "string",
	schema.TypeLong:   "long",
	schema.TypeDouble: "double",
	schema.TypeBool:   "boolean",
	schema.TypeDate:   "datetime",
}

// Ingestor loads tables into one keyspace, keeping the registry and the
// engine schema in step.
type Ingestor struct {
	reg    *schema.Registry
	logger *zap.Logger
}

// New returns an ingestor for the given registry. A nil logger disables
// logging.
func New(reg *schema.Registry, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{reg: reg, logger: logger}
}

// EntityReport summarizes one entity ingestion: the inferred column
// types and the queries that define and populate the entity.
type EntityReport struct {
	Entity   string
	Key      string
	Types    map[string]schema.AttrType
	Queries  []string
	Inserted int
}

// RelationshipReport summarizes one relationship ingestion.
type RelationshipReport struct {
	Relationship string
	Batch        string
	Queries      []string
	Inserted     int
}

// Entity plans an entity load and runs it in one write transaction.
func (in *Ingestor) Entity(session engine.Session, name, keyAttr string, table *Table) (*EntityReport, error) {
	report, err := in.PlanEntity(name, keyAttr, table)
	if err != nil {
		return nil, err
	}

	in.logger.Info("ingesting entity",
		zap.String("keyspace", in.reg.Name()),
		zap.String("entity", name),
		zap.Int("rows", report.Inserted))

	if err := in.execute(session, report.Queries); err != nil {
		return nil, err
	}
	return report, nil
}

// PlanEntity defines an entity type from the table's columns in the
// registry and returns the queries that would define and populate it:
// attribute declarations, the entity definition, then one insert per
// row. keyAttr may be empty for a keyless entity; otherwise it must name
// a column.
func (in *Ingestor) PlanEntity(name, keyAttr string, table *Table) (*EntityReport, error) {
	if len(table.Rows) == 0 {
		return nil, &Error{Code: ErrCodeEmptyTable, Message: "entity table has no rows"}
	}
	if keyAttr != "" {
		if _, err := table.Column(keyAttr); err != nil {
			return nil, err
		}
	}

	types := table.InferTypes()
	if err := in.reg.DefineEntity(name, keyAttr, types); err != nil {
		return nil, err
	}

	queries := []string{defineAttributesQuery(types)}
	queries = append(queries, defineEntityQuery(name, keyAttr, types))
	for i, row := range table.Rows {
		q, err := insertEntityQuery(name, table.Columns, types, row, i)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}

	return &EntityReport{
		Entity:   name,
		Key:      keyAttr,
		Types:    types,
		Queries:  queries,
		Inserted: len(table.Rows),
	}, nil
}

// Relationship plans a relationship load and runs it in one write
// transaction.
func (in *Ingestor) Relationship(session engine.Session, name, role1, entity1, role2, entity2 string, table *Table) (*RelationshipReport, error) {
	report, err := in.PlanRelationship(name, role1, entity1, role2, entity2, table)
	if err != nil {
		return nil, err
	}

	in.logger.Info("ingesting relationship",
		zap.String("keyspace", in.reg.Name()),
		zap.String("relationship", name),
		zap.String("batch", report.Batch),
		zap.Int("rows", report.Inserted))

	if err := in.execute(session, report.Queries); err != nil {
		return nil, err
	}
	return report, nil
}

// PlanRelationship defines a relationship type in the registry and
// returns the queries that would define and populate it. The table's
// first column holds entity1 keys and its second column holds entity2
// keys; any further columns become relationship attributes. Every
// inserted instance carries a provenance JSON under the reserved details
// attribute, stamped with a batch id shared by the whole load.
func (in *Ingestor) PlanRelationship(name, role1, entity1, role2, entity2 string, table *Table) (*RelationshipReport, error) {
	if len(table.Columns) < 2 {
		return nil, &Error{
			Code:    ErrCodeMissingColumn,
			Message: "relationship table needs two key columns",
		}
	}
	if len(table.Rows) == 0 {
		return nil, &Error{Code: ErrCodeEmptyTable, Message: "relationship table has no rows"}
	}

	ent1, err := in.reg.ResolveEntity(entity1)
	if err != nil {
		return nil, err
	}
	ent2, err := in.reg.ResolveEntity(entity2)
	if err != nil {
		return nil, err
	}

	attrTypes := make(map[string]schema.AttrType)
	if len(table.Columns) > 2 {
		extra := &Table{Columns: table.Columns[2:], Rows: make([][]string, len(table.Rows))}
		for i, row := range table.Rows {
			extra.Rows[i] = row[2:]
		}
		attrTypes = extra.InferTypes()
	}

	if err := in.reg.DefineRelationship(name, role1, entity1, role2, entity2, attrTypes); err != nil {
		return nil, err
	}

	batch := uuid.Must(uuid.NewV7()).String()
	withDetails := make(map[string]schema.AttrType, len(attrTypes)+1)
	for attr, t := range attrTypes {
		withDetails[attr] = t
	}
	withDetails[schema.DetailsAttr] = schema.TypeString

	queries := []string{defineAttributesQuery(withDetails)}
	queries = append(queries, defineRelationshipQuery(name, role1, entity1, role2, entity2, withDetails))
	for i, row := range table.Rows {
		q, err := insertRelationshipQuery(name, batch, role1, ent1, role2, ent2, table.Columns, attrTypes, row, i)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}

	return &RelationshipReport{
		Relationship: name,
		Batch:        batch,
		Queries:      queries,
		Inserted:     len(table.Rows),
	}, nil
}

// execute runs all queries inside one write transaction.
func (in *Ingestor) execute(session engine.Session, queries []string) error {
	txn, err := session.Transaction(engine.TxWrite)
	if err != nil {
		return err
	}
	defer txn.Close()

	for _, q := range queries {
		if err := txn.Execute(q); err != nil {
			return err
		}
	}
	return txn.Commit()
}

// defineAttributesQuery declares every attribute with its value type.
func defineAttributesQuery(types map[string]schema.AttrType) string {
	var sb strings.Builder
	sb.WriteString("define")
	for _, attr := range sortedKeys(types) {
		fmt.Fprintf(&sb, " %s sub attribute, value %s;", attr, valueTypes[types[attr]])
	}
	return sb.String()
}

// defineEntityQuery declares the entity and its attribute ownerships,
// marking the key attribute when one is set.
func defineEntityQuery(name, keyAttr string, types map[string]schema.AttrType) string {
	parts := make([]string, 0, len(types))
	for _, attr := range sortedKeys(types) {
		if attr == keyAttr {
			parts = append(parts, "key "+attr)
		} else {
			parts = append(parts, "has "+attr)
		}
	}
	if len(parts) == 0 {
		return "define " + name + " sub entity;"
	}
	return "define " + name + " sub entity, " + strings.Join(parts, ", ") + ";"
}

func defineRelationshipQuery(name, role1, entity1, role2, entity2 string, types map[string]schema.AttrType) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "define %s sub relation, relates %s, relates %s", name, role1, role2)
	for _, attr := range sortedKeys(types) {
		sb.WriteString(", has " + attr)
	}
	fmt.Fprintf(&sb, "; %s sub entity, plays %s; %s sub entity, plays %s;", entity1, role1, entity2, role2)
	return sb.String()
}

func insertEntityQuery(name string, columns []string, types map[string]schema.AttrType, row []string, rowIdx int) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "insert $x isa %s", name)
	for i, col := range columns {
		cell := strings.TrimSpace(row[i])
		if cell == "" {
			continue
		}
		lit, err := cellLiteral(types[col], col, cell, rowIdx)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, ", has %s %s", col, lit)
	}
	sb.WriteString(";")
	return sb.String(), nil
}

func insertRelationshipQuery(name, batch, role1 string, ent1 schema.Entity, role2 string, ent2 schema.Entity, columns []string, attrTypes map[string]schema.AttrType, row []string, rowIdx int) (string, error) {
	key1, err := cellLiteral(ent1.Attributes[ent1.Key], columns[0], strings.TrimSpace(row[0]), rowIdx)
	if err != nil {
		return "", err
	}
	key2, err := cellLiteral(ent2.Attributes[ent2.Key], columns[1], strings.TrimSpace(row[1]), rowIdx)
	if err != nil {
		return "", err
	}

	details, err := json.Marshal(map[string]string{
		"relationship": name,
		"batch":        batch,
		ent1.Name:      strings.TrimSpace(row[0]),
		ent2.Name:      strings.TrimSpace(row[1]),
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "match $a isa %s, has %s %s; $b isa %s, has %s %s; insert $r (%s: $a, %s: $b) isa %s, has %s %s",
		ent1.Name, ent1.Key, key1,
		ent2.Name, ent2.Key, key2,
		role1, role2, name,
		schema.DetailsAttr, strconv.Quote(string(details)))

	for i := 2; i < len(columns); i++ {
		cell := strings.TrimSpace(row[i])
		if cell == "" {
			continue
		}
		lit, err := cellLiteral(attrTypes[columns[i]], columns[i], cell, rowIdx)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, ", has %s %s", columns[i], lit)
	}
	sb.WriteString(";")
	return sb.String(), nil
}

// cellLiteral encodes one cell as a query literal of the given type.
// Strings and bools are quoted; numbers are bare; dates use the
// millisecond datetime layout without quotes.
func cellLiteral(t schema.AttrType, col, cell string, rowIdx int) (string, error) {
	badCell := func(msg string) error {
		return &Error{Code: ErrCodeBadCell, Column: col, Row: rowIdx, Message: msg}
	}

	switch t {
	case schema.TypeLong:
		if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
			return "", badCell("not a long: " + cell)
		}
		return cell, nil
	case schema.TypeDouble:
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return "", badCell("not a double: " + cell)
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case schema.TypeBool:
		b, err := strconv.ParseBool(cell)
		if err != nil {
			return "", badCell("not a bool: " + cell)
		}
		return strconv.Quote(strconv.FormatBool(b)), nil
	case schema.TypeDate:
		for _, layout := range dateInputLayouts {
			if d, err := time.Parse(layout, cell); err == nil {
				return d.Format(dateLayout), nil
			}
		}
		return "", badCell("not a date: " + cell)
	default:
		return strconv.Quote(cell), nil
	}
}

func sortedKeys(m map[string]schema.AttrType) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
