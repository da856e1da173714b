package load

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	atlas "ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"
	"go.uber.org/zap"

	// Database drivers of the introspection source.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/traitgen/schema"
	"github.com/syssam/traitgen/schema/edge"
	"github.com/syssam/traitgen/schema/field"
)

// Supported database dialects.
const (
	MySQL    = "mysql"
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// DatabaseConfig configures a Database source.
type DatabaseConfig struct {
	// Driver is one of MySQL, Postgres or SQLite.
	Driver string
	DSN    string
	// Schema to inspect; empty means the schema of the connection.
	Schema string
	// Namespace of the derived classes.
	Namespace string
	// Exclude lists table name patterns left out of the inspection.
	Exclude []string
	Logger  *zap.Logger
}

// Database derives class metadata from the tables of a database: columns
// become fields, foreign keys become many-to-one (one-to-one when unique)
// associations with their inverse side, and tables made of two foreign
// keys become many-to-many associations.
type Database struct {
	db   *sql.DB
	drv  migrate.Driver
	cfg  DatabaseConfig
	log  *zap.Logger
	owns bool

	mu      sync.Mutex
	classes []*schema.Class
	loaded  bool
}

// DriverName returns the canonical dialect and the database/sql driver
// name of a configured driver.
func DriverName(driver string) (dialect, sqlDriver string, err error) {
	switch strings.ToLower(driver) {
	case "mysql", "mariadb":
		return MySQL, "mysql", nil
	case "postgres", "postgresql", "pg":
		return Postgres, "postgres", nil
	case "sqlite", "sqlite3":
		return SQLite, "sqlite", nil
	}
	return "", "", fmt.Errorf("load: unsupported database driver %q", driver)
}

// OpenDatabase connects to the configured database.
func OpenDatabase(ctx context.Context, cfg DatabaseConfig) (*Database, error) {
	_, name, err := DriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(name, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("load: opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("load: connecting to database: %w", err)
	}
	d, err := NewDatabase(db, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	d.owns = true
	return d, nil
}

// NewDatabase returns a source inspecting db with the dialect of
// cfg.Driver. The caller keeps ownership of db.
func NewDatabase(db *sql.DB, cfg DatabaseConfig) (*Database, error) {
	dialect, _, err := DriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}
	var drv migrate.Driver
	switch dialect {
	case MySQL:
		drv, err = mysql.Open(db)
	case Postgres:
		drv, err = postgres.Open(db)
	case SQLite:
		drv, err = sqlite.Open(db)
	}
	if err != nil {
		return nil, fmt.Errorf("load: opening %s inspector: %w", dialect, err)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Database{db: db, drv: drv, cfg: cfg, log: log}, nil
}

// Close closes a connection opened by OpenDatabase.
func (d *Database) Close() error {
	if !d.owns {
		return nil
	}
	return d.db.Close()
}

// Reset drops the inspected classes.
func (d *Database) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.classes, d.loaded = nil, false
}

// Classes implements gen.MetadataProvider.
func (d *Database) Classes(ctx context.Context, name string) ([]*schema.Class, error) {
	all, err := d.Load(ctx)
	if err != nil {
		return nil, err
	}
	return match(all, name), nil
}

// Load inspects the database once and returns its classes sorted by
// table name.
func (d *Database) Load(ctx context.Context) ([]*schema.Class, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loaded {
		return d.classes, nil
	}
	s, err := d.drv.InspectSchema(ctx, d.cfg.Schema, &atlas.InspectOptions{
		Mode:    atlas.InspectTables,
		Exclude: d.cfg.Exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("load: inspecting schema %q: %w", d.cfg.Schema, err)
	}
	d.classes, d.loaded = newTableMapper(d.cfg.Namespace).classes(s.Tables), true
	d.log.Debug("database inspected", zap.String("schema", s.Name), zap.Int("tables", len(s.Tables)), zap.Int("classes", len(d.classes)))
	return d.classes, nil
}

// tableMapper derives classes from inspected tables.
type tableMapper struct {
	namespace string
	byTable   map[*atlas.Table]*schema.Class
}

func newTableMapper(namespace string) *tableMapper {
	return &tableMapper{
		namespace: schema.NormalizeName(namespace),
		byTable:   make(map[*atlas.Table]*schema.Class),
	}
}

func (m *tableMapper) name(t *atlas.Table) string {
	short := className(t.Name)
	if m.namespace == "" {
		return short
	}
	return m.namespace + schema.NamespaceSeparator + short
}

func (m *tableMapper) classes(tables []*atlas.Table) []*schema.Class {
	tables = append([]*atlas.Table(nil), tables...)
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })

	var (
		entities []*atlas.Table
		joins    []*atlas.Table
	)
	for _, t := range tables {
		if isJoinTable(t) {
			joins = append(joins, t)
			continue
		}
		entities = append(entities, t)
		m.byTable[t] = &schema.Class{Name: m.name(t), Fields: fields(t)}
	}
	for _, t := range entities {
		for _, fk := range foreignKeys(t) {
			m.reference(t, fk)
		}
	}
	for _, t := range joins {
		m.join(t)
	}
	out := make([]*schema.Class, 0, len(entities))
	for _, t := range entities {
		out = append(out, m.byTable[t])
	}
	return out
}

// reference maps a single-column foreign key to an owning association and
// its inverse side on the referenced class.
func (m *tableMapper) reference(t *atlas.Table, fk *atlas.ForeignKey) {
	owner, target := m.byTable[t], m.byTable[fk.RefTable]
	if owner == nil || target == nil {
		return
	}
	col := fk.Columns[0]
	kind, inverseKind := edge.M2O, edge.O2M
	inverse := pluralProperty(owner.ShortName())
	if isUnique(t, col) {
		kind, inverseKind = edge.O2O, edge.O2O
		inverse = lcfirst(owner.ShortName())
	}
	name := uniqueName(owner, relationName(col.Name, target.ShortName()))
	if owner == target || hasMember(target, inverse) {
		inverse = uniqueName(target, name+ucfirst(inverse))
	}
	owner.Associations = append(owner.Associations, &edge.Descriptor{
		Name:         name,
		Kind:         kind,
		Target:       target.Name,
		Owning:       true,
		Inverse:      inverse,
		JoinNullable: edge.Nullable(col.Type != nil && col.Type.Null),
	})
	target.Associations = append(target.Associations, &edge.Descriptor{
		Name:    inverse,
		Kind:    inverseKind,
		Target:  owner.Name,
		Inverse: name,
	})
}

// join maps a join table to a many-to-many association owned by the class
// of its first foreign key column.
func (m *tableMapper) join(t *atlas.Table) {
	fks := foreignKeys(t)
	left, right := m.byTable[fks[0].RefTable], m.byTable[fks[1].RefTable]
	if left == nil || right == nil {
		return
	}
	owning := pluralProperty(right.ShortName())
	inverse := pluralProperty(left.ShortName())
	if left == right {
		owning = pluralProperty(relationName(fks[1].Columns[0].Name, right.ShortName()))
		inverse = pluralProperty(relationName(fks[0].Columns[0].Name, left.ShortName()))
	}
	owning = uniqueName(left, owning)
	inverse = uniqueName(right, inverse)
	left.Associations = append(left.Associations, &edge.Descriptor{
		Name:    owning,
		Kind:    edge.M2M,
		Target:  right.Name,
		Owning:  true,
		Inverse: inverse,
	})
	right.Associations = append(right.Associations, &edge.Descriptor{
		Name:    inverse,
		Kind:    edge.M2M,
		Target:  left.Name,
		Inverse: owning,
	})
}

// fields maps the columns of t that are not foreign keys.
func fields(t *atlas.Table) []*field.Descriptor {
	var out []*field.Descriptor
	for _, c := range t.Columns {
		if len(c.ForeignKeys) > 0 || isForeignKeyColumn(t, c) {
			continue
		}
		f := &field.Descriptor{
			Name:       propertyName(c.Name),
			Column:     c.Name,
			Identifier: isPrimaryKey(t, c),
		}
		if c.Type != nil {
			f.Type = fieldType(c.Type)
			f.Nullable = c.Type.Null
		}
		out = append(out, f)
	}
	return out
}

// fieldType maps an inspected column type to a storage type.
func fieldType(ct *atlas.ColumnType) field.Type {
	switch t := ct.Type.(type) {
	case *atlas.StringType:
		if strings.Contains(t.T, "text") || t.T == "clob" {
			return field.TypeText
		}
		return field.TypeString
	case *atlas.EnumType:
		return field.TypeString
	case *atlas.IntegerType:
		switch t.T {
		case "bigint", "int8":
			return field.TypeBigInt
		case "smallint", "int2", "tinyint":
			return field.TypeSmallInt
		}
		return field.TypeInteger
	case *atlas.BoolType:
		return field.TypeBoolean
	case *atlas.FloatType:
		return field.TypeFloat
	case *atlas.DecimalType:
		return field.TypeDecimal
	case *atlas.TimeType:
		switch t.T {
		case "date":
			return field.TypeDate
		case "time", "time without time zone":
			return field.TypeTime
		case "timestamptz", "timestamp with time zone":
			return field.TypeDateTimeTZ
		}
		return field.TypeDateTime
	case *atlas.JSONType:
		return field.TypeJSON
	case *atlas.BinaryType:
		return field.TypeBlob
	case *atlas.UUIDType:
		return field.TypeGUID
	case nil:
		return field.TypeInvalid
	}
	if strings.HasPrefix(strings.ToLower(ct.Raw), "interval") {
		return field.TypeDateInterval
	}
	return field.TypeUnknown
}

// foreignKeys returns the single-column foreign keys of t in column order.
func foreignKeys(t *atlas.Table) []*atlas.ForeignKey {
	pos := make(map[*atlas.Column]int, len(t.Columns))
	for i, c := range t.Columns {
		pos[c] = i
	}
	var fks []*atlas.ForeignKey
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) == 1 && fk.RefTable != nil {
			fks = append(fks, fk)
		}
	}
	sort.SliceStable(fks, func(i, j int) bool {
		return pos[fks[i].Columns[0]] < pos[fks[j].Columns[0]]
	})
	return fks
}

func isForeignKeyColumn(t *atlas.Table, c *atlas.Column) bool {
	for _, fk := range t.ForeignKeys {
		for _, fc := range fk.Columns {
			if fc == c || fc.Name == c.Name {
				return true
			}
		}
	}
	return false
}

// isJoinTable reports a table made of exactly two single-column foreign
// keys and nothing else.
func isJoinTable(t *atlas.Table) bool {
	fks := foreignKeys(t)
	if len(fks) != 2 || len(t.Columns) != 2 {
		return false
	}
	for _, c := range t.Columns {
		if !isForeignKeyColumn(t, c) {
			return false
		}
	}
	return true
}

func isPrimaryKey(t *atlas.Table, c *atlas.Column) bool {
	if t.PrimaryKey == nil {
		return false
	}
	for _, p := range t.PrimaryKey.Parts {
		if p.C != nil && p.C.Name == c.Name {
			return true
		}
	}
	return false
}

// isUnique reports a column covered alone by a unique index or by the
// primary key.
func isUnique(t *atlas.Table, c *atlas.Column) bool {
	if t.PrimaryKey != nil && len(t.PrimaryKey.Parts) == 1 && isPrimaryKey(t, c) {
		return true
	}
	for _, idx := range t.Indexes {
		if idx.Unique && len(idx.Parts) == 1 && idx.Parts[0].C != nil && idx.Parts[0].C.Name == c.Name {
			return true
		}
	}
	return false
}

func hasMember(c *schema.Class, name string) bool {
	return c.Field(name) != nil || c.Association(name) != nil
}

// uniqueName returns name, suffixed with a counter when c already has a
// member of that name.
func uniqueName(c *schema.Class, name string) string {
	candidate := name
	for i := 2; hasMember(c, candidate); i++ {
		candidate = fmt.Sprintf("%s%d", name, i)
	}
	return candidate
}

// match returns the class named name, or every class of the namespace name
// when no class matches exactly.
func match(all []*schema.Class, name string) []*schema.Class {
	name = schema.NormalizeName(name)
	for _, c := range all {
		if strings.EqualFold(c.Name, name) {
			return []*schema.Class{c}
		}
	}
	var matched []*schema.Class
	for _, c := range all {
		if schema.InNamespace(c.Name, name) {
			matched = append(matched, c)
		}
	}
	return matched
}
