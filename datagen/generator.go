// datagen package synthesizes realistic row data from a table's schema
// catalog. Values are always produced in Go native types and handed to the
// executor for parameterized binding.
package datagen

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/altheris/mysql-data-apis/log"
	"github.com/altheris/mysql-data-apis/types"
)

// SchemaProbe is the part of the database session the generator needs: the
// column catalog and the raw column type text for domain parsing.
type SchemaProbe interface {
	DescribeTable(ctx context.Context, tableName string) ([]types.ColumnMeta, error)
	ColumnDomain(ctx context.Context, tableName string, columnName string) (string, error)
}

// SynthesisError reports a column whose value could not be generated.
type SynthesisError struct {
	Table  string
	Column string
	Reason string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("cannot generate value for %s.%s: %s", e.Table, e.Column, e.Reason)
}

const (
	nullProbability    = 0.05
	defaultProbability = 0.10
)

// Generator builds insert rows for a table by combining declared sequences,
// fixed values and schema-driven synthesis.
type Generator struct {
	schema SchemaProbe
	flake  *Snowflake
	rand   *rand.Rand
	faker  *gofakeit.Faker
	logger log.Logger
}

// NewGenerator returns a generator seeded from the clock.
func NewGenerator(schema SchemaProbe, logger log.Logger) *Generator {
	return NewSeededGenerator(schema, logger, time.Now().UnixNano())
}

// NewSeededGenerator returns a generator with a fixed random seed, used by
// tests that assert on distributions.
func NewSeededGenerator(schema SchemaProbe, logger log.Logger, seed int64) *Generator {
	return &Generator{
		schema: schema,
		flake:  NewSnowflake(seed & maxNodeID),
		rand:   rand.New(rand.NewSource(seed)),
		faker:  gofakeit.New(seed),
		logger: logger,
	}
}

// BuildRows produces the column list and the value rows for an insert
// request. Auto-increment columns are left to the database. Column values are
// resolved in priority order: declared sequence, group fixed value, request
// fixed value, then schema-driven synthesis. Sequence counters are shared by
// all groups of the request.
func (g *Generator) BuildRows(ctx context.Context, req *types.InsertRequest) ([]string, [][]interface{}, error) {
	allColumns, err := g.schema.DescribeTable(ctx, req.TableName)
	if err != nil {
		return nil, nil, err
	}

	columns := make([]types.ColumnMeta, 0, len(allColumns))
	names := make([]string, 0, len(allColumns))
	for _, col := range allColumns {
		if col.AutoIncrement {
			continue
		}
		columns = append(columns, col)
		names = append(names, col.Name)
	}
	if len(columns) == 0 {
		return nil, nil, &SynthesisError{Table: req.TableName, Column: "*", Reason: "table has no generatable columns"}
	}

	sequences := make(map[string]*sequenceState, len(req.Sequences))
	for column, def := range req.Sequences {
		sequences[column] = newSequenceState(def)
	}
	domains := map[string][]string{}

	groups := req.Groups
	if len(groups) == 0 {
		groups = []types.Group{{RecordCount: req.RecordCount}}
	}

	var rows [][]interface{}
	for _, group := range groups {
		for n := 0; n < group.RecordCount; n++ {
			row := make([]interface{}, len(columns))
			for i, col := range columns {
				if seq, ok := sequences[col.Name]; ok {
					row[i] = seq.Next().Param()
					continue
				}
				if v, ok := lookupEntry(group.FixedValues, col.Name); ok {
					row[i] = v.Param()
					continue
				}
				if v, ok := lookupEntry(req.FixedValues, col.Name); ok {
					row[i] = v.Param()
					continue
				}
				generated, err := g.generate(ctx, req.TableName, col, domains)
				if err != nil {
					return nil, nil, err
				}
				row[i] = generated
			}
			rows = append(rows, row)
		}
	}

	g.logger.Debug("rows generated",
		"table", req.TableName,
		"rows", len(rows),
		"columns", len(names))
	return names, rows, nil
}

func lookupEntry(entries []types.MapEntry, key string) (types.Value, bool) {
	for _, e := range entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return types.Value{}, false
}

// generate synthesizes one column value. Nullable columns occasionally get a
// NULL, columns with a declared default occasionally get that default, id-like
// columns get snowflake or UUID identifiers and the rest is driven by the
// column's declared type.
func (g *Generator) generate(ctx context.Context, tableName string, col types.ColumnMeta, domains map[string][]string) (interface{}, error) {
	if col.Nullable && g.rand.Float64() < nullProbability {
		return nil, nil
	}
	if col.DefaultValue != "" && g.rand.Float64() < defaultProbability {
		return g.parseDefault(col), nil
	}

	if v, ok := g.identifierValue(col); ok {
		return v, nil
	}

	switch col.DataType {
	case "ENUM", "SET":
		members, err := g.columnMembers(ctx, tableName, col.Name, domains)
		if err != nil || len(members) == 0 {
			// Domain probing is best effort; fall back to a plain string.
			if err != nil {
				g.logger.Warn("unable to read column domain",
					"table", tableName,
					"column", col.Name,
					"error", err)
			}
			return g.randomString(8), nil
		}
		if col.DataType == "ENUM" {
			return members[g.rand.Intn(len(members))], nil
		}
		return g.setValue(members), nil
	}

	return g.typedValue(col), nil
}

// identifierValue recognizes id-like column names and produces snowflake or
// UUID identifiers for them, in the column's storage type.
func (g *Generator) identifierValue(col types.ColumnMeta) (interface{}, bool) {
	name := strings.ToLower(col.Name)
	if strings.Contains(name, "uuid") {
		return uuid.NewString(), true
	}
	if name != "id" && !strings.HasSuffix(name, "_id") && !strings.HasSuffix(name, "id") && !strings.Contains(name, "identifier") {
		return nil, false
	}
	switch col.DataType {
	case "VARCHAR", "CHAR", "TEXT":
		if col.Size == 36 {
			return uuid.NewString(), true
		}
		return strconv.FormatInt(g.flake.NextID(), 10), true
	case "BIGINT", "INT", "INTEGER", "MEDIUMINT", "DECIMAL", "NUMERIC":
		return g.flake.NextID(), true
	}
	return nil, false
}

var defaultQuoted = regexp.MustCompile(`^'(.*)'$`)

// parseDefault converts a catalog default into a bindable value.
func (g *Generator) parseDefault(col types.ColumnMeta) interface{} {
	def := strings.TrimSpace(col.DefaultValue)
	upper := strings.ToUpper(def)
	if strings.Contains(upper, "CURRENT_TIMESTAMP") || strings.Contains(upper, "NOW()") {
		return time.Now().Format("2006-01-02 15:04:05")
	}
	if upper == "NULL" {
		return nil
	}
	if m := defaultQuoted.FindStringSubmatch(def); m != nil {
		return m[1]
	}
	if i, err := strconv.ParseInt(def, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(def, 64); err == nil {
		return f
	}
	return def
}

var (
	domainPattern = regexp.MustCompile(`(?i)^(?:enum|set)\((.+?)\)$`)
	memberPattern = regexp.MustCompile(`'([^']*)'`)
)

// columnMembers fetches and parses an ENUM or SET member list, caching the
// result per column for the duration of one request.
func (g *Generator) columnMembers(ctx context.Context, tableName string, columnName string, domains map[string][]string) ([]string, error) {
	if members, ok := domains[columnName]; ok {
		return members, nil
	}

	domain, err := g.schema.ColumnDomain(ctx, tableName, columnName)
	if err != nil {
		// Cache the failure so one request probes each column at most once.
		domains[columnName] = nil
		return nil, err
	}
	var members []string
	if m := domainPattern.FindStringSubmatch(strings.TrimSpace(domain)); m != nil {
		for _, member := range memberPattern.FindAllStringSubmatch(m[1], -1) {
			members = append(members, member[1])
		}
	}
	domains[columnName] = members
	return members, nil
}

// setValue picks one to three distinct SET members and joins them the way
// MySQL stores SET values.
func (g *Generator) setValue(members []string) string {
	count := 1 + g.rand.Intn(3)
	if count > len(members) {
		count = len(members)
	}
	picked := g.rand.Perm(len(members))[:count]
	parts := make([]string, count)
	for i, idx := range picked {
		parts[i] = members[idx]
	}
	return strings.Join(parts, ",")
}

func (g *Generator) typedValue(col types.ColumnMeta) interface{} {
	switch col.DataType {
	case "TINYINT":
		return int64(g.rand.Intn(128))
	case "SMALLINT":
		return int64(g.rand.Intn(32768))
	case "MEDIUMINT":
		return int64(g.rand.Intn(8388608))
	case "INT", "INTEGER":
		return int64(g.rand.Intn(1000000))
	case "BIGINT":
		return g.rand.Int63n(1000000000000)
	case "DECIMAL", "NUMERIC":
		return g.decimalValue(col)
	case "FLOAT", "DOUBLE", "REAL":
		return g.rand.Float64() * 1000
	case "CHAR":
		if col.Size == 36 {
			return uuid.NewString()
		}
		return g.randomString(boundedSize(col.Size, 8))
	case "VARCHAR":
		return g.randomString(boundedSize(col.Size, 20))
	case "TEXT", "TINYTEXT", "MEDIUMTEXT", "LONGTEXT":
		return g.randomSentence()
	case "DATE":
		return g.recentTime().Format("2006-01-02")
	case "TIME":
		return g.recentTime().Format("15:04:05")
	case "DATETIME", "TIMESTAMP":
		return g.recentTime().Format("2006-01-02 15:04:05")
	case "YEAR":
		return int64(1000 + g.rand.Intn(9000))
	case "BOOLEAN", "BOOL", "BIT":
		return int64(g.rand.Intn(2))
	case "BINARY", "VARBINARY", "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB":
		return g.randomBytes(boundedSize(col.Size, 16))
	case "JSON":
		return g.randomJSON(0)
	}
	// Unknown types get a short string; MySQL coerces where it can.
	return g.randomString(12)
}

// decimalValue produces a number that fits the column's precision and scale.
func (g *Generator) decimalValue(col types.ColumnMeta) interface{} {
	precision := col.Size
	if precision <= 0 || precision > 15 {
		precision = 10
	}
	scale := col.DecimalDigits
	if scale < 0 || scale >= precision {
		scale = 0
	}

	intDigits := precision - scale
	if intDigits > 9 {
		intDigits = 9
	}
	whole := g.rand.Int63n(pow10(intDigits))
	if scale == 0 {
		return whole
	}
	frac := g.rand.Int63n(pow10(scale))
	v, _ := strconv.ParseFloat(fmt.Sprintf("%d.%0*d", whole, scale, frac), 64)
	return v
}

func pow10(n int) int64 {
	v := int64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

func boundedSize(size int, fallback int) int {
	if size <= 0 || size > fallback {
		return fallback
	}
	return size
}

func (g *Generator) randomString(length int) string {
	if length <= 0 {
		length = 1
	}
	return g.faker.LetterN(uint(length))
}

func (g *Generator) randomSentence() string {
	return g.faker.Sentence(4 + g.rand.Intn(8))
}

func (g *Generator) randomBytes(length int) []byte {
	b := make([]byte, length)
	g.rand.Read(b)
	return b
}

func (g *Generator) recentTime() time.Time {
	offset := time.Duration(g.rand.Int63n(int64(365 * 24 * time.Hour)))
	return time.Now().Add(-offset)
}

// randomJSON renders a small JSON object with two to six fields, nesting at
// most one extra level.
func (g *Generator) randomJSON(depth int) string {
	var sb strings.Builder
	sb.WriteByte('{')
	count := 2 + g.rand.Intn(5)
	for i := 0; i < count; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%q:", fmt.Sprintf("field%d", i+1))
		switch kind := g.rand.Intn(4); {
		case kind == 0 && depth < 1:
			sb.WriteString(g.randomJSON(depth + 1))
		case kind == 1:
			fmt.Fprintf(&sb, "%d", g.rand.Intn(1000))
		case kind == 2:
			fmt.Fprintf(&sb, "%t", g.rand.Intn(2) == 0)
		default:
			fmt.Fprintf(&sb, "%q", g.faker.Word())
		}
	}
	sb.WriteByte('}')
	return sb.String()
}
