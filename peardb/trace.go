package peardb

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Regex patterns for query sanitization - pre-compiled for performance.
var (
	// stringLiteralRegex matches single-quoted strings, handling escaped quotes.
	stringLiteralRegex = regexp.MustCompile(`'(?:[^'\\]|\\.)*'`)

	// numericLiteralRegex matches numeric literals (integers and floats).
	numericLiteralRegex = regexp.MustCompile(`\b\d+\.?\d*\b`)

	// hexLiteralRegex matches hex literals.
	hexLiteralRegex = regexp.MustCompile(`0[xX][0-9a-fA-F]+`)

	// returningRegex finds a RETURNING clause in DML statements.
	returningRegex = regexp.MustCompile(`(?i)\bRETURNING\b`)

	// quotedOrCommentRegex matches quoted literals, quoted identifiers and comments.
	quotedOrCommentRegex = regexp.MustCompile(`'(?:[^'\\]|\\.)*'|"[^"]*"|` + "`[^`]*`" + `|--[^\n]*|(?s:/\*.*?\*/)`)
)

// rowOperations are the leading keywords of statements that produce a result set.
var rowOperations = map[string]struct{}{
	"SELECT":   {},
	"WITH":     {},
	"SHOW":     {},
	"EXPLAIN":  {},
	"PRAGMA":   {},
	"VALUES":   {},
	"DESCRIBE": {},
	"DESC":     {},
	"TABLE":    {},
	"CALL":     {},
}

// spanName returns a span name from a SQL query.
// Returns the SQL operation (SELECT, INSERT, etc.) or "SQL" for empty/unknown queries.
func spanName(query string) string {
	op := extractOperation(query)
	if op != "" {
		return op
	}
	return "SQL"
}

// skipLeadingComments drops whitespace, opening parentheses and any
// leading -- or /* */ comments.
func skipLeadingComments(query string) string {
	for {
		query = strings.TrimLeft(strings.TrimSpace(query), "(")
		switch {
		case strings.HasPrefix(query, "--"):
			end := strings.IndexByte(query, '\n')
			if end == -1 {
				return ""
			}
			query = query[end+1:]
		case strings.HasPrefix(query, "/*"):
			end := strings.Index(query[2:], "*/")
			if end == -1 {
				return ""
			}
			query = query[end+4:]
		default:
			return query
		}
	}
}

// extractOperation extracts the SQL operation (first word) from a query,
// ignoring leading comments.
// Returns uppercase operation name or empty string if query is empty.
func extractOperation(query string) string {
	query = skipLeadingComments(query)
	if query == "" {
		return ""
	}

	spaceIdx := strings.IndexAny(query, " \t\n\r(")
	if spaceIdx == -1 {
		return strings.ToUpper(query)
	}

	return strings.ToUpper(query[:spaceIdx])
}

// returnsRows reports whether executing query opens a cursor.
func returnsRows(query string) bool {
	if _, ok := rowOperations[extractOperation(query)]; ok {
		return true
	}
	return returningRegex.MatchString(quotedOrCommentRegex.ReplaceAllString(query, " "))
}

// legacySpanName generates a span name for a legacy helper call.
func legacySpanName(method, query string) string {
	op := extractOperation(query)
	if op == "" {
		return method
	}
	return method + ": " + op
}

// baseAttributes returns the base attributes for all spans and metrics.
func (cfg *config) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if cfg.DBSystem != "" {
		attrs = append(attrs, attribute.String("db.system", cfg.DBSystem))
	}
	if cfg.DBName != "" {
		attrs = append(attrs, attribute.String("db.name", cfg.DBName))
	}
	if cfg.InstanceName != "" {
		attrs = append(attrs, attribute.String("db.instance", cfg.InstanceName))
	}
	return attrs
}

// queryAttributes returns attributes for query spans.
func (cfg *config) queryAttributes(query string) []attribute.KeyValue {
	attrs := cfg.baseAttributes()

	if !cfg.DisableQuery && query != "" {
		sanitized := query
		if cfg.QuerySanitizer != nil {
			sanitized = cfg.QuerySanitizer(query)
		}
		attrs = append(attrs, attribute.String("db.statement", sanitized))
	}

	op := extractOperation(query)
	if op != "" {
		attrs = append(attrs, attribute.String("db.operation", op))
	}

	return attrs
}

// operation is one traced and metered unit of work.
type operation struct {
	cfg     *config
	span    trace.Span
	start   time.Time
	op      string
	metered bool
}

// startOperation opens a client span named name and starts the latency clock.
// The returned context carries the span.
func (cfg *config) startOperation(
	ctx context.Context,
	name, op string,
	attrs []attribute.KeyValue,
) (context.Context, *operation) {
	ctx, span := cfg.Tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return ctx, &operation{cfg: cfg, span: span, start: time.Now(), op: op, metered: true}
}

// startCall opens the parent span of a legacy helper call. Calls are not
// metered themselves; the prepare and execute operations beneath them are.
func (cfg *config) startCall(ctx context.Context, method, query string) (context.Context, *operation) {
	cfg.Usage.track(method)
	ctx, o := cfg.startOperation(ctx, legacySpanName("peardb."+method, query), "", cfg.queryAttributes(query))
	o.metered = false
	return ctx, o
}

// end records the duration metric, marks the span failed when err is set and
// closes the span.
func (o *operation) end(ctx context.Context, err error) {
	if o.metered {
		o.cfg.Metrics.recordQueryDuration(
			ctx,
			time.Since(o.start),
			o.op,
			o.cfg.baseAttributes(),
			statusCode(err),
		)
	}

	if err != nil {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
		if info, ok := AsErrorInfo(err); ok {
			o.span.SetAttributes(attribute.String("db.response.status_code", info.SQLState))
		}
	}

	o.span.End()
}

// DefaultQuerySanitizer is a basic query sanitizer that replaces
// literal values with placeholders to prevent sensitive data from
// appearing in traces.
//
// What it sanitizes:
//   - String literals: 'john' → '?'
//   - Numeric literals: 123, 45.67 → ?
//   - Hex literals: 0xDEADBEEF → ?
func DefaultQuerySanitizer(query string) string {
	query = stringLiteralRegex.ReplaceAllString(query, "'?'")
	query = numericLiteralRegex.ReplaceAllString(query, "?")
	query = hexLiteralRegex.ReplaceAllString(query, "?")
	return query
}
