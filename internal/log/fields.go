package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldSource      = "source"
	FieldURL         = "url"
	FieldCustomerID  = "customer_id"
	FieldCustomers   = "customers"
	FieldTransaction = "transactions"
	FieldGeneration  = "chart_generation"
	FieldPageID      = "page_id"
	FieldFilterName  = "filter_customer"
	FieldFilterAmt   = "filter_amount"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentFetcher   = "fetcher"
	ComponentDashboard = "dashboard"
	ComponentChart     = "chart"
	ComponentStorage   = "storage"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentAMQP      = "amqp"
	ComponentImport    = "import"
)

// Operations defines standard operation names
const (
	OpFetch    = "fetch"
	OpLoad     = "load"
	OpFilter   = "filter"
	OpSelect   = "select"
	OpImport   = "import"
	OpRefresh  = "refresh"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithCriteria adds the two filter inputs
func (f LogFields) WithCriteria(name, amount string) LogFields {
	f[FieldFilterName] = name
	f[FieldFilterAmt] = amount
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
