package schema

// Custom string types for type safety.
type (
	// CategoryID identifies an analyzer category.
	CategoryID string

	// Grade is a letter grade on the A+ to F curve.
	Grade string

	// ErrorType classifies an analysis failure.
	ErrorType string

	// Severity ranks an ErrorRecord.
	Severity string

	// GateType distinguishes the overall gate from per-category gates.
	GateType string

	// CIFormat represents a CI output convention.
	CIFormat string

	// BlockAction is the blocking policy applied to gate failures or warnings.
	BlockAction string

	// OutputMode represents the format of the output.
	OutputMode string

	// Trend describes the direction of the score against the previous run.
	Trend string

	// Priority ranks a Recommendation.
	Priority string

	// DatabaseBackend represents the database backend for score history.
	DatabaseBackend string
)

// All categories supported.
const (
	StructureCategory    CategoryID = "structure"
	StyleCategory        CategoryID = "style"
	DependenciesCategory CategoryID = "dependencies"
	SecurityCategory     CategoryID = "security"
	PerformanceCategory  CategoryID = "performance"
)

// AllCategoriesKeyword selects every registered category.
const AllCategoriesKeyword = "all"

// Letter grades from best to worst.
const (
	GradeAPlus  Grade = "A+"
	GradeA      Grade = "A"
	GradeAMinus Grade = "A-"
	GradeBPlus  Grade = "B+"
	GradeB      Grade = "B"
	GradeBMinus Grade = "B-"
	GradeCPlus  Grade = "C+"
	GradeC      Grade = "C"
	GradeCMinus Grade = "C-"
	GradeDPlus  Grade = "D+"
	GradeD      Grade = "D"
	GradeDMinus Grade = "D-"
	GradeF      Grade = "F"
)

// Error taxonomy.
const (
	IOError            ErrorType = "IOError"
	ParseError         ErrorType = "ParseError"
	TimeoutError       ErrorType = "TimeoutError"
	ConfigurationError ErrorType = "ConfigurationError"
	UnknownError       ErrorType = "UnknownError"
)

// Error severities.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Gate types.
const (
	OverallGate  GateType = "overall"
	CategoryGate GateType = "category"
)

// All CI formats supported.
const (
	AutoFormat          CIFormat = "auto" // default
	GitHubActionsFormat CIFormat = "github-actions"
	GitLabCIFormat      CIFormat = "gitlab-ci"
	JenkinsFormat       CIFormat = "jenkins"
	GenericFormat       CIFormat = "generic"
)

// Blocking actions.
const (
	BlockError  BlockAction = "error"
	BlockWarn   BlockAction = "warn"
	BlockIgnore BlockAction = "ignore"
)

// All output modes supported.
const (
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
	CSVOut  OutputMode = "csv"
)

// Trend values.
const (
	TrendNew       Trend = "new"
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// Recommendation priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// All history backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// AllCategories lists every category in registry order.
var AllCategories = []CategoryID{
	StructureCategory,
	StyleCategory,
	DependenciesCategory,
	SecurityCategory,
	PerformanceCategory,
}

// DefaultCategoryWeights are the max scores of each category. They sum to 100.
var DefaultCategoryWeights = map[CategoryID]float64{
	StructureCategory:    25,
	StyleCategory:        20,
	DependenciesCategory: 15,
	SecurityCategory:     20,
	PerformanceCategory:  20,
}

// ValidCategories lists all valid categories.
var ValidCategories = map[CategoryID]struct{}{
	StructureCategory:    {},
	StyleCategory:        {},
	DependenciesCategory: {},
	SecurityCategory:     {},
	PerformanceCategory:  {},
}

// ValidCIFormats lists all valid CI formats, including auto.
var ValidCIFormats = map[CIFormat]struct{}{
	AutoFormat:          {},
	GitHubActionsFormat: {},
	GitLabCIFormat:      {},
	JenkinsFormat:       {},
	GenericFormat:       {},
}

// ValidBlockActions lists all valid blocking actions.
var ValidBlockActions = map[BlockAction]struct{}{
	BlockError:  {},
	BlockWarn:   {},
	BlockIgnore: {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut: {},
	JSONOut: {},
	CSVOut:  {},
}

// ValidDatabaseBackends lists all valid history backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}
