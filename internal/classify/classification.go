// Package classify implements the QueryClassifier of spec.md §4.3: a
// deterministic, embedding-free heuristic that derives a query's intent,
// scope, target type, framework relevance, and named entities from its
// free text alone.
package classify

// Intent is the fixed vocabulary of query intents.
type Intent string

const (
	IntentUnderstand Intent = "understand"
	IntentLocate     Intent = "locate"
	IntentTrace      Intent = "trace"
	IntentDebug      Intent = "debug"
	IntentImplement  Intent = "implement"
	IntentReference  Intent = "reference"
	IntentCompare    Intent = "compare"
	IntentFramework  Intent = "framework"
)

// Scope is the fixed vocabulary of query breadth.
type Scope string

const (
	ScopePinpoint      Scope = "pinpoint"
	ScopeFocused       Scope = "focused"
	ScopeExploratory   Scope = "exploratory"
	ScopeComprehensive Scope = "comprehensive"
)

// TargetType is the fixed vocabulary of unit kinds a query may resolve to.
type TargetType string

const (
	TargetModel           TargetType = "model"
	TargetController      TargetType = "controller"
	TargetService         TargetType = "service"
	TargetJob             TargetType = "job"
	TargetMailer          TargetType = "mailer"
	TargetComponent       TargetType = "component"
	TargetConcern         TargetType = "concern"
	TargetFramework       TargetType = "framework"
	TargetSchema          TargetType = "schema"
	TargetRoute           TargetType = "route"
	TargetGraphQLType     TargetType = "graphql_type"
	TargetGraphQLMutation TargetType = "graphql_mutation"
	TargetGraphQLResolver TargetType = "graphql_resolver"
	TargetGraphQLQuery    TargetType = "graphql_query"
	TargetUnknown         TargetType = "unknown"
)

// Classification is the full output of classifying one query.
type Classification struct {
	Intent           Intent
	Scope            Scope
	TargetType       TargetType
	FrameworkContext bool
	Entities         []string
	Confidences      map[string]float64
}
