package classify

import "regexp"

// intentPattern matches a normalized query against one intent, in the
// same style as the teacher's keyword/regex pattern pair: first pattern
// in priority order that matches wins.
type intentPattern struct {
	intent Intent
	regex  *regexp.Regexp
	score  float64
}

// intentPatterns is ordered by priority: the first match wins. Patterns
// for more specific intents (debug, compare, framework) are listed ahead
// of the broader "understand" catch-all.
var intentPatterns = []intentPattern{
	{IntentFramework, regexp.MustCompile(`(?i)what (options|features) does|how does (rails|react|graphql|active ?record|action ?pack) (implement|handle)|is .+ deprecated`), 0.9},
	{IntentDebug, regexp.MustCompile(`(?i)\b(why|error|bug|fail(s|ing|ed)?|broken|crash(es|ed)?|exception|not working)\b`), 0.85},
	{IntentCompare, regexp.MustCompile(`(?i)\b(difference between|compare|versus|vs\.?|which (is|one))\b`), 0.85},
	{IntentTrace, regexp.MustCompile(`(?i)\b(trace|flow|calls?|pathway|sequence|where does .+ (go|lead)|what calls)\b`), 0.85},
	{IntentImplement, regexp.MustCompile(`(?i)\b(implement|add|create|build|write)\b.*\b(feature|endpoint|method|class|model)\b`), 0.8},
	{IntentLocate, regexp.MustCompile(`(?i)\b(find|locate|where is|where are|which file)\b`), 0.8},
	{IntentReference, regexp.MustCompile(`(?i)\b(what is|what does|list|show me|signature of)\b`), 0.7},
	{IntentUnderstand, regexp.MustCompile(`(?i)\b(how does|explain|understand|walk me through|what happens when)\b`), 0.7},
}

// breadthWords signal a comprehensive-scope query ("all", "every", ...).
var breadthWords = []string{"all", "every", "across", "throughout", "entire", "each"}

// howWorksPattern recognizes "how does X work"-shaped focused queries.
var howWorksPattern = regexp.MustCompile(`(?i)how (does|do) .+ work`)

// definiteArticlePattern recognizes a singular noun phrase introduced by
// "the"/"this"/"that", the spec's pinpoint-scope signal.
var definiteArticlePattern = regexp.MustCompile(`(?i)\b(the|this|that) [a-z][a-z0-9_]*\b`)

// frameworkPatterns independently govern FrameworkContext, since a query
// can reference a framework without the intent itself being "framework"
// (e.g. "why does ActiveRecord validation fail here").
var frameworkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)what options does .+ support`),
	regexp.MustCompile(`(?i)how does (rails|react|graphql|activerecord|active record|actionpack|action pack|devise|sidekiq) implement`),
	regexp.MustCompile(`(?i)is .+ deprecated`),
	regexp.MustCompile(`(?i)\b(rails|activerecord|active record|actionpack|action pack|graphql-ruby|rspec|sidekiq|devise)\b`),
}

// targetHeads maps a literal head noun to the target type it overrides
// to, per spec.md §4.3 step 4.
var targetHeads = map[string]TargetType{
	"model":             TargetModel,
	"models":            TargetModel,
	"controller":        TargetController,
	"controllers":       TargetController,
	"service":           TargetService,
	"services":          TargetService,
	"job":               TargetJob,
	"jobs":              TargetJob,
	"mailer":            TargetMailer,
	"mailers":           TargetMailer,
	"component":         TargetComponent,
	"components":        TargetComponent,
	"concern":           TargetConcern,
	"concerns":          TargetConcern,
	"schema":            TargetSchema,
	"route":             TargetRoute,
	"routes":            TargetRoute,
	"graphql type":      TargetGraphQLType,
	"graphql mutation":  TargetGraphQLMutation,
	"graphql resolver":  TargetGraphQLResolver,
	"graphql query":     TargetGraphQLQuery,
}
