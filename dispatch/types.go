package dispatch

// TaskType is the classification of a user query.
type TaskType string

const (
	TaskGeneral  TaskType = "general"
	TaskResearch TaskType = "research"
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case TaskGeneral, TaskResearch:
		return true
	}
	return false
}

// NextAgent is the capability the supervisor routes the next task to.
type NextAgent string

const (
	NextWebScraper NextAgent = "web-scraper-agent"
	NextReporting  NextAgent = "reporting-agent"
)

// Valid reports whether n is a known routing target.
func (n NextAgent) Valid() bool {
	switch n {
	case NextWebScraper, NextReporting:
		return true
	}
	return false
}

// Query is the entry input of both workflows. Any string is accepted,
// including the empty one.
type Query struct {
	Query string `json:"query"`
}

// Classification is the output of classify-task and the input of the branch.
// The branch itself decides what to do with unknown task types.
type Classification struct {
	TaskType TaskType `json:"taskType" validate:"required"`
	Query    string   `json:"query"`
}

// GeneralAnswer is the output of the general path.
type GeneralAnswer struct {
	Answer string `json:"answer"`
}

// Plan carries the planner's markdown TODO list unparsed.
type Plan struct {
	Result string `json:"result"`
}

// RoutingDecision is the supervisor's structured reply.
type RoutingDecision struct {
	NextAgent NextAgent `json:"nextAgent" validate:"required,oneof=web-scraper-agent reporting-agent"`
	Task      string    `json:"task"`
}

// ResearchResult is the output of the research path.
type ResearchResult struct {
	Result string `json:"result"`
}

// classifierReply is the classifier's structured reply.
type classifierReply struct {
	TaskType TaskType `json:"taskType" validate:"required,oneof=general research"`
}
