package dispatch

import (
	"github.com/hupe1980/beanmesh/agent"
	"github.com/hupe1980/beanmesh/logging"
	"github.com/hupe1980/beanmesh/memory"
	"github.com/hupe1980/beanmesh/model"
	"github.com/hupe1980/beanmesh/tool"
)

// Registry names of the dispatch agents.
const (
	ClassifierAgentName = "task-classifier-agent"
	GeneralAgentName    = "general-agent"
	PlannerAgentName    = "planner-agent"
	SupervisorAgentName = "supervisor-agent"
	WebScraperAgentName = "web-scraper-agent"
)

const classifierInstruction = `Your job is to classify the user's request into one of two task types:
- general: A simple, direct request that can be answered immediately.
- research: A complex or open-ended question that may require planning, tool usage, or multiple steps.
Classify the task based only on the user message.

Output format:
{
  "taskType": "<general|research>"
}`

const generalInstruction = `You are a helpful assistant.`

const plannerInstruction = `You are a Planner Agent. Your job is to break down the user's request into a clear and actionable plan using a markdown TODO list.

Only the following agents can be used to perform the tasks:
web-scraper-agent: gather relevant information from the internet
reporting-agent: summarize the gathered relevant information

Instructions:
- Use general language to describe tasks. Do not mention specific tools or agents.
- Decompose the request into logical, sequential steps.
- Each step must be something the listed agents can do.
- Format your response strictly as a markdown TODO list.
- Do not include any explanations, reasoning, or extra text.
- Do not write anything to the markdown TODO list.

Example Output:
Title: <Concise title of the plan>
- [ ] <Step 1>
- [ ] <Step 2>
- [ ] ...`

const supervisorInstruction = `You are the Supervisor Agent. Your role is to review the "To-Do" list stored in working memory and determine which specialized agent should handle the next pending task.

Available agents:
- web-scraper-agent: Responsible for collecting relevant information from the web.
- reporting-agent: Generates summaries or reports based on the collected information.

Your output must follow this format:
{
  "nextAgent": "<web-scraper-agent|reporting-agent>",
  "task": "<task description>"
}

Select only one agent based on the nature of the next uncompleted task.`

const webScraperInstruction = `You are a Web Scraper Agent. Your role is to collect relevant information from the web based on the tasks assigned by the Supervisor Agent.`

// agentConfig describes one dispatch agent.
type agentConfig struct {
	name          string
	description   string
	instruction   string
	workingMemory bool
	tools         []tool.Tool
}

func newAgent(cfg agentConfig, llm model.Model, deps Deps, logger logging.Logger) *agent.Agent {
	return agent.New(cfg.name, llm, func(o *agent.Options) {
		o.Description = cfg.description
		o.Instruction = agent.NewInstructionFromText(cfg.instruction)
		o.Tools = cfg.tools
		o.Logger = logger
		if deps.MaxSteps > 0 {
			o.MaxSteps = deps.MaxSteps
		}
		if deps.Store != nil {
			o.Memory.Store = deps.Store
			o.Memory.WorkingMemory = cfg.workingMemory
			o.Memory.Template = memory.TodoTemplate
			if deps.LastMessages > 0 {
				o.Memory.LastMessages = deps.LastMessages
			}
		}
	})
}

func agentConfigs(scraperTools []tool.Tool) []agentConfig {
	return []agentConfig{
		{
			name:        ClassifierAgentName,
			description: "Classifies a request as general or research.",
			instruction: classifierInstruction,
		},
		{
			name:        GeneralAgentName,
			description: "Answers simple, direct requests.",
			instruction: generalInstruction,
		},
		{
			name:          PlannerAgentName,
			description:   "Breaks a request down into a markdown TODO list.",
			instruction:   plannerInstruction,
			workingMemory: true,
		},
		{
			name:          SupervisorAgentName,
			description:   "Picks the next pending task and the agent for it.",
			instruction:   supervisorInstruction,
			workingMemory: true,
		},
		{
			name:        WebScraperAgentName,
			description: "Collects information from the web for a task.",
			instruction: webScraperInstruction,
			tools:       scraperTools,
		},
	}
}
