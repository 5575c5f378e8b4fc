package flows

import (
	"github.com/go-go-golems/agentverse/pkg/ai"
	"github.com/go-go-golems/agentverse/pkg/persona"
)

type ChatInput struct {
	History  []ai.Turn              `json:"history"`
	Message  string                 `json:"message" jsonschema:"minLength=1"`
	Settings *persona.AgentSettings `json:"settings,omitempty"`
}

type ChatOutput struct {
	Message string `json:"message" jsonschema:"minLength=1,description=The reply shown to the user"`
	Code    string `json:"code,omitempty" jsonschema:"description=An optional code snippet to open in the sandbox"`
}

type GenerateCodeInput struct {
	Prompt string `json:"prompt" jsonschema:"minLength=1,description=A prompt describing the code to be generated"`
}

type GenerateCodeOutput struct {
	Code string `json:"code" jsonschema:"minLength=1,description=The generated code snippet"`
}

type TextToSpeechInput struct {
	Text string `json:"text" jsonschema:"minLength=1"`
}

type TextToSpeechOutput struct {
	AudioDataURI string `json:"audioDataUri" jsonschema:"minLength=1"`
}

type FormulatePlanInput struct {
	Objective string `json:"objective" jsonschema:"minLength=1,description=The high-level objective for the agent"`
}

type FormulatePlanOutput struct {
	Plan string `json:"plan" jsonschema:"minLength=1,description=A detailed plan with actionable steps to achieve the objective"`
}

type TaskExecutionFeedbackInput struct {
	TaskID           string `json:"taskId" jsonschema:"minLength=1,description=The ID of the task being reviewed"`
	TaskDescription  string `json:"taskDescription" jsonschema:"description=A description of the task that was executed"`
	CompletionResult string `json:"completionResult" jsonschema:"description=The result of the task execution"`
	Feedback         string `json:"feedback" jsonschema:"minLength=1,description=Feedback provided by the user on the task execution"`
}

type TaskExecutionFeedbackOutput struct {
	RefinedApproach string `json:"refinedApproach" jsonschema:"minLength=1,description=The refined approach for subsequent task executions"`
}
