package flows

import (
	"bytes"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
)

const chatSystemTemplate = `You are {{ .AgentName | trim }}, a {{ .RoleLabel }}.
{{ .AgentInstructions | trim }}

Reply with a JSON object. Put your answer for the user in "message".
When the answer includes a code snippet, put only the raw code in "code" and do not repeat it in "message".`

const generateCodeTemplate = `You are an expert code generator. Your task is to generate a high-quality code snippet based on the user's prompt.
Please adhere to the following guidelines:
1. Code Only: Your output must be ONLY the raw code. Do not include any explanations, introductory phrases like "Here is the code:", or markdown fences.
2. Completeness: Generate a complete, functional and self-contained code snippet unless the prompt specifies otherwise.
3. Best Practices: Follow modern coding conventions for the requested language.

User Prompt: {{ .Prompt | trim }}`

const formulatePlanTemplate = `You are an AI agent tasked with creating detailed plans to achieve user objectives.

Objective: {{ .Objective | trim }}

Formulate a comprehensive plan, breaking down the objective into smaller, actionable steps.
Write the steps as a numbered markdown list, one actionable step per item, so the plan can be easily executed.`

const taskFeedbackTemplate = `You are an AI agent that refines its approach to task execution based on user feedback.

Task ID: {{ .TaskID }}
Task Description: {{ .TaskDescription | default "(none)" }}
Completion Result: {{ .CompletionResult | default "(none)" }}
Feedback: {{ .Feedback | trim }}

Based on the user feedback, refine your approach for subsequent task executions. What lessons did you learn, and what will you do differently next time?`

var (
	chatSystemTmpl    = mustTemplate("chat-system", chatSystemTemplate)
	generateCodeTmpl  = mustTemplate("generate-code", generateCodeTemplate)
	formulatePlanTmpl = mustTemplate("formulate-plan", formulatePlanTemplate)
	taskFeedbackTmpl  = mustTemplate("task-feedback", taskFeedbackTemplate)
)

func mustTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(sprig.TxtFuncMap()).Parse(text))
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "rendering %s prompt", t.Name())
	}
	return buf.String(), nil
}
