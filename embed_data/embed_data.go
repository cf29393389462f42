package embed_data

import _ "embed"

//go:embed prompts/audit_v1.tmpl
var AuditPromptV1 []byte

//go:embed prompts/system_prompt.txt
var SystemPrompt []byte

//go:embed models_details/model_details.json
var ModelDetails []byte
