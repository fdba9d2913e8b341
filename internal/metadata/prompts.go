package metadata

const chunkPrompt = `You are a legal document processor. Break the provided legal document into manageable chunks, by paragraph or by clause depending on the context. Each chunk has an id, a title, the paragraph text, key phrases and a summary.

Chunking rules:
- Break the text into chunks by paragraph if the paragraphs are short and self-contained.
- Break by clause if the paragraphs are long or contain multiple legal provisions.

For each chunk:
- id: a numeric id starting from "1" and incrementing for each chunk, in document order.
- title: the main subject of the paragraph or clause. If it is not stated, infer a short descriptive title.
- paragraph: the full text of the paragraph or clause.
- keyphrases: the most relevant terms. Focus on dates, names of people, organizations and places, and critical legal terms.
- summary: a concise summary of the paragraph or clause.

Example:
{"chunks":[{"id":"1","title":"Introduction to Contract Terms","paragraph":"This contract is entered into on January 1, 2024, between Party A and Party B.","keyphrases":["January 1, 2024","Party A","Party B"],"summary":"Introduces the contract, specifying the date and parties involved."}]}

Respond with JSON only.`

const paragraphPrompt = `You are a legal document analysis assistant tasked with reading a formal contract or legal agreement.

Carefully extract the following structured fields in strict JSON format only, no explanations:
- title: descriptive title of the clause
- keyphrases: the most important phrases
- summary: concise summary of the clause
- isCompliant: whether the clause complies with company policy
- CompliantCollection: ids of policies the clause complies with
- NonCompliantCollection: ids of policies the clause violates`

const policyPrompt = `You are a legal document analysis assistant tasked with reading a formal policy document.
Your role is to extract structured data that will be used as a reference to verify legal contracts against these policy instructions.

Extract the following fields in strict JSON format only, without any commentary or explanation:
- title: a clear and descriptive name for the policy.
- instruction: the key instruction, rule, or mandate this policy enforces, concise but complete.
- tags: 2 to 3 relevant, general-purpose keywords.
- severity: 1 for Critical, 2 for Warning.`

const languageSystemPrompt = "You detect the language of legal text."

const languageUserPrompt = `Identify the language of the following text. Respond only with 'English' or 'German'. No extra text.

Text:
"""%s"""`

const intentsPrompt = `You are a legal assistant who is an expert in revising legal documents. You will be provided with the user's question about a legal document.
Your task is to provide a list of the 3 best search intents derived from the user's question. Format your answer as a comma separated list of search intents.`

func stringArray() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

func object(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

var chunkListSchema = &ResponseSchema{
	Name: "chunk_list",
	Schema: object(map[string]any{
		"chunks": map[string]any{
			"type": "array",
			"items": object(map[string]any{
				"id":         map[string]any{"type": "string"},
				"title":      map[string]any{"type": "string"},
				"paragraph":  map[string]any{"type": "string"},
				"keyphrases": stringArray(),
				"summary":    map[string]any{"type": "string"},
			}, "id", "title", "paragraph", "keyphrases", "summary"),
		},
	}, "chunks"),
}

var paragraphSchema = &ResponseSchema{
	Name: "paragraph_metadata",
	Schema: object(map[string]any{
		"title":                  map[string]any{"type": "string"},
		"keyphrases":             stringArray(),
		"summary":                map[string]any{"type": "string"},
		"isCompliant":            map[string]any{"type": "boolean"},
		"CompliantCollection":    stringArray(),
		"NonCompliantCollection": stringArray(),
	}, "title", "keyphrases", "summary", "isCompliant", "CompliantCollection", "NonCompliantCollection"),
}

var policySchema = &ResponseSchema{
	Name: "policy_metadata",
	Schema: object(map[string]any{
		"title":       map[string]any{"type": "string"},
		"instruction": map[string]any{"type": "string"},
		"tags":        stringArray(),
		"severity":    map[string]any{"type": "integer", "enum": []int{1, 2}},
	}, "title", "instruction", "tags", "severity"),
}
