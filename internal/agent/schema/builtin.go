package schema

// TextResult is the shape of a plain conversational answer
type TextResult struct {
	TextResponse string `json:"text_response" jsonschema_description:"Your response."`
}

// CodeResult is the shape of a code generation answer
type CodeResult struct {
	Code string `json:"code" jsonschema_description:"The generated source code."`
}

// SummaryResult is the shape of a summarization answer
type SummaryResult struct {
	Summary   string   `json:"summary" jsonschema_description:"A concise summary of the input."`
	KeyPoints []string `json:"key_points" jsonschema_description:"The most important points, one per entry."`
}

// EchoResult is the shape of an answer that repeats the query
type EchoResult struct {
	Echo string `json:"echo" jsonschema_description:"The user's message, repeated verbatim."`
}

var builtins = map[string]*Shape{
	"text":    mustBuiltin[TextResult]("text"),
	"code":    mustBuiltin[CodeResult]("code"),
	"summary": mustBuiltin[SummaryResult]("summary"),
	"echo":    mustBuiltin[EchoResult]("echo"),
}

func mustBuiltin[T any](name string) *Shape {
	shape, err := New(name, Generate[T]())
	if err != nil {
		panic(err)
	}
	return shape
}
