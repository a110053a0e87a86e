package ai

// Preset holds the sampling parameters for one kind of completion.
type Preset struct {
	Name             string
	Temperature      float32
	TopP             float32
	MaxTokens        int
	PresencePenalty  float32
	FrequencyPenalty float32
}

var (
	PresetChat = Preset{
		Name:             "chat",
		Temperature:      0.6,
		TopP:             0.9,
		MaxTokens:        1200,
		PresencePenalty:  0.1,
		FrequencyPenalty: 0.1,
	}
	PresetDocumentQA = Preset{
		Name:        "document_qa",
		Temperature: 0.15,
		TopP:        0.8,
		MaxTokens:   600,
	}
	PresetSummarization = Preset{
		Name:             "summarization",
		Temperature:      0.3,
		TopP:             0.85,
		MaxTokens:        400,
		PresencePenalty:  0.2,
		FrequencyPenalty: 0.1,
	}
	PresetQuestions = Preset{
		Name:        "questions",
		Temperature: 0.5,
		TopP:        0.9,
		MaxTokens:   200,
	}
)
